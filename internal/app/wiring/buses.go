// Package wiring registers every command and query handler on the in-memory
// buses and wraps them with the middleware chain shared by all entry points.
package wiring

import (
	"log/slog"

	"roomledger/internal/app/commands"
	availabilityapp "roomledger/internal/app/handlers/availability"
	calendarapp "roomledger/internal/app/handlers/calendar"
	pricingapp "roomledger/internal/app/handlers/pricing"
	reservationsapp "roomledger/internal/app/handlers/reservations"
	roomsapp "roomledger/internal/app/handlers/rooms"
	"roomledger/internal/app/middleware"
	"roomledger/internal/app/outbox"
	"roomledger/internal/app/policies"
	"roomledger/internal/app/queries"
	"roomledger/internal/app/uow"
	"roomledger/internal/clock"
)

type Deps struct {
	UoWFactory      uow.UoWFactory
	Outbox          outbox.Outbox
	Idempotency     middleware.IdempotencyStore
	RateSheets      policies.RateSheetPublisher
	Clock           clock.Clock
	Logger          *slog.Logger
	DefaultCurrency string
	MaxRangeDays    int
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func Build(deps Deps) Buses {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, roomsapp.CreateRoomKey, &roomsapp.CreateRoomHandler{
		UoWFactory:      deps.UoWFactory,
		Outbox:          deps.Outbox,
		Encoder:         encoder,
		Clock:           clk,
		DefaultCurrency: deps.DefaultCurrency,
		Logger:          logger,
	})
	commands.RegisterHandler(commandBus, pricingapp.UpdateProfileKey, &pricingapp.UpdateProfileHandler{
		UoWFactory: deps.UoWFactory,
		Outbox:     deps.Outbox,
		Encoder:    encoder,
		Clock:      clk,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.ApplyRangeKey, &calendarapp.ApplyRangeHandler{
		UoWFactory:   deps.UoWFactory,
		Outbox:       deps.Outbox,
		Encoder:      encoder,
		Clock:        clk,
		MaxRangeDays: deps.MaxRangeDays,
		Logger:       logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.ExportKey, &calendarapp.ExportHandler{
		UoWFactory:   deps.UoWFactory,
		Publisher:    deps.RateSheets,
		Clock:        clk,
		MaxRangeDays: deps.MaxRangeDays,
		Logger:       logger,
	})
	commands.RegisterHandler(commandBus, reservationsapp.CreateHoldKey, &reservationsapp.CreateHoldHandler{
		UoWFactory: deps.UoWFactory,
		Outbox:     deps.Outbox,
		Encoder:    encoder,
		Clock:      clk,
		Logger:     logger,
	})
	ledger := reservationsapp.LedgerDeps{
		UoWFactory: deps.UoWFactory,
		Outbox:     deps.Outbox,
		Encoder:    encoder,
		Clock:      clk,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, reservationsapp.ConfirmHoldKey, &reservationsapp.ConfirmHoldHandler{LedgerDeps: ledger})
	commands.RegisterHandler(commandBus, reservationsapp.CancelHoldKey, &reservationsapp.CancelHoldHandler{LedgerDeps: ledger})
	commands.RegisterHandler(commandBus, reservationsapp.CompleteHoldKey, &reservationsapp.CompleteHoldHandler{LedgerDeps: ledger})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, roomsapp.GetRoomKey, &roomsapp.GetRoomHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, pricingapp.ResolvePriceKey, &pricingapp.ResolvePriceHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, pricingapp.QuoteKey, &pricingapp.QuoteHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, calendarapp.ViewKey, &calendarapp.ViewHandler{UoWFactory: deps.UoWFactory, MaxRangeDays: deps.MaxRangeDays})
	queries.RegisterHandler(queryBus, availabilityapp.CheckKey, &availabilityapp.CheckHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, reservationsapp.GetHoldKey, &reservationsapp.GetHoldHandler{UoWFactory: deps.UoWFactory})

	logger.Debug("buses registered", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	validator := middleware.NewStructValidator()
	cmdChain := []middleware.CommandMiddleware{
		middleware.Logging(logger),
		middleware.Authorization(middleware.AdminAuthorizer{}),
		middleware.Validation(validator),
	}
	if deps.Outbox != nil {
		cmdChain = append(cmdChain, middleware.OutboxFlush(deps.Outbox, logger))
	}
	if deps.Idempotency != nil {
		cmdChain = append(cmdChain, middleware.Idempotency(deps.Idempotency, nil))
	}
	cmdChain = append(cmdChain, middleware.Transaction(deps.UoWFactory, middleware.ReadOnlyCommands))

	return Buses{
		Commands: middleware.ChainCommands(commandBus, cmdChain...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryLogging(logger),
			middleware.QueryAuthorization(middleware.AdminAuthorizer{}),
			middleware.QueryValidation(validator),
		),
	}
}
