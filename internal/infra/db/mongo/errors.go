package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"roomledger/internal/domain/shared/apperr"
)

const codeWriteConflict = 112

// mapError turns transaction write conflicts into concurrency conflicts and wraps the rest with op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeWriteConflict) || se.HasErrorLabel("TransientTransactionError")) {
		return apperr.Conflict(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// inSession runs fn on the session already carried by ctx, or inside a new
// transaction when ctx has none. Transient failures are reported, not retried.
func inSession(ctx context.Context, db *mongo.Database, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.WithoutCancel(ctx))
	if err := session.StartTransaction(); err != nil {
		return err
	}
	sc := mongo.NewSessionContext(ctx, session)
	if err := fn(sc); err != nil {
		_ = session.AbortTransaction(context.WithoutCancel(ctx))
		return err
	}
	return mapError("commit", session.CommitTransaction(sc))
}
