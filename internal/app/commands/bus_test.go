package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmCmd struct{ HoldID string }

func (confirmCmd) Key() string { return "test.confirm" }

type exportCmd struct{}

func (exportCmd) Key() string    { return "test.export" }
func (exportCmd) ReadOnly() bool { return true }

type holdHandler struct{}

func (holdHandler) Handle(_ context.Context, cmd confirmCmd) (string, error) {
	if cmd.HoldID == "" {
		return "", errors.New("hold id required")
	}
	return "confirmed " + cmd.HoldID, nil
}

func TestDispatchRoutesByKey(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryBus()
	RegisterHandler[confirmCmd, string](bus, "test.confirm", holdHandler{})

	got, err := Dispatch[confirmCmd, string](context.Background(), bus, confirmCmd{HoldID: "h1"})
	require.NoError(t, err)
	assert.Equal(t, "confirmed h1", got)

	_, err = Dispatch[confirmCmd, string](context.Background(), bus, confirmCmd{})
	require.EqualError(t, err, "hold id required")

	_, err = Dispatch[exportCmd, string](context.Background(), bus, exportCmd{})
	require.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[confirmCmd, int](context.Background(), bus, confirmCmd{HoldID: "h1"})
	require.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[confirmCmd, string](context.Background(), nil, confirmCmd{})
	require.Error(t, err)

	assert.Equal(t, []string{"test.confirm"}, bus.Keys())
}

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryBus()
	RegisterHandler[confirmCmd, string](bus, "test.confirm", holdHandler{})
	assert.Panics(t, func() {
		RegisterHandler[confirmCmd, string](bus, "test.confirm", holdHandler{})
	})
	assert.Panics(t, func() {
		RegisterHandler[confirmCmd, string](bus, "", holdHandler{})
	})
}

func TestRegisteredKeyMustMatchCommandType(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryBus()
	RegisterHandler[confirmCmd, string](bus, "test.export", holdHandler{})
	_, err := bus.Dispatch(context.Background(), exportCmd{})
	require.ErrorIs(t, err, ErrInvalidCommand)
}

func TestIsReadOnly(t *testing.T) {
	t.Parallel()

	assert.True(t, IsReadOnly(exportCmd{}))
	assert.False(t, IsReadOnly(confirmCmd{}))
}
