package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct{ Text string }

func (echoQuery) Key() string { return "test.echo" }

type otherQuery struct{}

func (otherQuery) Key() string { return "test.other" }

func TestInMemoryBus(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[echoQuery, string](bus, HandlerFunc[echoQuery, string](func(_ context.Context, q echoQuery) (string, error) {
		return q.Text, nil
	}))

	got, err := Ask[echoQuery, string](t.Context(), bus, echoQuery{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
	assert.Equal(t, []string{"test.echo"}, bus.Keys())

	_, err = Ask[otherQuery, string](t.Context(), bus, otherQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Ask[echoQuery, int](t.Context(), bus, echoQuery{})
	assert.ErrorIs(t, err, ErrResultType)
	assert.ErrorContains(t, err, "test.echo returned string, want int")

	_, err = Ask[echoQuery, string](t.Context(), nil, echoQuery{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[echoQuery, string](func(context.Context, echoQuery) (string, error) { return "", nil })
	RegisterHandler[echoQuery, string](bus, h)
	assert.Panics(t, func() { RegisterHandler[echoQuery, string](bus, h) })
}
