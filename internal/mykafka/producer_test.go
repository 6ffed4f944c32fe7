package mykafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	require.Error(t, err)
}

func TestPublishEvent_MarshalError(t *testing.T) {
	p, err := NewProducer([]string{"localhost:9092"})
	require.NoError(t, err)
	defer p.Close()

	err = p.PublishEvent(context.Background(), "cart_events", "b1", map[string]any{"bad": make(chan int)})
	require.ErrorContains(t, err, "json.Marshal failed")
}

func TestDiscard(t *testing.T) {
	require.NoError(t, Discard{}.PublishEvent(context.Background(), "cart_events", "b1", nil))
}
