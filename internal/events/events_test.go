package events_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/events"
)

func TestEncode(t *testing.T) {
	e := events.New(events.OrderCreated, "o-1", map[string]any{"total": "12.5"})
	msg, err := events.Encode(e)
	require.NoError(t, err)

	assert.Equal(t, "order.created.o-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "order.created", string(msg.Headers[0].Value))

	var back map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, "order.created", back["type"])
	assert.Equal(t, "o-1", back["id"])
	assert.Equal(t, map[string]any{"total": "12.5"}, back["payload"])
}

func TestNopPublisher(t *testing.T) {
	var p events.Publisher = events.Nop{}
	assert.NoError(t, p.Publish(context.Background(), events.New(events.ProductDeleted, "x", nil)))
	assert.NoError(t, p.Close())
}
