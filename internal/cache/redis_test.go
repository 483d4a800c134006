package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	mr := miniredis.RunT(t)
	rdb, err := Connect(mr.Addr(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return NewQueue(rdb, "")
}

func TestQueuePublishThenPop(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	assert.Equal(t, DefaultQueueName, q.Name())

	rec := ActionRecord{
		SessionID:     "table1",
		ActionIndex:   3,
		ActorID:       "conn-a",
		ActionType:    "place_bet",
		ActionPayload: map[string]interface{}{"amount": 100},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, q.PublishAction(ctx, rec))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "table1", got.SessionID)
	assert.Equal(t, 3, got.ActionIndex)
	assert.Equal(t, "place_bet", got.ActionType)
	assert.EqualValues(t, 100, got.ActionPayload["amount"])
}

func TestQueuePopPreservesOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.PublishAction(ctx, ActionRecord{SessionID: "s", ActionIndex: i}))
	}
	for i := 1; i <= 3; i++ {
		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, i, got.ActionIndex)
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	_, err := Connect("127.0.0.1:1", 0)
	assert.Error(t, err)
}
