package redisstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSinkTest(t *testing.T, maxLen int64) (*AuditSink, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewAuditSink(rdb, "", maxLen), rdb, mr
}

func TestAuditSink_Append(t *testing.T) {
	sink, rdb, _ := newSinkTest(t, 0)
	ctx := context.Background()
	occurredAt := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	require.NoError(t, sink.Append(ctx, domain.AuditEvent{
		ID:         "evt-1",
		Kind:       domain.EventLockout,
		ActorID:    "acc-1",
		OccurredAt: occurredAt,
		Context:    map[string]string{"ip": "10.0.0.1"},
	}))
	require.NoError(t, sink.Append(ctx, domain.AuditEvent{
		ID:         "evt-2",
		Kind:       domain.EventLoginFailure,
		OccurredAt: occurredAt,
	}))

	assert.Equal(t, DefaultStream, sink.Stream())
	entries, err := rdb.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0].Values
	assert.Equal(t, "evt-1", first["id"])
	assert.Equal(t, "LOCKOUT", first["kind"])
	assert.Equal(t, "acc-1", first["actor_id"])
	assert.Equal(t, "2026-05-04T09:30:00Z", first["occurred_at"])

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(first["context"].(string)), &fields))
	assert.Equal(t, "10.0.0.1", fields["ip"])

	second := entries[1].Values
	assert.Equal(t, "LOGIN_FAILURE", second["kind"])
	assert.Equal(t, "", second["actor_id"])
	assert.Equal(t, "{}", second["context"])
}

func TestAuditSink_TrimsToMaxLen(t *testing.T) {
	sink, rdb, _ := newSinkTest(t, 2)
	ctx := context.Background()

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		require.NoError(t, sink.Append(ctx, domain.AuditEvent{ID: id, Kind: domain.EventRegister, OccurredAt: time.Now()}))
	}

	n, err := rdb.XLen(ctx, DefaultStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAuditSink_ServerDown(t *testing.T) {
	sink, _, mr := newSinkTest(t, 0)
	mr.Close()

	err := sink.Append(context.Background(), domain.AuditEvent{ID: "evt-1", Kind: domain.EventRegister, OccurredAt: time.Now()})

	assert.ErrorIs(t, err, autherror.ErrStoreUnavailable)
}
