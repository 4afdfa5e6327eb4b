package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultStream = "auth:audit"

// AuditSink appends audit events to a Redis stream, one entry per event.
// Consumers read the stream with XREAD or a consumer group.
type AuditSink struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
}

// NewAuditSink writes to stream, trimming it to roughly maxLen entries when maxLen > 0.
func NewAuditSink(rdb redis.UniversalClient, stream string, maxLen int64) *AuditSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &AuditSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *AuditSink) Append(ctx context.Context, event domain.AuditEvent) error {
	fields := event.Context
	if fields == nil {
		fields = map[string]string{}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode audit context: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":          event.ID,
			"kind":        string(event.Kind),
			"actor_id":    event.ActorID,
			"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
			"context":     string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
	}

	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: xadd %s: %v", autherror.ErrStoreUnavailable, s.stream, err)
	}
	return nil
}

func (s *AuditSink) Stream() string {
	return s.stream
}
