// Package analytics emits product analytics events for row operations.
package analytics

import (
	"context"
	"fmt"
	"time"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// Event names. Test connections get the TestPrefix.
const (
	EventRowAdded    = "table_row_added"
	EventRowUpdated  = "table_row_updated"
	EventRowDeleted  = "table_row_deleted"
	EventRowReceived = "table_row_received"

	TestPrefix = "test_"
)

// EventName returns the analytics event for an operation type.
func EventName(op models.LogOperationType, isTestConnection bool) string {
	var name string
	switch op {
	case models.LogOperationAddRow:
		name = EventRowAdded
	case models.LogOperationUpdateRow:
		name = EventRowUpdated
	case models.LogOperationDeleteRow:
		name = EventRowDeleted
	default:
		name = EventRowReceived
	}
	if isTestConnection {
		return TestPrefix + name
	}
	return name
}

// Event is one analytics record.
type Event struct {
	Name         string
	UserID       string
	ConnectionID string
	TableName    string
	Status       models.OperationResultStatus
	At           time.Time
}

// Tracker delivers events. Implementations must not block the caller for long.
type Tracker interface {
	Track(ctx context.Context, e Event) error
}

// NoopTracker drops every event.
type NoopTracker struct{}

func (NoopTracker) Track(ctx context.Context, e Event) error { return nil }

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisTracker appends events to a Redis stream.
type RedisTracker struct {
	client streamAdder
	stream string
	maxLen int64
}

// NewRedisTracker writes to stream through client. The stream is capped approximately at 100k entries.
func NewRedisTracker(client *redis.Client, stream string) *RedisTracker {
	return &RedisTracker{client: client, stream: stream, maxLen: 100000}
}

func (t *RedisTracker) Track(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.stream,
		MaxLen: t.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":        e.Name,
			"userId":       e.UserID,
			"connectionId": e.ConnectionID,
			"tableName":    e.TableName,
			"status":       string(e.Status),
			"at":           e.At.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("analytics: xadd %s: %w", t.stream, err)
	}
	return nil
}

// NewTracker builds the tracker configured by config.Cfg. Without REDIS_ADDR events are dropped.
func NewTracker() Tracker {
	if config.Cfg.RedisAddr == "" {
		logger.Infof("Analytics disabled: REDIS_ADDR not set")
		return NoopTracker{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Cfg.RedisAddr,
		DialTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	logger.Infof("Analytics events go to redis stream %s at %s", config.Cfg.AnalyticsStream, config.Cfg.RedisAddr)
	return NewRedisTracker(client, config.Cfg.AnalyticsStream)
}
