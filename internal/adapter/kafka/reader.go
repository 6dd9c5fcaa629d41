package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crisis-dashboard/internal/config"
	"github.com/couchcryptid/crisis-dashboard/internal/domain"
)

// batchWindow bounds how long FetchChanges waits for more events once the
// first one has arrived.
const batchWindow = 500 * time.Millisecond

// ChangeFeed consumes row change notifications relayed from the database's
// realtime channel. It implements pipeline.ChangeFeed.
type ChangeFeed struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewChangeFeed creates a consumer-group reader on the changes topic.
func NewChangeFeed(cfg *config.Config, logger *slog.Logger) *ChangeFeed {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaChangesTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &ChangeFeed{reader: r, logger: logger}
}

// FetchChanges blocks until a message arrives, then collects up to max events
// within a short window. Offsets are not committed; each event carries its
// own Commit. Malformed messages are logged, committed and skipped, so the
// result may be empty.
func (f *ChangeFeed) FetchChanges(ctx context.Context, max int) ([]domain.ChangeEvent, error) {
	if max <= 0 {
		max = 1
	}

	msg, err := f.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	events := f.appendEvent(ctx, nil, msg)

	windowCtx, cancel := context.WithTimeout(ctx, batchWindow)
	defer cancel()
	for len(events) < max {
		msg, err := f.reader.FetchMessage(windowCtx)
		if err != nil {
			break
		}
		events = f.appendEvent(ctx, events, msg)
	}
	return events, nil
}

func (f *ChangeFeed) appendEvent(ctx context.Context, events []domain.ChangeEvent, msg kafkago.Message) []domain.ChangeEvent {
	ev, err := mapMessageToChangeEvent(msg)
	if err != nil {
		f.logger.Warn("skipping malformed change message", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		if cerr := f.reader.CommitMessages(ctx, msg); cerr != nil {
			f.logger.Warn("commit offset failed", "error", cerr,
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		}
		return events
	}
	ev.Commit = func(ctx context.Context) error {
		return f.reader.CommitMessages(ctx, msg)
	}
	return append(events, ev)
}

func (f *ChangeFeed) Close() error {
	return f.reader.Close()
}

// realtimePayload accepts both the server-side webhook shape
// (type/record/old_record) and the client library shape (eventType/new/old).
type realtimePayload struct {
	Type      string            `json:"type"`
	EventType string            `json:"eventType"`
	Table     string            `json:"table"`
	Record    *domain.RawRecord `json:"record"`
	New       *domain.RawRecord `json:"new"`
	OldRecord *domain.RawRecord `json:"old_record"`
	Old       *domain.RawRecord `json:"old"`
}

// mapMessageToChangeEvent decodes a realtime payload into a ChangeEvent.
func mapMessageToChangeEvent(msg kafkago.Message) (domain.ChangeEvent, error) {
	var p realtimePayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("decode change payload: %w", err)
	}

	op := strings.ToUpper(firstNonEmpty(p.Type, p.EventType))
	switch op {
	case "INSERT", "UPDATE", "DELETE":
	default:
		return domain.ChangeEvent{}, fmt.Errorf("unknown change type %q", op)
	}
	if p.Table == "" {
		return domain.ChangeEvent{}, errors.New("change payload has no table")
	}

	ev := domain.ChangeEvent{
		Table:     p.Table,
		Op:        op,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	for _, rec := range []*domain.RawRecord{p.Record, p.New, p.OldRecord, p.Old} {
		if rec != nil {
			ev.Record = *rec
			break
		}
	}
	return ev, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
