//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-dashboard/internal/config"
	"github.com/couchcryptid/crisis-dashboard/internal/domain"
)

const (
	testChangesTopic = "test-changes"
	testHelpTopic    = "test-help"
)

func TestChangeFeed_FetchAndCommit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testChangesTopic)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testChangesTopic}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Value: []byte(`{"type":"INSERT","table":"disaster_posts","record":{"id":1,"disaster_type":"Flood"}}`)},
		kafkago.Message{Value: []byte(`garbage`)},
		kafkago.Message{Value: []byte(`{"eventType":"UPDATE","table":"help_requests","new":{"id":"r1"}}`)},
	))

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaChangesTopic: testChangesTopic,
		KafkaGroupID:      uniqueGroup("test-feed"),
	}
	feed := kafka.NewChangeFeed(cfg, discardLogger())
	t.Cleanup(func() { _ = feed.Close() })

	var events []domain.ChangeEvent
	for len(events) < 2 {
		batch, err := feed.FetchChanges(ctx, 10)
		require.NoError(t, err)
		events = append(events, batch...)
	}

	require.Len(t, events, 2, "malformed message is skipped")
	assert.Equal(t, "INSERT", events[0].Op)
	assert.Equal(t, "disaster_posts", events[0].Table)
	assert.Equal(t, "UPDATE", events[1].Op)
	assert.Equal(t, "help_requests", events[1].Table)
	for _, ev := range events {
		require.NotNil(t, ev.Commit)
		require.NoError(t, ev.Commit(ctx))
	}
}

func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testHelpTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaHelpTopic: testHelpTopic}
	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	req := domain.HelpRequest{
		ID:            "req-42",
		Name:          "Dana",
		Location:      "Houston, TX",
		ContactInfo:   "555-0100",
		EmergencyType: domain.EmergencyFlood,
		Description:   "water rising",
		Status:        domain.StatusPending,
		Confidence:    domain.ConfidenceHigh,
		CreatedAt:     time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishHelpRequest(ctx, req))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testHelpTopic,
		GroupID:     uniqueGroup("test-consumer"),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	msg, err := consumer.ReadMessage(ctx)
	require.NoError(t, err)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "req-42", string(msg.Key))
	assert.Equal(t, "flood", headers["emergency_type"])
	assert.Equal(t, "High", headers["confidence"])
	assert.Equal(t, "2024-03-02T09:30:00Z", headers["created_at"])

	var got domain.HelpRequest
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.ContactInfo, got.ContactInfo)
	assert.True(t, req.CreatedAt.Equal(got.CreatedAt))
}
