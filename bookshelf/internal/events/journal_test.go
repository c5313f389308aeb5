package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookshelf/bookshelf/internal/events"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/model"
	cb "github.com/Astemirdum/bookshelf/pkg/circuit_breaker"
)

func TestJournal_Publish(t *testing.T) {
	t.Parallel()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	event := model.BookEvent{
		ID:         "e1",
		Type:       model.EventLent,
		BookID:     42,
		Book:       &model.Book{ID: 42, Title: "Dune", Status: model.StatusLent, BorrowedBy: "Anna"},
		OccurredAt: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		require.Contains(t, string(val), `"type":"lent"`)
		require.Contains(t, string(val), `"bookId":42`)
		return nil
	})
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.BookEvent
		require.NoError(t, json.Unmarshal(val, &got))
		require.Equal(t, event.Type, got.Type)
		require.Equal(t, "Anna", got.Book.BorrowedBy)
		return nil
	})

	j := events.NewJournal(producer, "books-test", zap.NewExample())
	require.NoError(t, j.Publish(context.Background(), event))
	require.NoError(t, j.Publish(context.Background(), event))
	require.NoError(t, j.Close())
}

func TestJournal_PublishBreaker(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	for i := 0; i < 5; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	j := events.NewJournal(producer, "books-test", zap.NewExample())
	event := model.BookEvent{ID: "e1", Type: model.EventDeleted, BookID: 1}
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, j.Publish(context.Background(), event), sarama.ErrOutOfBrokers)
	}
	require.ErrorIs(t, j.Publish(context.Background(), event), cb.ErrOpenCB)
	require.NoError(t, j.Close())
}

func TestJournal_PublishCancelled(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())

	j := events.NewJournal(producer, "books-test", zap.NewExample())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := j.Publish(ctx, model.BookEvent{ID: "e1", Type: model.EventCreated, BookID: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, j.Close())
}

func TestDiscard(t *testing.T) {
	require.NoError(t, events.Discard{}.Publish(context.Background(), model.BookEvent{}))
}
