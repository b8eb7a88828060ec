package redis

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	log.SetOutput(io.Discard)
}

func setupTest(t *testing.T) (*redis.Client, redismock.ClientMock, func()) {
	db, mock := redismock.NewClientMock()
	return db, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func sampleEvent() StoreEvent {
	return StoreEvent{
		Type:        StoreEventBidPlaced,
		ArtworkID:   "0195f7e2-1111-7000-8000-000000000001",
		ResourceID:  "0195f7e2-2222-7000-8000-000000000002",
		Contact:     "+201001234567",
		AmountCents: 150000,
		OccurredAt:  time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}
