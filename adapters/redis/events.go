package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/chanx"
)

var ErrPublisherClosed = errors.New("event publisher is closed")

// StoreEventType stream 上的事件種類
type StoreEventType string

const (
	StoreEventOrderCreated StoreEventType = "order_created"
	StoreEventBidPlaced    StoreEventType = "bid_placed"
)

// StoreEvent 發布到 redis stream 的商店事件
// 下游的通知派送器會消費這個 stream
type StoreEvent struct {
	Type        StoreEventType `msgpack:"type"`
	ArtworkID   string         `msgpack:"artwork_id"`
	ResourceID  string         `msgpack:"resource_id"`
	Contact     string         `msgpack:"contact,omitempty"`
	AmountCents int64          `msgpack:"amount_cents,omitempty"`
	OccurredAt  time.Time      `msgpack:"occurred_at"`
}

type eventPublisherOptions struct {
	logger     *slog.Logger
	bufferSize int
}

type EventPublisherOption func(*eventPublisherOptions)

// WithEventPublisherLogger 設置日誌記錄器
func WithEventPublisherLogger(logger *slog.Logger) EventPublisherOption {
	return func(o *eventPublisherOptions) {
		o.logger = logger
	}
}

// WithEventPublisherBufferSize 設置緩衝大小
func WithEventPublisherBufferSize(size int) EventPublisherOption {
	return func(o *eventPublisherOptions) {
		o.bufferSize = size
	}
}

// EventPublisher 把商店事件送進 redis stream
// 上游使用無上限的緩衝，發布端永遠不會被下游塞住
type EventPublisher struct {
	client     *redis.Client
	stream     string
	upstream   *chanx.UnboundedChan[map[string]any]
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	options    eventPublisherOptions
}

func NewEventPublisher(client *redis.Client, stream string, opts ...EventPublisherOption) (*EventPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream cannot be empty")
	}

	// 默認選項
	options := eventPublisherOptions{
		logger:     slog.Default(),
		bufferSize: 100,
	}

	// 應用自定義選項
	for _, opt := range opts {
		opt(&options)
	}

	publisher := &EventPublisher{
		client:  client,
		stream:  stream,
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "EventPublisher"), slog.String("stream", stream)),
		options: options,
	}

	return publisher, nil
}

func (p *EventPublisher) Start() {
	if !p.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.upstream = chanx.NewUnboundedChan[map[string]any](ctx, p.options.bufferSize)
	p.cancelFunc = cancel
	p.closed = false
	p.logger.Info("starting event publisher")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.logger.Info("event publisher goroutine stopped")

		for {
			select {
			case <-ctx.Done():
				return
			case message := <-p.upstream.Out:
				id, err := p.client.XAdd(ctx, &redis.XAddArgs{
					Stream: p.stream,
					Values: message,
				}).Result()

				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					p.logger.Error("publish event error", slog.Any("error", err))
					continue
				}

				p.logger.Debug("event published", slog.String("messageId", id))
			}
		}
	}()
}

func (p *EventPublisher) Publish(event StoreEvent) error {
	if p.closed {
		return ErrPublisherClosed
	}

	message, err := EncodeStoreEvent(event)
	if err != nil {
		return fmt.Errorf("encode event error: %w", err)
	}

	p.upstream.In <- message
	return nil
}

func (p *EventPublisher) Close() {
	if p.closed {
		return
	}
	p.logger.Info("closing event publisher")
	p.closed = true
	p.cancelFunc()
	p.wg.Wait()
	p.logger.Info("event publisher closed")
}
