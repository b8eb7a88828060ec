package redis

import (
	"lawha/engine"
)

// IEventPublisher 定義了 EventPublisher 的操作介面
type IEventPublisher interface {
	Start()
	Publish(event StoreEvent) error
	Close()
}

var (
	_ IEventPublisher = (*EventPublisher)(nil)
	_ engine.Locker   = (*BidLock)(nil)
)
