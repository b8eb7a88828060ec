package redis

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeStoreEvent 將事件序列化成 stream 欄位
// msgpack 之後再做 base64，讓欄位值保持可列印
func EncodeStoreEvent(event StoreEvent) (map[string]any, error) {
	bytes, err := msgpack.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(bytes)

	return map[string]any{
		"data": encoded,
	}, nil
}

// DecodeStoreEvent 將 stream 欄位還原成事件
func DecodeStoreEvent(message map[string]any) (StoreEvent, error) {
	var event StoreEvent

	if len(message) == 0 {
		return event, nil
	}

	dataStr, ok := message["data"].(string)
	if !ok {
		return event, fmt.Errorf("data field not found or invalid type")
	}

	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return event, fmt.Errorf("base64 decode error: %w", err)
	}

	if err := msgpack.Unmarshal(bytes, &event); err != nil {
		return event, fmt.Errorf("msgpack unmarshal error: %w", err)
	}

	return event, nil
}
