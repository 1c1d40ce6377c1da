package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"collab_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NodeGroupID per-process consumer group, every node must see every partition
func NodeGroupID(base string) string {
	if base == "" {
		base = "chat_service"
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return fmt.Sprintf("%s-%s-%s", base, host, uuid.NewString()[:8])
}

// readerConfig 每個 node 自己的 group, 從最新 offset 開始, 不重播歷史
func readerConfig(k KafkaConnection) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     k.Brokers,
		Topic:       k.Topic,
		GroupID:     NodeGroupID(k.GroupID),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	}
}

// NewKafkaReaderWithRetry 建立 Kafka Reader, 先確認 broker 可連線
func NewKafkaReaderWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Reader, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	var err error
	attempts := k.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err == nil {
			_, err = conn.ReadPartitions(k.Topic)
			conn.Close()
		}
		if err == nil {
			rc := readerConfig(k)
			logger.Log.Info("kafka reader ready",
				zap.String("topic", k.Topic),
				zap.String("group_id", rc.GroupID),
				zap.Int("attempt", attempt),
			)
			return kafka.NewReader(rc), nil
		}

		logger.Log.Warn("kafka reader not ready, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max", attempts),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval)
	}

	return nil, fmt.Errorf("kafka reader unavailable after %d attempts: %w", attempts, err)
}
