package repository

import (
	"context"
	"errors"
	"time"

	"collab_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafkaMessageReader subset of *kafka.Reader
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaInsertFeed consume message inserts from a CDC topic
type KafkaInsertFeed struct {
	*feedHub
	reader kafkaMessageReader
}

// NewKafkaInsertFeed create a kafka CDC feed
func NewKafkaInsertFeed(reader *kafka.Reader) *KafkaInsertFeed {
	return &KafkaInsertFeed{feedHub: newFeedHub(), reader: reader}
}

// Run read until ctx is done, the reader is closed on return
func (f *KafkaInsertFeed) Run(ctx context.Context) error {
	defer f.reader.Close()

	for {
		m, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Log.Warn("cdc read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		// tombstone
		if len(m.Value) == 0 {
			continue
		}
		note, ok, err := decodeInsert(m.Value)
		if err != nil {
			logger.Log.Error("cdc event decode failed", zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		if ok {
			f.dispatch(note)
		}
	}
}
