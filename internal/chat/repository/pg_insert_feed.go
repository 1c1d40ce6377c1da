package repository

import (
	"context"
	"fmt"
	"time"

	"collab_chat_service/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// PgInsertFeed LISTEN on the message insert trigger channel
type PgInsertFeed struct {
	*feedHub
	pool    *pgxpool.Pool
	channel string
	backoff time.Duration
}

// NewPgInsertFeed create a postgres LISTEN/NOTIFY feed
func NewPgInsertFeed(pool *pgxpool.Pool) *PgInsertFeed {
	return &PgInsertFeed{
		feedHub: newFeedHub(),
		pool:    pool,
		channel: InsertChannel,
		backoff: 2 * time.Second,
	}
}

// Run listen until ctx is done, reconnecting after connection loss
func (f *PgInsertFeed) Run(ctx context.Context) error {
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logger.Log.Warn("insert feed disconnected, reconnecting", zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.backoff):
		}
	}
}

func (f *PgInsertFeed) listen(ctx context.Context) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer retireListener(conn)

	if _, err := conn.Exec(ctx, "LISTEN "+f.channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Log.Info("insert feed listening", zap.String("channel", f.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		note, ok, err := decodeInsert([]byte(n.Payload))
		if err != nil {
			logger.Log.Error("insert notification decode failed", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		if ok {
			f.dispatch(note)
		}
	}
}

// retireListener close the LISTEN connection so the pool destroys it instead of
// handing a still-subscribed session to another caller
func retireListener(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Conn().Close(ctx); err != nil {
		logger.Log.Debug("insert feed conn close failed", zap.Error(err))
	}
	conn.Release()
}
