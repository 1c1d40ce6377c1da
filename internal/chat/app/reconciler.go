package app

import (
	"context"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// UnreadCounter source of unread totals
type UnreadCounter interface {
	CountUnread(ctx context.Context, userID string) (domain.UnreadSummary, error)
}

// UnreadReconciler recompute unread counts on a timer and on push events
//
// Both triggers go through Reconcile.
type UnreadReconciler struct {
	counter  UnreadCounter
	userID   string
	interval time.Duration
	apply    func(domain.UnreadSummary)
	trigger  chan struct{}
}

// NewUnreadReconciler create a reconciler, apply receives every fresh summary
func NewUnreadReconciler(counter UnreadCounter, userID string, interval time.Duration, apply func(domain.UnreadSummary)) *UnreadReconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &UnreadReconciler{
		counter:  counter,
		userID:   userID,
		interval: interval,
		apply:    apply,
		trigger:  make(chan struct{}, 1),
	}
}

// Reconcile recompute and apply the summary once
func (r *UnreadReconciler) Reconcile(ctx context.Context) (domain.UnreadSummary, error) {
	summary, err := r.counter.CountUnread(ctx, r.userID)
	if err != nil {
		return summary, err
	}
	if r.apply != nil {
		r.apply(summary)
	}
	return summary, nil
}

// Trigger request a reconcile, coalesced with pending requests
func (r *UnreadReconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run reconcile on every tick and trigger until ctx is done
func (r *UnreadReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.trigger:
		}
		if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Warn("unread reconcile failed", zap.String("user_id", r.userID), zap.Error(err))
		}
	}
}
