package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// ViewStateStore persists published view states by session
type ViewStateStore interface {
	SaveViewState(ctx context.Context, sessionID string, doc []byte, ttl time.Duration) error
	GetViewState(ctx context.Context, sessionID string) ([]byte, error)
	DeleteViewState(ctx context.Context, sessionID string) error
}

// SnapshotPublisher writes every published view state to a store so other
// replicas and UI layers can read the latest one.
type SnapshotPublisher struct {
	store   ViewStateStore
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewSnapshotPublisher creates a new snapshot publisher
func NewSnapshotPublisher(store ViewStateStore, ttl time.Duration) *SnapshotPublisher {
	return &SnapshotPublisher{
		store:   store,
		ttl:     ttl,
		timeout: 2 * time.Second,
		logger:  util.GetLogger(),
	}
}

// Publish stores state. Failures are logged and never reach the session.
func (p *SnapshotPublisher) Publish(ctx context.Context, state ProductViewState) {
	doc, err := json.Marshal(state)
	if err != nil {
		p.logger.Error("Failed to encode view state",
			zap.String("session_id", state.SessionID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.store.SaveViewState(ctx, state.SessionID, doc, p.ttl); err != nil {
		p.logger.Warn("Failed to save view state",
			zap.String("session_id", state.SessionID),
			zap.Error(err))
	}
}

// Latest returns the last stored view state document of a session
func (p *SnapshotPublisher) Latest(ctx context.Context, sessionID string) ([]byte, error) {
	doc, err := p.store.GetViewState(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load view state %s: %w", sessionID, err)
	}
	return doc, nil
}

// Forget removes the stored view state of a closed session
func (p *SnapshotPublisher) Forget(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.store.DeleteViewState(ctx, sessionID); err != nil {
		p.logger.Warn("Failed to delete view state",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
