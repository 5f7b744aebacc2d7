package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eduvane/api/internal/config"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/types"
)

// Router sends guests to the local store and everyone else to the remote
// one. Without a remote store all users stay local.
type Router struct {
	guest  Store
	remote Store
}

var _ Store = (*Router)(nil)

func NewRouter(guest, remote Store) *Router {
	return &Router{guest: guest, remote: remote}
}

// Open builds the stores cfg describes.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Router, error) {
	log = logging.OrNop(log).Named("store")
	guest, err := OpenSQLite(ctx, cfg.GuestDBPath)
	if err != nil {
		return nil, fmt.Errorf("guest store: %w", err)
	}
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, all users stored locally", zap.String("path", cfg.GuestDBPath))
		return NewRouter(guest, nil), nil
	}
	remote, err := OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = guest.Close()
		return nil, fmt.Errorf("remote store: %w", err)
	}
	log.Info("stores ready", zap.String("guest", cfg.GuestDBPath), zap.String("remote", "postgres"))
	return NewRouter(guest, remote), nil
}

// For returns the store that holds userID's records.
func (r *Router) For(userID string) Store {
	if IsGuest(userID) || r.remote == nil {
		return r.guest
	}
	return r.remote
}

func (r *Router) SaveSubmission(ctx context.Context, s types.Submission) error {
	return r.For(s.UserID).SaveSubmission(ctx, s)
}

func (r *Router) ListSubmissions(ctx context.Context, userID string, limit int) ([]types.Submission, error) {
	return r.For(userID).ListSubmissions(ctx, userID, limit)
}

func (r *Router) SavePracticeSet(ctx context.Context, p types.PracticeSet) error {
	return r.For(p.UserID).SavePracticeSet(ctx, p)
}

func (r *Router) ListPracticeSets(ctx context.Context, userID string, limit int) ([]types.PracticeSet, error) {
	return r.For(userID).ListPracticeSets(ctx, userID, limit)
}

func (r *Router) GetProfile(ctx context.Context, id string) (types.Profile, error) {
	return r.For(id).GetProfile(ctx, id)
}

func (r *Router) UpsertProfile(ctx context.Context, p types.Profile) error {
	return r.For(p.ID).UpsertProfile(ctx, p)
}

func (r *Router) Close() error {
	var errs []error
	if r.guest != nil {
		errs = append(errs, r.guest.Close())
	}
	if r.remote != nil {
		errs = append(errs, r.remote.Close())
	}
	return errors.Join(errs...)
}
