// README: Pricing service serves the pricing snapshot and applies admin edits.
package pricing

import (
	"context"
	"log"
)

type Repository interface {
	GetConfig(ctx context.Context) (Config, error)
	ListCategoryPricing(ctx context.Context) ([]CategoryPricing, error)
	UpdateConfig(ctx context.Context, cfg Config) error
	UpsertCategoryPricing(ctx context.Context, cp CategoryPricing) error
}

type SnapshotCache interface {
	Get(ctx context.Context) (Snapshot, bool, error)
	Set(ctx context.Context, snap Snapshot) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	store Repository
	cache SnapshotCache
}

// NewService wires the store with an optional cache; a nil cache reads
// Postgres every time.
func NewService(store Repository, cache SnapshotCache) *Service {
	return &Service{store: store, cache: cache}
}

// Snapshot returns the current pricing tables. Cache failures fall back to
// the store and are only logged.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Printf("pricing: cache read failed, using store: %v", err)
		} else if ok {
			return snap, nil
		}
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	cats, err := s.store.ListCategoryPricing(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Config: cfg, Categories: cats}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			log.Printf("pricing: cache write failed: %v", err)
		}
	}
	return snap, nil
}

func (s *Service) UpdateConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateConfig(ctx, cfg); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) UpdateCategory(ctx context.Context, cp CategoryPricing) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertCategoryPricing(ctx, cp); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("pricing: cache invalidate failed: %v", err)
	}
}
