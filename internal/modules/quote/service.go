// README: Quote service; calculates quotes, saves them and moves them through their lifecycle.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"carhire/internal/modules/fleet"
	"carhire/internal/modules/pricing"
	"carhire/internal/types"
)

var (
	ErrInvalidInput       = errors.New("invalid quote input")
	ErrPricingComputation = errors.New("quote pricing failed")
	ErrPersistence        = errors.New("quote could not be saved")
	ErrNotFound           = errors.New("quote not found")
	ErrInvalidState       = errors.New("invalid quote status transition")
	ErrConflict           = errors.New("quote status conflict")
)

type PricingSource interface {
	Snapshot(ctx context.Context) (pricing.Snapshot, error)
}

type AvailabilityResolver interface {
	Resolve(ctx context.Context, categoryID types.ID, start, end time.Time) (fleet.Availability, error)
}

type Repository interface {
	Create(ctx context.Context, q *Quote) error
	Get(ctx context.Context, id types.ID) (*Quote, error)
	List(ctx context.Context, f ListFilter) ([]Quote, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
}

type Options struct {
	// Concurrency bounds how many categories resolve availability at once.
	Concurrency int
	// AvailabilityTimeout bounds one category's lookup. A lookup that runs
	// past it marks only that category unavailable.
	AvailabilityTimeout time.Duration
	Currency            string
}

const defaultAvailabilityTimeout = 3 * time.Second

type Service struct {
	store        Repository
	pricing      PricingSource
	availability AvailabilityResolver
	opts         Options
	now          func() time.Time
}

func NewService(store Repository, pricing PricingSource, availability AvailabilityResolver, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Currency == "" {
		opts.Currency = types.DefaultCurrency
	}
	if opts.AvailabilityTimeout <= 0 {
		opts.AvailabilityTimeout = defaultAvailabilityTimeout
	}
	return &Service{store: store, pricing: pricing, availability: availability, opts: opts, now: time.Now}
}

type SaveCommand struct {
	Inputs             Inputs
	Results            []CategoryResult
	SelectedCategoryID *types.ID
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	CreatedBy          string
}

type TransitionCommand struct {
	QuoteID types.ID
	To      Status
}

type ListFilter struct {
	Status Status
	Limit  int
}

// Calculate prices every requested category and attaches live availability.
// Pricing failures abort the call; availability failures only mark the
// affected category unavailable.
func (s *Service) Calculate(ctx context.Context, in Inputs) ([]CategoryResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	snap, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load pricing: %w", ErrPricingComputation, err)
	}
	snap, err = filterCategories(snap, in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	results, err := Compose(snap, in, s.opts.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAvailability(ctx, results, in.Start, in.End); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) resolveAvailability(ctx context.Context, results []CategoryResult, start, end time.Time) error {
	deadline := time.Now().Add(s.availabilityBudget(ctx))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			rctx, cancel := context.WithDeadline(gctx, deadline)
			defer cancel()
			av, err := s.availability.Resolve(rctx, r.CategoryID, start, end)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Printf("quote: availability for category %s failed, showing unavailable: %v", r.CategoryID, err)
				r.markUnavailable()
				return nil
			}
			r.attachAvailability(av)
			return nil
		})
	}
	return g.Wait()
}

// availabilityBudget keeps per-category lookups inside the caller's deadline
// so a stalled category is marked unavailable before the request expires.
func (s *Service) availabilityBudget(ctx context.Context) time.Duration {
	budget := s.opts.AvailabilityTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl) * 3 / 4; left < budget {
			budget = left
		}
	}
	return budget
}

func filterCategories(snap pricing.Snapshot, ids []types.ID) (pricing.Snapshot, error) {
	if len(ids) == 0 {
		return snap, nil
	}
	out := snap
	out.Categories = make([]pricing.CategoryPricing, 0, len(ids))
	seen := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		cp, ok := snap.Category(id)
		if !ok {
			return pricing.Snapshot{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, id)
		}
		out.Categories = append(out.Categories, cp)
	}
	return out, nil
}

// Save persists calculated results verbatim as a draft quote. On failure the
// caller still holds the results and may retry.
func (s *Service) Save(ctx context.Context, cmd SaveCommand) (*Quote, error) {
	if err := cmd.Inputs.Validate(); err != nil {
		return nil, err
	}
	if len(cmd.Results) == 0 {
		return nil, fmt.Errorf("%w: no results to save", ErrInvalidInput)
	}
	seen := make(map[types.ID]bool, len(cmd.Results))
	for _, r := range cmd.Results {
		if r.CategoryID == "" || seen[r.CategoryID] {
			return nil, fmt.Errorf("%w: results need one entry per category", ErrInvalidInput)
		}
		seen[r.CategoryID] = true
		if err := checkTotals(r); err != nil {
			return nil, fmt.Errorf("%w: category %s: %v", ErrInvalidInput, r.CategoryID, err)
		}
	}
	if cmd.SelectedCategoryID != nil {
		if !seen[*cmd.SelectedCategoryID] {
			return nil, fmt.Errorf("%w: selected category %q is not among the results", ErrInvalidInput, *cmd.SelectedCategoryID)
		}
	}

	now := s.now()
	id := uuid.New()
	q := &Quote{
		ID:                 types.ID(id.String()),
		Reference:          newReference(now, id),
		CustomerName:       strings.TrimSpace(cmd.CustomerName),
		CustomerEmail:      strings.TrimSpace(cmd.CustomerEmail),
		CustomerPhone:      strings.TrimSpace(cmd.CustomerPhone),
		Inputs:             cmd.Inputs,
		Results:            cmd.Results,
		SelectedCategoryID: cmd.SelectedCategoryID,
		Status:             StatusDraft,
		CreatedBy:          cmd.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return q, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Quote, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Quote, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.store.List(ctx, f)
}

func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Quote, error) {
	q, err := s.store.Get(ctx, cmd.QuoteID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(q.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	if cmd.To == StatusConverted && q.SelectedCategoryID == nil {
		return nil, fmt.Errorf("%w: a category must be selected before conversion", ErrInvalidState)
	}
	ok, err := s.store.UpdateStatus(ctx, q.ID, q.Status, cmd.To, q.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	q.Status = cmd.To
	q.StatusVersion++
	q.UpdatedAt = s.now()
	return q, nil
}

// newReference builds a short human reference such as Q-20260710-3F9A1C.
func newReference(at time.Time, id uuid.UUID) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("Q-%s-%s", at.Format("20060102"), hex[:6])
}
