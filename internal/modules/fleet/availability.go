// README: Availability resolver; finds free vehicles in a category and groups them by branch.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"carhire/internal/types"
)

// ErrAvailabilityLookup wraps any data-access failure during Resolve.
var ErrAvailabilityLookup = errors.New("availability lookup failed")

type Reader interface {
	ListVehiclesByCategory(ctx context.Context, categoryID types.ID) ([]Vehicle, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	ListBlockingBookings(ctx context.Context, vehicleID types.ID) ([]Booking, error)
}

type Resolver struct {
	store Reader
	limit int
}

// NewResolver bounds per-vehicle booking fetches to limit concurrent reads.
func NewResolver(store Reader, limit int) *Resolver {
	if limit <= 0 {
		limit = 1
	}
	return &Resolver{store: store, limit: limit}
}

// Resolve reports which rentable vehicles in the category have no blocking
// booking overlapping [start, end]. It never returns partial availability:
// any lookup error yields an unavailable result and an error wrapping
// ErrAvailabilityLookup.
func (r *Resolver) Resolve(ctx context.Context, categoryID types.ID, start, end time.Time) (Availability, error) {
	vehicles, err := r.store.ListVehiclesByCategory(ctx, categoryID)
	if err != nil {
		return Availability{}, lookupErr("list vehicles", err)
	}
	var candidates []Vehicle
	for _, v := range vehicles {
		if v.CategoryID == categoryID && v.Rentable() {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return Availability{Branches: []BranchAvailability{}}, nil
	}

	free := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, v := range candidates {
		i, v := i, v
		g.Go(func() error {
			bookings, err := r.store.ListBlockingBookings(gctx, v.ID)
			if err != nil {
				return fmt.Errorf("bookings for vehicle %s: %w", v.ID, err)
			}
			free[i] = !conflicts(bookings, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Availability{}, lookupErr("check bookings", err)
	}

	var available []Vehicle
	for i, v := range candidates {
		if free[i] {
			available = append(available, v)
		}
	}
	if len(available) == 0 {
		return Availability{Branches: []BranchAvailability{}}, nil
	}

	branches, err := r.store.ListBranches(ctx)
	if err != nil {
		return Availability{}, lookupErr("list branches", err)
	}
	groups := GroupByBranch(available, branches)

	total := 0
	for _, g := range groups {
		total += g.AvailableCount
	}
	return Availability{Available: total > 0, Branches: groups}, nil
}

func conflicts(bookings []Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.Blocking() && b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// GroupByBranch buckets vehicles by branch, ordered by branch name with the
// unassigned bucket last. Branch IDs missing from branches keep their ID as
// the display name.
func GroupByBranch(vehicles []Vehicle, branches []Branch) []BranchAvailability {
	names := make(map[types.ID]string, len(branches))
	for _, b := range branches {
		names[b.ID] = b.Name
	}

	byID := make(map[types.ID]*BranchAvailability)
	for _, v := range vehicles {
		id := UnassignedBranchID
		if v.BranchID != nil && *v.BranchID != "" {
			id = *v.BranchID
		}
		g, ok := byID[id]
		if !ok {
			name, known := names[id]
			switch {
			case id == UnassignedBranchID:
				name = UnassignedBranchName
			case !known:
				name = string(id)
			}
			g = &BranchAvailability{BranchID: id, BranchName: name}
			byID[id] = g
		}
		g.VehicleIDs = append(g.VehicleIDs, v.ID)
		g.AvailableCount++
	}

	out := make([]BranchAvailability, 0, len(byID))
	for _, g := range byID {
		sort.Slice(g.VehicleIDs, func(i, j int) bool { return g.VehicleIDs[i] < g.VehicleIDs[j] })
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.BranchID == UnassignedBranchID) != (b.BranchID == UnassignedBranchID) {
			return b.BranchID == UnassignedBranchID
		}
		if a.BranchName != b.BranchName {
			return a.BranchName < b.BranchName
		}
		return a.BranchID < b.BranchID
	})
	return out
}

func lookupErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAvailabilityLookup, step, err)
}
