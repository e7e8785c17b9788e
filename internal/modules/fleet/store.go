// README: Fleet store backed by PostgreSQL (read-only queries used by quoting).
package fleet

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"carhire/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ListVehiclesByCategory(ctx context.Context, categoryID types.ID) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, category_id, branch_id, registration, status, personal_use
		FROM vehicles
		WHERE category_id = $1
		ORDER BY registration`, string(categoryID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		var branchID sql.NullString
		if err := rows.Scan(&v.ID, &v.CategoryID, &branchID, &v.Registration, &v.Status, &v.PersonalUse); err != nil {
			return nil, err
		}
		if branchID.Valid {
			b := types.ID(branchID.String)
			v.BranchID = &b
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM branches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBlockingBookings returns the bookings that hold the vehicle: Active and
// Advance Payment Not Paid.
func (s *Store) ListBlockingBookings(ctx context.Context, vehicleID types.ID) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, vehicle_id, status, start_at, end_at
		FROM bookings
		WHERE vehicle_id = $1
		  AND status IN ($2, $3)`,
		string(vehicleID),
		string(BookingActive),
		string(BookingAdvancePaymentNotPaid),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.VehicleID, &b.Status, &b.Start, &b.End); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
