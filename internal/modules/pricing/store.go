// README: Pricing store backed by PostgreSQL.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carhire/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetConfig(ctx context.Context) (Config, error) {
	var cfg Config
	err := s.db.QueryRow(ctx, `
		SELECT chauffeur_fee_per_day, vat_percentage, updated_at
		FROM pricing_config
		WHERE id = 1`,
	).Scan(&cfg.ChauffeurFeePerDay, &cfg.VATPercentage, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrConfigNotFound
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (s *Store) ListCategoryPricing(ctx context.Context) ([]CategoryPricing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.name, p.off_peak_rate, p.peak_rate, p.self_drive_deposit, p.tiers, p.updated_at
		FROM category_pricing p
		JOIN vehicle_categories c ON c.id = p.category_id
		ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryPricing
	for rows.Next() {
		var cp CategoryPricing
		var id string
		var tiers []byte
		if err := rows.Scan(&id, &cp.CategoryName, &cp.OffPeakRate, &cp.PeakRate, &cp.SelfDriveDeposit, &tiers, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		cp.CategoryID = types.ID(id)
		if err := json.Unmarshal(tiers, &cp.Tiers); err != nil {
			return nil, fmt.Errorf("%w: category %s tiers: %v", ErrInvalidPricing, id, err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *Store) UpdateConfig(ctx context.Context, cfg Config) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pricing_config (id, chauffeur_fee_per_day, vat_percentage, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET chauffeur_fee_per_day = EXCLUDED.chauffeur_fee_per_day,
		    vat_percentage = EXCLUDED.vat_percentage,
		    updated_at = NOW()`,
		cfg.ChauffeurFeePerDay,
		cfg.VATPercentage,
	)
	return err
}

// UpsertCategoryPricing replaces the rate table for an existing category.
func (s *Store) UpsertCategoryPricing(ctx context.Context, cp CategoryPricing) error {
	tiers, err := json.Marshal(cp.Tiers)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO category_pricing (category_id, off_peak_rate, peak_rate, self_drive_deposit, tiers, updated_at)
		SELECT id, $2, $3, $4, $5, NOW() FROM vehicle_categories WHERE id = $1
		ON CONFLICT (category_id) DO UPDATE
		SET off_peak_rate = EXCLUDED.off_peak_rate,
		    peak_rate = EXCLUDED.peak_rate,
		    self_drive_deposit = EXCLUDED.self_drive_deposit,
		    tiers = EXCLUDED.tiers,
		    updated_at = NOW()`,
		string(cp.CategoryID),
		cp.OffPeakRate,
		cp.PeakRate,
		cp.SelfDriveDeposit,
		tiers,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryMissing
	}
	return nil
}
