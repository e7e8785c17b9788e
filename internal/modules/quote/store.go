// README: Quote store backed by PostgreSQL; inputs and results are kept as JSONB.
package quote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

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

const selectQuote = `
	SELECT id, reference, customer_name, customer_email, customer_phone,
	       inputs, results, selected_category_id, status, status_version,
	       created_by, created_at, updated_at
	FROM quotes`

func (s *Store) Create(ctx context.Context, q *Quote) error {
	inputs, err := json.Marshal(q.Inputs)
	if err != nil {
		return err
	}
	results, err := json.Marshal(q.Results)
	if err != nil {
		return err
	}
	var grandTotal any
	if sel, ok := q.Selected(); ok {
		grandTotal = sel.GrandTotal
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO quotes (
			id, reference, customer_name, customer_email, customer_phone,
			inputs, results, selected_category_id, grand_total,
			status, status_version, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)`,
		string(q.ID),
		q.Reference,
		q.CustomerName,
		nullString(q.CustomerEmail),
		nullString(q.CustomerPhone),
		inputs,
		results,
		toStringPtr(q.SelectedCategoryID),
		grandTotal,
		string(q.Status),
		q.StatusVersion,
		nullString(q.CreatedBy),
		q.CreatedAt,
		q.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Quote, error) {
	row := s.db.QueryRow(ctx, selectQuote+` WHERE id = $1`, string(id))
	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]Quote, error) {
	rows, err := s.db.Query(ctx, selectQuote+`
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`,
		string(f.Status), f.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// UpdateStatus moves a quote from one status to another only if nobody else
// changed it since version was read.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE quotes
		SET status = $1,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var email, phone, selected, createdBy sql.NullString
	var inputs, results []byte
	err := row.Scan(
		&q.ID, &q.Reference, &q.CustomerName, &email, &phone,
		&inputs, &results, &selected, &q.Status, &q.StatusVersion,
		&createdBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputs, &q.Inputs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &q.Results); err != nil {
		return nil, err
	}
	q.CustomerEmail = email.String
	q.CustomerPhone = phone.String
	q.CreatedBy = createdBy.String
	if selected.Valid {
		id := types.ID(selected.String)
		q.SelectedCategoryID = &id
	}
	return &q, nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
