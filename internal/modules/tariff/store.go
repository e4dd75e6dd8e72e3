// README: Tariff store backed by PostgreSQL.
package tariff

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"masar/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context) ([]Rule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, min_distance_km, max_distance_km, min_weight_kg, max_weight_kg, price
		FROM tariff_rules
		ORDER BY min_distance_km, min_weight_kg, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.MinDistanceKm, &r.MaxDistanceKm, &r.MinWeightKg, &r.MaxWeightKg, &r.Price.Amount); err != nil {
			return nil, err
		}
		r.Price.Currency = types.DefaultCurrency
		out = append(out, r)
	}
	return out, rows.Err()
}

// Replace swaps the whole table in one transaction so readers never see a
// partial rule set.
func (s *Store) Replace(ctx context.Context, rules []Rule) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tariff_rules`); err != nil {
		return fmt.Errorf("clear tariff rules: %w", err)
	}
	rows := make([][]any, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []any{r.MinDistanceKm, r.MaxDistanceKm, r.MinWeightKg, r.MaxWeightKg, r.Price.Amount})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"tariff_rules"},
		[]string{"min_distance_km", "max_distance_km", "min_weight_kg", "max_weight_kg", "price"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert tariff rules: %w", err)
	}
	return tx.Commit(ctx)
}
