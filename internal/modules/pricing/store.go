// README: Platform settings store backed by PostgreSQL (single row).
package pricing

import (
	"context"
	"errors"

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

func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	row := s.db.QueryRow(ctx, `
		SELECT platform_fee_bp, accepting_shipments, payments_enabled, updated_at
		FROM platform_settings
		WHERE id = 1`)
	var st Settings
	var fee int64
	err := row.Scan(&fee, &st.AcceptingShipments, &st.PaymentsEnabled, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	st.PlatformFee = types.Percent(fee)
	return st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st Settings) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO platform_settings (id, platform_fee_bp, accepting_shipments, payments_enabled, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET platform_fee_bp = EXCLUDED.platform_fee_bp,
		    accepting_shipments = EXCLUDED.accepting_shipments,
		    payments_enabled = EXCLUDED.payments_enabled,
		    updated_at = EXCLUDED.updated_at`,
		int64(st.PlatformFee), st.AcceptingShipments, st.PaymentsEnabled, st.UpdatedAt,
	)
	return err
}
