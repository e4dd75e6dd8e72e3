// README: Profile store backed by PostgreSQL.
package profile

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

func (s *Store) Get(ctx context.Context, uid types.ID) (*Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `
		SELECT uid, full_name, role, email, phone, push_token, car_plate, language, updated_at
		FROM profiles WHERE uid = $1`, string(uid),
	).Scan(&p.UID, &p.FullName, &p.Role, &p.Email, &p.Phone, &p.PushToken, &p.CarPlate, &p.Language, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) Upsert(ctx context.Context, p *Profile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles (uid, full_name, role, email, phone, push_token, car_plate, language, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uid) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    role = EXCLUDED.role,
		    email = EXCLUDED.email,
		    phone = EXCLUDED.phone,
		    push_token = EXCLUDED.push_token,
		    car_plate = EXCLUDED.car_plate,
		    language = EXCLUDED.language,
		    updated_at = EXCLUDED.updated_at`,
		string(p.UID), p.FullName, string(p.Role), p.Email, p.Phone, p.PushToken, p.CarPlate, p.Language, p.UpdatedAt,
	)
	return err
}
