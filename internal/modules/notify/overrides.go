package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadYAML reads template overrides from path. A missing file yields an
// empty source.
func LoadYAML(path string) (StaticSource, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return StaticSource{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseYAML(raw)
}

func ParseYAML(raw []byte) (StaticSource, error) {
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	out := make(StaticSource, len(f.Templates))
	for _, t := range f.Templates {
		if t.Key == "" {
			return nil, errors.New("parse templates: entry without key")
		}
		out[t.Key] = t
	}
	return out, nil
}

// Store keeps administrator-edited templates in notification_templates.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Template(ctx context.Context, key Key) (Template, bool, error) {
	var t Template
	err := s.db.QueryRow(ctx, `
		SELECT key, subject_en, subject_ar, email_en, email_ar, whatsapp_en, whatsapp_ar
		FROM notification_templates WHERE key = $1
	`, string(key)).Scan(&t.Key, &t.SubjectEN, &t.SubjectAR, &t.EmailEN, &t.EmailAR, &t.WhatsAppEN, &t.WhatsAppAR)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, false, nil
	}
	if err != nil {
		return Template{}, false, err
	}
	return t, true, nil
}

func (s *Store) Upsert(ctx context.Context, t Template) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_templates
			(key, subject_en, subject_ar, email_en, email_ar, whatsapp_en, whatsapp_ar, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			subject_en = EXCLUDED.subject_en,
			subject_ar = EXCLUDED.subject_ar,
			email_en = EXCLUDED.email_en,
			email_ar = EXCLUDED.email_ar,
			whatsapp_en = EXCLUDED.whatsapp_en,
			whatsapp_ar = EXCLUDED.whatsapp_ar,
			updated_at = EXCLUDED.updated_at
	`, string(t.Key), t.SubjectEN, t.SubjectAR, t.EmailEN, t.EmailAR, t.WhatsAppEN, t.WhatsAppAR, time.Now())
	return err
}

// SeedDefaults inserts built-in templates that are not yet stored, leaving
// edited rows alone.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	inserted := 0
	for _, t := range defaultTemplates {
		tag, err := s.db.Exec(ctx, `
			INSERT INTO notification_templates
				(key, subject_en, subject_ar, email_en, email_ar, whatsapp_en, whatsapp_ar, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (key) DO NOTHING
		`, string(t.Key), t.SubjectEN, t.SubjectAR, t.EmailEN, t.EmailAR, t.WhatsAppEN, t.WhatsAppAR)
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", t.Key, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
