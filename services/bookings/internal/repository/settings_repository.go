package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
)

// SettingsRepository stores the operator's opening hours as a single JSONB row.
type SettingsRepository interface {
	Load(ctx context.Context) (*schedule.Config, error)
	Save(ctx context.Context, cfg *schedule.Config) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Load(ctx context.Context) (*schedule.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT settings FROM booking_settings WHERE id=1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking settings missing, run migrations")
	}
	if err != nil {
		return nil, err
	}

	var cfg schedule.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode booking settings: %w", err)
	}
	return &cfg, nil
}

func (r *settingsRepository) Save(ctx context.Context, cfg *schedule.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	const q = `INSERT INTO booking_settings (id, settings, updated_at) VALUES (1, $1, now())
	ON CONFLICT (id) DO UPDATE SET settings=EXCLUDED.settings, updated_at=now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err = r.pool.Exec(ctx, q, raw)
	return err
}
