package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"masar/internal/modules/tariff"
)

const (
	snapshotKey   = "masar:pricing:snapshot"
	generationKey = "masar:pricing:generation"
	snapshotTTL   = 30 * time.Second
)

type SettingsReader interface {
	GetSettings(ctx context.Context) (Settings, error)
}

type RuleLister interface {
	List(ctx context.Context) ([]tariff.Rule, error)
}

// SnapshotSource yields the pricing configuration for one request.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Loader reads a snapshot straight from the stores.
type Loader struct {
	Settings SettingsReader
	Rules    RuleLister
}

func (l Loader) Snapshot(ctx context.Context) (Snapshot, error) {
	st, err := l.Settings.GetSettings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	rules, err := l.Rules.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Settings: st, Rules: rules}, nil
}

// CachedSource keeps the whole snapshot as a single Redis value, so a reader
// gets either the old or the new configuration and never a mix.
//
// Invalidate bumps a generation counter before dropping the value. A reader
// only stores what it loaded if the generation it saw before loading is still
// current, so a load that raced an administrative write is never cached.
type CachedSource struct {
	next   SnapshotSource
	redis  *redis.Client
	logger *zap.Logger
}

func NewCachedSource(next SnapshotSource, rdb *redis.Client, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{next: next, redis: rdb, logger: logger}
}

func (c *CachedSource) Snapshot(ctx context.Context) (Snapshot, error) {
	if c.redis == nil {
		return c.next.Snapshot(ctx)
	}
	vals, err := c.redis.MGet(ctx, snapshotKey, generationKey).Result()
	if err != nil {
		c.logger.Warn("pricing snapshot cache read failed", zap.Error(err))
		return c.next.Snapshot(ctx)
	}
	if raw, ok := vals[0].(string); ok {
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			return snap, nil
		}
		c.logger.Warn("discarding undecodable pricing snapshot")
	}
	gen, _ := vals[1].(string)

	snap, err := c.next.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return snap, nil
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey, b, snapshotTTL)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("pricing snapshot changed while loading; not caching")
	default:
		c.logger.Warn("pricing snapshot cache write failed", zap.Error(err))
	}
	return snap, nil
}

var errStaleGeneration = errors.New("pricing generation changed")

// Invalidate drops the cached snapshot after an administrative write.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, snapshotKey)
		return nil
	})
	return err
}
