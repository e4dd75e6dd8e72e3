// README: Pricing service computes quotes and manages platform pricing configuration.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"masar/internal/metrics"
	"masar/internal/modules/tariff"
	"masar/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type SettingsStore interface {
	SettingsReader
	SaveSettings(ctx context.Context, st Settings) error
}

type RuleStore interface {
	RuleLister
	Replace(ctx context.Context, rules []tariff.Rule) error
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	source   SnapshotSource
	settings SettingsStore
	rules    RuleStore
	cache    Invalidator
	logger   *zap.Logger
}

type ServiceDeps struct {
	Source   SnapshotSource
	Settings SettingsStore
	Rules    RuleStore
	Cache    Invalidator
	Logger   *zap.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   deps.Source,
		settings: deps.Settings,
		rules:    deps.Rules,
		cache:    deps.Cache,
		logger:   logger,
	}
}

// Snapshot returns the configuration a caller should price against.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load pricing snapshot: %w", err)
	}
	return snap, nil
}

// Quote is the stateless quote query. It shares Quote with parcel creation.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Breakdown, error) {
	fields := types.FieldErrors{}
	if req.Pickup == nil {
		fields.Add("pickup", "coordinates are required")
	} else if !req.Pickup.Valid() {
		fields.Add("pickup", "coordinates out of range")
	}
	if req.Delivery == nil {
		fields.Add("delivery", "coordinates are required")
	} else if !req.Delivery.Valid() {
		fields.Add("delivery", "coordinates out of range")
	}
	if req.WeightKg <= 0 {
		fields.Add("weight", "must be greater than zero")
	}
	if err := fields.Err(); err != nil {
		metrics.PricingQuotes.WithLabelValues("invalid").Inc()
		return Breakdown{}, err
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Breakdown{}, err
	}
	b, err := Quote(snap, req)
	ObserveQuote(err)
	return b, err
}

// ObserveQuote records the outcome of a quote computation.
func ObserveQuote(err error) {
	switch {
	case err == nil:
		metrics.PricingQuotes.WithLabelValues("ok").Inc()
	case errors.Is(err, tariff.ErrNoPricingRuleFound):
		metrics.PricingQuotes.WithLabelValues("no_rule").Inc()
	default:
		metrics.PricingQuotes.WithLabelValues("invalid").Inc()
	}
}

func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.settings.GetSettings(ctx)
}

type UpdateSettingsCommand struct {
	PlatformFee        *types.Percent
	AcceptingShipments *bool
	PaymentsEnabled    *bool
}

func (s *Service) UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (Settings, error) {
	st, err := s.settings.GetSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	if cmd.PlatformFee != nil {
		if !cmd.PlatformFee.Valid() {
			return Settings{}, types.FieldErrors{"platform_fee_percentage": types.ErrInvalidPercent.Error()}
		}
		st.PlatformFee = *cmd.PlatformFee
	}
	if cmd.AcceptingShipments != nil {
		st.AcceptingShipments = *cmd.AcceptingShipments
	}
	if cmd.PaymentsEnabled != nil {
		st.PaymentsEnabled = *cmd.PaymentsEnabled
	}
	st.UpdatedAt = time.Now().UTC()
	if err := s.settings.SaveSettings(ctx, st); err != nil {
		return Settings{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("platform settings updated",
		zap.String("platform_fee", st.PlatformFee.String()),
		zap.Bool("accepting_shipments", st.AcceptingShipments),
		zap.Bool("payments_enabled", st.PaymentsEnabled))
	return st, nil
}

func (s *Service) Tariffs(ctx context.Context) ([]tariff.Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	return tariff.NewTable(rules).Rules(), nil
}

// ReplaceTariffs validates and installs a complete tariff table.
func (s *Service) ReplaceTariffs(ctx context.Context, rules []tariff.Rule) error {
	if err := tariff.Validate(rules); err != nil {
		return err
	}
	if err := s.rules.Replace(ctx, rules); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("tariff table replaced", zap.Int("rules", len(rules)))
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("pricing snapshot invalidation failed", zap.Error(err))
	}
}
