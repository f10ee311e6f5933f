package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/models"
)

const (
	divestMaxRetries      = 4
	divestInitialInterval = 50 * time.Millisecond
)

// Service coordinates divestment requests: read the latest snapshot, run the
// engine, and perform a version-checked replace. Version conflicts are retried
// against the fresh snapshot with bounded exponential backoff, so two racing
// divestments both land instead of one silently overwriting the other.
type Service struct {
	store  *Store
	logger *common.Logger
	clock  func() time.Time
}

// NewService creates a divestment service over the given store.
func NewService(store *Store, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock replaces the service clock. Tests use this for deterministic
// timestamps.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Snapshot returns the current portfolio snapshot.
func (s *Service) Snapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	return s.store.Get(ctx)
}

// Metrics returns the derived display metrics for the current snapshot.
func (s *Service) Metrics(ctx context.Context) (*models.DerivedMetrics, error) {
	snapshot, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	m := ComputeMetrics(snapshot)
	return &m, nil
}

// Subscribe returns a channel of snapshots written after the call.
func (s *Service) Subscribe() <-chan *models.PortfolioSnapshot {
	return s.store.Subscribe()
}

// Unsubscribe releases a channel returned by Subscribe.
func (s *Service) Unsubscribe(ch <-chan *models.PortfolioSnapshot) {
	s.store.Unsubscribe(ch)
}

// Divest removes amount from the Tier D exposure on behalf of actor and
// persists the resulting snapshot. Validation errors are returned without any
// write; persistence failures leave the stored snapshot untouched.
func (s *Service) Divest(ctx context.Context, amount float64, actor string) (*models.PortfolioSnapshot, error) {
	var result *models.PortfolioSnapshot

	operation := func() error {
		snapshot, err := s.store.Get(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		next, err := SimulateDivestment(snapshot, amount, actor, s.clock())
		if err != nil {
			return backoff.Permanent(err)
		}

		written, err := s.store.Put(ctx, next, snapshot.Version)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				s.logger.Debug().
					Int64("version", snapshot.Version).
					Msg("divestment lost write race, retrying against fresh snapshot")
				return err
			}
			return backoff.Permanent(err)
		}

		result = written
		return nil
	}

	policy := backoff.WithContext(newDivestBackoff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	s.logger.Info().
		Float64("amount", amount).
		Str("actor", actor).
		Float64("tier_d_exposure", result.Bucket(models.TierD).Exposure).
		Msg("divestment applied")

	return result, nil
}

func newDivestBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = divestInitialInterval
	return backoff.WithMaxRetries(b, divestMaxRetries)
}
