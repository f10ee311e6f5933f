package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/interfaces"
	"github.com/greenfin/greenfin-portal/internal/models"
)

// subscriberBuffer sizes each subscriber channel. Slow subscribers drop
// intermediate snapshots rather than block the writer; delivery is
// at-least-once with last-write-wins across rapid successive writes.
const subscriberBuffer = 8

// Store owns the portfolio snapshot document in the key-value store. The
// snapshot is read and replaced wholesale; writes are version-checked so a
// stale writer gets ErrVersionConflict instead of silently overwriting a
// concurrent divestment.
type Store struct {
	kv     interfaces.KeyValueStorage
	key    string
	logger *common.Logger

	writeMu sync.Mutex // serializes the read-check-write of Put

	subMu sync.Mutex
	subs  map[chan *models.PortfolioSnapshot]struct{}
}

// NewStore creates a snapshot store over the given key-value storage.
func NewStore(kv interfaces.KeyValueStorage, key string, logger *common.Logger) *Store {
	return &Store{
		kv:     kv,
		key:    key,
		logger: logger,
		subs:   make(map[chan *models.PortfolioSnapshot]struct{}),
	}
}

// Get returns the current snapshot, or ErrSnapshotNotFound if the document has
// not been seeded yet.
func (s *Store) Get(ctx context.Context) (*models.PortfolioSnapshot, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistenceFailure, s.key, err)
	}

	var snapshot models.PortfolioSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistenceFailure, s.key, err)
	}
	return &snapshot, nil
}

// Put replaces the snapshot document if the stored version still equals
// expectedVersion. On success the written snapshot carries expectedVersion+1
// and all subscribers are notified. Returns ErrVersionConflict when another
// writer got there first.
func (s *Store) Put(ctx context.Context, snapshot *models.PortfolioSnapshot, expectedVersion int64) (*models.PortfolioSnapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.Get(ctx)
	if err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return nil, err
	}
	if current != nil && current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: expected version %d, store has %d", ErrVersionConflict, expectedVersion, current.Version)
	}

	next := snapshot.Clone()
	next.Version = expectedVersion + 1

	if err := s.write(ctx, next); err != nil {
		return nil, err
	}

	s.notify(next)
	return next, nil
}

// SeedIfAbsent writes the snapshot only when no document exists yet. Returns
// true when the seed was written, false when a snapshot was already present.
func (s *Store) SeedIfAbsent(ctx context.Context, snapshot *models.PortfolioSnapshot) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.Get(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		return false, err
	}

	next := snapshot.Clone()
	next.Version = 1
	if err := s.write(ctx, next); err != nil {
		return false, err
	}

	s.logger.Info().
		Str("key", s.key).
		Float64("total_exposure", next.TotalExposure).
		Msg("portfolio snapshot seeded")

	s.notify(next)
	return true, nil
}

// Subscribe registers a channel receiving every snapshot written after the
// call. The caller must Unsubscribe when done.
func (s *Store) Subscribe() <-chan *models.PortfolioSnapshot {
	ch := make(chan *models.PortfolioSnapshot, subscriberBuffer)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes and closes a channel previously returned by Subscribe.
func (s *Store) Unsubscribe(ch <-chan *models.PortfolioSnapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for sub := range s.subs {
		if sub == ch {
			delete(s.subs, sub)
			close(sub)
			return
		}
	}
}

func (s *Store) write(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersistenceFailure, s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistenceFailure, s.key, err)
	}
	return nil
}

func (s *Store) notify(snapshot *models.PortfolioSnapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for sub := range s.subs {
		select {
		case sub <- snapshot.Clone():
		default:
			// Drop oldest so the latest snapshot always lands.
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- snapshot.Clone():
			default:
			}
		}
	}
}
