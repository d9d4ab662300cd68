package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/session"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	"github.com/angelmondragon/gheehive-storefront/pkg/observe"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/shopspring/decimal"
)

const syncLockTTL = 30 * time.Second

// Status distinguishes a clean mutation from one whose remote push failed.
type Status int

const (
	StatusOK Status = iota
	StatusSyncWarning
)

func (s Status) String() string {
	if s == StatusSyncWarning {
		return "sync_warning"
	}
	return "ok"
}

// Result reports a mutation that succeeded locally. Warning is set when the
// remote copy could not be updated; local state is kept either way.
type Result struct {
	Status  Status `json:"status"`
	Warning error  `json:"-"`
}

func okResult() Result { return Result{Status: StatusOK} }

func warnResult(err error) Result { return Result{Status: StatusSyncWarning, Warning: err} }

// SyncResult reports a reconciliation. Skipped is true when another sync was in flight,
// the visitor is anonymous, or another instance holds the sync lock.
type SyncResult struct {
	Result
	Skipped bool `json:"skipped"`
	Pulled  int  `json:"pulled"`
	Pushed  bool `json:"pushed"`
}

// Snapshot is the read model published after every change.
type Snapshot struct {
	Lines      []Line          `json:"lines"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Identity exposes the session credentials the remote cart is keyed by.
type Identity interface {
	Current() (string, session.User, bool)
}

// Locker serializes syncs for one visitor across instances.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

type Option func(*Store)

func WithLocker(l Locker) Option {
	return func(s *Store) { s.locker = l }
}

func WithMetrics(m *metrics.Storefront) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.logg = l }
}

// Store is one visitor's cart. Writes go to visitor storage before the in-memory
// copy changes; the remote copy follows when the visitor is identified.
type Store struct {
	mu      sync.RWMutex
	lines   []Line
	pushMu  sync.Mutex
	syncing atomic.Bool

	visitorID string
	storage   storage.Store
	identity  Identity
	remote    Remote
	locker    Locker
	metrics   *metrics.Storefront
	logg      *logger.Logger
	hub       observe.Hub[Snapshot]
}

func NewStore(visitorID string, st storage.Store, identity Identity, remote Remote, opts ...Option) (*Store, error) {
	if strings.TrimSpace(visitorID) == "" {
		return nil, fmt.Errorf("visitor id required")
	}
	if st == nil {
		return nil, fmt.Errorf("storage required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote cart required")
	}
	s := &Store{
		visitorID: visitorID,
		storage:   st,
		identity:  identity,
		remote:    remote,
		lines:     []Line{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Load restores the persisted cart. Undecodable payloads start an empty cart.
func (s *Store) Load(ctx context.Context) error {
	raw, found, err := s.storage.Load(ctx, s.visitorID, storage.SlotCartLines)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if !found {
		return nil
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		s.warn(ctx, "discarding unreadable cart")
		lines = nil
	}
	s.mu.Lock()
	s.lines = normalize(lines)
	s.mu.Unlock()
	return nil
}

// Add increments the line's quantity, or appends it with quantity 1.
func (s *Store) Add(ctx context.Context, line Line) (Result, error) {
	if line.ProductID <= 0 || line.VariantID <= 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "product and variant are required")
	}
	return s.mutate(ctx, func(lines []Line) ([]Line, bool) {
		for i := range lines {
			if lines[i].Key() == line.Key() {
				lines[i].Quantity++
				return lines, true
			}
		}
		line.Quantity = 1
		return append(lines, line), true
	})
}

// UpdateQuantity sets the line's quantity. Zero or less removes it; a missing
// line is left alone.
func (s *Store) UpdateQuantity(ctx context.Context, productID, variantID int64, qty int) (Result, error) {
	if qty <= 0 {
		return s.Remove(ctx, productID, variantID)
	}
	key := Key{ProductID: productID, VariantID: variantID}
	return s.mutate(ctx, func(lines []Line) ([]Line, bool) {
		for i := range lines {
			if lines[i].Key() == key {
				if lines[i].Quantity == qty {
					return lines, false
				}
				lines[i].Quantity = qty
				return lines, true
			}
		}
		return lines, false
	})
}

func (s *Store) Remove(ctx context.Context, productID, variantID int64) (Result, error) {
	key := Key{ProductID: productID, VariantID: variantID}
	return s.mutate(ctx, func(lines []Line) ([]Line, bool) {
		for i := range lines {
			if lines[i].Key() == key {
				return append(lines[:i], lines[i+1:]...), true
			}
		}
		return lines, false
	})
}

func (s *Store) Clear(ctx context.Context) (Result, error) {
	return s.mutate(ctx, func(lines []Line) ([]Line, bool) {
		return []Line{}, len(lines) > 0
	})
}

func (s *Store) mutate(ctx context.Context, fn func([]Line) ([]Line, bool)) (Result, error) {
	s.mu.Lock()
	next, changed := fn(cloneLines(s.lines))
	if !changed {
		s.mu.Unlock()
		return okResult(), nil
	}
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	s.lines = next
	s.mu.Unlock()

	s.publish()
	return s.pushLatest(ctx), nil
}

func (s *Store) persist(ctx context.Context, lines []Line) error {
	encoded, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Save(ctx, s.visitorID, storage.SlotCartLines, encoded); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

// pushLatest sends the current snapshot, not the one that triggered the push, so
// interleaved mutations never leave an older cart on the backend.
func (s *Store) pushLatest(ctx context.Context) Result {
	token, user, identified := s.identity.Current()
	if !identified {
		return okResult()
	}
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if err := s.remote.Push(ctx, token, user.ID, s.Lines()); err != nil {
		s.logError(ctx, "cart push failed", err)
		return warnResult(err)
	}
	return okResult()
}

// Sync pulls the remote cart, merges it into the local one (remote wins), stores
// the result and pushes it back when the backend copy differs. A call made while
// another is running returns immediately with Skipped set.
func (s *Store) Sync(ctx context.Context) (SyncResult, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		s.metrics.CartSync("skipped")
		return SyncResult{Result: okResult(), Skipped: true}, nil
	}
	defer s.syncing.Store(false)

	token, user, identified := s.identity.Current()
	if !identified {
		return SyncResult{Result: okResult(), Skipped: true}, nil
	}

	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, "cart-sync:"+s.visitorID, syncLockTTL)
		if err != nil {
			s.metrics.CartSync("warning")
			return SyncResult{Result: warnResult(err)}, nil
		}
		if release == nil {
			s.metrics.CartSync("skipped")
			return SyncResult{Result: okResult(), Skipped: true}, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.warn(ctx, "release cart sync lock: "+err.Error())
			}
		}()
	}

	remote, err := s.remote.Pull(ctx, token, user.ID)
	if err != nil {
		s.logError(ctx, "cart pull failed", err)
		s.metrics.CartSync("warning")
		return SyncResult{Result: warnResult(err)}, nil
	}

	s.mu.Lock()
	merged := Merge(s.lines, remote)
	localChanged := !equalLines(merged, s.lines)
	if localChanged {
		if err := s.persist(ctx, merged); err != nil {
			s.mu.Unlock()
			s.metrics.CartSync("error")
			return SyncResult{}, err
		}
		s.lines = merged
	}
	s.mu.Unlock()

	if localChanged {
		s.publish()
	}

	res := SyncResult{Result: okResult(), Pulled: len(remote)}
	if !equalLines(merged, remote) {
		res.Result = s.pushLatest(ctx)
		res.Pushed = res.Status == StatusOK
	}
	if res.Status == StatusSyncWarning {
		s.metrics.CartSync("warning")
	} else {
		s.metrics.CartSync("ok")
	}
	return res, nil
}

func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLines(s.lines)
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalItems(s.lines)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalPrice(s.lines)
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Lines:      cloneLines(s.lines),
		TotalItems: totalItems(s.lines),
		TotalPrice: totalPrice(s.lines),
	}
}

func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.hub.Subscribe(fn)
}

func (s *Store) publish() {
	s.hub.Publish(s.Snapshot())
}

func totalItems(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

func totalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (s *Store) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(s.logg.WithVisitorID(ctx, s.visitorID), msg)
	}
}

func (s *Store) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(s.logg.WithVisitorID(ctx, s.visitorID), msg, err)
	}
}
