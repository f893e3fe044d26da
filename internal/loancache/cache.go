// Package loancache interposes a best-effort cache between the loan
// service and the repository layer. It implements the same repository
// contract so callers cannot tell whether a cache sits underneath.
//
// The durable store is the single source of truth. A cache fault of any
// kind is logged and treated as a miss on reads and as a no-op on
// writes; it never surfaces to the caller.
package loancache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alvarodelaflor/loan/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCacheMiss indicates that the key is absent from the cache. Any
// other error returned by a KV means the cache itself failed.
var ErrCacheMiss = errors.New("cache miss")

// cacheTTL bounds the staleness window of every cache entry.
const cacheTTL = 10 * time.Minute

// Delegate provides the data access layer interface wrapped by the cache.
//
//go:generate mockgen -source cache.go -destination cache_mock.go -package loancache
type Delegate interface {
	Save(ctx context.Context, loan domain.Loan) (domain.Loan, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	List(ctx context.Context) ([]domain.Loan, error)
	ListByIdentity(ctx context.Context, identity domain.Identity) ([]domain.Loan, error)
	Search(ctx context.Context, filter domain.Filter) ([]domain.Loan, error)
	History(ctx context.Context, id uuid.UUID) ([]domain.Loan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// KV provides the key-value cache client interface needed by the decorator.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Repo decorates a loan repository with cache-aside reads and
// invalidate-on-write consistency.
type Repo struct {
	delegate Delegate
	kv       KV
}

// NewRepo returns the caching decorator over the given repository.
func NewRepo(delegate Delegate, kv KV) *Repo {
	return &Repo{
		delegate: delegate,
		kv:       kv,
	}
}

func pointKey(id uuid.UUID) string {
	return "loan:" + id.String()
}

func identityKey(identity domain.Identity) string {
	return "loan:identity:" + identity.String()
}

func historyKey(id uuid.UUID) string {
	return "loan:history:" + id.String()
}

// Get returns the loan from the cache when present, falling back to the
// underlying repository and populating the cache on a miss.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	key := pointKey(id)

	var cached domain.Loan
	if r.readCache(ctx, key, &cached) {
		return cached, nil
	}

	loan, err := r.delegate.Get(ctx, id)
	if err != nil {
		return loan, err
	}

	r.writeCache(ctx, key, loan)

	return loan, nil
}

// Save writes through to the underlying repository first, then updates
// the point entry and invalidates the derived list and history entries.
func (r *Repo) Save(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	saved, err := r.delegate.Save(ctx, loan)
	if err != nil {
		return saved, err
	}

	r.writeCache(ctx, pointKey(saved.ID), saved)
	r.dropCache(ctx, identityKey(saved.ApplicantIdentity), historyKey(saved.ID))

	return saved, nil
}

// Delete removes the loan from the underlying repository and evicts its
// cache entries. The loan is looked up first (through the cached path)
// to learn its identity for targeted list invalidation.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	keys := []string{pointKey(id), historyKey(id)}

	loan, err := r.Get(ctx, id)
	if err == nil {
		keys = append(keys, identityKey(loan.ApplicantIdentity))
	}

	if err := r.delegate.Delete(ctx, id); err != nil {
		return err
	}

	r.dropCache(ctx, keys...)

	return nil
}

// ListByIdentity serves the identity-indexed list cache-aside, caching
// the whole result list on a miss.
func (r *Repo) ListByIdentity(ctx context.Context, identity domain.Identity) ([]domain.Loan, error) {
	key := identityKey(identity)

	var cached []domain.Loan
	if r.readCache(ctx, key, &cached) {
		return cached, nil
	}

	loans, err := r.delegate.ListByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, key, loans)

	return loans, nil
}

// History serves the revision log cache-aside under its own key. Save
// and Delete evict the key, so a cached history never outlives a write.
func (r *Repo) History(ctx context.Context, id uuid.UUID) ([]domain.Loan, error) {
	key := historyKey(id)

	var cached []domain.Loan
	if r.readCache(ctx, key, &cached) {
		return cached, nil
	}

	loans, err := r.delegate.History(ctx, id)
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, key, loans)

	return loans, nil
}

// List is a pass-through; the full scan is not cached.
func (r *Repo) List(ctx context.Context) ([]domain.Loan, error) {
	return r.delegate.List(ctx)
}

// Search is a pass-through; the filter combination key space is unbounded.
func (r *Repo) Search(ctx context.Context, filter domain.Filter) ([]domain.Loan, error) {
	return r.delegate.Search(ctx, filter)
}

// readCache loads and decodes the value under key into dest. It reports
// whether a usable cached value was found; misses and cache faults only
// differ in log level.
func (r *Repo) readCache(ctx context.Context, key string, dest interface{}) bool {
	l := zerolog.Ctx(ctx)

	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			l.Debug().Str("key", key).Msg("cache miss")
		} else {
			l.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to store")
		}

		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("cache entry corrupted, falling back to store")
		return false
	}

	l.Debug().Str("key", key).Msg("cache hit")

	return true
}

// writeCache encodes value and stores it under key with the fixed TTL.
// Failures are logged and swallowed.
func (r *Repo) writeCache(ctx context.Context, key string, value interface{}) {
	l := zerolog.Ctx(ctx)

	raw, err := json.Marshal(value)
	if err != nil {
		l.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}

	if err := r.kv.Set(ctx, key, raw, cacheTTL); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// dropCache evicts the given keys. Failures are logged and swallowed;
// the TTL bounds how long a stale entry can survive a failed eviction.
func (r *Repo) dropCache(ctx context.Context, keys ...string) {
	l := zerolog.Ctx(ctx)

	if err := r.kv.Del(ctx, keys...); err != nil {
		l.Warn().Err(err).Strs("keys", keys).Msg("cache eviction failed")
	}
}
