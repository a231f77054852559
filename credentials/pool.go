// Package credentials rotates among a pool of API keys so a quota-limited
// poller keeps running after one key is exhausted. Rotation happens only on
// quota-classified errors; everything else is the caller's problem (normal
// backoff).
package credentials

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lastmove/chatrelay/telemetry"
)

// ErrPoolEmpty is returned when the pool holds no credentials.
var ErrPoolEmpty = errors.New("credential pool is empty")

// Pool is an ordered credential list with a rotating cursor. Safe for
// concurrent use, though in practice one poller owns each pool.
type Pool struct {
	mu    sync.Mutex
	creds []string
	index int
}

// NewPool builds a pool from the given keys; empty entries are dropped.
func NewPool(creds []string) *Pool {
	p := &Pool{}
	for _, c := range creds {
		if c != "" {
			p.creds = append(p.creds, c)
		}
	}
	return p
}

// Current returns the credential the cursor points at.
func (p *Pool) Current() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) == 0 {
		return "", ErrPoolEmpty
	}
	return p.creds[p.index], nil
}

// Advance moves the cursor to the next credential, wrapping around, and
// returns it.
func (p *Pool) Advance() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.creds) == 0 {
		return "", ErrPoolEmpty
	}
	p.index = (p.index + 1) % len(p.creds)
	return p.creds[p.index], nil
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Rotator wraps calls against a quota-limited API. IsQuota classifies errors
// that should trigger rotation rather than backoff.
type Rotator struct {
	Pool    *Pool
	IsQuota func(error) bool
}

// Do invokes fn with the current credential. On a quota error it advances the
// pool and retries with the next credential, stopping after one full rotation
// cycle; the last error is returned so the caller applies its standard
// backoff. Non-quota errors return immediately without rotating.
func (r *Rotator) Do(ctx context.Context, fn func(ctx context.Context, cred string) error) error {
	cred, err := r.Pool.Current()
	if err != nil {
		return err
	}
	attempts := r.Pool.Size()
	for i := 0; i < attempts; i++ {
		err = fn(ctx, cred)
		if err == nil {
			return nil
		}
		if r.IsQuota == nil || !r.IsQuota(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		next, aerr := r.Pool.Advance()
		if aerr != nil {
			return err
		}
		telemetry.CountRotation()
		slog.Warn("credential quota exhausted; rotating",
			slog.Int("attempt", i+1),
			slog.Int("pool_size", attempts),
			slog.Any("err", err))
		cred = next
	}
	return err
}
