// Package lock serializes writers of the same output product with an
// advisory lock file.
package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrAlreadyLocked is returned when another process is writing the product.
var ErrAlreadyLocked = errors.New("another spex process is writing this product")

// TryLocker abstracts the subset of flock.Flock used here. flock.Flock
// satisfies it directly.
type TryLocker interface {
	TryLock() (bool, error)
	Unlock() error
}

// ProductLock guards a single output product path. Acquisition is
// fail-fast: a held lock is reported immediately rather than waited on.
type ProductLock struct {
	fl TryLocker
}

// ForProduct returns a ProductLock for the product at path, backed by a
// sibling "<path>.lock" file.
func ForProduct(path string) *ProductLock {
	return &ProductLock{fl: flock.New(path + ".lock")}
}

// Wrap builds a ProductLock over an existing TryLocker. Used by tests to
// substitute a double for the real flock.
func Wrap(tl TryLocker) *ProductLock {
	return &ProductLock{fl: tl}
}

// Acquire attempts a non-blocking acquisition, honoring ctx cancellation
// before touching the lock file. A lock held elsewhere yields
// ErrAlreadyLocked.
func (p *ProductLock) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := p.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring product lock: %w", err)
	}
	if !ok {
		return ErrAlreadyLocked
	}
	return nil
}

// Release drops the advisory lock.
func (p *ProductLock) Release() error {
	if err := p.fl.Unlock(); err != nil {
		return fmt.Errorf("releasing product lock: %w", err)
	}
	return nil
}

// Holding acquires the lock for path, runs fn, and releases the lock.
func Holding(ctx context.Context, path string, fn func() error) error {
	pl := ForProduct(path)
	if err := pl.Acquire(ctx); err != nil {
		return err
	}
	defer pl.Release() //nolint:errcheck

	return fn()
}
