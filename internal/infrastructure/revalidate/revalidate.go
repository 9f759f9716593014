package revalidate

import (
	"context"
	"errors"
	"fmt"
)

// Invalidator marks a cached public page as stale so it is regenerated on
// next access.
type Invalidator interface {
	InvalidatePath(ctx context.Context, path string) error
}

// Multi fans an invalidation out to every non-nil Invalidator. All of them are
// attempted; failures are joined.
type Multi []Invalidator

func (m Multi) InvalidatePath(ctx context.Context, path string) error {
	var errs []error
	for _, inv := range m {
		if inv == nil {
			continue
		}
		if err := inv.InvalidatePath(ctx, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Paths invalidates each path once, continuing past failures.
func Paths(ctx context.Context, inv Invalidator, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := inv.InvalidatePath(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("revalidate %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
