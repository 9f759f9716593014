package publication

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"realty-backend/internal/domain"
)

type Service struct {
	Store Store
}

type actorKey struct{}

// WithActor attaches the acting user id; it ends up on the listing event.
func WithActor(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, userID)
}

func ActorFrom(ctx context.Context) *string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return &id
	}
	return nil
}

// ParseListingID converts a path parameter to a listing id.
func ParseListingID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidIdentifier
	}
	return id, nil
}

// SetPublishingStatus moves a listing to targetStatus and returns the updated
// record. Setting the status a listing already has succeeds without a write.
//
// It does not touch any cache. After a successful call the caller must
// invalidate domain.ListingPublicPath(id); skipping that leaves the public page
// stale until its cache entry expires.
func (s *Service) SetPublishingStatus(ctx context.Context, listingID string, targetStatus string) (*domain.Listing, error) {
	id, err := ParseListingID(listingID)
	if err != nil {
		return nil, err
	}
	status, ok := domain.ParsePublishingStatus(targetStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}
	listing, err := s.Store.UpdateListingStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return listing, nil
}

// Result is the outcome for one id of a batch change.
type Result struct {
	ID      string          `json:"id"`
	Listing *domain.Listing `json:"listing,omitempty"`
	Err     error           `json:"-"`
}

// SetPublishingStatusMany applies SetPublishingStatus to every id in order.
// A failing id does not stop the rest.
func (s *Service) SetPublishingStatusMany(ctx context.Context, listingIDs []string, targetStatus string) []Result {
	results := make([]Result, 0, len(listingIDs))
	for _, raw := range listingIDs {
		listing, err := s.SetPublishingStatus(ctx, raw, targetStatus)
		results = append(results, Result{ID: raw, Listing: listing, Err: err})
	}
	return results
}

// ChangedPaths returns the public paths of successful results, each once, in
// first-seen order. Callers invalidate these after a batch.
func ChangedPaths(results []Result) []string {
	seen := make(map[string]struct{}, len(results))
	paths := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil || r.Listing == nil {
			continue
		}
		p := r.Listing.PublicPath()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths
}
