package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"realty-backend/internal/domain"
	"realty-backend/internal/infrastructure/pagecache"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrListingNotFound = errors.New("Listing not found")

type Service struct {
	DB    *gorm.DB
	Cache *pagecache.Cache // nil disables the public page cache
}

// ListFilter narrows GetListings. Zero values mean "any".
type ListFilter struct {
	Status domain.PublishingStatus
	Kind   domain.Kind
}

func (s *Service) GetListings(ctx context.Context, f ListFilter) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx)
	if f.Status != "" {
		q = q.Where("publishing_status = ?", f.Status)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	listings := []domain.Listing{}
	if err := q.Order("updated_at DESC").Order("id DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %w", err)
	}
	return listings, nil
}

func (s *Service) GetListingByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// GetPublishedListing returns the JSON body of a public listing page. Pending
// listings are reported as not found. Bodies are served from the page cache
// when present; cached is true in that case.
func (s *Service) GetPublishedListing(ctx context.Context, id int64) (body []byte, cached bool, err error) {
	path := domain.ListingPublicPath(id)
	fillable := false
	var gen int64
	if s.Cache != nil {
		b, ok, err := s.Cache.Get(ctx, path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("page cache read failed")
		} else if ok {
			return b, true, nil
		}
		// taken before the SELECT so an invalidation racing this read
		// keeps the loaded body out of the cache
		if gen, err = s.Cache.Generation(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("page cache generation read failed")
		} else {
			fillable = true
		}
	}

	var listing domain.Listing
	err = s.DB.WithContext(ctx).
		Where("id = ? AND publishing_status = ?", id, domain.StatusPublished).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrListingNotFound
		}
		return nil, false, err
	}
	body, err = json.Marshal(&listing)
	if err != nil {
		return nil, false, err
	}
	if fillable {
		stored, err := s.Cache.Fill(ctx, path, body, gen)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("page cache write failed")
		} else if !stored {
			log.Debug().Str("path", path).Msg("page invalidated during read, not cached")
		}
	}
	return body, false, nil
}
