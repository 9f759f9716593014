package listingevents

import (
	"context"
	"errors"

	"realty-backend/internal/domain"

	"gorm.io/gorm"
)

var ErrListingNotFound = errors.New("Listing not found")

type Service struct {
	DB *gorm.DB
}

// GetListingEvents returns the publication history of a listing, oldest first.
func (s *Service) GetListingEvents(ctx context.Context, listingID int64) ([]domain.ListingEvent, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", listingID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrListingNotFound
	}

	events := []domain.ListingEvent{}
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
