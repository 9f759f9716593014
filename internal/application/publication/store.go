package publication

import (
	"context"
	"encoding/json"
	"errors"

	"realty-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the persistence collaborator of the publication workflow.
// Implementations return ErrNotFound when no row matches id.
type Store interface {
	UpdateListingStatus(ctx context.Context, id int64, status domain.PublishingStatus) (*domain.Listing, error)
	FindListingByID(ctx context.Context, id int64) (*domain.Listing, error)
}

// GormStore implements Store using GORM.
type GormStore struct {
	DB *gorm.DB
}

// UpdateListingStatus issues one conditional UPDATE that only touches the row
// when its status differs from status. A changed row gets a ListingEvent in the
// same transaction; an unchanged row is returned as is.
func (s *GormStore) UpdateListingStatus(ctx context.Context, id int64, status domain.PublishingStatus) (*domain.Listing, error) {
	var listing domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND publishing_status <> ?", id, status).
			Update("publishing_status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Create(statusEvent(ctx, id, status)).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", id).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *GormStore) FindListingByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// statusEvent builds the audit row for a listing that just moved to "to".
// With two statuses the previous one is always the other.
func statusEvent(ctx context.Context, id int64, to domain.PublishingStatus) *domain.ListingEvent {
	from := domain.StatusPending
	if to == domain.StatusPending {
		from = domain.StatusPublished
	}
	data, _ := json.Marshal(map[string]interface{}{
		"from": from,
		"to":   to,
	})
	return &domain.ListingEvent{
		ListingID:   id,
		EventType:   domain.EventTypeFor(to),
		EventData:   datatypes.JSON(data),
		ActorUserID: ActorFrom(ctx),
	}
}
