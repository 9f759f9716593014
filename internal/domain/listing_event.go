package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventPublished   = "PUBLISHED"
	EventUnpublished = "UNPUBLISHED"
)

// ListingEvent records a publication change of a listing.
type ListingEvent struct {
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID   int64          `gorm:"column:listing_id;not null;index" json:"listing_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData   datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	ActorUserID *string        `gorm:"column:actor_user_id" json:"actor_user_id"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (ListingEvent) TableName() string {
	return "ListingEvents"
}

// BeforeCreate sets event_id if not already set (DBs without default uuid).
func (e *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

// EventTypeFor maps the status a listing moved to onto its event type.
func EventTypeFor(to PublishingStatus) string {
	if to == StatusPublished {
		return EventPublished
	}
	return EventUnpublished
}
