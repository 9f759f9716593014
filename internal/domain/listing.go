package domain

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PublishingStatus controls whether a listing is publicly visible.
type PublishingStatus string

const (
	StatusPublished PublishingStatus = "PUBLISHED"
	StatusPending   PublishingStatus = "PENDING"
)

// ParsePublishingStatus accepts exactly "PUBLISHED" or "PENDING" (case-sensitive).
func ParsePublishingStatus(s string) (PublishingStatus, bool) {
	switch PublishingStatus(s) {
	case StatusPublished, StatusPending:
		return PublishingStatus(s), true
	}
	return "", false
}

func (s PublishingStatus) Valid() bool {
	_, ok := ParsePublishingStatus(string(s))
	return ok
}

// Kind distinguishes the two listing entities managed by the admin app.
type Kind string

const (
	KindProperty Kind = "property"
	KindProject  Kind = "project"
)

func (k Kind) Valid() bool {
	return k == KindProperty || k == KindProject
}

var ErrUndefinedStatus = errors.New("listing publishing status must be PUBLISHED or PENDING")

// Listing is a property or project record. Only PublishingStatus matters to the
// publication workflow; the descriptive columns are carried through untouched.
type Listing struct {
	ID               int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Kind             Kind             `gorm:"column:kind;type:varchar(20);not null;default:'property'" json:"kind"`
	PublishingStatus PublishingStatus `gorm:"column:publishing_status;type:varchar(20);not null;default:'PENDING';index" json:"publishingStatus"`
	Title            string           `gorm:"column:title;not null" json:"title"`
	Descriptor       string           `gorm:"column:descriptor" json:"descriptor"`
	City             string           `gorm:"column:city" json:"city"`
	Country          string           `gorm:"column:country" json:"country"`
	Price            float64          `gorm:"column:price;type:decimal(18,2)" json:"price"`
	CreatedAt        time.Time        `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time        `gorm:"column:updated_at" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

// BeforeCreate defaults new listings to PENDING and rejects undefined statuses.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.PublishingStatus == "" {
		l.PublishingStatus = StatusPending
	}
	if !l.PublishingStatus.Valid() {
		return ErrUndefinedStatus
	}
	if l.Kind == "" {
		l.Kind = KindProperty
	}
	return nil
}

// PublicPath is the public page path whose cache must be invalidated after a
// status change.
func (l *Listing) PublicPath() string {
	return ListingPublicPath(l.ID)
}

func ListingPublicPath(id int64) string {
	return fmt.Sprintf("/listings/%d", id)
}
