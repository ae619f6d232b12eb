package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID       string `json:"_id" gorm:"primaryKey;size:24"`
	Name     string `json:"name" gorm:"size:255;not null"`
	Email    string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
}

// Product is a catalog entry. ProductImage and File hold relative blob paths
// ("uploads/<name>") or the empty string.
type Product struct {
	ID           string   `json:"_id" gorm:"primaryKey;size:24"`
	Name         string   `json:"name" gorm:"size:255;not null"`
	Description  string   `json:"description" gorm:"type:text;not null"`
	Features     []string `json:"features" gorm:"serializer:json;type:text"`
	ProductImage string   `json:"productImage" gorm:"size:512"`
	File         string   `json:"file" gorm:"size:512"`
	Category     string   `json:"category" gorm:"size:255;not null;index"`
	Subcategory  string   `json:"subcategory,omitempty" gorm:"size:255;index"`
}

// Normalize makes sure Features is never nil.
func (p *Product) Normalize() {
	if p.Features == nil {
		p.Features = []string{}
	}
}

type Image struct {
	ID          string `json:"_id" gorm:"primaryKey;size:24"`
	HeaderImage string `json:"headerImage" gorm:"size:512;not null"`
}

// QuickEnquiry is an append-only lead record from the enquiry form.
type QuickEnquiry struct {
	ID           string    `json:"_id" gorm:"primaryKey;size:24"`
	Businessname *string   `json:"businessname,omitempty" gorm:"size:255"`
	Price        *string   `json:"price,omitempty" gorm:"size:255"`
	Reservations *string   `json:"reservations,omitempty" gorm:"size:255"`
	Name         string    `json:"name" gorm:"size:30;not null"`
	Phoneno      string    `json:"phoneno" gorm:"size:10;not null"`
	Email        string    `json:"email" gorm:"size:255;not null"`
	Message      *string   `json:"message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (QuickEnquiry) TableName() string {
	return "quick_enquiries"
}

// NewID returns a fresh document id in ObjectID hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id is a well-formed document id.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
