package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Listing statuses. Only active listings are discoverable.
const (
	ListingPendingReview = "pending"
	ListingActive        = "active"
	ListingSuspended     = "suspended"
)

type Listing struct {
	gorm.Model
	HostID        uint    `json:"hostID" gorm:"not null;index"`
	Title         string  `json:"title"`
	Description   string  `json:"description" gorm:"type:text"`
	City          string  `json:"city" gorm:"index"`
	Area          string  `json:"area"`
	AddressLine1  string  `json:"addressLine1"`
	Lat           float32 `json:"lat"`
	Lng           float32 `json:"lng"`
	Capacity      int     `json:"capacity"`
	Bedrooms      int     `json:"bedrooms"`
	Beds          int     `json:"beds"`
	Bathrooms     float32 `json:"bathrooms"`
	PricePerNight float64 `json:"pricePerNight"`
	Currency      string  `json:"currency"` // NGN
	Amenities     string  `json:"amenities"` // JSON array
	Photos        string  `json:"photos"`    // JSON array of URLs, first is cover
	Status        string  `json:"status" gorm:"type:varchar(20);default:pending;index"`
	Rating        float32 `json:"rating"`
	ReviewCount   int     `json:"reviewCount"`

	Reviews []Review `json:"reviews,omitempty"`
	Host    *User    `json:"host,omitempty" gorm:"foreignKey:HostID"`
}

// Custom JSON marshaling to expose Photos and Amenities as arrays.
func (l *Listing) MarshalJSON() ([]byte, error) {
	type Alias Listing
	aux := &struct {
		Photos    []string `json:"photos"`
		Amenities []string `json:"amenities"`
		Host      *User    `json:"host,omitempty"`
		*Alias
	}{
		Photos:    []string{},
		Amenities: []string{},
		Alias:     (*Alias)(l),
	}

	if l.Photos != "" {
		var photos []string
		if err := json.Unmarshal([]byte(l.Photos), &photos); err == nil {
			aux.Photos = photos
		}
	}
	if l.Amenities != "" {
		var amenities []string
		if err := json.Unmarshal([]byte(l.Amenities), &amenities); err == nil {
			aux.Amenities = amenities
		}
	}
	if l.Host != nil && l.Host.ID > 0 {
		hostCopy := *l.Host
		hostCopy.Listings = nil // avoid circular reference
		aux.Host = &hostCopy
	}

	return json.Marshal(aux)
}

// ListingDoc is the shape of a listing document in the Firestore
// "listings" collection that powers discovery. Timestamps are left
// untyped because imported documents carry several shapes (server
// timestamps, RFC3339 strings, epoch numbers); utils.ToInstant
// normalizes them at read time.
type ListingDoc struct {
	ID            string      `firestore:"-" json:"id"`
	HostID        uint        `firestore:"hostID" json:"hostID"`
	Title         string      `firestore:"title" json:"title"`
	City          string      `firestore:"city" json:"city"`
	Area          string      `firestore:"area" json:"area"`
	PricePerNight float64     `firestore:"pricePerNight" json:"pricePerNight"`
	Status        string      `firestore:"status" json:"status"`
	Photos        []string    `firestore:"photos" json:"photos"`
	CreatedAt     interface{} `firestore:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt     interface{} `firestore:"updatedAt" json:"updatedAt,omitempty"`
}
