package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	UserID    uint     `json:"userID" gorm:"not null;index"`
	ListingID uint     `json:"listingID" gorm:"not null;index"`
	BookingID *uint    `json:"bookingID" gorm:"index"` // the stay being reviewed
	User      User     `json:"user" gorm:"foreignKey:UserID"`
	Booking   *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	Title     string   `json:"title"`
	Body      string   `json:"body" gorm:"type:text"`
	Stars     int      `json:"stars" gorm:"not null;check:stars >= 1 AND stars <= 5"`
	IsVerified bool    `json:"isVerified" gorm:"default:false"` // reviewer completed a paid stay
}
