package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email" gorm:"uniqueIndex"`
	PhoneNumber         string         `json:"phoneNumber" gorm:"index"`
	Password            string         `json:"-"`
	AvatarURL           string         `json:"avatarURL"`
	Bio                 string         `json:"bio"`
	SavedListings       datatypes.JSON `json:"savedListings"`
	AllowsNotifications *bool          `json:"allowsNotifications"`

	// Verified-partner (KYC) fields; documents live in the file store.
	IsVerified         *bool  `json:"isVerified"`
	VerificationStatus string `json:"verificationStatus"` // pending, approved, rejected
	IDType             string `json:"idType"`
	IDFrontImage       string `json:"idFrontImage"`
	SelfieImage        string `json:"selfieImage"`

	Role string `json:"role" gorm:"type:varchar(20);default:user;index"` // user, host, admin, super_admin

	Listings []Listing `json:"listings,omitempty" gorm:"foreignKey:HostID"`
}

// Custom JSON marshaling to expose SavedListings as an array.
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		SavedListings []uint `json:"savedListings"`
		*Alias
	}{
		SavedListings: []uint{},
		Alias:         (*Alias)(u),
	}

	if u.SavedListings != nil {
		var saved []uint
		if err := json.Unmarshal(u.SavedListings, &saved); err == nil {
			aux.SavedListings = saved
		}
	}

	return json.Marshal(aux)
}
