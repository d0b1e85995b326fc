package models

import "time"

// User is a bot user's profile. The primary key is the Telegram user id,
// so a profile is created lazily the first time a user talks to the bot.
type User struct {
	// ID is the Telegram user id. It never changes.
	ID int64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	// Username is the Telegram @handle, if the user has one.
	Username string `json:"username"`
	// Name is the display name taken from Telegram.
	Name string `json:"name"`
	// Phone is optional contact data. It is never shown to partners or mirrored.
	Phone string `json:"-"`
	// Gender, Region, Country and Language are matched against search filters.
	// An empty value means "unset" and never satisfies a non-empty filter.
	Gender   string `gorm:"index" json:"gender"`
	Region   string `gorm:"index" json:"region"`
	Country  string `json:"country"`
	Language string `json:"language"`

	// IsPremium unlocks filtered search while PremiumExpiry is in the future.
	IsPremium     bool       `gorm:"index" json:"is_premium"`
	PremiumExpiry *time.Time `json:"premium_expiry,omitempty"`
	// Blocked users cannot be matched and cannot relay.
	Blocked bool `gorm:"index" json:"blocked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PremiumActive reports whether premium is in effect at now.
func (u *User) PremiumActive(now time.Time) bool {
	if u == nil || !u.IsPremium {
		return false
	}
	return u.PremiumExpiry == nil || u.PremiumExpiry.After(now)
}

// Attribute returns the profile value a search filter field is compared with.
func (u *User) Attribute(field string) string {
	switch field {
	case FilterGender:
		return u.Gender
	case FilterRegion:
		return u.Region
	case FilterCountry:
		return u.Country
	case FilterLanguage:
		return u.Language
	}
	return ""
}

// PublicAttributes is the profile subset that may be shown to admins in
// oversight mirrors.
func (u *User) PublicAttributes() map[string]string {
	if u == nil {
		return nil
	}
	return map[string]string{
		"username": u.Username,
		"name":     u.Name,
		"gender":   u.Gender,
		"region":   u.Region,
		"country":  u.Country,
		"language": u.Language,
	}
}
