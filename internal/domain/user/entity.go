package user

import "time"

const (
	DefaultProfilePicture      = "/default_avatar.png"
	DefaultBatchProfilePicture = "/avatars/default.png"
	DefaultOnboardAbout        = "Available"

	// MinCustomID is the lowest id a caller may assign explicitly.
	MinCustomID = 100
)

// User represents the users table
type User struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Name           string    `gorm:"not null" json:"name"`
	PhoneNumber    *string   `json:"phoneNumber,omitempty"`
	ProfilePicture string    `gorm:"not null;default:''" json:"profilePicture"`
	About          string    `gorm:"not null;default:''" json:"about"`
	CreatedAt      time.Time `json:"-"`
}

// IsSystemAccount reports whether id belongs to one of the two reserved
// accounts that never receive human broadcasts.
func IsSystemAccount(id int) bool {
	return id == 1 || id == 2
}
