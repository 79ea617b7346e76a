// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Email            string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password         string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	FirstName        string         `gorm:"size:100" json:"first_name"`
	LastName         string         `gorm:"size:100" json:"last_name"`
	Phone            string         `gorm:"size:20" json:"phone"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	IsAdmin          bool           `gorm:"default:false" json:"is_admin"`
	EmailVerified    bool           `gorm:"default:false" json:"email_verified"`
	StripeCustomerID string         `gorm:"size:255" json:"-"` // Gateway customer reference
	LastLoginAt      *time.Time     `json:"last_login_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Addresses []Address `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"addresses,omitempty"`
}

// Address represents a saved delivery address. The default address is the
// fallback shipping destination at checkout; ties break on lowest id.
type Address struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Name       string    `gorm:"size:255" json:"name"`
	Phone      string    `gorm:"size:50" json:"phone"`
	Line1      string    `gorm:"size:255;not null" json:"line1"`
	Line2      string    `gorm:"size:255" json:"line2"`
	City       string    `gorm:"size:100" json:"city"`
	State      string    `gorm:"size:100" json:"state"`
	PostalCode string    `gorm:"size:20" json:"postal_code"`
	Country    string    `gorm:"size:2;default:'CA'" json:"country"`
	IsDefault  bool      `gorm:"default:false;index" json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// GetDisplayName returns display name (full name or email)
func (u *User) GetDisplayName() string {
	fullName := u.GetFullName()
	if fullName != "" {
		return fullName
	}
	return u.Email
}
