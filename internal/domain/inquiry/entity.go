// internal/domain/inquiry/entity.go
package inquiry

import "time"

// Inquiry is a contact-form submission from a prospective customer.
type Inquiry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanyName string    `gorm:"size:255" json:"company_name"`
	FullName    string    `gorm:"not null;size:255" json:"full_name"`
	Email       string    `gorm:"not null;size:255" json:"email"`
	Phone       string    `gorm:"size:50" json:"phone"`
	Message     string    `gorm:"type:text" json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides
func (Inquiry) TableName() string { return "inquiries" }
