// internal/domain/inquiry/service.go
package inquiry

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// Service handles inquiry business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new inquiry service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInquiryRequest represents inquiry submission data
type CreateInquiryRequest struct {
	CompanyName string `json:"company_name"`
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
}

// CreateInquiry stores a contact-form submission
func (s *Service) CreateInquiry(req *CreateInquiryRequest) (*Inquiry, error) {
	inq := Inquiry{
		CompanyName: req.CompanyName,
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		Message:     req.Message,
	}

	if err := s.db.Create(&inq).Error; err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}
	return &inq, nil
}

// ListInquiries returns all inquiries, newest first
func (s *Service) ListInquiries() ([]Inquiry, error) {
	var inquiries []Inquiry
	if err := s.db.Order("created_at DESC").Find(&inquiries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve inquiries: %w", err)
	}
	return inquiries, nil
}

// GetInquiry retrieves a single inquiry by ID
func (s *Service) GetInquiry(id uint) (*Inquiry, error) {
	var inq Inquiry
	result := s.db.Where("id = ?", id).First(&inq)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "inquiry not found")
		}
		return nil, fmt.Errorf("failed to retrieve inquiry: %w", result.Error)
	}
	return &inq, nil
}

// DeleteInquiry removes an inquiry
func (s *Service) DeleteInquiry(id uint) error {
	result := s.db.Delete(&Inquiry{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete inquiry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "inquiry not found")
	}
	return nil
}
