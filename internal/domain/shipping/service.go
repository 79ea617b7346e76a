// internal/domain/shipping/service.go
package shipping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// Locator scheme names as configured via SHIPPING_LOCATOR_SCHEME.
const (
	SchemePostalPrefix = "postal_prefix"
	SchemePincodeRange = "pincode_range"
)

// Pincodes outside this range are rejected before any lookup.
const (
	minPincode = 10000
	maxPincode = 999999
)

// Canadian postal code with the space stripped, e.g. V6B1A1.
var postalCodePattern = regexp.MustCompile(`^[A-Z]\d[A-Z]\d[A-Z]\d$`)

var nonDigitPattern = regexp.MustCompile(`\D`)

// Prefixes feed a LIKE match, so the charset is restricted to characters
// that cannot act as wildcards.
var postalPrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,3}$`)

// Service resolves shipping charges from the rule table and handles rule
// administration.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new shipping service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// NormalizePostalCode uppercases and strips whitespace, then validates the
// Canadian postal format. Returns a Validation error for anything else.
func NormalizePostalCode(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if !postalCodePattern.MatchString(cleaned) {
		return "", apperr.Newf(apperr.Validation, "invalid postal code %q", raw)
	}
	return cleaned, nil
}

// ParsePincode strips non-digits and validates the numeric pincode range.
func ParsePincode(raw string) (int, error) {
	digits := nonDigitPattern.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, apperr.Newf(apperr.Validation, "invalid pincode %q", raw)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < minPincode || n > maxPincode {
		return 0, apperr.Newf(apperr.Validation, "invalid pincode %q", raw)
	}
	return n, nil
}

// ComputeShipping resolves the shipping charge for a destination and order
// subtotal. locationKey is a raw postal code or pincode; it is normalized and
// validated according to the configured scheme before any lookup. No matching
// rule yields a zero charge with a nil AppliedRule.
func (s *Service) ComputeShipping(locationKey string, subtotal decimal.Decimal) (*Quote, error) {
	rule, err := s.resolveRule(locationKey)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return &Quote{Charge: decimal.Zero}, nil
	}

	if rule.WaivesChargeFor(subtotal) {
		return &Quote{Charge: decimal.Zero, AppliedRule: rule}, nil
	}
	return &Quote{Charge: rule.Charge, AppliedRule: rule}, nil
}

func (s *Service) resolveRule(locationKey string) (*ShippingRule, error) {
	switch s.config.Shipping.LocatorScheme {
	case SchemePincodeRange:
		pincode, err := ParsePincode(locationKey)
		if err != nil {
			return nil, err
		}
		return s.findRuleForPincode(pincode)
	default:
		postalCode, err := NormalizePostalCode(locationKey)
		if err != nil {
			return nil, err
		}
		return s.findRuleForPostalCode(postalCode)
	}
}

// findRuleForPostalCode selects the highest priority active rule whose prefix
// matches the start of the postal code. Ties on priority break on higher id.
func (s *Service) findRuleForPostalCode(postalCode string) (*ShippingRule, error) {
	var rule ShippingRule
	result := s.db.
		Where("is_active = ?", true).
		Where("postal_prefix IS NOT NULL AND postal_prefix <> ''").
		Where("? LIKE postal_prefix || '%'", postalCode).
		Order("priority DESC, id DESC").
		First(&rule)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve shipping rule: %w", result.Error)
	}
	return &rule, nil
}

// findRuleForPincode selects the highest priority active rule whose range
// contains the pincode. Ties on priority break on higher id.
func (s *Service) findRuleForPincode(pincode int) (*ShippingRule, error) {
	var rule ShippingRule
	result := s.db.
		Where("is_active = ?", true).
		Where("pincode_from IS NOT NULL AND pincode_to IS NOT NULL").
		Where("pincode_from <= ? AND pincode_to >= ?", pincode, pincode).
		Order("priority DESC, id DESC").
		First(&rule)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve shipping rule: %w", result.Error)
	}
	return &rule, nil
}

// Rule administration

// RuleListRequest represents rule list query parameters
type RuleListRequest struct {
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=50"`
	Search   string `form:"q"`
	IsActive *bool  `form:"is_active"`
}

// RuleCreateRequest represents rule creation data
type RuleCreateRequest struct {
	Name          string `json:"name"`
	PostalPrefix  string `json:"postal_prefix"`
	PincodeFrom   *int   `json:"pincode_from"`
	PincodeTo     *int   `json:"pincode_to"`
	Charge        string `json:"charge" binding:"required"`
	MinOrderValue string `json:"min_order_value"`
	Priority      int    `json:"priority"`
	IsActive      *bool  `json:"is_active"`
}

// RuleUpdateRequest represents rule update data
type RuleUpdateRequest struct {
	Name          *string `json:"name"`
	PostalPrefix  *string `json:"postal_prefix"`
	PincodeFrom   *int    `json:"pincode_from"`
	PincodeTo     *int    `json:"pincode_to"`
	Charge        *string `json:"charge"`
	MinOrderValue *string `json:"min_order_value"`
	Priority      *int    `json:"priority"`
	IsActive      *bool   `json:"is_active"`
}

// RuleListResponse represents paginated rules
type RuleListResponse struct {
	Rules []ShippingRule `json:"rules"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ListRules retrieves shipping rules for administration
func (s *Service) ListRules(req *RuleListRequest) (*RuleListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 500 {
		req.Limit = 50
	}

	var rules []ShippingRule
	var total int64

	query := s.db.Model(&ShippingRule{})
	if req.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(req.Search)+"%")
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count shipping rules: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("priority DESC, id DESC").Offset(offset).Limit(req.Limit).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve shipping rules: %w", err)
	}

	return &RuleListResponse{
		Rules: rules,
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
	}, nil
}

// GetRule retrieves a single shipping rule by ID
func (s *Service) GetRule(id uint) (*ShippingRule, error) {
	var rule ShippingRule
	result := s.db.Where("id = ?", id).First(&rule)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "shipping rule not found")
		}
		return nil, fmt.Errorf("failed to retrieve shipping rule: %w", result.Error)
	}
	return &rule, nil
}

// CreateRule creates a new shipping rule. The rule must carry either a postal
// prefix or a complete pincode range.
func (s *Service) CreateRule(req *RuleCreateRequest) (*ShippingRule, error) {
	charge, err := decimal.NewFromString(req.Charge)
	if err != nil || charge.IsNegative() {
		return nil, apperr.New(apperr.Validation, "charge must be a non-negative decimal")
	}

	rule := ShippingRule{
		Name:     req.Name,
		Charge:   charge,
		Priority: req.Priority,
		IsActive: true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if req.MinOrderValue != "" {
		mov, err := decimal.NewFromString(req.MinOrderValue)
		if err != nil || mov.IsNegative() {
			return nil, apperr.New(apperr.Validation, "min_order_value must be a non-negative decimal")
		}
		rule.MinOrderValue = &mov
	}

	hasPrefix := req.PostalPrefix != ""
	hasRange := req.PincodeFrom != nil && req.PincodeTo != nil
	switch {
	case hasPrefix && hasRange:
		return nil, apperr.New(apperr.Validation, "rule cannot carry both postal_prefix and pincode range")
	case hasPrefix:
		prefix, err := normalizePostalPrefix(req.PostalPrefix)
		if err != nil {
			return nil, err
		}
		rule.PostalPrefix = &prefix
		if rule.Name == "" {
			rule.Name = "Shipping: " + prefix
		}
	case hasRange:
		if err := validatePincodeRange(*req.PincodeFrom, *req.PincodeTo); err != nil {
			return nil, err
		}
		rule.PincodeFrom = req.PincodeFrom
		rule.PincodeTo = req.PincodeTo
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("Shipping: %d-%d", *req.PincodeFrom, *req.PincodeTo)
		}
	default:
		return nil, apperr.New(apperr.Validation, "rule requires a postal_prefix or a pincode range")
	}

	if err := s.db.Create(&rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create shipping rule: %w", err)
	}

	return &rule, nil
}

func normalizePostalPrefix(raw string) (string, error) {
	prefix := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if prefix == "" || len(prefix) > 3 {
		return "", apperr.New(apperr.Validation, "postal_prefix must be 1 to 3 characters")
	}
	if !postalPrefixPattern.MatchString(prefix) {
		return "", apperr.New(apperr.Validation, "postal_prefix must contain only letters and digits")
	}
	return prefix, nil
}

func validatePincodeRange(from, to int) error {
	if from < minPincode || to > maxPincode || from > to {
		return apperr.Newf(apperr.Validation, "pincode range must satisfy %d <= from <= to <= %d", minPincode, maxPincode)
	}
	return nil
}

// validateRuleLocator re-checks the cross-field rules on the rule as it
// would look after an update.
func validateRuleLocator(rule *ShippingRule) error {
	hasPrefix := rule.PostalPrefix != nil && *rule.PostalPrefix != ""
	hasRange := rule.PincodeFrom != nil || rule.PincodeTo != nil
	switch {
	case hasPrefix && hasRange:
		return apperr.New(apperr.Validation, "rule cannot carry both postal_prefix and pincode range")
	case hasPrefix:
		return nil
	case rule.PincodeFrom == nil || rule.PincodeTo == nil:
		return apperr.New(apperr.Validation, "rule requires a postal_prefix or a pincode range")
	}
	return validatePincodeRange(*rule.PincodeFrom, *rule.PincodeTo)
}

// UpdateRule updates an existing shipping rule
func (s *Service) UpdateRule(id uint, req *RuleUpdateRequest) (*ShippingRule, error) {
	rule, err := s.GetRule(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.PostalPrefix != nil {
		prefix, err := normalizePostalPrefix(*req.PostalPrefix)
		if err != nil {
			return nil, err
		}
		rule.PostalPrefix = &prefix
		updates["postal_prefix"] = prefix
	}
	if req.PincodeFrom != nil {
		rule.PincodeFrom = req.PincodeFrom
		updates["pincode_from"] = *req.PincodeFrom
	}
	if req.PincodeTo != nil {
		rule.PincodeTo = req.PincodeTo
		updates["pincode_to"] = *req.PincodeTo
	}
	if err := validateRuleLocator(rule); err != nil {
		return nil, err
	}
	if req.Charge != nil {
		charge, err := decimal.NewFromString(*req.Charge)
		if err != nil || charge.IsNegative() {
			return nil, apperr.New(apperr.Validation, "charge must be a non-negative decimal")
		}
		updates["charge"] = charge
	}
	if req.MinOrderValue != nil {
		if *req.MinOrderValue == "" {
			updates["min_order_value"] = nil
		} else {
			mov, err := decimal.NewFromString(*req.MinOrderValue)
			if err != nil || mov.IsNegative() {
				return nil, apperr.New(apperr.Validation, "min_order_value must be a non-negative decimal")
			}
			updates["min_order_value"] = mov
		}
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(rule).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update shipping rule: %w", err)
		}
	}

	return rule, nil
}

// DeleteRule soft deletes a shipping rule
func (s *Service) DeleteRule(id uint) error {
	result := s.db.Delete(&ShippingRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete shipping rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "shipping rule not found")
	}
	return nil
}
