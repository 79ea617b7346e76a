// internal/domain/shipping/service_test.go
package shipping

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

func newTestService(t *testing.T, scheme string) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&ShippingRule{}))

	cfg := &config.Config{}
	cfg.Shipping.LocatorScheme = scheme
	cfg.Shipping.DefaultCountry = "CA"

	return NewService(db, cfg)
}

func mustCreateRule(t *testing.T, s *Service, req *RuleCreateRequest) *ShippingRule {
	t.Helper()
	rule, err := s.CreateRule(req)
	require.NoError(t, err)
	return rule
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func intPtr(n int) *int { return &n }

func TestNormalizePostalCode(t *testing.T) {
	valid := map[string]string{
		"V6B1A1":    "V6B1A1",
		"v6b 1a1":   "V6B1A1",
		" v6B 1a1 ": "V6B1A1",
		"m5v\t2t6":  "M5V2T6",
	}
	for raw, want := range valid {
		got, err := NormalizePostalCode(raw)
		require.NoError(t, err, "postal code %q", raw)
		assert.Equal(t, want, got)
	}

	invalid := []string{"", "12345", "V6B1A", "V6B1A1X", "V6B-1A1", "VVV111"}
	for _, raw := range invalid {
		_, err := NormalizePostalCode(raw)
		require.Error(t, err, "postal code %q", raw)
		assert.True(t, apperr.IsKind(err, apperr.Validation))
	}
}

func TestParsePincode(t *testing.T) {
	got, err := ParsePincode("560001")
	require.NoError(t, err)
	assert.Equal(t, 560001, got)

	got, err = ParsePincode("560-001")
	require.NoError(t, err)
	assert.Equal(t, 560001, got)

	got, err = ParsePincode("10000")
	require.NoError(t, err)
	assert.Equal(t, 10000, got)

	for _, raw := range []string{"", "abc", "9999", "1000000"} {
		_, err := ParsePincode(raw)
		require.Error(t, err, "pincode %q", raw)
		assert.True(t, apperr.IsKind(err, apperr.Validation))
	}
}

func TestComputeShippingPrefixPriority(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)

	mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V", Charge: "20.00", Priority: 0})
	specific := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "15.00", Priority: 1})

	quote, err := s.ComputeShipping("v6b 1a1", dec(t, "50.00"))
	require.NoError(t, err)
	require.NotNil(t, quote.AppliedRule)
	assert.Equal(t, specific.ID, quote.AppliedRule.ID)
	assert.True(t, quote.Charge.Equal(dec(t, "15.00")), "charge %s", quote.Charge)
}

func TestComputeShippingPrefixTieBreaksOnNewerRule(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)

	mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "15.00", Priority: 5})
	newer := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "12.00", Priority: 5})

	quote, err := s.ComputeShipping("V6B1A1", dec(t, "50.00"))
	require.NoError(t, err)
	require.NotNil(t, quote.AppliedRule)
	assert.Equal(t, newer.ID, quote.AppliedRule.ID)
}

func TestComputeShippingWaiverThreshold(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)
	mustCreateRule(t, s, &RuleCreateRequest{
		PostalPrefix:  "V",
		Charge:        "15.00",
		MinOrderValue: "100.00",
	})

	// At the threshold the charge is waived but the rule is still applied.
	quote, err := s.ComputeShipping("V6B1A1", dec(t, "100.00"))
	require.NoError(t, err)
	require.NotNil(t, quote.AppliedRule)
	assert.True(t, quote.Charge.IsZero(), "charge %s", quote.Charge)

	quote, err = s.ComputeShipping("V6B1A1", dec(t, "99.99"))
	require.NoError(t, err)
	require.NotNil(t, quote.AppliedRule)
	assert.True(t, quote.Charge.Equal(dec(t, "15.00")), "charge %s", quote.Charge)
}

func TestComputeShippingNoMatch(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)
	mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "M", Charge: "8.00"})

	quote, err := s.ComputeShipping("V6B1A1", dec(t, "50.00"))
	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRule)
	assert.True(t, quote.Charge.IsZero())
}

func TestComputeShippingInvalidLocationKey(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)

	_, err := s.ComputeShipping("12345", dec(t, "50.00"))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestComputeShippingIgnoresInactiveRules(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)

	inactive := false
	mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "15.00", Priority: 9, IsActive: &inactive})
	fallback := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V", Charge: "20.00"})

	quote, err := s.ComputeShipping("V6B1A1", dec(t, "50.00"))
	require.NoError(t, err)
	require.NotNil(t, quote.AppliedRule)
	assert.Equal(t, fallback.ID, quote.AppliedRule.ID)
}

func TestComputeShippingPincodeRange(t *testing.T) {
	s := newTestService(t, SchemePincodeRange)
	mustCreateRule(t, s, &RuleCreateRequest{
		PincodeFrom: intPtr(560000),
		PincodeTo:   intPtr(560100),
		Charge:      "30.00",
	})

	for _, key := range []string{"560000", "560050", "560100", "560-100"} {
		quote, err := s.ComputeShipping(key, dec(t, "50.00"))
		require.NoError(t, err, "pincode %s", key)
		require.NotNil(t, quote.AppliedRule, "pincode %s", key)
		assert.True(t, quote.Charge.Equal(dec(t, "30.00")))
	}

	quote, err := s.ComputeShipping("560101", dec(t, "50.00"))
	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRule)
	assert.True(t, quote.Charge.IsZero())
}

func TestCreateRuleValidation(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)

	cases := map[string]*RuleCreateRequest{
		"no locator":      {Charge: "10.00"},
		"both locators":   {PostalPrefix: "V6", PincodeFrom: intPtr(560000), PincodeTo: intPtr(560100), Charge: "10.00"},
		"prefix too long": {PostalPrefix: "V6B1", Charge: "10.00"},
		"bad charge":      {PostalPrefix: "V6", Charge: "ten"},
		"negative charge": {PostalPrefix: "V6", Charge: "-1.00"},
		"negative waiver": {PostalPrefix: "V6", Charge: "10.00", MinOrderValue: "-5"},
		"inverted range":  {PincodeFrom: intPtr(560100), PincodeTo: intPtr(560000), Charge: "10.00"},
		"range too low":   {PincodeFrom: intPtr(9999), PincodeTo: intPtr(560000), Charge: "10.00"},
		"wildcard prefix": {PostalPrefix: "V%", Charge: "10.00"},
		"underscore":      {PostalPrefix: "V_", Charge: "10.00"},
	}
	for name, req := range cases {
		_, err := s.CreateRule(req)
		require.Error(t, err, name)
		assert.True(t, apperr.IsKind(err, apperr.Validation), name)
	}
}

func TestCreateRuleDefaultsName(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)

	rule := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "v6 ", Charge: "10.00"})
	assert.Equal(t, "Shipping: V6", rule.Name)
	require.NotNil(t, rule.PostalPrefix)
	assert.Equal(t, "V6", *rule.PostalPrefix)

	ranged := mustCreateRule(t, s, &RuleCreateRequest{PincodeFrom: intPtr(560000), PincodeTo: intPtr(560100), Charge: "10.00"})
	assert.Equal(t, "Shipping: 560000-560100", ranged.Name)
}

func TestUpdateRule(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)
	rule := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "15.00"})

	charge := "18.50"
	inactive := false
	_, err := s.UpdateRule(rule.ID, &RuleUpdateRequest{Charge: &charge, IsActive: &inactive})
	require.NoError(t, err)

	stored, err := s.GetRule(rule.ID)
	require.NoError(t, err)
	assert.True(t, stored.Charge.Equal(dec(t, "18.50")), "charge %s", stored.Charge)
	assert.False(t, stored.IsActive)

	badCharge := "-2"
	_, err = s.UpdateRule(rule.ID, &RuleUpdateRequest{Charge: &badCharge})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestUpdateRuleRevalidatesLocator(t *testing.T) {
	s := newTestService(t, SchemePincodeRange)
	ranged := mustCreateRule(t, s, &RuleCreateRequest{PincodeFrom: intPtr(560000), PincodeTo: intPtr(560100), Charge: "10.00"})

	// Moving one bound must not invert the range.
	_, err := s.UpdateRule(ranged.ID, &RuleUpdateRequest{PincodeFrom: intPtr(560200)})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = s.UpdateRule(ranged.ID, &RuleUpdateRequest{PincodeTo: intPtr(560050)})
	require.NoError(t, err)

	// A ranged rule cannot gain a prefix, nor a prefix rule a range.
	prefix := "V6"
	_, err = s.UpdateRule(ranged.ID, &RuleUpdateRequest{PostalPrefix: &prefix})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	prefixed := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "10.00"})
	_, err = s.UpdateRule(prefixed.ID, &RuleUpdateRequest{PincodeFrom: intPtr(560000), PincodeTo: intPtr(560100)})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	wildcard := "V%"
	_, err = s.UpdateRule(prefixed.ID, &RuleUpdateRequest{PostalPrefix: &wildcard})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	stored, err := s.GetRule(ranged.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PincodeTo)
	assert.Equal(t, 560050, *stored.PincodeTo)
	assert.Nil(t, stored.PostalPrefix)
}

func TestDeleteRule(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)
	rule := mustCreateRule(t, s, &RuleCreateRequest{PostalPrefix: "V6", Charge: "15.00"})

	require.NoError(t, s.DeleteRule(rule.ID))

	_, err := s.GetRule(rule.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	// Soft-deleted rules no longer match.
	quote, err := s.ComputeShipping("V6B1A1", dec(t, "50.00"))
	require.NoError(t, err)
	assert.Nil(t, quote.AppliedRule)

	err = s.DeleteRule(rule.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestListRulesFilters(t *testing.T) {
	s := newTestService(t, SchemePostalPrefix)
	mustCreateRule(t, s, &RuleCreateRequest{Name: "Vancouver core", PostalPrefix: "V6", Charge: "15.00", Priority: 2})
	inactive := false
	mustCreateRule(t, s, &RuleCreateRequest{Name: "Vancouver wide", PostalPrefix: "V", Charge: "20.00", IsActive: &inactive})

	resp, err := s.ListRules(&RuleListRequest{Search: "vancouver"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)

	active := true
	resp, err = s.ListRules(&RuleListRequest{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, resp.Rules, 1)
	assert.Equal(t, "Vancouver core", resp.Rules[0].Name)
}
