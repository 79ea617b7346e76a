// internal/domain/user/address_service_test.go
package user

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

func newAddressService(t *testing.T) *AddressService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}, &Address{}))

	cfg := &config.Config{}
	cfg.Shipping.DefaultCountry = "CA"
	return NewAddressService(db, cfg)
}

func createTestAddress(t *testing.T, s *AddressService, userID uint, line1 string, isDefault bool) *Address {
	t.Helper()
	addr, err := s.CreateAddress(userID, &CreateAddressRequest{
		Name:       "Pat Doe",
		Line1:      line1,
		City:       "Vancouver",
		PostalCode: "V6B1A1",
		IsDefault:  isDefault,
	})
	require.NoError(t, err)
	return addr
}

func TestCreateAddressFirstBecomesDefault(t *testing.T) {
	s := newAddressService(t)

	first := createTestAddress(t, s, 1, "1 First St", false)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "CA", first.Country)

	second := createTestAddress(t, s, 1, "2 Second St", false)
	assert.False(t, second.IsDefault)
}

func TestCreateAddressNewDefaultDemotesOld(t *testing.T) {
	s := newAddressService(t)

	first := createTestAddress(t, s, 1, "1 First St", false)
	second := createTestAddress(t, s, 1, "2 Second St", true)
	assert.True(t, second.IsDefault)

	addresses, err := s.GetUserAddresses(1)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, second.ID, addresses[0].ID, "default listed first")
	for _, a := range addresses {
		if a.ID == first.ID {
			assert.False(t, a.IsDefault)
		}
	}
}

func TestDeleteDefaultPromotesOldest(t *testing.T) {
	s := newAddressService(t)

	first := createTestAddress(t, s, 1, "1 First St", false)
	second := createTestAddress(t, s, 1, "2 Second St", false)
	third := createTestAddress(t, s, 1, "3 Third St", false)

	require.NoError(t, s.DeleteAddress(1, first.ID))

	promoted, err := s.GetDefaultAddress(1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, promoted.ID)
	_ = third
}

func TestSetDefaultAddress(t *testing.T) {
	s := newAddressService(t)

	createTestAddress(t, s, 1, "1 First St", false)
	second := createTestAddress(t, s, 1, "2 Second St", false)

	updated, err := s.SetDefaultAddress(1, second.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	addresses, err := s.GetUserAddresses(1)
	require.NoError(t, err)
	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAddressOwnershipScoping(t *testing.T) {
	s := newAddressService(t)

	mine := createTestAddress(t, s, 1, "1 First St", false)

	_, err := s.GetAddress(2, mine.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	err = s.DeleteAddress(2, mine.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	line1 := "hacked"
	_, err = s.UpdateAddress(2, mine.ID, &UpdateAddressRequest{Line1: &line1})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestUpdateAddress(t *testing.T) {
	s := newAddressService(t)
	addr := createTestAddress(t, s, 1, "1 First St", false)

	line1 := "10 Moved Blvd"
	postal := "M5V2T6"
	updated, err := s.UpdateAddress(1, addr.ID, &UpdateAddressRequest{Line1: &line1, PostalCode: &postal})
	require.NoError(t, err)
	assert.Equal(t, "10 Moved Blvd", updated.Line1)
	assert.Equal(t, "M5V2T6", updated.PostalCode)
	assert.Equal(t, "Vancouver", updated.City)
}
