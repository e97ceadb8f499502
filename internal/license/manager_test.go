package license

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ManagerTestSuite struct {
	suite.Suite
	tempDir         string
	entitlementFile string
	keysFile        string
	ctx             context.Context
}

func (s *ManagerTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.entitlementFile = filepath.Join(s.tempDir, "entitlement.json")
	s.keysFile = filepath.Join(s.tempDir, "license_keys.json")
	s.ctx = context.Background()

	err := os.WriteFile(s.keysFile, []byte(`{"keys": ["BD-AAAA-BBBB-CCCC-DDDD"]}`), 0o600)
	s.Require().NoError(err)
}

func (s *ManagerTestSuite) newManager() *Manager {
	store := NewStore(s.entitlementFile, nil)
	keys := NewKeyValidator(s.keysFile, nil)
	return NewManager(s.ctx, store, keys, nil)
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) TestFreshStoreIsUnlicensed() {
	m := s.newManager()

	s.False(m.IsLicensed())
	s.Equal(MethodNone, m.LicenseType())
	s.Nil(m.ActivationDate())

	info := m.LicenseInfo()
	s.False(info.Licensed)
	s.Nil(info.ActivatedAt)
	s.Nil(info.Email)
}

func (s *ManagerTestSuite) TestHostedPaymentLifecycle() {
	m := s.newManager()

	s.Require().NoError(m.ActivateWithHostedPayment(s.ctx, "cs_test_123", "", ""))
	s.True(m.IsLicensed())
	s.Equal(MethodHostedPayment, m.LicenseType())
	s.NotNil(m.ActivationDate())

	s.Require().NoError(m.Revoke(s.ctx))
	s.False(m.IsLicensed())
	s.Equal(MethodNone, m.LicenseType())
}

func (s *ManagerTestSuite) TestActivateWithKey() {
	// Subtests share the suite instance, so each one gets fresh files.
	s.Run("valid key succeeds regardless of case and whitespace", func() {
		for _, key := range []string{"bd-aaaa-bbbb-cccc-dddd", " BD-AAAA-BBBB-CCCC-DDDD "} {
			s.SetupTest()
			m := s.newManager()
			ok, err := m.ActivateWithKey(s.ctx, key)
			require.NoError(s.T(), err)
			require.True(s.T(), ok, "key %q", key)
			s.True(m.IsLicensed())
			s.Equal(MethodLicenseKey, m.LicenseType())
		}
	})

	s.Run("invalid key fails and leaves state untouched", func() {
		s.SetupTest()
		m := s.newManager()
		ok, err := m.ActivateWithKey(s.ctx, "BD-0000-0000-0000-0000")
		s.Require().NoError(err)
		s.False(ok)
		s.False(m.IsLicensed())

		// Persisted state untouched as well.
		s.False(s.newManager().IsLicensed())
	})

	s.Run("stored key is normalized", func() {
		s.SetupTest()
		m := s.newManager()
		ok, err := m.ActivateWithKey(s.ctx, "  bd-aaaa-bbbb-cccc-dddd ")
		s.Require().NoError(err)
		s.Require().True(ok)

		rec := NewStore(s.entitlementFile, nil).Load(s.ctx)
		s.Require().NotNil(rec.LicenseKey)
		s.Equal("BD-AAAA-BBBB-CCCC-DDDD", *rec.LicenseKey)
	})
}

func (s *ManagerTestSuite) TestEmptyKeySetRejectsEverything() {
	s.Require().NoError(os.Remove(s.keysFile))
	m := s.newManager()

	ok, err := m.ActivateWithKey(s.ctx, "BD-AAAA-BBBB-CCCC-DDDD")
	s.Require().NoError(err)
	s.False(ok)
	s.False(m.IsLicensed())
}

func (s *ManagerTestSuite) TestActivateWithPromo() {
	m := s.newManager()

	s.Require().NoError(m.ActivateWithPromo(s.ctx, "cs_test_456", "LAUNCH50", "promo@example.com"))
	s.True(m.IsLicensed())
	s.Equal(MethodPromoCode, m.LicenseType())

	rec := NewStore(s.entitlementFile, nil).Load(s.ctx)
	s.Require().NotNil(rec.LicenseKey)
	s.Equal("LAUNCH50", *rec.LicenseKey, "promo code held in the license key field")
	s.Require().NotNil(rec.Email)
	s.Equal("promo@example.com", *rec.Email)
}

func (s *ManagerTestSuite) TestActivationReplacesRecordWholesale() {
	m := s.newManager()

	s.Require().NoError(m.ActivateWithHostedPayment(s.ctx, "cs_test_123", "pi_789", "user@example.com"))

	ok, err := m.ActivateWithKey(s.ctx, "BD-AAAA-BBBB-CCCC-DDDD")
	s.Require().NoError(err)
	s.Require().True(ok)

	rec := NewStore(s.entitlementFile, nil).Load(s.ctx)
	s.Equal(MethodLicenseKey, rec.ActivationMethod)
	s.Nil(rec.CheckoutSessionID, "payment fields cleared by whole-record replacement")
	s.Nil(rec.PaymentReference)
	s.Nil(rec.Email)
}

func (s *ManagerTestSuite) TestRevokeIsIdempotent() {
	m := s.newManager()
	s.Require().NoError(m.ActivateWithHostedPayment(s.ctx, "cs_test_123", "", ""))

	s.Require().NoError(m.Revoke(s.ctx))
	s.Require().NoError(m.Revoke(s.ctx))
	s.False(m.IsLicensed())

	rec := NewStore(s.entitlementFile, nil).Load(s.ctx)
	s.False(rec.Licensed)
	s.Equal(MethodNone, rec.ActivationMethod)
}

func (s *ManagerTestSuite) TestEntitlementSurvivesRestart() {
	m := s.newManager()
	s.Require().NoError(m.ActivateWithHostedPayment(s.ctx, "cs_test_123", "pi_789", "user@example.com"))

	restarted := s.newManager()
	s.True(restarted.IsLicensed())
	s.Equal(MethodHostedPayment, restarted.LicenseType())

	info := restarted.LicenseInfo()
	s.Require().NotNil(info.Email)
	s.Equal("user@example.com", *info.Email)
}

func (s *ManagerTestSuite) TestTamperedFileLoadsUnlicensed() {
	m := s.newManager()
	s.Require().NoError(m.ActivateWithHostedPayment(s.ctx, "cs_test_123", "", ""))

	data, err := os.ReadFile(s.entitlementFile)
	s.Require().NoError(err)
	forged := strings.Replace(string(data), "cs_test_123", "cs_forged_999", 1)
	s.Require().NoError(os.WriteFile(s.entitlementFile, []byte(forged), 0o600))

	s.False(s.newManager().IsLicensed())
}

func (s *ManagerTestSuite) TestSaveFailureKeepsInMemoryTransition() {
	// Break persistence by replacing the entitlement file with a directory.
	m := s.newManager()
	s.Require().NoError(os.MkdirAll(s.entitlementFile, 0o755))

	err := m.ActivateWithHostedPayment(s.ctx, "cs_test_123", "", "")
	s.Error(err, "save must report the persistence failure")
	s.True(m.IsLicensed(), "in-memory transition happens regardless")
}
