package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "braindock/internal/errors"
	"braindock/internal/license"
)

// mockManager is a hand-rolled test double for license.ManagerInterface.
type mockManager struct {
	info      license.Info
	storePath string

	keyValid bool
	saveErr  error

	activatedKey     string
	confirmedSession string
	redeemedPromo    string
	revoked          bool
}

func (m *mockManager) ActivateWithHostedPayment(ctx context.Context, sessionID, paymentReference, email string) error {
	m.confirmedSession = sessionID
	return m.saveErr
}

func (m *mockManager) ActivateWithKey(ctx context.Context, key string) (bool, error) {
	if m.saveErr != nil {
		return false, m.saveErr
	}
	m.activatedKey = key
	return m.keyValid, nil
}

func (m *mockManager) ActivateWithPromo(ctx context.Context, sessionID, promoCode, email string) error {
	m.redeemedPromo = promoCode
	return m.saveErr
}

func (m *mockManager) Revoke(ctx context.Context) error {
	m.revoked = true
	return m.saveErr
}

func (m *mockManager) IsLicensed() bool                      { return m.info.Licensed }
func (m *mockManager) LicenseType() license.ActivationMethod { return m.info.Type }
func (m *mockManager) LicenseInfo() license.Info             { return m.info }
func (m *mockManager) StorePath() string                     { return m.storePath }

func (m *mockManager) ActivationDate() *time.Time {
	if m.info.ActivatedAt == nil {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, *m.info.ActivatedAt)
	if err != nil {
		return nil
	}
	return &ts
}

func TestGetStatusUnlicensed(t *testing.T) {
	svc := NewLicenseService(&mockManager{
		info: license.Info{Licensed: false, Type: license.MethodNone},
	}, nil)

	resp, err := svc.GetStatus(context.Background())
	require.NoError(t, err)

	assert.False(t, resp.Licensed)
	assert.Equal(t, "not_activated", resp.LicenseStatus)
	assert.Equal(t, "none", resp.Method)
	assert.Nil(t, resp.ActivatedAt)
	assert.Nil(t, resp.Email)
}

func TestGetStatusLicensed(t *testing.T) {
	activated := "2026-03-01T10:00:00Z"
	email := "buyer@example.com"
	svc := NewLicenseService(&mockManager{
		info: license.Info{
			Licensed:    true,
			Type:        license.MethodHostedPayment,
			ActivatedAt: &activated,
			Email:       &email,
		},
	}, nil)

	resp, err := svc.GetStatus(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Licensed)
	assert.Equal(t, "active", resp.LicenseStatus)
	assert.Equal(t, "hosted_payment", resp.Method)
	require.NotNil(t, resp.ActivatedAt)
	assert.Equal(t, activated, *resp.ActivatedAt)
	require.NotNil(t, resp.Email)
	assert.Equal(t, email, *resp.Email)
}

func TestActivateWithKey(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		mgr := &mockManager{keyValid: true}
		svc := NewLicenseService(mgr, nil)

		require.NoError(t, svc.ActivateWithKey(context.Background(), "BD-AAAA-BBBB-CCCC-DDDD"))
		assert.Equal(t, "BD-AAAA-BBBB-CCCC-DDDD", mgr.activatedKey)
	})

	t.Run("invalid key maps to sentinel", func(t *testing.T) {
		svc := NewLicenseService(&mockManager{keyValid: false}, nil)

		err := svc.ActivateWithKey(context.Background(), "BD-NOPE-NOPE-NOPE-NOPE")
		assert.ErrorIs(t, err, apierrors.ErrInvalidLicenseKey)
	})

	t.Run("save failure maps to persistence sentinel", func(t *testing.T) {
		svc := NewLicenseService(&mockManager{keyValid: true, saveErr: fmt.Errorf("disk full")}, nil)

		err := svc.ActivateWithKey(context.Background(), "BD-AAAA-BBBB-CCCC-DDDD")
		assert.ErrorIs(t, err, apierrors.ErrPersistenceFailure)
	})
}

func TestConfirmPayment(t *testing.T) {
	mgr := &mockManager{}
	svc := NewLicenseService(mgr, nil)

	require.NoError(t, svc.ConfirmPayment(context.Background(), "cs_test_123", "pi_001", "buyer@example.com"))
	assert.Equal(t, "cs_test_123", mgr.confirmedSession)
}

func TestRedeemPromo(t *testing.T) {
	mgr := &mockManager{}
	svc := NewLicenseService(mgr, nil)

	require.NoError(t, svc.RedeemPromo(context.Background(), "cs_test_123", "LAUNCH100", ""))
	assert.Equal(t, "LAUNCH100", mgr.redeemedPromo)
}

func TestRevoke(t *testing.T) {
	mgr := &mockManager{}
	svc := NewLicenseService(mgr, nil)

	require.NoError(t, svc.Revoke(context.Background()))
	assert.True(t, mgr.revoked)

	svc = NewLicenseService(&mockManager{saveErr: errors.New("read-only fs")}, nil)
	assert.ErrorIs(t, svc.Revoke(context.Background()), apierrors.ErrPersistenceFailure)
}

func TestGetDebugInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entitlement.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"licensed":false}`), 0o600))

	svc := NewLicenseService(&mockManager{
		info:      license.Info{Licensed: true, Type: license.MethodLicenseKey},
		storePath: path,
	}, nil)

	info, err := svc.GetDebugInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, path, info.FilePath)
	assert.True(t, info.FileExists)
	assert.True(t, info.IsReadable)
	assert.Greater(t, info.FileSize, int64(0))
	assert.Equal(t, "active", info.LicenseStatus)
	assert.Equal(t, "license_key", info.Method)
}

func TestGetDebugInfoMissingFile(t *testing.T) {
	svc := NewLicenseService(&mockManager{
		info:      license.Info{Licensed: false, Type: license.MethodNone},
		storePath: filepath.Join(t.TempDir(), "missing.json"),
	}, nil)

	info, err := svc.GetDebugInfo(context.Background())
	require.NoError(t, err)

	assert.False(t, info.FileExists)
	assert.False(t, info.IsReadable)
	assert.Equal(t, "not_activated", info.LicenseStatus)
}
