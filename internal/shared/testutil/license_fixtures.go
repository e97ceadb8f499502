// Package testutil provides fixtures and log capture helpers for tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"braindock/internal/license"
)

// Canonical fixture values shared across test suites.
const (
	ValidTestKey    = "BD-AAAA-BBBB-CCCC-DDDD"
	TestSessionID   = "cs_test_123"
	TestPromoCode   = "LAUNCH100"
	TestBuyerEmail  = "buyer@example.com"
	EntitlementFile = "entitlement.json"
	KeysFile        = "license_keys.json"
)

// WriteKeyList writes a key list file in the modern format and returns its
// path.
func WriteKeyList(t *testing.T, dir string, keys ...string) string {
	t.Helper()

	if len(keys) == 0 {
		keys = []string{ValidTestKey}
	}
	data, err := json.Marshal(map[string][]string{"keys": keys})
	require.NoError(t, err)

	path := filepath.Join(dir, KeysFile)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WriteLegacyKeyList writes a key list file in the legacy bare-array format.
func WriteLegacyKeyList(t *testing.T, dir string, keys ...string) string {
	t.Helper()

	data, err := json.Marshal(keys)
	require.NoError(t, err)

	path := filepath.Join(dir, KeysFile)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WriteEntitlement persists a checksummed record and returns the file path.
func WriteEntitlement(t *testing.T, dir string, rec license.Record) string {
	t.Helper()

	data, err := json.MarshalIndent(rec.Stamped(), "", "  ")
	require.NoError(t, err)

	path := filepath.Join(dir, EntitlementFile)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
