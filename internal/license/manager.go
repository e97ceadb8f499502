package license

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Info is the read-only entitlement summary exposed for display.
type Info struct {
	Licensed    bool             `json:"licensed"`
	Type        ActivationMethod `json:"type"`
	ActivatedAt *string          `json:"activated_at,omitempty"`
	Email       *string          `json:"email,omitempty"`
}

// ManagerInterface defines the manager surface consumed by the service
// layer, enabling mocking in tests.
type ManagerInterface interface {
	ActivateWithHostedPayment(ctx context.Context, sessionID, paymentReference, email string) error
	ActivateWithKey(ctx context.Context, key string) (bool, error)
	ActivateWithPromo(ctx context.Context, sessionID, promoCode, email string) error
	Revoke(ctx context.Context) error

	IsLicensed() bool
	LicenseType() ActivationMethod
	LicenseInfo() Info
	ActivationDate() *time.Time
	StorePath() string
}

// Manager owns the live entitlement record and drives the activation state
// machine over it. The state machine has two states, Unlicensed and
// Licensed; every successful activation replaces the record wholesale and
// Revoke resets it to the default.
//
// The record is guarded by a mutex so the HTTP surface may call the manager
// from concurrent requests. Persistence remains last-writer-wins: callers
// needing stronger ordering must serialize access themselves.
type Manager struct {
	store   *Store
	keys    *KeyValidator
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.RWMutex
	record Record
}

var _ ManagerInterface = (*Manager)(nil)

// NewManager creates a manager over the given store and key validator,
// loading the current record immediately. A tampered or unreadable file
// surfaces here as the default unlicensed record.
func NewManager(ctx context.Context, store *Store, keys *KeyValidator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:  store,
		keys:   keys,
		logger: logger.With(slog.String("component", "license_manager")),
	}
	m.record = store.Load(ctx)

	m.logInfo(ctx, "manager_initialization", "license manager initialized",
		slog.String("entitlement_path", store.Path()),
		slog.Bool("licensed", m.record.Licensed),
		slog.String("activation_method", string(m.record.ActivationMethod)),
	)
	return m
}

// SetMetrics attaches OpenTelemetry counters to the manager.
func (m *Manager) SetMetrics(metrics *Metrics) {
	m.metrics = metrics
}

// ActivateWithHostedPayment transitions to Licensed after a confirmed
// hosted-payment checkout. It always succeeds: the payment provider is
// trusted to have verified payment before this call. The returned error is
// the persistence outcome only; the in-memory transition has already
// happened when it is non-nil.
func (m *Manager) ActivateWithHostedPayment(ctx context.Context, sessionID, paymentReference, email string) error {
	rec := NewHostedPaymentRecord(sessionID, paymentReference, email, time.Now())
	err := m.replace(ctx, rec)

	m.logInfo(ctx, "activation", "license activated via hosted payment",
		slog.String("session_id", truncateID(sessionID)),
		slog.Bool("has_payment_reference", paymentReference != ""),
		slog.Bool("has_email", email != ""),
		slog.Bool("persisted", err == nil),
	)
	m.metrics.recordActivation(ctx, MethodHostedPayment, true)
	return err
}

// ActivateWithKey validates the key against the distributed key set and, on
// a hit, transitions to Licensed. On a miss it returns (false, nil) and
// leaves both the in-memory and persisted state untouched.
func (m *Manager) ActivateWithKey(ctx context.Context, key string) (bool, error) {
	normalized := NormalizeKey(key)
	if !m.keys.IsValid(ctx, normalized) {
		m.logWarn(ctx, "activation", "invalid license key attempted",
			slog.String("license_key_masked", maskKey(normalized)),
			slog.String("license_key_hash", hashKey(normalized)),
		)
		m.metrics.recordActivation(ctx, MethodLicenseKey, false)
		return false, nil
	}

	rec := NewLicenseKeyRecord(normalized, time.Now())
	err := m.replace(ctx, rec)

	m.logInfo(ctx, "activation", "license activated via license key",
		slog.String("license_key_masked", maskKey(normalized)),
		slog.String("license_key_hash", hashKey(normalized)),
		slog.Bool("persisted", err == nil),
	)
	m.metrics.recordActivation(ctx, MethodLicenseKey, true)
	return true, err
}

// ActivateWithPromo transitions to Licensed after a promo redemption
// confirmed by the checkout provider. Same unconditional contract as
// ActivateWithHostedPayment; the promo code is stored in the license_key
// field.
func (m *Manager) ActivateWithPromo(ctx context.Context, sessionID, promoCode, email string) error {
	rec := NewPromoRecord(sessionID, promoCode, email, time.Now())
	err := m.replace(ctx, rec)

	m.logInfo(ctx, "activation", "license activated via promo code",
		slog.String("session_id", truncateID(sessionID)),
		slog.String("promo_code_hash", hashKey(promoCode)),
		slog.Bool("has_email", email != ""),
		slog.Bool("persisted", err == nil),
	)
	m.metrics.recordActivation(ctx, MethodPromoCode, true)
	return err
}

// Revoke resets the entitlement to the default unlicensed record and
// persists it. It is idempotent; the in-memory transition always happens
// and a save failure is reported through the returned error only.
func (m *Manager) Revoke(ctx context.Context) error {
	err := m.replace(ctx, DefaultRecord())

	m.logInfo(ctx, "revocation", "license revoked",
		slog.Bool("persisted", err == nil),
	)
	m.metrics.recordRevocation(ctx)
	return err
}

// IsLicensed reports whether the installation is currently entitled.
func (m *Manager) IsLicensed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record.Licensed
}

// LicenseType returns the activation method of the current record, or
// MethodNone when unlicensed.
func (m *Manager) LicenseType() ActivationMethod {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.record.Licensed {
		return MethodNone
	}
	return m.record.ActivationMethod
}

// LicenseInfo returns the display summary of the current entitlement.
func (m *Manager) LicenseInfo() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Info{
		Licensed:    m.record.Licensed,
		Type:        m.record.ActivationMethod,
		ActivatedAt: m.record.ActivatedAt,
		Email:       m.record.Email,
	}
}

// ActivationDate returns the parsed activation timestamp, or nil if unset
// or unparsable.
func (m *Manager) ActivationDate() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record.ActivationTime()
}

// StorePath returns the entitlement file path, for diagnostics.
func (m *Manager) StorePath() string {
	return m.store.Path()
}

// replace swaps in the new record and persists it under one critical
// section. The in-memory swap is unconditional; only the save outcome is
// returned.
func (m *Manager) replace(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = rec
	return m.store.Save(ctx, rec)
}

// truncateID shortens provider session identifiers for logging.
func truncateID(id string) string {
	if len(id) <= 20 {
		return id
	}
	return id[:20] + "..."
}
