package license

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// ActivationMethod identifies the path by which entitlement was granted.
type ActivationMethod string

// Supported activation methods.
const (
	MethodNone          ActivationMethod = "none"
	MethodHostedPayment ActivationMethod = "hosted_payment"
	MethodLicenseKey    ActivationMethod = "license_key"
	MethodPromoCode     ActivationMethod = "promo_code"
)

// checksumLength is the number of hex characters kept from the SHA-256
// digest when stamping a record.
const checksumLength = 16

// Record is the persisted entitlement state. Exactly one Record is live in
// memory per process, owned by the Manager. Activation replaces the whole
// value; fields are never mutated piecemeal.
type Record struct {
	Licensed          bool             `json:"licensed"`
	ActivationMethod  ActivationMethod `json:"activation_method"`
	CheckoutSessionID *string          `json:"checkout_session_id"`
	PaymentReference  *string          `json:"payment_reference"`
	LicenseKey        *string          `json:"license_key"`
	ActivatedAt       *string          `json:"activated_at"`
	Email             *string          `json:"email"`
	Checksum          string           `json:"checksum,omitempty"`
}

// DefaultRecord returns the canonical unlicensed record.
func DefaultRecord() Record {
	return Record{
		Licensed:         false,
		ActivationMethod: MethodNone,
	}
}

// NewHostedPaymentRecord builds a fully populated licensed record for a
// confirmed hosted-payment checkout. The caller (webhook handler or CLI) is
// trusted to have verified the payment before constructing this record.
func NewHostedPaymentRecord(sessionID, paymentReference, email string, now time.Time) Record {
	return Record{
		Licensed:          true,
		ActivationMethod:  MethodHostedPayment,
		CheckoutSessionID: optional(sessionID),
		PaymentReference:  optional(paymentReference),
		ActivatedAt:       optional(now.UTC().Format(time.RFC3339)),
		Email:             optional(email),
	}
}

// NewLicenseKeyRecord builds a licensed record for a validated key. The key
// must already be normalized; see NormalizeKey.
func NewLicenseKeyRecord(normalizedKey string, now time.Time) Record {
	return Record{
		Licensed:         true,
		ActivationMethod: MethodLicenseKey,
		LicenseKey:       optional(normalizedKey),
		ActivatedAt:      optional(now.UTC().Format(time.RFC3339)),
	}
}

// NewPromoRecord builds a licensed record for a promo redemption confirmed
// by the checkout provider. The license_key field holds the promo code.
func NewPromoRecord(sessionID, promoCode, email string, now time.Time) Record {
	return Record{
		Licensed:          true,
		ActivationMethod:  MethodPromoCode,
		CheckoutSessionID: optional(sessionID),
		LicenseKey:        optional(promoCode),
		ActivatedAt:       optional(now.UTC().Format(time.RFC3339)),
		Email:             optional(email),
	}
}

// ComputeChecksum hashes the record's canonical field set, excluding the
// checksum itself. Fields are serialized through a map so that JSON key
// order is lexicographic and the result is reproducible across processes.
func (r Record) ComputeChecksum() string {
	fields := map[string]any{
		"licensed":            r.Licensed,
		"activation_method":   string(r.ActivationMethod),
		"checkout_session_id": r.CheckoutSessionID,
		"payment_reference":   r.PaymentReference,
		"license_key":         r.LicenseKey,
		"activated_at":        r.ActivatedAt,
		"email":               r.Email,
	}
	data, err := json.Marshal(fields)
	if err != nil {
		// Only primitive types above; Marshal cannot fail on them.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:checksumLength]
}

// VerifyChecksum reports whether the stored checksum matches the record
// contents. An absent checksum is trusted: records written before stamping
// was introduced carry none, and rejecting them would silently lock out
// upgrading installs.
func (r Record) VerifyChecksum() bool {
	if r.Checksum == "" {
		return true
	}
	return r.Checksum == r.ComputeChecksum()
}

// Stamped returns a copy of the record with its checksum recomputed.
func (r Record) Stamped() Record {
	r.Checksum = r.ComputeChecksum()
	return r
}

// ActivationTime parses the stored activation timestamp. It returns nil if
// the timestamp is unset or unparsable rather than failing.
func (r Record) ActivationTime() *time.Time {
	if r.ActivatedAt == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *r.ActivatedAt)
	if err != nil {
		return nil
	}
	return &t
}

// NormalizeKey canonicalizes a license key for storage and comparison.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
