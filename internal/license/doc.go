// Package license implements the BrainDock entitlement core: durable,
// integrity-checked storage of the license state and the activation
// state machine that mutates it.
//
// # Architecture Overview
//
// The package consists of three components:
//
//	- Store: checksum-stamped persistence of a single Record
//	- KeyValidator: cached membership checks against the distributed key list
//	- Manager: activation state machine and read-only entitlement queries
//
// # Activation Paths
//
// Three independent paths move the system from Unlicensed to Licensed:
//
//	1. Hosted payment: the checkout provider confirms payment and hands
//	   over a session ID. Activation is unconditional.
//	2. License key: the key is normalized (trimmed, uppercased) and checked
//	   against the distributed key set. Activation fails on a miss.
//	3. Promo code: redeemed through the provider's checkout flow with the
//	   same unconditional contract as hosted payment.
//
// Revocation returns the system to the default unlicensed state. Every
// successful activation replaces the stored record wholesale; there is no
// partial update path, which keeps the record invariants enforced by
// construction.
//
// # Integrity Model
//
// Persisted records carry a checksum: the first 16 hex characters of a
// SHA-256 hash over the lexicographically ordered field set. A record whose
// stored checksum does not match the recomputed value is treated as
// corrupted or tampered and replaced by the default unlicensed record. A
// record with no checksum at all predates the stamping scheme and is
// accepted as-is.
//
// The checksum is keyless. It detects corruption and casual on-disk edits;
// it does not authenticate the record against an attacker willing to
// recompute and re-stamp it. Key validation is likewise pure set membership
// against the distributor's whitelist, not signature verification.
//
// # Failure Semantics
//
// Nothing in this package is fatal to the host process. Unreadable or
// malformed source files degrade to the safe default: an unlicensed record
// or an empty key set that rejects every key. Save failures are logged and
// returned to the caller; the in-memory transition still happens, with the
// documented risk that it will not survive a restart.
package license
