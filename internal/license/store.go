package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists a single Record with checksum stamping. It owns the file
// format; it never retains a reference to a record beyond a Load or Save
// call.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store over the given entitlement file path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "entitlement_store")),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record. It never fails: a missing, unreadable or
// malformed file yields the default unlicensed record, and so does a record
// whose checksum no longer matches its contents. A record without a
// checksum is accepted as-is for compatibility with pre-stamping installs.
func (s *Store) Load(ctx context.Context) Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "failed to read entitlement file",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return DefaultRecord()
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WarnContext(ctx, "failed to parse entitlement file",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return DefaultRecord()
	}

	if !rec.VerifyChecksum() {
		s.logger.WarnContext(ctx, "entitlement checksum mismatch, discarding record",
			slog.String("path", s.path),
			slog.String("stored_checksum", rec.Checksum),
			slog.Bool("was_licensed", rec.Licensed),
		)
		return DefaultRecord()
	}

	s.logger.DebugContext(ctx, "entitlement record loaded",
		slog.Bool("licensed", rec.Licensed),
		slog.String("activation_method", string(rec.ActivationMethod)),
		slog.Bool("legacy_unstamped", rec.Checksum == ""),
	)
	return rec
}

// Save stamps the record with a fresh checksum and writes it as indented
// JSON, creating the parent directory if needed. A failed save leaves the
// caller's in-memory state intact; the error means the mutation may not
// survive a restart.
func (s *Store) Save(ctx context.Context, rec Record) error {
	stamped := rec.Stamped()

	data, err := json.MarshalIndent(stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entitlement record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.ErrorContext(ctx, "failed to create entitlement directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("create entitlement directory %s: %w", dir, err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.ErrorContext(ctx, "failed to write entitlement file",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("write entitlement file %s: %w", s.path, err)
	}

	s.logger.DebugContext(ctx, "entitlement record saved",
		slog.String("path", s.path),
		slog.Bool("licensed", stamped.Licensed),
		slog.String("checksum", stamped.Checksum),
		slog.Int("size_bytes", len(data)),
	)
	return nil
}
