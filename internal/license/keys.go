package license

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

// KeyValidator answers whether a license key belongs to the distributed key
// set without network access. The backing list is loaded lazily on the
// first validation call and cached for the process lifetime; it is treated
// as immutable and never written by this package.
//
// Validation is pure set membership on the normalized key. There is no
// signature to verify: the security property is "the key is on the
// distributor's whitelist", nothing stronger.
type KeyValidator struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	keys   map[string]struct{}
	loaded bool
	group  singleflight.Group
}

// keyListFile is the modern key-list shape. Legacy files hold a bare JSON
// array of strings instead.
type keyListFile struct {
	Keys []string `json:"keys"`
}

// NewKeyValidator creates a validator over the given key-list file path.
// An empty path is allowed and behaves like a missing file: every key is
// rejected.
func NewKeyValidator(path string, logger *slog.Logger) *KeyValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyValidator{
		path:   path,
		logger: logger.With(slog.String("component", "key_validator")),
	}
}

// IsValid reports whether the normalized form of key is in the valid set.
func (v *KeyValidator) IsValid(ctx context.Context, key string) bool {
	keys := v.load(ctx)
	_, ok := keys[NormalizeKey(key)]
	return ok
}

// Size returns the number of loaded keys, forcing a load if necessary.
func (v *KeyValidator) Size(ctx context.Context) int {
	return len(v.load(ctx))
}

// load returns the cached key set, reading the backing file exactly once.
// Concurrent first calls are coalesced through singleflight so the file is
// parsed a single time.
func (v *KeyValidator) load(ctx context.Context) map[string]struct{} {
	v.mu.RLock()
	if v.loaded {
		keys := v.keys
		v.mu.RUnlock()
		return keys
	}
	v.mu.RUnlock()

	result, _, _ := v.group.Do("load", func() (any, error) {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.loaded {
			return v.keys, nil
		}
		v.keys = v.read(ctx)
		v.loaded = true
		return v.keys, nil
	})
	return result.(map[string]struct{})
}

// read parses the key-list file. Malformed or missing data loads zero keys:
// an empty set rejects every key rather than accepting all.
func (v *KeyValidator) read(ctx context.Context) map[string]struct{} {
	keys := make(map[string]struct{})

	if v.path == "" {
		v.logger.WarnContext(ctx, "no key-list file configured, rejecting all keys")
		return keys
	}

	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			v.logger.WarnContext(ctx, "key-list file not found, rejecting all keys",
				slog.String("path", v.path),
			)
		} else {
			v.logger.WarnContext(ctx, "failed to read key-list file, rejecting all keys",
				slog.String("path", v.path),
				slog.String("error", err.Error()),
			)
		}
		return keys
	}

	var modern keyListFile
	if err := json.Unmarshal(data, &modern); err == nil && modern.Keys != nil {
		for _, k := range modern.Keys {
			keys[NormalizeKey(k)] = struct{}{}
		}
	} else {
		// Legacy bare-list format.
		var legacy []string
		if err := json.Unmarshal(data, &legacy); err != nil {
			v.logger.WarnContext(ctx, "failed to parse key-list file, rejecting all keys",
				slog.String("path", v.path),
				slog.String("error", err.Error()),
			)
			return keys
		}
		for _, k := range legacy {
			keys[NormalizeKey(k)] = struct{}{}
		}
	}

	v.logger.DebugContext(ctx, "license keys loaded",
		slog.String("path", v.path),
		slog.Int("key_count", len(keys)),
	)
	return keys
}
