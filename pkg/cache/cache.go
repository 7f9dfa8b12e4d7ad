// Package cache is a namespaced, content-addressed JSON file cache used to
// gate expensive external calls. It is a performance optimization only:
// losing or evicting entries never changes program correctness.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrInvalidNamespace indicates a namespace that is empty or attempts path
// traversal.
var ErrInvalidNamespace = errors.New("invalid cache namespace")

// envelope is the on-disk JSON shape of one entry.
type envelope struct {
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// Cache stores JSON values under <base>/<namespace>/<hex-digest>.json.
// The directory may be shared across processes; atomic rename on Set is the
// only cross-process coordination required.
type Cache struct {
	baseDir string
	logger  *slog.Logger
}

// New creates the base directory if needed and returns a Cache.
func New(baseDir string, logger *slog.Logger) (*Cache, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("cache base directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", baseDir, err)
	}
	return &Cache{baseDir: baseDir, logger: logger}, nil
}

// StableKey serializes payload as canonical JSON (sorted keys, no
// insignificant whitespace) and returns the hex SHA-256 digest. Equal
// payloads, up to map key ordering, digest identically across processes.
func StableKey(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cache payload: %w", err)
	}
	// Round-trip through a generic value so map keys marshal sorted and
	// struct field order stops mattering.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("failed to canonicalize cache payload: %w", err)
	}
	canonical, err := json.Marshal(sortKeys(generic))
	if err != nil {
		return "", fmt.Errorf("failed to serialize canonical payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// sortKeys is defensive normalization; encoding/json already sorts map keys,
// but nested ordering guarantees are pinned here rather than assumed.
func sortKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(val))
		for _, k := range keys {
			out[k] = sortKeys(val[k])
		}
		return out
	case []any:
		for i := range val {
			val[i] = sortKeys(val[i])
		}
		return val
	default:
		return v
	}
}

// PathFor returns the file path an entry would occupy.
func (c *Cache) PathFor(namespace, key string) (string, error) {
	if err := validateNamespace(namespace); err != nil {
		return "", err
	}
	return filepath.Join(c.baseDir, namespace, key+".json"), nil
}

// Get reads the entry into out and reports whether it was found. I/O and
// decode errors are treated as a miss.
func (c *Cache) Get(namespace, key string, out any) bool {
	path, err := c.PathFor(namespace, key)
	if err != nil {
		return false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("discarding corrupt cache entry", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		c.logger.Warn("discarding undecodable cache entry", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	return true
}

// Set writes the entry atomically: marshal to a temporary sibling, then
// rename. Partial writes are never observable. I/O errors are logged and
// swallowed; the caller already holds the value.
func (c *Cache) Set(namespace, key string, value any) {
	path, err := c.PathFor(namespace, key)
	if err != nil {
		c.logger.Warn("cache set rejected", slog.String("namespace", namespace), slog.String("error", err.Error()))
		return
	}
	result, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache set failed to marshal value", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	raw, err := json.Marshal(envelope{Result: result, CreatedAt: time.Now().UTC()})
	if err != nil {
		c.logger.Warn("cache set failed to marshal envelope", slog.String("key", key), slog.String("error", err.Error()))
		return
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.logger.Warn("cache set failed to create namespace dir", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	tmp, err := os.CreateTemp(dir, key+".tmp-*")
	if err != nil {
		c.logger.Warn("cache set failed to create temp file", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		c.logger.Warn("cache set failed to write temp file", slog.String("path", tmpName), slog.String("error", err.Error()))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		c.logger.Warn("cache set failed to close temp file", slog.String("path", tmpName), slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		c.logger.Warn("cache set failed to rename temp file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Exists reports whether an entry is present without reading it.
func (c *Cache) Exists(namespace, key string) bool {
	path, err := c.PathFor(namespace, key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete removes an entry. Missing entries are not an error.
func (c *Cache) Delete(namespace, key string) error {
	path, err := c.PathFor(namespace, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry %s: %w", path, err)
	}
	return nil
}

// ClearNamespace removes every entry under a namespace.
func (c *Cache) ClearNamespace(namespace string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	dir := filepath.Join(c.baseDir, namespace)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear cache namespace %s: %w", namespace, err)
	}
	return nil
}

// ListKeys returns the keys present in a namespace, sorted.
func (c *Cache) ListKeys(namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	dir := filepath.Join(c.baseDir, namespace)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache namespace %s: %w", namespace, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// validateNamespace rejects path traversal: namespaces are flat directory
// names, never paths.
func validateNamespace(namespace string) error {
	if namespace == "" ||
		namespace == "." || namespace == ".." ||
		strings.ContainsAny(namespace, `/\`) ||
		strings.Contains(namespace, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return nil
}
