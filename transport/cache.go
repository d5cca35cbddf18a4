package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/oraclemesh/oraclecore/types"
)

// Cache is the backend-agnostic interface every cache tier (memory, file)
// implements. Values are opaque byte slices; callers marshal their own
// payloads with GetJSON/SetJSON.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Exists(ctx context.Context, key string) (bool, error)
}

// GetJSON reads key from c and unmarshals it into dest. It returns
// (false, nil) on a clean miss.
func GetJSON(ctx context.Context, c Cache, key string, dest any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetJSON marshals value and stores it under key with the given ttl.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for cache: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// DataKey derives a stable cache key for an oracle query: category plus the
// query's parameters, canonicalized (keys sorted) before hashing so
// equivalent parameter maps always collide. Mirrors the teacher's
// full-request hash strategy.
func DataKey(category types.DataCategory, params map[string]any) string {
	canon := canonicalize(params)
	data, err := json.Marshal(canon)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256(append([]byte(string(category)+":"), data...))
	return "oracle:" + string(category) + ":" + hex.EncodeToString(sum[:16])
}

// canonicalize produces a deterministically ordered representation of a
// map so that {"a":1,"b":2} and {"b":2,"a":1} hash identically.
func canonicalize(m map[string]any) []keyVal {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keyVal, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyVal{K: k, V: m[k]})
	}
	return out
}

type keyVal struct {
	K string `json:"k"`
	V any    `json:"v"`
}
