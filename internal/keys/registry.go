// Package keys loads the static API key list that gates the country endpoint.
package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// downstreamKey matches keys issued to downstream Firefox distributions.
// These are minted outside the static list and are accepted by pattern.
var downstreamKey = regexp.MustCompile(`^firefox-downstream-\w{1,40}$`)

// Registry is the set of authorized API keys. It is loaded once at startup
// and never mutated, so it may be shared across concurrent request handlers
// without locking.
type Registry struct {
	keys map[string]struct{}
}

// Load reads a JSON array of key strings from path.
//
// A missing or corrupt file is an error; the caller treats it as fatal at
// startup rather than serving with an empty registry.
func Load(path string) (*Registry, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading api keys file: %w", err)
	}

	var entries []string
	if err := json.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("parsing api keys file %s: %w", path, err)
	}

	registry := &Registry{keys: make(map[string]struct{}, len(entries))}
	for _, key := range entries {
		registry.keys[key] = struct{}{}
	}

	return registry, nil
}

// Authorized reports whether the presented key may use the country endpoint:
// either it matches the downstream distribution pattern or it is present in
// the loaded list.
func (r *Registry) Authorized(key string) bool {
	if downstreamKey.MatchString(key) {
		return true
	}
	_, ok := r.keys[key]
	return ok
}

// Len returns the number of keys in the static list (downstream-pattern keys
// are not counted).
func (r *Registry) Len() int {
	return len(r.keys)
}
