package settings

import (
	"context"
	"fmt"
)

// Credentials stores secrets of download importers. Keys are namespaced as
// "<importerType>-<key>", e.g. "rogers-username".
type Credentials struct {
	settings *Settings
}

// Credentials returns the credential store backed by the same store.
func (s *Settings) Credentials() *Credentials {
	return &Credentials{settings: s}
}

// Save stores value under the namespaced key.
func (c *Credentials) Save(ctx context.Context, key, value string) error {
	if err := c.settings.store.Set(ctx, credentialPrefix+key, value); err != nil {
		return fmt.Errorf("failed to save credential %s: %w", key, err)
	}
	return nil
}

// Read returns the stored value. Empty values count as missing.
func (c *Credentials) Read(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := c.settings.get(ctx, credentialPrefix+key)
	if err != nil || !ok || value == "" {
		return "", false, err
	}
	return value, true, nil
}
