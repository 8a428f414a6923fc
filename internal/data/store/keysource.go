package store

import (
	"context"
	"os"
	"strconv"
	"strings"

	"kb-engine/internal/domain/kbmodel"
)

// EnvKeySource reads pools from environment variables of the form
// KEYS_<PROVIDER>_<PURPOSE>, comma-separated. It stands in for the admin
// configuration tables the surrounding system owns; the rotator only sees
// the KeyConfigSource interface either way.
type EnvKeySource struct{}

func (EnvKeySource) Keys(_ context.Context, provider string, purpose kbmodel.KeyPurpose) ([]kbmodel.APIKey, error) {
	envKey := "KEYS_" + sanitize(provider) + "_" + sanitize(string(purpose))
	raw := os.Getenv(envKey)
	if raw == "" {
		return nil, nil
	}

	var keys []kbmodel.APIKey
	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keys = append(keys, kbmodel.APIKey{
			Name:  envKey + "_" + strconv.Itoa(i),
			Value: part,
		})
	}
	return keys, nil
}

func sanitize(s string) string {
	s = strings.ToUpper(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}

// StaticKeySource is a fixed pool map, keyed by provider and purpose.
type StaticKeySource map[string]map[kbmodel.KeyPurpose][]kbmodel.APIKey

func (s StaticKeySource) Keys(_ context.Context, provider string, purpose kbmodel.KeyPurpose) ([]kbmodel.APIKey, error) {
	return s[provider][purpose], nil
}
