package api

import (
	"crypto/subtle"
	"errors"
	"strings"

	"hoteldesk/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"
)

var (
	errMissingKey       = errors.New("missing api key headers")
	errInvalidKey       = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
)

// keyring authenticates API clients by key plus a second shared secret.
// HTTP and gRPC share it so both surfaces accept the same credentials.
type keyring struct {
	enabled     bool
	keyHeader   string
	extraHeader string
	clients     map[string]config.APIClientKey
	limiter     *rateLimiter
}

func newKeyring(cfg config.APIConfig) *keyring {
	clients := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		clients[k.Key] = k
	}
	return &keyring{
		enabled:     cfg.Auth.Enabled,
		keyHeader:   headerOr(cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault),
		extraHeader: headerOr(cfg.Auth.HeaderExtra, apiExtraHeaderDefault),
		clients:     clients,
		limiter:     newRateLimiter(cfg.RateLimit),
	}
}

// authorize checks the credentials and that the client holds perm.
func (k *keyring) authorize(apiKey, extra, perm string) error {
	apiKey, extra = strings.TrimSpace(apiKey), strings.TrimSpace(extra)
	if apiKey == "" || extra == "" {
		return errMissingKey
	}
	client, ok := k.clients[apiKey]
	if !ok {
		return errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}
	if !hasPermission(client, perm) {
		return errPermissionDenied
	}
	return nil
}

// allow spends a token from the bucket of the client identified by key.
func (k *keyring) allow(key string) bool {
	return k.limiter.allow(key)
}

func hasPermission(client config.APIClientKey, perm string) bool {
	// an empty permission list allows everything
	if perm == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == perm {
			return true
		}
	}
	return false
}

func headerOr(h, def string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return def
	}
	return h
}
