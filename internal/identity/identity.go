// Package identity derives a stable anonymous identifier for an inbound
// request. The fingerprint is a coarse dedup key, not a credential:
// clients sharing identical headers collide, and changing headers evades
// it. That trade-off is accepted for anonymous one-vote-per-client
// enforcement.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/netip"
	"strings"
)

// HashLength is the number of hex characters kept from the fingerprint digest
const HashLength = 32

const fallbackIP = "127.0.0.1"

// Identity is what the rest of the service knows about an anonymous
// caller. Hash feeds vote/payment dedup keys; IP feeds rate-limit keys
// and admin auditing only.
type Identity struct {
	Hash string
	IP   string
}

// FromRequest derives the caller's identity from request headers
func FromRequest(r *http.Request) Identity {
	return Identity{
		Hash: ClientHash(r),
		IP:   ClientIP(r),
	}
}

// ClientHash fingerprints the request from its User-Agent,
// Accept-Language and Accept-Encoding headers. The same header triple
// always yields the same token.
func ClientHash(r *http.Request) string {
	fingerprint := strings.Join([]string{
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// ClientIP extracts a best-effort caller IP: the first X-Forwarded-For
// entry when present, else X-Real-IP, else a loopback fallback. Both
// headers are attacker-controlled and the value lands in an INET column,
// so anything that does not parse as an address is discarded.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if addr, err := netip.ParseAddr(first); err == nil {
			return addr.String()
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.String()
		}
	}

	return fallbackIP
}
