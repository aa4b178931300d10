package protocol

import "net/url"

// Surface origins per network. The allow-list below is static and
// versioned with the bridge; adding an origin requires a release.
const (
	OriginPrimary       = "https://id.identikit.dev"
	OriginSecondaryTest = "https://id.testnet.identikit.dev"
	OriginStaging       = "https://id.staging.identikit.dev"
)

var trustedOrigins = []string{
	OriginPrimary,
	OriginSecondaryTest,
	OriginStaging,
	"http://localhost:5173",
	"http://localhost:3000",
}

// TrustedOrigin is the origin gate: it reports whether a declared
// message origin is allowed to drive the session. An origin passes if
// it exactly matches the active transport's target origin, an
// allow-list entry, or the local development carve-out. No wildcard
// matching beyond that carve-out.
func TrustedOrigin(origin, targetOrigin string) bool {
	if origin == "" {
		return false
	}
	if targetOrigin != "" && origin == targetOrigin {
		return true
	}
	for _, t := range trustedOrigins {
		if origin == t {
			return true
		}
	}
	return isLocalDev(origin)
}

// isLocalDev accepts plain-HTTP loopback origins on any port. This is
// the only non-exact match the gate performs.
func isLocalDev(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
