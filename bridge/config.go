package bridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/identikit/authbridge/protocol"
)

// Network selects which surface deployment the bridge talks to.
type Network string

const (
	NetworkPrimary       Network = "primary"
	NetworkSecondaryTest Network = "secondary-test"
)

const (
	// DefaultTimeout bounds the whole session.
	DefaultTimeout = 5 * time.Minute
	// DefaultDetectionTimeout is how long the embedded surface has to
	// prove itself responsive before the bridge falls back to a popup.
	// A slow-but-working surface is indistinguishable from a blocked
	// one inside this window, so raising it trades startup latency for
	// fewer spurious fallbacks.
	DefaultDetectionTimeout = 3 * time.Second

	closePollInterval = 500 * time.Millisecond
)

// Config configures a Bridge. It is immutable after New.
type Config struct {
	// AppID identifies the host application to the surface. Required.
	AppID string
	// OriginOverride replaces the network's surface origin. It must
	// itself pass the origin allow-list.
	OriginOverride string
	Network        Network
	// Scopes are comma-joined into the outbound open request.
	Scopes []string
	// Timeout is the overall session timeout. Zero means DefaultTimeout.
	Timeout time.Duration
	// DetectionTimeout is the embedded-transport detection window.
	// Zero means DefaultDetectionTimeout.
	DetectionTimeout time.Duration
	// Debug enables logging of dropped messages.
	Debug bool
	// PreferPopup skips the embedded attempt and opens a secondary
	// window directly.
	PreferPopup bool
	// HostOrigin is the origin the host declares in the open request.
	HostOrigin string
}

func (c Config) withDefaults() Config {
	if c.Network == "" {
		c.Network = NetworkPrimary
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DetectionTimeout == 0 {
		c.DetectionTimeout = DefaultDetectionTimeout
	}
	if c.HostOrigin == "" {
		c.HostOrigin = "http://localhost"
	}
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AppID) == "" {
		return fmt.Errorf("%w: app id is required", ErrInvalidConfig)
	}
	switch c.Network {
	case NetworkPrimary, NetworkSecondaryTest:
	default:
		return fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, c.Network)
	}
	if c.Timeout < 0 || c.DetectionTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.OriginOverride != "" && !protocol.TrustedOrigin(c.OriginOverride, "") {
		return fmt.Errorf("%w: origin override %q is not allow-listed", ErrInvalidConfig, c.OriginOverride)
	}
	return nil
}

// surfaceOrigin resolves the origin of the isolated surface.
func (c Config) surfaceOrigin() string {
	if c.OriginOverride != "" {
		return c.OriginOverride
	}
	if c.Network == NetworkSecondaryTest {
		return protocol.OriginSecondaryTest
	}
	return protocol.OriginPrimary
}
