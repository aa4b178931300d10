package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/identikit/authbridge/protocol"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{AppID: "demo"}, true},
		{"missing app id", Config{}, false},
		{"blank app id", Config{AppID: "   "}, false},
		{"bad network", Config{AppID: "demo", Network: "moonbase"}, false},
		{"negative timeout", Config{AppID: "demo", Timeout: -time.Second}, false},
		{"untrusted override", Config{AppID: "demo", OriginOverride: "https://evil.example"}, false},
		{"dev override", Config{AppID: "demo", OriginOverride: "http://localhost:7080"}, true},
	}
	for _, c := range cases {
		err := c.cfg.withDefaults().validate()
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
		}
		if !c.ok {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("%s: got %v, want ErrInvalidConfig", c.name, err)
			}
		}
	}
}

func TestConfigRejectedBeforeTransport(t *testing.T) {
	f := &fakeFactory{}
	if _, err := New(Config{}, WithFactory(f)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("new: got %v, want ErrInvalidConfig", err)
	}
	if ec, pc := f.calls(); ec != 0 || pc != 0 {
		t.Fatalf("transport created for invalid config: embedded=%d popup=%d", ec, pc)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{AppID: "demo"}.withDefaults()
	if cfg.Timeout != DefaultTimeout {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
	if cfg.DetectionTimeout != DefaultDetectionTimeout {
		t.Fatalf("detection timeout = %v", cfg.DetectionTimeout)
	}
	if cfg.Network != NetworkPrimary {
		t.Fatalf("network = %q", cfg.Network)
	}
}

func TestSurfaceOrigin(t *testing.T) {
	if got := (Config{}).surfaceOrigin(); got != protocol.OriginPrimary {
		t.Fatalf("primary origin = %q", got)
	}
	if got := (Config{Network: NetworkSecondaryTest}).surfaceOrigin(); got != protocol.OriginSecondaryTest {
		t.Fatalf("secondary-test origin = %q", got)
	}
	if got := (Config{OriginOverride: "http://localhost:7080"}).surfaceOrigin(); got != "http://localhost:7080" {
		t.Fatalf("override origin = %q", got)
	}
}
