package protocol

import "testing"

func TestTrustedOrigin(t *testing.T) {
	cases := []struct {
		origin string
		target string
		want   bool
	}{
		{OriginPrimary, "", true},
		{OriginSecondaryTest, "", true},
		{OriginStaging, "", true},
		{"http://localhost:5173", "", true},
		{"http://localhost:9321", "", true},  // dev carve-out: any loopback port
		{"http://127.0.0.1:8080", "", true},
		{"https://localhost:5173", "", false}, // carve-out is plain HTTP only
		{"https://id.identikit.dev.evil.com", "", false},
		{"https://evil.example", "", false},
		{"", "", false},
		{"https://custom.example", "https://custom.example", true}, // matches active target
		{"https://custom.example", "https://other.example", false},
	}
	for _, c := range cases {
		if got := TrustedOrigin(c.origin, c.target); got != c.want {
			t.Errorf("TrustedOrigin(%q, %q) = %v, want %v", c.origin, c.target, got, c.want)
		}
	}
}
