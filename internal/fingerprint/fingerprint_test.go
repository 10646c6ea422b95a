package fingerprint

import "testing"

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		addr      string
		userAgent string
		ok        bool
	}{
		{
			name:      "address and user agent",
			addr:      "198.51.100.1",
			userAgent: "PodGrab/2.1 (linux)",
			ok:        true,
		},
		{
			name: "address only",
			addr: "198.51.100.1",
			ok:   true,
		},
		{
			name:      "user agent only",
			userAgent: "PodGrab/2.1 (linux)",
			ok:        true,
		},
		{
			name: "no signal at all",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compute(tt.addr, tt.userAgent)
			if ok != tt.ok {
				t.Fatalf("Compute(%q, %q) ok = %v, want %v", tt.addr, tt.userAgent, ok, tt.ok)
			}
			if ok && got == "" {
				t.Error("expected non-empty fingerprint")
			}
			if !ok && got != "" {
				t.Errorf("expected empty fingerprint, got %q", got)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a, _ := Compute("198.51.100.1", "PodGrab/2.1")
	b, _ := Compute("198.51.100.1", "PodGrab/2.1")
	if a != b {
		t.Errorf("identical inputs produced %q and %q", a, b)
	}
}

func TestCompute_DistinguishesAbsentInputs(t *testing.T) {
	// "addr only" and "UA only" must not collide, nor either with a literal
	// marker passed as real input.
	addrOnly, _ := Compute("198.51.100.1", "")
	uaOnly, _ := Compute("", "198.51.100.1")
	if addrOnly == uaOnly {
		t.Error("address-only and user-agent-only fingerprints collided")
	}
}

func TestCompute_DifferentClientsDiffer(t *testing.T) {
	a, _ := Compute("198.51.100.1", "PodGrab/2.1")
	b, _ := Compute("198.51.100.2", "PodGrab/2.1")
	if a == b {
		t.Errorf("different addresses produced the same fingerprint %q", a)
	}
}

func TestClientName(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
		ok        bool
	}{
		{name: "product with version", userAgent: "PodGrab/2.1 (linux)", want: "PodGrab", ok: true},
		{name: "curl", userAgent: "curl/8.4.0", want: "curl", ok: true},
		{name: "no slash keeps whole value", userAgent: "AppleCoreMedia", want: "AppleCoreMedia", ok: true},
		{name: "empty", userAgent: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClientName(tt.userAgent)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ClientName(%q) = (%q, %v), want (%q, %v)", tt.userAgent, got, ok, tt.want, tt.ok)
			}
		})
	}
}
