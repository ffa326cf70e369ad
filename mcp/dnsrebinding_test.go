// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDNSRebindingNoneAllowsEverything(t *testing.T) {
	p := NoDNSRebindingProtection()
	req := httptest.NewRequest(http.MethodPost, "http://evil.example/", nil)
	if res := p.check(req); res != nil {
		t.Errorf("check() = %+v, want nil", res)
	}
}

func TestDNSRebindingLocalhostRejectsNonLoopbackHost(t *testing.T) {
	p := LocalhostDNSRebindingProtection("")
	req := httptest.NewRequest(http.MethodPost, "http://evil.example/", nil)
	req.Host = "evil.example"
	res := p.check(req)
	if res == nil || res.status != http.StatusMisdirectedRequest {
		t.Fatalf("check() = %+v, want 421", res)
	}
}

func TestDNSRebindingLocalhostAcceptsLoopbackHost(t *testing.T) {
	p := LocalhostDNSRebindingProtection("")
	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1:8080/", nil)
	req.Host = "127.0.0.1:8080"
	if res := p.check(req); res != nil {
		t.Errorf("check() = %+v, want nil", res)
	}
}

func TestDNSRebindingLocalhostEnforcesPort(t *testing.T) {
	p := LocalhostDNSRebindingProtection("8080")
	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1:9999/", nil)
	req.Host = "127.0.0.1:9999"
	res := p.check(req)
	if res == nil || res.status != http.StatusMisdirectedRequest {
		t.Fatalf("check() = %+v, want 421", res)
	}
}

func TestDNSRebindingMissingHostRejected(t *testing.T) {
	p := LocalhostDNSRebindingProtection("")
	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1/", nil)
	req.Host = ""
	res := p.check(req)
	if res == nil || res.status != http.StatusMisdirectedRequest {
		t.Fatalf("check() = %+v, want 421", res)
	}
}

func TestDNSRebindingOriginMissingAlwaysTolerated(t *testing.T) {
	p := CustomDNSRebindingProtection([]string{"api.example"}, []string{"https://app.example"})
	req := httptest.NewRequest(http.MethodPost, "http://api.example/", nil)
	req.Host = "api.example"
	if res := p.check(req); res != nil {
		t.Errorf("check() = %+v, want nil (no Origin header)", res)
	}
}

func TestDNSRebindingCustomRejectsDisallowedOrigin(t *testing.T) {
	p := CustomDNSRebindingProtection([]string{"api.example"}, []string{"https://app.example"})
	req := httptest.NewRequest(http.MethodPost, "http://api.example/", nil)
	req.Host = "api.example"
	req.Header.Set("Origin", "https://evil.example")
	res := p.check(req)
	if res == nil || res.status != http.StatusForbidden {
		t.Fatalf("check() = %+v, want 403", res)
	}
}

func TestDNSRebindingCustomRejectsDisallowedHost(t *testing.T) {
	p := CustomDNSRebindingProtection([]string{"api.example"}, nil)
	req := httptest.NewRequest(http.MethodPost, "http://other.example/", nil)
	req.Host = "other.example"
	res := p.check(req)
	if res == nil || res.status != http.StatusMisdirectedRequest {
		t.Fatalf("check() = %+v, want 421", res)
	}
}

func TestForBindAddressChoosesLocalhostForLoopback(t *testing.T) {
	p := ForBindAddress("127.0.0.1", "8080")
	if p.mode != DNSRebindingLocalhost {
		t.Errorf("mode = %v, want DNSRebindingLocalhost", p.mode)
	}
}

func TestForBindAddressChoosesNoneForWildcard(t *testing.T) {
	p := ForBindAddress("0.0.0.0", "8080")
	if p.mode != DNSRebindingNone {
		t.Errorf("mode = %v, want DNSRebindingNone", p.mode)
	}
}
