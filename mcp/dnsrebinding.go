// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"net"
	"net/http"
	"strings"

	"github.com/pinnaclelabs/mcpengine/internal/util"
)

// DNSRebindingProtectionMode selects how the Streamable-HTTP server
// transport validates the Host and Origin headers of incoming requests.
type DNSRebindingProtectionMode int

const (
	// DNSRebindingNone performs no Host/Origin validation. Suitable only
	// when the server sits behind a trusted reverse proxy that already
	// enforces this.
	DNSRebindingNone DNSRebindingProtectionMode = iota
	// DNSRebindingLocalhost accepts only Host values that resolve to a
	// loopback address, optionally restricted to one port.
	DNSRebindingLocalhost
	// DNSRebindingCustom accepts only the explicitly configured host and
	// origin allow-lists.
	DNSRebindingCustom
)

// DNSRebindingProtection validates the Host and Origin headers of inbound
// HTTP requests to the Streamable-HTTP server transport, guarding against
// a browser-resident attacker using DNS rebinding to reach a server bound
// to localhost.
type DNSRebindingProtection struct {
	mode           DNSRebindingProtectionMode
	localhostPort  string // empty means any port
	allowedHosts   map[string]bool
	allowedOrigins map[string]bool
}

// NoDNSRebindingProtection disables Host/Origin validation entirely.
func NoDNSRebindingProtection() *DNSRebindingProtection {
	return &DNSRebindingProtection{mode: DNSRebindingNone}
}

// LocalhostDNSRebindingProtection accepts only requests whose Host header
// names a loopback address. If port is non-empty, the Host's port must
// also match.
func LocalhostDNSRebindingProtection(port string) *DNSRebindingProtection {
	return &DNSRebindingProtection{mode: DNSRebindingLocalhost, localhostPort: port}
}

// CustomDNSRebindingProtection accepts only requests whose Host is in
// allowedHosts and, when Origin is present, whose Origin is in
// allowedOrigins.
func CustomDNSRebindingProtection(allowedHosts, allowedOrigins []string) *DNSRebindingProtection {
	p := &DNSRebindingProtection{
		mode:           DNSRebindingCustom,
		allowedHosts:   make(map[string]bool, len(allowedHosts)),
		allowedOrigins: make(map[string]bool, len(allowedOrigins)),
	}
	for _, h := range allowedHosts {
		p.allowedHosts[h] = true
	}
	for _, o := range allowedOrigins {
		p.allowedOrigins[o] = true
	}
	return p
}

// ForBindAddress chooses a protection mode appropriate for a server bound
// to host:port: loopback addresses get LocalhostDNSRebindingProtection,
// anything else (wildcard binds, public addresses) gets no protection,
// since those are assumed to be fronted by infrastructure that handles
// this already.
func ForBindAddress(host, port string) *DNSRebindingProtection {
	if util.IsLoopback(host) {
		return LocalhostDNSRebindingProtection(port)
	}
	return NoDNSRebindingProtection()
}

// dnsRebindingResult is the outcome of checking a request: either it
// passes, or it carries the HTTP status and message to send.
type dnsRebindingResult struct {
	status int
	body   string
}

func (p *DNSRebindingProtection) check(req *http.Request) *dnsRebindingResult {
	if p == nil || p.mode == DNSRebindingNone {
		return nil
	}

	host := req.Host
	if host == "" {
		return &dnsRebindingResult{http.StatusMisdirectedRequest, "missing Host header"}
	}

	switch p.mode {
	case DNSRebindingLocalhost:
		h, hostPort := host, ""
		if sh, sp, err := net.SplitHostPort(host); err == nil {
			h, hostPort = sh, sp
		}
		if !util.IsLoopback(h) {
			return &dnsRebindingResult{http.StatusMisdirectedRequest, "Host is not loopback"}
		}
		if p.localhostPort != "" && hostPort != p.localhostPort {
			return &dnsRebindingResult{http.StatusMisdirectedRequest, "Host port not allowed"}
		}
	case DNSRebindingCustom:
		if !p.allowedHosts[host] {
			return &dnsRebindingResult{http.StatusMisdirectedRequest, "Host not allowed"}
		}
	}

	if origin := req.Header.Get("Origin"); origin != "" {
		switch p.mode {
		case DNSRebindingCustom:
			if !p.allowedOrigins[origin] {
				return &dnsRebindingResult{http.StatusForbidden, "Origin not allowed"}
			}
		case DNSRebindingLocalhost:
			if !strings.Contains(origin, "localhost") && !strings.Contains(origin, "127.0.0.1") && !strings.Contains(origin, "[::1]") {
				return &dnsRebindingResult{http.StatusForbidden, "Origin not allowed"}
			}
		}
	}
	return nil
}
