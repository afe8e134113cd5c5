// Package probe provides liveness checks for the browser debug endpoint.
package probe

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// Probe is a strategy that determines whether the debug endpoint is accepting
// automation clients. Implementations never panic and never block longer than
// their configured timeout, so polling loops stay responsive.
type Probe interface {
	// Ready returns true if the endpoint is reachable.
	Ready() bool
	// Describe returns a human-readable description of the probe.
	Describe() string
}

// TCPProbe checks readiness by opening and immediately closing a TCP
// connection. No data is exchanged.
type TCPProbe struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func (p TCPProbe) Ready() bool {
	addr := net.JoinHostPort(p.Host, fmt.Sprintf("%d", p.Port))
	conn, err := net.DialTimeout("tcp", addr, p.timeout())
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (p TCPProbe) Describe() string {
	return fmt.Sprintf("tcp:%s:%d", p.Host, p.Port)
}

func (p TCPProbe) timeout() time.Duration {
	if p.Timeout <= 0 {
		return time.Second
	}
	return p.Timeout
}

// HTTPProbe checks readiness with a GET request; only a 200 response counts.
// The browser's /json/version endpoint answers once the DevTools socket is
// actually serving, which is a stronger signal than an open port.
type HTTPProbe struct {
	URL     string
	Timeout time.Duration
}

// VersionProbe builds an HTTPProbe against the browser's version-info endpoint.
func VersionProbe(host string, port int, timeout time.Duration) HTTPProbe {
	return HTTPProbe{
		URL:     fmt.Sprintf("http://%s/json/version", net.JoinHostPort(host, fmt.Sprintf("%d", port))),
		Timeout: timeout,
	}
}

func (p HTTPProbe) Ready() bool {
	to := p.Timeout
	if to <= 0 {
		to = time.Second
	}
	client := &http.Client{Timeout: to}
	resp, err := client.Get(p.URL)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func (p HTTPProbe) Describe() string { return "http:" + p.URL }
