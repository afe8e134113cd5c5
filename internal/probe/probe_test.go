package probe

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return ln, port
}

func TestTCPProbeReady(t *testing.T) {
	_, port := listen(t)
	p := TCPProbe{Host: "127.0.0.1", Port: port, Timeout: time.Second}
	if !p.Ready() {
		t.Fatalf("probe against live listener must be ready")
	}
}

func TestTCPProbeNotReady(t *testing.T) {
	ln, port := listen(t)
	_ = ln.Close() // port is now free again
	p := TCPProbe{Host: "127.0.0.1", Port: port, Timeout: 200 * time.Millisecond}
	if p.Ready() {
		t.Fatalf("probe against closed port must not be ready")
	}
}

func TestHTTPProbeStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json/version" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"Browser":"Chrome/140.0"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ok := HTTPProbe{URL: srv.URL + "/json/version", Timeout: time.Second}
	if !ok.Ready() {
		t.Fatalf("200 response must be ready")
	}
	notFound := HTTPProbe{URL: srv.URL + "/other", Timeout: time.Second}
	if notFound.Ready() {
		t.Fatalf("non-200 response must not be ready")
	}
}

func TestHTTPProbeConnectionRefused(t *testing.T) {
	ln, port := listen(t)
	_ = ln.Close()
	p := VersionProbe("127.0.0.1", port, 200*time.Millisecond)
	if p.Ready() {
		t.Fatalf("refused connection must not be ready")
	}
}

func TestVersionProbeURL(t *testing.T) {
	p := VersionProbe("127.0.0.1", 9222, time.Second)
	want := "http://127.0.0.1:9222/json/version"
	if p.URL != want {
		t.Fatalf("url = %q, want %q", p.URL, want)
	}
}
