package browser

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/loykin/browserboot/internal/config"
)

type stubProbe struct{ ready bool }

func (s stubProbe) Ready() bool      { return s.ready }
func (s stubProbe) Describe() string { return "stub" }

func TestAcquireAdoptsExistingListener(t *testing.T) {
	cfg, _ := config.Resolve(config.Options{Mode: config.ModeDesktop})
	cfg.BrowserBin = "definitely-not-installed-browser"
	h, err := Launcher{Cfg: cfg, Probe: stubProbe{ready: true}}.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h.LaunchedByUs {
		t.Fatalf("ready port must be adopted, not spawned")
	}
	if h.PID != 0 {
		t.Fatalf("adopted handle must not claim a PID, got %d", h.PID)
	}
}

func TestAcquireNoBinaryIsFatal(t *testing.T) {
	cfg, _ := config.Resolve(config.Options{Mode: config.ModeContainer})
	cfg.BrowserBin = "definitely-not-installed-browser"
	_, err := Launcher{Cfg: cfg, Probe: stubProbe{}}.Acquire()
	if !errors.Is(err, ErrNoBrowser) {
		t.Fatalf("want ErrNoBrowser, got %v", err)
	}
}

func TestArgsDesktop(t *testing.T) {
	cfg, _ := config.Resolve(config.Options{Mode: config.ModeDesktop})
	cfg.BrowserPort = 9222
	cfg.ProfileDir = "/tmp/profile"
	args := Args(cfg)

	for _, want := range []string{
		"--remote-debugging-port=9222",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
		"--no-first-run",
		"--no-default-browser-check",
	} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %q in %v", want, args)
		}
	}
	if slices.Contains(args, "--headless=new") || slices.Contains(args, "--no-sandbox") {
		t.Fatalf("desktop args must not carry container flags: %v", args)
	}
	if args[len(args)-1] != "about:blank" {
		t.Fatalf("initial navigation target must be last: %v", args)
	}
}

func TestArgsContainer(t *testing.T) {
	cfg, _ := config.Resolve(config.Options{Mode: config.ModeContainer})
	cfg.BrowserPort = 9222
	args := Args(cfg)

	for _, want := range []string{
		"--remote-debugging-address=0.0.0.0",
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--hide-scrollbars",
		"--mute-audio",
	} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %q in %v", want, args)
		}
	}
}

func TestArgsHonorOverriddenPort(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(env, []byte("BROWSER_PORT=9333\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	cfg, err := config.Resolve(config.Options{Mode: config.ModeDesktop, EnvFile: env})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !slices.Contains(Args(cfg), "--remote-debugging-port=9333") {
		t.Fatalf("override port not reflected in args: %v", Args(cfg))
	}
}
