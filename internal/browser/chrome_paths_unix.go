//go:build !windows && !darwin

package browser

// chromeCandidates lists well-known install locations, checked in order.
func chromeCandidates() []string {
	return []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
		"/opt/google/chrome/chrome",
	}
}
