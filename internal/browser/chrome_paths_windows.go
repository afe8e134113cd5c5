//go:build windows

package browser

// chromeCandidates lists well-known install locations, checked in order.
func chromeCandidates() []string {
	return []string{
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Chromium\Application\chrome.exe`,
	}
}
