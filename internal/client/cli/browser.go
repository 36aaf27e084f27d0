package cli

import (
	"fmt"
	"os/exec"
	"runtime"
)

// startCommand is a test seam for launching the browser process.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// openBrowser opens url in the default browser of the current platform.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return startCommand("open", url)
	case "windows":
		return startCommand("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		return startCommand("xdg-open", url)
	default:
		return fmt.Errorf("unsupported platform %q, open manually: %s", runtime.GOOS, url)
	}
}
