package cmdline

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser best-effort launches the system browser at url, falling
// back to printing it for the user to open themselves. PKCE account
// binding from a headless session (e.g. CI, SSH) relies on this fallback.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		fmt.Printf("Open this URL to continue authentication:\n%s\n", url)
		return nil
	}
	return nil
}
