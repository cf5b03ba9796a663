// Package platform detects the runtime environment and supplies
// remediation hints tailored to it. The hint table is built once at
// startup and injected wherever errors are turned into user guidance,
// instead of scattering GOOS branches through the codebase.
package platform

import (
	"os"
	"runtime"
)

// Platform identifies the runtime environment
type Platform int

const (
	Linux Platform = iota
	MacOS
	Termux
	Windows
	Unknown
)

func (p Platform) String() string {
	switch p {
	case Linux:
		return "Linux"
	case MacOS:
		return "macOS"
	case Termux:
		return "Termux (Android)"
	case Windows:
		return "Windows"
	}
	return "Unknown"
}

// Issue classifies a failure for remediation lookup
type Issue int

const (
	IssuePermission Issue = iota
	IssueNetwork
	IssueStorage
	IssueAPIKey
	IssueMissingCommand
)

// Detect identifies the current platform. Termux is Android's Linux
// userland; it sets TERMUX_VERSION in every shell.
func Detect() Platform {
	return DetectFrom(runtime.GOOS, os.Getenv("TERMUX_VERSION"))
}

// DetectFrom is the injectable form used by tests
func DetectFrom(goos, termuxVersion string) Platform {
	if termuxVersion != "" {
		return Termux
	}
	switch goos {
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	}
	return Unknown
}

// Advisor maps issues to platform-specific remediation text
type Advisor struct {
	platform Platform
	hints    map[Issue]string
}

// NewAdvisor builds the hint table for a platform
func NewAdvisor(p Platform) *Advisor {
	hints := map[Issue]string{
		IssuePermission:     "Check permissions on ~/.terminote: chmod -R u+rw ~/.terminote",
		IssueNetwork:        "Check your internet connection and any proxy settings",
		IssueStorage:        "Ensure ~/.terminote exists and is writable",
		IssueAPIKey:         "Run 'neo setup' to configure your OpenRouter API key",
		IssueMissingCommand: "Install the missing command with your system package manager",
	}

	switch p {
	case Termux:
		hints[IssuePermission] = "Run 'termux-setup-storage' to grant Termux storage access, then retry"
		hints[IssueNetwork] = "Check Wi-Fi or mobile data; Termux needs the Android network permission"
		hints[IssueStorage] = "Session storage lives in Termux's home; run 'termux-setup-storage' if writes fail"
		hints[IssueMissingCommand] = "Install the missing command with 'pkg install <name>'"
	case MacOS:
		hints[IssueMissingCommand] = "Install the missing command with 'brew install <name>'"
	case Linux:
		hints[IssueMissingCommand] = "Install the missing command with apt, dnf, or pacman"
	}

	return &Advisor{platform: p, hints: hints}
}

// Platform returns the platform the advisor was built for
func (a *Advisor) Platform() Platform { return a.platform }

// Hint returns the remediation text for an issue
func (a *Advisor) Hint(issue Issue) string { return a.hints[issue] }

// PackageManager names the platform's package manager for doctor output
func (a *Advisor) PackageManager() string {
	switch a.platform {
	case Termux:
		return "pkg"
	case MacOS:
		return "brew"
	case Linux:
		return "apt/dnf/pacman"
	case Windows:
		return "winget"
	}
	return "unknown"
}
