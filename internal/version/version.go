package version

import (
	"strings"

	"github.com/fatih/color"
)

// Version information for the flowdiag CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Plain returns Version without decoration, for protocol handshakes.
func Plain() string {
	return Version
}

// Colored renders Version with the major, minor and patch numbers
// highlighted. Anything after the patch number is kept as is.
func Colored() string {
	parts := strings.SplitN(Version, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	patch, rest := parts[2], ""
	if i := strings.IndexAny(patch, "-+"); i >= 0 {
		patch, rest = patch[:i], patch[i:]
	}
	return versionMajorColor.Sprint(parts[0]) + "." +
		versionMinorColor.Sprint(parts[1]) + "." +
		versionPatchColor.Sprint(patch) + rest
}

// Info is the multi-line build description printed by `flowdiag version`.
func Info(colored bool) string {
	var b strings.Builder
	b.WriteString("flowdiag ")
	if colored {
		b.WriteString(Colored())
	} else {
		b.WriteString(Version)
	}
	b.WriteByte('\n')
	if GitCommit != "" {
		b.WriteString("commit: " + GitCommit + "\n")
	}
	if BuildDate != "" {
		b.WriteString("built:  " + BuildDate + "\n")
	}
	return b.String()
}
