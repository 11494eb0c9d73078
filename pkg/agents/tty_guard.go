package agents

import "strings"

// ShouldSuppressTTYQueries reports whether the process must not send
// terminal queries (such as the background colour probe lipgloss and glamour
// issue). Queries in non-interactive runs leave escape sequences on stdout or
// block waiting for a reply.
func ShouldSuppressTTYQueries(args []string, envRobot, envTest bool) bool {
	if envRobot || envTest {
		return true
	}
	for _, arg := range args[min(1, len(args)):] {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue // positional
		}
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		switch {
		case strings.HasPrefix(name, "robot-"),
			strings.HasPrefix(name, "export-"),
			name == "help", name == "h", name == "version", name == "agents-blurb":
			return true
		}
	}
	return false
}
