package sandbox

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

// DefaultDenyList holds substrings that mark code reaching for the operating
// system, processes, files, the network or interpreter internals.
var DefaultDenyList = []string{
	"import",
	"__",
	"os.",
	"sys.",
	"subprocess",
	"popen",
	"system(",
	"exec",
	"eval",
	"compile",
	"open(",
	"socket",
	"urllib",
	"requests",
	"http",
	"pathlib",
	"shutil",
	"glob",
	"getattr",
	"setattr",
}

// Screen rejects code containing any deny-listed token, compared case-insensitively.
func Screen(code string, denyList []string) error {
	lowered := strings.ToLower(code)
	for _, token := range denyList {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if strings.Contains(lowered, token) {
			return fmt.Errorf("%w: contains %q", contractx.ErrUnsafeCode, token)
		}
	}
	return nil
}
