package tools

import (
	"strings"

	"github.com/atc-agent/atc/internal/toolerrors"
)

// checkHostAllowed enforces the session's network allowlist: exact,
// case-insensitive hostname match, no wildcards, no port component. An
// absent or empty allowlist denies everything.
func checkHostAllowed(allowlist *[]string, host string) error {
	if allowlist != nil {
		for _, allowed := range *allowlist {
			if strings.EqualFold(allowed, host) {
				return nil
			}
		}
	}
	return toolerrors.New(toolerrors.KindForbiddenHost, "host %q is not on the session allowlist", host)
}
