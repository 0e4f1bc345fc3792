// Package gitinfo looks up source revision information for image
// provenance labels.
//
// It shells out to the git CLI rather than using a Go Git library:
// a single rev-parse is all that is needed, and the CLI is already a
// prerequisite for any checkout-based build context.
package gitinfo

import (
	"os/exec"
	"strings"
)

// Revision returns the commit hash of HEAD for the repository
// containing dir.
//
// The lookup is best-effort: when dir is not inside a Git repository,
// or the git binary is unavailable, Revision returns "" and the caller
// simply omits the revision label. Publishing must not fail because the
// build context is an exported tarball instead of a checkout.
func Revision(dir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
