//go:build linux

package wrapper

import "syscall"

// replaceImage wraps execve. On success it does not return; otherwise
// the error is always non-nil. No PATH resolution is performed beyond
// what execve itself does, so a relative path resolves against the
// working directory already changed by the caller.
func replaceImage(path string, argv, env []string) error {
	return syscall.Exec(path, argv, env)
}
