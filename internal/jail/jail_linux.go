//go:build linux

package jail

import "golang.org/x/sys/unix"

// Mount flags for the runner's -k specs.
const (
	msRdonly      = unix.MS_RDONLY
	msNosuid      = unix.MS_NOSUID
	msNodev       = unix.MS_NODEV
	msStrictatime = unix.MS_STRICTATIME
)
