//go:build linux

package jail

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// DetectCapabilities probes the host for isolation support.
func DetectCapabilities() Capabilities {
	return Capabilities{
		Root:          os.Geteuid() == 0,
		UserNamespace: detectUserNamespace(),
	}
}

func detectUserNamespace() bool {
	// Debian kernels gate unprivileged user namespaces behind a sysctl.
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err == nil {
		return strings.TrimSpace(string(data)) == "1"
	}

	// No sysctl — probe with a real unshare. This leaves the probing
	// process in a fresh user namespace, which is fine for the
	// short-lived supervisor: the jail runner builds its own anyway.
	return unix.Unshare(unix.CLONE_NEWUSER) == nil
}
