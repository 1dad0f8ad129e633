package jail

// Capabilities describes what isolation the host can provide.
type Capabilities struct {
	// Root is true when running with euid 0, which lets the runner set
	// up namespaces without unprivileged user namespace support.
	Root bool
	// UserNamespace is true when unprivileged user namespaces are
	// available.
	UserNamespace bool
}

// EffectiveLevel reports how a launch can be isolated: "full" with
// unprivileged user namespaces, "privileged" when only root privileges
// make namespacing possible, "none" otherwise.
func (c Capabilities) EffectiveLevel() string {
	switch {
	case c.UserNamespace:
		return "full"
	case c.Root:
		return "privileged"
	default:
		return "none"
	}
}
