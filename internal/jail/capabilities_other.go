//go:build !linux

package jail

// DetectCapabilities reports no isolation support off Linux.
func DetectCapabilities() Capabilities {
	return Capabilities{}
}
