//go:build !linux

package jail

// Mount flag values as defined in golang.org/x/sys/unix, which does not
// export them off Linux. Kept here so the invocation can still be
// assembled and inspected on other platforms.
const (
	msRdonly      = 0x1
	msNosuid      = 0x2
	msNodev       = 0x4
	msStrictatime = 0x1000000
)
