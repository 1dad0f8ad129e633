//go:build !linux

package wrapper

import (
	"fmt"
	"runtime"
)

// replaceImage is not supported on non-Linux platforms.
func replaceImage(_ string, _, _ []string) error {
	return fmt.Errorf("process image replacement is not supported on %s", runtime.GOOS)
}
