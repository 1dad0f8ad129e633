// Package wrapper implements the relocation helper that runs as the
// last stage inside the jail: change the working directory, then
// replace the process image with the target command. It is deliberately
// the smallest possible trusted surface — no environment manipulation,
// no retries, no logging beyond one stderr line per failure.
package wrapper

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrUsage reports an invocation with too few arguments.
var ErrUsage = errors.New("too few arguments")

// Invocation is the positional contract of the process-wrapper binary:
//
//	<wrapper> <directory> [<separator>] <executable> [<arg>...]
//
// The slot after the directory conventionally holds "--" to separate
// wrapper arguments from target arguments, but its content is never
// inspected. TargetArgv starts at the executable slot, so TargetArgv[0]
// becomes the target's own argv[0] unchanged.
type Invocation struct {
	Name       string
	Dir        string
	TargetArgv []string
}

// Parse slices the raw argument vector of the wrapper process into an
// Invocation. It returns ErrUsage when args has fewer than 3 entries.
// No argument content is interpreted or validated beyond positions.
func Parse(args []string) (*Invocation, error) {
	if len(args) < 3 {
		return nil, ErrUsage
	}
	inv := &Invocation{
		Name: args[0],
		Dir:  args[1],
	}
	if len(args) > 3 {
		inv.TargetArgv = args[3:]
	}
	return inv, nil
}

// Run changes the working directory to inv.Dir and replaces the current
// process image with the target. On success it does not return: the
// process continues as the target, which observes the new working
// directory from its first instruction. Run returns only on failure,
// with an error naming the step, the literal path and the OS reason.
//
// The directory change is not rolled back when the exec fails; the
// process is about to exit either way.
func (inv *Invocation) Run() error {
	if err := syscall.Chdir(inv.Dir); err != nil {
		return fmt.Errorf("chdir(%s) failed: %w", inv.Dir, err)
	}

	// An invocation with exactly 3 entries has no executable slot; the
	// empty path fails at the OS level like any other bad path.
	path := ""
	if len(inv.TargetArgv) > 0 {
		path = inv.TargetArgv[0]
	}

	// The environment is inherited unchanged, per execve semantics.
	if err := replaceImage(path, inv.TargetArgv, os.Environ()); err != nil {
		return fmt.Errorf("exec(%s) failed: %w", path, err)
	}

	// replaceImage does not return on success.
	return fmt.Errorf("exec(%s) failed: unexpected return", path)
}
