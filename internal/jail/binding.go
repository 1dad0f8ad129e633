package jail

import (
	"fmt"
	"strconv"
	"strings"
)

// WritableOption selects whether a binding is mounted read-only or
// read-write inside the jail.
type WritableOption int

const (
	ReadOnly WritableOption = iota
	ReadWrite
)

// Binding mounts a host path into the jail's filesystem.
type Binding struct {
	Source   string
	Target   string // defaults to Source when empty
	Writable WritableOption
}

// String renders the compact form understood by the jail runner:
// "src", "src,target" or "src,target,0|1". A comma in either path
// forces the long form so the runner does not misparse it.
func (b *Binding) String() string {
	target := b.Target
	if target == "" {
		target = b.Source
	}
	if b.Writable == ReadWrite {
		return fmt.Sprintf("%s,%s,1", b.Source, target)
	}
	if strings.ContainsRune(b.Source, ',') || strings.ContainsRune(target, ',') {
		return fmt.Sprintf("%s,%s,0", b.Source, target)
	}
	if b.Source != target {
		return fmt.Sprintf("%s,%s", b.Source, target)
	}
	return b.Source
}

// ParseBinding parses the compact form produced by String.
func ParseBinding(s string) (*Binding, error) {
	tokens := strings.SplitN(s, ",", 3)
	if tokens[0] == "" {
		return nil, fmt.Errorf("binding %q: empty source", s)
	}
	switch len(tokens) {
	case 1:
		return &Binding{Source: tokens[0], Target: tokens[0]}, nil
	case 2:
		return &Binding{Source: tokens[0], Target: tokens[1]}, nil
	case 3:
		writable, err := strconv.Atoi(tokens[2])
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", s, err)
		}
		if writable != 0 && writable != 1 {
			return nil, fmt.Errorf("binding %q: writable flag must be 0 or 1", s)
		}
		return &Binding{Source: tokens[0], Target: tokens[1], Writable: WritableOption(writable)}, nil
	}
	return nil, fmt.Errorf("malformed binding %q", s)
}
