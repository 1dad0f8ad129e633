// Package integrity verifies the target executable before it is
// jailed: path resolution, an optional path allowlist, and an optional
// sha256 pin against the on-disk binary.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Target is a verified launch target.
type Target struct {
	Path   string // absolute, symlinks resolved
	Digest string // "sha256:..." (set only when a pin was checked)
}

// ResolveExecutable resolves a command to an absolute, symlink-free
// path. Non-absolute commands are searched on PATH first.
func ResolveExecutable(command string) (string, error) {
	path := command
	if !filepath.IsAbs(command) {
		found, err := exec.LookPath(command)
		if err != nil {
			return "", fmt.Errorf("resolving command %q: %w", command, err)
		}
		abs, err := filepath.Abs(found)
		if err != nil {
			return "", fmt.Errorf("absolute path for %q: %w", found, err)
		}
		path = abs
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %q: %w", path, err)
	}
	return resolved, nil
}

// CheckPath verifies that resolved lives under one of the allowed
// prefixes. An empty allowlist imposes no restriction.
func CheckPath(resolved string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}

	for _, prefix := range allowed {
		prefix = expandTilde(prefix)
		dir := prefix
		if !strings.HasSuffix(dir, string(filepath.Separator)) {
			dir += string(filepath.Separator)
		}
		if resolved == prefix || strings.HasPrefix(resolved, dir) {
			return nil
		}
	}

	return fmt.Errorf("executable %q is not under any allowed path", resolved)
}

// FileDigest hashes the regular file at path, returning "sha256:<hex>".
func FileDigest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%q is not a regular file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %q: %w", path, err)
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

// ParsePin validates a "sha256:<64 hex>" pin and returns the digest.
func ParsePin(s string) (string, error) {
	algorithm, digest, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("invalid pin %q: expected \"sha256:<digest>\"", s)
	}
	if algorithm != "sha256" {
		return "", fmt.Errorf("unsupported pin algorithm %q: only sha256 is supported", algorithm)
	}
	if len(digest) != 64 {
		return "", fmt.Errorf("sha256 digest must be 64 hex characters, got %d", len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("invalid hex digest in pin %q: %w", s, err)
	}
	return digest, nil
}

// Verify resolves command, applies the path allowlist and, when pin is
// non-empty, checks the binary against it. Either check can be skipped
// by leaving pin empty or allowed nil.
func Verify(command, pin string, allowed []string) (*Target, error) {
	resolved, err := ResolveExecutable(command)
	if err != nil {
		return nil, err
	}

	if err := CheckPath(resolved, allowed); err != nil {
		return nil, err
	}

	target := &Target{Path: resolved}

	if pin != "" {
		if _, err := ParsePin(pin); err != nil {
			return nil, err
		}
		digest, err := FileDigest(resolved)
		if err != nil {
			return nil, err
		}
		if digest != pin {
			return nil, fmt.Errorf("pin mismatch for %q: expected %s, computed %s", resolved, pin, digest)
		}
		target.Digest = digest
	}

	return target, nil
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
