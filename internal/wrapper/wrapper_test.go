package wrapper

import (
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoArgs(t *testing.T) {
	_, err := Parse([]string{"wrapper"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParse_DirectoryOnly(t *testing.T) {
	_, err := Parse([]string{"wrapper", "/tmp/work"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParse_MinimumArity(t *testing.T) {
	// Three entries pass the arity check even though the executable
	// slot is absent; the failure then surfaces at exec time.
	inv, err := Parse([]string{"wrapper", "/tmp/work", "--"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/work", inv.Dir)
	assert.Empty(t, inv.TargetArgv)
}

func TestParse_TargetSlicing(t *testing.T) {
	inv, err := Parse([]string{"wrapper", "/tmp/work", "--", "/bin/echo", "hello"})
	require.NoError(t, err)
	assert.Equal(t, "wrapper", inv.Name)
	assert.Equal(t, "/tmp/work", inv.Dir)
	assert.Equal(t, []string{"/bin/echo", "hello"}, inv.TargetArgv)
}

func TestParse_SeparatorNotInspected(t *testing.T) {
	// The separator slot is positional only; any value is accepted.
	inv, err := Parse([]string{"wrapper", "/tmp/work", "not-a-dash-dash", "/bin/true"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/true"}, inv.TargetArgv)
}

func TestRun_ChdirFailure(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)

	inv, err := Parse([]string{"wrapper", "/nonexistent-procjail-dir", "--", "/bin/echo"})
	require.NoError(t, err)

	err = inv.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent-procjail-dir")
	assert.Contains(t, err.Error(), "chdir")
	assert.ErrorIs(t, err, syscall.ENOENT)

	// A failed chdir must not move the process.
	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, orig, cwd)
}

func TestRun_ExecFailure(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("exec is only wired up on Linux")
	}

	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	dir := t.TempDir()
	missing := filepath.Join(dir, "no-such-binary")

	inv, err := Parse([]string{"wrapper", dir, "--", missing})
	require.NoError(t, err)

	err = inv.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
	assert.Contains(t, err.Error(), "exec")

	// The directory change sticks even when the exec fails.
	cwd, err := os.Getwd()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, cwd)
}

func TestRun_MissingExecutableSlot(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("exec is only wired up on Linux")
	}

	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	inv, err := Parse([]string{"wrapper", t.TempDir(), "--"})
	require.NoError(t, err)

	err = inv.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec() failed")
	assert.ErrorIs(t, err, syscall.ENOENT)
}

func TestRun_NotExecutable(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("exec is only wired up on Linux")
	}

	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	dir := t.TempDir()
	plain := filepath.Join(dir, "plain-file")
	require.NoError(t, os.WriteFile(plain, []byte("not a program"), 0o644))

	inv, err := Parse([]string{"wrapper", dir, "--", plain})
	require.NoError(t, err)

	err = inv.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), plain)
	assert.ErrorIs(t, err, syscall.EACCES)
}
