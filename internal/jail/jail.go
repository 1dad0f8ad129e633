// Package jail assembles the sandboxed launch: it builds the jail
// runner's command line, which changes root into a scratch chroot,
// applies namespace isolation, and finally hands over to the
// process-wrapper helper that relocates into the working directory and
// execs the target.
package jail

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// BindingsEnvVar carries extra bindings as colon-separated compact
// forms, letting callers grant the jail additional paths without a
// config change.
const BindingsEnvVar = "PROCJAIL_BINDINGS"

var fixedRunnerArgs = []string{
	"-U", "-m", // map the current uid to root inside the user namespace
	"-M",      // map the current gid to root
	"-c", "0", // drop all capabilities
	"-n", // no_new_privs
	"-v", // mount namespace
	"-p", // PID namespace
	"-l", // IPC namespace
	"-I", // run the jailed process as init
	// proc is mounted read-only; /dev/shm gets a tmpfs so the target
	// can still use shared memory.
	"-k", "proc,/proc,proc," + strconv.Itoa(msRdonly),
	"-k", "tmpfs,/dev/shm,tmpfs," + strconv.Itoa(msNosuid|msNodev|msStrictatime) + ",mode=1777",
	"--logging=stderr",
}

// defaultBindings cover the loader, shared libraries and the handful of
// files most dynamically linked targets need to even start.
var defaultBindings = []*Binding{
	{Source: "/lib"},
	{Source: "/lib32"},
	{Source: "/lib64"},
	{Source: "/usr/lib"},
	{Source: "/usr/lib32"},
	// Read-write, else the runner fails to bind-remount them.
	{Source: "/dev/null", Writable: ReadWrite},
	{Source: "/dev/urandom", Writable: ReadWrite},
	// Targets that resolve users and groups need these.
	{Source: "/etc/passwd"},
	{Source: "/etc/group"},
	// Required for system(3) and anything that shells out.
	{Source: "/bin/sh"},
}

// Options configure a single jailed launch.
type Options struct {
	// Command is the target executable, symlinks already resolved.
	Command string
	// Args are the target's own arguments (argv[1:]).
	Args []string
	// Dir is the working directory the target starts in, changed to by
	// the wrapper after the jail is entered.
	Dir string
	// Env is the already-filtered environment for the jailed process.
	Env []string
	// Bindings are mounted into the jail in addition to the defaults.
	Bindings []*Binding
	// RunnerPath is the jailing binary (minijail0 or compatible).
	RunnerPath string
	// WrapperPath is the process-wrapper helper binary.
	WrapperPath string
	// OutputDir is created and bind-mounted read-write for artifacts.
	OutputDir string
}

// Jail is a fully assembled launch, ready to run.
type Jail struct {
	Argv []string
	Env  []string

	chrootDir string
}

// New builds the jail invocation: chroot scaffold, runner flags,
// bindings, then the wrapper handover. The returned Jail owns the
// scaffold; call Cleanup when the launch is done.
func New(opts *Options) (*Jail, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("jail: command is required")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("jail: working directory is required")
	}
	if opts.RunnerPath == "" {
		return nil, fmt.Errorf("jail: runner path is required")
	}
	if opts.WrapperPath == "" {
		return nil, fmt.Errorf("jail: wrapper path is required")
	}

	chrootDir, err := os.MkdirTemp("", "procjail-chroot-")
	if err != nil {
		return nil, fmt.Errorf("creating chroot scaffold: %w", err)
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
	}

	// /proc and /tmp are mount targets inside the chroot; /dev/shm
	// backs the tmpfs mount.
	for _, dir := range []string{"proc", "tmp", "dev/shm"} {
		if err := os.MkdirAll(filepath.Join(chrootDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating chroot scaffold: %w", err)
		}
	}

	argv := append([]string{opts.RunnerPath}, fixedRunnerArgs...)
	// Static mode needs no preload library, so a statically built
	// runner works and error messages reach stderr.
	argv = append(argv, "-T", "static", "--ambient")
	argv = append(argv, "-P", chrootDir)

	bindings, err := collectBindings(opts)
	if err != nil {
		return nil, err
	}

	for _, b := range bindings {
		if !exists(b.Source) {
			continue
		}
		if err := createBindTarget(chrootDir, b); err != nil {
			return nil, err
		}
		argv = append(argv, "-b", b.String())
	}

	// The wrapper receives the working directory, then the target's
	// full argument vector after the separator.
	argv = joinArgGroups("--",
		argv,
		[]string{opts.WrapperPath, opts.Dir},
		append([]string{opts.Command}, opts.Args...),
	)

	return &Jail{
		Argv:      argv,
		Env:       opts.Env,
		chrootDir: chrootDir,
	}, nil
}

// Command returns an exec.Cmd for the assembled launch. Stdio wiring is
// left to the caller.
func (j *Jail) Command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, j.Argv[0], j.Argv[1:]...)
	cmd.Env = j.Env
	return cmd
}

// ChrootDir exposes the scaffold location for diagnostics.
func (j *Jail) ChrootDir() string {
	return j.chrootDir
}

// Cleanup removes the chroot scaffold.
func (j *Jail) Cleanup() {
	_ = os.RemoveAll(j.chrootDir)
}

func collectBindings(opts *Options) ([]*Binding, error) {
	bindings := make([]*Binding, 0, len(opts.Bindings)+len(defaultBindings)+4)
	bindings = append(bindings, opts.Bindings...)
	bindings = append(bindings, defaultBindings...)

	if opts.OutputDir != "" {
		bindings = append(bindings, &Binding{Source: opts.OutputDir, Writable: ReadWrite})
	}

	// The working directory must be visible inside the jail for the
	// wrapper's relocation to land anywhere useful. Mounted read-write:
	// targets commonly write artifacts next to their inputs.
	bindings = append(bindings, &Binding{Source: opts.Dir, Writable: ReadWrite})

	bindings = append(bindings, &Binding{Source: opts.Command})
	bindings = append(bindings, &Binding{Source: opts.WrapperPath})

	for _, s := range strings.Split(os.Getenv(BindingsEnvVar), ":") {
		if s == "" {
			continue
		}
		b, err := ParseBinding(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", BindingsEnvVar, err)
		}
		bindings = append(bindings, b)
	}

	for _, b := range bindings {
		if b.Target == "" {
			b.Target = b.Source
		}
	}

	// Parents must be bound before their children, which sorting by
	// target guarantees.
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Target < bindings[j].Target
	})

	return bindings, nil
}

// createBindTarget pre-creates the mount point inside the chroot so the
// runner's bind mount has somewhere to land.
func createBindTarget(chrootDir string, b *Binding) error {
	if isDir(b.Source) {
		if err := os.MkdirAll(filepath.Join(chrootDir, b.Target), 0o755); err != nil {
			return fmt.Errorf("creating bind target for %q: %w", b.Source, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Join(chrootDir, filepath.Dir(b.Target)), 0o755); err != nil {
		return fmt.Errorf("creating bind target for %q: %w", b.Source, err)
	}
	if err := touch(filepath.Join(chrootDir, b.Target)); err != nil {
		return fmt.Errorf("creating bind target for %q: %w", b.Source, err)
	}
	return nil
}

// joinArgGroups concatenates argument groups with sep between adjacent
// groups.
func joinArgGroups(sep string, groups ...[]string) []string {
	var out []string
	for i, g := range groups {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, g...)
	}
	return out
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
