package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/VikingOwl91/procjail/internal/config"
	"github.com/VikingOwl91/procjail/internal/integrity"
	"github.com/VikingOwl91/procjail/internal/jail"
	"github.com/VikingOwl91/procjail/internal/policy"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Error("failed to determine home directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defaultConfig := filepath.Join(home, ".procjail", "config.yaml")

	configPath := flag.String("config", defaultConfig, "path to config file")
	generatePins := flag.Bool("generate-pins", false, "print sha256 pins for all configured jail commands and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("procjail %s (%s, %s)\n", version, commit, date)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *generatePins {
		runGeneratePins(cfg)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <jail>\n", os.Args[0])
		os.Exit(1)
	}
	alias := flag.Arg(0)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := launch(ctx, logger, cfg, alias)
	if err != nil {
		logger.Error("launch failed", slog.String("jail", alias), slog.String("error", err.Error()))
		os.Exit(1)
	}
	os.Exit(code)
}

// launch runs one configured jail to completion and returns the jailed
// process's exit code.
func launch(ctx context.Context, logger *slog.Logger, cfg *config.Config, alias string) (int, error) {
	jc, ok := cfg.Jails[alias]
	if !ok {
		return 0, fmt.Errorf("unknown jail %q", alias)
	}

	dir := jc.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return 0, fmt.Errorf("determining working directory: %w", err)
		}
		dir = cwd
	}

	engine, err := policy.New(cfg.Policy)
	if err != nil {
		return 0, fmt.Errorf("compiling policy: %w", err)
	}
	effect, rule := engine.Evaluate(policy.Request{Command: jc.Command, Args: jc.Args, Dir: dir})
	if effect == policy.Deny {
		return 0, fmt.Errorf("launch denied by policy rule %q", rule)
	}
	logger.Debug("launch allowed", slog.String("rule", rule))

	target, err := integrity.Verify(jc.Command, jc.Pin, jc.AllowedPaths)
	if err != nil {
		return 0, err
	}

	caps := jail.DetectCapabilities()
	level := caps.EffectiveLevel()
	if level == "none" {
		return 0, fmt.Errorf("no isolation available: need root or unprivileged user namespaces")
	}
	logger.Info("capabilities detected", slog.String("level", level))

	bindings := make([]*jail.Binding, 0, len(jc.Bindings))
	for _, s := range jc.Bindings {
		b, err := jail.ParseBinding(s)
		if err != nil {
			return 0, err
		}
		bindings = append(bindings, b)
	}

	wrapperPath, err := resolveWrapper(cfg.Wrapper)
	if err != nil {
		return 0, err
	}

	j, err := jail.New(&jail.Options{
		Command:     target.Path,
		Args:        jc.Args,
		Dir:         dir,
		Env:         jail.FilterEnv(os.Environ(), jc.EnvAllowlist),
		Bindings:    bindings,
		RunnerPath:  cfg.JailRunner,
		WrapperPath: wrapperPath,
		OutputDir:   cfg.OutputDir,
	})
	if err != nil {
		return 0, err
	}
	defer j.Cleanup()

	cmd := j.Command(ctx)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger.Info("launching jail",
		slog.String("jail", alias),
		slog.String("command", target.Path),
		slog.String("dir", dir))

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("running jail: %w", err)
	}
	return 0, nil
}

// resolveWrapper locates the process-wrapper helper: the configured
// path if set, otherwise next to the procjail binary itself.
func resolveWrapper(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating process-wrapper: %w", err)
	}
	return filepath.Join(filepath.Dir(self), "process-wrapper"), nil
}

func runGeneratePins(cfg *config.Config) {
	fmt.Println("jails:")
	for alias, jc := range cfg.Jails {
		resolved, err := integrity.ResolveExecutable(jc.Command)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: # error resolving: %v\n", alias, err)
			continue
		}
		digest, err := integrity.FileDigest(resolved)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: # error hashing: %v\n", alias, err)
			continue
		}
		fmt.Printf("  %s:\n    pin: %q\n", alias, digest)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
