// Package cmd wires webhunt's flag surface to the engine via cobra.
// Argument parsing/help rendering is cobra/pflag's job; this package
// only translates flags into engine.RunConfig and friends.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/internal/logging"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{Version: "dev", Commit: "HEAD", BuildDate: "unknown"}

// SetVersionInfo is called from cmd/webhunt/main.go with values baked
// in at build time via -ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

var rootCmd = &cobra.Command{
	Use:   "webhunt",
	Short: "HTTP content-discovery fuzzer",
	Long: `webhunt brute-forces directory and file paths on an HTTP target,
recursing into discovered directories or substituting a wordlist into
a URL template, filtering responses with an expression language, and
optionally resuming an interrupted run from a persisted state file.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command, returning cobra's exit-worthy error
// (if any) to cmd/webhunt/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (func(), error) {
	logger, err := logging.New(logging.Config{Level: logLevel, Profile: logProfile})
	if err != nil {
		return nil, fmt.Errorf("cmd: build logger: %w", err)
	}
	appLogger = logger
	return func() { _ = logger.Sync() }, nil
}

func exitError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logProfile, "log-profile", "STRUCTURED", "Log output profile (STRUCTURED|CONSOLE)")
}

var (
	logLevel   string
	logProfile string
	appLogger  = zap.NewNop()
)
