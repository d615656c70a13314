package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vitalvas/signedrequests/profiles"
	"github.com/vitalvas/signedrequests/signedreq"
)

// app holds the global flags shared by every command.
type app struct {
	configPath string
	envFiles   []string
	profile    string
	logLevel   string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "signedreq",
		Short: "Sign and verify HTTP requests with shared-key HMAC signatures",
		Long: `signedreq signs outgoing HTTP requests and verifies incoming ones using
named profiles that share a secret key between sender and receiver.

Profiles are read from a YAML file. ${VAR} references in the file are
expanded from the environment after the .env files are loaded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := newLogger(a.logLevel)
			if err != nil {
				return err
			}

			a.logger = logger

			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "signed-requests.yaml", "profile configuration file")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the configuration; missing files are skipped")
	flags.StringVarP(&a.profile, "profile", "p", signedreq.DefaultProfileName, "profile name")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug|info|warn|error")

	cmd.AddCommand(newSignCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newAlgorithmsCmd())

	return cmd
}

func (a *app) loadProfiles() (signedreq.Profiles, error) {
	if err := profiles.LoadEnvFiles(a.envFiles...); err != nil {
		return nil, err
	}

	return profiles.LoadFile(a.configPath)
}

func (a *app) resolveProfile() (signedreq.Profile, error) {
	all, err := a.loadProfiles()
	if err != nil {
		return signedreq.Profile{}, err
	}

	return all.Resolve(a.profile)
}

// newLogger builds a JSON logger writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List supported signing algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, alg := range signedreq.Algorithms() {
				fmt.Fprintln(cmd.OutOrStdout(), alg)
			}

			return nil
		},
	}
}
