package main

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// app carries the configuration and logger resolved by the root command.
type app struct {
	configPath string
	imageDir   string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "localize",
		Short:        "Run box search and box refinement agents over images.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.imageDir, "image-dir", "", "Directory holding the images")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSearchCmd(a), newRefineCmd(a), newRegionsCmd(a), newListCmd(a))
	return rootCmd
}

// setup resolves defaults, the config file, LOCALIZE_* variables and flags, in that order.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	cfg.ApplyEnv()
	if a.imageDir != "" {
		cfg.ImageDir = a.imageDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// rng returns a generator seeded from the config, or randomly when the seed is 0.
func (a *app) rng() *rand.Rand {
	seed := a.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// parseBox reads "x1,y1,x2,y2".
func parseBox(s string) (common.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return common.Box{}, errors.Errorf("box %q: want x1,y1,x2,y2", s)
	}

	var c [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return common.Box{}, errors.Wrapf(err, "box %q", s)
		}
		c[i] = v
	}

	b := common.NewBox(c[0], c[1], c[2], c[3])
	if !b.Valid() {
		return common.Box{}, errors.Errorf("box %q has no area", s)
	}
	return b, nil
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode output")
	}
	return enc.Close()
}
