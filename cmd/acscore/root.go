package main

import (
	"os"

	"github.com/ieee0824/acscore"
	"github.com/ieee0824/acscore/acoustic"
	"github.com/ieee0824/acscore/adapt"
	"github.com/ieee0824/acscore/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string // Log verbosity level

	// shared by score and align
	modelPath   string  // gob model set
	featurePath string  // text feature file, one frame per line
	configPath  string  // YAML scoring config
	xformPath   string  // YAML transform set
	blockSize   int     // frames per cache refill
	acScale     float64 // acoustic scale
	useAdapted  bool    // score through transforms
	usePDE      bool    // partial distance elimination
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "acscore",
	Short: "Cached acoustic scoring for HMM state sequences",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	for _, c := range []*cobra.Command{scoreCmd, alignCmd} {
		c.Flags().StringVar(&modelPath, "model", "", "Acoustic model set (gob)")
		c.Flags().StringVar(&featurePath, "features", "", "Feature file, one whitespace-separated frame per line")
		c.Flags().StringVar(&configPath, "config", "", "Scoring config (YAML)")
		c.Flags().StringVar(&xformPath, "xforms", "", "Feature transform set (YAML), implies --adapted")
		c.Flags().IntVar(&blockSize, "block-size", 10, "Frames scored per cache refill")
		c.Flags().Float64Var(&acScale, "ac-scale", 1.0, "Acoustic scale applied to cached scores")
		c.Flags().BoolVar(&useAdapted, "adapted", false, "Score through feature-space transforms")
		c.Flags().BoolVar(&usePDE, "pde", false, "Partial distance elimination (adapted scoring only)")
		_ = c.MarkFlagRequired("model")
		_ = c.MarkFlagRequired("features")
	}

	rootCmd.AddCommand(initModelCmd, scoreCmd, alignCmd)
}

// sessionConfig returns the config file values (or defaults) overridden by
// any flags set on the command line.
func sessionConfig(cmd *cobra.Command) config.Config {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("block-size") {
		cfg.BlockSize = blockSize
	}
	if flags.Changed("ac-scale") {
		cfg.AcScale = acScale
	}
	if flags.Changed("adapted") {
		cfg.UseAdapted = useAdapted
	}
	if flags.Changed("pde") {
		cfg.PDE = usePDE
	}
	if xformPath != "" {
		cfg.UseAdapted = true
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("%v", err)
	}
	return cfg
}

// loadSession loads the model set, features and optional transforms and
// assembles a Scorer.
func loadSession(cmd *cobra.Command) (*acscore.Scorer, acoustic.Sequence) {
	f, err := os.Open(modelPath)
	if err != nil {
		logrus.Fatalf("open acoustic model: %v", err)
	}
	ms, err := acoustic.Load(f)
	f.Close()
	if err != nil {
		logrus.Fatalf("load acoustic model: %v", err)
	}

	ff, err := os.Open(featurePath)
	if err != nil {
		logrus.Fatalf("open features: %v", err)
	}
	obs, err := acoustic.ReadObservations(ff, ms.StreamWidths)
	ff.Close()
	if err != nil {
		logrus.Fatalf("read features %s: %v", featurePath, err)
	}
	logrus.Infof("features: %d frames, streams %v", obs.Len(), ms.StreamWidths)

	opts := []acscore.Option{acscore.WithConfig(sessionConfig(cmd))}
	if xformPath != "" {
		set, err := adapt.Load(xformPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts = append(opts, acscore.WithTransforms(set))
	}
	s, err := acscore.NewScorerFromModels(ms, opts...)
	if err != nil {
		logrus.Fatalf("build scorer: %v", err)
	}
	return s, obs
}
