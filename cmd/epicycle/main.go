// Command epicycle validates, searches and solves compound planetary
// gear trains described as declarative JSON documents or Lisp scripts.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/epicycle/pkg/train"
)

const appName = "epicycle"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Compound planetary gear train toolkit",
	Long: `Epicycle computes and validates the geometry of compound ("double")
planetary gear trains: whether a tooth-count combination can close at
all, where every planet sits, how tooth phases propagate through the
mesh graph, and whether the resulting teeth clear each other.

Gear trains are exchanged as declarative JSON documents; an external
constraint solver can be invoked to resolve positions numerically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.epicycle.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(overlapCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(scriptCmd)
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".epicycle")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("EPICYCLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicit one must load.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && (errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// tolerances builds the tolerance set, letting the config file
// override individual defaults.
func tolerances() train.Tolerances {
	tol := train.DefaultTolerances()
	set := func(key string, dst *float64) {
		if viper.IsSet(key) {
			*dst = viper.GetFloat64(key)
		}
	}
	set("tolerances.mesh_distance", &tol.MeshDistance)
	set("tolerances.ring_fit", &tol.RingFit)
	set("tolerances.center_distance", &tol.CenterDistance)
	set("tolerances.phase_fraction", &tol.PhaseFraction)
	set("tolerances.tip_clearance", &tol.TipClearance)
	set("tolerances.sample_clearance", &tol.SampleClearance)
	set("tolerances.near_zero", &tol.NearZero)
	set("tolerances.plausible_angle_min", &tol.PlausibleAngleMin)
	set("tolerances.plausible_angle_max", &tol.PlausibleAngleMax)
	return tol
}

func logger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadTrain reads and resolves a gear-train document file.
func loadTrain(path string) (*train.Train, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := train.Parse(data)
	if err != nil {
		return nil, err
	}
	return train.FromDocument(doc)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
