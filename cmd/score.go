package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/propguard/propguard/internal/config"
	"github.com/propguard/propguard/internal/model"
	"github.com/propguard/propguard/internal/trust"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a listing or signal bundle without persisting",
	Long: `Score a property listing through the full validator pipeline, or
score a pre-collected signal bundle offline with the deterministic
trust engine alone.

Examples:
  # Run validators and score a listing
  propguard score --listing listing.json

  # Score an already-collected signal bundle (no network calls)
  propguard score --bundle signals.json

  # Override weights and thresholds from a YAML file
  propguard score --bundle signals.json --scorer-config weights.yaml`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("listing", "", "path to a listing JSON file")
	f.String("bundle", "", "path to a signal bundle JSON file")
	f.String("scorer-config", "", "path to a YAML file overriding scorer weights/thresholds")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listingPath, _ := cmd.Flags().GetString("listing")
	bundlePath, _ := cmd.Flags().GetString("bundle")
	scorerPath, _ := cmd.Flags().GetString("scorer-config")

	if (listingPath == "") == (bundlePath == "") {
		return eris.New("score: exactly one of --listing or --bundle is required")
	}

	scorerCfg := cfg.Scorer
	if scorerPath != "" {
		overridden, err := loadScorerConfig(scorerPath)
		if err != nil {
			return err
		}
		scorerCfg = *overridden
	}
	if err := trust.ValidateConfig(scorerCfg); err != nil {
		return err
	}

	var result *model.EvaluationResult

	if bundlePath != "" {
		bundle, err := readJSONFile[model.SignalBundle](bundlePath)
		if err != nil {
			return err
		}
		engine := trust.NewEngine(scorerCfg, nil)
		result = engine.Evaluate(ctx, bundle)
	} else {
		listing, err := readJSONFile[model.Listing](listingPath)
		if err != nil {
			return err
		}
		result, err = scoreListing(ctx, *listing)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(result), "score: encode result")
}

func scoreListing(ctx context.Context, listing model.Listing) (*model.EvaluationResult, error) {
	e, err := initEnv(ctx, false)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	return e.Pipeline.Evaluate(ctx, listing)
}

// loadScorerConfig reads a ScorerConfig from a YAML file.
func loadScorerConfig(path string) (*config.ScorerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "score: read %s", path)
	}
	scorerCfg := trust.DefaultScorerConfig()
	if err := yaml.Unmarshal(raw, &scorerCfg); err != nil {
		return nil, eris.Wrapf(err, "score: parse %s", path)
	}
	return &scorerCfg, nil
}

func readJSONFile[T any](path string) (*T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "score: read %s", path)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, eris.Wrapf(err, "score: parse %s", path)
	}
	return &v, nil
}
