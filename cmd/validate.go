package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/propguard/propguard/internal/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a single validator and print its signal",
}

var validateAgentCmd = &cobra.Command{
	Use:   "agent <lister name>",
	Short: "Verify a lister's credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		return printSignal(e.Agents.VerifyLister(ctx, args[0]))
	},
}

var validateImagesCmd = &cobra.Command{
	Use:   "images <url> [url...]",
	Short: "Validate property images for duplicates and authenticity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		return printSignal(e.Images.ValidateImages(ctx, args))
	},
}

var validatePlatformCmd = &cobra.Command{
	Use:   "platform --listing <file>",
	Short: "Cross-check a listing against other platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, _ := cmd.Flags().GetString("listing")
		if path == "" {
			return eris.New("validate platform: --listing is required")
		}
		listing, err := readJSONFile[model.Listing](path)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		return printSignal(e.Platforms.ValidateListing(ctx, *listing))
	},
}

func printSignal(sig *model.Signal) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(sig), "validate: encode signal")
}

func init() {
	validatePlatformCmd.Flags().String("listing", "", "path to a listing JSON file")

	validateCmd.AddCommand(validateAgentCmd)
	validateCmd.AddCommand(validateImagesCmd)
	validateCmd.AddCommand(validatePlatformCmd)
	rootCmd.AddCommand(validateCmd)
}
