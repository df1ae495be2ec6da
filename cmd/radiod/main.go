package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"radio-controller/internal/agent"
	"radio-controller/internal/config"
	"radio-controller/internal/logging"
)

// These variables are set by the build script.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var settingsPath string

	root := &cobra.Command{
		Use:   "radiod",
		Short: "Internet radio appliance control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(settingsPath)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&settingsPath, "settings", "/etc/radio/settings.json", "path to the appliance settings file")

	root.AddCommand(serveCmd(&settingsPath))
	root.AddCommand(validateCmd(&settingsPath))
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(settingsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backend agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*settingsPath)
		},
	}
}

func serve(settingsPath string) error {
	log := logging.NewFromEnv()
	log.Info().Str("version", version).Str("commit", commit).Str("built", date).Msg("starting radio controller")

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	a, err := agent.NewAgent(settings, log)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	go a.Run()

	// Wait for termination signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down agent")
	a.Shutdown()
	log.Info().Msg("agent shut down gracefully")
	return nil
}

func validateCmd(settingsPath *string) *cobra.Command {
	var variant string
	var stations bool

	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a hardware or stations configuration file",
		Long: "Validates the given configuration file and prints every problem found.\n" +
			"Exits non-zero when the file is invalid.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := config.Load(args[0])
			if err != nil {
				return err
			}

			var issues config.Issues
			if stations {
				issues = config.ValidateStations(tree)
			} else {
				issues = config.ValidateHardware(tree, config.Variant(variant))
			}

			if len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintln(os.Stderr, issue.String())
				}
				return fmt.Errorf("%s: %d problem(s) found", args[0], len(issues))
			}
			fmt.Printf("Successfully validated: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", string(config.VariantRotary), "hardware variant (rotary or encoder_oled)")
	cmd.Flags().BoolVar(&stations, "stations", false, "validate a stations directory instead of hardware config")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("radiod %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
