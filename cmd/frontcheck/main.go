package main

import (
	"fmt"
	"net/http"
	"os"

	"frontcheck/internal/harness"
	"frontcheck/internal/review"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "frontcheck",
	Short: "Visual verification harness for the NetMonitor frontend",
	Long: `frontcheck loads the served frontend in a headless browser with a
mocked native-host bridge installed before page load, relays the page's
console output, and captures a screenshot for human review.

Invoked with no arguments it performs one capture against the default
local URL.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return capture()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform one capture of the frontend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return capture()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve past run records for review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf(":%d", port)
		srv := review.NewServer(".", log.Logger)
		log.Info().Str("addr", addr).Msg("review server listening")
		return http.ListenAndServe(addr, srv.Routes())
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List run ids, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := harness.FindRuns(".")
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func capture() error {
	res, err := harness.Run(harness.Options{
		TargetURL:      viper.GetString("target_url"),
		ScreenshotPath: viper.GetString("screenshot"),
		Headless:       viper.GetBool("headless"),
		SkipInstall:    viper.GetBool("skip_install"),
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("run_id", res.RunID).
		Str("screenshot", res.Manifest.Screenshot).
		Int64("console_errors", res.Manifest.ConsoleErrors).
		Msg("capture complete")
	return nil
}

func initConfig() {
	viper.SetDefault("target_url", harness.DefaultTargetURL)
	viper.SetDefault("screenshot", harness.DefaultScreenshotPath)
	viper.SetDefault("headless", true)
	viper.SetDefault("skip_install", false)

	viper.SetConfigName("frontcheck")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("FRONTCHECK")
	viper.AutomaticEnv()

	// The config file is optional; defaults cover the no-arguments case.
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("config file loaded")
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	// Root and run take the same capture flags; bindings happen in PreRun so
	// viper picks up whichever command actually parsed.
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().String("url", harness.DefaultTargetURL, "Target frontend URL")
		c.Flags().String("screenshot", harness.DefaultScreenshotPath, "Screenshot output path")
		c.Flags().Bool("headless", true, "Run the browser headless")
		c.Flags().Bool("skip-install", false, "Skip the playwright browser install step")
		c.PreRun = func(cmd *cobra.Command, args []string) {
			_ = viper.BindPFlag("target_url", cmd.Flags().Lookup("url"))
			_ = viper.BindPFlag("screenshot", cmd.Flags().Lookup("screenshot"))
			_ = viper.BindPFlag("headless", cmd.Flags().Lookup("headless"))
			_ = viper.BindPFlag("skip_install", cmd.Flags().Lookup("skip-install"))
		}
	}

	serveCmd.Flags().Int("port", 8787, "Port to listen on")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
