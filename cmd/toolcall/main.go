package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcpguard/toolcall/internal/api"
	"github.com/mcpguard/toolcall/internal/client"
	"github.com/mcpguard/toolcall/internal/config"
	"github.com/mcpguard/toolcall/internal/detection"
	"github.com/mcpguard/toolcall/internal/dispatch"
	"github.com/mcpguard/toolcall/internal/logging"
	"github.com/mcpguard/toolcall/internal/tool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "toolcall",
		Short:         "Invoke named tools on a remote server over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newServeCmd(v, &configFile), newTimeCmd(v, &configFile))
	return rootCmd
}

func loadConfig(v *viper.Viper, configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level), nil
}

func newServeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tool-call HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v, *configFile)
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
	cmd.Flags().String("host", "127.0.0.1", "listen host")
	cmd.Flags().Int("port", 8080, "listen port")
	cmd.Flags().Bool("guard", false, "block tool calls whose parameters contain secrets")
	cmd.Flags().String("guard-config", "", "gitleaks rules file for the guard")
	_ = v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("guard.enabled", cmd.Flags().Lookup("guard"))
	_ = v.BindPFlag("guard.config_path", cmd.Flags().Lookup("guard-config"))
	return cmd
}

// newHandler assembles the tool registry, the dispatcher and the HTTP routes.
func newHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	registry := tool.Default()

	// Scan tool parameters for secrets only when the guard is switched on
	var opts []dispatch.Option
	if cfg.Guard.Enabled {
		engine, err := detection.NewEngine(cfg.Guard.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create detection engine: %w", err)
		}
		opts = append(opts, dispatch.WithGuard(engine))
		logger.Info("parameter guard enabled", "rules", cfg.Guard.ConfigPath)
	}

	h := api.NewAPI(cfg, registry, dispatch.New(registry, opts...), logger)
	return h.Router(), nil
}

func runServer(cfg *config.Config, logger *slog.Logger) error {
	handler, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting tool-call server", "addr", cfg.Addr(), "server_id", cfg.ServerID)
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error starting server: %w", err)
	case <-shutdown:
		logger.Info("shutting down server")
		// Give in-flight calls a moment to finish
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shut down")
		return nil
	}
}

func newTimeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "time <timezone>...",
		Short: "Get the current time in one or more time zones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(v, *configFile)
			if err != nil {
				return err
			}
			c := client.New(cfg.BaseURL)
			out := cmd.OutOrStdout()
			// Resolve each zone in turn; failures are printed, never returned
			for _, tz := range args {
				result := c.GetTimeInTimezone(cmd.Context(), tz)
				if asJSON {
					b, err := json.Marshal(result)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(b))
					continue
				}
				if result.Error != "" {
					fmt.Fprintf(out, "Error for %s: %s\n", tz, result.Error)
					continue
				}
				fmt.Fprintf(out, "Time in %s: %s (Request ID: %s)\n", tz, result.Time, *result.RequestID)
			}
			return nil
		},
	}
	cmd.Flags().String("base-url", "http://127.0.0.1:8080", "tool-call server base URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	_ = v.BindPFlag("client.base_url", cmd.Flags().Lookup("base-url"))
	return cmd
}
