package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/loykin/browserboot/internal/config"
	"github.com/loykin/browserboot/internal/logger"
	"github.com/loykin/browserboot/internal/metrics"
	"github.com/loykin/browserboot/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string // optional TOML tuning file
	EnvFile    string // optional KEY=VALUE override file
}

// RunFlags holds flags for the desktop run command.
type RunFlags struct {
	KeepBrowser bool
}

// StatusFlags holds flags for the status command.
type StatusFlags struct {
	Timeout time.Duration
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	statusFlags := &StatusFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(globalFlags, runFlags),
		createServeCommand(globalFlags),
		createStatusCommand(globalFlags, statusFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "browserboot",
		Short: "Bootstrap a browser-backed automation API",
		Long: `Browserboot ensures a Chrome/Chromium instance is listening on its remote
debugging port, waits for the endpoint to become ready, and only then starts
the local automation API. The browser it spawned is torn down when the API
exits or the process is interrupted.

Examples:
  browserboot run                   # Desktop: headed browser, loopback API
  browserboot serve                 # Container: headless browser, 0.0.0.0 API
  browserboot status                # Probe the debug endpoint and the API`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML tuning file (optional)")
	root.PersistentFlags().StringVar(&flags.EnvFile, "env-file", ".env", "path to KEY=VALUE override file")
	return root
}

func createRunCommand(globalFlags *GlobalFlags, runFlags *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the API on an interactive desktop",
		Long: `Start (or adopt) a headed browser bound to loopback and launch the API.
A readiness timeout is only a warning here: the browser may still finish
starting while the API comes up.

Examples:
  browserboot run
  browserboot run --keep-browser    # leave the browser running for the next run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrchestration(config.ModeDesktop, globalFlags, runFlags.KeepBrowser)
		},
	}
	cmd.Flags().BoolVar(&runFlags.KeepBrowser, "keep-browser", false,
		"do not terminate a browser this run spawned; the next run adopts it")
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API in an unattended container",
		Long: `Start a headless browser with container-safe flags and launch the API on
all interfaces. The API never starts against an unconfirmed browser: a
readiness timeout aborts with a non-zero exit code.

Examples:
  browserboot serve
  browserboot serve --env-file=/etc/browserboot/.env`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrchestration(config.ModeContainer, globalFlags, false)
		},
	}
}

func runOrchestration(mode config.Mode, globalFlags *GlobalFlags, keepBrowser bool) error {
	cfg, err := config.Resolve(config.Options{
		Mode:       mode,
		EnvFile:    globalFlags.EnvFile,
		ConfigFile: globalFlags.ConfigPath,
	})
	if err != nil {
		return err
	}
	cfg.KeepBrowser = keepBrowser
	logger.Setup(os.Stderr, cfg.LogLevel)
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	return orchestrator.New(cfg).Run(context.Background())
}

func createStatusCommand(globalFlags *GlobalFlags, statusFlags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show browser and API reachability",
		Long: `Probe the browser debug endpoint directly and, when reachable, ask the
running API for its view of the acquired browser.

Examples:
  browserboot status
  browserboot status --timeout=5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(globalFlags, statusFlags)
		},
	}
	cmd.Flags().DurationVar(&statusFlags.Timeout, "timeout", 2*time.Second, "probe/request timeout")
	return cmd
}

func runStatus(globalFlags *GlobalFlags, statusFlags *StatusFlags) error {
	cfg, err := config.Resolve(config.Options{
		Mode:       config.ModeDesktop,
		EnvFile:    globalFlags.EnvFile,
		ConfigFile: globalFlags.ConfigPath,
	})
	if err != nil {
		return err
	}
	p := orchestrator.DebugProbe(cfg)
	fmt.Printf("browser debug endpoint %s: ready=%v\n", cfg.DebugAddr(), p.Ready())

	client := &http.Client{Timeout: statusFlags.Timeout}
	url := fmt.Sprintf("http://127.0.0.1:%d/browser/status", cfg.APIPort)
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("api %s: not reachable\n", url)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode api response: %w", err)
	}
	out, _ := json.MarshalIndent(body, "", "  ")
	fmt.Println(string(out))
	return nil
}
