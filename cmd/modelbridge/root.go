package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"modelbridge/internal/bridge"
	"modelbridge/internal/config"
)

// flags mirrors the persistent flags; only flags the user set override the
// config file.
type flags struct {
	configPath     string
	addr           string
	backend        string
	model          string
	modelsDir      string
	llamaServerURL string
	logLevel       string
	logFormat      string
	corsOrigins    string
}

func buildRootCmd(out io.Writer) *cobra.Command {
	return buildRootCmdWith(out, &flags{})
}

func buildRootCmdWith(out io.Writer, f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:           "modelbridge",
		Short:         "Expose a stateful generative model over HTTP, NDJSON and WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	def := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&f.addr, "addr", def.Addr, "HTTP listen address (env MODELBRIDGE_ADDR)")
	pf.StringVar(&f.backend, "backend", def.Backend, "Model backend: simulated|llama-server|llama")
	pf.StringVar(&f.model, "model", "", "Model name, id or .gguf path")
	pf.StringVar(&f.modelsDir, "models-dir", def.ModelsDir, "Directory to scan for *.gguf model files")
	pf.StringVar(&f.llamaServerURL, "llama-server-url", "", "Base URL of an OpenAI-compatible llama.cpp server")
	pf.StringVar(&f.logLevel, "log-level", def.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&f.logFormat, "log-format", def.LogFormat, "Log format: console|json")
	pf.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated CORS origins; enables CORS when set")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server",
		Example: "  modelbridge serve --backend llama-server --llama-server-url http://127.0.0.1:8081",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}

	availabilityCmd := &cobra.Command{
		Use:   "availability",
		Short: "Probe the configured backend and print its availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			capability, closeFn := newCapability(cfg, log)
			defer closeFn()
			b := bridge.New(bridge.Config{Capability: capability, Logger: &log})
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			_, err = fmt.Fprintln(out, b.CheckAvailability(ctx))
			return err
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(out, "modelbridge", version)
			return err
		},
	}

	root.AddCommand(serveCmd, availabilityCmd, versionCmd)
	return root
}

// resolveConfig applies defaults < config file < MODELBRIDGE_ADDR < explicit flags.
func resolveConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if v := os.Getenv("MODELBRIDGE_ADDR"); v != "" {
		cfg.Addr = v
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("addr") {
		cfg.Addr = f.addr
	}
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("model") {
		cfg.Model = f.model
	}
	if changed("models-dir") {
		cfg.ModelsDir = f.modelsDir
	}
	if changed("llama-server-url") {
		cfg.LlamaServerURL = f.llamaServerURL
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("cors-origins") {
		cfg.CORS.Origins = splitCSV(f.corsOrigins)
		cfg.CORS.Enabled = len(cfg.CORS.Origins) > 0
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
