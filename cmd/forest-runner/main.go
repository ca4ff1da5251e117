// cmd/forest-runner/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SyedDaiam9101/forest-runner/internal/cache"
	"github.com/SyedDaiam9101/forest-runner/internal/config"
	"github.com/SyedDaiam9101/forest-runner/internal/engine"
	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
	"github.com/SyedDaiam9101/forest-runner/internal/metrics"
	"github.com/SyedDaiam9101/forest-runner/internal/runner"
	"github.com/SyedDaiam9101/forest-runner/internal/trace"
)

const (
	appName = "forest-runner"
	version = "1.0.0"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Run a single inference pass over an ONNX random-forest model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to config file (optional)")
	root.PersistentFlags().String("model", "", "Path to ONNX model file")
	root.PersistentFlags().String("onnx-lib", "", "Path to the onnxruntime shared library")
	root.PersistentFlags().String("log-level", "", "Log verbosity (trace|debug|info|warn|error)")
	root.PersistentFlags().Bool("mock", false, "Use the mock engine (no ONNX library required)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig merges flag overrides into viper and reads the final config.
// Only flags the user actually set override file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()

	flags := cmd.Flags()
	setString := func(flag, key string) {
		if flags.Changed(flag) {
			value, _ := flags.GetString(flag)
			v.Set(key, value)
		}
	}
	setString("model", "model")
	setString("onnx-lib", "onnx_lib")
	setString("log-level", "log_level")
	setString("redis", "redis")
	setString("push-gateway", "push_gateway")
	setString("env-name", "environment_name")
	if flags.Changed("mock") {
		useMock, _ := flags.GetBool("mock")
		v.Set("use_mock", useMock)
	}
	if flags.Changed("otel") {
		enabled, _ := flags.GetBool("otel")
		v.Set("otel_enabled", enabled)
	}
	if flags.Changed("threads") {
		threads, _ := flags.GetInt("threads")
		v.Set("intra_op_threads", threads)
	}
	if flags.Changed("scalar-index") {
		index, _ := flags.GetInt("scalar-index")
		v.Set("scalar_index", index)
	}
	if flags.Changed("shape") {
		raw, _ := flags.GetString("shape")
		shape, err := parseDims(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --shape: %w", err)
		}
		v.Set("shape", shape)
	}
	if flags.Changed("values") {
		raw, _ := flags.GetString("values")
		values, err := parseValues(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --values: %w", err)
		}
		v.Set("values", values)
	}
	if flags.Changed("outputs") {
		outputs, _ := flags.GetStringSlice("outputs")
		v.Set("outputs", outputs)
	}

	configFile, _ := flags.GetString("config")
	cfg, err := config.Read(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if configFile == "" && v.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}
	return cfg, nil
}

func parseDims(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	dims := make([]int64, 0, len(parts))
	for _, part := range parts {
		d, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", part, err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func parseValues(raw string) ([]float32, error) {
	parts := strings.Split(raw, ",")
	values := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", part, err)
		}
		values = append(values, float32(f))
	}
	return values, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the model, run one inference pass, and print the prediction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			log := newLogger(cfg)

			if cfg.OTELEnabled {
				shutdown, err := trace.Init(appName)
				if err != nil {
					log.Warn().Err(err).Msg("failed to initialize tracer")
				} else {
					defer func() {
						ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
						defer cancel()
						if err := shutdown(ctx); err != nil {
							log.Warn().Err(err).Msg("tracer shutdown failed")
						}
					}()
				}
			}

			var cacheClient *cache.Cache
			if cfg.Redis != "" {
				cacheClient, err = cache.New(cfg.Redis)
				if err != nil {
					log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
					cacheClient = nil
				} else {
					defer cacheClient.Close()
				}
			}

			r := runner.New(cfg, log, cacheClient)
			prediction, err := r.Run(cmd.Context())
			if err != nil {
				kind := errdefs.Kind(err)
				metrics.RecordFailure(kind)
				log.Error().Err(err).Str("kind", kind).Msg("run failed")
			} else {
				metrics.RecordSuccess()
				fmt.Printf("Prediction: %g\n", prediction)
			}

			if cfg.PushGateway != "" {
				if perr := metrics.Push(cfg.PushGateway, appName); perr != nil {
					log.Warn().Err(perr).Msg("failed to push metrics")
				}
			}
			return err
		},
	}

	cmd.Flags().Int("threads", 0, "Intra-op thread count for the engine")
	cmd.Flags().String("shape", "", "Static input shape override (e.g. 1,4)")
	cmd.Flags().String("values", "", "Input feature values (e.g. 1.0,2.0,3.0,4.0)")
	cmd.Flags().StringSlice("outputs", nil, "Output names to request (default: all declared)")
	cmd.Flags().Int("scalar-index", 0, "Flat index of the scalar to extract from the first output")
	cmd.Flags().String("env-name", "", "Identifying name for the runtime environment")
	cmd.Flags().String("redis", "", "Redis address for the prediction cache (optional)")
	cmd.Flags().String("push-gateway", "", "Pushgateway address for run metrics (optional)")
	cmd.Flags().Bool("otel", false, "Enable OpenTelemetry tracing")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the model's declared input and output signatures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			log := newLogger(cfg)

			var eng engine.Engine
			if cfg.UseMock {
				eng = engine.NewMock()
			} else {
				engine.SetSharedLibraryPath(cfg.OnnxLib)
				env, err := engine.NewEnvironment(cfg.EnvironmentName, log)
				if err != nil {
					log.Error().Err(err).Str("kind", errdefs.Kind(err)).Msg("inspect failed")
					return err
				}
				defer env.Close()
				session, err := env.LoadModel(cfg.Model, cfg.IntraOpThreads)
				if err != nil {
					log.Error().Err(err).Str("kind", errdefs.Kind(err)).Msg("inspect failed")
					return err
				}
				eng = session
			}
			defer eng.Close()

			printSignatures(eng)
			return nil
		},
	}
	cmd.Flags().Int("threads", 0, "Intra-op thread count for the engine")
	return cmd
}

func printSignatures(eng engine.Engine) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Direction", "Index", "Name", "Type", "Shape"})
	for i, sig := range eng.InputSignatures() {
		table.Append([]string{"input", strconv.Itoa(i), sig.Name, sig.ElementType, fmt.Sprint(sig.Dimensions)})
	}
	for i, sig := range eng.OutputSignatures() {
		table.Append([]string{"output", strconv.Itoa(i), sig.Name, sig.ElementType, fmt.Sprint(sig.Dimensions)})
	}
	table.Render()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	}
}
