package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Sternrassler/chroma-viewer/internal/config"
	"github.com/Sternrassler/chroma-viewer/internal/server"
	"github.com/Sternrassler/chroma-viewer/pkg/cache"
	"github.com/Sternrassler/chroma-viewer/pkg/chroma"
	"github.com/Sternrassler/chroma-viewer/pkg/logging"
	"github.com/Sternrassler/chroma-viewer/pkg/viewer"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "chroma-viewer [db_path]",
		Short: "Web-based viewer for local Chroma databases",
		Long: `Browse the collections and documents of a local Chroma persistent directory.

Without db_path the viewer starts with a connection form.`,
		Example: `  chroma-viewer                      # start with the connection form
  chroma-viewer ./chroma_db          # connect to a local database
  chroma-viewer /data/chroma --port 9000`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configFile, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, in, out)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	defaults := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "YAML configuration file")
	flags.String("host", defaults.Host, "Host to bind the web server to")
	flags.Int("port", defaults.Port, "Port to bind the web server to")
	flags.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	flags.Bool("log-pretty", defaults.LogPretty, "Human-readable console logs instead of JSON")
	flags.String("redis-addr", defaults.RedisAddr, "Redis address for caching collection fetches (disabled when empty)")
	flags.Duration("cache-ttl", defaults.CacheTTL, "TTL of cached collection fetches")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chroma-viewer %s (built %s)\n", version, buildTime)
		},
	}
}

// loadConfig layers explicitly set flags and the positional path over the
// file and environment configuration.
func loadConfig(cmd *cobra.Command, configFile string, args []string) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-pretty") {
		cfg.LogPretty, _ = flags.GetBool("log-pretty")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL, _ = flags.GetDuration("cache-ttl")
	}
	if len(args) == 1 {
		cfg.DBPath = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	logging.Setup(cfg.Logging())
	logger := logging.NewLogger("cli")

	docCache, closeCache, err := newDocumentCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	conn := viewer.NewConn(nil, docCache)
	defer conn.Close()

	if cfg.DBPath != "" {
		ok, err := attach(ctx, conn, cfg.DBPath, in, out)
		if err != nil || !ok {
			return err
		}
	} else {
		fmt.Fprintln(out, "No database path provided. You can connect via the web interface.")
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, conn)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Starting web server at http://%s\n", cfg.Addr())
	fmt.Fprintln(out, "Press Ctrl+C to stop the server.")

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

// attach validates path and connects conn to it. It returns false without
// an error when the user declines to open a directory lacking marker files.
func attach(ctx context.Context, conn *viewer.Conn, path string, in io.Reader, out io.Writer) (bool, error) {
	if err := viewer.ValidateStorePath(path, false); err != nil {
		return false, err
	}

	if !chroma.HasMarkers(path) {
		fmt.Fprintf(out, "Warning: '%s' doesn't appear to contain Chroma database files.\n", path)
		if !confirm(in, out, "Continue anyway? (y/N): ") {
			return false, nil
		}
	}

	fmt.Fprintf(out, "Connecting to Chroma database at: %s\n", path)
	if err := conn.Connect(ctx, path, false); err != nil {
		return false, err
	}
	fmt.Fprintln(out, "✓ Connected successfully.")
	return true, nil
}

// confirm prompts on out and reports whether the answer read from in is yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// newDocumentCache connects the Redis cache when an address is configured.
// The returned DocumentCache is nil when caching is disabled.
func newDocumentCache(ctx context.Context, cfg config.Config) (viewer.DocumentCache, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	mgr := cache.NewManager(redisClient, cfg.CacheTTL)
	if err := mgr.Ping(ctx); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	logger := logging.NewLogger("cli")
	logger.Info().
		Str("redis_addr", cfg.RedisAddr).
		Dur("ttl", cfg.CacheTTL).
		Msg("Collection fetch cache enabled")

	return mgr, func() { redisClient.Close() }, nil
}
