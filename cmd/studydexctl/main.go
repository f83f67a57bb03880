package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"studydex/internal/clock"
	"studydex/internal/config"
	"studydex/internal/engine"
	"studydex/pkg/studydex"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const appName = "studydexctl"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, engine.Message(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	envFile    string
	storeKind  string
	dbPath     string
	logLevel   string
	jsonOut    bool
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Study tracker that turns study hours into a creature collection",
		Long: `studydexctl logs study hours as coins and spends them on a collection:
catch a random species for 3 coins, evolve an instance for 2, or trade one
away for 1 coin (once per morning and once per afternoon).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "config file path (YAML)")
	flags.StringVar(&g.envFile, "env-file", ".env", "dotenv file with STUDYDEX_* overrides")
	flags.StringVar(&g.storeKind, "store", "", "store backend: memory|file|sqlite")
	flags.StringVar(&g.dbPath, "db-path", "", "state file or sqlite database path")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&g.jsonOut, "json", false, "emit results as JSON")

	cmd.AddCommand(
		initCmd(g),
		statusCmd(g),
		logCmd(g),
		catchCmd(g),
		evolveCmd(g),
		tradeCmd(g),
		favoriteCmd(g),
		nicknameCmd(g),
		inventoryCmd(g),
		dexCmd(g),
		settingsCmd(g),
		exportCmd(g),
		importCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// loadConfig resolves defaults, the config file, the env file, STUDYDEX_*
// variables and finally explicit flags, in that order of precedence.
func loadConfig(cmd *cobra.Command, g *globals) (*config.Config, error) {
	if err := config.LoadEnvFile(g.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.storeKind != "" {
		cfg.Store.Kind = g.storeKind
	}
	if g.dbPath != "" {
		cfg.Store.Path = g.dbPath
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openClient(cmd *cobra.Command, g *globals) (*studydex.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	defaults := cfg.Settings()
	client, err := studydex.New(studydex.Options{
		StoreKind: cfg.StoreKind(),
		DBPath:    cfg.StorePath(),
		Clock:     clock.System{Location: loc},
		Logger:    logger,
		Defaults:  &defaults,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("client ready", "store", cfg.StoreKind(), "path", cfg.StorePath(), "timezone", loc.String())
	return client, cfg, nil
}

// withClient runs fn against a freshly opened client and closes it afterwards.
func withClient(g *globals, fn func(cmd *cobra.Command, args []string, client *studydex.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, _, err := openClient(cmd, g)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Close()
		}()
		return fn(cmd, args, client)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
