package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/gamepipe/internal/app"
	"github.com/specialistvlad/gamepipe/internal/cache"
	"github.com/specialistvlad/gamepipe/internal/config"
	"github.com/specialistvlad/gamepipe/internal/game"
	"github.com/specialistvlad/gamepipe/internal/hcl"
	"github.com/specialistvlad/gamepipe/internal/yamlconfig"
	"github.com/spf13/cobra"
)

// Exit codes beyond the generic failure.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitOffline     = 3
	ExitIntegrity   = 4
	ExitUnavailable = 5
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// AsExitError maps err to an ExitError. Typed cache failures get their own
// codes so scripts can tell them apart.
func AsExitError(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	code := ExitFailure
	var (
		offline  *cache.OfflineUnavailableError
		mismatch *cache.HashMismatchError
		manifest *cache.ManifestUnavailableError
		notFound *cache.VersionNotFoundError
	)
	switch {
	case errors.As(err, &offline):
		code = ExitOffline
	case errors.As(err, &mismatch):
		code = ExitIntegrity
	case errors.As(err, &manifest), errors.As(err, &notFound):
		code = ExitUnavailable
	}
	return &ExitError{Code: code, Message: err.Error()}
}

// options collects the persistent flags.
type options struct {
	cfg app.Config
}

// NewRootCommand builds the gamepipe command tree writing to outW.
func NewRootCommand(outW io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "gamepipe",
		Short:         "Cache game artifacts and run them through transformation pipelines.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Parsing worked; runtime errors do not need the usage text.
			cmd.SilenceUsage = true
			return opts.validate()
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	f := root.PersistentFlags()
	f.StringSliceVarP(&opts.cfg.ConfigPaths, "config", "c", nil, "Configuration file or directory (.hcl, .yaml). Repeatable.")
	f.StringVar(&opts.cfg.CacheDir, "cache-dir", "", "Artifact cache directory.")
	f.StringVar(&opts.cfg.WorkDir, "work-dir", "", "Directory for step outputs.")
	f.BoolVar(&opts.cfg.Offline, "offline", false, "Never touch the network; fail when local state is missing.")
	f.StringVar(&opts.cfg.ManifestURL, "manifest-url", "", "Launcher metadata URL.")
	f.StringVar(&opts.cfg.AssetRepository, "asset-repository", "", "Base URL of the asset object repository.")
	f.StringSliceVar(&opts.cfg.MavenRepositories, "maven-repository", nil, "Maven repository base URL searched for library artifacts. Repeatable.")
	f.IntVar(&opts.cfg.AssetWorkers, "asset-workers", 0, "Concurrent asset downloads.")
	f.StringVar(&opts.cfg.DefaultVersion, "default-version", "", "Version used when none is given. Defaults to '+' (latest).")
	f.StringVar(&opts.cfg.ReplacementPipeline, "replacement-pipeline", "", "Pipeline the game dependency handler prefers.")
	f.StringVar(&opts.cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&opts.cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.IntVar(&opts.cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")

	root.AddCommand(
		resolveVersionCmd(opts),
		cacheCmd(opts),
		runCmd(opts),
		replaceCmd(opts),
	)
	return root
}

func (o *options) validate() error {
	o.cfg.LogFormat = strings.ToLower(o.cfg.LogFormat)
	if o.cfg.LogFormat != "text" && o.cfg.LogFormat != "json" {
		return &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	o.cfg.LogLevel = strings.ToLower(o.cfg.LogLevel)
	switch o.cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")
	return nil
}

// withApp builds the application for one command and closes it afterwards.
func (o *options) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := o.cfg
	a, err := app.NewApp(ctx, cmd.ErrOrStderr(), &cfg, config.MultiLoader{hcl.NewLoader(), yamlconfig.NewLoader()})
	if err != nil {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	runErr := fn(a.Context(ctx), a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func resolveVersionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-version [VERSION]",
		Short: "Print the concrete version a token resolves to.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				v, err := a.ResolveVersion(ctx, token)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func cacheCmd(o *options) *cobra.Command {
	var (
		version string
		side    string
		assets  bool
	)
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Download and verify every artifact one side of a version needs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := game.ParseSide(side)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				artifacts, err := a.CacheVersion(ctx, version, s, assets)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "version:  %s\n", artifacts.Version)
				fmt.Fprintf(out, "metadata: %s\n", artifacts.VersionMetadata)
				fmt.Fprintf(out, "binary:   %s\n", artifacts.Binary)
				fmt.Fprintf(out, "mappings: %s\n", artifacts.Mappings)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&version, "version", "v", "", "Version to cache ('+' for latest).")
	cmd.Flags().StringVarP(&side, "side", "s", string(game.Client), "Side to cache: 'client' or 'server'.")
	cmd.Flags().BoolVar(&assets, "assets", false, "Also download the asset index and objects.")
	return cmd
}

func runCmd(o *options) *cobra.Command {
	var step, scope string
	cmd := &cobra.Command{
		Use:   "run PIPELINE",
		Short: "Materialize a configured pipeline and realize one of its steps.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.RunPipeline(ctx, args[0], scope, step)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&step, "step", "", "Step to realize. Defaults to the compiled output.")
	cmd.Flags().StringVar(&scope, "scope", "cli", "Consumer scope the instance is registered under.")
	return cmd
}

func replaceCmd(o *options) *cobra.Command {
	var (
		scope  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "replace DEPENDENCY",
		Short: "Route a dependency coordinate through the replacement handlers.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, ok, err := a.Replace(ctx, args[0], scope, !dryRun)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintf(out, "%s: no replacement\n", args[0])
					return nil
				}
				producer, err := a.Provenance(ctx, scope, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "dependency: %s\n", res.Dependency)
				fmt.Fprintf(out, "pipeline:   %s\n", producer)
				fmt.Fprintf(out, "raw:        %s\n", res.Raw.Output())
				fmt.Fprintf(out, "processed:  %s\n", res.Processed.Output())
				for _, u := range res.Extra {
					fmt.Fprintf(out, "extra:      %s %s\n", u.Name(), u.Output())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "cli", "Consumer scope the instance is registered under.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only wire the replacement; do not realize any output.")
	return cmd
}
