// Command-line entry point for the AIS decoder.
//
// Input is one NMEA 0183 AIVDM/AIVDO sentence per line, as written by most
// receivers and feed loggers:
//
//	!AIVDM,1,1,,A,15MgK45P3@G?fl0E`JbR0OwT0@MS,0*4E
//	!AIVDM,2,1,3,B,55?MbV02;H;s<Ht...,0*1C,2023-06-01 12:00:00
//	\c:1700000000*5C\!AIVDM,1,1,,A,...,0*4E
//
// An optional trailing field, a tag block c: parameter or a free-form prefix
// before the '!' is taken as the receiver timestamp. Files named on the
// command line are read in order; with none, or "-", standard input is read.
//
// Commands:
//
//	decode   print each decoded message as a JSON line
//	export   write rows as CSV or vessels and tracks as KML
//	summary  per-vessel summary of the input
//	plot     render one vessel's track as an image
//	ingest   decode into the configured sinks (SQLite, ClickHouse, PostgreSQL, NATS)
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ais_parser/internal/config"
)

const appName = "ais_parser"

type envKey struct{}

// appEnv is what every command needs once the global flags are processed.
type appEnv struct {
	Cfg *config.Config
	Log *zap.Logger
}

func envFromContext(ctx context.Context) *appEnv {
	if env, ok := ctx.Value(envKey{}).(*appEnv); ok {
		return env
	}
	return &appEnv{Cfg: config.Default(), Log: zap.NewNop()}
}

// initializeAppContext loads the configuration and prepares the logger
// after the command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Logging.Console.Level = lvl
		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}

	log, err := cfg.Logging.Prepare()
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))

	return context.WithValue(ctx, envKey{}, &appEnv{Cfg: cfg, Log: log}), nil
}

func destroyAppContext(ctx context.Context, _ *cli.Command) error {
	env := envFromContext(ctx)
	env.Log.Debug("Program ended")
	_ = env.Log.Sync()
	return nil
}

// newApp builds the command tree. Output goes to stdout and diagnostics to
// stderr.
func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:            appName,
		Usage:           "decode AIS NMEA sentences",
		HideHelpCommand: true,
		Reader:          stdin,
		Writer:          stdout,
		ErrWriter:       stderr,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)", Sources: cli.EnvVars("AIS_CONFIG")},
			&cli.StringFlag{Name: "log-level", Usage: "console log `LEVEL` (none, normal, debug)"},
		},
		Commands: []*cli.Command{
			decodeCommand(),
			exportCommand(),
			summaryCommand(),
			plotCommand(),
			ingestCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
