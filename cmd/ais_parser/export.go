package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ais_parser/internal/decoder"
	"ais_parser/internal/export"
	"ais_parser/internal/record"
	"ais_parser/internal/registry"
	"ais_parser/internal/vessel"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write rows as CSV or vessels and tracks as KML",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "csv", Usage: "output `FORMAT` (csv, kml)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to `FILE` instead of stdout"},
			&cli.BoolFlag{Name: "clean", Usage: "drop out-of-range values"},
			&cli.BoolFlag{Name: "all", Usage: "include messages of unsupported types"},
		},
		Action: runExport,
	}
}

func createOutput(cmd *cli.Command) (io.Writer, func() error, error) {
	path := cmd.String("output")
	if path == "" {
		return cmd.Root().Writer, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	format := cmd.String("format")
	if format != "csv" && format != "kml" {
		return fmt.Errorf("unknown export format %q (want csv or kml)", format)
	}

	out, closeOut, err := createOutput(cmd)
	if err != nil {
		return err
	}

	dec := newDecoder(env)
	tracker := vessel.NewTracker(env.Cfg.Decoder.VesselTTL)
	clean := cmd.Bool("clean") || env.Cfg.Decoder.Clean

	var csvw *export.CSVWriter
	if format == "csv" {
		csvw = export.NewCSVWriter(out)
	}

	err = decodeRows(ctx, cmd, dec, tracker, clean, func(d *decoder.Decoded, row record.Row) error {
		if csvw == nil {
			return nil
		}
		if _, ok := d.Message.(*registry.Unsupported); ok && !cmd.Bool("all") {
			return nil
		}
		return csvw.Write(row)
	})
	if err != nil {
		_ = closeOut()
		return err
	}

	switch format {
	case "csv":
		err = csvw.Flush()
		env.Log.Info("csv written", zap.Int("rows", csvw.Rows()))
	case "kml":
		vessels := tracker.Vessels()
		err = export.WriteKML(out, export.BuildKML(vessels, time.Now().UTC()))
		env.Log.Info("kml written", zap.Int("vessels", len(vessels)))
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}
