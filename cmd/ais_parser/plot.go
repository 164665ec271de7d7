package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ais_parser/internal/decoder"
	"ais_parser/internal/export"
	"ais_parser/internal/record"
	"ais_parser/internal/vessel"
)

func plotCommand() *cli.Command {
	return &cli.Command{
		Name:      "plot",
		Usage:     "render one vessel's track as an image",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "mmsi", Usage: "vessel to plot (default: the one with the longest track)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "track.png", Usage: "image `FILE`; the extension picks the format"},
			&cli.BoolFlag{Name: "clean", Value: true, Usage: "drop out-of-range positions"},
		},
		Action: runPlot,
	}
}

// longestTrack returns the vessel with the most track points.
func longestTrack(vessels []*vessel.Vessel) *vessel.Vessel {
	var best *vessel.Vessel
	for _, v := range vessels {
		if len(v.Track) == 0 {
			continue
		}
		if best == nil || len(v.Track) > len(best.Track) {
			best = v
		}
	}
	return best
}

func runPlot(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	dec := newDecoder(env)
	tracker := vessel.NewTracker(env.Cfg.Decoder.VesselTTL)
	err := decodeRows(ctx, cmd, dec, tracker, cmd.Bool("clean"), func(*decoder.Decoded, record.Row) error { return nil })
	if err != nil {
		return err
	}

	var v *vessel.Vessel
	if mmsi := cmd.Int("mmsi"); mmsi > 0 {
		found, ok := tracker.Get(uint32(mmsi))
		if !ok {
			return fmt.Errorf("vessel %d not heard", mmsi)
		}
		v = found
	} else {
		v = longestTrack(tracker.Vessels())
	}
	if v == nil || len(v.Track) == 0 {
		return errors.New("no vessel with a track in the input")
	}

	title := fmt.Sprintf("%d", v.MMSI)
	if v.Name != "" {
		title = fmt.Sprintf("%s (%d)", v.Name, v.MMSI)
	}
	if err := export.SaveTrackPlot(cmd.String("output"), title, v.Track); err != nil {
		return err
	}
	env.Log.Info("track plotted",
		zap.Uint32("mmsi", v.MMSI),
		zap.Int("points", len(v.Track)),
		zap.String("file", cmd.String("output")))
	return nil
}
