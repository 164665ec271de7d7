package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"ais_parser/internal/decoder"
	"ais_parser/internal/record"
	"ais_parser/internal/vessel"
)

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Usage:     "per-vessel summary of the input",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top", Value: 20, Usage: "show the `N` most active vessels (0 for all)"},
			&cli.BoolFlag{Name: "json", Usage: "print the summary as JSON"},
			&cli.BoolFlag{Name: "clean", Usage: "drop out-of-range values before summarising"},
		},
		Action: runSummary,
	}
}

func runSummary(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	dec := newDecoder(env)
	tracker := vessel.NewTracker(env.Cfg.Decoder.VesselTTL)
	clean := cmd.Bool("clean") || env.Cfg.Decoder.Clean

	err := decodeRows(ctx, cmd, dec, tracker, clean, func(*decoder.Decoded, record.Row) error { return nil })
	if err != nil {
		return err
	}

	sum := tracker.Summary()
	if top := cmd.Int("top"); top > 0 && len(sum.Vessels) > top {
		sum.Vessels = sum.Vessels[:top]
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			vessel.Summary
			Stats decoder.Stats `json:"stats"`
		}{sum, dec.Stats()})
	}
	writeSummary(out, sum, dec.Stats(), tracker.Count())
	return nil
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func writeSummary(w io.Writer, sum vessel.Summary, st decoder.Stats, total int) {
	fmt.Fprintf(w, "%s sentences, %s messages, %s errors\n",
		humanize.Comma(int64(st.Sentences)), humanize.Comma(int64(st.Messages)), humanize.Comma(int64(st.ErrorCount())))
	fmt.Fprintf(w, "%s vessels (%s with position, %s named), %s travelled\n\n",
		humanize.Comma(int64(total)), humanize.Comma(int64(sum.WithPosition)), humanize.Comma(int64(sum.WithName)),
		humanize.SIWithDigits(sum.Distance, 1, "m"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MMSI\tNAME\tTYPE\tMSGS\tLAT\tLON\tSOG\tCOG\tTRACK\tLAST SEEN")
	for _, v := range sum.Vessels {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.MMSI,
			dash(v.Name),
			dash(v.ShipTypeLabel()),
			humanize.Comma(int64(v.MsgCount)),
			optFloat(v.Lat, "%.5f"),
			optFloat(v.Lon, "%.5f"),
			optFloat(v.SOG, "%.1f"),
			optFloat(v.COG, "%.1f"),
			humanize.SIWithDigits(v.Distance, 1, "m"),
			humanize.Time(v.LastSeen),
		)
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
