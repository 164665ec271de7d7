package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ais_parser/internal/decoder"
	"ais_parser/internal/record"
	"ais_parser/internal/registry"
)

// DecodeOut is one line of decode output.
type DecodeOut struct {
	Type      uint8            `json:"msg_type"`
	Kind      string           `json:"kind"`
	Timestamp string           `json:"timestamp,omitempty"`
	Channel   string           `json:"channel,omitempty"`
	Fragments int              `json:"fragments"`
	Payload   string           `json:"payload"`
	FillBits  int              `json:"fill_bits"`
	Message   registry.Message `json:"message"`
	Row       *record.Row      `json:"row,omitempty"`
	Trace     *TraceOut        `json:"trace,omitempty"`
}

// TraceOut is the JSON form of a dispatch trace.
type TraceOut struct {
	BitLen    int    `json:"bit_len"`
	Extractor string `json:"extractor,omitempty"`
	MinBits   int    `json:"min_bits,omitempty"`
	Matched   bool   `json:"matched"`
	Error     string `json:"error,omitempty"`
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "print each decoded message as a JSON line",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to `FILE` instead of stdout"},
			&cli.BoolFlag{Name: "pretty", Usage: "indent JSON output"},
			&cli.BoolFlag{Name: "all", Usage: "include messages of unsupported types"},
			&cli.BoolFlag{Name: "row", Usage: "include the flattened row"},
			&cli.BoolFlag{Name: "clean", Usage: "drop out-of-range values from rows"},
			&cli.BoolFlag{Name: "trace", Usage: "include dispatch trace"},
			&cli.BoolFlag{Name: "stats", Usage: "print counters to stderr when done"},
		},
		Action: runDecode,
	}
}

func runDecode(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	out := cmd.Root().Writer
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	if cmd.Bool("pretty") {
		enc.SetIndent("", "  ")
	}

	dec := newDecoder(env)
	clean := cmd.Bool("clean") || env.Cfg.Decoder.Clean
	emitted := 0

	err := decodeRows(ctx, cmd, dec, nil, clean, func(d *decoder.Decoded, row record.Row) error {
		if _, ok := d.Message.(*registry.Unsupported); ok && !cmd.Bool("all") {
			return nil
		}

		o := DecodeOut{
			Type:      d.Message.MsgType(),
			Kind:      d.Message.Kind(),
			Timestamp: d.Timestamp,
			Channel:   d.Channel,
			Fragments: d.Fragments,
			Payload:   d.Armored,
			FillBits:  d.FillBits,
			Message:   d.Message,
		}
		if cmd.Bool("row") {
			o.Row = &row
		}
		if cmd.Bool("trace") {
			if _, tr, err := dec.TracePayload(d.Armored, d.FillBits); tr != nil {
				o.Trace = traceOut(tr)
			} else if err != nil {
				o.Trace = &TraceOut{Error: err.Error()}
			}
		}

		emitted++
		return enc.Encode(o)
	})
	if err != nil {
		return err
	}

	st := dec.Stats()
	env.Log.Info("decode finished",
		zap.Int("sentences", st.Sentences),
		zap.Int("messages", st.Messages),
		zap.Int("emitted", emitted),
		zap.Int("errors", st.ErrorCount()))

	if cmd.Bool("stats") {
		writeStats(cmd.Root().ErrWriter, st)
	}
	return nil
}

func traceOut(tr *registry.Trace) *TraceOut {
	o := &TraceOut{
		BitLen:    tr.BitLen,
		Extractor: tr.Extractor,
		MinBits:   tr.MinBits,
		Matched:   tr.Matched,
	}
	if tr.Err != nil {
		o.Error = tr.Err.Error()
	}
	return o
}

func writeStats(w io.Writer, st decoder.Stats) {
	fmt.Fprintf(w, "stats: sentences=%d messages=%d errors=%d\n", st.Sentences, st.Messages, st.ErrorCount())
	for _, t := range st.Types() {
		fmt.Fprintf(w, "  type %2d: %d\n", t, st.ByType[t])
	}
	for _, kind := range []string{
		decoder.KindMalformedSentence,
		decoder.KindMalformedArmor,
		decoder.KindTruncated,
		decoder.KindIncomplete,
		decoder.KindOther,
	} {
		if n := st.Errors[kind]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", kind, n)
		}
	}
}
