package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"ais_parser/internal/decoder"
	"ais_parser/internal/fragment"
	"ais_parser/internal/record"
	"ais_parser/internal/vessel"
)

// openInputs returns a reader over the files named in args, or stdin.
func openInputs(cmd *cli.Command) (io.Reader, func() error, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 || len(args) == 1 && args[0] == "-" {
		return cmd.Root().Reader, func() error { return nil }, nil
	}

	var files []*os.File
	closeAll := func() error {
		var err error
		for _, f := range files {
			err = multierr.Append(err, f.Close())
		}
		return err
	}

	readers := make([]io.Reader, 0, len(args))
	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return io.MultiReader(readers...), closeAll, nil
}

// newDecoder builds a decoder from the configuration.
func newDecoder(env *appEnv, opts ...decoder.Option) *decoder.Decoder {
	base := []decoder.Option{
		decoder.WithLogger(env.Log),
		decoder.WithReassembler(fragment.New(fragment.WithHorizon(env.Cfg.Decoder.Horizon))),
		decoder.WithSweepInterval(env.Cfg.Decoder.SweepInterval),
	}
	return decoder.New(append(base, opts...)...)
}

// rowHandler receives each decoded message with its row.
type rowHandler func(d *decoder.Decoded, row record.Row) error

// decodeRows runs the decoder over the command's input, converts each
// message to a row, folds it into tracker and passes it on. Cleaning is
// applied when clean is set.
func decodeRows(ctx context.Context, cmd *cli.Command, dec *decoder.Decoder, tracker *vessel.Tracker, clean bool, fn rowHandler) error {
	in, closeInputs, err := openInputs(cmd)
	if err != nil {
		return err
	}

	err = dec.Run(ctx, in, func(d *decoder.Decoded) error {
		row := record.FromMessage(d.Message, record.Meta{Timestamp: d.Timestamp, Raw: d.Armored})
		if clean {
			row.Clean()
		}
		if tracker != nil {
			row = tracker.Observe(row)
		}
		return fn(d, row)
	})
	return multierr.Append(err, closeInputs())
}
