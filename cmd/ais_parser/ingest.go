package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ais_parser/internal/decoder"
	"ais_parser/internal/publish"
	"ais_parser/internal/record"
	"ais_parser/internal/registry"
	"ais_parser/internal/storage"
	"ais_parser/internal/vessel"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "decode into the configured sinks (SQLite, ClickHouse, PostgreSQL, NATS)",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sqlite", Usage: "also write to the SQLite database at `PATH`"},
			&cli.BoolFlag{Name: "clickhouse", Usage: "enable the ClickHouse sink"},
			&cli.BoolFlag{Name: "postgres", Usage: "enable the PostgreSQL vessel registry"},
			&cli.BoolFlag{Name: "nats", Usage: "publish rows to NATS"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on `ADDR` (e.g. :9100)"},
			&cli.IntFlag{Name: "batch", Usage: "rows per sink write (default from config)"},
		},
		Action: runIngest,
	}
}

// batcher buffers rows and writes them to a sink in batches.
type batcher struct {
	sink    storage.Sink
	size    int
	rows    []record.Row
	written int
}

func (b *batcher) add(ctx context.Context, row record.Row) error {
	b.rows = append(b.rows, row)
	if len(b.rows) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	err := b.sink.Write(ctx, b.rows)
	b.written += len(b.rows)
	b.rows = b.rows[:0]
	return err
}

func openSinks(ctx context.Context, cmd *cli.Command, env *appEnv) (*storage.Multi, error) {
	cfg := env.Cfg
	if path := cmd.String("sqlite"); path != "" {
		cfg.Storage.SQLite.Enabled = true
		cfg.Storage.SQLite.Path = path
	}
	if cmd.Bool("clickhouse") {
		cfg.Storage.ClickHouse.Enabled = true
	}
	if cmd.Bool("postgres") {
		cfg.Storage.Postgres.Enabled = true
	}
	if cmd.Bool("nats") {
		cfg.NATS.Enabled = true
	}

	sinks, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if cfg.NATS.Enabled {
		pub, err := publish.Connect(cfg.NATS, env.Log)
		if err != nil {
			return nil, multierr.Append(err, sinks.Close())
		}
		sinks.Add(pub)
	}
	if sinks.Len() == 0 {
		_ = sinks.Close()
		return nil, errors.New("no sinks enabled (use --sqlite, --clickhouse, --postgres, --nats or the config file)")
	}
	return sinks, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runIngest(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)

	sinks, err := openSinks(ctx, cmd, env)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, sinks.Close())
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	written := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ais",
		Name:      "rows_written_total",
		Help:      "Rows handed to the sinks.",
	})
	sinkErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ais",
		Name:      "sink_errors_total",
		Help:      "Failed sink writes.",
	})
	vessels := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ais",
		Name:      "vessels",
		Help:      "Vessels currently tracked.",
	})
	reg.MustRegister(written, sinkErrors, vessels)
	if addr := cmd.String("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, reg, env.Log)
		defer stop()
	}

	dec := newDecoder(env, decoder.WithMetrics(decoder.NewMetrics(reg)))
	tracker := vessel.NewTracker(env.Cfg.Decoder.VesselTTL)
	tracker.OnVesselNew(func(v *vessel.Vessel) {
		env.Log.Debug("new vessel", zap.Uint32("mmsi", v.MMSI))
	})

	size := env.Cfg.Decoder.BatchSize
	if n := cmd.Int("batch"); n > 0 {
		size = n
	}
	b := &batcher{sink: sinks, size: size}

	// Sink failures are counted and logged; decoding carries on.
	write := func(flush func(context.Context) error) {
		before := b.written
		if err := flush(ctx); err != nil {
			sinkErrors.Inc()
			env.Log.Warn("sink write failed", zap.Error(err))
		}
		written.Add(float64(b.written - before))
		vessels.Set(float64(tracker.Count()))
	}

	err = decodeRows(ctx, cmd, dec, tracker, env.Cfg.Decoder.Clean, func(d *decoder.Decoded, row record.Row) error {
		if _, ok := d.Message.(*registry.Unsupported); ok {
			return nil
		}
		write(func(ctx context.Context) error { return b.add(ctx, row) })
		return nil
	})
	write(b.flush)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	st := dec.Stats()
	env.Log.Info("ingest finished",
		zap.Int("sentences", st.Sentences),
		zap.Int("messages", st.Messages),
		zap.Int("errors", st.ErrorCount()),
		zap.Int("rows", b.written),
		zap.Int("vessels", tracker.Count()),
		zap.Int("sinks", sinks.Len()))
	return nil
}
