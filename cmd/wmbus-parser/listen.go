package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rkotulan/wmbus-parser/internal/config"
	"github.com/rkotulan/wmbus-parser/internal/metrics"
	"github.com/rkotulan/wmbus-parser/internal/publish"
	"github.com/rkotulan/wmbus-parser/internal/router"
	"github.com/rkotulan/wmbus-parser/internal/source"
	"github.com/rkotulan/wmbus-parser/pkg/wmbusparser"
)

var (
	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Route hex telegrams from stdin or a serial port to configured meters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runListen(ctx, cmd)
		},
	}

	configPath  string
	serialPath  string
	serialBaud  int
	metricsAddr string
	rawLog      router.RawLogLevel
)

func init() {
	f := listenCmd.Flags()
	f.StringVar(&configPath, "config", "meters.yaml", "YAML file with meter bindings")
	f.StringVar(&serialPath, "serial", "", "serial device delivering hex telegrams (default: stdin)")
	f.IntVar(&serialBaud, "baud", 115200, "serial baud rate")
	f.StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint, disabled when empty")
	f.Var(&rawLog, "raw-log", "raw telegram dump: none, all, valid_header, matching_meter (overrides config)")
}

func runListen(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	reg, err := wmbusparser.Registry()
	if err != nil {
		return err
	}

	level := cfg.RawLog()
	if cmd.Flags().Changed("raw-log") {
		level = rawLog
	}
	logger := logrus.StandardLogger()
	opts := []router.Option{router.WithLogger(logger), router.WithRawLog(level)}

	if metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		m, err := metrics.New(promReg)
		if err != nil {
			return err
		}
		opts = append(opts, router.WithObserver(m))
		srv := serveMetrics(metricsAddr, promReg)
		defer shutdown(srv)
	}

	r := router.New(reg, opts...)
	out := publish.NewSharedWriter(os.Stdout)
	for _, mc := range cfg.Meters {
		if _, ok := reg.Find(mc.Driver); !ok {
			logrus.WithField("driver", mc.Driver).Warnf("meter %s uses an unregistered driver; its telegrams will be dropped", mc.Name)
		}
		pub, err := publish.New(mc.Publish, mc.Name, logger, out)
		if err != nil {
			return err
		}
		if err := r.AddMeter(router.Meter{Name: mc.Name, ID: mc.MeterID, Driver: mc.Driver, Publisher: pub}); err != nil {
			return err
		}
	}
	r.OnDecode(func(id string, value float64, attrs []string) {
		logrus.WithFields(logrus.Fields{"meter_id": id, "value": value, "attributes": len(attrs)}).Debug("decode trigger")
	})

	var in io.Reader = os.Stdin
	if serialPath != "" {
		port, err := source.OpenSerial(serialPath, serialBaud)
		if err != nil {
			return err
		}
		defer port.Close()
		in = port
		logrus.WithFields(logrus.Fields{"device": serialPath, "baud": serialBaud}).Info("reading telegrams from serial port")
	}

	err = source.Run(ctx, in, func(raw []byte) {
		_ = r.ReceivePacket(raw) // failures are logged by the router
	}, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("metrics server stopped")
		}
	}()
	logrus.WithField("addr", addr).Info(fmt.Sprintf("serving metrics on http://%s/metrics", addr))
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("metrics server shutdown")
	}
}
