package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gofrs/flock"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cordio/taskd/internal/api/httpapi"
	"github.com/cordio/taskd/internal/events"
	"github.com/cordio/taskd/internal/logging"
	"github.com/cordio/taskd/internal/metrics/metricsprom"
	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/runner"
	"github.com/cordio/taskd/internal/runner/containerstub"
	"github.com/cordio/taskd/internal/subprocess"
	"github.com/cordio/taskd/internal/supervisor"
	"github.com/cordio/taskd/internal/tracker"
)

// daemonCmd is the long-running agent: it wires the router, the
// supervisor, the tracker, the event bus, and the HTTP façade into one
// runnable process and holds a flock on its runtime directory so two
// daemons never fight over the same slots.
type daemonCmd struct {
	configPath string
}

func (*daemonCmd) Name() string     { return "daemon" }
func (*daemonCmd) Synopsis() string { return "run the taskd supervisor agent" }
func (*daemonCmd) Usage() string {
	return "daemon [-config path/to/taskd.toml]\n"
}

func (c *daemonCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a TOML config file")
}

func (c *daemonCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		logrus.WithError(err).Error("failed to load config")
		return subcommands.ExitFailure
	}

	log, err := logging.New(cfg.LogLevel, logFormatOf(cfg.LogFormat))
	if err != nil {
		logrus.WithError(err).Error("invalid log_level")
		return subcommands.ExitFailure
	}
	entry := logrus.NewEntry(log)

	if err := os.MkdirAll(cfg.RuntimeDir, 0o755); err != nil {
		entry.WithError(err).Error("failed to create runtime dir")
		return subcommands.ExitFailure
	}
	lock := flock.New(filepath.Join(cfg.RuntimeDir, "taskd.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		entry.WithError(err).Error("another taskd daemon already holds the runtime lock")
		return subcommands.ExitFailure
	}
	defer lock.Unlock()

	reg := prometheus.NewRegistry()
	sink := metricsprom.New(reg)

	router := runner.NewRouter(runner.BuildContext{Env: model.NewEnv(), Metrics: sink})
	subRunner, err := subprocess.New("subprocess", nil)
	if err != nil {
		entry.WithError(err).Error("failed to build subprocess runner")
		return subcommands.ExitFailure
	}
	router.Register(subRunner, model.Labels{})
	router.Register(containerstub.New(), model.Labels{})

	bus := events.NewBus(entry)
	track := tracker.New("tracker", 4096)
	bus.Subscribe(track)

	ctrl := supervisor.New(router, bus, supervisor.Config{
		Grace:       cfg.grace(),
		MaxAttempts: cfg.MaxAttempts,
		Metrics:     sink,
		Log:         entry,
	})

	zoneCache := logging.NewZoneCache()
	syncCtx, cancelSync := context.WithCancel(context.Background())
	defer cancelSync()
	go logging.RunTimezoneSync(syncCtx, zoneCache, cfg.timezoneSyncInterval(), entry)

	api := httpapi.New(ctrl, track, entry)
	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: api}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}

	go func() {
		entry.WithField("addr", cfg.ListenAddr).Info("http api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Error("http api server stopped")
		}
	}()
	go func() {
		entry.WithField("addr", cfg.MetricsAddr).Info("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Error("metrics server stopped")
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		entry.WithError(err).Warn("sd_notify ready failed")
	} else if ok {
		entry.Debug("sd_notify ready delivered")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	entry.Info("shutdown requested")
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		entry.WithError(err).Warn("sd_notify stopping failed")
	} else if ok {
		entry.Debug("sd_notify stopping delivered")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.grace()+5*time.Second)
	defer cancel()
	ctrl.Shutdown(shutdownCtx)

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	return subcommands.ExitSuccess
}

func logFormatOf(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
