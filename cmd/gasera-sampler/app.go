package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arloliu/go-gasera/actuator"
	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/config"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/link"
	"github.com/arloliu/go-gasera/logger"
	"github.com/arloliu/go-gasera/metrics"
	"github.com/arloliu/go-gasera/prefs"
	"github.com/arloliu/go-gasera/sequencer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app holds the wired sampler components.
type app struct {
	cfg    *config.Config
	logger logger.Logger

	registry *prometheus.Registry
	client   *link.Client
	device   *gasera.Device
	io       *gpio.Memory
	coord    *actuator.Coordinator
	alerts   *alert.Dispatcher
	prefs    *prefs.FileStore
	seq      *sequencer.Sequencer
	server   *http.Server
}

// newDeviceClient builds the link client and the instrumented device on top of it.
func newDeviceClient(cfg *config.Config, reg prometheus.Registerer, l logger.Logger) (*link.Client, *gasera.Device, error) {
	linkCfg, err := link.NewConnectionConfig(cfg.Device.Host, cfg.Device.Port, cfg.LinkOptions(l)...)
	if err != nil {
		return nil, nil, fmt.Errorf("link config: %w", err)
	}

	client, err := link.NewClient(linkCfg)
	if err != nil {
		return nil, nil, err
	}

	instrumented, err := metrics.NewInstrumentedLink(reg, client)
	if err != nil {
		return nil, nil, fmt.Errorf("instrument link: %w", err)
	}

	device := gasera.NewDevice(instrumented,
		gasera.WithDeviceLogger(l),
		gasera.WithProbeTimeout(cfg.Device.ProbeTimeout),
	)

	return client, device, nil
}

// newApp wires every component. The board I/O is an in-memory stand-in; a
// hardware backend implements gpio.DigitalIO the same way.
func newApp(ctx context.Context, cfg *config.Config, l logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: l, registry: prometheus.NewRegistry()}

	var err error
	a.client, a.device, err = newDeviceClient(cfg, a.registry, l)
	if err != nil {
		return nil, err
	}

	a.io = gpio.NewMemory(gpio.High)
	a.io.OnWrite(func(pin string, level gpio.Level) {
		l.Debug("output changed", "pin", pin, "level", level)
	})

	a.coord, err = actuator.NewCoordinator(ctx, a.io, cfg.ActuatorConfig(l))
	if err != nil {
		return nil, fmt.Errorf("actuators: %w", err)
	}

	if err := a.setupAlerts(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.prefs, err = prefs.Open(cfg.PrefsFile, l)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("preferences: %w", err)
	}

	opts := []sequencer.Option{
		sequencer.WithNotifier(a.alerts),
		sequencer.WithTriggerInput(a.io),
	}
	if len(cfg.Pins.Jog) > 0 {
		jog, err := actuator.NewJog(a.coord, a.io, cfg.Pins.Jog, cfg.Actuator.Debounce, nil)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("jog buttons: %w", err)
		}
		opts = append(opts, sequencer.WithPoller(jog))
	}

	a.seq, err = sequencer.New(ctx, a.device, a.coord, cfg.SequencerConfig(l), opts...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("sequencer: %w", err)
	}

	a.applyPrefs()

	a.client.AddConnChangeHandler(func(connected bool) {
		if connected {
			a.alerts.Notify(alert.LinkOK)
		} else {
			a.alerts.Notify(alert.LinkLost)
		}
	})

	err = metrics.Register(a.registry, metrics.Sources{
		Link:      a.client,
		Sequencer: a.seq,
		Actuators: a.coord,
		Alerts:    a.alerts,
	})
	if err == nil {
		err = a.registry.Register(collectors.NewGoCollector())
	}
	if err != nil {
		a.close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	return a, nil
}

func (a *app) setupAlerts(ctx context.Context) error {
	var player alert.Player
	if a.cfg.Alert.Enabled {
		buzzer, err := alert.NewBuzzerPlayer(a.io, a.cfg.Pins.Buzzer)
		if err != nil {
			return fmt.Errorf("buzzer: %w", err)
		}
		player = buzzer
	}

	a.alerts = alert.NewDispatcher(ctx, player, a.cfg.AlertOptions(a.logger)...)

	return nil
}

// applyPrefs overrides the configuration with stored preferences and keeps
// the components in sync with later changes.
func (a *app) applyPrefs() {
	if v, ok := a.prefs.Get(prefs.KeyMeasurementDuration); ok {
		if n, ok := prefs.ToInt(v); ok {
			a.seq.SetMeasurementDuration(time.Duration(n) * time.Second)
		}
	}

	if v, ok := a.prefs.Get(prefs.KeyMotorTimeout); ok {
		if n, ok := prefs.ToInt(v); ok {
			a.coord.SetTimeout(time.Duration(n) * time.Second)
		}
	}

	a.prefs.Subscribe(prefs.KeyMeasurementDuration, prefs.IntHandler(func(v int) {
		a.seq.SetMeasurementDuration(time.Duration(v) * time.Second)
	}))
	a.prefs.Subscribe(prefs.KeyMotorTimeout, prefs.IntHandler(func(v int) {
		a.coord.SetTimeout(time.Duration(v) * time.Second)
	}))
}

// start runs the sequencer loop and the metrics endpoint.
func (a *app) start() error {
	if err := a.seq.Start(); err != nil {
		return err
	}

	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		a.server = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics endpoint failed", "addr", a.cfg.MetricsAddr, "error", err)
			}
		}()
		a.logger.Info("metrics endpoint listening", "addr", a.cfg.MetricsAddr)
	}

	a.alerts.Notify(alert.PowerOn)

	return nil
}

// close stops the components in reverse wiring order.
func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.server.Shutdown(ctx)
		cancel()
	}

	if a.seq != nil {
		a.seq.Close()
	}

	if a.coord != nil {
		if err := a.coord.StopBoth(); err != nil {
			a.logger.Warn("failed to stop actuators", "error", err)
		}
		if err := a.coord.Close(); err != nil {
			a.logger.Warn("failed to close actuators", "error", err)
		}
	}

	if a.alerts != nil {
		a.alerts.Close()
	}
}
