// Package config loads the application configuration of gasera-sampler.
//
// A configuration starts from Default, is overlaid with a YAML file and then
// with environment variables, and is validated last:
//
//	cfg, err := config.Load("/etc/gasera/sampler.yaml")
//
// Durations are written as Go duration strings ("2s", "150ms") both in YAML
// and in the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/arloliu/go-gasera/actuator"
	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/link"
	"github.com/arloliu/go-gasera/logger"
	"github.com/arloliu/go-gasera/sequencer"
	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Defaults of the sampler board.
const (
	DefaultHost        = "192.168.0.100"
	DefaultPort        = 8888
	DefaultBuzzerPin   = "PH2"
	DefaultPrefsFile   = "config/user_prefs.yaml"
	DefaultMetricsAddr = ":9090"
	DefaultLogLevel    = "info"
)

// Config is the complete application configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Pins      PinsConfig      `yaml:"pins"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Sequencer SequencerConfig `yaml:"sequencer"`
	Alert     AlertConfig     `yaml:"alert"`

	PrefsFile   string `yaml:"prefs_file" env:"GASERA_PREFS_FILE"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// DeviceConfig addresses the analyzer and tunes the link.
type DeviceConfig struct {
	Host           string        `yaml:"host" env:"GASERA_HOST"`
	Port           int           `yaml:"port" env:"GASERA_PORT"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"GASERA_CONNECT_TIMEOUT"`
	IOTimeout      time.Duration `yaml:"io_timeout" env:"GASERA_IO_TIMEOUT"`
	MaxJitter      time.Duration `yaml:"max_jitter" env:"GASERA_MAX_JITTER"`
	DrainBudget    time.Duration `yaml:"drain_budget" env:"GASERA_DRAIN_BUDGET"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" env:"GASERA_PROBE_TIMEOUT"`
}

// PinsConfig names the board pins.
type PinsConfig struct {
	Trigger string                               `yaml:"trigger" env:"GASERA_TRIGGER_PIN"`
	Buzzer  string                               `yaml:"buzzer" env:"GASERA_BUZZER_PIN"`
	Motors  [actuator.NumActuators]actuator.Pins `yaml:"motors"`
	Jog     []actuator.JogButton                 `yaml:"jog"`
}

// ActuatorConfig tunes the actuator coordinator.
type ActuatorConfig struct {
	Timeout      time.Duration `yaml:"timeout" env:"GASERA_MOTOR_TIMEOUT"`
	GraceDelay   time.Duration `yaml:"grace_delay"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// SequencerConfig tunes the sampling cycle.
type SequencerConfig struct {
	TaskID              string        `yaml:"task_id" env:"GASERA_TASK_ID"`
	TickPeriod          time.Duration `yaml:"tick_period"`
	StatusRetryLimit    int           `yaml:"status_retry_limit"`
	QueryDelay          time.Duration `yaml:"query_delay"`
	StatusRetryDelay    time.Duration `yaml:"status_retry_delay"`
	StartDelay          time.Duration `yaml:"start_delay"`
	CheckInterval       time.Duration `yaml:"check_interval"`
	AbortWait           time.Duration `yaml:"abort_wait"`
	MeasurementDuration time.Duration `yaml:"measurement_duration" env:"GASERA_MEASUREMENT_DURATION"`
	TriggerDebounce     time.Duration `yaml:"trigger_debounce"`
}

// AlertConfig tunes the buzzer.
type AlertConfig struct {
	Enabled    bool          `yaml:"enabled" env:"GASERA_ALERTS"`
	Unit       time.Duration `yaml:"unit"`
	MinSilence time.Duration `yaml:"min_silence"`
}

// Default returns a complete working configuration.
func Default() *Config {
	act := actuator.DefaultConfig()
	seq := sequencer.DefaultConfig()

	return &Config{
		Device: DeviceConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			ConnectTimeout: link.DefaultConnectTimeout,
			IOTimeout:      link.DefaultIOTimeout,
			MaxJitter:      link.DefaultMaxJitter,
			DrainBudget:    link.DefaultDrainBudget,
			ProbeTimeout:   link.DefaultProbeTimeout,
		},
		Pins: PinsConfig{
			Trigger: sequencer.DefaultTriggerPin,
			Buzzer:  DefaultBuzzerPin,
			Motors:  act.Pins,
		},
		Actuator: ActuatorConfig{
			Timeout:      act.Timeout,
			GraceDelay:   act.GraceDelay,
			PollInterval: act.PollInterval,
			Debounce:     act.Debounce,
		},
		Sequencer: SequencerConfig{
			TaskID:              seq.TaskID,
			TickPeriod:          seq.TickPeriod,
			StatusRetryLimit:    seq.StatusRetryLimit,
			QueryDelay:          seq.QueryDelay,
			StatusRetryDelay:    seq.StatusRetryDelay,
			StartDelay:          seq.StartDelay,
			CheckInterval:       seq.CheckInterval,
			AbortWait:           seq.AbortWait,
			MeasurementDuration: seq.MeasurementDuration,
			TriggerDebounce:     seq.TriggerDebounce,
		},
		Alert: AlertConfig{
			Enabled:    true,
			Unit:       alert.DefaultUnit,
			MinSilence: alert.DefaultMinSilence,
		},
		PrefsFile:   DefaultPrefsFile,
		LogLevel:    DefaultLogLevel,
		MetricsAddr: DefaultMetricsAddr,
	}
}

// Load builds a configuration from the defaults, the YAML file at path and the
// environment, then validates it. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error

	if _, err := link.NewConnectionConfig(c.Device.Host, c.Device.Port, c.LinkOptions(nil)...); err != nil {
		errs = append(errs, fmt.Errorf("device: %w", err))
	}
	if err := c.ActuatorConfig(nil).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("actuator: %w", err))
	}
	if err := c.SequencerConfig(nil).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sequencer: %w", err))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Alert.Enabled && c.Pins.Buzzer == "" {
		errs = append(errs, errors.New("alert: buzzer pin is required when alerts are enabled"))
	}
	if c.Alert.Unit < 0 || c.Alert.MinSilence < 0 {
		errs = append(errs, errors.New("alert: durations must not be negative"))
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level, InfoLevel when invalid.
func (c *Config) Level() logger.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

// LinkOptions returns the link options of the device section.
func (c *Config) LinkOptions(l logger.Logger) []link.ConnOption {
	opts := []link.ConnOption{
		link.WithConnectTimeout(c.Device.ConnectTimeout),
		link.WithIOTimeout(c.Device.IOTimeout),
		link.WithMaxJitter(c.Device.MaxJitter),
		link.WithDrainBudget(c.Device.DrainBudget),
		link.WithProbeTimeout(c.Device.ProbeTimeout),
	}
	if l != nil {
		opts = append(opts, link.WithLogger(l))
	}

	return opts
}

// ActuatorConfig returns the coordinator configuration.
func (c *Config) ActuatorConfig(l logger.Logger) actuator.Config {
	return actuator.Config{
		Pins:         c.Pins.Motors,
		Timeout:      c.Actuator.Timeout,
		GraceDelay:   c.Actuator.GraceDelay,
		PollInterval: c.Actuator.PollInterval,
		Debounce:     c.Actuator.Debounce,
		Logger:       l,
	}
}

// SequencerConfig returns the sequencer configuration.
func (c *Config) SequencerConfig(l logger.Logger) sequencer.Config {
	s := c.Sequencer

	return sequencer.Config{
		TaskID:              s.TaskID,
		TickPeriod:          s.TickPeriod,
		StatusRetryLimit:    s.StatusRetryLimit,
		QueryDelay:          s.QueryDelay,
		StatusRetryDelay:    s.StatusRetryDelay,
		StartDelay:          s.StartDelay,
		CheckInterval:       s.CheckInterval,
		AbortWait:           s.AbortWait,
		MeasurementDuration: s.MeasurementDuration,
		TriggerPin:          c.Pins.Trigger,
		TriggerDebounce:     s.TriggerDebounce,
		Logger:              l,
	}
}

// AlertOptions returns the alert dispatcher options.
func (c *Config) AlertOptions(l logger.Logger) []alert.DispatcherOption {
	opts := []alert.DispatcherOption{
		alert.WithUnit(c.Alert.Unit),
		alert.WithMinSilence(c.Alert.MinSilence),
	}
	if l != nil {
		opts = append(opts, alert.WithDispatcherLogger(l))
	}

	return opts
}
