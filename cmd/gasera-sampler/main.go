// Command gasera-sampler drives the sampling cycle of a gas analyzer.
//
// In service mode it runs the sampling sequencer until it receives SIGINT or
// SIGTERM. SIGUSR1 requests a measurement and SIGUSR2 aborts the running one.
//
// With -exec it runs one named device command and prints the result as YAML:
//
//	gasera-sampler -config sampler.yaml -exec get_status
//	gasera-sampler -exec start_by_id 11
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/config"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/logger"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// shutdownAlertWait bounds how long the shutdown alert may play.
const shutdownAlertWait = 3 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("gasera-sampler", flag.ContinueOnError)
	configPath := fs.String("config", "", "path of the YAML configuration file")
	execName := fs.String("exec", "", "run one device command and exit, remaining arguments are passed to it")
	list := fs.Bool("list", false, "list the device commands and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *list {
		printCommands(stdout)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	l := logger.NewSlog(cfg.Level(), false)
	logger.SetLogger(l)

	if *execName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := runExec(ctx, cfg, l, *execName, fs.Args(), stdout); err != nil {
			l.Error("command failed", "command", *execName, "error", err)
			return 1
		}

		return 0
	}

	return serve(cfg, l)
}

func printCommands(w io.Writer) {
	for _, c := range gasera.NewDispatcher(nil).Commands() {
		fmt.Fprintf(w, "%-26s %s\n", c.Name, c.Usage)
	}
}

// runExec runs one dispatcher command and writes the response as YAML to w.
func runExec(ctx context.Context, cfg *config.Config, l logger.Logger, name string, args []string, w io.Writer) error {
	_, device, err := newDeviceClient(cfg, prometheus.NewRegistry(), l)
	if err != nil {
		return err
	}

	resp, err := gasera.NewDispatcher(device).Handle(ctx, name, args)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()

	return enc.Encode(resp)
}

func serve(cfg *config.Config, l logger.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, l)
	if err != nil {
		l.Error("failed to start sampler", "error", err)
		return 1
	}

	if err := a.start(); err != nil {
		l.Error("failed to start sampler", "error", err)
		a.close()

		return 1
	}

	l.Info("sampler started", "device", fmt.Sprintf("%s:%d", cfg.Device.Host, cfg.Device.Port), "task", cfg.Sequencer.TaskID)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	for sig := range sigs {
		switch sig {
		case syscall.SIGUSR1:
			l.Info("trigger requested", "result", a.seq.Trigger(ctx, "SIGNAL"))
			continue
		case syscall.SIGUSR2:
			l.Info("abort requested", "result", a.seq.SetAbort())
			continue
		}

		l.Info("exit signal received", "signal", sig)
		break
	}
	signal.Stop(sigs)

	a.alerts.Notify(alert.Shutdown)
	deadline := time.Now().Add(shutdownAlertWait)
	for a.alerts.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	a.close()
	cancel()

	l.Info("shutdown finished")

	return 0
}
