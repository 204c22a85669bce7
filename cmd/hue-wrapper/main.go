package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iotracing/hue-wrapper/internal/api"
	"github.com/iotracing/hue-wrapper/internal/config"
	"github.com/iotracing/hue-wrapper/internal/events"
	"github.com/iotracing/hue-wrapper/internal/light"
	"github.com/iotracing/hue-wrapper/internal/logging"
	"github.com/iotracing/hue-wrapper/internal/registry"
	"github.com/iotracing/hue-wrapper/internal/server"
)

const pairTimeout = 30 * time.Second

func loadOptions(args []string) (*config.Options, error) {
	var (
		opts *config.Options
		err  error
	)
	if path := config.ConfigFlag(args); path != "" {
		opts, err = config.LoadFile(path)
	} else {
		opts, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	opts.ApplyEnv(os.Getenv)
	if err := opts.ParseFlags(flag.CommandLine, args); err != nil {
		return nil, err
	}
	return opts, opts.Validate()
}

func pair(ctx context.Context, opts *config.Options, log *logrus.Entry) error {
	host := opts.BridgeHost
	if host == "" {
		found, err := api.DiscoverOne(ctx, opts.TimeoutDuration())
		if err != nil {
			return err
		}
		host = found.Host
	}

	hostname, _ := os.Hostname()
	log.Infof("Press the link button on the bridge at %s", host)
	username, err := api.CreateUsername(ctx, host, "hue-wrapper#"+hostname, pairTimeout)
	if err != nil {
		return err
	}

	opts.BridgeHost = host
	opts.Username = username
	if err := opts.Save(); err != nil {
		return errors.Wrap(err, "saving username")
	}
	log.Infof("Username created and saved for bridge %s", host)
	return nil
}

func connector(opts *config.Options, log *logrus.Entry) registry.Connector {
	if opts.Demo {
		demo := api.NewDemoBridge()
		log.Info("Demo mode enabled")
		return func(ctx context.Context) (api.BridgeClient, error) {
			return demo, nil
		}
	}

	if opts.BridgeHost != "" {
		log.Infof("Hue Bridge manually set at %s", opts.BridgeHost)
	}
	return func(ctx context.Context) (api.BridgeClient, error) {
		return api.Connect(ctx, opts.BridgeHost, opts.Username, opts.TimeoutDuration())
	}
}

func listenURL(listen string) string {
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}
	return fmt.Sprintf("http://%s%s", listen, server.BasePath)
}

func main() {
	opts, err := loadOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(opts.Verbose, os.Stderr)
	plog := logging.Component(logger, logging.Process)
	hlog := logging.Component(logger, logging.Hue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Pair {
		if err := pair(ctx, opts, hlog); err != nil {
			hlog.WithError(err).Error("Pairing failed")
			os.Exit(1)
		}
		return
	}

	if opts.Username == "" && !opts.Demo {
		hlog.Warn("No bridge username configured, run with -pair first")
	}

	bus := events.NewBus()
	reg := registry.New(connector(opts, hlog),
		registry.WithLogger(hlog),
		registry.WithLightOptions(
			light.WithBlinkInterval(opts.BlinkIntervalDuration()),
			light.WithLogger(hlog),
			light.WithOnChange(bus.Publish),
		))

	var publisher *events.MQTTPublisher
	if opts.MQTTBroker != "" {
		mlog := logging.Component(logger, logging.MQTT)
		publisher, err = events.NewMQTTPublisher(opts.MQTTBroker, opts.MQTTPrefix, mlog)
		if err != nil {
			mlog.WithError(err).Error("MQTT publishing disabled")
			publisher = nil
		} else {
			ch, _ := bus.Subscribe(64)
			go publisher.Run(ctx, ch)
		}
	}

	if err := reg.Discover(ctx); err != nil {
		hlog.WithError(err).Error("Initial discovery failed, use /hue/reset to retry")
	}

	srv := server.New(reg, bus, logging.Component(logger, logging.HTTP))
	httpServer := &http.Server{
		Addr:    opts.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		plog.Infof("REST server running on %s", listenURL(opts.Listen))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			plog.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	plog.Info("Caught interrupt signal")
	srv.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		plog.WithError(err).Warn("HTTP shutdown")
	}
	shutdownCancel()
	reg.Shutdown()
	cancel()
	if publisher != nil {
		publisher.Close()
	}

	plog.Info("Exiting gracefully")
	os.Exit(2)
}
