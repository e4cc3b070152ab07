package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/config"
	"github.com/cceh/rticapture/internal/hw/gpio"
	"github.com/cceh/rticapture/internal/hw/shutter"
	"github.com/cceh/rticapture/internal/hw/tether"
	"github.com/cceh/rticapture/internal/led"
	"github.com/cceh/rticapture/internal/logic/capture"
	"github.com/cceh/rticapture/internal/logic/profile"
	"github.com/cceh/rticapture/internal/session"
	"github.com/cceh/rticapture/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{}
	flag.Var(webPort, "web", "override web server port; -web= keeps the configured port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	logLevel := flag.String("log-level", "", "override log level (trace, debug, info, warn, error)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *cfgPath).Msg("load config failed")
	}

	levelName := cfg.Log.Level
	if *logLevel != "" {
		levelName = *logLevel
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid log level")
	}
	logger = logger.Level(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prof, err := profile.ByName(cfg.Camera.Profile)
	if err != nil {
		logger.Fatal().Err(err).Msg("unknown camera profile")
	}
	logger.Info().Str("profile", prof.Name()).Str("driver", cfg.Camera.Driver).Msg("starting capture controller")

	driver, err := tether.NewDriver(cfg.Camera.Driver)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tether driver failed")
	}

	bus := capture.NewBus(logger)
	worker := capture.NewWorker(driver, prof, bus, logger)

	// GPIO cable release for manual-trigger rigs
	if cfg.Shutter.Enabled {
		gpioDriver, err := gpio.NewDriver(cfg.Shutter.MockGPIO)
		if err != nil {
			logger.Fatal().Err(err).Msg("init GPIO failed")
		}
		defer func() {
			if err := gpioDriver.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing GPIO driver failed")
			}
		}()
		release := shutter.NewGPIORelease(gpioDriver, cfg.Shutter.FocusPin, cfg.Shutter.ShutterPin,
			cfg.FocusDelay(), cfg.ShutterDelay())
		worker.SetRelease(release)
		logger.Info().Int("focus_pin", cfg.Shutter.FocusPin).Int("shutter_pin", cfg.Shutter.ShutterPin).
			Msg("cable release enabled")
	}

	// Dome light controller
	var dome *led.Controller
	if cfg.LED.Enabled {
		var transport led.Transport
		if cfg.LED.Mock {
			transport = led.NewMockTransport()
		} else {
			transport = led.NewSerialTransport(cfg.LED.Device)
		}
		dome = led.NewController(transport, logger)
		go dome.Run(ctx)
	}

	sessions := session.NewManager(cfg.WorkingDir, logger)

	handlers := web.NewHandlers(worker, bus, sessions, prof, cfg.Capture.MaxBurst, logger)
	if dome != nil {
		handlers.SetDome(dome)
	}

	go worker.Run(ctx)
	go handlers.Track(ctx)
	go supervise(ctx, worker, bus, dome, sessions, prof, cfg.Capture.LPTemplatePath, logger)

	// Start looking for the camera right away; the supervisor takes over
	// from the first Found state.
	worker.Send(capture.FindCamera{})

	port := cfg.Web.Port
	if p := webPort.port(); p > 0 {
		port = p
	}
	srv := web.NewServer(port, handlers, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("web server failed")
	}
}

// supervise drives the session-level policy that sits above the worker:
// auto-connect on discovery, reconnect after device loss, dome light
// switching around live view and capture, and post-series bookkeeping.
func supervise(ctx context.Context, worker *capture.Worker, bus *capture.Bus, dome *led.Controller,
	sessions *session.Manager, prof profile.Profile, lpTemplate string, logger zerolog.Logger) {
	log := logger.With().Str("component", "supervisor").Logger()
	events, unsub := bus.Subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			sc, ok := ev.(capture.StateChanged)
			if !ok {
				continue
			}
			switch st := sc.State.(type) {
			case capture.Found:
				worker.Send(capture.ConnectCamera{})
			case capture.Disconnected:
				if st.AutoReconnect {
					log.Info().Str("camera", st.Name).Msg("camera lost, searching again")
					worker.Send(capture.FindCamera{})
				}
			case capture.LiveViewStarted:
				domeCall(log, dome, "pilot light on", (*led.Controller).PilotLightOn)
			case capture.LiveViewStopped:
				domeCall(log, dome, "lights off", (*led.Controller).TurnOff)
			case capture.CaptureInProgress:
				if st.Captured == 0 {
					domeCall(log, dome, "lights on", (*led.Controller).TurnOn)
				}
			case capture.CaptureCanceled:
				domeCall(log, dome, "lights off", (*led.Controller).TurnOff)
			case capture.CaptureError:
				domeCall(log, dome, "lights off", (*led.Controller).TurnOff)
			case capture.CaptureFinished:
				domeCall(log, dome, "lights off", (*led.Controller).TurnOff)
				if st.Request.NumImages == prof.NumCaptures() {
					finalizeSeries(worker, sessions, lpTemplate, log)
				}
			}
		}
	}
}

func domeCall(log zerolog.Logger, dome *led.Controller, what string, fn func(*led.Controller) error) {
	if dome == nil {
		return
	}
	if err := fn(dome); err != nil {
		log.Warn().Err(err).Str("action", what).Msg("dome command failed")
	}
}

// finalizeSeries writes the light-position manifest and the camera config
// dump after a completed full RTI series. Both are best-effort; a failed
// manifest never invalidates the captured images.
func finalizeSeries(worker *capture.Worker, sessions *session.Manager, lpTemplate string, log zerolog.Logger) {
	sess, ok := sessions.Current()
	if !ok {
		return
	}

	if lpTemplate != "" {
		if err := sess.WriteLightPositions(lpTemplate); err != nil {
			log.Warn().Err(err).Msg("light position manifest not written")
		}
	}

	reply := make(chan *tether.Widget, 1)
	worker.Send(capture.GetConfig{Reply: reply})
	select {
	case cfg := <-reply:
		if cfg == nil {
			return
		}
		if err := sess.DumpCameraConfig(cfg); err != nil {
			log.Warn().Err(err).Msg("camera config dump failed")
		}
	case <-time.After(5 * time.Second):
		log.Warn().Msg("camera config dump timed out")
	}
}

// webPortFlag implements flag.Value for -web: 0 = use the configured port.
type webPortFlag struct {
	val int
}

func (w *webPortFlag) String() string {
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
