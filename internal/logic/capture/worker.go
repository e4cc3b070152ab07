// Package capture contains the camera worker: a single-goroutine state
// machine that owns the device session, drains the hardware event queue and
// orchestrates live view, autofocus and multi-shot capture operations.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/shutter"
	"github.com/cceh/rticapture/internal/hw/tether"
	"github.com/cceh/rticapture/internal/logic/configstore"
	"github.com/cceh/rticapture/internal/logic/profile"
)

// Timings collects the poll and retry intervals of the worker loops.
// Tests shorten them; production uses DefaultTimings.
type Timings struct {
	FindRetry       time.Duration // device discovery retry interval
	DrainTimeout    time.Duration // event poll timeout in loops
	SettleDrain     time.Duration // longer drain before/after an operation
	PreviewInterval time.Duration // pause between live-view frames
	ConfigPoll      time.Duration // async property polling interval
}

func DefaultTimings() Timings {
	return Timings{
		FindRetry:       1 * time.Second,
		DrainTimeout:    1 * time.Millisecond,
		SettleDrain:     100 * time.Millisecond,
		PreviewInterval: 50 * time.Millisecond,
		ConfigPoll:      1 * time.Second,
	}
}

// Worker owns the camera lifecycle. All device access happens on the
// goroutine running Run; other goroutines talk to it through Send and the
// Bus.
type Worker struct {
	driver  tether.Driver
	prof    profile.Profile
	bus     *Bus
	release shutter.Release
	log     zerolog.Logger
	timings Timings

	cmds chan Command

	// Session state, owned by the Run goroutine.
	dev   tether.Device
	drain *EventDrain
	store *configstore.Store
	name  string
	found *tether.Info

	liveView      bool
	lightmeter    float64
	hasLightmeter bool

	polled   map[string]string
	lastPoll time.Time

	// Per-capture bookkeeping, reset at operation start.
	req             *Request
	expectFiles     int
	filesCaptured   int
	captureComplete bool
	shouldCancel    bool
	cancelling      bool
	captureErr      error
}

func NewWorker(driver tether.Driver, prof profile.Profile, bus *Bus, logger zerolog.Logger) *Worker {
	return &Worker{
		driver:  driver,
		prof:    prof,
		bus:     bus,
		log:     logger.With().Str("component", "worker").Logger(),
		timings: DefaultTimings(),
		cmds:    make(chan Command, 16),
		polled:  make(map[string]string),
	}
}

// SetRelease attaches a cable release used in manual-trigger mode.
func (w *Worker) SetRelease(r shutter.Release) { w.release = r }

// SetTimings overrides the loop intervals. Call before Run.
func (w *Worker) SetTimings(t Timings) { w.timings = t }

// Send queues a command for the worker goroutine.
func (w *Worker) Send(cmd Command) {
	w.cmds <- cmd
}

// Run executes the worker until ctx is cancelled. It owns the device handle
// exclusively; teardown happens on every exit path.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Str("profile", w.prof.Name()).Msg("camera worker started")
	w.bus.Publish(Initialized{})
	w.setState(Waiting{})

	for {
		select {
		case <-ctx.Done():
			if w.dev != nil {
				w.setState(Disconnecting{})
				w.closeDevice(false)
			}
			w.log.Info().Msg("camera worker stopped")
			return
		case cmd := <-w.cmds:
			w.handleIdleCommand(ctx, cmd)
		}
	}
}

// handleIdleCommand processes commands while no session is open.
func (w *Worker) handleIdleCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case FindCamera, Reconnect:
		w.findCamera(ctx)
	case ConnectCamera:
		w.connectCamera(ctx)
	case DisconnectCamera:
		// Idempotent: already disconnected.
		w.setState(Disconnected{Name: w.name, AutoReconnect: false})
	case GetConfig:
		w.replyConfig(c, nil)
	default:
		w.reject(cmd, "no camera connected")
	}
}

// findCamera polls for an attached device until one is found or the context
// is cancelled.
func (w *Worker) findCamera(ctx context.Context) {
	w.setState(Waiting{})
	for {
		if ctx.Err() != nil {
			return
		}
		list, err := w.driver.Autodetect()
		if err != nil {
			w.log.Warn().Err(err).Msg("autodetect failed")
		}
		if len(list) > 0 {
			info := list[0]
			w.found = &info
			w.log.Info().Str("camera", info.Name).Str("port", info.Port).Msg("camera found")
			w.setState(Found{Name: info.Name, Port: info.Port})
			return
		}
		w.log.Debug().Msg("waiting for camera")
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.timings.FindRetry):
		}
	}
}

// connectCamera opens the session, applies the profile's initial settings
// best-effort, reads the full config once and enters the session loop.
func (w *Worker) connectCamera(ctx context.Context) {
	if w.dev != nil {
		w.reject(ConnectCamera{}, "already connected")
		return
	}
	if w.found == nil {
		w.reject(ConnectCamera{}, "no camera found")
		return
	}

	w.setState(Connecting{Name: w.found.Name})

	dev, err := w.driver.Open(w.found.Port)
	if err != nil {
		w.connectFailed(fmt.Errorf("open device: %w", err))
		return
	}
	w.dev = dev
	w.store = configstore.New(dev, w.log)
	w.drain = NewEventDrain(dev, w.log)
	w.drain.OnFileAdded = w.onFileAdded
	w.drain.OnCaptureComplete = func() { w.captureComplete = true }
	w.drain.OnProperty = w.onProperty

	if err := w.store.Apply(w.prof.InitialSettings()); err != nil {
		w.connectFailed(fmt.Errorf("apply initial settings: %w", err))
		return
	}

	cfg, err := w.store.ReadAll()
	if err != nil {
		w.connectFailed(err)
		return
	}
	w.bus.Publish(ConfigUpdated{Config: cfg})
	w.name = displayName(cfg, w.found.Name)

	w.log.Info().Str("camera", w.name).Msg("camera connected")
	w.setState(Ready{Name: w.name})

	w.sessionLoop(ctx)
}

func (w *Worker) connectFailed(err error) {
	w.log.Error().Err(err).Msg("connect failed")
	w.setState(ConnectionError{Err: err})
	w.closeDevice(true)
}

// sessionLoop is the drain loop run while a session is open: commands are
// polled non-blocking between event drains so the worker stays responsive,
// and live view captures one preview frame per pass.
func (w *Worker) sessionLoop(ctx context.Context) {
	for w.dev != nil {
		if ctx.Err() != nil {
			w.setState(Disconnecting{})
			w.closeDevice(false)
			return
		}

		select {
		case cmd := <-w.cmds:
			w.handleSessionCommand(ctx, cmd)
			continue
		default:
		}

		if w.liveView {
			frame, err := w.dev.CapturePreview()
			if err != nil {
				w.sessionFatal(err)
				return
			}
			w.bus.Publish(PreviewFrame{Image: frame})
			select {
			case <-ctx.Done():
				continue
			case <-time.After(w.timings.PreviewInterval):
			}
		}

		if err := w.drain.Drain(w.timings.DrainTimeout); err != nil {
			w.sessionFatal(err)
			return
		}

		w.pollConfigIfDue()
	}
}

func (w *Worker) handleSessionCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case DisconnectCamera:
		w.setState(Disconnecting{})
		w.closeDevice(false)
	case Reconnect:
		w.setState(Disconnecting{})
		w.closeDevice(true)
	case FindCamera, ConnectCamera:
		w.reject(cmd, "already connected")
	case SetLiveView:
		if c.Enabled {
			w.startLiveView()
		} else {
			w.stopLiveView()
		}
	case TriggerAutofocus:
		w.autofocus()
	case CaptureImages:
		w.captureImages(ctx, c.Request)
	case Cancel:
		w.log.Debug().Msg("cancel with no capture in progress, ignoring")
	case SetProperty:
		w.setProperty(c.Name, c.Value)
	case SetFullConfig:
		if err := w.dev.SetConfig(c.Config); err != nil {
			w.sessionFatal(err)
			return
		}
		w.publishConfig()
	case GetConfig:
		w.serveConfig(c)
	}
}

// sessionFatal handles a device error that makes the session unusable:
// force-disconnect with auto-reconnect, swallowing close errors because the
// device may already be gone.
func (w *Worker) sessionFatal(err error) {
	w.log.Error().Err(err).Msg("device error, disconnecting")
	w.closeDevice(true)
}

// closeDevice tears the session down on every exit path. Close errors are
// swallowed; double-close and close-on-vanished-device are non-fatal.
func (w *Worker) closeDevice(autoReconnect bool) {
	name := w.name
	if w.dev != nil {
		if err := w.dev.Close(); err != nil {
			w.log.Debug().Err(err).Msg("device close failed (may already be gone)")
		}
	}
	w.dev = nil
	w.drain = nil
	w.store = nil
	w.liveView = false
	w.hasLightmeter = false
	w.req = nil
	w.shouldCancel = false
	w.cancelling = false
	w.captureErr = nil
	w.polled = make(map[string]string)

	w.setState(Disconnected{Name: name, AutoReconnect: autoReconnect})
}

func (w *Worker) setProperty(name, value string) {
	if _, err := w.store.TrySet(name, value); err != nil {
		w.sessionFatal(err)
		return
	}
	if err := w.drain.Drain(w.timings.DrainTimeout); err != nil {
		w.sessionFatal(err)
		return
	}
	w.publishConfig()
}

func (w *Worker) publishConfig() {
	cfg, err := w.store.ReadAll()
	if err != nil {
		w.sessionFatal(err)
		return
	}
	w.bus.Publish(ConfigUpdated{Config: cfg})
}

func (w *Worker) serveConfig(c GetConfig) {
	cfg, err := w.store.ReadAll()
	if err != nil {
		w.log.Warn().Err(err).Msg("config read for request failed")
		w.replyConfig(c, nil)
		return
	}
	w.replyConfig(c, cfg)
}

func (w *Worker) replyConfig(c GetConfig, cfg *tether.Widget) {
	if c.Reply == nil {
		return
	}
	select {
	case c.Reply <- cfg:
	default:
		w.log.Warn().Msg("config reply channel full, dropping")
	}
}

func (w *Worker) startLiveView() {
	if w.liveView {
		return
	}
	if err := w.store.Apply(w.prof.StartLiveViewSettings()); err != nil {
		w.sessionFatal(err)
		return
	}
	w.liveView = true
	w.setState(LiveViewStarted{Lightmeter: w.lightmeter, HasLightmeter: w.hasLightmeter})
	w.setState(LiveViewActive{})
}

func (w *Worker) stopLiveView() {
	if !w.liveView {
		return
	}
	if err := w.store.Apply(w.prof.StopLiveViewSettings()); err != nil {
		w.sessionFatal(err)
		return
	}
	w.liveView = false
	w.setState(LiveViewStopped{})
	w.setState(Ready{Name: w.name})
}

// autofocus runs one focus cycle. The vendor's "could not achieve focus"
// error is downgraded to FocusFinished(false); every other device error is
// fatal. Focus-stop settings are applied regardless of outcome.
func (w *Worker) autofocus() {
	if !w.liveView {
		w.reject(TriggerAutofocus{}, "live view not active")
		return
	}

	w.setState(FocusStarted{})

	success := true
	var fatal error
	if err := w.store.Apply(w.prof.StartAutofocusSettings()); err != nil {
		if errors.Is(err, tether.ErrOutOfFocus) {
			success = false
		} else {
			fatal = err
		}
	}
	if fatal == nil {
		if err := w.drain.Drain(w.timings.SettleDrain); err != nil {
			fatal = err
		}
	}

	if err := w.store.Apply(w.prof.StopAutofocusSettings()); err != nil {
		if errors.Is(err, tether.ErrOutOfFocus) {
			success = false
		} else if fatal == nil {
			fatal = err
		}
	}
	if fatal != nil {
		w.sessionFatal(fatal)
		return
	}

	w.setState(FocusFinished{Success: success})
	w.setState(LiveViewActive{})
}

// captureImages runs one multi-shot capture operation: settings, trigger
// loop with burst bookkeeping, event draining, cancellation and cleanup.
func (w *Worker) captureImages(ctx context.Context, req Request) {
	fmtSettings, expect := w.prof.FormatSettings(req.Quality)
	if req.ExpectFiles > 0 {
		expect = req.ExpectFiles
	}
	if expect < 1 {
		expect = 1
	}
	manual := req.ManualTrigger || w.prof.ManualTrigger()

	// Live view and capture share the shutter; stop preview first.
	if w.liveView {
		w.stopLiveView()
		if w.dev == nil {
			return
		}
	}

	start := time.Now()

	// Clear stragglers from a previous operation before counting anything.
	if err := w.drain.Drain(w.timings.SettleDrain); err != nil {
		w.sessionFatal(err)
		return
	}

	w.filesCaptured = 0
	w.captureComplete = false
	w.shouldCancel = false
	w.cancelling = false
	w.captureErr = nil
	rcopy := req
	w.req = &rcopy
	w.expectFiles = expect

	w.log.Info().
		Str("operation", req.ID.String()).
		Int("num_images", req.NumImages).
		Int("expect_files", expect).
		Bool("manual_trigger", manual).
		Msg("capture started")
	w.setState(CaptureInProgress{Request: req, Captured: 0})

	var opErr error
	if err := w.store.Apply(mergeSettings(w.prof.StartCaptureSettings(), fmtSettings)); err != nil {
		opErr = err
	}

	total := req.NumImages * expect
	for opErr == nil && !w.shouldCancel {
		remaining := total - w.filesCaptured
		if remaining <= 0 {
			break
		}
		if ctx.Err() != nil {
			w.requestCancel()
			break
		}

		if w.prof.UseBurst() {
			burst := remaining / expect
			if req.MaxBurst > 0 && burst > req.MaxBurst {
				burst = req.MaxBurst
			}
			if burst < 1 {
				burst = 1
			}
			if _, err := w.store.TrySet(w.prof.BurstProperty(), strconv.Itoa(burst)); err != nil {
				opErr = err
				break
			}
			w.log.Debug().Int("burst", burst).Int("remaining", remaining).Msg("burst count set")
		}

		w.captureComplete = false
		if !manual {
			if err := w.dev.TriggerCapture(); err != nil {
				opErr = err
				break
			}
		} else if w.release != nil {
			if err := w.release.Pulse(); err != nil {
				w.log.Warn().Err(err).Msg("release pulse failed")
			}
		}

		for !w.captureComplete && !w.shouldCancel {
			w.pollCaptureCommands()
			if w.shouldCancel {
				break
			}
			if err := w.drain.Drain(w.timings.DrainTimeout); err != nil {
				opErr = err
				break
			}
			if w.captureErr != nil {
				opErr = w.captureErr
				break
			}
			if w.filesCaptured >= total {
				break
			}
			if ctx.Err() != nil {
				w.requestCancel()
			}
		}
		if opErr != nil {
			break
		}
	}

	captured := w.filesCaptured / expect

	switch {
	case opErr != nil:
		w.log.Error().Err(opErr).Msg("capture failed")
		w.setState(CaptureError{Request: req, Message: opErr.Error()})
	case w.shouldCancel:
		// Frames already triggered still deliver their files; let them
		// settle so nothing already captured is orphaned on the camera.
		if err := w.drain.Drain(w.timings.SettleDrain); err != nil {
			w.log.Warn().Err(err).Msg("settle drain after cancel failed")
		}
		w.log.Info().Int("files", w.filesCaptured).Msg("capture canceled")
		w.setState(CaptureCanceled{Request: req, Elapsed: time.Since(start)})
	default:
		w.log.Info().Int("captured", captured).Dur("elapsed", time.Since(start)).Msg("capture finished")
		w.setState(CaptureFinished{Request: req, Elapsed: time.Since(start), Captured: captured})
	}

	w.finishCapture()
}

// finishCapture resets the camera to its idle state. Best-effort: its own
// failures degrade to ConnectionError instead of crashing the worker.
func (w *Worker) finishCapture() {
	w.req = nil
	w.shouldCancel = false
	w.cancelling = false
	w.captureErr = nil

	cleanupErr := w.store.Apply(w.prof.StopCaptureSettings())
	if cleanupErr == nil && w.prof.UseBurst() {
		_, cleanupErr = w.store.TrySet(w.prof.BurstProperty(), "1")
	}
	if cleanupErr == nil {
		cleanupErr = w.drain.Drain(w.timings.DrainTimeout)
	}
	if cleanupErr != nil {
		w.log.Warn().Err(cleanupErr).Msg("capture cleanup failed")
		w.setState(ConnectionError{Err: cleanupErr})
		w.closeDevice(true)
		return
	}
	w.setState(Ready{Name: w.name})
}

func (w *Worker) requestCancel() {
	if w.cancelling {
		return
	}
	w.shouldCancel = true
	w.cancelling = true
	w.log.Info().Msg("capture cancellation requested")
	w.setState(CaptureCancelling{})
}

// pollCaptureCommands handles commands arriving mid-capture. Cancellation
// and config writes are honored; anything that would change the session
// state is rejected explicitly.
func (w *Worker) pollCaptureCommands() {
	for {
		select {
		case cmd := <-w.cmds:
			switch c := cmd.(type) {
			case Cancel:
				w.requestCancel()
			case SetProperty:
				if _, err := w.store.TrySet(c.Name, c.Value); err != nil {
					w.captureErr = err
				}
			case GetConfig:
				w.serveConfig(c)
			default:
				w.reject(cmd, "capture in progress")
			}
		default:
			return
		}
	}
}

// onFileAdded is the drain callback for new files on the camera. Files are
// saved and counted only while a capture is in progress; after cancellation
// in-flight files are still counted and removed from the camera but no
// longer saved. A file event with no capture running is a protocol anomaly
// and is discarded without downloading.
func (w *Worker) onFileAdded(folder, name string) error {
	if w.req == nil {
		w.log.Warn().Str("folder", folder).Str("file", name).
			Msg("file event with no capture in progress, discarding")
		return nil
	}

	num := w.filesCaptured/w.expectFiles + 1
	if !w.cancelling {
		data, err := w.dev.GetFile(folder, name)
		if err != nil {
			return fmt.Errorf("get file %s/%s: %w", folder, name, err)
		}
		target := w.req.TargetPath(name, num)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("save %s: %w", target, err)
		}
		w.log.Debug().Str("path", target).Msg("image saved")
		w.bus.Publish(ImageSaved{Path: target})
	}
	if err := w.dev.DeleteFile(folder, name); err != nil {
		return fmt.Errorf("delete file %s/%s: %w", folder, name, err)
	}

	w.filesCaptured++
	if !w.cancelling && w.filesCaptured%w.expectFiles == 0 {
		w.setState(CaptureInProgress{Request: *w.req, Captured: w.filesCaptured / w.expectFiles})
	}
	return nil
}

// onProperty publishes every property change, whatever the capture state.
func (w *Worker) onProperty(id uint32, name, value string) {
	w.bus.Publish(PropertyChanged{ID: id, Name: name, Value: value})
	if name == "lightmeter" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			w.lightmeter = v
			w.hasLightmeter = true
		}
	}
}

// pollConfigIfDue re-reads the profile's polled property subset and
// publishes values that changed since the last poll.
func (w *Worker) pollConfigIfDue() {
	names := w.prof.PollConfig()
	if names == nil || w.store == nil {
		return
	}
	if time.Since(w.lastPoll) < w.timings.ConfigPoll {
		return
	}
	w.lastPoll = time.Now()

	values, err := w.store.ReadSubset(names)
	if err != nil {
		w.sessionFatal(err)
		return
	}
	keys := make([]string, 0, len(values))
	for name := range values {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		if w.polled[name] != values[name] {
			w.polled[name] = values[name]
			w.bus.Publish(PropertyChanged{Name: name, Value: values[name]})
		}
	}
}

func (w *Worker) setState(s State) {
	w.log.Debug().Str("state", StateName(s)).Msg("state changed")
	w.bus.Publish(StateChanged{State: s})
}

func (w *Worker) reject(cmd Command, reason string) {
	w.log.Warn().Str("command", cmd.name()).Str("reason", reason).Msg("command rejected")
	w.bus.Publish(CommandRejected{Command: cmd.name(), Reason: reason})
}

// displayName derives the user-facing camera name from the model and
// manufacturer properties, falling back to the autodetected name.
func displayName(cfg *tether.Widget, fallback string) string {
	model, okM := cfg.ChildByName("cameramodel")
	manu, okU := cfg.ChildByName("manufacturer")
	if okM && okU {
		return model.Value + " " + manu.Value
	}
	if okM {
		return model.Value
	}
	return fallback
}

func mergeSettings(bundles ...profile.Settings) profile.Settings {
	out := make(profile.Settings)
	for _, b := range bundles {
		for k, v := range b {
			out[k] = v
		}
	}
	return out
}
