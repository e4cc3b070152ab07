package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
	"github.com/cceh/rticapture/internal/led"
	"github.com/cceh/rticapture/internal/logic/capture"
	"github.com/cceh/rticapture/internal/logic/profile"
	"github.com/cceh/rticapture/internal/session"
)

// Handlers holds dependencies for the HTTP handlers. The dome controller is
// optional; LED endpoints answer 503 without one.
type Handlers struct {
	worker   *capture.Worker
	bus      *capture.Bus
	dome     *led.Controller
	sessions *session.Manager
	prof     profile.Profile
	maxBurst int
	log      zerolog.Logger

	mu          sync.Mutex
	lastState   capture.State
	lastPreview []byte
}

func NewHandlers(worker *capture.Worker, bus *capture.Bus, sessions *session.Manager, prof profile.Profile, maxBurst int, logger zerolog.Logger) *Handlers {
	return &Handlers{
		worker:    worker,
		bus:       bus,
		sessions:  sessions,
		prof:      prof,
		maxBurst:  maxBurst,
		log:       logger.With().Str("component", "web").Logger(),
		lastState: capture.Waiting{},
	}
}

// SetDome attaches the dome light controller.
func (h *Handlers) SetDome(d *led.Controller) { h.dome = d }

// Track follows the event bus to keep the latest state and preview frame
// available for the polling endpoints. Run it alongside the server.
func (h *Handlers) Track(ctx context.Context) {
	events, unsub := h.bus.Subscribe()
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case capture.StateChanged:
				h.mu.Lock()
				h.lastState = e.State
				h.mu.Unlock()
			case capture.PreviewFrame:
				h.mu.Lock()
				h.lastPreview = e.Image
				h.mu.Unlock()
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleStatus answers GET /api/status with the last observed state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	state := h.lastState
	h.mu.Unlock()

	resp := map[string]any{
		"state":  capture.StateName(state),
		"detail": stateJSON(state),
	}
	if sess, ok := h.sessions.Current(); ok {
		resp["session"] = sess.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePreview answers GET /api/preview with the latest live-view frame.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	frame := h.lastPreview
	h.mu.Unlock()
	if len(frame) == 0 {
		writeError(w, http.StatusNotFound, "no preview frame available")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(frame)
}

// HandleEvents answers GET /api/events with a server-sent-events stream of
// worker events. Preview frames are announced but not embedded; clients
// fetch them from /api/preview.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	events, unsub := h.bus.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			name, payload := eventJSON(ev)
			data, err := json.Marshal(payload)
			if err != nil {
				h.log.Warn().Err(err).Str("event", name).Msg("event marshal failed")
				continue
			}
			w.Write([]byte("event: " + name + "\ndata: " + string(data) + "\n\n"))
			flusher.Flush()
		}
	}
}

// HandleGetConfig answers GET /api/config with the camera's configuration
// tree, fetched from the worker.
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	reply := make(chan *tether.Widget, 1)
	h.worker.Send(capture.GetConfig{Reply: reply})
	select {
	case cfg := <-reply:
		if cfg == nil {
			writeError(w, http.StatusServiceUnavailable, "no camera connected")
			return
		}
		writeJSON(w, http.StatusOK, widgetJSON(cfg))
	case <-time.After(5 * time.Second):
		writeError(w, http.StatusGatewayTimeout, "camera did not answer")
	case <-r.Context().Done():
	}
}

// HandleSetProperty answers POST /api/config, writing one named value.
func (h *Handlers) HandleSetProperty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	h.worker.Send(capture.SetProperty{Name: body.Name, Value: body.Value})
	accepted(w)
}

func (h *Handlers) HandleFind(w http.ResponseWriter, r *http.Request) {
	h.worker.Send(capture.FindCamera{})
	accepted(w)
}

func (h *Handlers) HandleConnect(w http.ResponseWriter, r *http.Request) {
	h.worker.Send(capture.ConnectCamera{})
	accepted(w)
}

func (h *Handlers) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.worker.Send(capture.DisconnectCamera{})
	accepted(w)
}

func (h *Handlers) HandleLiveView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	h.worker.Send(capture.SetLiveView{Enabled: body.Enabled})
	accepted(w)
}

func (h *Handlers) HandleAutofocus(w http.ResponseWriter, r *http.Request) {
	h.worker.Send(capture.TriggerAutofocus{})
	accepted(w)
}

// HandleCapture answers POST /api/capture, starting either a single test
// shot or the full RTI series into the open session.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode    string `json:"mode"`    // "test" or "rti"
		Quality string `json:"quality"` // "JPEG" (default) or "RAW+JPEG"
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sess, ok := h.sessions.Current()
	if !ok {
		writeError(w, http.StatusConflict, "no session open")
		return
	}

	quality := profile.QualityJPEG
	switch body.Quality {
	case "", string(profile.QualityJPEG):
	case string(profile.QualityRAWAndJPEG):
		quality = profile.QualityRAWAndJPEG
	default:
		writeError(w, http.StatusBadRequest, "unknown quality "+body.Quality)
		return
	}

	var req capture.Request
	switch body.Mode {
	case "test":
		req = capture.NewRequest(sess.NextPreviewTemplate(), 1, quality)
	case "rti":
		req = capture.NewRequest(sess.RTITemplate(), h.prof.NumCaptures(), quality)
		req.MaxBurst = h.maxBurst
	default:
		writeError(w, http.StatusBadRequest, "mode must be test or rti")
		return
	}

	h.worker.Send(capture.CaptureImages{Request: req})
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"operation": req.ID.String(),
	})
}

func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.worker.Send(capture.Cancel{})
	accepted(w)
}

func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no session open")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": sess.Name, "dir": sess.Dir})
}

func (h *Handlers) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sess, err := h.sessions.Open(body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": sess.Name, "dir": sess.Dir})
}

func (h *Handlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Close()
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// HandleLED answers POST /api/led, driving the dome lights directly. Mainly
// used for rig checks between acquisitions.
func (h *Handlers) HandleLED(w http.ResponseWriter, r *http.Request) {
	if h.dome == nil {
		writeError(w, http.StatusServiceUnavailable, "no dome controller configured")
		return
	}
	var body struct {
		Action string `json:"action"` // on, off, pilot, set
		LED    int    `json:"led"`    // for action=set
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var err error
	switch body.Action {
	case "on":
		err = h.dome.TurnOn()
	case "off":
		err = h.dome.TurnOff()
	case "pilot":
		err = h.dome.PilotLightOn()
	case "set":
		err = h.dome.SetLED(body.LED)
	default:
		writeError(w, http.StatusBadRequest, "unknown action "+body.Action)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
