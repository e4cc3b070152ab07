package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
	"github.com/cceh/rticapture/internal/led"
	"github.com/cceh/rticapture/internal/logic/capture"
	"github.com/cceh/rticapture/internal/logic/profile"
	"github.com/cceh/rticapture/internal/session"
)

func newTestServer(t *testing.T) (*Server, *Handlers) {
	t.Helper()
	prof, err := profile.ByName("cceh-dome-nikon-d800e")
	if err != nil {
		t.Fatal(err)
	}
	driver := tether.NewMockDriver()
	bus := capture.NewBus(zerolog.Nop())
	worker := capture.NewWorker(driver, prof, bus, zerolog.Nop())
	sessions := session.NewManager(t.TempDir(), zerolog.Nop())

	handlers := NewHandlers(worker, bus, sessions, prof, 10, zerolog.Nop())
	return NewServer(0, handlers, zerolog.Nop()), handlers
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus_InitialState(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "GET", "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "waiting" {
		t.Errorf("state = %v, want waiting", body["state"])
	}
	if _, ok := body["session"]; ok {
		t.Error("no session should be reported")
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "GET", "/api/session", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get without session = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/session", `{"name":"amphora 21"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, "GET", "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["name"] != "amphora 21" {
		t.Errorf("session name = %q", body["name"])
	}

	rec = doJSON(t, router, "DELETE", "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Errorf("close = %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/session", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after close = %d, want 404", rec.Code)
	}
}

func TestSessionOpen_EmptyName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "POST", "/api/session", `{"name":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("open with empty name = %d, want 400", rec.Code)
	}
}

func TestCapture_RequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "POST", "/api/capture", `{"mode":"rti"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("capture without session = %d, want 409", rec.Code)
	}
}

func TestCapture_StartsOperation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, "POST", "/api/session", `{"name":"vase"}`)
	rec := doJSON(t, router, "POST", "/api/capture", `{"mode":"rti","quality":"RAW+JPEG"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("capture = %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["operation"] == "" {
		t.Error("no operation id returned")
	}
}

func TestCapture_BadInput(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, "POST", "/api/session", `{"name":"vase"}`)

	rec := doJSON(t, router, "POST", "/api/capture", `{"mode":"panorama"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode = %d, want 400", rec.Code)
	}
	rec = doJSON(t, router, "POST", "/api/capture", `{"mode":"rti","quality":"TIFF"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown quality = %d, want 400", rec.Code)
	}
}

func TestSetProperty_RequiresName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "POST", "/api/config", `{"value":"800"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("set without name = %d, want 400", rec.Code)
	}
}

func TestPreview_EmptyReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "GET", "/api/preview", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("preview = %d, want 404", rec.Code)
	}
}

func TestPreview_ServesLatestFrame(t *testing.T) {
	srv, handlers := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handlers.Track(ctx)

	handlers.bus.Publish(capture.PreviewFrame{Image: []byte("jpegdata")})

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := doJSON(t, srv.Router(), "GET", "/api/preview", "")
		if rec.Code == http.StatusOK {
			if rec.Body.String() != "jpegdata" {
				t.Errorf("preview body = %q", rec.Body.String())
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("preview frame never became available")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLED_WithoutController(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), "POST", "/api/led", `{"action":"on"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("led without controller = %d, want 503", rec.Code)
	}
}

func TestLED_ForwardsToController(t *testing.T) {
	srv, handlers := newTestServer(t)

	transport := led.NewMockTransport()
	dome := led.NewController(transport, zerolog.Nop())
	dome.SetTimeouts(time.Second, time.Millisecond)
	handlers.SetDome(dome)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dome.Run(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for dome.State() != led.StateConnected {
		if time.Now().After(deadline) {
			t.Fatal("dome never connected")
		}
		time.Sleep(time.Millisecond)
	}

	rec := doJSON(t, srv.Router(), "POST", "/api/led", `{"action":"set","led":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("led set = %d: %s", rec.Code, rec.Body.String())
	}
	frames := transport.Written()
	if len(frames) != 1 || frames[0][1] != 7 {
		t.Errorf("frames = %v", frames)
	}
}

func TestEventStream_DeliversStateEvents(t *testing.T) {
	srv, handlers := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	handlers.bus.Publish(capture.StateChanged{State: capture.Ready{Name: "cam"}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: state") {
		t.Errorf("stream missing state event: %q", body)
	}
	if !strings.Contains(body, `"state":"ready"`) {
		t.Errorf("stream missing payload: %q", body)
	}
}
