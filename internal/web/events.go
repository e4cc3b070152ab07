package web

import (
	"time"

	"github.com/cceh/rticapture/internal/hw/tether"
	"github.com/cceh/rticapture/internal/logic/capture"
)

// stateJSON flattens a worker state into the wire shape used by /api/status
// and the event stream.
func stateJSON(s capture.State) map[string]any {
	out := map[string]any{"state": capture.StateName(s)}
	switch st := s.(type) {
	case capture.Found:
		out["name"] = st.Name
		out["port"] = st.Port
	case capture.Connecting:
		out["name"] = st.Name
	case capture.Ready:
		out["name"] = st.Name
	case capture.Disconnected:
		out["name"] = st.Name
		out["auto_reconnect"] = st.AutoReconnect
	case capture.ConnectionError:
		out["error"] = st.Err.Error()
	case capture.LiveViewStarted:
		if st.HasLightmeter {
			out["lightmeter"] = st.Lightmeter
		}
	case capture.FocusFinished:
		out["success"] = st.Success
	case capture.CaptureInProgress:
		out["operation"] = st.Request.ID.String()
		out["captured"] = st.Captured
		out["total"] = st.Request.NumImages
	case capture.CaptureCanceled:
		out["operation"] = st.Request.ID.String()
		out["elapsed_ms"] = st.Elapsed.Milliseconds()
	case capture.CaptureFinished:
		out["operation"] = st.Request.ID.String()
		out["elapsed_ms"] = st.Elapsed.Milliseconds()
		out["captured"] = st.Captured
	case capture.CaptureError:
		out["operation"] = st.Request.ID.String()
		out["error"] = st.Message
	}
	return out
}

// eventJSON maps a bus event to its SSE event name and payload. Preview
// frames are announced without the image bytes.
func eventJSON(ev capture.Event) (string, any) {
	now := time.Now().Format(time.RFC3339)
	switch e := ev.(type) {
	case capture.Initialized:
		return "initialized", map[string]any{"t": now}
	case capture.StateChanged:
		payload := stateJSON(e.State)
		payload["t"] = now
		return "state", payload
	case capture.PropertyChanged:
		return "property", map[string]any{"t": now, "id": e.ID, "name": e.Name, "value": e.Value}
	case capture.ConfigUpdated:
		return "config", map[string]any{"t": now}
	case capture.PreviewFrame:
		return "preview", map[string]any{"t": now, "size": len(e.Image)}
	case capture.ImageSaved:
		return "image", map[string]any{"t": now, "path": e.Path}
	case capture.CommandRejected:
		return "rejected", map[string]any{"t": now, "command": e.Command, "reason": e.Reason}
	default:
		return "unknown", map[string]any{"t": now}
	}
}

// widgetNode is the JSON shape of one configuration tree node.
type widgetNode struct {
	Name     string        `json:"name"`
	Label    string        `json:"label,omitempty"`
	Type     string        `json:"type"`
	Value    string        `json:"value,omitempty"`
	Choices  []string      `json:"choices,omitempty"`
	ReadOnly bool          `json:"readonly,omitempty"`
	Children []*widgetNode `json:"children,omitempty"`
}

func widgetTypeName(t tether.WidgetType) string {
	switch t {
	case tether.WidgetWindow:
		return "window"
	case tether.WidgetSection:
		return "section"
	case tether.WidgetText:
		return "text"
	case tether.WidgetMenu:
		return "menu"
	case tether.WidgetToggle:
		return "toggle"
	}
	return "unknown"
}

func widgetJSON(w *tether.Widget) *widgetNode {
	node := &widgetNode{
		Name:     w.Name,
		Label:    w.Label,
		Type:     widgetTypeName(w.Type),
		Value:    w.Value,
		Choices:  w.Choices,
		ReadOnly: w.ReadOnly,
	}
	for _, c := range w.Children {
		node.Children = append(node.Children, widgetJSON(c))
	}
	return node
}
