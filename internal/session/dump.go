package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cceh/rticapture/internal/hw/tether"
)

// DumpCameraConfig records the camera configuration the set was captured
// with as camera_config.json in the session directory. Sections become
// nested objects, leaves become {value, label} pairs.
func (s *Session) DumpCameraConfig(cfg *tether.Widget) error {
	out := filepath.Join(s.Dir, "camera_config.json")
	data, err := json.MarshalIndent(configValue(cfg), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return err
	}
	s.log.Info().Str("path", out).Msg("camera config dumped")
	return nil
}

func configValue(w *tether.Widget) any {
	if w.IsLeaf() {
		return map[string]string{
			"value": w.Value,
			"label": w.Label,
		}
	}
	obj := make(map[string]any, len(w.Children))
	for _, child := range w.Children {
		obj[child.Name] = configValue(child)
	}
	return obj
}
