package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cceh/rticapture/internal/logic/profile"
)

// Request describes one capture operation. It is constructed by the caller,
// consumed once by the worker and immutable thereafter.
type Request struct {
	// ID correlates all states emitted for this operation.
	ID uuid.UUID

	// PathTemplate is the output path with ${basename}, ${extension} and
	// ${num} substitution tokens.
	PathTemplate string

	// NumImages is the number of shots to take.
	NumImages int

	// ExpectFiles is the number of files the camera produces per shot
	// (1 for JPEG only, 2 for RAW+JPEG pairs). Zero means "derive from
	// Quality via the profile".
	ExpectFiles int

	// MaxBurst caps the burst-count property per trigger pulse on
	// burst-triggered models. Zero means no cap.
	MaxBurst int

	// ManualTrigger suppresses SDK trigger pulses; the operator or an
	// external controller fires the camera and the worker only collects
	// the resulting file events.
	ManualTrigger bool

	// Quality selects the output format bundle.
	Quality profile.Quality
}

// NewRequest builds a request with a fresh operation id.
func NewRequest(pathTemplate string, numImages int, q profile.Quality) Request {
	return Request{
		ID:           uuid.New(),
		PathTemplate: pathTemplate,
		NumImages:    numImages,
		Quality:      q,
	}
}

// TargetPath substitutes the camera file's basename and extension plus the
// zero-padded shot number into the path template. Both files of a RAW+JPEG
// pair share one number.
func (r Request) TargetPath(fileName string, num int) string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	return os.Expand(r.PathTemplate, func(key string) string {
		switch key {
		case "basename":
			return base
		case "extension":
			return ext
		case "num":
			return fmt.Sprintf("%03d", num)
		default:
			return ""
		}
	})
}
