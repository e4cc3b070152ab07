// Package session manages the on-disk layout of one RTI acquisition: the
// session directory with its test-shot and image subdirectories, the
// light-position manifest and the camera configuration dump.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	previewSubdir = "test"
	imagesSubdir  = "images"
)

// ErrWrongImageCount is returned when a manifest is requested before the
// image set is complete.
var ErrWrongImageCount = errors.New("session: image count does not match dome positions")

// Session is one named acquisition under the working directory.
type Session struct {
	Name string
	Dir  string

	log zerolog.Logger

	mu           sync.Mutex
	previewCount int
}

// Open creates (or reopens) the session directory layout and seeds the
// test-shot counter from files already present, so reopening a session
// never overwrites earlier test shots.
func Open(workingDir, name string, logger zerolog.Logger) (*Session, error) {
	if name == "" {
		return nil, errors.New("session: empty name")
	}
	s := &Session{
		Name: name,
		Dir:  filepath.Join(workingDir, name),
		log:  logger.With().Str("component", "session").Str("session", name).Logger(),
	}
	for _, dir := range []string{s.PreviewDir(), s.ImagesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	prefix := s.safeName() + "_test_"
	entries, err := os.ReadDir(s.PreviewDir())
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		numStr, ok := strings.CutPrefix(base, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(numStr); err == nil && n > s.previewCount {
			s.previewCount = n
		}
	}

	s.log.Info().Str("dir", s.Dir).Int("test_shots", s.previewCount).Msg("session opened")
	return s, nil
}

func (s *Session) PreviewDir() string { return filepath.Join(s.Dir, previewSubdir) }
func (s *Session) ImagesDir() string  { return filepath.Join(s.Dir, imagesSubdir) }

// safeName is the session name with spaces flattened for filenames.
func (s *Session) safeName() string {
	return strings.ReplaceAll(s.Name, " ", "_")
}

// NextPreviewTemplate allocates the path template for the next test shot,
// leaving ${extension} for the capture pipeline to fill per file.
func (s *Session) NextPreviewTemplate() string {
	s.mu.Lock()
	s.previewCount++
	n := s.previewCount
	s.mu.Unlock()
	return filepath.Join(s.PreviewDir(), fmt.Sprintf("%s_test_%d${extension}", s.safeName(), n))
}

// RTITemplate is the path template for the numbered images of the RTI set.
func (s *Session) RTITemplate() string {
	return filepath.Join(s.ImagesDir(), s.safeName()+"_${num}${extension}")
}

// jpegImages lists the session's JPEG files in name order. The manifest
// references JPEGs only; RAW companions are ignored.
func (s *Session) jpegImages() ([]string, error) {
	entries, err := os.ReadDir(s.ImagesDir())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// WriteLightPositions writes the <name>.lp manifest mapping each captured
// image to its dome light direction, taken line by line from the template
// manifest. The manifest is only written when the image set exactly matches
// the number of positions in the template; otherwise ErrWrongImageCount is
// returned and nothing is touched.
func (s *Session) WriteLightPositions(templatePath string) error {
	tf, err := os.Open(templatePath)
	if err != nil {
		return fmt.Errorf("open lp template: %w", err)
	}
	defer tf.Close()

	scanner := bufio.NewScanner(tf)
	if !scanner.Scan() {
		return fmt.Errorf("lp template %s: empty", templatePath)
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("lp template %s: bad count line: %w", templatePath, err)
	}

	var directions []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Template lines are "<filename> <x> <y> <z>"; only the direction
		// part carries over.
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return fmt.Errorf("lp template %s: bad position line %q", templatePath, line)
		}
		directions = append(directions, strings.Join(fields[1:], " "))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(directions) != count {
		return fmt.Errorf("lp template %s: %d positions, count line says %d", templatePath, len(directions), count)
	}

	images, err := s.jpegImages()
	if err != nil {
		return err
	}
	if len(images) != count {
		return fmt.Errorf("%w: have %d images, template has %d positions", ErrWrongImageCount, len(images), count)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", count)
	for i, img := range images {
		fmt.Fprintf(&b, "%s %s\n", filepath.Join(imagesSubdir, img), directions[i])
	}

	out := filepath.Join(s.Dir, s.safeName()+".lp")
	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		return err
	}
	s.log.Info().Str("path", out).Int("positions", count).Msg("light position manifest written")
	return nil
}
