package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cceh/rticapture/internal/hw/tether"
)

func TestOpen_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "amphora 21", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if s.Dir != filepath.Join(dir, "amphora 21") {
		t.Errorf("session dir = %q", s.Dir)
	}
	for _, sub := range []string{s.PreviewDir(), s.ImagesDir()} {
		info, err := os.Stat(sub)
		if err != nil || !info.IsDir() {
			t.Errorf("missing directory %s", sub)
		}
	}
}

func TestOpen_EmptyName(t *testing.T) {
	if _, err := Open(t.TempDir(), "", zerolog.Nop()); err == nil {
		t.Error("expected error for empty session name")
	}
}

func TestNextPreviewTemplate_NumbersAndFlattensSpaces(t *testing.T) {
	s, err := Open(t.TempDir(), "amphora 21", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	first := s.NextPreviewTemplate()
	if !strings.HasSuffix(first, "amphora_21_test_1${extension}") {
		t.Errorf("first template = %q", first)
	}
	second := s.NextPreviewTemplate()
	if !strings.HasSuffix(second, "amphora_21_test_2${extension}") {
		t.Errorf("second template = %q", second)
	}
}

func TestOpen_SeedsPreviewCounterFromDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "vase", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"vase_test_1.JPG", "vase_test_3.JPG", "unrelated.JPG"} {
		if err := os.WriteFile(filepath.Join(s.PreviewDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := Open(dir, "vase", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	next := reopened.NextPreviewTemplate()
	if !strings.HasSuffix(next, "vase_test_4${extension}") {
		t.Errorf("reopened template = %q, want counter past existing shots", next)
	}
}

func TestRTITemplate(t *testing.T) {
	s, err := Open(t.TempDir(), "amphora 21", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got := s.RTITemplate()
	want := filepath.Join(s.ImagesDir(), "amphora_21_${num}${extension}")
	if got != want {
		t.Errorf("RTITemplate = %q, want %q", got, want)
	}
}

func writeLPTemplate(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dome.lp")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteLightPositions(t *testing.T) {
	s, err := Open(t.TempDir(), "vase", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	template := writeLPTemplate(t, []string{
		"3",
		"ref_001.jpg 0.1 0.2 0.9",
		"ref_002.jpg -0.3 0.4 0.8",
		"ref_003.jpg 0.5 -0.6 0.7",
	})
	for _, name := range []string{"vase_001.JPG", "vase_002.JPG", "vase_003.JPG", "vase_001.NEF"} {
		if err := os.WriteFile(filepath.Join(s.ImagesDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.WriteLightPositions(template); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir, "vase.lp"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("manifest has %d lines, want 4", len(lines))
	}
	if lines[0] != "3" {
		t.Errorf("count line = %q", lines[0])
	}
	if lines[1] != filepath.Join("images", "vase_001.JPG")+" 0.1 0.2 0.9" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[3] != filepath.Join("images", "vase_003.JPG")+" 0.5 -0.6 0.7" {
		t.Errorf("line 3 = %q", lines[3])
	}
}

func TestWriteLightPositions_WrongImageCount(t *testing.T) {
	s, err := Open(t.TempDir(), "vase", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	template := writeLPTemplate(t, []string{
		"2",
		"ref_001.jpg 0.1 0.2 0.9",
		"ref_002.jpg -0.3 0.4 0.8",
	})
	if err := os.WriteFile(filepath.Join(s.ImagesDir(), "vase_001.JPG"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err = s.WriteLightPositions(template)
	if !errors.Is(err, ErrWrongImageCount) {
		t.Fatalf("error = %v, want ErrWrongImageCount", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "vase.lp")); !os.IsNotExist(err) {
		t.Error("incomplete set must not produce a manifest")
	}
}

func TestWriteLightPositions_BadTemplate(t *testing.T) {
	s, err := Open(t.TempDir(), "vase", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	cases := [][]string{
		{"not-a-number", "ref.jpg 0 0 1"},
		{"2", "ref_001.jpg 0.1 0.2 0.9"},       // count mismatch
		{"1", "ref_001.jpg 0.1"},               // short position line
	}
	for i, lines := range cases {
		template := writeLPTemplate(t, lines)
		if err := s.WriteLightPositions(template); err == nil {
			t.Errorf("case %d: expected error for malformed template", i)
		}
	}
}

func TestDumpCameraConfig(t *testing.T) {
	s, err := Open(t.TempDir(), "vase", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cfg := tether.NewMockConfig("Nikon D800E", "Nikon Corporation")

	if err := s.DumpCameraConfig(cfg); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir, "camera_config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	status, ok := doc["status"].(map[string]any)
	if !ok {
		t.Fatal("status section missing")
	}
	model, ok := status["cameramodel"].(map[string]any)
	if !ok {
		t.Fatal("cameramodel leaf missing")
	}
	if model["value"] != "Nikon D800E" {
		t.Errorf("cameramodel value = %v", model["value"])
	}
	if _, ok := model["label"]; !ok {
		t.Error("leaf misses label")
	}
}

func TestManager(t *testing.T) {
	m := NewManager(t.TempDir(), zerolog.Nop())

	if _, ok := m.Current(); ok {
		t.Error("fresh manager has a session")
	}

	s, err := m.Open("vase")
	if err != nil {
		t.Fatal(err)
	}
	cur, ok := m.Current()
	if !ok || cur != s {
		t.Error("open session not current")
	}

	m.Close()
	if _, ok := m.Current(); ok {
		t.Error("closed manager still has a session")
	}
}
