package tether

import (
	"errors"
	"testing"
)

func TestChildByName_DepthFirst(t *testing.T) {
	cfg := NewMockConfig("Nikon D800E", "Nikon Corporation")

	iso, ok := cfg.ChildByName("iso")
	if !ok {
		t.Fatal("iso not found")
	}
	if iso.Type != WidgetMenu {
		t.Errorf("iso type = %v, want menu", iso.Type)
	}

	if _, ok := cfg.ChildByName("no-such-widget"); ok {
		t.Error("expected lookup miss for unknown name")
	}
}

func TestSetValue_ChoiceValidation(t *testing.T) {
	cfg := NewMockConfig("Nikon D800E", "Nikon Corporation")
	iso, _ := cfg.ChildByName("iso")

	if err := iso.SetValue("400"); err != nil {
		t.Fatalf("valid choice rejected: %v", err)
	}
	if iso.Value != "400" {
		t.Errorf("value = %q, want 400", iso.Value)
	}

	err := iso.SetValue("31337")
	if err == nil {
		t.Fatal("expected rejection for value outside choices")
	}
	if !errors.Is(err, ErrValueRejected) {
		t.Errorf("error = %v, want ErrValueRejected", err)
	}
	if iso.Value != "400" {
		t.Errorf("rejected write must not change value, got %q", iso.Value)
	}
}

func TestSetValue_ReadOnly(t *testing.T) {
	cfg := NewMockConfig("Nikon D800E", "Nikon Corporation")
	model, _ := cfg.ChildByName("cameramodel")

	if err := model.SetValue("other"); !errors.Is(err, ErrValueRejected) {
		t.Errorf("read-only write error = %v, want ErrValueRejected", err)
	}
}

func TestSetValue_NonLeaf(t *testing.T) {
	cfg := NewMockConfig("Nikon D800E", "Nikon Corporation")
	section, _ := cfg.ChildByName("capturesettings")

	if err := section.SetValue("x"); !errors.Is(err, ErrValueRejected) {
		t.Errorf("section write error = %v, want ErrValueRejected", err)
	}
}

func TestClone_Isolated(t *testing.T) {
	cfg := NewMockConfig("Nikon D800E", "Nikon Corporation")
	cp := cfg.Clone()

	iso, _ := cp.ChildByName("iso")
	if err := iso.SetValue("800"); err != nil {
		t.Fatal(err)
	}

	orig, _ := cfg.ChildByName("iso")
	if orig.Value == "800" {
		t.Error("mutating the clone changed the original tree")
	}
}

func TestWalk_VisitsAll(t *testing.T) {
	cfg := NewMockConfig("Nikon D800E", "Nikon Corporation")

	leaves := 0
	cfg.Walk(func(w *Widget) {
		if w.IsLeaf() {
			leaves++
		}
	})
	if leaves == 0 {
		t.Fatal("walk visited no leaves")
	}
}
