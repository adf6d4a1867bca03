package storage

import (
	"path/filepath"
	"testing"
)

func TestFileRecorderAppendLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	r, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := r.AppendEvent(NewEvent("u1", KindText, 42, "gpt-4o-mini", false)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.AppendEvent(NewEvent("u1", KindImage, 10, "", false)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.AppendEvent(NewEvent("u2", KindText, 5, "", true)); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := r.LoadEvents()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].UserID != "u1" || events[0].Kind != KindText || events[0].PromptChars != 42 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}

	sum := Summarize(events)
	if s := sum["u1"]; s == nil || s.Text != 1 || s.Images != 1 || s.Failures != 0 {
		t.Fatalf("bad u1 summary: %+v", sum["u1"])
	}
	if s := sum["u2"]; s == nil || s.Failures != 1 || s.Text != 0 {
		t.Fatalf("bad u2 summary: %+v", sum["u2"])
	}
}
