package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/BarCut/internal/model"
)

func TestSaveAndLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs", "frame"+JobExtension)

	job := model.NewJob()
	job.Name = "Frame"
	job.Pieces = []model.PieceType{
		model.NewPieceType("Rail", 1200, 4),
		model.NewPieceType("Post", 800, 2),
	}
	job.Settings.StockLength = 6000
	job.Settings.MaxBars = 5

	if err := SaveJob(path, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	loaded, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}
	if loaded.Name != "Frame" {
		t.Errorf("expected name Frame, got %q", loaded.Name)
	}
	if len(loaded.Pieces) != 2 || loaded.Pieces[0].ID != job.Pieces[0].ID {
		t.Errorf("pieces not preserved: %+v", loaded.Pieces)
	}
	if loaded.Settings.MaxBars != 5 {
		t.Errorf("expected MaxBars=5, got %d", loaded.Settings.MaxBars)
	}
}

func TestLoadJobFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.json")
	data := []byte(`{"pieces":[{"length":100,"quantity":97},{"length":70,"quantity":16}],"settings":{"stock_length":1570}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	job, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}
	if job.Name != "Untitled" {
		t.Errorf("expected default name, got %q", job.Name)
	}
	if job.Settings.StockLength != 1570 {
		t.Errorf("expected stock length 1570, got %d", job.Settings.StockLength)
	}
	if job.Settings.DemandPolicy != model.DemandAtLeast {
		t.Errorf("expected default policy, got %q", job.Settings.DemandPolicy)
	}
	for i, p := range job.Pieces {
		if p.ID == "" {
			t.Errorf("piece %d has no ID", i)
		}
	}
}

func TestLoadJobErrors(t *testing.T) {
	if _, err := LoadJob(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJob(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
