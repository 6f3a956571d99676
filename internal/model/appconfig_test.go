package model

import "testing"

func TestDefaultAppConfigMatchesDefaultSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	defaults := DefaultSettings()

	if cfg.DefaultStockLength != defaults.StockLength {
		t.Errorf("StockLength mismatch: config=%d settings=%d", cfg.DefaultStockLength, defaults.StockLength)
	}
	if cfg.DefaultDemandPolicy != string(defaults.DemandPolicy) {
		t.Errorf("DemandPolicy mismatch: config=%s settings=%s", cfg.DefaultDemandPolicy, defaults.DemandPolicy)
	}
	if cfg.DefaultSolveTimeoutSec != defaults.SolveTimeoutSec {
		t.Errorf("SolveTimeoutSec mismatch: config=%f settings=%f", cfg.DefaultSolveTimeoutSec, defaults.SolveTimeoutSec)
	}
	if cfg.DefaultSymmetryBreaking != defaults.SymmetryBreaking {
		t.Errorf("SymmetryBreaking mismatch: config=%v settings=%v", cfg.DefaultSymmetryBreaking, defaults.SymmetryBreaking)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen address :8080, got %s", cfg.ListenAddr)
	}
	if cfg.RecentJobs == nil {
		t.Error("RecentJobs should not be nil")
	}
}

func TestApplyToSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.DefaultStockLength = 1570
	cfg.DefaultDemandPolicy = string(DemandExact)
	cfg.DefaultParallel = 4

	s := DefaultSettings()
	s.MaxBars = 17
	cfg.ApplyToSettings(&s)

	if s.StockLength != 1570 {
		t.Errorf("expected StockLength=1570, got %d", s.StockLength)
	}
	if s.DemandPolicy != DemandExact {
		t.Errorf("expected exact policy, got %s", s.DemandPolicy)
	}
	if s.Parallel != 4 {
		t.Errorf("expected Parallel=4, got %d", s.Parallel)
	}
	if s.MaxBars != 17 {
		t.Errorf("expected per-job MaxBars to survive, got %d", s.MaxBars)
	}
}
