package runid

import (
	"testing"
	"time"
)

var (
	start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
)

func TestForRun(t *testing.T) {
	got := ForRun("MOMENTUM_90d_exclneg", start, end, "100000", "monthly", "USD")
	if len(got) != 64 {
		t.Errorf("ForRun() length = %d, want 64", len(got))
	}

	// Verify determinism: same inputs should produce same output
	got2 := ForRun("MOMENTUM_90d_exclneg", start, end, "100000", "monthly", "USD")
	if got != got2 {
		t.Errorf("ForRun() not deterministic: %s != %s", got, got2)
	}
}

func TestForRun_DifferentInputs(t *testing.T) {
	base := ForRun("MOMENTUM_90d", start, end, "100000", "monthly", "USD")

	if base == ForRun("RISK_PARITY_60d", start, end, "100000", "monthly", "USD") {
		t.Error("Different strategy should produce different hash")
	}
	if base == ForRun("MOMENTUM_90d", start.AddDate(0, 1, 0), end, "100000", "monthly", "USD") {
		t.Error("Different start date should produce different hash")
	}
	if base == ForRun("MOMENTUM_90d", start, end, "50000", "monthly", "USD") {
		t.Error("Different capital should produce different hash")
	}
	if base == ForRun("MOMENTUM_90d", start, end, "100000", "quarterly", "USD") {
		t.Error("Different frequency should produce different hash")
	}
	if base == ForRun("MOMENTUM_90d", start, end, "100000", "monthly", "EUR") {
		t.Error("Different base currency should produce different hash")
	}
}

func TestForTrade(t *testing.T) {
	runID := ForRun("MOMENTUM_90d", start, end, "100000", "monthly", "USD")
	date := time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)

	got := ForTrade(runID, "SPY", date, "12.5")
	if len(got) != 64 {
		t.Errorf("ForTrade() length = %d, want 64", len(got))
	}
	if got != ForTrade(runID, "SPY", date, "12.5") {
		t.Error("ForTrade() not deterministic")
	}
	if got == ForTrade(runID, "AGG", date, "12.5") {
		t.Error("Different symbol should produce different hash")
	}
	if got == ForTrade(runID, "SPY", date.AddDate(0, 0, 1), "12.5") {
		t.Error("Different date should produce different hash")
	}
	if got == ForTrade(runID, "SPY", date, "-12.5") {
		t.Error("Different quantity should produce different hash")
	}
}
