package main

import (
	"testing"
	"time"
)

func TestSummaryIntervalOrDefault(t *testing.T) {
	got, err := summaryIntervalOrDefault("")
	if err != nil {
		t.Fatalf("summaryIntervalOrDefault: %v", err)
	}
	if got != 10*time.Second {
		t.Errorf("default = %v, want 10s", got)
	}
}

func TestSummaryIntervalOrDefaultParsesValue(t *testing.T) {
	got, err := summaryIntervalOrDefault("30s")
	if err != nil {
		t.Fatalf("summaryIntervalOrDefault: %v", err)
	}
	if got != 30*time.Second {
		t.Errorf("got %v, want 30s", got)
	}
}

func TestSummaryIntervalOrDefaultRejectsGarbage(t *testing.T) {
	if _, err := summaryIntervalOrDefault("not-a-duration"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
