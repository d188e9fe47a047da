package db

import (
	"context"
	"errors"
	"testing"
)

func TestRunChecks_AllPass(t *testing.T) {
	checks := []Check{
		{Name: "sessions", Probe: func(context.Context) error { return nil }},
	}
	results, healthy := runChecks(context.Background(), checks)
	if !healthy {
		t.Error("expected healthy")
	}
	if results["sessions"] != "ok" {
		t.Errorf("expected ok, got %q", results["sessions"])
	}
}

func TestRunChecks_Failure(t *testing.T) {
	checks := []Check{
		{Name: "sessions", Probe: func(context.Context) error { return errors.New("dial tcp: refused") }},
		{Name: "other", Probe: func(context.Context) error { return nil }},
	}
	results, healthy := runChecks(context.Background(), checks)
	if healthy {
		t.Error("expected unhealthy when a check fails")
	}
	if results["sessions"] != "dial tcp: refused" {
		t.Errorf("unexpected sessions result %q", results["sessions"])
	}
	if results["other"] != "ok" {
		t.Errorf("unexpected other result %q", results["other"])
	}
}

func TestRunChecks_Empty(t *testing.T) {
	results, healthy := runChecks(context.Background(), nil)
	if !healthy || len(results) != 0 {
		t.Errorf("expected healthy with no results, got %v %v", healthy, results)
	}
}
