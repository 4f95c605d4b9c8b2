package instance

import "testing"

func TestGetIDPrefersExplicitInstanceID(t *testing.T) {
	t.Setenv("TOMBAMENTO_INSTANCE_ID", "api-2")
	t.Setenv("DYNO", "web.1")
	if got := GetID(); got != "api-2" {
		t.Fatalf("expected api-2, got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("TOMBAMENTO_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
	t.Setenv("DYNO", "worker.3")
	if got := GetID(); got != "worker.3" {
		t.Fatalf("expected worker.3, got %q", got)
	}
}
