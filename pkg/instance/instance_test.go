package instance

import "testing"

func TestIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.2")
	t.Setenv("HOSTNAME", "box-1")
	if got := ID(); got != "web.2" {
		t.Fatalf("expected dyno name, got %q", got)
	}
}

func TestIDFallsBackToHostnameThenLocal(t *testing.T) {
	t.Setenv("DYNO", " ")
	t.Setenv("HOSTNAME", "box-1")
	if got := ID(); got != "box-1" {
		t.Fatalf("expected hostname, got %q", got)
	}
	t.Setenv("HOSTNAME", "")
	if got := ID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
