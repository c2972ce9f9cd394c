package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/example/roadbuddy/internal/models"
)

func TestPrintRides(t *testing.T) {
	var buf bytes.Buffer
	list := []models.Ride{
		{ID: "r1", From: "Boston", To: "Providence", Date: "2026-11-02", DepartureTime: "08:30", Cost: 12.5, MaxPassengers: 3, CurrentPassengers: []string{"u1"}, OwnerName: "Dana"},
	}
	if err := printRides(&buf, list); err != nil {
		t.Fatalf("print: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
	for _, want := range []string{"Boston", "$12.50", "2/3", "Dana"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("row %q missing %q", lines[1], want)
		}
	}

	buf.Reset()
	_ = printRides(&buf, nil)
	if !strings.Contains(buf.String(), "(no rides)") {
		t.Fatalf("expected empty marker, got %q", buf.String())
	}
}

func TestPrintRoute(t *testing.T) {
	var buf bytes.Buffer
	ride := models.Ride{ID: "r1", From: "Boston", To: "Providence"}
	route := models.Route{DistanceMeters: 81234, DurationSeconds: 3700, Points: make([]models.Coord, 42)}
	if err := printRoute(&buf, ride, route); err != nil {
		t.Fatalf("print: %v", err)
	}
	for _, want := range []string{"81.2 km", "1h2m0s", "42"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("route summary missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunRequiresCredentials(t *testing.T) {
	if err := run("", "", "", "", "", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}

func TestPasswordOrFallsBackToEnv(t *testing.T) {
	t.Setenv("ROADBUDDY_PASSWORD", "from-env")
	if got := passwordOr(""); got != "from-env" {
		t.Fatalf("expected env password, got %q", got)
	}
	if got := passwordOr("from-flag"); got != "from-flag" {
		t.Fatalf("flag should win, got %q", got)
	}
}
