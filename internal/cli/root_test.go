package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/config"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/service/memory"
	"github.com/julianstephens/fleetboard/internal/utils"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	cfg, err := config.FromMap(map[string]string{"FLEETBOARD_TIMEZONE": "UTC"})
	if err != nil {
		t.Fatalf("config.FromMap() error = %v", err)
	}
	return &Context{Config: cfg, Out: &strings.Builder{}}
}

func TestResolveDate(t *testing.T) {
	ctx := testContext(t)
	today := ctx.Today()
	tomorrow, _ := utils.AddDays(today, 1)
	yesterday, _ := utils.AddDays(today, -1)
	plus3, _ := utils.AddDays(today, 3)

	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"", today, false},
		{"today", today, false},
		{"Tomorrow", tomorrow, false},
		{"yesterday", yesterday, false},
		{"+3", plus3, false},
		{"-1", yesterday, false},
		{"2025-06-10", "2025-06-10", false},
		{" 2025-06-10 ", "2025-06-10", false},
		{"2025-6-10", "", true},
		{"+x", "", true},
		{"next week", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ctx.ResolveDate(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveDate(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if err != nil && !errors.IsValidation(err) {
				t.Errorf("ResolveDate(%q) error = %v, want validation error", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("ResolveDate(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestResolveDates(t *testing.T) {
	ctx := testContext(t)
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{"single", []string{"2025-06-10"}, []string{"2025-06-10"}, false},
		{"comma list", []string{"2025-06-10,2025-06-12"}, []string{"2025-06-10", "2025-06-12"}, false},
		{"range", []string{"2025-06-10..2025-06-12"}, []string{"2025-06-10", "2025-06-11", "2025-06-12"}, false},
		{"month boundary", []string{"2025-06-30..2025-07-01"}, []string{"2025-06-30", "2025-07-01"}, false},
		{"mixed args", []string{"2025-06-10", "2025-06-14.."+"2025-06-15"}, []string{"2025-06-10", "2025-06-14", "2025-06-15"}, false},
		{"reversed range", []string{"2025-06-12..2025-06-10"}, nil, true},
		{"bad date", []string{"2025-06-10,nope"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctx.ResolveDates(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveDates() error = %v, wantErr %v", err, tt.wantErr)
			}
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("ResolveDates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionalHelpers(t *testing.T) {
	if OptionalID(0) != nil {
		t.Error("OptionalID(0) != nil")
	}
	if id := OptionalID(7); id == nil || *id != 7 {
		t.Errorf("OptionalID(7) = %v", id)
	}
	if OptionalString("") != nil {
		t.Error(`OptionalString("") != nil`)
	}
}

func TestWriteBoard(t *testing.T) {
	svc := memory.Seed([]byte("secret"))
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC) })
	e := dispatch.New(svc)
	bg := context.Background()
	if _, err := e.GenerateSchedule(bg, "2025-06-10", false); err != nil {
		t.Fatal(err)
	}
	view, err := e.Board(bg, "2025-06-10", aggregator.ByTanker)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	WriteBoard(&b, view, true)
	out := b.String()
	for _, want := range []string{"2025-06-10 (Tuesday) - open, grouped by tanker", "4 trips, 22000 L", "T-01", "T-02", "Unassigned", "08:00-10:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteBoard() output missing %q:\n%s", want, out)
		}
	}

	for _, row := range view.Rows {
		bar := Bar(row, TimelineWidth)
		if n := len([]rune(bar)); n != TimelineWidth {
			t.Errorf("Bar(%s) width = %d, want %d", row.Label, n, TimelineWidth)
		}
		if strings.Count(bar, "·") == TimelineWidth {
			t.Errorf("Bar(%s) shows no trips", row.Label)
		}
	}
	if r := Ruler(view, TimelineWidth); !strings.HasPrefix(r, "06") || !strings.Contains(r, "14") {
		t.Errorf("Ruler() = %q", r)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Tuesday North", 20, "Tuesday North"},
		{"Tuesday North", 8, "Tuesday…"},
		{"ab", 1, "a"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
