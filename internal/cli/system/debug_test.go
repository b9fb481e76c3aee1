package system

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"

	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service/memory"
)

func TestDebugConfigRedactsSecrets(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"FLEETBOARD_TOKEN":           "tok-123",
		"FLEETBOARD_NOTIFY_AMQP_URL": "amqp://user:pw@broker:5672/",
	})
	ctx, out := newContext(cfg, memory.Seed([]byte("secret")), "")

	if err := (&DebugConfigCmd{}).Run(ctx); err != nil {
		t.Fatalf("DebugConfigCmd.Run() error = %v", err)
	}
	for _, leak := range []string{"tok-123", "user:pw", cfg.Dev.Secret} {
		if strings.Contains(out.String(), leak) {
			t.Errorf("config dump leaked %q", leak)
		}
	}
	if cfg.Token != "tok-123" {
		t.Error("DebugConfigCmd modified the live config")
	}
}

func TestDebugDumps(t *testing.T) {
	cfg := testConfig(t, nil)
	svc := memory.Seed([]byte("secret"))
	if _, err := svc.GenerateSchedule(context.Background(), "2025-06-10", false); err != nil {
		t.Fatal(err)
	}
	st := svc.State()
	tripID := st.Schedules[0].Trips[0].ID

	t.Run("snapshot", func(t *testing.T) {
		ctx, out := newContext(cfg, svc, "")
		if err := (&DebugSnapshotCmd{Date: "2025-06-10"}).Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		var got models.ScheduleSnapshot
		if err := json.Unmarshal([]byte(out.String()), &got); err != nil {
			t.Fatalf("output is not a snapshot: %v", err)
		}
		if got.Summary.TotalTrips != 4 {
			t.Errorf("dumped snapshot trips = %d, want 4", got.Summary.TotalTrips)
		}
	})

	t.Run("week normalizes to saturday", func(t *testing.T) {
		ctx, out := newContext(cfg, svc, "")
		if err := (&DebugWeekCmd{Date: "2025-06-10"}).Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.Contains(out.String(), `"week_start_date": "2025-06-07"`) {
			t.Errorf("week dump = %s", out.String())
		}
	})

	t.Run("trip", func(t *testing.T) {
		id := tripID
		ctx, out := newContext(cfg, svc, "")
		if err := (&DebugTripCmd{ID: id}).Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		var got models.Trip
		if err := json.Unmarshal([]byte(out.String()), &got); err != nil || got.ID != id {
			t.Errorf("dumped trip = %+v, %v, want id %d", got, err, id)
		}
	})

	t.Run("missing trip", func(t *testing.T) {
		ctx, _ := newContext(cfg, svc, "")
		err := (&DebugTripCmd{ID: 999999}).Run(ctx)
		var re *errors.RemoteError
		if !stderrors.As(err, &re) || re.Status != http.StatusNotFound {
			t.Errorf("Run() error = %v, want 404", err)
		}
	})

	t.Run("alerts", func(t *testing.T) {
		ctx, out := newContext(cfg, svc, "")
		if err := (&DebugAlertsCmd{Date: "2025-06-10"}).Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.Contains(out.String(), "Tanker T-03 is in maintenance") {
			t.Errorf("alert dump missing maintenance alert: %s", out.String())
		}
	})
}
