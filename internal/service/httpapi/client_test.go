package httpapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service/memory"
	"github.com/julianstephens/fleetboard/internal/timeline"
)

func newSeededClient(t *testing.T, username, password string) (*Client, *memory.Service) {
	t.Helper()
	svc := memory.Seed([]byte("test-secret"))
	ts := httptest.NewServer(memory.NewHandler(svc))
	t.Cleanup(ts.Close)

	base := ts.URL + "/api/v1"
	tok, err := New(base).Login(context.Background(), models.LoginRequest{Username: username, Password: password})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return New(base, WithToken(tok.AccessToken), WithRetries(3, time.Millisecond)), svc
}

func newRouterClient(t *testing.T, routes func(r chi.Router)) *Client {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/v1", routes)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/api/v1", WithToken("tok"), WithRetries(3, time.Millisecond))
}

func remote(t *testing.T, err error) *errors.RemoteError {
	t.Helper()
	var re *errors.RemoteError
	if !stderrors.As(err, &re) {
		t.Fatalf("error %v (%T) is not a RemoteError", err, err)
	}
	return re
}

func TestLoginAndMe(t *testing.T) {
	c, _ := newSeededClient(t, "dispatch", memory.DispatcherPassword)
	u, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if u.Username != "dispatch" || !u.Role.CanMutate() {
		t.Errorf("Me() = %+v", u)
	}
}

func TestLoginRejected(t *testing.T) {
	svc := memory.Seed([]byte("s"))
	ts := httptest.NewServer(memory.NewHandler(svc))
	defer ts.Close()
	c := New(ts.URL + "/api/v1")

	_, err := c.Login(context.Background(), models.LoginRequest{Username: "dispatch", Password: "nope"})
	re := remote(t, err)
	if re.Status != http.StatusUnauthorized || re.Message != "Invalid username or password" {
		t.Errorf("Login() error = %+v", re)
	}

	if _, err := c.Me(context.Background()); !errors.IsUnauthorized(err) {
		t.Errorf("Me() without token error = %v, want unauthorized", err)
	}
}

func TestGenerateAndSnapshot(t *testing.T) {
	c, _ := newSeededClient(t, "admin", memory.AdminPassword)
	ctx := context.Background()

	res, err := c.GenerateSchedule(ctx, "2025-06-10", false)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	if res.TripsCreated != 4 || res.ScheduleDate != "2025-06-10" {
		t.Errorf("GenerateSchedule() = %+v", res)
	}

	snap, err := c.GetSnapshot(ctx, "2025-06-10")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if !snap.Exists() || len(snap.TripGroups) != 2 || len(snap.Trips()) != 4 {
		t.Errorf("GetSnapshot() = %d groups, %d trips, exists %v", len(snap.TripGroups), len(snap.Trips()), snap.Exists())
	}
	if snap.Summary.TotalVolume != 22000 {
		t.Errorf("summary volume = %d, want 22000", snap.Summary.TotalVolume)
	}

	_, err = c.GenerateSchedule(ctx, "2025-06-10", false)
	if re := remote(t, err); re.Status != http.StatusConflict || !strings.Contains(re.Message, "already exists") {
		t.Errorf("second GenerateSchedule() error = %+v", re)
	}
	if _, err := c.GenerateSchedule(ctx, "2025-06-10", true); err != nil {
		t.Errorf("GenerateSchedule(overwrite) error = %v", err)
	}
}

func TestLockedTripUpdate(t *testing.T) {
	c, _ := newSeededClient(t, "admin", memory.AdminPassword)
	ctx := context.Background()

	if _, err := c.GenerateSchedule(ctx, "2025-06-10", false); err != nil {
		t.Fatal(err)
	}
	snap, _ := c.GetSnapshot(ctx, "2025-06-10")
	id := snap.Trips()[0].ID

	if _, err := c.LockSchedule(ctx, "2025-06-10"); err != nil {
		t.Fatalf("LockSchedule() error = %v", err)
	}
	vol := 100
	_, err := c.UpdateTrip(ctx, id, models.TripPatch{Volume: &vol})
	if re := remote(t, err); re.Status != http.StatusBadRequest {
		t.Errorf("UpdateTrip(locked) error = %+v", re)
	}

	if _, err := c.UnlockSchedule(ctx, "2025-06-10"); err != nil {
		t.Fatal(err)
	}
	trip, err := c.UpdateTrip(ctx, id, models.TripPatch{Volume: &vol})
	if err != nil || trip.Volume != 100 {
		t.Errorf("UpdateTrip() = %+v, %v", trip, err)
	}

	if err := c.DeleteTrip(ctx, id); err != nil {
		t.Errorf("DeleteTrip() error = %v", err)
	}
	if _, err := c.GetTrip(ctx, id); !errors.IsNotFound(err) {
		t.Errorf("GetTrip(deleted) error = %v, want not found", err)
	}

	if _, err := c.LockSchedule(ctx, "2025-06-12"); !errors.IsNotFound(err) {
		t.Errorf("LockSchedule(no schedule) error = %v, want not found", err)
	}
}

func TestBulkDriverDaysIsOneRequest(t *testing.T) {
	c, svc := newSeededClient(t, "dispatch", memory.DispatcherPassword)
	ctx := context.Background()

	res, err := c.BulkSetDriverDayStatus(ctx, 17, models.BulkDriverDayRequest{
		Dates:  []string{"2025-06-10", "2025-06-11"},
		Status: models.DriverHoliday,
	})
	if err != nil {
		t.Fatalf("BulkSetDriverDayStatus() error = %v", err)
	}
	if res.Created != 2 {
		t.Errorf("BulkSetDriverDayStatus() = %+v", res)
	}
	if n := svc.Calls("BulkSetDriverDayStatus"); n != 1 {
		t.Errorf("bulk calls = %d, want 1", n)
	}

	days, err := c.GetDriverDays(ctx, 17, "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0].Status != models.DriverHoliday || days[1].Date != "2025-06-11" {
		t.Errorf("GetDriverDays() = %+v", days)
	}

	all, err := c.GetAllDriverDays(ctx, "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatal(err)
	}
	if got := all[17].Days(17); len(got) != 2 {
		t.Errorf("GetAllDriverDays()[17] = %+v", all[17])
	}
	if _, ok := all[20]; ok {
		t.Error("inactive driver listed in all-driver calendar")
	}
}

func TestAssignmentsRoundTrip(t *testing.T) {
	c, _ := newSeededClient(t, "dispatch", memory.DispatcherPassword)
	ctx := context.Background()

	a, err := c.CreateAssignment(ctx, models.AssignmentRequest{TripGroupID: 1, DriverID: 17, WeekStart: "2025-06-07"})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}
	week, err := c.GetWeeklyAssignments(ctx, "2025-06-07")
	if err != nil {
		t.Fatal(err)
	}
	if len(week.Assignments) != 1 || len(week.UnassignedGroups) != 3 || len(week.AvailableDrivers) != 3 {
		t.Errorf("GetWeeklyAssignments() = %d assigned, %d unassigned, %d drivers",
			len(week.Assignments), len(week.UnassignedGroups), len(week.AvailableDrivers))
	}

	preview, err := c.AutoAssign(ctx, models.AutoAssignRequest{WeekStart: "2025-06-07", MinRestHours: 12, DryRun: true})
	if err != nil || preview.AssignmentsCreated != 3 {
		t.Fatalf("AutoAssign(dry run) = %+v, %v", preview, err)
	}
	week, _ = c.GetWeeklyAssignments(ctx, "2025-06-07")
	if len(week.Assignments) != 1 {
		t.Errorf("dry run persisted assignments: %d", len(week.Assignments))
	}

	if err := c.DeleteAssignment(ctx, a.ID); err != nil {
		t.Errorf("DeleteAssignment() error = %v", err)
	}
	msg, err := c.ClearWeekAssignments(ctx, "2025-06-07")
	if err != nil || !strings.Contains(msg.Message, "Cleared 0") {
		t.Errorf("ClearWeekAssignments() = %+v, %v", msg, err)
	}
}

func TestCompatibleTankersAndAlerts(t *testing.T) {
	c, _ := newSeededClient(t, "viewer", memory.ViewerPassword)
	ctx := context.Background()

	tankers, err := c.GetCompatibleTankers(ctx, 1, nil)
	if err != nil {
		t.Fatalf("GetCompatibleTankers() error = %v", err)
	}
	if len(tankers) != 2 {
		t.Errorf("GetCompatibleTankers() = %d tankers, want the two active ones", len(tankers))
	}

	feed, err := c.GetAlerts(ctx, "2025-06-10")
	if err != nil {
		t.Fatalf("GetAlerts() error = %v", err)
	}
	if feed.TotalAlerts != len(feed.Alerts) || feed.TotalAlerts == 0 {
		t.Errorf("GetAlerts() = %+v", feed)
	}
}

func TestListDriversFollowsPages(t *testing.T) {
	var calls int32
	c := newRouterClient(t, func(r chi.Router) {
		r.Get("/drivers", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			if r.URL.Query().Get("is_active") != "true" {
				http.Error(w, `{"detail":"missing filter"}`, http.StatusBadRequest)
				return
			}
			page := r.URL.Query().Get("page")
			fmt.Fprintf(w, `{"items":[{"id":%s1,"name":"Driver %s"}],"total":2,"page":%s,"per_page":1,"pages":2}`, page, page, page)
		})
	})

	drivers, err := c.ListDrivers(context.Background(), true)
	if err != nil {
		t.Fatalf("ListDrivers() error = %v", err)
	}
	if len(drivers) != 2 || drivers[0].ID != 11 || drivers[1].ID != 21 || calls != 2 {
		t.Errorf("ListDrivers() = %+v after %d calls", drivers, calls)
	}
}

func TestReadRetriesTransientFailures(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	ids := map[string]bool{}
	c := newRouterClient(t, func(r chi.Router) {
		r.Get("/dashboard/alerts", func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			ids[r.Header.Get(constants.RequestIDHeader)] = true
			mu.Unlock()
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"date":"2025-06-10","total_alerts":0,"alerts":[]}`)
		})
	})

	feed, err := c.GetAlerts(context.Background(), "2025-06-10")
	if err != nil {
		t.Fatalf("GetAlerts() error = %v", err)
	}
	if feed.Date != "2025-06-10" || calls != 3 {
		t.Errorf("GetAlerts() = %+v after %d calls, want success on the third", feed, calls)
	}
	if len(ids) != 1 {
		t.Errorf("retries used %d request ids, want one per logical call", len(ids))
	}
}

func TestReadRetryGivesUp(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int32
	}{
		{name: "bad gateway retried", status: http.StatusBadGateway, want: 4},
		{name: "too many requests retried", status: http.StatusTooManyRequests, want: 4},
		{name: "not found not retried", status: http.StatusNotFound, want: 1},
		{name: "unprocessable not retried", status: http.StatusUnprocessableEntity, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			c := newRouterClient(t, func(r chi.Router) {
				r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&calls, 1)
					w.WriteHeader(tt.status)
				})
			})
			_, err := c.Me(context.Background())
			if re := remote(t, err); re.Status != tt.status {
				t.Errorf("Me() status = %d, want %d", re.Status, tt.status)
			}
			if calls != tt.want {
				t.Errorf("attempts = %d, want %d", calls, tt.want)
			}
		})
	}
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls int32
	c := newRouterClient(t, func(r chi.Router) {
		r.Post("/schedules/{date}/lock", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	if _, err := c.LockSchedule(context.Background(), "2025-06-10"); err == nil {
		t.Fatal("LockSchedule() succeeded against a failing server")
	}
	if calls != 1 {
		t.Errorf("write attempts = %d, want 1", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	c := newRouterClient(t, func(r chi.Router) {
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	c.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Me(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Me() error = %v, want deadline exceeded during backoff", err)
	}
}

func TestRemoteErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{name: "detail string", status: 400, body: `{"detail":"Schedule for 2025-06-10 is locked"}`, wantMsg: "Schedule for 2025-06-10 is locked"},
		{name: "detail list", status: 422, body: `{"detail":[{"loc":["body","volume"],"msg":"must be positive"}]}`, wantMsg: "volume: must be positive"},
		{name: "error envelope", status: 409, body: `{"error":"conflict","message":"Trip group already assigned","code":"ASSIGNMENT_EXISTS"}`, wantMsg: "Trip group already assigned", wantCode: "ASSIGNMENT_EXISTS"},
		{name: "error only", status: 404, body: `{"error":"Trip not found"}`, wantMsg: "Trip not found"},
		{name: "plain text", status: 404, body: "nope", wantMsg: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRouterClient(t, func(r chi.Router) {
				r.Get("/schedules/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set(constants.RequestIDHeader, "srv-1")
					w.WriteHeader(tt.status)
					fmt.Fprint(w, tt.body)
				})
			})
			_, err := c.GetTrip(context.Background(), 5)
			re := remote(t, err)
			if re.Message != tt.wantMsg || re.Code != tt.wantCode || re.Status != tt.status {
				t.Errorf("RemoteError = %+v, want message %q code %q", re, tt.wantMsg, tt.wantCode)
			}
			if re.RequestID != "srv-1" {
				t.Errorf("RequestID = %q, want the server's", re.RequestID)
			}
		})
	}
}

func TestMalformedPayloadIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing date", body: `{"trip_groups":[]}`},
		{name: "wrong type", body: `{"schedule_date":"2025-06-10","trip_groups":"x"}`},
		{name: "group without name", body: `{"schedule_date":"2025-06-10","trip_groups":[{"id":1,"trips":[]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRouterClient(t, func(r chi.Router) {
				r.Get("/schedules/{date}/trip-groups", func(w http.ResponseWriter, r *http.Request) {
					fmt.Fprint(w, tt.body)
				})
			})
			if _, err := c.GetSnapshot(context.Background(), "2025-06-10"); !errors.IsValidation(err) {
				t.Errorf("GetSnapshot() error = %v, want validation error", err)
			}
		})
	}
}

func TestMalformedTripIsValidationError(t *testing.T) {
	c := newRouterClient(t, func(r chi.Router) {
		r.Get("/schedules/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":3,"customer":{"id":1}}`)
		})
	})
	if _, err := c.GetTrip(context.Background(), 3); !errors.IsValidation(err) {
		t.Errorf("GetTrip() error = %v, want validation error", err)
	}
}

func TestSnapshotKeepsMalformedTrip(t *testing.T) {
	const body = `{
		"id": 7, "schedule_date": "2025-06-10", "day_of_week": 3, "is_locked": false,
		"trip_groups": [],
		"unassigned_trips": {"trips": [
			{"id": 1, "customer": {"id": 10, "code": "C1"}, "tanker": {"id": 1, "name": "T-01"},
			 "start_time": "08:00:00", "end_time": "09:00:00", "volume": 5000, "status": "unassigned"},
			{"id": 2, "customer": null, "tanker": {"id": 1, "name": "T-01"},
			 "start_time": "bogus", "end_time": "10:00:00", "volume": 3000},
			{"id": 3, "customer": {"id": 11, "code": "C2"}, "tanker": {"id": 1, "name": "T-01"},
			 "start_time": "12:00:00", "end_time": "13:00:00", "volume": 4000, "status": "unassigned"}
		]}
	}`
	c := newRouterClient(t, func(r chi.Router) {
		r.Get("/schedules/{date}/trip-groups", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})
	})

	snap, err := c.GetSnapshot(context.Background(), "2025-06-10")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if got := len(snap.Trips()); got != 3 {
		t.Fatalf("GetSnapshot() trips = %d, want 3", got)
	}

	view := dispatch.Layout(snap, aggregator.ByTanker, timeline.DefaultWindow(), true)
	cells := map[int64]dispatch.TripCell{}
	for _, row := range view.Rows {
		for _, cell := range row.Cells {
			cells[cell.Trip.ID] = cell
		}
	}
	if len(cells) != 3 {
		t.Fatalf("Layout() cells = %d, want 3", len(cells))
	}
	if bad := cells[2]; bad.Box.Valid || bad.Treatment.Label != "unknown" {
		t.Errorf("malformed trip cell = box %+v, treatment %q, want invalid box and unknown treatment", bad.Box, bad.Treatment.Label)
	}
	for _, id := range []int64{1, 3} {
		if !cells[id].Box.Valid {
			t.Errorf("trip %d box = %+v, want a placed box", id, cells[id].Box)
		}
	}
	if got := view.Board.Summary.TotalVolume; got != 12000 {
		t.Errorf("Layout() total volume = %d, want 12000", got)
	}
}

func TestUnreadableWriteResponseStillRefreshes(t *testing.T) {
	const trip = `{"id": 5, "customer": {"id": 10, "code": "C1"}, "tanker": {"id": 1, "name": "T-01"},
		"start_time": "08:00:00", "end_time": "09:00:00", "volume": 5000, "status": "unassigned", "notes": %q}`
	tests := []struct {
		name          string
		status        int
		body          string
		wantCommitted bool
		wantRefetch   bool
	}{
		{name: "truncated body", status: http.StatusOK, body: `{"id":`, wantCommitted: true, wantRefetch: true},
		{name: "body fails validation", status: http.StatusOK, body: `{"id":5}`, wantCommitted: true, wantRefetch: true},
		{name: "rejected", status: http.StatusUnprocessableEntity, body: `{"detail":"bad notes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gets int32
			var mu sync.Mutex
			notes := "before"
			c := newRouterClient(t, func(r chi.Router) {
				r.Get("/schedules/{date}/trip-groups", func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&gets, 1)
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(w, `{"id": 7, "schedule_date": "2025-06-10", "day_of_week": 1, "is_locked": false,
						"trip_groups": [], "unassigned_trips": {"trips": [`+trip+`]}}`, notes)
				})
				r.Put("/schedules/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
					if tt.status < 300 {
						mu.Lock()
						notes = "after"
						mu.Unlock()
					}
					w.WriteHeader(tt.status)
					fmt.Fprint(w, tt.body)
				})
			})
			e := dispatch.New(c)
			ctx := context.Background()
			if _, err := e.Snapshot(ctx, "2025-06-10"); err != nil {
				t.Fatal(err)
			}

			after := "after"
			_, err := e.UpdateTrip(ctx, "2025-06-10", 5, models.TripPatch{Notes: &after})
			if err == nil {
				t.Fatal("UpdateTrip() error = nil, want an error")
			}
			if got := errors.IsCommitted(err); got != tt.wantCommitted {
				t.Errorf("IsCommitted(%v) = %v, want %v", err, got, tt.wantCommitted)
			}

			snap, err := e.Snapshot(ctx, "2025-06-10")
			if err != nil {
				t.Fatal(err)
			}
			wantGets := int32(1)
			if tt.wantRefetch {
				wantGets = 2
			}
			if got := atomic.LoadInt32(&gets); got != wantGets {
				t.Errorf("snapshot fetches = %d, want %d", got, wantGets)
			}
			got, _ := snap.FindTrip(5)
			if tt.wantRefetch && (got.Notes == nil || *got.Notes != "after") {
				t.Errorf("trip notes after refetch = %v, want %q", got.Notes, "after")
			}
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	var auth, reqID, ctype string
	c := newRouterClient(t, func(r chi.Router) {
		r.Put("/schedules/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			reqID = r.Header.Get(constants.RequestIDHeader)
			ctype = r.Header.Get("Content-Type")
			fmt.Fprintf(w, `{"id":%s,"customer":{"id":1},"status":"scheduled","volume":10}`, chi.URLParam(r, "id"))
		})
	})
	vol := 10
	trip, err := c.UpdateTrip(context.Background(), 42, models.TripPatch{Volume: &vol})
	if err != nil || trip.ID != 42 {
		t.Fatalf("UpdateTrip() = %+v, %v", trip, err)
	}
	if auth != "Bearer tok" || reqID == "" || ctype != "application/json" {
		t.Errorf("headers: auth %q, request id %q, content type %q", auth, reqID, ctype)
	}
}

func TestHealth(t *testing.T) {
	svc := memory.Seed([]byte("s"))
	ts := httptest.NewServer(memory.NewHandler(svc))
	defer ts.Close()

	h, err := New(ts.URL + "/api/v1/").Health(context.Background())
	if err != nil || h.Status != "healthy" {
		t.Errorf("Health() = %+v, %v", h, err)
	}
}
