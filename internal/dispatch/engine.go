// Package dispatch is the engine behind every fleetboard view. It reads the
// Schedule Service through the cache coordinator, runs writes as two-phase
// mutations and keeps track of which days are locked.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/auth"
	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/logger"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service"
	"github.com/julianstephens/fleetboard/internal/timeline"
	"github.com/julianstephens/fleetboard/internal/utils"
	"github.com/julianstephens/fleetboard/internal/validation"
)

type Engine struct {
	svc      service.ScheduleService
	cache    *cache.Coordinator
	window   timeline.Window
	validate *validation.Validator
	token    string

	mu      sync.Mutex
	locks   map[string]bool
	session auth.Session
}

type Option func(*Engine)

// WithCoordinator shares an existing cache coordinator
func WithCoordinator(c *cache.Coordinator) Option {
	return func(e *Engine) { e.cache = c }
}

// WithWindow sets the timeline window boards are laid out on
func WithWindow(w timeline.Window) Option {
	return func(e *Engine) { e.window = w }
}

// WithToken sets the access token the session is read from
func WithToken(token string) Option {
	return func(e *Engine) { e.token = token }
}

func New(svc service.ScheduleService, opts ...Option) *Engine {
	e := &Engine{
		svc:      svc,
		window:   timeline.DefaultWindow(),
		validate: validation.Default(),
		locks:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.New()
	}
	if s, err := auth.FromToken(e.token); err == nil {
		e.session = s
	}
	return e
}

// Cache returns the engine's coordinator for view retention
func (e *Engine) Cache() *cache.Coordinator { return e.cache }

// Window returns the timeline window
func (e *Engine) Window() timeline.Window { return e.window }

// Session returns who the engine is acting as, as far as it knows
func (e *Engine) Session() auth.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// CanMutate reports whether the current session may edit schedules. It only
// gates what the UI offers; the service enforces roles itself.
func (e *Engine) CanMutate() bool { return e.Session().CanMutate() }

// Whoami asks the service who the token belongs to and refreshes the session.
func (e *Engine) Whoami(ctx context.Context) (auth.Session, error) {
	u, err := cache.Read(ctx, e.cache, MeKey(), e.svc.Me)
	if err != nil {
		return auth.Session{}, err
	}
	s := auth.FromUser(e.token, u)
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
	return s, nil
}

// Locked reports the last known lock flag of date. known is false until a
// snapshot or lock result for the date has been seen.
func (e *Engine) Locked(date string) (locked, known bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	locked, known = e.locks[date]
	return locked, known
}

func (e *Engine) setLocked(date string, locked bool) {
	e.mu.Lock()
	e.locks[date] = locked
	e.mu.Unlock()
}

// ensureUnlocked fails with ErrScheduleLocked when date is known to be locked.
// An unknown date is learned through a snapshot read first.
func (e *Engine) ensureUnlocked(ctx context.Context, date string) error {
	locked, known := e.Locked(date)
	if !known {
		snap, err := e.Snapshot(ctx, date)
		if err != nil {
			return fmt.Errorf("check lock for %s: %w", date, err)
		}
		locked = snap.IsLocked
	}
	if locked {
		return fmt.Errorf("%w: %s", errors.ErrScheduleLocked, date)
	}
	return nil
}

// Snapshot returns the grouped schedule of date
func (e *Engine) Snapshot(ctx context.Context, date string) (models.ScheduleSnapshot, error) {
	if err := validation.Date("date", date); err != nil {
		return models.ScheduleSnapshot{}, err
	}
	snap, err := cache.Read(ctx, e.cache, ScheduleKey(date), func(ctx context.Context) (models.ScheduleSnapshot, error) {
		return e.svc.GetSnapshot(ctx, date)
	})
	if err != nil {
		return snap, err
	}
	e.setLocked(date, snap.IsLocked)
	return snap, nil
}

func (e *Engine) Trip(ctx context.Context, id int64) (models.Trip, error) {
	if id <= 0 {
		return models.Trip{}, errors.Invalid("id", "must be positive")
	}
	return cache.Read(ctx, e.cache, TripKey(id), func(ctx context.Context) (models.Trip, error) {
		return e.svc.GetTrip(ctx, id)
	})
}

// Drivers returns the active drivers
func (e *Engine) Drivers(ctx context.Context) ([]models.Driver, error) {
	return cache.Read(ctx, e.cache, DriversKey(), func(ctx context.Context) ([]models.Driver, error) {
		return e.svc.ListDrivers(ctx, true)
	})
}

func (e *Engine) DriverDays(ctx context.Context, driverID int64, from, to string) ([]models.DriverDay, error) {
	if err := validation.DateRange(from, to); err != nil {
		return nil, err
	}
	return cache.Read(ctx, e.cache, DriverDaysKey(driverID, from, to), func(ctx context.Context) ([]models.DriverDay, error) {
		return e.svc.GetDriverDays(ctx, driverID, from, to)
	})
}

// DriverDayStatus returns the driver's status on date, or "" when unset.
func (e *Engine) DriverDayStatus(ctx context.Context, driverID int64, date string) (models.DriverDayStatus, error) {
	days, err := e.DriverDays(ctx, driverID, date, date)
	if err != nil {
		return "", err
	}
	for _, d := range days {
		if d.Date == date {
			return d.Status, nil
		}
	}
	return "", nil
}

func (e *Engine) AllDriverDays(ctx context.Context, from, to string) (map[int64]models.DriverCalendar, error) {
	if err := validation.DateRange(from, to); err != nil {
		return nil, err
	}
	return cache.Read(ctx, e.cache, AllDriverDaysKey(from, to), func(ctx context.Context) (map[int64]models.DriverCalendar, error) {
		return e.svc.GetAllDriverDays(ctx, from, to)
	})
}

func monthRange(year int, month time.Month) (from, to string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return utils.FormatDate(first), utils.FormatDate(first.AddDate(0, 1, -1))
}

// DriverMonth lays one driver's month out as a calendar row
func (e *Engine) DriverMonth(ctx context.Context, driverID int64, year int, month time.Month) (aggregator.DriverMonth, error) {
	from, to := monthRange(year, month)
	days, err := e.DriverDays(ctx, driverID, from, to)
	if err != nil {
		return aggregator.DriverMonth{}, err
	}
	ref := models.DriverRef{ID: driverID, Name: fmt.Sprintf("Driver #%d", driverID)}
	if drivers, err := e.Drivers(ctx); err == nil {
		for _, d := range drivers {
			if d.ID == driverID {
				ref = d.Ref()
			}
		}
	} else {
		logger.Warn("driver list unavailable for month view", "error", err)
	}
	return aggregator.DriverMonthRows(days, []models.DriverRef{ref}, year, month)[0], nil
}

// Month lays every active driver's month out, one row per driver.
func (e *Engine) Month(ctx context.Context, year int, month time.Month) ([]aggregator.DriverMonth, error) {
	from, to := monthRange(year, month)
	all, err := e.AllDriverDays(ctx, from, to)
	if err != nil {
		return nil, err
	}
	drivers, err := e.Drivers(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]models.DriverRef, 0, len(drivers))
	var days []models.DriverDay
	for _, d := range drivers {
		refs = append(refs, d.Ref())
		days = append(days, all[d.ID].Days(d.ID)...)
	}
	return aggregator.DriverMonthRows(days, refs, year, month), nil
}

// WeeklyAssignments returns the assignments of the locale week holding week
func (e *Engine) WeeklyAssignments(ctx context.Context, week string) (models.WeeklyAssignments, error) {
	start, err := calendar.NormalizeWeek(week)
	if err != nil {
		return models.WeeklyAssignments{}, errors.Invalid("week_start_date", "%v", err)
	}
	return cache.Read(ctx, e.cache, AssignmentsKey(start), func(ctx context.Context) (models.WeeklyAssignments, error) {
		return e.svc.GetWeeklyAssignments(ctx, start)
	})
}

func (e *Engine) CompatibleTankers(ctx context.Context, customerID int64, tripID *int64) ([]models.Tanker, error) {
	if customerID <= 0 {
		return nil, errors.Invalid("customer_id", "must be positive")
	}
	return cache.Read(ctx, e.cache, TankersKey(customerID, tripID), func(ctx context.Context) ([]models.Tanker, error) {
		return e.svc.GetCompatibleTankers(ctx, customerID, tripID)
	})
}

func (e *Engine) fetchAlerts(date string) func(context.Context) (models.AlertFeed, error) {
	return func(ctx context.Context) (models.AlertFeed, error) {
		return e.svc.GetAlerts(ctx, date)
	}
}

func (e *Engine) Alerts(ctx context.Context, date string) (models.AlertFeed, error) {
	if err := validation.Date("date", date); err != nil {
		return models.AlertFeed{}, err
	}
	return cache.Read(ctx, e.cache, AlertsKey(date), e.fetchAlerts(date))
}

// WatchAlerts refreshes the alert feed of date every interval until the
// returned stop func is called or ctx ends.
func (e *Engine) WatchAlerts(ctx context.Context, date string, every time.Duration, onResult func(models.AlertFeed, error)) (stop func()) {
	key := AlertsKey(date)
	release := e.cache.Retain(key)
	p := cache.Poll(ctx, e.cache, key, every, e.fetchAlerts(date), onResult)
	return func() {
		p.Stop()
		release()
	}
}

// Review checks a day for problems the dispatcher should look at.
func (e *Engine) Review(ctx context.Context, date string) (validation.ValidationResult, error) {
	snap, err := e.Snapshot(ctx, date)
	if err != nil {
		return validation.ValidationResult{}, err
	}
	return validation.ReviewSchedule(snap), nil
}
