package dispatch

import (
	"context"
	"fmt"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/validation"
)

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func (e *Engine) unlockedDate(ctx context.Context, date string) func() error {
	return func() error {
		if err := validation.Date("date", date); err != nil {
			return err
		}
		return e.ensureUnlocked(ctx, date)
	}
}

// tripOnDate confirms trip id is on date's schedule and that the day is
// unlocked. A trip missing from a cached snapshot is looked up once more
// against a refetched day before the edit is refused.
func (e *Engine) tripOnDate(ctx context.Context, date string, id int64) error {
	if err := validation.Date("date", date); err != nil {
		return err
	}
	if locked, known := e.Locked(date); known && locked {
		return fmt.Errorf("%w: %s", errors.ErrScheduleLocked, date)
	}
	snap, err := e.Snapshot(ctx, date)
	if err != nil {
		return fmt.Errorf("check trip %d on %s: %w", id, date, err)
	}
	if _, ok := snap.FindTrip(id); !ok {
		e.cache.Invalidate(ScheduleKey(date))
		if snap, err = e.Snapshot(ctx, date); err != nil {
			return fmt.Errorf("check trip %d on %s: %w", id, date, err)
		}
		if _, ok := snap.FindTrip(id); !ok {
			return errors.Invalid("date", "trip #%d is not on the %s schedule", id, date)
		}
	}
	if snap.IsLocked {
		return fmt.Errorf("%w: %s", errors.ErrScheduleLocked, date)
	}
	return nil
}

// GenerateSchedule builds date's trips from the weekly templates and reads the
// new snapshot back.
func (e *Engine) GenerateSchedule(ctx context.Context, date string, overwrite bool) (models.GenerateResult, error) {
	res, err := cache.Mutate(ctx, e.cache, cache.Mutation[models.GenerateResult]{
		Name:        "generate schedule",
		Check:       e.unlockedDate(ctx, date),
		Write:       func(ctx context.Context) (models.GenerateResult, error) { return e.svc.GenerateSchedule(ctx, date, overwrite) },
		Invalidates: []cache.Key{ScheduleKey(date), AlertsKey(date)},
		Describe: func(r models.GenerateResult) string {
			return orDefault(r.Message, fmt.Sprintf("Generated %d trip(s) for %s", r.TripsCreated, date))
		},
	})
	if err != nil {
		return res, err
	}
	if _, err := e.Snapshot(ctx, date); err != nil {
		return res, fmt.Errorf("reload schedule %s: %w", date, err)
	}
	return res, nil
}

func (e *Engine) LockSchedule(ctx context.Context, date string) (models.MessageResult, error) {
	return e.setLock(ctx, date, true)
}

func (e *Engine) UnlockSchedule(ctx context.Context, date string) (models.MessageResult, error) {
	return e.setLock(ctx, date, false)
}

func (e *Engine) setLock(ctx context.Context, date string, lock bool) (models.MessageResult, error) {
	name, write := "unlock schedule", e.svc.UnlockSchedule
	if lock {
		name, write = "lock schedule", e.svc.LockSchedule
	}
	res, err := cache.Mutate(ctx, e.cache, cache.Mutation[models.MessageResult]{
		Name:        name,
		Check:       func() error { return validation.Date("date", date) },
		Write:       func(ctx context.Context) (models.MessageResult, error) { return write(ctx, date) },
		Invalidates: []cache.Key{ScheduleKey(date)},
		Describe: func(r models.MessageResult) string {
			if lock {
				return orDefault(r.Message, "Schedule "+date+" locked")
			}
			return orDefault(r.Message, "Schedule "+date+" unlocked")
		},
	})
	if err == nil || errors.IsCommitted(err) {
		e.setLocked(date, lock)
	}
	return res, err
}

// UpdateTrip applies a partial edit to a trip on date.
func (e *Engine) UpdateTrip(ctx context.Context, date string, id int64, patch models.TripPatch) (models.Trip, error) {
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.Trip]{
		Name: "update trip",
		Check: func() error {
			if err := e.validate.TripPatch(patch); err != nil {
				return err
			}
			return e.tripOnDate(ctx, date, id)
		},
		Write:       func(ctx context.Context) (models.Trip, error) { return e.svc.UpdateTrip(ctx, id, patch) },
		Invalidates: tripChanged(date, id),
		Describe:    func(t models.Trip) string { return fmt.Sprintf("Trip #%d updated", t.ID) },
	})
}

// AssignTrip sets the tanker and driver of a trip. A nil side is cleared.
func (e *Engine) AssignTrip(ctx context.Context, date string, id int64, tankerID, driverID *int64) (models.Trip, error) {
	a := models.TripAssignment{TankerID: tankerID, DriverID: driverID}
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.Trip]{
		Name: "assign trip",
		Check: func() error {
			if err := e.validate.Struct(a); err != nil {
				return err
			}
			return e.tripOnDate(ctx, date, id)
		},
		Write:       func(ctx context.Context) (models.Trip, error) { return e.svc.AssignTrip(ctx, id, a) },
		Invalidates: tripChanged(date, id),
		Describe: func(t models.Trip) string {
			return fmt.Sprintf("Trip #%d assigned (%s)", t.ID, t.Status)
		},
	})
}

func (e *Engine) DeleteTrip(ctx context.Context, date string, id int64) error {
	_, err := cache.Mutate(ctx, e.cache, cache.Mutation[struct{}]{
		Name:  "delete trip",
		Check: func() error { return e.tripOnDate(ctx, date, id) },
		Write: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.svc.DeleteTrip(ctx, id)
		},
		Invalidates: tripChanged(date, id),
		Describe:    func(struct{}) string { return fmt.Sprintf("Trip #%d deleted", id) },
	})
	return err
}

// CreateOnDemandDelivery adds an ad-hoc trip to date.
func (e *Engine) CreateOnDemandDelivery(ctx context.Context, date string, req models.OnDemandRequest) (models.OnDemandResult, error) {
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.OnDemandResult]{
		Name: "on-demand delivery",
		Check: func() error {
			if err := e.validate.OnDemand(req); err != nil {
				return err
			}
			return e.unlockedDate(ctx, date)()
		},
		Write: func(ctx context.Context) (models.OnDemandResult, error) {
			return e.svc.CreateOnDemandDelivery(ctx, date, req)
		},
		Invalidates: []cache.Key{ScheduleKey(date), AlertsKey(date)},
		Describe: func(r models.OnDemandResult) string {
			return orDefault(r.Message, fmt.Sprintf("Delivery #%d created", r.Trip.ID))
		},
	})
}

func (e *Engine) SetDriverDayStatus(ctx context.Context, driverID int64, date string, status models.DriverDayStatus, notes *string) (models.DriverDay, error) {
	req := models.DriverDayRequest{Date: date, Status: status, Notes: notes}
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.DriverDay]{
		Name:        "set driver day",
		Check:       func() error { return e.validate.Struct(req) },
		Write:       func(ctx context.Context) (models.DriverDay, error) { return e.svc.SetDriverDayStatus(ctx, driverID, req) },
		Invalidates: driverDaysChanged(driverID),
		Describe: func(d models.DriverDay) string {
			return fmt.Sprintf("Driver #%d is %s on %s", driverID, d.Status, d.Date)
		},
	})
}

// BulkSetDriverDayStatus sets one status on many dates as a single request.
func (e *Engine) BulkSetDriverDayStatus(ctx context.Context, driverID int64, dates []string, status models.DriverDayStatus) (models.BulkResult, error) {
	req := models.BulkDriverDayRequest{Dates: dates, Status: status}
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.BulkResult]{
		Name: "bulk driver days",
		Check: func() error {
			normalized, err := e.validate.BulkDriverDays(req)
			req = normalized
			return err
		},
		Write: func(ctx context.Context) (models.BulkResult, error) {
			return e.svc.BulkSetDriverDayStatus(ctx, driverID, req)
		},
		Invalidates: driverDaysChanged(driverID),
		Describe: func(r models.BulkResult) string {
			return orDefault(r.Message, fmt.Sprintf("Set %d day(s) to %s", len(req.Dates), status))
		},
	})
}

func normalizeWeek(week string) (string, error) {
	start, err := calendar.NormalizeWeek(week)
	if err != nil {
		return "", errors.Invalid("week_start_date", "%v", err)
	}
	return start, nil
}

// CreateAssignment assigns a driver to a trip group for the week holding week.
func (e *Engine) CreateAssignment(ctx context.Context, groupID, driverID int64, week string, notes *string) (models.Assignment, error) {
	req := models.AssignmentRequest{TripGroupID: groupID, DriverID: driverID, Notes: notes}
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.Assignment]{
		Name: "create assignment",
		Check: func() error {
			start, err := normalizeWeek(week)
			if err != nil {
				return err
			}
			req.WeekStart = start
			return e.validate.Struct(req)
		},
		Write: func(ctx context.Context) (models.Assignment, error) { return e.svc.CreateAssignment(ctx, req) },
		InvalidatesFor: func(models.Assignment) []cache.Key {
			return assignmentsChanged(req.WeekStart)
		},
		Describe: func(a models.Assignment) string {
			return fmt.Sprintf("Driver #%d assigned to group #%d for week %s", driverID, groupID, req.WeekStart)
		},
	})
}

// DeleteAssignment removes an assignment of the week holding week.
func (e *Engine) DeleteAssignment(ctx context.Context, id int64, week string) error {
	var start string
	_, err := cache.Mutate(ctx, e.cache, cache.Mutation[struct{}]{
		Name: "delete assignment",
		Check: func() (err error) {
			start, err = normalizeWeek(week)
			return err
		},
		Write: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.svc.DeleteAssignment(ctx, id)
		},
		InvalidatesFor: func(struct{}) []cache.Key { return assignmentsChanged(start) },
		Describe:       func(struct{}) string { return fmt.Sprintf("Assignment #%d removed", id) },
	})
	return err
}

func (e *Engine) ClearWeekAssignments(ctx context.Context, week string) (models.MessageResult, error) {
	var start string
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.MessageResult]{
		Name: "clear week",
		Check: func() (err error) {
			start, err = normalizeWeek(week)
			return err
		},
		Write: func(ctx context.Context) (models.MessageResult, error) {
			return e.svc.ClearWeekAssignments(ctx, start)
		},
		InvalidatesFor: func(models.MessageResult) []cache.Key { return assignmentsChanged(start) },
		Describe: func(r models.MessageResult) string {
			return orDefault(r.Message, "Cleared assignments for week "+start)
		},
	})
}

// AutoAssign asks the service to fill the week's trip groups. A dry run
// changes nothing and invalidates nothing.
func (e *Engine) AutoAssign(ctx context.Context, week string, minRestHours int, dryRun bool) (models.AutoAssignResult, error) {
	req := models.AutoAssignRequest{MinRestHours: minRestHours, DryRun: dryRun}
	return cache.Mutate(ctx, e.cache, cache.Mutation[models.AutoAssignResult]{
		Name: "auto-assign",
		Check: func() error {
			if err := validation.MinRestHours(minRestHours); err != nil {
				return err
			}
			start, err := normalizeWeek(week)
			if err != nil {
				return err
			}
			req.WeekStart = start
			return nil
		},
		Write: func(ctx context.Context) (models.AutoAssignResult, error) { return e.svc.AutoAssign(ctx, req) },
		InvalidatesFor: func(models.AutoAssignResult) []cache.Key {
			if dryRun {
				return nil
			}
			return assignmentsChanged(req.WeekStart)
		},
		Describe: func(r models.AutoAssignResult) string {
			prefix := ""
			if dryRun {
				prefix = "Dry run: "
			}
			return prefix + orDefault(r.Message, fmt.Sprintf("%d assignment(s), %d group(s) left", r.AssignmentsCreated, r.GroupsUnassigned))
		},
	})
}
