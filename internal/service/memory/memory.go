// Package memory is an in-process Schedule Service. It backs the development
// server and the tests. State and Restore hand the mutable parts to a caller
// that wants to keep them between runs.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/fleetboard/internal/aggregator"
	"github.com/julianstephens/fleetboard/internal/auth"
	"github.com/julianstephens/fleetboard/internal/calendar"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service"
	"github.com/julianstephens/fleetboard/internal/utils"
	"github.com/julianstephens/fleetboard/internal/validation"
)

var _ service.ScheduleService = (*Service)(nil)

const tokenTTL = 24 * time.Hour

// TripTemplate is one recurring delivery inside a group template
type TripTemplate struct {
	ID          int64
	CustomerID  int64
	TankerID    int64
	FuelBlendID int64
	StartTime   string
	EndTime     string
	Volume      int
	IsMobileOp  bool
	NeedsReturn bool
}

// GroupTemplate is a trip group and the templates it generates each week
type GroupTemplate struct {
	models.TripGroupRef
	Templates []TripTemplate
}

type schedule struct {
	id     int64
	date   string
	locked bool
	trips  []models.Trip
	notes  *string
}

type account struct {
	user models.User
	hash []byte
}

type userKey struct{}

// WithUser attaches the authenticated user to ctx for Me
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// Service is an in-memory ScheduleService. It is safe for concurrent use.
type Service struct {
	mu  sync.Mutex
	now func() time.Time

	secret    []byte
	customers map[int64]models.CustomerRef
	blends    map[int64]models.FuelBlendRef
	tankers   []models.Tanker
	drivers   []models.Driver
	groups    []GroupTemplate

	schedules   map[string]*schedule
	days        map[int64]map[string]models.DriverDay
	assignments []models.Assignment
	accounts    map[string]account
	current     *models.User

	calls    map[string]int
	failures map[string]error
	nextID   int64
}

// New returns an empty service that signs tokens with secret.
func New(secret []byte) *Service {
	return &Service{
		now:       time.Now,
		secret:    secret,
		customers: make(map[int64]models.CustomerRef),
		blends:    make(map[int64]models.FuelBlendRef),
		schedules: make(map[string]*schedule),
		days:      make(map[int64]map[string]models.DriverDay),
		accounts:  make(map[string]account),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
		nextID:    1000,
	}
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// AddCustomer registers a customer
func (s *Service) AddCustomer(c models.CustomerRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// AddFuelBlend registers a fuel blend
func (s *Service) AddFuelBlend(b models.FuelBlendRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blends[b.ID] = b
}

// AddTanker registers a tanker
func (s *Service) AddTanker(t models.Tanker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tankers = append(s.tankers, t)
	slices.SortFunc(s.tankers, func(a, b models.Tanker) int { return cmp.Compare(a.ID, b.ID) })
}

// AddDriver registers a driver
func (s *Service) AddDriver(d models.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers = append(s.drivers, d)
	slices.SortFunc(s.drivers, func(a, b models.Driver) int { return cmp.Compare(a.ID, b.ID) })
}

// AddGroup registers a trip group template
func (s *Service) AddGroup(g GroupTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.DayName == "" {
		g.DayName = calendar.DayName(g.DayOfWeek)
	}
	s.groups = append(s.groups, g)
}

// AddUser registers an account that can log in with password.
func (s *Service) AddUser(u models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Username] = account{user: u, hash: hash}
	return nil
}

// SetCurrentUser sets who Me answers with when ctx carries no user
func (s *Service) SetCurrentUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &u
}

// FailNext makes the next call to op return err instead of running
func (s *Service) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls returns how many times op was called
func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of calls across all operations
func (s *Service) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// enter records a call and returns an injected failure. s.mu must be held.
func (s *Service) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

func (s *Service) id() int64 {
	s.nextID++
	return s.nextID
}

func fail(status int, format string, args ...interface{}) error {
	return &errors.RemoteError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (s *Service) GetSnapshot(_ context.Context, date string) (models.ScheduleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetSnapshot"); err != nil {
		return models.ScheduleSnapshot{}, err
	}
	return s.snapshotLocked(date)
}

func (s *Service) snapshotLocked(date string) (models.ScheduleSnapshot, error) {
	idx, err := calendar.IndexOf(date)
	if err != nil {
		return models.ScheduleSnapshot{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	week, _ := calendar.NormalizeWeek(date)

	snap := models.ScheduleSnapshot{Date: date, DayOfWeek: idx, DayName: calendar.DayName(idx)}
	sched := s.schedules[date]
	var trips []models.Trip
	if sched != nil {
		id := sched.id
		snap.ID = &id
		snap.IsLocked = sched.locked
		snap.Notes = sched.notes
		trips = slices.Clone(sched.trips)
	}

	claimed := make(map[int64]bool)
	for _, g := range s.groups {
		if g.DayOfWeek != idx {
			continue
		}
		tg := models.TripGroup{
			ID:            g.ID,
			Name:          g.Name,
			DayOfWeek:     g.DayOfWeek,
			DayName:       g.DayName,
			Description:   g.Description,
			TemplateCount: len(g.Templates),
			Trips:         []models.Trip{},
		}
		if a, ok := s.assignmentLocked(g.ID, week); ok {
			d := a.Driver
			tg.Driver = &d
		}
		for _, tpl := range g.Templates {
			tg.TemplateIDs = append(tg.TemplateIDs, tpl.ID)
		}
		for _, t := range trips {
			if !claimed[t.ID] && t.TemplateID != nil && slices.Contains(tg.TemplateIDs, *t.TemplateID) {
				tg.Trips = append(tg.Trips, t)
				claimed[t.ID] = true
			}
		}
		snap.TripGroups = append(snap.TripGroups, tg)
	}
	snap.Unassigned.Trips = []models.Trip{}
	for _, t := range trips {
		if !claimed[t.ID] {
			snap.Unassigned.Trips = append(snap.Unassigned.Trips, t)
		}
	}

	sum := aggregator.Summarize(trips)
	snap.Summary = models.ScheduleSummary{
		TotalTrips:      sum.TotalTrips,
		AssignedTrips:   sum.Assigned,
		UnassignedTrips: sum.Unassigned,
		ConflictTrips:   sum.Conflict,
		TotalVolume:     sum.TotalVolume,
	}
	return snap, nil
}

func (s *Service) GenerateSchedule(_ context.Context, date string, overwrite bool) (models.GenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GenerateSchedule"); err != nil {
		return models.GenerateResult{}, err
	}

	idx, err := calendar.IndexOf(date)
	if err != nil {
		return models.GenerateResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	existing := s.schedules[date]
	if existing != nil {
		if existing.locked {
			return models.GenerateResult{}, fail(http.StatusBadRequest, "Schedule for %s is locked", date)
		}
		if !overwrite {
			return models.GenerateResult{}, fail(http.StatusConflict, "Schedule already exists for %s", date)
		}
	}

	sched := &schedule{id: s.id(), date: date}
	week, _ := calendar.NormalizeWeek(date)
	res := models.GenerateResult{ScheduleID: sched.id, ScheduleDate: date}

	for _, g := range s.groups {
		if g.DayOfWeek != idx {
			continue
		}
		var driver *models.DriverRef
		if a, ok := s.assignmentLocked(g.ID, week); ok && s.availableLocked(a.Driver.ID, date) {
			d := a.Driver
			driver = &d
		}
		for _, tpl := range g.Templates {
			cust, ok := s.customers[tpl.CustomerID]
			if !ok {
				res.TripsSkipped++
				continue
			}
			tplID := tpl.ID
			trip := models.Trip{
				ID:          s.id(),
				ScheduleID:  sched.id,
				TemplateID:  &tplID,
				Customer:    cust,
				Driver:      driver,
				StartTime:   wireTime(tpl.StartTime),
				EndTime:     wireTime(tpl.EndTime),
				Volume:      tpl.Volume,
				IsMobileOp:  tpl.IsMobileOp,
				NeedsReturn: tpl.NeedsReturn,
			}
			if tk, ok := s.tankerLocked(tpl.TankerID); ok && tk.Available() {
				ref := tk.Ref()
				trip.Tanker = &ref
			}
			if b, ok := s.blends[tpl.FuelBlendID]; ok {
				trip.FuelBlend = &b
			}
			sched.trips = append(sched.trips, trip)
			res.TripsCreated++
		}
	}
	refreshStatuses(sched.trips)
	s.schedules[date] = sched
	res.Message = fmt.Sprintf("Generated %d trips for %s", res.TripsCreated, date)
	return res, nil
}

func (s *Service) LockSchedule(_ context.Context, date string) (models.MessageResult, error) {
	return s.setLocked("LockSchedule", date, true)
}

func (s *Service) UnlockSchedule(_ context.Context, date string) (models.MessageResult, error) {
	return s.setLocked("UnlockSchedule", date, false)
}

func (s *Service) setLocked(op, date string, locked bool) (models.MessageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(op); err != nil {
		return models.MessageResult{}, err
	}
	sched := s.schedules[date]
	if sched == nil {
		return models.MessageResult{}, fail(http.StatusNotFound, "Schedule not found")
	}
	sched.locked = locked
	if locked {
		return models.MessageResult{Message: fmt.Sprintf("Schedule for %s locked", date)}, nil
	}
	return models.MessageResult{Message: fmt.Sprintf("Schedule for %s unlocked", date)}, nil
}

// findTripLocked returns the schedule holding trip id and the trip's index
func (s *Service) findTripLocked(id int64) (*schedule, int, error) {
	for _, sched := range s.schedules {
		for i, t := range sched.trips {
			if t.ID == id {
				return sched, i, nil
			}
		}
	}
	return nil, 0, fail(http.StatusNotFound, "Trip not found")
}

func (s *Service) editableTripLocked(id int64) (*schedule, int, error) {
	sched, i, err := s.findTripLocked(id)
	if err != nil {
		return nil, 0, err
	}
	if sched.locked {
		return nil, 0, fail(http.StatusBadRequest, "Cannot modify trips on a locked schedule")
	}
	return sched, i, nil
}

func (s *Service) GetTrip(_ context.Context, id int64) (models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetTrip"); err != nil {
		return models.Trip{}, err
	}
	sched, i, err := s.findTripLocked(id)
	if err != nil {
		return models.Trip{}, err
	}
	return sched.trips[i], nil
}

func (s *Service) UpdateTrip(_ context.Context, id int64, p models.TripPatch) (models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateTrip"); err != nil {
		return models.Trip{}, err
	}
	if err := validation.Default().TripPatch(p); err != nil {
		return models.Trip{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	sched, i, err := s.editableTripLocked(id)
	if err != nil {
		return models.Trip{}, err
	}

	t := sched.trips[i]
	if p.CustomerID != nil {
		c, ok := s.customers[*p.CustomerID]
		if !ok {
			return models.Trip{}, fail(http.StatusBadRequest, "Customer not found")
		}
		t.Customer = c
	}
	if p.TankerID != nil {
		tk, ok := s.tankerLocked(*p.TankerID)
		if !ok {
			return models.Trip{}, fail(http.StatusBadRequest, "Tanker not found")
		}
		ref := tk.Ref()
		t.Tanker = &ref
	}
	if p.DriverID != nil {
		d, ok := s.driverLocked(*p.DriverID)
		if !ok {
			return models.Trip{}, fail(http.StatusBadRequest, "Driver not found")
		}
		ref := d.Ref()
		t.Driver = &ref
	}
	if p.FuelBlendID != nil {
		b, ok := s.blends[*p.FuelBlendID]
		if !ok {
			return models.Trip{}, fail(http.StatusBadRequest, "Fuel blend not found")
		}
		t.FuelBlend = &b
	}
	if p.StartTime != nil {
		t.StartTime = wireTime(*p.StartTime)
	}
	if p.EndTime != nil {
		t.EndTime = wireTime(*p.EndTime)
	}
	if p.Volume != nil {
		t.Volume = *p.Volume
	}
	if p.IsMobileOp != nil {
		t.IsMobileOp = *p.IsMobileOp
	}
	if p.NeedsReturn != nil {
		t.NeedsReturn = *p.NeedsReturn
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Notes != nil {
		n := *p.Notes
		t.Notes = &n
	}
	if err := t.Validate(); err != nil {
		return models.Trip{}, fail(http.StatusBadRequest, "%v", err)
	}

	sched.trips[i] = t
	refreshStatuses(sched.trips)
	return sched.trips[i], nil
}

func (s *Service) AssignTrip(_ context.Context, id int64, a models.TripAssignment) (models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AssignTrip"); err != nil {
		return models.Trip{}, err
	}
	sched, i, err := s.editableTripLocked(id)
	if err != nil {
		return models.Trip{}, err
	}

	t := sched.trips[i]
	t.Tanker, t.Driver = nil, nil
	if a.TankerID != nil {
		tk, ok := s.tankerLocked(*a.TankerID)
		if !ok {
			return models.Trip{}, fail(http.StatusBadRequest, "Tanker not found")
		}
		ref := tk.Ref()
		t.Tanker = &ref
	}
	if a.DriverID != nil {
		d, ok := s.driverLocked(*a.DriverID)
		if !ok {
			return models.Trip{}, fail(http.StatusBadRequest, "Driver not found")
		}
		ref := d.Ref()
		t.Driver = &ref
	}
	if t.Status == models.TripCancelled || t.Status == models.TripCompleted {
		t.Status = models.TripScheduled
	}
	sched.trips[i] = t
	refreshStatuses(sched.trips)
	return sched.trips[i], nil
}

func (s *Service) DeleteTrip(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteTrip"); err != nil {
		return err
	}
	sched, i, err := s.editableTripLocked(id)
	if err != nil {
		return err
	}
	sched.trips = slices.Delete(sched.trips, i, i+1)
	refreshStatuses(sched.trips)
	return nil
}

func (s *Service) CreateOnDemandDelivery(_ context.Context, date string, req models.OnDemandRequest) (models.OnDemandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateOnDemandDelivery"); err != nil {
		return models.OnDemandResult{}, err
	}
	if err := validation.Default().OnDemand(req); err != nil {
		return models.OnDemandResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	if _, err := utils.ParseDate(date); err != nil {
		return models.OnDemandResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	cust, ok := s.customers[req.CustomerID]
	if !ok {
		return models.OnDemandResult{}, fail(http.StatusNotFound, "Customer not found")
	}

	sched := s.schedules[date]
	if sched == nil {
		sched = &schedule{id: s.id(), date: date}
		s.schedules[date] = sched
	}
	if sched.locked {
		return models.OnDemandResult{}, fail(http.StatusBadRequest, "Schedule for %s is locked", date)
	}

	start, end := "08:00:00", ""
	if req.PreferredStartTime != nil {
		start = wireTime(*req.PreferredStartTime)
	}
	if req.PreferredEndTime != nil {
		end = wireTime(*req.PreferredEndTime)
	} else {
		m, _ := utils.ParseTimeToMinutes(start)
		m = min(m+60, 24*60-1)
		end = fmt.Sprintf("%02d:%02d:00", m/60, m%60)
	}

	trip := models.Trip{
		ID:         s.id(),
		ScheduleID: sched.id,
		Customer:   cust,
		StartTime:  start,
		EndTime:    end,
		Volume:     req.Volume,
		Notes:      req.Notes,
	}
	var blend *models.FuelBlendRef
	if req.FuelBlendID != nil {
		b, ok := s.blends[*req.FuelBlendID]
		if !ok {
			return models.OnDemandResult{}, fail(http.StatusBadRequest, "Fuel blend not found")
		}
		blend = &b
		trip.FuelBlend = blend
	}

	res := models.OnDemandResult{Message: "On-demand delivery created"}
	if req.AutoAssign {
		for _, tk := range s.tankers {
			if !tk.Available() || !carries(tk, blend) || busy(sched.trips, tk.ID, trip) {
				continue
			}
			ref := tk.Ref()
			trip.Tanker = &ref
			res.AssignedTanker = &ref
			res.AutoAssigned = true
			break
		}
		for _, d := range s.drivers {
			if d.IsActive && s.availableLocked(d.ID, date) {
				ref := d.Ref()
				trip.Driver = &ref
				break
			}
		}
		if res.AutoAssigned {
			res.Message = "On-demand delivery created and assigned to " + res.AssignedTanker.Name
		} else {
			res.Message = "On-demand delivery created; no compatible tanker is free"
		}
	}

	sched.trips = append(sched.trips, trip)
	refreshStatuses(sched.trips)
	res.Trip = sched.trips[len(sched.trips)-1]
	return res, nil
}

func (s *Service) ListDrivers(_ context.Context, activeOnly bool) ([]models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListDrivers"); err != nil {
		return nil, err
	}
	out := []models.Driver{}
	for _, d := range s.drivers {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) GetDriverDays(_ context.Context, driverID int64, from, to string) ([]models.DriverDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetDriverDays"); err != nil {
		return nil, err
	}
	if _, ok := s.driverLocked(driverID); !ok {
		return nil, fail(http.StatusNotFound, "Driver not found")
	}
	if err := validation.DateRange(from, to); err != nil {
		return nil, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	return s.daysLocked(driverID, from, to), nil
}

func (s *Service) daysLocked(driverID int64, from, to string) []models.DriverDay {
	out := []models.DriverDay{}
	for date, d := range s.days[driverID] {
		if date >= from && date <= to {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b models.DriverDay) int { return cmp.Compare(a.Date, b.Date) })
	return out
}

func (s *Service) GetAllDriverDays(_ context.Context, from, to string) (map[int64]models.DriverCalendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetAllDriverDays"); err != nil {
		return nil, err
	}
	if err := validation.DateRange(from, to); err != nil {
		return nil, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	out := make(map[int64]models.DriverCalendar)
	for _, d := range s.drivers {
		if !d.IsActive {
			continue
		}
		cal := models.DriverCalendar{DriverName: d.Name, DriverType: d.DriverType, Schedules: []models.DriverCalendarEntry{}}
		for _, day := range s.daysLocked(d.ID, from, to) {
			cal.Schedules = append(cal.Schedules, models.DriverCalendarEntry{Date: day.Date, Status: day.Status, Notes: day.Notes})
		}
		out[d.ID] = cal
	}
	return out, nil
}

// upsertDayLocked stores a status and reports whether a record was created
func (s *Service) upsertDayLocked(driverID int64, date string, status models.DriverDayStatus, notes *string) (models.DriverDay, bool) {
	if s.days[driverID] == nil {
		s.days[driverID] = make(map[string]models.DriverDay)
	}
	d, exists := s.days[driverID][date]
	if !exists {
		d = models.DriverDay{ID: s.id(), DriverID: driverID, Date: date}
	}
	d.Status = status
	d.Notes = notes
	s.days[driverID][date] = d
	return d, !exists
}

func (s *Service) SetDriverDayStatus(_ context.Context, driverID int64, req models.DriverDayRequest) (models.DriverDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetDriverDayStatus"); err != nil {
		return models.DriverDay{}, err
	}
	if err := validation.Default().Struct(req); err != nil {
		return models.DriverDay{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	if _, ok := s.driverLocked(driverID); !ok {
		return models.DriverDay{}, fail(http.StatusNotFound, "Driver not found")
	}
	d, _ := s.upsertDayLocked(driverID, req.Date, req.Status, req.Notes)
	return d, nil
}

func (s *Service) BulkSetDriverDayStatus(_ context.Context, driverID int64, req models.BulkDriverDayRequest) (models.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("BulkSetDriverDayStatus"); err != nil {
		return models.BulkResult{}, err
	}
	req, err := validation.Default().BulkDriverDays(req)
	if err != nil {
		return models.BulkResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	if _, ok := s.driverLocked(driverID); !ok {
		return models.BulkResult{}, fail(http.StatusNotFound, "Driver not found")
	}
	var res models.BulkResult
	for _, date := range req.Dates {
		if _, created := s.upsertDayLocked(driverID, date, req.Status, nil); created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	res.Message = fmt.Sprintf("Set %d day(s) to %s", len(req.Dates), req.Status)
	return res, nil
}

func (s *Service) GetWeeklyAssignments(_ context.Context, weekStart string) (models.WeeklyAssignments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetWeeklyAssignments"); err != nil {
		return models.WeeklyAssignments{}, err
	}
	week, err := calendar.NormalizeWeek(weekStart)
	if err != nil {
		return models.WeeklyAssignments{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}

	out := models.WeeklyAssignments{
		WeekStart:        week,
		Assignments:      []models.Assignment{},
		UnassignedGroups: []models.TripGroupRef{},
		AvailableDrivers: []models.DriverRef{},
	}
	for _, a := range s.assignments {
		if a.WeekStart == week {
			out.Assignments = append(out.Assignments, a)
		}
	}
	for _, g := range s.groups {
		if _, ok := s.assignmentLocked(g.ID, week); !ok {
			out.UnassignedGroups = append(out.UnassignedGroups, g.TripGroupRef)
		}
	}
	for _, d := range s.drivers {
		if d.IsActive {
			out.AvailableDrivers = append(out.AvailableDrivers, d.Ref())
		}
	}
	return out, nil
}

func (s *Service) CreateAssignment(_ context.Context, req models.AssignmentRequest) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateAssignment"); err != nil {
		return models.Assignment{}, err
	}
	week, err := calendar.NormalizeWeek(req.WeekStart)
	if err != nil {
		return models.Assignment{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	g, ok := s.groupLocked(req.TripGroupID)
	if !ok {
		return models.Assignment{}, fail(http.StatusNotFound, "Trip group not found")
	}
	d, ok := s.driverLocked(req.DriverID)
	if !ok || !d.IsActive {
		return models.Assignment{}, fail(http.StatusNotFound, "Driver not found or inactive")
	}
	if _, taken := s.assignmentLocked(g.ID, week); taken {
		return models.Assignment{}, fail(http.StatusConflict, "Trip group %q already has a driver for week %s", g.Name, week)
	}
	a := models.Assignment{
		ID:         s.id(),
		TripGroup:  g.TripGroupRef,
		Driver:     d.Ref(),
		WeekStart:  week,
		AssignedAt: s.now().UTC().Format(time.RFC3339),
		Notes:      req.Notes,
	}
	s.assignments = append(s.assignments, a)
	return a, nil
}

func (s *Service) DeleteAssignment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteAssignment"); err != nil {
		return err
	}
	i := slices.IndexFunc(s.assignments, func(a models.Assignment) bool { return a.ID == id })
	if i < 0 {
		return fail(http.StatusNotFound, "Assignment not found")
	}
	s.assignments = slices.Delete(s.assignments, i, i+1)
	return nil
}

func (s *Service) ClearWeekAssignments(_ context.Context, weekStart string) (models.MessageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ClearWeekAssignments"); err != nil {
		return models.MessageResult{}, err
	}
	week, err := calendar.NormalizeWeek(weekStart)
	if err != nil {
		return models.MessageResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	before := len(s.assignments)
	s.assignments = slices.DeleteFunc(s.assignments, func(a models.Assignment) bool { return a.WeekStart == week })
	return models.MessageResult{Message: fmt.Sprintf("Cleared %d assignment(s) for week %s", before-len(s.assignments), week)}, nil
}

// AutoAssign gives each unassigned group the first active driver who is not
// off that day and has no other group that day.
func (s *Service) AutoAssign(_ context.Context, req models.AutoAssignRequest) (models.AutoAssignResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AutoAssign"); err != nil {
		return models.AutoAssignResult{}, err
	}
	if err := validation.MinRestHours(req.MinRestHours); err != nil {
		return models.AutoAssignResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	week, err := calendar.NormalizeWeek(req.WeekStart)
	if err != nil {
		return models.AutoAssignResult{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}
	dates, _ := calendar.WeekDates(week)

	busyOn := make(map[int64]map[int]bool)
	for _, a := range s.assignments {
		if a.WeekStart != week {
			continue
		}
		if busyOn[a.Driver.ID] == nil {
			busyOn[a.Driver.ID] = make(map[int]bool)
		}
		busyOn[a.Driver.ID][a.TripGroup.DayOfWeek] = true
	}

	res := models.AutoAssignResult{WeekStart: week, Assignments: []models.Assignment{}, Unassigned: []models.UnassignedGroup{}}
	for _, g := range s.groups {
		if _, ok := s.assignmentLocked(g.ID, week); ok {
			continue
		}
		date := dates[g.DayOfWeek]
		var pick *models.Driver
		for i := range s.drivers {
			d := &s.drivers[i]
			if d.IsActive && !busyOn[d.ID][g.DayOfWeek] && s.availableLocked(d.ID, date) {
				pick = d
				break
			}
		}
		if pick == nil {
			res.Unassigned = append(res.Unassigned, models.UnassignedGroup{TripGroup: g.TripGroupRef, Reason: "No available driver"})
			continue
		}
		if busyOn[pick.ID] == nil {
			busyOn[pick.ID] = make(map[int]bool)
		}
		busyOn[pick.ID][g.DayOfWeek] = true
		res.Assignments = append(res.Assignments, models.Assignment{
			ID:         s.id(),
			TripGroup:  g.TripGroupRef,
			Driver:     pick.Ref(),
			WeekStart:  week,
			AssignedAt: s.now().UTC().Format(time.RFC3339),
		})
	}
	if !req.DryRun {
		s.assignments = append(s.assignments, res.Assignments...)
	}
	res.AssignmentsCreated = len(res.Assignments)
	res.GroupsUnassigned = len(res.Unassigned)
	verb := "Assigned"
	if req.DryRun {
		verb = "Would assign"
	}
	res.Message = fmt.Sprintf("%s %d group(s); %d left unassigned", verb, res.AssignmentsCreated, res.GroupsUnassigned)
	return res, nil
}

func (s *Service) GetCompatibleTankers(_ context.Context, customerID int64, tripID *int64) ([]models.Tanker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetCompatibleTankers"); err != nil {
		return nil, err
	}
	if _, ok := s.customers[customerID]; !ok {
		return nil, fail(http.StatusNotFound, "Customer not found")
	}
	var blend *models.FuelBlendRef
	if tripID != nil {
		sched, i, err := s.findTripLocked(*tripID)
		if err != nil {
			return nil, err
		}
		blend = sched.trips[i].FuelBlend
	}
	out := []models.Tanker{}
	for _, tk := range s.tankers {
		if tk.Available() && carries(tk, blend) {
			out = append(out, tk)
		}
	}
	return out, nil
}

func (s *Service) GetAlerts(_ context.Context, date string) (models.AlertFeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetAlerts"); err != nil {
		return models.AlertFeed{}, err
	}
	if date == "" {
		date = utils.FormatDate(s.now())
	}
	if _, err := utils.ParseDate(date); err != nil {
		return models.AlertFeed{}, fail(http.StatusUnprocessableEntity, "%v", err)
	}

	feed := models.AlertFeed{Date: date, Alerts: []models.Alert{}}
	if sched := s.schedules[date]; sched != nil {
		for _, t := range sched.trips {
			id := t.ID
			code := t.Customer.Code
			switch t.Status {
			case models.TripUnassigned:
				feed.Alerts = append(feed.Alerts, models.Alert{Type: "warning", Code: models.AlertUnassignedTrip,
					Message: fmt.Sprintf("Trip to %s at %s has no tanker or driver", code, utils.ShortTime(t.StartTime)),
					TripID:  &id, CustomerCode: &code})
			case models.TripConflict:
				feed.Alerts = append(feed.Alerts, models.Alert{Type: "error", Code: models.AlertTripConflict,
					Message: fmt.Sprintf("Trip to %s at %s overlaps another trip on the same tanker", code, utils.ShortTime(t.StartTime)),
					TripID:  &id, CustomerCode: &code})
			}
		}
	}
	for _, tk := range s.tankers {
		if tk.Status == models.TankerMaintenance {
			id := tk.ID
			feed.Alerts = append(feed.Alerts, models.Alert{Type: "info", Code: models.AlertTankerMaintenance,
				Message: fmt.Sprintf("Tanker %s is in maintenance", tk.Name), TankerID: &id})
		}
	}
	for _, d := range s.drivers {
		if _, ok := s.days[d.ID][date]; d.IsActive && !ok {
			id := d.ID
			feed.Alerts = append(feed.Alerts, models.Alert{Type: "info", Code: models.AlertDriverNoSchedule,
				Message: fmt.Sprintf("%s has no status for %s", d.Name, date), DriverID: &id})
		}
	}
	feed.TotalAlerts = len(feed.Alerts)
	return feed, nil
}

func (s *Service) Login(_ context.Context, req models.LoginRequest) (models.TokenResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Login"); err != nil {
		return models.TokenResponse{}, err
	}
	acct, ok := s.accounts[req.Username]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		return models.TokenResponse{}, fail(http.StatusUnauthorized, "Invalid username or password")
	}
	tok, err := auth.Issue(acct.user, s.secret, tokenTTL, s.now())
	if err != nil {
		return models.TokenResponse{}, fail(http.StatusInternalServerError, "%v", err)
	}
	return models.TokenResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresIn:   int(tokenTTL.Seconds()),
		User:        acct.user,
	}, nil
}

func (s *Service) Me(ctx context.Context) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Me"); err != nil {
		return models.User{}, err
	}
	if u, ok := ctx.Value(userKey{}).(models.User); ok {
		return u, nil
	}
	if s.current != nil {
		return *s.current, nil
	}
	return models.User{}, fail(http.StatusUnauthorized, "Not authenticated")
}

// Authenticate verifies a bearer token and returns its user
func (s *Service) Authenticate(token string) (models.User, error) {
	claims, err := auth.Verify(token, s.secret)
	if err != nil {
		return models.User{}, fail(http.StatusUnauthorized, "Could not validate credentials")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[claims.Username]
	if !ok {
		return models.User{}, fail(http.StatusUnauthorized, "Could not validate credentials")
	}
	return acct.user, nil
}

func (s *Service) tankerLocked(id int64) (models.Tanker, bool) {
	for _, t := range s.tankers {
		if t.ID == id {
			return t, true
		}
	}
	return models.Tanker{}, false
}

func (s *Service) driverLocked(id int64) (models.Driver, bool) {
	for _, d := range s.drivers {
		if d.ID == id {
			return d, true
		}
	}
	return models.Driver{}, false
}

func (s *Service) groupLocked(id int64) (GroupTemplate, bool) {
	for _, g := range s.groups {
		if g.ID == id {
			return g, true
		}
	}
	return GroupTemplate{}, false
}

func (s *Service) assignmentLocked(groupID int64, week string) (models.Assignment, bool) {
	for _, a := range s.assignments {
		if a.TripGroup.ID == groupID && a.WeekStart == week {
			return a, true
		}
	}
	return models.Assignment{}, false
}

// availableLocked reports whether a driver can work on date. Drivers with no
// record for the date count as available.
func (s *Service) availableLocked(driverID int64, date string) bool {
	d, ok := s.days[driverID][date]
	return !ok || d.Status == models.DriverWorking || d.Status == models.DriverFloat
}

// refreshStatuses derives trip statuses the way the service does: completed
// and cancelled trips keep theirs, trips missing a tanker or driver are
// unassigned, and overlapping trips on one tanker are all in conflict.
func refreshStatuses(trips []models.Trip) {
	settled := func(t models.Trip) bool {
		return t.Status == models.TripCompleted || t.Status == models.TripCancelled
	}
	for i := range trips {
		if settled(trips[i]) {
			continue
		}
		if trips[i].HasTanker() && trips[i].HasDriver() {
			trips[i].Status = models.TripScheduled
		} else {
			trips[i].Status = models.TripUnassigned
		}
	}
	for i := range trips {
		for j := i + 1; j < len(trips); j++ {
			a, b := trips[i], trips[j]
			if settled(a) || settled(b) || !a.HasTanker() || !b.HasTanker() || a.Tanker.ID != b.Tanker.ID {
				continue
			}
			if a.Overlaps(b) {
				trips[i].Status = models.TripConflict
				trips[j].Status = models.TripConflict
			}
		}
	}
}

func carries(t models.Tanker, blend *models.FuelBlendRef) bool {
	if blend == nil {
		return true
	}
	return slices.ContainsFunc(t.FuelBlends, func(b models.FuelBlendRef) bool { return b.ID == blend.ID })
}

func busy(trips []models.Trip, tankerID int64, candidate models.Trip) bool {
	for _, t := range trips {
		if t.HasTanker() && t.Tanker.ID == tankerID && t.Overlaps(candidate) {
			return true
		}
	}
	return false
}

// wireTime renders HH:MM or HH:MM:SS as HH:MM:SS. Unparseable input is kept.
func wireTime(s string) string {
	t, err := utils.ParseTimeOfDay(s)
	if err != nil {
		return s
	}
	return t.Format(constants.WireTimeFormat)
}
