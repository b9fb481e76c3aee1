// Package service declares the boundary to the remote Schedule Service.
package service

import (
	"context"

	"github.com/julianstephens/fleetboard/internal/models"
)

// ScheduleService is everything the client asks of the remote Schedule Service.
// Implementations return *errors.RemoteError for non-2xx answers and
// *errors.ValidationError for payloads that fail to decode or validate.
type ScheduleService interface {
	// Return one day's schedule with trips bundled by trip group.
	GetSnapshot(ctx context.Context, date string) (models.ScheduleSnapshot, error)
	GenerateSchedule(ctx context.Context, date string, overwrite bool) (models.GenerateResult, error)
	LockSchedule(ctx context.Context, date string) (models.MessageResult, error)
	UnlockSchedule(ctx context.Context, date string) (models.MessageResult, error)

	GetTrip(ctx context.Context, id int64) (models.Trip, error)
	UpdateTrip(ctx context.Context, id int64, patch models.TripPatch) (models.Trip, error)
	AssignTrip(ctx context.Context, id int64, a models.TripAssignment) (models.Trip, error)
	DeleteTrip(ctx context.Context, id int64) error
	CreateOnDemandDelivery(ctx context.Context, date string, req models.OnDemandRequest) (models.OnDemandResult, error)

	// Return every driver, following pagination. activeOnly filters on is_active.
	ListDrivers(ctx context.Context, activeOnly bool) ([]models.Driver, error)
	GetDriverDays(ctx context.Context, driverID int64, from, to string) ([]models.DriverDay, error)
	GetAllDriverDays(ctx context.Context, from, to string) (map[int64]models.DriverCalendar, error)
	SetDriverDayStatus(ctx context.Context, driverID int64, req models.DriverDayRequest) (models.DriverDay, error)
	// Apply one status to many dates in a single request.
	BulkSetDriverDayStatus(ctx context.Context, driverID int64, req models.BulkDriverDayRequest) (models.BulkResult, error)

	GetWeeklyAssignments(ctx context.Context, weekStart string) (models.WeeklyAssignments, error)
	CreateAssignment(ctx context.Context, req models.AssignmentRequest) (models.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error
	ClearWeekAssignments(ctx context.Context, weekStart string) (models.MessageResult, error)
	AutoAssign(ctx context.Context, req models.AutoAssignRequest) (models.AutoAssignResult, error)

	// Return tankers able to serve a customer, optionally for a specific trip.
	GetCompatibleTankers(ctx context.Context, customerID int64, tripID *int64) ([]models.Tanker, error)
	GetAlerts(ctx context.Context, date string) (models.AlertFeed, error)

	Login(ctx context.Context, req models.LoginRequest) (models.TokenResponse, error)
	Me(ctx context.Context) (models.User, error)
}
