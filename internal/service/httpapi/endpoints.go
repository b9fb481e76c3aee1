package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service"
)

var _ service.ScheduleService = (*Client)(nil)

const driversPerPage = 100

func (c *Client) GetSnapshot(ctx context.Context, date string) (models.ScheduleSnapshot, error) {
	return getJSON[models.ScheduleSnapshot](ctx, c, "/schedules/"+url.PathEscape(date)+"/trip-groups", nil)
}

func (c *Client) GenerateSchedule(ctx context.Context, date string, overwrite bool) (models.GenerateResult, error) {
	return sendJSON[models.GenerateResult](ctx, c, http.MethodPost,
		"/schedules/"+url.PathEscape(date)+"/generate", models.GenerateRequest{OverwriteExisting: overwrite})
}

func (c *Client) LockSchedule(ctx context.Context, date string) (models.MessageResult, error) {
	return sendJSON[models.MessageResult](ctx, c, http.MethodPost, "/schedules/"+url.PathEscape(date)+"/lock", nil)
}

func (c *Client) UnlockSchedule(ctx context.Context, date string) (models.MessageResult, error) {
	return sendJSON[models.MessageResult](ctx, c, http.MethodPost, "/schedules/"+url.PathEscape(date)+"/unlock", nil)
}

func (c *Client) GetTrip(ctx context.Context, id int64) (models.Trip, error) {
	return getJSON[models.Trip](ctx, c, fmt.Sprintf("/schedules/trips/%d", id), nil)
}

func (c *Client) UpdateTrip(ctx context.Context, id int64, patch models.TripPatch) (models.Trip, error) {
	return sendJSON[models.Trip](ctx, c, http.MethodPut, fmt.Sprintf("/schedules/trips/%d", id), patch)
}

func (c *Client) AssignTrip(ctx context.Context, id int64, a models.TripAssignment) (models.Trip, error) {
	return sendJSON[models.Trip](ctx, c, http.MethodPatch, fmt.Sprintf("/schedules/trips/%d/assign", id), a)
}

func (c *Client) DeleteTrip(ctx context.Context, id int64) error {
	return send(ctx, c, http.MethodDelete, fmt.Sprintf("/schedules/trips/%d", id), nil, nil)
}

func (c *Client) CreateOnDemandDelivery(ctx context.Context, date string, req models.OnDemandRequest) (models.OnDemandResult, error) {
	return sendJSON[models.OnDemandResult](ctx, c, http.MethodPost, "/schedules/"+url.PathEscape(date)+"/on-demand", req)
}

func (c *Client) ListDrivers(ctx context.Context, activeOnly bool) ([]models.Driver, error) {
	var drivers []models.Driver
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(driversPerPage))
		if activeOnly {
			q.Set("is_active", "true")
		}
		p, err := getJSON[models.DriverPage](ctx, c, "/drivers", q)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, p.Items...)
		if page >= p.Pages || len(p.Items) == 0 {
			return drivers, nil
		}
	}
}

func (c *Client) GetDriverDays(ctx context.Context, driverID int64, from, to string) ([]models.DriverDay, error) {
	q := url.Values{}
	q.Set("start_date", from)
	q.Set("end_date", to)
	return getJSON[[]models.DriverDay](ctx, c, fmt.Sprintf("/drivers/%d/schedule", driverID), q)
}

func (c *Client) GetAllDriverDays(ctx context.Context, from, to string) (map[int64]models.DriverCalendar, error) {
	q := url.Values{}
	q.Set("start_date", from)
	q.Set("end_date", to)
	return getJSON[map[int64]models.DriverCalendar](ctx, c, "/drivers/schedules/all", q)
}

func (c *Client) SetDriverDayStatus(ctx context.Context, driverID int64, req models.DriverDayRequest) (models.DriverDay, error) {
	return sendJSON[models.DriverDay](ctx, c, http.MethodPost, fmt.Sprintf("/drivers/%d/schedule", driverID), req)
}

func (c *Client) BulkSetDriverDayStatus(ctx context.Context, driverID int64, req models.BulkDriverDayRequest) (models.BulkResult, error) {
	return sendJSON[models.BulkResult](ctx, c, http.MethodPost, fmt.Sprintf("/drivers/%d/schedule/bulk", driverID), req)
}

func (c *Client) GetWeeklyAssignments(ctx context.Context, weekStart string) (models.WeeklyAssignments, error) {
	q := url.Values{}
	q.Set("week_start", weekStart)
	return getJSON[models.WeeklyAssignments](ctx, c, "/assignments", q)
}

func (c *Client) CreateAssignment(ctx context.Context, req models.AssignmentRequest) (models.Assignment, error) {
	return sendJSON[models.Assignment](ctx, c, http.MethodPost, "/assignments", req)
}

func (c *Client) DeleteAssignment(ctx context.Context, id int64) error {
	return send(ctx, c, http.MethodDelete, fmt.Sprintf("/assignments/%d", id), nil, nil)
}

func (c *Client) ClearWeekAssignments(ctx context.Context, weekStart string) (models.MessageResult, error) {
	return sendJSON[models.MessageResult](ctx, c, http.MethodDelete, "/assignments/week/"+url.PathEscape(weekStart), nil)
}

func (c *Client) AutoAssign(ctx context.Context, req models.AutoAssignRequest) (models.AutoAssignResult, error) {
	return sendJSON[models.AutoAssignResult](ctx, c, http.MethodPost, "/assignments/auto-assign", req)
}

func (c *Client) GetCompatibleTankers(ctx context.Context, customerID int64, tripID *int64) ([]models.Tanker, error) {
	q := url.Values{}
	q.Set("customer_id", strconv.FormatInt(customerID, 10))
	if tripID != nil {
		q.Set("trip_id", strconv.FormatInt(*tripID, 10))
	}
	return getJSON[[]models.Tanker](ctx, c, "/tankers/compatible", q)
}

func (c *Client) GetAlerts(ctx context.Context, date string) (models.AlertFeed, error) {
	q := url.Values{}
	q.Set("summary_date", date)
	return getJSON[models.AlertFeed](ctx, c, "/dashboard/alerts", q)
}

// Login exchanges credentials for a token. It is a write: never retried.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.TokenResponse, error) {
	return sendJSON[models.TokenResponse](ctx, c, http.MethodPost, "/auth/login", req)
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	return getJSON[models.User](ctx, c, "/auth/me", nil)
}
