package memory

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/logger"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/validation"
)

type handler struct {
	svc      *Service
	validate *validation.Validator
}

// NewHandler serves s over the Schedule Service REST routes under /api/v1,
// plus /health.
func NewHandler(s *Service) http.Handler {
	h := &handler{svc: s, validate: validation.Default()}

	r := chi.NewRouter()
	r.Use(h.logRequests)
	r.Use(h.recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": constants.Version})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Get("/auth/me", h.me)

			r.Route("/schedules", func(r chi.Router) {
				r.Route("/trips/{id}", func(r chi.Router) {
					r.Get("/", h.getTrip)
					r.Put("/", h.updateTrip)
					r.Delete("/", h.deleteTrip)
					r.Patch("/assign", h.assignTrip)
				})
				r.Route("/{date}", func(r chi.Router) {
					r.Get("/trip-groups", h.snapshot)
					r.Post("/generate", h.generate)
					r.Post("/lock", h.lock)
					r.Post("/unlock", h.unlock)
					r.Post("/on-demand", h.onDemand)
				})
			})

			r.Route("/drivers", func(r chi.Router) {
				r.Get("/", h.listDrivers)
				r.Get("/schedules/all", h.allDriverDays)
				r.Route("/{id}/schedule", func(r chi.Router) {
					r.Get("/", h.driverDays)
					r.Post("/", h.setDriverDay)
					r.Post("/bulk", h.bulkDriverDays)
				})
			})

			r.Route("/assignments", func(r chi.Router) {
				r.Get("/", h.weeklyAssignments)
				r.Post("/", h.createAssignment)
				r.Post("/auto-assign", h.autoAssign)
				r.Delete("/week/{week}", h.clearWeek)
				r.Delete("/{id}", h.deleteAssignment)
			})

			r.Get("/tankers/compatible", h.compatibleTankers)
			r.Get("/dashboard/alerts", h.alerts)
		})
	})
	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if id := r.Header.Get(constants.RequestIDHeader); id != "" {
			w.Header().Set(constants.RequestIDHeader, id)
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("handled request", "method", r.Method, "path", r.URL.Path, "status", sw.status,
			"req_id", r.Header.Get(constants.RequestIDHeader), "dur", time.Since(start).Round(time.Microsecond))
	})
}

func (h *handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler panic", "error", rec, "stack", string(debug.Stack()))
				writeError(w, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, fail(http.StatusUnauthorized, "Not authenticated"))
			return
		}
		u, err := h.svc.Authenticate(token)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response failed", "error", err)
	}
}

// writeError answers with {"detail": ...} like the real service
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var re *errors.RemoteError
	switch {
	case stderrors.As(err, &re):
		status = re.Status
		err = stderrors.New(re.Message)
	case errors.IsValidation(err):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func (h *handler) readJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &errors.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, errors.Invalid(name, "must be an integer")
	}
	return id, nil
}

func respond(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	respond(w, res, err)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context())
	respond(w, u, err)
}

func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSnapshot(r.Context(), chi.URLParam(r, "date"))
	respond(w, s, err)
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.GenerateSchedule(r.Context(), chi.URLParam(r, "date"), req.OverwriteExisting)
	respond(w, res, err)
}

func (h *handler) lock(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.LockSchedule(r.Context(), chi.URLParam(r, "date"))
	respond(w, res, err)
}

func (h *handler) unlock(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UnlockSchedule(r.Context(), chi.URLParam(r, "date"))
	respond(w, res, err)
}

func (h *handler) onDemand(w http.ResponseWriter, r *http.Request) {
	var req models.OnDemandRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.CreateOnDemandDelivery(r.Context(), chi.URLParam(r, "date"), req)
	respond(w, res, err)
}

func (h *handler) getTrip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.svc.GetTrip(r.Context(), id)
	respond(w, t, err)
}

func (h *handler) updateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var p models.TripPatch
	if err := h.readJSON(r, &p); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.svc.UpdateTrip(r.Context(), id, p)
	respond(w, t, err)
}

func (h *handler) assignTrip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var a models.TripAssignment
	if err := h.readJSON(r, &a); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.svc.AssignTrip(r.Context(), id, a)
	respond(w, t, err)
}

func (h *handler) deleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteTrip(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listDrivers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page = max(page, 1)
	if perPage <= 0 {
		perPage = 20
	}

	all, err := h.svc.ListDrivers(r.Context(), q.Get("is_active") == "true")
	if err != nil {
		writeError(w, err)
		return
	}
	out := models.DriverPage{Items: []models.Driver{}, Total: len(all), Page: page, PerPage: perPage,
		Pages: (len(all) + perPage - 1) / perPage}
	if from := (page - 1) * perPage; from < len(all) {
		out.Items = all[from:min(from+perPage, len(all))]
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) driverDays(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	days, err := h.svc.GetDriverDays(r.Context(), id, q.Get("start_date"), q.Get("end_date"))
	respond(w, days, err)
}

func (h *handler) allDriverDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	all, err := h.svc.GetAllDriverDays(r.Context(), q.Get("start_date"), q.Get("end_date"))
	respond(w, all, err)
}

func (h *handler) setDriverDay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.DriverDayRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.svc.SetDriverDayStatus(r.Context(), id, req)
	respond(w, d, err)
}

func (h *handler) bulkDriverDays(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.BulkDriverDayRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.BulkSetDriverDayStatus(r.Context(), id, req)
	respond(w, res, err)
}

func (h *handler) weeklyAssignments(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetWeeklyAssignments(r.Context(), r.URL.Query().Get("week_start"))
	respond(w, res, err)
}

func (h *handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.AssignmentRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.svc.CreateAssignment(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteAssignment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearWeek(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ClearWeekAssignments(r.Context(), chi.URLParam(r, "week"))
	respond(w, res, err)
}

func (h *handler) autoAssign(w http.ResponseWriter, r *http.Request) {
	var req models.AutoAssignRequest
	if err := h.readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.AutoAssign(r.Context(), req)
	respond(w, res, err)
}

func (h *handler) compatibleTankers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID, err := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	if err != nil {
		writeError(w, errors.Invalid("customer_id", "must be an integer"))
		return
	}
	var tripID *int64
	if raw := q.Get("trip_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, errors.Invalid("trip_id", "must be an integer"))
			return
		}
		tripID = &id
	}
	res, err := h.svc.GetCompatibleTankers(r.Context(), customerID, tripID)
	respond(w, res, err)
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetAlerts(r.Context(), r.URL.Query().Get("summary_date"))
	respond(w, res, err)
}
