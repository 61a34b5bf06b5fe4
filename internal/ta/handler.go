package ta

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Handler serves the teaching-assistant panel.
type Handler struct {
	logger   *slog.Logger
	invoker  gateway.Invoker
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, invoker gateway.Invoker) *Handler {
	return &Handler{logger: logger, invoker: invoker, validate: validator.New()}
}

// MountRoutes registers TA routes.
func (h *Handler) MountRoutes(r chi.Router, gate shared.Gate) {
	// The assigned-students view is keyed to the TA's own context binding,
	// so admin act-as has nothing to see there.
	r.With(gate.RequireExact(shared.RoleTA)).Get("/students", h.assignedStudents)

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAPI(shared.RoleTA))
		r.Get("/attendance", h.listAttendance)
		r.Post("/attendance/update", h.updateAttendance)
		r.Post("/attendance/record", h.recordAttendance)
		r.Get("/student-profile", h.studentProfile)
	})
}

func (h *Handler) assignedStudents(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.View(r.Context(), ident, "vw_ta_assigned_students",
		gateway.WithOrderBy("full_name"))
	if err != nil {
		h.fail(w, err, "assigned students")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

func (h *Handler) listAttendance(w http.ResponseWriter, r *http.Request) {
	courseID, err := shared.RequireQueryInt64(r, "course_id")
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_list_course_attendance",
		ident.Username, courseID)
	if err != nil {
		h.fail(w, err, "list attendance")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

type updateAttendanceInput struct {
	AttendanceID int64 `json:"attendance_id" validate:"required"`
	NewStatus    *bool `json:"new_status" validate:"required"`
}

func (h *Handler) updateAttendance(w http.ResponseWriter, r *http.Request) {
	var input updateAttendanceInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "attendance_id must be an integer and new_status true/false.")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Missing attendance_id/new_status")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	_, err := h.invoker.Invoke(r.Context(), ident, "sp_update_attendance",
		input.AttendanceID, *input.NewStatus, ident.Username)
	if err != nil {
		h.fail(w, err, "update attendance")
		return
	}
	shared.OK(w, nil)
}

type recordAttendanceInput struct {
	StudentID int64 `json:"student_id" validate:"required"`
	CourseID  int64 `json:"course_id" validate:"required"`
	Status    *bool `json:"status" validate:"required"`
}

func (h *Handler) recordAttendance(w http.ResponseWriter, r *http.Request) {
	var input recordAttendanceInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "student_id and course_id must be integers and status true/false.")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Missing student_id/course_id/status")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	_, err := h.invoker.Invoke(r.Context(), ident, "sp_record_attendance",
		string(ident.Role), ident.Username, input.StudentID, input.CourseID, *input.Status)
	if err != nil {
		h.fail(w, err, "record attendance")
		return
	}
	shared.OK(w, nil)
}

func (h *Handler) studentProfile(w http.ResponseWriter, r *http.Request) {
	studentID, err := shared.RequireQueryInt64(r, "student_id")
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, "student_id is required and must be a number.")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_view_student_profile",
		string(ident.Role), ident.Username, studentID)
	if err != nil {
		h.fail(w, err, "student profile")
		return
	}
	record, ok := result.First()
	if !ok {
		shared.Fail(w, http.StatusNotFound, "No access or student not found.")
		return
	}
	shared.OK(w, map[string]any{"profile": record})
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	if remote, ok := gateway.AsRemoteError(err); ok {
		shared.Fail(w, http.StatusBadRequest, remote.Message)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	shared.Fail(w, http.StatusInternalServerError, "Operation failed")
}
