package instructor

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Handler serves the instructor panel: roster, grades and attendance.
type Handler struct {
	logger   *slog.Logger
	invoker  gateway.Invoker
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, invoker gateway.Invoker) *Handler {
	return &Handler{logger: logger, invoker: invoker, validate: validator.New()}
}

// MountRoutes registers instructor routes.
func (h *Handler) MountRoutes(r chi.Router, gate shared.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAPI(shared.RoleInstructor))
		r.Get("/students", h.listStudents)
		r.Post("/students", h.addStudent)
		r.Get("/grades", h.listGrades)
		r.Get("/grades/aggregate", h.aggregateGrades)
		r.Post("/grades", h.addGrade)
		r.Post("/grades/publish", h.publishGrade)
		r.Get("/attendance", h.viewAttendance)
		r.Post("/attendance/record", h.recordAttendance)
		r.Get("/student-profile", h.studentProfile)
	})
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.View(r.Context(), ident, "vw_instructor_students",
		gateway.WithOrderBy("full_name"))
	if err != nil {
		h.fail(w, err, "list students")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

type addStudentInput struct {
	StudentID      string `json:"student_id" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	DOB            string `json:"dob" validate:"required,datetime=2006-01-02"`
	Department     string `json:"department" validate:"required"`
	// Classification is optional and defaults to first year. An explicit
	// zero is rejected rather than silently promoted.
	Classification *int `json:"classification" validate:"omitempty,gte=1"`
}

func (h *Handler) addStudent(w http.ResponseWriter, r *http.Request) {
	var input addStudentInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "All student fields are required.")
		return
	}
	classification := 1
	if input.Classification != nil {
		classification = *input.Classification
	}

	ident := shared.IdentityFromContext(r.Context())
	_, err := h.invoker.Invoke(r.Context(), ident, "sp_add_student",
		input.StudentID, input.FullName, input.Email, input.Phone, input.DOB,
		input.Department, classification, ident.Username)
	if err != nil {
		h.fail(w, err, "add student")
		return
	}
	shared.OK(w, nil)
}

func (h *Handler) listGrades(w http.ResponseWriter, r *http.Request) {
	courseID, err := shared.RequireQueryInt64(r, "course_id")
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_get_grades", courseID)
	if err != nil {
		h.fail(w, err, "list grades")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

func (h *Handler) aggregateGrades(w http.ResponseWriter, r *http.Request) {
	courseID, err := shared.RequireQueryInt64(r, "course_id")
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_get_aggregate_grades", courseID)
	if err != nil {
		h.fail(w, err, "aggregate grades")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

type addGradeInput struct {
	StudentPKID int64   `json:"student_pk_id" validate:"required"`
	CourseID    int64   `json:"course_id" validate:"required"`
	GradeValue  float64 `json:"grade_value" validate:"gte=0"`
}

func (h *Handler) addGrade(w http.ResponseWriter, r *http.Request) {
	var input addGradeInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "student_pk_id and course_id must be integers and grade_value a number.")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Missing student_pk_id/course_id/grade_value")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	_, err := h.invoker.Invoke(r.Context(), ident, "sp_add_grade",
		input.StudentPKID, input.CourseID, input.GradeValue, ident.Username)
	if err != nil {
		h.fail(w, err, "add grade")
		return
	}
	shared.OK(w, nil)
}

type publishGradeInput struct {
	GradeID int64 `json:"grade_id" validate:"required"`
	Publish *bool `json:"publish" validate:"required"`
}

func (h *Handler) publishGrade(w http.ResponseWriter, r *http.Request) {
	var input publishGradeInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "grade_id must be an integer and publish true/false.")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Missing grade_id/publish")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	_, err := h.invoker.Invoke(r.Context(), ident, "sp_set_grade_published",
		string(ident.Role), input.GradeID, *input.Publish)
	if err != nil {
		h.fail(w, err, "publish grade")
		return
	}
	shared.OK(w, nil)
}

func (h *Handler) viewAttendance(w http.ResponseWriter, r *http.Request) {
	studentID, err := shared.QueryInt64(r, "student_id")
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	courseID, err := shared.QueryInt64(r, "course_id")
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_view_attendance",
		string(ident.Role), ident.Username, studentID, courseID)
	if err != nil {
		h.fail(w, err, "view attendance")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
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
