package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lessonlift/backend/internal/contextkeys"
	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/lessonfmt"
	"github.com/lessonlift/backend/internal/service"
)

// LessonService is what the lesson endpoints need from the service layer.
type LessonService interface {
	Generate(ctx context.Context, userID string, req domain.LessonRequest) (*service.GenerateResult, error)
	History(ctx context.Context, userID string, limit int) ([]domain.LessonSummary, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*domain.Lesson, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Export(ctx context.Context, userID string, id uuid.UUID, format string) (*lessonfmt.Document, error)
}

// LessonHandler handles lesson generation and the lesson library.
type LessonHandler struct {
	svc LessonService
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(svc LessonService) *LessonHandler {
	return &LessonHandler{svc: svc}
}

// Generate handles POST /functions/v1/generate-lesson.
func (h *LessonHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)

	var req domain.LessonRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Failure(w, r, err)
		return
	}

	res, err := h.svc.Generate(r.Context(), userID, req)
	if err != nil {
		Failure(w, r, err)
		return
	}

	if !res.Decision.Allowed {
		JSON(w, http.StatusTooManyRequests, limitBody(res.Decision))
		return
	}

	body := map[string]interface{}{
		"success": true,
		"lesson":  res.Lesson,
	}
	if usage := usageSummary(res.Decision.Usage); usage != nil {
		body["usage"] = usage
	}
	JSON(w, http.StatusOK, body)
}

// limitBody is the 429 payload the client turns into an upgrade prompt.
func limitBody(d *domain.Decision) map[string]interface{} {
	body := map[string]interface{}{
		"success":      false,
		"error":        d.Message,
		"limitReached": true,
		"isTrial":      d.Usage != nil && d.Usage.IsTrial(),
	}
	if d.Denial == nil {
		return body
	}

	if expiredBy := d.Denial.ExpiredBy(); expiredBy != "" {
		body["isTrial"] = true
		body["trialExpired"] = true
		body["expiredBy"] = expiredBy
		body["lessonsUsed"] = d.Denial.Used
		if t, ok := d.Usage.(domain.TrialUsage); ok {
			body["lessonsUsed"] = t.LessonsUsed
		}
		return body
	}

	body["limitType"] = d.Denial.LimitType()
	body["currentCount"] = d.Denial.Used
	body["maxCount"] = d.Denial.Max
	body["plan"] = d.Denial.Plan
	if p, ok := d.Usage.(domain.PaidUsage); ok {
		body["monthlyCount"] = p.MonthlyCount
		body["monthlyMax"] = p.MonthlyMax
	}
	return body
}

// usageSummary is the compact allowance echoed after a successful generation.
func usageSummary(s domain.UsageStatus) map[string]interface{} {
	switch u := s.(type) {
	case domain.TrialUsage:
		return map[string]interface{}{
			"isTrial":          true,
			"lessonsUsed":      u.LessonsUsed,
			"lessonsRemaining": u.LessonsRemaining,
		}
	case domain.PaidUsage:
		return map[string]interface{}{
			"isTrial":          false,
			"dailyCount":       u.DailyCount,
			"dailyMax":         u.DailyMax,
			"dailyRemaining":   u.DailyRemaining,
			"monthlyCount":     u.MonthlyCount,
			"monthlyMax":       u.MonthlyMax,
			"monthlyRemaining": u.MonthlyRemaining,
			"plan":             u.Plan,
		}
	}
	return nil
}

// List handles GET /api/lessons.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			Error(w, r, domain.ErrBadRequest("limit must be a number"))
			return
		}
		limit = n
	}

	lessons, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	if lessons == nil {
		lessons = []domain.LessonSummary{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": lessons})
}

// GetByID handles GET /api/lessons/{id}.
func (h *LessonHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	id, err := lessonID(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	lesson, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, http.StatusOK, lesson)
}

// Delete handles DELETE /api/lessons/{id}.
func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	id, err := lessonID(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Export handles GET /api/lessons/{id}/export?format=pdf|docx|txt.
func (h *LessonHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	id, err := lessonID(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(domain.FormatPDF)
	}

	doc, err := h.svc.Export(r.Context(), userID, id, format)
	if err != nil {
		Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// lessonID parses the {id} URL parameter. Malformed IDs are reported as
// missing lessons.
func lessonID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrNotFound("lesson not found")
	}
	return id, nil
}
