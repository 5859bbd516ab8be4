package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonlift/backend/internal/contextkeys"
	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/lessonfmt"
	"github.com/lessonlift/backend/internal/repository"
	"github.com/lessonlift/backend/internal/service"
)

type fakeLessons struct {
	result   *service.GenerateResult
	err      error
	gotReq   domain.LessonRequest
	gotLimit int
	lesson   *domain.Lesson
	doc      *lessonfmt.Document
}

func (f *fakeLessons) Generate(ctx context.Context, userID string, req domain.LessonRequest) (*service.GenerateResult, error) {
	f.gotReq = req
	return f.result, f.err
}

func (f *fakeLessons) History(ctx context.Context, userID string, limit int) ([]domain.LessonSummary, error) {
	f.gotLimit = limit
	return nil, f.err
}

func (f *fakeLessons) Get(ctx context.Context, userID string, id uuid.UUID) (*domain.Lesson, error) {
	if f.lesson == nil || f.lesson.ID != id {
		return nil, domain.ErrNotFound("lesson not found")
	}
	return f.lesson, nil
}

func (f *fakeLessons) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if f.lesson == nil || f.lesson.ID != id {
		return domain.ErrNotFound("lesson not found")
	}
	return nil
}

func (f *fakeLessons) Export(ctx context.Context, userID string, id uuid.UUID, format string) (*lessonfmt.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func authed(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), contextkeys.UserID, "user-1")
	ctx = context.WithValue(ctx, contextkeys.UserEmail, "teacher@example.com")
	ctx = context.WithValue(ctx, contextkeys.UserRole, domain.RoleUser)
	return r.WithContext(ctx)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const generateBody = `{"yearGroup":"Year 5","abilityLevel":"Mixed","lessonDuration":45,"subject":"Science","topic":"Forces"}`

func postGenerate(h *LessonHandler, body string) *httptest.ResponseRecorder {
	req := authed(httptest.NewRequest(http.MethodPost, "/functions/v1/generate-lesson", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	return rec
}

func TestGenerate_Success(t *testing.T) {
	usage := domain.TrialUsage{Started: true, LessonsUsed: 2, LessonsRemaining: 3, LessonsTotal: 5, DaysTotal: 7}
	lesson := &domain.Lesson{ID: uuid.New(), Subject: "Science", Topic: "Forces", Content: "<div></div>", Text: "LESSON PLAN", CreatedAt: time.Now()}
	svc := &fakeLessons{result: &service.GenerateResult{
		Decision: &domain.Decision{Allowed: true, Usage: usage},
		Lesson:   lesson,
		Attempts: 1,
		MetFloor: true,
	}}

	rec := postGenerate(NewLessonHandler(svc), generateBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 45, svc.gotReq.LessonDuration)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	l := body["lesson"].(map[string]interface{})
	assert.Equal(t, lesson.ID.String(), l["id"])
	assert.Equal(t, "<div></div>", l["html"])
	assert.Equal(t, "LESSON PLAN", l["text"])

	u := body["usage"].(map[string]interface{})
	assert.Equal(t, true, u["isTrial"])
	assert.Equal(t, float64(2), u["lessonsUsed"])
	assert.Equal(t, float64(3), u["lessonsRemaining"])
}

func TestGenerate_PaidUsage(t *testing.T) {
	usage := domain.PaidUsage{Plan: domain.PlanStandard, DailyCount: 1, DailyMax: 3, DailyRemaining: 2, MonthlyCount: 11, MonthlyMax: 90, MonthlyRemaining: 79}
	svc := &fakeLessons{result: &service.GenerateResult{
		Decision: &domain.Decision{Allowed: true, Usage: usage},
		Lesson:   &domain.Lesson{ID: uuid.New()},
	}}

	rec := postGenerate(NewLessonHandler(svc), generateBody)
	require.Equal(t, http.StatusOK, rec.Code)

	u := decode(t, rec)["usage"].(map[string]interface{})
	assert.Equal(t, false, u["isTrial"])
	assert.Equal(t, "standard", u["plan"])
	assert.Equal(t, float64(2), u["dailyRemaining"])
	assert.Equal(t, float64(79), u["monthlyRemaining"])
}

func TestGenerate_TrialLimit(t *testing.T) {
	usage := domain.TrialUsage{Started: true, LessonsUsed: 5, LessonsTotal: 5, DaysTotal: 7, IsExpired: true, ExpiredByLessons: true}
	denial := domain.DenialFor(domain.DenialTrialExpiredLessons, usage)
	svc := &fakeLessons{result: &service.GenerateResult{
		Decision: &domain.Decision{Allowed: false, Usage: usage, Denial: &denial, Message: denial.Message()},
	}}

	rec := postGenerate(NewLessonHandler(svc), generateBody)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["limitReached"])
	assert.Equal(t, true, body["isTrial"])
	assert.Equal(t, true, body["trialExpired"])
	assert.Equal(t, "lessons", body["expiredBy"])
	assert.Equal(t, float64(5), body["lessonsUsed"])
	assert.Equal(t, denial.Message(), body["error"])
	assert.NotContains(t, body, "limitType")
}

func TestGenerate_DailyLimit(t *testing.T) {
	usage := domain.PaidUsage{Plan: domain.PlanStarter, DailyCount: 1, DailyMax: 1, MonthlyCount: 12, MonthlyMax: 30}
	denial := domain.DenialFor(domain.DenialDailyLimit, usage)
	svc := &fakeLessons{result: &service.GenerateResult{
		Decision: &domain.Decision{Allowed: false, Usage: usage, Denial: &denial, Message: "Daily limit reached (1/1)"},
	}}

	rec := postGenerate(NewLessonHandler(svc), generateBody)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["isTrial"])
	assert.Equal(t, "daily", body["limitType"])
	assert.Equal(t, float64(1), body["currentCount"])
	assert.Equal(t, float64(1), body["maxCount"])
	assert.Equal(t, "starter", body["plan"])
	assert.Equal(t, float64(12), body["monthlyCount"])
	assert.Equal(t, float64(30), body["monthlyMax"])
	assert.Equal(t, "Daily limit reached (1/1)", body["error"])
}

func TestGenerate_Failures(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		rec := postGenerate(NewLessonHandler(&fakeLessons{}), "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "invalid JSON body", body["error"])
	})

	t.Run("oversized body", func(t *testing.T) {
		svc := &fakeLessons{}
		big := `{"yearGroup":"Year 5","senEalNotes":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
		rec := postGenerate(NewLessonHandler(svc), big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "request body too large", body["error"])
		assert.Empty(t, svc.gotReq.YearGroup)
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &fakeLessons{err: domain.ErrFailed("Failed to generate lesson. Please try again.", domain.ErrGenerationFailed)}
		rec := postGenerate(NewLessonHandler(svc), generateBody)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Failed to generate lesson. Please try again.", body["error"])
	})

	t.Run("unexpected error", func(t *testing.T) {
		svc := &fakeLessons{err: errors.New("boom")}
		rec := postGenerate(NewLessonHandler(svc), generateBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decode(t, rec)["error"])
	})
}

type failingGenerator struct{ err error }

func (g failingGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	return "", g.err
}

type noLessons struct{}

func (noLessons) Create(ctx context.Context, l *domain.Lesson) error { return nil }

func (noLessons) ListByUser(ctx context.Context, userID string, limit int) ([]domain.LessonSummary, error) {
	return nil, nil
}

func (noLessons) FindByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Lesson, error) {
	return nil, nil
}

func (noLessons) Delete(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	return false, nil
}

func TestGenerate_UpstreamErrorReachesClient(t *testing.T) {
	gate := service.NewEntitlementGate(statusBackend{
		allowed: true,
		status:  domain.TrialUsage{Started: true, DaysTotal: 7, LessonsUsed: 1, LessonsRemaining: 4, LessonsTotal: 5},
	}, zerolog.Nop())
	gen := failingGenerator{err: errors.New("OpenAI API error: status 429: You exceeded your current quota")}
	svc := service.NewLessonService(noLessons{}, gate, gen, zerolog.Nop())

	rec := postGenerate(NewLessonHandler(svc), generateBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "OpenAI API error: status 429: You exceeded your current quota", body["error"])
}

func lessonRouter(h *LessonHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, authed(r))
		})
	})
	r.Get("/api/lessons", h.List)
	r.Get("/api/lessons/{id}", h.GetByID)
	r.Delete("/api/lessons/{id}", h.Delete)
	r.Get("/api/lessons/{id}/export", h.Export)
	return r
}

func TestLessonRoutes(t *testing.T) {
	lesson := &domain.Lesson{ID: uuid.New(), UserID: "user-1", Subject: "Maths", Topic: "Fractions"}
	svc := &fakeLessons{
		lesson: lesson,
		doc:    &lessonfmt.Document{Filename: "maths_fractions.txt", ContentType: "text/plain; charset=utf-8", Body: []byte("LESSON PLAN")},
	}
	router := lessonRouter(NewLessonHandler(svc))

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	t.Run("list", func(t *testing.T) {
		rec := serve(http.MethodGet, "/api/lessons?limit=5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, svc.gotLimit)
		assert.Equal(t, []interface{}{}, decode(t, rec)["data"])
	})

	t.Run("list bad limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(http.MethodGet, "/api/lessons?limit=abc").Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(http.MethodGet, "/api/lessons/"+lesson.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Fractions", decode(t, rec)["topic"])
	})

	t.Run("get malformed id", func(t *testing.T) {
		rec := serve(http.MethodGet, "/api/lessons/not-a-uuid")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "lesson not found", decode(t, rec)["error"])
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(http.MethodDelete, "/api/lessons/"+lesson.ID.String()).Code)
		assert.Equal(t, http.StatusNotFound, serve(http.MethodDelete, "/api/lessons/"+uuid.NewString()).Code)
	})

	t.Run("export", func(t *testing.T) {
		rec := serve(http.MethodGet, "/api/lessons/"+lesson.ID.String()+"/export?format=txt")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="maths_fractions.txt"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "LESSON PLAN", rec.Body.String())
	})

	t.Run("export not in plan", func(t *testing.T) {
		svc.err = domain.ErrForbidden("Your plan does not include docx export", domain.ErrExportNotAllowed)
		defer func() { svc.err = nil }()
		rec := serve(http.MethodGet, "/api/lessons/"+lesson.ID.String()+"/export?format=docx")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Your plan does not include docx export", decode(t, rec)["error"])
	})
}

type fakeUsage struct {
	status domain.UsageStatus
	err    error
}

func (f fakeUsage) Status(ctx context.Context, userID string) (domain.UsageStatus, error) {
	return f.status, f.err
}

func getUsage(src UsageSource) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewUsageHandler(src).Get(rec, authed(httptest.NewRequest(http.MethodGet, "/functions/v1/usage", nil)))
	return rec
}

func TestUsage_ActiveTrial(t *testing.T) {
	rec := getUsage(fakeUsage{status: domain.TrialUsage{
		Started: true, DaysElapsed: 2, DaysRemaining: 5, DaysTotal: 7,
		LessonsUsed: 3, LessonsRemaining: 2, LessonsTotal: 5,
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "trial_active", body["state"])
	assert.Equal(t, true, body["canGenerate"])
	assert.Equal(t, true, body["warning"])
	assert.NotContains(t, body, "denial")

	u := body["usage"].(map[string]interface{})
	assert.Equal(t, true, u["isTrial"])
	assert.Equal(t, "trial", u["plan"])
	assert.Equal(t, float64(2), u["lessonsRemaining"])
}

func TestUsage_PaidLimitReached(t *testing.T) {
	rec := getUsage(fakeUsage{status: domain.PaidUsage{
		Plan: domain.PlanPro, DailyCount: 5, DailyMax: 5, MonthlyCount: 40, MonthlyMax: 150, MonthlyRemaining: 110,
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "paid_limit_reached", body["state"])
	assert.Equal(t, false, body["canGenerate"])
	assert.Equal(t, false, body["warning"])
	d := body["denial"].(map[string]interface{})
	assert.Equal(t, "daily_limit", d["reason"])
	assert.Equal(t, "pro", d["plan"])
}

type statusBackend struct {
	allowed bool
	status  domain.UsageStatus
}

func (b statusBackend) CheckAndIncrement(ctx context.Context, userID string) (*repository.UsageCheck, error) {
	return &repository.UsageCheck{Allowed: b.allowed, Status: b.status}, nil
}

func (b statusBackend) Status(ctx context.Context, userID string) (domain.UsageStatus, error) {
	return b.status, nil
}

func TestUsage_ExhaustedTrialThroughGate(t *testing.T) {
	gate := service.NewEntitlementGate(statusBackend{status: domain.TrialUsage{
		Started: true, DaysElapsed: 1, DaysRemaining: 6, DaysTotal: 7,
		LessonsUsed: 5, LessonsTotal: 5,
	}}, zerolog.Nop())

	rec := getUsage(gate)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "trial_expired", body["state"])
	assert.Equal(t, false, body["canGenerate"])
	assert.Equal(t, false, body["warning"])

	u := body["usage"].(map[string]interface{})
	assert.Equal(t, true, u["isExpired"])
	assert.Equal(t, true, u["expiredByLessons"])
	assert.Equal(t, false, u["expiredByTime"])
	assert.Equal(t, float64(0), u["lessonsRemaining"])

	d := body["denial"].(map[string]interface{})
	assert.Equal(t, "trial_expired_lessons", d["reason"])
}

func TestUsage_Error(t *testing.T) {
	rec := getUsage(fakeUsage{err: domain.ErrGateUnavailable})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to get usage status", body["error"])
}

type fakeCheckout struct {
	resp   *service.CheckoutResponse
	err    error
	sess   *domain.Session
	req    service.CheckoutRequest
	origin string
}

func (f *fakeCheckout) CreateCheckout(ctx context.Context, sess *domain.Session, req service.CheckoutRequest, origin string) (*service.CheckoutResponse, error) {
	f.sess, f.req, f.origin = sess, req, origin
	return f.resp, f.err
}

func TestCreateCheckout(t *testing.T) {
	fc := &fakeCheckout{resp: &service.CheckoutResponse{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}}
	h := NewPaymentHandler(fc)

	req := authed(httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout-session",
		strings.NewReader(`{"priceId":"price_1","planType":"pro"}`)))
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "cs_test_1", body["sessionId"])
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", body["url"])
	assert.Equal(t, "teacher@example.com", fc.sess.Email)
	assert.Equal(t, "pro", fc.req.PlanType)
	assert.Equal(t, "http://localhost:5173", fc.origin)
}

func TestCreateCheckout_Errors(t *testing.T) {
	fc := &fakeCheckout{err: domain.ErrBadRequest("Invalid plan type")}
	h := NewPaymentHandler(fc)

	req := authed(httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout-session",
		strings.NewReader(`{"priceId":"price_1","planType":"gold"}`)))
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Invalid plan type"}, decode(t, rec))

	rec = httptest.NewRecorder()
	h.CreateCheckout(rec, httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout-session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlans(t *testing.T) {
	rec := httptest.NewRecorder()
	NewPlansHandler(domain.NewPlanCatalog("", "", "price_pro")).List(rec, httptest.NewRequest(http.MethodGet, "/api/plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	plans := body["plans"].([]interface{})
	require.Len(t, plans, 3)
	pro := plans[2].(map[string]interface{})
	assert.Equal(t, "pro", pro["id"])
	assert.Equal(t, "price_pro", pro["priceId"])
	assert.Equal(t, float64(5), body["trial"].(map[string]interface{})["lessons"])
}

func TestHealth(t *testing.T) {
	up := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("refused") })

	rec := httptest.NewRecorder()
	NewHealthHandler(up, nil).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["database"])

	rec = httptest.NewRecorder()
	NewHealthHandler(up, down).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "error", body["redis"])
}

type fakeStats struct {
	stats *domain.AdminStats
	err   error
}

func (f fakeStats) Stats(ctx context.Context) (*domain.AdminStats, error) {
	return f.stats, f.err
}

func TestAdminStats(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAdminHandler(fakeStats{stats: &domain.AdminStats{TotalLessons: 42, LessonsLast24h: 7, DistinctUsers: 9}}).
		GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(42), body["totalLessons"])
	assert.Equal(t, float64(9), body["distinctUsers"])

	rec = httptest.NewRecorder()
	NewAdminHandler(fakeStats{err: errors.New("db down")}).
		GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
