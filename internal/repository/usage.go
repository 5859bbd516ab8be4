package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lessonlift/backend/internal/domain"
)

// UsageCheck is the result of the atomic check-and-increment procedure.
type UsageCheck struct {
	Allowed   bool
	Message   string
	ExpiredBy string // "time" or "lessons" for trial denials
	LimitType string // "daily" or "monthly" for paid denials
	Status    domain.UsageStatus
}

// UsageRepository calls the usage procedures owned by the database.
type UsageRepository struct {
	db DBTX
}

func NewUsageRepository(db DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

// CheckAndIncrement atomically checks the user's allowance and, when allowed,
// counts one generation.
func (r *UsageRepository) CheckAndIncrement(ctx context.Context, userID string) (*UsageCheck, error) {
	rec, err := r.call(ctx, "SELECT check_and_increment_daily_count($1)", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check lesson limits: %w", err)
	}
	if rec.Allowed == nil {
		return nil, fmt.Errorf("failed to check lesson limits: response has no allowed flag")
	}
	return &UsageCheck{
		Allowed:   *rec.Allowed,
		Message:   rec.Message,
		ExpiredBy: rec.ExpiredBy,
		LimitType: rec.LimitType,
		Status:    rec.status(),
	}, nil
}

// Status returns the user's current entitlement snapshot without counting.
func (r *UsageRepository) Status(ctx context.Context, userID string) (domain.UsageStatus, error) {
	rec, err := r.call(ctx, "SELECT get_user_subscription_status($1)", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription status: %w", err)
	}
	return rec.status(), nil
}

func (r *UsageRepository) call(ctx context.Context, query, userID string) (*usageRecord, error) {
	var raw []byte
	if err := r.db.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		return nil, err
	}
	var rec usageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode usage response: %w", err)
	}
	return &rec, nil
}

// usageRecord mirrors the JSON both procedures return.
type usageRecord struct {
	Allowed   *bool  `json:"allowed"`
	Message   string `json:"message"`
	ExpiredBy string `json:"expired_by"`
	LimitType string `json:"limit_type"`

	IsTrial     bool   `json:"is_trial"`
	HasPaidPlan bool   `json:"has_paid_plan"`
	Plan        string `json:"plan"`

	TrialStarted     bool   `json:"trial_started"`
	TrialStartedAt   string `json:"trial_started_at"`
	DaysElapsed      int    `json:"days_elapsed"`
	DaysRemaining    *int   `json:"days_remaining"`
	DaysTotal        int    `json:"days_total"`
	LessonsUsed      int    `json:"lessons_used"`
	LessonsRemaining *int   `json:"lessons_remaining"`
	LessonsTotal     int    `json:"lessons_total"`
	IsExpired        bool   `json:"is_expired"`
	ExpiredByTime    bool   `json:"expired_by_time"`
	ExpiredByLessons bool   `json:"expired_by_lessons"`

	CurrentCount     int  `json:"current_count"`
	MaxCount         int  `json:"max_count"`
	Remaining        *int `json:"remaining"`
	MonthlyCurrent   int  `json:"monthly_current"`
	MonthlyMax       int  `json:"monthly_max"`
	MonthlyRemaining *int `json:"monthly_remaining"`

	ExportFormats []string `json:"export_formats"`
}

func (r *usageRecord) status() domain.UsageStatus {
	formats := make([]domain.ExportFormat, 0, len(r.ExportFormats))
	for _, f := range r.ExportFormats {
		if ef, ok := domain.ParseExportFormat(f); ok {
			formats = append(formats, ef)
		}
	}

	if r.IsTrial || (!r.HasPaidPlan && (r.Plan == "" || r.Plan == domain.PlanTrial)) {
		daysTotal := r.DaysTotal
		if daysTotal <= 0 {
			daysTotal = domain.TrialDays
		}
		lessonsTotal := r.LessonsTotal
		if lessonsTotal <= 0 {
			lessonsTotal = domain.TrialLessons
		}
		daysElapsed := nonNegative(r.DaysElapsed)
		lessonsUsed := nonNegative(r.LessonsUsed)

		u := domain.TrialUsage{
			Started:          r.TrialStarted,
			DaysElapsed:      daysElapsed,
			DaysRemaining:    remaining(r.DaysRemaining, daysTotal, daysElapsed),
			DaysTotal:        daysTotal,
			LessonsUsed:      lessonsUsed,
			LessonsRemaining: remaining(r.LessonsRemaining, lessonsTotal, lessonsUsed),
			LessonsTotal:     lessonsTotal,
			ExpiredByTime:    r.ExpiredByTime || r.ExpiredBy == "time",
			ExpiredByLessons: r.ExpiredByLessons || r.ExpiredBy == "lessons",
			ExportFormats:    formats,
		}
		u.IsExpired = r.IsExpired || u.ExpiredByTime || u.ExpiredByLessons
		if ts, err := time.Parse(time.RFC3339Nano, r.TrialStartedAt); err == nil {
			u.StartedAt = &ts
		}
		return u
	}

	daily := nonNegative(r.CurrentCount)
	monthly := nonNegative(r.MonthlyCurrent)
	return domain.PaidUsage{
		Plan:             domain.PlanTier(r.Plan),
		DailyCount:       daily,
		DailyMax:         nonNegative(r.MaxCount),
		DailyRemaining:   remaining(r.Remaining, r.MaxCount, daily),
		MonthlyCount:     monthly,
		MonthlyMax:       nonNegative(r.MonthlyMax),
		MonthlyRemaining: remaining(r.MonthlyRemaining, r.MonthlyMax, monthly),
		ExportFormats:    formats,
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// remaining returns the reported value, or max-used when it was omitted.
func remaining(reported *int, max, used int) int {
	if reported != nil {
		return nonNegative(*reported)
	}
	return nonNegative(max - used)
}
