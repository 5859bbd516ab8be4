package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// UsageStatus is a user's entitlement snapshot. It is either a TrialUsage or a
// PaidUsage, never both.
type UsageStatus interface {
	isUsageStatus()
	// IsTrial reports whether the snapshot describes the free trial.
	IsTrial() bool
	// Formats returns the export formats the snapshot grants.
	Formats() []ExportFormat
}

// TrialUsage describes a user on the free trial.
type TrialUsage struct {
	Started          bool           `json:"trialStarted"`
	StartedAt        *time.Time     `json:"trialStartedAt,omitempty"`
	DaysElapsed      int            `json:"daysElapsed"`
	DaysRemaining    int            `json:"daysRemaining"`
	DaysTotal        int            `json:"daysTotal"`
	LessonsUsed      int            `json:"lessonsUsed"`
	LessonsRemaining int            `json:"lessonsRemaining"`
	LessonsTotal     int            `json:"lessonsTotal"`
	IsExpired        bool           `json:"isExpired"`
	ExpiredByTime    bool           `json:"expiredByTime"`
	ExpiredByLessons bool           `json:"expiredByLessons"`
	ExportFormats    []ExportFormat `json:"exportFormats"`
}

func (TrialUsage) isUsageStatus() {}

func (TrialUsage) IsTrial() bool { return true }

func (u TrialUsage) Formats() []ExportFormat {
	if len(u.ExportFormats) == 0 {
		return []ExportFormat{FormatPDF}
	}
	return u.ExportFormats
}

func (u TrialUsage) MarshalJSON() ([]byte, error) {
	type fields TrialUsage
	f := fields(u)
	f.ExportFormats = u.Formats()
	return json.Marshal(struct {
		IsTrial     bool   `json:"isTrial"`
		HasPaidPlan bool   `json:"hasPaidPlan"`
		Plan        string `json:"plan"`
		fields
	}{true, false, PlanTrial, f})
}

// PaidUsage describes a user on a paid tier.
type PaidUsage struct {
	Plan             PlanTier       `json:"plan"`
	DailyCount       int            `json:"dailyCount"`
	DailyMax         int            `json:"dailyMax"`
	DailyRemaining   int            `json:"dailyRemaining"`
	MonthlyCount     int            `json:"monthlyCount"`
	MonthlyMax       int            `json:"monthlyMax"`
	MonthlyRemaining int            `json:"monthlyRemaining"`
	ExportFormats    []ExportFormat `json:"exportFormats"`
}

func (PaidUsage) isUsageStatus() {}

func (PaidUsage) IsTrial() bool { return false }

func (u PaidUsage) Formats() []ExportFormat {
	if len(u.ExportFormats) == 0 {
		return DefaultExportFormats(u.Plan)
	}
	return u.ExportFormats
}

func (u PaidUsage) MarshalJSON() ([]byte, error) {
	type fields PaidUsage
	f := fields(u)
	f.ExportFormats = u.Formats()
	return json.Marshal(struct {
		IsTrial     bool `json:"isTrial"`
		HasPaidPlan bool `json:"hasPaidPlan"`
		fields
	}{false, true, f})
}

// AllowsFormat reports whether the snapshot grants the export format.
func AllowsFormat(s UsageStatus, f ExportFormat) bool {
	if s == nil {
		return false
	}
	for _, g := range s.Formats() {
		if g == f {
			return true
		}
	}
	return false
}

// DenialReason says why a generation request was refused.
type DenialReason string

const (
	DenialTrialExpiredTime    DenialReason = "trial_expired_time"
	DenialTrialExpiredLessons DenialReason = "trial_expired_lessons"
	DenialDailyLimit          DenialReason = "daily_limit"
	DenialMonthlyLimit        DenialReason = "monthly_limit"
)

// Denial carries enough detail for the client to render an upgrade prompt.
type Denial struct {
	Reason DenialReason `json:"reason"`
	Used   int          `json:"used"`
	Max    int          `json:"max"`
	Plan   string       `json:"plan"`
}

// ExpiredBy returns "time" or "lessons" for trial denials, "" otherwise.
func (d Denial) ExpiredBy() string {
	switch d.Reason {
	case DenialTrialExpiredTime:
		return "time"
	case DenialTrialExpiredLessons:
		return "lessons"
	}
	return ""
}

// LimitType returns "daily" or "monthly" for paid denials, "" otherwise.
func (d Denial) LimitType() string {
	switch d.Reason {
	case DenialDailyLimit:
		return "daily"
	case DenialMonthlyLimit:
		return "monthly"
	}
	return ""
}

// Message is the default user-facing text for the denial.
func (d Denial) Message() string {
	switch d.Reason {
	case DenialTrialExpiredTime:
		return fmt.Sprintf("Your %d-day free trial has ended. Please choose a plan to continue generating lessons.", TrialDays)
	case DenialTrialExpiredLessons:
		return fmt.Sprintf("You have used all %d free trial lessons. Please choose a plan to continue generating lessons.", d.Max)
	case DenialDailyLimit:
		return fmt.Sprintf("Daily limit reached (%d/%d). Your allowance resets tomorrow.", d.Used, d.Max)
	case DenialMonthlyLimit:
		return fmt.Sprintf("Monthly limit reached (%d/%d). Upgrade your plan for more lessons.", d.Used, d.Max)
	}
	return "Lesson limit reached."
}

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed bool
	Usage   UsageStatus
	Denial  *Denial
	Message string
}

// Evaluate decides whether a generation request against the snapshot would
// be admitted. It does not count anything.
func Evaluate(s UsageStatus) Decision {
	if reason, denied := denialReason(s); denied {
		d := DenialFor(reason, s)
		return Decision{Allowed: false, Usage: WithDenial(s, reason), Denial: &d, Message: d.Message()}
	}
	if s == nil {
		return Decision{Allowed: false, Message: "Unable to determine your plan."}
	}
	return Decision{Allowed: true, Usage: s}
}

func denialReason(s UsageStatus) (DenialReason, bool) {
	switch u := s.(type) {
	case TrialUsage:
		if u.ExpiredByTime || (u.Started && u.DaysTotal > 0 && u.DaysElapsed >= u.DaysTotal) {
			return DenialTrialExpiredTime, true
		}
		if u.ExpiredByLessons || u.LessonsUsed >= u.LessonsTotal {
			return DenialTrialExpiredLessons, true
		}
	case PaidUsage:
		if u.DailyCount >= u.DailyMax {
			return DenialDailyLimit, true
		}
		if u.MonthlyCount >= u.MonthlyMax {
			return DenialMonthlyLimit, true
		}
	}
	return "", false
}

// DenialFor builds a denial for reason with the counters taken from s.
// When reason is empty it is derived from s, falling back to the lesson
// allowance for trials and the daily cap for paid plans.
func DenialFor(reason DenialReason, s UsageStatus) Denial {
	if reason == "" {
		var ok bool
		if reason, ok = denialReason(s); !ok {
			if s != nil && s.IsTrial() {
				reason = DenialTrialExpiredLessons
			} else {
				reason = DenialDailyLimit
			}
		}
	}

	d := Denial{Reason: reason}
	switch u := s.(type) {
	case TrialUsage:
		d.Plan = PlanTrial
		if reason == DenialTrialExpiredTime {
			d.Used, d.Max = u.DaysElapsed, u.DaysTotal
		} else {
			d.Used, d.Max = u.LessonsUsed, u.LessonsTotal
		}
	case PaidUsage:
		d.Plan = string(u.Plan)
		if reason == DenialMonthlyLimit {
			d.Used, d.Max = u.MonthlyCount, u.MonthlyMax
		} else {
			d.Used, d.Max = u.DailyCount, u.DailyMax
		}
	}
	return d
}

// WithDenial returns s with its trial expiry flags set to match a denial
// for reason. Paid snapshots and non-trial reasons are returned unchanged.
func WithDenial(s UsageStatus, reason DenialReason) UsageStatus {
	u, ok := s.(TrialUsage)
	if !ok {
		return s
	}
	switch reason {
	case DenialTrialExpiredTime:
		u.ExpiredByTime = true
	case DenialTrialExpiredLessons:
		u.ExpiredByLessons = true
		u.LessonsRemaining = 0
	default:
		return s
	}
	u.IsExpired = true
	return u
}

// ReasonFromRPC maps the procedure's expired_by / limit_type fields to a
// denial reason. It returns "" when neither is recognised.
func ReasonFromRPC(expiredBy, limitType string) DenialReason {
	switch {
	case expiredBy == "time":
		return DenialTrialExpiredTime
	case expiredBy == "lessons":
		return DenialTrialExpiredLessons
	case limitType == "daily":
		return DenialDailyLimit
	case limitType == "monthly":
		return DenialMonthlyLimit
	}
	return ""
}

// EntitlementState is the coarse state a user is in.
type EntitlementState string

const (
	StateUnknown          EntitlementState = "unknown"
	StateTrialActive      EntitlementState = "trial_active"
	StateTrialExpired     EntitlementState = "trial_expired"
	StatePaidWithinLimits EntitlementState = "paid_within_limits"
	StatePaidLimitReached EntitlementState = "paid_limit_reached"
)

// StateOf maps a snapshot to its entitlement state.
func StateOf(s UsageStatus) EntitlementState {
	if s == nil {
		return StateUnknown
	}
	allowed := Evaluate(s).Allowed
	switch {
	case s.IsTrial() && allowed:
		return StateTrialActive
	case s.IsTrial():
		return StateTrialExpired
	case allowed:
		return StatePaidWithinLimits
	default:
		return StatePaidLimitReached
	}
}

// WarningThreshold is the remaining allowance at or below which the client
// shows a low-usage banner.
const WarningThreshold = 2

// ShouldWarn reports whether the client should show the low-usage banner.
// A snapshot that is already denied gets the limit prompt instead.
func ShouldWarn(s UsageStatus) bool {
	if !Evaluate(s).Allowed {
		return false
	}
	switch u := s.(type) {
	case TrialUsage:
		if u.IsExpired || u.ExpiredByTime || u.ExpiredByLessons {
			return false
		}
		return u.LessonsRemaining <= WarningThreshold || (u.Started && u.DaysRemaining <= WarningThreshold)
	case PaidUsage:
		return u.MonthlyRemaining <= WarningThreshold
	}
	return false
}
