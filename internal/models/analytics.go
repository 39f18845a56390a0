package models

import "time"

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ScoreGrade is the letter band attached to an optimization score.
type ScoreGrade string

// TermScore is the 0-100 composite quality score of a committed timetable.
type TermScore struct {
	TermID           string     `json:"term_id"`
	Score            float64    `json:"score"`
	Grade            ScoreGrade `json:"grade"`
	HardViolations   int        `json:"hard_violations"`
	SoftPenalty      float64    `json:"soft_penalty"`
	BalanceScore     float64    `json:"balance_score"`
	PreferenceScore  float64    `json:"preference_score"`
	UtilizationScore float64    `json:"utilization_score"`
	ComputedAt       time.Time  `json:"computed_at"`
}

// TeacherWorkload summarises per-teacher load over the active timetable.
type TeacherWorkload struct {
	TeacherID      string      `json:"teacher_id"`
	TeacherName    string      `json:"teacher_name"`
	TotalPeriods   int         `json:"total_periods"`
	PerDay         map[int]int `json:"per_day"`
	MaxConsecutive int         `json:"max_consecutive"`
	Overloaded     bool        `json:"overloaded"`
	Underutilized  bool        `json:"underutilized"`
}

// RoomUtilization reports usage of a room against the configured target band.
type RoomUtilization struct {
	RoomID      string  `json:"room_id"`
	RoomName    string  `json:"room_name"`
	UsedSlots   int     `json:"used_slots"`
	TotalSlots  int     `json:"total_slots"`
	UsageRate   float64 `json:"usage_rate"`
	BelowTarget bool    `json:"below_target"`
	AboveTarget bool    `json:"above_target"`
}

// Recommendation is a rule-derived improvement hint for administrators.
type Recommendation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
	Teacher string `json:"teacher,omitempty"`
	Room    string `json:"room,omitempty"`
}

// AnalyticsSystemMetrics is a lightweight snapshot of runtime instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	GenerationsTotal         uint64    `json:"generations_total"`
	AverageGenerationMs      float64   `json:"average_generation_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
