package models

import "time"

type HealthResponse struct {
	Status string `json:"status"`
}

type JobListResponse struct {
	Jobs  []Job `json:"jobs"`
	Count int   `json:"count"`
}

// FinishedJob is a completed job with its production time.
type FinishedJob struct {
	Job
	ElapsedHours *float64 `json:"elapsed_hours"`
}

type FinishedListResponse struct {
	Jobs  []FinishedJob `json:"jobs"`
	Count int           `json:"count"`
}

type StagesResponse struct {
	Stages                    []string `json:"stages"`
	Intake                    string   `json:"intake"`
	Terminal                  string   `json:"terminal"`
	MeasureFrom               string   `json:"measure_from,omitempty"`
	AllowArbitraryTransitions bool     `json:"allow_arbitrary_transitions"`
}

type Summary struct {
	Total     int            `json:"total"`
	ByStage   map[string]int `json:"by_stage"`
	NewOrders int            `json:"new_orders"`
	Overdue   int            `json:"overdue"`
	Finished  int            `json:"finished"`
}

// CalendarDay lists the jobs due on one day; Date is yyyy-mm-dd.
type CalendarDay struct {
	Date string `json:"date"`
	Jobs []Job  `json:"jobs"`
}

type CalendarResponse struct {
	Year  int           `json:"year"`
	Month time.Month    `json:"month"`
	Days  []CalendarDay `json:"days"`
	Total int           `json:"total"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}
