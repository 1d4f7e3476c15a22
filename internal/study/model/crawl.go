package model

import "time"

// CrawlAction is the decision taken for one submission during a crawl run.
type CrawlAction string

const (
	ActionRecorded CrawlAction = "RECORDED"
	ActionSkipped  CrawlAction = "SKIPPED"
)

// CrawlResult is one entry of a run's decision log.
type CrawlResult struct {
	UserID    string      `json:"userId"`
	ProblemID int64       `json:"problemId"`
	Action    CrawlAction `json:"action"`
}

const CrawlFinishedEventType = "crawl.finished"

// CrawlFinishedEvent is published once per crawl run.
type CrawlFinishedEvent struct {
	EventType        string    `json:"event_type"`
	HistoryID        int64     `json:"history_id"`
	Success          bool      `json:"success"`
	RecordsProcessed int       `json:"records_processed"`
	UsersFailed      int       `json:"users_failed"`
	GroupsFailed     int       `json:"groups_failed"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Error            string    `json:"error,omitempty"`
}
