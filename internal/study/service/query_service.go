package service

import (
	"context"
	"fmt"
	"time"

	"dailystudy/internal/study/model"
	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/rules"
	pkgerrors "dailystudy/pkg/errors"
)

// DefaultPaidExcuse is the excuse value that marks a paid fine.
const DefaultPaidExcuse = "payed"

// MaxRangeDays bounds the effective range of Stats and MissedDays.
const MaxRangeDays = 366

// UserDaySummary is one roster user's records for a day.
type UserDaySummary struct {
	UserID   string                    `json:"userId"`
	Name     string                    `json:"name"`
	Status   model.RecordStatus        `json:"status"`
	Problems []*repository.DailyRecord `json:"problems"`
	Excuse   string                    `json:"excuse,omitempty"`
}

// DaySummary lists every roster user for one date.
type DaySummary struct {
	Date  string           `json:"date"`
	Users []UserDaySummary `json:"users"`
}

// UserStats counts missed days and paid excuses for one user.
type UserStats struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	MissingCount int    `json:"missingCount"`
	PayedCount   int    `json:"payedCount"`
}

// StatsReport covers [StartDate, EndDate], with EndDate capped at yesterday.
type StatsReport struct {
	StartDate string      `json:"startDate"`
	EndDate   string      `json:"endDate"`
	TotalDays int         `json:"totalDays"`
	Users     []UserStats `json:"users"`
}

// MissedDay is one user-day without any record.
type MissedDay struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Date   string `json:"date"`
}

// QueryService answers read-only questions about recorded days.
type QueryService struct {
	records    repository.DailyRecordRepository
	roster     model.Roster
	paidExcuse string
	now        func() time.Time
}

// NewQueryService creates a new QueryService. A nil now uses time.Now.
func NewQueryService(records repository.DailyRecordRepository, roster model.Roster, paidExcuse string, now func() time.Time) *QueryService {
	if paidExcuse == "" {
		paidExcuse = DefaultPaidExcuse
	}
	if now == nil {
		now = time.Now
	}
	return &QueryService{records: records, roster: roster, paidExcuse: paidExcuse, now: now}
}

// Today returns the current KST calendar date.
func (s *QueryService) Today() time.Time {
	return rules.DateOf(s.now())
}

// DaySubmissions summarizes date for every roster user, in roster order.
func (s *QueryService) DaySubmissions(ctx context.Context, date time.Time) (*DaySummary, error) {
	date = rules.DateOf(date)
	records, err := s.records.ListByDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list daily records failed: %w", err), pkgerrors.DatabaseError)
	}
	byUser := make(map[string][]*repository.DailyRecord)
	for _, rec := range records {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}

	summary := &DaySummary{Date: rules.FormatDate(date), Users: make([]UserDaySummary, 0, len(s.roster))}
	for _, entry := range s.roster {
		userRecords := byUser[entry.Handle]
		item := UserDaySummary{
			UserID:   entry.Handle,
			Name:     entry.Name,
			Status:   model.StatusNone,
			Problems: make([]*repository.DailyRecord, 0, len(userRecords)),
		}
		for _, rec := range userRecords {
			item.Problems = append(item.Problems, rec)
			switch rec.Status {
			case model.StatusPass:
				item.Status = model.StatusPass
			case model.StatusImage:
				if item.Status == model.StatusNone {
					item.Status = model.StatusImage
				}
				if item.Excuse == "" && rec.Excuse != nil {
					item.Excuse = *rec.Excuse
				}
			}
		}
		summary.Users = append(summary.Users, item)
	}
	return summary, nil
}

// Stats counts missing days per user over [start, min(end, yesterday)] and
// paid excuses over all time.
func (s *QueryService) Stats(ctx context.Context, start, end time.Time) (*StatsReport, error) {
	start, effectiveEnd, err := s.effectiveRange(start, end)
	if err != nil {
		return nil, err
	}
	days := dayCount(start, effectiveEnd)

	present := make(map[string]map[string]struct{})
	if days > 0 {
		present, err = s.presentDays(ctx, start, effectiveEnd)
		if err != nil {
			return nil, err
		}
	}
	paid, err := s.records.ListByExcuse(ctx, s.paidExcuse)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list paid excuses failed: %w", err), pkgerrors.DatabaseError)
	}
	paidByUser := make(map[string]int)
	for _, rec := range paid {
		paidByUser[rec.UserID]++
	}

	report := &StatsReport{
		StartDate: rules.FormatDate(start),
		EndDate:   rules.FormatDate(effectiveEnd),
		TotalDays: days,
		Users:     make([]UserStats, 0, len(s.roster)),
	}
	for _, entry := range s.roster {
		report.Users = append(report.Users, UserStats{
			UserID:       entry.Handle,
			Name:         entry.Name,
			MissingCount: days - len(present[entry.Handle]),
			PayedCount:   paidByUser[entry.Handle],
		})
	}
	return report, nil
}

// MissedDays lists every user-day without a record over the same range as Stats,
// ordered by date then roster order.
func (s *QueryService) MissedDays(ctx context.Context, start, end time.Time) ([]MissedDay, error) {
	start, effectiveEnd, err := s.effectiveRange(start, end)
	if err != nil {
		return nil, err
	}
	missed := make([]MissedDay, 0)
	if dayCount(start, effectiveEnd) == 0 {
		return missed, nil
	}
	present, err := s.presentDays(ctx, start, effectiveEnd)
	if err != nil {
		return nil, err
	}
	for d := start; !d.After(effectiveEnd); d = d.AddDate(0, 0, 1) {
		key := rules.FormatDate(d)
		for _, entry := range s.roster {
			if _, ok := present[entry.Handle][key]; !ok {
				missed = append(missed, MissedDay{UserID: entry.Handle, Name: entry.Name, Date: key})
			}
		}
	}
	return missed, nil
}

func (s *QueryService) effectiveRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = rules.DateOf(start), rules.DateOf(end)
	if start.After(end) {
		return time.Time{}, time.Time{}, pkgerrors.ValidationError("start", "start must not be after end")
	}
	yesterday := s.Today().AddDate(0, 0, -1)
	if end.After(yesterday) {
		end = yesterday
	}
	if !start.After(end) && start.AddDate(0, 0, MaxRangeDays).Before(end.AddDate(0, 0, 1)) {
		return time.Time{}, time.Time{}, pkgerrors.ValidationError("start", fmt.Sprintf("range must not exceed %d days", MaxRangeDays))
	}
	return start, end, nil
}

// presentDays maps user -> set of YYYY-MM-DD with at least one record.
func (s *QueryService) presentDays(ctx context.Context, start, end time.Time) (map[string]map[string]struct{}, error) {
	records, err := s.records.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list daily records failed: %w", err), pkgerrors.DatabaseError)
	}
	present := make(map[string]map[string]struct{})
	for _, rec := range records {
		days, ok := present[rec.UserID]
		if !ok {
			days = make(map[string]struct{})
			present[rec.UserID] = days
		}
		days[rec.DateString()] = struct{}{}
	}
	return present, nil
}

// dayCount returns the number of calendar days in [start, end], or 0 when start is after end.
func dayCount(start, end time.Time) int {
	if start.After(end) {
		return 0
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
