package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dailystudy/internal/common/db"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/rules"
	pkgrepo "dailystudy/pkg/repository"
)

// ErrDuplicateRecord is returned when (user, date, problem) already exists.
var ErrDuplicateRecord = fmt.Errorf("daily record: %w", pkgrepo.ErrAlreadyExists)

// DailyRecord is one row per (user, calendar date, problem).
// ProblemID is nil only for IMAGE records without a problem.
type DailyRecord struct {
	ID         int64              `json:"id"`
	UserID     string             `json:"userId"`
	Date       time.Time          `json:"-"`
	Status     model.RecordStatus `json:"status"`
	ProblemID  *int64             `json:"problemId"`
	TitleKo    string             `json:"titleKo,omitempty"`
	Level      int                `json:"level,omitempty"`
	Tier       string             `json:"tier,omitempty"`
	SubmitTime string             `json:"submitTime"`
	Excuse     *string            `json:"excuse"`
}

// DateString returns the record date as YYYY-MM-DD.
func (r *DailyRecord) DateString() string {
	return rules.FormatDate(r.Date)
}

// MarshalJSON renders Date as a plain YYYY-MM-DD string.
func (r DailyRecord) MarshalJSON() ([]byte, error) {
	type plain DailyRecord
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain: plain(r), Date: r.DateString()})
}

// DailyRecordRepository persists daily records. Rows are only ever inserted.
type DailyRecordRepository interface {
	Create(ctx context.Context, tx db.Transaction, record *DailyRecord) (int64, error)
	FindByUserAndDate(ctx context.Context, tx db.Transaction, userID string, date time.Time) ([]*DailyRecord, error)
	ListByDate(ctx context.Context, date time.Time) ([]*DailyRecord, error)
	// ListByDateRange returns records with start <= date <= end.
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*DailyRecord, error)
	ListByExcuse(ctx context.Context, excuse string) ([]*DailyRecord, error)
}

// MySQLDailyRecordRepository implements DailyRecordRepository with MySQL.
type MySQLDailyRecordRepository struct {
	dbProvider db.Provider
}

func NewDailyRecordRepository(provider db.Provider) DailyRecordRepository {
	return &MySQLDailyRecordRepository{dbProvider: provider}
}

// Dates are read back as strings so the result does not depend on the DSN's parseTime/loc.
const dailyRecordColumns = "id, user_id, DATE_FORMAT(date, '%Y-%m-%d'), status, problem_id, title_ko, level, tier, submit_time, excuse"

func (r *MySQLDailyRecordRepository) Create(ctx context.Context, tx db.Transaction, record *DailyRecord) (int64, error) {
	if record == nil {
		return 0, errors.New("record is nil")
	}
	if record.UserID == "" {
		return 0, errors.New("userID is required")
	}
	if !record.Status.Valid() {
		return 0, fmt.Errorf("invalid status %q", record.Status)
	}
	if record.Status == model.StatusPass && record.ProblemID == nil {
		return 0, errors.New("problemID is required for PASS records")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO daily_records
		(user_id, date, status, problem_id, title_ko, level, tier, submit_time, excuse)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.GetQuerier(database, tx).Exec(
		ctx,
		query,
		record.UserID,
		rules.FormatDate(record.Date),
		string(record.Status),
		record.ProblemID,
		record.TitleKo,
		record.Level,
		record.Tier,
		record.SubmitTime,
		record.Excuse,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return 0, ErrDuplicateRecord
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	record.ID = id
	return id, nil
}

func (r *MySQLDailyRecordRepository) FindByUserAndDate(ctx context.Context, tx db.Transaction, userID string, date time.Time) ([]*DailyRecord, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + dailyRecordColumns + " FROM daily_records WHERE user_id = ? AND date = ? ORDER BY id"
	return r.queryRecords(ctx, db.GetQuerier(database, tx), query, userID, rules.FormatDate(date))
}

func (r *MySQLDailyRecordRepository) ListByDate(ctx context.Context, date time.Time) ([]*DailyRecord, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + dailyRecordColumns + " FROM daily_records WHERE date = ? ORDER BY user_id, id"
	return r.queryRecords(ctx, database, query, rules.FormatDate(date))
}

func (r *MySQLDailyRecordRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*DailyRecord, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + dailyRecordColumns + " FROM daily_records WHERE date BETWEEN ? AND ? ORDER BY date, user_id, id"
	return r.queryRecords(ctx, database, query, rules.FormatDate(start), rules.FormatDate(end))
}

func (r *MySQLDailyRecordRepository) ListByExcuse(ctx context.Context, excuse string) ([]*DailyRecord, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + dailyRecordColumns + " FROM daily_records WHERE excuse = ? ORDER BY date, user_id"
	return r.queryRecords(ctx, database, query, excuse)
}

func (r *MySQLDailyRecordRepository) queryRecords(ctx context.Context, querier db.Querier, query string, args ...interface{}) ([]*DailyRecord, error) {
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*DailyRecord, 0)
	for rows.Next() {
		record := &DailyRecord{}
		var (
			date   string
			status string
		)
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&date,
			&status,
			&record.ProblemID,
			&record.TitleKo,
			&record.Level,
			&record.Tier,
			&record.SubmitTime,
			&record.Excuse,
		); err != nil {
			return nil, err
		}
		parsed, err := rules.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("decode record date %q: %w", date, err)
		}
		record.Date = parsed
		record.Status = model.RecordStatus(status)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
