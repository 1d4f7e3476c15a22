package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"dailystudy/internal/common/db"
	pkgrepo "dailystudy/pkg/repository"
)

// ErrCrawlHistoryNotFound is returned when no matching run exists.
var ErrCrawlHistoryNotFound = fmt.Errorf("crawl history: %w", pkgrepo.ErrNotFound)

// CrawlHistory is one row per crawl run.
type CrawlHistory struct {
	ID               int64     `json:"id"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	Success          bool      `json:"success"`
	RecordsProcessed int       `json:"recordsProcessed"`
	UsersFailed      int       `json:"usersFailed"`
	GroupsFailed     int       `json:"groupsFailed"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
}

// CrawlHistoryUpdate holds the fields written when a run ends.
type CrawlHistoryUpdate struct {
	EndTime          time.Time
	Success          bool
	RecordsProcessed int
	UsersFailed      int
	GroupsFailed     int
	ErrorMessage     string
}

// CrawlHistoryRepository persists crawl run history.
type CrawlHistoryRepository interface {
	Create(ctx context.Context, history *CrawlHistory) (int64, error)
	Update(ctx context.Context, id int64, update CrawlHistoryUpdate) error
	GetLastSuccessful(ctx context.Context) (*CrawlHistory, error)
}

// MySQLCrawlHistoryRepository implements CrawlHistoryRepository with MySQL.
// Times are stored as DATETIME and need parseTime=true in the DSN.
type MySQLCrawlHistoryRepository struct {
	dbProvider db.Provider
}

func NewCrawlHistoryRepository(provider db.Provider) CrawlHistoryRepository {
	return &MySQLCrawlHistoryRepository{dbProvider: provider}
}

const maxErrorMessageLen = 1024

const crawlHistoryColumns = "id, start_time, end_time, success, records_processed, users_failed, groups_failed, error_message"

func (r *MySQLCrawlHistoryRepository) Create(ctx context.Context, history *CrawlHistory) (int64, error) {
	if history == nil {
		return 0, errors.New("history is nil")
	}
	if history.StartTime.IsZero() {
		return 0, errors.New("startTime is required")
	}
	if history.EndTime.IsZero() {
		history.EndTime = history.StartTime
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return 0, err
	}
	query := `
		INSERT INTO crawl_histories
		(start_time, end_time, success, records_processed, users_failed, groups_failed, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := database.Exec(ctx, query,
		history.StartTime,
		history.EndTime,
		history.Success,
		history.RecordsProcessed,
		history.UsersFailed,
		history.GroupsFailed,
		truncate(history.ErrorMessage, maxErrorMessageLen),
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	history.ID = id
	return id, nil
}

func (r *MySQLCrawlHistoryRepository) Update(ctx context.Context, id int64, update CrawlHistoryUpdate) error {
	if id <= 0 {
		return errors.New("id is required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}
	query := `
		UPDATE crawl_histories
		SET end_time = ?, success = ?, records_processed = ?, users_failed = ?, groups_failed = ?, error_message = ?
		WHERE id = ?
	`
	_, err = database.Exec(ctx, query,
		update.EndTime,
		update.Success,
		update.RecordsProcessed,
		update.UsersFailed,
		update.GroupsFailed,
		truncate(update.ErrorMessage, maxErrorMessageLen),
		id,
	)
	return err
}

func (r *MySQLCrawlHistoryRepository) GetLastSuccessful(ctx context.Context) (*CrawlHistory, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + crawlHistoryColumns + " FROM crawl_histories WHERE success = 1 ORDER BY start_time DESC, id DESC LIMIT 1"
	history := &CrawlHistory{}
	if err := database.QueryRow(ctx, query).Scan(
		&history.ID,
		&history.StartTime,
		&history.EndTime,
		&history.Success,
		&history.RecordsProcessed,
		&history.UsersFailed,
		&history.GroupsFailed,
		&history.ErrorMessage,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrCrawlHistoryNotFound
		}
		return nil, err
	}
	return history, nil
}

// truncate cuts s to n characters, matching VARCHAR semantics.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
