package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"dailystudy/internal/common/db"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/rules"
	"dailystudy/internal/testutil"
	pkgrepo "dailystudy/pkg/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func newMockProvider(t *testing.T) (db.Provider, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	database, err := db.NewMySQLWithDB(sqlDB)
	if err != nil {
		t.Fatalf("wrap sqlmock: %v", err)
	}
	return db.NewStaticProvider(database), mock
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := rules.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

var recordColumns = []string{"id", "user_id", "date", "status", "problem_id", "title_ko", "level", "tier", "submit_time", "excuse"}

func TestDailyRecordCreate(t *testing.T) {
	provider, mock := newMockProvider(t)
	repo := repository.NewDailyRecordRepository(provider)
	problemID := int64(1000)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_records")).
		WithArgs("alice", "2025-07-11", "PASS", problemID, "A+B", 6, "실버5", "2025년 7월 11일 02:32:32", nil).
		WillReturnResult(sqlmock.NewResult(7, 1))

	record := &repository.DailyRecord{
		UserID:     "alice",
		Date:       mustDate(t, "2025-07-11"),
		Status:     model.StatusPass,
		ProblemID:  &problemID,
		TitleKo:    "A+B",
		Level:      6,
		Tier:       "실버5",
		SubmitTime: "2025년 7월 11일 02:32:32",
	}
	id, err := repo.Create(context.Background(), nil, record)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, id, int64(7))
	testutil.AssertEqual(t, record.ID, int64(7))
	testutil.AssertNil(t, mock.ExpectationsWereMet())
}

func TestDailyRecordCreateDuplicate(t *testing.T) {
	provider, mock := newMockProvider(t)
	repo := repository.NewDailyRecordRepository(provider)
	problemID := int64(1000)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_records")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'daily_records.uk_user_date_problem'"})

	_, err := repo.Create(context.Background(), nil, &repository.DailyRecord{
		UserID:    "alice",
		Date:      mustDate(t, "2025-07-11"),
		Status:    model.StatusPass,
		ProblemID: &problemID,
	})
	testutil.AssertTrue(t, errors.Is(err, repository.ErrDuplicateRecord), "expected duplicate error")
	testutil.AssertTrue(t, pkgrepo.IsConflictError(err), "duplicate should be a conflict")
}

func TestDailyRecordCreateValidation(t *testing.T) {
	provider, _ := newMockProvider(t)
	repo := repository.NewDailyRecordRepository(provider)

	_, err := repo.Create(context.Background(), nil, &repository.DailyRecord{UserID: "alice", Status: model.StatusPass})
	testutil.AssertNotNil(t, err)
	_, err = repo.Create(context.Background(), nil, &repository.DailyRecord{UserID: "alice", Status: "LATE"})
	testutil.AssertNotNil(t, err)
}

func TestDailyRecordFindByUserAndDate(t *testing.T) {
	provider, mock := newMockProvider(t)
	repo := repository.NewDailyRecordRepository(provider)

	rows := sqlmock.NewRows(recordColumns).
		AddRow(int64(1), "alice", "2025-07-11", "PASS", int64(1000), "A+B", 6, "실버5", "2025년 7월 11일 02:32:32", nil).
		AddRow(int64(2), "alice", "2025-07-11", "IMAGE", nil, "", 0, "", "2025년 7월 11일 09:00:00", "기타 사유")
	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_records WHERE user_id = ? AND date = ?")).
		WithArgs("alice", "2025-07-11").
		WillReturnRows(rows)

	records, err := repo.FindByUserAndDate(context.Background(), nil, "alice", mustDate(t, "2025-07-11"))
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(records), 2)
	testutil.AssertEqual(t, *records[0].ProblemID, int64(1000))
	testutil.AssertEqual(t, records[0].Status, model.StatusPass)
	testutil.AssertEqual(t, records[0].DateString(), "2025-07-11")
	testutil.AssertTrue(t, records[1].ProblemID == nil, "image record has no problem")
	testutil.AssertEqual(t, *records[1].Excuse, "기타 사유")
	testutil.AssertNil(t, mock.ExpectationsWereMet())
}

func TestDailyRecordListByDateRange(t *testing.T) {
	provider, mock := newMockProvider(t)
	repo := repository.NewDailyRecordRepository(provider)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE date BETWEEN ? AND ?")).
		WithArgs("2025-07-01", "2025-07-07").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := repo.ListByDateRange(context.Background(), mustDate(t, "2025-07-01"), mustDate(t, "2025-07-07"))
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(records), 0)
	testutil.AssertNil(t, mock.ExpectationsWereMet())
}

func TestCrawlHistoryLifecycle(t *testing.T) {
	provider, mock := newMockProvider(t)
	repo := repository.NewCrawlHistoryRepository(provider)
	start := time.Date(2025, 7, 11, 9, 0, 0, 0, rules.KST)
	end := start.Add(time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crawl_histories")).
		WithArgs(start, start, false, 0, 0, 0, "").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE crawl_histories")).
		WithArgs(end, true, 4, 1, 0, "", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	history := &repository.CrawlHistory{StartTime: start}
	id, err := repo.Create(context.Background(), history)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, id, int64(3))
	testutil.AssertTrue(t, history.EndTime.Equal(start), "end defaults to start")

	err = repo.Update(context.Background(), id, repository.CrawlHistoryUpdate{
		EndTime:          end,
		Success:          true,
		RecordsProcessed: 4,
		UsersFailed:      1,
	})
	testutil.AssertNil(t, err)
	testutil.AssertNil(t, mock.ExpectationsWereMet())
}

func TestCrawlHistoryGetLastSuccessful(t *testing.T) {
	provider, mock := newMockProvider(t)
	repo := repository.NewCrawlHistoryRepository(provider)
	start := time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM crawl_histories WHERE success = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "end_time", "success", "records_processed", "users_failed", "groups_failed", "error_message"}).
			AddRow(int64(9), start, start.Add(time.Minute), true, 5, 0, 0, ""))
	mock.ExpectQuery(regexp.QuoteMeta("FROM crawl_histories WHERE success = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	history, err := repo.GetLastSuccessful(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, history.ID, int64(9))
	testutil.AssertEqual(t, history.RecordsProcessed, 5)
	testutil.AssertTrue(t, history.Success, "success flag")

	_, err = repo.GetLastSuccessful(context.Background())
	testutil.AssertTrue(t, errors.Is(err, repository.ErrCrawlHistoryNotFound), "expected not found")
	testutil.AssertTrue(t, pkgrepo.IsNotFoundError(err), "wraps ErrNotFound")
}
