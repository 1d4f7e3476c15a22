package db_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"dailystudy/internal/common/db"
	"dailystudy/internal/testutil"

	"github.com/go-sql-driver/mysql"
)

func TestUniqueViolation(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantKey string
		wantOK  bool
	}{
		{
			name:    "mysql 8 qualified key",
			err:     &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice-2025-07-11-1000' for key 'daily_records.uk_user_date_problem'"},
			wantKey: "uk_user_date_problem",
			wantOK:  true,
		},
		{
			name:    "wrapped legacy key",
			err:     fmt.Errorf("exec failed: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uk_user_date_problem'"}),
			wantKey: "uk_user_date_problem",
			wantOK:  true,
		},
		{
			name:   "other mysql error",
			err:    &mysql.MySQLError{Number: 1213, Message: "Deadlock found"},
			wantOK: false,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := db.UniqueViolation(tc.err)
			testutil.AssertEqual(t, ok, tc.wantOK)
			testutil.AssertEqual(t, key, tc.wantKey)
		})
	}
}

func TestIsNoRowsWrapped(t *testing.T) {
	testutil.AssertTrue(t, db.IsNoRows(fmt.Errorf("scan failed: %w", sql.ErrNoRows)), "wrapped ErrNoRows")
	testutil.AssertFalse(t, db.IsNoRows(errors.New("other")), "unrelated error")
}

func TestCurrentDatabase(t *testing.T) {
	_, err := db.CurrentDatabase(nil)
	testutil.AssertNotNil(t, err)

	_, err = db.CurrentDatabase(db.NewStaticProvider(nil))
	testutil.AssertNotNil(t, err)
}
