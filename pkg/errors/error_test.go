package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "dailystudy/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{RosterUserNotFound, "User is not on the roster"},
		{CrawlInProgress, "A crawl run is already in progress"},
		{DatabaseError, "Database operation failed"},
		{ErrorCode(99999), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{InvalidFormat, 400},
		{RosterUserNotFound, 404},
		{CrawlHistoryNotFound, 404},
		{DailyRecordExists, 409},
		{CrawlInProgress, 409},
		{TooManyRequests, 429},
		{CrawlRunFailed, 500},
		{InternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(RosterUserNotFound, "user %s is not on the roster", "alice")
	if err.Error() != "user alice is not on the roster" {
		t.Errorf("Error() = %v", err.Error())
	}
	if err.Code != RosterUserNotFound {
		t.Errorf("Code = %v, want %v", err.Code, RosterUserNotFound)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(originalErr, DatabaseError)

	if wrappedErr.Code != DatabaseError {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, DatabaseError)
	}
	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}
	if Wrap(nil, DatabaseError) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapCodedErrorKeepsInner(t *testing.T) {
	inner := New(ProblemNotFound).WithDetail("problem_id", 1000)
	outer := Wrap(inner, ProblemMetaFailed)

	if outer.Code != ProblemMetaFailed {
		t.Errorf("Code = %v, want %v", outer.Code, ProblemMetaFailed)
	}
	if inner.Code != ProblemNotFound {
		t.Error("Wrap should not mutate the inner error")
	}
	if outer.Details["problem_id"] != 1000 {
		t.Error("details should be carried over")
	}
	if !errors.Is(outer, inner) {
		t.Error("outer should unwrap to inner")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil error", err: nil, want: Success},
		{name: "custom error", err: New(CrawlRunFailed), want: CrawlRunFailed},
		{name: "fmt wrapped", err: fmt.Errorf("run: %w", New(CrawlInProgress)), want: CrawlInProgress},
		{name: "standard error", err: errors.New("standard error"), want: InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(DailyRecordExists)

	if !Is(err, DailyRecordExists) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, DatabaseError) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(nil, DailyRecordExists) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("BadRequest", func(t *testing.T) {
		if BadRequest("invalid input").Code != InvalidParams {
			t.Error("BadRequest should use InvalidParams code")
		}
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError("crawl history")
		if err.Code != NotFound || err.Error() != "crawl history not found" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		if InternalError(errors.New("db error")).Code != InternalServerError {
			t.Error("InternalError should use InternalServerError code")
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError("date", "must be YYYY-MM-DD")
		if err.Code != ValidationFailed {
			t.Error("ValidationError should use ValidationFailed code")
		}
		if err.Details["field"] != "date" {
			t.Error("Field detail not set")
		}
	})
}
