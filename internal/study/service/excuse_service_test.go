package service_test

import (
	"context"
	"testing"
	"time"

	"dailystudy/internal/study/model"
	"dailystudy/internal/study/rules"
	"dailystudy/internal/study/service"
	"dailystudy/internal/testutil"
	pkgerrors "dailystudy/pkg/errors"
)

func newExcuseService(repo *fakeRecordRepo) *service.ExcuseService {
	return service.NewExcuseService(repo, roster("alice", "bob"), func() time.Time { return fixedNow })
}

func TestCreateExcuse(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := newExcuseService(repo)

	record, err := svc.CreateExcuse(context.Background(), service.ExcuseInput{UserID: "alice", Date: "2025-07-14", Excuse: "병원"})
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, record.ID, int64(1))
	testutil.AssertEqual(t, record.Status, model.StatusImage)
	testutil.AssertNil(t, record.ProblemID)
	testutil.AssertEqual(t, *record.Excuse, "병원")
	testutil.AssertEqual(t, record.DateString(), "2025-07-14")
	testutil.AssertEqual(t, record.SubmitTime, rules.FormatSubmitTime(fixedNow))
	testutil.AssertEqual(t, len(repo.all()), 1)
}

func TestCreateExcuseRejections(t *testing.T) {
	repo := newFakeRecordRepo()
	seedPass(t, repo, "bob", "2025-07-14", 1000)
	svc := newExcuseService(repo)

	tests := []struct {
		name  string
		input service.ExcuseInput
		want  pkgerrors.ErrorCode
	}{
		{name: "missing user", input: service.ExcuseInput{Date: "2025-07-14", Excuse: "x"}, want: pkgerrors.RequiredFieldEmpty},
		{name: "missing date", input: service.ExcuseInput{UserID: "alice", Excuse: "x"}, want: pkgerrors.RequiredFieldEmpty},
		{name: "blank excuse", input: service.ExcuseInput{UserID: "alice", Date: "2025-07-14", Excuse: "  "}, want: pkgerrors.RequiredFieldEmpty},
		{name: "bad date", input: service.ExcuseInput{UserID: "alice", Date: "2025/07/14", Excuse: "x"}, want: pkgerrors.InvalidFormat},
		{name: "unknown user", input: service.ExcuseInput{UserID: "mallory", Date: "2025-07-14", Excuse: "x"}, want: pkgerrors.RosterUserNotFound},
		{name: "day already recorded", input: service.ExcuseInput{UserID: "bob", Date: "2025-07-14", Excuse: "x"}, want: pkgerrors.DailyRecordExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExcuse(context.Background(), tt.input)
			testutil.AssertEqual(t, pkgerrors.GetCode(err), tt.want)
		})
	}
	testutil.AssertEqual(t, len(repo.all()), 1)
}
