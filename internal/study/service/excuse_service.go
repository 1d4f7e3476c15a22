package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailystudy/internal/study/model"
	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/rules"
	pkgerrors "dailystudy/pkg/errors"
	"dailystudy/pkg/utils/logger"

	"go.uber.org/zap"
)

// ExcuseInput is a manual excuse for a day without a qualifying submission.
type ExcuseInput struct {
	UserID string
	Date   string
	Excuse string
}

// ExcuseService files manual IMAGE records.
type ExcuseService struct {
	records repository.DailyRecordRepository
	roster  model.Roster
	now     func() time.Time
}

// NewExcuseService creates a new ExcuseService. A nil now uses time.Now.
func NewExcuseService(records repository.DailyRecordRepository, roster model.Roster, now func() time.Time) *ExcuseService {
	if now == nil {
		now = time.Now
	}
	return &ExcuseService{records: records, roster: roster, now: now}
}

// CreateExcuse stores an IMAGE record for a user-day that has no record yet.
func (s *ExcuseService) CreateExcuse(ctx context.Context, input ExcuseInput) (*repository.DailyRecord, error) {
	userID := strings.TrimSpace(input.UserID)
	excuse := strings.TrimSpace(input.Excuse)
	switch {
	case userID == "":
		return nil, pkgerrors.New(pkgerrors.RequiredFieldEmpty).WithDetail("field", "userId")
	case input.Date == "":
		return nil, pkgerrors.New(pkgerrors.RequiredFieldEmpty).WithDetail("field", "date")
	case excuse == "":
		return nil, pkgerrors.New(pkgerrors.RequiredFieldEmpty).WithDetail("field", "excuse")
	}
	date, err := rules.ParseDate(input.Date)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.InvalidFormat).WithMessage("date must be YYYY-MM-DD").WithDetail("field", "date")
	}
	if _, ok := s.roster.Find(userID); !ok {
		return nil, pkgerrors.Newf(pkgerrors.RosterUserNotFound, "user %s is not on the roster", userID)
	}

	existing, err := s.records.FindByUserAndDate(ctx, nil, userID, date)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("find daily records failed: %w", err), pkgerrors.DatabaseError)
	}
	if len(existing) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.DailyRecordExists, "%s already has a record on %s", userID, input.Date)
	}

	record := &repository.DailyRecord{
		UserID:     userID,
		Date:       date,
		Status:     model.StatusImage,
		SubmitTime: rules.FormatSubmitTime(s.now()),
		Excuse:     &excuse,
	}
	id, err := s.records.Create(ctx, nil, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			return nil, pkgerrors.Newf(pkgerrors.DailyRecordExists, "%s already has a record on %s", userID, input.Date)
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("create excuse failed: %w", err), pkgerrors.DailyRecordCreateFailed)
	}
	record.ID = id
	logger.Info(ctx, "excuse recorded", zap.String("user_id", userID), zap.String("date", input.Date))
	return record, nil
}
