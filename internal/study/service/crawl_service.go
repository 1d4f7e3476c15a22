package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dailystudy/internal/common/cache"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/rules"
	pkgerrors "dailystudy/pkg/errors"
	"dailystudy/pkg/utils/contextkey"
	"dailystudy/pkg/utils/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultExceptionalExcuse is written on the automatic IMAGE record of exceptional users.
	DefaultExceptionalExcuse = "기타 사유"

	crawlLockKey            = "study:crawl:lock"
	defaultCrawlLockTTL     = 10 * time.Minute
	defaultMetaConcurrency  = 4
	defaultFinalizeTimeout  = 5 * time.Second
	defaultRetryMaxInterval = 30 * time.Second
)

// SubmissionSource lists the accepted submissions of a judge handle.
type SubmissionSource interface {
	FetchUserSubmissions(ctx context.Context, handle string) ([]model.Submission, error)
}

// ProblemMetaSource resolves the title and level of a problem.
type ProblemMetaSource interface {
	FetchProblemMeta(ctx context.Context, problemID int64) (model.ProblemMeta, error)
}

// RunEventPublisher announces finished crawl runs.
type RunEventPublisher interface {
	PublishFinished(ctx context.Context, event model.CrawlFinishedEvent) error
}

// RunSnapshotWriter keeps the raw source data of a crawl run.
type RunSnapshotWriter interface {
	Archive(ctx context.Context, historyID int64, startedAt time.Time, users []model.UserSubmissions) error
}

// RetryPolicy controls retries of the submission source.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"maxAttempts"`
	BaseDelayMs       int     `yaml:"baseDelayMs"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// DefaultRetryPolicy returns three attempts starting at 500ms and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelayMs: 500, BackoffMultiplier: 2}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := p.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Duration(p.BaseDelayMs) * time.Millisecond
	eb.Multiplier = multiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = defaultRetryMaxInterval
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// CrawlOptions configures the orchestrator.
type CrawlOptions struct {
	Roster            model.Roster
	Retry             RetryPolicy
	ExceptionalExcuse string
	LockTTL           time.Duration
	MetaConcurrency   int
}

// CrawlDeps are the collaborators of CrawlService. Locker, Publisher and
// Archiver are optional.
type CrawlDeps struct {
	Source    SubmissionSource
	Meta      ProblemMetaSource
	Records   repository.DailyRecordRepository
	Histories repository.CrawlHistoryRepository
	Locker    cache.LockOps
	Publisher RunEventPublisher
	Archiver  RunSnapshotWriter
	Now       func() time.Time
}

// CrawlService runs one crawl over the roster and records qualifying submissions.
type CrawlService struct {
	deps CrawlDeps
	opts CrawlOptions
	now  func() time.Time
}

// NewCrawlService creates a new CrawlService.
func NewCrawlService(deps CrawlDeps, opts CrawlOptions) *CrawlService {
	if opts.ExceptionalExcuse == "" {
		opts.ExceptionalExcuse = DefaultExceptionalExcuse
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultCrawlLockTTL
	}
	if opts.MetaConcurrency <= 0 {
		opts.MetaConcurrency = defaultMetaConcurrency
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CrawlService{deps: deps, opts: opts, now: now}
}

// crawlRun is the mutable state of one Run call.
type crawlRun struct {
	results      []model.CrawlResult
	snapshot     []model.UserSubmissions
	created      int
	usersFailed  int
	groupsFailed int
}

func (r *crawlRun) add(userID string, problemID int64, action model.CrawlAction) {
	r.results = append(r.results, model.CrawlResult{UserID: userID, ProblemID: problemID, Action: action})
}

func (r *crawlRun) skipAll(userID string, items []timedSubmission) {
	for _, item := range items {
		r.add(userID, item.ProblemID, model.ActionSkipped)
	}
}

type timedSubmission struct {
	model.Submission
	at time.Time
}

type dateGroup struct {
	date  time.Time
	items []timedSubmission
}

// Run crawls every roster user and returns the decision log.
// Only storage failures abort the run; source and metadata failures are counted and skipped.
func (s *CrawlService) Run(ctx context.Context) ([]model.CrawlResult, error) {
	release, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := s.now()
	historyID, err := s.deps.Histories.Create(ctx, &repository.CrawlHistory{StartTime: startTime})
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("create crawl history failed: %w", err), pkgerrors.CrawlRunFailed)
	}
	ctx = context.WithValue(ctx, contextkey.CrawlRunID, historyID)
	logger.Info(ctx, "crawl run started", zap.Int("roster_size", len(s.opts.Roster)))

	run := &crawlRun{results: make([]model.CrawlResult, 0)}
	var runErr error
	for _, entry := range s.opts.Roster {
		if runErr = s.crawlUser(ctx, run, entry); runErr != nil {
			break
		}
	}

	endTime := s.now()
	if runErr == nil {
		update := repository.CrawlHistoryUpdate{
			EndTime:          endTime,
			Success:          true,
			RecordsProcessed: run.created,
			UsersFailed:      run.usersFailed,
			GroupsFailed:     run.groupsFailed,
		}
		if err := s.deps.Histories.Update(ctx, historyID, update); err != nil {
			runErr = fmt.Errorf("update crawl history failed: %w", err)
		}
	}

	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFinalizeTimeout)
	defer cancel()

	if runErr != nil {
		logger.Error(ctx, "crawl run failed", zap.Error(runErr), zap.Int("results", len(run.results)))
		update := repository.CrawlHistoryUpdate{
			EndTime:          endTime,
			Success:          false,
			RecordsProcessed: run.created,
			UsersFailed:      run.usersFailed,
			GroupsFailed:     run.groupsFailed,
			ErrorMessage:     runErr.Error(),
		}
		if err := s.deps.Histories.Update(finalizeCtx, historyID, update); err != nil {
			logger.Error(ctx, "mark crawl history failed", zap.Error(err))
		}
	} else {
		logger.Info(ctx, "crawl run finished",
			zap.Int("recorded", run.created),
			zap.Int("users_failed", run.usersFailed),
			zap.Int("groups_failed", run.groupsFailed),
			zap.Duration("elapsed", endTime.Sub(startTime)),
		)
	}

	s.archive(finalizeCtx, historyID, startTime, run.snapshot)
	s.publish(finalizeCtx, model.CrawlFinishedEvent{
		EventType:        model.CrawlFinishedEventType,
		HistoryID:        historyID,
		Success:          runErr == nil,
		RecordsProcessed: run.created,
		UsersFailed:      run.usersFailed,
		GroupsFailed:     run.groupsFailed,
		StartTime:        startTime,
		EndTime:          endTime,
		Error:            errorString(runErr),
	})

	if runErr != nil {
		return nil, pkgerrors.Wrap(runErr, pkgerrors.CrawlRunFailed)
	}
	return run.results, nil
}

func (s *CrawlService) acquireLock(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.deps.Locker == nil {
		return noop, nil
	}
	token := uuid.NewString()
	ok, err := s.deps.Locker.TryLock(ctx, crawlLockKey, token, s.opts.LockTTL)
	if err != nil {
		// Storage uniqueness still guards against duplicates when Redis is down.
		logger.Warn(ctx, "acquire crawl lock failed, running unlocked", zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CrawlInProgress)
	}
	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFinalizeTimeout)
		defer cancel()
		if err := s.deps.Locker.Unlock(unlockCtx, crawlLockKey, token); err != nil {
			logger.Warn(ctx, "release crawl lock failed", zap.Error(err))
		}
	}, nil
}

// crawlUser processes one roster entry. A non-nil error aborts the run.
func (s *CrawlService) crawlUser(ctx context.Context, run *crawlRun, entry model.RosterEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	handle := entry.Handle
	submissions, err := s.fetchSubmissions(ctx, handle)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		run.usersFailed++
		run.snapshot = append(run.snapshot, model.UserSubmissions{Handle: handle, FetchError: err.Error()})
		logger.Warn(ctx, "fetch submissions failed, skipping user", zap.String("user_id", handle), zap.Error(err))
		return nil
	}
	run.snapshot = append(run.snapshot, model.UserSubmissions{Handle: handle, Submissions: submissions})

	timed := make([]timedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		at, err := rules.ParseTimestamp(sub.SubmitTime)
		if err != nil {
			logger.Warn(ctx, "skip submission with malformed time",
				zap.String("user_id", handle),
				zap.Int64("problem_id", sub.ProblemID),
				zap.Error(err),
			)
			run.add(handle, sub.ProblemID, model.ActionSkipped)
			continue
		}
		timed = append(timed, timedSubmission{Submission: sub, at: at})
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].at.Before(timed[j].at) })

	for _, group := range groupByDate(timed) {
		if err := s.processGroup(ctx, run, entry, group); err != nil {
			return err
		}
	}
	return nil
}

func (s *CrawlService) fetchSubmissions(ctx context.Context, handle string) ([]model.Submission, error) {
	var submissions []model.Submission
	attempt := 0
	op := func() error {
		attempt++
		subs, err := s.deps.Source.FetchUserSubmissions(ctx, handle)
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		submissions = subs
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug(ctx, "retrying submission fetch",
			zap.String("user_id", handle),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, s.opts.Retry.newBackOff(ctx), notify); err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.SourceFetchFailed, "fetch submissions for %s after %d attempts: %v", handle, attempt, err)
	}
	return submissions, nil
}

// isRetryable treats transport errors as transient unless the error says otherwise.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var retryable interface{ Retryable() bool }
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}
	return true
}

// groupByDate splits time-sorted submissions by KST calendar day, keeping order.
func groupByDate(items []timedSubmission) []dateGroup {
	groups := make([]dateGroup, 0)
	index := make(map[string]int)
	for _, item := range items {
		date := rules.DateOf(item.at)
		key := rules.FormatDate(date)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, dateGroup{date: date})
		}
		groups[i].items = append(groups[i].items, item)
	}
	return groups
}

func (s *CrawlService) processGroup(ctx context.Context, run *crawlRun, entry model.RosterEntry, group dateGroup) error {
	handle := entry.Handle
	existing, err := s.deps.Records.FindByUserAndDate(ctx, nil, handle, group.date)
	if err != nil {
		return pkgerrors.Wrap(fmt.Errorf("find daily records failed: %w", err), pkgerrors.DatabaseError)
	}

	weekend := rules.IsWeekend(group.date)
	if entry.Exceptional && !weekend && len(existing) == 0 {
		return s.recordExceptional(ctx, run, handle, group)
	}

	recorded := make(map[int64]struct{}, len(existing))
	for _, rec := range existing {
		if rec.ProblemID != nil {
			recorded[*rec.ProblemID] = struct{}{}
		}
	}
	fresh := make([]timedSubmission, 0, len(group.items))
	for _, item := range group.items {
		if _, ok := recorded[item.ProblemID]; ok {
			run.add(handle, item.ProblemID, model.ActionSkipped)
			continue
		}
		recorded[item.ProblemID] = struct{}{}
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return nil
	}

	var metas []model.ProblemMeta
	if weekend {
		metas, err = s.fetchMetas(ctx, fresh)
		if err != nil {
			return s.metaFailed(ctx, run, handle, group, fresh, err)
		}
		levels := make([]int, len(metas))
		for i, meta := range metas {
			levels[i] = meta.Level
		}
		if rules.QualifiesWeekendBonus(levels) {
			for i, item := range fresh {
				if err := s.recordPass(ctx, run, handle, group.date, item, metas[i]); err != nil {
					return err
				}
				run.add(handle, item.ProblemID, model.ActionRecorded)
			}
			return nil
		}
	}

	for i, item := range fresh {
		var meta model.ProblemMeta
		if metas != nil {
			meta = metas[i]
		} else {
			meta, err = s.deps.Meta.FetchProblemMeta(ctx, item.ProblemID)
			if err != nil {
				return s.metaFailed(ctx, run, handle, group, fresh[i:], err)
			}
		}
		if !rules.IsRecordableAt(item.at, meta.Level) {
			run.add(handle, item.ProblemID, model.ActionSkipped)
			continue
		}
		if err := s.recordPass(ctx, run, handle, group.date, item, meta); err != nil {
			return err
		}
		run.add(handle, item.ProblemID, model.ActionRecorded)
	}
	return nil
}

func (s *CrawlService) recordExceptional(ctx context.Context, run *crawlRun, handle string, group dateGroup) error {
	excuse := s.opts.ExceptionalExcuse
	record := &repository.DailyRecord{
		UserID:     handle,
		Date:       group.date,
		Status:     model.StatusImage,
		SubmitTime: rules.FormatSubmitTime(s.now()),
		Excuse:     &excuse,
	}
	if _, err := s.deps.Records.Create(ctx, nil, record); err != nil {
		return wrapCreateError(err)
	}
	run.created++
	logger.Info(ctx, "exceptional user excused",
		zap.String("user_id", handle),
		zap.String("date", rules.FormatDate(group.date)),
	)
	run.skipAll(handle, group.items)
	return nil
}

func (s *CrawlService) recordPass(ctx context.Context, run *crawlRun, handle string, date time.Time, item timedSubmission, meta model.ProblemMeta) error {
	problemID := item.ProblemID
	record := &repository.DailyRecord{
		UserID:     handle,
		Date:       date,
		Status:     model.StatusPass,
		ProblemID:  &problemID,
		TitleKo:    meta.TitleKo,
		Level:      meta.Level,
		Tier:       rules.LevelToTier(meta.Level),
		SubmitTime: item.SubmitTime,
	}
	if _, err := s.deps.Records.Create(ctx, nil, record); err != nil {
		return wrapCreateError(err)
	}
	run.created++
	return nil
}

// fetchMetas resolves metadata for items concurrently, preserving order.
func (s *CrawlService) fetchMetas(ctx context.Context, items []timedSubmission) ([]model.ProblemMeta, error) {
	metas := make([]model.ProblemMeta, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MetaConcurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			meta, err := s.deps.Meta.FetchProblemMeta(gctx, item.ProblemID)
			if err != nil {
				return fmt.Errorf("fetch meta for problem %d: %w", item.ProblemID, err)
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

// metaFailed abandons the rest of a date group, logging pending items as skipped.
// Cancellation still aborts the run.
func (s *CrawlService) metaFailed(ctx context.Context, run *crawlRun, handle string, group dateGroup, pending []timedSubmission, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	run.groupsFailed++
	run.skipAll(handle, pending)
	logger.Warn(ctx, "problem meta unavailable, skipping date group",
		zap.String("user_id", handle),
		zap.String("date", rules.FormatDate(group.date)),
		zap.Error(err),
	)
	return nil
}

func (s *CrawlService) archive(ctx context.Context, historyID int64, startTime time.Time, users []model.UserSubmissions) {
	if s.deps.Archiver == nil {
		return
	}
	if err := s.deps.Archiver.Archive(ctx, historyID, startTime, users); err != nil {
		logger.Warn(ctx, "archive crawl snapshot failed", zap.Error(err))
	}
}

func (s *CrawlService) publish(ctx context.Context, event model.CrawlFinishedEvent) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.PublishFinished(ctx, event); err != nil {
		logger.Warn(ctx, "publish crawl finished event failed", zap.Error(err))
	}
}

// LastCrawl returns the most recent successful run.
func (s *CrawlService) LastCrawl(ctx context.Context) (*repository.CrawlHistory, error) {
	history, err := s.deps.Histories.GetLastSuccessful(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCrawlHistoryNotFound) {
			return nil, pkgerrors.New(pkgerrors.CrawlHistoryNotFound)
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("get last crawl failed: %w", err), pkgerrors.DatabaseError)
	}
	return history, nil
}

func wrapCreateError(err error) error {
	if errors.Is(err, repository.ErrDuplicateRecord) {
		return pkgerrors.Wrap(err, pkgerrors.DailyRecordExists)
	}
	return pkgerrors.Wrap(fmt.Errorf("create daily record failed: %w", err), pkgerrors.DailyRecordCreateFailed)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
