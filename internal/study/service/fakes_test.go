package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dailystudy/internal/common/db"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/rules"
)

type fakeSource struct {
	mu       sync.Mutex
	byHandle map[string][]model.Submission
	errs     map[string][]error
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		byHandle: make(map[string][]model.Submission),
		errs:     make(map[string][]error),
		calls:    make(map[string]int),
	}
}

func (s *fakeSource) add(handle string, problemID int64, submitTime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHandle[handle] = append(s.byHandle[handle], model.Submission{ProblemID: problemID, SubmitTime: submitTime})
}

// failNext queues errors returned by the next calls for handle.
func (s *fakeSource) failNext(handle string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[handle] = append(s.errs[handle], errs...)
}

func (s *fakeSource) callCount(handle string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[handle]
}

func (s *fakeSource) FetchUserSubmissions(ctx context.Context, handle string) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[handle]++
	if queued := s.errs[handle]; len(queued) > 0 {
		s.errs[handle] = queued[1:]
		return nil, queued[0]
	}
	return append([]model.Submission(nil), s.byHandle[handle]...), nil
}

type retryableErr struct{ retryable bool }

func (e *retryableErr) Error() string   { return fmt.Sprintf("upstream error (retryable=%v)", e.retryable) }
func (e *retryableErr) Retryable() bool { return e.retryable }

type fakeMeta struct {
	mu     sync.Mutex
	levels map[int64]int
	errs   map[int64]error
	calls  int
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{levels: make(map[int64]int), errs: make(map[int64]error)}
}

func (m *fakeMeta) set(problemID int64, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[problemID] = level
}

func (m *fakeMeta) fail(problemID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[problemID] = err
}

func (m *fakeMeta) FetchProblemMeta(ctx context.Context, problemID int64) (model.ProblemMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.errs[problemID]; err != nil {
		return model.ProblemMeta{}, err
	}
	level, ok := m.levels[problemID]
	if !ok {
		return model.ProblemMeta{}, errors.New("unknown problem")
	}
	return model.ProblemMeta{ProblemID: problemID, TitleKo: fmt.Sprintf("problem %d", problemID), Level: level}, nil
}

// fakeRecordRepo enforces (user, date, problem) uniqueness like the MySQL schema.
type fakeRecordRepo struct {
	mu        sync.Mutex
	nextID    int64
	records   []*repository.DailyRecord
	createErr func(*repository.DailyRecord) error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{}
}

func recordKey(userID string, date time.Time, problemID *int64) string {
	var pid int64
	if problemID != nil {
		pid = *problemID
	}
	return fmt.Sprintf("%s|%s|%d", userID, rules.FormatDate(date), pid)
}

func (r *fakeRecordRepo) Create(ctx context.Context, tx db.Transaction, record *repository.DailyRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		if err := r.createErr(record); err != nil {
			return 0, err
		}
	}
	key := recordKey(record.UserID, record.Date, record.ProblemID)
	for _, existing := range r.records {
		if recordKey(existing.UserID, existing.Date, existing.ProblemID) == key {
			return 0, repository.ErrDuplicateRecord
		}
	}
	r.nextID++
	stored := *record
	stored.ID = r.nextID
	r.records = append(r.records, &stored)
	return stored.ID, nil
}

func (r *fakeRecordRepo) FindByUserAndDate(ctx context.Context, tx db.Transaction, userID string, date time.Time) ([]*repository.DailyRecord, error) {
	return r.filter(func(rec *repository.DailyRecord) bool {
		return rec.UserID == userID && rec.DateString() == rules.FormatDate(date)
	}), nil
}

func (r *fakeRecordRepo) ListByDate(ctx context.Context, date time.Time) ([]*repository.DailyRecord, error) {
	return r.filter(func(rec *repository.DailyRecord) bool {
		return rec.DateString() == rules.FormatDate(date)
	}), nil
}

func (r *fakeRecordRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]*repository.DailyRecord, error) {
	from, to := rules.FormatDate(start), rules.FormatDate(end)
	return r.filter(func(rec *repository.DailyRecord) bool {
		d := rec.DateString()
		return d >= from && d <= to
	}), nil
}

func (r *fakeRecordRepo) ListByExcuse(ctx context.Context, excuse string) ([]*repository.DailyRecord, error) {
	return r.filter(func(rec *repository.DailyRecord) bool {
		return rec.Excuse != nil && *rec.Excuse == excuse
	}), nil
}

func (r *fakeRecordRepo) filter(keep func(*repository.DailyRecord) bool) []*repository.DailyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*repository.DailyRecord, 0)
	for _, rec := range r.records {
		if keep(rec) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out
}

func (r *fakeRecordRepo) all() []*repository.DailyRecord {
	return r.filter(func(*repository.DailyRecord) bool { return true })
}

// snapshotKeys returns the sorted user|date|problem keys of all records.
func (r *fakeRecordRepo) snapshotKeys() []string {
	recs := r.all()
	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		keys = append(keys, recordKey(rec.UserID, rec.Date, rec.ProblemID)+"|"+string(rec.Status))
	}
	sort.Strings(keys)
	return keys
}

func (r *fakeRecordRepo) countStatus(status model.RecordStatus) int {
	n := 0
	for _, rec := range r.all() {
		if rec.Status == status {
			n++
		}
	}
	return n
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	histories []*repository.CrawlHistory
	createErr error
	updateErr error
	updates   int
}

func (h *fakeHistoryRepo) Create(ctx context.Context, history *repository.CrawlHistory) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return 0, h.createErr
	}
	stored := *history
	stored.ID = int64(len(h.histories) + 1)
	if stored.EndTime.IsZero() {
		stored.EndTime = stored.StartTime
	}
	h.histories = append(h.histories, &stored)
	return stored.ID, nil
}

func (h *fakeHistoryRepo) Update(ctx context.Context, id int64, update repository.CrawlHistoryUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates++
	if h.updateErr != nil {
		return h.updateErr
	}
	for _, history := range h.histories {
		if history.ID == id {
			history.EndTime = update.EndTime
			history.Success = update.Success
			history.RecordsProcessed = update.RecordsProcessed
			history.UsersFailed = update.UsersFailed
			history.GroupsFailed = update.GroupsFailed
			history.ErrorMessage = update.ErrorMessage
			return nil
		}
	}
	return repository.ErrCrawlHistoryNotFound
}

func (h *fakeHistoryRepo) GetLastSuccessful(ctx context.Context) (*repository.CrawlHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.histories) - 1; i >= 0; i-- {
		if h.histories[i].Success {
			copied := *h.histories[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrCrawlHistoryNotFound
}

func (h *fakeHistoryRepo) list() []repository.CrawlHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]repository.CrawlHistory, 0, len(h.histories))
	for _, history := range h.histories {
		out = append(out, *history)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.CrawlFinishedEvent
	err    error
}

func (p *fakePublisher) PublishFinished(ctx context.Context, event model.CrawlFinishedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeArchiver struct {
	mu        sync.Mutex
	historyID int64
	users     []model.UserSubmissions
	calls     int
}

func (a *fakeArchiver) Archive(ctx context.Context, historyID int64, startedAt time.Time, users []model.UserSubmissions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.historyID = historyID
	a.users = users
	return nil
}
