package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"dailystudy/internal/common/storage"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/service"
	"dailystudy/internal/testutil"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memoryStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if sizeBytes >= 0 && int64(len(data)) != sizeBytes {
		return errors.New("size mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+objectKey] = data
	s.types[bucket+"/"+objectKey] = contentType
	return nil
}

func (s *memoryStorage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+objectKey]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+objectKey]
	if !ok {
		return storage.ObjectStat{}, errors.New("no such key")
	}
	return storage.ObjectStat{SizeBytes: int64(len(data)), ContentType: s.types[bucket+"/"+objectKey]}, nil
}

func TestSnapshotArchiverRoundTrip(t *testing.T) {
	store := newMemoryStorage()
	archiver := service.NewSnapshotArchiver(store, "study", "/snapshots/")
	users := []model.UserSubmissions{
		{Handle: "alice", Submissions: []model.Submission{{ProblemID: 1000, SubmitTime: "2025년 7월 14일 09:00:00"}}},
		{Handle: "bob", FetchError: "judge status page for bob returned 503"},
	}

	startedAt := fixedNow.Add(-18 * time.Hour)
	testutil.AssertEqual(t, archiver.ObjectKey(42, startedAt), "snapshots/2025-07-14/42.json.zst")
	testutil.AssertEqual(t, archiver.ObjectKey(42, fixedNow), "snapshots/2025-07-15/42.json.zst")

	testutil.AssertNil(t, archiver.Archive(context.Background(), 42, fixedNow, users))
	stat, err := store.StatObject(context.Background(), "study", "snapshots/2025-07-15/42.json.zst")
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, stat.ContentType, "application/zstd")

	snapshot, err := archiver.Load(context.Background(), 42, fixedNow)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, snapshot.HistoryID, int64(42))
	testutil.AssertTrue(t, snapshot.StartedAt.Equal(fixedNow), "start time should round-trip")
	testutil.AssertEqual(t, snapshot.Users, users)
}

func TestSnapshotArchiverDefaultsAndErrors(t *testing.T) {
	archiver := service.NewSnapshotArchiver(newMemoryStorage(), "", "")
	testutil.AssertEqual(t, archiver.ObjectKey(1, fixedNow), "crawl-snapshots/2025-07-15/1.json.zst")
	testutil.AssertNotNil(t, archiver.Archive(context.Background(), 1, fixedNow, nil))

	_, err := service.DecodeSnapshot(bytes.NewReader([]byte("not zstd")))
	testutil.AssertNotNil(t, err)
}
