package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dailystudy/internal/common/storage"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/rules"

	"github.com/klauspost/compress/zstd"
)

const (
	defaultSnapshotPrefix = "crawl-snapshots"
	snapshotContentType   = "application/zstd"
)

// CrawlSnapshot is the archived raw source data of one run.
type CrawlSnapshot struct {
	HistoryID int64                   `json:"historyId"`
	StartedAt time.Time               `json:"startedAt"`
	Users     []model.UserSubmissions `json:"users"`
}

// SnapshotArchiver stores zstd-compressed JSON snapshots in object storage.
type SnapshotArchiver struct {
	store  storage.ObjectStorage
	bucket string
	prefix string
}

// NewSnapshotArchiver creates a new snapshot archiver.
func NewSnapshotArchiver(store storage.ObjectStorage, bucket, prefix string) *SnapshotArchiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultSnapshotPrefix
	}
	return &SnapshotArchiver{store: store, bucket: bucket, prefix: prefix}
}

// ObjectKey returns <prefix>/<yyyy-mm-dd>/<historyID>.json.zst, dated in KST.
func (a *SnapshotArchiver) ObjectKey(historyID int64, startedAt time.Time) string {
	return fmt.Sprintf("%s/%s/%d.json.zst", a.prefix, rules.FormatDate(startedAt), historyID)
}

// Archive compresses and uploads the snapshot of one run.
func (a *SnapshotArchiver) Archive(ctx context.Context, historyID int64, startedAt time.Time, users []model.UserSubmissions) error {
	if a == nil || a.store == nil {
		return errors.New("snapshot archiver is nil")
	}
	if a.bucket == "" {
		return errors.New("snapshot bucket is empty")
	}
	payload, err := EncodeSnapshot(CrawlSnapshot{HistoryID: historyID, StartedAt: startedAt, Users: users})
	if err != nil {
		return err
	}
	key := a.ObjectKey(historyID, startedAt)
	if err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), snapshotContentType); err != nil {
		return fmt.Errorf("upload snapshot %s failed: %w", key, err)
	}
	return nil
}

// Load downloads and decodes a previously archived snapshot.
func (a *SnapshotArchiver) Load(ctx context.Context, historyID int64, startedAt time.Time) (CrawlSnapshot, error) {
	key := a.ObjectKey(historyID, startedAt)
	reader, err := a.store.GetObject(ctx, a.bucket, key)
	if err != nil {
		return CrawlSnapshot{}, fmt.Errorf("download snapshot %s failed: %w", key, err)
	}
	defer reader.Close()
	return DecodeSnapshot(reader)
}

// EncodeSnapshot marshals snapshot as JSON and compresses it with zstd.
func EncodeSnapshot(snapshot CrawlSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer failed: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(snapshot); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("encode snapshot failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flush zstd writer failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (CrawlSnapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return CrawlSnapshot{}, fmt.Errorf("create zstd reader failed: %w", err)
	}
	defer dec.Close()
	var snapshot CrawlSnapshot
	if err := json.NewDecoder(dec).Decode(&snapshot); err != nil {
		return CrawlSnapshot{}, fmt.Errorf("decode snapshot failed: %w", err)
	}
	return snapshot, nil
}
