package metaclient

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"dailystudy/internal/common/cache"
	"dailystudy/internal/study/model"

	"github.com/zeromicro/go-zero/core/syncx"
)

const (
	defaultMetaCacheTTL      = 24 * time.Hour
	defaultMetaCacheEmptyTTL = 10 * time.Minute
	metaCacheKeyPrefix       = "study:problem_meta:"
)

// ErrProblemNotFound is returned when the upstream reports the problem missing.
var ErrProblemNotFound = errors.New("problem not found")

// Source fetches problem metadata.
type Source interface {
	FetchProblemMeta(ctx context.Context, problemID int64) (model.ProblemMeta, error)
}

// CachedSource decorates a Source with a Redis cache-aside layer.
// Concurrent lookups of the same problem share one upstream call.
type CachedSource struct {
	source   Source
	cache    cache.BasicOps
	ttl      time.Duration
	emptyTTL time.Duration
	group    syncx.SingleFlight
}

func NewCachedSource(source Source, cacheClient cache.BasicOps, ttl, emptyTTL time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = defaultMetaCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultMetaCacheEmptyTTL
	}
	return &CachedSource{
		source:   source,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
		group:    syncx.NewSingleFlight(),
	}
}

func (s *CachedSource) FetchProblemMeta(ctx context.Context, problemID int64) (model.ProblemMeta, error) {
	key := metaCacheKeyPrefix + strconv.FormatInt(problemID, 10)
	value, err := s.group.Do(key, func() (interface{}, error) {
		return cache.GetWithCached[*model.ProblemMeta](
			ctx,
			s.cache,
			key,
			cache.JitterTTL(s.ttl),
			cache.JitterTTL(s.emptyTTL),
			func(meta *model.ProblemMeta) bool { return meta == nil },
			marshalMeta,
			unmarshalMeta,
			func(ctx context.Context) (*model.ProblemMeta, error) {
				meta, err := s.source.FetchProblemMeta(ctx, problemID)
				if err != nil {
					var statusErr *StatusError
					if errors.As(err, &statusErr) && statusErr.NotFound() {
						return nil, nil
					}
					return nil, err
				}
				return &meta, nil
			},
		)
	})
	if err != nil {
		return model.ProblemMeta{}, err
	}
	meta, _ := value.(*model.ProblemMeta)
	if meta == nil {
		return model.ProblemMeta{}, ErrProblemNotFound
	}
	return *meta, nil
}

func marshalMeta(meta *model.ProblemMeta) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalMeta(data string) (*model.ProblemMeta, error) {
	var meta model.ProblemMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
