package ranking

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/prestasi/internal/metrics"
	"github.com/mind-engage/prestasi/internal/saw"
	"github.com/mind-engage/prestasi/internal/school"
)

// Source is the read side the ranking needs. DataVersion must change whenever any of the three collections does.
type Source interface {
	AllStudents(ctx context.Context) ([]school.Student, error)
	AllCriteria(ctx context.Context) ([]school.Criterion, error)
	AllAssessments(ctx context.Context) ([]school.Assessment, error)
	DataVersion(ctx context.Context) (int64, error)
}

// Entry is a ranked student. Rank is the 1-based position in the full ranking.
type Entry struct {
	Rank int `json:"rank"`
	saw.Result
}

// Ranking is the output of one computation together with the data version it was computed from.
type Ranking struct {
	Version  int64              `json:"version"`
	Criteria []school.Criterion `json:"criteria"`
	Entries  []Entry            `json:"results"`
}

type Service struct {
	src     Source
	cache   *lru.Cache[int64, Ranking]
	metrics *metrics.Metrics
	tracer  trace.Tracer
	log     *zap.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option       { return func(s *Service) { s.log = l } }

func NewService(src Source, cacheSize int, opts ...Option) (*Service, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	c, err := lru.New[int64, Ranking](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("ranking cache: %w", err)
	}
	s := &Service{
		src:    src,
		cache:  c,
		tracer: otel.Tracer("github.com/mind-engage/prestasi/internal/ranking"),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Rank returns the current ranking. Results for an unchanged data version come from the cache.
// A computation whose snapshot straddled a write is returned but not cached.
func (s *Service) Rank(ctx context.Context) (rk Ranking, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ranking.Rank")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	version, err := s.src.DataVersion(ctx)
	if err != nil {
		s.observeOutcome("error", start)
		return Ranking{}, fmt.Errorf("data version: %w", err)
	}
	span.SetAttributes(attribute.Int64("ranking.version", version))

	if cached, ok := s.cache.Get(version); ok {
		s.observeCache(metrics.CacheHit)
		span.SetAttributes(attribute.String("ranking.cache", metrics.CacheHit))
		return clone(cached), nil
	}

	var (
		students    []school.Student
		criteria    []school.Criterion
		assessments []school.Assessment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { students, err = s.src.AllStudents(gctx); return })
	g.Go(func() (err error) { criteria, err = s.src.AllCriteria(gctx); return })
	g.Go(func() (err error) { assessments, err = s.src.AllAssessments(gctx); return })
	if err := g.Wait(); err != nil {
		s.observeOutcome("error", start)
		return Ranking{}, fmt.Errorf("fetch snapshot: %w", err)
	}

	after, err := s.src.DataVersion(ctx)
	if err != nil {
		s.observeOutcome("error", start)
		return Ranking{}, fmt.Errorf("data version: %w", err)
	}

	span.SetAttributes(
		attribute.Int("ranking.students", len(students)),
		attribute.Int("ranking.criteria", len(criteria)),
		attribute.Int("ranking.assessments", len(assessments)),
	)

	results, err := saw.Rank(students, criteria, assessments)
	if err != nil {
		if errors.Is(err, saw.ErrInsufficientData) {
			s.observeOutcome("insufficient_data", start)
		} else {
			s.observeOutcome("error", start)
		}
		return Ranking{}, err
	}

	rk = Ranking{Version: version, Criteria: criteria, Entries: make([]Entry, len(results))}
	for i, r := range results {
		rk.Entries[i] = Entry{Rank: i + 1, Result: r}
	}

	outcome := metrics.CacheMiss
	if after == version {
		s.cache.Add(version, rk)
	} else {
		outcome = metrics.CacheSkip
		s.log.Debug("snapshot moved during ranking, not caching",
			zap.Int64("version_before", version), zap.Int64("version_after", after))
	}
	s.observeCache(outcome)
	s.observeOutcome("ok", start)
	if s.metrics != nil {
		s.metrics.RankingStudents.Set(float64(len(rk.Entries)))
	}
	span.SetAttributes(attribute.String("ranking.cache", outcome))
	return clone(rk), nil
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.RankingCache.WithLabelValues(result).Inc()
	}
}

func (s *Service) observeOutcome(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RankingComputations.WithLabelValues(outcome).Inc()
	s.metrics.RankingDuration.Observe(time.Since(start).Seconds())
}

// clone copies everything a caller could mutate so the cached value stays intact.
func clone(rk Ranking) Ranking {
	out := Ranking{
		Version:  rk.Version,
		Criteria: append([]school.Criterion(nil), rk.Criteria...),
		Entries:  make([]Entry, len(rk.Entries)),
	}
	for i, e := range rk.Entries {
		e.Scores = maps.Clone(e.Scores)
		e.NormalizedScores = maps.Clone(e.NormalizedScores)
		out.Entries[i] = e
	}
	return out
}
