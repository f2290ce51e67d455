package scheduler

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/usecase"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

const (
	defaultTick  = time.Minute
	defaultGrace = 30 * time.Minute
)

// Runner is the slice of the pipeline the scheduler drives.
type Runner interface {
	RunPredictionCycle(ctx context.Context, region models.MarketRegion) ([]*models.Prediction, error)
	RunEvaluationCycle(ctx context.Context, region models.MarketRegion, date string) (*models.PerformanceRecord, error)
	RunDataCollection(ctx context.Context, region models.MarketRegion) (int, error)
	MarketAlert(ctx context.Context, region models.MarketRegion, kind string) error
	WeeklyIntensive(ctx context.Context) error
	EvaluationDate(today string) string
}

var _ Runner = (*usecase.Pipeline)(nil)

// Scheduler is the thin driver over TriggerTimes: it re-evaluates the table
// when the KST date changes and fires each slot once, on a worker goroutine,
// within a grace window after its instant.
type Scheduler struct {
	runner Runner
	l      *applogger.Logger
	tick   time.Duration
	grace  time.Duration
	now    func() time.Time

	mu       sync.Mutex
	day      string
	triggers map[string]Trigger
	fired    map[string]bool

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func New(runner Runner, l *applogger.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		l:      l,
		tick:   defaultTick,
		grace:  defaultGrace,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

// SetClock overrides the scheduler clock. Tests use it to replay days.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// SetTick overrides the polling interval.
func (s *Scheduler) SetTick(d time.Duration) { s.tick = d }

// Run blocks, polling once per tick, until the context is canceled or Stop
// is called. Triggered tasks keep running to completion on shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-s.stop:
			s.wg.Wait()
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Stop ends the Run loop after in-flight tasks finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Poll advances the scheduler by one tick: recompute the table on a KST
// date change, then fire any due, unfired slot. Exposed for tests.
func (s *Scheduler) Poll(ctx context.Context) {
	now := s.now()
	day := now.In(kst).Format(util.DateLayout)

	s.mu.Lock()
	if day != s.day {
		s.day = day
		s.triggers = TriggerTimes(now)
		s.fired = make(map[string]bool)
		s.l.Info("trigger table recomputed",
			applogger.String("date", day),
			applogger.Int("triggers", len(s.triggers)),
		)
	}
	var due []Trigger
	for name, trg := range s.triggers {
		if s.fired[name] {
			continue
		}
		if now.Before(trg.At) {
			continue
		}
		s.fired[name] = true
		if now.After(trg.At.Add(s.grace)) {
			s.l.Warn("trigger missed its window",
				applogger.String("trigger", name),
				applogger.String("at", trg.At.In(kst).Format(time.RFC3339)),
			)
			continue
		}
		due = append(due, trg)
	}
	s.mu.Unlock()

	for _, trg := range due {
		trg := trg
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.dispatch(ctx, trg)
		}()
	}
}

func (s *Scheduler) dispatch(ctx context.Context, trg Trigger) {
	start := s.now()
	s.l.Info("trigger firing",
		applogger.String("trigger", trg.Name),
		applogger.String("region", trg.Region.String()),
	)

	var err error
	switch trg.Kind {
	case KindPremarketAlert:
		if _, err = s.runner.RunPredictionCycle(ctx, trg.Region); err == nil {
			err = s.runner.MarketAlert(ctx, trg.Region, "premarket")
		}
	case KindRegularAlert:
		err = s.runner.MarketAlert(ctx, trg.Region, "regular")
	case KindCloseAnalysis:
		today := util.FormatDate(s.now().In(kst))
		_, err = s.runner.RunEvaluationCycle(ctx, trg.Region, s.runner.EvaluationDate(today))
	case KindDataCollection:
		_, err = s.runner.RunDataCollection(ctx, trg.Region)
	case KindWeeklyIntensive:
		err = s.runner.WeeklyIntensive(ctx)
	}

	if err != nil {
		s.l.Error("trigger task failed",
			applogger.String("trigger", trg.Name),
			applogger.String("region", trg.Region.String()),
			applogger.Duration("duration_ms", s.now().Sub(start)),
			applogger.Error(err),
		)
		return
	}
	s.l.Info("trigger task complete",
		applogger.String("trigger", trg.Name),
		applogger.Duration("duration_ms", s.now().Sub(start)),
	)
}
