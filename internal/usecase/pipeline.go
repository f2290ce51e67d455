package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	"StockPulse/internal/notify"
	"StockPulse/internal/services/analytics"
	"StockPulse/internal/services/features"
	"StockPulse/internal/services/ml"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/util"
)

const (
	regimeLookbackDays     = 90
	predictionLookbackDays = 150
	volatilityWindow       = 20
	reportWindowDays       = 7
	alertTopCount          = 5
	strategistHistory      = 7
)

// CandleSink accepts collected daily bars. The ClickHouse price source
// implements it on top of its warehouse table.
type CandleSink interface {
	StoreCandles(ctx context.Context, region models.MarketRegion, candles []models.Candle) error
}

// ConditionStore serves the cached market condition and latest quotes.
type ConditionStore interface {
	SaveCondition(ctx context.Context, region models.MarketRegion, cond *models.MarketCondition) error
	Condition(ctx context.Context, region models.MarketRegion) (*models.MarketCondition, error)
	LatestQuote(ctx context.Context, instrument string) (*models.Quote, error)
}

// PipelineConfig carries the per-region instrument universe and shared
// prediction parameters.
type PipelineConfig struct {
	Instruments map[models.MarketRegion][]string
	// IndexProxies picks the instruments whose closes proxy the region's
	// index for regime detection. Empty falls back to Instruments.
	IndexProxies map[models.MarketRegion][]string
	HorizonDays  int
}

// Pipeline runs the daily prediction, evaluation and collection cycles for
// both market regions.
type Pipeline struct {
	cfg         PipelineConfig
	builder     *features.Builder
	detector    *analytics.RegimeDetector
	evaluator   *analytics.Evaluator
	strategist  *analytics.Strategist
	predictor   *ml.EnsemblePredictor
	lifecycle   *Lifecycle
	resolver    *OutcomeResolver
	predictions repository.PredictionStore
	performance repository.PerformanceStore
	prices      repository.PriceSource
	sink        CandleSink
	snapshots   ConditionStore
	events      repository.EventPublisher
	notifier    notify.Sink
	rec         *metrics.Recorder
	l           *applogger.Logger
	now         func() time.Time
}

func NewPipeline(
	cfg PipelineConfig,
	builder *features.Builder,
	detector *analytics.RegimeDetector,
	evaluator *analytics.Evaluator,
	strategist *analytics.Strategist,
	predictor *ml.EnsemblePredictor,
	lifecycle *Lifecycle,
	resolver *OutcomeResolver,
	predictions repository.PredictionStore,
	performance repository.PerformanceStore,
	prices repository.PriceSource,
	sink CandleSink,
	snapshots ConditionStore,
	events repository.EventPublisher,
	notifier notify.Sink,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *Pipeline {
	if cfg.HorizonDays < 1 {
		cfg.HorizonDays = 1
	}
	return &Pipeline{
		cfg:         cfg,
		builder:     builder,
		detector:    detector,
		evaluator:   evaluator,
		strategist:  strategist,
		predictor:   predictor,
		lifecycle:   lifecycle,
		resolver:    resolver,
		predictions: predictions,
		performance: performance,
		prices:      prices,
		sink:        sink,
		snapshots:   snapshots,
		events:      events,
		notifier:    notifier,
		rec:         rec,
		l:           l,
		now:         time.Now,
	}
}

// SetClock overrides the pipeline clock. Tests use it to pin dates.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// EvaluationDate returns which prediction date a close analysis run on the
// given day can evaluate: the day whose horizon just elapsed.
func (p *Pipeline) EvaluationDate(today string) string {
	return util.AddDays(today, -p.cfg.HorizonDays)
}

// RunPredictionCycle detects the current market condition, scores every
// configured instrument with the region's serving model and persists the
// batch. Instruments with too little history are skipped, not fatal.
func (p *Pipeline) RunPredictionCycle(ctx context.Context, region models.MarketRegion) ([]*models.Prediction, error) {
	start := p.now()
	today := util.FormatDate(start)

	cond := p.detectCondition(ctx)
	if err := p.snapshots.SaveCondition(ctx, region, &cond); err != nil {
		p.l.Warn("condition snapshot save failed", applogger.Error(err))
	}

	from := util.AddDays(today, -predictionLookbackDays)
	var preds []*models.Prediction
	var skipped int
	for _, instrument := range p.cfg.Instruments[region] {
		candles, err := p.prices.Candles(ctx, instrument, from, today)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrDataSourceUnavailable, err)
		}
		fv, err := p.builder.Build(instrument, candles)
		if errors.Is(err, models.ErrInsufficientHistory) {
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("features for %s: %w", instrument, err)
		}

		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}
		recentVol := features.RecentVolatility(closes, volatilityWindow)

		ret, conf, version, err := p.predictor.Predict(region, fv, recentVol)
		if err != nil {
			return nil, err
		}
		preds = append(preds, &models.Prediction{
			ID:              models.PredictionID(today, region, instrument),
			Instrument:      instrument,
			Region:          region,
			Date:            today,
			PredictedReturn: ret,
			Confidence:      conf,
			Recommendation:  models.Recommend(ret, conf, cond.HighRisk()),
			Regime:          cond.Regime,
			RiskLevel:       cond.RiskLevel,
			ModelVersion:    version,
			CreatedAt:       start,
		})
		p.rec.RecordPrediction(region.String())
	}

	if len(preds) > 0 {
		if err := p.predictions.Save(ctx, preds); err != nil {
			return nil, fmt.Errorf("save predictions: %w", err)
		}
	}
	p.rec.RecordLatency("prediction_cycle", p.now().Sub(start).Seconds())
	p.l.Info("prediction cycle complete",
		applogger.String("region", region.String()),
		applogger.String("date", today),
		applogger.Int("predictions", len(preds)),
		applogger.Int("skipped", skipped),
		applogger.String("regime", string(cond.Regime)),
	)
	_ = p.events.Publish(ctx, region.String(), map[string]interface{}{
		"event":       "predictions_made",
		"region":      region.String(),
		"date":        today,
		"predictions": len(preds),
		"regime":      string(cond.Regime),
		"risk_level":  string(cond.RiskLevel),
	})
	return preds, nil
}

// RunEvaluationCycle scores the predictions whose horizon elapsed today,
// persists the scorecard and retrains the region's model under the
// strategist's chosen effort.
func (p *Pipeline) RunEvaluationCycle(ctx context.Context, region models.MarketRegion, date string) (*models.PerformanceRecord, error) {
	start := p.now()
	preds, err := p.predictions.ByDate(ctx, date, region)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	if len(preds) == 0 {
		p.l.Info("nothing to evaluate",
			applogger.String("region", region.String()),
			applogger.String("date", date),
		)
		return nil, nil
	}

	outcomes, err := p.resolver.ResolveAll(ctx, preds)
	if err != nil {
		return nil, err
	}

	cond, err := p.snapshots.Condition(ctx, region)
	if err != nil {
		neutral := models.NeutralCondition(p.now())
		cond = &neutral
	}

	record, err := p.evaluator.Evaluate(date, region, preds, outcomes, cond.Regime, p.now())
	if errors.Is(err, models.ErrNoMatchedOutcomes) {
		// Outcomes simply have not landed yet; the next cycle picks
		// these predictions up again.
		p.l.Warn("no outcomes matched",
			applogger.String("region", region.String()),
			applogger.String("date", date),
			applogger.Int("predictions", len(preds)),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := p.performance.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save performance: %w", err)
	}

	p.rec.RecordAccuracy(region.String(), record.Accuracy)
	p.rec.RecordConfidence(region.String(), record.MeanConfidence)
	p.rec.RecordLatency("evaluation_cycle", p.now().Sub(start).Seconds())
	p.l.Info("evaluation complete",
		applogger.String("region", region.String()),
		applogger.String("date", date),
		applogger.Int("matched", record.Matched),
		applogger.Float64("accuracy", record.Accuracy),
		applogger.Float64("rmse", record.RMSE),
	)
	_ = p.events.Publish(ctx, region.String(), map[string]interface{}{
		"event":    "evaluation_complete",
		"region":   region.String(),
		"date":     date,
		"matched":  record.Matched,
		"accuracy": record.Accuracy,
	})

	_ = p.notifier.Notify(ctx, "Close analysis: "+region.String(),
		fmt.Sprintf("%s matched %d predictions, accuracy %.0f%%",
			date, record.Matched, record.Accuracy*100))

	p.retrainPerStrategy(ctx, region)
	return record, nil
}

func (p *Pipeline) retrainPerStrategy(ctx context.Context, region models.MarketRegion) {
	recent, err := p.performance.Recent(ctx, region, strategistHistory)
	if err != nil {
		p.l.Error("strategy history load failed",
			applogger.String("region", region.String()),
			applogger.Error(err),
		)
		recent = nil
	}
	strategy := p.strategist.Decide(region, recent, p.now())
	p.l.Info("training strategy decided",
		applogger.String("region", region.String()),
		applogger.String("intensity", string(strategy.Intensity)),
		applogger.Float64("effort", strategy.EffortMultiplier),
		applogger.String("reason", strategy.Reason),
	)

	err = p.lifecycle.Retrain(ctx, region, strategy)
	if errors.Is(err, ErrRetrainInProgress) {
		p.l.Warn("retrain skipped, already running",
			applogger.String("region", region.String()),
		)
		return
	}
	if err != nil {
		// Lifecycle already recorded and published the failure. Serving
		// continues on whatever model is installed; the operator still
		// needs to hear about it.
		var rerr *models.RetrainError
		if errors.As(err, &rerr) {
			_ = p.notifier.Notify(ctx, "Retrain failed: "+region.String(),
				fmt.Sprintf("stage %s, restored=%t: %v", rerr.Stage, rerr.Restored, rerr.Err))
		}
		return
	}
}

// RunDataCollection folds the most recent streamed quotes into daily bars
// and appends them to the price warehouse. Returns how many bars landed.
func (p *Pipeline) RunDataCollection(ctx context.Context, region models.MarketRegion) (int, error) {
	today := util.FormatDate(p.now())
	var bars []models.Candle
	for _, instrument := range p.cfg.Instruments[region] {
		q, err := p.snapshots.LatestQuote(ctx, instrument)
		if err != nil {
			return 0, fmt.Errorf("latest quote %s: %w", instrument, err)
		}
		if q == nil || q.Price == 0 {
			continue
		}
		bars = append(bars, models.Candle{
			Instrument: instrument,
			Date:       today,
			Open:       q.Price,
			High:       q.Price,
			Low:        q.Price,
			Close:      q.Price,
			Volume:     q.Volume,
			Time:       q.At,
		})
	}
	if len(bars) == 0 {
		p.l.Warn("no quotes to collect", applogger.String("region", region.String()))
		return 0, nil
	}
	if err := p.sink.StoreCandles(ctx, region, bars); err != nil {
		return 0, err
	}
	p.l.Info("data collection complete",
		applogger.String("region", region.String()),
		applogger.String("date", today),
		applogger.Int("bars", len(bars)),
	)
	_ = p.events.Publish(ctx, region.String(), map[string]interface{}{
		"event":  "data_collected",
		"region": region.String(),
		"date":   today,
		"bars":   len(bars),
	})
	return len(bars), nil
}

// MarketAlert pushes the current condition and the day's highest-confidence
// predictions to the notification sink.
func (p *Pipeline) MarketAlert(ctx context.Context, region models.MarketRegion, kind string) error {
	today := util.FormatDate(p.now())
	cond, err := p.snapshots.Condition(ctx, region)
	if err != nil {
		neutral := models.NeutralCondition(p.now())
		cond = &neutral
	}
	preds, err := p.predictions.ByDate(ctx, today, region)
	if err != nil {
		return fmt.Errorf("load predictions: %w", err)
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].Confidence > preds[j].Confidence })
	if len(preds) > alertTopCount {
		preds = preds[:alertTopCount]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Regime %s, risk %s, volatility %.2f\n", cond.Regime, cond.RiskLevel, cond.Volatility)
	for _, pr := range preds {
		fmt.Fprintf(&b, "%s: %+.2f%% (%s, conf %.0f%%)\n",
			pr.Instrument, pr.PredictedReturn, pr.Recommendation, pr.Confidence*100)
	}
	subject := fmt.Sprintf("%s %s %s", strings.ToUpper(kind), region, today)
	if err := p.notifier.Notify(ctx, subject, b.String()); err != nil {
		p.l.Warn("alert delivery failed",
			applogger.String("kind", kind),
			applogger.Error(err),
		)
		return err
	}
	return nil
}

// RegionReport aggregates one region's scorecards over the report window.
type RegionReport struct {
	Region       models.MarketRegion `json:"region"`
	Days         int                 `json:"days"`
	Matched      int                 `json:"matched"`
	Correct      int                 `json:"correct"`
	MeanAccuracy float64             `json:"mean_accuracy"`
	BestDate     string              `json:"best_date"`
	BestAccuracy float64             `json:"best_accuracy"`
	Strategy     models.TrainingStrategy `json:"strategy"`
}

// Report is the weekly roll-up across regions.
type Report struct {
	From        string         `json:"from"`
	To          string         `json:"to"`
	Regions     []RegionReport `json:"regions"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// WeeklyReport rolls up the last week of scorecards per region and pushes a
// summary to the notification sink.
func (p *Pipeline) WeeklyReport(ctx context.Context) (*Report, error) {
	to := util.FormatDate(p.now())
	from := util.AddDays(to, -reportWindowDays)
	report := &Report{From: from, To: to, GeneratedAt: p.now()}

	for _, region := range models.AllRegions() {
		records, err := p.performance.Between(ctx, from, to, region)
		if err != nil {
			return nil, fmt.Errorf("load performance %s: %w", region, err)
		}
		rr := RegionReport{Region: region}
		var accSum float64
		for _, r := range records {
			rr.Days++
			rr.Matched += r.Matched
			rr.Correct += r.Correct
			accSum += r.Accuracy
			if r.Accuracy >= rr.BestAccuracy {
				rr.BestAccuracy = r.Accuracy
				rr.BestDate = r.Date
			}
		}
		if rr.Days > 0 {
			rr.MeanAccuracy = accSum / float64(rr.Days)
		}
		recent, err := p.performance.Recent(ctx, region, strategistHistory)
		if err == nil {
			rr.Strategy = p.strategist.Decide(region, recent, p.now())
		}
		report.Regions = append(report.Regions, rr)
	}

	var b strings.Builder
	for _, rr := range report.Regions {
		fmt.Fprintf(&b, "%s: %d days, accuracy %.1f%%, %d/%d correct, next %s\n",
			rr.Region, rr.Days, rr.MeanAccuracy*100, rr.Correct, rr.Matched, rr.Strategy.Intensity)
	}
	if err := p.notifier.Notify(ctx, fmt.Sprintf("WEEKLY REPORT %s", to), b.String()); err != nil {
		p.l.Warn("weekly report delivery failed", applogger.Error(err))
	}
	p.l.Info("weekly report generated",
		applogger.String("from", from),
		applogger.String("to", to),
	)
	return report, nil
}

// WeeklyIntensive runs the Saturday maintenance slot: the weekly roll-up
// plus a strategist-driven retrain for each region while markets are shut.
func (p *Pipeline) WeeklyIntensive(ctx context.Context) error {
	if _, err := p.WeeklyReport(ctx); err != nil {
		return err
	}
	for _, region := range models.AllRegions() {
		p.retrainPerStrategy(ctx, region)
	}
	return nil
}

// Predictions returns the stored predictions for one date and region.
func (p *Pipeline) Predictions(ctx context.Context, date string, region models.MarketRegion) ([]*models.Prediction, error) {
	return p.predictions.ByDate(ctx, date, region)
}

// Performance returns up to limit recent scorecards for a region, newest
// first.
func (p *Pipeline) Performance(ctx context.Context, region models.MarketRegion, limit int) ([]*models.PerformanceRecord, error) {
	return p.performance.Recent(ctx, region, limit)
}

// RegionStatus is one region's live view for the status API.
type RegionStatus struct {
	Region          models.MarketRegion       `json:"region"`
	ModelVersion    string                    `json:"model_version,omitempty"`
	ModelInstalled  bool                      `json:"model_installed"`
	Condition       *models.MarketCondition   `json:"condition"`
	LastPerformance *models.PerformanceRecord `json:"last_performance,omitempty"`
}

// Status reports the live state of both regions.
func (p *Pipeline) Status(ctx context.Context) ([]RegionStatus, error) {
	var out []RegionStatus
	for _, region := range models.AllRegions() {
		st := RegionStatus{Region: region}
		if v, ok := p.predictor.ActiveVersion(region); ok {
			st.ModelVersion = v
			st.ModelInstalled = true
		}
		cond, err := p.snapshots.Condition(ctx, region)
		if err != nil {
			neutral := models.NeutralCondition(p.now())
			cond = &neutral
		}
		st.Condition = cond
		if recent, err := p.performance.Recent(ctx, region, 1); err == nil && len(recent) > 0 {
			st.LastPerformance = recent[0]
		}
		out = append(out, st)
	}
	return out, nil
}

// detectCondition builds an equal-weight composite close series per region
// and runs the regime detector over both. Missing data falls back to the
// neutral condition inside the detector.
func (p *Pipeline) detectCondition(ctx context.Context) models.MarketCondition {
	now := p.now()
	domestic := p.compositeCloses(ctx, models.RegionDomestic)
	foreign := p.compositeCloses(ctx, models.RegionForeign)
	return p.detector.Detect(domestic, foreign, now)
}

func (p *Pipeline) compositeCloses(ctx context.Context, region models.MarketRegion) []float64 {
	today := util.FormatDate(p.now())
	from := util.AddDays(today, -regimeLookbackDays)

	proxies := p.cfg.IndexProxies[region]
	if len(proxies) == 0 {
		proxies = p.cfg.Instruments[region]
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, instrument := range proxies {
		candles, err := p.prices.Candles(ctx, instrument, from, today)
		if err != nil {
			p.l.Warn("composite close load failed",
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
			continue
		}
		// Normalize each instrument to its first close so one expensive
		// name does not dominate the composite.
		if len(candles) == 0 || candles[0].Close == 0 {
			continue
		}
		base := candles[0].Close
		for _, c := range candles {
			sums[c.Date] += c.Close / base
			counts[c.Date]++
		}
	}

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	out := make([]float64, 0, len(dates))
	for _, d := range dates {
		out = append(out, sums[d]/float64(counts[d]))
	}
	return out
}
