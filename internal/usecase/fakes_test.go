package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	applogger "StockPulse/pkg/logger"
)

// memPrices is an in-memory PriceSource and CandleSink.
type memPrices struct {
	mu      sync.Mutex
	regions map[models.MarketRegion][]string
	candles map[string][]models.Candle
	err     error
}

func newMemPrices() *memPrices {
	return &memPrices{
		regions: make(map[models.MarketRegion][]string),
		candles: make(map[string][]models.Candle),
	}
}

func (m *memPrices) add(region models.MarketRegion, instrument string, candles ...models.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := false
	for _, n := range m.regions[region] {
		if n == instrument {
			known = true
			break
		}
	}
	if !known {
		m.regions[region] = append(m.regions[region], instrument)
	}
	m.candles[instrument] = append(m.candles[instrument], candles...)
	sort.Slice(m.candles[instrument], func(i, j int) bool {
		return m.candles[instrument][i].Date < m.candles[instrument][j].Date
	})
}

func (m *memPrices) Candles(_ context.Context, instrument string, from, to string) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Candle
	for _, c := range m.candles[instrument] {
		if c.Date >= from && c.Date <= to {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memPrices) Instruments(_ context.Context, region models.MarketRegion) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.regions[region]...), nil
}

func (m *memPrices) StoreCandles(_ context.Context, region models.MarketRegion, candles []models.Candle) error {
	for _, c := range candles {
		m.add(region, c.Instrument, c)
	}
	return nil
}

// memArtifacts is an in-memory ArtifactStore with a backup stack.
type memArtifacts struct {
	mu      sync.Mutex
	active  map[models.MarketRegion]*models.ModelArtifact
	backups map[models.MarketRegion][]*models.ModelArtifact
	saveErr error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{
		active:  make(map[models.MarketRegion]*models.ModelArtifact),
		backups: make(map[models.MarketRegion][]*models.ModelArtifact),
	}
}

func (m *memArtifacts) SaveActive(_ context.Context, artifact *models.ModelArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.active[artifact.Region] = artifact
	return nil
}

func (m *memArtifacts) Active(_ context.Context, region models.MarketRegion) (*models.ModelArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.active[region]
	if !ok {
		return nil, models.ErrNoActiveModel
	}
	return a, nil
}

func (m *memArtifacts) Backup(_ context.Context, region models.MarketRegion) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.active[region]
	if !ok {
		return "", models.ErrNoActiveModel
	}
	m.backups[region] = append(m.backups[region], a)
	return "backup-" + a.Version, nil
}

func (m *memArtifacts) RestoreLatest(_ context.Context, region models.MarketRegion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.backups[region]
	if len(stack) == 0 {
		return fmt.Errorf("no backups for region %s", region)
	}
	m.active[region] = stack[len(stack)-1]
	return nil
}

func (m *memArtifacts) Backups(_ context.Context, region models.MarketRegion) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, a := range m.backups[region] {
		names = append(names, "backup-"+a.Version)
	}
	return names, nil
}

// memPredictions is an in-memory PredictionStore keyed by natural ID.
type memPredictions struct {
	mu   sync.Mutex
	rows map[string]*models.Prediction
}

func newMemPredictions() *memPredictions {
	return &memPredictions{rows: make(map[string]*models.Prediction)}
}

func (m *memPredictions) Save(_ context.Context, predictions []*models.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range predictions {
		if p.ID == "" {
			p.ID = models.PredictionID(p.Date, p.Region, p.Instrument)
		}
		m.rows[p.ID] = p
	}
	return nil
}

func (m *memPredictions) ByDate(_ context.Context, date string, region models.MarketRegion) ([]*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Prediction
	for _, p := range m.rows {
		if p.Date == date && p.Region == region {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out, nil
}

func (m *memPredictions) Between(_ context.Context, from, to string, region models.MarketRegion) ([]*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Prediction
	for _, p := range m.rows {
		if p.Region == region && p.Date >= from && p.Date <= to {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// memPerformance is an in-memory PerformanceStore.
type memPerformance struct {
	mu   sync.Mutex
	rows map[string]*models.PerformanceRecord
}

func newMemPerformance() *memPerformance {
	return &memPerformance{rows: make(map[string]*models.PerformanceRecord)}
}

func (m *memPerformance) Save(_ context.Context, record *models.PerformanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == "" {
		record.ID = models.PerformanceID(record.Date, record.Region)
	}
	m.rows[record.ID] = record
	return nil
}

func (m *memPerformance) Recent(_ context.Context, region models.MarketRegion, limit int) ([]*models.PerformanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PerformanceRecord
	for _, r := range m.rows {
		if r.Region == region {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPerformance) Between(_ context.Context, from, to string, region models.MarketRegion) ([]*models.PerformanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PerformanceRecord
	for _, r := range m.rows {
		if r.Region == region && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// memSnapshots is an in-memory ConditionStore.
type memSnapshots struct {
	mu     sync.Mutex
	conds  map[models.MarketRegion]*models.MarketCondition
	quotes map[string]*models.Quote
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{
		conds:  make(map[models.MarketRegion]*models.MarketCondition),
		quotes: make(map[string]*models.Quote),
	}
}

func (m *memSnapshots) SaveCondition(_ context.Context, region models.MarketRegion, cond *models.MarketCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conds[region] = cond
	return nil
}

func (m *memSnapshots) Condition(_ context.Context, region models.MarketRegion) (*models.MarketCondition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conds[region]; ok {
		return c, nil
	}
	neutral := models.NeutralCondition(time.Now())
	return &neutral, nil
}

func (m *memSnapshots) LatestQuote(_ context.Context, instrument string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotes[instrument], nil
}

// memEvents records published pipeline events.
type memEvents struct {
	mu     sync.Mutex
	events []string
}

func (m *memEvents) Publish(_ context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := event.(map[string]interface{}); ok {
		if name, ok := ev["event"].(string); ok {
			m.events = append(m.events, name)
			return nil
		}
	}
	m.events = append(m.events, key)
	return nil
}

func (m *memEvents) Close() error { return nil }

func (m *memEvents) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// memNotifier records alerts.
type memNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (m *memNotifier) Notify(_ context.Context, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func quietLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}
