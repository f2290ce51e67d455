package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	pkgch "StockPulse/pkg/clickhouse"
	applogger "StockPulse/pkg/logger"
)

const candleTable = "stockpulse.daily_candles"

// PriceSchema returns the idempotent DDL for the price warehouse.
func PriceSchema() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS stockpulse`,
		`CREATE TABLE IF NOT EXISTS stockpulse.daily_candles (
            date        Date,
            region      LowCardinality(String),
            instrument  LowCardinality(String),
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (region, instrument, date)`,
	}
}

// CHPriceSource implements PriceSource backed by ClickHouse. Daily bars are
// keyed by (region, instrument, date); re-ingesting a day replaces the row.
type CHPriceSource struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHPriceSource(ch *pkgch.Client) *CHPriceSource {
	return &CHPriceSource{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHPriceSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceSource) Candles(ctx context.Context, instrument string, from, to string) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT toString(date), instrument, open, high, low, close, volume
        FROM %s FINAL
        WHERE instrument = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	q := fmt.Sprintf(qtpl, candleTable)
	rows, err := s.db.QueryContext(ctx, q, instrument, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_candles query error",
				applogger.String("instrument", instrument),
				applogger.String("from", from),
				applogger.String("to", to),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 512)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Date, &c.Instrument, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_candles ok",
			applogger.String("instrument", instrument),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHPriceSource) Instruments(ctx context.Context, region models.MarketRegion) ([]string, error) {
	const qtpl = `SELECT DISTINCT instrument FROM %s WHERE region = ? ORDER BY instrument`
	q := fmt.Sprintf(qtpl, candleTable)
	rows, err := s.db.QueryContext(ctx, q, region.String())
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// StoreCandles batch-inserts daily bars for one region. The ReplacingMergeTree
// key makes re-collection of the same day idempotent.
func (s *CHPriceSource) StoreCandles(ctx context.Context, region models.MarketRegion, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()
	const batch = 500
	for i := 0; i < len(candles); i += batch {
		end := i + batch
		if end > len(candles) {
			end = len(candles)
		}
		values := make([]string, 0, end-i)
		args := make([]interface{}, 0, (end-i)*8)
		for _, c := range candles[i:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, c.Date, region.String(), c.Instrument, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (date, region, instrument, open, high, low, close, volume) VALUES %s",
			candleTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse store_candles insert error",
					applogger.String("region", region.String()),
					applogger.Int("batch", end-i),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store candles: %w", err)
		}
	}
	if s.l != nil {
		s.l.Info("clickhouse store_candles ok",
			applogger.String("region", region.String()),
			applogger.Int("rows", len(candles)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}
