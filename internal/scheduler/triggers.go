// Package scheduler fires the pipeline stages at market-correct local times
// for both regions. The trigger table is a pure function of the calendar
// date so daylight-saving behavior is testable without a running clock.
package scheduler

import (
	"time"

	"StockPulse/internal/domain/models"
)

// TriggerKind names what a slot does when it fires.
type TriggerKind string

const (
	KindPremarketAlert  TriggerKind = "premarket_alert"
	KindRegularAlert    TriggerKind = "regular_alert"
	KindCloseAnalysis   TriggerKind = "close_analysis"
	KindDataCollection  TriggerKind = "data_collection"
	KindWeeklyIntensive TriggerKind = "weekly_intensive"
)

// Trigger is one named slot in a day's schedule. At is an absolute instant;
// render it in KST for operator-facing output.
type Trigger struct {
	Name   string              `json:"name"`
	Region models.MarketRegion `json:"region"`
	Kind   TriggerKind         `json:"kind"`
	At     time.Time           `json:"at"`
}

var (
	kst = mustLocation("Asia/Seoul")
	et  = mustLocation("America/New_York")
)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("load location " + name + ": " + err.Error())
	}
	return loc
}

// TriggerTimes computes the slot table for one KST calendar date. Domestic
// anchors are fixed KST wall-clock times; foreign anchors are fixed ET
// wall-clock times, so their KST instants shift by an hour across a
// daylight-saving transition. The foreign close analysis belongs to the
// previous ET trading day: its 16:30 ET close lands in the early KST
// morning of this date.
func TriggerTimes(date time.Time) map[string]Trigger {
	y, m, d := date.In(kst).Date()
	kstDay := time.Date(y, m, d, 0, 0, 0, 0, kst)
	out := make(map[string]Trigger)

	if isWeekday(kstDay) {
		put(out, "domestic_premarket_alert", models.RegionDomestic, KindPremarketAlert, at(kstDay, 8, 30, kst))
		put(out, "domestic_close_analysis", models.RegionDomestic, KindCloseAnalysis, at(kstDay, 16, 0, kst))
		put(out, "domestic_data_collection", models.RegionDomestic, KindDataCollection, at(kstDay, 16, 30, kst))
	}

	etDay := time.Date(y, m, d, 0, 0, 0, 0, et)
	if isWeekday(etDay) {
		put(out, "foreign_premarket_alert", models.RegionForeign, KindPremarketAlert, at(etDay, 3, 30, et))
		put(out, "foreign_regular_alert", models.RegionForeign, KindRegularAlert, at(etDay, 9, 0, et))
	}
	etPrev := etDay.AddDate(0, 0, -1)
	if isWeekday(etPrev) {
		put(out, "foreign_close_analysis", models.RegionForeign, KindCloseAnalysis, at(etPrev, 16, 30, et))
		put(out, "foreign_data_collection", models.RegionForeign, KindDataCollection, at(etPrev, 17, 0, et))
	}

	if kstDay.Weekday() == time.Saturday {
		put(out, "weekly_intensive", models.RegionDomestic, KindWeeklyIntensive, at(kstDay, 12, 0, kst))
	}
	return out
}

func put(m map[string]Trigger, name string, region models.MarketRegion, kind TriggerKind, when time.Time) {
	m[name] = Trigger{Name: name, Region: region, Kind: kind, At: when}
}

func at(day time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// MarketSession labels where a region's market is in its daily cycle.
type MarketSession string

const (
	SessionClosed      MarketSession = "CLOSED"
	SessionPremarket   MarketSession = "PREMARKET"
	SessionOpen        MarketSession = "OPEN"
	SessionAftermarket MarketSession = "AFTERMARKET"
)

// Session reports the current session for a region at an instant.
func Session(region models.MarketRegion, now time.Time) MarketSession {
	switch region {
	case models.RegionDomestic:
		local := now.In(kst)
		if !isWeekday(local) {
			return SessionClosed
		}
		mins := local.Hour()*60 + local.Minute()
		switch {
		case mins >= 8*60 && mins < 9*60:
			return SessionPremarket
		case mins >= 9*60 && mins < 15*60+30:
			return SessionOpen
		case mins >= 15*60+30 && mins < 18*60:
			return SessionAftermarket
		default:
			return SessionClosed
		}
	case models.RegionForeign:
		local := now.In(et)
		if !isWeekday(local) {
			return SessionClosed
		}
		mins := local.Hour()*60 + local.Minute()
		switch {
		case mins >= 4*60 && mins < 9*60+30:
			return SessionPremarket
		case mins >= 9*60+30 && mins < 16*60:
			return SessionOpen
		case mins >= 16*60 && mins < 20*60:
			return SessionAftermarket
		default:
			return SessionClosed
		}
	}
	return SessionClosed
}
