package journal

import (
	"sync"

	"spotConsensusBot/internal/domain"
)

// Stats aggregates completed round trips for display. A round trip is a
// buy followed by the next sell.
type Stats struct {
	TotalTrades   int // confirmed fills recorded
	RoundTrips    int
	WinningTrades int
	WinRate       float64
	RealizedPnL   float64 // in quote units
}

// Journal is a bounded, append-only in-memory trade log. It is used only
// for display and profit aggregation; it is not authoritative for
// position tracking and is lost on restart.
type Journal struct {
	mu      sync.Mutex
	records []*domain.TradeRecord
	max     int

	// open round trip, if any
	entryPrice float64
	entryQty   float64
	haveEntry  bool

	stats Stats
}

// New creates a journal keeping at most max records. max <= 0 means
// unbounded.
func New(max int) *Journal {
	return &Journal{max: max}
}

// Append records a confirmed fill and updates the aggregate stats.
func (j *Journal) Append(rec *domain.TradeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
	if j.max > 0 && len(j.records) > j.max {
		j.records = j.records[len(j.records)-j.max:]
	}
	j.stats.TotalTrades++

	switch rec.Action {
	case domain.ActionBuy:
		j.entryPrice = rec.Price
		j.entryQty = rec.Quantity
		j.haveEntry = true
	case domain.ActionSell:
		if !j.haveEntry {
			return
		}
		qty := rec.Quantity
		if j.entryQty < qty {
			qty = j.entryQty
		}
		pnl := (rec.Price - j.entryPrice) * qty
		j.stats.RoundTrips++
		j.stats.RealizedPnL += pnl
		if pnl > 0 {
			j.stats.WinningTrades++
		}
		j.stats.WinRate = float64(j.stats.WinningTrades) / float64(j.stats.RoundTrips)
		j.haveEntry = false
	}
}

// Recent returns up to n of the most recent records, newest last.
func (j *Journal) Recent(n int) []*domain.TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || n > len(j.records) {
		n = len(j.records)
	}
	out := make([]*domain.TradeRecord, n)
	copy(out, j.records[len(j.records)-n:])
	return out
}

// Stats returns a copy of the aggregate statistics.
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}
