package domain

import "time"

// PositionState tracks the bot's current holding side. It is a process-
// lifetime singleton mutated only by the trading loop, and only after a
// confirmed fill — never on an attempted or rejected order.
type PositionState struct {
	side              PositionSide
	entryPrice        float64
	entryTime         time.Time
	highestSinceEntry float64
	quantity          float64
}

// PositionSnapshot is a read-only copy of the position for status display.
type PositionSnapshot struct {
	Side              PositionSide
	EntryPrice        float64
	EntryTime         time.Time
	HighestSinceEntry float64
	Quantity          float64
}

// NewPositionState returns a fresh flat position.
func NewPositionState() *PositionState {
	return &PositionState{side: SideNone}
}

// Side returns the current holding side.
func (p *PositionState) Side() PositionSide { return p.side }

// EntryPrice returns the fill price of the open position, 0 when flat.
func (p *PositionState) EntryPrice() float64 { return p.entryPrice }

// EntryTime returns the fill time of the open position.
func (p *PositionState) EntryTime() time.Time { return p.entryTime }

// HighestSinceEntry returns the highest price observed since entry,
// used by the trailing-stop exit rule.
func (p *PositionState) HighestSinceEntry() float64 { return p.highestSinceEntry }

// Quantity returns the filled base quantity of the open position.
func (p *PositionState) Quantity() float64 { return p.quantity }

// ObservePrice ratchets the highest-since-entry price while long.
func (p *PositionState) ObservePrice(price float64) {
	if p.side == SideLong && price > p.highestSinceEntry {
		p.highestSinceEntry = price
	}
}

// MarkLong records a confirmed buy fill and transitions to LONG.
func (p *PositionState) MarkLong(fillPrice, quantity float64, at time.Time) {
	p.side = SideLong
	p.entryPrice = fillPrice
	p.entryTime = at
	p.highestSinceEntry = fillPrice
	p.quantity = quantity
}

// MarkSold records a confirmed sell fill and transitions to the spot-only
// SHORT label (flat after sell, awaiting re-buy), clearing entry data.
func (p *PositionState) MarkSold() {
	p.side = SideShort
	p.clearEntry()
}

// Reset forces the position back to NONE. Used for emergency and
// time-limit exits, which always leave the bot flat.
func (p *PositionState) Reset() {
	p.side = SideNone
	p.clearEntry()
}

func (p *PositionState) clearEntry() {
	p.entryPrice = 0
	p.entryTime = time.Time{}
	p.highestSinceEntry = 0
	p.quantity = 0
}

// Snapshot returns a copy of the position for read-only consumers.
func (p *PositionState) Snapshot() PositionSnapshot {
	return PositionSnapshot{
		Side:              p.side,
		EntryPrice:        p.entryPrice,
		EntryTime:         p.entryTime,
		HighestSinceEntry: p.highestSinceEntry,
		Quantity:          p.quantity,
	}
}
