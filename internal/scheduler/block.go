package scheduler

import (
	"fmt"
	"time"
)

// BlockType tells how the battery is driven during a block.
type BlockType string

const (
	// Charge buys energy from the grid to a target state of charge.
	Charge BlockType = "charge"
	// Hold keeps the current charge level, buying back any deficit.
	Hold BlockType = "hold"
	// Use lets the battery cover household consumption.
	Use BlockType = "use"
)

// Status is the runtime state of a block, driven by the block monitor.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusStarted Status = "started"
	StatusFull    Status = "full"
	StatusError   Status = "error"
)

// Block is one scheduled battery period. Times are local, EndTime is
// non-inclusive. Charges are kWh above the 10% battery floor, SoC values
// are percentages.
type Block struct {
	BlockID   int64     `json:"block_id"`
	Type      BlockType `json:"block_type"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Cost      float64   `json:"cost"`
	ChargeIn  float64   `json:"charge_in"`
	ChargeOut float64   `json:"charge_out"`
	SocIn     int       `json:"soc_in"`
	SocOut    int       `json:"soc_out"`
	Status    Status    `json:"status"`

	socKwh float64
}

// Contains reports whether the given time falls inside the block.
func (b *Block) Contains(t time.Time) bool {
	return !t.Before(b.StartTime) && t.Before(b.EndTime)
}

// UpdateStatus transitions the block. When a charge block is reported full
// the reached SoC backfills the planned charge out.
func (b *Block) UpdateStatus(status Status, soc int) {
	if b.Type == Charge && status == StatusFull {
		b.SocOut = soc
		b.ChargeOut = float64(soc-10) * b.socKwh
	}
	b.Status = status
}

func (b *Block) String() string {
	return fmt.Sprintf("%-7s - %-6s -> %s - %s: SocIn %3d, SocOut %3d, chargeIn %5.2f, chargeOut %5.2f, cost %5.2f",
		b.Status, b.Type,
		b.StartTime.Format("15:04"), b.EndTime.Format("15:04"),
		b.SocIn, b.SocOut,
		b.ChargeIn, b.ChargeOut,
		b.Cost)
}
