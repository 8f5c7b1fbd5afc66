// Package scheduler plans battery charge, hold and use blocks over a
// schedule window of up to 24 hours in 15-minute slots, minimizing the
// cost of bought energy given day-ahead tariffs and the estimated PV
// production and household consumption.
package scheduler

import (
	"math"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/nordpool"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// Slots is the number of 15-minute slots covering a full schedule day.
const Slots = 96

// SlotMinutes is the length of one schedule slot.
const SlotMinutes = 15

// tariffSlots holds the buy price per slot for the active schedule window.
type tariffSlots struct {
	buy    [Slots]float64
	length int
}

// blockInternal is a candidate block during the search, indexed in slots
// relative to the schedule start.
type blockInternal struct {
	blockType BlockType
	start     int
	size      int
	cost      float64
	chargeIn  float64
	chargeOut float64
}

// blockCollection is a partial or complete schedule candidate.
type blockCollection struct {
	blocks       []blockInternal
	nextStart    int
	nextChargeIn float64
	totalCost    float64
}

// periodMetrics carries the outcome of simulating one block period.
type periodMetrics struct {
	blockType BlockType
	start     int
	size      int
	chargeIn  float64
	chargeOut float64
	holdLevel float64
	cost      float64
}

// Schedule is the block schedule from the schedule start and forward.
type Schedule struct {
	StartTime time.Time
	EndTime   time.Time
	Blocks    []Block

	// BaseCost is the cost of the all-Use baseline the optimizer has to
	// beat; TotalCost is the cost of the chosen schedule.
	BaseCost  float64
	TotalCost float64

	tariffs             tariffSlots
	netProd             [Slots]float64
	cons                [Slots]float64
	batKwh              float64
	socKwh              float64
	chargeKwhInstance   float64
	chargeEfficiency    float64
	dischargeEfficiency float64
}

// New returns an empty schedule with the configured battery model.
func New(cfg config.ChargeConfig) *Schedule {
	return &Schedule{
		batKwh:              cfg.BatKwh,
		socKwh:              cfg.SocKwh,
		chargeKwhInstance:   cfg.ChargeKwhHour / (60.0 / SlotMinutes),
		chargeEfficiency:    cfg.ChargeEfficiency,
		dischargeEfficiency: cfg.DischargeEfficiency,
	}
}

// SocKwh returns the kWh stored per SoC percentage point.
func (s *Schedule) SocKwh() float64 {
	return s.socKwh
}

// UpdateScheduling replaces the current schedule with the best block plan
// for the window starting at scheduleStart and running scheduleLength
// minutes. Production and consumption are 15-minute energy values in Wh,
// socIn is the battery state of charge at the window start.
func (s *Schedule) UpdateScheduling(tariffs []nordpool.TariffValue, production, consumption []timeseries.PowerValue, socIn int, scheduleStart time.Time, scheduleLength int) {
	end := scheduleStart.Add(time.Duration(scheduleLength) * time.Minute)

	inWindow := func(t time.Time) bool {
		return !t.Before(scheduleStart) && t.Before(end)
	}

	n := 0
	for _, t := range tariffs {
		if inWindow(t.ValidTime) && n < Slots {
			s.tariffs.buy[n] = t.Buy
			n++
		}
	}
	s.tariffs.length = n

	var prod [Slots]float64
	i := 0
	for _, p := range production {
		if inWindow(p.ValidTime) && i < Slots {
			prod[i] = p.Power / 1000.0
			i++
		}
	}

	i = 0
	for _, c := range consumption {
		if inWindow(c.ValidTime) && i < Slots {
			s.cons[i] = c.Power / 1000.0
			i++
		}
	}

	for i := 0; i < Slots; i++ {
		s.netProd[i] = prod[i] - s.cons[i]
	}

	if socIn < 10 {
		socIn = 10
	}
	chargeIn := float64(socIn-10) * s.socKwh

	base := s.createBaseBlockCollection(chargeIn)
	best := s.seekBest(chargeIn, base)

	s.StartTime = scheduleStart
	s.EndTime = end
	s.BaseCost = base.totalCost
	s.TotalCost = best.totalCost
	s.Blocks = s.createResultBlocks(best.blocks, scheduleStart)
}

// seekBest searches through all combinations of up to two charge blocks
// and two use blocks, each charge block targeting a SoC level 0..90 in
// steps of 5, and returns the cheapest collection. PV charge input is
// considered throughout.
func (s *Schedule) seekBest(chargeIn float64, best blockCollection) blockCollection {
	var quad [4]blockCollection

	for firstCharge := 0; firstCharge < s.tariffs.length; firstCharge++ {
		for firstLevel := 0; firstLevel <= 90; firstLevel += 5 {
			quad[0] = s.seekCharge(0, firstCharge, firstLevel, chargeIn)

			for firstUse := quad[0].nextStart; firstUse < s.tariffs.length; firstUse++ {
				for firstUseEnd := firstUse; firstUseEnd <= s.tariffs.length; firstUseEnd++ {
					col, ok := s.seekUse(quad[0].nextStart, firstUse, firstUseEnd, quad[0].nextChargeIn)
					if !ok {
						continue
					}
					quad[1] = col

					best = s.recordBestCollection(quad[:2], best)

					for secondCharge := quad[1].nextStart; secondCharge < s.tariffs.length; secondCharge++ {
						for secondLevel := 0; secondLevel <= 90; secondLevel += 5 {
							quad[2] = s.seekCharge(quad[1].nextStart, secondCharge, secondLevel, quad[1].nextChargeIn)

							for secondUse := quad[2].nextStart; secondUse < s.tariffs.length; secondUse++ {
								col, ok := s.seekUse(quad[2].nextStart, secondUse, s.tariffs.length, quad[2].nextChargeIn)
								if !ok {
									continue
								}
								quad[3] = col
								best = s.recordBestCollection(quad[:], best)
							}
						}
					}
				}
			}
		}
	}

	return best
}

// createBaseBlockCollection builds the all-Use baseline used as backstop
// when the search finds no cheaper charge/use plan.
func (s *Schedule) createBaseBlockCollection(chargeIn float64) blockCollection {
	pm := s.updateForPV(Use, 0, s.tariffs.length, chargeIn)
	block := noneChargeBlock(pm)

	return blockCollection{
		nextStart:    s.tariffs.length,
		nextChargeIn: block.chargeOut,
		totalCost:    roundToTwoDecimals(block.cost),
		blocks:       []blockInternal{block},
	}
}

// seekCharge builds a charge block at the given start slot targeting the
// given SoC level, preceded by a hold block covering the gap from
// initialStart.
func (s *Schedule) seekCharge(initialStart, start, socLevel int, chargeIn float64) blockCollection {
	pmHold := s.updateForPV(Hold, initialStart, start, chargeIn)

	blocks := make([]blockInternal, 0, 2)
	if pmHold.size > 0 {
		blocks = append(blocks, noneChargeBlock(pmHold))
	}

	nextStart := start
	nextChargeIn := pmHold.chargeOut
	totalCost := pmHold.cost

	need := (float64(socLevel)*s.socKwh - pmHold.chargeOut) / s.chargeEfficiency
	if need > 0.0 {
		chargeCost, end := s.chargeCostChargeEnd(start, need)
		pmCharge := s.updateForPV(Charge, start, end, 0.0)

		nextStart += end - start
		totalCost += chargeCost + pmCharge.cost

		if pmCharge.size > 0 {
			nextChargeIn = float64(socLevel) * s.socKwh
			blocks = append(blocks, blockInternal{
				blockType: Charge,
				start:     start,
				size:      pmCharge.size,
				cost:      chargeCost + pmCharge.cost,
				chargeIn:  pmHold.chargeOut,
				chargeOut: nextChargeIn,
			})
		}
	}

	return blockCollection{
		blocks:       blocks,
		nextStart:    nextStart,
		nextChargeIn: nextChargeIn,
		totalCost:    totalCost,
	}
}

// chargeCostChargeEnd returns the cost of buying the given charge from the
// grid starting at the given slot, and the slot where charging ends.
func (s *Schedule) chargeCostChargeEnd(start int, charge float64) (float64, int) {
	var instanceCharge []float64
	for i := 0; i < int(charge/s.chargeKwhInstance); i++ {
		instanceCharge = append(instanceCharge, s.chargeKwhInstance)
	}
	rem := math.Mod(charge, s.chargeKwhInstance)
	if int(math.Round(rem*10.0)) != 0 {
		instanceCharge = append(instanceCharge, rem)
	}

	end := start + len(instanceCharge)
	if end > s.tariffs.length {
		end = s.tariffs.length
	}

	var cost float64
	for i := start; i < end; i++ {
		cost += instanceCharge[i-start] * s.tariffs.buy[i]
	}

	return cost, end
}

// seekUse builds a use block over [seekStart, seekEnd), preceded by a hold
// block covering the gap from initialStart. Returns false for an empty
// search range.
func (s *Schedule) seekUse(initialStart, seekStart, seekEnd int, chargeIn float64) (blockCollection, bool) {
	if seekStart == seekEnd {
		return blockCollection{}, false
	}

	pmHold := s.updateForPV(Hold, initialStart, seekStart, chargeIn)
	pmUse := s.updateForPV(Use, seekStart, seekEnd, pmHold.chargeOut)

	blocks := make([]blockInternal, 0, 2)
	if pmHold.size > 0 {
		blocks = append(blocks, noneChargeBlock(pmHold))
	}
	if pmUse.size > 0 {
		blocks = append(blocks, noneChargeBlock(pmUse))
	}

	return blockCollection{
		blocks:       blocks,
		nextStart:    pmUse.start + pmUse.size,
		nextChargeIn: pmUse.chargeOut,
		totalCost:    pmHold.cost + pmUse.cost,
	}, true
}

// updateForPV simulates one block period slot by slot, tracking how PV net
// production and grid purchases move the stored charge.
//
// During a charge block the household load is bought from the grid since
// the battery is occupied charging. Hold blocks buy back any deficit to
// keep the charge level; use blocks let the battery run down to the floor.
func (s *Schedule) updateForPV(blockType BlockType, start, end int, chargeIn float64) periodMetrics {
	pm := periodMetrics{
		blockType: blockType,
		start:     start,
		size:      end - start,
		chargeIn:  chargeIn,
		chargeOut: chargeIn,
	}
	if blockType != Use {
		pm.holdLevel = chargeIn
	}

	if blockType == Charge {
		for i := start; i < end; i++ {
			pm.cost += s.tariffs.buy[i] * s.cons[i]
		}
		return pm
	}

	for i := start; i < end; i++ {
		s.addNetProd(i, s.netProd[i], &pm)
	}

	return pm
}

// addNetProd adds the net production of one slot to the period metrics.
func (s *Schedule) addNetProd(idx int, netProd float64, pm *periodMetrics) {
	// Negative net production draws from the battery, so the discharge
	// efficiency applies; positive charges it through the charge
	// efficiency.
	efficiency := 1.0 / s.chargeEfficiency
	if netProd < 0.0 {
		efficiency = s.dischargeEfficiency
	}

	netAdd := pm.chargeOut + netProd/efficiency
	if netAdd < pm.holdLevel {
		// Deficit below the hold level is bought from the grid, reverting
		// the efficiency applied for the battery draw.
		pm.cost += s.tariffs.buy[idx] * (pm.holdLevel - netAdd) * efficiency
		pm.chargeOut = pm.holdLevel
	} else {
		// Surplus charges the battery up to its capacity.
		pm.chargeOut = math.Min(netAdd, s.batKwh)
	}
}

// noneChargeBlock turns a simulated hold or use period into a candidate
// block.
func noneChargeBlock(pm periodMetrics) blockInternal {
	return blockInternal{
		blockType: pm.blockType,
		start:     pm.start,
		size:      pm.size,
		cost:      pm.cost,
		chargeIn:  pm.chargeIn,
		chargeOut: pm.chargeOut,
	}
}

// recordBestCollection compares the schedule candidate held in quad with
// the best one so far. A trailing hold block is appended when the
// candidate ends before the window does. Ties resolve toward fewer
// blocks.
func (s *Schedule) recordBestCollection(quad []blockCollection, best blockCollection) blockCollection {
	last := len(quad) - 1

	var totalCost float64
	for _, c := range quad {
		totalCost += c.totalCost
	}
	nextChargeIn := quad[last].nextChargeIn

	var tail *periodMetrics
	numBlocks := 0
	if quad[last].nextStart < s.tariffs.length {
		pmHold := s.updateForPV(Hold, quad[last].nextStart, s.tariffs.length, quad[last].nextChargeIn)
		totalCost += pmHold.cost
		nextChargeIn = pmHold.chargeOut
		tail = &pmHold
		numBlocks = 1
	}

	totalCost = roundToTwoDecimals(totalCost)

	switch {
	case totalCost < best.totalCost:
		return s.collectBlocks(quad, nextChargeIn, totalCost, tail)
	case totalCost == best.totalCost:
		for _, c := range quad {
			numBlocks += len(c.blocks)
		}
		if numBlocks < len(best.blocks) {
			return s.collectBlocks(quad, nextChargeIn, totalCost, tail)
		}
	}

	return best
}

// collectBlocks flattens the quad into one block collection, appending the
// optional trailing hold block.
func (s *Schedule) collectBlocks(quad []blockCollection, nextChargeIn, totalCost float64, tail *periodMetrics) blockCollection {
	var blocks []blockInternal
	for _, c := range quad {
		blocks = append(blocks, c.blocks...)
	}
	if tail != nil {
		blocks = append(blocks, noneChargeBlock(*tail))
	}

	return blockCollection{
		blocks:       blocks,
		nextStart:    s.tariffs.length,
		nextChargeIn: nextChargeIn,
		totalCost:    totalCost,
	}
}

// createResultBlocks turns the winning internal blocks into schedule
// blocks with local times and SoC levels.
func (s *Schedule) createResultBlocks(blocks []blockInternal, scheduleStart time.Time) []Block {
	result := make([]Block, 0, len(blocks))

	for _, b := range blocks {
		start := scheduleStart.Add(time.Duration(b.start*SlotMinutes) * time.Minute)
		end := scheduleStart.Add(time.Duration((b.start+b.size)*SlotMinutes) * time.Minute)

		result = append(result, Block{
			BlockID:   start.Unix(),
			Type:      b.blockType,
			StartTime: start,
			EndTime:   end,
			Cost:      b.cost,
			ChargeIn:  b.chargeIn,
			ChargeOut: b.chargeOut,
			SocIn:     socFromCharge(b.chargeIn, s.socKwh),
			SocOut:    socFromCharge(b.chargeOut, s.socKwh),
			Status:    StatusWaiting,
			socKwh:    s.socKwh,
		})
	}

	return result
}

// AdoptBlocks installs blocks restored from a persisted schedule,
// rebinding them to the configured battery model. The schedule window is
// recovered from the first and last block.
func (s *Schedule) AdoptBlocks(blocks []Block) {
	for i := range blocks {
		blocks[i].socKwh = s.socKwh
	}
	s.Blocks = blocks
	if len(blocks) > 0 {
		s.StartTime = blocks[0].StartTime
		s.EndTime = blocks[len(blocks)-1].EndTime
	}
}

// BlockByTime returns the id of the block covering the given time.
func (s *Schedule) BlockByTime(t time.Time) (int64, bool) {
	for i := range s.Blocks {
		if s.Blocks[i].Contains(t) {
			return s.Blocks[i].BlockID, true
		}
	}
	return 0, false
}

// BlockByID returns the block with the given id, or nil.
func (s *Schedule) BlockByID(id int64) *Block {
	for i := range s.Blocks {
		if s.Blocks[i].BlockID == id {
			return &s.Blocks[i]
		}
	}
	return nil
}

// IsUpdateTime reports whether the monitor should move on from the given
// block: the block is gone, the time has left it, or it covers the time
// but has not been started yet.
func (s *Schedule) IsUpdateTime(id int64, t time.Time) bool {
	b := s.BlockByID(id)
	if b == nil {
		return true
	}
	return !b.Contains(t) || b.Status == StatusWaiting
}

// IsActiveCharging reports whether the given block covers the time and is
// an ongoing charge.
func (s *Schedule) IsActiveCharging(id int64, t time.Time) bool {
	b := s.BlockByID(id)
	return b != nil && b.Contains(t) && b.Type == Charge && b.Status == StatusStarted
}

// socFromCharge converts a stored charge above the floor to a SoC
// percentage, capped at 100.
func socFromCharge(charge, socKwh float64) int {
	soc := math.Round(charge / socKwh)
	if soc > 90.0 {
		soc = 90.0
	}
	return 10 + int(soc)
}

func roundToTwoDecimals(v float64) float64 {
	return math.Round(v*100) / 100
}
