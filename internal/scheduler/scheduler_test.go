package scheduler

import (
	"math"
	"testing"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/nordpool"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

func testChargeConfig() config.ChargeConfig {
	return config.ChargeConfig{
		BatKwh:              14.931,
		SocKwh:              0.1659,
		ChargeKwhHour:       6.0,
		ChargeEfficiency:    0.9,
		DischargeEfficiency: 0.9,
	}
}

// buildInputs creates tariffs, production and consumption slot series for
// a window of the given number of 15-minute slots.
func buildInputs(start time.Time, buy []float64, prodWh, consWh float64) ([]nordpool.TariffValue, []timeseries.PowerValue, []timeseries.PowerValue) {
	var tariffs []nordpool.TariffValue
	var production, consumption []timeseries.PowerValue

	for i, b := range buy {
		t := start.Add(time.Duration(i*SlotMinutes) * time.Minute)
		tariffs = append(tariffs, nordpool.TariffValue{ValidTime: t, Buy: b})
		production = append(production, timeseries.PowerValue{ValidTime: t, Power: prodWh})
		consumption = append(consumption, timeseries.PowerValue{ValidTime: t, Power: consWh})
	}

	return tariffs, production, consumption
}

func TestUpdateScheduling_CheapNightCharge(t *testing.T) {
	s := New(testChargeConfig())
	start := time.Date(2025, 11, 27, 22, 0, 0, 0, time.Local)

	// Four cheap slots followed by four expensive ones, flat 1 kW load
	// (250 Wh per slot) and no PV.
	buy := []float64{0.5, 0.5, 0.5, 0.5, 3.0, 3.0, 3.0, 3.0}
	tariffs, production, consumption := buildInputs(start, buy, 0.0, 250.0)

	s.UpdateScheduling(tariffs, production, consumption, 10, start, len(buy)*SlotMinutes)

	// Baseline: every slot bought at tariff with the battery draw
	// efficiency reverted, 0.25 kWh per slot.
	if math.Abs(s.BaseCost-3.5) > 1e-9 {
		t.Errorf("BaseCost = %v, want 3.5", s.BaseCost)
	}

	if s.TotalCost >= s.BaseCost {
		t.Errorf("TotalCost = %v, should beat BaseCost %v", s.TotalCost, s.BaseCost)
	}

	// The plan must charge during the cheap half.
	var hasCheapCharge bool
	for _, b := range s.Blocks {
		if b.Type == Charge && b.StartTime.Before(start.Add(time.Hour)) {
			hasCheapCharge = true
		}
	}
	if !hasCheapCharge {
		t.Error("schedule should contain a charge block in the cheap window")
	}

	// Blocks tile the window without gaps.
	cursor := start
	for _, b := range s.Blocks {
		if !b.StartTime.Equal(cursor) {
			t.Errorf("block starts at %v, want %v", b.StartTime, cursor)
		}
		if b.Status != StatusWaiting {
			t.Errorf("new block status = %v, want waiting", b.Status)
		}
		cursor = b.EndTime
	}
	if !cursor.Equal(s.EndTime) {
		t.Errorf("blocks end at %v, want %v", cursor, s.EndTime)
	}
}

func TestUpdateScheduling_FlatPricesKeepBaseline(t *testing.T) {
	s := New(testChargeConfig())
	start := time.Date(2025, 11, 27, 22, 0, 0, 0, time.Local)

	buy := []float64{1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0}
	tariffs, production, consumption := buildInputs(start, buy, 0.0, 250.0)

	s.UpdateScheduling(tariffs, production, consumption, 10, start, len(buy)*SlotMinutes)

	// With flat prices and no PV, round-trip losses make any charge plan
	// more expensive; the single all-Use baseline wins the tie on fewer
	// blocks.
	if s.TotalCost != s.BaseCost {
		t.Errorf("TotalCost = %v, want baseline %v", s.TotalCost, s.BaseCost)
	}
	if len(s.Blocks) != 1 || s.Blocks[0].Type != Use {
		t.Errorf("blocks = %+v, want a single use block", s.Blocks)
	}
}

func TestUpdateScheduling_PVSurplusCharges(t *testing.T) {
	s := New(testChargeConfig())
	start := time.Date(2025, 6, 21, 6, 0, 0, 0, time.Local)

	// Strong PV surplus in the first half, expensive evening in the
	// second. The battery should come out of the free surplus charged.
	buy := []float64{1.0, 1.0, 1.0, 1.0, 4.0, 4.0, 4.0, 4.0}
	var tariffs []nordpool.TariffValue
	var production, consumption []timeseries.PowerValue
	for i, b := range buy {
		ts := start.Add(time.Duration(i*SlotMinutes) * time.Minute)
		tariffs = append(tariffs, nordpool.TariffValue{ValidTime: ts, Buy: b})
		prod := 0.0
		if i < 4 {
			prod = 2000.0
		}
		production = append(production, timeseries.PowerValue{ValidTime: ts, Power: prod})
		consumption = append(consumption, timeseries.PowerValue{ValidTime: ts, Power: 250.0})
	}

	s.UpdateScheduling(tariffs, production, consumption, 10, start, len(buy)*SlotMinutes)

	// The free PV surplus charges the battery enough to cover the evening
	// even in the baseline, so nothing is bought and the tie resolves to
	// the single use block.
	if s.BaseCost != 0.0 {
		t.Errorf("BaseCost = %v, want 0 with ample PV surplus", s.BaseCost)
	}
	if s.TotalCost != 0.0 {
		t.Errorf("TotalCost = %v, want 0", s.TotalCost)
	}
	if len(s.Blocks) != 1 || s.Blocks[0].Type != Use {
		t.Errorf("blocks = %+v, want a single use block", s.Blocks)
	}
}

func TestChargeCostChargeEnd(t *testing.T) {
	s := New(testChargeConfig())
	s.tariffs = tariffSlots{length: 8}
	for i := 0; i < 8; i++ {
		s.tariffs.buy[i] = 0.5
	}

	// 1.843 kWh at 1.5 kWh per slot: one full instance plus a remainder.
	cost, end := s.chargeCostChargeEnd(0, 1.843)
	if end != 2 {
		t.Errorf("end = %d, want 2", end)
	}
	if math.Abs(cost-(1.5*0.5+0.343*0.5)) > 1e-9 {
		t.Errorf("cost = %v", cost)
	}

	// A remainder that rounds to zero is dropped.
	cost, end = s.chargeCostChargeEnd(0, 3.01)
	if end != 2 {
		t.Errorf("end = %d, want 2 for 3.01 kWh", end)
	}
	if math.Abs(cost-1.5) > 1e-9 {
		t.Errorf("cost = %v, want 1.5", cost)
	}

	// Charging past the window end is cut off.
	_, end = s.chargeCostChargeEnd(7, 6.0)
	if end != 8 {
		t.Errorf("end = %d, want window end 8", end)
	}
}

func TestAddNetProd(t *testing.T) {
	s := New(testChargeConfig())
	s.tariffs.buy[0] = 2.0

	// Deficit below the hold level buys from the grid with the discharge
	// efficiency reverted.
	pm := periodMetrics{blockType: Hold, chargeOut: 0.0, holdLevel: 0.0}
	s.addNetProd(0, -0.25, &pm)
	if math.Abs(pm.cost-2.0*0.25) > 1e-9 {
		t.Errorf("deficit cost = %v, want 0.5", pm.cost)
	}
	if pm.chargeOut != 0.0 {
		t.Errorf("chargeOut = %v, want hold level 0", pm.chargeOut)
	}

	// Surplus charges the battery through the charge efficiency.
	pm = periodMetrics{blockType: Use, chargeOut: 1.0}
	s.addNetProd(0, 0.5, &pm)
	if math.Abs(pm.chargeOut-(1.0+0.5*0.9)) > 1e-9 {
		t.Errorf("chargeOut = %v, want 1.45", pm.chargeOut)
	}
	if pm.cost != 0.0 {
		t.Errorf("surplus cost = %v, want 0", pm.cost)
	}

	// The battery cannot charge past its capacity.
	pm = periodMetrics{blockType: Use, chargeOut: 14.9}
	s.addNetProd(0, 5.0, &pm)
	if pm.chargeOut != s.batKwh {
		t.Errorf("chargeOut = %v, want capped at %v", pm.chargeOut, s.batKwh)
	}
}

func TestSocFromCharge(t *testing.T) {
	if got := socFromCharge(0.0, 0.1659); got != 10 {
		t.Errorf("socFromCharge(0) = %d, want 10", got)
	}
	if got := socFromCharge(0.1659*45, 0.1659); got != 55 {
		t.Errorf("socFromCharge(45 levels) = %d, want 55", got)
	}
	// Capped at 100.
	if got := socFromCharge(100.0, 0.1659); got != 100 {
		t.Errorf("socFromCharge(overfull) = %d, want 100", got)
	}
}

func TestBlockStatusHelpers(t *testing.T) {
	s := New(testChargeConfig())
	start := time.Date(2025, 11, 28, 0, 0, 0, 0, time.Local)

	s.Blocks = []Block{
		{BlockID: 1, Type: Charge, StartTime: start, EndTime: start.Add(2 * time.Hour), Status: StatusWaiting, socKwh: s.socKwh},
		{BlockID: 2, Type: Use, StartTime: start.Add(2 * time.Hour), EndTime: start.Add(8 * time.Hour), Status: StatusWaiting, socKwh: s.socKwh},
	}

	id, ok := s.BlockByTime(start.Add(30 * time.Minute))
	if !ok || id != 1 {
		t.Errorf("BlockByTime = %d, %v, want 1, true", id, ok)
	}
	if _, ok := s.BlockByTime(start.Add(9 * time.Hour)); ok {
		t.Error("BlockByTime outside schedule should miss")
	}

	// A waiting block inside its window is due for update.
	if !s.IsUpdateTime(1, start.Add(30*time.Minute)) {
		t.Error("waiting block should be due for update")
	}

	b := s.BlockByID(1)
	b.UpdateStatus(StatusStarted, 0)
	if s.IsUpdateTime(1, start.Add(30*time.Minute)) {
		t.Error("started block inside its window is not due for update")
	}
	if !s.IsUpdateTime(1, start.Add(3*time.Hour)) {
		t.Error("time past the block end is due for update")
	}

	if !s.IsActiveCharging(1, start.Add(30*time.Minute)) {
		t.Error("started charge block should be actively charging")
	}
	if s.IsActiveCharging(2, start.Add(3*time.Hour)) {
		t.Error("use block is never actively charging")
	}

	// Reporting full backfills the planned charge out on charge blocks.
	b.UpdateStatus(StatusFull, 80)
	if b.Status != StatusFull {
		t.Errorf("status = %v, want full", b.Status)
	}
	if b.SocOut != 80 {
		t.Errorf("SocOut = %d, want 80", b.SocOut)
	}
	if math.Abs(b.ChargeOut-70*s.socKwh) > 1e-9 {
		t.Errorf("ChargeOut = %v, want %v", b.ChargeOut, 70*s.socKwh)
	}
}
