package backtest

import (
	"github.com/sawpanic/scorelab/internal/series"
)

// tailGuard is the number of trailing bars never used as a start date, so
// every candidate has some forward data
const tailGuard = 10

// FindExplosiveMoves returns every start bar whose highest close over the
// next lookback bars is at least minMovePct above its own close. Start bars
// begin after lookback bars of history; the peak is the first bar reaching
// the window maximum.
func FindExplosiveMoves(v series.View, minMovePct float64, lookback int) []Event {
	if lookback <= 0 {
		return nil
	}
	var events []Event
	for i := lookback; i < v.Len()-tailGuard; i++ {
		start := v.At(i)
		end := i + lookback
		if end >= v.Len() {
			end = v.Len() - 1
		}

		peak := i + 1
		for j := i + 2; j <= end; j++ {
			if v.At(j).Close > v.At(peak).Close {
				peak = j
			}
		}
		peakBar := v.At(peak)
		ret := (peakBar.Close/start.Close - 1) * 100
		if ret < minMovePct {
			continue
		}
		events = append(events, Event{
			Symbol:     v.Symbol(),
			Index:      i,
			Start:      start.Time,
			StartPrice: start.Close,
			PeakTime:   peakBar.Time,
			PeakPrice:  peakBar.Close,
			ReturnPct:  ret,
			DaysToPeak: int(peakBar.Time.Sub(start.Time).Hours() / 24),
		})
	}
	return events
}
