package ui

import (
	"strings"

	"github.com/five82/vane/internal/telemetry"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// series extracts one channel from the history window, oldest first. Missing
// values stay nil so gaps remain visible.
func series(history []telemetry.Reading, ch telemetry.Channel) []*float64 {
	out := make([]*float64, len(history))
	for i, r := range history {
		out[i] = r.Get(ch)
	}
	return out
}

// seriesStats summarizes the present values of a series.
type seriesStats struct {
	Min, Max, Last float64
	Count          int
}

func statsOf(values []*float64) seriesStats {
	var s seriesStats
	for _, v := range values {
		if v == nil {
			continue
		}
		if s.Count == 0 || *v < s.Min {
			s.Min = *v
		}
		if s.Count == 0 || *v > s.Max {
			s.Max = *v
		}
		s.Last = *v
		s.Count++
	}
	return s
}

// resample reduces values to at most width buckets by averaging. A bucket
// with no present values stays nil.
func resample(values []*float64, width int) []*float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]*float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		var sum float64
		var n int
		for _, v := range values[start:end] {
			if v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			out[i] = &avg
		}
	}
	return out
}

// sparkline draws values as block characters scaled between the series min
// and max. Gaps render as spaces; a flat series sits mid-height.
func sparkline(values []*float64, width int) string {
	points := resample(values, width)
	stats := statsOf(points)
	if stats.Count == 0 {
		return ""
	}
	span := stats.Max - stats.Min
	top := len(sparkLevels) - 1

	var b strings.Builder
	for _, v := range points {
		if v == nil {
			b.WriteRune(' ')
			continue
		}
		level := top / 2
		if span > 0 {
			level = int((*v - stats.Min) / span * float64(top))
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}
