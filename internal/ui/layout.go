package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show min/max next to sparklines.
	LayoutWideWidth = 120
)

// Card and chart geometry.
const (
	// CardWidth is the outer width of a metric card, borders included.
	CardWidth = 24

	// PowerCardWidth leaves room for the P = V × I formula.
	PowerCardWidth = 36

	// SparkLabelWidth is the column reserved for the series name.
	SparkLabelWidth = 16

	// SparkMinWidth is the narrowest sparkline worth drawing.
	SparkMinWidth = 10
)

// Timing constants.
const (
	// DefaultUIInterval is the default snapshot refresh interval.
	DefaultUIInterval = time.Second
)
