package ui

import (
	"github.com/shopspring/decimal"

	"github.com/five82/vane/internal/telemetry"
)

const placeholder = "--"

// Values below this magnitude get micro precision so small currents stay
// readable.
var smallValue = decimal.RequireFromString("0.01")

// channelSpec describes how a channel is labelled on cards and charts.
type channelSpec struct {
	Channel telemetry.Channel
	Label   string
	Unit    string
}

// metricCards lists the cards shown after the power card, in display order.
var metricCards = []channelSpec{
	{telemetry.ChannelVoltage, "Voltage", "V"},
	{telemetry.ChannelCurrent, "Current", "A"},
	{telemetry.ChannelRPM, "Rotor speed", "RPM"},
	{telemetry.ChannelPressure, "Pressure", "hPa"},
	{telemetry.ChannelTemp, "Temperature", "°C"},
	{telemetry.ChannelHumidity, "Humidity", "%"},
	{telemetry.ChannelWind, "Wind speed", "m/s"},
}

var powerSpec = channelSpec{telemetry.ChannelPower, "Power output", "W"}

// chartGroup is one block of sparklines in the history section.
type chartGroup struct {
	Title  string
	Series []channelSpec
}

var chartGroups = []chartGroup{
	{Title: "Electrical", Series: []channelSpec{metricCards[0], metricCards[1], powerSpec}},
	{Title: "Mechanical", Series: []channelSpec{metricCards[2], metricCards[6]}},
	{Title: "Environment", Series: []channelSpec{metricCards[4], metricCards[5], metricCards[3]}},
}

// formatMetric renders a channel value with three decimals, or six when the
// magnitude is below 0.01. Missing values render as a placeholder.
func formatMetric(v *float64) string {
	if v == nil {
		return placeholder
	}
	d := decimal.NewFromFloat(*v)
	if d.Abs().LessThan(smallValue) {
		return d.StringFixed(6)
	}
	return d.StringFixed(3)
}

// formatFixed renders a value rounded half away from zero to places decimals.
func formatFixed(v *float64, places int32) string {
	if v == nil {
		return placeholder
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}

// formatCompact renders a value for sparkline annotations.
func formatCompact(v float64) string {
	d := decimal.NewFromFloat(v)
	switch abs := d.Abs(); {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return d.StringFixed(0)
	case abs.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return d.StringFixed(1)
	case abs.LessThan(smallValue) && !abs.IsZero():
		return d.StringFixed(4)
	default:
		return d.StringFixed(2)
	}
}

// Power level thresholds in watts.
var (
	powerLowBelow    = decimal.NewFromInt(10)
	powerNormalBelow = decimal.NewFromInt(20)
)

// powerLevel classifies output as low, normal or high; unknown when missing.
func powerLevel(v *float64) string {
	if v == nil {
		return "unknown"
	}
	d := decimal.NewFromFloat(*v)
	switch {
	case d.LessThan(powerLowBelow):
		return "low"
	case d.LessThan(powerNormalBelow):
		return "normal"
	default:
		return "high"
	}
}

// powerFormula shows how the reported power relates to voltage and current.
// It is empty unless all three values are present; power is never derived.
func powerFormula(power, voltage, current *float64) string {
	if power == nil || voltage == nil || current == nil {
		return ""
	}
	return "P = V × I = " + formatFixed(voltage, 2) + " × " + formatFixed(current, 2)
}
