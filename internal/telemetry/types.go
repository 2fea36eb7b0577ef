package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// backendTimestampLayout matches Python's datetime.isoformat() for naive UTC values.
const backendTimestampLayout = "2006-01-02T15:04:05.999999"

// Device mirrors an entry of /devices.
type Device struct {
	DeviceID string `json:"device_id"`
	LastSeen string `json:"last_seen"`
	Offline  bool   `json:"offline"`
}

// ParsedLastSeen returns LastSeen as time.Time when possible.
func (d Device) ParsedLastSeen() time.Time {
	return parseTime(d.LastSeen)
}

// DeviceListResponse mirrors /devices.
type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// Channels holds the named sensor channels of a reading. A nil pointer means
// the device did not report that channel.
type Channels struct {
	VoltageV    *float64 `json:"voltage_v"`
	CurrentA    *float64 `json:"current_a"`
	PowerW      *float64 `json:"power_w"`
	RPM         *float64 `json:"rpm"`
	PressureHPa *float64 `json:"pressure_hpa"`
	TempC       *float64 `json:"temp_c"`
	HumidityPct *float64 `json:"humidity_pct"`
	WindMPS     *float64 `json:"wind_mps"`
}

// UnmarshalJSON decodes channel values leniently: a value that is not a JSON
// number leaves its channel nil instead of failing the whole payload.
func (c *Channels) UnmarshalJSON(data []byte) error {
	var wire struct {
		VoltageV    number `json:"voltage_v"`
		CurrentA    number `json:"current_a"`
		PowerW      number `json:"power_w"`
		RPM         number `json:"rpm"`
		PressureHPa number `json:"pressure_hpa"`
		TempC       number `json:"temp_c"`
		HumidityPct number `json:"humidity_pct"`
		WindMPS     number `json:"wind_mps"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = Channels{
		VoltageV:    wire.VoltageV.v,
		CurrentA:    wire.CurrentA.v,
		PowerW:      wire.PowerW.v,
		RPM:         wire.RPM.v,
		PressureHPa: wire.PressureHPa.v,
		TempC:       wire.TempC.v,
		HumidityPct: wire.HumidityPct.v,
		WindMPS:     wire.WindMPS.v,
	}
	return nil
}

// number is a nullable JSON number. Strings, booleans, objects and arrays
// decode as absent.
type number struct{ v *float64 }

func (n *number) UnmarshalJSON(data []byte) error {
	n.v = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || (data[0] != '-' && (data[0] < '0' || data[0] > '9')) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	n.v = &f
	return nil
}

// Channel identifies one of the sensor channels.
type Channel string

const (
	ChannelVoltage  Channel = "voltage_v"
	ChannelCurrent  Channel = "current_a"
	ChannelPower    Channel = "power_w"
	ChannelRPM      Channel = "rpm"
	ChannelPressure Channel = "pressure_hpa"
	ChannelTemp     Channel = "temp_c"
	ChannelHumidity Channel = "humidity_pct"
	ChannelWind     Channel = "wind_mps"
)

// AllChannels lists channels in display order.
var AllChannels = []Channel{
	ChannelPower,
	ChannelVoltage,
	ChannelCurrent,
	ChannelRPM,
	ChannelPressure,
	ChannelTemp,
	ChannelHumidity,
	ChannelWind,
}

// Get returns the value of a channel, or nil when it is absent.
func (c Channels) Get(ch Channel) *float64 {
	switch ch {
	case ChannelVoltage:
		return c.VoltageV
	case ChannelCurrent:
		return c.CurrentA
	case ChannelPower:
		return c.PowerW
	case ChannelRPM:
		return c.RPM
	case ChannelPressure:
		return c.PressureHPa
	case ChannelTemp:
		return c.TempC
	case ChannelHumidity:
		return c.HumidityPct
	case ChannelWind:
		return c.WindMPS
	default:
		return nil
	}
}

// Clone returns a copy that shares no pointers with c.
func (c Channels) Clone() Channels {
	return Channels{
		VoltageV:    cloneFloat(c.VoltageV),
		CurrentA:    cloneFloat(c.CurrentA),
		PowerW:      cloneFloat(c.PowerW),
		RPM:         cloneFloat(c.RPM),
		PressureHPa: cloneFloat(c.PressureHPa),
		TempC:       cloneFloat(c.TempC),
		HumidityPct: cloneFloat(c.HumidityPct),
		WindMPS:     cloneFloat(c.WindMPS),
	}
}

// preferring picks each channel from primary when set, falling back to c.
func (c Channels) preferring(primary *Channels) Channels {
	if primary == nil {
		return c.Clone()
	}
	pick := func(p, fallback *float64) *float64 {
		if p != nil {
			return cloneFloat(p)
		}
		return cloneFloat(fallback)
	}
	return Channels{
		VoltageV:    pick(primary.VoltageV, c.VoltageV),
		CurrentA:    pick(primary.CurrentA, c.CurrentA),
		PowerW:      pick(primary.PowerW, c.PowerW),
		RPM:         pick(primary.RPM, c.RPM),
		PressureHPa: pick(primary.PressureHPa, c.PressureHPa),
		TempC:       pick(primary.TempC, c.TempC),
		HumidityPct: pick(primary.HumidityPct, c.HumidityPct),
		WindMPS:     pick(primary.WindMPS, c.WindMPS),
	}
}

// Reading is one timestamped set of channel values for one device.
type Reading struct {
	DeviceID  string `json:"device_id,omitempty"`
	Timestamp string `json:"timestamp"`
	TS        int64  `json:"ts,omitempty"`
	Channels
}

// UnmarshalJSON decodes the reading fields and then its channels. Channels
// has its own decoder, so the embedded struct cannot be decoded in one pass.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var head struct {
		DeviceID  string `json:"device_id"`
		Timestamp string `json:"timestamp"`
		TS        int64  `json:"ts"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var channels Channels
	if err := channels.UnmarshalJSON(data); err != nil {
		return err
	}
	*r = Reading{
		DeviceID:  head.DeviceID,
		Timestamp: head.Timestamp,
		TS:        head.TS,
		Channels:  channels,
	}
	return nil
}

// ParsedTime returns the timestamp as time.Time when possible.
func (r Reading) ParsedTime() time.Time {
	if t := parseTime(r.Timestamp); !t.IsZero() {
		return t
	}
	if r.TS > 0 {
		return time.UnixMilli(r.TS).UTC()
	}
	return time.Time{}
}

// Clone returns a deep copy of the reading.
func (r Reading) Clone() Reading {
	r.Channels = r.Channels.Clone()
	return r
}

// LatestResponse mirrors /latest. Channel values may be nested under data or
// appear at the top level.
type LatestResponse struct {
	DeviceID  string    `json:"device_id"`
	Timestamp string    `json:"timestamp"`
	Offline   bool      `json:"offline"`
	Data      *Channels `json:"data"`
	Channels
}

func (l *LatestResponse) UnmarshalJSON(data []byte) error {
	var head struct {
		DeviceID  string    `json:"device_id"`
		Timestamp string    `json:"timestamp"`
		Offline   bool      `json:"offline"`
		Data      *Channels `json:"data"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var channels Channels
	if err := channels.UnmarshalJSON(data); err != nil {
		return err
	}
	*l = LatestResponse{
		DeviceID:  head.DeviceID,
		Timestamp: head.Timestamp,
		Offline:   head.Offline,
		Data:      head.Data,
		Channels:  channels,
	}
	return nil
}

// Reading flattens the response. Per channel, a non-null nested data value
// wins; otherwise the top-level value is used.
func (l LatestResponse) Reading() Reading {
	return Reading{
		DeviceID:  l.DeviceID,
		Timestamp: l.Timestamp,
		Channels:  l.Channels.preferring(l.Data),
	}
}

// HistoryResponse mirrors /history.
type HistoryResponse struct {
	DeviceID string    `json:"device_id"`
	Count    int       `json:"count"`
	History  []Reading `json:"history"`
}

// HistoryQuery configures /history requests.
type HistoryQuery struct {
	DeviceID string
	From     time.Time
	To       time.Time
	Limit    int
	Metric   string
}

// SimulateRequest is the body of POST /dev/simulate.
type SimulateRequest struct {
	DeviceID string `json:"device_id"`
	Count    int    `json:"count"`
}

// MessageKind classifies push-channel payloads.
type MessageKind int

const (
	MessageTelemetry MessageKind = iota
	MessageConnected
)

func (k MessageKind) String() string {
	if k == MessageConnected {
		return "connected"
	}
	return "telemetry"
}

// StreamMessage is a decoded push-channel payload.
type StreamMessage struct {
	Kind     MessageKind
	DeviceID string
	Reading  Reading
}

// ErrMalformedMessage marks payloads that could not be decoded.
var ErrMalformedMessage = errors.New("malformed stream message")

// ParseStreamMessage decodes a push-channel payload, which is either a
// connection acknowledgement or a telemetry object.
func ParseStreamMessage(payload []byte) (StreamMessage, error) {
	var head struct {
		Type     string `json:"type"`
		DeviceID string `json:"device_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return StreamMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if strings.EqualFold(strings.TrimSpace(head.Type), "connected") {
		return StreamMessage{Kind: MessageConnected, DeviceID: head.DeviceID}, nil
	}
	var reading Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return StreamMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if reading.TS == 0 {
		if t := parseTime(reading.Timestamp); !t.IsZero() {
			reading.TS = t.UnixMilli()
		}
	}
	return StreamMessage{
		Kind:     MessageTelemetry,
		DeviceID: reading.DeviceID,
		Reading:  reading,
	}, nil
}

// ConnState is the lifecycle state of the push channel.
type ConnState int

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	case ConnClosed:
		return "closed"
	default:
		return "idle"
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
