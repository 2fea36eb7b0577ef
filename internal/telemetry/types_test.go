package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestLatestResponse_NestedDataTakesPrecedence(t *testing.T) {
	var resp LatestResponse
	raw := `{
  "device_id": "esp32-001",
  "timestamp": "2025-01-02T03:04:05",
  "data": {"voltage_v": 12.0, "current_a": null, "rpm": 3400},
  "voltage_v": 99.0,
  "current_a": 1.5,
  "temp_c": 21.0
}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	r := resp.Reading()
	if r.VoltageV == nil || *r.VoltageV != 12.0 {
		t.Fatalf("voltage = %v, want nested 12.0", r.VoltageV)
	}
	if r.CurrentA == nil || *r.CurrentA != 1.5 {
		t.Fatalf("current = %v, want top-level 1.5 when nested is null", r.CurrentA)
	}
	if r.TempC == nil || *r.TempC != 21.0 {
		t.Fatalf("temp = %v, want top-level 21.0 when nested is absent", r.TempC)
	}
	if r.RPM == nil || *r.RPM != 3400 {
		t.Fatalf("rpm = %v, want 3400", r.RPM)
	}
	if r.PowerW != nil {
		t.Fatalf("power = %v, want nil (never derived)", *r.PowerW)
	}

	// The flattened reading must not alias the response.
	*r.VoltageV = 1
	if *resp.Data.VoltageV != 12.0 {
		t.Fatalf("Reading() aliased nested data")
	}
}

func TestLatestResponse_TopLevelOnly(t *testing.T) {
	var resp LatestResponse
	if err := json.Unmarshal([]byte(`{"device_id":"d","timestamp":"t","wind_mps":3.4}`), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	r := resp.Reading()
	if r.WindMPS == nil || *r.WindMPS != 3.4 {
		t.Fatalf("wind = %v, want 3.4", r.WindMPS)
	}
}

func TestParseStreamMessage(t *testing.T) {
	msg, err := ParseStreamMessage([]byte(`{"type":"connected","device_id":"esp32-001"}`))
	if err != nil {
		t.Fatalf("ParseStreamMessage returned error: %v", err)
	}
	if msg.Kind != MessageConnected || msg.DeviceID != "esp32-001" {
		t.Fatalf("msg = %#v, want connected ack", msg)
	}

	msg, err = ParseStreamMessage([]byte(`{"device_id":"esp32-001","timestamp":"2025-01-02T03:04:05","power_w":14.76,"rpm":null}`))
	if err != nil {
		t.Fatalf("ParseStreamMessage returned error: %v", err)
	}
	if msg.Kind != MessageTelemetry || msg.Reading.DeviceID != "esp32-001" {
		t.Fatalf("msg = %#v, want telemetry", msg)
	}
	if msg.Reading.PowerW == nil || *msg.Reading.PowerW != 14.76 || msg.Reading.RPM != nil {
		t.Fatalf("channels = %#v, want power=14.76 rpm=nil", msg.Reading.Channels)
	}

	if _, err := ParseStreamMessage([]byte(`{not-json`)); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("ParseStreamMessage error = %v, want ErrMalformedMessage", err)
	}
	if _, err := ParseStreamMessage([]byte(`["esp32-001"]`)); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("ParseStreamMessage error = %v, want ErrMalformedMessage for non-object payload", err)
	}
}

func TestParseStreamMessage_NonNumericChannelIsAbsent(t *testing.T) {
	msg, err := ParseStreamMessage([]byte(`{"device_id":"esp32-001","timestamp":"2025-01-02T03:04:05","voltage_v":12.5,"rpm":"n/a","temp_c":true,"wind_mps":{"v":1}}`))
	if err != nil {
		t.Fatalf("ParseStreamMessage returned error: %v", err)
	}
	r := msg.Reading
	if r.VoltageV == nil || *r.VoltageV != 12.5 {
		t.Fatalf("voltage = %v, want 12.5", r.VoltageV)
	}
	if r.RPM != nil || r.TempC != nil || r.WindMPS != nil {
		t.Fatalf("channels = %#v, want non-numeric values nil", r.Channels)
	}
}

func TestParseStreamMessage_FillsTSFromTimestamp(t *testing.T) {
	msg, err := ParseStreamMessage([]byte(`{"device_id":"esp32-001","timestamp":"2025-01-02T03:04:05","power_w":1}`))
	if err != nil {
		t.Fatalf("ParseStreamMessage returned error: %v", err)
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli()
	if msg.Reading.TS != want {
		t.Fatalf("TS = %d, want %d", msg.Reading.TS, want)
	}

	msg, err = ParseStreamMessage([]byte(`{"device_id":"esp32-001","timestamp":"2025-01-02T03:04:05","ts":42}`))
	if err != nil {
		t.Fatalf("ParseStreamMessage returned error: %v", err)
	}
	if msg.Reading.TS != 42 {
		t.Fatalf("TS = %d, want reported 42 kept", msg.Reading.TS)
	}

	msg, err = ParseStreamMessage([]byte(`{"device_id":"esp32-001","timestamp":"soon"}`))
	if err != nil {
		t.Fatalf("ParseStreamMessage returned error: %v", err)
	}
	if msg.Reading.TS != 0 {
		t.Fatalf("TS = %d, want 0 for unparseable timestamp", msg.Reading.TS)
	}
}

func TestLatestResponse_NonNumericChannelIsAbsent(t *testing.T) {
	var resp LatestResponse
	raw := `{
  "device_id": "esp32-001",
  "timestamp": "2025-01-02T03:04:05",
  "offline": true,
  "data": {"voltage_v": "12.0", "rpm": 3400},
  "voltage_v": 11.5,
  "current_a": "high"
}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.DeviceID != "esp32-001" || !resp.Offline {
		t.Fatalf("resp = %#v, want device and offline flag kept", resp)
	}
	r := resp.Reading()
	if r.VoltageV == nil || *r.VoltageV != 11.5 {
		t.Fatalf("voltage = %v, want top-level 11.5 when nested is not a number", r.VoltageV)
	}
	if r.CurrentA != nil {
		t.Fatalf("current = %v, want nil", *r.CurrentA)
	}
	if r.RPM == nil || *r.RPM != 3400 {
		t.Fatalf("rpm = %v, want 3400", r.RPM)
	}
}

func TestHistoryResponse_NonNumericChannelIsAbsent(t *testing.T) {
	var resp HistoryResponse
	raw := `{"device_id":"esp32-001","count":2,"history":[
  {"timestamp":"2025-01-02T03:04:00","ts":1,"rpm":3100},
  {"timestamp":"2025-01-02T03:04:01","ts":2,"rpm":"stalled","power_w":0.5}
]}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("history = %d readings, want 2", len(resp.History))
	}
	second := resp.History[1]
	if second.TS != 2 || second.Timestamp != "2025-01-02T03:04:01" {
		t.Fatalf("reading = %#v, want fields kept", second)
	}
	if second.RPM != nil {
		t.Fatalf("rpm = %v, want nil", *second.RPM)
	}
	if second.PowerW == nil || *second.PowerW != 0.5 {
		t.Fatalf("power = %v, want 0.5", second.PowerW)
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if parseTime("2025-12-13T10:11:12Z").IsZero() {
		t.Fatalf("parseTime should parse RFC3339")
	}
	got := parseTime("2025-12-13T10:11:12.123456")
	if got.IsZero() {
		t.Fatalf("parseTime should parse naive isoformat")
	}
	if got.Location() != time.UTC || got.Hour() != 10 || got.Nanosecond() != 123456000 {
		t.Fatalf("parseTime = %v, want 10:11:12.123456 UTC", got)
	}
	if !parseTime("yesterday").IsZero() {
		t.Fatalf("parseTime should return zero for garbage")
	}
}

func TestReadingParsedTimeFallsBackToTS(t *testing.T) {
	r := Reading{TS: 1735787045000}
	if got := r.ParsedTime(); !got.Equal(time.UnixMilli(1735787045000)) {
		t.Fatalf("ParsedTime = %v, want ts fallback", got)
	}
}

func TestChannelsGet(t *testing.T) {
	v := 3.0
	c := Channels{HumidityPct: &v}
	if got := c.Get(ChannelHumidity); got == nil || *got != 3.0 {
		t.Fatalf("Get(humidity) = %v, want 3", got)
	}
	if got := c.Get(Channel("bogus")); got != nil {
		t.Fatalf("Get(bogus) = %v, want nil", got)
	}
	if len(AllChannels) != 8 {
		t.Fatalf("AllChannels has %d entries, want 8", len(AllChannels))
	}
}
