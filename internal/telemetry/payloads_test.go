package telemetry

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", `"2026-10-14T10:30:00Z"`, time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC), false},
		{"offset", `"2026-10-14T12:30:00+02:00"`, time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC), false},
		{"unix millis", `1700000000000`, time.UnixMilli(1700000000000), false},
		{"null", `null`, time.Time{}, false},
		{"empty string", `""`, time.Time{}, false},
		{"garbage string", `"yesterday"`, time.Time{}, true},
		{"bool", `true`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Equal(tt.want) {
				t.Errorf("Timestamp = %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestLevelPayload_Absent(t *testing.T) {
	var p LevelPayload
	if err := decode(json.RawMessage(`{"bin_id":"b1"}`), &p); err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	if p.LevelPercent != nil {
		t.Error("LevelPercent should be nil when absent")
	}
	if p.Timestamp.ptr() != nil {
		t.Error("Timestamp.ptr() should be nil when absent")
	}

	if err := decode(json.RawMessage(`{"level_percent":"full"}`), &p); err == nil {
		t.Error("decode() expected error for non-numeric level")
	}
}
