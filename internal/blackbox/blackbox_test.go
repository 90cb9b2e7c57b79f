// ABOUTME: Tests for blackbox CSV ingestion
// ABOUTME: Covers header detection, column cleanup, missing values and error cases
package blackbox

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

const fullLog = `"Product","Blackbox flight data recorder by Nicholas Sherlock"
"Firmware revision","Betaflight 4.4.2"
"looptime","125"
loopIteration, time (us), rcCommand[0], rcCommand[1], rcCommand[2], rcCommand[3], gyroADC[0], gyroADC[1], gyroADC[2], motor[0], motor[1], motor[2], motor[3]
0, 1000000, -10, 5, 0, 1300, 1, 2, 3, 200, 210, 220, 230
1, 1000500, -12, 6, 1, 1310, 1, 2, 3, 201, 211, 221, 231
2, , 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0
3, 1001000, , 7, 2, 1320, 1, 2, 3, 202, 212, 222, 232
`

func TestReadFullLog(t *testing.T) {
	l, err := Read(strings.NewReader(fullLog), telemetry.DatagramLayout)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if l.HeaderLine != 3 {
		t.Errorf("expected header at line 3, got %d", l.HeaderLine)
	}
	if len(l.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(l.Samples))
	}
	if l.Skipped != 1 {
		t.Errorf("expected 1 skipped row, got %d", l.Skipped)
	}

	first := l.Samples[0]
	if first.Time != time.Second {
		t.Errorf("expected time 1s, got %v", first.Time)
	}
	checks := map[telemetry.ChannelID]float64{
		telemetry.RollCmd:     -10,
		telemetry.PitchCmd:    5,
		telemetry.ThrottleCmd: 1300,
		telemetry.GyroZ:       3,
		telemetry.Motor3:      230,
	}
	for ch, want := range checks {
		if got := first.Values[ch]; got != want {
			t.Errorf("%s: expected %v, got %v", ch, want, got)
		}
	}

	if l.Samples[1].Time != time.Second+500*time.Microsecond {
		t.Errorf("unexpected second sample time %v", l.Samples[1].Time)
	}
	if !math.IsNaN(l.Samples[2].Values[telemetry.RollCmd]) {
		t.Errorf("expected NaN for empty cell, got %v", l.Samples[2].Values[telemetry.RollCmd])
	}
	if l.Duration() != time.Millisecond {
		t.Errorf("expected duration 1ms, got %v", l.Duration())
	}
	if l.Columns[telemetry.Motor0] != "motor[0]" {
		t.Errorf("unexpected motor column %q", l.Columns[telemetry.Motor0])
	}
}

func TestReadSerialLogWithoutMotors(t *testing.T) {
	data := "H Product:Blackbox\n" +
		`"H,time","H rcCommand[0]",rcCommand[1],rcCommand[2],rcCommand[3]` + "\n" +
		"0,10,20,30,1200\n" +
		"20000,11,21,31,1210\n"

	l, err := Read(strings.NewReader(data), telemetry.SerialLayout)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(l.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(l.Samples))
	}
	if l.Columns[telemetry.RollCmd] != "rcCommand[0]" {
		t.Errorf("header prefix not stripped: %q", l.Columns[telemetry.RollCmd])
	}
	if got := l.Samples[1].Values[telemetry.YawCmd]; got != 31 {
		t.Errorf("expected yaw 31, got %v", got)
	}
	if !math.IsNaN(l.Samples[0].Values[telemetry.Motor0]) {
		t.Error("absent motor column should read as NaN")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		need telemetry.Layout
		want error
	}{
		{"no header", "a,b,c\n1,2,3\n", telemetry.SerialLayout, ErrNoHeader},
		{"empty", "", telemetry.SerialLayout, ErrNoHeader},
		{
			"missing motor for datagram",
			"time,rcCommand[0],rcCommand[1],rcCommand[2],rcCommand[3],gyroADC[0],gyroADC[1],gyroADC[2]\n0,1,2,3,4,5,6,7\n",
			telemetry.DatagramLayout,
			ErrMissingColumn,
		},
		{
			"missing rc channel",
			"loopIteration,time,rcCommand[0],gyroADC[0],motor[0]\n0,0,1,2,3\n",
			telemetry.SerialLayout,
			ErrMissingColumn,
		},
		{
			"no rows",
			"time,rcCommand[0],rcCommand[1],rcCommand[2],rcCommand[3]\n",
			telemetry.SerialLayout,
			ErrNoSamples,
		},
		{
			"only bad times",
			"time,rcCommand[0],rcCommand[1],rcCommand[2],rcCommand[3]\nx,1,2,3,4\n,1,2,3,4\n",
			telemetry.SerialLayout,
			ErrNoSamples,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.data), tt.need)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIsHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"loopIteration,time,rcCommand[0],gyroADC[0],motor[0]", true},
		{"loopIteration,time,gyroADC[0],motor[0]", true},
		{"time,rcCommand[0]", true},
		{"loopIteration,time,axisP[0]", false},
		{`"Firmware revision","Betaflight"`, false},
	}

	for _, tt := range tests {
		if got := isHeader(tt.line); got != tt.want {
			t.Errorf("isHeader(%q) = %v, expected %v", tt.line, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.bbl.csv")
	if err := os.WriteFile(path, []byte(fullLog), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Load(path, telemetry.SerialLayout)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(l.Samples) != 3 {
		t.Errorf("expected 3 samples, got %d", len(l.Samples))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
