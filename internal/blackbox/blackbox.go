// ABOUTME: Betaflight blackbox CSV ingestion
// ABOUTME: Finds the data header, resolves columns to channels and yields raw samples
package blackbox

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

var (
	// ErrNoHeader means no line looked like a blackbox data header
	ErrNoHeader = errors.New("no data header found")
	// ErrMissingColumn means a required column is absent from the header
	ErrMissingColumn = errors.New("missing column")
	// ErrNoSamples means the header was found but no row had a usable time
	ErrNoSamples = errors.New("no samples")
)

// headerKeywords identify the data header among the preamble lines
var headerKeywords = []string{"loopIteration", "time", "rcCommand", "gyroADC", "motor"}

// columnKeys maps each channel to the substring that names its column
var columnKeys = map[telemetry.ChannelID]string{
	telemetry.RollCmd:     "rcCommand[0]",
	telemetry.PitchCmd:    "rcCommand[1]",
	telemetry.YawCmd:      "rcCommand[2]",
	telemetry.ThrottleCmd: "rcCommand[3]",
	telemetry.GyroX:       "gyroADC[0]",
	telemetry.GyroY:       "gyroADC[1]",
	telemetry.GyroZ:       "gyroADC[2]",
	telemetry.Motor0:      "motor[0]",
	telemetry.Motor1:      "motor[1]",
	telemetry.Motor2:      "motor[2]",
	telemetry.Motor3:      "motor[3]",
}

// Log is a parsed blackbox export
type Log struct {
	Samples    []telemetry.Sample
	HeaderLine int                            // zero-based line of the data header
	Columns    map[telemetry.ChannelID]string // resolved column names
	Skipped    int                            // rows dropped for an unreadable time
}

// Duration returns the source time covered by the samples
func (l *Log) Duration() time.Duration {
	if len(l.Samples) == 0 {
		return 0
	}
	return l.Samples[len(l.Samples)-1].Time - l.Samples[0].Time
}

// Load reads a blackbox CSV file. Columns for the channels in need are
// required; every other channel is loaded when present and NaN otherwise.
func Load(path string, need telemetry.Layout) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	l, err := Read(f, need)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Printf("Loaded %d samples (%.2fs) from %s, header at line %d",
		len(l.Samples), l.Duration().Seconds(), path, l.HeaderLine)
	if l.Skipped > 0 {
		log.Printf("Skipped %d rows with unreadable time", l.Skipped)
	}
	return l, nil
}

// Read parses a blackbox CSV stream
func Read(r io.Reader, need telemetry.Layout) (*Log, error) {
	br := bufio.NewReader(r)

	header, line, err := findHeader(br)
	if err != nil {
		return nil, err
	}

	timeIdx, cols, err := resolveColumns(header, need)
	if err != nil {
		return nil, err
	}

	l := &Log{
		HeaderLine: line,
		Columns:    make(map[telemetry.ChannelID]string, len(cols)),
	}
	for ch, idx := range cols {
		l.Columns[ch] = header[idx]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		t, ok := parseTime(field(rec, timeIdx))
		if !ok {
			l.Skipped++
			continue
		}

		s := telemetry.Sample{Time: t, Values: telemetry.Missing()}
		for ch, idx := range cols {
			s.Values[ch] = parseValue(field(rec, idx))
		}
		l.Samples = append(l.Samples, s)
	}

	if len(l.Samples) == 0 {
		return nil, ErrNoSamples
	}
	return l, nil
}

// findHeader returns the cleaned header fields and the line they were on
func findHeader(br *bufio.Reader) ([]string, int, error) {
	for line := 0; ; line++ {
		text, err := br.ReadString('\n')
		if text != "" && isHeader(text) {
			fields, perr := csv.NewReader(strings.NewReader(text)).Read()
			if perr != nil {
				return nil, 0, fmt.Errorf("failed to parse header: %w", perr)
			}
			for i := range fields {
				fields[i] = cleanColumn(fields[i])
			}
			return fields, line, nil
		}
		if err == io.EOF {
			return nil, 0, ErrNoHeader
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan for header: %w", err)
		}
	}
}

func isHeader(line string) bool {
	if strings.Contains(line, "time") && strings.Contains(line, "rcCommand[0]") {
		return true
	}
	hits := 0
	for _, k := range headerKeywords {
		if strings.Contains(line, k) {
			hits++
		}
	}
	return hits >= 4
}

func cleanColumn(c string) string {
	c = strings.ReplaceAll(c, "H,", "")
	c = strings.ReplaceAll(c, "H ", "")
	return strings.TrimSpace(c)
}

// resolveColumns finds the time column and one column per channel
func resolveColumns(header []string, need telemetry.Layout) (int, map[telemetry.ChannelID]int, error) {
	timeIdx := -1
	for i, c := range header {
		if c == "time" || strings.HasPrefix(c, "time ") || strings.HasPrefix(c, "time(") {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		for i, c := range header {
			if strings.Contains(strings.ToLower(c), "time") {
				timeIdx = i
				break
			}
		}
	}
	if timeIdx < 0 {
		return 0, nil, fmt.Errorf("%w: time", ErrMissingColumn)
	}

	required := make(map[telemetry.ChannelID]bool, len(need))
	for _, ch := range need {
		required[ch] = true
	}

	cols := make(map[telemetry.ChannelID]int)
	for ch, key := range columnKeys {
		for i, c := range header {
			if strings.Contains(c, key) {
				cols[ch] = i
				break
			}
		}
		if _, ok := cols[ch]; !ok && required[ch] {
			return 0, nil, fmt.Errorf("%w: %s (%s)", ErrMissingColumn, key, ch)
		}
	}
	return timeIdx, cols, nil
}

func field(rec []string, idx int) string {
	if idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// parseTime reads a microsecond timestamp
func parseTime(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	us, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(us) || math.IsInf(us, 0) {
		return 0, false
	}
	return time.Duration(math.Round(us * float64(time.Microsecond))), true
}

func parseValue(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
