package trc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hybridmocap/simulator/pkg/core"
)

// Load reads and parses a TRC file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening TRC file: %w", err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return file, nil
}

// Parse reads a TRC document. Cells that are empty or NaN, and triplets
// cut off at the end of a row, become missing readings.
func Parse(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)

	var header bytes.Buffer
	lines := make([]string, 0, HeaderLines)
	for i := 0; i < HeaderLines; i++ {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("%w: only %d of %d header lines", ErrMalformedHeader, i, HeaderLines)
		}
		header.WriteString(line)
		lines = append(lines, trimEOL(line))
	}

	meta, err := parseMetadata(lines[1], lines[2])
	if err != nil {
		return nil, err
	}

	markers := parseMarkerNames(lines[3])
	if len(markers) == 0 {
		return nil, fmt.Errorf("%w: no marker names", ErrMalformedHeader)
	}
	if meta.NumMarkers != 0 && meta.NumMarkers != len(markers) {
		return nil, fmt.Errorf("%w: header declares %d markers, found %d names",
			ErrMalformedHeader, meta.NumMarkers, len(markers))
	}

	file := &File{
		Header:   header.Bytes(),
		Metadata: meta,
		Markers:  markers,
		Frames:   make([]core.Frame, 0, meta.NumFrames),
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := HeaderLines
	for scanner.Scan() {
		lineNo++
		line := trimEOL(scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}
		frame, err := parseRow(line, len(markers))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		file.Frames = append(file.Frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading data rows: %w", err)
	}

	return file, nil
}

func parseMetadata(keyLine, valueLine string) (Metadata, error) {
	keys := strings.Split(keyLine, "\t")
	values := strings.Split(valueLine, "\t")
	fields := make(map[string]string, len(keys))
	for i, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || i >= len(values) {
			continue
		}
		fields[k] = strings.TrimSpace(values[i])
	}

	var meta Metadata
	var err error
	if meta.DataRate, err = floatField(fields, "DataRate", true); err != nil {
		return meta, err
	}
	if meta.CameraRate, err = floatField(fields, "CameraRate", false); err != nil {
		return meta, err
	}
	if meta.NumFrames, err = intField(fields, "NumFrames"); err != nil {
		return meta, err
	}
	if meta.NumMarkers, err = intField(fields, "NumMarkers"); err != nil {
		return meta, err
	}
	if meta.OrigDataRate, err = floatField(fields, "OrigDataRate", false); err != nil {
		return meta, err
	}
	if meta.OrigDataStartFrame, err = intField(fields, "OrigDataStartFrame"); err != nil {
		return meta, err
	}
	if meta.OrigNumFrames, err = intField(fields, "OrigNumFrames"); err != nil {
		return meta, err
	}
	meta.Units = fields["Units"]
	return meta, nil
}

func floatField(fields map[string]string, key string, required bool) (float64, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		if required {
			return 0, fmt.Errorf("%w: missing %s", ErrMalformedHeader, key)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedHeader, key, raw)
	}
	return v, nil
}

func intField(fields map[string]string, key string) (int, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedHeader, key, raw)
	}
	return v, nil
}

// parseMarkerNames reads "Frame#\tTime\tName1\t\t\tName2..." skipping the
// blank cells that pad each name to its triplet.
func parseMarkerNames(line string) []string {
	cells := strings.Split(line, "\t")
	if len(cells) < 2 {
		return nil
	}
	var names []string
	for _, c := range cells[2:] {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	return names
}

func parseRow(line string, markerCount int) (core.Frame, error) {
	cells := strings.Split(line, "\t")
	if len(cells) < 2 {
		return core.Frame{}, fmt.Errorf("%w: %d cells", ErrMalformedRow, len(cells))
	}

	number, err := strconv.Atoi(strings.TrimSpace(cells[0]))
	if err != nil {
		return core.Frame{}, fmt.Errorf("%w: frame number %q", ErrMalformedRow, cells[0])
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(cells[1]), 64)
	if err != nil {
		return core.Frame{}, fmt.Errorf("%w: time %q", ErrMalformedRow, cells[1])
	}

	frame := core.Frame{
		Number:   number,
		Time:     t,
		Readings: make([]core.Reading, markerCount),
	}
	for m := 0; m < markerCount; m++ {
		col := 2 + 3*m
		if col+2 >= len(cells) {
			frame.Readings[m] = core.MissingReading()
			continue
		}
		reading, err := parseTriplet(cells[col], cells[col+1], cells[col+2])
		if err != nil {
			return core.Frame{}, fmt.Errorf("%w: marker %d: %v", ErrMalformedRow, m, err)
		}
		frame.Readings[m] = reading
	}
	return frame, nil
}

func parseTriplet(xs, ys, zs string) (core.Reading, error) {
	var vals [3]float64
	for i, s := range [3]string{xs, ys, zs} {
		s = strings.TrimSpace(s)
		if s == "" {
			return core.MissingReading(), nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Reading{}, err
		}
		if math.IsNaN(v) {
			return core.MissingReading(), nil
		}
		vals[i] = v
	}
	return core.NewReading(vals[0], vals[1], vals[2]), nil
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}
