package trc

import (
	"fmt"
	"strconv"
	"strings"
)

// NewHeader renders the six header lines for a file with the given
// metadata and marker names.
func NewHeader(fileName string, meta Metadata, markers []string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "PathFileType\t4\t(X/Y/Z)\t%s\n", fileName)
	b.WriteString("DataRate\tCameraRate\tNumFrames\tNumMarkers\tUnits\tOrigDataRate\tOrigDataStartFrame\tOrigNumFrames\n")
	fmt.Fprintf(&b, "%s\t%s\t%d\t%d\t%s\t%s\t%d\t%d\n",
		FormatFloat(meta.DataRate), FormatFloat(meta.CameraRate),
		meta.NumFrames, len(markers), meta.Units,
		FormatFloat(meta.OrigDataRate), meta.OrigDataStartFrame, meta.OrigNumFrames)

	b.WriteString("Frame#\tTime\t")
	for _, m := range markers {
		b.WriteString(m)
		b.WriteString("\t\t\t")
	}
	b.WriteString("\n")

	b.WriteString("\t\t")
	for i := range markers {
		fmt.Fprintf(&b, "X%d\tY%d\tZ%d\t", i+1, i+1, i+1)
	}
	b.WriteString("\n")

	b.WriteString("\n")
	return []byte(b.String())
}

// WithNumFrames returns a copy of header with the NumFrames value replaced
// by n. Every other byte, line endings included, is left as it was.
func WithNumFrames(header []byte, n int) ([]byte, error) {
	lines := strings.SplitAfter(string(header), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: no metadata lines", ErrMalformedHeader)
	}

	col := -1
	for i, k := range strings.Split(trimEOL(lines[1]), "\t") {
		if strings.TrimSpace(k) == "NumFrames" {
			col = i
			break
		}
	}
	values := trimEOL(lines[2])
	eol := lines[2][len(values):]
	fields := strings.Split(values, "\t")
	if col < 0 || col >= len(fields) {
		return nil, fmt.Errorf("%w: missing NumFrames", ErrMalformedHeader)
	}

	fields[col] = strconv.Itoa(n)
	lines[2] = strings.Join(fields, "\t") + eol
	return []byte(strings.Join(lines, "")), nil
}
