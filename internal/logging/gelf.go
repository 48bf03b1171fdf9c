package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter dials a GELF UDP endpoint. Pass the writer to
// SlogManager.Setup as a sink.
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", address, err)
	}
	w.Facility = "hybrid-sim"
	return w, nil
}
