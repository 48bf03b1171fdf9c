package gormstorage

import (
	"time"

	"github.com/hybridmocap/simulator/pkg/core"
	"gorm.io/datatypes"
)

// RunRecord is one simulation run.
type RunRecord struct {
	ID           uint      `gorm:"primarykey"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	RunID        string    `gorm:"size:36;uniqueIndex"`
	StartedAt    time.Time `gorm:"index"`
	Duration     time.Duration
	InputPath    string
	OutputPath   string
	Params       datatypes.JSONType[core.Params]
	DataRate     float64
	FrameCount   int
	MarkerCount  int
	OpticalTicks int
	Rotations    int
	FilledCount  int
	Mean         float64
	StdDev       float64
	Samples      int

	MarkerErrors []MarkerErrorRecord `gorm:"foreignKey:RunID;references:RunID"`
}

// TableName overrides the default pluralised name.
func (RunRecord) TableName() string {
	return "runs"
}

// MarkerErrorRecord is one marker's error summary within a run.
type MarkerErrorRecord struct {
	ID          uint   `gorm:"primarykey"`
	RunID       string `gorm:"size:36;index:idx_run_marker,unique"`
	MarkerIndex int    `gorm:"index:idx_run_marker,unique"`
	MarkerName  string
	Mean        float64
	StdDev      float64
	Max         float64
	Samples     int
}

// TableName overrides the default pluralised name.
func (MarkerErrorRecord) TableName() string {
	return "marker_errors"
}

// Models lists every table the backend migrates.
var Models = []any{
	&RunRecord{},
	&MarkerErrorRecord{},
}

func toRecord(r *core.RunReport) RunRecord {
	rec := RunRecord{
		RunID:        r.RunID.String(),
		StartedAt:    r.StartedAt,
		Duration:     r.Duration,
		InputPath:    r.InputPath,
		OutputPath:   r.OutputPath,
		Params:       datatypes.NewJSONType(r.Params),
		DataRate:     r.DataRate,
		FrameCount:   r.FrameCount,
		MarkerCount:  r.MarkerCount,
		OpticalTicks: r.OpticalTicks,
		Rotations:    r.Rotations,
		FilledCount:  r.FilledCount,
		Mean:         r.Mean,
		StdDev:       r.StdDev,
		Samples:      r.Samples,
		MarkerErrors: make([]MarkerErrorRecord, 0, len(r.PerMarker)),
	}
	for _, m := range r.PerMarker {
		rec.MarkerErrors = append(rec.MarkerErrors, MarkerErrorRecord{
			RunID:       rec.RunID,
			MarkerIndex: m.Index,
			MarkerName:  m.Name,
			Mean:        m.Mean,
			StdDev:      m.StdDev,
			Max:         m.Max,
			Samples:     m.Samples,
		})
	}
	return rec
}
