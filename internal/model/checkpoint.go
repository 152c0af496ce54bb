package model

// Stage identifies which pipeline stage a Checkpoint belongs to.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageEnrich   Stage = "enrich"
	StageClassify Stage = "classify"
)

// Checkpoint is the opaque, per-stage durable progress marker.
type Checkpoint struct {
	Stage         Stage
	ByteOffset    int64
	LinesProcessed int64
	LastTxID      string
	BatchIndex    int64
}
