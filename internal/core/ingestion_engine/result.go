package ingestion_engine

// StageStatus separates "not applicable" from "ran but produced nothing".
type StageStatus int

const (
	StageSkipped StageStatus = iota
	StageDone
	StageEmpty
)

func (s StageStatus) String() string {
	switch s {
	case StageDone:
		return "done"
	case StageEmpty:
		return "empty"
	default:
		return "skipped"
	}
}

// StageResult is what every pipeline stage reports besides its error.
type StageResult struct {
	Stage  string
	Status StageStatus
}

func skipped(stage string) StageResult { return StageResult{Stage: stage, Status: StageSkipped} }
func done(stage string) StageResult    { return StageResult{Stage: stage, Status: StageDone} }
func empty(stage string) StageResult   { return StageResult{Stage: stage, Status: StageEmpty} }
