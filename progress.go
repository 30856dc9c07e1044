package rancher

// Stage identifies which long-running operation a progress event
// belongs to.
type Stage int

const (
	// StagePreview covers batch preview rendering after an import.
	StagePreview Stage = iota
	// StageExport covers page copying during export.
	StageExport
)

// Progress is one progress notification. Indexes are 0-based; a stage
// emits at least one event per completed unit, in completion order.
type Progress struct {
	Stage     Stage
	DocIndex  int
	DocCount  int
	PageIndex int
	PageCount int
}

// ProgressFunc receives progress notifications. Implementations must be
// fast; they are called on the working goroutine.
type ProgressFunc func(Progress)

// notify calls fn when it is set.
func (fn ProgressFunc) notify(p Progress) {
	if fn != nil {
		fn(p)
	}
}
