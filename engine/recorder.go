package engine

// Phase names reported to a PhaseTimer during a tick.
const (
	PhaseEmission    = "emission"
	PhaseDecay       = "decay"
	PhaseMerge       = "merge"
	PhaseRecalibrate = "recalibrate"
)

// Recorder receives simulation events as they happen.
type Recorder interface {
	RecordSignal(hit bool)
	RecordNodeCreated()
	RecordNodeDied()
	RecordNodeRemoved()
	RecordLinkCreated()
	RecordLinksPruned(n int)
	RecordPermaBond()
	RecordMerge(level, members int)
	RecordDownLevel(released int)
	RecordTickError()
}

// PhaseTimer is told when each tick phase begins.
type PhaseTimer interface {
	StartPhase(name string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSignal(bool)     {}
func (nopRecorder) RecordNodeCreated()    {}
func (nopRecorder) RecordNodeDied()       {}
func (nopRecorder) RecordNodeRemoved()    {}
func (nopRecorder) RecordLinkCreated()    {}
func (nopRecorder) RecordLinksPruned(int) {}
func (nopRecorder) RecordPermaBond()      {}
func (nopRecorder) RecordMerge(int, int)  {}
func (nopRecorder) RecordDownLevel(int)   {}
func (nopRecorder) RecordTickError()      {}

type nopTimer struct{}

func (nopTimer) StartPhase(string) {}
