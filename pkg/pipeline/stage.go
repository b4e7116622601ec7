package pipeline

// Stage is a step of the per-split conversion state machine. Stages advance
// monotonically; none is re-entered.
type Stage int

// Split stages, in order.
const (
	StageScanning Stage = iota
	StageIndexed
	StageShuffled
	StageScheduling
	StageConverting
	StageJoined
	StageFinalizing
	StageFailed
)

var stageNames = [...]string{
	StageScanning:   "scanning",
	StageIndexed:    "indexed",
	StageShuffled:   "shuffled",
	StageScheduling: "scheduling",
	StageConverting: "converting",
	StageJoined:     "joined",
	StageFinalizing: "finalizing",
	StageFailed:     "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}

	return stageNames[s]
}
