package usecase

// State is the position of one column run in the pipeline.
type State int

const (
	StateIdle State = iota
	StateNormalizing
	StateEmbedding
	StateReducing
	StateClustering
	StateLabeling
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "Idle",
	StateNormalizing: "Normalizing",
	StateEmbedding:   "Embedding",
	StateReducing:    "Reducing",
	StateClustering:  "Clustering",
	StateLabeling:    "Labeling",
	StateDone:        "Done",
	StateFailed:      "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Stage is the lower-case stage name used in errors and spans.
func (s State) Stage() string {
	switch s {
	case StateNormalizing:
		return "normalizing"
	case StateEmbedding:
		return "embedding"
	case StateReducing:
		return "reducing"
	case StateClustering:
		return "clustering"
	case StateLabeling:
		return "labeling"
	default:
		return ""
	}
}

// next is the stage that follows s on success.
func (s State) next() State {
	if s.Terminal() {
		return s
	}
	return s + 1
}
