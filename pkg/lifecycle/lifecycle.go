// Package lifecycle tracks process readiness as an explicit state value
// instead of a free-floating module-level flag. The readiness probe reads it;
// before Ready is reached the system reports not-ready.
package lifecycle

import "sync/atomic"

type Phase int32

const (
	Starting Phase = iota
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "starting"
	}
}

type State struct {
	phase atomic.Int32
}

func NewState() *State {
	return &State{}
}

func (s *State) Set(p Phase) {
	s.phase.Store(int32(p))
}

func (s *State) Phase() Phase {
	return Phase(s.phase.Load())
}
