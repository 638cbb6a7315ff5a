package graph

// Fragment is the transient set of nodes built for one note: the sources
// that drive it and the node whose output is connected to an instrument bus.
type Fragment struct {
	Output  Node
	sources []Source
}

func NewFragment(out Node, sources ...Source) *Fragment {
	return &Fragment{Output: out, sources: sources}
}

func (f *Fragment) Sources() []Source { return f.sources }

// Window is the earliest start and latest stop frame across the sources.
func (f *Fragment) Window() (start, stop int64) {
	for i, s := range f.sources {
		if i == 0 || s.StartFrame() < start {
			start = s.StartFrame()
		}
		if i == 0 || s.StopFrame() > stop {
			stop = s.StopFrame()
		}
	}
	return start, stop
}

func (f *Fragment) finished(frame int64) bool {
	for _, s := range f.sources {
		if !s.Finished(frame) {
			return false
		}
	}
	return true
}
