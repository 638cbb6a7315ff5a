package graph

// Processor transforms one stereo frame. Implementations keep their own state.
type Processor interface {
	Process(l, r float32) (float32, float32)
}

// Insert runs the mix of its inputs through a Processor. It keeps rendering
// after its inputs are gone so effect tails ring out, and never finishes.
type Insert struct {
	inputs
	proc Processor
	buf  []float32
}

func (c *Context) NewInsert(p Processor) *Insert {
	return &Insert{proc: p}
}

func (n *Insert) Render(dst []float32, start int64) {
	var buf []float32
	if n.empty() {
		if cap(n.buf) < len(dst) {
			n.buf = make([]float32, len(dst))
		}
		buf = n.buf[:len(dst)]
		clear(buf)
	} else {
		buf = n.mix(len(dst), start)
	}
	for i := 0; i+1 < len(buf); i += 2 {
		l, r := n.proc.Process(buf[i], buf[i+1])
		dst[i] += l
		dst[i+1] += r
	}
}
