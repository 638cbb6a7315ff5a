package graph

import "sync"

// Node produces stereo audio. Render adds the node's output for the frames
// starting at absolute frame start into dst (interleaved L/R).
type Node interface {
	Render(dst []float32, start int64)
}

// Finisher is implemented by nodes that go permanently silent. Parents drop
// finished inputs after rendering them.
type Finisher interface {
	Finished(frame int64) bool
}

// Receiver is a node that mixes inputs connected through a Context.
type Receiver interface {
	Node
	addInput(n Node)
	removeInput(n Node) bool
}

// Context owns the audio clock and the node tree rooted at Destination. All
// mutations of connected nodes go through it so they serialise with Process.
type Context struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64
	dest       *Mixer
	taps       []func([]float32)
	seed       uint64
}

func NewContext(sampleRate int) *Context {
	c := &Context{sampleRate: sampleRate, seed: 0x5eed}
	c.dest = c.NewMixer()
	return c
}

func (c *Context) SampleRate() int { return c.sampleRate }

// CurrentTime is the audio clock in seconds: frames rendered so far.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.frame) / float64(c.sampleRate)
}

func (c *Context) CurrentFrame() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *Context) Destination() *Mixer { return c.dest }

// AddTap registers fn to receive every rendered buffer after mixing. Taps run
// on the audio goroutine.
func (c *Context) AddTap(fn func([]float32)) {
	c.mu.Lock()
	c.taps = append(c.taps, fn)
	c.mu.Unlock()
}

func (c *Context) Connect(src Node, dst Receiver) {
	c.mu.Lock()
	dst.addInput(src)
	c.mu.Unlock()
}

// Disconnect removes src from dst. It reports false if src was not connected,
// which includes inputs already dropped after finishing.
func (c *Context) Disconnect(src Node, dst Receiver) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return dst.removeInput(src)
}

// Release halts every source of f at the current frame and disconnects its
// output from dst in one step.
func (c *Context) Release(f *Fragment, dst Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range f.sources {
		s.haltAt(c.frame)
	}
	dst.removeInput(f.Output)
}

// Finished reports whether every source of f has stopped by now.
func (c *Context) Finished(f *Fragment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return f.finished(c.frame)
}

// Process renders len(dst)/2 stereo frames and advances the clock.
func (c *Context) Process(dst []float32) {
	clear(dst)
	c.mu.Lock()
	c.dest.Render(dst, c.frame)
	c.frame += int64(len(dst) / 2)
	taps := c.taps
	c.mu.Unlock()
	for i, s := range dst {
		if s > 1 {
			dst[i] = 1
		} else if s < -1 {
			dst[i] = -1
		}
	}
	for _, tap := range taps {
		tap(dst)
	}
}

func (c *Context) nextSeed() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed++
	return c.seed
}

// inputs is the shared fan-in used by every Receiver.
type inputs struct {
	nodes []Node
	buf   []float32
}

func (in *inputs) addInput(n Node) {
	in.nodes = append(in.nodes, n)
}

func (in *inputs) removeInput(n Node) bool {
	for i, node := range in.nodes {
		if node == n {
			in.nodes = append(in.nodes[:i], in.nodes[i+1:]...)
			return true
		}
	}
	return false
}

// mix renders every input into a scratch buffer and drops inputs that have
// finished by the end of the block.
func (in *inputs) mix(samples int, start int64) []float32 {
	if cap(in.buf) < samples {
		in.buf = make([]float32, samples)
	}
	buf := in.buf[:samples]
	clear(buf)
	end := start + int64(samples/2)
	kept := in.nodes[:0]
	for _, node := range in.nodes {
		node.Render(buf, start)
		if f, ok := node.(Finisher); ok && f.Finished(end) {
			continue
		}
		kept = append(kept, node)
	}
	for i := len(kept); i < len(in.nodes); i++ {
		in.nodes[i] = nil
	}
	in.nodes = kept
	return buf
}

func (in *inputs) empty() bool { return len(in.nodes) == 0 }
