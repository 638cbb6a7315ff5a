package graph

import "math"

type eventKind int

const (
	eventSet eventKind = iota
	eventLinear
	eventExponential
	eventTarget
)

type paramEvent struct {
	kind  eventKind
	time  float64
	value float64
	tau   float64
}

// Param is an automatable value evaluated against the audio clock. It follows
// the usual set/ramp/target automation model: a ramp runs from the previous
// event's time and value to its own.
type Param struct {
	def    float64
	events []paramEvent
}

func NewParam(value float64) *Param {
	return &Param{def: value}
}

func (p *Param) SetValueAtTime(v, t float64) *Param {
	p.insert(paramEvent{kind: eventSet, time: t, value: v})
	return p
}

func (p *Param) LinearRampToValueAtTime(v, t float64) *Param {
	p.insert(paramEvent{kind: eventLinear, time: t, value: v})
	return p
}

// ExponentialRampToValueAtTime ramps geometrically. If either endpoint is not
// strictly positive the previous value holds until t.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) *Param {
	p.insert(paramEvent{kind: eventExponential, time: t, value: v})
	return p
}

// SetTargetAtTime approaches v from t onward with time constant tau.
func (p *Param) SetTargetAtTime(v, t, tau float64) *Param {
	p.insert(paramEvent{kind: eventTarget, time: t, value: v, tau: tau})
	return p
}

func (p *Param) insert(ev paramEvent) {
	i := len(p.events)
	for i > 0 && p.events[i-1].time > ev.time {
		i--
	}
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
}

// ValueAt evaluates the automation at clock time t.
func (p *Param) ValueAt(t float64) float64 {
	last := -1
	for i, ev := range p.events {
		if ev.time > t {
			break
		}
		last = i
	}
	if next := last + 1; next < len(p.events) {
		ev := p.events[next]
		if ev.kind == eventLinear || ev.kind == eventExponential {
			t0, v0 := p.origin(next)
			if ev.time <= t0 {
				return ev.value
			}
			frac := (t - t0) / (ev.time - t0)
			if frac < 0 {
				frac = 0
			}
			if ev.kind == eventLinear {
				return v0 + (ev.value-v0)*frac
			}
			if v0 <= 0 || ev.value <= 0 {
				return v0
			}
			return v0 * math.Pow(ev.value/v0, frac)
		}
	}
	if last < 0 {
		return p.def
	}
	ev := p.events[last]
	if ev.kind == eventTarget {
		_, v0 := p.origin(last)
		if ev.tau <= 0 {
			return ev.value
		}
		return ev.value + (v0-ev.value)*math.Exp(-(t-ev.time)/ev.tau)
	}
	return ev.value
}

// origin is the start point of the event at idx: the previous event's time
// and value, or the default at time zero.
func (p *Param) origin(idx int) (float64, float64) {
	if idx == 0 {
		return 0, p.def
	}
	prev := p.events[idx-1]
	return prev.time, prev.value
}
