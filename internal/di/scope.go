package di

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"github.com/baiguoname/qust-sub001/internal/converter"
	"github.com/baiguoname/qust-sub001/internal/partition"
)

// Frame is one active (converter, partitioner) pair.
type Frame struct {
	Converter   converter.Converter
	Partitioner partition.Partitioner
}

func (f Frame) String() string {
	return f.Converter.String() + "|" + f.Partitioner.String()
}

// Scope is the evaluation context handed to feature kernels. It is a value:
// Push and WithTimes return new scopes and never modify the receiver.
type Scope struct {
	di     *DataInstance
	frames []Frame
	times  []time.Time
}

// RootScope starts an evaluation on d with no active frames.
func RootScope(d *DataInstance) Scope {
	return Scope{di: d}
}

func (s Scope) DI() *DataInstance {
	return s.di
}

// Push returns s with f on top.
func (s Scope) Push(f Frame) Scope {
	frames := make([]Frame, len(s.frames), len(s.frames)+1)
	copy(frames, s.frames)

	return Scope{di: s.di, frames: append(frames, f), times: s.times}
}

// Top returns the innermost frame.
func (s Scope) Top() optional.Option[Frame] {
	if len(s.frames) == 0 {
		return optional.None[Frame]()
	}

	return optional.Some(s.frames[len(s.frames)-1])
}

func (s Scope) Depth() int {
	return len(s.frames)
}

// WithTimes returns s bound to the timestamps of the rows being computed.
func (s Scope) WithTimes(times []time.Time) Scope {
	return Scope{di: s.di, frames: s.frames, times: times}
}

// Times are the timestamps of the partition currently being computed.
func (s Scope) Times() []time.Time {
	return s.times
}

func (s Scope) String() string {
	parts := make([]string, len(s.frames))
	for i, f := range s.frames {
		parts[i] = f.String()
	}

	return "[" + strings.Join(parts, " > ") + "]"
}
