// Package stream implements lazy event pipelines using Go channels.
//
// Streams consist of a single generator, zero or more operators, and a
// single terminator. Every stream shares a stop channel, which the owner
// may use to cleanly shut down the entire stream.
//
// Each operator runs in its own goroutine, so the filter trees and rules
// it evaluates are owned by that goroutine and need no locking.
package stream

import (
	"io"
	"reflect"
	"sync"

	"github.com/capsule8/evfilter/pkg/event"
	"github.com/capsule8/evfilter/pkg/filter"
)

type stream struct {
	stop chan struct{}
	elem chan filter.Event

	mu  sync.Mutex
	err error
}

type Stream interface {
	// Next waits for the next event in the stream and returns it and
	// a boolean indicating whether the event was received OK. A false
	// value for ok indicates that the stream has terminated.
	Next() (e filter.Event, ok bool)

	// Channel returns the underlying events channel for the stream. Using
	// Next() is recommended for most clients, but giving direct access to
	// the channel permits its use in a select among multiple channels.
	Channel() chan filter.Event

	// Err returns the error that terminated the stream's generator, if
	// any. It is only meaningful once Next has returned false.
	Err() error

	// Close the stream and cleanly shut down the upstream generator and operators.
	Close()
}

// NewStream creates a new Stream from the given channel.
func NewStream(elem chan filter.Event, stop chan struct{}) Stream {
	return newStream(elem, stop)
}

func newStream(elem chan filter.Event, stop chan struct{}) *stream {
	if elem == nil {
		elem = make(chan filter.Event)
	}

	if stop == nil {
		stop = make(chan struct{})
	}

	return &stream{
		stop: stop,
		elem: elem,
	}
}

func (s *stream) Next() (filter.Event, bool) {
	select {
	case <-s.stop:
		return nil, false

	case e, ok := <-s.elem:
		return e, ok
	}
}

func (s *stream) Channel() chan filter.Event {
	return s.elem
}

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *stream) Close() {
	//
	// Channels can only be stopped once without causing a panic. We
	// intentionally don't guard this close to ensure correctness of client
	// code.
	//
	close(s.stop)
}

// send delivers e downstream unless the stream is stopped first.
func (s *stream) send(e filter.Event) bool {
	select {
	case <-s.stop:
		return false
	case s.elem <- e:
		return true
	}
}

// operator starts f in a goroutine producing a new stream that shares in's
// stop channel. The output carries in's error once f returns.
func operator(in Stream, f func(out *stream)) Stream {
	s := in.(*stream)
	out := newStream(nil, s.stop)

	go func() {
		defer close(out.elem)
		f(out)
		out.setErr(s.Err())
	}()

	return out
}

// ----------------------------------------------------------------------------
// Generators return an output stream
// ----------------------------------------------------------------------------

// Decode creates a generator that produces the events decoded from r.
// A decoding error terminates the stream and is reported by Err.
func Decode(r io.Reader) Stream {
	dec := event.NewDecoder(r)
	s := newStream(nil, nil)

	go func() {
		defer close(s.elem)

		for {
			ev, err := dec.Next()
			if err == io.EOF {
				return
			} else if err != nil {
				s.setErr(err)
				return
			}

			if !s.send(ev) {
				return
			}
		}
	}()

	return s
}

// Events creates a generator that produces the given events.
func Events(events ...filter.Event) Stream {
	s := newStream(nil, nil)

	go func() {
		defer close(s.elem)

		for _, e := range events {
			if !s.send(e) {
				return
			}
		}
	}()

	return s
}

// ----------------------------------------------------------------------------
// Operators take an input stream and return an output stream
// ----------------------------------------------------------------------------

type DoFunc func(filter.Event)

// Do adds an operator in the stream that calls the given function for
// every event.
func Do(in Stream, f DoFunc) Stream {
	return operator(in, func(out *stream) {
		for {
			e, ok := in.Next()
			if !ok {
				return
			}
			f(e)
			if !out.send(e) {
				return
			}
		}
	})
}

type FilterFunc func(filter.Event) bool

// Filter adds an operator in the stream that forwards only the events for
// which f returns true.
func Filter(in Stream, f FilterFunc) Stream {
	return operator(in, func(out *stream) {
		for {
			e, ok := in.Next()
			if !ok {
				return
			}
			if f(e) && !out.send(e) {
				return
			}
		}
	})
}

// Check adds an operator in the stream that forwards only the events
// matched by the compiled filter tree chk. The tree is owned by the
// operator's goroutine from then on.
func Check(in Stream, chk filter.Check) Stream {
	return Filter(in, chk.Compare)
}

// Apply adds an operator that passes every event through f, calling its
// DoFunc and forwarding the events it includes.
func Apply(in Stream, f filter.Filter) Stream {
	return operator(in, func(out *stream) {
		for {
			e, ok := in.Next()
			if !ok {
				return
			}
			if f.FilterFunc(e) {
				f.DoFunc(e)
				if !out.send(e) {
					return
				}
			}
		}
	})
}

// Join combines multiple input Streams into a single output Stream. The
// output's error is the first error reported by an input.
func Join(in ...Stream) Stream {
	out := newStream(nil, nil)

	go func() {
		defer close(out.elem)

		cases := make([]reflect.SelectCase, len(in)*2)

		for i := range in {
			s := in[i].(*stream)

			cases[i] = reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(s.elem),
			}

			cases[i+len(in)] = reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(s.stop),
			}
		}

		activeElems := len(in)
		activeStops := len(in)

		for activeElems > 0 && activeStops > 0 {
			chosen, recv, recvOK := reflect.Select(cases)

			if chosen < len(in) {
				// Input event
				if recvOK {
					if !out.send(recv.Interface()) {
						return
					}
				} else {
					cases[chosen].Chan = reflect.ValueOf(nil)
					activeElems--
					out.setErr(in[chosen].Err())
				}
			} else {
				// Stop channel was closed
				cases[chosen].Chan = reflect.ValueOf(nil)
				activeStops--
			}
		}
	}()

	return out
}

// Split splits the input stream by the given filter function. Both
// outputs must be consumed.
func Split(in Stream, f FilterFunc) (Stream, Stream) {
	s := in.(*stream)

	outTrue := newStream(nil, s.stop)
	outFalse := newStream(nil, s.stop)

	go func() {
		defer close(outTrue.elem)
		defer close(outFalse.elem)

		for {
			e, ok := in.Next()
			if !ok {
				outTrue.setErr(s.Err())
				outFalse.setErr(s.Err())
				return
			}
			if f(e) {
				if !outTrue.send(e) {
					return
				}
			} else if !outFalse.send(e) {
				return
			}
		}
	}()

	return outTrue, outFalse
}

// Buffer stores up to the given number of events from the input Stream
// before blocking
func Buffer(in Stream, size uint) Stream {
	s := in.(*stream)
	out := newStream(make(chan filter.Event, size), s.stop)

	go func() {
		defer close(out.elem)

		for {
			e, ok := in.Next()
			if !ok {
				out.setErr(s.Err())
				return
			}
			if !out.send(e) {
				return
			}
		}
	}()

	return out
}

// ----------------------------------------------------------------------------
// Terminators consume an input stream. They are typically used to wait for a
// stream's clean termination.
// ----------------------------------------------------------------------------

// ForEach adds a terminator onto the stream that consumes each event and
// runs the given function on them. It returns the stream's error.
func ForEach(in Stream, f DoFunc) error {
	for {
		e, ok := in.Next()
		if !ok {
			return in.Err()
		}
		f(e)
	}
}

// Count adds a terminator onto the stream that counts its events.
func Count(in Stream) (int, error) {
	n := 0
	err := ForEach(in, func(filter.Event) { n++ })
	return n, err
}

// Discard adds a terminator onto the stream that throws away all events.
func Discard(in Stream) error {
	return ForEach(in, func(filter.Event) {})
}
