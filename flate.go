// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

// FlushMode tells Process whether more input will follow.
type FlushMode int

const (
	// NoFlush continues the stream; the engine may buffer freely.
	NoFlush FlushMode = iota
	// SyncFlush completes pending output up to a byte boundary. On the
	// encoder side an empty stored block is appended so the decoder can
	// recover all bytes written so far.
	SyncFlush
	// Finish marks the end of the stream. The encoder emits the final
	// block; the decoder treats missing input as an error.
	Finish
)

func (m FlushMode) String() string {
	switch m {
	case NoFlush:
		return "NoFlush"
	case SyncFlush:
		return "SyncFlush"
	case Finish:
		return "Finish"
	}
	return "FlushMode(?)"
}

// Status is the flow-control result of a Process call. None of the values
// are errors; data corruption and usage violations are reported through
// the error return.
type Status int

const (
	// Ok means progress has been made and the call completed.
	Ok Status = iota
	// StreamEnd means the stream is complete and fully drained.
	StreamEnd
	// NeedMoreInput means the engine stopped because the input view is
	// exhausted. Supply more input and call Process again.
	NeedMoreInput
	// OutputFull means the engine stopped because the output view is
	// full. Drain output and call Process again.
	OutputFull
	// NeedDictionary means the stream requires a preset dictionary that
	// has not been supplied yet. Call SetDictionary and resume.
	NeedDictionary
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "Ok"
	case StreamEnd:
		return "StreamEnd"
	case NeedMoreInput:
		return "NeedMoreInput"
	case OutputFull:
		return "OutputFull"
	case NeedDictionary:
		return "NeedDictionary"
	}
	return "Status(?)"
}
