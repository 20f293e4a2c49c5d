// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"errors"
	"fmt"
)

// ErrStream reports a violation of the usage contract, for instance calling
// Process on a handle that has already failed or finished. The handle cannot
// be used further; create a new one or call Reset.
var ErrStream = errors.New("flate: stream handle no longer usable")

// errClosed is returned by writer operations after Close.
var errClosed = errors.New("flate: already closed")

// Kind classifies the corruption found in a compressed stream.
type Kind int

const (
	// InvalidBlockType marks the reserved block type 0b11.
	InvalidBlockType Kind = iota + 1
	// StoredLengthMismatch marks a stored block whose LEN field doesn't
	// match the one's complement NLEN field.
	StoredLengthMismatch
	// TooManySymbols marks a dynamic header declaring more literal/length
	// or distance codes than the format permits.
	TooManySymbols
	// CodeOverSubscribed marks a code length table exceeding the Kraft
	// bit budget.
	CodeOverSubscribed
	// CodeIncomplete marks an under-subscribed code length table that is
	// not a trivial one-symbol tree.
	CodeIncomplete
	// NoCodes marks a dynamic header without any literal/length codes.
	NoCodes
	// RepeatBeforeLength marks a length repeat escape without a
	// preceding length.
	RepeatBeforeLength
	// RepeatTooLong marks a run escape overflowing the declared number
	// of code lengths.
	RepeatTooLong
	// InvalidHuffmanCode marks a bit pattern that doesn't resolve to a
	// symbol of the active tree.
	InvalidHuffmanCode
	// InvalidDistanceTooFarBack marks a back-reference behind the start
	// of the produced data.
	InvalidDistanceTooFarBack
	// ChecksumMismatch marks a stream whose Adler-32 trailer doesn't
	// match the decompressed data.
	ChecksumMismatch
	// UnexpectedEOF marks input that ends before the final block
	// completes while the caller demanded Finish.
	UnexpectedEOF
)

var kindStrings = map[Kind]string{
	InvalidBlockType:          "invalid block type",
	StoredLengthMismatch:      "stored block length mismatch",
	TooManySymbols:            "too many literal/length or distance symbols",
	CodeOverSubscribed:        "code lengths over-subscribed",
	CodeIncomplete:            "code lengths incomplete",
	NoCodes:                   "no literal/length codes",
	RepeatBeforeLength:        "length repeat without previous length",
	RepeatTooLong:             "length run exceeds declared symbols",
	InvalidHuffmanCode:        "invalid huffman code",
	InvalidDistanceTooFarBack: "distance too far back",
	ChecksumMismatch:          "checksum mismatch",
	UnexpectedEOF:             "unexpected end of input",
}

func (k Kind) String() string {
	s, ok := kindStrings[k]
	if !ok {
		return fmt.Sprintf("unknown data error %d", int(k))
	}
	return s
}

// DataError reports malformed compressed input. Offset is the approximate
// bit offset into the stream at which the condition was detected. The error
// is fatal for the handle that returned it.
type DataError struct {
	Kind   Kind
	Offset int64
}

func (e *DataError) Error() string {
	return fmt.Sprintf("flate: %s at bit offset %d", e.Kind, e.Offset)
}

// Is supports errors.Is matching on the Kind alone.
func (e *DataError) Is(target error) bool {
	t, ok := target.(*DataError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Offset == 0 || t.Offset == e.Offset)
}
