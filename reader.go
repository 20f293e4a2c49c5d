// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"errors"
	"io"
)

// defaultBufSize is the size of the input buffer of a Reader and the
// output buffer of a Writer.
const defaultBufSize = 32 << 10

// Reader decompresses a raw DEFLATE stream read from an underlying
// reader.
type Reader struct {
	flate io.Reader
	f     *Inflator
	buf   []byte
	off   int
	end   int
	eof   bool
	err   error
}

// NewReader creates a reader for a raw DEFLATE stream.
func NewReader(flate io.Reader) (*Reader, error) {
	return NewReaderConfig(flate, InflatorConfig{})
}

// NewReaderConfig creates a reader using the given decompression
// configuration.
func NewReaderConfig(flate io.Reader, cfg InflatorConfig) (*Reader, error) {
	if flate == nil {
		return nil, errors.New("flate: reader must not be nil")
	}
	f, err := NewInflator(cfg)
	if err != nil {
		return nil, err
	}
	return &Reader{
		flate: flate,
		f:     f,
		buf:   make([]byte, defaultBufSize),
	}, nil
}

// Read provides the io.Reader interface. It returns io.EOF after the
// final block has been decoded; data following it in the underlying
// reader is not consumed.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.err != nil {
		return 0, r.err
	}
	for n < len(p) {
		flush := NoFlush
		if r.eof {
			flush = Finish
		}
		st, c, k, err := r.f.Process(r.buf[r.off:r.end], p[n:], flush)
		r.off += c
		n += k
		if err != nil {
			r.err = err
			return n, err
		}
		switch st {
		case StreamEnd:
			r.err = io.EOF
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		case NeedDictionary:
			r.err = errors.New("flate: stream requires a preset dictionary")
			return n, r.err
		case NeedMoreInput:
			r.off, r.end = 0, 0
			m, rerr := r.flate.Read(r.buf)
			r.end = m
			if rerr != nil {
				if rerr != io.EOF {
					r.err = rerr
					return n, rerr
				}
				r.eof = true
			}
		}
	}
	return n, nil
}
