// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"errors"
	"io"
)

// Writer compresses data written to it into a raw DEFLATE stream on an
// underlying writer.
type Writer struct {
	flate io.Writer
	f     *Deflator
	buf   []byte
	err   error
}

// NewWriter creates a writer compressing at the default level. Close
// must be called to terminate the stream.
func NewWriter(flate io.Writer) (*Writer, error) {
	return NewWriterConfig(flate, DeflatorConfig{})
}

// NewWriterConfig creates a writer using the given compression
// configuration.
func NewWriterConfig(flate io.Writer, cfg DeflatorConfig) (*Writer, error) {
	if flate == nil {
		return nil, errors.New("flate: writer must not be nil")
	}
	f, err := NewDeflator(cfg)
	if err != nil {
		return nil, err
	}
	return &Writer{
		flate: flate,
		f:     f,
		buf:   make([]byte, defaultBufSize),
	}, nil
}

// process pushes p through the deflator and forwards all produced
// output.
func (w *Writer) process(p []byte, flush FlushMode) (n int, err error) {
	for {
		st, c, k, err := w.f.Process(p[n:], w.buf, flush)
		n += c
		if k > 0 {
			if _, werr := w.flate.Write(w.buf[:k]); werr != nil {
				w.err = werr
				return n, werr
			}
		}
		if err != nil {
			w.err = err
			return n, err
		}
		if st != OutputFull {
			return n, nil
		}
	}
}

// Write provides the io.Writer interface.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	return w.process(p, NoFlush)
}

// Flush terminates the pending block with an empty stored block and
// forwards all compressed data, leaving the stream byte-aligned. A
// decompressor can reproduce all data written so far.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	_, err := w.process(nil, SyncFlush)
	return err
}

// Close terminates the stream with a final block. It doesn't close the
// underlying writer.
func (w *Writer) Close() error {
	if w.err != nil {
		if w.err == errClosed {
			return nil
		}
		return w.err
	}
	if _, err := w.process(nil, Finish); err != nil {
		return err
	}
	w.err = errClosed
	return nil
}
