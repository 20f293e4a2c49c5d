// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import "errors"

// window is the circular output buffer of the decoder. It keeps the 32 KiB
// back-reference history and buffers decoded bytes until the caller drains
// them. The buffer is twice the history size, so bytes within the history
// horizon are never overwritten before they age out of it. One slot stays
// free to tell a full buffer from an empty one.
type window struct {
	data []byte
	// write index
	w int
	// read index for draining
	r int
	// history bytes available for back-references, capped at winSize
	hist int
	// bytes produced since init or reset, excluding the dictionary
	total int64
}

func (d *window) init() {
	if d.data == nil {
		d.data = make([]byte, 2*winSize)
	}
	d.reset()
}

func (d *window) reset() {
	d.w = 0
	d.r = 0
	d.hist = 0
	d.total = 0
}

// buffered returns the number of decoded bytes not yet drained.
func (d *window) buffered() int {
	delta := d.w - d.r
	if delta < 0 {
		delta += len(d.data)
	}
	return delta
}

// available returns the number of bytes that can be written before the
// caller must drain output.
func (d *window) available() int {
	return len(d.data) - 1 - d.buffered()
}

func (d *window) addIndex(i, n int) int {
	i += n - len(d.data)
	if i < 0 {
		i += len(d.data)
	}
	return i
}

// writeByte appends one decoded byte. The caller must have checked
// available.
func (d *window) writeByte(c byte) {
	d.data[d.w] = c
	d.w = d.addIndex(d.w, 1)
	if d.hist < winSize {
		d.hist++
	}
	d.total++
}

// copyMatch copies n bytes starting dist bytes behind the write index,
// byte by byte. Source and destination may overlap; bytes written by the
// copy itself are valid sources for its later bytes. The caller validates
// dist against hist and n against available.
func (d *window) copyMatch(dist, n int) {
	src := d.w - dist
	if src < 0 {
		src += len(d.data)
	}
	for i := 0; i < n; i++ {
		d.writeByte(d.data[src])
		src = d.addIndex(src, 1)
	}
}

// read drains decoded bytes into p.
func (d *window) read(p []byte) int {
	n := d.buffered()
	if n > len(p) {
		n = len(p)
	}
	p = p[:n]
	k := copy(p, d.data[d.r:])
	if k < n {
		copy(p[k:], d.data)
	}
	d.r = d.addIndex(d.r, n)
	return n
}

var errDictionary = errors.New(
	"flate: dictionary must be set before any data is processed")

// setDictionary preloads the history with the tail of p. It is only legal
// before any byte has been produced.
func (d *window) setDictionary(p []byte) error {
	if d.total != 0 || d.buffered() != 0 {
		return errDictionary
	}
	if len(p) > winSize {
		p = p[len(p)-winSize:]
	}
	d.w = copy(d.data, p)
	d.r = d.w
	d.hist = d.w
	return nil
}
