// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

// bitWriter assembles an LSB-first bit stream into an internal byte
// buffer that the encoder drains into caller-provided output views.
type bitWriter struct {
	buf []byte
	// drain offset into buf
	r   int
	acc uint64
	n   uint8
}

// writeBits appends the k least significant bits of v, k <= 32.
func (w *bitWriter) writeBits(v uint32, k uint8) {
	w.acc |= uint64(v) << w.n
	w.n += k
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

// writeCode appends a Huffman code. Codes are stored bit-reversed, so the
// most significant code bit enters the stream first as the format
// demands.
func (w *bitWriter) writeCode(c hcode) {
	w.writeBits(uint32(c.code), c.len)
}

// alignByte pads the current byte with zero bits.
func (w *bitWriter) alignByte() {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc = 0
		w.n = 0
	}
}

// writeBytes appends raw bytes. The stream must be byte-aligned.
func (w *bitWriter) writeBytes(p []byte) {
	if w.n != 0 {
		panic("flate: writeBytes on unaligned stream")
	}
	w.buf = append(w.buf, p...)
}

// pending returns the number of completed bytes not yet drained.
func (w *bitWriter) pending() int { return len(w.buf) - w.r }

// read drains completed bytes into p.
func (w *bitWriter) read(p []byte) int {
	n := copy(p, w.buf[w.r:])
	w.r += n
	if w.r == len(w.buf) {
		w.buf = w.buf[:0]
		w.r = 0
	}
	return n
}

// reset drops all buffered bytes and partial bits.
func (w *bitWriter) reset() {
	w.buf = w.buf[:0]
	w.r = 0
	w.acc = 0
	w.n = 0
}
