// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

// bitReader provides LSB-first access to a bit stream. The input slice is
// replaced on every Process call while the accumulator carries partial
// state across call boundaries. Bytes moved into the accumulator count as
// consumed input.
type bitReader struct {
	in  []byte
	off int
	// bit accumulator, least significant bit is the next stream bit
	acc uint32
	n   uint8
	// bits consumed from the stream since init
	pos int64
}

// window installs a fresh input view for one Process call.
func (b *bitReader) window(in []byte) {
	b.in = in
	b.off = 0
}

// load moves input bytes into the accumulator. After load the accumulator
// holds at least 25 bits unless the input is exhausted.
func (b *bitReader) load() {
	for b.n <= 24 && b.off < len(b.in) {
		b.acc |= uint32(b.in[b.off]) << b.n
		b.off++
		b.n += 8
	}
}

// try returns the next k bits, k <= 16, without alignment assumptions. If
// fewer than k bits are available nothing is consumed and ok is false.
func (b *bitReader) try(k uint8) (v uint32, ok bool) {
	if b.n < k {
		b.load()
		if b.n < k {
			return 0, false
		}
	}
	v = b.acc & (1<<k - 1)
	b.acc >>= k
	b.n -= k
	b.pos += int64(k)
	return v, true
}

// drop discards k buffered bits. The caller must have established their
// presence with a peek.
func (b *bitReader) drop(k uint8) {
	b.acc >>= k
	b.n -= k
	b.pos += int64(k)
}

// alignByte discards the partial bits of the current byte.
func (b *bitReader) alignByte() {
	k := b.n % 8
	b.acc >>= k
	b.n -= k
	b.pos += int64(k)
}

// exhausted reports that no further bits can be made available from the
// current input view.
func (b *bitReader) exhausted() bool {
	return b.off == len(b.in)
}

// unload pushes whole buffered bytes back to the input and returns their
// number. It is used when the stream ends so that trailing bytes that were
// speculatively loaded are not reported as consumed.
func (b *bitReader) unload() int {
	k := int(b.n / 8)
	// bytes loaded during earlier calls cannot be returned anymore
	if k > b.off {
		k = b.off
	}
	b.n -= uint8(k) * 8
	b.acc &= 1<<b.n - 1
	b.off -= k
	return k
}

// reset clears all accumulator state.
func (b *bitReader) reset() {
	*b = bitReader{}
}
