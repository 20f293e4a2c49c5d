// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"math/bits"
	"sync"
)

// Operations of a decode table entry.
const (
	opInvalid uint8 = iota
	// val is a literal byte or a raw symbol
	opLiteral
	// end of block
	opEOB
	// val is a base value completed by xbits extra bits
	opBase
)

// hentry is one slot of a flat Huffman decode table. A slot covers every
// bit pattern whose low bits match the reversed code; bits tells how many
// bits the code actually consumes.
type hentry struct {
	op    uint8
	xbits uint8
	bits  uint8
	val   uint16
}

// tableKind selects how symbols map to decode entries.
type tableKind int

const (
	kindCodeLen tableKind = iota
	kindLitLen
	kindDist
)

// huffTable is a canonical Huffman decode table with 1<<bits slots.
type huffTable struct {
	entries []hentry
	bits    uint8
	mask    uint32
}

// countLens fills blCount with the number of codes per length and returns
// the largest length in use together with the number of used symbols.
func countLens(lens []uint8, blCount *[maxCodeBits + 1]int) (max, used int) {
	for i := range blCount {
		blCount[i] = 0
	}
	for _, l := range lens {
		if l == 0 {
			continue
		}
		blCount[l]++
		used++
		if int(l) > max {
			max = int(l)
		}
	}
	return max, used
}

// checkKraft verifies the bit budget of the code lengths. It returns the
// unused budget; negative budgets mean over-subscription.
func checkKraft(blCount *[maxCodeBits + 1]int, max int) int {
	left := 1
	for l := 1; l <= max; l++ {
		left <<= 1
		left -= blCount[l]
	}
	return left
}

// entryFor maps a symbol of the given alphabet to its decode entry.
func entryFor(kind tableKind, sym int, length uint8) hentry {
	e := hentry{bits: length}
	switch kind {
	case kindCodeLen:
		e.op = opLiteral
		e.val = uint16(sym)
	case kindLitLen:
		switch {
		case sym < eobSym:
			e.op = opLiteral
			e.val = uint16(sym)
		case sym == eobSym:
			e.op = opEOB
		case sym < 257+len(lengthBase):
			e.op = opBase
			e.xbits = lengthExtra[sym-257]
			e.val = lengthBase[sym-257]
		default:
			// symbols 286 and 287 must not occur
			e = hentry{bits: length}
		}
	case kindDist:
		if sym < len(distBase) {
			e.op = opBase
			e.xbits = distExtra[sym]
			e.val = distBase[sym]
		} else {
			// symbols 30 and 31 must not occur
			e = hentry{bits: length}
		}
	}
	return e
}

// build constructs the decode table from per-symbol code lengths following
// the canonical code rule of RFC 1951: codes of equal length are assigned
// consecutively in symbol order. Over-subscribed length sets are rejected;
// under-subscribed sets are only accepted as trivial trees with at most
// one symbol.
func (t *huffTable) build(lens []uint8, kind tableKind) Kind {
	var blCount [maxCodeBits + 1]int
	max, used := countLens(lens, &blCount)

	if used == 0 {
		// an empty tree; any decode attempt yields an invalid code
		t.init(1)
		return 0
	}

	left := checkKraft(&blCount, max)
	if left < 0 {
		return CodeOverSubscribed
	}
	if left > 0 && !(used == 1 && max == 1) {
		return CodeIncomplete
	}

	// starting code per length
	var nextCode [maxCodeBits + 1]uint32
	code := uint32(0)
	for l := 1; l <= max; l++ {
		code = (code + uint32(blCount[l-1])) << 1
		nextCode[l] = code
	}

	t.init(uint8(max))
	for sym, l := range lens {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		e := entryFor(kind, sym, l)
		r := reverseBits(c, l)
		step := uint32(1) << l
		for i := r; i < uint32(len(t.entries)); i += step {
			t.entries[i] = e
		}
	}
	return 0
}

// init prepares a zeroed table with 1<<bits slots, reusing the entry
// slice when possible.
func (t *huffTable) init(bits uint8) {
	size := 1 << bits
	if cap(t.entries) < size {
		t.entries = make([]hentry, size)
	} else {
		t.entries = t.entries[:size]
		for i := range t.entries {
			t.entries[i] = hentry{}
		}
	}
	t.bits = bits
	t.mask = uint32(size - 1)
}

// reverseBits mirrors the n least significant bits of c. Huffman codes are
// transmitted most significant bit first while the bit reader delivers
// bits LSB-first.
func reverseBits(c uint32, n uint8) uint32 {
	return uint32(bits.Reverse16(uint16(c)) >> (16 - n))
}

// Fixed trees per RFC 1951 section 3.2.6, built once on first use and
// never mutated afterwards.
var (
	fixedOnce   sync.Once
	fixedLitLen huffTable
	fixedDist   huffTable
)

func fixedTables() (litlen, dist *huffTable) {
	fixedOnce.Do(func() {
		if k := fixedLitLen.build(fixedLitLenLens(), kindLitLen); k != 0 {
			panic("flate: fixed literal/length tree invalid")
		}
		if k := fixedDist.build(fixedDistLens(), kindDist); k != 0 {
			panic("flate: fixed distance tree invalid")
		}
	})
	return &fixedLitLen, &fixedDist
}
