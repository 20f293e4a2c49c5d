// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"sort"
	"sync"
)

// hcode is an encoder-side Huffman code. The code field is stored
// bit-reversed so it can be fed to the LSB-first bit writer directly.
type hcode struct {
	code uint16
	len  uint8
}

// buildLens computes depth-limited canonical code lengths from symbol
// frequencies. It implements the classic Huffman construction with the
// bit-length overflow repair of zlib: lengths beyond the limit are
// clipped and the length counts adjusted until the Kraft budget holds
// again. Returns the number of used symbols.
func buildLens(freq []uint32, limit int, lens []uint8) int {
	for i := range lens {
		lens[i] = 0
	}

	type sf struct {
		sym  int
		freq uint32
	}
	list := make([]sf, 0, len(freq))
	for s, f := range freq {
		if f > 0 {
			list = append(list, sf{s, f})
		}
	}
	switch len(list) {
	case 0:
		return 0
	case 1:
		lens[list[0].sym] = 1
		return 1
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].freq != list[j].freq {
			return list[i].freq < list[j].freq
		}
		return list[i].sym < list[j].sym
	})

	// two-queue merge; leaves first, internal nodes appended in
	// nondecreasing frequency order
	n := len(list)
	type node struct {
		freq   uint64
		parent int
	}
	nodes := make([]node, n, 2*n-1)
	for i, e := range list {
		nodes[i] = node{freq: uint64(e.freq), parent: -1}
	}
	leaf, internal := 0, n
	pick := func() int {
		if leaf < n && (internal >= len(nodes) ||
			nodes[leaf].freq <= nodes[internal].freq) {
			leaf++
			return leaf - 1
		}
		internal++
		return internal - 1
	}
	for len(nodes) < 2*n-1 {
		i := pick()
		j := pick()
		nodes = append(nodes, node{
			freq:   nodes[i].freq + nodes[j].freq,
			parent: -1,
		})
		nodes[i].parent = len(nodes) - 1
		nodes[j].parent = len(nodes) - 1
	}

	depth := make([]int, len(nodes))
	for i := len(nodes) - 2; i >= 0; i-- {
		depth[i] = depth[nodes[i].parent] + 1
	}

	maxDepth := 0
	for i := 0; i < n; i++ {
		if depth[i] > maxDepth {
			maxDepth = depth[i]
		}
	}
	blCount := make([]int, maxDepth+1)
	for i := 0; i < n; i++ {
		blCount[depth[i]]++
	}

	if maxDepth > limit {
		overflow := 0
		for l := limit + 1; l <= maxDepth; l++ {
			overflow += blCount[l]
			blCount[limit] += blCount[l]
			blCount[l] = 0
		}
		for overflow > 0 {
			bits := limit - 1
			for blCount[bits] == 0 {
				bits--
			}
			blCount[bits]--
			blCount[bits+1] += 2
			blCount[limit]--
			overflow -= 2
		}
		maxDepth = limit
	}

	// longest codes go to the least frequent symbols
	idx := 0
	for l := maxDepth; l >= 1; l-- {
		for c := blCount[l]; c > 0; c-- {
			lens[list[idx].sym] = uint8(l)
			idx++
		}
	}
	return n
}

// canonicalCodes derives the transmit-ready codes from code lengths using
// the same canonical assignment rule the decoder applies.
func canonicalCodes(lens []uint8, codes []hcode) {
	var blCount [maxCodeBits + 1]int
	max, _ := countLens(lens, &blCount)
	var nextCode [maxCodeBits + 1]uint32
	code := uint32(0)
	for l := 1; l <= max; l++ {
		code = (code + uint32(blCount[l-1])) << 1
		nextCode[l] = code
	}
	for sym, l := range lens {
		if l == 0 {
			codes[sym] = hcode{}
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		codes[sym] = hcode{code: uint16(reverseBits(c, l)), len: l}
	}
}

// clToken is one element of the run-length encoded code length sequence
// of a dynamic header. For syms 16, 17 and 18 arg carries the repeat
// count bias removed; otherwise sym is a plain code length.
type clToken struct {
	sym uint8
	arg uint8
}

var clExtra = [maxCodeLenSyms]uint8{16: 2, 17: 3, 18: 7}

// rleCodeLens run-length encodes the concatenated literal/length and
// distance code lengths using the repeat symbols 16, 17 and 18 and counts
// the code-length alphabet frequencies.
func rleCodeLens(all []uint8, freq *[maxCodeLenSyms]uint32) []clToken {
	tokens := make([]clToken, 0, len(all))
	emit := func(sym, arg uint8) {
		tokens = append(tokens, clToken{sym: sym, arg: arg})
		freq[sym]++
	}
	i := 0
	for i < len(all) {
		v := all[i]
		j := i + 1
		for j < len(all) && all[j] == v {
			j++
		}
		run := j - i
		i = j
		if v == 0 {
			for run >= 11 {
				n := run
				if n > 138 {
					n = 138
				}
				emit(18, uint8(n-11))
				run -= n
			}
			if run >= 3 {
				emit(17, uint8(run-3))
				run = 0
			}
		} else {
			emit(v, 0)
			run--
			for run >= 3 {
				n := run
				if n > 6 {
					n = 6
				}
				emit(16, uint8(n-3))
				run -= n
			}
		}
		for ; run > 0; run-- {
			emit(v, 0)
		}
	}
	return tokens
}

// dynamicHeader captures everything needed to emit a dynamic block
// header and to price it against the fixed and stored alternatives.
type dynamicHeader struct {
	hlit, hdist, hclen int
	tokens             []clToken
	clcLens            [maxCodeLenSyms]uint8
	clcCodes           [maxCodeLenSyms]hcode
	bits               int
}

// build prepares the header for the given code length arrays.
func (h *dynamicHeader) build(litLens, distLens []uint8) {
	h.hlit = len(litLens)
	h.hdist = len(distLens)

	all := make([]uint8, 0, h.hlit+h.hdist)
	all = append(all, litLens...)
	all = append(all, distLens...)

	var clcFreq [maxCodeLenSyms]uint32
	h.tokens = rleCodeLens(all, &clcFreq)

	buildLens(clcFreq[:], 7, h.clcLens[:])
	canonicalCodes(h.clcLens[:], h.clcCodes[:])

	h.hclen = maxCodeLenSyms
	for h.hclen > 4 && h.clcLens[codeLenOrder[h.hclen-1]] == 0 {
		h.hclen--
	}

	h.bits = 14 + 3*h.hclen
	for _, t := range h.tokens {
		h.bits += int(h.clcLens[t.sym]) + int(clExtra[t.sym])
	}
}

// write emits the header through the bit writer.
func (h *dynamicHeader) write(w *bitWriter) {
	w.writeBits(uint32(h.hlit-257), 5)
	w.writeBits(uint32(h.hdist-1), 5)
	w.writeBits(uint32(h.hclen-4), 4)
	for i := 0; i < h.hclen; i++ {
		w.writeBits(uint32(h.clcLens[codeLenOrder[i]]), 3)
	}
	for _, t := range h.tokens {
		w.writeCode(h.clcCodes[t.sym])
		if x := clExtra[t.sym]; x > 0 {
			w.writeBits(uint32(t.arg), x)
		}
	}
}

// Fixed encoder-side code tables, derived once from the fixed trees.
var (
	fixedEncOnce    sync.Once
	fixedLitLenCode [maxLitLenSyms]hcode
	fixedDistCode   [32]hcode
)

func fixedCodes() (litlen *[maxLitLenSyms]hcode, dist *[32]hcode) {
	fixedEncOnce.Do(func() {
		canonicalCodes(fixedLitLenLens(), fixedLitLenCode[:])
		canonicalCodes(fixedDistLens(), fixedDistCode[:])
	})
	return &fixedLitLenCode, &fixedDistCode
}
