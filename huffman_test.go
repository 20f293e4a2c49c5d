// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import "testing"

// TestCanonicalExample checks the code assignment for the example of RFC
// 1951 section 3.2.2: the lengths {3,3,3,3,3,2,4,4} yield the codes
// 010, 011, 100, 101, 110, 00, 1110, 1111.
func TestCanonicalExample(t *testing.T) {
	lens := []uint8{3, 3, 3, 3, 3, 2, 4, 4}
	wantCodes := []uint32{2, 3, 4, 5, 6, 0, 14, 15}

	var codes [8]hcode
	canonicalCodes(lens, codes[:])
	for sym, want := range wantCodes {
		c := codes[sym]
		if c.len != lens[sym] {
			t.Errorf("symbol %d has len %d; want %d",
				sym, c.len, lens[sym])
		}
		if got := reverseBits(uint32(c.code), c.len); got != want {
			t.Errorf("symbol %d has code %b; want %b",
				sym, got, want)
		}
	}

	var table huffTable
	if k := table.build(lens, kindCodeLen); k != 0 {
		t.Fatalf("build returned %s", k)
	}
	for sym := range lens {
		// decode table indexes are bit-reversed codes
		i := uint32(codes[sym].code)
		e := table.entries[i]
		if e.op != opLiteral || int(e.val) != sym {
			t.Errorf("entry %#x decodes to %d; want %d",
				i, e.val, sym)
		}
		if e.bits != lens[sym] {
			t.Errorf("entry %#x has bits %d; want %d",
				i, e.bits, lens[sym])
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		lens []uint8
		kind Kind
	}{
		{"oversubscribed", []uint8{1, 1, 1}, CodeOverSubscribed},
		{"oversubscribed-deep", []uint8{2, 2, 2, 2, 1}, CodeOverSubscribed},
		{"incomplete", []uint8{2, 2, 2}, CodeIncomplete},
		{"incomplete-single", []uint8{0, 2}, CodeIncomplete},
		{"complete", []uint8{2, 2, 2, 2}, 0},
		{"single", []uint8{0, 1, 0}, 0},
		{"empty", []uint8{0, 0, 0}, 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var table huffTable
			if k := table.build(tc.lens, kindCodeLen); k != tc.kind {
				t.Fatalf("build returned %v; want %v",
					k, tc.kind)
			}
		})
	}
}

func TestFixedTables(t *testing.T) {
	litlen, dist := fixedTables()
	if litlen.bits != 9 {
		t.Fatalf("fixed litlen table has %d bits; want 9", litlen.bits)
	}
	if dist.bits != 5 {
		t.Fatalf("fixed dist table has %d bits; want 5", dist.bits)
	}
	// symbol 0 has the 8-bit code 00110000; reversed 00001100
	e := litlen.entries[0x0c]
	if e.op != opLiteral || e.val != 0 || e.bits != 8 {
		t.Fatalf("entry for symbol 0 is %+v", e)
	}
	// end of block has the 7-bit code 0000000
	e = litlen.entries[0]
	if e.op != opEOB || e.bits != 7 {
		t.Fatalf("entry for end of block is %+v", e)
	}
	// distance symbol 4 has base 5 and 1 extra bit
	e = dist.entries[reverseBits(4, 5)]
	if e.op != opBase || e.val != 5 || e.xbits != 1 {
		t.Fatalf("entry for distance symbol 4 is %+v", e)
	}
}

// TestEncoderDecoderAgree builds decode tables from encoder-generated
// code lengths for a skewed frequency distribution.
func TestEncoderDecoderAgree(t *testing.T) {
	var freq [maxLitLenSyms]uint32
	for i := range freq {
		freq[i] = uint32(i % 7)
	}
	freq[eobSym] = 1
	var lens [maxLitLenSyms]uint8
	if n := buildLens(freq[:], maxCodeBits, lens[:]); n == 0 {
		t.Fatalf("buildLens found no used symbols")
	}
	var table huffTable
	if k := table.build(lens[:], kindLitLen); k != 0 {
		t.Fatalf("decoder rejects encoder lengths: %s", k)
	}

	var codes [maxLitLenSyms]hcode
	canonicalCodes(lens[:], codes[:])
	for sym, c := range codes {
		if c.len == 0 {
			continue
		}
		e := table.entries[uint32(c.code)&table.mask]
		if e.bits != c.len {
			t.Fatalf("symbol %d: decoder sees %d bits, encoder %d",
				sym, e.bits, c.len)
		}
	}
}

// TestBuildLensLimit verifies that the length limit is honored for a
// distribution that would otherwise produce very deep codes.
func TestBuildLensLimit(t *testing.T) {
	var freq [32]uint32
	f := uint32(1)
	for i := range freq {
		freq[i] = f
		if f < 1<<24 {
			f *= 2
		}
	}
	var lens [32]uint8
	buildLens(freq[:], 7, lens[:])

	var blCount [maxCodeBits + 1]int
	max, used := countLens(lens[:], &blCount)
	if used != len(freq) {
		t.Fatalf("%d symbols coded; want %d", used, len(freq))
	}
	if max > 7 {
		t.Fatalf("maximum code length %d exceeds limit 7", max)
	}
	if left := checkKraft(&blCount, max); left != 0 {
		t.Fatalf("length-limited code not complete; left %d", left)
	}
}

func TestRLECodeLens(t *testing.T) {
	lens := make([]uint8, 0, 300)
	for i := 0; i < 4; i++ {
		lens = append(lens, 8)
	}
	for i := 0; i < 150; i++ {
		lens = append(lens, 0)
	}
	lens = append(lens, 5, 5, 5, 5, 5, 5, 5, 5, 12)

	var freq [maxCodeLenSyms]uint32
	tokens := rleCodeLens(lens, &freq)

	// expand the tokens again
	var out []uint8
	for _, tok := range tokens {
		switch {
		case tok.sym < 16:
			out = append(out, uint8(tok.sym))
		case tok.sym == 16:
			last := out[len(out)-1]
			for i := 0; i < int(tok.arg)+3; i++ {
				out = append(out, last)
			}
		case tok.sym == 17:
			for i := 0; i < int(tok.arg)+3; i++ {
				out = append(out, 0)
			}
		default:
			for i := 0; i < int(tok.arg)+11; i++ {
				out = append(out, 0)
			}
		}
	}
	if len(out) != len(lens) {
		t.Fatalf("expansion has %d lengths; want %d",
			len(out), len(lens))
	}
	for i, l := range lens {
		if out[i] != l {
			t.Fatalf("expansion differs at %d: got %d; want %d",
				i, out[i], l)
		}
	}
	for sym, n := range freq {
		count := uint32(0)
		for _, tok := range tokens {
			if tok.sym == uint8(sym) {
				count++
			}
		}
		if count != n {
			t.Fatalf("frequency of symbol %d is %d; want %d",
				sym, n, count)
		}
	}
}
