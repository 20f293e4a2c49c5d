// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

// Limits defined by RFC 1951. Huffman codes never exceed 15 bits, matches
// cover 3 to 258 bytes and distances reach back at most 32 KiB.
const (
	maxCodeBits = 15

	minMatchLen = 3
	maxMatchLen = 258

	winSize = 1 << 15

	// symbol counts of the three alphabets
	maxLitLenSyms  = 288
	maxDistSyms    = 30
	maxCodeLenSyms = 19

	eobSym = 256

	// maximum payload of a stored block
	maxStoredLen = 1<<16 - 1
)

// lengthBase and lengthExtra describe the length codes 257 to 285. The base
// is the smallest match length of the code, the extra value the number of
// raw bits following the code.
var lengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtra = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// distBase and distExtra describe the 30 distance codes.
var distBase = [30]uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
	8193, 12289, 16385, 24577,
}

var distExtra = [30]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// codeLenOrder is the permutation in which the code lengths of the
// code-length alphabet are transmitted in a dynamic block header.
var codeLenOrder = [19]uint8{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// lengthCodes maps a match length minus 3 to its length code minus 257.
var lengthCodes [256]uint8

// distCodes maps an offset (distance minus 1) below 256 to its distance
// code. Larger distances are mapped through distCode.
var distCodes [256]uint8

func init() {
	for c := 0; c < len(lengthBase); c++ {
		for l := int(lengthBase[c]); l <= 258; l++ {
			lengthCodes[l-3] = uint8(c)
		}
	}
	// force the dedicated code for length 258
	lengthCodes[258-3] = 28
	for c := 0; c < len(distBase); c++ {
		for off := int(distBase[c]) - 1; off < 256; off++ {
			distCodes[off] = uint8(c)
		}
	}
}

// lengthCode returns the length code for a match length in [3,258].
func lengthCode(length int) uint32 {
	return uint32(lengthCodes[length-3]) + 257
}

// distCode returns the distance code for a distance in [1,32768].
func distCode(dist int) uint32 {
	off := dist - 1
	if off < 256 {
		return uint32(distCodes[off])
	}
	return uint32(distCodes[off>>7]) + 14
}

// fixedLitLenLens returns the code lengths of the fixed literal/length tree.
func fixedLitLenLens() []uint8 {
	p := make([]uint8, maxLitLenSyms)
	for i := range p {
		switch {
		case i < 144:
			p[i] = 8
		case i < 256:
			p[i] = 9
		case i < 280:
			p[i] = 7
		default:
			p[i] = 8
		}
	}
	return p
}

// fixedDistLens returns the code lengths of the fixed distance tree. The
// tree covers 32 symbols of which the last two are invalid.
func fixedDistLens() []uint8 {
	p := make([]uint8, 32)
	for i := range p {
		p[i] = 5
	}
	return p
}
