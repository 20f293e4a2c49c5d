// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"encoding/binary"
	"errors"
	"hash"
	"hash/adler32"
)

// mode enumerates the states of the block state machine. Transitions are
// strictly forward except for the loop back to mBlockHeader after a
// non-final block; mDone and mErr are terminal.
type mode int

const (
	mBlockHeader mode = iota
	mStored
	mDynamic
	mSymbols
	mTrailer
	mDone
	mErr
)

// internal flow-control signals of the decode step functions
var (
	errNeedBits = errors.New("flate: need more bits")
	errWinFull  = errors.New("flate: window full")
)

// InflatorConfig configures an Inflator.
type InflatorConfig struct {
	// Dictionary preloads the back-reference window before decoding
	// starts, equivalent to calling SetDictionary once.
	Dictionary []byte

	// RequireDictionary makes Process report NeedDictionary until a
	// dictionary has been supplied. Raw DEFLATE streams cannot signal
	// a dictionary themselves; framings that can should set the flag.
	RequireDictionary bool

	// Trailer expects a big-endian Adler-32 checksum of the
	// decompressed data after the final block and verifies it.
	Trailer bool
}

// Verify checks the configuration for errors.
func (cfg *InflatorConfig) Verify() error {
	if cfg == nil {
		return errors.New("flate: inflator configuration is nil")
	}
	if cfg.RequireDictionary && cfg.Dictionary != nil {
		return errors.New(
			"flate: RequireDictionary with preset Dictionary")
	}
	return nil
}

// Inflator decompresses a single DEFLATE stream. The caller drives it by
// repeated Process calls; all state between calls lives in the handle. An
// Inflator must not be shared between goroutines.
type Inflator struct {
	cfg InflatorConfig

	br  bitReader
	win window
	chk hash.Hash32
	one [1]byte

	mode  mode
	final bool

	// stored block
	storedStep uint8
	storedLen  int
	storedN    int

	// dynamic header
	hdrStep           uint8
	hlit, hdist, hclen int
	clcIdx            int
	clcLens           [maxCodeLenSyms]uint8
	clcTable          huffTable
	lens              [maxLitLenSyms + 32]uint8
	lensIdx           int
	clSym             int

	// symbol decoding
	symStep   uint8
	matchLen  int
	matchDist int
	pendBase  int
	pendXbits uint8

	litlenT, distT huffTable
	litlen, dist   *huffTable

	trailerN int
	trailer  [4]byte

	dictSet           bool
	totalIn, totalOut int64
	err               error
}

// NewInflator creates a decompression handle.
func NewInflator(cfg InflatorConfig) (*Inflator, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	f := &Inflator{cfg: cfg, chk: adler32.New()}
	f.win.init()
	f.start()
	return f, nil
}

func (f *Inflator) start() {
	f.mode = mBlockHeader
	f.clSym = -1
	if f.cfg.Dictionary != nil {
		if err := f.win.setDictionary(f.cfg.Dictionary); err != nil {
			panic(err)
		}
		f.dictSet = true
	}
}

// Reset returns the handle to its initial state so it can decode another
// stream with the same configuration.
func (f *Inflator) Reset() {
	f.br.reset()
	f.win.reset()
	f.chk.Reset()
	f.final = false
	f.storedStep = 0
	f.hdrStep = 0
	f.symStep = 0
	f.trailerN = 0
	f.dictSet = false
	f.totalIn = 0
	f.totalOut = 0
	f.err = nil
	f.start()
}

// SetDictionary preloads the window with the tail of p. It is only legal
// before any stream data has been processed.
func (f *Inflator) SetDictionary(p []byte) error {
	if f.err != nil {
		return f.err
	}
	if err := f.win.setDictionary(p); err != nil {
		return err
	}
	f.dictSet = true
	return nil
}

// Checksum returns the Adler-32 checksum of the decompressed data so far.
func (f *Inflator) Checksum() uint32 { return f.chk.Sum32() }

// TotalIn returns the number of compressed bytes consumed.
func (f *Inflator) TotalIn() int64 { return f.totalIn }

// TotalOut returns the number of decompressed bytes produced.
func (f *Inflator) TotalOut() int64 { return f.totalOut }

// Process decompresses input into output. It consumes as much of in and
// fills as much of out as possible and reports through the status value
// which of the two buffers stopped it. The input and output views may
// differ from call to call; consumed bytes must not be supplied again.
//
// Corrupted streams yield a *DataError; the handle is unusable afterwards
// and every further call returns the same error.
func (f *Inflator) Process(in, out []byte, flush FlushMode) (st Status, consumed, produced int, err error) {
	if f.err != nil {
		return Ok, 0, 0, f.err
	}
	if f.cfg.RequireDictionary && !f.dictSet {
		return NeedDictionary, 0, 0, nil
	}
	f.br.window(in)
	defer func() {
		consumed = f.br.off
		f.totalIn += int64(consumed)
		f.totalOut += int64(produced)
	}()

	for {
		produced += f.win.read(out[produced:])
		if f.mode == mDone {
			if f.win.buffered() > 0 {
				return OutputFull, 0, produced, nil
			}
			return StreamEnd, 0, produced, nil
		}
		if f.win.buffered() > 0 && produced == len(out) {
			return OutputFull, 0, produced, nil
		}

		var serr error
		switch f.mode {
		case mBlockHeader:
			serr = f.readBlockHeader()
		case mStored:
			serr = f.readStored()
		case mDynamic:
			serr = f.readDynamicHeader()
		case mSymbols:
			serr = f.decodeSymbols()
		case mTrailer:
			serr = f.readTrailer()
		}

		switch serr {
		case nil:
			continue
		case errWinFull:
			if produced == len(out) {
				return OutputFull, 0, produced, nil
			}
		case errNeedBits:
			if flush == Finish {
				return Ok, 0, produced, f.fail(UnexpectedEOF)
			}
			return NeedMoreInput, 0, produced, nil
		default:
			return Ok, 0, produced, serr
		}
	}
}

// fail puts the handle into the terminal error state.
func (f *Inflator) fail(k Kind) error {
	f.mode = mErr
	f.err = &DataError{Kind: k, Offset: f.br.pos}
	return f.err
}

// writeByte stores one produced byte and updates the checksum.
func (f *Inflator) writeByte(c byte) {
	f.win.writeByte(c)
	f.one[0] = c
	f.chk.Write(f.one[:])
}

// copyMatch performs a back-reference copy and updates the checksum over
// the produced range.
func (f *Inflator) copyMatch(dist, n int) {
	start := f.win.w
	f.win.copyMatch(dist, n)
	d := f.win.data
	if start+n <= len(d) {
		f.chk.Write(d[start : start+n])
		return
	}
	f.chk.Write(d[start:])
	f.chk.Write(d[:start+n-len(d)])
}

// endBlock routes control after a completed block.
func (f *Inflator) endBlock() {
	if !f.final {
		f.mode = mBlockHeader
		return
	}
	if f.cfg.Trailer {
		f.br.alignByte()
		f.trailerN = 0
		f.mode = mTrailer
		return
	}
	f.finish()
}

// finish enters the terminal Done state and returns speculatively loaded
// bytes to the input.
func (f *Inflator) finish() {
	f.br.alignByte()
	f.br.unload()
	f.mode = mDone
}

// readBlockHeader reads the 3-bit block header: the final flag and the
// block type.
func (f *Inflator) readBlockHeader() error {
	v, ok := f.br.try(3)
	if !ok {
		return errNeedBits
	}
	f.final = v&1 != 0
	switch v >> 1 {
	case 0:
		f.br.alignByte()
		f.storedStep = 0
		f.mode = mStored
	case 1:
		f.litlen, f.dist = fixedTables()
		f.symStep = 0
		f.mode = mSymbols
	case 2:
		f.hdrStep = 0
		f.mode = mDynamic
	default:
		return f.fail(InvalidBlockType)
	}
	return nil
}

// readStored handles a stored block: the LEN/NLEN pair followed by LEN
// raw bytes.
func (f *Inflator) readStored() error {
	for {
		switch f.storedStep {
		case 0:
			v, ok := f.br.try(16)
			if !ok {
				return errNeedBits
			}
			f.storedLen = int(v)
			f.storedStep = 1
		case 1:
			v, ok := f.br.try(16)
			if !ok {
				return errNeedBits
			}
			if f.storedLen != int(^v&0xffff) {
				return f.fail(StoredLengthMismatch)
			}
			f.storedN = f.storedLen
			f.storedStep = 2
		case 2:
			for f.storedN > 0 {
				if f.win.available() == 0 {
					return errWinFull
				}
				v, ok := f.br.try(8)
				if !ok {
					return errNeedBits
				}
				f.writeByte(byte(v))
				f.storedN--
			}
			f.endBlock()
			return nil
		}
	}
}

// decodeSym resolves the next Huffman code using the flat decode table.
// The peek may be padded with absent bits; the entry is only trusted when
// its code length is covered by buffered bits.
func (f *Inflator) decodeSym(t *huffTable) (e hentry, err error) {
	b := &f.br
	for {
		b.load()
		e = t.entries[b.acc&t.mask]
		if e.op != opInvalid && e.bits <= b.n {
			b.drop(e.bits)
			return e, nil
		}
		if b.n >= t.bits {
			return hentry{}, f.fail(InvalidHuffmanCode)
		}
		if b.exhausted() {
			return hentry{}, errNeedBits
		}
	}
}

// allZero reports whether no symbol of lens has a code.
func allZero(lens []uint8) bool {
	for _, l := range lens {
		if l != 0 {
			return false
		}
	}
	return true
}

// readDynamicHeader decodes the HLIT/HDIST/HCLEN counts, the code-length
// tree and the literal/length and distance code lengths, then builds the
// decode tables for the block.
func (f *Inflator) readDynamicHeader() error {
	for {
		switch f.hdrStep {
		case 0:
			v, ok := f.br.try(14)
			if !ok {
				return errNeedBits
			}
			f.hlit = 257 + int(v&31)
			f.hdist = 1 + int(v>>5&31)
			f.hclen = 4 + int(v>>10&15)
			if f.hlit > 286 || f.hdist > 30 {
				return f.fail(TooManySymbols)
			}
			f.clcLens = [maxCodeLenSyms]uint8{}
			f.clcIdx = 0
			f.hdrStep = 1
		case 1:
			for f.clcIdx < f.hclen {
				v, ok := f.br.try(3)
				if !ok {
					return errNeedBits
				}
				f.clcLens[codeLenOrder[f.clcIdx]] = uint8(v)
				f.clcIdx++
			}
			if k := f.clcTable.build(f.clcLens[:], kindCodeLen); k != 0 {
				return f.fail(k)
			}
			f.lensIdx = 0
			f.clSym = -1
			f.hdrStep = 2
		case 2:
			total := f.hlit + f.hdist
			for f.lensIdx < total {
				if f.clSym < 0 {
					e, err := f.decodeSym(&f.clcTable)
					if err != nil {
						return err
					}
					if e.val < 16 {
						f.lens[f.lensIdx] = uint8(e.val)
						f.lensIdx++
						continue
					}
					f.clSym = int(e.val)
				}
				var xbits uint8
				var base int
				switch f.clSym {
				case 16:
					xbits, base = 2, 3
				case 17:
					xbits, base = 3, 3
				default:
					xbits, base = 7, 11
				}
				v, ok := f.br.try(xbits)
				if !ok {
					return errNeedBits
				}
				n := base + int(v)
				var c uint8
				if f.clSym == 16 {
					if f.lensIdx == 0 {
						return f.fail(RepeatBeforeLength)
					}
					c = f.lens[f.lensIdx-1]
				}
				if f.lensIdx+n > total {
					return f.fail(RepeatTooLong)
				}
				for i := 0; i < n; i++ {
					f.lens[f.lensIdx] = c
					f.lensIdx++
				}
				f.clSym = -1
			}
			if allZero(f.lens[:f.hlit]) {
				return f.fail(NoCodes)
			}
			if k := f.litlenT.build(f.lens[:f.hlit], kindLitLen); k != 0 {
				return f.fail(k)
			}
			if k := f.distT.build(f.lens[f.hlit:total], kindDist); k != 0 {
				return f.fail(k)
			}
			f.litlen, f.dist = &f.litlenT, &f.distT
			f.symStep = 0
			f.mode = mSymbols
			return nil
		}
	}
}

// decodeSymbols runs the literal/length and distance decode loop of a
// Huffman-coded block until the end-of-block symbol.
func (f *Inflator) decodeSymbols() error {
	for {
		switch f.symStep {
		case 0: // literal/length symbol
			if f.win.available() == 0 {
				return errWinFull
			}
			e, err := f.decodeSym(f.litlen)
			if err != nil {
				return err
			}
			switch e.op {
			case opLiteral:
				f.writeByte(byte(e.val))
			case opEOB:
				f.endBlock()
				return nil
			case opBase:
				f.pendBase = int(e.val)
				f.pendXbits = e.xbits
				f.symStep = 1
			default:
				return f.fail(InvalidHuffmanCode)
			}
		case 1: // extra length bits
			v, ok := f.br.try(f.pendXbits)
			if !ok {
				return errNeedBits
			}
			f.matchLen = f.pendBase + int(v)
			f.symStep = 2
		case 2: // distance symbol
			e, err := f.decodeSym(f.dist)
			if err != nil {
				return err
			}
			if e.op != opBase {
				return f.fail(InvalidHuffmanCode)
			}
			f.pendBase = int(e.val)
			f.pendXbits = e.xbits
			f.symStep = 3
		case 3: // extra distance bits
			v, ok := f.br.try(f.pendXbits)
			if !ok {
				return errNeedBits
			}
			f.matchDist = f.pendBase + int(v)
			if f.matchDist > f.win.hist {
				return f.fail(InvalidDistanceTooFarBack)
			}
			f.symStep = 4
		case 4: // back-reference copy, possibly in chunks
			n := f.matchLen
			a := f.win.available()
			if a == 0 {
				return errWinFull
			}
			if n > a {
				n = a
			}
			f.copyMatch(f.matchDist, n)
			f.matchLen -= n
			if f.matchLen == 0 {
				f.symStep = 0
			}
		}
	}
}

// readTrailer verifies the Adler-32 checksum following the final block.
func (f *Inflator) readTrailer() error {
	for f.trailerN < 4 {
		v, ok := f.br.try(8)
		if !ok {
			return errNeedBits
		}
		f.trailer[f.trailerN] = byte(v)
		f.trailerN++
	}
	if binary.BigEndian.Uint32(f.trailer[:]) != f.chk.Sum32() {
		return f.fail(ChecksumMismatch)
	}
	f.finish()
	return nil
}
