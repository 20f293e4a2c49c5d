// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/adler32"

	"github.com/ulikunitz/lz"
)

// DefaultLevel is the compression level used when the configuration
// doesn't request one.
const DefaultLevel = 6

// DeflatorConfig provides the parameters for a Deflator.
type DeflatorConfig struct {
	// Level selects a parser preset from 1 (fastest) to 9 (best
	// compression). The zero value selects DefaultLevel.
	Level int

	// Stored disables match finding and Huffman coding; the stream
	// consists of stored blocks only.
	Stored bool

	// Parser overrides the preset sequencer configuration for the
	// level. Matches beyond a 32 KiB window are encoded as literals, so
	// the window size should not exceed 32 KiB.
	Parser lz.SeqConfig

	// Dictionary preloads the match window.
	Dictionary []byte

	// Trailer appends the big-endian Adler-32 checksum of the
	// uncompressed data after the final block.
	Trailer bool

	// BlockSize limits the number of uncompressed bytes covered by a
	// single block. (default: 32768)
	BlockSize int
}

// Preset returns a configuration for a compression level. Level 0 encodes
// in stored blocks only; 1 to 9 trade speed for compression.
func Preset(n int) DeflatorConfig {
	if !(0 <= n && n <= 9) {
		panic(errors.New("flate: preset must be in range [0..9]"))
	}
	if n == 0 {
		return DeflatorConfig{Stored: true}
	}
	return DeflatorConfig{Level: n}
}

// presetBufConfig returns the buffer configuration shared by the preset
// sequencers. The shrink size must be at least as large as the span of
// one pending block, otherwise the bytes of a stored block may no longer
// be in the buffer when it is emitted.
func presetBufConfig(bufferSize int) lz.BufConfig {
	return lz.BufConfig{
		ShrinkSize: 1 << 16,
		BufferSize: bufferSize,
		WindowSize: winSize,
		BlockSize:  128 << 10,
	}
}

// presetParsers contains the sequencer configurations for the levels 1
// to 9. Don't use directly to prevent modification.
var presetParsers = []func() lz.SeqConfig{
	0: func() lz.SeqConfig {
		return &lz.HSConfig{
			BufConfig:  presetBufConfig(256 << 10),
			HashConfig: lz.HashConfig{InputLen: 4, HashBits: 12},
		}
	},
	1: func() lz.SeqConfig {
		return &lz.HSConfig{
			BufConfig:  presetBufConfig(256 << 10),
			HashConfig: lz.HashConfig{InputLen: 4, HashBits: 14},
		}
	},
	2: func() lz.SeqConfig {
		return &lz.BHSConfig{
			BufConfig:  presetBufConfig(256 << 10),
			HashConfig: lz.HashConfig{InputLen: 4, HashBits: 15},
		}
	},
	3: func() lz.SeqConfig {
		return &lz.BDHSConfig{
			BufConfig: presetBufConfig(256 << 10),
			DHConfig: lz.DHConfig{
				H1cfg: lz.HashConfig{InputLen: 4, HashBits: 15},
				H2cfg: lz.HashConfig{InputLen: 6, HashBits: 10},
			},
		}
	},
	4: func() lz.SeqConfig {
		return &lz.BUHSConfig{
			BufConfig: presetBufConfig(256 << 10),
			BUHConfig: lz.BUHConfig{
				InputLen:   5,
				HashBits:   14,
				BucketSize: 14,
			},
		}
	},
	5: func() lz.SeqConfig {
		return &lz.BUHSConfig{
			BufConfig: presetBufConfig(256 << 10),
			BUHConfig: lz.BUHConfig{
				InputLen:   5,
				HashBits:   16,
				BucketSize: 16,
			},
		}
	},
	6: func() lz.SeqConfig {
		return &lz.BUHSConfig{
			BufConfig: presetBufConfig(256 << 10),
			BUHConfig: lz.BUHConfig{
				InputLen:   6,
				HashBits:   18,
				BucketSize: 18,
			},
		}
	},
	7: func() lz.SeqConfig {
		return &lz.OSASConfig{
			BufConfig:   presetBufConfig(64 << 10),
			MinMatchLen: minMatchLen,
			MaxMatchLen: maxMatchLen,
		}
	},
	8: func() lz.SeqConfig {
		return &lz.OSASConfig{
			BufConfig:   presetBufConfig(256 << 10),
			MinMatchLen: minMatchLen,
			MaxMatchLen: maxMatchLen,
		}
	},
}

// SetDefaults replaces zero values by default values.
func (cfg *DeflatorConfig) SetDefaults() {
	if cfg.Level == 0 {
		cfg.Level = DefaultLevel
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = 1 << 15
	}
	if !cfg.Stored {
		if cfg.Parser == nil && 1 <= cfg.Level && cfg.Level <= 9 {
			cfg.Parser = presetParsers[cfg.Level-1]()
		}
		if cfg.Parser != nil {
			cfg.Parser.ApplyDefaults()
		}
	}
}

// Verify checks whether the configuration is consistent. Call SetDefaults
// first.
func (cfg *DeflatorConfig) Verify() error {
	if cfg == nil {
		return errors.New("flate: deflator configuration is nil")
	}
	if !(1 <= cfg.Level && cfg.Level <= 9) {
		return fmt.Errorf("flate: level %d out of range [1..9]",
			cfg.Level)
	}
	if !(1<<10 <= cfg.BlockSize && cfg.BlockSize <= 1<<15) {
		return fmt.Errorf("flate: block size %d out of range",
			cfg.BlockSize)
	}
	if !cfg.Stored {
		if cfg.Parser == nil {
			return errors.New("flate: parser configuration is nil")
		}
		if err := cfg.Parser.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// token encodes a literal byte or a length/distance pair.
type token uint32

const matchFlag token = 1 << 31

func literalToken(c byte) token { return token(c) }

func matchToken(length, dist int) token {
	return matchFlag | token(length-minMatchLen)<<16 | token(dist-1)
}

func (t token) isMatch() bool { return t&matchFlag != 0 }
func (t token) length() int   { return int(t>>16&0xff) + minMatchLen }
func (t token) dist() int     { return int(t&0x7fff) + 1 }
func (t token) literal() byte { return byte(t) }

// Deflator compresses a single stream into RFC 1951 block framing. The
// caller drives it with Process calls; the handle must not be shared
// between goroutines.
type Deflator struct {
	cfg DeflatorConfig

	seq lz.Sequencer
	blk lz.Block

	// data buffers the stream for the sequencer. Its capacity carries 7
	// spare bytes for the 64-bit reads of the match finders.
	data []byte
	// stream offset of data[0]
	off int64
	// number of sequenced bytes in data
	w int
	// history retained in front of w when the buffer shrinks
	keep int
	// sequencer block granularity
	seqBlockSize int

	bw  bitWriter
	chk hash.Hash32

	// bytes tokenized since the start of the stream
	pos int64
	// position of the first byte of the pending block
	blockStart int64
	tokens     []token
	litFreq    [maxLitLenSyms]uint32
	distFreq   [maxDistSyms]uint32

	litLens  [maxLitLenSyms]uint8
	distLens [maxDistSyms]uint8
	litHuff  [maxLitLenSyms]hcode
	distHuff [maxDistSyms]hcode

	// raw buffer for stored-only streams
	sbuf []byte

	// flushed suppresses repeated sync markers while no new input
	// has arrived
	flushed           bool
	finished          bool
	totalIn, totalOut int64
	err               error
}

// NewDeflator creates a compression handle for the given configuration.
func NewDeflator(cfg DeflatorConfig) (*Deflator, error) {
	cfg.SetDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	f := &Deflator{cfg: cfg, chk: adler32.New()}
	if !cfg.Stored {
		var err error
		if f.seq, err = cfg.Parser.NewSequencer(); err != nil {
			return nil, err
		}
		bc := cfg.Parser.BufferConfig()
		// The retained history must cover the match window and the
		// pending block span.
		f.keep = bc.WindowSize
		if f.keep < 1<<16 {
			f.keep = 1 << 16
		}
		if bc.ShrinkSize > f.keep {
			f.keep = bc.ShrinkSize
		}
		f.seqBlockSize = bc.BlockSize
		bufSize := bc.BufferSize
		if bufSize < f.keep+bc.BlockSize {
			bufSize = f.keep + bc.BlockSize
		}
		f.data = make([]byte, 0, bufSize+7)
		if err = f.preload(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// dictTail returns the window-sized tail of a dictionary.
func dictTail(p []byte) []byte {
	if len(p) > winSize {
		p = p[len(p)-winSize:]
	}
	return p
}

// preload seeds the buffer with the configured dictionary. The dictionary
// bytes are indexed by the sequencer but never tokenized.
func (f *Deflator) preload() error {
	d := dictTail(f.cfg.Dictionary)
	f.data = append(f.data[:0], d...)
	f.off = -int64(len(d))
	f.w = 0
	f.seq.Update(f.data, -1)
	for {
		if _, err := f.seq.Sequence(nil, 0); err != nil {
			if err == lz.ErrNoData {
				break
			}
			return err
		}
	}
	f.w = len(f.data)
	return nil
}

// Reset prepares the handle for a new stream with the same configuration.
func (f *Deflator) Reset() error {
	f.bw.reset()
	f.chk.Reset()
	f.pos = 0
	f.blockStart = 0
	f.tokens = f.tokens[:0]
	f.litFreq = [maxLitLenSyms]uint32{}
	f.distFreq = [maxDistSyms]uint32{}
	f.sbuf = f.sbuf[:0]
	f.flushed = false
	f.finished = false
	f.totalIn = 0
	f.totalOut = 0
	f.err = nil
	f.blk.Sequences = f.blk.Sequences[:0]
	f.blk.Literals = f.blk.Literals[:0]
	if f.seq != nil {
		return f.preload()
	}
	return nil
}

// Checksum returns the Adler-32 checksum of the data consumed so far.
func (f *Deflator) Checksum() uint32 { return f.chk.Sum32() }

// TotalIn returns the number of uncompressed bytes consumed.
func (f *Deflator) TotalIn() int64 { return f.totalIn }

// TotalOut returns the number of compressed bytes produced.
func (f *Deflator) TotalOut() int64 { return f.totalOut }

// Process compresses input into output. All of in is consumed unless the
// output view fills up. Encoding itself never produces data errors; only
// contract violations yield errors.
func (f *Deflator) Process(in, out []byte, flush FlushMode) (st Status, consumed, produced int, err error) {
	if f.err != nil {
		return Ok, 0, 0, f.err
	}
	produced = f.bw.read(out)
	f.totalOut += int64(produced)
	if f.finished {
		if len(in) > 0 {
			f.err = ErrStream
			return Ok, 0, produced, f.err
		}
		if f.bw.pending() > 0 {
			return OutputFull, 0, produced, nil
		}
		return StreamEnd, 0, produced, nil
	}
	if f.bw.pending() > 0 {
		return OutputFull, 0, produced, nil
	}

	defer func() {
		f.totalIn += int64(consumed)
	}()

	for consumed < len(in) {
		var k int
		if f.cfg.Stored {
			k = f.storedWrite(in[consumed:])
		} else {
			k = f.fill(in[consumed:])
		}
		f.chk.Write(in[consumed : consumed+k])
		consumed += k
		if k > 0 {
			f.flushed = false
		}
		if consumed < len(in) {
			// buffer full; encode to make room
			if err = f.encodePending(); err != nil {
				f.err = err
				return Ok, consumed, produced, f.err
			}
		}
		n := f.bw.read(out[produced:])
		produced += n
		f.totalOut += int64(n)
		if f.bw.pending() > 0 {
			return OutputFull, consumed, produced, nil
		}
	}

	switch flush {
	case NoFlush:
		return NeedMoreInput, consumed, produced, nil
	case SyncFlush:
		if !f.flushed {
			if err = f.syncFlush(); err != nil {
				f.err = err
				return Ok, consumed, produced, f.err
			}
			f.flushed = true
		}
	case Finish:
		if err = f.finishStream(); err != nil {
			f.err = err
			return Ok, consumed, produced, f.err
		}
		f.finished = true
	}
	n := f.bw.read(out[produced:])
	produced += n
	f.totalOut += int64(n)
	if f.bw.pending() > 0 {
		return OutputFull, consumed, produced, nil
	}
	if f.finished {
		return StreamEnd, consumed, produced, nil
	}
	return Ok, consumed, produced, nil
}

// storedWrite buffers raw bytes for a stored-only stream and emits full
// blocks as the buffer fills.
func (f *Deflator) storedWrite(p []byte) int {
	n := len(p)
	f.sbuf = append(f.sbuf, p...)
	for len(f.sbuf) >= f.cfg.BlockSize {
		f.writeStored(f.sbuf[:f.cfg.BlockSize], false)
		f.sbuf = f.sbuf[:copy(f.sbuf, f.sbuf[f.cfg.BlockSize:])]
	}
	return n
}

// fill copies input into the buffer, shrinking the buffer when it is
// full. It returns the number of bytes copied, which is zero if no room
// can be made before more data is sequenced.
func (f *Deflator) fill(p []byte) int {
	free := cap(f.data) - 7 - len(f.data)
	if free == 0 && f.w > f.keep {
		delta := f.w - f.keep
		n := copy(f.data, f.data[delta:])
		f.data = f.data[:n]
		f.off += int64(delta)
		f.w -= delta
		f.seq.Update(f.data, delta)
		free = cap(f.data) - 7 - len(f.data)
	}
	k := free
	if k > len(p) {
		k = len(p)
	}
	if k > 0 {
		f.data = append(f.data, p[:k]...)
		f.seq.Update(f.data, 0)
	}
	return k
}

// encodePending converts buffered data into tokens, emitting blocks
// whenever the pending span reaches the block size.
func (f *Deflator) encodePending() error {
	for {
		flags := 0
		if len(f.data)-f.w > f.seqBlockSize {
			// matches may still extend into the unsequenced data
			flags = lz.NoTrailingLiterals
		}
		n, err := f.seq.Sequence(&f.blk, flags)
		if err != nil {
			if err == lz.ErrNoData {
				return nil
			}
			return err
		}
		f.w += n
		f.tokenize()
	}
}

// tokenize translates the sequencer block into tokens. Matches that the
// block format cannot express are re-read from the buffer and emitted as
// literals.
func (f *Deflator) tokenize() {
	litIdx := 0
	for _, s := range f.blk.Sequences {
		for _, c := range f.blk.Literals[litIdx : litIdx+int(s.LitLen)] {
			f.addLiteral(c)
		}
		litIdx += int(s.LitLen)
		m, dist := int(s.MatchLen), int(s.Offset)
		if dist < 1 || dist > winSize {
			f.addRaw(m)
			continue
		}
		for m >= minMatchLen {
			u := m
			if u > maxMatchLen {
				u = maxMatchLen
				// don't leave a remainder below the
				// minimum match length
				if r := m - u; 0 < r && r < minMatchLen {
					u = m - minMatchLen
				}
			}
			f.addMatch(u, dist)
			m -= u
		}
		if m > 0 {
			f.addRaw(m)
		}
	}
	for _, c := range f.blk.Literals[litIdx:] {
		f.addLiteral(c)
	}
	f.blk.Sequences = f.blk.Sequences[:0]
	f.blk.Literals = f.blk.Literals[:0]
}

func (f *Deflator) addLiteral(c byte) {
	f.tokens = append(f.tokens, literalToken(c))
	f.litFreq[c]++
	f.pos++
	f.maybeEmit()
}

func (f *Deflator) addMatch(length, dist int) {
	f.tokens = append(f.tokens, matchToken(length, dist))
	f.litFreq[lengthCode(length)]++
	f.distFreq[distCode(dist)]++
	f.pos += int64(length)
	f.maybeEmit()
}

// addRaw emits the next n buffered bytes as literal tokens.
func (f *Deflator) addRaw(n int) {
	i := int(f.pos - f.off)
	for _, c := range f.data[i : i+n] {
		f.addLiteral(c)
	}
}

func (f *Deflator) maybeEmit() {
	if f.pos-f.blockStart >= int64(f.cfg.BlockSize) {
		f.emitBlock(false)
	}
}

// emitBlock writes the pending tokens as the cheapest of a stored, fixed
// or dynamic block and resets the pending state.
func (f *Deflator) emitBlock(final bool) {
	span := int(f.pos - f.blockStart)

	f.litFreq[eobSym]++
	buildLens(f.litFreq[:maxLitLenSyms-2], maxCodeBits, f.litLens[:maxLitLenSyms-2])
	f.litLens[286], f.litLens[287] = 0, 0
	if buildLens(f.distFreq[:], maxCodeBits, f.distLens[:]) == 0 {
		// a block without distance codes still needs a
		// well-formed distance tree
		f.distLens = [maxDistSyms]uint8{0: 1}
	}
	canonicalCodes(f.litLens[:], f.litHuff[:])
	canonicalCodes(f.distLens[:], f.distHuff[:])

	hlit := maxLitLenSyms - 2
	for hlit > 257 && f.litLens[hlit-1] == 0 {
		hlit--
	}
	hdist := maxDistSyms
	for hdist > 1 && f.distLens[hdist-1] == 0 {
		hdist--
	}
	var hdr dynamicHeader
	hdr.build(f.litLens[:hlit], f.distLens[:hdist])

	dynBits := hdr.bits + f.tokenCost(f.litLens[:], f.distLens[:])
	fixBits := f.tokenCost(fixedLitLenLens(), fixedDistLens())
	storedBits := 32 + 8*span + 7 // length fields, data, worst-case padding

	var raw []byte
	if storedBits < dynBits && storedBits < fixBits {
		i := int(f.blockStart - f.off)
		raw = f.data[i : i+span]
	}

	f.bw.writeBits(b2u(final), 1)
	switch {
	case raw != nil:
		f.bw.writeBits(0, 2)
		f.writeStoredBody(raw)
	case fixBits <= dynBits:
		fixLit, fixDist := fixedCodes()
		f.bw.writeBits(1, 2)
		f.writeTokens(fixLit[:], fixDist[:])
	default:
		f.bw.writeBits(2, 2)
		hdr.write(&f.bw)
		f.writeTokens(f.litHuff[:], f.distHuff[:])
	}

	f.tokens = f.tokens[:0]
	f.litFreq = [maxLitLenSyms]uint32{}
	f.distFreq = [maxDistSyms]uint32{}
	f.blockStart = f.pos
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// tokenCost returns the number of bits the pending tokens and the end of
// block symbol occupy under the given code lengths.
func (f *Deflator) tokenCost(litLens, distLens []uint8) int {
	bits := 0
	for _, t := range f.tokens {
		if !t.isMatch() {
			bits += int(litLens[t.literal()])
			continue
		}
		lc := lengthCode(t.length())
		bits += int(litLens[lc]) + int(lengthExtra[lc-257])
		dc := distCode(t.dist())
		bits += int(distLens[dc]) + int(distExtra[dc])
	}
	return bits + int(litLens[eobSym])
}

// writeTokens emits the pending tokens followed by the end of block
// symbol.
func (f *Deflator) writeTokens(lit, dist []hcode) {
	for _, t := range f.tokens {
		if !t.isMatch() {
			f.bw.writeCode(lit[t.literal()])
			continue
		}
		length := t.length()
		lc := lengthCode(length)
		f.bw.writeCode(lit[lc])
		if x := lengthExtra[lc-257]; x > 0 {
			f.bw.writeBits(uint32(length-int(lengthBase[lc-257])), x)
		}
		d := t.dist()
		dc := distCode(d)
		f.bw.writeCode(dist[dc])
		if x := distExtra[dc]; x > 0 {
			f.bw.writeBits(uint32(d-int(distBase[dc])), x)
		}
	}
	f.bw.writeCode(lit[eobSym])
}

// writeStored emits a complete stored block including the 3 header bits.
func (f *Deflator) writeStored(p []byte, final bool) {
	f.bw.writeBits(b2u(final), 1)
	f.bw.writeBits(0, 2)
	f.writeStoredBody(p)
}

func (f *Deflator) writeStoredBody(p []byte) {
	if len(p) > maxStoredLen {
		panic("flate: stored block too large")
	}
	f.bw.alignByte()
	n := uint32(len(p))
	f.bw.writeBits(n&0xffff, 16)
	f.bw.writeBits(^n&0xffff, 16)
	f.bw.writeBytes(p)
}

// syncFlush emits the pending tokens and terminates them with an empty
// stored block, leaving the output byte-aligned.
func (f *Deflator) syncFlush() error {
	if !f.cfg.Stored {
		if err := f.encodePending(); err != nil {
			return err
		}
		if len(f.tokens) > 0 {
			f.emitBlock(false)
		}
		f.writeStored(nil, false)
		return nil
	}
	if len(f.sbuf) > 0 {
		f.writeStored(f.sbuf, false)
		f.sbuf = f.sbuf[:0]
	}
	f.writeStored(nil, false)
	return nil
}

// finishStream emits everything pending, marks the last block as final
// and appends the checksum trailer if configured.
func (f *Deflator) finishStream() error {
	if f.cfg.Stored {
		f.writeStored(f.sbuf, true)
		f.sbuf = f.sbuf[:0]
	} else {
		if err := f.encodePending(); err != nil {
			return err
		}
		f.emitBlock(true)
	}
	if f.cfg.Trailer {
		f.bw.alignByte()
		var t [4]byte
		binary.BigEndian.PutUint32(t[:], f.chk.Sum32())
		f.bw.writeBytes(t[:])
	}
	f.bw.alignByte()
	return nil
}
