// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/kr/pretty"
	"github.com/ulikunitz/lz"

	"github.com/ulikunitz/flate/internal/randtxt"
)

// testText returns n bytes of reproducible compressible text.
func testText(n int) []byte {
	p := make([]byte, n)
	if _, err := io.ReadFull(randtxt.NewReader(rand.NewSource(41)), p); err != nil {
		panic(err)
	}
	return p
}

// deflate compresses p in one call.
func deflate(t *testing.T, cfg DeflatorConfig, p []byte) []byte {
	t.Helper()
	f, err := NewDeflator(cfg)
	if err != nil {
		t.Fatalf("NewDeflator error %s", err)
	}
	out := make([]byte, len(p)+len(p)>>1+1024)
	st, consumed, produced, err := f.Process(p, out, Finish)
	if err != nil {
		t.Fatalf("Process error %s", err)
	}
	if st != StreamEnd {
		t.Fatalf("Process returned status %s; want %s", st, StreamEnd)
	}
	if consumed != len(p) {
		t.Fatalf("Process consumed %d bytes; want %d", consumed, len(p))
	}
	return out[:produced]
}

// roundTrip compresses and decompresses p and compares the result.
func roundTrip(t *testing.T, cfg DeflatorConfig, p []byte) []byte {
	t.Helper()
	z := deflate(t, cfg, p)
	data, err := inflate(t, InflatorConfig{Trailer: cfg.Trailer}, z)
	if err != nil {
		t.Fatalf("inflate error %s", err)
	}
	if !bytes.Equal(data, p) {
		t.Fatalf("round trip decoded %d bytes; want %d",
			len(data), len(p))
	}
	return z
}

func TestDeflateConfigDefaults(t *testing.T) {
	var cfg DeflatorConfig
	cfg.SetDefaults()
	if err := cfg.Verify(); err != nil {
		t.Fatalf("Verify error %s for %s", err, pretty.Sprint(cfg))
	}
	if cfg.Level != DefaultLevel {
		t.Errorf("default level is %d; want %d", cfg.Level,
			DefaultLevel)
	}
	if cfg.Parser == nil {
		t.Errorf("default parser is nil; config %s",
			pretty.Sprint(cfg))
	}
	bc := cfg.Parser.BufferConfig()
	if bc.WindowSize != winSize {
		t.Errorf("parser window size is %d; want %d",
			bc.WindowSize, winSize)
	}
}

func TestDeflateConfigErrors(t *testing.T) {
	tests := []DeflatorConfig{
		{Level: 10},
		{Level: -1},
		{BlockSize: 100},
		{BlockSize: 1 << 20},
	}
	for _, cfg := range tests {
		cfg := cfg
		cfg.SetDefaults()
		if err := cfg.Verify(); err == nil {
			t.Errorf("Verify accepts %s", pretty.Sprint(cfg))
		}
	}
}

func TestPresetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Preset(10) didn't panic")
		}
	}()
	Preset(10)
}

func TestDeflateStoredOnly(t *testing.T) {
	p := []byte("hello, stored world")
	z := deflate(t, Preset(0), p)

	// single final stored block
	want := []byte{0x01, byte(len(p)), 0x00, ^byte(len(p)), 0xff}
	want = append(want, p...)
	if !bytes.Equal(z, want) {
		t.Fatalf("stored stream is %x; want %x", z, want)
	}
}

func TestDeflateStoredOnlyLarge(t *testing.T) {
	p := bytes.Repeat([]byte{0x5a}, 100000)
	z := roundTrip(t, Preset(0), p)
	// stored blocks cannot compress
	if len(z) < len(p) {
		t.Fatalf("stored stream has %d bytes for %d input bytes",
			len(z), len(p))
	}
}

func TestDeflateEmpty(t *testing.T) {
	z := roundTrip(t, DeflatorConfig{}, nil)
	if len(z) == 0 {
		t.Fatalf("empty stream has no bytes")
	}
}

func TestDeflateOverlap(t *testing.T) {
	roundTrip(t, DeflatorConfig{}, bytes.Repeat([]byte("a"), 12))
}

func TestDeflateLevels(t *testing.T) {
	p := testText(100000)
	sizes := make(map[int]int, 10)
	for level := 0; level <= 9; level++ {
		z := roundTrip(t, Preset(level), p)
		sizes[level] = len(z)
		t.Logf("level %d: %d bytes", level, len(z))
	}
	if sizes[9] >= sizes[0] {
		t.Errorf("level 9 size %d not smaller than stored size %d",
			sizes[9], sizes[0])
	}
}

func TestDeflateTrailer(t *testing.T) {
	p := []byte("check me")
	z := roundTrip(t, DeflatorConfig{Trailer: true}, p)

	// flip one bit in the trailer
	z[len(z)-1] ^= 0x40
	_, err := inflate(t, InflatorConfig{Trailer: true}, z)
	if !errors.Is(err, &DataError{Kind: ChecksumMismatch}) {
		t.Fatalf("inflate returned %v; want %s", err, ChecksumMismatch)
	}
}

func TestDeflateSyncFlush(t *testing.T) {
	f, err := NewDeflator(DeflatorConfig{})
	if err != nil {
		t.Fatalf("NewDeflator error %s", err)
	}
	out := make([]byte, 1024)
	p := []byte("flush after me")
	st, consumed, produced, err := f.Process(p, out, SyncFlush)
	if err != nil {
		t.Fatalf("Process error %s", err)
	}
	if st != Ok {
		t.Fatalf("Process returned status %s; want %s", st, Ok)
	}
	if consumed != len(p) {
		t.Fatalf("Process consumed %d bytes; want %d", consumed, len(p))
	}
	marker := []byte{0x00, 0x00, 0xff, 0xff}
	if !bytes.HasSuffix(out[:produced], marker) {
		t.Fatalf("flushed stream %x doesn't end with %x",
			out[:produced], marker)
	}

	// all data must be decodable without the final block
	g, err := NewInflator(InflatorConfig{})
	if err != nil {
		t.Fatalf("NewInflator error %s", err)
	}
	dec := make([]byte, 1024)
	st, _, n, err := g.Process(out[:produced], dec, NoFlush)
	if err != nil {
		t.Fatalf("inflate error %s", err)
	}
	if st != NeedMoreInput {
		t.Fatalf("inflate returned status %s; want %s",
			st, NeedMoreInput)
	}
	if !bytes.Equal(dec[:n], p) {
		t.Fatalf("decoded %q; want %q", dec[:n], p)
	}

	// the stream must still terminate correctly
	st, _, produced, err = f.Process(nil, out, Finish)
	if err != nil {
		t.Fatalf("Finish error %s", err)
	}
	if st != StreamEnd {
		t.Fatalf("Finish returned status %s; want %s", st, StreamEnd)
	}
	var n2 int
	st, _, n2, err = g.Process(out[:produced], dec[n:], Finish)
	if err != nil {
		t.Fatalf("inflate of tail error %s", err)
	}
	if st != StreamEnd {
		t.Fatalf("inflate returned status %s; want %s", st, StreamEnd)
	}
	if n2 != 0 {
		t.Fatalf("final block decoded %d bytes; want 0", n2)
	}
}

func TestDeflateWriteAfterFinish(t *testing.T) {
	f, err := NewDeflator(DeflatorConfig{})
	if err != nil {
		t.Fatalf("NewDeflator error %s", err)
	}
	out := make([]byte, 1024)
	if _, _, _, err = f.Process([]byte("x"), out, Finish); err != nil {
		t.Fatalf("Process error %s", err)
	}
	if _, _, _, err = f.Process([]byte("y"), out, NoFlush); err != ErrStream {
		t.Fatalf("Process after Finish returned %v; want %v",
			err, ErrStream)
	}
}

func TestDeflatorReset(t *testing.T) {
	f, err := NewDeflator(DeflatorConfig{Level: 2})
	if err != nil {
		t.Fatalf("NewDeflator error %s", err)
	}
	p := testText(10000)
	out := make([]byte, 20000)
	_, _, n1, err := f.Process(p, out, Finish)
	if err != nil {
		t.Fatalf("Process error %s", err)
	}
	z1 := append([]byte(nil), out[:n1]...)

	if err = f.Reset(); err != nil {
		t.Fatalf("Reset error %s", err)
	}
	_, _, n2, err := f.Process(p, out, Finish)
	if err != nil {
		t.Fatalf("Process after Reset error %s", err)
	}
	if !bytes.Equal(z1, out[:n2]) {
		t.Fatalf("stream differs after Reset")
	}
	data, err := inflate(t, InflatorConfig{}, z1)
	if err != nil {
		t.Fatalf("inflate error %s", err)
	}
	if !bytes.Equal(data, p) {
		t.Fatalf("round trip after Reset failed")
	}
}

func TestDeflateDictionary(t *testing.T) {
	dict := []byte("the quick brown fox jumps over the lazy dog")
	p := bytes.Repeat(dict, 10)

	z := deflate(t, DeflatorConfig{Dictionary: dict}, p)
	data, err := inflate(t, InflatorConfig{Dictionary: dict}, z)
	if err != nil {
		t.Fatalf("inflate error %s", err)
	}
	if !bytes.Equal(data, p) {
		t.Fatalf("dictionary round trip failed")
	}
	zp := deflate(t, DeflatorConfig{}, p)
	if len(z) > len(zp) {
		t.Errorf("dictionary stream %d bytes; plain stream %d bytes",
			len(z), len(zp))
	}
}

func TestDeflateLargeInput(t *testing.T) {
	// larger than the sequencer buffer of every preset, so the buffer
	// must shrink and keep the window intact
	p := testText(1 << 20)
	for _, level := range []int{1, 4, 6, 8} {
		roundTrip(t, Preset(level), p)
	}
}

func TestDeflateCustomParser(t *testing.T) {
	// a parser window larger than 32 KiB forces the encoder to fall
	// back to literals for far matches
	cfg := DeflatorConfig{
		Parser: &lz.HSConfig{
			HashConfig: lz.HashConfig{InputLen: 3, HashBits: 10},
		},
	}
	p := testText(200000)
	roundTrip(t, cfg, p)
}

func TestWriteStoredBodyLimit(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("writeStoredBody accepted an oversized block")
		}
	}()
	var f Deflator
	f.writeStoredBody(make([]byte, maxStoredLen+1))
}

func TestDeflateTokenEncoding(t *testing.T) {
	tests := []struct {
		length, dist int
	}{
		{3, 1}, {11, 1}, {258, 32768}, {100, 5000}, {4, 2},
	}
	for _, tc := range tests {
		tok := matchToken(tc.length, tc.dist)
		if !tok.isMatch() {
			t.Errorf("matchToken(%d, %d) not a match",
				tc.length, tc.dist)
		}
		if tok.length() != tc.length {
			t.Errorf("token length is %d; want %d",
				tok.length(), tc.length)
		}
		if tok.dist() != tc.dist {
			t.Errorf("token dist is %d; want %d",
				tok.dist(), tc.dist)
		}
	}
	lit := literalToken(0xfe)
	if lit.isMatch() || lit.literal() != 0xfe {
		t.Errorf("literal token broken: %x", uint32(lit))
	}
}
