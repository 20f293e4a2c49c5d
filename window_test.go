// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"bytes"
	"testing"
)

func TestWindowWriteRead(t *testing.T) {
	var w window
	w.init()
	for _, c := range []byte("hello") {
		w.writeByte(c)
	}
	if n := w.buffered(); n != 5 {
		t.Fatalf("buffered returns %d; want 5", n)
	}
	p := make([]byte, 8)
	n := w.read(p)
	if n != 5 {
		t.Fatalf("read returns %d; want 5", n)
	}
	if string(p[:5]) != "hello" {
		t.Fatalf("read %q; want %q", p[:5], "hello")
	}
	if w.buffered() != 0 {
		t.Fatalf("buffered not zero after drain")
	}
}

func TestWindowCopyMatchOverlap(t *testing.T) {
	var w window
	w.init()
	w.writeByte('a')
	w.copyMatch(1, 11)
	p := make([]byte, 16)
	n := w.read(p)
	want := bytes.Repeat([]byte("a"), 12)
	if !bytes.Equal(p[:n], want) {
		t.Fatalf("read %q; want %q", p[:n], want)
	}
}

func TestWindowWrapAround(t *testing.T) {
	var w window
	w.init()
	p := make([]byte, 1024)

	written := 0
	for written < 3*len(w.data) {
		k := w.available()
		if k > 256 {
			k = 256
		}
		for i := 0; i < k; i++ {
			w.writeByte(byte(written))
			written++
		}
		for w.buffered() > 0 {
			n := w.read(p)
			for i := 0; i < n; i++ {
				if p[i] != byte(written-w.buffered()-n+i) {
					t.Fatalf("byte %d wrong after wrap",
						written-n+i)
				}
			}
		}
	}
	if w.total != int64(written) {
		t.Fatalf("total is %d; want %d", w.total, written)
	}
}

func TestWindowHistAfterDictionary(t *testing.T) {
	var w window
	w.init()
	dict := bytes.Repeat([]byte("abc"), 20000)
	if err := w.setDictionary(dict); err != nil {
		t.Fatalf("setDictionary error %s", err)
	}
	if w.hist != winSize {
		t.Fatalf("hist is %d; want %d", w.hist, winSize)
	}
	if w.buffered() != 0 {
		t.Fatalf("dictionary counts as buffered output")
	}
	// the last dictionary byte is reachable with distance 1
	w.copyMatch(1, 1)
	p := make([]byte, 1)
	w.read(p)
	if p[0] != dict[len(dict)-1] {
		t.Fatalf("copied %q; want %q", p[0], dict[len(dict)-1])
	}

	w.writeByte('x')
	if err := w.setDictionary(dict); err == nil {
		t.Fatalf("setDictionary after output succeeded")
	}
}
