// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package tuning

import (
	"bytes"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/ulikunitz/flate"
	"github.com/ulikunitz/zdata"
)

func TestSilesia(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping corpus test in short mode")
	}

	configs := []struct {
		name string
		cfg  flate.DeflatorConfig
	}{
		{"stored", flate.Preset(0)},
		{"fast", flate.Preset(1)},
		{"default", flate.DeflatorConfig{}},
		{"trailer", flate.DeflatorConfig{Level: 5, Trailer: true}},
	}

	files, err := Files(zdata.Silesia)
	if err != nil {
		t.Fatalf("Files(zdata.Silesia) error %s", err)
	}

	for _, c := range configs {
		c := c
		for _, f := range files {
			f := f
			t.Run(c.name+":"+f.Name, func(t *testing.T) {
				s := sha256.Sum256(f.Data)
				hsum := s[:]

				buf := new(bytes.Buffer)
				w, err := flate.NewWriterConfig(buf, c.cfg)
				if err != nil {
					t.Fatalf("NewWriterConfig error %s", err)
				}
				_, err = io.Copy(w, bytes.NewReader(f.Data))
				if err != nil {
					t.Fatalf("%s: io.Copy compression error %s",
						f.Name, err)
				}
				if err = w.Close(); err != nil {
					t.Fatalf("%s: w.Close() error %s",
						f.Name, err)
				}

				h := sha256.New()
				r, err := flate.NewReaderConfig(buf,
					flate.InflatorConfig{Trailer: c.cfg.Trailer})
				if err != nil {
					t.Fatalf("%s: NewReaderConfig error %s",
						f.Name, err)
				}
				_, err = io.Copy(h, r)
				if err != nil {
					t.Fatalf("%s: io.Copy decompression error %s",
						f.Name, err)
				}
				gsum := h.Sum(nil)
				if !bytes.Equal(gsum, hsum) {
					t.Errorf("%s: got %x; want %x",
						f.Name, gsum, hsum)
				}
			})
		}
	}
}

func TestCompressSize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping corpus test in short mode")
	}
	files, err := Files(zdata.Silesia)
	if err != nil {
		t.Fatalf("Files(zdata.Silesia) error %s", err)
	}
	n, err := Compress(files, flate.DeflatorConfig{})
	if err != nil {
		t.Fatalf("Compress error %s", err)
	}
	if size := Size(files); n >= size {
		t.Errorf("compressed size %d not smaller than input size %d",
			n, size)
	}
}
