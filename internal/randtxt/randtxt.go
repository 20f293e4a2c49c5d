// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package randtxt provides a source of reproducible pseudo-random text.
// The word statistics follow a Zipf distribution, which makes the
// output compressible in a similar way as natural language.
package randtxt

import "math/rand"

var words = []string{
	"the", "of", "and", "to", "in", "a", "is", "that", "for", "it",
	"as", "was", "with", "be", "by", "on", "not", "he", "this", "are",
	"or", "his", "from", "at", "which", "but", "have", "an", "had",
	"they", "you", "were", "their", "one", "all", "we", "can", "her",
	"has", "there", "been", "if", "more", "when", "will", "would",
	"who", "so", "no", "said", "stream", "window", "block", "symbol",
	"length", "distance", "code", "buffer", "bit", "byte",
}

// Reader generates an endless stream of text. Read never returns an
// error.
type Reader struct {
	rnd  *rand.Rand
	zipf *rand.Zipf
	word []byte
	col  int
}

// NewReader creates a text reader. The same source seed reproduces the
// same text.
func NewReader(src rand.Source) *Reader {
	rnd := rand.New(src)
	return &Reader{
		rnd:  rnd,
		zipf: rand.NewZipf(rnd, 1.2, 1.0, uint64(len(words)-1)),
	}
}

func (r *Reader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if len(r.word) == 0 {
			w := words[r.zipf.Uint64()]
			sep := byte(' ')
			if r.col+len(w) > 72 {
				sep = '\n'
				r.col = 0
			}
			r.col += len(w) + 1
			r.word = append(r.word, w...)
			r.word = append(r.word, sep)
		}
		k := copy(p[n:], r.word)
		r.word = r.word[k:]
		n += k
	}
	return n, nil
}
