// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Command tune searches parser configurations for the level presets. It
// benchmarks candidate configurations over the Silesia corpus and keeps
// the fastest configuration for each compression ratio slot.
package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/kr/pretty"
	"github.com/ulikunitz/flate"
	"github.com/ulikunitz/lz"
)

type preset struct {
	present bool
	cfg     flate.DeflatorConfig
	result  testing.BenchmarkResult
}

// mbPerSec returns the Megabytes (1 000 000 bytes) per seconds that are
// processed.
func mbPerSec(r testing.BenchmarkResult) float64 {
	if v, ok := r.Extra["MB/s"]; ok {
		return v
	}
	if r.Bytes <= 0 || r.T <= 0 || r.N <= 0 {
		return 0
	}
	return (float64(r.Bytes) * float64(r.N) / 1e6) / r.T.Seconds()
}

func ratio(r testing.BenchmarkResult) float64 {
	if x, ok := r.Extra["c/u"]; ok {
		return x
	}
	return math.NaN()
}

// Returns the slot index the ratio qualifies for. If no slot can be found ok
// will be false.
func slot(slots []float64, ratio float64) (i int, ok bool) {
	for i, r := range slots {
		if ratio > r {
			return i - 1, i > 0
		}
	}
	return len(slots) - 1, true
}

func disable(cfg *flate.DeflatorConfig) { cfg.Level = -1 }

func disabled(cfg *flate.DeflatorConfig) bool { return cfg.Level < 0 }

// worse reports whether configuration a cannot achieve a better ratio
// than b. Such configurations can be dropped once b misses all slots.
func worse(a, b *flate.DeflatorConfig) bool {
	if a == nil || b == nil || a == b {
		return false
	}
	switch x := a.Parser.(type) {
	case *lz.HSConfig:
		y, ok := b.Parser.(*lz.HSConfig)
		if !(ok && x.InputLen == y.InputLen) {
			return false
		}
		return x.HashBits <= y.HashBits
	case *lz.BHSConfig:
		y, ok := b.Parser.(*lz.BHSConfig)
		if !(ok && x.InputLen == y.InputLen) {
			return false
		}
		return x.HashBits <= y.HashBits
	case *lz.BDHSConfig:
		y, ok := b.Parser.(*lz.BDHSConfig)
		if !ok {
			return false
		}
		if !(x.H1cfg.InputLen == y.H1cfg.InputLen &&
			x.H2cfg.InputLen == y.H2cfg.InputLen) {
			return false
		}
		return x.H1cfg.HashBits <= y.H1cfg.HashBits &&
			x.H2cfg.HashBits <= y.H2cfg.HashBits
	case *lz.BUHSConfig:
		y, ok := b.Parser.(*lz.BUHSConfig)
		if !(ok && x.InputLen == y.InputLen) {
			return false
		}
		return x.HashBits <= y.HashBits && x.BucketSize <= y.BucketSize
	default:
		return false
	}
}

func findPresets(slots []float64, configs []flate.DeflatorConfig) {
	if len(slots) == 0 {
		log.Fatalf("no slots defined")
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i] > slots[j]
	})
	fmt.Printf("slots %.3f\n", slots)
	rand.Shuffle(len(configs), func(i, j int) {
		configs[i], configs[j] = configs[j], configs[i]
	})

	presets := make([]preset, len(slots))

	i := 0
	n := len(configs)
	for len(configs) > 0 {
		k := len(configs) - 1
		cfg := configs[k]
		configs = configs[:k]
		if disabled(&cfg) {
			continue
		}
		n--

		i++
		result := testing.Benchmark(writerBenchmark(cfg))
		fmt.Printf("%d-%d %s\n", i, n, result)
		si, ok := slot(slots, ratio(result))
		if !ok {
			for i := range configs {
				p := &configs[i]
				if disabled(p) {
					continue
				}
				if worse(p, &cfg) {
					disable(p)
					n--
				}
			}
			continue
		}
		v := mbPerSec(result)
		p := presets[si]
		if p.present && v <= mbPerSec(p.result) {
			fmt.Printf("slot %d - not faster\n", si+1)
			continue
		}
		presets[si] = preset{
			present: true,
			cfg:     cfg,
			result:  result,
		}
		fmt.Printf("slot %d - update\n", si+1)
		pretty.Println(cfg)
	}

	fmt.Printf("\n\n### Result ###\n\n")

	for si, p := range presets {
		if si > 0 {
			fmt.Printf("\n")
		}
		if !p.present {
			fmt.Printf("slot %d - not present\n", si)
			continue
		}
		fmt.Printf("slot %d - \t%.3f c/u\t%.2f MB/s\n",
			si+1, ratio(p.result), mbPerSec(p.result))
		pretty.Println(p.cfg)
	}
}

func makeConfig(parser lz.SeqConfig) flate.DeflatorConfig {
	cfg := flate.DeflatorConfig{Parser: parser}
	cfg.SetDefaults()
	return cfg
}

// tuneBufConfig matches the buffer geometry of the level presets so the
// benchmark results carry over.
func tuneBufConfig(blockSize int) lz.BufConfig {
	return lz.BufConfig{
		ShrinkSize: 1 << 16,
		BufferSize: 256 << 10,
		WindowSize: 1 << 15,
		BlockSize:  blockSize,
	}
}

func appendHSConfigs(x []flate.DeflatorConfig) (y []flate.DeflatorConfig) {
	y = x
	for hashBits := 4; hashBits <= 18; hashBits++ {
		for _, inputLen := range []int{3, 4, 5} {
			y = append(y, makeConfig(&lz.HSConfig{
				BufConfig: tuneBufConfig(128 << 10),
				HashConfig: lz.HashConfig{
					InputLen: inputLen,
					HashBits: hashBits,
				},
			}))
		}
	}
	return y
}

func appendBHSConfigs(x []flate.DeflatorConfig) (y []flate.DeflatorConfig) {
	y = x
	for hashBits := 4; hashBits <= 18; hashBits++ {
		for _, inputLen := range []int{3, 4, 5} {
			y = append(y, makeConfig(&lz.BHSConfig{
				BufConfig: tuneBufConfig(128 << 10),
				HashConfig: lz.HashConfig{
					InputLen: inputLen,
					HashBits: hashBits,
				},
			}))
		}
	}
	return y
}

func appendBUHSConfigs(x []flate.DeflatorConfig) (y []flate.DeflatorConfig) {
	y = x
	for hashBits := 10; hashBits <= 18; hashBits++ {
		for bucketSize := 4; bucketSize <= 30; bucketSize += 2 {
			for _, inputLen := range []int{4, 5, 6} {
				y = append(y, makeConfig(&lz.BUHSConfig{
					BufConfig: tuneBufConfig(64 << 10),
					BUHConfig: lz.BUHConfig{
						InputLen:   inputLen,
						HashBits:   hashBits,
						BucketSize: bucketSize,
					},
				}))
			}
		}
	}
	return y
}

func main() {
	testing.Init()
	configs := appendHSConfigs(nil)
	configs = appendBHSConfigs(configs)
	configs = appendBUHSConfigs(configs)

	slots := []float64{0.44, 0.42, 0.40, 0.38,
		0.37, 0.36, 0.35, 0.34, 0.33}
	findPresets(slots, configs)
}
