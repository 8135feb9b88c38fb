package gacha

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"unicode/utf16"
)

// RandomSource abstract
type RandomSource interface {
	Float64() float64 // [0, 1)
}

// NewRNG picks the generator from the seed alone: a non-empty seed gives a
// reproducible mulberry32 stream, an empty seed gives the crypto source.
func NewRNG(seed string) RandomSource {
	if seed == "" {
		return cryptoRNG{}
	}
	return newMulberry32(HashSeed(seed))
}

// crypto random : used whenever no seed is configured
type cryptoRNG struct{}

// Float64 maps a uniform 32-bit word to (word+1)/(2^32+1), which never returns 0 or 1.
func (cryptoRNG) Float64() float64 {
	var buf [4]byte
	var word uint32
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		word = rand.Uint32()
	} else {
		word = binary.LittleEndian.Uint32(buf[:])
	}
	return (float64(word) + 1) / (1<<32 + 1)
}

// HashSeed is djb2 over the UTF-16 code units of seed, modulo 2^32.
func HashSeed(seed string) uint32 {
	h := uint32(5381)
	for _, c := range utf16.Encode([]rune(seed)) {
		h = h*33 + uint32(c)
	}
	return h
}

// mulberry32 is a 32-bit state PRNG; same seed, same sequence.
type mulberry32 struct{ state uint32 }

func newMulberry32(seed uint32) *mulberry32 { return &mulberry32{state: seed} }

func (m *mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / (1 << 32)
}

type lockedRNG struct {
	mu  sync.Mutex
	src RandomSource
}

// Synchronized wraps src so it can be shared by concurrent callers.
func Synchronized(src RandomSource) RandomSource {
	if _, ok := src.(cryptoRNG); ok {
		return src
	}
	return &lockedRNG{src: src}
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
