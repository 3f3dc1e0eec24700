// Package mnemonic implements the 25-word seed codec: base-1626 encoding
// of 24 data words plus one checksum word, with a pluggable Wordlist so
// any of the CryptoNote family's wordlists can be used. This package owns
// the encoding algorithm and ships one embedded wordlist (English) to
// exercise and test it; the real published wordlists plug in from outside.
package mnemonic

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/salvium/walletcore/internal/walleterr"
)

const (
	dataWords  = 24
	totalWords = 25
)

// Wordlist is the pluggable boundary utility: a fixed-size, ordered list
// of unique words plus the prefix length used for checksum computation.
type Wordlist interface {
	Name() string
	PrefixLength() int
	Words() []string
	IndexOf(word string) (int, bool)
}

// wordlist is the common Wordlist implementation; concrete lists (English)
// are built by listFromWords.
type wordlist struct {
	name         string
	prefixLength int
	words        []string
	index        map[string]int
}

func (w *wordlist) Name() string      { return w.name }
func (w *wordlist) PrefixLength() int { return w.prefixLength }
func (w *wordlist) Words() []string   { return w.words }
func (w *wordlist) IndexOf(word string) (int, bool) {
	i, ok := w.index[strings.ToLower(strings.TrimSpace(word))]
	return i, ok
}

func listFromWords(name string, prefixLength int, words []string) *wordlist {
	idx := make(map[string]int, len(words))
	for i, w := range words {
		idx[strings.ToLower(w)] = i
	}
	return &wordlist{name: name, prefixLength: prefixLength, words: words, index: idx}
}

// SeedToMnemonic encodes a 32-byte master secret as 25 words: each
// 4-byte little-endian group becomes 3 words via base-N wrap-around
// encoding (N = len(wl.Words()), 1626 for the standard lists), followed by
// a checksum word selected from the 24 data words.
func SeedToMnemonic(seed [32]byte, wl Wordlist) ([]string, error) {
	words := wl.Words()
	n := uint32(len(words))
	if n == 0 {
		return nil, walleterr.New(walleterr.InvalidInput, "empty wordlist")
	}

	out := make([]string, 0, totalWords)
	for i := 0; i < 32; i += 4 {
		v := uint32(seed[i]) | uint32(seed[i+1])<<8 | uint32(seed[i+2])<<16 | uint32(seed[i+3])<<24
		w1 := v % n
		w2 := (v/n + w1) % n
		w3 := (v/(n*n) + w2) % n
		out = append(out, words[w1], words[w2], words[w3])
	}

	idx := checksumIndex(out, wl.PrefixLength())
	out = append(out, out[idx])
	return out, nil
}

// MnemonicToSeed decodes a 25-word mnemonic back to the 32-byte seed,
// case-insensitively and tolerant of surrounding whitespace. It
// rejects a mnemonic whose checksum word doesn't match the recomputed one.
func MnemonicToSeed(words []string, wl Wordlist) ([32]byte, error) {
	var seed [32]byte
	if len(words) != totalWords {
		return seed, walleterr.Newf(walleterr.InvalidInput, "expected %d words, got %d", totalWords, len(words))
	}
	norm := make([]string, totalWords)
	for i, w := range words {
		norm[i] = strings.ToLower(strings.TrimSpace(w))
	}

	data := norm[:dataWords]
	idx := checksumIndex(data, wl.PrefixLength())
	if data[idx] != norm[dataWords] {
		return seed, walleterr.New(walleterr.ChecksumMismatch, "mnemonic checksum word does not match")
	}

	n := uint32(len(wl.Words()))
	for g := 0; g < 8; g++ {
		w1, ok1 := wl.IndexOf(data[g*3])
		w2, ok2 := wl.IndexOf(data[g*3+1])
		w3, ok3 := wl.IndexOf(data[g*3+2])
		if !ok1 || !ok2 || !ok3 {
			return seed, walleterr.New(walleterr.ParseError, "mnemonic contains a word not in the wordlist")
		}
		u1, u2, u3 := uint32(w1), uint32(w2), uint32(w3)
		lo := u1
		mid := (u2 - u1 + n) % n
		hi := (u3 - u2 + n) % n
		v := lo + n*mid + n*n*hi

		seed[g*4] = byte(v)
		seed[g*4+1] = byte(v >> 8)
		seed[g*4+2] = byte(v >> 16)
		seed[g*4+3] = byte(v >> 24)
	}
	return seed, nil
}

// checksumIndex computes CRC32 over the concatenation of each word's
// fixed-length prefix, mod the number of data words.
func checksumIndex(words []string, prefixLength int) int {
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(prefixOf(w, prefixLength))
	}
	sum := crc32.ChecksumIEEE([]byte(sb.String()))
	return int(sum % uint32(dataWords))
}

func prefixOf(word string, n int) string {
	r := []rune(word)
	if len(r) <= n {
		return word
	}
	return string(r[:n])
}

// String renders a mnemonic as a single space-separated phrase.
func String(words []string) string { return strings.Join(words, " ") }

// Split parses a space/whitespace-separated phrase back into words.
func Split(phrase string) []string { return strings.Fields(phrase) }

func init() {
	if len(english) != 1626 {
		panic(fmt.Sprintf("mnemonic: embedded English wordlist has %d entries, want 1626", len(english)))
	}
}

// English is the embedded reference Wordlist; callers may supply any
// other Wordlist implementation.
var English Wordlist = listFromWords("english", 4, english)
