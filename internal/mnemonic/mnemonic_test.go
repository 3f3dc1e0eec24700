package mnemonic

import (
	"strings"
	"testing"
)

func TestSeedRoundTrip(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	words, err := SeedToMnemonic(seed, English)
	if err != nil {
		t.Fatalf("SeedToMnemonic: %v", err)
	}
	if len(words) != totalWords {
		t.Fatalf("SeedToMnemonic returned %d words, want %d", len(words), totalWords)
	}
	got, err := MnemonicToSeed(words, English)
	if err != nil {
		t.Fatalf("MnemonicToSeed: %v", err)
	}
	if got != seed {
		t.Fatalf("round trip mismatch: got %x, want %x", got, seed)
	}
}

func TestMnemonicIsCaseAndWhitespaceTolerant(t *testing.T) {
	var seed [32]byte
	seed[0] = 0xaa
	words, _ := SeedToMnemonic(seed, English)
	phrase := strings.ToUpper(String(words))
	phrase = "  " + strings.Join(strings.Fields(phrase), "   ") + "  "

	got, err := MnemonicToSeed(Split(phrase), English)
	if err != nil {
		t.Fatalf("MnemonicToSeed on upper-cased/whitespace-padded phrase: %v", err)
	}
	if got != seed {
		t.Fatalf("round trip mismatch after case/whitespace normalization: got %x, want %x", got, seed)
	}
}

func TestMnemonicRejectsAlteredChecksum(t *testing.T) {
	var seed [32]byte
	seed[5] = 0x42
	words, _ := SeedToMnemonic(seed, English)

	altered := append([]string(nil), words...)
	listWords := English.Words()
	other := listWords[0]
	if altered[totalWords-1] == other {
		other = listWords[1]
	}
	altered[totalWords-1] = other

	if _, err := MnemonicToSeed(altered, English); err == nil {
		t.Fatal("expected a checksum mismatch error for an altered checksum word")
	}
}

func TestMnemonicRejectsWrongWordCount(t *testing.T) {
	if _, err := MnemonicToSeed([]string{"only", "three", "words"}, English); err == nil {
		t.Fatal("expected an error for a mnemonic with the wrong word count")
	}
}

func TestMnemonicRejectsUnknownWord(t *testing.T) {
	var seed [32]byte
	words, _ := SeedToMnemonic(seed, English)
	words[0] = "zzznotarealword"
	if _, err := MnemonicToSeed(words, English); err == nil {
		t.Fatal("expected an error for a mnemonic containing a word outside the wordlist")
	}
}
