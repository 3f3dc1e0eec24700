package mnemonic

// english is a synthetic, deterministically generated 1626-word list used
// as the embedded reference Wordlist. It is not the CryptoNote family's
// real English word list; it exists so SeedToMnemonic/MnemonicToSeed have
// a concrete Wordlist to round-trip against, and so a deployment without
// its own wordlist still has one that works.
var english = buildSyntheticWordlist(1626)

// buildSyntheticWordlist generates n unique four-letter consonant-vowel-
// consonant-vowel tokens by direct enumeration, so uniqueness follows from
// the bijection between (c1,v1,c2,v2) tuples and output words rather than
// from a dedup pass.
func buildSyntheticWordlist(n int) []string {
	const consonants = "bcdfghjklmnpqrstvwxz"
	const vowels = "aeiou"

	words := make([]string, 0, n)
	for _, c1 := range consonants {
		for _, v1 := range vowels {
			for _, c2 := range consonants {
				for _, v2 := range vowels {
					if len(words) == n {
						return words
					}
					words = append(words, string([]rune{c1, v1, c2, v2}))
				}
			}
		}
	}
	return words
}
