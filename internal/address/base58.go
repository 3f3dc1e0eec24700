// Package address implements the CryptoNote base58 variant and the 18
// (network, format, type) address encodings.
//
// The block-based base58 CryptoNote requires is not the same algorithm as
// Bitcoin's base58check: btcutil/base58 encodes the whole buffer as one
// big integer, not in fixed 8-byte blocks, so the block variant is
// implemented here directly.
package address

import (
	"math/big"

	"github.com/salvium/walletcore/internal/walleterr"
)

const b58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const fullBlockSize = 8
const fullEncodedBlockSize = 11

// encodedBlockSizes maps a partial block's byte length to its base58
// character length; the last partial block uses this fixed size map.
var encodedBlockSizes = [...]int{0, 2, 3, 5, 6, 7, 9, 10, 11}

var b58DecodeTable = buildDecodeTable()

func buildDecodeTable() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i, c := range b58Alphabet {
		t[byte(c)] = int8(i)
	}
	return t
}

var big58 = big.NewInt(58)

// encodeBlock encodes one input block (1..8 bytes) of data to base58
// using the fixed output size for its length.
func encodeBlock(data []byte) []byte {
	outSize := encodedBlockSizes[len(data)]
	num := new(big.Int).SetBytes(data)
	out := make([]byte, outSize)
	mod := new(big.Int)
	for i := outSize - 1; i >= 0; i-- {
		num.DivMod(num, big58, mod)
		out[i] = b58Alphabet[mod.Int64()]
	}
	return out
}

func decodeBlock(encoded []byte, outSize int) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, walleterr.New(walleterr.ParseError, "empty base58 block")
	}
	num := new(big.Int)
	digit := new(big.Int)
	for _, c := range encoded {
		d := b58DecodeTable[c]
		if d < 0 {
			return nil, walleterr.New(walleterr.ParseError, "invalid base58 character")
		}
		digit.SetInt64(int64(d))
		num.Mul(num, big58)
		num.Add(num, digit)
	}
	raw := num.Bytes()
	if len(raw) > outSize {
		return nil, walleterr.New(walleterr.ParseError, "base58 block overflow")
	}
	out := make([]byte, outSize)
	copy(out[outSize-len(raw):], raw)
	return out, nil
}

// EncodeCN encodes data using the CryptoNote block-based base58 variant:
// 8-byte blocks map to exactly 11 base58 characters, and a final partial
// block of size 1..7 maps through encodedBlockSizes.
func EncodeCN(data []byte) string {
	out := make([]byte, 0, (len(data)/fullBlockSize)*fullEncodedBlockSize+fullEncodedBlockSize)
	for len(data) >= fullBlockSize {
		out = append(out, encodeBlock(data[:fullBlockSize])...)
		data = data[fullBlockSize:]
	}
	if len(data) > 0 {
		out = append(out, encodeBlock(data)...)
	}
	return string(out)
}

// partialSizeForEncodedLen inverts encodedBlockSizes for decode.
func partialSizeForEncodedLen(encLen int) (int, error) {
	for raw, enc := range encodedBlockSizes {
		if enc == encLen {
			return raw, nil
		}
	}
	return 0, walleterr.New(walleterr.ParseError, "invalid base58 block length")
}

// DecodeCN decodes a CryptoNote base58 string back to bytes.
func DecodeCN(s string) ([]byte, error) {
	full := len(s) / fullEncodedBlockSize
	rem := len(s) % fullEncodedBlockSize
	out := make([]byte, 0, full*fullBlockSize+fullBlockSize)
	for i := 0; i < full; i++ {
		block, err := decodeBlock([]byte(s[i*fullEncodedBlockSize:(i+1)*fullEncodedBlockSize]), fullBlockSize)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	if rem > 0 {
		rawSize, err := partialSizeForEncodedLen(rem)
		if err != nil {
			return nil, err
		}
		block, err := decodeBlock([]byte(s[full*fullEncodedBlockSize:]), rawSize)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}
