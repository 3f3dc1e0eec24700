package address

import (
	"bytes"

	"github.com/salvium/walletcore/internal/hash"
	"github.com/salvium/walletcore/internal/walleterr"
)

// Network identifies which of the three address networks a key belongs to.
type Network int

const (
	Mainnet Network = iota
	Testnet
	Stagenet
)

// Format distinguishes the legacy CryptoNote address scheme from CARROT.
type Format int

const (
	Legacy Format = iota
	Carrot
)

// Type is the address shape: standard, integrated (payment-id-carrying) or
// subaddress.
type Type int

const (
	Standard Type = iota
	Integrated
	Subaddress
)

// tagKey indexes the varint tag table by (network, format, type).
type tagKey struct {
	Network Network
	Format  Format
	Type    Type
}

// tags holds the 18 concrete varint tags, preserved verbatim for
// on-chain compatibility.
var tags = map[tagKey]uint64{
	{Mainnet, Legacy, Standard}:   0x3ef318,
	{Mainnet, Legacy, Integrated}: 0x55ef318,
	{Mainnet, Legacy, Subaddress}: 0xf5ef318,
	{Mainnet, Carrot, Standard}:   0x180c96,
	{Mainnet, Carrot, Integrated}: 0x2ccc96,
	{Mainnet, Carrot, Subaddress}: 0x314c96,

	{Testnet, Legacy, Standard}:   0x15beb318,
	{Testnet, Legacy, Integrated}: 0xd055eb318,
	{Testnet, Legacy, Subaddress}: 0xa59eb318,
	{Testnet, Carrot, Standard}:   0x254c96,
	{Testnet, Carrot, Integrated}: 0x1ac50c96,
	{Testnet, Carrot, Subaddress}: 0x3c54c96,

	{Stagenet, Legacy, Standard}:   0x149eb318,
	{Stagenet, Legacy, Integrated}: 0xf343eb318,
	{Stagenet, Legacy, Subaddress}: 0x2d47eb318,
	{Stagenet, Carrot, Standard}:   0x24cc96,
	{Stagenet, Carrot, Integrated}: 0x1a848c96,
	{Stagenet, Carrot, Subaddress}: 0x384cc96,
}

var tagsReverse = buildTagsReverse()

func buildTagsReverse() map[uint64]tagKey {
	m := make(map[uint64]tagKey, len(tags))
	for k, v := range tags {
		m[v] = k
	}
	return m
}

// Address is the decoded tuple: network/format/type plus the two public
// keys and an optional 8-byte payment id (integrated addresses only).
type Address struct {
	Network    Network
	Format     Format
	Type       Type
	SpendKey  [32]byte
	ViewKey   [32]byte
	PaymentID []byte // 8 bytes, only for Type == Integrated
}

func encodeVarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func decodeVarint(b []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, c := range b {
		if shift >= 64 {
			return 0, 0, walleterr.New(walleterr.ParseError, "varint too long")
		}
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, walleterr.New(walleterr.ParseError, "truncated varint")
}

// Encode produces base58_cn(varint(tag) ‖ payload ‖
// keccak256(varint(tag)‖payload)[0..4]).
func Encode(a *Address) (string, error) {
	tag, ok := tags[tagKey{a.Network, a.Format, a.Type}]
	if !ok {
		return "", walleterr.New(walleterr.InvalidInput, "unknown (network, format, type) combination")
	}
	var payload bytes.Buffer
	payload.Write(encodeVarint(tag))
	payload.Write(a.SpendKey[:])
	payload.Write(a.ViewKey[:])
	if a.Type == Integrated {
		if len(a.PaymentID) != 8 {
			return "", walleterr.New(walleterr.InvalidInput, "integrated address requires an 8-byte payment id")
		}
		payload.Write(a.PaymentID)
	}
	checksum := hash.Keccak256(payload.Bytes())[:4]
	full := append(payload.Bytes(), checksum...)
	return EncodeCN(full), nil
}

// Decode reverses Encode, validating the checksum and tag.
func Decode(s string) (*Address, error) {
	raw, err := DecodeCN(s)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, walleterr.New(walleterr.ParseError, "address payload too short")
	}
	body, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := hash.Keccak256(body)[:4]
	if !bytes.Equal(checksum, want) {
		return nil, walleterr.New(walleterr.ChecksumMismatch, "address checksum mismatch")
	}

	tag, n, err := decodeVarint(body)
	if err != nil {
		return nil, err
	}
	key, ok := tagsReverse[tag]
	if !ok {
		return nil, walleterr.New(walleterr.InvalidInput, "unknown address tag")
	}
	rest := body[n:]

	minLen := 64
	if key.Type == Integrated {
		minLen = 72
	}
	if len(rest) != minLen {
		return nil, walleterr.New(walleterr.ParseError, "address payload has wrong length for its type")
	}

	a := &Address{Network: key.Network, Format: key.Format, Type: key.Type}
	copy(a.SpendKey[:], rest[0:32])
	copy(a.ViewKey[:], rest[32:64])
	if key.Type == Integrated {
		a.PaymentID = append([]byte(nil), rest[64:72]...)
	}
	return a, nil
}
