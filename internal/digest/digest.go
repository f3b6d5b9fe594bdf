// Package digest implements the integrity digests used by the consent store,
// the versioning engine, and the audit log.
//
// The default digest is a fast 32-bit rolling hash rendered as 8 lowercase hex
// characters. It detects accidental corruption of persisted payloads and audit
// entries but is NOT collision resistant and NOT keyed: anyone who can read
// the algorithm can forge a matching value. Callers wanting genuine tamper
// evidence should use a Keyed digest, which substitutes BLAKE2b with a secret
// key. The two modes produce incompatible values, so switching modes
// invalidates previously stored hashes.
package digest

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Sum32Hex computes the 32-bit rolling digest of data and renders it as 8 hex
// characters. The algorithm is a djb2 variant; the exact constants are part of
// the persisted wire format and must not change.
func Sum32Hex(data string) string {
	var h uint32 = 5381
	for i := 0; i < len(data); i++ {
		h = h<<5 + h + uint32(data[i])
	}
	return hexByte(h>>24) + hexByte(h>>16) + hexByte(h>>8) + hexByte(h)
}

func hexByte(b uint32) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[(b>>4)&0xf], digits[b&0xf]})
}

// Keyed is a keyed BLAKE2b-256 digest. The zero value is not usable; construct
// with NewKeyed.
type Keyed struct {
	key []byte
}

// NewKeyed returns a keyed digest. The key must be between 1 and 64 bytes per
// the BLAKE2b specification.
func NewKeyed(key []byte) (*Keyed, error) {
	// Validate the key eagerly so Sum cannot fail later.
	if _, err := blake2b.New256(key); err != nil {
		return nil, err
	}
	return &Keyed{key: key}, nil
}

// Sum returns the hex encoded keyed digest of data.
func (k *Keyed) Sum(data string) string {
	h, _ := blake2b.New256(k.key)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Hasher abstracts over the rolling and keyed digest modes.
type Hasher interface {
	Sum(data string) string
}

// Rolling is the default Hasher backed by Sum32Hex.
type Rolling struct{}

// Sum implements Hasher.
func (Rolling) Sum(data string) string { return Sum32Hex(data) }
