package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Digest is an io.Writer that fingerprints a stream as it is consumed
// elsewhere, so a file read once for parsing need not be read again for
// hashing. Sum is empty until Seal marks the stream complete.
//
// A Digest is not safe for concurrent use.
type Digest struct {
	h   hash.Hash
	sum string
}

// NewDigest creates an empty SHA-256 digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Write adds p to the digest. It never fails.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Seal finalizes the digest. Writes after Seal are ignored by Sum until Reset.
func (d *Digest) Seal() {
	d.sum = hex.EncodeToString(d.h.Sum(nil))
}

// Sum returns the sealed hex fingerprint, or "" when the stream was not
// read to completion.
func (d *Digest) Sum() string {
	return d.sum
}

// Reset discards everything written so far.
func (d *Digest) Reset() {
	d.h.Reset()
	d.sum = ""
}
