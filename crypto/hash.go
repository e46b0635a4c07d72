package crypto

import (
	"golang.org/x/crypto/sha3"
)

// DigestSize is the size in bytes of a digest.
const DigestSize = 32

// Digest returns the SHA3-256 digest of the data.
func Digest(data []byte) []byte {
	sum := sha3.Sum256(data)
	return sum[:]
}
