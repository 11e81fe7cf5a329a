package service

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
)

const guideIDModulus = 10000

// GuideIDFromDigest maps a SHA-256 content digest to a guide id in [0, 10000):
// the first eight digest bytes as a big-endian uint64, modulo 10000.
func GuideIDFromDigest(digest [sha256.Size]byte) int {
	return int(binary.BigEndian.Uint64(digest[:8]) % guideIDModulus)
}

// GuideIDFromReader hashes r and derives the guide id from the digest.
func GuideIDFromReader(r io.Reader) (int, [sha256.Size]byte, error) {
	var digest [sha256.Size]byte
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, digest, err
	}
	copy(digest[:], h.Sum(nil))
	return GuideIDFromDigest(digest), digest, nil
}
