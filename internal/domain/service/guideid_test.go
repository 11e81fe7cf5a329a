package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuideIDFromDigest(t *testing.T) {
	var digest [sha256.Size]byte
	binary.BigEndian.PutUint64(digest[:8], 1234567)
	assert.Equal(t, 4567, GuideIDFromDigest(digest))
}

func TestGuideIDFromReaderIsStable(t *testing.T) {
	content := []byte("same video bytes")

	id1, d1, err := GuideIDFromReader(bytes.NewReader(content))
	require.NoError(t, err)
	id2, d2, err := GuideIDFromReader(bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, sha256.Sum256(content), d1)
	assert.Equal(t, d1, d2)
	assert.GreaterOrEqual(t, id1, 0)
	assert.Less(t, id1, 10000)
}
