package types

import (
	"testing"

	"github.com/mr-tron/base58"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerIDFromBytes(t *testing.T) {
	id, err := PeerIDFromBytes([]byte("some public key"))
	require.NoError(t, err)
	assert.False(t, id.IsEmpty())
	assert.NoError(t, id.Validate())

	// 确定性
	id2, err := PeerIDFromBytes([]byte("some public key"))
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	other, err := PeerIDFromBytes([]byte("another key"))
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestParsePeerID(t *testing.T) {
	id, err := PeerIDFromBytes([]byte("k"))
	require.NoError(t, err)

	parsed, err := ParsePeerID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParsePeerID("")
	assert.ErrorIs(t, err, ErrEmptyPeerID)

	_, err = ParsePeerID("0OIl")
	assert.ErrorIs(t, err, ErrInvalidPeerID)

	// 合法 base58 但不是 multihash
	_, err = ParsePeerID(base58.Encode([]byte("hello")))
	assert.ErrorIs(t, err, ErrInvalidPeerID)
}

func TestPeerIDFromMultihash(t *testing.T) {
	id, err := PeerIDFromBytes([]byte("k"))
	require.NoError(t, err)
	b, err := id.Bytes()
	require.NoError(t, err)

	back, err := PeerIDFromMultihash(b)
	require.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = PeerIDFromMultihash([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidPeerID)
}

func TestPeerIDShortString(t *testing.T) {
	assert.Equal(t, "abc", PeerID("abc").ShortString())
	assert.Equal(t, "12345678", PeerID("123456789abc").ShortString())
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "inbound", DirInbound.String())
	assert.Equal(t, "outbound", DirOutbound.String())
	assert.Equal(t, "unknown", DirUnknown.String())
	assert.True(t, DirOutbound.IsInitiator())
	assert.False(t, DirInbound.IsInitiator())
}

func TestChecksum(t *testing.T) {
	var zero Checksum
	assert.True(t, zero.IsZero())
	assert.Equal(t, "00000000", zero.ShortString())

	c := Checksum{0xab, 0xcd}
	assert.False(t, c.IsZero())
	assert.Len(t, c.String(), 64)
	assert.Equal(t, "abcd0000", c.ShortString())

	b := c.Bytes()
	b[0] = 0
	assert.Equal(t, byte(0xab), c[0])
}
