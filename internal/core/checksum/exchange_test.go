package checksum

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tcpPair 返回一对回环 TCP 连接
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server := <-accepted
	require.NotNil(t, server)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func checksumOf(b byte) Checksum {
	var c Checksum
	for i := range c {
		c[i] = b
	}
	return c
}

func verifyBoth(t *testing.T, a, b Checksum) (error, error) {
	t.Helper()
	client, server := tcpPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- Verify(ctx, server, b, false)
	}()
	clientErr := Verify(ctx, client, a, true)
	return clientErr, <-errCh
}

func TestVerifyMatch(t *testing.T) {
	c := checksumOf(0x42)
	clientErr, serverErr := verifyBoth(t, c, c)
	assert.NoError(t, clientErr)
	assert.NoError(t, serverErr)
}

func TestVerifyMismatchBothSides(t *testing.T) {
	a, b := checksumOf(0x01), checksumOf(0x02)
	clientErr, serverErr := verifyBoth(t, a, b)

	require.ErrorIs(t, clientErr, ErrNetworkMismatch)
	require.ErrorIs(t, serverErr, ErrNetworkMismatch)

	var mismatch *MismatchError
	require.True(t, errors.As(clientErr, &mismatch))
	assert.Equal(t, a, mismatch.Local)
	assert.Equal(t, b, mismatch.Remote)
}

func TestVerifySingleByteDifference(t *testing.T) {
	a := checksumOf(0x7f)
	b := a
	b[31] ^= 0x01
	clientErr, serverErr := verifyBoth(t, a, b)
	assert.ErrorIs(t, clientErr, ErrNetworkMismatch)
	assert.ErrorIs(t, serverErr, ErrNetworkMismatch)
}

func TestVerifyUninitialized(t *testing.T) {
	client, _ := tcpPair(t)
	err := Verify(context.Background(), client, Checksum{}, true)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestExchangeSilentPeerTimesOut(t *testing.T) {
	client, _ := tcpPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Exchange(ctx, client, checksumOf(0x09))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestExchangeShortRead(t *testing.T) {
	client, server := tcpPair(t)
	go func() {
		_, _ = server.Write([]byte{1, 2, 3})
		server.Close()
	}()
	err := Exchange(context.Background(), client, checksumOf(0x01))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNetworkMismatch)
}

func TestFromRoot(t *testing.T) {
	var root [Size]byte
	root[0] = 0xaa
	c := FromRoot(root)
	assert.Equal(t, byte(0xaa), c[0])
	assert.Equal(t, 32, Size)
}
