package websocket

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_CanDial(t *testing.T) {
	tr := NewTransport(DefaultConfig())
	defer tr.Close()

	assert.True(t, tr.CanDial(ma.StringCast("/ip4/127.0.0.1/tcp/4002/ws")))
	assert.True(t, tr.CanDial(ma.StringCast("/ip6/::1/tcp/4002/ws")))
	assert.False(t, tr.CanDial(ma.StringCast("/ip4/127.0.0.1/tcp/4002")))
	assert.False(t, tr.CanDial(ma.StringCast("/dns4/example.com/tcp/4002/ws")))
	assert.False(t, tr.CanDial(nil))
}

func TestTransport_ListenDialStream(t *testing.T) {
	tr := NewTransport(DefaultConfig())
	defer tr.Close()

	l, err := tr.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0/ws"))
	require.NoError(t, err)
	defer l.Close()

	_, last := ma.SplitLast(l.Multiaddr())
	require.NotNil(t, last)
	assert.Equal(t, ma.P_WS, last.Protocol().Code)

	payload := bytes.Repeat([]byte("netgate"), 10000)
	done := make(chan []byte, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			done <- nil
			return
		}
		defer c.Close()
		got := make([]byte, len(payload))
		if _, err := io.ReadFull(c, got); err != nil {
			done <- nil
			return
		}
		done <- got
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := tr.Dial(ctx, l.Multiaddr())
	require.NoError(t, err)
	defer c.Close()

	// 分多次写入，读端按字节流拼接
	_, err = c.Write(payload[:100])
	require.NoError(t, err)
	_, err = c.Write(payload[100:])
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, payload, got)
	case <-time.After(5 * time.Second):
		t.Fatal("accept timeout")
	}
}

func TestConn_CloseIsEOF(t *testing.T) {
	tr := NewTransport(DefaultConfig())
	defer tr.Close()

	l, err := tr.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0/ws"))
	require.NoError(t, err)
	defer l.Close()

	errCh := make(chan error, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			errCh <- err
			return
		}
		_, err = io.ReadAll(c)
		errCh <- err
	}()

	c, err := tr.Dial(context.Background(), l.Multiaddr())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reader not unblocked")
	}
}

func TestListener_CloseUnblocksAccept(t *testing.T) {
	tr := NewTransport(DefaultConfig())
	defer tr.Close()
	l, err := tr.Listen(ma.StringCast("/ip4/127.0.0.1/tcp/0/ws"))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = l.Close()
	}()
	_, err = l.Accept()
	assert.Error(t, err)
}
