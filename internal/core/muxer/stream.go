package muxer

import (
	"time"

	"github.com/libp2p/go-yamux/v5"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// muxedStream 包装 yamux.Stream
type muxedStream struct {
	stream *yamux.Stream
}

var _ pkgif.MuxedStream = (*muxedStream)(nil)

func (s *muxedStream) Read(p []byte) (int, error) {
	n, err := s.stream.Read(p)
	return n, parseError(err)
}

func (s *muxedStream) Write(p []byte) (int, error) {
	n, err := s.stream.Write(p)
	return n, parseError(err)
}

func (s *muxedStream) Close() error      { return s.stream.Close() }
func (s *muxedStream) CloseWrite() error { return s.stream.CloseWrite() }
func (s *muxedStream) CloseRead() error  { return s.stream.CloseRead() }
func (s *muxedStream) Reset() error      { return s.stream.Reset() }

func (s *muxedStream) SetDeadline(t time.Time) error      { return s.stream.SetDeadline(t) }
func (s *muxedStream) SetReadDeadline(t time.Time) error  { return s.stream.SetReadDeadline(t) }
func (s *muxedStream) SetWriteDeadline(t time.Time) error { return s.stream.SetWriteDeadline(t) }
