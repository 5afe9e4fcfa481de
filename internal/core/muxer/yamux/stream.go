package yamux

import (
	"time"

	"github.com/hashicorp/yamux"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// stream 封装 yamux.Stream
type stream struct {
	stream *yamux.Stream
}

var _ pkgif.MuxedStream = (*stream)(nil)

func (s *stream) Read(p []byte) (int, error)  { return s.stream.Read(p) }
func (s *stream) Write(p []byte) (int, error) { return s.stream.Write(p) }

// Close 发送 FIN，已缓冲的数据仍可读取
func (s *stream) Close() error { return s.stream.Close() }

// CloseWrite hashicorp/yamux 的 Close 本身就是半关闭
func (s *stream) CloseWrite() error { return s.stream.Close() }

// CloseRead 通过过去的读截止时间阻止后续读取
func (s *stream) CloseRead() error { return s.stream.SetReadDeadline(time.Unix(1, 0)) }

// Reset hashicorp/yamux 没有 RST 帧，关闭写端并终止读取
func (s *stream) Reset() error {
	_ = s.CloseRead()
	return s.stream.Close()
}

func (s *stream) SetDeadline(t time.Time) error      { return s.stream.SetDeadline(t) }
func (s *stream) SetReadDeadline(t time.Time) error  { return s.stream.SetReadDeadline(t) }
func (s *stream) SetWriteDeadline(t time.Time) error { return s.stream.SetWriteDeadline(t) }
