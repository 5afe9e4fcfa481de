package yamux

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/yamux"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
)

// ErrMuxerClosed 会话已关闭
var ErrMuxerClosed = errors.New("yamux: muxer closed")

// muxer 封装 yamux.Session
type muxer struct {
	session *yamux.Session
}

var _ pkgif.MuxedConn = (*muxer)(nil)

func newMuxer(session *yamux.Session) *muxer {
	return &muxer{session: session}
}

// OpenStream 打开新流
//
// hashicorp/yamux 的 OpenStream 不接受 context，在单独的 goroutine 中等待。
func (m *muxer) OpenStream(ctx context.Context) (pkgif.MuxedStream, error) {
	if m.IsClosed() {
		return nil, ErrMuxerClosed
	}

	type result struct {
		stream *yamux.Stream
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		s, err := m.session.OpenStream()
		resultCh <- result{stream: s, err: err}
	}()

	select {
	case <-ctx.Done():
		// 迟到的流直接关闭
		go func() {
			if r := <-resultCh; r.stream != nil {
				_ = r.stream.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-resultCh:
		if r.err != nil {
			return nil, mapError(r.err)
		}
		return &stream{stream: r.stream}, nil
	}
}

// AcceptStream 接受新流
func (m *muxer) AcceptStream() (pkgif.MuxedStream, error) {
	s, err := m.session.AcceptStream()
	if err != nil {
		return nil, mapError(err)
	}
	return &stream{stream: s}, nil
}

// Close 关闭会话
func (m *muxer) Close() error { return m.session.Close() }

// IsClosed 检查是否已关闭
func (m *muxer) IsClosed() bool { return m.session.IsClosed() }

// CloseChan 会话关闭时关闭
func (m *muxer) CloseChan() <-chan struct{} { return m.session.CloseChan() }

func mapError(err error) error {
	if errors.Is(err, yamux.ErrSessionShutdown) {
		return fmt.Errorf("%w: %w", ErrMuxerClosed, err)
	}
	return err
}
