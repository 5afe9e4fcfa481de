package checksum

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	mss "github.com/multiformats/go-multistream"
	"golang.org/x/sync/errgroup"
)

// Negotiate 在连接上协商校验和协议
//
// 发起方提议，响应方只接受 ProtocolID。
func Negotiate(conn io.ReadWriteCloser, initiator bool) error {
	if initiator {
		if err := mss.SelectProtoOrFail(ProtocolID, conn); err != nil {
			return fmt.Errorf("select %s: %w", ProtocolID, err)
		}
		return nil
	}

	muxer := mss.NewMultistreamMuxer[string]()
	muxer.AddHandler(string(ProtocolID), nil)
	if _, _, err := muxer.Negotiate(conn); err != nil {
		return fmt.Errorf("negotiate %s: %w", ProtocolID, err)
	}
	return nil
}

// Exchange 交换并比较校验和
//
// 写入本地值和读取对端值并发进行，双方都不需要等待对方先发送。
// ctx 取消时强制连接超时，调用方负责之后的截止时间管理。
func Exchange(ctx context.Context, conn net.Conn, local Checksum) error {
	if local.IsZero() {
		return ErrUninitialized
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	var remote Checksum
	var g errgroup.Group
	g.Go(func() error {
		if _, err := conn.Write(local[:]); err != nil {
			return fmt.Errorf("write checksum: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.ReadFull(conn, remote[:]); err != nil {
			return fmt.Errorf("read checksum: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}

	if !bytes.Equal(local[:], remote[:]) {
		logger.Debug("网络校验和不一致",
			"local", local.ShortString(),
			"remote", remote.ShortString())
		return &MismatchError{Local: local, Remote: remote}
	}
	return nil
}

// Verify 协商协议并交换校验和
func Verify(ctx context.Context, conn net.Conn, local Checksum, initiator bool) error {
	if local.IsZero() {
		return ErrUninitialized
	}
	if err := Negotiate(conn, initiator); err != nil {
		return err
	}
	return Exchange(ctx, conn, local)
}
