package upgrader

import (
	"net"
	"sync"

	pkgif "github.com/dep2p/go-netgate/pkg/interfaces"
	"github.com/dep2p/go-netgate/pkg/types"
)

var _ pkgif.UpgradedConn = (*upgradedConn)(nil)

// upgradedConn 升级后的连接
type upgradedConn struct {
	pkgif.MuxedConn

	secConn   pkgif.SecureConn
	dir       types.Direction
	security  types.ProtocolID
	muxerID   string
	checksum  types.Checksum
	admission pkgif.Admission

	releaseOnce sync.Once
}

func newUpgradedConn(
	muxed pkgif.MuxedConn,
	secConn pkgif.SecureConn,
	dir types.Direction,
	security types.ProtocolID,
	muxerID string,
	checksum types.Checksum,
	admission pkgif.Admission,
) *upgradedConn {
	c := &upgradedConn{
		MuxedConn: muxed,
		secConn:   secConn,
		dir:       dir,
		security:  security,
		muxerID:   muxerID,
		checksum:  checksum,
		admission: admission,
	}
	// 会话由对端关闭或出错时同样归还配额
	go func() {
		<-muxed.CloseChan()
		c.release()
	}()
	return c
}

func (c *upgradedConn) LocalPeer() types.PeerID    { return c.secConn.LocalPeer() }
func (c *upgradedConn) RemotePeer() types.PeerID   { return c.secConn.RemotePeer() }
func (c *upgradedConn) Direction() types.Direction { return c.dir }
func (c *upgradedConn) Security() types.ProtocolID { return c.security }
func (c *upgradedConn) Muxer() string              { return c.muxerID }
func (c *upgradedConn) Checksum() types.Checksum   { return c.checksum }
func (c *upgradedConn) LocalAddr() net.Addr        { return c.secConn.LocalAddr() }
func (c *upgradedConn) RemoteAddr() net.Addr       { return c.secConn.RemoteAddr() }

// Close 关闭会话并归还准入配额
func (c *upgradedConn) Close() error {
	err := c.MuxedConn.Close()
	c.release()
	return err
}

func (c *upgradedConn) release() {
	c.releaseOnce.Do(func() {
		c.admission.Release()
		logger.Debug("连接配额已归还",
			"remotePeer", c.RemotePeer().ShortString(),
			"direction", c.dir.String())
	})
}
