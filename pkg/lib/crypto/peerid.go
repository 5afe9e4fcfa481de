package crypto

import (
	"fmt"

	"github.com/dep2p/go-netgate/pkg/types"
)

// PeerIDFromPublicKey 从公钥派生 PeerID
//
// 派生算法：Base58(multihash(sha2-256, MarshalPublicKey(pub)))
func PeerIDFromPublicKey(pub PublicKey) (types.PeerID, error) {
	if pub == nil {
		return types.EmptyPeerID, ErrNilPublicKey
	}
	data, err := MarshalPublicKey(pub)
	if err != nil {
		return types.EmptyPeerID, err
	}
	return types.PeerIDFromBytes(data)
}

// PeerIDFromPrivateKey 从私钥对应的公钥派生 PeerID
func PeerIDFromPrivateKey(priv PrivateKey) (types.PeerID, error) {
	if priv == nil {
		return types.EmptyPeerID, ErrNilPrivateKey
	}
	return PeerIDFromPublicKey(priv.GetPublic())
}

// VerifyPeerID 检查公钥是否与 PeerID 匹配
func VerifyPeerID(pub PublicKey, id types.PeerID) error {
	derived, err := PeerIDFromPublicKey(pub)
	if err != nil {
		return err
	}
	if derived != id {
		return fmt.Errorf("%w: public key derives %s, expected %s",
			types.ErrInvalidPeerID, derived.ShortString(), id.ShortString())
	}
	return nil
}
