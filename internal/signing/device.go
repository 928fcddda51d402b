package signing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/keyring"
)

// DeviceSigner signs through a detached device. Construction performs the
// handshake (app version, public key for the derivation path) so the
// signer's identity is known before any transaction work starts. One sign
// flow runs at a time; the device has a single screen.
type DeviceSigner struct {
	transport Transport
	path      keyring.Path
	pubkey    chain.Pubkey
	version   string
	busy      atomic.Bool
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewDeviceSigner(ctx context.Context, transport Transport, path keyring.Path) (*DeviceSigner, error) {
	d := &DeviceSigner{transport: transport, path: path.Clone()}
	version, err := d.appVersion(ctx)
	if err != nil {
		return nil, err
	}
	d.version = version
	pubkey, err := d.fetchPubkey(ctx)
	if err != nil {
		return nil, err
	}
	d.pubkey = pubkey
	return d, nil
}

func (d *DeviceSigner) Kind() Kind {
	return KindDevice
}

func (d *DeviceSigner) PublicKey() chain.Pubkey {
	return d.pubkey
}

// AppVersion reports the device app version captured during the handshake.
func (d *DeviceSigner) AppVersion() string {
	return d.version
}

func (d *DeviceSigner) Path() keyring.Path {
	return d.path.Clone()
}

// SignTransaction streams the message to the device and waits for the user
// to confirm. A second call while one is in flight fails with
// ErrSignerBusy instead of queueing.
func (d *DeviceSigner) SignTransaction(ctx context.Context, tx *chain.Transaction) error {
	if d.closed.Load() {
		return ErrSignerClosed
	}
	if !d.busy.CompareAndSwap(false, true) {
		return ErrSignerBusy
	}
	defer d.busy.Store(false)

	payload := append(serializePath(d.path), tx.Message.Serialize()...)
	chunks := chunkPayload(payload, maxChunkSize)

	var final []byte
	for i, chunk := range chunks {
		p1 := byte(p1First)
		if i > 0 {
			p1 = p1More
		}
		p2 := byte(0)
		if i < len(chunks)-1 {
			p2 = p2HasMore
		}
		resp, err := d.exchange(ctx, apdu{ins: insSignMessage, p1: p1, p2: p2, data: chunk})
		if err != nil {
			return err
		}
		final = resp
	}

	if len(final) != chain.SignatureSize {
		return fmt.Errorf("%w: signature size %d", ErrDeviceProtocol, len(final))
	}
	sig, err := chain.SignatureFromBytes(final)
	if err != nil {
		return err
	}
	return tx.AddSignature(d.pubkey, sig)
}

// Close releases the transport exactly once. An in-flight request resolves
// with a transport error.
func (d *DeviceSigner) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		err = d.transport.Close()
	})
	return err
}

func (d *DeviceSigner) appVersion(ctx context.Context) (string, error) {
	resp, err := d.exchange(ctx, apdu{ins: insAppVersion})
	if err != nil {
		return "", err
	}
	if len(resp) != 3 {
		return "", fmt.Errorf("%w: version payload %d bytes", ErrDeviceProtocol, len(resp))
	}
	return fmt.Sprintf("%d.%d.%d", resp[0], resp[1], resp[2]), nil
}

func (d *DeviceSigner) fetchPubkey(ctx context.Context) (chain.Pubkey, error) {
	resp, err := d.exchange(ctx, apdu{ins: insGetPubkey, data: serializePath(d.path)})
	if err != nil {
		return chain.Pubkey{}, err
	}
	pub, err := chain.PubkeyFromBytes(resp)
	if err != nil {
		return chain.Pubkey{}, fmt.Errorf("%w: %v", ErrDeviceProtocol, err)
	}
	return pub, nil
}

func (d *DeviceSigner) exchange(ctx context.Context, request apdu) ([]byte, error) {
	raw, err := d.transport.Exchange(ctx, request.encode())
	if err != nil {
		return nil, err
	}
	payload, sw, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := statusError(sw); err != nil {
		return nil, err
	}
	return payload, nil
}
