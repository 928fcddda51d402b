package signing

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/keyring"
)

func countingSeed() []byte {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

// fakeDevice emulates the signing device behind the Transport interface:
// it derives its key from the same seed and path the wallet would, so a
// handshake must agree with local derivation.
type fakeDevice struct {
	mu          sync.Mutex
	keypair     *keyring.Keypair
	reject      bool
	blockSign   chan struct{}
	signStarted chan struct{}
	startOnce   sync.Once
	signBuf     []byte
	closedCount atomic.Int32
}

func newFakeDevice(t *testing.T, walletIndex uint32) *fakeDevice {
	t.Helper()
	kp, err := keyring.Derive(countingSeed(), keyring.SchemeDefault, walletIndex, 0)
	if err != nil {
		t.Fatalf("derive device key: %v", err)
	}
	return &fakeDevice{keypair: kp, signStarted: make(chan struct{})}
}

func (f *fakeDevice) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if len(request) < 5 || request[0] != claWallet {
		return []byte{0x6d, 0x00}, nil
	}
	ins, p1, p2 := request[1], request[2], request[3]
	data := request[5:]

	switch ins {
	case insAppVersion:
		return []byte{1, 4, 2, 0x90, 0x00}, nil
	case insGetPubkey:
		pub := f.keypair.PublicKey
		return append(pub.Bytes(), 0x90, 0x00), nil
	case insSignMessage:
		f.mu.Lock()
		if p1 == p1First {
			f.signBuf = nil
		}
		f.signBuf = append(f.signBuf, data...)
		buf := f.signBuf
		f.mu.Unlock()
		if p2&p2HasMore != 0 {
			return []byte{0x90, 0x00}, nil
		}
		if f.blockSign != nil {
			f.startOnce.Do(func() { close(f.signStarted) })
			select {
			case <-f.blockSign:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if f.reject {
			return []byte{0x69, 0x85}, nil
		}
		// Strip the path prefix, sign the remaining message bytes.
		if len(buf) < 1 {
			return []byte{0x6d, 0x00}, nil
		}
		skip := 1 + 4*int(buf[0])
		if len(buf) < skip {
			return []byte{0x6d, 0x00}, nil
		}
		sig := ed25519.Sign(f.keypair.PrivateKey, buf[skip:])
		return append(sig, 0x90, 0x00), nil
	default:
		return []byte{0x6d, 0x00}, nil
	}
}

func (f *fakeDevice) Close() error {
	f.closedCount.Add(1)
	return nil
}

func devicePath(t *testing.T, walletIndex uint32) keyring.Path {
	t.Helper()
	path, err := keyring.PathFor(keyring.SchemeDefault, walletIndex, 0)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	return path
}

func TestDeviceSignerHandshakeMatchesLocalDerivation(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(t, 0)
	signer, err := NewDeviceSigner(context.Background(), dev, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}
	local, err := keyring.Derive(countingSeed(), keyring.SchemeDefault, 0, 0)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if signer.PublicKey() != local.PublicKey {
		t.Fatalf("device pubkey %s != local %s", signer.PublicKey(), local.PublicKey)
	}
	if signer.AppVersion() != "1.4.2" {
		t.Fatalf("app version: got %s", signer.AppVersion())
	}
	if signer.Kind() != KindDevice {
		t.Fatalf("kind: got %s", signer.Kind())
	}
}

func deviceTestTransaction(t *testing.T, payer chain.Pubkey) *chain.Transaction {
	t.Helper()
	dest, err := keyring.Derive(countingSeed(), keyring.SchemeDefault, 9, 0)
	if err != nil {
		t.Fatalf("derive dest: %v", err)
	}
	defer dest.Zero()
	msg, err := chain.CompileMessage(payer, chain.Hash{0xcc}, []chain.Instruction{
		chain.NewSystemTransfer(payer, dest.PublicKey, 100),
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return chain.NewTransaction(msg)
}

func TestDeviceSignerSignsValidSignature(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(t, 0)
	signer, err := NewDeviceSigner(context.Background(), dev, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}
	tx := deviceTestTransaction(t, signer.PublicKey())
	if err := signer.SignTransaction(context.Background(), tx); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestDeviceSignerChunksLargeMessages(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(t, 0)
	signer, err := NewDeviceSigner(context.Background(), dev, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}
	// A memo large enough to force several APDU chunks.
	memo := make([]byte, 700)
	for i := range memo {
		memo[i] = 'a'
	}
	msg, err := chain.CompileMessage(signer.PublicKey(), chain.Hash{0xdd}, []chain.Instruction{
		chain.NewMemo(signer.PublicKey(), string(memo)),
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	tx := chain.NewTransaction(msg)
	if err := signer.SignTransaction(context.Background(), tx); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestDeviceSignerUserRejection(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(t, 0)
	dev.reject = true
	signer, err := NewDeviceSigner(context.Background(), dev, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}
	tx := deviceTestTransaction(t, signer.PublicKey())
	if err := signer.SignTransaction(context.Background(), tx); !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
	if len(tx.MissingSigners()) != 1 {
		t.Fatal("rejected transaction must stay unsigned")
	}
}

func TestDeviceSignerBusy(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(t, 0)
	dev.blockSign = make(chan struct{})
	signer, err := NewDeviceSigner(context.Background(), dev, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}

	first := deviceTestTransaction(t, signer.PublicKey())
	done := make(chan error, 1)
	go func() {
		done <- signer.SignTransaction(context.Background(), first)
	}()

	select {
	case <-dev.signStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("first sign never reached the device")
	}

	second := deviceTestTransaction(t, signer.PublicKey())
	if err := signer.SignTransaction(context.Background(), second); !errors.Is(err, ErrSignerBusy) {
		t.Fatalf("expected ErrSignerBusy, got %v", err)
	}

	close(dev.blockSign)
	if err := <-done; err != nil {
		t.Fatalf("first sign should complete: %v", err)
	}
	if err := first.VerifySignatures(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestDeviceSignerCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(t, 0)
	signer, err := NewDeviceSigner(context.Background(), dev, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}
	if err := signer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := signer.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if dev.closedCount.Load() != 1 {
		t.Fatalf("transport closed %d times, want 1", dev.closedCount.Load())
	}
	tx := deviceTestTransaction(t, signer.PublicKey())
	if err := signer.SignTransaction(context.Background(), tx); !errors.Is(err, ErrSignerClosed) {
		t.Fatalf("sign after close: got %v", err)
	}
}

func TestDeviceSignerRejectsMalformedSignature(t *testing.T) {
	t.Parallel()

	short := &scriptedTransport{responses: [][]byte{
		{1, 0, 0, 0x90, 0x00},             // version
		append(make([]byte, 32), 0x90, 0), // pubkey (zero key parses fine)
		{0xde, 0xad, 0x90, 0x00},          // sign: bogus 2-byte payload
	}}
	signer, err := NewDeviceSigner(context.Background(), short, devicePath(t, 0))
	if err != nil {
		t.Fatalf("new device signer: %v", err)
	}
	payer := signer.PublicKey()
	msg, err := chain.CompileMessage(chain.TokenProgramID, chain.Hash{1}, []chain.Instruction{
		chain.NewMemo(payer, "x"),
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	tx := chain.NewTransaction(msg)
	if err := signer.SignTransaction(context.Background(), tx); !errors.Is(err, ErrDeviceProtocol) {
		t.Fatalf("expected ErrDeviceProtocol, got %v", err)
	}
}

// scriptedTransport plays back canned responses in order.
type scriptedTransport struct {
	mu        sync.Mutex
	responses [][]byte
	closed    bool
}

func (s *scriptedTransport) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrTransportClosed
	}
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
