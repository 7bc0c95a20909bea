package cryptokit

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/chacha20"
)

// DRBG is a ChaCha20-backed deterministic random bit generator, reseeded on
// boot by mixing a hardware RNG draw with an internal counter (spec §4.6
// step 1: "mixing at least one hardware RNG source with a ChaCha20-DRBG
// reseeded on boot"). It is safe under the device's single-threaded
// cooperative scheduler; the mutex only guards against accidental
// re-entrant use from event handlers (forbidden by spec §5, enforced here
// defensively).
type DRBG struct {
	mu      sync.Mutex
	cipher  *chacha20.Cipher
	counter uint64
}

// HardwareRNG abstracts the device's physical entropy source(s); the host
// simulation and tests use crypto/rand, a real device would wire in its TRNG
// driver here.
type HardwareRNG interface {
	Read(p []byte) (int, error)
}

type cryptoRandSource struct{}

func (cryptoRandSource) Read(p []byte) (int, error) { return rand.Read(p) }

// DefaultHardwareRNG is the crypto/rand-backed source used when no
// device-specific TRNG is wired in.
var DefaultHardwareRNG HardwareRNG = cryptoRandSource{}

// NewDRBG seeds a new generator with a ChaCha20 key and nonce both read
// from hw, per spec §4.6.
func NewDRBG(hw HardwareRNG) (*DRBG, error) {
	if hw == nil {
		hw = DefaultHardwareRNG
	}
	seed := make([]byte, chacha20.KeySize)
	if _, err := hw.Read(seed); err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20.NonceSize)
	if _, err := hw.Read(nonce); err != nil {
		return nil, err
	}
	c, err := chacha20.NewUnauthenticatedCipher(seed, nonce)
	if err != nil {
		return nil, err
	}
	return &DRBG{cipher: c}, nil
}

// Draw fills p with DRBG output, non-blocking as required by spec §5's
// "RNG: global; each draw is non-blocking" invariant.
func (d *DRBG) Draw(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	zero := make([]byte, len(p))
	d.cipher.XORKeyStream(p, zero)
	d.counter++
	return nil
}

// Reseed mixes fresh hardware entropy into the running stream, matching the
// "reseeded on boot" requirement for each new wallet-creation flow.
func (d *DRBG) Reseed(hw HardwareRNG) error {
	if hw == nil {
		hw = DefaultHardwareRNG
	}
	extra := make([]byte, 32)
	if _, err := hw.Read(extra); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	mixed := make([]byte, chacha20.KeySize)
	d.cipher.XORKeyStream(mixed, mixed)
	for i := range mixed {
		mixed[i] ^= extra[i%len(extra)]
	}
	var counterBuf [8]byte
	binary.LittleEndian.PutUint64(counterBuf[:], d.counter)
	nonce := make([]byte, chacha20.NonceSize)
	copy(nonce, counterBuf[:])
	c, err := chacha20.NewUnauthenticatedCipher(mixed, nonce)
	if err != nil {
		return err
	}
	d.cipher = c
	return nil
}

// DrawEntropy draws n bytes of fresh seed-grade entropy (n ∈ {16,20,24,28,32}
// per spec §4.6 BIP-39 entropy sizes, or up to 512 for arbitrary-data
// wallets).
func (d *DRBG) DrawEntropy(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.Draw(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
