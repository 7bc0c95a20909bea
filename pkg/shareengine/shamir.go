// Package shareengine implements the device's 2-of-5 Shamir secret-sharing
// scheme over GF(2^8), applied bytewise across an arbitrary-length secret
// (32 bytes for a mnemonic wallet, up to 512 for an arbitrary-data wallet),
// per spec §4.3.
package shareengine

import "errors"

// MinShareholders is the Shamir scheme's reconstruction threshold (spec
// §4.3: "2-of-5").
const MinShareholders = 2

// MaxShareholders is the total number of shares minted per secret: four
// smartcards plus one device-resident share (spec §2 row 3, §3 "five
// exist per wallet, indexed 1..5").
const MaxShareholders = 5

var (
	ErrNotEnoughShares = errors.New("shareengine: need at least 2 shares to reconstruct")
	ErrDuplicateX      = errors.New("shareengine: duplicate share index")
	ErrInvalidX        = errors.New("shareengine: share index must be in 1..5")
)

// Share is one Shamir share of a secret: the polynomial evaluated at X,
// Y-byte-for-byte matching the secret's length.
type Share struct {
	X byte
	Y []byte
}

// gfExpTable and gfLogTable are precomputed GF(2^8) antilog/log tables
// (AES's field, x^8+x^4+x^3+x+1), giving O(1) per-byte multiplication and
// division for Lagrange interpolation as spec §4.3 requires ("precomputed table-lookup for
// GF(2^8) inverses").
var (
	gfExpTable [512]byte
	gfLogTable [256]byte
)

func init() {
	// Build log/antilog tables using generator 0x03 over the AES
	// polynomial, the standard basis for byte-wise Shamir splitting
	// (as used by SLIP-39 and similar schemes).
	x := byte(1)
	for i := 0; i < 255; i++ {
		gfExpTable[i] = x
		gfLogTable[x] = byte(i)
		x = gfMulNoTable(x, 0x03)
	}
	for i := 255; i < 512; i++ {
		gfExpTable[i] = gfExpTable[i-255]
	}
}

// gfMulNoTable multiplies two GF(2^8) elements the slow way (carryless
// multiply + reduction), used only to bootstrap the log/antilog tables.
func gfMulNoTable(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		hiBitSet := a & 0x80
		a <<= 1
		if hiBitSet != 0 {
			a ^= 0x1B
		}
		b >>= 1
	}
	return p
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExpTable[int(gfLogTable[a])+int(gfLogTable[b])]
}

func gfDiv(a, b byte) (byte, error) {
	if b == 0 {
		return 0, errors.New("shareengine: division by zero in GF(2^8)")
	}
	if a == 0 {
		return 0, nil
	}
	logDiff := int(gfLogTable[a]) - int(gfLogTable[b])
	if logDiff < 0 {
		logDiff += 255
	}
	return gfExpTable[logDiff], nil
}

// gfAdd is XOR in GF(2^8).
func gfAdd(a, b byte) byte { return a ^ b }

// Split draws a random degree-1 polynomial per byte of secret (secret is
// the constant term, the linear coefficient is random) and evaluates it at
// x = 1..5, producing MaxShareholders shares such that any MinShareholders
// of them reconstruct secret exactly (spec §4.3, §8 invariant 1).
//
// randomCoeffs must supply len(secret) random bytes (the per-byte degree-1
// coefficient); callers pass the device DRBG's output here.
func Split(secret []byte, randomCoeffs []byte) ([]Share, error) {
	if len(randomCoeffs) != len(secret) {
		return nil, errors.New("shareengine: randomCoeffs must match secret length")
	}
	shares := make([]Share, MaxShareholders)
	for i := 0; i < MaxShareholders; i++ {
		x := byte(i + 1)
		y := make([]byte, len(secret))
		for j, s := range secret {
			// f(x) = secret_byte + coeff*x
			y[j] = gfAdd(s, gfMul(randomCoeffs[j], x))
		}
		shares[i] = Share{X: x, Y: y}
	}
	return shares, nil
}

// Reconstruct recovers the secret via Lagrange interpolation at x=0 from
// any subset of at least MinShareholders shares. All shares must carry the
// same Y length and distinct X values in 1..5.
func Reconstruct(shares []Share) ([]byte, error) {
	if len(shares) < MinShareholders {
		return nil, ErrNotEnoughShares
	}
	n := len(shares[0].Y)
	seen := make(map[byte]bool, len(shares))
	for _, s := range shares {
		if s.X == 0 || s.X > MaxShareholders {
			return nil, ErrInvalidX
		}
		if seen[s.X] {
			return nil, ErrDuplicateX
		}
		seen[s.X] = true
		if len(s.Y) != n {
			return nil, errors.New("shareengine: mismatched share lengths")
		}
	}

	secret := make([]byte, n)
	for byteIdx := 0; byteIdx < n; byteIdx++ {
		var acc byte
		for i, si := range shares {
			// Lagrange basis polynomial L_i(0) = prod_{j!=i} (0-x_j)/(x_i-x_j)
			// = prod_{j!=i} x_j/(x_i xor x_j)  (since 0-x_j == x_j in GF(2^n), subtraction is XOR).
			num := byte(1)
			den := byte(1)
			for j, sj := range shares {
				if i == j {
					continue
				}
				num = gfMul(num, sj.X)
				den = gfMul(den, gfAdd(si.X, sj.X))
			}
			coeff, err := gfDiv(num, den)
			if err != nil {
				return nil, err
			}
			acc = gfAdd(acc, gfMul(coeff, si.Y[byteIdx]))
		}
		secret[byteIdx] = acc
	}
	return secret, nil
}
