package cryptokit

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Point is an affine secp256k1 curve point.
type Point struct {
	X, Y *big.Int
}

// GeneratorMultiply computes scalar*G, rejecting a zero or out-of-range
// scalar (spec §4.2 ErrInvalidScalar).
func GeneratorMultiply(scalar []byte) (*Point, error) {
	var k btcec.ModNScalar
	overflow := k.SetByteSlice(scalar)
	if overflow || k.IsZero() {
		return nil, ErrInvalidScalar
	}
	var result btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&k, &result)
	result.ToAffine()
	return &Point{X: new(big.Int).SetBytes(result.X.Bytes()[:]), Y: new(big.Int).SetBytes(result.Y.Bytes()[:])}, nil
}

// PointAdd computes p+q on the secp256k1 curve.
func PointAdd(p, q *Point) (*Point, error) {
	jp, err := toJacobian(p)
	if err != nil {
		return nil, err
	}
	jq, err := toJacobian(q)
	if err != nil {
		return nil, err
	}
	var result btcec.JacobianPoint
	btcec.AddNonConst(jp, jq, &result)
	result.ToAffine()
	return &Point{X: new(big.Int).SetBytes(result.X.Bytes()[:]), Y: new(big.Int).SetBytes(result.Y.Bytes()[:])}, nil
}

func toJacobian(p *Point) (*btcec.JacobianPoint, error) {
	if !isOnCurve(p) {
		return nil, ErrInvalidPoint
	}
	var fx, fy btcec.FieldVal
	if overflow := fx.SetByteSlice(p.X.Bytes()); overflow {
		return nil, ErrInvalidPoint
	}
	if overflow := fy.SetByteSlice(p.Y.Bytes()); overflow {
		return nil, ErrInvalidPoint
	}
	jp := &btcec.JacobianPoint{X: fx, Y: fy}
	jp.Z.SetInt(1)
	return jp, nil
}

// isOnCurve checks y^2 = x^3 + 7 (mod p), the secp256k1 curve equation,
// using plain big.Int arithmetic rather than relying on unexported library
// internals.
func isOnCurve(p *Point) bool {
	if p == nil || p.X == nil || p.Y == nil {
		return false
	}
	prime := secp256k1FieldPrime()
	lhs := new(big.Int).Mul(p.Y, p.Y)
	lhs.Mod(lhs, prime)

	rhs := new(big.Int).Mul(p.X, p.X)
	rhs.Mul(rhs, p.X)
	rhs.Add(rhs, big.NewInt(7))
	rhs.Mod(rhs, prime)

	return lhs.Cmp(rhs) == 0
}

// CompressPoint returns the 33-byte SEC1-compressed encoding of p.
func CompressPoint(p *Point) ([]byte, error) {
	jp, err := toJacobian(p)
	if err != nil {
		return nil, err
	}
	pk := btcec.NewPublicKey(&jp.X, &jp.Y)
	return pk.SerializeCompressed(), nil
}

// DecompressPoint parses a 33-byte SEC1-compressed public key.
func DecompressPoint(compressed []byte) (*Point, error) {
	pk, err := btcec.ParsePubKey(compressed)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	return &Point{X: pk.X(), Y: pk.Y()}, nil
}

// IsOddY reports whether p.Y is odd, used by BIP-340's key-tweak negation
// rule (spec §4.8, purpose 86').
func IsOddY(p *Point) bool {
	return p.Y.Bit(0) == 1
}

// NegateY returns the point (x, p-y), p being the secp256k1 field prime,
// i.e. its reflection across the x-axis.
func NegateY(p *Point) *Point {
	negY := new(big.Int).Sub(secp256k1FieldPrime(), p.Y)
	return &Point{X: new(big.Int).Set(p.X), Y: negY}
}

func secp256k1FieldPrime() *big.Int {
	p, _ := new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 16)
	return p
}
