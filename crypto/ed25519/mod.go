// Package ed25519 signs the transactions with Schnorr signatures over the
// Ed25519 curve of kyber. The text form of a public key is the account of its
// owner.
package ed25519

import (
	"bytes"
	"fmt"

	"go.dedis.ch/dmarket/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

const accountPrefix = "schnorr:"

var suite = suites.MustFind("Ed25519")

// PublicKey is a point of the curve.
//
// - implements crypto.PublicKey
type PublicKey struct {
	point kyber.Point
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// MarshalText implements encoding.TextMarshaler. The text is the prefix
// followed by the hexadecimal encoding of the point.
func (pk PublicKey) MarshalText() ([]byte, error) {
	data, err := pk.point.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(fmt.Sprintf("%s%x", accountPrefix, data)), nil
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(Signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := schnorr.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("schnorr verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	otherKey, ok := other.(PublicKey)

	return ok && otherKey.point.Equal(pk.point)
}

// Signature is a Schnorr signature.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Equal implements crypto.Signature.
func (sig Signature) Equal(other crypto.Signature) bool {
	otherSig, ok := other.(Signature)

	return ok && bytes.Equal(sig.data, otherSig.data)
}

// Signer holds the key pair of a node.
//
// - implements crypto.Signer
type Signer struct {
	pair *key.Pair
}

// NewSigner returns a signer with a random key pair.
func NewSigner() Signer {
	return Signer{pair: key.NewKeyPair(suite)}
}

// NewSignerFromBytes returns the signer of a marshaled private key.
func NewSignerFromBytes(data []byte) (Signer, error) {
	private := suite.Scalar()

	err := private.UnmarshalBinary(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("couldn't unmarshal scalar: %v", err)
	}

	pair := &key.Pair{
		Private: private,
		Public:  suite.Point().Mul(private, nil),
	}

	return Signer{pair: pair}, nil
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{point: s.pair.Public}
}

// Sign implements crypto.Signer.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	data, err := schnorr.Sign(suite, s.pair.Private, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make schnorr signature: %v", err)
	}

	return Signature{data: data}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the private
// key.
func (s Signer) MarshalBinary() ([]byte, error) {
	return s.pair.Private.MarshalBinary()
}

// Generator creates the private key of a node on its first start.
//
// - implements loader.Generator
type Generator struct{}

// Generate implements loader.Generator.
func (Generator) Generate() ([]byte, error) {
	data, err := NewSigner().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal signer: %v", err)
	}

	return data, nil
}
