// Package crypt implements the hybrid ECDH scheme used to encrypt a
// sealed buffer block before it is written to disk: an ephemeral P-256
// keypair is generated per block, combined with the destination's long
// lived public key via ECDH, and the resulting shared secret is run
// through HKDF to key a ChaCha20 stream cipher over the block body.
//
// Key material is serialized as yaml-backed key files rather than a
// bespoke binary format.
package crypt

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"gopkg.in/yaml.v2"
)

func newSHA256() hash.Hash { return sha256.New() }

// SchemeID identifies the encryption scheme recorded in a block header.
// 0 means "no encryption"; values above that are reserved for future
// schemes so old readers can refuse to decode formats they don't know.
type SchemeID uint8

const (
	// None means the block is not encrypted.
	None SchemeID = 0
	// ECDHChaCha20 is ephemeral P-256 ECDH + HKDF-SHA256 + ChaCha20.
	ECDHChaCha20 SchemeID = 1
)

// PubKeySize is the length of an uncompressed P-256 point, the size a
// block header reserves for the ephemeral public key.
const PubKeySize = 65

const hkdfInfo = "aether-block-v1"

// PublicKey is a destination's long-lived ECDH public key, the
// counterpart of a PrivateKey held by whatever process later decrypts
// the recorded blocks (outside this module's scope).
type PublicKey struct {
	Pub []byte // uncompressed P-256 point, PubKeySize bytes
}

// KeyFile is the on-disk YAML representation of a PublicKey.
type KeyFile struct {
	Algo string `yaml:"algo"`
	Pub  []byte `yaml:"pub"`
}

// LoadPublicKey parses a YAML-encoded public key previously written by
// a host's key-provisioning step.
func LoadPublicKey(data []byte) (*PublicKey, error) {
	var kf KeyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("crypt: parse key file: %w", err)
	}
	if kf.Algo != "ecdh-p256" {
		return nil, fmt.Errorf("crypt: unsupported key algo %q", kf.Algo)
	}
	if len(kf.Pub) != PubKeySize {
		return nil, fmt.Errorf("crypt: malformed public key (%d bytes)", len(kf.Pub))
	}
	return &PublicKey{Pub: kf.Pub}, nil
}

// Marshal serializes the public key back to the YAML KeyFile form.
func (p *PublicKey) Marshal() ([]byte, error) {
	kf := KeyFile{Algo: "ecdh-p256", Pub: p.Pub}
	return yaml.Marshal(&kf)
}

// Seal encrypts plaintext in place-equivalent fashion, returning the
// ciphertext and the ephemeral public key to record in the block
// header. Each call generates a fresh ephemeral keypair, so the same
// plaintext encrypted twice yields unrelated ciphertexts.
func Seal(dest *PublicKey, plaintext []byte) (ciphertext, ephPub []byte, err error) {
	curve := ecdh.P256()
	destPub, err := curve.NewPublicKey(dest.Pub)
	if err != nil {
		return nil, nil, fmt.Errorf("crypt: invalid destination key: %w", err)
	}

	ephPriv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("crypt: generate ephemeral key: %w", err)
	}

	secret, err := ephPriv.ECDH(destPub)
	if err != nil {
		return nil, nil, fmt.Errorf("crypt: ecdh: %w", err)
	}

	key, nonce, err := deriveKeyNonce(secret)
	if err != nil {
		return nil, nil, err
	}

	stream, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("crypt: new cipher: %w", err)
	}

	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out, plaintext)

	return out, ephPriv.PublicKey().Bytes(), nil
}

// Open reverses Seal given the destination's private key and the
// ephemeral public key recorded alongside the ciphertext in the block
// header. It is provided for test symmetry; production decoding of
// recorded blocks happens outside this module.
func Open(destPriv *ecdh.PrivateKey, ephPub, ciphertext []byte) ([]byte, error) {
	curve := ecdh.P256()
	pub, err := curve.NewPublicKey(ephPub)
	if err != nil {
		return nil, fmt.Errorf("crypt: invalid ephemeral key: %w", err)
	}

	secret, err := destPriv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("crypt: ecdh: %w", err)
	}

	key, nonce, err := deriveKeyNonce(secret)
	if err != nil {
		return nil, err
	}

	stream, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}

	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out, ciphertext)
	return out, nil
}

func deriveKeyNonce(secret []byte) (key, nonce []byte, err error) {
	r := hkdf.New(newSHA256, secret, nil, []byte(hkdfInfo))
	key = make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, nil, fmt.Errorf("crypt: derive key: %w", err)
	}
	nonce = make([]byte, chacha20.NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, nil, fmt.Errorf("crypt: derive nonce: %w", err)
	}
	return key, nonce, nil
}
