// Package crypto provides the stateless cryptographic primitives for the
// credential vault: password-based symmetric encryption, ephemeral transport
// keys, and RSA public-key encryption for one-shot secret transport.
//
// The package has no knowledge of platforms or sessions.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the random salt length used for password key derivation.
	SaltSize = 16
	// NonceSize is the standard nonce size for GCM (12 bytes).
	NonceSize = 12
	// KeySizeAES256 is the key size for AES-256 (32 bytes).
	KeySizeAES256 = 32
	// PBKDF2Iterations is the iteration count for password key derivation.
	PBKDF2Iterations = 100_000

	transportKeyInfo = "transport-key-v1"
)

// ErrDecryptFailed is returned for every decryption failure. A wrong password
// and a tampered ciphertext are deliberately indistinguishable so the error
// cannot be used as a password-guessing oracle.
var ErrDecryptFailed = errors.New("decryption failed")

// EncryptedPayload is the at-rest representation of an encrypted secret.
// All fields are Base64-encoded byte strings.
type EncryptedPayload struct {
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}

// Encrypt encrypts plaintext with a key derived from password via
// PBKDF2-HMAC-SHA256, using AES-256-GCM with a fresh salt and nonce.
func Encrypt(plaintext []byte, password string) (*EncryptedPayload, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySizeAES256, sha256.New)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &EncryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt re-derives the key from password and the stored salt and opens the
// ciphertext. GCM authentication is the only password check: a successful
// decrypt is proof of a correct password. Every failure surfaces as
// ErrDecryptFailed; callers must treat it as fatal to this one operation.
func Decrypt(payload *EncryptedPayload, password string) ([]byte, error) {
	if payload == nil {
		return nil, ErrDecryptFailed
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	salt, err := base64.StdEncoding.DecodeString(payload.Salt)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil || len(nonce) != NonceSize {
		return nil, ErrDecryptFailed
	}

	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySizeAES256, sha256.New)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}

// RSAEncrypt encrypts plaintext with RSA-OAEP/SHA-256 under a PEM-encoded
// (SPKI) RSA public key and returns the Base64 ciphertext. OAEP padding is
// randomized, so two encryptions of the same plaintext differ.
//
// This is the one-shot transport path: the plaintext API key crosses the wire
// exactly once, under this encryption, independent of transport-level TLS.
func RSAEncrypt(plaintext []byte, publicKeyPEM string) (string, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return "", errors.New("failed to decode PEM block")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("unexpected public key type %T", parsed)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// GenerateTransportKey generates a random 256-bit symmetric key, Base64
// encoded, for the ephemeral-key transport path.
func GenerateTransportKey() (string, error) {
	key := make([]byte, KeySizeAES256)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate transport key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// EncryptWithTransportKey encrypts plaintext under a server-issued transport
// key. The raw key is already high entropy, so the encryption key is derived
// with a single HKDF-SHA256 pass over a fresh salt rather than PBKDF2.
func EncryptWithTransportKey(plaintext []byte, transportKey string) (*EncryptedPayload, error) {
	rawKey, err := base64.StdEncoding.DecodeString(transportKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transport key: %w", err)
	}
	if len(rawKey) != KeySizeAES256 {
		return nil, fmt.Errorf("invalid transport key length %d", len(rawKey))
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveTransportKey(rawKey, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &EncryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// DeriveTransportKey expands a raw transport key and salt into the AES key
// actually used for encryption. Exposed so the receiving side can derive the
// same key.
func DeriveTransportKey(rawKey, salt []byte) ([]byte, error) {
	return deriveTransportKey(rawKey, salt)
}

func deriveTransportKey(rawKey, salt []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, rawKey, salt, []byte(transportKeyInfo))

	key := make([]byte, KeySizeAES256)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return gcm, nil
}
