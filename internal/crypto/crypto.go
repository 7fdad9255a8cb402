// Package crypto implements the password-based message encryption scheme and
// the admin-token primitives.
//
// Messages are encrypted with AES-256-GCM under a key derived from the
// password via PBKDF2-HMAC-SHA256 with a fresh random salt per encryption.
// The server stores only the resulting blob; it never sees the password or a
// value it could derive the key from. The stored password verifier (hex
// SHA-256, see HashPassword) is advisory only: it lets clients sanity-check a
// password before attempting an expensive decrypt, but it is not a security
// boundary and gates nothing server-side.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	idLength    = 16
	tokenLength = 32

	saltSize  = 16
	nonceSize = 12 // GCM standard nonce size
	keySize   = 32 // AES-256

	// kdfIterations is part of the wire contract: blobs are decrypted by
	// independent clients re-deriving the key, so changing it breaks every
	// previously stored message.
	kdfIterations = 100_000

	// minBlobSize is salt + nonce; anything shorter cannot be parsed.
	minBlobSize = saltSize + nonceSize
)

// ErrDecryptionFailed is the single failure returned by Decrypt. Wrong
// password, truncated blob, tampered ciphertext and malformed base64 are
// deliberately indistinguishable to the caller.
var ErrDecryptionFailed = errors.New("decryption failed")

// GenerateID returns a URL-safe random message identifier.
func GenerateID() string {
	bytes := make([]byte, idLength)
	if _, err := rand.Read(bytes); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// GenerateToken returns a hex-encoded admin token with 32 bytes of entropy.
// Tokens are bearer capabilities: one per message, issued once at creation.
func GenerateToken() string {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}

// VerifyToken compares a presented admin token against the stored one in
// constant time with respect to the stored secret's contents.
func VerifyToken(presented, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

// DeriveKey stretches a password into an AES-256 key. Deterministic for a
// given (password, salt) pair; the salt must be fresh per encryption.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext under the password and returns the self-describing
// blob base64(salt[16] || iv[12] || ciphertext+tag). Salt and IV are freshly
// random on every call, so encrypting identical input twice yields different
// blobs.
func Encrypt(plaintext []byte, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.New("salt generation failed: " + err.Error())
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.New("nonce generation failed: " + err.Error())
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	blob := make([]byte, 0, minBlobSize+len(plaintext)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt parses a blob produced by Encrypt, re-derives the key from the
// embedded salt and opens the ciphertext. Any failure is ErrDecryptionFailed.
func Decrypt(blob string, password string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(raw) < minBlobSize {
		return nil, ErrDecryptionFailed
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize:minBlobSize]
	ciphertext := raw[minBlobSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// HashPassword returns the advisory password verifier: lowercase hex SHA-256
// of the password. It shares nothing with the key derivation path and must
// never be used to derive an encryption key.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
