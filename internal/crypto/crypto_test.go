package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintexts := []string{"hello world", "", "a", string(bytes.Repeat([]byte("x"), 4096)), "ünïcode ☃"}

	for _, pt := range plaintexts {
		blob, err := Encrypt([]byte(pt), "s3cr3t")
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		got, err := Decrypt(blob, "s3cr3t")
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if string(got) != pt {
			t.Fatalf("round trip mismatch: got %q, want %q", got, pt)
		}
	}
}

func TestEncryptNotDeterministic(t *testing.T) {
	a, err := Encrypt([]byte("same input"), "same password")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	b, err := Encrypt([]byte("same input"), "same password")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same input produced identical blobs")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := Encrypt([]byte("hello"), "right")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := Decrypt(blob, "wrong"); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("want ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptTamperedBlob(t *testing.T) {
	blob, err := Encrypt([]byte("tamper me"), "pw")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("blob is not valid base64: %v", err)
	}

	// One flipped bit in each frame region: salt, nonce, ciphertext, tag.
	for _, offset := range []int{0, saltSize, minBlobSize, len(raw) - 1} {
		mutated := bytes.Clone(raw)
		mutated[offset] ^= 0x01
		_, err := Decrypt(base64.StdEncoding.EncodeToString(mutated), "pw")
		if !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("offset %d: want ErrDecryptionFailed, got %v", offset, err)
		}
	}
}

func TestDecryptMalformedBlob(t *testing.T) {
	cases := []string{
		"",
		"not base64!!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
		base64.StdEncoding.EncodeToString(make([]byte, minBlobSize-1)),
	}
	for _, blob := range cases {
		if _, err := Decrypt(blob, "pw"); !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("blob %q: want ErrDecryptionFailed, got %v", blob, err)
		}
	}
}

func TestBlobFraming(t *testing.T) {
	plaintext := []byte("framing check")
	blob, err := Encrypt(plaintext, "pw")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("blob is not valid base64: %v", err)
	}

	// salt[16] || iv[12] || ciphertext || tag[16]
	want := saltSize + nonceSize + len(plaintext) + 16
	if len(raw) != want {
		t.Fatalf("framed length: got %d, want %d", len(raw), want)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, saltSize)
	a := DeriveKey("password", salt)
	b := DeriveKey("password", salt)
	if !bytes.Equal(a, b) {
		t.Fatal("derivation is not deterministic for identical inputs")
	}
	if len(a) != keySize {
		t.Fatalf("key length: got %d, want %d", len(a), keySize)
	}
	if bytes.Equal(a, DeriveKey("password", bytes.Repeat([]byte{0x43}, saltSize))) {
		t.Fatal("different salts produced the same key")
	}
}

func TestHashPasswordFormat(t *testing.T) {
	digest := HashPassword("s3cr3t")
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(digest) {
		t.Fatalf("verifier is not 64 lowercase hex chars: %q", digest)
	}
	if digest != HashPassword("s3cr3t") {
		t.Fatal("verifier is not deterministic")
	}
	if digest == HashPassword("other") {
		t.Fatal("different passwords produced the same verifier")
	}
}

func TestGenerateToken(t *testing.T) {
	token := GenerateToken()
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(token) {
		t.Fatalf("token is not 64 hex chars: %q", token)
	}
	if token == GenerateToken() {
		t.Fatal("two tokens collided")
	}
}

func TestVerifyToken(t *testing.T) {
	token := GenerateToken()
	if !VerifyToken(token, token) {
		t.Fatal("matching token rejected")
	}
	if VerifyToken(GenerateToken(), token) {
		t.Fatal("mismatched token accepted")
	}
	if VerifyToken("", token) {
		t.Fatal("empty presented token accepted")
	}
	if VerifyToken("", "") {
		t.Fatal("empty stored token accepted")
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if !regexp.MustCompile(`^[A-Za-z0-9_-]+$`).MatchString(id) {
		t.Fatalf("id is not URL-safe: %q", id)
	}
	if id == GenerateID() {
		t.Fatal("two ids collided")
	}
}
