package qrtoken

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("test-secret")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := testCipher(t)
	for _, plain := range []string{
		"a",
		`{"eventId":"1","attendeeId":"2","timestamp":1700000000000}`,
		strings.Repeat("x", 100),
	} {
		enc, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plain, err)
		}
		if _, err := hex.DecodeString(enc); err != nil {
			t.Fatalf("ciphertext is not hex: %q", enc)
		}
		got, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plain {
			t.Errorf("round trip = %q, want %q", got, plain)
		}
	}
}

// The cipher uses a fixed IV, so identical plaintext must produce
// identical ciphertext.  Stored codes depend on this.
func TestCipher_Deterministic(t *testing.T) {
	c := testCipher(t)
	a, err := c.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("encryption not deterministic: %q vs %q", a, b)
	}
}

func TestCipher_DifferentKeysDiffer(t *testing.T) {
	c1 := testCipher(t)
	c2, err := NewCipher("another-secret")
	if err != nil {
		t.Fatal(err)
	}
	enc, err := c1.Encrypt("payload")
	if err != nil {
		t.Fatal(err)
	}
	// Decrypting under the wrong key yields garbage: usually an ErrDecode
	// from invalid padding, at best a plaintext that is not the original.
	got, err := c2.Decrypt(enc)
	if err == nil && got == "payload" {
		t.Error("Decrypt under wrong key recovered the plaintext")
	}
	if err != nil && !errors.Is(err, ErrDecode) {
		t.Errorf("Decrypt under wrong key: err = %v, want ErrDecode", err)
	}
}

func TestCipher_DecryptRejectsMalformed(t *testing.T) {
	c := testCipher(t)
	// Two full blocks of plaintext so dropping trailing blocks is a real
	// truncation.  CBC decrypts the surviving prefix cleanly, but its last
	// byte is a known plaintext character, never valid padding.
	enc, err := c.Encrypt("payload-payload-payload-payload-")
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != 96 { // 48 ciphertext bytes: 32 plaintext + a padding block
		t.Fatalf("ciphertext length = %d hex chars, want 96", len(enc))
	}

	cases := map[string]string{
		"empty":          "",
		"not hex":        "zz" + enc[2:],
		"odd length":     enc[:len(enc)-1],
		"partial block":  enc[:30],
		"dropped block":  enc[:len(enc)-32],
		"flipped byte":   flipHexByte(enc),
		"random garbage": "deadbeefdeadbeefdeadbeefdeadbeef",
	}
	for name, in := range cases {
		if _, err := c.Decrypt(in); err == nil {
			t.Errorf("%s: Decrypt(%q) succeeded, want error", name, in)
		}
	}
}

// flipHexByte flips bits in the last ciphertext byte, corrupting the
// padding of the final block.
func flipHexByte(enc string) string {
	raw, _ := hex.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff
	return hex.EncodeToString(raw)
}

func TestPKCS7_Unpad(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), 16)
	if len(padded) != 16 {
		t.Fatalf("padded length = %d, want 16", len(padded))
	}
	got, ok := pkcs7Unpad(padded, 16)
	if !ok || string(got) != "abc" {
		t.Fatalf("unpad = %q ok=%v", got, ok)
	}

	// Exact multiple grows by a full block.
	full := pkcs7Pad(make([]byte, 16), 16)
	if len(full) != 32 {
		t.Fatalf("full-block pad length = %d, want 32", len(full))
	}

	if _, ok := pkcs7Unpad([]byte{0, 0, 0}, 16); ok {
		t.Error("unpad accepted length not a multiple of the block size")
	}
	bad := make([]byte, 16)
	bad[15] = 17 // padding byte larger than the block
	if _, ok := pkcs7Unpad(bad, 16); ok {
		t.Error("unpad accepted out-of-range padding byte")
	}
}
