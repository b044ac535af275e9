// Package qrtoken implements the encrypted payload embedded in attendee QR
// codes: a symmetric cipher over a small canonical JSON document naming the
// event, the attendee and the issue time.
package qrtoken

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// ErrDecode is returned for any ciphertext that cannot be turned back into
// a valid token: truncated or malformed hex, wrong key, bad padding, or
// unparseable plaintext.  Callers must treat it as "invalid code", never as
// a fault.
var ErrDecode = errors.New("qrtoken: invalid payload")

// scrypt parameters matching the key derivation the stored codes were
// produced under.  Changing any of these invalidates every issued QR code.
const (
	kdfSalt = "salt"
	kdfN    = 16384
	kdfR    = 8
	kdfP    = 1
	keyLen  = 32
)

// Cipher encrypts and decrypts QR payload strings with AES-256-CBC under a
// key derived from a configured passphrase.  The IV is fixed at sixteen
// zero bytes, so encryption is deterministic: identical plaintext always
// yields identical ciphertext.  That is a known weakness (payloads are
// distinguishable and the scheme is not semantically secure), kept because
// codes already in the field were issued this way.  Swapping in a
// random-IV or authenticated scheme only requires replacing this type; the
// codec never looks inside the ciphertext.
type Cipher struct {
	key []byte
}

// NewCipher derives the AES key from the passphrase.  The derivation is
// intentionally done once at startup; the key is read-only afterwards.
func NewCipher(passphrase string) (*Cipher, error) {
	key, err := scrypt.Key([]byte(passphrase), []byte(kdfSalt), kdfN, kdfR, kdfP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("qrtoken: derive key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt returns the hex-encoded AES-256-CBC ciphertext of plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.  Any structural problem with the ciphertext
// yields ErrDecode.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecode
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrDecode
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(raw))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return "", ErrDecode
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
