package qrtoken

import (
	"encoding/json"
	"strconv"
	"time"
)

// Token is the decoded identity carried by a QR payload.  It is immutable
// once created; repeated scans of the same code decode to equal tokens and
// idempotence is enforced at the check-in layer, not here.
type Token struct {
	EventID    uint64
	AttendeeID uint64
	IssuedAt   time.Time
}

// payload is the canonical wire form: field order is fixed, ids travel as
// decimal strings and the timestamp as unix milliseconds.
type payload struct {
	EventID    string `json:"eventId"`
	AttendeeID string `json:"attendeeId"`
	Timestamp  int64  `json:"timestamp"`
}

// Codec serializes tokens to encrypted payload strings and back.
type Codec struct {
	cipher *Cipher
	now    func() time.Time
}

// NewCodec builds a Codec over the given cipher.
func NewCodec(c *Cipher) *Codec {
	return &Codec{cipher: c, now: time.Now}
}

// Encode produces the encrypted payload for an (event, attendee) pair,
// stamped with the current time.  Tokens carry no expiry; a code stays
// valid for check-in indefinitely.
func (c *Codec) Encode(eventID, attendeeID uint64) (string, error) {
	p := payload{
		EventID:    strconv.FormatUint(eventID, 10),
		AttendeeID: strconv.FormatUint(attendeeID, 10),
		Timestamp:  c.now().UnixMilli(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return c.cipher.Encrypt(string(raw))
}

// Decode decrypts and parses a payload string.  It returns ErrDecode when
// decryption fails, when the plaintext is not the canonical JSON document,
// or when either id is missing or not numeric.
func (c *Codec) Decode(encrypted string) (Token, error) {
	plain, err := c.cipher.Decrypt(encrypted)
	if err != nil {
		return Token{}, err
	}
	var p payload
	if err := json.Unmarshal([]byte(plain), &p); err != nil {
		return Token{}, ErrDecode
	}
	if p.EventID == "" || p.AttendeeID == "" {
		return Token{}, ErrDecode
	}
	eventID, err := strconv.ParseUint(p.EventID, 10, 64)
	if err != nil {
		return Token{}, ErrDecode
	}
	attendeeID, err := strconv.ParseUint(p.AttendeeID, 10, 64)
	if err != nil {
		return Token{}, ErrDecode
	}
	return Token{
		EventID:    eventID,
		AttendeeID: attendeeID,
		IssuedAt:   time.UnixMilli(p.Timestamp),
	}, nil
}
