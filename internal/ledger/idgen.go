package ledger

import (
	"crypto/rand"
	"encoding/binary"
	"strings"

	"hostelwatch/backend/internal/config"
)

// codeAlphabet omits 0/O/1/I so verification codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func idSegment() string {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	n := binary.BigEndian.Uint16(b[:])
	s := strings.ToUpper(strconv36(n))
	for len(s) < 4 {
		s = "0" + s
	}
	return s[len(s)-4:]
}

func strconv36(n uint16) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{digits[n%36]}, out...)
		n /= 36
	}
	return string(out)
}

// NewComplaintID returns an opaque, non-enumerable ID like "K3ZQ-0A7F-....".
func NewComplaintID() string {
	return idSegment() + "-" + idSegment() + "-" + idSegment() + "-" + idSegment()
}

// NewVerificationCode returns the short receipt code shown once to the filer.
func NewVerificationCode() string {
	buf := make([]byte, config.VerificationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
