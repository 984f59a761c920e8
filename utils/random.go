package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const alnumCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns an uppercase hexadecimal string of n random bytes.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// RandomAlnum returns a random alphanumeric string of the given length.
func RandomAlnum(length int) (string, error) {
	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		code[i] = alnumCharset[int(code[i])%len(alnumCharset)]
	}
	return string(code), nil
}

// BookingReference builds a booking reference of the form
// BK{epochMillis}{randomAlnum}. The random suffix keeps references from
// colliding when two bookings confirm in the same millisecond; the store
// record id remains the authoritative identifier.
func BookingReference() (string, error) {
	suffix, err := RandomAlnum(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BK%d%s", time.Now().UnixMilli(), suffix), nil
}
