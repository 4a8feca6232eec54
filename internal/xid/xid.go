package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// New returns a random, roughly time-ordered id such as "act-<nanos>-<hex>".
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// Sequential formats n as "<prefix>-<n>", zero-padded to width digits.
// A width below 1 leaves the number unpadded.
func Sequential(prefix string, n int64, width int) string {
	if width < 1 {
		return fmt.Sprintf("%s-%d", prefix, n)
	}
	return fmt.Sprintf("%s-%0*d", prefix, width, n)
}

// Suffix returns the numeric part of an id produced by Sequential, along
// with its raw digit string. ok is false when id does not carry prefix or
// the suffix is not a number.
func Suffix(id string, prefix string) (n int64, digits string, ok bool) {
	digits, found := strings.CutPrefix(id, prefix+"-")
	if !found || digits == "" {
		return 0, "", false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, digits, false
	}
	return n, digits, true
}
