package spec

import (
	"crypto/rand"
	"unicode"
	"unicode/utf8"

	"github.com/decred/base58"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// NewRunID generates a short identifier that tags the log entries of one invocation
func NewRunID() string {
	buf := make([]byte, 8)
	rand.Reader.Read(buf)
	return base58.CheckEncode(buf, [2]byte{1, 0})
}

// RunLogger returns a logrus entry carrying a fresh run id
func RunLogger() *logrus.Entry {
	return logrus.WithField(RunID.String(), NewRunID())
}

// FormatFloat renders a float the way an operator types it: 0.6, not 0.600000
func FormatFloat(f float64) string {
	return humanize.Ftoa(f)
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Sentence renders err for the operator with its first letter capitalised
func Sentence(err error) string {
	s := err.Error()
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
