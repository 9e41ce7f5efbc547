// Package idgen generates short URL-safe identifiers.
package idgen

import (
	"crypto/rand"
)

const (
	alphabet      = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"
	DefaultLength = 21
)

// New returns a DefaultLength random id drawn from a 64-symbol URL-safe alphabet.
func New() string {
	return NewLength(DefaultLength)
}

// NewLength returns a random id of n symbols.
func NewLength(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("idgen: crypto/rand unavailable: " + err.Error())
	}
	for i := range buf {
		buf[i] = alphabet[buf[i]&63]
	}
	return string(buf)
}
