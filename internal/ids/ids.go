// Package ids generates opaque identifiers: crypto-random 5-char codes for
// lobbies/friends (spec §6) via rejection sampling, the same shape as the
// teacher's newGameID, and UUIDs for everything else, grounded on
// jason-s-yu-cambia-service's use of google/uuid to key lobbies and
// connections.
package ids

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 5

// NewCode generates a 5-char uppercase alphanumeric code, retrying on
// collision per exists.
func NewCode(exists func(code string) bool) string {
	for {
		buf := make([]byte, codeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, codeLength)
		for i := range out {
			out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(out)

		if !exists(code) {
			return code
		}
	}
}

// New mints an opaque document id.
func New() string {
	return uuid.NewString()
}
