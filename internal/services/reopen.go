package services

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// ReopenGate guards the reopen operation. The secret is injected at
// construction, either as a bcrypt hash or as a plain passphrase for
// local setups. An empty gate denies everything.
type ReopenGate struct {
	hash  []byte
	plain string
}

func NewReopenGate(plain, bcryptHash string) ReopenGate {
	return ReopenGate{hash: []byte(bcryptHash), plain: plain}
}

func (g ReopenGate) Allow(passphrase string) bool {
	if passphrase == "" {
		return false
	}
	if len(g.hash) > 0 {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(passphrase)) == nil
	}
	if g.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g.plain), []byte(passphrase)) == 1
}
