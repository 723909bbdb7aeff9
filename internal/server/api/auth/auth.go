// Package auth protects the receiver's control API with a shared key.
//
// The key lives in the receiver's key file and is typed into clients, so
// generated keys avoid look-alike symbols and are printed in groups of four.
package auth

import (
	"crypto/hkdf"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	// KeyAlphabet has no 0/O, 1/I/L.
	KeyAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	KeySymbols  = 16
	keyGroup    = 4

	keySalt       = "rcrx api key v1"
	keyIterations = 100000
	keySize       = 32
	sessionInfo   = "rcrx api session v1"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// GenerateKey returns a random key like "7KQM-D2XH-PW9R-TC4N".
func GenerateKey() (string, error) {
	// Bytes at or above limit would bias the modulo.
	limit := 256 - 256%len(KeyAlphabet)
	var sb strings.Builder
	buf := make([]byte, KeySymbols*2)
	n := 0
	for n < KeySymbols {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit || n == KeySymbols {
				continue
			}
			if n > 0 && n%keyGroup == 0 {
				sb.WriteByte('-')
			}
			sb.WriteByte(KeyAlphabet[int(b)%len(KeyAlphabet)])
			n++
		}
	}
	return sb.String(), nil
}

// canonicalPassword trims the password. Passwords shaped like generated
// keys are also upper-cased and stripped of dashes, so "7kqm d2xh..." as
// read off a console still matches.
func canonicalPassword(password string) string {
	password = strings.TrimSpace(password)
	var sb strings.Builder
	for _, r := range password {
		switch {
		case r == '-' || r == ' ':
			continue
		case strings.ContainsRune(KeyAlphabet, r):
			sb.WriteRune(r)
		case r >= 'a' && r <= 'z' && strings.ContainsRune(KeyAlphabet, r-'a'+'A'):
			sb.WriteRune(r - 'a' + 'A')
		default:
			return password
		}
	}
	if sb.Len() != KeySymbols {
		return password
	}
	return sb.String()
}

// DeriveKey stretches a password into the 32 byte API key.
func DeriveKey(password string) ([]byte, error) {
	password = canonicalPassword(password)
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(keySalt), keyIterations, keySize)
}

// DeriveSessionKey expands the API key with both handshake nonces, so every
// connection encrypts under its own key.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) ([]byte, error) {
	salt := make([]byte, 0, len(serverNonce)+len(clientNonce))
	salt = append(salt, serverNonce...)
	salt = append(salt, clientNonce...)
	return hkdf.Key(sha256.New, key, salt, sessionInfo, keySize)
}

// Session wraps conn after a completed handshake.
func Session(conn net.Conn, key, serverNonce, clientNonce []byte, role Role) (net.Conn, error) {
	sk, err := DeriveSessionKey(key, serverNonce, clientNonce)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return WrapConn(conn, sk, role)
}
