package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Role selects the nonce prefix a side seals with. Both sides share one
// session key, so the prefixes keep their nonce spaces apart.
type Role uint32

const (
	RoleClient Role = 0x43 // 'C'
	RoleServer Role = 0x53 // 'S'
)

func (r Role) peer() Role {
	if r == RoleClient {
		return RoleServer
	}
	return RoleClient
}

var ErrNonceReuse = errors.New("auth: unexpected nonce")

type Conn struct {
	net.Conn
	aead    cipher.AEAD
	role    Role
	sendCtr uint64
	recvCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

const maxPacketSize = 2 * 1024 * 1024 // 2 MB

// WrapConn frames every write as len(4) | nonce(12) | ciphertext. The
// nonce is role(4) | counter(8); reads accept only the peer's role with a
// strictly increasing counter.
func WrapConn(conn net.Conn, sessionKey []byte, role Role) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead, role: role}, nil
}

func (s *Conn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint32(nonce[:4], uint32(s.role))
	binary.BigEndian.PutUint64(nonce[4:], s.sendCtr)
	s.sendCtr++

	ct := s.aead.Seal(nil, nonce, p, nil)
	length := uint32(len(nonce) + len(ct))

	pkt := make([]byte, 4, 4+length)
	binary.BigEndian.PutUint32(pkt, length)
	pkt = append(pkt, nonce...)
	pkt = append(pkt, ct...)
	if i, err := s.Conn.Write(pkt); err != nil {
		return i, err
	}
	return len(p), nil
}

func (s *Conn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if i, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return i, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxPacketSize || length < chacha20poly1305.NonceSize {
			return 0, io.ErrUnexpectedEOF
		}

		pkt := make([]byte, length)
		if i, err := io.ReadFull(s.Conn, pkt); err != nil {
			return i, err
		}

		nonce := pkt[:chacha20poly1305.NonceSize]
		ct := pkt[chacha20poly1305.NonceSize:]
		if Role(binary.BigEndian.Uint32(nonce[:4])) != s.role.peer() || binary.BigEndian.Uint64(nonce[4:]) != s.recvCtr {
			return 0, ErrNonceReuse
		}

		pt, err := s.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		s.recvCtr++
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
