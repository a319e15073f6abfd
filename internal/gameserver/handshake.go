package gameserver

import (
	"encoding/base64"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/udisondev/otgate/internal/constants"
	"github.com/udisondev/otgate/internal/crypto"
	"github.com/udisondev/otgate/internal/protocol"
)

const maxWorldNameLen = 32

// handshake runs the LOGIN phase under a 5-second deadline:
//
//	SERVER <- CLIENT  world name, line-terminated
//	SERVER -> CLIENT  14-byte challenge frame (uptime + random byte)
//	SERVER <- CLIENT  252-byte plaintext-framed login with RSA block
//
// then hands the session token to the game loop and waits until the
// login resolves or the deadline fires. Returns false when the
// connection was aborted.
func (s *Server) handshake(c *Conn) bool {
	deadline := time.Now().Add(loginTimeout)
	if err := c.sock.SetDeadline(deadline); err != nil {
		c.Abort()
		return false
	}

	if !s.readWorldName(c) {
		c.Abort()
		return false
	}

	challengeUptime := uint32(s.world.UptimeSeconds())
	challengeRandom := crypto.RandByte()
	if !s.sendChallenge(c, challengeUptime, challengeRandom) {
		c.Abort()
		return false
	}

	if !s.readLogin(c, challengeUptime, challengeRandom) {
		c.Abort()
		return false
	}

	// Wait for the game loop to resolve the login; the socket deadline no
	// longer applies while we idle here.
	select {
	case <-c.loginResolved:
	case <-time.After(time.Until(deadline)):
	}

	if c.State() == StateLogin {
		slog.Info("login timed out", "client", c.ip)
		c.Abort()
		return false
	}

	c.sock.SetDeadline(time.Time{})
	return c.State() != StateAbort
}

// readWorldName consumes the client's first line and compares it against
// the configured world name. Bytes are read one at a time so nothing
// belonging to the next frame is consumed.
func (s *Server) readWorldName(c *Conn) bool {
	var (
		name [maxWorldNameLen]byte
		n    int
		b    [1]byte
	)
	for {
		if _, err := c.sock.Read(b[:]); err != nil {
			return false
		}
		if b[0] == '\n' {
			break
		}
		if n == len(name) {
			return false
		}
		name[n] = b[0]
		n++
	}

	if string(name[:n]) != s.cfg.ServerName {
		slog.Info("world name mismatch", "client", c.ip, "got", string(name[:n]))
		return false
	}
	return true
}

// sendChallenge writes the fixed 14-byte challenge frame with sequence
// zero: one cipher block carrying the challenge opcode, the world uptime
// and a random byte.
func (s *Server) sendChallenge(c *Conn, uptime uint32, random byte) bool {
	frame := [14]byte{
		0x01, 0x00, // XTEA block count
		0x00, 0x00, 0x00, 0x00, // sequence
		0x01,                      // padding count
		constants.ChallengeOpcode, // challenge id
		0x00, 0x00, 0x00, 0x00,    // world uptime seconds
		0x00, // random byte
		0x00, // padding byte
	}
	binary.LittleEndian.PutUint32(frame[2:], c.serverSeq)
	binary.LittleEndian.PutUint32(frame[8:], uptime)
	frame[12] = random
	frame[13] = crypto.RandByte()

	if _, err := c.sock.Write(frame[:]); err != nil {
		return false
	}
	c.serverSeq++
	return true
}

// readLogin reads the framed login command, decrypts the RSA block,
// installs the session key and posts the login to the game loop.
func (s *Server) readLogin(c *Conn, challengeUptime uint32, challengeRandom byte) bool {
	msg := &protocol.NetworkMessage{}
	if err := protocol.ReadFrame(c.sock, msg); err != nil {
		slog.Info("login frame read failed", "client", c.ip, "error", err)
		return false
	}

	// The login frame is sequenced but not yet encrypted.
	if _, err := c.codec.Unwrap(msg, c.clientSeq); err != nil {
		slog.Info("login frame rejected", "client", c.ip, "error", err)
		return false
	}
	c.clientSeq++

	if msg.RemainingLength() != constants.LoginPacketSize {
		slog.Info("login frame has wrong size", "client", c.ip, "size", msg.RemainingLength())
		return false
	}

	if msg.GetByte() != constants.LoginOpcode {
		return false
	}

	terminalType := int(msg.GetUint16())
	terminalVersion := int(msg.GetUint16())
	c.SetTerminal(terminalType, terminalVersion)
	msg.GetUint32()  // full version
	msg.GetString()  // version string
	msg.GetString()  // assets checksum
	msg.GetByte()    // reserved

	block := msg.RemainingBuffer()
	if len(block) != constants.RSABlockSize {
		return false
	}
	if err := s.rsa.Decrypt(block); err != nil {
		slog.Info("rsa decrypt failed", "client", c.ip, "error", err)
		return false
	}
	if msg.GetByte() != 0 {
		return false
	}

	key, err := crypto.XTEAKeyFromBytes(msg.GetBytes(constants.XTEAKeySize))
	if err != nil {
		return false
	}

	isGamemaster := msg.GetByte() != 0
	sessionToken, err := base64.StdEncoding.DecodeString(msg.GetString())
	if err != nil {
		slog.Info("malformed session token", "client", c.ip, "error", err)
		return false
	}
	characterName := msg.GetString()

	if msg.GetUint32() != challengeUptime || msg.GetByte() != challengeRandom || msg.IsOverrun() {
		slog.Info("challenge echo mismatch", "client", c.ip)
		return false
	}

	c.codec.EnableEncryption(key)
	s.world.HandleLogin(c, isGamemaster, sessionToken, characterName)
	return true
}
