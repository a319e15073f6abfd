package gameserver

import "github.com/udisondev/otgate/internal/protocol"

// Server opcodes for the packets the front-end itself produces. Every
// other outbound opcode is built by the game layer and carried through
// here opaquely.
const (
	opcodeLoginError     = 0x14
	opcodeLoginWait      = 0x16
	opcodePing           = 0x1D
	opcodePingBack       = 0x1E
	opcodeExtendedOpcode = 0x32
)

// SendLoginError queues the login-error packet and resolves the login to
// CLOSE so the writer drains it before the socket shuts down.
func SendLoginError(arena *protocol.Arena, c *Conn, message string) {
	var msg protocol.NetworkMessage
	msg.AddByte(opcodeLoginError)
	msg.AddString(message)
	c.EnqueueOutput(arena, &msg)
	c.ResolveLogin(StateClose)
}

// SendLoginWait queues the wait-list packet with the client retry hint,
// then resolves the login to CLOSE.
func SendLoginWait(arena *protocol.Arena, c *Conn, message string, retrySeconds int) {
	var msg protocol.NetworkMessage
	msg.AddByte(opcodeLoginWait)
	msg.AddString(message)
	msg.AddByte(byte(retrySeconds))
	c.EnqueueOutput(arena, &msg)
	c.ResolveLogin(StateClose)
}

// SendPing queues a server ping.
func SendPing(arena *protocol.Arena, c *Conn) {
	var msg protocol.NetworkMessage
	msg.AddByte(opcodePing)
	c.EnqueueOutput(arena, &msg)
}

// SendPingBack answers a client ping.
func SendPingBack(arena *protocol.Arena, c *Conn) {
	var msg protocol.NetworkMessage
	msg.AddByte(opcodePingBack)
	c.EnqueueOutput(arena, &msg)
}

// SendEnableExtendedOpcode tells OTClient terminals the server accepts
// the extended-opcode extension.
func SendEnableExtendedOpcode(arena *protocol.Arena, c *Conn) {
	var msg protocol.NetworkMessage
	msg.AddByte(opcodeExtendedOpcode)
	msg.AddByte(0x00)
	msg.AddUint16(0x0000)
	c.EnqueueOutput(arena, &msg)
}

// SendRaw queues an opaque packet built by the game layer.
func SendRaw(arena *protocol.Arena, c *Conn, msg *protocol.NetworkMessage) {
	c.EnqueueOutput(arena, msg)
}
