package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/otgate/internal/config"
	"github.com/udisondev/otgate/internal/gameserver"
	"github.com/udisondev/otgate/internal/model"
	"github.com/udisondev/otgate/internal/protocol"
)

// attachPlayer puts a live player on the connection, bypassing the login
// path.
func attachPlayer(g *Game, c *gameserver.Conn, guid uint32) *model.Player {
	p := &model.Player{GUID: guid, Name: "Bob", AccountID: 1, AccountType: model.AccountTypeNormal}
	p.ConnectionID = c.ID()
	g.players[guid] = p
	g.conns[c.ID()] = c
	c.SetPlayerGUID(guid)
	c.Transition(gameserver.StateLogin, gameserver.StateOK)
	return p
}

func dispatchGame(t *testing.T) (*Game, *gameserver.Conn, *model.Player) {
	t.Helper()
	g := testGame(t, config.Default(), newFakeStore())
	c := loginConn(t)
	p := attachPlayer(g, c, 7)
	return g, c, p
}

func TestDispatchTurnUpdatesDirection(t *testing.T) {
	g, c, p := dispatchGame(t)

	g.dispatchPacket(c, []byte{0x70}) // turn east
	require.Equal(t, model.DirectionEast, p.Direction)
	require.Equal(t, gameserver.StateOK, c.State())

	g.dispatchPacket(c, []byte{0x6F}) // turn north
	require.Equal(t, model.DirectionNorth, p.Direction)
}

func TestDispatchAutoWalk(t *testing.T) {
	g, c, p := dispatchGame(t)

	g.dispatchPacket(c, []byte{0x64, 0x03, 0x01, 0x03, 0x05}) // E, N, W
	require.Equal(t, model.DirectionWest, p.Direction)
	require.Equal(t, gameserver.StateOK, c.State())
}

func TestDispatchLogoutDetaches(t *testing.T) {
	g, c, _ := dispatchGame(t)

	g.dispatchPacket(c, []byte{0x14})
	require.Zero(t, c.PlayerGUID())
	require.NotContains(t, g.players, uint32(7))
	require.Equal(t, gameserver.StateClose, c.State())
}

func TestDispatchNoPlayerDetaches(t *testing.T) {
	g := testGame(t, config.Default(), newFakeStore())
	c := loginConn(t)
	c.Transition(gameserver.StateLogin, gameserver.StateOK)

	g.dispatchPacket(c, []byte{0x6F})
	require.Equal(t, gameserver.StateClose, c.State())
}

func TestDispatchDeadPlayerOnlyLogsOut(t *testing.T) {
	g, c, p := dispatchGame(t)
	p.Dead = true

	// Any command but logout detaches a dead player's connection.
	g.dispatchPacket(c, []byte{0x6F})
	require.Equal(t, gameserver.StateClose, c.State())

	g2, c2, p2 := dispatchGame(t)
	p2.Dead = true
	g2.dispatchPacket(c2, []byte{0x14})
	require.Equal(t, gameserver.StateClose, c2.State())
	require.NotContains(t, g2.players, uint32(7))
}

func TestDispatchUnhandledCommandDetaches(t *testing.T) {
	g, c, _ := dispatchGame(t)

	g.dispatchPacket(c, []byte{0xFF})
	require.Equal(t, gameserver.StateClose, c.State())
	require.NotContains(t, g.players, uint32(7))
}

func TestDispatchMalformedPacketDetaches(t *testing.T) {
	g, c, _ := dispatchGame(t)

	// Throw expects two positions plus item data; a one-byte body
	// overruns the cursor.
	g.dispatchPacket(c, []byte{0x78, 0x01})
	require.Equal(t, gameserver.StateClose, c.State())
}

func TestDispatchOversizedSayDetaches(t *testing.T) {
	g, c, _ := dispatchGame(t)

	var msg protocol.NetworkMessage
	msg.AddByte(0x96)
	msg.AddByte(speakSay)
	msg.AddString(string(make([]byte, 300)))
	g.dispatchPacket(c, msg.RemainingBuffer())
	require.Equal(t, gameserver.StateClose, c.State())
}

func TestDispatchSayAccepted(t *testing.T) {
	g, c, _ := dispatchGame(t)

	var msg protocol.NetworkMessage
	msg.AddByte(0x96)
	msg.AddByte(speakSay)
	msg.AddString("hi there")
	g.dispatchPacket(c, msg.RemainingBuffer())
	require.Equal(t, gameserver.StateOK, c.State())
}

func TestDispatchChannelSayDecodesChannel(t *testing.T) {
	g, c, _ := dispatchGame(t)

	var msg protocol.NetworkMessage
	msg.AddByte(0x96)
	msg.AddByte(speakChannelYellow)
	msg.AddUint16(5)
	msg.AddString("hello channel")
	g.dispatchPacket(c, msg.RemainingBuffer())
	require.Equal(t, gameserver.StateOK, c.State())
}

func TestDispatchDebugAssertOneShot(t *testing.T) {
	g, c, _ := dispatchGame(t)

	var msg protocol.NetworkMessage
	msg.AddByte(0xE8)
	msg.AddString("assert")
	msg.AddString("date")
	msg.AddString("description")
	msg.AddString("comment")

	g.dispatchPacket(c, msg.RemainingBuffer())
	require.Equal(t, gameserver.StateOK, c.State())

	// The second report is dropped without decoding; an empty body would
	// otherwise overrun and detach.
	g.dispatchPacket(c, []byte{0xE8})
	require.Equal(t, gameserver.StateOK, c.State())
}

func TestDispatchPingKeepsConnection(t *testing.T) {
	g, c, _ := dispatchGame(t)

	g.dispatchPacket(c, []byte{0x1E})
	require.Equal(t, gameserver.StateOK, c.State())
	require.Contains(t, g.players, uint32(7))
}

func TestDispatchFullCommandSurface(t *testing.T) {
	// Every recognized command with a well-formed body must leave the
	// connection attached.
	var pos protocol.NetworkMessage
	pos.AddPosition(protocol.Position{X: 100, Y: 100, Z: 7})
	posBytes := pos.RemainingBuffer()

	str := func(s string) []byte {
		var m protocol.NetworkMessage
		m.AddString(s)
		return m.RemainingBuffer()
	}
	u16 := func(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
	u32 := func(v uint32) []byte {
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}

	cat := func(parts ...[]byte) []byte {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	packets := [][]byte{
		{0x1D},
		{0x1E},
		cat([]byte{0x32, 0x01}, str("payload")),
		{0x65}, {0x66}, {0x67}, {0x68}, {0x69},
		{0x6A}, {0x6B}, {0x6C}, {0x6D},
		{0x6F}, {0x70}, {0x71}, {0x72},
		cat([]byte{0x77}, u16(3031), []byte{0x01}),
		cat([]byte{0x78}, posBytes, u16(3031), []byte{0x01}, posBytes, []byte{0x05}),
		cat([]byte{0x79}, u16(3031), []byte{0x01}),
		cat([]byte{0x7A}, u16(3031), []byte{0x01}, u16(10), []byte{0x00, 0x00}),
		cat([]byte{0x7B}, u16(3031), []byte{0x01}, u16(10), []byte{0x00}),
		{0x7C},
		cat([]byte{0x7D}, posBytes, u16(3031), []byte{0x01}, u32(99)),
		{0x7E, 0x00, 0x01},
		{0x7F},
		{0x80},
		cat([]byte{0x82}, posBytes, u16(3031), []byte{0x01, 0x00}),
		cat([]byte{0x83}, posBytes, u16(3031), []byte{0x01}, posBytes, u16(3032), []byte{0x02}),
		cat([]byte{0x84}, posBytes, u16(3031), []byte{0x01}, u32(99)),
		cat([]byte{0x85}, posBytes, u16(3031), []byte{0x01}),
		cat([]byte{0x86}, posBytes, u16(3031), []byte{0x01}),
		{0x87, 0x00},
		{0x88, 0x00},
		cat([]byte{0x89}, u32(1), str("note")),
		cat([]byte{0x8A, 0x01}, u32(1), str("rent")),
		cat([]byte{0x8B}, posBytes, u16(3031), []byte{0x01}),
		cat([]byte{0x8C}, posBytes, u16(3031), []byte{0x01}),
		cat([]byte{0x8D}, u32(99)),
		{0x8E},
		cat([]byte{0x8F}, posBytes, u16(3031), []byte{0x01}),
		cat([]byte{0x96, speakSay}, str("hi")),
		{0x97},
		cat([]byte{0x98}, u16(5)),
		cat([]byte{0x99}, u16(5)),
		cat([]byte{0x9A}, str("Alice")),
		{0x9E},
		{0xA0, 0x01, 0x01, 0x01},
		cat([]byte{0xA1}, u32(99), u32(1)),
		cat([]byte{0xA2}, u32(99)),
		cat([]byte{0xA3}, u32(99)),
		cat([]byte{0xA4}, u32(99)),
		cat([]byte{0xA5}, u32(99)),
		cat([]byte{0xA6}, u32(99)),
		{0xA7},
		{0xA8, 0x01},
		{0xAA},
		cat([]byte{0xAB}, str("Alice")),
		cat([]byte{0xAC}, str("Alice")),
		{0xBE},
		{0xC9},
		{0xCA, 0x00},
		cat([]byte{0xCB}, posBytes),
		cat([]byte{0xCC, 0x00}, u16(1)),
		{0xD2},
		cat([]byte{0xD3}, u16(136), []byte{1, 2, 3, 4, 0}, u16(0)),
		cat([]byte{0xDC}, str("Alice")),
		cat([]byte{0xDD}, u32(9)),
		cat([]byte{0xDE}, u32(9), str("friend"), u32(0), []byte{0x01}),
		{0xE7},
		cat([]byte{0xF2, 0x00, 0x01}, str("Alice"), str("comment")),
		{0xF3},
		{0xF4},
		cat([]byte{0xF5}, u16(1)),
		cat([]byte{0xF6, 0x00}, u16(3031), u16(1), []byte{10, 0, 0, 0, 0, 0, 0, 0, 0}),
		cat([]byte{0xF7}, u32(1), u16(1)),
		cat([]byte{0xF8}, u32(1), u16(1), u16(1)),
		cat([]byte{0xF9}, u32(1), []byte{0x01, 0x00}),
	}

	for _, pkt := range packets {
		g, c, _ := dispatchGame(t)
		g.dispatchPacket(c, pkt)
		require.Equalf(t, gameserver.StateOK, c.State(),
			"command %#x detached on a well-formed body", pkt[0])
	}
}
