package model

import "github.com/udisondev/otgate/internal/protocol"

// PlayerFlag is a per-character privilege bit.
type PlayerFlag uint32

const (
	FlagCanAlwaysLogin PlayerFlag = 1 << iota
	FlagCannotBeBanned
)

// Direction is a facing or step direction as carried on the wire.
// Autowalk encodes directions 1..8 (E, NE, N, NW, W, SW, S, SE).
type Direction byte

const (
	DirectionNorth Direction = iota
	DirectionEast
	DirectionSouth
	DirectionWest
	DirectionSouthWest
	DirectionSouthEast
	DirectionNorthWest
	DirectionNorthEast
)

// Player is the game-side character record. Players are owned by the game
// registry and keyed by guid; connections refer to them by guid only, so
// detaching a connection cannot leak a player reference.
type Player struct {
	GUID        uint32
	Name        string
	AccountID   int64
	AccountType AccountType
	Premium     bool
	Flags       PlayerFlag

	Position  protocol.Position
	Direction Direction

	Dead    bool
	Removed bool

	// ConnectionID is the id of the attached connection, zero when the
	// player is link-dead. Written only on the game loop.
	ConnectionID uint64
}

// HasFlag reports whether the player carries the given privilege bit.
func (p *Player) HasFlag(f PlayerFlag) bool {
	return p.Flags&f != 0
}

// IsGamemaster reports whether the account bypasses admission control.
func (p *Player) IsGamemaster() bool {
	return p.AccountType >= AccountTypeGamemaster
}
