package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/otgate/internal/config"
	"github.com/udisondev/otgate/internal/gameserver"
	"github.com/udisondev/otgate/internal/model"
	"github.com/udisondev/otgate/internal/protocol"
)

// WorldState gates what the login path accepts.
type WorldState int

const (
	WorldStateStartup WorldState = iota
	WorldStateOpen
	WorldStateClosed
	WorldStateMaintain
	WorldStateClosing
	WorldStateShutdown
)

// AccountStore is the persistence surface the game loop consumes.
// Implemented by *db.DB; faked in tests.
type AccountStore interface {
	LoadSession(ctx context.Context, token []byte, characterName string) (*model.Session, error)
	IPBan(ctx context.Context, ip string) (*model.Ban, error)
	AccountBan(ctx context.Context, accountID int64) (*model.Ban, error)
	IsNamelocked(ctx context.Context, guid uint32) (bool, error)
	LoadPlayer(ctx context.Context, guid uint32) (*model.Player, error)
	SetOnline(ctx context.Context, guid uint32) error
	SetOffline(ctx context.Context, guid uint32) error
	UpdateLastLogin(ctx context.Context, guid uint32, when time.Time) error
}

// StatusSink receives the opaque status string the game loop publishes.
type StatusSink interface {
	SetStatusString([]byte)
}

const dispatcherDepth = 4096

// Game owns every player and all gameplay-side connection state. All of
// its unexported methods run on the dispatcher goroutine; the exported
// World methods are the cross-thread entry points and only post tasks.
type Game struct {
	cfg    config.Config
	store  AccountStore
	arena  *protocol.Arena
	status StatusSink

	dispatcher *Dispatcher
	startTime  time.Time

	// Game-loop-owned state.
	state    WorldState
	players  map[uint32]*model.Player
	conns    map[uint64]*gameserver.Conn
	waitList WaitList
}

// New creates the game core. The arena is shared with the game service
// so enqueued output reuses the same free list.
func New(cfg config.Config, store AccountStore, arena *protocol.Arena, status StatusSink) *Game {
	return &Game{
		cfg:        cfg,
		store:      store,
		arena:      arena,
		status:     status,
		dispatcher: NewDispatcher(dispatcherDepth),
		startTime:  time.Now(),
		state:      WorldStateStartup,
		players:    make(map[uint32]*model.Player),
		conns:      make(map[uint64]*gameserver.Conn),
	}
}

// Run opens the world and drives the game loop until the context is
// cancelled, republishing the status string on a fixed cadence.
func (g *Game) Run(ctx context.Context) error {
	g.dispatcher.Add(func() {
		g.state = WorldStateOpen
		g.publishStatus()
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				g.dispatcher.Add(g.publishStatus)
			case <-ctx.Done():
				return
			}
		}
	}()

	return g.dispatcher.Run(ctx)
}

// Shutdown flips the world state so in-flight logins are refused while
// the listeners wind down.
func (g *Game) Shutdown() {
	g.dispatcher.Add(func() { g.state = WorldStateShutdown })
}

// UptimeSeconds implements gameserver.World.
func (g *Game) UptimeSeconds() uint64 {
	return uint64(time.Since(g.startTime) / time.Second)
}

// HandleLogin implements gameserver.World: posts the validated handshake
// to the game loop.
func (g *Game) HandleLogin(c *gameserver.Conn, gamemaster bool, sessionToken []byte, characterName string) {
	g.dispatcher.Add(func() {
		g.performLogin(c, gamemaster, sessionToken, characterName)
	})
}

// HandlePacket implements gameserver.World: posts one inbound packet to
// the game loop, preserving arrival order per connection.
func (g *Game) HandlePacket(c *gameserver.Conn, data []byte) {
	g.dispatcher.Add(func() {
		g.dispatchPacket(c, data)
	})
}

// ConnectionClosed implements gameserver.World.
func (g *Game) ConnectionClosed(c *gameserver.Conn) {
	g.dispatcher.Add(func() {
		g.detach(c)
	})
}

// PlayerCount returns the number of players in the world. Cross-thread
// callers go through the dispatcher.
func (g *Game) PlayerCount(ctx context.Context) (int, error) {
	result := make(chan int, 1)
	g.dispatcher.Add(func() { result <- len(g.players) })
	select {
	case n := <-result:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// placeCreature inserts the player into the world at the given position.
func (g *Game) placeCreature(p *model.Player, pos protocol.Position) bool {
	if _, online := g.players[p.GUID]; online {
		return false
	}
	p.Position = pos
	g.players[p.GUID] = p

	dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := g.store.SetOnline(dbCtx, p.GUID); err != nil {
		slog.Error("failed to mark player online", "player", p.Name, "error", err)
	}
	return true
}

// removeCreature takes the player out of the world.
func (g *Game) removeCreature(p *model.Player) {
	delete(g.players, p.GUID)

	dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := g.store.SetOffline(dbCtx, p.GUID); err != nil {
		slog.Error("failed to mark player offline", "player", p.Name, "error", err)
	}
}

// playerByConn resolves the player attached to the connection.
func (g *Game) playerByConn(c *gameserver.Conn) *model.Player {
	guid := c.PlayerGUID()
	if guid == 0 {
		return nil
	}
	return g.players[guid]
}

// accountOnline reports whether any world player belongs to the account.
func (g *Game) accountOnline(accountID int64) bool {
	for _, p := range g.players {
		if p.AccountID == accountID {
			return true
		}
	}
	return false
}

// detach severs the player↔connection link in one critical section of
// the game loop and releases the player from the world. The connection
// moves to CLOSE so its writer drains anything still queued.
func (g *Game) detach(c *gameserver.Conn) {
	c.Transition(gameserver.StateOK, gameserver.StateClose)
	delete(g.conns, c.ID())

	guid := c.PlayerGUID()
	if guid == 0 {
		return
	}
	c.SetPlayerGUID(0)

	if p, ok := g.players[guid]; ok && p.ConnectionID == c.ID() {
		p.ConnectionID = 0
		g.removeCreature(p)
		slog.Info("player left", "player", p.Name, "client", c.IP())
	}
}

// logout honours a client logout request.
func (g *Game) logout(c *gameserver.Conn, forced bool) {
	if p := g.playerByConn(c); p != nil {
		slog.Info("player logout", "player", p.Name, "forced", forced)
	}
	g.detach(c)
	c.Close(false)
}

// publishStatus renders the opaque status document the status service
// serves.
func (g *Game) publishStatus() {
	uptime := g.UptimeSeconds()
	status := fmt.Sprintf(
		`<?xml version="1.0"?><tsqp version="1.0">`+
			`<serverinfo uptime="%d" ip="%s" servername="%s" port="%d" location="%s" server="otgate"/>`+
			`<players online="%d" max="%d"/>`+
			`</tsqp>`,
		uptime, g.cfg.IP, g.cfg.ServerName, g.cfg.GamePort, g.cfg.Location,
		len(g.players), g.cfg.MaxPlayers)
	g.status.SetStatusString([]byte(status))
}
