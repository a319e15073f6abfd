package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/otgate/internal/constants"
	"github.com/udisondev/otgate/internal/gameserver"
	"github.com/udisondev/otgate/internal/model"
)

// performLogin resolves a completed handshake on the game loop. Every
// refusal sends a login-error (or wait-list) packet and moves the
// connection to CLOSE so the client sees the reason before the socket
// shuts down; the one exception is a world in shutdown, where the
// connection is aborted without a packet.
func (g *Game) performLogin(c *gameserver.Conn, gamemaster bool, sessionToken []byte, characterName string) {
	_ = gamemaster // client-declared, not trusted; the account type decides

	if len(sessionToken) == 0 || characterName == "" {
		g.refuseLogin(c, "Malformed session data.")
		return
	}

	if v := c.TerminalVersion(); v < constants.ClientVersionMin || v > constants.ClientVersionMax {
		g.refuseLogin(c, fmt.Sprintf("Only clients with protocol %s allowed!", constants.ClientVersionStr))
		return
	}

	switch g.state {
	case WorldStateStartup:
		g.refuseLogin(c, "Gameworld is starting up. Please wait.")
		return
	case WorldStateMaintain:
		g.refuseLogin(c, "Gameworld is under maintenance. Please re-connect in a while.")
		return
	case WorldStateShutdown:
		c.Abort()
		return
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if ban, err := g.store.IPBan(dbCtx, c.IP()); err != nil {
		slog.Error("ip ban lookup failed", "client", c.IP(), "error", err)
		g.refuseLogin(c, "Internal error, please try again later.")
		return
	} else if ban != nil {
		g.refuseLogin(c, fmt.Sprintf(
			"Your IP has been banned until %s by %s.\n\nReason specified:\n%s",
			formatDateShort(ban.ExpiresAt), ban.BannedBy, ban.Reason))
		return
	}

	session, err := g.store.LoadSession(dbCtx, sessionToken, characterName)
	if err != nil {
		slog.Error("session lookup failed", "client", c.IP(), "error", err)
		g.refuseLogin(c, "Internal error, please try again later.")
		return
	}
	if session == nil || session.AccountID == 0 {
		g.refuseLogin(c, "Account name or password is not correct.")
		return
	}

	if session.IP != c.IP() {
		g.refuseLogin(c, "Your game session is already locked to a different IP. Please log in again.")
		return
	}

	if _, online := g.players[session.CharacterID]; online && !g.cfg.AllowClones {
		g.refuseLogin(c, "You are already logged in.")
		return
	}

	player, err := g.store.LoadPlayer(dbCtx, session.CharacterID)
	if err != nil {
		slog.Error("player load failed", "client", c.IP(), "error", err)
		player = nil
	}
	if player == nil {
		g.refuseLogin(c, "Your character could not be loaded.")
		return
	}

	if locked, err := g.store.IsNamelocked(dbCtx, player.GUID); err != nil {
		slog.Error("namelock lookup failed", "client", c.IP(), "error", err)
		g.refuseLogin(c, "Internal error, please try again later.")
		return
	} else if locked {
		g.refuseLogin(c, "Your character has been namelocked.")
		return
	}

	if g.state == WorldStateClosing && !player.HasFlag(model.FlagCanAlwaysLogin) {
		g.refuseLogin(c, "The game is just going down.\nPlease try again later.")
		return
	}

	if g.state == WorldStateClosed && !player.HasFlag(model.FlagCanAlwaysLogin) {
		g.refuseLogin(c, "Server is currently closed.\nPlease try again later.")
		return
	}

	if g.cfg.OnePlayerPerAccount && !g.cfg.AllowClones && !player.IsGamemaster() && g.accountOnline(player.AccountID) {
		g.refuseLogin(c, "You may only login with one character\nof your account at the same time.")
		return
	}

	if !player.HasFlag(model.FlagCannotBeBanned) {
		ban, err := g.store.AccountBan(dbCtx, player.AccountID)
		if err != nil {
			slog.Error("account ban lookup failed", "client", c.IP(), "error", err)
			g.refuseLogin(c, "Internal error, please try again later.")
			return
		}
		if ban != nil {
			if ban.Permanent() {
				g.refuseLogin(c, fmt.Sprintf(
					"Your account has been permanently banned by %s.\n\nReason specified:\n%s",
					ban.BannedBy, ban.Reason))
			} else {
				g.refuseLogin(c, fmt.Sprintf(
					"Your account has been banned until %s by %s.\n\nReason specified:\n%s",
					formatDateShort(ban.ExpiresAt), ban.BannedBy, ban.Reason))
			}
			return
		}
	}

	if g.cfg.FreePremium {
		player.Premium = true
	}

	if slot, retry := g.waitList.Slot(player, len(g.players), g.cfg.MaxPlayers); slot > 0 {
		gameserver.SendLoginWait(g.arena, c, fmt.Sprintf(
			"Too many players online.\nYou are at place %d on the waiting list.", slot), retry)
		return
	}

	if !g.placeCreature(player, player.Position) {
		g.refuseLogin(c, "Temple position is wrong. Contact the administrator.")
		return
	}

	player.ConnectionID = c.ID()
	c.SetPlayerGUID(player.GUID)
	g.conns[c.ID()] = c

	if err := g.store.UpdateLastLogin(dbCtx, player.GUID, time.Now()); err != nil {
		slog.Error("failed to update last login", "player", player.Name, "error", err)
	}

	if c.TerminalType() >= constants.TerminalOTClientLinux {
		gameserver.SendEnableExtendedOpcode(g.arena, c)
	}

	c.ResolveLogin(gameserver.StateOK)
	slog.Info("player entered world",
		"player", player.Name,
		"client", c.IP(),
		"online", len(g.players))
}

// refuseLogin sends the login-error packet and logs the refusal.
func (g *Game) refuseLogin(c *gameserver.Conn, message string) {
	slog.Info("login refused", "client", c.IP(), "reason", message)
	gameserver.SendLoginError(g.arena, c, message)
}

// formatDateShort renders a unix timestamp the way ban messages expect.
func formatDateShort(ts int64) string {
	return time.Unix(ts, 0).Format("02 Jan 2006 15:04")
}
