package game

import (
	"log/slog"

	"github.com/udisondev/otgate/internal/gameserver"
	"github.com/udisondev/otgate/internal/model"
	"github.com/udisondev/otgate/internal/protocol"
)

// Autowalk wire directions, 1..8.
var autowalkDirections = [...]model.Direction{
	1: model.DirectionEast,
	2: model.DirectionNorthEast,
	3: model.DirectionNorth,
	4: model.DirectionNorthWest,
	5: model.DirectionWest,
	6: model.DirectionSouthWest,
	7: model.DirectionSouth,
	8: model.DirectionSouthEast,
}

// dispatchPacket decodes one inbound command on the game loop and
// invokes the matching world operation. The read cursor is shared by
// every decode; an overrun detected afterwards means the packet was
// malformed and the connection is detached.
func (g *Game) dispatchPacket(c *gameserver.Conn, data []byte) {
	var msg protocol.NetworkMessage
	msg.AddBytes(data)

	if !msg.CanRead(1) || msg.IsOverrun() || g.state == WorldStateShutdown {
		return
	}

	command := msg.GetByte()

	player := g.playerByConn(c)
	if player == nil {
		g.detach(c)
		return
	}
	if player.Dead || player.Removed {
		if command == 0x14 {
			g.logout(c, false)
		} else {
			g.detach(c)
		}
		return
	}

	switch command {
	case 0x14:
		g.logout(c, false)
	case 0x1D:
		g.parsePingBack(c, player)
	case 0x1E:
		g.parsePing(c)
	case 0x32:
		g.parseExtendedOpcode(c, player, &msg)
	case 0x64:
		g.parseAutoWalk(c, player, &msg)
	case 0x65:
		g.playerWalk(player, model.DirectionNorth)
	case 0x66:
		g.playerWalk(player, model.DirectionEast)
	case 0x67:
		g.playerWalk(player, model.DirectionSouth)
	case 0x68:
		g.playerWalk(player, model.DirectionWest)
	case 0x69:
		g.playerStopAutoWalk(player)
	case 0x6A:
		g.playerWalk(player, model.DirectionNorthEast)
	case 0x6B:
		g.playerWalk(player, model.DirectionSouthEast)
	case 0x6C:
		g.playerWalk(player, model.DirectionSouthWest)
	case 0x6D:
		g.playerWalk(player, model.DirectionNorthWest)
	case 0x6F:
		g.playerTurn(player, model.DirectionNorth)
	case 0x70:
		g.playerTurn(player, model.DirectionEast)
	case 0x71:
		g.playerTurn(player, model.DirectionSouth)
	case 0x72:
		g.playerTurn(player, model.DirectionWest)
	case 0x77:
		g.parseEquipObject(player, &msg)
	case 0x78:
		g.parseThrow(player, &msg)
	case 0x79:
		g.parseLookInShop(player, &msg)
	case 0x7A:
		g.parsePurchase(player, &msg)
	case 0x7B:
		g.parseSale(player, &msg)
	case 0x7C:
		g.playerCloseShop(player)
	case 0x7D:
		g.parseRequestTrade(player, &msg)
	case 0x7E:
		g.parseLookInTrade(player, &msg)
	case 0x7F:
		g.playerAcceptTrade(player)
	case 0x80:
		g.playerCloseTrade(player)
	case 0x82:
		g.parseUseItem(player, &msg)
	case 0x83:
		g.parseUseItemEx(player, &msg)
	case 0x84:
		g.parseUseWithCreature(player, &msg)
	case 0x85:
		g.parseRotateItem(player, &msg)
	case 0x86:
		g.parseEditPodium(player, &msg)
	case 0x87:
		g.parseCloseContainer(player, &msg)
	case 0x88:
		g.parseUpArrowContainer(player, &msg)
	case 0x89:
		g.parseTextWindow(player, &msg)
	case 0x8A:
		g.parseHouseWindow(player, &msg)
	case 0x8B:
		g.parseWrapItem(player, &msg)
	case 0x8C:
		g.parseLookAt(player, &msg)
	case 0x8D:
		g.parseLookInBattleList(player, &msg)
	case 0x8E:
		// join aggression: accepted, no-op
	case 0x8F:
		g.parseQuickLoot(player, &msg)
	case 0x96:
		g.parseSay(c, player, &msg)
	case 0x97:
		g.playerRequestChannels(player)
	case 0x98:
		g.parseOpenChannel(player, &msg)
	case 0x99:
		g.parseCloseChannel(player, &msg)
	case 0x9A:
		g.parseOpenPrivateChannel(player, &msg)
	case 0x9E:
		g.playerCloseNpcChannel(player)
	case 0xA0:
		g.parseFightModes(player, &msg)
	case 0xA1:
		g.parseAttack(player, &msg)
	case 0xA2:
		g.parseFollow(player, &msg)
	case 0xA3:
		g.parsePartyInvite(player, &msg)
	case 0xA4:
		g.parsePartyJoin(player, &msg)
	case 0xA5:
		g.parsePartyRevokeInvite(player, &msg)
	case 0xA6:
		g.parsePartyPassLeadership(player, &msg)
	case 0xA7:
		g.playerLeaveParty(player)
	case 0xA8:
		g.parsePartySharedExperience(player, &msg)
	case 0xAA:
		g.playerCreatePrivateChannel(player)
	case 0xAB:
		g.parseChannelInvite(player, &msg)
	case 0xAC:
		g.parseChannelExclude(player, &msg)
	case 0xBE:
		g.playerCancelAttackAndFollow(player)
	case 0xC9:
		// update tile: accepted, no-op
	case 0xCA:
		g.parseUpdateContainer(player, &msg)
	case 0xCB:
		g.parseBrowseField(player, &msg)
	case 0xCC:
		g.parseSeekInContainer(player, &msg)
	case 0xD2:
		g.playerRequestOutfit(player)
	case 0xD3:
		g.parseSetOutfit(player, &msg)
	case 0xDC:
		g.parseAddVip(player, &msg)
	case 0xDD:
		g.parseRemoveVip(player, &msg)
	case 0xDE:
		g.parseEditVip(player, &msg)
	case 0xE7:
		// thank you: accepted, no-op
	case 0xE8:
		g.parseDebugAssert(c, player, &msg)
	case 0xF2:
		g.parseRuleViolationReport(player, &msg)
	case 0xF3:
		// get object info: accepted, no-op
	case 0xF4:
		g.playerMarketLeave(player)
	case 0xF5:
		g.parseMarketBrowse(player, &msg)
	case 0xF6:
		g.parseMarketCreateOffer(player, &msg)
	case 0xF7:
		g.parseMarketCancelOffer(player, &msg)
	case 0xF8:
		g.parseMarketAcceptOffer(player, &msg)
	case 0xF9:
		g.parseModalWindowAnswer(player, &msg)
	default:
		g.unhandledCommand(c, player, command)
		return
	}

	if msg.IsOverrun() {
		slog.Info("malformed packet",
			"player", player.Name,
			"command", command,
			"client", c.IP())
		g.detach(c)
	}
}

// unhandledCommand forwards one event to the log and closes the
// connection.
func (g *Game) unhandledCommand(c *gameserver.Conn, player *model.Player, command byte) {
	slog.Info("unhandled command",
		"player", player.Name,
		"command", command,
		"client", c.IP())
	g.detach(c)
}
