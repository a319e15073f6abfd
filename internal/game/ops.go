package game

import (
	"log/slog"

	"github.com/udisondev/otgate/internal/gameserver"
	"github.com/udisondev/otgate/internal/model"
	"github.com/udisondev/otgate/internal/protocol"
)

// Speak classes recognized on 0x96. Private and channel speech carry an
// extra receiver or channel argument before the text.
const (
	speakSay            = 1
	speakWhisper        = 2
	speakYell           = 3
	speakPrivateTo      = 5
	speakChannelYellow  = 7
	speakChannelOrange  = 8
	speakPrivateRedTo   = 10
	speakChannelRed     = 11
	speakBroadcast      = 13
)

const maxSayLength = 255

// The operations below are the world half of the dispatch table. The
// front-end decodes each command tuple with the shared cursor and the
// world applies whatever simulation it carries; here that is the
// protocol-visible part: position/direction bookkeeping, ping replies
// and structured logging for the systems living outside this process.

func (g *Game) parsePing(c *gameserver.Conn) {
	gameserver.SendPingBack(g.arena, c)
}

func (g *Game) parsePingBack(c *gameserver.Conn, p *model.Player) {
	slog.Debug("pingback", "player", p.Name, "client", c.IP())
}

func (g *Game) parseExtendedOpcode(c *gameserver.Conn, p *model.Player, msg *protocol.NetworkMessage) {
	opcode := msg.GetByte()
	payload := msg.GetString()
	if c.TerminalType() < 10 {
		return
	}
	slog.Debug("extended opcode", "player", p.Name, "opcode", opcode, "size", len(payload))
}

func (g *Game) playerWalk(p *model.Player, dir model.Direction) {
	p.Direction = dir
	slog.Debug("walk", "player", p.Name, "direction", dir)
}

func (g *Game) parseAutoWalk(c *gameserver.Conn, p *model.Player, msg *protocol.NetworkMessage) {
	n := int(msg.GetByte())
	if n == 0 {
		return
	}
	dirs := make([]model.Direction, 0, n)
	for range n {
		raw := msg.GetByte()
		if int(raw) >= len(autowalkDirections) || raw == 0 {
			continue
		}
		dirs = append(dirs, autowalkDirections[raw])
	}
	if msg.IsOverrun() || len(dirs) == 0 {
		return
	}
	p.Direction = dirs[len(dirs)-1]
	slog.Debug("autowalk", "player", p.Name, "steps", len(dirs))
}

func (g *Game) playerStopAutoWalk(p *model.Player) {
	slog.Debug("stop autowalk", "player", p.Name)
}

func (g *Game) playerTurn(p *model.Player, dir model.Direction) {
	p.Direction = dir
	slog.Debug("turn", "player", p.Name, "direction", dir)
}

func (g *Game) parseEquipObject(p *model.Player, msg *protocol.NetworkMessage) {
	spriteID := msg.GetUint16()
	smartMode := msg.GetByte()
	slog.Debug("equip", "player", p.Name, "sprite", spriteID, "smart", smartMode)
}

func (g *Game) parseThrow(p *model.Player, msg *protocol.NetworkMessage) {
	from := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	to := msg.GetPosition()
	count := msg.GetByte()
	slog.Debug("throw", "player", p.Name, "sprite", spriteID, "stack", stackPos,
		"from", from, "to", to, "count", count)
}

func (g *Game) parseLookInShop(p *model.Player, msg *protocol.NetworkMessage) {
	itemID := msg.GetUint16()
	count := msg.GetByte()
	slog.Debug("look in shop", "player", p.Name, "item", itemID, "count", count)
}

func (g *Game) parsePurchase(p *model.Player, msg *protocol.NetworkMessage) {
	itemID := msg.GetUint16()
	count := msg.GetByte()
	amount := msg.GetUint16()
	ignoreCap := msg.GetByte() != 0
	inBackpacks := msg.GetByte() != 0
	slog.Debug("purchase", "player", p.Name, "item", itemID, "count", count,
		"amount", amount, "ignoreCap", ignoreCap, "inBackpacks", inBackpacks)
}

func (g *Game) parseSale(p *model.Player, msg *protocol.NetworkMessage) {
	itemID := msg.GetUint16()
	count := msg.GetByte()
	amount := msg.GetUint16()
	ignoreEquipped := msg.GetByte() != 0
	slog.Debug("sale", "player", p.Name, "item", itemID, "count", count,
		"amount", amount, "ignoreEquipped", ignoreEquipped)
}

func (g *Game) playerCloseShop(p *model.Player) {
	slog.Debug("close shop", "player", p.Name)
}

func (g *Game) parseRequestTrade(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	partnerID := msg.GetUint32()
	slog.Debug("request trade", "player", p.Name, "pos", pos, "sprite", spriteID,
		"stack", stackPos, "partner", partnerID)
}

func (g *Game) parseLookInTrade(p *model.Player, msg *protocol.NetworkMessage) {
	counterOffer := msg.GetByte() != 0
	index := msg.GetByte()
	slog.Debug("look in trade", "player", p.Name, "counterOffer", counterOffer, "index", index)
}

func (g *Game) playerAcceptTrade(p *model.Player) {
	slog.Debug("accept trade", "player", p.Name)
}

func (g *Game) playerCloseTrade(p *model.Player) {
	slog.Debug("close trade", "player", p.Name)
}

func (g *Game) parseUseItem(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	index := msg.GetByte()
	slog.Debug("use item", "player", p.Name, "pos", pos, "sprite", spriteID,
		"stack", stackPos, "index", index)
}

func (g *Game) parseUseItemEx(p *model.Player, msg *protocol.NetworkMessage) {
	fromPos := msg.GetPosition()
	fromSprite := msg.GetUint16()
	fromStack := msg.GetByte()
	toPos := msg.GetPosition()
	toSprite := msg.GetUint16()
	toStack := msg.GetByte()
	slog.Debug("use item ex", "player", p.Name,
		"from", fromPos, "fromSprite", fromSprite, "fromStack", fromStack,
		"to", toPos, "toSprite", toSprite, "toStack", toStack)
}

func (g *Game) parseUseWithCreature(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	creatureID := msg.GetUint32()
	slog.Debug("use with creature", "player", p.Name, "pos", pos,
		"sprite", spriteID, "stack", stackPos, "creature", creatureID)
}

func (g *Game) parseRotateItem(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	slog.Debug("rotate item", "player", p.Name, "pos", pos, "sprite", spriteID, "stack", stackPos)
}

func (g *Game) parseEditPodium(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	slog.Debug("edit podium", "player", p.Name, "pos", pos, "sprite", spriteID, "stack", stackPos)
}

func (g *Game) parseCloseContainer(p *model.Player, msg *protocol.NetworkMessage) {
	containerID := msg.GetByte()
	slog.Debug("close container", "player", p.Name, "container", containerID)
}

func (g *Game) parseUpArrowContainer(p *model.Player, msg *protocol.NetworkMessage) {
	containerID := msg.GetByte()
	slog.Debug("container parent", "player", p.Name, "container", containerID)
}

func (g *Game) parseTextWindow(p *model.Player, msg *protocol.NetworkMessage) {
	windowID := msg.GetUint32()
	text := msg.GetString()
	slog.Debug("text window", "player", p.Name, "window", windowID, "size", len(text))
}

func (g *Game) parseHouseWindow(p *model.Player, msg *protocol.NetworkMessage) {
	doorID := msg.GetByte()
	windowID := msg.GetUint32()
	text := msg.GetString()
	slog.Debug("house window", "player", p.Name, "door", doorID, "window", windowID, "size", len(text))
}

func (g *Game) parseWrapItem(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	slog.Debug("wrap item", "player", p.Name, "pos", pos, "sprite", spriteID, "stack", stackPos)
}

func (g *Game) parseLookAt(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	slog.Debug("look at", "player", p.Name, "pos", pos, "sprite", spriteID, "stack", stackPos)
}

func (g *Game) parseLookInBattleList(p *model.Player, msg *protocol.NetworkMessage) {
	creatureID := msg.GetUint32()
	slog.Debug("look in battle list", "player", p.Name, "creature", creatureID)
}

func (g *Game) parseQuickLoot(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	spriteID := msg.GetUint16()
	stackPos := msg.GetByte()
	slog.Debug("quick loot", "player", p.Name, "pos", pos, "sprite", spriteID, "stack", stackPos)
}

func (g *Game) parseSay(c *gameserver.Conn, p *model.Player, msg *protocol.NetworkMessage) {
	var (
		receiver  string
		channelID uint16
	)
	speakType := msg.GetByte()
	switch speakType {
	case speakPrivateTo, speakPrivateRedTo:
		receiver = msg.GetString()
	case speakChannelYellow, speakChannelOrange, speakChannelRed:
		channelID = msg.GetUint16()
	}

	text := msg.GetString()
	if len(text) > maxSayLength || msg.IsOverrun() {
		g.detach(c)
		return
	}
	if len(text) == 0 {
		return
	}

	slog.Debug("say", "player", p.Name, "type", speakType,
		"receiver", receiver, "channel", channelID, "size", len(text))
}

func (g *Game) playerRequestChannels(p *model.Player) {
	slog.Debug("request channels", "player", p.Name)
}

func (g *Game) parseOpenChannel(p *model.Player, msg *protocol.NetworkMessage) {
	channelID := msg.GetUint16()
	slog.Debug("open channel", "player", p.Name, "channel", channelID)
}

func (g *Game) parseCloseChannel(p *model.Player, msg *protocol.NetworkMessage) {
	channelID := msg.GetUint16()
	slog.Debug("close channel", "player", p.Name, "channel", channelID)
}

func (g *Game) parseOpenPrivateChannel(p *model.Player, msg *protocol.NetworkMessage) {
	receiver := msg.GetString()
	slog.Debug("open private channel", "player", p.Name, "receiver", receiver)
}

func (g *Game) playerCloseNpcChannel(p *model.Player) {
	slog.Debug("close npc channel", "player", p.Name)
}

func (g *Game) parseFightModes(p *model.Player, msg *protocol.NetworkMessage) {
	fightMode := msg.GetByte()
	chaseMode := msg.GetByte()
	secureMode := msg.GetByte()
	slog.Debug("fight modes", "player", p.Name,
		"fight", fightMode, "chase", chaseMode, "secure", secureMode)
}

func (g *Game) parseAttack(p *model.Player, msg *protocol.NetworkMessage) {
	creatureID := msg.GetUint32()
	seq := msg.GetUint32()
	slog.Debug("attack", "player", p.Name, "creature", creatureID, "seq", seq)
}

func (g *Game) parseFollow(p *model.Player, msg *protocol.NetworkMessage) {
	creatureID := msg.GetUint32()
	slog.Debug("follow", "player", p.Name, "creature", creatureID)
}

func (g *Game) parsePartyInvite(p *model.Player, msg *protocol.NetworkMessage) {
	targetID := msg.GetUint32()
	slog.Debug("party invite", "player", p.Name, "target", targetID)
}

func (g *Game) parsePartyJoin(p *model.Player, msg *protocol.NetworkMessage) {
	leaderID := msg.GetUint32()
	slog.Debug("party join", "player", p.Name, "leader", leaderID)
}

func (g *Game) parsePartyRevokeInvite(p *model.Player, msg *protocol.NetworkMessage) {
	targetID := msg.GetUint32()
	slog.Debug("party revoke invite", "player", p.Name, "target", targetID)
}

func (g *Game) parsePartyPassLeadership(p *model.Player, msg *protocol.NetworkMessage) {
	targetID := msg.GetUint32()
	slog.Debug("party pass leadership", "player", p.Name, "target", targetID)
}

func (g *Game) playerLeaveParty(p *model.Player) {
	slog.Debug("leave party", "player", p.Name)
}

func (g *Game) parsePartySharedExperience(p *model.Player, msg *protocol.NetworkMessage) {
	active := msg.GetByte() != 0
	slog.Debug("party shared experience", "player", p.Name, "active", active)
}

func (g *Game) playerCreatePrivateChannel(p *model.Player) {
	slog.Debug("create private channel", "player", p.Name)
}

func (g *Game) parseChannelInvite(p *model.Player, msg *protocol.NetworkMessage) {
	name := msg.GetString()
	slog.Debug("channel invite", "player", p.Name, "target", name)
}

func (g *Game) parseChannelExclude(p *model.Player, msg *protocol.NetworkMessage) {
	name := msg.GetString()
	slog.Debug("channel exclude", "player", p.Name, "target", name)
}

func (g *Game) playerCancelAttackAndFollow(p *model.Player) {
	slog.Debug("cancel attack and follow", "player", p.Name)
}

func (g *Game) parseUpdateContainer(p *model.Player, msg *protocol.NetworkMessage) {
	containerID := msg.GetByte()
	slog.Debug("update container", "player", p.Name, "container", containerID)
}

func (g *Game) parseBrowseField(p *model.Player, msg *protocol.NetworkMessage) {
	pos := msg.GetPosition()
	slog.Debug("browse field", "player", p.Name, "pos", pos)
}

func (g *Game) parseSeekInContainer(p *model.Player, msg *protocol.NetworkMessage) {
	containerID := msg.GetByte()
	index := msg.GetUint16()
	slog.Debug("seek in container", "player", p.Name, "container", containerID, "index", index)
}

func (g *Game) playerRequestOutfit(p *model.Player) {
	slog.Debug("request outfit", "player", p.Name)
}

func (g *Game) parseSetOutfit(p *model.Player, msg *protocol.NetworkMessage) {
	lookType := msg.GetUint16()
	head := msg.GetByte()
	body := msg.GetByte()
	legs := msg.GetByte()
	feet := msg.GetByte()
	addons := msg.GetByte()
	mount := msg.GetUint16()
	slog.Debug("set outfit", "player", p.Name, "lookType", lookType,
		"head", head, "body", body, "legs", legs, "feet", feet,
		"addons", addons, "mount", mount)
}

func (g *Game) parseAddVip(p *model.Player, msg *protocol.NetworkMessage) {
	name := msg.GetString()
	slog.Debug("add vip", "player", p.Name, "target", name)
}

func (g *Game) parseRemoveVip(p *model.Player, msg *protocol.NetworkMessage) {
	guid := msg.GetUint32()
	slog.Debug("remove vip", "player", p.Name, "target", guid)
}

func (g *Game) parseEditVip(p *model.Player, msg *protocol.NetworkMessage) {
	guid := msg.GetUint32()
	description := msg.GetString()
	icon := msg.GetUint32()
	notify := msg.GetByte() != 0
	slog.Debug("edit vip", "player", p.Name, "target", guid,
		"description", description, "icon", icon, "notify", notify)
}

// parseDebugAssert accepts one client assertion report per connection;
// repeats are dropped without decoding.
func (g *Game) parseDebugAssert(c *gameserver.Conn, p *model.Player, msg *protocol.NetworkMessage) {
	if !c.DebugAssertOnce() {
		return
	}
	assertLine := msg.GetString()
	date := msg.GetString()
	description := msg.GetString()
	comment := msg.GetString()
	slog.Info("client debug assert",
		"player", p.Name,
		"assert", assertLine,
		"date", date,
		"description", description,
		"comment", comment)
}

func (g *Game) parseRuleViolationReport(p *model.Player, msg *protocol.NetworkMessage) {
	reportType := msg.GetByte()
	reason := msg.GetByte()
	targetName := msg.GetString()
	comment := msg.GetString()
	slog.Info("rule violation report",
		"player", p.Name,
		"type", reportType,
		"reason", reason,
		"target", targetName,
		"size", len(comment))
}

func (g *Game) playerMarketLeave(p *model.Player) {
	slog.Debug("market leave", "player", p.Name)
}

func (g *Game) parseMarketBrowse(p *model.Player, msg *protocol.NetworkMessage) {
	browseID := msg.GetUint16()
	slog.Debug("market browse", "player", p.Name, "browse", browseID)
}

func (g *Game) parseMarketCreateOffer(p *model.Player, msg *protocol.NetworkMessage) {
	offerType := msg.GetByte()
	spriteID := msg.GetUint16()
	amount := msg.GetUint16()
	price := msg.GetUint64()
	anonymous := msg.GetByte() != 0
	slog.Debug("market create offer", "player", p.Name, "type", offerType,
		"sprite", spriteID, "amount", amount, "price", price, "anonymous", anonymous)
}

func (g *Game) parseMarketCancelOffer(p *model.Player, msg *protocol.NetworkMessage) {
	timestamp := msg.GetUint32()
	counter := msg.GetUint16()
	slog.Debug("market cancel offer", "player", p.Name, "timestamp", timestamp, "counter", counter)
}

func (g *Game) parseMarketAcceptOffer(p *model.Player, msg *protocol.NetworkMessage) {
	timestamp := msg.GetUint32()
	counter := msg.GetUint16()
	amount := msg.GetUint16()
	slog.Debug("market accept offer", "player", p.Name,
		"timestamp", timestamp, "counter", counter, "amount", amount)
}

func (g *Game) parseModalWindowAnswer(p *model.Player, msg *protocol.NetworkMessage) {
	windowID := msg.GetUint32()
	button := msg.GetByte()
	choice := msg.GetByte()
	slog.Debug("modal window answer", "player", p.Name,
		"window", windowID, "button", button, "choice", choice)
}
