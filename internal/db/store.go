package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/udisondev/otgate/internal/model"
)

// AccountByEmail retrieves an account by email.
// Returns nil, nil if the account does not exist.
func (d *DB) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(email)
	var acc model.Account
	err := d.pool.QueryRow(ctx,
		`SELECT id, email, password, secret, premium_ends_at, type
		 FROM accounts WHERE email = $1`, email,
	).Scan(&acc.ID, &acc.Email, &acc.PasswordSHA1, &acc.Secret, &acc.PremiumEndsAt, &acc.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", email, err)
	}
	return &acc, nil
}

// InsertSession persists a freshly-minted session token bound to the
// requesting peer.
func (d *DB) InsertSession(ctx context.Context, token []byte, accountID int64, ip string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO sessions (token, account_id, ip, created_at)
		 VALUES ($1, $2, $3, $4)`,
		token, accountID, ip, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("inserting session for account %d: %w", accountID, err)
	}
	return nil
}

// LoadSession consumes a session token for the named character. The row
// is deleted on read so a token authenticates exactly one connection.
// Returns nil, nil when the token or character is unknown.
func (d *DB) LoadSession(ctx context.Context, token []byte, characterName string) (*model.Session, error) {
	var s model.Session
	err := d.pool.QueryRow(ctx,
		`DELETE FROM sessions s
		 USING players p
		 WHERE s.token = $1 AND p.account_id = s.account_id AND p.name = $2
		 RETURNING s.account_id, p.id, s.ip`,
		token, characterName,
	).Scan(&s.AccountID, &s.CharacterID, &s.IP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return &s, nil
}

// IPBan returns the active ban for the address, or nil.
func (d *DB) IPBan(ctx context.Context, ip string) (*model.Ban, error) {
	var ban model.Ban
	err := d.pool.QueryRow(ctx,
		`SELECT expires_at, reason, banned_by FROM ip_bans
		 WHERE ip = $1 AND (expires_at = 0 OR expires_at > $2)`,
		ip, time.Now().Unix(),
	).Scan(&ban.ExpiresAt, &ban.Reason, &ban.BannedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying ip ban %s: %w", ip, err)
	}
	return &ban, nil
}

// AccountBan returns the active ban for the account, or nil.
func (d *DB) AccountBan(ctx context.Context, accountID int64) (*model.Ban, error) {
	var ban model.Ban
	err := d.pool.QueryRow(ctx,
		`SELECT expires_at, reason, banned_by FROM account_bans
		 WHERE account_id = $1 AND (expires_at = 0 OR expires_at > $2)`,
		accountID, time.Now().Unix(),
	).Scan(&ban.ExpiresAt, &ban.Reason, &ban.BannedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account ban %d: %w", accountID, err)
	}
	return &ban, nil
}

// IsNamelocked reports whether the character is namelocked.
func (d *DB) IsNamelocked(ctx context.Context, guid uint32) (bool, error) {
	var locked bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM namelocks WHERE player_id = $1)`, guid,
	).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("querying namelock %d: %w", guid, err)
	}
	return locked, nil
}

// LoadPlayer loads the character record needed for the login decision.
// Returns nil, nil when the character does not exist.
func (d *DB) LoadPlayer(ctx context.Context, guid uint32) (*model.Player, error) {
	var (
		p             model.Player
		premiumEndsAt int64
		posX, posY    int
		posZ          int
	)
	err := d.pool.QueryRow(ctx,
		`SELECT p.id, p.name, p.account_id, a.type, a.premium_ends_at, p.flags,
		        p.pos_x, p.pos_y, p.pos_z
		 FROM players p JOIN accounts a ON a.id = p.account_id
		 WHERE p.id = $1`, guid,
	).Scan(&p.GUID, &p.Name, &p.AccountID, &p.AccountType, &premiumEndsAt,
		&p.Flags, &posX, &posY, &posZ)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading player %d: %w", guid, err)
	}
	p.Premium = premiumEndsAt >= time.Now().Unix()
	p.Position.X = uint16(posX)
	p.Position.Y = uint16(posY)
	p.Position.Z = byte(posZ)
	return &p, nil
}

// CharactersByAccount lists the per-character metadata for the login
// response.
func (d *DB) CharactersByAccount(ctx context.Context, accountID int64) ([]model.Character, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, name, level, vocation, lastlogin, sex,
		        looktype, lookhead, lookbody, looklegs, lookfeet, lookaddons
		 FROM players WHERE account_id = $1 ORDER BY name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying characters for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var characters []model.Character
	for rows.Next() {
		var (
			c   model.Character
			sex int
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Level, &c.Vocation, &c.LastLogin,
			&sex, &c.LookType, &c.LookHead, &c.LookBody, &c.LookLegs,
			&c.LookFeet, &c.LookAddons); err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		c.Male = sex == 1
		characters = append(characters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading characters: %w", err)
	}
	return characters, nil
}

// OnlineCount returns the number of characters currently marked online.
func (d *DB) OnlineCount(ctx context.Context) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM players_online`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting online players: %w", err)
	}
	return count, nil
}

// SetOnline marks the character online.
func (d *DB) SetOnline(ctx context.Context, guid uint32) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO players_online (player_id) VALUES ($1)
		 ON CONFLICT (player_id) DO NOTHING`, guid)
	if err != nil {
		return fmt.Errorf("marking player %d online: %w", guid, err)
	}
	return nil
}

// SetOffline clears the character's online mark.
func (d *DB) SetOffline(ctx context.Context, guid uint32) error {
	_, err := d.pool.Exec(ctx,
		`DELETE FROM players_online WHERE player_id = $1`, guid)
	if err != nil {
		return fmt.Errorf("marking player %d offline: %w", guid, err)
	}
	return nil
}

// UpdateLastLogin stamps the character's last login time.
func (d *DB) UpdateLastLogin(ctx context.Context, guid uint32, when time.Time) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE players SET lastlogin = $1 WHERE id = $2`, when.Unix(), guid)
	if err != nil {
		return fmt.Errorf("updating last login for %d: %w", guid, err)
	}
	return nil
}
