package model

import "time"

// AccountType mirrors the account privilege ladder. Gamemasters and above
// bypass admission control.
type AccountType int

const (
	AccountTypeNormal AccountType = iota + 1
	AccountTypeTutor
	AccountTypeSeniorTutor
	AccountTypeGamemaster
	AccountTypeGod
)

// Account is an account row as the login service sees it.
type Account struct {
	ID            int64
	Email         string
	PasswordSHA1  string // hex-encoded
	Secret        string // TOTP secret, empty = 2FA off
	PremiumEndsAt int64  // unix seconds, 0 = never premium
	Type          AccountType
}

// PremiumActive reports whether the account is premium at the given time.
func (a *Account) PremiumActive(now time.Time) bool {
	return a.PremiumEndsAt >= now.Unix()
}

// Session is a one-shot login ticket minted by the HTTP login service and
// consumed exactly once by the game handshake. The token is scoped to the
// peer IP it was minted for.
type Session struct {
	AccountID   int64
	CharacterID uint32
	IP          string
}

// Ban is an IP or account ban record. ExpiresAt zero means permanent.
type Ban struct {
	ExpiresAt int64
	Reason    string
	BannedBy  string
}

// Permanent reports whether the ban never expires.
func (b *Ban) Permanent() bool {
	return b.ExpiresAt == 0
}

// Character is the per-character metadata returned by the login service.
type Character struct {
	ID         uint32
	Name       string
	Level      int
	Vocation   string
	LastLogin  int64
	Male       bool
	LookType   int
	LookHead   int
	LookBody   int
	LookLegs   int
	LookFeet   int
	LookAddons int
}
