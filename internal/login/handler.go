package login

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/udisondev/otgate/internal/config"
	"github.com/udisondev/otgate/internal/constants"
	"github.com/udisondev/otgate/internal/crypto"
	"github.com/udisondev/otgate/internal/model"
)

// AccountStore is the persistence surface the login service consumes.
// Implemented by *db.DB; faked in tests.
type AccountStore interface {
	AccountByEmail(ctx context.Context, email string) (*model.Account, error)
	InsertSession(ctx context.Context, token []byte, accountID int64, ip string) error
	CharactersByAccount(ctx context.Context, accountID int64) ([]model.Character, error)
	OnlineCount(ctx context.Context) (int, error)
}

// Error codes sent to the launcher.
const (
	errCodeInternal    = 2
	errCodeBadAuth     = 3
	errCodeTokenNeeded = 6
)

// Handler answers the launcher's JSON requests.
type Handler struct {
	cfg   config.Config
	store AccountStore
}

// NewHandler creates a login request handler.
func NewHandler(cfg config.Config, store AccountStore) *Handler {
	return &Handler{cfg: cfg, store: store}
}

type loginRequest struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type errorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type sessionBlock struct {
	SessionKey            string `json:"sessionkey"`
	LastLoginTime         int64  `json:"lastlogintime"`
	IsPremium             bool   `json:"ispremium"`
	PremiumUntil          int64  `json:"premiumuntil"`
	Status                string `json:"status"`
	ReturnerNotification  bool   `json:"returnernotification"`
	ShowRewardNews        bool   `json:"showrewardnews"`
	IsReturner            bool   `json:"isreturner"`
	RecoverySetupComplete bool   `json:"recoverysetupcomplete"`
	FPSTracking           bool   `json:"fpstracking"`
	OptionTracking        bool   `json:"optiontracking"`
}

type worldBlock struct {
	ID                         int    `json:"id"`
	Name                       string `json:"name"`
	ExternalAddressProtected   string `json:"externaladdressprotected"`
	ExternalPortProtected      int    `json:"externalportprotected"`
	ExternalAddressUnprotected string `json:"externaladdressunprotected"`
	ExternalPortUnprotected    int    `json:"externalportunprotected"`
	PreviewState               int    `json:"previewstate"`
	Location                   string `json:"location"`
	AntiCheatProtection        bool   `json:"anticheatprotection"`
	PvPType                    int    `json:"pvptype"`
}

type characterBlock struct {
	WorldID          int    `json:"worldid"`
	Name             string `json:"name"`
	Level            int    `json:"level"`
	Vocation         string `json:"vocation"`
	LastLogin        int64  `json:"lastlogin"`
	IsMale           bool   `json:"ismale"`
	IsHidden         bool   `json:"ishidden"`
	IsMainCharacter  bool   `json:"ismaincharacter"`
	Tutorial         bool   `json:"tutorial"`
	OutfitID         int    `json:"outfitid"`
	HeadColor        int    `json:"headcolor"`
	TorsoColor       int    `json:"torsocolor"`
	LegsColor        int    `json:"legscolor"`
	DetailColor      int    `json:"detailcolor"`
	AddonsFlags      int    `json:"addonsflags"`
	DailyRewardState int    `json:"dailyrewardstate"`
}

type loginResponse struct {
	Session  sessionBlock `json:"session"`
	PlayData playData     `json:"playdata"`
}

type playData struct {
	Worlds     []worldBlock     `json:"worlds"`
	Characters []characterBlock `json:"characters"`
}

// ServeHTTP routes a launcher request by its JSON type field. Any path
// is accepted; the body decides.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{errCodeInternal, "Invalid request."})
		return
	}

	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	switch req.Type {
	case "login":
		h.handleLogin(r.Context(), w, peer, req)
	case "cacheinfo":
		h.handleCacheInfo(r.Context(), w)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{errCodeInternal, "Invalid request."})
	}
}

// handleLogin authenticates the account and mints a one-shot session
// token scoped to the requesting peer.
func (h *Handler) handleLogin(ctx context.Context, w http.ResponseWriter, peer string, req loginRequest) {
	acc, err := h.store.AccountByEmail(ctx, req.Email)
	if err != nil {
		slog.Error("account lookup failed", "email", req.Email, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{errCodeInternal, "Internal error."})
		return
	}
	if acc == nil || !passwordMatches(acc.PasswordSHA1, req.Password) {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{errCodeBadAuth, "Email address or password is not correct."})
		return
	}

	now := time.Now()
	if acc.Secret != "" {
		if req.Token == "" || !verifyTOTP(acc.Secret, req.Token, now.Unix()) {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{errCodeTokenNeeded, "Two-factor token required for authentication."})
			return
		}
	}

	token := make([]byte, constants.SessionTokenSize)
	crypto.Rand(token)
	if err := h.store.InsertSession(ctx, token, acc.ID, peer); err != nil {
		slog.Error("session insert failed", "account", acc.ID, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{errCodeInternal, "Internal error."})
		return
	}

	characters, err := h.store.CharactersByAccount(ctx, acc.ID)
	if err != nil {
		slog.Error("character list failed", "account", acc.ID, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{errCodeInternal, "Internal error."})
		return
	}

	var lastLogin int64
	charBlocks := make([]characterBlock, 0, len(characters))
	for _, c := range characters {
		charBlocks = append(charBlocks, characterBlock{
			Name:        c.Name,
			Level:       c.Level,
			Vocation:    c.Vocation,
			LastLogin:   c.LastLogin,
			IsMale:      c.Male,
			OutfitID:    c.LookType,
			HeadColor:   c.LookHead,
			TorsoColor:  c.LookBody,
			LegsColor:   c.LookLegs,
			DetailColor: c.LookFeet,
			AddonsFlags: c.LookAddons,
		})
		lastLogin = max(lastLogin, c.LastLogin)
	}

	slog.Info("login session minted", "email", acc.Email, "client", peer)

	writeJSON(w, http.StatusOK, loginResponse{
		Session: sessionBlock{
			SessionKey:            base64.StdEncoding.EncodeToString(token),
			LastLoginTime:         lastLogin,
			IsPremium:             acc.PremiumActive(now) || h.cfg.FreePremium,
			PremiumUntil:          acc.PremiumEndsAt,
			Status:                "active",
			ShowRewardNews:        true,
			IsReturner:            true,
			RecoverySetupComplete: true,
		},
		PlayData: playData{
			Worlds: []worldBlock{{
				Name:                       h.cfg.ServerName,
				ExternalAddressProtected:   h.cfg.IP,
				ExternalPortProtected:      h.cfg.GamePort,
				ExternalAddressUnprotected: h.cfg.IP,
				ExternalPortUnprotected:    h.cfg.GamePort,
				Location:                   h.cfg.Location,
			}},
			Characters: charBlocks,
		},
	})
}

// handleCacheInfo reports the online player count.
func (h *Handler) handleCacheInfo(ctx context.Context, w http.ResponseWriter) {
	count, err := h.store.OnlineCount(ctx)
	if err != nil {
		slog.Error("online count failed", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{errCodeInternal, "Internal error."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"playersonline": count})
}

// passwordMatches compares the hex SHA-1 column against the supplied
// plaintext in constant time.
func passwordMatches(storedHex, password string) bool {
	stored, err := hex.DecodeString(strings.ToLower(storedHex))
	if err != nil {
		return false
	}
	sum := sha1.Sum([]byte(password))
	return subtle.ConstantTimeCompare(stored, sum[:]) == 1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
