// Package fanout implements C11: the dispatcher that turns a store
// ChangeEvent into the outbound frames listed in spec §4.11's table.
package fanout

import "github.com/busfahrer/server/internal/model"

// AccountUpdate mirrors user.statistics/titles/avatar (spec §4.11 "user" row).
type AccountUpdate struct {
	Type       string         `json:"type"`
	Statistics map[string]int `json:"statistics"`
	Titles     []model.Title  `json:"titles"`
	Avatar     string         `json:"avatar"`
}

// FriendUpdate mirrors friends.*/pendingRequests.*.
type FriendUpdate struct {
	Type     string               `json:"type"`
	Requests FriendRequestsView   `json:"requests"`
	Friends  []FriendEntryView    `json:"friends"`
}

type FriendRequestsView struct {
	Sent    []string `json:"sent"`
	Pending []string `json:"pending"`
}

type FriendEntryView struct {
	UserID      string                 `json:"userId"`
	Username    string                 `json:"username"`
	Avatar      string                 `json:"avatar"`
	Messages    []model.FriendMessage  `json:"messages"`
	UnreadCount int                    `json:"unreadCount"`
}

// InvitationUpdate mirrors invitations.*.
type InvitationUpdate struct {
	Type        string              `json:"type"`
	Invitations []model.Invitation  `json:"invitations"`
}

// LobbiesUpdate is the public-lobby-list scope's single frame shape.
type LobbiesUpdate struct {
	Type    string       `json:"type"`
	Action  string       `json:"action"` // insert|update|delete
	LobbyID string       `json:"lobbyId"`
	Lobby   *LobbySummary `json:"lobby,omitempty"`
}

type LobbySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LobbyCode   string `json:"lobbyCode"`
	PlayerCount int    `json:"playerCount"`
	PlayerLimit int    `json:"playerLimit"`
}

// LobbyUpdate mirrors players.*/spectators.* for a single lobby scope.
type LobbyUpdate struct {
	Type       string               `json:"type"`
	Players    []model.LobbyPlayer  `json:"players"`
	Spectators []model.LobbyPlayer  `json:"spectators"`
}

// ChatUpdate mirrors messages.* (tail 15).
type ChatUpdate struct {
	Type     string               `json:"type"`
	Messages []model.ChatMessage  `json:"messages"`
}

// AvatarUpdate mirrors game players[*] (non turnInfo/cards) or activePlayer.
type AvatarUpdate struct {
	Type    string             `json:"type"`
	Players []AvatarPlayerView `json:"players"`
}

type AvatarPlayerView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Avatar          string `json:"avatar"`
	Title           string `json:"title"`
	DrinksPerPlayer int    `json:"drinksPerPlayer"`
	Active          bool   `json:"active"`
}

// PlayerDrinkUpdate goes only to the active player, in phase 1, whenever a
// player's drinksPerPlayer changes (in any giving mode).
type PlayerDrinkUpdate struct {
	Type    string `json:"type"`
	Given   bool   `json:"given"`
	CanUp   bool   `json:"canUp"`
	CanDown bool   `json:"canDown"`
}

// SettingUpdate mirrors settings.*.
type SettingUpdate struct {
	Type   string           `json:"type"`
	Giving model.GivingMode `json:"giving"`
}

// GameCardUpdate mirrors the game-level card layout.
type GameCardUpdate struct {
	Type  string             `json:"type"`
	Cards [][]model.GameCard `json:"cards"`
}

// PlayerCardUpdate goes only to the owning player, phase != 3.
type PlayerCardUpdate struct {
	Type  string              `json:"type"`
	Cards []model.PlayerCard  `json:"cards"`
}

// TurnInfoUpdate is per-user outside phase 3, and a smaller shape inside it.
type TurnInfoUpdate struct {
	Type              string `json:"type"`
	DrinksReceived    int    `json:"drinksReceived,omitempty"`
	IsGameMaster      bool   `json:"isGameMaster"`
	IsCurrentPlayer   bool   `json:"isCurrentPlayer"`
	NextPhaseEnabled  bool   `json:"nextPhaseEnabled,omitempty"`
	NextPlayerEnabled bool   `json:"nextPlayerEnabled,omitempty"`
}

// GameInfoUpdate mirrors gameInfo.*/status in every phase; in phase 3 it
// follows a Phase3Update.
type GameInfoUpdate struct {
	Type      string            `json:"type"`
	PlayerRow string            `json:"playerRow"`
	DrinkRow  int               `json:"drinkRow"`
	Phase     model.GameStatus  `json:"phase"`
}

// NextPlayerUpdate is the per-subscriber companion to GameInfoUpdate
// outside phase 3.
type NextPlayerUpdate struct {
	Type              string `json:"type"`
	NextPhaseEnabled  bool   `json:"nextPhaseEnabled"`
	NextPlayerEnabled bool   `json:"nextPlayerEnabled"`
	IsCurrentPlayer   bool   `json:"isCurrentPlayer"`
}

// Phase3Update mirrors gameInfo.*/status while in phase 3.
type Phase3Update struct {
	Type       string `json:"type"`
	CurrentRow int    `json:"currentRow"`
	TryOver    bool   `json:"tryOver"`
	GameOver   bool   `json:"gameOver"`
}

// BusfahrerUpdate mirrors gameInfo.busfahrer/status, phase >= 2.
type BusfahrerUpdate struct {
	Type          string `json:"type"`
	BusfahrerName string `json:"busfahrerName"`
}

// --- lifecycle frames (§6), emitted directly by services, not the table ---

type CloseUpdate struct {
	Type string `json:"type"`
}

type KickUpdate struct {
	Type string `json:"type"`
}

type StartUpdate struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
}

type NewGameUpdate struct {
	Type    string `json:"type"`
	LobbyID string `json:"lobbyId"`
}

type RoleUpdate struct {
	Type         string `json:"type"`
	IsGameMaster bool   `json:"isGameMaster"`
}
