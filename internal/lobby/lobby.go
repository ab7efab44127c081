// Package lobby implements C7: lobby creation, joining, spectating,
// kicking, starting, invitations and the leave/master-inheritance
// lifecycle from spec §4.7.
package lobby

import (
	"context"
	"time"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/cards"
	"github.com/busfahrer/server/internal/fanout"
	"github.com/busfahrer/server/internal/ids"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/store"
)

const (
	collLobbies = "lobbies"
	collChats   = "chats"
	collGames   = "games"
	collFriends = "friends"
)

type Service struct {
	st             store.Store
	reg            *registry.Registry
	playerLimitCap int
}

func New(st store.Store, reg *registry.Registry, playerLimitCap int) *Service {
	return &Service{st: st, reg: reg, playerLimitCap: playerLimitCap}
}

func (s *Service) lister() store.Lister {
	l, ok := s.st.(store.Lister)
	if !ok {
		return nil
	}
	return l
}

func (s *Service) readLobby(ctx context.Context, lobbyID string) (model.Lobby, error) {
	var l model.Lobby
	if err := s.st.Read(ctx, collLobbies, lobbyID, &l); err != nil {
		return l, apperr.NotFound("Lobby Error", "lobby not found")
	}
	return l, nil
}

func memberIndex(players []model.LobbyPlayer, userID string) int {
	for i, p := range players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// Create inserts a new lobby and its chat, with the caller as MASTER.
func (s *Service) Create(ctx context.Context, userID, name, playerName string, private bool, gender model.Gender, settings model.Settings) (string, error) {
	if settings.PlayerLimit < 2 || settings.PlayerLimit > s.playerLimitCap {
		return "", apperr.Precondition("Create Lobby Error", "playerLimit out of range")
	}

	lister := s.lister()
	code := ids.NewCode(func(c string) bool {
		if lister == nil {
			return false
		}
		var existing []model.Lobby
		_ = lister.List(ctx, collLobbies, map[string]any{"lobbyCode": c}, &existing)
		return len(existing) > 0
	})

	id := ids.New()
	now := time.Now().UTC()

	l := model.Lobby{
		ID:        id,
		Name:      name,
		LobbyCode: code,
		Status:    model.LobbyWaiting,
		Private:   private,
		Settings:  settings,
		CreatedAt: now,
		Players: []model.LobbyPlayer{{
			ID:       userID,
			Name:     playerName,
			Role:     model.RoleMaster,
			Gender:   gender,
			JoinedAt: now,
		}},
	}

	if err := s.st.Insert(ctx, collLobbies, id, &l); err != nil {
		return "", apperr.Internal("Create Lobby Error", err)
	}

	chat := model.Chat{ID: id, Name: name, ChatCode: code}
	if err := s.st.Insert(ctx, collChats, id, &chat); err != nil {
		return "", apperr.Internal("Create Lobby Error", err)
	}

	return id, nil
}

// Authenticate resolves a lobby code to a lobby id and reserves a slot in
// isJoining. Fails if the user is already a player or spectator.
func (s *Service) Authenticate(ctx context.Context, userID, lobbyCode string) (string, error) {
	lister := s.lister()
	if lister == nil {
		return "", apperr.Internal("Join Lobby Error", nil)
	}

	var matches []model.Lobby
	if err := lister.List(ctx, collLobbies, map[string]any{"lobbyCode": lobbyCode}, &matches); err != nil {
		return "", apperr.Internal("Join Lobby Error", err)
	}
	if len(matches) == 0 {
		return "", apperr.NotFound("Join Lobby Error", "no lobby with that code")
	}
	l := matches[0]

	if memberIndex(l.Players, userID) >= 0 || memberIndex(l.Spectators, userID) >= 0 {
		return "", apperr.Precondition("Join Lobby Error", "already a member of this lobby")
	}

	err := s.st.Update(ctx, collLobbies, l.ID, store.Patch{
		Push: map[string]any{"isJoining": model.LobbyPlayer{ID: userID, JoinedAt: time.Now().UTC()}},
	})
	if err != nil {
		return "", apperr.Internal("Join Lobby Error", err)
	}

	return l.ID, nil
}

// LeaveJoin removes the caller's isJoining reservation.
func (s *Service) LeaveJoin(ctx context.Context, userID, lobbyID string) error {
	l, err := s.readLobby(ctx, lobbyID)
	if err != nil {
		return err
	}
	if memberIndex(l.IsJoining, userID) < 0 {
		return apperr.Precondition("Leave Join Error", "not currently joining this lobby")
	}

	return s.st.Update(ctx, collLobbies, lobbyID, store.Patch{
		Pull: map[string]store.PullMatch{"isJoining": {"id": userID}},
	})
}

// Join moves the caller from isJoining into players or spectators.
func (s *Service) Join(ctx context.Context, userID, lobbyID, playerName string, gender model.Gender, spectator bool) error {
	l, err := s.readLobby(ctx, lobbyID)
	if err != nil {
		return err
	}
	if l.Status != model.LobbyWaiting {
		return apperr.Precondition("Join Lobby Error", "lobby is not open for joining")
	}
	if memberIndex(l.Players, userID) >= 0 || memberIndex(l.Spectators, userID) >= 0 {
		return apperr.Precondition("Join Lobby Error", "already joined")
	}
	if memberIndex(l.IsJoining, userID) < 0 {
		return apperr.Precondition("Join Lobby Error", "not currently joining this lobby")
	}

	entry := model.LobbyPlayer{
		ID:       userID,
		Name:     playerName,
		Gender:   gender,
		JoinedAt: time.Now().UTC(),
	}

	patch := store.Patch{
		Pull: map[string]store.PullMatch{"isJoining": {"id": userID}},
	}
	if spectator {
		entry.Role = model.RoleSpectator
		patch.Push = map[string]any{"spectators": entry}
	} else {
		entry.Role = model.RolePlayer
		patch.Push = map[string]any{"players": entry}
	}

	if err := s.st.Update(ctx, collLobbies, lobbyID, patch); err != nil {
		return apperr.Internal("Join Lobby Error", err)
	}
	return nil
}

// Kick removes target from players/spectators, authorized only for the
// current master.
func (s *Service) Kick(ctx context.Context, lobbyID, masterID, targetID string) error {
	l, err := s.readLobby(ctx, lobbyID)
	if err != nil {
		return err
	}

	mi := memberIndex(l.Players, masterID)
	if mi < 0 || l.Players[mi].Role != model.RoleMaster {
		return apperr.Authorization("Kick Player Error", "only the lobby master may kick")
	}

	var patch store.Patch
	switch {
	case memberIndex(l.Players, targetID) >= 0:
		patch = store.Patch{Pull: map[string]store.PullMatch{"players": {"id": targetID}}}
	case memberIndex(l.Spectators, targetID) >= 0:
		patch = store.Patch{Pull: map[string]store.PullMatch{"spectators": {"id": targetID}}}
	default:
		return apperr.NotFound("Kick Player Error", "player not found")
	}

	if err := s.st.Update(ctx, collLobbies, lobbyID, patch); err != nil {
		return apperr.Internal("Kick Player Error", err)
	}

	fanout.SendKicked(s.reg, lobbyID, targetID)
	return nil
}

// Start snapshots players, deals cards, pre-builds the phase-1 pyramid,
// inserts the Game document and marks the lobby STARTED.
func (s *Service) Start(ctx context.Context, lobbyID, masterID string) (string, error) {
	l, err := s.readLobby(ctx, lobbyID)
	if err != nil {
		return "", err
	}
	if l.Status != model.LobbyWaiting {
		return "", apperr.Precondition("Start Game Error", "lobby is not waiting")
	}
	mi := memberIndex(l.Players, masterID)
	if mi < 0 || l.Players[mi].Role != model.RoleMaster {
		return "", apperr.Authorization("Start Game Error", "only the lobby master may start")
	}
	if len(l.Players) < 2 {
		return "", apperr.Precondition("Start Game Error", "at least 2 players are required")
	}
	// Each player is dealt 10 cards and the phase-1 pyramid draws another
	// 15, all from a single 104-card deck (two copies of a 52-card deck).
	if 10*len(l.Players)+15 > 104 {
		return "", apperr.Precondition("Start Game Error", "too many players for a single deck")
	}

	deck := cards.NewDeck()
	cards.Shuffle(deck, cards.ShuffleAlgorithm(l.Settings.Shuffling))

	players := make([]model.GamePlayer, 0, len(l.Players))
	for _, p := range l.Players {
		hand := make([]model.PlayerCard, 10)
		for i := 0; i < 10; i++ {
			hand[i] = model.PlayerCard{Card: deck[0]}
			deck = deck[1:]
		}
		players = append(players, model.GamePlayer{
			ID:     p.ID,
			Name:   p.Name,
			Role:   p.Role,
			Gender: p.Gender,
			Avatar: p.Avatar,
			Title:  p.Title,
			Cards:  hand,
		})
	}

	// Pre-build the phase-1 pyramid: row r (1-indexed) has r face-down
	// cards, drawn from the freshly shuffled remainder of the deck.
	pyramid := make([][]model.GameCard, 5)
	for r := 0; r < 5; r++ {
		row := make([]model.GameCard, r+1)
		for c := 0; c <= r; c++ {
			row[c] = model.GameCard{Card: deck[0]}
			deck = deck[1:]
		}
		pyramid[r] = row
	}

	turnOrder := make([]string, 0, len(players))
	for _, p := range players {
		turnOrder = append(turnOrder, p.ID)
	}

	active := turnOrder[0]

	g := model.Game{
		ID:           lobbyID,
		LobbyID:      lobbyID,
		Status:       model.GamePhase1,
		Players:      players,
		Spectators:   l.Spectators,
		Cards:        pyramid,
		ActivePlayer: &active,
		TurnOrder:    turnOrder,
		Settings:     l.Settings,
		GameInfo: model.GameInfo{
			RoundNr: 1,
		},
		Statistics: model.GameStatistics{PerPlayer: map[string]int{}},
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.st.Insert(ctx, collGames, lobbyID, &g); err != nil {
		return "", apperr.Internal("Start Game Error", err)
	}
	if err := s.st.Update(ctx, collLobbies, lobbyID, store.Patch{
		Set: map[string]any{"status": string(model.LobbyStarted)},
	}); err != nil {
		return "", apperr.Internal("Start Game Error", err)
	}

	fanout.SendStartUpdate(s.reg, lobbyID, lobbyID)
	return lobbyID, nil
}

// Invite appends an invitation to the friend's record.
func (s *Service) Invite(ctx context.Context, userID, friendID, lobbyID, inviterName string) error {
	var fr model.FriendRecord
	if err := s.st.Read(ctx, collFriends, friendID, &fr); err != nil {
		return apperr.NotFound("Invite Error", "friend record not found")
	}
	for _, inv := range fr.Invitations {
		if inv.LobbyID == lobbyID && inv.Player == inviterName {
			return nil
		}
	}
	return s.st.Update(ctx, collFriends, friendID, store.Patch{
		Push: map[string]any{"invitations": model.Invitation{LobbyID: lobbyID, Player: inviterName}},
	})
}

func (s *Service) AcceptInvitation(ctx context.Context, userID, lobbyID string) error {
	return s.st.Update(ctx, collFriends, userID, store.Patch{
		Pull: map[string]store.PullMatch{"invitations": {"lobbyId": lobbyID}},
	})
}

func (s *Service) DeclineInvitation(ctx context.Context, userID, lobbyID string) error {
	return s.st.Update(ctx, collFriends, userID, store.Patch{
		Pull: map[string]store.PullMatch{"invitations": {"lobbyId": lobbyID}},
	})
}

// LeaveLobby implements the teardown/inheritance contract of spec §4.7.
func (s *Service) LeaveLobby(ctx context.Context, userID, lobbyID string) error {
	l, err := s.readLobby(ctx, lobbyID)
	if err != nil {
		return err
	}

	pi := memberIndex(l.Players, userID)

	if pi >= 0 && len(l.Players) == 1 {
		return s.teardown(ctx, lobbyID)
	}

	if pi >= 0 && l.Players[pi].Role == model.RoleMaster {
		if !l.Settings.CanInherit {
			return s.teardown(ctx, lobbyID)
		}

		var heir *model.LobbyPlayer
		for i := range l.Players {
			if l.Players[i].ID == userID {
				continue
			}
			if heir == nil || l.Players[i].JoinedAt.Before(heir.JoinedAt) {
				heir = &l.Players[i]
			}
		}
		if heir == nil {
			return s.teardown(ctx, lobbyID)
		}

		if err := s.st.Update(ctx, collLobbies, lobbyID, store.Patch{
			Set: map[string]any{"players." + indexStr(memberIndex(l.Players, heir.ID)) + ".role": string(model.RoleMaster)},
		}); err != nil {
			return apperr.Internal("Leave Lobby Error", err)
		}
		fanout.SendRoleUpdate(s.reg, lobbyID, heir.ID, true)
	}

	return s.pullMember(ctx, lobbyID, userID, l)
}

func (s *Service) pullMember(ctx context.Context, lobbyID, userID string, l model.Lobby) error {
	var patch store.Patch
	switch {
	case memberIndex(l.Players, userID) >= 0:
		patch = store.Patch{Pull: map[string]store.PullMatch{"players": {"id": userID}}}
	case memberIndex(l.Spectators, userID) >= 0:
		patch = store.Patch{Pull: map[string]store.PullMatch{"spectators": {"id": userID}}}
	case memberIndex(l.IsJoining, userID) >= 0:
		patch = store.Patch{Pull: map[string]store.PullMatch{"isJoining": {"id": userID}}}
	default:
		return nil
	}
	if err := s.st.Update(ctx, collLobbies, lobbyID, patch); err != nil {
		return apperr.Internal("Leave Lobby Error", err)
	}
	return nil
}

func (s *Service) teardown(ctx context.Context, lobbyID string) error {
	fanout.SendClosedAll(s.reg, lobbyID)
	if err := s.st.Delete(ctx, collLobbies, lobbyID); err != nil {
		return apperr.Internal("Leave Lobby Error", err)
	}
	_ = s.st.Delete(ctx, collChats, lobbyID)
	return nil
}

func (s *Service) GetLobbyInfo(ctx context.Context, lobbyID string) (model.Lobby, error) {
	return s.readLobby(ctx, lobbyID)
}

func (s *Service) IsLobbyMaster(ctx context.Context, lobbyID, userID string) (bool, error) {
	l, err := s.readLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	i := memberIndex(l.Players, userID)
	return i >= 0 && l.Players[i].Role == model.RoleMaster, nil
}

// GetPublicLobbies lists non-private, joinable lobbies for `GET
// /get-lobbies`.
func (s *Service) GetPublicLobbies(ctx context.Context) ([]model.Lobby, error) {
	lister := s.lister()
	if lister == nil {
		return nil, apperr.Internal("Get Lobbies Error", nil)
	}
	var all []model.Lobby
	if err := lister.List(ctx, collLobbies, map[string]any{"private": false, "status": string(model.LobbyWaiting)}, &all); err != nil {
		return nil, apperr.Internal("Get Lobbies Error", err)
	}

	out := make([]model.Lobby, 0, len(all))
	for _, l := range all {
		if len(l.Players)+len(l.IsJoining) < l.Settings.PlayerLimit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) CheckLobbyCode(ctx context.Context, code string) (string, bool, error) {
	lister := s.lister()
	if lister == nil {
		return "", false, apperr.Internal("Check Lobby Code Error", nil)
	}
	var matches []model.Lobby
	if err := lister.List(ctx, collLobbies, map[string]any{"lobbyCode": code}, &matches); err != nil {
		return "", false, apperr.Internal("Check Lobby Code Error", err)
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	return matches[0].ID, true, nil
}

func indexStr(i int) string {
	if i < 0 {
		return "0"
	}
	const digits = "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	// Lobbies cap at 10 players (spec §3), so double digits never occur
	// in practice; handled generically regardless.
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return string(buf)
}
