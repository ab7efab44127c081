package fanout

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/registry"
	"github.com/busfahrer/server/internal/store"
)

// Dispatcher is C11: it consumes the store's change feed, reloads the
// fresh document, classifies the changed field paths against spec
// §4.11's table, and pushes compact frames through the registry (C4).
type Dispatcher struct {
	st  store.Store
	reg *registry.Registry
}

func New(st store.Store, reg *registry.Registry) *Dispatcher {
	return &Dispatcher{st: st, reg: reg}
}

// Run consumes the change feed until ctx is cancelled or the feed closes.
// Per spec §5, events for a single document are processed in the order
// the store emits them, so two subscribers to the same document always
// observe updates in the same order.
func (d *Dispatcher) Run(ctx context.Context) error {
	ch, err := d.st.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			d.handle(ctx, evt)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, evt store.ChangeEvent) {
	switch evt.Collection {
	case "users":
		d.handleUser(ctx, evt)
	case "friends":
		d.handleFriends(ctx, evt)
	case "lobbies":
		d.handleLobbies(ctx, evt)
		d.handleLobbyScope(ctx, evt)
	case "chats":
		d.handleChat(ctx, evt)
	case "games":
		d.handleGame(ctx, evt)
	}
}

func touches(fields []string, path string) bool {
	for _, f := range fields {
		if f == path || strings.HasPrefix(f, path+".") {
			return true
		}
	}
	return false
}

func touchesAny(fields []string, paths ...string) bool {
	for _, p := range paths {
		if touches(fields, p) {
			return true
		}
	}
	return false
}

// --- user scope ---

func (d *Dispatcher) handleUser(ctx context.Context, evt store.ChangeEvent) {
	if evt.Op == store.OpDelete {
		return
	}
	if !touchesAny(evt.UpdatedFields, "statistics", "titles", "profile.uploadedAvatar") {
		return
	}

	var u model.User
	if err := d.st.Read(ctx, "users", evt.ID, &u); err != nil {
		log.Printf("fanout: read user %s: %v", evt.ID, err)
		return
	}

	sendAll(d.reg.UserSockets(evt.ID), AccountUpdate{
		Type:       "accountUpdate",
		Statistics: u.Statistics,
		Titles:     u.Titles,
		Avatar:     u.Profile.UploadedAvatar,
	})
}

// --- friends scope ---

func (d *Dispatcher) handleFriends(ctx context.Context, evt store.ChangeEvent) {
	if evt.Op == store.OpDelete {
		return
	}

	var f model.FriendRecord
	if err := d.st.Read(ctx, "friends", evt.ID, &f); err != nil {
		log.Printf("fanout: read friends %s: %v", evt.ID, err)
		return
	}

	if touchesAny(evt.UpdatedFields, "pendingRequests", "friends") {
		friends := make([]FriendEntryView, 0, len(f.Friends))
		for _, fe := range f.Friends {
			msgs := fe.Messages
			if len(msgs) > 13 {
				msgs = msgs[len(msgs)-13:]
			}
			friends = append(friends, FriendEntryView{
				UserID:      fe.UserID,
				Username:    fe.Username,
				Avatar:      fe.Avatar,
				Messages:    msgs,
				UnreadCount: fe.UnreadCount,
			})
		}

		sendAll(d.reg.FriendsSockets(evt.ID), FriendUpdate{
			Type: "friendUpdate",
			Requests: FriendRequestsView{
				Sent:    f.SentRequests,
				Pending: f.PendingRequests,
			},
			Friends: friends,
		})
	}

	if touches(evt.UpdatedFields, "invitations") {
		sendAll(d.reg.FriendsSockets(evt.ID), InvitationUpdate{
			Type:        "invitationUpdate",
			Invitations: f.Invitations,
		})
	}
}

// --- lobbies scope (public listing) ---

func (d *Dispatcher) handleLobbies(ctx context.Context, evt store.ChangeEvent) {
	if evt.Op == store.OpDelete {
		sendAll(d.reg.LobbiesSockets(), LobbiesUpdate{Type: "lobbiesUpdate", Action: "delete", LobbyID: evt.ID})
		return
	}

	var l model.Lobby
	if err := d.st.Read(ctx, "lobbies", evt.ID, &l); err != nil {
		sendAll(d.reg.LobbiesSockets(), LobbiesUpdate{Type: "lobbiesUpdate", Action: "delete", LobbyID: evt.ID})
		return
	}

	full := len(l.Players)+len(l.IsJoining) >= l.Settings.PlayerLimit
	if l.Private || l.Status != model.LobbyWaiting || full {
		sendAll(d.reg.LobbiesSockets(), LobbiesUpdate{Type: "lobbiesUpdate", Action: "delete", LobbyID: evt.ID})
		return
	}

	action := "update"
	if evt.Op == store.OpInsert {
		action = "insert"
	}

	sendAll(d.reg.LobbiesSockets(), LobbiesUpdate{
		Type:    "lobbiesUpdate",
		Action:  action,
		LobbyID: l.ID,
		Lobby: &LobbySummary{
			ID:          l.ID,
			Name:        l.Name,
			LobbyCode:   l.LobbyCode,
			PlayerCount: len(l.Players),
			PlayerLimit: l.Settings.PlayerLimit,
		},
	})
}

// --- lobby scope ---

// handleLobbyScope runs for every "lobbies" change event alongside
// handleLobbies, since the "lobbies" (plural) and "lobby" (singular)
// subscription scopes share one backing "lobbies" store collection but are
// two distinct subscription scopes.
func (d *Dispatcher) handleLobbyScope(ctx context.Context, evt store.ChangeEvent) {
	if evt.Op == store.OpDelete {
		return
	}
	if !touchesAny(evt.UpdatedFields, "players", "spectators") {
		return
	}

	var l model.Lobby
	if err := d.st.Read(ctx, "lobbies", evt.ID, &l); err != nil {
		return
	}

	sendAll(d.reg.LobbySockets(evt.ID), LobbyUpdate{
		Type:       "lobbyUpdate",
		Players:    l.Players,
		Spectators: l.Spectators,
	})
}

// --- chat scope ---

func (d *Dispatcher) handleChat(ctx context.Context, evt store.ChangeEvent) {
	if evt.Op == store.OpDelete {
		return
	}
	if !touches(evt.UpdatedFields, "messages") {
		return
	}

	var c model.Chat
	if err := d.st.Read(ctx, "chats", evt.ID, &c); err != nil {
		return
	}

	msgs := c.Messages
	if len(msgs) > 15 {
		msgs = msgs[len(msgs)-15:]
	}

	sendAll(d.reg.ChatSockets(evt.ID), ChatUpdate{Type: "chatUpdate", Messages: msgs})
}

// --- game scope ---

type playerFieldKind int

const (
	pfOther playerFieldKind = iota
	pfTurnInfo
	pfCards
)

type playerTouch struct {
	idx  int
	kind playerFieldKind
	full string
}

func parsePlayerFields(fields []string) []playerTouch {
	var out []playerTouch
	for _, f := range fields {
		if !strings.HasPrefix(f, "players.") {
			continue
		}
		rest := strings.TrimPrefix(f, "players.")
		segs := strings.SplitN(rest, ".", 2)
		idx, err := strconv.Atoi(segs[0])
		if err != nil {
			continue
		}
		kind := pfOther
		if len(segs) > 1 {
			switch {
			case strings.HasPrefix(segs[1], "turnInfo"):
				kind = pfTurnInfo
			case strings.HasPrefix(segs[1], "cards"):
				kind = pfCards
			}
		}
		out = append(out, playerTouch{idx: idx, kind: kind, full: f})
	}
	return out
}

func (d *Dispatcher) handleGame(ctx context.Context, evt store.ChangeEvent) {
	if evt.Op == store.OpDelete {
		return
	}

	var g model.Game
	if err := d.st.Read(ctx, "games", evt.ID, &g); err != nil {
		log.Printf("fanout: read game %s: %v", evt.ID, err)
		return
	}

	fields := evt.UpdatedFields
	touchesActive := touches(fields, "activePlayer")
	playerTouches := parsePlayerFields(fields)

	hasOther := touchesActive
	hasTurnInfo := touchesActive
	drinkTouchIdx := map[int]bool{}
	cardsTouchIdx := map[int]bool{}

	for _, pt := range playerTouches {
		switch pt.kind {
		case pfOther:
			hasOther = true
		case pfTurnInfo:
			hasTurnInfo = true
			if strings.HasSuffix(pt.full, "drinksPerPlayer") {
				drinkTouchIdx[pt.idx] = true
			}
		case pfCards:
			cardsTouchIdx[pt.idx] = true
		}
	}

	if hasOther {
		d.sendAvatarUpdate(g)
	}

	if g.Status == model.GamePhase1 && len(drinkTouchIdx) > 0 {
		d.sendPlayerDrinkUpdate(g)
	}

	if touches(fields, "settings") {
		sendAll(d.reg.GameSockets(evt.ID), SettingUpdate{Type: "settingUpdate", Giving: g.Settings.Giving})
	}

	if touches(fields, "cards") || touches(fields, "status") {
		sendAll(d.reg.GameSockets(evt.ID), GameCardUpdate{Type: "gameCardUpdate", Cards: g.Cards})
	}

	if g.Status != model.GamePhase3 {
		for idx := range cardsTouchIdx {
			if idx < 0 || idx >= len(g.Players) {
				continue
			}
			p := g.Players[idx]
			s, ok := d.reg.GameSocketFor(evt.ID, p.ID)
			sendOne(s, ok, PlayerCardUpdate{Type: "playerCardUpdate", Cards: p.Cards})
		}
	}

	if hasTurnInfo {
		d.sendTurnInfoUpdate(g)
	}

	if touches(fields, "gameInfo") || touches(fields, "status") {
		d.sendGameInfoUpdate(g)
	}

	if g.Status == model.GamePhase2 || g.Status == model.GamePhase3 || g.Status == model.GameFinished {
		if touches(fields, "gameInfo.busfahrer") || touches(fields, "status") {
			sendAll(d.reg.GameSockets(evt.ID), BusfahrerUpdate{
				Type:          "busfahrerUpdate",
				BusfahrerName: g.GameInfo.BusfahrerName,
			})
		}
	}
}

func (d *Dispatcher) sendAvatarUpdate(g model.Game) {
	views := make([]AvatarPlayerView, 0, len(g.Players))
	for _, p := range g.Players {
		active := g.ActivePlayer != nil && *g.ActivePlayer == p.ID
		views = append(views, AvatarPlayerView{
			ID:              p.ID,
			Name:            p.Name,
			Avatar:          p.Avatar,
			Title:           p.Title,
			DrinksPerPlayer: p.TurnInfo.DrinksPerPlayer,
			Active:          active,
		})
	}
	sendAll(d.reg.GameSockets(g.ID), AvatarUpdate{Type: "avatarUpdate", Players: views})
}

func (d *Dispatcher) sendPlayerDrinkUpdate(g model.Game) {
	if g.ActivePlayer == nil {
		return
	}
	total := 0
	for _, p := range g.Players {
		total += p.TurnInfo.DrinksPerPlayer
	}
	s, ok := d.reg.GameSocketFor(g.ID, *g.ActivePlayer)
	sendOne(s, ok, PlayerDrinkUpdate{
		Type:    "playerDrinkUpdate",
		Given:   total >= g.GameInfo.DrinksPerRound,
		CanUp:   total < g.GameInfo.DrinksPerRound,
		CanDown: total > 0,
	})
}

func (d *Dispatcher) sendTurnInfoUpdate(g model.Game) {
	isCurrent := func(id string) bool {
		return g.ActivePlayer != nil && *g.ActivePlayer == id
	}

	for _, p := range g.Players {
		s, ok := d.reg.GameSocketFor(g.ID, p.ID)
		if !ok {
			continue
		}
		if g.Status == model.GamePhase3 {
			s.Send(TurnInfoUpdate{
				Type:            "turnInfoUpdate",
				IsGameMaster:    p.Role == model.RoleMaster,
				IsCurrentPlayer: isCurrent(p.ID),
			})
			continue
		}

		s.Send(TurnInfoUpdate{
			Type:              "turnInfoUpdate",
			DrinksReceived:    p.TurnInfo.DrinksPerPlayer,
			IsGameMaster:      p.Role == model.RoleMaster,
			IsCurrentPlayer:   isCurrent(p.ID),
			NextPhaseEnabled:  g.GameInfo.NextPhaseEnabled,
			NextPlayerEnabled: nextPlayerEnabled(g, p.ID),
		})
	}
}

// nextPlayerEnabled reports whether userID, if the active player, may
// currently end their turn: phase 1 requires the round's row to be
// flipped and, in avatar giving mode, a fully distributed drink total.
func nextPlayerEnabled(g model.Game, userID string) bool {
	if g.ActivePlayer == nil || *g.ActivePlayer != userID {
		return false
	}
	if g.Status == model.GamePhase1 {
		if !g.GameInfo.IsRowFlipped {
			return false
		}
		if g.Settings.Giving == model.GivingAvatar {
			total := 0
			for _, p := range g.Players {
				total += p.TurnInfo.DrinksPerPlayer
			}
			return total >= g.GameInfo.DrinksPerRound
		}
	}
	return true
}

func (d *Dispatcher) sendGameInfoUpdate(g model.Game) {
	playerRow := ""
	if g.ActivePlayer != nil {
		playerRow = *g.ActivePlayer
	}

	info := GameInfoUpdate{
		Type:      "gameInfoUpdate",
		PlayerRow: playerRow,
		DrinkRow:  g.GameInfo.DrinksPerRound,
		Phase:     g.Status,
	}

	if g.Status == model.GamePhase3 {
		sendAll(d.reg.GameSockets(g.ID), Phase3Update{
			Type:       "phase3Update",
			CurrentRow: g.GameInfo.CurrentRow,
			TryOver:    g.GameInfo.TryOver,
			GameOver:   g.GameInfo.GameOver,
		})
		sendAll(d.reg.GameSockets(g.ID), info)
		return
	}

	sendAll(d.reg.GameSockets(g.ID), info)

	for _, p := range g.Players {
		s, ok := d.reg.GameSocketFor(g.ID, p.ID)
		sendOne(s, ok, NextPlayerUpdate{
			Type:              "nextPlayerUpdate",
			NextPhaseEnabled:  g.GameInfo.NextPhaseEnabled,
			NextPlayerEnabled: nextPlayerEnabled(g, p.ID),
			IsCurrentPlayer:   g.ActivePlayer != nil && *g.ActivePlayer == p.ID,
		})
	}
}
