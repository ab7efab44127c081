package fanout

import "github.com/busfahrer/server/internal/registry"

func sendAll(sockets []registry.Socket, msg any) {
	for _, s := range sockets {
		s.Send(msg) // per-socket send failures are swallowed, spec §7; heartbeat reaps the socket.
	}
}

func sendOne(s registry.Socket, ok bool, msg any) {
	if !ok || s == nil {
		return
	}
	s.Send(msg)
}

// The lifecycle frames below (§6) are emitted directly by the owning
// service right after its store mutation, not derived from the field-path
// table — they report an action, not a state mirror.

func SendKicked(reg *registry.Registry, lobbyID, userID string) {
	s, ok := reg.LobbySocketFor(lobbyID, userID)
	sendOne(s, ok, KickUpdate{Type: "kickUpdate"})
}

func SendClosed(reg *registry.Registry, lobbyID, userID string) {
	s, ok := reg.LobbySocketFor(lobbyID, userID)
	sendOne(s, ok, CloseUpdate{Type: "closeUpdate"})
}

// SendClosedAll notifies every remaining lobby subscriber that the lobby
// itself is gone (torn down without a master to inherit it).
func SendClosedAll(reg *registry.Registry, lobbyID string) {
	sendAll(reg.LobbySockets(lobbyID), CloseUpdate{Type: "closeUpdate"})
}

func SendStartUpdate(reg *registry.Registry, lobbyID, gameID string) {
	sendAll(reg.LobbySockets(lobbyID), StartUpdate{Type: "startUpdate", GameID: gameID})
}

func SendNewGameUpdate(reg *registry.Registry, gameID, lobbyID string) {
	sendAll(reg.GameSockets(gameID), NewGameUpdate{Type: "newGameUpdate", LobbyID: lobbyID})
}

func SendRoleUpdate(reg *registry.Registry, lobbyID, userID string, isMaster bool) {
	s, ok := reg.LobbySocketFor(lobbyID, userID)
	sendOne(s, ok, RoleUpdate{Type: "roleUpdate", IsGameMaster: isMaster})
}
