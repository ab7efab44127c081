// Package friend implements C9: friend codes, requests, accept/decline,
// blocked users, invitations and 1:1 messages (spec §4.9).
package friend

import (
	"context"
	"strconv"
	"time"

	"github.com/busfahrer/server/internal/apperr"
	"github.com/busfahrer/server/internal/ids"
	"github.com/busfahrer/server/internal/model"
	"github.com/busfahrer/server/internal/store"
)

const collFriends = "friends"

type Service struct {
	st store.Store
}

func New(st store.Store) *Service {
	return &Service{st: st}
}

func (s *Service) read(ctx context.Context, userID string) (model.FriendRecord, error) {
	var fr model.FriendRecord
	if err := s.st.Read(ctx, collFriends, userID, &fr); err != nil {
		return fr, apperr.NotFound("Friend Error", "friend record not found")
	}
	return fr, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func isFriend(fr model.FriendRecord, userID string) bool {
	for _, f := range fr.Friends {
		if f.UserID == userID {
			return true
		}
	}
	return false
}

// scalarPull builds a Pull predicate matching a plain scalar element by
// value (sentRequests/pendingRequests/blockedUsers are []string, not
// subdocument arrays).
func scalarPull(v string) store.PullMatch {
	return store.PullMatch{"$eq": v}
}

// EnsureRecord inserts an empty friend record for a newly-registered user.
func (s *Service) EnsureRecord(ctx context.Context, userID, friendCode string) error {
	return s.st.Insert(ctx, collFriends, userID, &model.FriendRecord{
		UserID:     userID,
		FriendCode: friendCode,
	})
}

// SendFriendRequest rejects self-requests, existing friendships, duplicate
// sent requests and reciprocal pending requests.
func (s *Service) SendFriendRequest(ctx context.Context, userID, friendCode string) error {
	lister, ok := s.st.(store.Lister)
	if !ok {
		return apperr.Internal("Friend Request Error", nil)
	}
	var matches []model.FriendRecord
	if err := lister.List(ctx, collFriends, map[string]any{"friendCode": friendCode}, &matches); err != nil {
		return apperr.Internal("Friend Request Error", err)
	}
	if len(matches) == 0 {
		return apperr.NotFound("Friend Request Error", "no user with that friend code")
	}
	target := matches[0]

	if target.UserID == userID {
		return apperr.Precondition("Friend Request Error", "cannot friend yourself")
	}

	me, err := s.read(ctx, userID)
	if err != nil {
		return err
	}
	if isFriend(me, target.UserID) {
		return apperr.Precondition("Friend Request Error", "already friends")
	}
	if contains(me.SentRequests, target.UserID) {
		return apperr.Precondition("Friend Request Error", "request already sent")
	}
	if contains(me.PendingRequests, target.UserID) {
		return apperr.Precondition("Friend Request Error", "that user already sent you a request")
	}

	if err := s.st.Update(ctx, collFriends, userID, store.Patch{
		Push: map[string]any{"sentRequests": target.UserID},
	}); err != nil {
		return apperr.Internal("Friend Request Error", err)
	}
	if err := s.st.Update(ctx, collFriends, target.UserID, store.Patch{
		Push: map[string]any{"pendingRequests": userID},
	}); err != nil {
		return apperr.Internal("Friend Request Error", err)
	}
	return nil
}

// Accept pulls the request from each side and pushes a fresh friend entry
// initialized with empty messages and unreadCount=0 on each side.
func (s *Service) Accept(ctx context.Context, userID, friendID, myUsername, myAvatar, friendUsername, friendAvatar string) error {
	me, err := s.read(ctx, userID)
	if err != nil {
		return err
	}
	if !contains(me.PendingRequests, friendID) {
		return apperr.Precondition("Friend Accept Error", "no pending request from that user")
	}

	if err := s.st.Update(ctx, collFriends, userID, store.Patch{
		Pull: map[string]store.PullMatch{"pendingRequests": scalarPull(friendID)},
		Push: map[string]any{"friends": model.FriendEntry{UserID: friendID, Username: friendUsername, Avatar: friendAvatar}},
	}); err != nil {
		return apperr.Internal("Friend Accept Error", err)
	}
	if err := s.st.Update(ctx, collFriends, friendID, store.Patch{
		Pull: map[string]store.PullMatch{"sentRequests": scalarPull(userID)},
		Push: map[string]any{"friends": model.FriendEntry{UserID: userID, Username: myUsername, Avatar: myAvatar}},
	}); err != nil {
		return apperr.Internal("Friend Accept Error", err)
	}
	return nil
}

// Remove pulls each side's friend entry.
func (s *Service) Remove(ctx context.Context, userID, friendID string) error {
	if err := s.st.Update(ctx, collFriends, userID, store.Patch{
		Pull: map[string]store.PullMatch{"friends": {"userId": friendID}},
	}); err != nil {
		return apperr.Internal("Friend Remove Error", err)
	}
	if err := s.st.Update(ctx, collFriends, friendID, store.Patch{
		Pull: map[string]store.PullMatch{"friends": {"userId": userID}},
	}); err != nil {
		return apperr.Internal("Friend Remove Error", err)
	}
	return nil
}

// Decline pulls a pending request from both sides without forming a
// friendship.
func (s *Service) Decline(ctx context.Context, userID, friendID string) error {
	if err := s.st.Update(ctx, collFriends, userID, store.Patch{
		Pull: map[string]store.PullMatch{"pendingRequests": scalarPull(friendID)},
	}); err != nil {
		return apperr.Internal("Friend Decline Error", err)
	}
	if err := s.st.Update(ctx, collFriends, friendID, store.Patch{
		Pull: map[string]store.PullMatch{"sentRequests": scalarPull(userID)},
	}); err != nil {
		return apperr.Internal("Friend Decline Error", err)
	}
	return nil
}

// Block appends a user to the caller's blockedUsers list.
func (s *Service) Block(ctx context.Context, userID, blockedID string) error {
	if err := s.st.Update(ctx, collFriends, userID, store.Patch{
		Push: map[string]any{"blockedUsers": blockedID},
	}); err != nil {
		return apperr.Internal("Block Error", err)
	}
	return nil
}

// SendMessage appends to both sides of the pair and bumps the receiver's
// unread count. The sender's own copy is labelled "You"; the receiver's
// copy carries the sender's username.
func (s *Service) SendMessage(ctx context.Context, senderID, senderUsername, receiverID, text string) error {
	me, err := s.read(ctx, senderID)
	if err != nil {
		return err
	}
	senderIdx := -1
	for i, f := range me.Friends {
		if f.UserID == receiverID {
			senderIdx = i
			break
		}
	}
	if senderIdx < 0 {
		return apperr.Authorization("Friend Message Error", "not friends with that user")
	}

	receiver, err := s.read(ctx, receiverID)
	if err != nil {
		return err
	}
	receiverIdx := -1
	for i, f := range receiver.Friends {
		if f.UserID == senderID {
			receiverIdx = i
			break
		}
	}
	if receiverIdx < 0 {
		return apperr.Authorization("Friend Message Error", "not friends with that user")
	}

	now := time.Now().UTC()
	id := ids.New()

	if err := s.st.Update(ctx, collFriends, senderID, store.Patch{
		Push: map[string]any{"friends." + strconv.Itoa(senderIdx) + ".messages": model.FriendMessage{
			ID: id, From: "You", Text: text, Timestamp: now,
		}},
	}); err != nil {
		return apperr.Internal("Friend Message Error", err)
	}

	if err := s.st.Update(ctx, collFriends, receiverID, store.Patch{
		Push: map[string]any{"friends." + strconv.Itoa(receiverIdx) + ".messages": model.FriendMessage{
			ID: id, From: senderUsername, Text: text, Timestamp: now,
		}},
		Inc: map[string]float64{"friends." + strconv.Itoa(receiverIdx) + ".unreadCount": 1},
	}); err != nil {
		return apperr.Internal("Friend Message Error", err)
	}

	return nil
}

// MarkMessagesAsRead zeroes the caller's unreadCount for one friend.
func (s *Service) MarkMessagesAsRead(ctx context.Context, userID, friendID string) error {
	me, err := s.read(ctx, userID)
	if err != nil {
		return err
	}
	idx := -1
	for i, f := range me.Friends {
		if f.UserID == friendID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperr.NotFound("Friend Error", "not friends with that user")
	}

	if err := s.st.Update(ctx, collFriends, userID, store.Patch{
		Set: map[string]any{"friends." + strconv.Itoa(idx) + ".unreadCount": 0},
	}); err != nil {
		return apperr.Internal("Friend Error", err)
	}
	return nil
}

// GetRecord returns the caller's own friend record.
func (s *Service) GetRecord(ctx context.Context, userID string) (model.FriendRecord, error) {
	return s.read(ctx, userID)
}
