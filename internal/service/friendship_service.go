package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
	"github.com/vedran77/kapsula/internal/repository"
)

var (
	ErrCannotRequestSelf  = errors.New("cannot send a friend request to yourself")
	ErrRequestExists      = errors.New("a pending request already exists")
	ErrAlreadyFriends     = errors.New("you are already friends")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrNotRequestReceiver = errors.New("only the request receiver can perform this action")
	ErrNotRequestSender   = errors.New("only the request sender can cancel")
)

type FriendshipService struct {
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
	notifier   Notifier
	clock      Clock
}

func NewFriendshipService(friendRepo repository.FriendshipRepository, userRepo repository.UserRepository, clock Clock) *FriendshipService {
	return &FriendshipService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		clock:      clock,
	}
}

// SetNotifier sets the notification sink (optional dependency).
func (s *FriendshipService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SendRequest sends a friend request by target username. Auto-accepts
// when the other user already sent a request the other way.
func (s *FriendshipService) SendRequest(ctx context.Context, senderID uuid.UUID, targetUsername string) (*domain.FriendRequest, error) {
	target, err := s.userRepo.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	if senderID == target.ID {
		return nil, ErrCannotRequestSelf
	}

	already, err := s.friendRepo.AreFriends(ctx, senderID, target.ID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyFriends
	}

	existing, err := s.friendRepo.GetRequestByUsers(ctx, senderID, target.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == "pending" {
		return nil, ErrRequestExists
	}

	// Reverse pending request means both want it: accept immediately.
	reverse, err := s.friendRepo.GetRequestByUsers(ctx, target.ID, senderID)
	if err != nil {
		return nil, err
	}
	if reverse != nil && reverse.Status == "pending" {
		if err := s.createFriendship(ctx, senderID, target.ID); err != nil {
			return nil, err
		}
		if err := s.friendRepo.DeleteRequest(ctx, reverse.ID); err != nil {
			return nil, err
		}
		s.notifyUser(ctx, target.ID, domain.EventFriendAccepted, "Your friend request was accepted", &senderID)
		return nil, nil
	}

	req := &domain.FriendRequest{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: target.ID,
		Status:     "pending",
		CreatedAt:  s.clock.Now(),
	}

	if err := s.friendRepo.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("creating friend request: %w", err)
	}

	s.notifyUser(ctx, target.ID, domain.EventFriendRequest, "You have a new friend request", &req.ID)
	return req, nil
}

func (s *FriendshipService) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if req.ReceiverID != userID {
		return ErrNotRequestReceiver
	}

	if err := s.createFriendship(ctx, req.SenderID, req.ReceiverID); err != nil {
		return err
	}
	if err := s.friendRepo.DeleteRequest(ctx, requestID); err != nil {
		return err
	}

	s.notifyUser(ctx, req.SenderID, domain.EventFriendAccepted, "Your friend request was accepted", &userID)
	return nil
}

func (s *FriendshipService) RejectRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if req.ReceiverID != userID {
		return ErrNotRequestReceiver
	}

	return s.friendRepo.DeleteRequest(ctx, requestID)
}

func (s *FriendshipService) CancelRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if req.SenderID != userID {
		return ErrNotRequestSender
	}

	return s.friendRepo.DeleteRequest(ctx, requestID)
}

func (s *FriendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []domain.Friendship{}
	}
	return friends, nil
}

// ListAcceptedFriendIDs implements FriendProvider for bulk capsule
// grants.
func (s *FriendshipService) ListAcceptedFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(friends))
	for _, f := range friends {
		other := f.User1ID
		if other == userID {
			other = f.User2ID
		}
		ids = append(ids, other)
	}
	return ids, nil
}

func (s *FriendshipService) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	reqs, err := s.friendRepo.ListIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	return reqs, nil
}

func (s *FriendshipService) ListOutgoingRequests(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	reqs, err := s.friendRepo.ListOutgoingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.FriendRequest{}
	}
	return reqs, nil
}

func (s *FriendshipService) RemoveFriend(ctx context.Context, userID, otherUserID uuid.UUID) error {
	u1, u2 := orderUsers(userID, otherUserID)
	return s.friendRepo.DeleteFriendship(ctx, u1, u2)
}

// createFriendship stores the pair in canonical order.
func (s *FriendshipService) createFriendship(ctx context.Context, userA, userB uuid.UUID) error {
	u1, u2 := orderUsers(userA, userB)

	f := &domain.Friendship{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: s.clock.Now(),
	}
	return s.friendRepo.CreateFriendship(ctx, f)
}

func (s *FriendshipService) notifyUser(ctx context.Context, userID uuid.UUID, eventType, message string, relatedID *uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, eventType, message, relatedID)
}

func orderUsers(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
