package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeCapsuleRepo is an in-memory CapsuleRepository. TransitionStatus
// holds the repo lock for the whole read-compare-write, mirroring the
// single-row atomicity of the SQL implementation.
type fakeCapsuleRepo struct {
	mu       sync.Mutex
	capsules map[uuid.UUID]*domain.Capsule
}

func newFakeCapsuleRepo() *fakeCapsuleRepo {
	return &fakeCapsuleRepo{capsules: make(map[uuid.UUID]*domain.Capsule)}
}

func (r *fakeCapsuleRepo) Create(_ context.Context, c *domain.Capsule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.capsules[c.ID] = &cp
	return nil
}

func (r *fakeCapsuleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.capsules[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCapsuleRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Capsule
	for _, c := range r.capsules {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCapsuleRepo) ListByStatus(_ context.Context, status domain.CapsuleStatus) ([]domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Capsule
	for _, c := range r.capsules {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCapsuleRepo) ListAccessible(ctx context.Context, userID uuid.UUID) ([]domain.Capsule, error) {
	// The SQL joins against grants; the fake just returns everything
	// and lets the service-level view filter do the work.
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Capsule
	for _, c := range r.capsules {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCapsuleRepo) UpdateMetadata(_ context.Context, c *domain.Capsule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.capsules[c.ID]; ok {
		existing.Title = c.Title
		existing.Description = c.Description
		existing.UpdatedAt = c.UpdatedAt
	}
	return nil
}

func (r *fakeCapsuleRepo) TransitionStatus(_ context.Context, id uuid.UUID, expected, next domain.CapsuleStatus, isLocked bool, openDate *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.capsules[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	c.Status = next
	c.IsLocked = isLocked
	c.OpenDate = openDate
	return true, nil
}

func (r *fakeCapsuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.capsules, id)
	return nil
}

// fakeGrantRepo is an in-memory GrantRepository.
type fakeGrantRepo struct {
	mu     sync.Mutex
	grants map[uuid.UUID]*domain.AccessGrant
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{grants: make(map[uuid.UUID]*domain.AccessGrant)}
}

func (r *fakeGrantRepo) Create(_ context.Context, g *domain.AccessGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.grants[g.ID] = &cp
	return nil
}

func (r *fakeGrantRepo) GetByCapsuleAndUser(_ context.Context, capsuleID, userID uuid.UUID) (*domain.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.CapsuleID == capsuleID && g.UserID == userID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeGrantRepo) ListByCapsule(_ context.Context, capsuleID uuid.UUID) ([]domain.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AccessGrant
	for _, g := range r.grants {
		if g.CapsuleID == capsuleID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeGrantRepo) UpdateRole(_ context.Context, id uuid.UUID, role domain.GrantRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.grants[id]; ok {
		g.Role = role
	}
	return nil
}

func (r *fakeGrantRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants, id)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) add(username string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &domain.User{
		ID:          uuid.New(),
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	r.users[u.ID] = u
	return u.ID
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeFriendshipRepo is an in-memory FriendshipRepository.
type fakeFriendshipRepo struct {
	mu          sync.Mutex
	requests    map[uuid.UUID]*domain.FriendRequest
	friendships map[uuid.UUID]*domain.Friendship
}

func newFakeFriendshipRepo() *fakeFriendshipRepo {
	return &fakeFriendshipRepo{
		requests:    make(map[uuid.UUID]*domain.FriendRequest),
		friendships: make(map[uuid.UUID]*domain.Friendship),
	}
}

func (r *fakeFriendshipRepo) CreateRequest(_ context.Context, req *domain.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeFriendshipRepo) GetRequestByID(_ context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *fakeFriendshipRepo) GetRequestByUsers(_ context.Context, senderID, receiverID uuid.UUID) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.SenderID == senderID && req.ReceiverID == receiverID {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeFriendshipRepo) ListIncomingRequests(_ context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FriendRequest
	for _, req := range r.requests {
		if req.ReceiverID == userID && req.Status == "pending" {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeFriendshipRepo) ListOutgoingRequests(_ context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FriendRequest
	for _, req := range r.requests {
		if req.SenderID == userID && req.Status == "pending" {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeFriendshipRepo) DeleteRequest(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, id)
	return nil
}

func (r *fakeFriendshipRepo) CreateFriendship(_ context.Context, f *domain.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.friendships[f.ID] = &cp
	return nil
}

func (r *fakeFriendshipRepo) AreFriends(_ context.Context, user1ID, user2ID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.friendships {
		if (f.User1ID == user1ID && f.User2ID == user2ID) || (f.User1ID == user2ID && f.User2ID == user1ID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFriendshipRepo) ListFriends(_ context.Context, userID uuid.UUID) ([]domain.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Friendship
	for _, f := range r.friendships {
		if f.User1ID == userID || f.User2ID == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFriendshipRepo) DeleteFriendship(_ context.Context, user1ID, user2ID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.friendships {
		if f.User1ID == user1ID && f.User2ID == user2ID {
			delete(r.friendships, id)
		}
	}
	return nil
}

// recordingScheduler captures Schedule/Cancel calls.
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[uuid.UUID]time.Time
	cancelled []uuid.UUID
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: make(map[uuid.UUID]time.Time)}
}

func (s *recordingScheduler) Schedule(capsuleID uuid.UUID, fireAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[capsuleID] = fireAt
}

func (s *recordingScheduler) Cancel(capsuleID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scheduled, capsuleID)
	s.cancelled = append(s.cancelled, capsuleID)
}

func (s *recordingScheduler) scheduledFor(capsuleID uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.scheduled[capsuleID]
	return t, ok
}

func (s *recordingScheduler) cancelCount(capsuleID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.cancelled {
		if id == capsuleID {
			n++
		}
	}
	return n
}

// recordingNotifier captures emitted notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

type notifiedEvent struct {
	userID    uuid.UUID
	eventType string
	message   string
	relatedID *uuid.UUID
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, eventType, message string, relatedID *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{userID: userID, eventType: eventType, message: message, relatedID: relatedID})
}

func (n *recordingNotifier) byType(eventType string) []notifiedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifiedEvent
	for _, e := range n.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// staticFriends returns a fixed friend list.
type staticFriends struct {
	ids []uuid.UUID
}

func (f *staticFriends) ListAcceptedFriendIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return f.ids, nil
}
