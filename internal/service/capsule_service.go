package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
	"github.com/vedran77/kapsula/internal/repository"
)

var (
	ErrCapsuleNotFound   = errors.New("capsule not found")
	ErrGrantNotFound     = errors.New("access grant not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAccessDenied      = errors.New("you do not have permission to perform this action")
	ErrInvalidTransition = errors.New("operation not allowed in the capsule's current status")
	ErrOpenDateNotFuture = errors.New("open date must be in the future")
	ErrStillLocked       = errors.New("capsule is locked until its open date")
	ErrInvalidRole       = errors.New("role must be EDITOR or VIEWER")
	ErrInvalidStatus     = errors.New("unknown capsule status")
	ErrGrantOwner        = errors.New("the owner already has full access")
	ErrAlreadyGranted    = errors.New("user already has access to this capsule")
)

// Notifier delivers user-facing notifications. Implementations log
// failures and never propagate them; a missed notification must not
// undo a committed state change.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType, message string, relatedID *uuid.UUID)
}

// FriendProvider supplies accepted friendships for bulk grants.
type FriendProvider interface {
	ListAcceptedFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type CapsuleService struct {
	capsuleRepo repository.CapsuleRepository
	grantRepo   repository.GrantRepository
	userRepo    repository.UserRepository
	scheduler   UnlockScheduler
	notifier    Notifier
	friends     FriendProvider
	clock       Clock
}

func NewCapsuleService(
	capsuleRepo repository.CapsuleRepository,
	grantRepo repository.GrantRepository,
	userRepo repository.UserRepository,
	scheduler UnlockScheduler,
	clock Clock,
) *CapsuleService {
	return &CapsuleService{
		capsuleRepo: capsuleRepo,
		grantRepo:   grantRepo,
		userRepo:    userRepo,
		scheduler:   scheduler,
		clock:       clock,
	}
}

// SetNotifier sets the notification sink (optional dependency).
func (s *CapsuleService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetFriendProvider sets the friendship source for bulk grants.
func (s *CapsuleService) SetFriendProvider(f FriendProvider) {
	s.friends = f
}

type CreateCapsuleInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateCapsuleInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *CapsuleService) Create(ctx context.Context, ownerID uuid.UUID, input CreateCapsuleInput) (*domain.Capsule, error) {
	var desc *string
	if input.Description != "" {
		desc = &input.Description
	}

	now := s.clock.Now()
	c := &domain.Capsule{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: desc,
		OwnerID:     ownerID,
		Status:      domain.StatusUnpublished,
		IsLocked:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.capsuleRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating capsule: %w", err)
	}

	return c, nil
}

func (s *CapsuleService) Get(ctx context.Context, subjectID, capsuleID uuid.UUID) (*domain.Capsule, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionView); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateMetadata edits title/description. The owner may edit even while
// the capsule is locked and counting down.
func (s *CapsuleService) UpdateMetadata(ctx context.Context, subjectID, capsuleID uuid.UUID, input UpdateCapsuleInput) (*domain.Capsule, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionEdit); err != nil {
		return nil, err
	}

	if input.Title != nil {
		c.Title = *input.Title
	}
	if input.Description != nil {
		c.Description = input.Description
	}
	c.UpdatedAt = s.clock.Now()

	if err := s.capsuleRepo.UpdateMetadata(ctx, c); err != nil {
		return nil, fmt.Errorf("updating capsule: %w", err)
	}
	return c, nil
}

// Lock closes the capsule until openDate. The open date must be
// strictly in the future; past or equal timestamps are rejected, never
// clamped.
func (s *CapsuleService) Lock(ctx context.Context, subjectID, capsuleID uuid.UUID, openDate time.Time) (*domain.Capsule, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionLock); err != nil {
		return nil, err
	}
	if !openDate.After(s.clock.Now()) {
		return nil, ErrOpenDateNotFuture
	}
	if !canTransition(eventLock, c.Status) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.capsuleRepo.TransitionStatus(ctx, c.ID, c.Status, results[eventLock], true, &openDate)
	if err != nil {
		return nil, fmt.Errorf("locking capsule: %w", err)
	}
	if !ok {
		// Someone else moved the capsule between our read and the write.
		return nil, ErrInvalidTransition
	}

	c.Status = domain.StatusClosed
	c.IsLocked = true
	c.OpenDate = &openDate

	s.scheduler.Schedule(c.ID, openDate)
	return c, nil
}

// Unlock manually reopens a CLOSED capsule back to UNPUBLISHED and
// clears the open date. If the scheduler auto-opened the capsule first,
// the unlock is a silent no-op: the caller gets the capsule as it now
// is, not an error.
func (s *CapsuleService) Unlock(ctx context.Context, subjectID, capsuleID uuid.UUID) (*domain.Capsule, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionUnlock); err != nil {
		return nil, err
	}
	if !canTransition(eventUnlock, c.Status) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.capsuleRepo.TransitionStatus(ctx, c.ID, domain.StatusClosed, results[eventUnlock], false, nil)
	if err != nil {
		return nil, fmt.Errorf("unlocking capsule: %w", err)
	}

	s.scheduler.Cancel(c.ID)

	if !ok {
		// Lost the race against the auto-open timer. The transition
		// already happened; report current state.
		return s.load(ctx, capsuleID)
	}

	c.Status = domain.StatusUnpublished
	c.IsLocked = false
	c.OpenDate = nil
	return c, nil
}

// Publish makes the capsule visible to everyone. Allowed from
// UNPUBLISHED, or from CLOSED once the open date has passed.
func (s *CapsuleService) Publish(ctx context.Context, subjectID, capsuleID uuid.UUID) (*domain.Capsule, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionPublish); err != nil {
		return nil, err
	}
	if !canTransition(eventPublish, c.Status) {
		return nil, ErrInvalidTransition
	}
	if c.Status == domain.StatusClosed && c.OpenDate != nil && c.OpenDate.After(s.clock.Now()) {
		return nil, ErrStillLocked
	}

	ok, err := s.capsuleRepo.TransitionStatus(ctx, c.ID, c.Status, results[eventPublish], false, c.OpenDate)
	if err != nil {
		return nil, fmt.Errorf("publishing capsule: %w", err)
	}

	s.scheduler.Cancel(c.ID)

	if !ok {
		return s.load(ctx, capsuleID)
	}

	c.Status = domain.StatusPublished
	c.IsLocked = false
	return c, nil
}

// Archive retires a PUBLISHED capsule. Terminal apart from deletion.
func (s *CapsuleService) Archive(ctx context.Context, subjectID, capsuleID uuid.UUID) (*domain.Capsule, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionArchive); err != nil {
		return nil, err
	}
	if !canTransition(eventArchive, c.Status) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.capsuleRepo.TransitionStatus(ctx, c.ID, domain.StatusPublished, results[eventArchive], false, c.OpenDate)
	if err != nil {
		return nil, fmt.Errorf("archiving capsule: %w", err)
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	c.Status = domain.StatusArchived
	c.IsLocked = false
	return c, nil
}

func (s *CapsuleService) Delete(ctx context.Context, subjectID, capsuleID uuid.UUID) error {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionDelete); err != nil {
		return err
	}
	if !canTransition(eventDelete, c.Status) {
		return ErrInvalidTransition
	}

	s.scheduler.Cancel(c.ID)

	if err := s.capsuleRepo.Delete(ctx, capsuleID); err != nil {
		return fmt.Errorf("deleting capsule: %w", err)
	}
	return nil
}

// TimeUntilOpen returns the remaining countdown for a CLOSED capsule.
// When the open date has already passed it triggers the auto-open path
// itself instead of waiting for a timer, then reports zero. Non-closed
// capsules report zero.
func (s *CapsuleService) TimeUntilOpen(ctx context.Context, subjectID, capsuleID uuid.UUID) (time.Duration, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return 0, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionView); err != nil {
		return 0, err
	}

	if c.Status != domain.StatusClosed || c.OpenDate == nil {
		return 0, nil
	}

	remaining := c.OpenDate.Sub(s.clock.Now())
	if remaining <= 0 {
		// The timer drifted or was lost; open the capsule now.
		s.AutoOpen(ctx, capsuleID)
		return 0, nil
	}
	return remaining, nil
}

// AutoOpen is the scheduler's fire path: it re-reads persisted state
// and publishes the capsule only if it is still CLOSED. Any concurrent
// manual unlock, publish or delete wins silently.
func (s *CapsuleService) AutoOpen(ctx context.Context, capsuleID uuid.UUID) {
	c, err := s.capsuleRepo.GetByID(ctx, capsuleID)
	if err != nil {
		log.Printf("scheduler: loading capsule %s: %v", capsuleID, err)
		return
	}
	if c == nil || c.Status != domain.StatusClosed {
		return
	}
	if c.OpenDate != nil && c.OpenDate.After(s.clock.Now()) {
		// Stale fire, e.g. from a timer that outlived an unlock/re-lock
		// cycle. The capsule's real timer is still pending.
		return
	}

	ok, err := s.capsuleRepo.TransitionStatus(ctx, c.ID, domain.StatusClosed, results[eventAutoOpen], false, c.OpenDate)
	if err != nil {
		log.Printf("scheduler: opening capsule %s: %v", capsuleID, err)
		return
	}
	if !ok {
		return
	}

	log.Printf("scheduler: capsule %s auto-opened", c.ID)
	s.notify(ctx, c.OwnerID, domain.EventCapsuleOpened,
		fmt.Sprintf("Your capsule %q is now open", c.Title), &c.ID)
}

// RestorePendingUnlocks re-arms a timer for every CLOSED capsule.
// Called once at startup so pending auto-opens survive a restart;
// capsules whose open date passed while the process was down fire
// immediately.
func (s *CapsuleService) RestorePendingUnlocks(ctx context.Context) error {
	closed, err := s.capsuleRepo.ListByStatus(ctx, domain.StatusClosed)
	if err != nil {
		return fmt.Errorf("listing closed capsules: %w", err)
	}

	for _, c := range closed {
		if c.OpenDate == nil {
			log.Printf("scheduler: closed capsule %s has no open date, skipping", c.ID)
			continue
		}
		s.scheduler.Schedule(c.ID, *c.OpenDate)
	}

	if len(closed) > 0 {
		log.Printf("scheduler: restored %d pending unlock(s)", len(closed))
	}
	return nil
}

func (s *CapsuleService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Capsule, error) {
	capsules, err := s.capsuleRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if capsules == nil {
		capsules = []domain.Capsule{}
	}
	return capsules, nil
}

// ListAccessible returns capsules the subject owns or holds a grant on,
// filtered by the same per-capsule view check the single-capsule read
// uses so list and detail never disagree.
func (s *CapsuleService) ListAccessible(ctx context.Context, subjectID uuid.UUID) ([]domain.Capsule, error) {
	candidates, err := s.capsuleRepo.ListAccessible(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return s.filterViewable(ctx, subjectID, candidates)
}

func (s *CapsuleService) ListByStatus(ctx context.Context, subjectID uuid.UUID, status domain.CapsuleStatus) ([]domain.Capsule, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	candidates, err := s.capsuleRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.filterViewable(ctx, subjectID, candidates)
}

func (s *CapsuleService) filterViewable(ctx context.Context, subjectID uuid.UUID, candidates []domain.Capsule) ([]domain.Capsule, error) {
	visible := []domain.Capsule{}
	for i := range candidates {
		c := &candidates[i]
		if err := s.authorize(ctx, subjectID, c, domain.ActionView); err != nil {
			if errors.Is(err, ErrAccessDenied) {
				continue
			}
			return nil, err
		}
		visible = append(visible, *c)
	}
	return visible, nil
}

func (s *CapsuleService) GrantAccess(ctx context.Context, subjectID, capsuleID, granteeID uuid.UUID, role domain.GrantRole) (*domain.AccessGrant, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionManageAccess); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if granteeID == c.OwnerID {
		return nil, ErrGrantOwner
	}

	grantee, err := s.userRepo.GetByID(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	if grantee == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.grantRepo.GetByCapsuleAndUser(ctx, capsuleID, granteeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyGranted
	}

	grant := &domain.AccessGrant{
		ID:        uuid.New(),
		CapsuleID: capsuleID,
		UserID:    granteeID,
		GrantedBy: subjectID,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.grantRepo.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("creating grant: %w", err)
	}

	s.notify(ctx, granteeID, domain.EventAccessGranted,
		fmt.Sprintf("You were given %s access to %q", grant.Role, c.Title), &c.ID)
	return grant, nil
}

// GrantAccessToAllFriends grants the role to every accepted friend of
// the subject that does not already hold a grant on the capsule.
// Friends with an existing grant are skipped, not errors; the batch is
// not atomic.
func (s *CapsuleService) GrantAccessToAllFriends(ctx context.Context, subjectID, capsuleID uuid.UUID, role domain.GrantRole) ([]domain.AccessGrant, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionManageAccess); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if s.friends == nil {
		return []domain.AccessGrant{}, nil
	}

	friendIDs, err := s.friends.ListAcceptedFriendIDs(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}

	created := []domain.AccessGrant{}
	for _, friendID := range friendIDs {
		if friendID == c.OwnerID {
			continue
		}
		existing, err := s.grantRepo.GetByCapsuleAndUser(ctx, capsuleID, friendID)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		grant := &domain.AccessGrant{
			ID:        uuid.New(),
			CapsuleID: capsuleID,
			UserID:    friendID,
			GrantedBy: subjectID,
			Role:      role,
			CreatedAt: s.clock.Now(),
		}
		if err := s.grantRepo.Create(ctx, grant); err != nil {
			return created, fmt.Errorf("creating grant for %s: %w", friendID, err)
		}
		created = append(created, *grant)

		s.notify(ctx, friendID, domain.EventAccessGranted,
			fmt.Sprintf("You were given %s access to %q", role, c.Title), &c.ID)
	}
	return created, nil
}

func (s *CapsuleService) UpdateAccessRole(ctx context.Context, subjectID, capsuleID, granteeID uuid.UUID, role domain.GrantRole) (*domain.AccessGrant, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionManageAccess); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	grant, err := s.grantRepo.GetByCapsuleAndUser(ctx, capsuleID, granteeID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, ErrGrantNotFound
	}

	if err := s.grantRepo.UpdateRole(ctx, grant.ID, role); err != nil {
		return nil, fmt.Errorf("updating grant role: %w", err)
	}
	grant.Role = role
	return grant, nil
}

func (s *CapsuleService) RevokeAccess(ctx context.Context, subjectID, capsuleID, granteeID uuid.UUID) error {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionManageAccess); err != nil {
		return err
	}

	grant, err := s.grantRepo.GetByCapsuleAndUser(ctx, capsuleID, granteeID)
	if err != nil {
		return err
	}
	if grant == nil {
		return ErrGrantNotFound
	}

	if err := s.grantRepo.Delete(ctx, grant.ID); err != nil {
		return fmt.Errorf("deleting grant: %w", err)
	}

	s.notify(ctx, granteeID, domain.EventAccessRevoked,
		fmt.Sprintf("Your access to %q was revoked", c.Title), &c.ID)
	return nil
}

func (s *CapsuleService) ListGrants(ctx context.Context, subjectID, capsuleID uuid.UUID) ([]domain.AccessGrant, error) {
	c, err := s.load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, subjectID, c, domain.ActionManageAccess); err != nil {
		return nil, err
	}

	grants, err := s.grantRepo.ListByCapsule(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = []domain.AccessGrant{}
	}
	return grants, nil
}

func (s *CapsuleService) load(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
	c, err := s.capsuleRepo.GetByID(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCapsuleNotFound
	}
	return c, nil
}

// authorize evaluates the access policy against current state. Grants
// are loaded only when the decision can depend on them.
func (s *CapsuleService) authorize(ctx context.Context, subjectID uuid.UUID, c *domain.Capsule, action domain.Action) error {
	var grants []domain.AccessGrant
	if subjectID != c.OwnerID && action == domain.ActionView && c.Status != domain.StatusPublished {
		var err error
		grants, err = s.grantRepo.ListByCapsule(ctx, c.ID)
		if err != nil {
			return err
		}
	}
	if !Allowed(subjectID, c, grants, action) {
		return ErrAccessDenied
	}
	return nil
}

func (s *CapsuleService) notify(ctx context.Context, userID uuid.UUID, eventType, message string, relatedID *uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, eventType, message, relatedID)
}
