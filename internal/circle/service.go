package circle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Common errors
var (
	ErrCircleNotFound   = errors.New("circle not found")
	ErrAmbiguousName    = errors.New("circle name matches more than one circle")
	ErrAlreadyMember    = errors.New("user is already a member of this circle")
	ErrNotMember        = errors.New("user is not a member of this circle")
	ErrNotAuthorized    = errors.New("only the circle creator may remove members")
	ErrInvalidName      = errors.New("circle name must not be empty")
	ErrCannotRemoveSelf = errors.New("use leave to exit a circle yourself")
)

// Store is the persistence interface the service depends on.
// Lookups return nil, nil when the row does not exist.
// Membership mutations are atomic per circle: each one is a single
// conditional operation, so two racing calls cannot both pass the same
// precondition.
type Store interface {
	CreateCircle(ctx context.Context, name, createdBy string) (*Circle, error)
	CircleByID(ctx context.Context, id int64) (*Circle, error)
	CirclesByName(ctx context.Context, name string) ([]*Circle, error)
	SearchCircles(ctx context.Context, query string) ([]*Circle, error)
	CirclesForUser(ctx context.Context, userID string) ([]*Circle, error)

	// Enroll activates the user's membership in one step: it inserts a
	// fresh row, reactivates a left or removed one, and fails with
	// ErrAlreadyMember when the membership is already active.
	Enroll(ctx context.Context, circleID int64, userID string) error
	// DeactivateMember flips an active membership to the given status,
	// failing with ErrNotMember when there is none.
	DeactivateMember(ctx context.Context, userID string, circleID int64, status MembershipStatus) error
	Membership(ctx context.Context, userID string, circleID int64) (*Membership, error)
	Members(ctx context.Context, circleID int64, excludeUserID string) ([]*Member, error)

	PrimaryCircleID(ctx context.Context, userID string) (int64, bool, error)
	SetPrimaryCircle(ctx context.Context, userID string, circleID int64) error
	// SetPrimaryCircleIfUnset points the primary circle at circleID only
	// while the user has none; a concurrent winner stays in place.
	SetPrimaryCircleIfUnset(ctx context.Context, userID string, circleID int64) error
	// ClearPrimaryCircle unsets the pointer only while it references circleID
	ClearPrimaryCircle(ctx context.Context, userID string, circleID int64) error
}

// Service handles circle lifecycle and membership bookkeeping
type Service struct {
	store Store
}

// NewService creates a new circle service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create creates a circle, enrolls the creator and makes the circle the
// creator's primary one if they had none. Name collisions are allowed;
// resolution by name is the caller's problem (see JoinByName).
func (s *Service) Create(ctx context.Context, creatorID, name string) (*Circle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	c, err := s.store.CreateCircle(ctx, name, creatorID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Enroll(ctx, c.ID, creatorID); err != nil {
		return nil, err
	}

	if err := s.store.SetPrimaryCircleIfUnset(ctx, creatorID, c.ID); err != nil {
		return nil, err
	}

	slog.Info("circle created", "circle_id", c.ID, "name", c.Name, "created_by", creatorID)
	return c, nil
}

// Join adds the user to an existing circle. Joining a circle the user is
// already an active member of is rejected; a left or removed membership
// is reactivated. The membership flip is one store operation, so of two
// racing joins exactly one succeeds and the other gets ErrAlreadyMember.
func (s *Service) Join(ctx context.Context, userID string, circleID int64) (*Circle, error) {
	c, err := s.store.CircleByID(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCircleNotFound
	}

	if err := s.store.Enroll(ctx, circleID, userID); err != nil {
		return nil, err
	}

	if err := s.store.SetPrimaryCircleIfUnset(ctx, userID, circleID); err != nil {
		return nil, err
	}

	slog.Info("circle joined", "circle_id", circleID, "user_id", userID)
	return c, nil
}

// JoinByName joins a circle resolved by exact name. Since names are not
// unique, zero or multiple matches both fail the resolution.
func (s *Service) JoinByName(ctx context.Context, userID, name string) (*Circle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	matches, err := s.store.CirclesByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrCircleNotFound
	}
	if len(matches) > 1 {
		return nil, ErrAmbiguousName
	}

	return s.Join(ctx, userID, matches[0].ID)
}

// Leave marks the user's membership as left. If the circle was the user's
// primary circle the pointer is cleared; it is never reassigned here.
func (s *Service) Leave(ctx context.Context, userID string, circleID int64) error {
	if err := s.store.DeactivateMember(ctx, userID, circleID, MembershipLeft); err != nil {
		return err
	}

	if err := s.store.ClearPrimaryCircle(ctx, userID, circleID); err != nil {
		return err
	}

	slog.Info("circle left", "circle_id", circleID, "user_id", userID)
	return nil
}

// RemoveMember expels another member from the circle. Only the circle
// creator may do this.
func (s *Service) RemoveMember(ctx context.Context, actingUserID string, circleID int64, targetUserID string) error {
	c, err := s.store.CircleByID(ctx, circleID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCircleNotFound
	}
	if c.CreatedBy != actingUserID {
		return ErrNotAuthorized
	}
	if targetUserID == actingUserID {
		return ErrCannotRemoveSelf
	}

	if err := s.store.DeactivateMember(ctx, targetUserID, circleID, MembershipRemoved); err != nil {
		return err
	}

	if err := s.store.ClearPrimaryCircle(ctx, targetUserID, circleID); err != nil {
		return err
	}

	slog.Info("member removed", "circle_id", circleID, "target", targetUserID, "by", actingUserID)
	return nil
}

// SetPrimary designates the circle as the user's default context
func (s *Service) SetPrimary(ctx context.Context, userID string, circleID int64) error {
	m, err := s.store.Membership(ctx, userID, circleID)
	if err != nil {
		return err
	}
	if m == nil || m.Status != MembershipActive {
		return ErrNotMember
	}

	return s.store.SetPrimaryCircle(ctx, userID, circleID)
}

// Search finds circles by case-insensitive substring match on the name.
// No match is an empty result, not an error.
func (s *Service) Search(ctx context.Context, query string) ([]*Circle, error) {
	return s.store.SearchCircles(ctx, strings.TrimSpace(query))
}

// ListForUser returns the circles the user is an active member of,
// together with their primary circle id (0 and false when unset).
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Circle, int64, bool, error) {
	circles, err := s.store.CirclesForUser(ctx, userID)
	if err != nil {
		return nil, 0, false, err
	}

	primaryID, hasPrimary, err := s.store.PrimaryCircleID(ctx, userID)
	if err != nil {
		return nil, 0, false, err
	}

	return circles, primaryID, hasPrimary, nil
}

// Members lists the circle's active members. The caller must be a member
// themselves; set excludeSelf to drop the caller from the listing.
func (s *Service) Members(ctx context.Context, callerID string, circleID int64, excludeSelf bool) (*Circle, []*Member, error) {
	c, err := s.store.CircleByID(ctx, circleID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, ErrCircleNotFound
	}

	m, err := s.store.Membership(ctx, callerID, circleID)
	if err != nil {
		return nil, nil, err
	}
	if m == nil || m.Status != MembershipActive {
		return nil, nil, ErrNotMember
	}

	exclude := ""
	if excludeSelf {
		exclude = callerID
	}

	members, err := s.store.Members(ctx, circleID, exclude)
	if err != nil {
		return nil, nil, err
	}

	return c, members, nil
}
