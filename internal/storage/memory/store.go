// Package memory provides an in-memory store backing every domain
// service. It is used for local development (DATABASE_URL=memory) and
// in tests. Each conditional mutation (membership enrollment, bulk
// approval with event completion, the primary-pointer updates) runs
// under one hold of a single mutex, so racing calls cannot both pass
// the same precondition.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hiroyukim/warikan/internal/approval"
	"github.com/hiroyukim/warikan/internal/circle"
	"github.com/hiroyukim/warikan/internal/event"
	"github.com/hiroyukim/warikan/internal/user"
)

// Store keeps all application state in process memory
type Store struct {
	mu sync.RWMutex

	users        map[string]*user.User
	circles      map[int64]*circle.Circle
	memberships  map[int64]*circle.Membership
	events       map[int64]*event.Event
	participants map[int64]*event.Participant

	circleSeq      int64
	membershipSeq  int64
	eventSeq       int64
	participantSeq int64
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		users:        make(map[string]*user.User),
		circles:      make(map[int64]*circle.Circle),
		memberships:  make(map[int64]*circle.Membership),
		events:       make(map[int64]*event.Event),
		participants: make(map[int64]*event.Participant),
	}
}

// --- user.Store ---

// UserByID returns nil, nil when the user does not exist
func (s *Store) UserByID(ctx context.Context, userID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

// UpsertUser creates the user or refreshes the display name
func (s *Store) UpsertUser(ctx context.Context, u *user.User) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	existing, ok := s.users[u.ID]
	if !ok {
		stored := &user.User{
			ID:        u.ID,
			Name:      u.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.users[u.ID] = stored
		return cloneUser(stored), nil
	}

	existing.Name = u.Name
	existing.UpdatedAt = now
	return cloneUser(existing), nil
}

// --- circle.Store ---

// CreateCircle inserts a new circle; names are not unique
func (s *Store) CreateCircle(ctx context.Context, name, createdBy string) (*circle.Circle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.circleSeq++
	c := &circle.Circle{
		ID:        s.circleSeq,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	s.circles[c.ID] = c
	return cloneCircle(c), nil
}

// CircleByID returns nil, nil when the circle does not exist
func (s *Store) CircleByID(ctx context.Context, id int64) (*circle.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.circles[id]
	if !ok {
		return nil, nil
	}
	return cloneCircle(c), nil
}

// CirclesByName returns every circle with exactly this name
func (s *Store) CirclesByName(ctx context.Context, name string) ([]*circle.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*circle.Circle
	for _, c := range s.circles {
		if c.Name == name {
			matches = append(matches, cloneCircle(c))
		}
	}
	sortCirclesByID(matches)
	return matches, nil
}

// SearchCircles finds circles by case-insensitive substring match,
// capped at 20 results
func (s *Store) SearchCircles(ctx context.Context, query string) ([]*circle.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var matches []*circle.Circle
	for _, c := range s.circles {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			matches = append(matches, cloneCircle(c))
		}
	}
	sortCirclesByID(matches)
	if len(matches) > 20 {
		matches = matches[:20]
	}
	return matches, nil
}

// CirclesForUser returns the circles the user is an active member of
func (s *Store) CirclesForUser(ctx context.Context, userID string) ([]*circle.Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var circles []*circle.Circle
	for _, m := range s.memberships {
		if m.UserID != userID || m.Status != circle.MembershipActive {
			continue
		}
		if c, ok := s.circles[m.CircleID]; ok {
			circles = append(circles, cloneCircle(c))
		}
	}
	sortCirclesByID(circles)
	return circles, nil
}

// Membership returns nil, nil when the user has no membership row at all
func (s *Store) Membership(ctx context.Context, userID string, circleID int64) (*circle.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.membership(userID, circleID)
	if m == nil {
		return nil, nil
	}
	return cloneMembership(m), nil
}

// Enroll activates the membership under one lock hold, so two racing
// joins cannot double-enroll: a fresh row is inserted, a left or removed
// one is reactivated, and an active one reports ErrAlreadyMember.
func (s *Store) Enroll(ctx context.Context, circleID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.membership(userID, circleID)
	switch {
	case m == nil:
		s.membershipSeq++
		s.memberships[s.membershipSeq] = &circle.Membership{
			ID:       s.membershipSeq,
			UserID:   userID,
			CircleID: circleID,
			Status:   circle.MembershipActive,
			JoinedAt: time.Now(),
		}
	case m.Status == circle.MembershipActive:
		return circle.ErrAlreadyMember
	default:
		m.Status = circle.MembershipActive
		m.JoinedAt = time.Now()
		m.LeftAt = nil
	}
	return nil
}

// DeactivateMember flips an active membership to the given status
func (s *Store) DeactivateMember(ctx context.Context, userID string, circleID int64, status circle.MembershipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.membership(userID, circleID)
	if m == nil || m.Status != circle.MembershipActive {
		return circle.ErrNotMember
	}
	now := time.Now()
	m.Status = status
	m.LeftAt = &now
	return nil
}

// Members lists the circle's active members joined with display names
func (s *Store) Members(ctx context.Context, circleID int64, excludeUserID string) ([]*circle.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*circle.Member
	for _, m := range s.memberships {
		if m.CircleID != circleID || m.Status != circle.MembershipActive || m.UserID == excludeUserID {
			continue
		}
		name := m.UserID
		if u, ok := s.users[m.UserID]; ok {
			name = u.Name
		}
		members = append(members, &circle.Member{
			UserID:   m.UserID,
			Name:     name,
			JoinedAt: m.JoinedAt,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// PrimaryCircleID returns the user's primary circle id, or false when unset
func (s *Store) PrimaryCircleID(ctx context.Context, userID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok || u.PrimaryCircleID == nil {
		return 0, false, nil
	}
	return *u.PrimaryCircleID, true, nil
}

// SetPrimaryCircle points the user's primary circle at the given circle
func (s *Store) SetPrimaryCircle(ctx context.Context, userID string, circleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	u.PrimaryCircleID = &circleID
	u.UpdatedAt = time.Now()
	return nil
}

// SetPrimaryCircleIfUnset sets the pointer only while the user has no
// primary circle
func (s *Store) SetPrimaryCircleIfUnset(ctx context.Context, userID string, circleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.PrimaryCircleID != nil {
		return nil
	}
	u.PrimaryCircleID = &circleID
	u.UpdatedAt = time.Now()
	return nil
}

// ClearPrimaryCircle unsets the user's primary circle only while it
// still points at the given circle
func (s *Store) ClearPrimaryCircle(ctx context.Context, userID string, circleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.PrimaryCircleID == nil || *u.PrimaryCircleID != circleID {
		return nil
	}
	u.PrimaryCircleID = nil
	u.UpdatedAt = time.Now()
	return nil
}

// --- event.Store ---

// CreateEvent persists the event and its participant rows atomically,
// filling in the generated ids and timestamps
func (s *Store) CreateEvent(ctx context.Context, e *event.Event, participants []*event.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.eventSeq++
	e.ID = s.eventSeq
	e.CreatedAt = now
	e.UpdatedAt = now
	s.events[e.ID] = cloneEvent(e)

	for _, p := range participants {
		s.participantSeq++
		p.ID = s.participantSeq
		p.EventID = e.ID
		p.CreatedAt = now
		s.participants[p.ID] = cloneParticipant(p)
	}
	return nil
}

// EventByID returns nil, nil when the event does not exist
func (s *Store) EventByID(ctx context.Context, id int64) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return cloneEvent(e), nil
}

// EventsForUser returns events the user organizes or participates in,
// newest first
func (s *Store) EventsForUser(ctx context.Context, userID string) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	involved := make(map[int64]struct{})
	for _, p := range s.participants {
		if p.UserID == userID {
			involved[p.EventID] = struct{}{}
		}
	}

	var events []*event.Event
	for _, e := range s.events {
		if _, ok := involved[e.ID]; ok || e.OrganizerID == userID {
			events = append(events, cloneEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// Participants retrieves the event's participant rows in enrollment order
func (s *Store) Participants(ctx context.Context, eventID int64) ([]*event.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var participants []*event.Participant
	for _, p := range s.participants {
		if p.EventID == eventID {
			participants = append(participants, cloneParticipant(p))
		}
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })
	return participants, nil
}

// Participant returns nil, nil when the user is not enrolled in the event
func (s *Store) Participant(ctx context.Context, eventID int64, userID string) (*event.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.participant(eventID, userID)
	if p == nil {
		return nil, nil
	}
	return cloneParticipant(p), nil
}

// MarkReported stamps the participant's payment report
func (s *Store) MarkReported(ctx context.Context, eventID int64, userID string) (*event.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participant(eventID, userID)
	if p == nil {
		return nil, nil
	}
	now := time.Now()
	p.Reported = true
	p.ReportedAt = &now
	return cloneParticipant(p), nil
}

// CircleMembers maps the circle's active member ids to display names
func (s *Store) CircleMembers(ctx context.Context, circleID int64) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make(map[string]string)
	for _, m := range s.memberships {
		if m.CircleID != circleID || m.Status != circle.MembershipActive {
			continue
		}
		name := m.UserID
		if u, ok := s.users[m.UserID]; ok {
			name = u.Name
		}
		members[m.UserID] = name
	}
	return members, nil
}

// UnpaidParticipants lists unreported, unapproved participants of active
// events, oldest enrollment first
func (s *Store) UnpaidParticipants(ctx context.Context) ([]*event.UnpaidParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unpaid []*event.UnpaidParticipant
	for _, p := range s.participants {
		if p.Reported || p.ApprovedAt != nil {
			continue
		}
		e, ok := s.events[p.EventID]
		if !ok || e.Status == event.StatusCompleted {
			continue
		}
		unpaid = append(unpaid, &event.UnpaidParticipant{
			UserID:      p.UserID,
			EventID:     p.EventID,
			EventName:   e.Name,
			SplitAmount: e.SplitAmount,
			CreatedAt:   p.CreatedAt,
		})
	}
	sort.Slice(unpaid, func(i, j int) bool {
		if unpaid[i].CreatedAt.Equal(unpaid[j].CreatedAt) {
			return unpaid[i].EventID < unpaid[j].EventID
		}
		return unpaid[i].CreatedAt.Before(unpaid[j].CreatedAt)
	})
	return unpaid, nil
}

// PaymentStatuses returns the user's payment overview, newest first
func (s *Store) PaymentStatuses(ctx context.Context, userID string) ([]*event.PaymentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		status  *event.PaymentStatus
		created time.Time
	}
	var entries []entry
	for _, p := range s.participants {
		if p.UserID != userID {
			continue
		}
		e, ok := s.events[p.EventID]
		if !ok {
			continue
		}
		entries = append(entries, entry{
			status: &event.PaymentStatus{
				EventID:   e.ID,
				EventName: e.Name,
				Amount:    e.SplitAmount,
				Reported:  p.Reported,
				Approved:  p.ApprovedAt != nil,
			},
			created: e.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].created.Equal(entries[j].created) {
			return entries[i].status.EventID > entries[j].status.EventID
		}
		return entries[i].created.After(entries[j].created)
	})

	statuses := make([]*event.PaymentStatus, len(entries))
	for i, e := range entries {
		statuses[i] = e.status
	}
	return statuses, nil
}

// --- approval.Store ---

// PendingForOrganizer lists reported-but-unapproved participants across
// the organizer's events, most recently reported first
func (s *Store) PendingForOrganizer(ctx context.Context, organizerID string) ([]*approval.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*approval.Approval
	for _, p := range s.participants {
		if !p.Reported || p.ApprovedAt != nil {
			continue
		}
		e, ok := s.events[p.EventID]
		if !ok || e.OrganizerID != organizerID {
			continue
		}
		a := &approval.Approval{
			ParticipantID: p.ID,
			EventID:       e.ID,
			UserID:        p.UserID,
			UserName:      p.UserName,
			EventName:     e.Name,
			Amount:        e.SplitAmount,
		}
		if p.ReportedAt != nil {
			t := *p.ReportedAt
			a.ReportedAt = &t
		}
		pending = append(pending, a)
	}
	sort.Slice(pending, func(i, j int) bool {
		ti, tj := pending[i].ReportedAt, pending[j].ReportedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.After(*tj)
		}
		return pending[i].ParticipantID > pending[j].ParticipantID
	})
	return pending, nil
}

// Approve flips the selected participant rows to approved and completes
// any event whose participants are all approved afterwards. The whole
// call runs under the store lock, so the completion check cannot race a
// concurrent approve.
func (s *Store) Approve(ctx context.Context, organizerID string, participantIDs []int64) (*approval.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before mutating anything
	selected := make([]*event.Participant, 0, len(participantIDs))
	for _, id := range participantIDs {
		p, ok := s.participants[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", approval.ErrParticipantNotFound, id)
		}
		e, ok := s.events[p.EventID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", approval.ErrParticipantNotFound, id)
		}
		if e.OrganizerID != organizerID {
			return nil, approval.ErrNotOrganizer
		}
		selected = append(selected, p)
	}

	organizerName := organizerID
	if u, ok := s.users[organizerID]; ok {
		organizerName = u.Name
	}

	now := time.Now()
	result := &approval.Result{}
	touched := make(map[int64]struct{})
	for _, p := range selected {
		if p.ApprovedAt != nil {
			// Already approved, skip without re-notifying
			continue
		}
		t := now
		p.ApprovedAt = &t
		e := s.events[p.EventID]
		result.Approved = append(result.Approved, &approval.ApprovedParticipant{
			ParticipantID: p.ID,
			EventID:       p.EventID,
			UserID:        p.UserID,
			UserName:      p.UserName,
			EventName:     e.Name,
			Amount:        e.SplitAmount,
			OrganizerName: organizerName,
		})
		touched[p.EventID] = struct{}{}
	}

	for eventID := range touched {
		e := s.events[eventID]
		if e.Status == event.StatusCompleted {
			continue
		}
		if s.allApproved(eventID) {
			e.Status = event.StatusCompleted
			e.UpdatedAt = now
			result.CompletedEventIDs = append(result.CompletedEventIDs, eventID)
		}
	}
	return result, nil
}

func (s *Store) allApproved(eventID int64) bool {
	for _, p := range s.participants {
		if p.EventID == eventID && p.ApprovedAt == nil {
			return false
		}
	}
	return true
}

func (s *Store) membership(userID string, circleID int64) *circle.Membership {
	for _, m := range s.memberships {
		if m.UserID == userID && m.CircleID == circleID {
			return m
		}
	}
	return nil
}

func (s *Store) participant(eventID int64, userID string) *event.Participant {
	for _, p := range s.participants {
		if p.EventID == eventID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func sortCirclesByID(circles []*circle.Circle) {
	sort.Slice(circles, func(i, j int) bool { return circles[i].ID < circles[j].ID })
}

func cloneUser(u *user.User) *user.User {
	out := *u
	if u.PrimaryCircleID != nil {
		id := *u.PrimaryCircleID
		out.PrimaryCircleID = &id
	}
	return &out
}

func cloneCircle(c *circle.Circle) *circle.Circle {
	out := *c
	return &out
}

func cloneMembership(m *circle.Membership) *circle.Membership {
	out := *m
	if m.LeftAt != nil {
		t := *m.LeftAt
		out.LeftAt = &t
	}
	return &out
}

func cloneEvent(e *event.Event) *event.Event {
	out := *e
	return &out
}

func cloneParticipant(p *event.Participant) *event.Participant {
	out := *p
	if p.ReportedAt != nil {
		t := *p.ReportedAt
		out.ReportedAt = &t
	}
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		out.ApprovedAt = &t
	}
	return &out
}
