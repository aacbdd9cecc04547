package actions

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDirectory is an in-memory Directory.
type fakeDirectory struct {
	users       map[uint]*models.User
	teams       map[uint][]uint
	departments map[uint][]uint
	lookupErr   error
	findErr     map[uint]error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       map[uint]*models.User{},
		teams:       map[uint][]uint{},
		departments: map[uint][]uint{},
	}
}

func (d *fakeDirectory) addUser(id uint, name string, role models.Role, active bool, token string) *fakeDirectory {
	d.users[id] = &models.User{ID: id, Name: name, Role: role, IsActive: active, FCMToken: token}
	return d
}

func (d *fakeDirectory) sortedIDs() []uint {
	ids := make([]uint, 0, len(d.users))
	for id := range d.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *fakeDirectory) FindUser(_ context.Context, id uint) (*models.User, error) {
	if err := d.findErr[id]; err != nil {
		return nil, err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (d *fakeDirectory) AdminIDs(_ context.Context, excludeID uint) ([]uint, error) {
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	var ids []uint
	for _, id := range d.sortedIDs() {
		if d.users[id].Role == models.RoleAdmin && id != excludeID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *fakeDirectory) ActiveUserIDs(_ context.Context, excludeID uint) ([]uint, error) {
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	var ids []uint
	for _, id := range d.sortedIDs() {
		if d.users[id].IsActive && id != excludeID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *fakeDirectory) TeamMemberIDs(_ context.Context, teamID uint) ([]uint, error) {
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	return d.teams[teamID], nil
}

func (d *fakeDirectory) DepartmentTeamIDs(_ context.Context, departmentID uint) ([]uint, error) {
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	return d.departments[departmentID], nil
}

type notificationKey struct {
	actionID    string
	recipientID uint
}

// fakeNotificationStore enforces the (action_id, recipient_id) uniqueness
// of the real store and can fail inserts for chosen recipients.
type fakeNotificationStore struct {
	mu     sync.Mutex
	rows   []models.Notification
	byKey  map[notificationKey]models.Notification
	failOn map[uint]error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		byKey:  map[notificationKey]models.Notification{},
		failOn: map[uint]error{},
	}
}

func (s *fakeNotificationStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[n.RecipientID]; err != nil {
		return err
	}
	key := notificationKey{n.ActionID, n.RecipientID}
	if existing, ok := s.byKey[key]; ok && n.ActionID != "" {
		*n = existing
		return repositories.ErrDuplicate
	}
	n.ID = primitive.NewObjectID()
	s.rows = append(s.rows, *n)
	s.byKey[key] = *n
	return nil
}

func (s *fakeNotificationStore) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *fakeNotificationStore) forRecipient(id uint) (models.Notification, bool) {
	for _, n := range s.all() {
		if n.RecipientID == id {
			return n, true
		}
	}
	return models.Notification{}, false
}

type fakeLogStore struct {
	mu   sync.Mutex
	rows []models.LogEntry
	err  error
}

func (s *fakeLogStore) CreateLog(_ context.Context, entry *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.rows {
		if existing.ActionID != "" && existing.ActionID == entry.ActionID {
			*entry = existing
			return repositories.ErrDuplicate
		}
	}
	entry.ID = primitive.NewObjectID()
	s.rows = append(s.rows, *entry)
	return nil
}

func (s *fakeLogStore) all() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LogEntry, len(s.rows))
	copy(out, s.rows)
	return out
}

// recordingEmitter records emitted events per user.
type recordingEmitter struct {
	mu     sync.Mutex
	events map[uint][]models.RealtimeEvent
	err    error
}

func (e *recordingEmitter) Emit(_ context.Context, userID uint, event models.RealtimeEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events == nil {
		e.events = map[uint][]models.RealtimeEvent{}
	}
	e.events[userID] = append(e.events[userID], event)
	return e.err
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, evs := range e.events {
		total += len(evs)
	}
	return total
}

// recordingPusher records push messages and fails for chosen tokens.
type recordingPusher struct {
	mu       sync.Mutex
	messages []models.PushMessage
	failFor  map[string]bool
}

var errPushProvider = errors.New("push provider unavailable")

func (p *recordingPusher) Push(_ context.Context, msg models.PushMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	if p.failFor[msg.Token] {
		return errPushProvider
	}
	return nil
}

func (p *recordingPusher) sent() []models.PushMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PushMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
