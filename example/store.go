package example

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pthm/hxview/lib/events"
	"github.com/pthm/hxview/lib/model"
)

// Role is a user's role in the directory.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// Roles lists the known roles in display order.
var Roles = []Role{RoleAdmin, RoleMember, RoleGuest}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is a directory entry.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Attrs returns the model attributes of u.
func (u *User) Attrs() map[string]any {
	return map[string]any{
		"id":      u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"role":    string(u.Role),
		"created": u.CreatedAt.Format("2006-01-02"),
	}
}

// Model returns u as a model.
func (u *User) Model() *model.Model {
	return model.New(u.Attrs())
}

// Stats summarizes the directory.
type Stats struct {
	Total  int
	ByRole map[Role]int
}

// Store is an in-memory user directory.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*User
	nextID  int
	now     func() time.Time
	changes *events.Bus[User]
}

// NewStore creates a new store with sample data.
func NewStore() *Store {
	s := NewEmptyStore()

	// Add sample users
	s.Add("Ada Lovelace", "ada@example.com", RoleAdmin)
	s.Add("Grace Hopper", "grace@example.com", RoleAdmin)
	s.Add("Alan Turing", "alan@example.com", RoleMember)
	s.Add("Edsger Dijkstra", "edsger@example.com", RoleMember)
	s.Add("Barbara Liskov", "barbara@example.com", RoleGuest)

	return s
}

// NewEmptyStore creates a store without sample data.
func NewEmptyStore() *Store {
	return &Store{
		users:   make(map[string]*User),
		nextID:  1,
		now:     time.Now,
		changes: events.NewBus[User](),
	}
}

// Changes publishes a copy of every user after it is added or updated.
func (s *Store) Changes() *events.Bus[User] {
	return s.changes
}

// Add creates a new user and returns its ID.
func (s *Store) Add(name, email string, role Role) string {
	s.mu.Lock()
	id := fmt.Sprintf("user-%d", s.nextID)
	s.nextID++

	u := &User{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  role,
		// Sequence offset keeps creation order stable for equal clocks.
		CreatedAt: s.now().Add(time.Duration(s.nextID) * time.Millisecond),
	}
	s.users[id] = u
	snapshot := *u
	s.mu.Unlock()

	s.changes.Publish(snapshot)
	return id
}

// Get returns a copy of the user with the given ID.
func (s *Store) Get(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Update changes a user's name and role. Empty values are left unchanged.
func (s *Store) Update(id, name string, role Role) bool {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if name != "" {
		u.Name = name
	}
	if role != "" {
		u.Role = role
	}
	snapshot := *u
	s.mu.Unlock()

	s.changes.Publish(snapshot)
	return true
}

// Delete removes a user by ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// List returns all users, oldest first, optionally filtered by role.
func (s *Store) List(role Role) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []User
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		result = append(result, *u)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

// Stats returns statistics about the directory.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByRole: make(map[Role]int)}
	for _, u := range s.users {
		stats.Total++
		stats.ByRole[u.Role]++
	}
	return stats
}
