package pubsub

import (
	"sync"
)

// Member is one user present on a presence channel.
type Member struct {
	ID   string `json:"id"`
	Info any    `json:"info"`
}

// Members is the live member set of a presence channel.
type Members struct {
	mu      sync.RWMutex
	members map[string]any
	count   int
	myID    string
}

func newMembers() *Members {
	return &Members{members: make(map[string]any)}
}

// Each calls fn for every current member. Order is unspecified; fn runs on a
// snapshot so it may call back into Members.
func (m *Members) Each(fn func(Member)) {
	for _, member := range m.snapshot() {
		fn(member)
	}
}

func (m *Members) snapshot() []Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Member, 0, len(m.members))
	for id, info := range m.members {
		out = append(out, Member{ID: id, Info: info})
	}
	return out
}

// Add inserts or overwrites a member.
func (m *Members) Add(member Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[member.ID]; !ok {
		m.count++
	}
	m.members[member.ID] = member.Info
}

// Remove deletes a member and returns what was stored. Unknown ids leave the
// set untouched.
func (m *Members) Remove(id string) (Member, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.members[id]
	if !ok {
		return Member{}, false
	}
	delete(m.members, id)
	m.count--
	return Member{ID: id, Info: info}, true
}

func (m *Members) Get(id string) (Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.members[id]
	if !ok {
		return Member{}, false
	}
	return Member{ID: id, Info: info}, true
}

func (m *Members) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Me returns the local user once the subscription has been acknowledged.
func (m *Members) Me() (Member, bool) {
	m.mu.RLock()
	id := m.myID
	m.mu.RUnlock()
	if id == "" {
		return Member{}, false
	}
	return m.Get(id)
}

func (m *Members) setMyID(id string) {
	m.mu.Lock()
	m.myID = id
	m.mu.Unlock()
}

// replace swaps in an authoritative snapshot. The count always follows the
// map, whatever count the server reported.
func (m *Members) replace(hash map[string]any) {
	members := make(map[string]any, len(hash))
	for id, info := range hash {
		members[id] = info
	}
	m.mu.Lock()
	m.members = members
	m.count = len(members)
	m.mu.Unlock()
}

func (m *Members) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[string]any)
	m.count = 0
	m.myID = ""
}
