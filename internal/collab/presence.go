package collab

import (
	"slices"
	"sync"
)

// PresenceManager tracks the latest cursor, selection and tool of every
// connection in a room. Entries are keyed by client id so one user with
// two tabs shows up twice.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

// Snapshot returns a copy of every presence.
func (pm *PresenceManager) Snapshot() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		cp := *v
		cp.Selection = slices.Clone(v.Selection)
		result[k] = &cp
	}
	return result
}

// PruneSelections drops selected ids for which exists reports false, so
// remote selection outlines never point at deleted elements.
func (pm *PresenceManager) PruneSelections(exists func(id string) bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, p := range pm.presences {
		p.Selection = slices.DeleteFunc(p.Selection, func(id string) bool {
			return !exists(id)
		})
	}
}

func (pm *PresenceManager) StateMessage() *Message {
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.Snapshot()})
}
