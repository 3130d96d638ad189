package dialog

// Manager is the dialog table keyed by Key, grounded on
// pkg/sip/dialog/manager.go's sync.Map-backed store. A single endpoint
// is driven from one goroutine (the sans-I/O design's single-mutator
// rule), so a plain map replaces the concurrent one.
type Manager struct {
	dialogs map[Key]*Dialog
}

// NewManager returns an empty dialog table.
func NewManager() *Manager {
	return &Manager{dialogs: make(map[Key]*Dialog)}
}

// Create registers a new dialog under key. Fails if one already exists.
func (m *Manager) Create(key Key, expectedCSeq uint32) (*Dialog, error) {
	if _, exists := m.dialogs[key]; exists {
		return nil, ErrDialogExists
	}
	d := New(key, expectedCSeq)
	m.dialogs[key] = d
	return d, nil
}

// Find looks up a dialog by key.
func (m *Manager) Find(key Key) (*Dialog, bool) {
	d, ok := m.dialogs[key]
	return d, ok
}

// Remove drops a dialog, e.g. once it reaches Terminated.
func (m *Manager) Remove(key Key) {
	delete(m.dialogs, key)
}

// Count reports the number of live dialogs (tests, metrics).
func (m *Manager) Count() int { return len(m.dialogs) }
