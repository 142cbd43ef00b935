package source

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store for tests. It mirrors Local's semantics:
// only .json names without the metadata prefix are listed, failed files
// move to a separate quarantine map instead of being deleted.
//
// Thread-safe: the batch driver reads and deletes concurrently.
type Memory struct {
	mu          sync.Mutex
	files       map[string]string
	quarantined map[string]string
	readErr     map[string]error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files:       make(map[string]string),
		quarantined: make(map[string]string),
		readErr:     make(map[string]error),
	}
}

// Put adds or replaces a candidate file.
func (m *Memory) Put(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = content
}

// FailReads makes subsequent reads of name return err.
func (m *Memory) FailReads(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr[name] = err
}

func (m *Memory) ListFiles() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.files {
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, metadataPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) ReadFile(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.readErr[name]; ok {
		return "", err
	}
	content, ok := m.files[name]
	if !ok {
		return "", fmt.Errorf("read %s: no such file", name)
	}
	return content, nil
}

func (m *Memory) DeleteFile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("delete %s: no such file", name)
	}
	delete(m.files, name)
	return nil
}

func (m *Memory) MoveToQuarantine(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[name]
	if !ok {
		return fmt.Errorf("quarantine %s: no such file", name)
	}
	delete(m.files, name)
	m.quarantined[name] = content
	return nil
}

// RemoveQuarantined deletes a quarantined file.
func (m *Memory) RemoveQuarantined(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quarantined[name]; !ok {
		return fmt.Errorf("quarantined file %s: no such file", name)
	}
	delete(m.quarantined, name)
	return nil
}

// Exists reports whether name is still a candidate file.
func (m *Memory) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

// Quarantined reports whether name has been moved to the quarantine area.
func (m *Memory) Quarantined(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.quarantined[name]
	return ok
}
