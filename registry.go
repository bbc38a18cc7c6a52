package hface

import (
	"fmt"
	"sync"
)

// Registry is a process-wide mapping from a version tag and role to a
// factory constructor, as described in §4.9. It is populated by explicit
// registration during process init (the h1, h2 and h3 packages each provide
// a Register function for their own version tag, which the caller invokes
// where it chooses; this module does not auto-register anything), and queried by
// higher layers (CLI, façade) to resolve a user-requested version. This
// replaces the teacher domain's entry-point-discovery style registration
// with the explicit-registration design note of §9.
type Registry struct {
	mu         sync.RWMutex
	tcp        map[registryKey]func() (TCPProtocolFactory, error)
	quicClient map[string]func() (QUICClientProtocolFactory, error)
	quicServer map[string]func() (QUICServerProtocolFactory, error)
}

type registryKey struct {
	version string
	role    Role
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tcp:        make(map[registryKey]func() (TCPProtocolFactory, error)),
		quicClient: make(map[string]func() (QUICClientProtocolFactory, error)),
		quicServer: make(map[string]func() (QUICServerProtocolFactory, error)),
	}
}

// DefaultRegistry is the shared registry used by callers that don't need
// isolation between independent registrations (tests that want a private
// registry should use NewRegistry instead).
var DefaultRegistry = NewRegistry()

// RegisterTCP registers a TCPProtocolFactory constructor under (version,
// role). It fails if that combination is already registered.
func (r *Registry) RegisterTCP(version string, role Role, newFactory func() (TCPProtocolFactory, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey{version, role}
	if _, ok := r.tcp[key]; ok {
		return fmt.Errorf("hface: %s/%s already registered", version, role)
	}
	r.tcp[key] = newFactory
	return nil
}

// LookupTCP returns the factory constructor registered for (version, role).
func (r *Registry) LookupTCP(version string, role Role) (func() (TCPProtocolFactory, error), error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	newFactory, ok := r.tcp[registryKey{version, role}]
	if !ok {
		return nil, fmt.Errorf("hface: no TCP factory registered for %s/%s", version, role)
	}
	return newFactory, nil
}

// NewTCPFactory resolves and constructs a factory for (version, role) in
// one call.
func (r *Registry) NewTCPFactory(version string, role Role) (TCPProtocolFactory, error) {
	newFactory, err := r.LookupTCP(version, role)
	if err != nil {
		return nil, err
	}
	return newFactory()
}

// RegisterQUICClient registers a QUICClientProtocolFactory constructor
// under version. It fails if version already has one.
func (r *Registry) RegisterQUICClient(version string, newFactory func() (QUICClientProtocolFactory, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quicClient[version]; ok {
		return fmt.Errorf("hface: QUIC client factory for %s already registered", version)
	}
	r.quicClient[version] = newFactory
	return nil
}

// RegisterQUICServer registers a QUICServerProtocolFactory constructor
// under version. It fails if version already has one.
func (r *Registry) RegisterQUICServer(version string, newFactory func() (QUICServerProtocolFactory, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quicServer[version]; ok {
		return fmt.Errorf("hface: QUIC server factory for %s already registered", version)
	}
	r.quicServer[version] = newFactory
	return nil
}

// NewQUICClientFactory resolves and constructs a QUIC client factory for
// version in one call.
func (r *Registry) NewQUICClientFactory(version string) (QUICClientProtocolFactory, error) {
	r.mu.RLock()
	newFactory, ok := r.quicClient[version]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("hface: no QUIC client factory registered for %s", version)
	}
	return newFactory()
}

// NewQUICServerFactory resolves and constructs a QUIC server factory for
// version in one call.
func (r *Registry) NewQUICServerFactory(version string) (QUICServerProtocolFactory, error) {
	r.mu.RLock()
	newFactory, ok := r.quicServer[version]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("hface: no QUIC server factory registered for %s", version)
	}
	return newFactory()
}

// Versions returns the set of version tags with at least one registered
// TCP role, QUIC client, or QUIC server factory.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for k := range r.tcp {
		add(k.version)
	}
	for v := range r.quicClient {
		add(v)
	}
	for v := range r.quicServer {
		add(v)
	}
	return out
}
