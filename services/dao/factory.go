package dao

import (
	"fmt"
	"sort"
	"sync"

	"dbadminapi/models"
	"dbadminapi/services/apperrors"
)

// Constructor builds a DAO for a decrypted connection. It must not perform I/O;
// implementations connect lazily on first use.
type Constructor func(conn models.Connection, userID string) (DataAccessObject, error)

// Factory creates a fresh DAO for every operation.
type Factory interface {
	CreateDataAccessObject(conn models.Connection, userID string) (DataAccessObject, error)
}

// Registry dispatches on connection type to the registered constructor.
type Registry struct {
	mu           sync.RWMutex
	constructors map[models.ConnectionType]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[models.ConnectionType]Constructor)}
}

// Register makes a constructor available for connection type t, replacing any previous one.
func (r *Registry) Register(t models.ConnectionType, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[t] = c
}

// Types lists the registered connection types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// CreateDataAccessObject returns a new DAO for conn. Types without a constructor fail
// with an Unsupported error.
func (r *Registry) CreateDataAccessObject(conn models.Connection, userID string) (DataAccessObject, error) {
	r.mu.RLock()
	c, ok := r.constructors[conn.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.Unsupported(fmt.Sprintf("connection type %q is not supported (available: %v)", conn.Type, r.Types()))
	}
	return c(conn, userID)
}

// DefaultRegistry is populated by the relational and agent packages at init time.
var DefaultRegistry = NewRegistry()

// Register adds a constructor to DefaultRegistry.
func Register(t models.ConnectionType, c Constructor) {
	DefaultRegistry.Register(t, c)
}
