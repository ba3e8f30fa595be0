package session

import (
	"sync"

	"github.com/xaenox/sentiment-bot/internal/models"
)

// Directory hands out one Manager per identity, created on first use.
type Directory struct {
	mu       sync.Mutex
	opts     []Option
	newStore func() Store
	entries  map[string]*entry
}

type entry struct {
	manager *Manager
	// exchange serializes multi-step operations such as append, predict,
	// append, save.
	exchange sync.Mutex
}

func NewDirectory(opts ...Option) *Directory {
	return &Directory{
		opts:     opts,
		newStore: func() Store { return NewMemoryStore() },
		entries:  make(map[string]*entry),
	}
}

// Manager returns the session manager for identity.
func (d *Directory) Manager(identity models.Identity) *Manager {
	return d.get(identity).manager
}

// Lock holds the exchange lock of identity until the returned func is called.
func (d *Directory) Lock(identity models.Identity) (*Manager, func()) {
	e := d.get(identity)
	e.exchange.Lock()
	return e.manager, e.exchange.Unlock
}

// Len returns the number of identities seen so far.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Directory) get(identity models.Identity) *entry {
	key := identity.Key()

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[key]
	if !ok {
		e = &entry{manager: NewManager(d.newStore(), d.opts...)}
		d.entries[key] = e
	}
	return e
}
