package ethereum

import (
	"context"
	"fmt"
	"sync"

	"deposit-collector/internal/model"
)

// Registry holds one client per configured blockchain.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
}

// NewRegistry dials every blockchain in the catalog.
func NewRegistry(ctx context.Context, catalog *model.Catalog, opts Options) (*Registry, error) {
	r := &Registry{clients: make(map[uint64]*Client)}
	for _, b := range catalog.Blockchains() {
		c, err := Dial(ctx, b.ServerURL, opts)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("blockchain %s: %w", b.Key, err)
		}
		r.clients[b.ID] = c
	}
	return r, nil
}

// Client returns the client for blockchainID.
func (r *Registry) Client(blockchainID uint64) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[blockchainID]
	if !ok {
		return nil, fmt.Errorf("%w: no node client for id %d", model.ErrUnknownBlockchain, blockchainID)
	}
	return c, nil
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}
