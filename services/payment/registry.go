package payment

import (
	"log"
	"sort"
	"sync"
)

// Registry holds the recurring gateways enabled for this deployment.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]RecurringGateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]RecurringGateway)}
}

func (r *Registry) Register(gateway RecurringGateway) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gateways[gateway.ID()]; exists {
		log.Printf("Warning: recurring gateway %s registered twice, replacing previous instance", gateway.ID())
	}
	r.gateways[gateway.ID()] = gateway
}

func (r *Registry) Get(id string) (RecurringGateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gateway, ok := r.gateways[id]
	return gateway, ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.gateways))
	for id := range r.gateways {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
