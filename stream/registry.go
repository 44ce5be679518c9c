package stream

import (
	"sync"

	"github.com/maximhq/xmppstream/interfaces"
)

// Registry holds the ordered set of registered StreamFeatureHandlers, in
// registration order, plus the flattened list of element-handler
// registration tuples they contribute. Grounded on the teacher's
// core/registry.go ProviderRegistry, generalized from a keyed lookup
// to an ordered list since §4.5 requires iteration order ("first wins")
// rather than keyed retrieval.
type Registry struct {
	mu       sync.Mutex
	handlers []interfaces.StreamFeatureHandler
}

// NewRegistry constructs an empty feature-handler registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a feature handler, per §9's explicit-registration
// redesign of the reflective "handler discovery" the source used.
// Registration order is preserved and determines both
// stream_feature_handlers iteration order and element-handler
// first-wins precedence.
func (r *Registry) Register(h interfaces.StreamFeatureHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Handlers returns the registered feature handlers in registration
// order.
func (r *Registry) Handlers() []interfaces.StreamFeatureHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interfaces.StreamFeatureHandler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Len returns the number of registered feature handlers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// ElementHandlerEntries flattens every registered handler's
// ElementHandlers() in registration order, for Stream.installElementHandlers
// to consume.
func (r *Registry) ElementHandlerEntries() []interfaces.ElementHandlerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interfaces.ElementHandlerEntry
	for _, h := range r.handlers {
		out = append(out, h.ElementHandlers()...)
	}
	return out
}
