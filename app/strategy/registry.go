package strategy

import (
	"sort"
	"strings"
	"sync"
)

// Registry resolves strategies by code. Custom strategies register at startup.
type Registry struct {
	mu          sync.RWMutex
	strategies  map[string]Strategy
	defaultCode string
}

func NewRegistry(defaultCode string, strategies ...Strategy) *Registry {
	r := &Registry{
		strategies:  make(map[string]Strategy, len(strategies)),
		defaultCode: strings.TrimSpace(defaultCode),
	}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Code()] = s
}

// Get returns the strategy for code, or the default one when code is empty.
func (r *Registry) Get(code string) (Strategy, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = r.defaultCode
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[code]
	if !ok {
		return nil, ErrStrategyNotSupported
	}
	return s, nil
}

func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.strategies))
	for code := range r.strategies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
