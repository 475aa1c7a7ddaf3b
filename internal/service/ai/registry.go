package ai

import (
	"sort"
	"strings"
)

// Registry maps model names to clients. It is built once at startup.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if c != nil {
			r.clients[strings.ToLower(c.Name())] = c
		}
	}
	return r
}

func (r *Registry) Get(name string) (Client, bool) {
	c, ok := r.clients[strings.ToLower(name)]
	return c, ok
}

func (r *Registry) Supported(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
