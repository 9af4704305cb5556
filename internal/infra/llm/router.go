package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Role identifies which gateway operation a provider is selected for.
type Role string

const (
	RoleEmbed Role = "embed"
	RoleChat  Role = "chat"
)

// Router selects an LLMProvider per role, so embeddings and chat can live on
// different backends (e.g. Ollama embeddings + OpenAI chat). Router itself
// implements LLMProvider.
type Router struct {
	providers map[string]LLMProvider
	embedKey  string
	chatKey   string
}

// NewRouter creates a Router over providers and the keys serving embeddings
// and chat.
func NewRouter(providers map[string]LLMProvider, embedKey, chatKey string) *Router {
	ps := make(map[string]LLMProvider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, embedKey: embedKey, chatKey: chatKey}
}

// Route returns the provider configured for role.
func (r *Router) Route(_ context.Context, role Role) (LLMProvider, error) {
	key := r.chatKey
	if role == RoleEmbed {
		key = r.embedKey
	}
	p, ok := r.providers[key]
	if !ok {
		return nil, fmt.Errorf("llm router: %s provider %q not registered (available: %v)", role, key, r.keys())
	}
	return p, nil
}

// Embed forwards to the embedding provider.
func (r *Router) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	p, err := r.Route(ctx, RoleEmbed)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, req)
}

// ChatCompletion forwards to the chat provider.
func (r *Router) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := r.Route(ctx, RoleChat)
	if err != nil {
		return nil, err
	}
	return p.ChatCompletion(ctx, req)
}

// ModelInfo merges chat and embedding metadata from the routed providers.
func (r *Router) ModelInfo() ModelMeta {
	var meta ModelMeta
	if p, err := r.Route(context.Background(), RoleChat); err == nil {
		meta = p.ModelInfo()
	}
	if p, err := r.Route(context.Background(), RoleEmbed); err == nil {
		em := p.ModelInfo()
		meta.EmbeddingModel = em.EmbeddingModel
		if meta.Provider == "" {
			meta.Provider = em.Provider
		} else if em.Provider != meta.Provider {
			meta.Provider = em.Provider + "+" + meta.Provider
		}
	}
	return meta
}

// HealthCheck checks every routed provider once.
func (r *Router) HealthCheck(ctx context.Context) error {
	var errs []error
	seen := map[LLMProvider]bool{}
	for _, role := range []Role{RoleEmbed, RoleChat} {
		p, err := r.Route(ctx, role)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := p.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// keys returns the registered provider names (for error messages).
func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
