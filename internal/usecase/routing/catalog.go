package routing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// discardLogger returns a no-op logger for components created without one.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Snapshot is one immutable view of the agent catalog. Routing requests pin
// a snapshot at the start of the request and score against it even if the
// catalog is replaced mid-flight.
type Snapshot struct {
	profiles   []domain.AgentProfile
	byID       map[string]int
	embeddings [][]float32 // parallel to profiles; nil until precomputed
}

// All returns the profiles in declaration order. The returned slice is shared
// and must not be mutated.
func (s *Snapshot) All() []domain.AgentProfile { return s.profiles }

// Len returns the number of profiles in the snapshot.
func (s *Snapshot) Len() int { return len(s.profiles) }

// Get returns the profile with the given ID.
func (s *Snapshot) Get(id string) (domain.AgentProfile, error) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.AgentProfile{}, fmt.Errorf("%w: %q", domain.ErrAgentNotFound, id)
	}
	return s.profiles[idx], nil
}

// Embedding returns the precomputed description embedding for the profile at
// declaration index i, or nil when embeddings have not been computed.
func (s *Snapshot) Embedding(i int) []float32 {
	if s.embeddings == nil || i < 0 || i >= len(s.embeddings) {
		return nil
	}
	return s.embeddings[i]
}

// HasEmbeddings reports whether the snapshot carries precomputed vectors.
func (s *Snapshot) HasEmbeddings() bool { return s.embeddings != nil }

// Catalog holds the current agent profile snapshot. Reloads swap the whole
// snapshot atomically; readers never block on a reload in progress.
type Catalog struct {
	snap   atomic.Pointer[Snapshot]
	logger *slog.Logger
}

// NewCatalog validates the given profiles and builds a catalog around them.
func NewCatalog(profiles []domain.AgentProfile, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = discardLogger()
	}
	snap, err := buildSnapshot(profiles)
	if err != nil {
		return nil, err
	}
	c := &Catalog{logger: logger}
	c.snap.Store(snap)
	return c, nil
}

// Snapshot returns the current catalog snapshot.
func (c *Catalog) Snapshot() *Snapshot { return c.snap.Load() }

// Get returns the profile with the given ID from the current snapshot.
func (c *Catalog) Get(id string) (domain.AgentProfile, error) {
	return c.snap.Load().Get(id)
}

// Replace validates profiles and swaps them in as the new snapshot.
// In-flight requests keep scoring against the snapshot they pinned.
func (c *Catalog) Replace(profiles []domain.AgentProfile) error {
	snap, err := buildSnapshot(profiles)
	if err != nil {
		return err
	}
	c.snap.Store(snap)
	c.logger.Info("catalog replaced", "agents", len(profiles))
	return nil
}

// ComputeEmbeddings embeds every profile's description text and swaps in a
// snapshot carrying the vectors. Embedding failures leave the current
// snapshot untouched; the engine then degrades to keyword-only scoring.
func (c *Catalog) ComputeEmbeddings(ctx context.Context, embedder domain.EmbeddingProvider) error {
	snap := c.snap.Load()
	if snap == nil || snap.Len() == 0 {
		return nil
	}

	texts := make([]string, snap.Len())
	for i, p := range snap.profiles {
		texts[i] = profileText(p)
	}

	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return domain.WrapOp("Catalog.ComputeEmbeddings", err)
	}
	if len(vecs) != snap.Len() {
		return domain.NewDomainError("Catalog.ComputeEmbeddings", domain.ErrEmbeddingFailed,
			fmt.Sprintf("got %d vectors for %d profiles", len(vecs), snap.Len()))
	}

	next := &Snapshot{profiles: snap.profiles, byID: snap.byID, embeddings: vecs}
	c.snap.Store(next)
	c.logger.Info("profile embeddings computed", "agents", snap.Len(), "provider", embedder.Name())
	return nil
}

// profileText is the text embedded for semantic matching: the description
// plus specialization tags, mirroring what the keyword side cannot see.
func profileText(p domain.AgentProfile) string {
	text := p.DisplayName + ". " + p.Description
	for _, s := range p.Specializations {
		text += " " + s
	}
	return text
}

const defaultMaxConcurrent = 3

// buildSnapshot validates profiles and indexes them. Duplicate IDs, missing
// required fields and empty keyword sets are hard configuration errors.
func buildSnapshot(profiles []domain.AgentProfile) (*Snapshot, error) {
	byID := make(map[string]int, len(profiles))
	out := make([]domain.AgentProfile, len(profiles))

	for i, p := range profiles {
		if p.ID == "" {
			return nil, domain.NewDomainError("LoadCatalog", domain.ErrCatalogLoad,
				fmt.Sprintf("agent at index %d has no id", i))
		}
		if p.DisplayName == "" {
			return nil, domain.NewDomainError("LoadCatalog", domain.ErrCatalogLoad,
				fmt.Sprintf("agent %q has no display name", p.ID))
		}
		if len(p.Keywords) == 0 {
			return nil, domain.NewDomainError("LoadCatalog", domain.ErrCatalogLoad,
				fmt.Sprintf("agent %q has an empty keyword set", p.ID))
		}
		if p.MaxConcurrentTasks < 0 {
			return nil, domain.NewDomainError("LoadCatalog", domain.ErrCatalogLoad,
				fmt.Sprintf("agent %q has negative capacity", p.ID))
		}
		if _, dup := byID[p.ID]; dup {
			return nil, domain.NewDomainError("LoadCatalog", domain.ErrCatalogLoad,
				fmt.Sprintf("duplicate agent id %q", p.ID))
		}
		if p.MaxConcurrentTasks == 0 {
			p.MaxConcurrentTasks = defaultMaxConcurrent
		}
		byID[p.ID] = i
		out[i] = p
	}

	return &Snapshot{profiles: out, byID: byID}, nil
}

// catalogFile is the on-disk YAML shape of the agent catalog.
type catalogFile struct {
	Agents []domain.AgentProfile `yaml:"agents"`
}

// ParseCatalog decodes a YAML catalog document into agent profiles.
func ParseCatalog(data []byte) ([]domain.AgentProfile, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogLoad, err)
	}
	if len(f.Agents) == 0 {
		return nil, fmt.Errorf("%w: catalog defines no agents", domain.ErrCatalogLoad)
	}
	return f.Agents, nil
}

// LoadCatalogFile reads and parses a YAML catalog from disk.
func LoadCatalogFile(path string) ([]domain.AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCatalogLoad, path, err)
	}
	return ParseCatalog(data)
}
