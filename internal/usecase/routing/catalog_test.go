package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

func testProfiles() []domain.AgentProfile {
	return []domain.AgentProfile{
		{
			ID:          "backend-architect",
			DisplayName: "Backend Architect",
			Description: "Designs services and data models",
			Keywords:    []string{"api", "microservices", "database design"},
		},
		{
			ID:                 "frontend-developer",
			DisplayName:        "Frontend Developer",
			Description:        "Builds user interfaces",
			Keywords:           []string{"react", "css", "ui"},
			MaxConcurrentTasks: 4,
		},
	}
}

func TestNewCatalogDefaultsCapacity(t *testing.T) {
	c, err := NewCatalog(testProfiles(), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	p, err := c.Get("backend-architect")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.MaxConcurrentTasks != defaultMaxConcurrent {
		t.Errorf("capacity = %d, want default %d", p.MaxConcurrentTasks, defaultMaxConcurrent)
	}
}

func TestNewCatalogRejectsDuplicateID(t *testing.T) {
	profiles := testProfiles()
	profiles[1].ID = profiles[0].ID
	if _, err := NewCatalog(profiles, nil); !errors.Is(err, domain.ErrCatalogLoad) {
		t.Errorf("expected ErrCatalogLoad, got %v", err)
	}
}

func TestNewCatalogRejectsEmptyKeywords(t *testing.T) {
	profiles := testProfiles()
	profiles[0].Keywords = nil
	if _, err := NewCatalog(profiles, nil); !errors.Is(err, domain.ErrCatalogLoad) {
		t.Errorf("expected ErrCatalogLoad, got %v", err)
	}
}

func TestCatalogGetUnknown(t *testing.T) {
	c, err := NewCatalog(testProfiles(), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if _, err := c.Get("nobody"); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestCatalogReplaceSwapsSnapshot(t *testing.T) {
	c, err := NewCatalog(testProfiles(), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	before := c.Snapshot()

	next := testProfiles()[:1]
	if err := c.Replace(next); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if c.Snapshot().Len() != 1 {
		t.Errorf("snapshot len = %d, want 1", c.Snapshot().Len())
	}
	// The pinned snapshot is untouched.
	if before.Len() != 2 {
		t.Errorf("pinned snapshot mutated, len = %d", before.Len())
	}
}

func TestCatalogReplaceRejectsInvalid(t *testing.T) {
	c, err := NewCatalog(testProfiles(), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	bad := testProfiles()
	bad[0].ID = ""
	if err := c.Replace(bad); err == nil {
		t.Fatal("expected error for invalid profiles")
	}
	if c.Snapshot().Len() != 2 {
		t.Errorf("failed replace must keep current snapshot, len = %d", c.Snapshot().Len())
	}
}

func TestComputeEmbeddings(t *testing.T) {
	c, err := NewCatalog(testProfiles(), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	emb := &stubEmbedder{vec: []float32{1, 0, 0}}
	if err := c.ComputeEmbeddings(context.Background(), emb); err != nil {
		t.Fatalf("ComputeEmbeddings: %v", err)
	}

	snap := c.Snapshot()
	if !snap.HasEmbeddings() {
		t.Fatal("snapshot should carry embeddings")
	}
	if got := snap.Embedding(0); len(got) != 3 {
		t.Errorf("embedding len = %d, want 3", len(got))
	}
}

func TestComputeEmbeddingsFailureKeepsSnapshot(t *testing.T) {
	c, err := NewCatalog(testProfiles(), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	emb := &stubEmbedder{err: errors.New("backend down")}
	if err := c.ComputeEmbeddings(context.Background(), emb); err == nil {
		t.Fatal("expected error")
	}
	if c.Snapshot().HasEmbeddings() {
		t.Error("failed embedding run must not attach vectors")
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
agents:
  - id: qa
    display_name: QA Engineer
    keywords: [test, regression]
    specializations: [quality]
`)
	profiles, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != "qa" {
		t.Errorf("unexpected profiles: %+v", profiles)
	}
}

func TestParseCatalogEmpty(t *testing.T) {
	if _, err := ParseCatalog([]byte("agents: []")); !errors.Is(err, domain.ErrCatalogLoad) {
		t.Errorf("expected ErrCatalogLoad, got %v", err)
	}
}
