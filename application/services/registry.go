package services

import (
	"sync"

	"outline-backend/domain/config"
)

// WorkspaceRegistry hands out one workspace per project, creating it on
// first use. Two requests for the same project always share a workspace, so
// the per-project mutex inside it is the only write serialization needed.
type WorkspaceRegistry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	cfg        *config.DomainConfig
	deps       WorkspaceDeps
}

// NewWorkspaceRegistry creates an empty registry
func NewWorkspaceRegistry(cfg *config.DomainConfig, deps WorkspaceDeps) *WorkspaceRegistry {
	return &WorkspaceRegistry{
		workspaces: make(map[string]*Workspace),
		cfg:        cfg,
		deps:       deps,
	}
}

// GetOrCreate returns the workspace for a project, creating it if needed.
// The ownerID is bound at creation; a later caller with a different owner
// for the same project gets the existing workspace, access control having
// happened at the interface layer.
func (r *WorkspaceRegistry) GetOrCreate(projectID, ownerID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.workspaces[projectID]; ok {
		return w
	}
	w := NewWorkspace(projectID, ownerID, r.cfg, r.deps)
	r.workspaces[projectID] = w
	return w
}

// Get returns the workspace for a project if one exists
func (r *WorkspaceRegistry) Get(projectID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[projectID]
	return w, ok
}

// Remove closes and drops a project's workspace
func (r *WorkspaceRegistry) Remove(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.workspaces[projectID]; ok {
		w.Close()
		delete(r.workspaces, projectID)
	}
}

// Close shuts down every workspace
func (r *WorkspaceRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, w := range r.workspaces {
		w.Close()
		delete(r.workspaces, id)
	}
}
