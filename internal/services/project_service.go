// internal/services/project_service.go
package services

import (
	"sync"

	"github.com/google/uuid"

	"github.com/aidirector/studio/internal/models"
)

// ProjectService owns the single live project document. All mutation goes
// through its operations; readers only ever see deep clones, so nothing
// outside the store can alias its slices. The mutex keeps the single-writer
// guarantee when callers run on real goroutines.
type ProjectService struct {
	mu      sync.RWMutex
	project *models.ProjectData
}

// NewProjectService creates an empty document store.
func NewProjectService() *ProjectService {
	return &ProjectService{}
}

// NewSceneID issues a fresh unique scene id. Scene ids are never trusted
// across the archive boundary, so every import and every outline run mints
// new ones.
func NewSceneID() string {
	return uuid.NewString()
}

// HasProject reports whether a document is live.
func (s *ProjectService) HasProject() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project != nil
}

// Replace installs data as the live document, discarding any previous one.
// The store takes ownership of its own clone; the caller's copy stays
// detached.
func (s *ProjectService) Replace(data *models.ProjectData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data == nil {
		s.project = nil
		return
	}
	s.project = data.Clone()
}

// Snapshot returns a deep copy of the live document, or nil when none is
// installed.
func (s *ProjectService) Snapshot() *models.ProjectData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.project == nil {
		return nil
	}
	return s.project.Clone()
}

// UpdateScene applies a partial edit to the scene with the given id in the
// named variant. Unknown ids are a no-op; the other variant is never touched.
func (s *ProjectService) UpdateScene(variant models.Variant, sceneID string, update models.SceneUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == nil {
		return false
	}

	scenes := s.project.Scenes(variant)
	for i := range scenes {
		if scenes[i].ID == sceneID {
			update.Apply(&scenes[i])
			return true
		}
	}
	return false
}

// AddScene appends a scene to the named variant. A blank id is filled in;
// existing orders are not renumbered.
func (s *ProjectService) AddScene(variant models.Variant, scene models.Scene) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == nil || !variant.IsValid() {
		return false
	}

	if scene.ID == "" {
		scene.ID = NewSceneID()
	}
	s.project.SetScenes(variant, append(s.project.Scenes(variant), scene.Clone()))
	return true
}

// RemoveScene deletes the scene with the given id from the named variant.
// Unknown ids are a no-op. Scene order values are not renumbered: order
// reflects the original generation sequence and stays stable for export.
func (s *ProjectService) RemoveScene(variant models.Variant, sceneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == nil {
		return false
	}

	scenes := s.project.Scenes(variant)
	for i := range scenes {
		if scenes[i].ID == sceneID {
			s.project.SetScenes(variant, append(scenes[:i:i], scenes[i+1:]...))
			return true
		}
	}
	return false
}

// FindScene returns a clone of the scene with the given id, or false.
func (s *ProjectService) FindScene(variant models.Variant, sceneID string) (models.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.project == nil {
		return models.Scene{}, false
	}

	for _, scene := range s.project.Scenes(variant) {
		if scene.ID == sceneID {
			return scene.Clone(), true
		}
	}
	return models.Scene{}, false
}

// SceneIDs returns the ids of the named variant in document order.
func (s *ProjectService) SceneIDs(variant models.Variant) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.project == nil {
		return nil
	}

	scenes := s.project.Scenes(variant)
	ids := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		ids = append(ids, scene.ID)
	}
	return ids
}

// Style returns the live document's visual style, or "".
func (s *ProjectService) Style() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.project == nil {
		return ""
	}
	return s.project.Style
}
