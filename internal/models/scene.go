// internal/models/scene.go
package models

// SceneStatus is the explicit per-scene generation state. A scene is never
// simultaneously loading and holding an image.
type SceneStatus string

const (
	// SceneStatusEmpty: no image generated yet.
	SceneStatusEmpty SceneStatus = "empty"
	// SceneStatusLoading: a generation request for this scene is in flight.
	SceneStatusLoading SceneStatus = "loading"
	// SceneStatusReady: the scene holds a generated image handle.
	SceneStatusReady SceneStatus = "ready"
	// SceneStatusErrored: the last generation attempt failed; the scene is
	// left blank and may be retried manually.
	SceneStatusErrored SceneStatus = "errored"
)

// Scene is one storyboard unit.
type Scene struct {
	ID            string      `json:"id"`
	Order         int         `json:"order"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	VisualPrompt  string      `json:"visualPrompt"`
	Tags          []string    `json:"tags"`
	DirectorsNote string      `json:"directorsNote"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	Status        SceneStatus `json:"status"`
}

// HasImage reports whether an image has been generated for the scene.
func (s *Scene) HasImage() bool {
	return s.ImageURL != ""
}

// IsLoading reports whether a generation request is in flight.
func (s *Scene) IsLoading() bool {
	return s.Status == SceneStatusLoading
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() Scene {
	clone := *s
	if s.Tags != nil {
		clone.Tags = make([]string, len(s.Tags))
		copy(clone.Tags, s.Tags)
	}
	return clone
}

// SceneUpdate carries a partial scene edit. Nil fields are left untouched.
type SceneUpdate struct {
	Title         *string      `json:"title,omitempty"`
	Description   *string      `json:"description,omitempty"`
	VisualPrompt  *string      `json:"visualPrompt,omitempty"`
	Tags          *[]string    `json:"tags,omitempty"`
	DirectorsNote *string      `json:"directorsNote,omitempty"`
	ImageURL      *string      `json:"imageUrl,omitempty"`
	Status        *SceneStatus `json:"status,omitempty"`
}

// Apply copies the non-nil fields of the update onto the scene.
func (u *SceneUpdate) Apply(s *Scene) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.VisualPrompt != nil {
		s.VisualPrompt = *u.VisualPrompt
	}
	if u.Tags != nil {
		tags := make([]string, len(*u.Tags))
		copy(tags, *u.Tags)
		s.Tags = tags
	}
	if u.DirectorsNote != nil {
		s.DirectorsNote = *u.DirectorsNote
	}
	if u.ImageURL != nil {
		s.ImageURL = *u.ImageURL
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
}
