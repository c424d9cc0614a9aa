// internal/models/project.go
package models

// Variant names one of the two parallel scene lists generated from a topic.
type Variant string

const (
	// VariantStandard: linear, realistic narrative.
	VariantStandard Variant = "standard"
	// VariantExperimental: non-linear, abstract narrative.
	VariantExperimental Variant = "experimental"
)

// Variants lists the two variants in their fixed processing order.
var Variants = []Variant{VariantStandard, VariantExperimental}

// IsValid reports whether v is a recognized variant name.
func (v Variant) IsValid() bool {
	return v == VariantStandard || v == VariantExperimental
}

// Visual style vocabulary. Unrecognized values are passed through to image
// providers without prompt enrichment.
const (
	StyleRealism   = "realism"
	StyleAnime     = "anime"
	StyleCyberpunk = "cyberpunk"
	StyleNoir      = "noir"
	StyleRender3D  = "render3d"
	StyleVector2D  = "vector2d"
)

// StyleOptions lists the recognized styles in display order.
var StyleOptions = []string{
	StyleRealism,
	StyleAnime,
	StyleCyberpunk,
	StyleNoir,
	StyleRender3D,
	StyleVector2D,
}

// IsKnownStyle reports whether style belongs to the fixed vocabulary.
func IsKnownStyle(style string) bool {
	for _, s := range StyleOptions {
		if s == style {
			return true
		}
	}
	return false
}

// Scene count bounds for outline generation.
const (
	MinSceneCount = 1
	MaxSceneCount = 10
)

// ProjectData is the single live storyboard document: one topic rendered as
// two independently editable scene lists.
type ProjectData struct {
	Topic        string  `json:"topic"`
	Style        string  `json:"style"`
	SceneCount   int     `json:"sceneCount"`
	Standard     []Scene `json:"standard"`
	Experimental []Scene `json:"experimental"`
}

// Scenes returns the scene list for the named variant. The returned slice
// aliases the document; callers that need isolation must clone.
func (p *ProjectData) Scenes(variant Variant) []Scene {
	switch variant {
	case VariantStandard:
		return p.Standard
	case VariantExperimental:
		return p.Experimental
	}
	return nil
}

// SetScenes replaces the scene list for the named variant.
func (p *ProjectData) SetScenes(variant Variant, scenes []Scene) {
	switch variant {
	case VariantStandard:
		p.Standard = scenes
	case VariantExperimental:
		p.Experimental = scenes
	}
}

// Clone returns a deep copy of the document.
func (p *ProjectData) Clone() *ProjectData {
	clone := &ProjectData{
		Topic:      p.Topic,
		Style:      p.Style,
		SceneCount: p.SceneCount,
	}
	clone.Standard = cloneScenes(p.Standard)
	clone.Experimental = cloneScenes(p.Experimental)
	return clone
}

func cloneScenes(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i := range scenes {
		out[i] = scenes[i].Clone()
	}
	return out
}
