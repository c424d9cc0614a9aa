// internal/services/generation_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/aidirector/studio/internal/errors"
	"github.com/aidirector/studio/internal/models"
	"github.com/aidirector/studio/internal/utils"
)

// RunState is the explicit state of a generation run.
type RunState int

const (
	StateIdle RunState = iota
	StateOutlineRequested
	StateOutlineReady
	StateImagesInFlight
	StateComplete
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOutlineRequested:
		return "outline_requested"
	case StateOutlineReady:
		return "outline_ready"
	case StateImagesInFlight:
		return "images_in_flight"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SceneOutcome classifies what the batch did with one scene.
type SceneOutcome string

const (
	OutcomeGenerated SceneOutcome = "generated"
	OutcomeFailed    SceneOutcome = "failed"
	OutcomeSkipped   SceneOutcome = "skipped"
)

// SceneResult is the per-scene entry of a batch report.
type SceneResult struct {
	Variant models.Variant `json:"variant"`
	SceneID string         `json:"sceneId"`
	Outcome SceneOutcome   `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
}

// BatchReport collects the per-scene outcomes of one image batch run.
// Failures are deliberately contained per scene: one failed scene leaves a
// visibly blank frame the user may retry, it never aborts the other scenes.
type BatchReport struct {
	RunID   string        `json:"runId"`
	Results []SceneResult `json:"results"`
}

// Counts returns the number of generated, failed and skipped scenes.
func (r *BatchReport) Counts() (generated, failed, skipped int) {
	for _, result := range r.Results {
		switch result.Outcome {
		case OutcomeGenerated:
			generated++
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}
	return
}

// GenerationService sequences outline generation and scene-by-scene image
// generation, writing every intermediate step into the project store so any
// reader sampling the document mid-batch observes a consistent prefix of
// completed scenes plus at most one scene transiently marked loading.
type GenerationService struct {
	project  *ProjectService
	outline  *OutlineService
	images   *ImageService
	progress *ProgressService

	// pacing is the fixed delay between consecutive scene requests,
	// respecting provider rate limits.
	pacing time.Duration

	mu         sync.Mutex
	state      RunState
	lastReport *BatchReport
}

// NewGenerationService creates the orchestrator.
func NewGenerationService(project *ProjectService, outline *OutlineService, images *ImageService, progress *ProgressService) *GenerationService {
	return &GenerationService{
		project:  project,
		outline:  outline,
		images:   images,
		progress: progress,
		pacing:   500 * time.Millisecond,
	}
}

// SetPacing overrides the inter-scene pacing delay.
func (s *GenerationService) SetPacing(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pacing = d
}

// State returns the current run state.
func (s *GenerationService) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *GenerationService) setState(state RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// RunOutline generates a fresh outline and installs it wholesale as the live
// document. On failure no partial document is installed and the error
// surfaces to the caller verbatim.
func (s *GenerationService) RunOutline(ctx context.Context, topic, style string, sceneCount int) (*models.ProjectData, error) {
	s.mu.Lock()
	if s.state == StateOutlineRequested || s.state == StateImagesInFlight {
		s.mu.Unlock()
		return nil, apperrors.NewValidationError("a generation run is already in progress", nil)
	}
	s.state = StateOutlineRequested
	s.mu.Unlock()

	data, err := s.outline.GenerateOutline(ctx, topic, style, sceneCount)
	if err != nil {
		s.setState(StateFailed)
		return nil, err
	}

	s.project.Replace(data)
	s.setState(StateOutlineReady)

	return s.project.Snapshot(), nil
}

// InstallImported installs an imported document and resets the run state, as
// if the outline had just been generated.
func (s *GenerationService) InstallImported(data *models.ProjectData) {
	s.project.Replace(data)
	s.setState(StateOutlineReady)
}

// RunImageBatch populates every not-yet-generated scene with an image,
// standard variant entirely first, then experimental, in document order.
//
// The run is idempotent on re-entry: scenes already holding an image, or
// already loading, are skipped, so calling it twice issues zero additional
// requests for scenes the first run completed. Scenes whose earlier attempt
// failed stay blank until retried manually.
//
// settingsDirty guards against generating images for stale scene content:
// when the caller reports unapplied outline-regeneration settings the batch
// refuses to start.
func (s *GenerationService) RunImageBatch(ctx context.Context, settingsDirty bool) (*BatchReport, error) {
	report, tracker, err := s.prepareBatch(settingsDirty)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, report, tracker)
}

// StartImageBatch runs the guard checks synchronously, then executes the
// batch on its own goroutine. The returned run id keys the progress tracker
// and the eventual report.
func (s *GenerationService) StartImageBatch(ctx context.Context, settingsDirty bool) (string, error) {
	report, tracker, err := s.prepareBatch(settingsDirty)
	if err != nil {
		return "", err
	}

	go s.runBatch(ctx, report, tracker)
	return report.RunID, nil
}

// LastReport returns the report of the most recently finished batch.
func (s *GenerationService) LastReport() *BatchReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

func (s *GenerationService) prepareBatch(settingsDirty bool) (*BatchReport, *ProgressTracker, error) {
	if settingsDirty {
		return nil, nil, apperrors.NewValidationError("unsaved outline settings: apply them before generating visuals", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateImagesInFlight {
		return nil, nil, apperrors.NewValidationError("an image batch is already running", nil)
	}
	if !s.project.HasProject() {
		return nil, nil, apperrors.NewValidationError("no project outline to generate images for", nil)
	}
	s.state = StateImagesInFlight

	report := &BatchReport{RunID: uuid.NewString()}
	total := len(s.project.SceneIDs(models.VariantStandard)) + len(s.project.SceneIDs(models.VariantExperimental))
	tracker := s.progress.CreateTracker(report.RunID, total)

	return report, tracker, nil
}

func (s *GenerationService) runBatch(ctx context.Context, report *BatchReport, tracker *ProgressTracker) (*BatchReport, error) {
	s.mu.Lock()
	pacing := s.pacing
	s.mu.Unlock()

	style := s.project.Style()
	total := tracker.Total

	processed := 0
	for _, variant := range models.Variants {
		for _, sceneID := range s.project.SceneIDs(variant) {
			processed++

			scene, ok := s.project.FindScene(variant, sceneID)
			if !ok {
				continue
			}
			// A scene that already failed stays intentionally blank; only a
			// manual retry touches it again.
			if scene.HasImage() || scene.IsLoading() || scene.Status == models.SceneStatusErrored {
				report.Results = append(report.Results, SceneResult{
					Variant: variant, SceneID: sceneID, Outcome: OutcomeSkipped,
				})
				continue
			}

			tracker.Update(processed, fmt.Sprintf("generating %s scene %d", variant, scene.Order))

			result := s.generateForScene(ctx, variant, scene, style, "", "")
			report.Results = append(report.Results, result)

			if ctx.Err() != nil {
				tracker.Complete("failed", "cancelled")
				s.finishBatch(report, StateFailed)
				return report, ctx.Err()
			}

			// Pacing between consecutive requests, not after the last one.
			if processed < total {
				select {
				case <-ctx.Done():
				case <-time.After(pacing):
				}
			}
		}
	}

	generated, failed, skipped := report.Counts()
	tracker.Complete("completed", fmt.Sprintf("%d generated, %d failed, %d skipped", generated, failed, skipped))
	utils.GetLogger().Info("image batch complete", map[string]interface{}{
		"run": report.RunID, "generated": generated, "failed": failed, "skipped": skipped,
	})

	s.finishBatch(report, StateComplete)
	return report, nil
}

func (s *GenerationService) finishBatch(report *BatchReport, state RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.lastReport = report
}

// RegenerateScene re-generates the image for one scene from its visual
// prompt. Usable at any time regardless of batch state.
func (s *GenerationService) RegenerateScene(ctx context.Context, variant models.Variant, sceneID string) error {
	scene, ok := s.project.FindScene(variant, sceneID)
	if !ok {
		return apperrors.NewValidationError("scene not found: "+sceneID, nil)
	}

	result := s.generateForScene(ctx, variant, scene, s.project.Style(), "", "")
	if result.Outcome == OutcomeFailed {
		return apperrors.NewUpstreamError("image regeneration failed", fmt.Errorf("%s", result.Reason))
	}
	return nil
}

// ModifyScene re-generates one scene's image with a modification directive
// appended to its visual prompt. When the scene already holds an image it is
// passed along for image-to-image semantics.
func (s *GenerationService) ModifyScene(ctx context.Context, variant models.Variant, sceneID, modification string) error {
	if modification == "" {
		return apperrors.NewValidationError("modification prompt is required", nil)
	}

	scene, ok := s.project.FindScene(variant, sceneID)
	if !ok {
		return apperrors.NewValidationError("scene not found: "+sceneID, nil)
	}

	prompt := scene.VisualPrompt + ", " + modification
	result := s.generateForScene(ctx, variant, scene, s.project.Style(), prompt, scene.ImageURL)
	if result.Outcome == OutcomeFailed {
		return apperrors.NewUpstreamError("image modification failed", fmt.Errorf("%s", result.Reason))
	}
	return nil
}

// generateForScene runs the shared mark-loading / request / record pattern
// for one scene. promptOverride and existingImage are optional.
func (s *GenerationService) generateForScene(ctx context.Context, variant models.Variant, scene models.Scene, style, promptOverride, existingImage string) SceneResult {
	prompt := promptOverride
	if prompt == "" {
		prompt = scene.VisualPrompt
	}

	loading := models.SceneStatusLoading
	s.project.UpdateScene(variant, scene.ID, models.SceneUpdate{Status: &loading})

	result, err := s.images.GenerateImage(ctx, prompt, style, existingImage)
	if err != nil {
		errored := models.SceneStatusErrored
		s.project.UpdateScene(variant, scene.ID, models.SceneUpdate{Status: &errored})
		utils.GetLogger().Warning("scene image generation failed", map[string]interface{}{
			"variant": variant, "scene": scene.ID, "err": err,
		})
		return SceneResult{Variant: variant, SceneID: scene.ID, Outcome: OutcomeFailed, Reason: err.Error()}
	}

	// An async handle is stored as-is; the display layer and the export path
	// resolve readiness through the availability poller when they consume it.
	imageURL := result.URL()
	ready := models.SceneStatusReady
	s.project.UpdateScene(variant, scene.ID, models.SceneUpdate{ImageURL: &imageURL, Status: &ready})

	return SceneResult{Variant: variant, SceneID: scene.ID, Outcome: OutcomeGenerated}
}
