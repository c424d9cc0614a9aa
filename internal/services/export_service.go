// internal/services/export_service.go
package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	apperrors "github.com/aidirector/studio/internal/errors"
	"github.com/aidirector/studio/internal/imagegen"
	"github.com/aidirector/studio/internal/models"
	"github.com/aidirector/studio/internal/utils"
)

// exportScene is the portable scene shape: session-local fields (id, status)
// are stripped, everything else travels.
type exportScene struct {
	Order         int      `json:"order"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	VisualPrompt  string   `json:"visualPrompt"`
	Tags          []string `json:"tags"`
	DirectorsNote string   `json:"directorsNote"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

// projectManifest is the project.json payload inside an archive. The same
// shape doubles as the bare-JSON import format.
type projectManifest struct {
	Topic        string        `json:"topic"`
	Style        string        `json:"style"`
	SceneCount   int           `json:"sceneCount"`
	ExportedAt   string        `json:"exportedAt,omitempty"`
	Standard     []exportScene `json:"standard"`
	Experimental []exportScene `json:"experimental"`
}

// ExportService serializes the live project plus its fetched images into a
// portable ZIP archive, and reconstructs documents from archives or bare
// JSON files.
type ExportService struct {
	project *ProjectService
	poller  *imagegen.Poller

	// pollPolicy is export-tuned: a batch the user explicitly asked for may
	// wait longer per image than the interactive display would.
	pollPolicy imagegen.PollPolicy
}

// NewExportService creates the export service.
func NewExportService(project *ProjectService, poller *imagegen.Poller) *ExportService {
	return &ExportService{
		project:    project,
		poller:     poller,
		pollPolicy: imagegen.ExportPollPolicy,
	}
}

// Export writes the archive to w: project.json (ids and statuses stripped),
// a human-readable README.txt, and one image file per scene that has one,
// named by 1-based position within its variant.
//
// Export is best-effort, not transactional: a scene whose image cannot be
// fetched after retries is skipped and the archive is still a valid export.
func (s *ExportService) Export(ctx context.Context, w io.Writer) error {
	data := s.project.Snapshot()
	if data == nil {
		return apperrors.NewValidationError("no project to export", nil)
	}

	archive := zip.NewWriter(w)

	manifest := projectManifest{
		Topic:        data.Topic,
		Style:        data.Style,
		SceneCount:   data.SceneCount,
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Standard:     toExportScenes(data.Standard),
		Experimental: toExportScenes(data.Experimental),
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}
	if err := writeZipFile(archive, "project.json", manifestJSON); err != nil {
		return err
	}

	if err := writeZipFile(archive, "README.txt", buildReadme(data)); err != nil {
		return err
	}

	for _, variant := range models.Variants {
		scenes := data.Scenes(variant)
		for i, scene := range scenes {
			if !scene.HasImage() {
				continue
			}

			imageData, err := s.poller.WaitForImage(ctx, scene.ImageURL, s.pollPolicy)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				utils.GetLogger().Warning("export: skipping unfetchable image", map[string]interface{}{
					"variant": variant, "scene": i + 1, "err": err,
				})
				continue
			}

			name := fmt.Sprintf("%s/scene-%02d.jpg", variant, i+1)
			if err := writeZipFile(archive, name, imageData); err != nil {
				return err
			}
		}
	}

	return archive.Close()
}

// Import reconstructs a project document from an exported archive. The
// manifest is required; ids are never trusted across the archive boundary,
// so every scene gets a fresh one. Import is all-or-nothing: any failure
// aborts before a document is produced.
func (s *ExportService) Import(ctx context.Context, r io.ReaderAt, size int64) (*models.ProjectData, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperrors.NewInvalidArchiveError("file is not a readable archive", err)
	}

	manifestFile := findZipFile(archive, "project.json")
	if manifestFile == nil {
		return nil, apperrors.NewInvalidArchiveError("project.json not found in archive", nil)
	}

	manifestJSON, err := readZipFile(manifestFile)
	if err != nil {
		return nil, apperrors.NewInvalidArchiveError("failed to read project.json", err)
	}

	manifest, err := parseManifest(manifestJSON)
	if err != nil {
		return nil, err
	}

	data := manifestToProject(manifest)

	for _, variant := range models.Variants {
		scenes := data.Scenes(variant)
		for i := range scenes {
			name := fmt.Sprintf("%s/scene-%02d.jpg", variant, i+1)
			imageFile := findZipFile(archive, name)
			if imageFile == nil {
				scenes[i].ImageURL = ""
				scenes[i].Status = models.SceneStatusEmpty
				continue
			}

			imageData, err := readZipFile(imageFile)
			if err != nil {
				return nil, apperrors.NewInvalidArchiveError("failed to read "+name, err)
			}
			scenes[i].ImageURL = imagegen.EncodeDataURL("image/jpeg", imageData)
			scenes[i].Status = models.SceneStatusReady
		}
	}

	return data, nil
}

// ImportJSON reconstructs a project document from a bare project.json file
// without the archive wrapper.
func (s *ExportService) ImportJSON(content []byte) (*models.ProjectData, error) {
	manifest, err := parseManifest(content)
	if err != nil {
		return nil, err
	}
	return manifestToProject(manifest), nil
}

// parseManifest decodes and validates a manifest. The four top-level fields
// topic, style, standard and experimental must all be present.
func parseManifest(content []byte) (*projectManifest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(content, &fields); err != nil {
		return nil, apperrors.NewInvalidArchiveError("project.json is not valid JSON", err)
	}

	for _, required := range []string{"topic", "style", "standard", "experimental"} {
		if _, ok := fields[required]; !ok {
			return nil, apperrors.NewValidationError("project.json is missing required field: "+required, nil)
		}
	}

	var manifest projectManifest
	if err := json.Unmarshal(content, &manifest); err != nil {
		return nil, apperrors.NewInvalidArchiveError("project.json has an unexpected shape", err)
	}

	return &manifest, nil
}

// manifestToProject rebuilds a document with fresh scene ids and reset
// statuses.
func manifestToProject(manifest *projectManifest) *models.ProjectData {
	data := &models.ProjectData{
		Topic:        manifest.Topic,
		Style:        manifest.Style,
		SceneCount:   manifest.SceneCount,
		Standard:     fromExportScenes(manifest.Standard),
		Experimental: fromExportScenes(manifest.Experimental),
	}
	if data.SceneCount == 0 {
		data.SceneCount = len(data.Standard)
	}
	return data
}

func toExportScenes(scenes []models.Scene) []exportScene {
	out := make([]exportScene, 0, len(scenes))
	for _, scene := range scenes {
		out = append(out, exportScene{
			Order:         scene.Order,
			Title:         scene.Title,
			Description:   scene.Description,
			VisualPrompt:  scene.VisualPrompt,
			Tags:          scene.Tags,
			DirectorsNote: scene.DirectorsNote,
			ImageURL:      scene.ImageURL,
		})
	}
	return out
}

func fromExportScenes(scenes []exportScene) []models.Scene {
	out := make([]models.Scene, 0, len(scenes))
	for i, scene := range scenes {
		order := scene.Order
		if order <= 0 {
			order = i + 1
		}

		status := models.SceneStatusEmpty
		if scene.ImageURL != "" {
			status = models.SceneStatusReady
		}

		out = append(out, models.Scene{
			ID:            NewSceneID(),
			Order:         order,
			Title:         scene.Title,
			Description:   scene.Description,
			VisualPrompt:  scene.VisualPrompt,
			Tags:          scene.Tags,
			DirectorsNote: scene.DirectorsNote,
			ImageURL:      scene.ImageURL,
			Status:        status,
		})
	}
	return out
}

func buildReadme(data *models.ProjectData) []byte {
	readme := fmt.Sprintf(`AI Director Project Export

Topic: %s
Style: %s
Scenes: %d
Exported: %s

This archive contains:
- project.json: All scene metadata and prompts
- standard/: %d standard version images
- experimental/: %d experimental version images
`,
		data.Topic, data.Style, data.SceneCount,
		time.Now().Format("2006-01-02 15:04:05"),
		len(data.Standard), len(data.Experimental))
	return []byte(readme)
}

func writeZipFile(archive *zip.Writer, name string, content []byte) error {
	file, err := archive.Create(name)
	if err != nil {
		return fmt.Errorf("create %s in archive: %w", name, err)
	}
	if _, err := file.Write(content); err != nil {
		return fmt.Errorf("write %s to archive: %w", name, err)
	}
	return nil
}

func findZipFile(archive *zip.Reader, name string) *zip.File {
	for _, file := range archive.File {
		if file.Name == name {
			return file
		}
	}
	return nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
