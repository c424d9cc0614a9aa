// internal/api/handlers.go
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aidirector/studio/internal/models"
	"github.com/aidirector/studio/internal/services"
)

// Handler bundles the API endpoints and their service dependencies.
type Handler struct {
	generationService *services.GenerationService
	projectService    *services.ProjectService
	imageService      *services.ImageService
	exportService     *services.ExportService
	progressService   *services.ProgressService
	responses         *ResponseHelper
}

// NewHandler creates the API handler. Services come from the DI container;
// the handler never constructs its own.
func NewHandler(
	generationService *services.GenerationService,
	projectService *services.ProjectService,
	imageService *services.ImageService,
	exportService *services.ExportService,
	progressService *services.ProgressService,
) *Handler {
	return &Handler{
		generationService: generationService,
		projectService:    projectService,
		imageService:      imageService,
		exportService:     exportService,
		progressService:   progressService,
		responses:         NewResponseHelper(),
	}
}

// GenerateOutline handles POST /api/generate-outline.
func (h *Handler) GenerateOutline(c *gin.Context) {
	var request struct {
		Topic      string `json:"topic"`
		Style      string `json:"style"`
		SceneCount int    `json:"sceneCount"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		h.responses.BadRequest(c, "invalid request body", err.Error())
		return
	}

	data, err := h.generationService.RunOutline(c.Request.Context(), request.Topic, request.Style, request.SceneCount)
	if err != nil {
		h.responses.AppError(c, err)
		return
	}

	h.responses.Success(c, data)
}

// GenerateImage handles POST /api/generate-image: one direct image request
// outside any batch, mirroring the image capability contract.
func (h *Handler) GenerateImage(c *gin.Context) {
	var request struct {
		Prompt        string `json:"prompt"`
		Style         string `json:"style"`
		ModifyPrompt  string `json:"modifyPrompt,omitempty"`
		ExistingImage string `json:"existingImage,omitempty"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		h.responses.BadRequest(c, "invalid request body", err.Error())
		return
	}

	prompt := request.Prompt
	if request.ExistingImage != "" && request.ModifyPrompt != "" {
		prompt = request.ModifyPrompt
	}

	result, err := h.imageService.GenerateImage(c.Request.Context(), prompt, request.Style, request.ExistingImage)
	if err != nil {
		h.responses.AppError(c, err)
		return
	}

	h.responses.Success(c, gin.H{
		"imageUrl": result.URL(),
		"ready":    result.Ready,
		"eta":      result.ETASeconds,
	})
}

// GenerateVisuals handles POST /api/generate-visuals: starts the image batch
// in the background and returns the run id for progress tracking.
func (h *Handler) GenerateVisuals(c *gin.Context) {
	var request struct {
		SettingsDirty bool `json:"settingsDirty"`
	}
	// Body is optional; an empty body means clean settings.
	c.ShouldBindJSON(&request)

	// The batch outlives this request; it must not die with the request
	// context.
	runID, err := h.generationService.StartImageBatch(context.Background(), request.SettingsDirty)
	if err != nil {
		h.responses.AppError(c, err)
		return
	}

	h.responses.Success(c, gin.H{"runId": runID}, "image batch started")
}

// BatchReport handles GET /api/generate-visuals/report.
func (h *Handler) BatchReport(c *gin.Context) {
	report := h.generationService.LastReport()
	if report == nil {
		h.responses.NotFound(c, ErrorRunNotFound, "no completed batch run")
		return
	}
	h.responses.Success(c, report)
}

// GetProject handles GET /api/project.
func (h *Handler) GetProject(c *gin.Context) {
	data := h.projectService.Snapshot()
	if data == nil {
		h.responses.NotFound(c, ErrorProjectNotFound, "no project loaded")
		return
	}
	h.responses.Success(c, data)
}

// GetState handles GET /api/state.
func (h *Handler) GetState(c *gin.Context) {
	h.responses.Success(c, gin.H{"state": h.generationService.State().String()})
}

// GetStyles handles GET /api/styles.
func (h *Handler) GetStyles(c *gin.Context) {
	h.responses.Success(c, gin.H{
		"styles":        models.StyleOptions,
		"minSceneCount": models.MinSceneCount,
		"maxSceneCount": models.MaxSceneCount,
	})
}

func (h *Handler) variantParam(c *gin.Context) (models.Variant, bool) {
	variant := models.Variant(c.Param("variant"))
	if !variant.IsValid() {
		h.responses.Error(c, http.StatusBadRequest, ErrorVariantInvalid,
			fmt.Sprintf("unknown variant %q", c.Param("variant")))
		return "", false
	}
	return variant, true
}

// UpdateScene handles PUT /api/project/scenes/:variant/:id.
func (h *Handler) UpdateScene(c *gin.Context) {
	variant, ok := h.variantParam(c)
	if !ok {
		return
	}

	var update models.SceneUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.responses.BadRequest(c, "invalid scene update", err.Error())
		return
	}

	if !h.projectService.UpdateScene(variant, c.Param("id"), update) {
		h.responses.NotFound(c, ErrorSceneNotFound, "scene not found: "+c.Param("id"))
		return
	}

	scene, _ := h.projectService.FindScene(variant, c.Param("id"))
	h.responses.Success(c, scene)
}

// AddScene handles POST /api/project/scenes/:variant.
func (h *Handler) AddScene(c *gin.Context) {
	variant, ok := h.variantParam(c)
	if !ok {
		return
	}

	var scene models.Scene
	if err := c.ShouldBindJSON(&scene); err != nil {
		h.responses.BadRequest(c, "invalid scene", err.Error())
		return
	}
	scene.ID = ""
	if scene.Status == "" {
		scene.Status = models.SceneStatusEmpty
	}

	if !h.projectService.AddScene(variant, scene) {
		h.responses.NotFound(c, ErrorProjectNotFound, "no project loaded")
		return
	}

	h.responses.Created(c, h.projectService.Snapshot().Scenes(variant))
}

// RemoveScene handles DELETE /api/project/scenes/:variant/:id. Removing an
// unknown id is a no-op and still succeeds.
func (h *Handler) RemoveScene(c *gin.Context) {
	variant, ok := h.variantParam(c)
	if !ok {
		return
	}

	h.projectService.RemoveScene(variant, c.Param("id"))
	h.responses.Success(c, gin.H{"removed": c.Param("id")})
}

// RegenerateScene handles POST /api/project/scenes/:variant/:id/regenerate.
func (h *Handler) RegenerateScene(c *gin.Context) {
	variant, ok := h.variantParam(c)
	if !ok {
		return
	}

	if err := h.generationService.RegenerateScene(c.Request.Context(), variant, c.Param("id")); err != nil {
		h.responses.AppError(c, err)
		return
	}

	scene, _ := h.projectService.FindScene(variant, c.Param("id"))
	h.responses.Success(c, scene)
}

// ModifyScene handles POST /api/project/scenes/:variant/:id/modify.
func (h *Handler) ModifyScene(c *gin.Context) {
	variant, ok := h.variantParam(c)
	if !ok {
		return
	}

	var request struct {
		Modification string `json:"modification"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		h.responses.BadRequest(c, "invalid request body", err.Error())
		return
	}

	if err := h.generationService.ModifyScene(c.Request.Context(), variant, c.Param("id"), request.Modification); err != nil {
		h.responses.AppError(c, err)
		return
	}

	scene, _ := h.projectService.FindScene(variant, c.Param("id"))
	h.responses.Success(c, scene)
}

// ExportProject handles GET /api/export: streams the project archive.
func (h *Handler) ExportProject(c *gin.Context) {
	var buffer bytes.Buffer
	if err := h.exportService.Export(c.Request.Context(), &buffer); err != nil {
		h.responses.AppError(c, err)
		return
	}

	filename := fmt.Sprintf("ai-director-%d.zip", time.Now().Unix())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", buffer.Bytes())
}

// ImportProject handles POST /api/import: accepts a multipart upload of
// either an exported .zip archive or a bare project .json document. The
// live document is replaced only after the whole import succeeds.
func (h *Handler) ImportProject(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.responses.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "missing upload file", err.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.responses.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "failed to open upload", err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.responses.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "failed to read upload", err.Error())
		return
	}

	var data *models.ProjectData
	if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".json") {
		data, err = h.exportService.ImportJSON(content)
	} else {
		data, err = h.exportService.Import(c.Request.Context(), bytes.NewReader(content), int64(len(content)))
	}
	if err != nil {
		h.responses.AppError(c, err)
		return
	}

	h.generationService.InstallImported(data)
	h.responses.Success(c, h.projectService.Snapshot(), "project imported")
}
