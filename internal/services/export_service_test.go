package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/aidirector/studio/internal/errors"
	"github.com/aidirector/studio/internal/imagegen"
	"github.com/aidirector/studio/internal/models"
)

func exportFixtureProject() *models.ProjectData {
	scene := func(variant string, n int, withImage bool) models.Scene {
		s := models.Scene{
			ID:            variant + "-" + string(rune('0'+n)),
			Order:         n,
			Title:         variant + " title " + string(rune('0'+n)),
			Description:   "description " + string(rune('0'+n)),
			VisualPrompt:  "prompt " + string(rune('0'+n)),
			Tags:          []string{"Wide Shot", "Golden Hour"},
			DirectorsNote: "note " + string(rune('0'+n)),
			Status:        models.SceneStatusEmpty,
		}
		if withImage {
			s.ImageURL = imagegen.EncodeDataURL("image/jpeg", []byte(variant+"-img-"+string(rune('0'+n))))
			s.Status = models.SceneStatusReady
		}
		return s
	}

	return &models.ProjectData{
		Topic:      "a lighthouse keeper",
		Style:      models.StyleNoir,
		SceneCount: 3,
		Standard: []models.Scene{
			scene("std", 1, true), scene("std", 2, true), scene("std", 3, true),
		},
		Experimental: []models.Scene{
			scene("exp", 1, true), scene("exp", 2, true), scene("exp", 3, true),
		},
	}
}

func exportFixtureService(data *models.ProjectData) *ExportService {
	store := NewProjectService()
	if data != nil {
		store.Replace(data)
	}
	return NewExportService(store, imagegen.NewPoller(nil))
}

func TestExportImportRoundTrip(t *testing.T) {
	original := exportFixtureProject()
	service := exportFixtureService(original)

	var buf bytes.Buffer
	if err := service.Export(context.Background(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := service.Import(context.Background(), bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if imported.Topic != original.Topic || imported.Style != original.Style || imported.SceneCount != original.SceneCount {
		t.Fatalf("document metadata lost in round trip: %+v", imported)
	}

	for _, variant := range models.Variants {
		want := original.Scenes(variant)
		got := imported.Scenes(variant)
		if len(got) != len(want) {
			t.Fatalf("%s: expected %d scenes, got %d", variant, len(want), len(got))
		}
		for i := range want {
			if got[i].Title != want[i].Title ||
				got[i].Description != want[i].Description ||
				got[i].VisualPrompt != want[i].VisualPrompt ||
				got[i].DirectorsNote != want[i].DirectorsNote {
				t.Fatalf("%s scene %d content lost: got %+v want %+v", variant, i, got[i], want[i])
			}
			if len(got[i].Tags) != len(want[i].Tags) {
				t.Fatalf("%s scene %d tags lost", variant, i)
			}
			if got[i].ID == want[i].ID || got[i].ID == "" {
				t.Fatalf("%s scene %d should receive a fresh id, got %q", variant, i, got[i].ID)
			}
			if got[i].Status != models.SceneStatusReady || !got[i].HasImage() {
				t.Fatalf("%s scene %d image lost in round trip: %+v", variant, i, got[i])
			}
		}
	}
}

func TestExportArchiveLayout(t *testing.T) {
	service := exportFixtureService(exportFixtureProject())

	var buf bytes.Buffer
	if err := service.Export(context.Background(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("exported archive unreadable: %v", err)
	}

	names := make(map[string]bool)
	for _, file := range archive.File {
		names[file.Name] = true
	}

	want := []string{
		"project.json", "README.txt",
		"standard/scene-01.jpg", "standard/scene-02.jpg", "standard/scene-03.jpg",
		"experimental/scene-01.jpg", "experimental/scene-02.jpg", "experimental/scene-03.jpg",
	}
	for _, name := range want {
		if !names[name] {
			t.Fatalf("archive is missing %s (has %v)", name, names)
		}
	}

	manifest := findZipFile(archive, "project.json")
	content, err := readZipFile(manifest)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}

	// Session-local fields never cross the archive boundary.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(content, &fields); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	var scenes struct {
		Standard []map[string]json.RawMessage `json:"standard"`
	}
	if err := json.Unmarshal(content, &scenes); err != nil {
		t.Fatalf("manifest shape: %v", err)
	}
	for _, scene := range scenes.Standard {
		if _, ok := scene["id"]; ok {
			t.Fatal("manifest scenes must not carry ids")
		}
		if _, ok := scene["status"]; ok {
			t.Fatal("manifest scenes must not carry statuses")
		}
	}
}

func TestExportSkipsUnfetchableImage(t *testing.T) {
	data := exportFixtureProject()
	// An unreachable handle: the poller exhausts retries, the export goes on.
	data.Standard[1].ImageURL = "http://127.0.0.1:1/never-there.png"

	store := NewProjectService()
	store.Replace(data)
	service := NewExportService(store, imagegen.NewPoller(nil))
	service.pollPolicy = imagegen.PollPolicy{MaxRetries: 1, RetryDelay: time.Millisecond}

	var buf bytes.Buffer
	if err := service.Export(context.Background(), &buf); err != nil {
		t.Fatalf("best-effort export should not fail: %v", err)
	}

	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("exported archive unreadable: %v", err)
	}
	if findZipFile(archive, "standard/scene-02.jpg") != nil {
		t.Fatal("unfetchable image should be skipped")
	}
	if findZipFile(archive, "standard/scene-01.jpg") == nil || findZipFile(archive, "standard/scene-03.jpg") == nil {
		t.Fatal("fetchable siblings should still be exported")
	}
}

func TestExportWithoutProject(t *testing.T) {
	service := exportFixtureService(nil)
	if err := service.Export(context.Background(), &bytes.Buffer{}); !apperrors.IsValidationError(err) {
		t.Fatalf("export without a project should be rejected, got %v", err)
	}
}

func TestImportRejectsNonArchive(t *testing.T) {
	service := exportFixtureService(nil)
	junk := []byte("this is not a zip file")
	if _, err := service.Import(context.Background(), bytes.NewReader(junk), int64(len(junk))); !apperrors.IsInvalidArchive(err) {
		t.Fatalf("expected invalid archive, got %v", err)
	}
}

func TestImportRequiresManifest(t *testing.T) {
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	if err := writeZipFile(archive, "README.txt", []byte("no manifest here")); err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	archive.Close()

	service := exportFixtureService(nil)
	if _, err := service.Import(context.Background(), bytes.NewReader(buf.Bytes()), int64(buf.Len())); !apperrors.IsInvalidArchive(err) {
		t.Fatalf("archive without project.json should be rejected, got %v", err)
	}
}

func TestImportRejectsIncompleteManifest(t *testing.T) {
	service := exportFixtureService(nil)

	cases := []struct {
		name    string
		content string
	}{
		{"missing topic", `{"style": "noir", "standard": [], "experimental": []}`},
		{"missing style", `{"topic": "t", "standard": [], "experimental": []}`},
		{"missing standard", `{"topic": "t", "style": "noir", "experimental": []}`},
		{"missing experimental", `{"topic": "t", "style": "noir", "standard": []}`},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		archive := zip.NewWriter(&buf)
		if err := writeZipFile(archive, "project.json", []byte(tc.content)); err != nil {
			t.Fatalf("%s: building fixture: %v", tc.name, err)
		}
		archive.Close()

		if _, err := service.Import(context.Background(), bytes.NewReader(buf.Bytes()), int64(buf.Len())); !apperrors.IsValidationError(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestImportJSONBareDocument(t *testing.T) {
	service := exportFixtureService(nil)

	content := []byte(`{
		"topic": "a lighthouse keeper",
		"style": "noir",
		"standard": [
			{"title": "Arrival", "description": "d", "visualPrompt": "v", "tags": ["Wide Shot"], "directorsNote": "n"}
		],
		"experimental": [
			{"title": "Fragments", "description": "d", "visualPrompt": "v", "tags": ["Macro"], "directorsNote": "n"}
		]
	}`)

	data, err := service.ImportJSON(content)
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	if data.Topic != "a lighthouse keeper" || data.Style != models.StyleNoir {
		t.Fatalf("unexpected document: %+v", data)
	}
	// SceneCount defaults to the standard variant length when absent.
	if data.SceneCount != 1 {
		t.Fatalf("scene count should default to 1, got %d", data.SceneCount)
	}
	if data.Standard[0].ID == "" || data.Standard[0].Order != 1 {
		t.Fatalf("imported scene missing id or order: %+v", data.Standard[0])
	}
	if data.Standard[0].Status != models.SceneStatusEmpty {
		t.Fatalf("imported scene without image should be empty, got %q", data.Standard[0].Status)
	}

	if _, err := service.ImportJSON([]byte("not json")); !apperrors.IsInvalidArchive(err) {
		t.Fatalf("unparseable JSON should be rejected, got %v", err)
	}
}
