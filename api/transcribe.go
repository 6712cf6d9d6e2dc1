package api

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/orchestrator"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/validation"
)

// HeaderModelUsed names the model that produced a transcript.
const HeaderModelUsed = "X-Model-Used"

var contentTypes = map[transcription.OutputFormat]string{
	transcription.OutputText: "text/plain; charset=utf-8",
	transcription.OutputSRT:  "application/x-subrip; charset=utf-8",
}

// transcribeForm holds the non-file fields of POST /transcribe.
type transcribeForm struct {
	Format       string `form:"format"`
	OutputFormat string `form:"output_format"`
	Language     string `form:"language"`
	// Parameters and Metadata are JSON objects.
	Parameters   string `form:"parameters"`
	Metadata     string `form:"metadata"`
	// Model names a catalog entry. ModelKind and ModelLocator select a
	// configured model by identity instead.
	Model        string `form:"model"`
	ModelKind    string `form:"model_kind"`
	ModelLocator string `form:"model_locator"`
}

func (f *transcribeForm) validate() *errors.AppError {
	outputs := make([]string, len(transcription.OutputFormats))
	for i, o := range transcription.OutputFormats {
		outputs[i] = string(o)
	}
	return validation.New().
		OneOf("output_format", strings.ToLower(strings.TrimSpace(f.OutputFormat)), outputs).
		Custom(f.ModelKind == "" || f.ModelLocator != "", "model_locator", "required with model_kind").
		Custom(f.ModelLocator == "" || f.ModelKind != "", "model_kind", "required with model_locator").
		Custom(f.Model == "" || f.ModelKind == "", "model", "cannot be combined with model_kind").
		Validate()
}

// models picks the models for a request. Only models the server is
// configured with can be selected.
func (f *transcribeForm) models(cfg orchestrator.Config) (orchestrator.Models, *errors.AppError) {
	models := cfg.Models()
	switch {
	case f.Model != "":
		m, ok := cfg.Named(f.Model)
		if !ok {
			return models, errors.InvalidInput("model", "unknown model "+strconv.Quote(f.Model)).
				WithDetail("available", slices.Sorted(maps.Keys(cfg.Catalog)))
		}
		models.Primary = m
	case f.ModelKind != "":
		m, ok := cfg.Configured(f.ModelKind, f.ModelLocator)
		if !ok {
			return models, errors.InvalidInput("model_kind", "model is not configured on this server").
				WithDetail("model", f.ModelKind+":"+f.ModelLocator)
		}
		models.Primary = m
	}
	return models, nil
}

// ModelsResponse is the body of GET /models.
type ModelsResponse struct {
	Kinds    []string                             `json:"kinds"`
	Primary  transcription.ModelConfig            `json:"primary"`
	Fallback *transcription.ModelConfig           `json:"fallback,omitempty"`
	Catalog  map[string]transcription.ModelConfig `json:"catalog,omitempty"`
	Loaded   map[string]transcription.ModelInfo   `json:"loaded"`
}

// Transcribe runs one upload through the orchestrator. JSON output is
// wrapped in the data envelope; text and SRT are returned raw.
func (h *Handler) Transcribe(c *gin.Context) {
	var form transcribeForm
	if err := c.ShouldBind(&form); err != nil {
		server.RespondWithError(c, errors.InvalidInput("form", err.Error()))
		return
	}
	if aerr := form.validate(); aerr != nil {
		server.RespondWithError(c, aerr)
		return
	}
	out, err := transcription.ParseOutputFormat(form.OutputFormat)
	if err != nil {
		server.RespondWithError(c, errors.InvalidInput("output_format", err.Error()))
		return
	}
	up, err := readUpload(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	req := transcription.AudioRequest{
		ID:           logger.RequestIDFromContext(c.Request.Context()),
		Source:       transcription.Source{Data: up.Data},
		OutputFormat: out,
	}
	if form.Format != "" {
		if req.Format, err = audio.ParseFormat(form.Format); err != nil {
			server.RespondWithError(c, errors.InvalidInput("format", err.Error()).
				WithDetail("supported", audio.SupportedFormats))
			return
		}
	}
	if req.Parameters, err = decodeObject("parameters", form.Parameters); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if req.Metadata, err = decodeObject("metadata", form.Metadata); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if form.Language != "" {
		if req.Parameters == nil {
			req.Parameters = map[string]any{}
		}
		req.Parameters["language"] = form.Language
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	req.Metadata["filename"] = up.Name

	models, aerr := form.models(h.orch.Config())
	if aerr != nil {
		server.RespondWithError(c, aerr)
		return
	}

	result, err := h.orch.ProcessWith(c.Request.Context(), req, models)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Header(HeaderModelUsed, result.ModelUsed)

	if out == transcription.OutputJSON {
		server.RespondOK(c, result)
		return
	}
	body, err := result.Render(out)
	if err != nil {
		server.RespondWithError(c, errors.Internal(err))
		return
	}
	server.RespondRaw(c, contentTypes[out], body)
}

// Models lists registered backend kinds, the configured model pair and
// the instances loaded so far.
func (h *Handler) Models(c *gin.Context) {
	registry := h.orch.Registry()
	kinds := registry.Kinds()
	sort.Strings(kinds)

	cfg := h.orch.Config()
	c.JSON(http.StatusOK, server.DataResponse{Data: ModelsResponse{
		Kinds:    kinds,
		Primary:  cfg.Primary,
		Fallback: cfg.Fallback,
		Catalog:  cfg.Catalog,
		Loaded:   registry.Loaded(),
	}})
}

func decodeObject(field, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.InvalidInput(field, "must be a JSON object")
	}
	return m, nil
}
