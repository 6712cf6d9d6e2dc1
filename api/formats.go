package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/transcription"
)

// FormatInfo describes one supported input format.
type FormatInfo struct {
	Format    audio.Format `json:"format"`
	Extension string       `json:"extension"`
	MIMEType  string       `json:"mime_type"`
}

// FormatsResponse is the body of GET /formats.
type FormatsResponse struct {
	Formats       []FormatInfo                 `json:"formats"`
	OutputFormats []transcription.OutputFormat `json:"output_formats"`
}

// DetectResponse is the body of POST /detect.
type DetectResponse struct {
	Filename string       `json:"filename"`
	Format   audio.Format `json:"format"`
	MIMEType string       `json:"mime_type"`
}

// ValidateResponse is the body of POST /validate. Valid is false when the
// content does not match the expected format; that is not an error.
type ValidateResponse struct {
	Valid    bool         `json:"valid"`
	Expected audio.Format `json:"expected,omitempty"`
	Format   audio.Format `json:"format,omitempty"`
	Message  string       `json:"message"`
}

// Formats lists the accepted input and output formats.
func (h *Handler) Formats(c *gin.Context) {
	infos := make([]FormatInfo, 0, len(audio.SupportedFormats))
	for _, f := range audio.SupportedFormats {
		infos = append(infos, FormatInfo{Format: f, Extension: f.Extension(), MIMEType: f.MIMEType()})
	}
	server.RespondOK(c, FormatsResponse{Formats: infos, OutputFormats: transcription.OutputFormats})
}

// Detect reports the format of the uploaded audio from its content.
func (h *Handler) Detect(c *gin.Context) {
	up, n, ok := h.materialize(c)
	if !ok {
		return
	}
	defer n.Release()

	f, detected, err := h.orch.Resolver().DetectFormat(n.Path)
	if err != nil {
		server.RespondWithError(c, errors.InvalidInput(fileField, err.Error()))
		return
	}
	if !detected {
		server.RespondWithError(c, errors.UnsupportedFormat(up.Name, "", ""))
		return
	}
	server.RespondOK(c, DetectResponse{Filename: up.Name, Format: f, MIMEType: f.MIMEType()})
}

// Validate checks the upload against expected_format, taken from the form
// or the query string. Without one it checks that the content is any
// supported format.
func (h *Handler) Validate(c *gin.Context) {
	var expected audio.Format
	if raw := c.DefaultPostForm("expected_format", c.Query("expected_format")); raw != "" {
		f, err := audio.ParseFormat(raw)
		if err != nil {
			server.RespondWithError(c, errors.InvalidInput("expected_format", err.Error()))
			return
		}
		expected = f
	}

	_, n, ok := h.materialize(c)
	if !ok {
		return
	}
	defer n.Release()

	resolver := h.orch.Resolver()
	detected, found, err := resolver.DetectFormat(n.Path)
	if err != nil {
		server.RespondWithError(c, errors.InvalidInput(fileField, err.Error()))
		return
	}

	resp := ValidateResponse{Expected: expected}
	if found {
		resp.Format = detected
	}
	switch {
	case !found:
		resp.Message = "content matches no supported format"
	case expected != audio.FormatUnknown && !resolver.ValidateFormat(n.Path, expected):
		resp.Message = "content is " + detected.String() + ", not " + expected.String()
	default:
		resp.Valid = true
		resp.Message = "format validation successful"
	}
	server.RespondOK(c, resp)
}

// Metadata reports stream properties of the upload.
func (h *Handler) Metadata(c *gin.Context) {
	_, n, ok := h.materialize(c)
	if !ok {
		return
	}
	defer n.Release()

	md, err := h.orch.Resolver().Metadata(c.Request.Context(), n.Path)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, md)
}
