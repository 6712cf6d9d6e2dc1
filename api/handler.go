package api

import (
	stderrors "errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/orchestrator"
	"github.com/kbukum/voxkit/server"
)

// Prefix is the route group every API route lives under.
const Prefix = "/api/v1"

const fileField = "file"

// Handler serves the API routes.
type Handler struct {
	orch *orchestrator.Orchestrator
	log  *logger.Logger
}

// NewHandler creates a Handler. A nil logger is replaced by a no-op one.
func NewHandler(orch *orchestrator.Orchestrator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{orch: orch, log: log.WithComponent("api")}
}

// Register mounts the API routes on r, normally the server's
// APIGroup(Prefix).
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/formats", h.Formats)
	r.GET("/models", h.Models)
	r.POST("/detect", h.Detect)
	r.POST("/validate", h.Validate)
	r.POST("/metadata", h.Metadata)
	r.POST("/convert", h.Convert)
	r.POST("/transcribe", h.Transcribe)
}

// upload is an audio file read from a multipart request.
type upload struct {
	Name string
	Data []byte
	// Hint is the format implied by the file extension, if any.
	Hint audio.Format
}

func readUpload(c *gin.Context) (*upload, error) {
	fh, err := c.FormFile(fileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errTooLarge(tooLarge.Limit)
		}
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, errors.MissingField(fileField)
		}
		return nil, errors.InvalidInput(fileField, err.Error())
	}
	if fh.Filename == "" {
		return nil, errors.InvalidInput(fileField, "file must have a filename")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.InvalidInput(fileField, err.Error())
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.InvalidInput(fileField, err.Error())
	}
	if len(data) == 0 {
		return nil, errors.InvalidInput(fileField, "file is empty")
	}

	hint, _ := audio.ParseFormat(filepath.Ext(fh.Filename))
	return &upload{Name: fh.Filename, Data: data, Hint: hint}, nil
}

// materialize writes the upload to a temporary file. The caller must
// Release the result.
func (h *Handler) materialize(c *gin.Context) (*upload, *audio.Normalized, bool) {
	up, err := readUpload(c)
	if err != nil {
		server.RespondWithError(c, err)
		return nil, nil, false
	}
	n, err := h.orch.Resolver().Materialize(up.Data, up.Hint)
	if err != nil {
		server.RespondWithError(c, err)
		return nil, nil, false
	}
	return up, n, true
}

func errTooLarge(limit int64) *errors.AppError {
	return errors.New(errors.ErrCodeInvalidInput, "Upload exceeds the maximum body size.", http.StatusRequestEntityTooLarge).
		WithDetail("limit_bytes", limit)
}
