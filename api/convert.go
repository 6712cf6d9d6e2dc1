package api

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/server"
)

// HeaderSourceFormat names the detected format of a converted upload.
const HeaderSourceFormat = "X-Source-Format"

// Convert re-encodes the upload into target_format, taken from the form or
// the query string, and returns the converted bytes. An upload already in
// the target format is returned unchanged.
func (h *Handler) Convert(c *gin.Context) {
	raw := c.DefaultPostForm("target_format", c.Query("target_format"))
	if raw == "" {
		server.RespondWithError(c, errors.MissingField("target_format"))
		return
	}
	target, err := audio.ParseFormat(raw)
	if err != nil {
		server.RespondWithError(c, errors.InvalidInput("target_format", err.Error()).
			WithDetail("supported", audio.SupportedFormats))
		return
	}

	up, n, ok := h.materialize(c)
	if !ok {
		return
	}
	defer n.Release()
	if n.Format == audio.FormatUnknown {
		server.RespondWithError(c, errors.UnsupportedFormat(up.Name, "", ""))
		return
	}

	out, err := h.orch.Resolver().ConvertIfNeeded(c.Request.Context(), n.Handle(), target)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer out.Release()

	data, err := os.ReadFile(out.Path)
	if err != nil {
		server.RespondWithError(c, errors.Internal(err))
		return
	}
	h.log.WithContext(c.Request.Context()).Debug("converted upload", logger.Fields(
		"from", out.Source, "to", target, "converted", out.Converted, "bytes", len(data),
	))

	name := strings.TrimSuffix(up.Name, filepath.Ext(up.Name)) + target.Extension()
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Header(HeaderSourceFormat, string(out.Source))
	server.RespondRaw(c, target.MIMEType(), data)
}
