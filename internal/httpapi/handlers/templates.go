package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rkstgr/papermake-aws/internal/config"
	"github.com/rkstgr/papermake-aws/internal/httpkit"
	"github.com/rkstgr/papermake-aws/internal/models"
	"github.com/rkstgr/papermake-aws/internal/ports"
	"github.com/rkstgr/papermake-aws/internal/render"
	"github.com/rkstgr/papermake-aws/internal/repositories"
)

const maxTemplateSize = 8 << 20

// PostTemplate registers a template: source bytes go to object storage,
// metadata goes to Postgres. Multipart form with "name", optional
// "description" and the source under "file".
func (h *Handler) PostTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	if err := r.ParseMultipartForm(maxTemplateSize); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))

	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	id := config.NewID("tpl")
	objectKey := render.TemplateKey(id)

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: "text/plain; charset=utf-8",
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		log.LogError(ctx, "template upload failed", err, "template_id", id)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	t := models.Template{
		ID:          id,
		Name:        name,
		Description: description,
		ObjectKey:   out.ObjectKey,
		SizeBytes:   out.Size,
	}
	if err := h.templates.Create(ctx, &t); err != nil {
		// storage object is orphaned on metadata failure; clean it up
		_ = h.sp.DeleteObject(ctx, out.ObjectKey)
		if errors.Is(err, repositories.ErrTemplateNameExists) {
			httpkit.WriteErr(w, 409, "TEMPLATE_NAME_EXISTS", "template name already exists", map[string]any{"field": "name"})
			return
		}
		log.LogError(ctx, "template insert failed", err, "template_id", id)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	log.Info("template created", "template_id", id, "size_bytes", t.SizeBytes)
	httpkit.WriteJSON(w, 201, map[string]any{"template": t})
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	templates, err := h.templates.List(ctx)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}

	httpkit.WriteJSON(w, 200, map[string]any{"templates": templates})
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateId")

	t, err := h.templates.Get(ctx, templateID)
	if err != nil {
		httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"template": t})
}

// GetTemplateSource streams the raw template bytes from object storage.
func (h *Handler) GetTemplateSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateId")

	t, err := h.templates.Get(ctx, templateID)
	if err != nil {
		httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
		return
	}

	rc, ct, size, err := h.sp.GetObject(ctx, t.ObjectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "TEMPLATE_FILE_MISSING", "template source missing", map[string]any{"object_key": t.ObjectKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	if size <= 0 {
		size = t.SizeBytes
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateId")

	t, err := h.templates.Get(ctx, templateID)
	if err != nil {
		httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
		return
	}

	if err := h.templates.Delete(ctx, templateID); err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	if err := h.sp.DeleteObject(ctx, t.ObjectKey); err != nil && !errors.Is(err, os.ErrNotExist) {
		// row is already soft-deleted; log and move on
		h.log.FromContext(ctx).Warn("template object delete failed", "object_key", t.ObjectKey, "error", err.Error())
	}

	w.WriteHeader(http.StatusNoContent)
}
