package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/memory"
)

type MemoryHandler struct {
	Svc    *memory.Service
	Logger *zap.Logger
}

type addMemoryReq struct {
	RawInput string `json:"rawInput"`
}

func (h *MemoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addMemoryReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	m, total, err := h.Svc.Add(r.Context(), req.RawInput)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"original":  m.RawInput,
		"formatted": m.Content,
		"metadata": map[string]any{
			"category":         m.Category,
			"memory_type":      m.MemoryType,
			"importance_level": m.ImportanceLevel,
			"tags":             []string(m.Tags),
			"related_entities": []string(m.RelatedEntities),
		},
		"totalMemories": total,
	})
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.Svc.List(r.Context(), memory.Filter{
		Category:   q.Get("category"),
		Importance: q.Get("importance"),
		Tag:        q.Get("tag"),
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":     "memory_dump",
		"memories": rows,
		"count":    len(rows),
	})
}

func (h *MemoryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Svc.Categories(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": counts})
}

func (h *MemoryHandler) Tags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Svc.TagCounts(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": counts})
}

type searchReq struct {
	Query string `json:"query"`
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	res, err := h.Svc.Search(r.Context(), req.Query)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":        "memory_search",
		"query":       req.Query,
		"results":     res.Results,
		"count":       len(res.Results),
		"explanation": res.Explanation,
	})
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deletedAt, err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Memory deleted",
		"deletedAt": deletedAt,
	})
}

func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.Clear(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cleared": n})
}
