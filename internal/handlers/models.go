package handlers

import (
	"net/http"

	"llm-arena/internal/catalog"
)

type ModelsHandler struct {
	catalog *catalog.Catalog
}

func NewModelsHandler(cat *catalog.Catalog) *ModelsHandler {
	return &ModelsHandler{catalog: cat}
}

// GetModels returns the fixed catalog of supported models.
// GET /api/models
func (h *ModelsHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.List())
}
