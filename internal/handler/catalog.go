package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tapntake/api/internal/catalog"
)

// CatalogHandler serves the menu.
type CatalogHandler struct {
	cat *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{cat: cat}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
		r.Get("/offers", h.ListOffers)
		r.Get("/offers/{id}/candidates", h.ListCandidates)
	})
}

type productDetailResponse struct {
	catalog.Product
	AvailableAddOns []catalog.Product `json:"available_add_ons"`
}

// ListProducts handles GET /catalog/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category:      q.Get("category"),
		Query:         q.Get("q"),
		IncludeAddOns: q.Get("include_addons") == "true",
	}
	if s := q.Get("veggie"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "veggie must be true or false"})
			return
		}
		f.Veggie = &v
	}
	writeJSON(w, http.StatusOK, h.cat.Products(f))
}

// GetProduct handles GET /catalog/products/{id}.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.cat.Product(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, productDetailResponse{
		Product:         p,
		AvailableAddOns: h.cat.AddOnsFor(id),
	})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cat.Categories())
}

func (h *CatalogHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cat.Offers())
}

// ListCandidates handles GET /catalog/offers/{id}/candidates?slot=0|1.
func (h *CatalogHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(r.URL.Query().Get("slot"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "slot must be a number"})
		return
	}
	products, err := h.cat.Candidates(chi.URLParam(r, "id"), slot)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrOfferNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, catalog.ErrInvalidSlot):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
