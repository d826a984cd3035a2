package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListServices handles GET /services. Inactive entries are included with ?all=true.
func (h *CatalogHandler) ListServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, mapSlice(services, toServiceResponse))
}

func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req catalogEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	s, err := h.catalog.CreateService(c.Request.Context(), &service.CreateCatalogEntryCommand{
		Name:        req.Name,
		Description: req.Description,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toServiceResponse(s))
}

func (h *CatalogHandler) ListInsurances(c *gin.Context) {
	insurances, err := h.catalog.ListInsurances(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, mapSlice(insurances, toInsuranceResponse))
}

func (h *CatalogHandler) CreateInsurance(c *gin.Context) {
	var req catalogEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	i, err := h.catalog.CreateInsurance(c.Request.Context(), &service.CreateCatalogEntryCommand{
		Name:        req.Name,
		Description: req.Description,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toInsuranceResponse(i))
}
