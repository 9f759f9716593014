package listings

import (
	"encoding/json"
	"errors"

	listsvc "realty-backend/internal/application/listings"
	pubsvc "realty-backend/internal/application/publication"
	"realty-backend/internal/domain"
	"realty-backend/internal/middleware"
	"realty-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *listsvc.Service
}

// GET /api/v1/listings?status=PUBLISHED|PENDING&kind=property|project
func (h *Handlers) GetListings(c *fiber.Ctx) error {
	var f listsvc.ListFilter
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParsePublishingStatus(s)
		if !ok {
			return response.Error(c, pubsvc.ErrInvalidStatus.Error(), fiber.StatusBadRequest, nil)
		}
		f.Status = status
	}
	if k := c.Query("kind"); k != "" {
		if !domain.Kind(k).Valid() {
			return response.Error(c, "Invalid kind: must be property or project", fiber.StatusBadRequest, nil)
		}
		f.Kind = domain.Kind(k)
	}
	listings, err := h.Service.GetListings(c.UserContext(), f)
	if err != nil {
		middleware.ReportError(c, err)
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listings fetched successfully", listings, fiber.Map{"count": len(listings)})
}

// GET /api/v1/listings/:id
func (h *Handlers) GetListingByID(c *fiber.Ctx) error {
	id, err := pubsvc.ParseListingID(c.Params("id"))
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.GetListingByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, listsvc.ErrListingNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		middleware.ReportError(c, err)
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/public/listings/:id
// Published listings only, served through the page cache.
func (h *Handlers) GetPublicListing(c *fiber.Ctx) error {
	id, err := pubsvc.ParseListingID(c.Params("id"))
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	body, cached, err := h.Service.GetPublishedListing(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, listsvc.ErrListingNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		middleware.ReportError(c, err)
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	if cached {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	return response.Success(c, "Listing fetched successfully", json.RawMessage(body), nil)
}
