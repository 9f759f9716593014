package listingevents

import (
	"errors"

	lesvc "realty-backend/internal/application/listingevents"
	pubsvc "realty-backend/internal/application/publication"
	"realty-backend/internal/middleware"
	"realty-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *lesvc.Service
}

// GET /api/v1/listing-events/:listing_id
func (h *Handlers) GetListingEvents(c *fiber.Ctx) error {
	listingID, err := pubsvc.ParseListingID(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, err.Error(), 400, nil)
	}

	events, err := h.Service.GetListingEvents(c.UserContext(), listingID)
	if err != nil {
		if errors.Is(err, lesvc.ErrListingNotFound) {
			return response.Error(c, err.Error(), 404, nil)
		}
		middleware.ReportError(c, err)
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	return response.Success(c, "Listing events fetched successfully", fiber.Map{"events": events}, nil)
}
