package publication

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	pubsvc "realty-backend/internal/application/publication"
	"realty-backend/internal/domain"
	"realty-backend/internal/infrastructure/revalidate"
	"realty-backend/internal/middleware"
	"realty-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *pubsvc.Service
	// Invalidator is called with the public path of every listing whose status
	// was set. Nil skips invalidation.
	Invalidator revalidate.Invalidator
}

// errorStatus maps caller mistakes to their HTTP status; anything else is a 500.
var errorStatus = []struct {
	err  error
	code int
}{
	{pubsvc.ErrInvalidIdentifier, fiber.StatusBadRequest},
	{pubsvc.ErrInvalidStatus, fiber.StatusBadRequest},
	{pubsvc.ErrNotFound, fiber.StatusNotFound},
}

func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.code, e.err.Error()
		}
	}
	return fiber.StatusInternalServerError, "Internal Server Error"
}

// PATCH /api/v1/listings/:id  body { publishingStatus }
func (h *Handlers) UpdatePublishingStatus(c *fiber.Ctx) error {
	var body struct {
		PublishingStatus *string `json:"publishingStatus"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.PublishingStatus == nil {
		return response.Error(c, "publishingStatus is required", fiber.StatusBadRequest, nil)
	}

	ctx := pubsvc.WithActor(c.UserContext(), middleware.GetUserID(c))
	listing, err := h.Service.SetPublishingStatus(ctx, c.Params("id"), *body.PublishingStatus)
	if err != nil {
		code, msg := statusFor(err)
		if code == fiber.StatusInternalServerError {
			middleware.ReportError(c, err)
		}
		return response.Error(c, msg, code, nil)
	}

	revalidated := h.invalidate(c, []string{listing.PublicPath()})
	return response.Success(c, "Publishing status updated", listing, fiber.Map{"revalidated": revalidated})
}

// maxBatchSize bounds the ids of one batch request; each id is its own transaction.
const maxBatchSize = 100

type batchItem struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Listing *domain.Listing `json:"listing,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PATCH /api/v1/listings/publishing-status  body { ids, publishingStatus }
// Every listing is processed; the public paths of the ones that succeeded are
// invalidated once each after the whole batch.
func (h *Handlers) BatchUpdatePublishingStatus(c *fiber.Ctx) error {
	var body struct {
		IDs              []interface{} `json:"ids"`
		PublishingStatus string        `json:"publishingStatus"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if len(body.IDs) == 0 || body.PublishingStatus == "" {
		return response.Error(c, "ids and publishingStatus are required", fiber.StatusBadRequest, nil)
	}
	if len(body.IDs) > maxBatchSize {
		return response.Error(c, fmt.Sprintf("ids must contain at most %d entries", maxBatchSize), fiber.StatusBadRequest, nil)
	}
	if _, ok := domain.ParsePublishingStatus(body.PublishingStatus); !ok {
		return response.Error(c, pubsvc.ErrInvalidStatus.Error(), fiber.StatusBadRequest, nil)
	}

	ids := make([]string, len(body.IDs))
	for i, v := range body.IDs {
		ids[i] = asString(v)
	}

	ctx := pubsvc.WithActor(c.UserContext(), middleware.GetUserID(c))
	results := h.Service.SetPublishingStatusMany(ctx, ids, body.PublishingStatus)

	items := make([]batchItem, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			code, msg := statusFor(r.Err)
			if code == fiber.StatusInternalServerError {
				middleware.ReportError(c, r.Err)
			}
			items = append(items, batchItem{ID: r.ID, Status: "failed", Error: msg})
			continue
		}
		items = append(items, batchItem{ID: r.ID, Status: "updated", Listing: r.Listing})
	}

	paths := pubsvc.ChangedPaths(results)
	revalidated := h.invalidate(c, paths)
	meta := fiber.Map{
		"updated":     len(results) - failed,
		"failed":      failed,
		"revalidated": revalidated,
	}
	if failed == len(results) {
		return response.SuccessStatus(c, fiber.StatusMultiStatus, "No publishing status updated", items, meta)
	}
	if failed > 0 {
		return response.SuccessStatus(c, fiber.StatusMultiStatus, "Publishing status partially updated", items, meta)
	}
	return response.Success(c, "Publishing status updated", items, meta)
}

// invalidate reports whether every path was invalidated. Failures are logged
// and never undo the status change.
func (h *Handlers) invalidate(c *fiber.Ctx, paths []string) bool {
	if h.Invalidator == nil || len(paths) == 0 {
		return false
	}
	if err := revalidate.Paths(c.UserContext(), h.Invalidator, paths); err != nil {
		log.Warn().Err(err).
			Str("trace_id", middleware.GetTraceID(c)).
			Strs("paths", paths).
			Msg("cache invalidation failed after publishing status change")
		return false
	}
	return true
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}
