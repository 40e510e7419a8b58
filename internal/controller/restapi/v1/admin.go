package v1

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/talentwire/interview-webhooks/internal/controller/restapi/v1/response"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/pkg/types/errs"
)

const internalTokenHeader = "X-Internal-Token"

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// @Summary  	Run a retry-processor pass
// @Description Processes one batch of due webhook events; meant for an external scheduler
// @Tags 		webhooks
// @Produce 	json
// @Success 	200 {object} response.ProcessRun
// @Failure 	401 {object} response.Error "Missing or invalid internal token"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/webhooks/process [post]
func (r *V1) processEvents(ctx *fiber.Ctx) error {
	if !r.authorized(ctx) {
		return errorResponse(ctx, http.StatusUnauthorized, "invalid internal token")
	}

	summary, err := r.webhook.ProcessDueEvents(ctx.UserContext(), r.batchSize)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - processEvents")

		return errorResponse(ctx, http.StatusInternalServerError, "processing problems")
	}

	return ctx.JSON(response.ProcessRun{
		Processed:   summary.Processed,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		DeadLetters: summary.DeadLetters,
	})
}

// @Summary  	List dead-lettered events
// @Description Paginated listing of events that exhausted their retry budget, newest first
// @Tags 		dead-letters
// @Produce 	json
// @Param 		page 	   query int    false "Page number (1-based)"
// @Param 		limit 	   query int    false "Page size (max 100)"
// @Param 		provider   query string false "Filter by provider"
// @Param 		event_type query string false "Filter by event type"
// @Success 	200 {object} response.DeadLetterPage
// @Failure 	401 {object} response.Error "Missing or invalid internal token"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/dead-letters [get]
func (r *V1) listDeadLetters(ctx *fiber.Ctx) error {
	if !r.authorized(ctx) {
		return errorResponse(ctx, http.StatusUnauthorized, "invalid internal token")
	}

	page := ctx.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := ctx.QueryInt("limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := dto.DeadLetterFilter{
		Provider:  ctx.Query("provider"),
		EventType: ctx.Query("event_type"),
		Page:      page,
		Limit:     limit,
	}

	events, total, err := r.webhook.ListDeadLetters(ctx.UserContext(), filter)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - listDeadLetters")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	totalPages := (total + limit - 1) / limit

	return ctx.JSON(response.DeadLetterPage{
		Events:     events,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// @Summary  	Requeue a dead-lettered event
// @Description Puts a dead letter back on the retry path with a fresh attempt budget
// @Tags 		dead-letters
// @Produce 	json
// @Param		id 	path	 string true "Event ID(uuid)"
// @Success 	200 {object} entity.WebhookEvent
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	401 {object} response.Error "Missing or invalid internal token"
// @Failure 	404 {object} response.Error "Event not found"
// @Failure 	409 {object} response.Error "Event is not dead-lettered"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/dead-letters/{id}/requeue [post]
func (r *V1) requeueDeadLetter(ctx *fiber.Ctx) error {
	if !r.authorized(ctx) {
		return errorResponse(ctx, http.StatusUnauthorized, "invalid internal token")
	}

	idStr := ctx.Params("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	event, err := r.webhook.RequeueEvent(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "event not found")
		}
		if errors.Is(err, errs.ErrNotDeadLetter) {
			return errorResponse(ctx, http.StatusConflict, "event is not dead-lettered")
		}
		r.logger.Error(err, "restapi - v1 - requeueDeadLetter")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.JSON(event)
}

func (r *V1) authorized(ctx *fiber.Ctx) bool {
	token := ctx.Get(internalTokenHeader)
	if token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(r.internalToken)) == 1
}
