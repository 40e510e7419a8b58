package v1

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/talentwire/interview-webhooks/internal/controller/restapi/v1/response"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/usecase/applier"
	"github.com/talentwire/interview-webhooks/pkg/types/errs"
)

const (
	zoomSignatureHeader  = "X-Zm-Signature"
	zoomTimestampHeader  = "X-Zm-Request-Timestamp"
	zoomTrackingIDHeader = "X-Zm-Trackingid"

	zoomURLValidationEvent = "endpoint.url_validation"
)

type zoomWebhookRequest struct {
	Event   string `json:"event"`
	EventTS int64  `json:"event_ts"`
	Payload struct {
		PlainToken string `json:"plainToken"`
		Object     struct {
			ID   json.Number `json:"id"`
			UUID string      `json:"uuid"`
		} `json:"object"`
	} `json:"payload"`
}

// @Summary  	Ingest Zoom webhook
// @Description Verifies the Zoom signature and stores the delivery as a pending event row
// @Tags 		webhooks
// @Accept 		json
// @Produce 	json
// @Success 	200 {object} response.IngestAck
// @Failure 	400 {object} response.Error "Malformed payload"
// @Failure 	401 {object} response.Error "Missing or invalid signature"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/webhooks/zoom [post]
func (r *V1) zoomWebhook(ctx *fiber.Ctx) error {
	body := ctx.Body()

	// 1. сигнатура
	if err := verifyZoomSignature(ctx, r.zoomSecretToken, body); err != nil {
		r.logger.Warn("zoom webhook signature rejected: %v", err)

		return errorResponse(ctx, http.StatusUnauthorized, "invalid signature")
	}

	// 2. парсинг
	var req zoomWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "malformed payload")
	}
	if req.Event == "" {
		return errorResponse(ctx, http.StatusBadRequest, "event is required")
	}

	// 3. URL validation challenge
	if req.Event == zoomURLValidationEvent {
		return ctx.JSON(response.URLValidation{
			PlainToken:     req.Payload.PlainToken,
			EncryptedToken: hmacHex(r.zoomSecretToken, req.Payload.PlainToken),
		})
	}

	// 4. сохраняем событие
	inbound := dto.InboundEvent{
		Provider:       applier.ProviderZoom,
		EventType:      req.Event,
		EventID:        zoomEventID(ctx, &req),
		CorrelationKey: req.Payload.Object.ID.String(),
		Payload:        append([]byte(nil), body...),
	}

	event, created, err := r.webhook.IngestEvent(ctx.UserContext(), inbound)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - zoomWebhook")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	if !created {
		return ctx.JSON(response.IngestAck{Status: "duplicate"})
	}

	return ctx.JSON(response.IngestAck{Status: "accepted", EventID: event.ID.String()})
}

// verifyZoomSignature checks the v0 HMAC scheme: the signature header carries
// hex(HMAC-SHA256(secret, "v0:{timestamp}:{body}")) prefixed with "v0=".
func verifyZoomSignature(ctx *fiber.Ctx, secret string, body []byte) error {
	signature := ctx.Get(zoomSignatureHeader)
	timestamp := ctx.Get(zoomTimestampHeader)
	if signature == "" || timestamp == "" {
		return fmt.Errorf("%w: no %s or %s header", errs.ErrMissingSignature, zoomSignatureHeader, zoomTimestampHeader)
	}

	message := fmt.Sprintf("v0:%s:%s", timestamp, body)
	expected := "v0=" + hmacHex(secret, message)

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return errs.ErrInvalidSignature
	}

	return nil
}

func hmacHex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))

	return hex.EncodeToString(mac.Sum(nil))
}

// zoomEventID dedups deliveries. Zoom's tracking id header identifies a
// delivery when present; otherwise event name + meeting uuid + event
// timestamp is unique enough for replay suppression.
func zoomEventID(ctx *fiber.Ctx, req *zoomWebhookRequest) string {
	if trackingID := ctx.Get(zoomTrackingIDHeader); trackingID != "" {
		return trackingID
	}

	return fmt.Sprintf("%s:%s:%d", req.Event, req.Payload.Object.UUID, req.EventTS)
}
