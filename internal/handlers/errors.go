package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swapshelf/internal/ingest"
	"swapshelf/internal/service"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{ingest.ErrNoFilesProvided, http.StatusBadRequest, "no_files_provided"},
	{ingest.ErrInvalidFormField, http.StatusBadRequest, "invalid_form_field"},
	{ingest.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type"},
	{ingest.ErrClassification, http.StatusUnprocessableEntity, "classification_failed"},
	{service.ErrStorageUpload, http.StatusBadGateway, "storage_upload_failed"},
	{service.ErrUnknownOwner, http.StatusBadRequest, "unknown_owner"},
	{service.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{service.ErrSelfTransfer, http.StatusBadRequest, "self_transfer"},
	{service.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{service.ErrAlreadyGiven, http.StatusBadRequest, "already_given"},
	{service.ErrUnknownUser, http.StatusBadRequest, "unknown_user"},
	{service.ErrInsufficientCredits, http.StatusBadRequest, "insufficient_credits"},
	{service.ErrTransactionConflict, http.StatusConflict, "transaction_conflict"},
	{service.ErrInvalidUser, http.StatusBadRequest, "invalid_user"},
	{service.ErrUserExists, http.StatusConflict, "user_exists"},
}

// respondError maps domain errors to statuses. Unknown errors are logged and
// reported without detail.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": m.code, "message": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
