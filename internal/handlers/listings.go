package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"swapshelf/internal/ingest"
	"swapshelf/internal/middleware"
	"swapshelf/internal/moderation"
	"swapshelf/internal/service"
)

// CreateListing accepts a multipart submission: image parts under any field
// name plus the listing's form fields.
func (h HandlerSet) CreateListing(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_multipart", "message": err.Error()})
		return
	}
	defer func() { _ = form.RemoveAll() }()

	fields, err := ingest.ParseFields(form.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}

	owner := fields.Owner()
	if owner == "" {
		owner = user.ID
	}
	if owner != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "listings can only be created for the authenticated user"})
		return
	}

	result, err := h.listings.Submit(c.Request.Context(), service.SubmitInput{
		OwnerID: owner,
		Submission: ingest.Submission{
			Files:  collectFiles(form),
			Fields: fields,
		},
	})
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("listing submission rejected")
		h.respondError(c, err)
		return
	}

	message := "listing created"
	if result.Decision == moderation.DecisionFlagged {
		message = "listing held for review"
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  message,
		"decision": result.Decision,
		"listing":  result.Listing,
	})
}

// collectFiles orders parts by field name, then by position within the field.
func collectFiles(form *multipart.Form) []ingest.File {
	names := make([]string, 0, len(form.File))
	for name := range form.File {
		names = append(names, name)
	}
	sort.Strings(names)

	var files []ingest.File
	for _, name := range names {
		for _, fh := range form.File[name] {
			files = append(files, ingest.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return files
}

func (h HandlerSet) ListListings(c *gin.Context) {
	limit, offset := pageParams(c)
	listings, err := h.catalog.ListListings(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": listings})
}

func (h HandlerSet) GetListing(c *gin.Context) {
	listing, err := h.catalog.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
