package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pavelzubkov/qrlink/internal/entity"
	"github.com/pavelzubkov/qrlink/internal/usecase"
)

const statusError = "error"

// linkRequest represents the structure for a request to create or modify a link.
type linkRequest struct {
	DefaultURL  string            `json:"default_url" validate:"required,url"`
	VariantURLs map[string]string `json:"variant_urls" validate:"omitempty,dive,url"`
	Theme       string            `json:"theme" validate:"omitempty,hexcolor"`
	ExpiresAt   *time.Time        `json:"expires_at"`
}

func (req *linkRequest) toParams() usecase.LinkParams {
	variants := make(entity.VariantURLs, len(req.VariantURLs))
	for device, url := range req.VariantURLs {
		variants[entity.DeviceClass(device)] = url
	}

	return usecase.LinkParams{
		DefaultURL:  req.DefaultURL,
		VariantURLs: variants,
		Theme:       req.Theme,
		ExpiresAt:   req.ExpiresAt,
	}
}

// linkResponse represents the structure for a response containing link information.
type linkResponse struct {
	ID          int64             `json:"id"`
	LinkID      string            `json:"link_id"`
	DefaultURL  string            `json:"default_url"`
	VariantURLs map[string]string `json:"variant_urls,omitempty"`
	Theme       string            `json:"theme,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	QRURL       string            `json:"qr_url,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// toLinkResponse converts an entity.Link to a linkResponse.
func toLinkResponse(link *entity.Link, qrURL string) linkResponse {
	var variants map[string]string
	if len(link.VariantURLs) > 0 {
		variants = make(map[string]string, len(link.VariantURLs))
		for device, url := range link.VariantURLs {
			variants[string(device)] = url
		}
	}

	return linkResponse{
		ID:          link.ID,
		LinkID:      link.LinkID,
		DefaultURL:  link.DefaultURL,
		VariantURLs: variants,
		Theme:       link.Theme,
		ExpiresAt:   link.ExpiresAt,
		QRURL:       qrURL,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

// linkStatsResponse represents the structure for a response containing link statistics.
type linkStatsResponse struct {
	ID         int64      `json:"id"`
	LinkID     string     `json:"link_id"`
	DefaultURL string     `json:"default_url"`
	Stats      linkStats  `json:"stats"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// linkStats represents the scan statistics for a link.
type linkStats struct {
	ScanCount  int64      `json:"scan_count"`
	LastScanAt *time.Time `json:"last_scan_at,omitempty"`
}

// toLinkStatsResponse converts an entity.Link to a linkStatsResponse.
func toLinkStatsResponse(link *entity.Link) linkStatsResponse {
	return linkStatsResponse{
		ID:         link.ID,
		LinkID:     link.LinkID,
		DefaultURL: link.DefaultURL,
		Stats: linkStats{
			ScanCount:  link.LinkStats.ScanCount,
			LastScanAt: link.LinkStats.LastScanAt,
		},
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	}
}

// linkListResponse represents the structure for a response listing all links.
type linkListResponse struct {
	Links []linkStatsResponse `json:"links"`
}

// toLinkListResponse converts a slice of entity.Link to a linkListResponse.
func toLinkListResponse(links []*entity.Link) linkListResponse {
	out := linkListResponse{Links: make([]linkStatsResponse, len(links))}
	for i, link := range links {
		out.Links[i] = toLinkStatsResponse(link)
	}
	return out
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios. Internal error text is
// never exposed; every kind maps to a fixed safe message.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	linkNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "link not found",
	}

	linkExpiredResponse = errorResponse{
		Status:  statusError,
		Message: "link expired",
	}

	storeUnavailableResponse = errorResponse{
		Status:  statusError,
		Message: "service temporarily unavailable",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "hexcolor":
		return "invalid hex color"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
