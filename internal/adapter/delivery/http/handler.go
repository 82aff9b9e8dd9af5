package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/pavelzubkov/qrlink/internal/entity"
	"github.com/pavelzubkov/qrlink/internal/usecase"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type linkResolver interface {
	Resolve(ctx context.Context, linkID string, client usecase.ClientInfo) *entity.Decision
}

type linkUseCase interface {
	CreateLink(ctx context.Context, params usecase.LinkParams) (*entity.Link, string, error)
	ModifyLink(ctx context.Context, linkID string, params usecase.LinkParams) (*entity.Link, error)
	DeactivateLink(ctx context.Context, linkID string) error
	ListLinks(ctx context.Context) ([]*entity.Link, error)
	GetLinkStats(ctx context.Context, linkID string) (*entity.Link, error)
	ExportLinkPDF(ctx context.Context, linkID string) ([]byte, error)
}

type linkHandler struct {
	resolver linkResolver
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(resolver linkResolver, useCase linkUseCase, validate *validator.Validate) *linkHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &linkHandler{
		resolver: resolver,
		useCase:  useCase,
		validate: validate,
	}
}

// redirect is the hot path: it maps the resolver's decision to an HTTP
// status and never waits on scan accounting.
func (h *linkHandler) redirect(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")

	decision := h.resolver.Resolve(r.Context(), linkID, usecase.ClientInfo{
		UserAgent: r.UserAgent(),
		SourceIP:  sourceIP(r),
	})

	switch decision.Outcome {
	case entity.OutcomeRedirect:
		http.Redirect(w, r, decision.Destination, http.StatusFound)
	case entity.OutcomeExpired:
		render.Status(r, http.StatusGone)
		render.JSON(w, r, linkExpiredResponse)
	case entity.OutcomeStoreUnavailable:
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, storeUnavailableResponse)
	default:
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, linkNotFoundResponse)
	}
}

func (h *linkHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, qrURL, err := h.useCase.CreateLink(r.Context(), req.toParams())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toLinkResponse(link, qrURL))
}

func (h *linkHandler) modifyLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	linkID := chi.URLParam(r, "linkID")

	link, err := h.useCase.ModifyLink(r.Context(), linkID, req.toParams())
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponse(link, ""))
}

func (h *linkHandler) deactivateLink(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")

	if err := h.useCase.DeactivateLink(r.Context(), linkID); err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *linkHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.useCase.ListLinks(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkListResponse(links))
}

func (h *linkHandler) exportLinkPDF(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")

	doc, err := h.useCase.ExportLinkPDF(r.Context(), linkID)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", linkID+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *linkHandler) getLinkStats(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")

	link, err := h.useCase.GetLinkStats(r.Context(), linkID)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkStatsResponse(link))
}

// sourceIP returns the client address without the port. RealIP middleware
// has already folded X-Forwarded-For into RemoteAddr when present.
func sourceIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
