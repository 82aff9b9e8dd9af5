package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelzubkov/qrlink/internal/entity"
	"github.com/pavelzubkov/qrlink/pkg/pdf"
	"github.com/pavelzubkov/qrlink/pkg/qrcode"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a link identifier is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating link identifier")

type linkRepository interface {
	Save(ctx context.Context, link *entity.Link) (*entity.Link, error)
	RetrieveByLinkID(ctx context.Context, linkID string) (*entity.Link, error)
	List(ctx context.Context) ([]*entity.Link, error)
	Update(ctx context.Context, linkID, defaultURL string, variants entity.VariantURLs, expiresAt *time.Time) (*entity.Link, error)
	Remove(ctx context.Context, linkID string) error
}

type qrStorage interface {
	UploadQR(ctx context.Context, linkID string, png []byte) (string, error)
	DownloadQR(ctx context.Context, linkID string) ([]byte, error)
}

// LinkParams carries the caller-supplied fields of a link.
type LinkParams struct {
	DefaultURL  string
	VariantURLs entity.VariantURLs
	Theme       string
	ExpiresAt   *time.Time
}

// LinkUseCase manages the lifecycle of links: creation with a rendered QR
// artifact, modification, deactivation and statistics.
type LinkUseCase struct {
	repo            linkRepository
	cache           linkCache
	storage         qrStorage
	logger          *slog.Logger
	codeLength      int
	qrSize          int
	redirectBaseURL string
}

// NewLinkUseCase creates a LinkUseCase. cache may be nil. redirectBaseURL is
// the public base the QR code points at; the link identifier is appended to
// it.
func NewLinkUseCase(repo linkRepository, cache linkCache, storage qrStorage, logger *slog.Logger, codeLength, qrSize int, redirectBaseURL string) *LinkUseCase {
	return &LinkUseCase{
		repo:            repo,
		cache:           cache,
		storage:         storage,
		logger:          logger,
		codeLength:      codeLength,
		qrSize:          qrSize,
		redirectBaseURL: strings.TrimSuffix(redirectBaseURL, "/"),
	}
}

// RedirectURL returns the public URL encoded into the QR code for a link.
func (uc *LinkUseCase) RedirectURL(linkID string) string {
	return fmt.Sprintf("%s/r/%s", uc.redirectBaseURL, linkID)
}

// CreateLink persists a new link under a generated identifier, renders its
// QR code and uploads the artifact. It returns the created link and the
// public URL of the QR image. If the artifact cannot be produced the saved
// record is discarded again, so a failed creation leaves nothing behind for
// the client to collide with on retry.
func (uc *LinkUseCase) CreateLink(ctx context.Context, params LinkParams) (*entity.Link, string, error) {
	const op = "usecase.LinkUseCase.CreateLink"
	const maxRetries = 5

	length := uc.codeLength

	for i := 0; i < maxRetries; i++ {
		linkID, err := gonanoid.New(length)
		if err != nil {
			return nil, "", fmt.Errorf("%s: failed to generate link identifier: %w", op, err)
		}

		link, err := uc.repo.Save(ctx, &entity.Link{
			LinkID:      linkID,
			DefaultURL:  params.DefaultURL,
			VariantURLs: params.VariantURLs,
			Theme:       params.Theme,
			ExpiresAt:   params.ExpiresAt,
		})
		if err != nil {
			if errors.Is(err, entity.ErrLinkExists) {
				length++
				continue
			}

			return nil, "", fmt.Errorf("%s: failed to create link: %w", op, err)
		}

		png, err := qrcode.Generate(uc.RedirectURL(link.LinkID), link.Theme, uc.qrSize)
		if err != nil {
			uc.discard(ctx, link.LinkID)
			return nil, "", fmt.Errorf("%s: failed to render qr code: %w", op, err)
		}

		qrURL, err := uc.storage.UploadQR(ctx, link.LinkID, png)
		if err != nil {
			uc.discard(ctx, link.LinkID)
			return nil, "", fmt.Errorf("%s: failed to upload qr artifact: %w", op, err)
		}

		return link, qrURL, nil
	}

	return nil, "", fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ModifyLink updates the destinations and expiry of an existing link.
func (uc *LinkUseCase) ModifyLink(ctx context.Context, linkID string, params LinkParams) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.ModifyLink"

	link, err := uc.repo.Update(ctx, linkID, params.DefaultURL, params.VariantURLs, params.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify link: %w", op, err)
	}

	uc.invalidate(ctx, linkID)

	return link, nil
}

// DeactivateLink removes the link associated with the provided identifier.
func (uc *LinkUseCase) DeactivateLink(ctx context.Context, linkID string) error {
	const op = "usecase.LinkUseCase.DeactivateLink"

	if err := uc.repo.Remove(ctx, linkID); err != nil {
		return fmt.Errorf("%s: failed to deactivate link: %w", op, err)
	}

	uc.invalidate(ctx, linkID)

	return nil
}

// ListLinks returns every link together with its scan statistics.
func (uc *LinkUseCase) ListLinks(ctx context.Context) ([]*entity.Link, error) {
	const op = "usecase.LinkUseCase.ListLinks"

	links, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return links, nil
}

// ExportLinkPDF produces a print-ready PDF document containing the stored QR
// artifact of a link.
func (uc *LinkUseCase) ExportLinkPDF(ctx context.Context, linkID string) ([]byte, error) {
	const op = "usecase.LinkUseCase.ExportLinkPDF"

	link, err := uc.repo.RetrieveByLinkID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	png, err := uc.storage.DownloadQR(ctx, link.LinkID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to download qr artifact: %w", op, err)
	}

	doc, err := pdf.Render(png, "QR Code", fmt.Sprintf("QR ID: %s", link.LinkID))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to render pdf: %w", op, err)
	}

	return doc, nil
}

// GetLinkStats retrieves the link with its scan statistics.
func (uc *LinkUseCase) GetLinkStats(ctx context.Context, linkID string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.GetLinkStats"

	link, err := uc.repo.RetrieveByLinkID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	return link, nil
}

// discard removes a freshly saved link after its artifact could not be
// produced. Best effort: a leftover row is logged, not surfaced, since the
// caller already receives the original failure.
func (uc *LinkUseCase) discard(ctx context.Context, linkID string) {
	const op = "usecase.LinkUseCase.discard"

	if err := uc.repo.Remove(ctx, linkID); err != nil {
		uc.logger.Warn("failed to discard link after artifact failure",
			slog.Group(op, slog.String("link_id", linkID), slog.Any("err", err)),
		)
		return
	}

	uc.invalidate(ctx, linkID)
}

func (uc *LinkUseCase) invalidate(ctx context.Context, linkID string) {
	const op = "usecase.LinkUseCase.invalidate"

	if uc.cache == nil {
		return
	}

	if err := uc.cache.Invalidate(ctx, linkID); err != nil {
		uc.logger.Warn("failed to invalidate cached link",
			slog.Group(op, slog.String("link_id", linkID), slog.Any("err", err)),
		)
	}
}
