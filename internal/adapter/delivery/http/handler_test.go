package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/pavelzubkov/qrlink/internal/entity"
	"github.com/pavelzubkov/qrlink/internal/usecase"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, linkID string, client usecase.ClientInfo) *entity.Decision {
	args := m.Called(ctx, linkID, client)
	return args.Get(0).(*entity.Decision)
}

type mockLinkUseCase struct {
	mock.Mock
}

func (m *mockLinkUseCase) CreateLink(ctx context.Context, params usecase.LinkParams) (*entity.Link, string, error) {
	args := m.Called(ctx, params)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.String(1), args.Error(2)
}

func (m *mockLinkUseCase) ModifyLink(ctx context.Context, linkID string, params usecase.LinkParams) (*entity.Link, error) {
	args := m.Called(ctx, linkID, params)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (m *mockLinkUseCase) DeactivateLink(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

func (m *mockLinkUseCase) ListLinks(ctx context.Context) ([]*entity.Link, error) {
	args := m.Called(ctx)
	links, _ := args.Get(0).([]*entity.Link)
	return links, args.Error(1)
}

func (m *mockLinkUseCase) GetLinkStats(ctx context.Context, linkID string) (*entity.Link, error) {
	args := m.Called(ctx, linkID)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (m *mockLinkUseCase) ExportLinkPDF(ctx context.Context, linkID string) ([]byte, error) {
	args := m.Called(ctx, linkID)
	doc, _ := args.Get(0).([]byte)
	return doc, args.Error(1)
}

type HandlersTestSuite struct {
	suite.Suite
	logger       *httplog.Logger
	resolverMock *mockResolver
	useCaseMock  *mockLinkUseCase
	server       *httptest.Server
	e            *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.resolverMock = new(mockResolver)
	suite.useCaseMock = new(mockLinkUseCase)

	router := NewRouter(suite.logger, suite.resolverMock, suite.useCaseMock)
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.resolverMock.AssertExpectations(suite.T())
	suite.useCaseMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/r/abc123"

	suite.Run("redirect", func() {
		suite.resolverMock.
			On("Resolve", mock.Anything, "abc123", mock.MatchedBy(func(client usecase.ClientInfo) bool {
				return client.UserAgent != "" && client.SourceIP != ""
			})).
			Once().
			Return(&entity.Decision{
				Outcome:     entity.OutcomeRedirect,
				LinkID:      "abc123",
				Destination: "https://m.example",
				Device:      entity.DeviceMobile,
			})

		suite.e.GET(path).
			WithHeader("User-Agent", "Mozilla/5.0 Mobile Safari").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://m.example")
	})

	suite.Run("not found", func() {
		suite.resolverMock.
			On("Resolve", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(&entity.Decision{Outcome: entity.OutcomeNotFound, LinkID: "abc123"})

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("expired", func() {
		suite.resolverMock.
			On("Resolve", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(&entity.Decision{Outcome: entity.OutcomeExpired, LinkID: "abc123"})

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusGone).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("store unavailable", func() {
		suite.resolverMock.
			On("Resolve", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(&entity.Decision{Outcome: entity.OutcomeStoreUnavailable, LinkID: "abc123"})

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusServiceUnavailable).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})
}

func (suite *HandlersTestSuite) TestCreateLink() {
	const path = "/api/v1/links"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("invalid request body", func() {
		resp := suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("validation error", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"default_url": "invalid url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "default_url").
			ContainsKey("message")
	})

	suite.Run("server error", func() {
		suite.useCaseMock.
			On("CreateLink", mock.Anything, mock.Anything).
			Once().
			Return(nil, "", errors.New("unknown error"))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"default_url": "https://a.example"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		suite.useCaseMock.
			On("CreateLink", mock.Anything, mock.MatchedBy(func(params usecase.LinkParams) bool {
				return params.DefaultURL == "https://a.example" &&
					params.VariantURLs[entity.DeviceMobile] == "https://m.example"
			})).
			Once().
			Return(&entity.Link{
				LinkID:     "abc123",
				DefaultURL: "https://a.example",
				VariantURLs: entity.VariantURLs{
					entity.DeviceMobile: "https://m.example",
				},
			}, "https://qr-codes.s3.amazonaws.com/qr/abc123.png", nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]any{
				"default_url": "https://a.example",
				"variant_urls": map[string]string{
					"mobile": "https://m.example",
				},
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("link_id", "abc123")
		resp.HasValue("default_url", "https://a.example")
		resp.HasValue("qr_url", "https://qr-codes.s3.amazonaws.com/qr/abc123.png")
		resp.Value("variant_urls").Object().HasValue("mobile", "https://m.example")
	})
}

func (suite *HandlersTestSuite) TestModifyLink() {
	const path = "/api/v1/links/abc123"

	suite.Run("link not found", func() {
		suite.useCaseMock.
			On("ModifyLink", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(nil, entity.ErrLinkNotFound)

		resp := suite.e.PUT(path).
			WithJSON(map[string]string{"default_url": "https://b.example"}).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		suite.useCaseMock.
			On("ModifyLink", mock.Anything, "abc123", mock.Anything).
			Once().
			Return(&entity.Link{
				LinkID:     "abc123",
				DefaultURL: "https://b.example",
			}, nil)

		resp := suite.e.PUT(path).
			WithJSON(map[string]string{"default_url": "https://b.example"}).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("link_id", "abc123")
		resp.HasValue("default_url", "https://b.example")
		resp.NotContainsKey("qr_url")
	})
}

func (suite *HandlersTestSuite) TestDeactivateLink() {
	const path = "/api/v1/links/abc123"

	suite.Run("link not found", func() {
		suite.useCaseMock.
			On("DeactivateLink", mock.Anything, "abc123").
			Once().
			Return(entity.ErrLinkNotFound)

		resp := suite.e.DELETE(path).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		suite.useCaseMock.
			On("DeactivateLink", mock.Anything, "abc123").
			Once().
			Return(nil)

		suite.e.DELETE(path).
			Expect().
			Status(http.StatusNoContent).
			NoContent()
	})
}

func (suite *HandlersTestSuite) TestGetLinkStats() {
	const path = "/api/v1/links/abc123/stats"

	suite.Run("link not found", func() {
		suite.useCaseMock.
			On("GetLinkStats", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		lastScanAt := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

		suite.useCaseMock.
			On("GetLinkStats", mock.Anything, "abc123").
			Once().
			Return(&entity.Link{
				LinkID:     "abc123",
				DefaultURL: "https://a.example",
				LinkStats: entity.LinkStats{
					ScanCount:  42,
					LastScanAt: &lastScanAt,
				},
			}, nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("link_id", "abc123")
		resp.Value("stats").Object().
			HasValue("scan_count", 42)
	})
}

func (suite *HandlersTestSuite) TestListLinks() {
	const path = "/api/v1/links"

	suite.Run("server error", func() {
		suite.useCaseMock.
			On("ListLinks", mock.Anything).
			Once().
			Return(nil, errors.New("unknown error"))

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		suite.useCaseMock.
			On("ListLinks", mock.Anything).
			Once().
			Return([]*entity.Link{
				{
					LinkID:     "def456",
					DefaultURL: "https://b.example",
					LinkStats:  entity.LinkStats{ScanCount: 7},
				},
				{
					LinkID:     "abc123",
					DefaultURL: "https://a.example",
					LinkStats:  entity.LinkStats{ScanCount: 42},
				},
			}, nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		links := resp.Value("links").Array()
		links.Length().IsEqual(2)
		links.Value(0).Object().HasValue("link_id", "def456")
		links.Value(1).Object().
			HasValue("link_id", "abc123").
			Value("stats").Object().HasValue("scan_count", 42)
	})
}

func (suite *HandlersTestSuite) TestExportLinkPDF() {
	const path = "/api/v1/links/abc123/pdf"

	suite.Run("link not found", func() {
		suite.useCaseMock.
			On("ExportLinkPDF", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("server error", func() {
		suite.useCaseMock.
			On("ExportLinkPDF", mock.Anything, "abc123").
			Once().
			Return(nil, errors.New("unknown error"))

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		suite.useCaseMock.
			On("ExportLinkPDF", mock.Anything, "abc123").
			Once().
			Return([]byte("%PDF-1.7 document"), nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK)

		resp.Header("Content-Type").IsEqual("application/pdf")
		resp.Header("Content-Disposition").Contains("abc123.pdf")
		resp.Body().IsEqual("%PDF-1.7 document")
	})
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
