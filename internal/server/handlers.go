package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/picatz/openai-relay/internal/logger"
	"github.com/picatz/openai-relay/internal/relay"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Detail string `json:"detail"`
}

// handleJSON binds the request body to Req, calls fn and writes its result
// as JSON. An empty body binds the zero Req, leaving validation to fn.
func handleJSON[Req, Res any](s *Server, fn func(context.Context, Req) (*Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			s.fail(c, fmt.Errorf("%w: %w", relay.ErrInvalidRequest, err))
			return
		}

		res, err := fn(c.Request.Context(), req)
		if err != nil {
			s.fail(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) uploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, formError(err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("failed to open uploaded image: %w", err))
		return
	}
	defer f.Close()

	img, err := s.svc.EncodeImage(fh.Filename, f)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, img)
}

func (s *Server) uploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, formError(err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("failed to open uploaded file: %w", err))
		return
	}
	defer f.Close()

	result, err := s.svc.UploadFile(c.Request.Context(), relay.Upload{
		Filename:      fh.Filename,
		ContentType:   fh.Header.Get("Content-Type"),
		Body:          f,
		VectorStoreID: c.PostForm("vector_store_id"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// formError classifies an error from reading a multipart form.
func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	if errors.Is(err, http.ErrMissingFile) {
		return fmt.Errorf("%w: file is required", relay.ErrInvalidRequest)
	}
	return fmt.Errorf("%w: %w", relay.ErrInvalidRequest, err)
}

// statusCode maps an error to the HTTP status reported to the client.
func statusCode(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, relay.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.Request.URL.Path, logger.Err(err))
	} else {
		s.logger.DebugContext(c.Request.Context(), "rejected request", "path", c.Request.URL.Path, logger.Err(err))
	}

	c.AbortWithStatusJSON(code, errorResponse{Detail: err.Error()})
}

func (s *Server) recovered(c *gin.Context, v any) {
	s.fail(c, fmt.Errorf("panic: %v", v))
}
