package inbound

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shandysiswandi/gostream/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc uc
}

// Upload accepts media content as the multipart field "video" or as the
// raw request body and responds with the created asset record. The
// classification verdict arrives later over the subscribe channel.
func (h *HTTPEndpoint) Upload(ctx context.Context, r *http.Request) (any, error) {
	owner := pkgrouter.GetPrincipal(ctx)
	if owner == "" {
		return nil, pkgerror.NewBusiness("missing principal", pkgerror.CodeUnauthorized)
	}

	reader, filename, cleanup, err := extractVideoReader(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	asset, err := h.uc.Upload(ctx, owner, filename, reader)
	if err != nil {
		return nil, err
	}

	return UploadResponse{Asset: toHTTPAsset(asset)}, nil
}

// Videos lists the caller's assets newest-first.
func (h *HTTPEndpoint) Videos(ctx context.Context, r *http.Request) (any, error) {
	owner := pkgrouter.GetPrincipal(ctx)
	if owner == "" {
		return nil, pkgerror.NewBusiness("missing principal", pkgerror.CodeUnauthorized)
	}

	assets, err := h.uc.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	videos := make(VideosResponse, 0, len(assets))
	for _, asset := range assets {
		videos = append(videos, toHTTPAsset(asset))
	}

	return videos, nil
}

func extractVideoReader(r *http.Request) (io.Reader, string, func(), error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return extractMultipartVideo(r)
		}
	}

	if r.Body == nil {
		return nil, "", func() {}, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		filename = "video"
	}

	return r.Body, filename, func() {}, nil
}

func extractMultipartVideo(r *http.Request) (io.Reader, string, func(), error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, "", func() {}, pkgerror.NewInvalidFormat()
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, "", func() {}, pkgerror.NewInvalidInput(errors.New("video part is required"))
			}
			return nil, "", func() {}, pkgerror.NewInvalidFormat()
		}

		if part.FormName() == "video" {
			filename := strings.TrimSpace(part.FileName())
			if filename == "" {
				filename = "video"
			}
			return part, filename, func() { _ = part.Close() }, nil
		}
		_ = part.Close()
	}
}
