package inbound

import (
	"net/http"

	"github.com/shandysiswandi/gostream/internal/media/entity"
)

type Asset struct {
	ID        string             `json:"id"`
	Filename  string             `json:"filename"`
	ByteSize  int64              `json:"byte_size"`
	Status    entity.AssetStatus `json:"status"`
	CreatedAt int64              `json:"created_at"`
}

func toHTTPAsset(asset entity.Asset) Asset {
	return Asset{
		ID:        asset.ID,
		Filename:  asset.Filename,
		ByteSize:  asset.ByteSize,
		Status:    asset.Status,
		CreatedAt: asset.CreatedAt,
	}
}

type UploadResponse struct {
	Asset
}

func (UploadResponse) StatusCode() int {
	return http.StatusCreated
}

func (UploadResponse) Message() string {
	return "upload accepted"
}

// VideosResponse serializes as the caller's asset array, newest-first.
type VideosResponse []Asset
