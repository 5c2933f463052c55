package inbound

import (
	"context"
	"io"
	"net/http"

	"github.com/shandysiswandi/gostream/internal/media/broadcast"
	"github.com/shandysiswandi/gostream/internal/media/entity"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgrouter"
)

type uc interface {
	Upload(ctx context.Context, ownerID, filename string, r io.Reader) (entity.Asset, error)
	List(ctx context.Context, ownerID string) ([]entity.Asset, error)
	Stream(ctx context.Context, assetID string) (entity.Asset, io.ReadSeekCloser, error)
}

// Runner schedules background work tied to the application lifecycle.
type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error)
}

type Dependency struct {
	Auth    pkgrouter.Authenticator
	Hub     *broadcast.Broadcaster
	Runner  Runner
	RootCtx context.Context
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, dep Dependency) {
	end := &HTTPEndpoint{uc: uc}
	ws := newWSEndpoint(dep.Hub, dep.Runner, dep.RootCtx)

	authed := pkgrouter.MiddlewareAuth(dep.Auth)

	r.POST("/upload", end.Upload, authed)
	r.GET("/videos", end.Videos, authed)

	// raw handlers: streaming and the websocket upgrade bypass the JSON codecs
	r.Handle(http.MethodGet, "/stream/:id", http.HandlerFunc(end.StreamVideo))
	r.Handle(http.MethodGet, "/subscribe", http.HandlerFunc(ws.Subscribe))
}
