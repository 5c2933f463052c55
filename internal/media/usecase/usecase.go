package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gostream/internal/media/entity"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gostream/internal/pkg/pkguid"
)

type Store interface {
	Create(ctx context.Context, asset entity.Asset) error
	Get(ctx context.Context, assetID string) (entity.Asset, error)
	List(ctx context.Context, ownerID string) ([]entity.Asset, error)
}

type ContentStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, int64, error)
	Open(location string) (io.ReadSeekCloser, error)
	Remove(location string) error
}

type Pipeline interface {
	Submit(ctx context.Context, assetID string) error
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Store    Store
	Content  ContentStore
	Pipeline Pipeline
	Clock    Clock
	ID       pkguid.StringID
	RootCtx  context.Context
}

type Usecase struct {
	store    Store
	content  ContentStore
	pipeline Pipeline
	clock    Clock
	id       pkguid.StringID
	rootCtx  context.Context
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		store:    dep.Store,
		content:  dep.Content,
		pipeline: dep.Pipeline,
		clock:    clock,
		id:       dep.ID,
		rootCtx:  root,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Upload streams the content into the blob store, creates the pending
// asset record, and hands the asset id to the classification pipeline.
// The handoff never waits for classification.
func (u *Usecase) Upload(ctx context.Context, ownerID, filename string, r io.Reader) (entity.Asset, error) {
	if u.store == nil || u.content == nil || u.pipeline == nil || u.id == nil {
		return entity.Asset{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	if ownerID == "" {
		return entity.Asset{}, pkgerror.NewInvalidInput(errors.New("owner is required"))
	}

	location, size, err := u.content.Save(ctx, filename, r)
	if err != nil {
		return entity.Asset{}, pkgerror.NewServer(err)
	}

	asset := entity.Asset{
		ID:        u.id.Generate(),
		OwnerID:   ownerID,
		Filename:  filename,
		Location:  location,
		ByteSize:  size,
		Status:    entity.AssetStatusPending,
		CreatedAt: u.clock.Now().Unix(),
	}

	if err := u.store.Create(ctx, asset); err != nil {
		if rmErr := u.content.Remove(location); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove orphaned content", "location", location, "error", rmErr)
		}
		return entity.Asset{}, normalizeErr(err)
	}

	// submission rides the root context so a client abort after the record
	// exists cannot leave the asset pending forever
	if err := u.pipeline.Submit(u.rootCtx, asset.ID); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue classification job", "asset_id", asset.ID, "error", err)
	}

	return asset, nil
}

// List returns the owner's assets newest-first.
func (u *Usecase) List(ctx context.Context, ownerID string) ([]entity.Asset, error) {
	if ownerID == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("owner is required"))
	}

	assets, err := u.store.List(ctx, ownerID)
	if err != nil {
		return nil, normalizeErr(err)
	}

	return assets, nil
}

// Stream resolves an asset and opens its content for reading. The caller
// owns the returned handle. Read-only: the asset's status is neither
// consulted nor changed.
func (u *Usecase) Stream(ctx context.Context, assetID string) (entity.Asset, io.ReadSeekCloser, error) {
	if assetID == "" {
		return entity.Asset{}, nil, pkgerror.NewInvalidInput(errors.New("asset id is required"))
	}

	asset, err := u.store.Get(ctx, assetID)
	if err != nil {
		return entity.Asset{}, nil, mapStoreErr(err)
	}

	content, err := u.content.Open(asset.Location)
	if err != nil {
		return entity.Asset{}, nil, pkgerror.NewServer(err)
	}

	return asset, content, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("video not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
