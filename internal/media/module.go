package media

import (
	"context"
	"time"

	"github.com/shandysiswandi/gostream/internal/media/auth"
	"github.com/shandysiswandi/gostream/internal/media/blob"
	"github.com/shandysiswandi/gostream/internal/media/broadcast"
	"github.com/shandysiswandi/gostream/internal/media/inbound"
	"github.com/shandysiswandi/gostream/internal/media/pipeline"
	"github.com/shandysiswandi/gostream/internal/media/store"
	"github.com/shandysiswandi/gostream/internal/media/usecase"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gostream/internal/pkg/pkguid"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
}

func New(dep Dependency) (func(context.Context) error, error) {
	storage := store.NewInMemoryStore()

	content, err := blob.NewStore(dep.Config.GetString("modules.media.storage_dir"))
	if err != nil {
		return nil, err
	}

	observerIDs, err := pkguid.NewSnowflake()
	if err != nil {
		return nil, err
	}

	hub := broadcast.New(observerIDs, int(dep.Config.GetInt("modules.media.subscriber_buffer")))

	pl := pipeline.New(storage, content, pipeline.HashClassifier{}, hub, pipeline.Config{
		Workers:     int(dep.Config.GetInt("modules.media.workers")),
		QueueSize:   int(dep.Config.GetInt("modules.media.queue_size")),
		MaxRetries:  int(dep.Config.GetInt("modules.media.max_retries")),
		BaseBackoff: time.Duration(dep.Config.GetInt("modules.media.base_backoff_ms")) * time.Millisecond,
	})
	pl.Start()

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}

	uc := usecase.New(usecase.Dependency{
		Store:    storage,
		Content:  content,
		Pipeline: pl,
		ID:       dep.ID,
		RootCtx:  dep.Context,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.Dependency{
		Auth:    auth.NewStaticTokens(dep.Config.GetMap("modules.media.tokens")),
		Hub:     hub,
		Runner:  dep.Goroutine,
		RootCtx: dep.Context,
	})

	closer := func(ctx context.Context) error {
		err := pl.Stop(ctx)
		_ = hub.Close()
		return err
	}

	return closer, nil
}
