package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"civicconnect/internal/api"
	"civicconnect/internal/blob"
	"civicconnect/internal/config"
	"civicconnect/internal/dialogue"
	"civicconnect/internal/extract"
	"civicconnect/internal/llm"
	"civicconnect/internal/queue"
	"civicconnect/internal/store"
	"civicconnect/internal/transcribe"
)

// App wires the intake engine to its collaborators. Store and Queue are nil
// when unconfigured; the request path degrades instead of failing.
type App struct {
	Config  config.Config
	Store   *store.Store
	Queue   *queue.Queue
	Blob    *blob.Store
	LLM     llm.Client
	Handler *api.Handler
	Log     *slog.Logger
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	var st *store.Store
	if cfg.Database.DSN != "" {
		opened, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, opened.DB()); err != nil {
			return nil, err
		}
		st = opened
	} else {
		log.Warn("no database configured, complaints will not be persisted")
	}

	var q *queue.Queue
	if cfg.Redis.URL != "" {
		opened, err := queue.New(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		q = opened
	}

	bl := blob.New(cfg.ObjectStore.BaseURL, cfg.ObjectStore.PublicBaseURL, log)

	gateway := llm.NewGateway(cfg.LLM.InvokeURL, cfg.LLM.APIKey, cfg.LLM.Model,
		time.Duration(cfg.LLM.TimeoutS)*time.Second, log)
	if cfg.LLM.APIKey == "" {
		log.Warn("no llm api key configured, pipelines will serve fallback drafts")
	}

	extractSvc := extract.NewService(gateway, log)
	driver := dialogue.NewDriver(gateway, log)
	handler := api.NewHandler(cfg, st, q, bl, transcribe.NewStub(), extractSvc, driver, log)

	return &App{
		Config:  cfg,
		Store:   st,
		Queue:   q,
		Blob:    bl,
		LLM:     gateway,
		Handler: handler,
		Log:     log,
	}, nil
}

func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	return err
}

// DispatchLoop drains complaint events and marks each complaint dispatched.
// It returns only when ctx is cancelled or a collaborator is missing.
func (a *App) DispatchLoop(ctx context.Context) error {
	if a.Queue == nil {
		return errors.New("missing complaint queue")
	}
	if a.Store == nil {
		return errors.New("missing complaint store")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		id, err := a.Queue.PopComplaint(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.Log.Warn("complaint event pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		rec, err := a.Store.GetComplaint(ctx, id)
		if err != nil {
			a.Log.Warn("complaint lookup failed", "id", id, "error", err)
			continue
		}
		if err := a.Store.UpdateComplaintStatus(ctx, id, "dispatched"); err != nil {
			a.Log.Warn("complaint status update failed", "id", id, "error", err)
			continue
		}
		depth, _ := a.Queue.Depth(ctx)
		a.Log.Info("complaint dispatched", "id", id, "category", rec.Category, "priority", rec.Priority, "queue_depth", depth)
	}
}

func (a *App) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.Store != nil {
			if err := a.Store.Ping(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		if a.Queue != nil {
			if err := a.Queue.Ping(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	a.Handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}
