package generations

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/casestudio/internal/generator"
	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/internal/stream"
	"github.com/JaimeStill/casestudio/pkg/pagination"
	"github.com/JaimeStill/casestudio/pkg/query"
	"github.com/JaimeStill/casestudio/pkg/repository"
	"github.com/JaimeStill/casestudio/pkg/storage"
	"github.com/JaimeStill/casestudio/pkg/telemetry"
)

const recordTimeout = 10 * time.Second

// Telemetry event names.
const (
	EventRequested = "generation.requested"
	EventCompleted = "generation.completed"
	EventFailed    = "generation.failed"
)

// Options configures the generation system.
type Options struct {
	Stream     stream.Options
	Pagination pagination.Config
}

type repo struct {
	db      *sql.DB
	storage storage.System
	gen     Generator
	sink    telemetry.Sink
	logger  *slog.Logger
	opts    Options
}

// New creates a generation repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	gen Generator,
	sink telemetry.Sink,
	logger *slog.Logger,
	opts Options,
) System {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &repo{
		db:      db,
		storage: store,
		gen:     gen,
		sink:    sink,
		logger:  logger.With("system", "generations"),
		opts:    opts,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.opts.Pagination)
}

func (r *repo) Generate(ctx context.Context, subject string, p schema.Prompt) (schema.Response, error) {
	started := time.Now()
	r.track(EventRequested, p.Type(), map[string]any{"mode": ModeOnce})

	resp, err := r.gen.GenerateOnce(ctx, p)

	out := Outcome{
		Subject:   subject,
		Mode:      ModeOnce,
		Prompt:    p,
		Result:    resp,
		Status:    StatusComplete,
		StartedAt: started,
	}
	if err != nil {
		out.Status = StatusError
		out.Message = err.Error()
		if errors.Is(err, generator.ErrAborted) {
			out.Status = StatusAborted
		}
	}

	r.record(ctx, out)
	return resp, err
}

func (r *repo) Stream(ctx context.Context, subject string, p schema.Prompt, emit stream.Emitter) error {
	started := time.Now()
	r.track(EventRequested, p.Type(), map[string]any{"mode": ModeStream})

	out := Outcome{
		Subject:   subject,
		Mode:      ModeStream,
		Prompt:    p,
		StartedAt: started,
	}

	sess := stream.NewSession(r.gen, p, r.opts.Stream, r.logger)
	err := sess.Run(ctx, func(ev schema.StreamEvent) error {
		switch ev.Status {
		case schema.StatusComplete:
			out.Result = ev.Result
		case schema.StatusError:
			out.Message = ev.Message
		}
		return emit(ev)
	})

	switch sess.State() {
	case stream.StateDone:
		out.Status = StatusComplete
	case stream.StateAborted:
		out.Status = StatusAborted
	default:
		out.Status = StatusError
	}
	if err != nil && out.Message == "" {
		out.Message = err.Error()
	}

	r.record(ctx, out)
	return err
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Generation], error) {
	page.Normalize(r.opts.Pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Error", "StorageKey")

	filters.Apply(qb)

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanGeneration)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Generation, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	g, err := repository.QueryOne(ctx, r.db, q, args, scanGeneration)
	if err != nil {
		return nil, dbErrors.Map(err)
	}
	return &g, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	g, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM generations WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return dbErrors.Map(err)
	}

	if g.StorageKey != nil {
		if delErr := r.storage.Delete(ctx, *g.StorageKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			r.logger.Warn(
				"blob delete failed after DB delete",
				"key", *g.StorageKey,
				"error", delErr,
			)
		}
	}

	r.logger.Info("generation deleted", "id", id)
	return nil
}

func (r *repo) Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	g, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.StorageKey == nil {
		return nil, ErrNotArchived
	}

	body, err := r.storage.Download(ctx, *g.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotArchived, err)
		}
		return nil, err
	}
	return body, nil
}

func (r *repo) Export(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error) {
	g, err := r.Find(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return Render(g, format)
}

// record stores the outcome and archives a completed result. It runs on a
// context detached from the request so a disconnected caller is still
// recorded. Failures are logged and never reach the caller.
func (r *repo) record(ctx context.Context, o Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	r.trackOutcome(o)

	id := uuid.New()
	t := o.Prompt.Type()

	prompt, err := json.Marshal(o.Prompt)
	if err != nil {
		r.logger.Error("encode prompt for record", "error", err)
		return
	}

	var (
		result []byte
		key    *string
		errMsg *string
	)

	if o.Result != nil {
		if result, err = json.Marshal(o.Result); err != nil {
			r.logger.Error("encode result for record", "error", err)
			return
		}

		k := archiveKey(id)
		if err := r.storage.Upload(ctx, k, bytes.NewReader(result), "application/json"); err != nil {
			r.logger.Warn("result archive failed", "id", id, "error", err)
		} else {
			key = &k
		}
	}

	if o.Message != "" {
		errMsg = &o.Message
	}

	q := `
		INSERT INTO generations(id, subject, type, mode, prompt, status, result, error, storage_key, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	args := []any{id, o.Subject, t, o.Mode, prompt, o.Status, result, errMsg, key, o.StartedAt, time.Now()}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, args...)
	})

	if err != nil {
		r.logger.Error("record generation failed", "id", id, "error", err)
		if key != nil {
			if delErr := r.storage.Delete(ctx, *key); delErr != nil {
				r.logger.Warn("compensating blob delete failed", "key", *key, "error", delErr)
			}
		}
		return
	}

	r.logger.Info(
		"generation recorded",
		"id", id,
		"type", t,
		"mode", o.Mode,
		"status", o.Status,
		"duration", time.Since(o.StartedAt),
	)
}

func (r *repo) trackOutcome(o Outcome) {
	meta := map[string]any{
		"mode":        o.Mode,
		"duration_ms": time.Since(o.StartedAt).Milliseconds(),
	}

	if o.Status == StatusComplete && o.Result != nil {
		maps.Copy(meta, schema.Metadata(o.Result))
		r.track(EventCompleted, o.Prompt.Type(), meta)
		return
	}

	meta["status"] = o.Status
	r.track(EventFailed, o.Prompt.Type(), meta)
}

func (r *repo) track(name string, t schema.PromptType, meta map[string]any) {
	r.sink.Track(telemetry.Event{
		Name:     name,
		Key:      string(t),
		Metadata: meta,
		Time:     time.Now(),
	})
}

func archiveKey(id uuid.UUID) string {
	return fmt.Sprintf("generations/%s.json", id)
}
