package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"realty-backend/internal/infrastructure/revalidate"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	TypeRevalidatePath = "revalidate:path"
	QueueRevalidate    = "revalidate"
)

type revalidatePayload struct {
	Path string `json:"path"`
}

// NewRevalidateTask builds the task that invalidates one public page path.
func NewRevalidateTask(path string) (*asynq.Task, error) {
	payload, err := json.Marshal(revalidatePayload{Path: path})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRevalidatePath, payload), nil
}

// TaskID is the asynq task id for path. While a task with this id is pending,
// further invalidations of the same path are folded into it.
func TaskID(path string) string {
	return TypeRevalidatePath + ":" + path
}

func followUpTaskID(path string) string {
	return TaskID(path) + ":next"
}

// TaskEnqueuer is the part of *asynq.Client used here.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the part of *asynq.Inspector used here.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// Enqueuer is an Invalidator that defers the work to the revalidation worker.
// Tasks run after Debounce, so a burst of status changes on one listing costs a
// single invalidation.
type Enqueuer struct {
	Client    TaskEnqueuer
	Inspector TaskInspector
	Debounce  time.Duration
}

// InvalidatePath queues a revalidation of path. It folds into a task for path
// that has not run yet. Finished tasks still hold their id, so an archived or
// completed one is deleted and replaced; a running one gets a follow-up task.
func (e *Enqueuer) InvalidatePath(ctx context.Context, path string) error {
	task, err := NewRevalidateTask(path)
	if err != nil {
		return err
	}
	for _, id := range []string{TaskID(path), followUpTaskID(path)} {
		done, err := e.enqueueAs(ctx, task, id, path)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("revalidation of %s: task and follow-up are both running: %w", path, asynq.ErrTaskIDConflict)
}

// enqueueAs reports done once a task that has yet to run covers path. It
// returns false without error when id belongs to a running task.
func (e *Enqueuer) enqueueAs(ctx context.Context, task *asynq.Task, id, path string) (bool, error) {
	err := e.enqueue(ctx, task, id)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, asynq.ErrTaskIDConflict) || e.Inspector == nil {
		return false, err
	}

	info, err := e.Inspector.GetTaskInfo(QueueRevalidate, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return true, e.enqueue(ctx, task, id)
	}
	if err != nil {
		return false, err
	}
	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry:
		log.Debug().Str("path", path).Str("state", info.State.String()).Msg("revalidation already queued")
		return true, nil
	case asynq.TaskStateActive:
		return false, nil
	}

	log.Info().Str("path", path).Str("state", info.State.String()).Msg("replacing finished revalidation task")
	if err := e.Inspector.DeleteTask(QueueRevalidate, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, err
	}
	return true, e.enqueue(ctx, task, id)
}

func (e *Enqueuer) enqueue(ctx context.Context, task *asynq.Task, id string) error {
	_, err := e.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueueRevalidate),
		asynq.TaskID(id),
		asynq.ProcessIn(e.Debounce),
		asynq.MaxRetry(5),
	)
	return err
}

// Processor runs revalidation tasks against the synchronous invalidators.
type Processor struct {
	Invalidator revalidate.Invalidator
}

func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload revalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal revalidate task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Path == "" {
		return fmt.Errorf("revalidate task without path: %w", asynq.SkipRetry)
	}
	if err := p.Invalidator.InvalidatePath(ctx, payload.Path); err != nil {
		log.Warn().Err(err).Str("path", payload.Path).Msg("revalidation failed, will retry")
		return err
	}
	log.Info().Str("path", payload.Path).Msg("page revalidated")
	return nil
}

// NewServeMux routes revalidation tasks to p.
func NewServeMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeRevalidatePath, p)
	return mux
}

// NewServer builds the asynq worker server for the revalidation queue.
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueRevalidate: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("type", task.Type()).Bytes("payload", task.Payload()).Msg("task failed")
		}),
	}), nil
}

// NewClient builds the asynq client used by Enqueuer.
func NewClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewInspector builds the asynq inspector Enqueuer uses to resolve task id
// conflicts.
func NewInspector(redisURL string) (*asynq.Inspector, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewInspector(opt), nil
}
