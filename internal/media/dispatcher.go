package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/live"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/observ"
	"github.com/lalith-99/storyverse/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest  = errors.New("invalid media request")
	ErrSegmentNotFound = errors.New("segment not found")
)

// RetryPolicy bounds how hard the dispatcher tries a single job.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy is used for any zero field of the policy passed to
// NewDispatcher.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second, MaxDelay: 30 * time.Second}

// Dispatcher runs media jobs in the background. Each job enhances the
// prompt, calls the generator with retries, stores the URL on the segment
// and announces the outcome on the segment's thread.
type Dispatcher struct {
	ctx       context.Context
	generator Generator
	segments  repository.SegmentRepository
	events    live.Publisher
	logger    *zap.Logger
	policy    RetryPolicy
	wg        sync.WaitGroup
}

// NewDispatcher returns a dispatcher whose jobs run under ctx: cancelling
// it aborts in-flight generations.
func NewDispatcher(
	ctx context.Context,
	generator Generator,
	segments repository.SegmentRepository,
	events live.Publisher,
	logger *zap.Logger,
	policy RetryPolicy,
) *Dispatcher {
	if policy.Attempts == 0 {
		policy.Attempts = DefaultRetryPolicy.Attempts
	}
	if policy.Delay <= 0 {
		policy.Delay = DefaultRetryPolicy.Delay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if events == nil {
		events = live.Discard
	}
	return &Dispatcher{
		ctx:       ctx,
		generator: generator,
		segments:  segments,
		events:    events,
		logger:    logger,
		policy:    policy,
	}
}

// Submit validates req and starts generating in the background. An empty
// prompt falls back to the segment's own text.
func (d *Dispatcher) Submit(ctx context.Context, req models.MediaRequest) (models.MediaRequest, error) {
	req, err := d.prepare(ctx, req)
	if err != nil {
		return req, err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.Process(d.ctx, req); err != nil {
			d.logger.Warn("media job failed",
				zap.String("segment_id", req.SegmentID.String()),
				zap.String("type", string(req.Type)),
				zap.Error(err),
			)
		}
	}()
	return req, nil
}

func (d *Dispatcher) prepare(ctx context.Context, req models.MediaRequest) (models.MediaRequest, error) {
	if !req.Type.Valid() {
		return req, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, req.Type)
	}
	if req.Duration < 0 {
		return req, fmt.Errorf("%w: negative duration", ErrInvalidRequest)
	}

	seg, err := d.segments.GetByID(ctx, req.SegmentID)
	if err != nil {
		return req, fmt.Errorf("get segment: %w", err)
	}
	if seg == nil {
		return req, ErrSegmentNotFound
	}
	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = seg.Content
	}
	return req, nil
}

// Process runs one job to completion and returns the updated segment.
func (d *Dispatcher) Process(ctx context.Context, req models.MediaRequest) (*models.Segment, error) {
	start := time.Now()
	kind := string(req.Type)

	job := req
	job.Prompt = EnhancePrompt(req.Prompt, req.Type, req.Style)

	var url string
	err := retry.Do(
		func() error {
			var err error
			url, err = d.generator.Generate(ctx, job)
			return err
		},
		retry.Attempts(d.policy.Attempts),
		retry.Delay(d.policy.Delay),
		retry.MaxDelay(d.policy.MaxDelay),
		retry.MaxJitter(d.policy.Delay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Info("retrying media generation",
				zap.String("segment_id", req.SegmentID.String()),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrRejected)
		}),
	)
	observ.MediaGenerationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		observ.MediaGenerations.WithLabelValues(kind, "failed").Inc()
		d.announceFailure(ctx, req)
		return nil, fmt.Errorf("%w: after retries: %w", ErrGenerationFailed, err)
	}

	seg, err := d.segments.Update(ctx, req.SegmentID, models.SegmentPatch{
		MediaURL:  &url,
		MediaType: &req.Type,
	})
	if err != nil {
		observ.MediaGenerations.WithLabelValues(kind, "failed").Inc()
		return nil, fmt.Errorf("attach media: %w", err)
	}
	if seg == nil {
		observ.MediaGenerations.WithLabelValues(kind, "failed").Inc()
		return nil, ErrSegmentNotFound
	}

	observ.MediaGenerations.WithLabelValues(kind, "ok").Inc()
	d.events.Publish(live.Event{Type: live.EventMediaReady, ThreadID: seg.ThreadID, Payload: seg})
	return seg, nil
}

func (d *Dispatcher) announceFailure(ctx context.Context, req models.MediaRequest) {
	// Only the segment knows its thread.
	seg, err := d.segments.GetByID(context.WithoutCancel(ctx), req.SegmentID)
	if err != nil || seg == nil {
		return
	}
	d.events.Publish(live.Event{
		Type:     live.EventMediaFailed,
		ThreadID: seg.ThreadID,
		Payload: struct {
			SegmentID uuid.UUID        `json:"segment_id"`
			Type      models.MediaType `json:"type"`
		}{req.SegmentID, req.Type},
	})
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
