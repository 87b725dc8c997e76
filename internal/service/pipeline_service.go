package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicetask/internal/dto"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/tracer"
	"voicetask/pkg/extraction"
	"voicetask/pkg/voice/capture"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	SourceVoice = "voice"
	SourceTyped = "typed"
)

// User-facing notifications, one per failure class.
const (
	MsgEmptyInput   = "Please enter a message to process."
	MsgServiceError = "Failed to connect to the server. Please try again."
	MsgMalformed    = "Failed to process the response. Please try again."
	MsgSessionStart = "Could not start listening. Check microphone permission and try again."
	MsgCaptureError = "Speech recognition stopped unexpectedly. Please try again."
	MsgStoreError   = "Failed to save your tasks. Please try again."
)

// Extractor is the generative-text round-trip. *extraction.Client satisfies it.
type Extractor interface {
	Extract(ctx context.Context, text string) (string, error)
}

// PipelineError carries the notification shown to the user alongside the
// stage error that caused it.
type PipelineError struct {
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) UserMessage() string {
	return e.Message
}

// UserMessage converts any pipeline stage error to its notification string.
func UserMessage(err error) string {
	var (
		serviceErr   *extraction.ServiceError
		malformedErr *extraction.MalformedResponseError
		startErr     *capture.SessionStartError
		pipelineErr  *PipelineError
	)
	switch {
	case errors.As(err, &pipelineErr):
		return pipelineErr.Message
	case errors.Is(err, extraction.ErrEmptyInput):
		return MsgEmptyInput
	case errors.As(err, &serviceErr):
		return MsgServiceError
	case errors.As(err, &malformedErr):
		return MsgMalformed
	case errors.As(err, &startErr):
		return MsgSessionStart
	case errors.Is(err, capture.ErrEngine):
		return MsgCaptureError
	default:
		return MsgStoreError
	}
}

type IPipelineService interface {
	// Run executes extract, parse and merge strictly in sequence. A failure
	// at any stage leaves the task collection untouched and is returned as a
	// *PipelineError; the outcome is returned in both cases.
	Run(ctx context.Context, text string, source string) (*dto.PipelineOutcome, error)
}

type pipelineService struct {
	extractor        Extractor
	taskService      ITaskService
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewPipelineService(
	extractor Extractor,
	taskService ITaskService,
	publisherService IPublisherService,
	log logger.ILogger,
) IPipelineService {
	return &pipelineService{
		extractor:        extractor,
		taskService:      taskService,
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *pipelineService) Run(ctx context.Context, text string, source string) (*dto.PipelineOutcome, error) {
	runId, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	outcome := &dto.PipelineOutcome{
		RunId:  runId.String(),
		Source: source,
	}

	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.run_id", outcome.RunId),
		attribute.String("pipeline.source", source),
	)

	merged, err := s.run(ctx, text)
	if err != nil {
		pipelineErr := &PipelineError{Message: UserMessage(err), Err: err}
		outcome.Error = pipelineErr.Message
		span.RecordError(err)
		span.SetStatus(codes.Error, pipelineErr.Message)
		s.logger.Warn("Pipeline", "Run failed", map[string]interface{}{
			"run_id": outcome.RunId,
			"source": source,
			"error":  err.Error(),
		})
		s.finish(ctx, outcome)
		return outcome, pipelineErr
	}

	outcome.Message = merged.Message
	outcome.Added = merged.Added
	outcome.Tasks = merged.Tasks
	s.logger.Info("Pipeline", "Run completed", map[string]interface{}{
		"run_id": outcome.RunId,
		"source": source,
		"added":  len(merged.Added),
	})
	s.finish(ctx, outcome)
	return outcome, nil
}

func (s *pipelineService) run(ctx context.Context, text string) (*dto.MergeTasksResponse, error) {
	raw, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	result, err := extraction.Parse(raw)
	if err != nil {
		return nil, err
	}

	return s.taskService.Merge(ctx, result)
}

func (s *pipelineService) finish(ctx context.Context, outcome *dto.PipelineOutcome) {
	outcome.FinishedAt = time.Now()
	if s.publisherService == nil {
		return
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		s.logger.Error("Pipeline", "Failed to encode outcome", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisherService.Publish(ctx, TopicPipelineOutcomes, payload); err != nil {
		s.logger.Warn("Pipeline", "Failed to publish outcome", map[string]interface{}{"error": err.Error()})
	}
}
