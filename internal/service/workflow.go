package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/models"
	"github.com/codevault-labs/postgen/pkg/util"
)

// contextSeparator joins extracted source texts into one context string.
const contextSeparator = "\n\n---\n\n"

// Extractor turns one data source into plain text context. An empty result
// drops the source from context without failing the run.
type Extractor interface {
	Extract(ctx context.Context, source models.DataSource) string
}

// generationResponse is the expected shape of the text gateway's output:
// numbered variations plus a flat list of image prompts describing the
// overall post.
type generationResponse struct {
	Variations []struct {
		VariationNumber int    `json:"variation_number"`
		TextContent     string `json:"text_content"`
	} `json:"variations"`
	ImagePrompts []string `json:"image_prompts"`
}

// WorkflowEngine drives a post through its generation lifecycle: reset,
// context extraction, text generation, media generation, finalization. One
// invocation performs exactly one pass; re-invoking resets prior output
// first, so a run never duplicates rows.
type WorkflowEngine struct {
	store     *PostStore
	extractor Extractor
	gateway   GenerationGateway
	storage   ObjectStorage
	logger    *zap.Logger
}

func NewWorkflowEngine(store *PostStore, extractor Extractor, gateway GenerationGateway, storage ObjectStorage, logger *zap.Logger) *WorkflowEngine {
	return &WorkflowEngine{
		store:     store,
		extractor: extractor,
		gateway:   gateway,
		storage:   storage,
		logger:    logger,
	}
}

// GeneratePost runs the full workflow for one post, reporting progress
// through sink. Failures inside the run transition the post to failed with
// the error message recorded and are returned to the caller; the engine
// never leaves the post in a non-terminal state once it has started.
func (e *WorkflowEngine) GeneratePost(ctx context.Context, postID string, sink ProgressSink) error {
	if sink == nil {
		sink = NopSink
	}

	post, err := e.store.GetPost(postID, false)
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := e.run(ctx, post, sink)
	e.store.RecordWorkflowRun(postID, runErr == nil, runErr, time.Since(start))

	if runErr != nil {
		e.logger.Error("Post generation failed",
			zap.String("post_id", postID),
			zap.Error(runErr))
		e.failPost(postID, runErr, sink)
		return runErr
	}

	e.logger.Info("Post generation completed",
		zap.String("post_id", postID),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (e *WorkflowEngine) run(ctx context.Context, post *models.Post, sink ProgressSink) error {
	// Reset makes re-runs idempotent: no stale variations survive.
	if err := e.reset(post.ID); err != nil {
		return err
	}

	step := "Extracting context from data sources"
	if err := e.store.UpdatePostStatus(post.ID, models.PostStatusProcessingContext, &step, nil); err != nil {
		return err
	}

	contextText, err := e.extractContext(ctx, post.ID, sink)
	if err != nil {
		return err
	}

	step = "Generating text variations"
	if err := e.store.UpdatePostStatus(post.ID, models.PostStatusGeneratingText, &step, nil); err != nil {
		return err
	}
	sink.Send(StepGeneratingText, "Generating text variations...")

	parsed, err := e.generateText(ctx, post, contextText, sink)
	if err != nil {
		return err
	}

	if post.MediaContentNeeded == models.MediaTypeImage || post.MediaContentNeeded == models.MediaTypeBoth {
		step = "Generating images"
		if err := e.store.UpdatePostStatus(post.ID, models.PostStatusGeneratingMedia, &step, nil); err != nil {
			return err
		}
		sink.Send(StepGeneratingMedia, "Generating images...")

		if err := e.generateImages(ctx, post, parsed, sink); err != nil {
			return err
		}
	}

	step = "Post generation completed"
	if err := e.store.UpdatePostStatus(post.ID, models.PostStatusCompleted, &step, nil); err != nil {
		return err
	}
	sink.Send(StepCompleted, StepMessage(StepCompleted, nil))

	return nil
}

func (e *WorkflowEngine) reset(postID string) error {
	if err := e.store.ClearProgress(postID); err != nil {
		return err
	}
	if err := e.store.DeleteTextVariations(postID); err != nil {
		return err
	}
	if err := e.store.DeleteMediaContents(postID); err != nil {
		return err
	}
	return nil
}

// extractContext walks the post's data sources in insertion order and joins
// every non-empty extraction into one context string. Sources that yield
// nothing are dropped silently; an entirely empty context is not an error.
func (e *WorkflowEngine) extractContext(ctx context.Context, postID string, sink ProgressSink) (string, error) {
	sources, err := e.store.GetDataSources(postID)
	if err != nil {
		return "", err
	}

	var parts []string
	for i, source := range sources {
		sink.Send(StepExtractingContext, StepMessage(StepExtractingContext, map[string]string{
			"source_num":  strconv.Itoa(i + 1),
			"source_type": string(source.SourceType),
		}))

		text := e.extractor.Extract(ctx, source)
		if strings.TrimSpace(text) == "" {
			e.logger.Warn("Data source yielded no content",
				zap.String("post_id", postID),
				zap.String("source_id", source.ID))
			continue
		}

		parts = append(parts, text)

		extracted := ""
		if source.SourceType == models.DataSourceTypeLink {
			extracted = text
		}
		if err := e.store.UpdateDataSourceValidation(source.ID, true, extracted); err != nil {
			e.logger.Warn("Failed to record source validation",
				zap.String("source_id", source.ID),
				zap.Error(err))
		}
	}

	return util.JoinNonEmpty(parts, contextSeparator), nil
}

// generateText performs the single gateway text call, parses the response
// and persists each variation as it is produced. A response without a
// parseable JSON object is fatal to the run.
func (e *WorkflowEngine) generateText(ctx context.Context, post *models.Post, contextText string, sink ProgressSink) (*generationResponse, error) {
	prompt := buildGenerationPrompt(post, contextText)

	raw, err := e.gateway.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sanitized := util.SanitizeModelOutput(raw)
	objText, err := util.ExtractJSONObject(sanitized)
	if err != nil {
		return nil, fmt.Errorf("model response contained no JSON object: %w", err)
	}

	var parsed generationResponse
	if err := json.Unmarshal([]byte(objText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	for _, variation := range parsed.Variations {
		if _, err := e.store.AddTextVariation(post.ID, variation.VariationNumber, variation.TextContent, `{"prompts":[]}`); err != nil {
			return nil, err
		}
		sink.Send(StepGeneratingText, StepMessage(StepGeneratingText, map[string]string{
			"variation_num": strconv.Itoa(variation.VariationNumber),
		}))
	}

	return &parsed, nil
}

// generateImages runs the sequential image loop: one gateway call and one
// upload per image prompt, sequence numbers ascending from 1. Any generation
// or upload failure is fatal to the run.
func (e *WorkflowEngine) generateImages(ctx context.Context, post *models.Post, parsed *generationResponse, sink ProgressSink) error {
	var bodies []string
	for _, variation := range parsed.Variations {
		bodies = append(bodies, variation.TextContent)
	}
	summary := strings.Join(bodies, ", ")

	for i, imagePrompt := range parsed.ImagePrompts {
		number := i + 1
		sink.Send(StepGeneratingMedia, StepMessage(StepGeneratingMedia, map[string]string{
			"variation_num": strconv.Itoa(number),
			"prompt":        imagePrompt,
		}))

		data, err := e.gateway.GenerateImage(ctx, buildImagePrompt(summary, imagePrompt))
		if err != nil {
			return fmt.Errorf("image generation failed for prompt %d: %w", number, err)
		}

		location, err := e.storage.Upload(ctx, data, "image/png")
		if err != nil {
			return fmt.Errorf("image upload failed for prompt %d: %w", number, err)
		}

		prompt := imagePrompt
		if _, err := e.store.AddMediaContent(post.ID, models.MediaTypeImage, number, &location, &prompt); err != nil {
			return err
		}
		sink.Send(StepSavingImage, StepMessage(StepSavingImage, nil))
	}

	return nil
}

func (e *WorkflowEngine) failPost(postID string, runErr error, sink ProgressSink) {
	message := runErr.Error()
	if err := e.store.UpdatePostStatus(postID, models.PostStatusFailed, nil, &message); err != nil {
		e.logger.Error("Failed to record post failure",
			zap.String("post_id", postID),
			zap.Error(err))
	}
	sink.Send(StepError, StepMessage(StepError, map[string]string{
		"error_message": message,
	}))
}
