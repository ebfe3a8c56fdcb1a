package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/config"
)

// GenerationGateway is the boundary to the remote text and image generation
// services.
type GenerationGateway interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// RemoteGateway talks to an OpenAI-compatible router for text and a
// task-based REST API for images.
type RemoteGateway struct {
	textClient *openai.Client
	textModel  string

	imageBaseURL string
	imageAPIKey  string
	pollInterval time.Duration
	client       *http.Client

	logger *zap.Logger
}

func NewRemoteGateway(cfg *config.GenerationConfig, logger *zap.Logger) *RemoteGateway {
	clientConfig := openai.DefaultConfig(cfg.TextAPIKey)
	if cfg.TextBaseURL != "" {
		clientConfig.BaseURL = cfg.TextBaseURL
	}

	pollInterval, err := time.ParseDuration(cfg.ImagePollInterval)
	if err != nil || pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &RemoteGateway{
		textClient:   openai.NewClientWithConfig(clientConfig),
		textModel:    cfg.TextModel,
		imageBaseURL: cfg.ImageBaseURL,
		imageAPIKey:  cfg.ImageAPIKey,
		pollInterval: pollInterval,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// GenerateText sends a single chat completion request and returns the raw
// model output.
func (g *RemoteGateway) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.textClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.textModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("text generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("text generation returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

type imageTaskResponse struct {
	Data struct {
		TaskID    string   `json:"task_id"`
		Status    string   `json:"status"`
		Generated []string `json:"generated"`
	} `json:"data"`
}

// GenerateImage submits a generation task, polls until the remote task
// reaches a terminal status, and downloads the resulting image. A transient
// read timeout on a poll is retried in place; the loop is bounded only by
// the remote task's own lifetime.
func (g *RemoteGateway) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	taskID, err := g.submitImageTask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	imageURL, err := g.awaitImageTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return g.downloadImage(ctx, imageURL)
}

func (g *RemoteGateway) submitImageTask(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"prompt":       prompt,
		"resolution":   "1k",
		"aspect_ratio": "square_1_1",
		"filter_nsfw":  true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal image task payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.imageBaseURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create image task request: %w", err)
	}
	req.Header.Set("x-api-key", g.imageAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit image task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("image API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var task imageTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return "", fmt.Errorf("failed to decode image task response: %w", err)
	}
	if task.Data.TaskID == "" {
		return "", fmt.Errorf("image API returned no task id")
	}

	return task.Data.TaskID, nil
}

func (g *RemoteGateway) awaitImageTask(ctx context.Context, taskID string) (string, error) {
	statusURL := fmt.Sprintf("%s/%s", g.imageBaseURL, taskID)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create image status request: %w", err)
		}
		req.Header.Set("x-api-key", g.imageAPIKey)

		resp, err := g.client.Do(req)
		if err != nil {
			// A transient read timeout only delays the next poll.
			if isTimeout(err) {
				g.logger.Warn("Image status poll timed out, retrying",
					zap.String("task_id", taskID))
				if err := sleepCtx(ctx, g.pollInterval); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("failed to poll image task: %w", err)
		}

		var task imageTaskResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&task)
		resp.Body.Close()
		if decodeErr != nil {
			return "", fmt.Errorf("failed to decode image status response: %w", decodeErr)
		}

		switch task.Data.Status {
		case "COMPLETED":
			if len(task.Data.Generated) == 0 {
				return "", fmt.Errorf("image task %s completed without output", taskID)
			}
			return task.Data.Generated[0], nil
		case "FAILED":
			return "", fmt.Errorf("image task %s failed remotely", taskID)
		default:
			if err := sleepCtx(ctx, g.pollInterval); err != nil {
				return "", err
			}
		}
	}
}

func (g *RemoteGateway) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image download request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	return data, nil
}

func isTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
