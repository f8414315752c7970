package voiceAnalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/superfeelapi/goEmotionFusion/foundation/retry"
	"go.uber.org/zap"
)

const (
	apiTimeout = 10
)

type Client struct {
	apiEndpoint string
	apiKey      string
	http        *http.Client
	retry       retry.Config
	logger      *zap.SugaredLogger
}

func New(apiEndpoint, apiKey string, retryConfig retry.Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		apiEndpoint: apiEndpoint,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: apiTimeout * time.Second},
		retry:       retryConfig,
		logger:      logger,
	}
}

// VoiceEmotion uploads the audio file and returns the analysis. Network
// errors and 5xx responses are retried, other failures are not.
func (c *Client) VoiceEmotion(ctx context.Context, audioPath string) (Result, error) {
	return retry.Do(ctx, c.retry, "voiceAnalysis", c.logger.Infof, func(int) (Result, error) {
		return c.voiceEmotion(ctx, audioPath)
	})
}

func (c *Client) voiceEmotion(ctx context.Context, audioPath string) (Result, error) {
	payload := bytes.Buffer{}
	writer := multipart.NewWriter(&payload)

	file, err := os.Open(audioPath)
	if err != nil {
		return Result{}, &retry.Permanent{Err: err}
	}
	defer file.Close()

	part, err := writer.CreateFormFile("voice", filepath.Base(audioPath))
	if err != nil {
		return Result{}, &retry.Permanent{Err: err}
	}

	if _, err = io.Copy(part, file); err != nil {
		return Result{}, &retry.Permanent{Err: err}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiEndpoint, &payload)
	if err != nil {
		return Result{}, &retry.Permanent{Err: err}
	}
	req.Header.Add("api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{}, fmt.Errorf("internal server error %d: %s", resp.StatusCode, string(body))
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, &retry.Permanent{Err: errors.New(string(body))}
	}

	var r Result
	if err := json.Unmarshal(body, &r); err != nil {
		return Result{}, &retry.Permanent{Err: err}
	}

	if r.Error.Message != "" {
		return Result{}, &retry.Permanent{Err: errors.New(r.Error.Message)}
	}

	return r, nil
}
