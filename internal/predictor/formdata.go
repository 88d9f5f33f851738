package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cvninja/cv-ninja/internal/annotation"
	"github.com/cvninja/cv-ninja/internal/tiling"
)

const (
	requestTimeout = 30 * time.Second
	maxRetryCount  = 3
	retryDelay     = 100 * time.Millisecond
)

func newRestyClient(log *zap.Logger) *resty.Client {
	c := resty.New().
		SetTimeout(requestTimeout).
		SetRetryCount(maxRetryCount).
		SetRetryWaitTime(retryDelay)
	if log != nil {
		c.SetLogger(log.Sugar())
	}
	return c
}

// FormDataClient sends images to a prediction API as multipart/form-data.
// This is the upload style used by REST APIs that accept a file plus extra
// form fields (model name, confidence threshold, and so on).
type FormDataClient struct {
	url    string
	auth   Auth
	fields map[string]string
	client *resty.Client
	log    *zap.Logger

	dataset datasetID
}

// NewFormDataClient returns a form-data predictor client for the given API
// URL. auth may be nil for unauthenticated endpoints; fields are sent with
// every request and may be nil.
func NewFormDataClient(url string, auth Auth, fields map[string]string, log *zap.Logger) *FormDataClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &FormDataClient{
		url:    url,
		auth:   auth,
		fields: fields,
		client: newRestyClient(log),
		log:    log,
	}
}

// Predict uploads one image region and returns its detections in
// region-local coordinates. It satisfies tiling.PredictFunc.
func (c *FormDataClient) Predict(ctx context.Context, region []byte, tile tiling.Tile) ([]annotation.Detection, error) {
	headers, err := authHeaders(ctx, c.auth)
	if err != nil {
		return nil, err
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetFileReader("file", "image.jpg", bytes.NewReader(region))
	if len(c.fields) > 0 {
		req.SetFormData(c.fields)
	}

	resp, err := req.Post(c.url)
	if err != nil {
		return nil, errors.Wrap(err, "prediction request failed")
	}
	if resp.IsError() {
		return nil, errors.Errorf("prediction request failed: %s", resp.Status())
	}

	var parsed apiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to parse prediction response")
	}
	c.dataset.record(parsed.DatasetID)

	c.log.Debug("prediction response",
		zap.Int("tile", tile.Index),
		zap.Int("detections", len(parsed.Result)),
	)
	return parsed.detections(), nil
}

// DatasetID returns the dataset identifier from the first API response that
// carried one, or "" if none did.
func (c *FormDataClient) DatasetID() string {
	return c.dataset.get()
}

func authHeaders(ctx context.Context, auth Auth) (map[string]string, error) {
	if auth == nil {
		return nil, nil
	}
	return auth.Headers(ctx)
}
