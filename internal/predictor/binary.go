package predictor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cvninja/cv-ninja/internal/annotation"
	"github.com/cvninja/cv-ninja/internal/tiling"
)

// DefaultBinaryEndpoint is the upload path used when none is configured.
const DefaultBinaryEndpoint = "/upload"

// BinaryClient sends images to a prediction API as a raw octet-stream body,
// with parameters in the URL query string. This style is used by simpler
// services that process binary uploads directly.
type BinaryClient struct {
	url      string
	endpoint string
	auth     Auth
	params   map[string]string
	client   *resty.Client
	log      *zap.Logger

	dataset datasetID
}

// NewBinaryClient returns a binary-upload predictor client. url is the API
// base; endpoint is the upload path (DefaultBinaryEndpoint when empty).
// auth and params may be nil.
func NewBinaryClient(url, endpoint string, auth Auth, params map[string]string, log *zap.Logger) *BinaryClient {
	if endpoint == "" {
		endpoint = DefaultBinaryEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BinaryClient{
		url:      strings.TrimRight(url, "/"),
		endpoint: "/" + strings.TrimLeft(endpoint, "/"),
		auth:     auth,
		params:   params,
		client:   newRestyClient(log),
		log:      log,
	}
}

// Predict uploads one image region and returns its detections in
// region-local coordinates. It satisfies tiling.PredictFunc.
func (c *BinaryClient) Predict(ctx context.Context, region []byte, tile tiling.Tile) ([]annotation.Detection, error) {
	headers, err := authHeaders(ctx, c.auth)
	if err != nil {
		return nil, err
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeaders(headers).
		SetBody(region)
	if len(c.params) > 0 {
		req.SetQueryParams(c.params)
	}

	resp, err := req.Post(c.url + c.endpoint)
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
func (c *BinaryClient) DatasetID() string {
	return c.dataset.get()
}
