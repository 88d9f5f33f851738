package predictor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvninja/cv-ninja/internal/tiling"
)

const sampleResponse = `{
	"dataset_id": "ds-42",
	"result": [
		{"RegisterMatrix": [[1, 0], [0, 1]], "Score": 0, "label": ""},
		{"Box": {"X": 10, "Y": 20, "Width": 30, "Height": 40, "Angle": 12.5}, "Score": 0.91, "label": "scratch"},
		{"Box": {"X": 5, "Y": 6, "Width": 7, "Height": 8, "Angle": 0}, "Score": 0.42, "label": ""}
	],
	"image_width": 640,
	"image_height": 480
}`

func TestFormDataClient_Predict(t *testing.T) {
	var gotAuth string
	var gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotField = r.FormValue("model")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewFormDataClient(srv.URL, &APIKeyAuth{Key: "secret"}, map[string]string{"model": "v3"}, nil)
	dets, err := client.Predict(context.Background(), []byte("fake-jpeg"), tiling.Tile{Index: 0})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "v3", gotField)
	assert.Equal(t, "ds-42", client.DatasetID())

	// The RegisterMatrix entry carries no box and is skipped.
	require.Len(t, dets, 2)
	assert.Equal(t, "scratch", dets[0].Category)
	assert.Equal(t, 0.91, dets[0].Score)
	assert.Equal(t, 12.5, dets[0].Box.Angle)
	assert.Equal(t, 30.0, dets[0].Box.Width)
	// Empty labels fall back to a placeholder category.
	assert.Equal(t, "unknown", dets[1].Category)
}

func TestFormDataClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewFormDataClient(srv.URL, nil, nil, nil)
	_, err := client.Predict(context.Background(), []byte("x"), tiling.Tile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFormDataClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewFormDataClient(srv.URL, nil, nil, nil)
	_, err := client.Predict(context.Background(), []byte("x"), tiling.Tile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestBinaryClient_Predict(t *testing.T) {
	var gotPath, gotQuery, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("threshold")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewBinaryClient(srv.URL+"/", "detect", nil, map[string]string{"threshold": "0.3"}, nil)
	dets, err := client.Predict(context.Background(), []byte("raw-bytes"), tiling.Tile{Index: 1})
	require.NoError(t, err)

	assert.Equal(t, "/detect", gotPath)
	assert.Equal(t, "0.3", gotQuery)
	assert.Equal(t, "application/octet-stream", gotContentType)
	assert.Equal(t, []byte("raw-bytes"), gotBody)
	assert.Len(t, dets, 2)
	assert.Equal(t, "ds-42", client.DatasetID())
}

func TestBinaryClient_DefaultEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"result": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewBinaryClient(srv.URL, "", nil, nil, nil)
	_, err := client.Predict(context.Background(), []byte("x"), tiling.Tile{})
	require.NoError(t, err)
	assert.Equal(t, "/upload", gotPath)
}

func TestDatasetID_FirstSeenWins(t *testing.T) {
	var d datasetID
	d.record("")
	assert.Equal(t, "", d.get())
	d.record("first")
	d.record("second")
	assert.Equal(t, "first", d.get())
}

func TestAPIKeyAuth(t *testing.T) {
	auth := &APIKeyAuth{Key: "k123"}
	headers, err := auth.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer k123"}, headers)
}

func TestIAMTokenAuth(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		identity := payload["auth"].(map[string]any)["identity"].(map[string]any)
		user := identity["password"].(map[string]any)["user"].(map[string]any)
		assert.Equal(t, "alice", user["name"])
		assert.Equal(t, "s3cret", user["password"])
		assert.Equal(t, "dom", user["domain"].(map[string]any)["name"])

		w.Header().Set("X-Subject-Token", "tok-abc")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	auth := NewIAMTokenAuth(IAMOptions{
		URL:      srv.URL,
		Username: "alice",
		Password: "s3cret",
		Domain:   "dom",
		Project:  "proj",
	})

	headers, err := auth.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Auth-Token": "tok-abc"}, headers)

	// Second call is served from the cache.
	_, err = auth.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	// Clearing the cache forces a fresh exchange.
	auth.ClearCache()
	_, err = auth.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestIAMTokenAuth_MissingTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	auth := NewIAMTokenAuth(IAMOptions{URL: srv.URL, Username: "u", Password: "p"})
	_, err := auth.Headers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X-Subject-Token")
}
