package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roadvision/stopsign-detector/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0xAA, 0xBB}

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func detectionServer(t *testing.T, detections []domain.Detection) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/infer", r.URL.Path)

		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		require.NoError(t, err)
		assert.Equal(t, testImage, decoded)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(inferResponse{Detections: detections}))
	}))
}

func TestDetectStopSign_Found(t *testing.T) {
	srv := detectionServer(t, []domain.Detection{
		{ClassID: 3, ClassName: "speed limit", Confidence: 0.91},
		{ClassID: 0, ClassName: "stop sign", Confidence: 0.87},
	})
	defer srv.Close()

	detected, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.25)
	require.NoError(t, err)
	assert.True(t, detected)
}

func TestDetectStopSign_NoStopSignClass(t *testing.T) {
	srv := detectionServer(t, []domain.Detection{
		{ClassID: 3, ClassName: "speed limit", Confidence: 0.95},
		{ClassID: 7, ClassName: "yield", Confidence: 0.80},
	})
	defer srv.Close()

	detected, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.25)
	require.NoError(t, err)
	assert.False(t, detected)
}

func TestDetectStopSign_NoDetections(t *testing.T) {
	srv := detectionServer(t, nil)
	defer srv.Close()

	detected, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.25)
	require.NoError(t, err)
	assert.False(t, detected)
}

func TestDetectStopSign_BelowThresholdIgnored(t *testing.T) {
	srv := detectionServer(t, []domain.Detection{
		{ClassID: 0, ClassName: "stop sign", Confidence: 0.30},
	})
	defer srv.Close()

	detected, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.5)
	require.NoError(t, err)
	assert.False(t, detected)
}

func TestDetectStopSign_EngineErrorIsDetectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDetectionFailed))
	assert.Contains(t, err.Error(), "500")
}

func TestDetectStopSign_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not-json{{{"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDetectionFailed))
}

func TestDetectStopSign_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).DetectStopSign(context.Background(), testImage, 0.25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDetectionFailed))
}
