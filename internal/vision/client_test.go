package vision

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drishti-ai/drishti/internal/scene"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeV32ParsesObjectsTagsAndText(t *testing.T) {
	var (
		got     *http.Request
		gotBody []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)

		_, _ = io.WriteString(w, `{
  "objects": [{"object": "car", "confidence": 0.91, "rectangle": {"x": 1, "y": 2, "w": 30, "h": 40}}],
  "tags": [{"name": "traffic", "confidence": 0.8}, {"name": "street", "confidence": 0.7}],
  "text": {"lines": [{"text": "STOP"}]}
}`)
	}))
	defer server.Close()

	client := New(Options{Endpoint: server.URL + "/", Key: "secret", API: APIv32, Language: "en"})
	ann, err := client.Analyze(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), gotBody)
	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "/vision/v3.2/analyze", got.URL.Path)
	require.Equal(t, "Objects,Tags,Description", got.URL.Query().Get("visualFeatures"))
	require.Equal(t, "en", got.URL.Query().Get("language"))
	require.Equal(t, "secret", got.Header.Get("Ocp-Apim-Subscription-Key"))
	require.Equal(t, "application/octet-stream", got.Header.Get("Content-Type"))

	require.Equal(t, []scene.DetectedObject{{
		Label:      "car",
		Confidence: 0.91,
		Box:        &scene.BoundingBox{X: 1, Y: 2, W: 30, H: 40},
	}}, ann.Objects)
	require.Equal(t, []string{"traffic", "street"}, ann.TagLabels())
	require.Equal(t, []string{"STOP"}, ann.TextContents())
}

func TestAnalyzeV40ParsesResultBlocks(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())

		_, _ = io.WriteString(w, `{
  "objectsResult": {"values": [
    {"boundingBox": {"x": 5, "y": 6, "w": 7, "h": 8}, "tags": [{"name": "dog", "confidence": 0.9}]},
    {"boundingBox": {"x": 0, "y": 0, "w": 1, "h": 1}, "tags": []}
  ]},
  "tagsResult": {"values": [{"name": "outdoor", "confidence": 0.99}]},
  "readResult": {"blocks": [{"lines": [{"text": "EXIT"}, {"text": "निकास"}]}]}
}`)
	}))
	defer server.Close()

	client := New(Options{Endpoint: server.URL, API: APIv40})
	ann, err := client.Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "/computervision/imageanalysis:analyze", got.URL.Path)
	require.Equal(t, "2024-02-01", got.URL.Query().Get("api-version"))
	require.Equal(t, "objects,tags,read", got.URL.Query().Get("features"))
	require.Equal(t, []string{"dog"}, ann.ObjectLabels())
	require.Equal(t, &scene.BoundingBox{X: 5, Y: 6, W: 7, H: 8}, ann.Objects[0].Box)
	require.Equal(t, []string{"outdoor"}, ann.TagLabels())
	require.Equal(t, []string{"EXIT", "निकास"}, ann.TextContents())
}

func TestAnalyzeEmptyResponseIsEmptyAnnotation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	ann, err := New(Options{Endpoint: server.URL}).Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.True(t, ann.Empty())
}

func TestAnalyzeNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":"401","message":"Access denied"}}`)
	}))
	defer server.Close()

	_, err := New(Options{Endpoint: server.URL}).Analyze(context.Background(), []byte("img"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, err.Error(), "Access denied")
}

func TestAnalyzeMalformedBodyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"objects": "nope"`)
	}))
	defer server.Close()

	_, err := New(Options{Endpoint: server.URL}).Analyze(context.Background(), []byte("img"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode vision response")
}

func TestAnalyzeTransportFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(Options{Endpoint: url}).Analyze(context.Background(), []byte("img"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "send vision request")
}

func TestAnalyzeRequiresEndpoint(t *testing.T) {
	_, err := New(Options{}).Analyze(context.Background(), []byte("img"))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyzeUnsupportedAPI(t *testing.T) {
	_, err := New(Options{Endpoint: "https://vision.example.com", API: "v1"}).Analyze(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported vision api")
}

func TestDefaultAPIRequestsText(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = io.WriteString(w, `{"readResult": {"blocks": [{"lines": [{"text": "बस स्टॉप"}]}]}}`)
	}))
	defer server.Close()

	ann, err := New(Options{Endpoint: server.URL}).Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "/computervision/imageanalysis:analyze", got.URL.Path)
	require.Contains(t, got.URL.Query().Get("features"), "read")
	require.Equal(t, []string{"बस स्टॉप"}, ann.TextContents())
}
