// Package vision calls the Azure AI Vision image analysis service.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drishti-ai/drishti/internal/scene"
)

// Supported API shapes.
const (
	APIv32 = "v3.2"
	APIv40 = "4.0"

	v40APIVersion = "2024-02-01"
	maxErrorBody  = 512
)

// ErrNotConfigured reports a client with no endpoint.
var ErrNotConfigured = errors.New("vision endpoint not configured")

// Options configures a Client.
type Options struct {
	Endpoint string
	Key      string
	// API defaults to 4.0, the only shape that returns text lines.
	API string
	// Features is the v3.2 visualFeatures list.
	Features string
	Language string
	Timeout  time.Duration

	HTTPClient *http.Client
}

// Client analyzes still images.
type Client struct {
	endpoint   string
	key        string
	api        string
	features   string
	language   string
	httpClient *http.Client
}

// New returns a client for opts.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 8 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	api := opts.API
	if api == "" {
		api = APIv40
	}
	features := opts.Features
	if features == "" {
		features = "Objects,Tags,Description"
	}
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/"),
		key:        opts.Key,
		api:        api,
		features:   features,
		language:   opts.Language,
		httpClient: httpClient,
	}
}

// Analyze sends one image and returns its objects, tags, and text lines.
func (c *Client) Analyze(ctx context.Context, image []byte) (scene.Annotation, error) {
	if c.endpoint == "" {
		return scene.Annotation{}, ErrNotConfigured
	}

	target, err := c.analyzeURL()
	if err != nil {
		return scene.Annotation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(image))
	if err != nil {
		return scene.Annotation{}, fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.key != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scene.Annotation{}, fmt.Errorf("send vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return scene.Annotation{}, fmt.Errorf("vision service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if c.api == APIv40 {
		var payload v40Response
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return scene.Annotation{}, fmt.Errorf("decode vision response: %w", err)
		}
		return payload.annotation(), nil
	}

	var payload v32Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return scene.Annotation{}, fmt.Errorf("decode vision response: %w", err)
	}
	return payload.annotation(), nil
}

func (c *Client) analyzeURL() (string, error) {
	q := url.Values{}
	var path string
	switch c.api {
	case APIv32:
		path = "/vision/v3.2/analyze"
		q.Set("visualFeatures", c.features)
	case APIv40:
		path = "/computervision/imageanalysis:analyze"
		q.Set("api-version", v40APIVersion)
		q.Set("features", "objects,tags,read")
	default:
		return "", fmt.Errorf("unsupported vision api %q", c.api)
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	return c.endpoint + path + "?" + q.Encode(), nil
}

type v32Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type v32Response struct {
	Objects []struct {
		Object     string   `json:"object"`
		Confidence float64  `json:"confidence"`
		Rectangle  *v32Rect `json:"rectangle"`
	} `json:"objects"`
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
	Text *struct {
		Lines []struct {
			Text string `json:"text"`
		} `json:"lines"`
	} `json:"text"`
}

func (r v32Response) annotation() scene.Annotation {
	var a scene.Annotation
	for _, o := range r.Objects {
		obj := scene.DetectedObject{Label: o.Object, Confidence: o.Confidence}
		if o.Rectangle != nil {
			obj.Box = &scene.BoundingBox{X: o.Rectangle.X, Y: o.Rectangle.Y, W: o.Rectangle.W, H: o.Rectangle.H}
		}
		a.Objects = append(a.Objects, obj)
	}
	for _, t := range r.Tags {
		a.Tags = append(a.Tags, scene.Tag{Label: t.Name, Confidence: t.Confidence})
	}
	if r.Text != nil {
		for _, l := range r.Text.Lines {
			a.Text = append(a.Text, scene.TextLine{Content: l.Text})
		}
	}
	return a
}

type v40Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type v40Response struct {
	ObjectsResult *struct {
		Values []struct {
			BoundingBox *v32Rect `json:"boundingBox"`
			Tags        []v40Tag `json:"tags"`
		} `json:"values"`
	} `json:"objectsResult"`
	TagsResult *struct {
		Values []v40Tag `json:"values"`
	} `json:"tagsResult"`
	ReadResult *struct {
		Blocks []struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
}

func (r v40Response) annotation() scene.Annotation {
	var a scene.Annotation
	if r.ObjectsResult != nil {
		for _, v := range r.ObjectsResult.Values {
			if len(v.Tags) == 0 {
				continue
			}
			obj := scene.DetectedObject{Label: v.Tags[0].Name, Confidence: v.Tags[0].Confidence}
			if v.BoundingBox != nil {
				obj.Box = &scene.BoundingBox{X: v.BoundingBox.X, Y: v.BoundingBox.Y, W: v.BoundingBox.W, H: v.BoundingBox.H}
			}
			a.Objects = append(a.Objects, obj)
		}
	}
	if r.TagsResult != nil {
		for _, t := range r.TagsResult.Values {
			a.Tags = append(a.Tags, scene.Tag{Label: t.Name, Confidence: t.Confidence})
		}
	}
	if r.ReadResult != nil {
		for _, b := range r.ReadResult.Blocks {
			for _, l := range b.Lines {
				a.Text = append(a.Text, scene.TextLine{Content: l.Text})
			}
		}
	}
	return a
}
