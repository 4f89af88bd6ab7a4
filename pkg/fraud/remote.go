package fraud

// HTTP clients for the companion vision/speech service. These implement the
// image, OCR and transcription capabilities by uploading the media file and
// decoding the service's JSON response. All calls share the pooled slow-tier
// HTTP client; the engine adds its own per-call timeout on top.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/finshield/engine/pkg/httputil"
)

// VisionClient talks to the vision service: visual-authenticity
// classification and OCR.
type VisionClient struct {
	baseURL string
	client  *http.Client
}

// NewVisionClient creates a client for the vision service at baseURL.
func NewVisionClient(baseURL string) *VisionClient {
	return &VisionClient{
		baseURL: baseURL,
		client:  httputil.Client(httputil.TierSlow),
	}
}

// ClassifyImage uploads the image and returns the authenticity label and
// confidence.
func (v *VisionClient) ClassifyImage(ctx context.Context, imagePath string) (ImageClassification, error) {
	var out struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := postFile(ctx, v.client, v.baseURL+"/v1/image/classify", imagePath, &out); err != nil {
		return ImageClassification{}, fmt.Errorf("classify image: %w", err)
	}
	return ImageClassification{Label: out.Label, Confidence: out.Confidence}, nil
}

// ExtractText uploads the image and returns the OCR text.
func (v *VisionClient) ExtractText(ctx context.Context, imagePath string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := postFile(ctx, v.client, v.baseURL+"/v1/image/ocr", imagePath, &out); err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return out.Text, nil
}

// SpeechClient talks to the speech service for transcription.
type SpeechClient struct {
	baseURL string
	client  *http.Client
}

// NewSpeechClient creates a client for the speech service at baseURL.
func NewSpeechClient(baseURL string) *SpeechClient {
	return &SpeechClient{
		baseURL: baseURL,
		client:  httputil.Client(httputil.TierSlow),
	}
}

// Transcribe uploads the audio file and returns ordered transcript segments.
func (s *SpeechClient) Transcribe(ctx context.Context, audioPath string) ([]TranscriptSegment, error) {
	var out struct {
		Segments []struct {
			Text  string  `json:"text"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"segments"`
	}
	if err := postFile(ctx, s.client, s.baseURL+"/v1/audio/transcribe", audioPath, &out); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	segments := make([]TranscriptSegment, len(out.Segments))
	for i, seg := range out.Segments {
		segments[i] = TranscriptSegment{Text: seg.Text, Start: seg.Start, End: seg.End}
	}
	return segments, nil
}

// postFile uploads path as a multipart form to url and decodes the JSON
// response into out.
func postFile(ctx context.Context, client *http.Client, url, path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg, _ := httputil.ReadErrorBody(resp.Body)
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
