package fraud

// Embedding-similarity fallback classifier backed by chromem-go.
//
// When no ONNX model is available, the engine can still get a classifier
// score by comparing the input against a seed corpus of canonical scam texts
// in embedding space. Embeddings come from an Ollama-compatible endpoint.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/finshield/engine/pkg/httputil"
)

// ScamPattern is one seed entry in the similarity corpus.
type ScamPattern struct {
	Text     string
	Category string
}

// seedScamPatterns returns canonical examples of fraud message types plus a
// few benign anchors. Benign anchors stop ordinary account notifications
// from matching a scam seed best.
func seedScamPatterns() []ScamPattern {
	return []ScamPattern{
		{"Your account will be suspended within 24 hours, verify your identity immediately", "urgency_scam"},
		{"We detected suspicious activity on your bank account, confirm your password now", "credential_harvesting"},
		{"You owe back taxes to the IRS, pay immediately or face arrest", "coercion/extortion"},
		{"Congratulations, you won a prize, claim your reward by clicking this link", "reward_scam"},
		{"Invest in bitcoin today for guaranteed returns, double your money in a week", "crypto_scam"},
		{"Your package could not be delivered, update your payment details to reschedule", "financial_fraud"},
		{"This is tech support, your computer is infected, install this remote access tool", "tech_support_scam"},
		{"Hi grandma, I lost my phone and need money wired urgently, do not tell my parents", "impersonation_scam"},
		{"Your invoice is attached, please wire the outstanding balance to our new account", "financial_fraud"},
		{"Thanks for lunch yesterday, see you at the meeting on Thursday", "benign"},
		{"Your order has shipped and will arrive in three to five business days", "benign"},
		{"The quarterly report is ready for review, let me know if you have questions", "benign"},
	}
}

// SemanticClassifier implements TextClassifier via nearest-neighbor search
// over the seed corpus.
type SemanticClassifier struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	ready      bool
}

// ollamaEmbeddingFunc builds a chromem embedding function against an Ollama
// /api/embeddings endpoint.
func ollamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.Client(httputil.TierMedium)

	return func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(map[string]string{"model": model, "prompt": text})
		if err != nil {
			return nil, fmt.Errorf("marshal embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			msg, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, msg)
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		return result.Embedding, nil
	}
}

// NewSemanticClassifier creates a classifier using Ollama embeddings.
// LoadPatterns must be called before classification.
func NewSemanticClassifier(ollamaURL, embeddingModel string) (*SemanticClassifier, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection("scam_patterns", nil, ollamaEmbeddingFunc(embeddingModel, ollamaURL))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &SemanticClassifier{db: db, collection: collection}, nil
}

// LoadPatterns embeds and indexes the seed corpus.
func (s *SemanticClassifier) LoadPatterns(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	patterns := seedScamPatterns()
	docs := make([]chromem.Document, len(patterns))
	for i, p := range patterns {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("pattern_%d", i),
			Content:  p.Text,
			Metadata: map[string]string{"category": p.Category},
		}
	}

	// One worker: embedding endpoints are usually the bottleneck.
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add seed patterns: %w", err)
	}

	s.ready = true
	return nil
}

// IsReady reports whether the seed corpus has been loaded.
func (s *SemanticClassifier) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// ClassifyText returns a phishing/ham label whose confidence is the cosine
// similarity to the best-matching seed pattern.
func (s *SemanticClassifier) ClassifyText(ctx context.Context, text string) (TextClassification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return TextClassification{}, fmt.Errorf("semantic classifier not loaded")
	}

	results, err := s.collection.Query(ctx, strings.ToLower(text), 3, nil, nil)
	if err != nil {
		return TextClassification{}, fmt.Errorf("similarity query: %w", err)
	}
	if len(results) == 0 {
		return TextClassification{Label: "ham", Confidence: 1.0}, nil
	}

	best := results[0]
	if best.Metadata["category"] == "benign" {
		return TextClassification{Label: "ham", Confidence: float64(best.Similarity)}, nil
	}
	return TextClassification{Label: "phishing", Confidence: float64(best.Similarity)}, nil
}
