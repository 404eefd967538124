package genai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/earthwork-discovery/internal/config"
	"github.com/earthwork-discovery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var topHotspot = domain.Hotspot{
	Rank: 1, Lat: -9.876543, Lon: -67.123456, MeanProb: 0.83, MaxProb: 0.9,
	Count: 4, Confidence: domain.ConfidenceHigh,
}

func TestNarrateNoHotspots(t *testing.T) {
	gen := new(MockTextGenerator)
	n := NewNarrator(gen, zap.NewNop())

	assert.Equal(t, NoHotspotsText, n.Narrate(context.Background(), nil, 0.8))
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestNarrateUsesGeneratedText(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "9.876543°S, 67.123456°W") && strings.Contains(p, "ROC AUC 0.812")
	})).Return("A compelling enclosure.", nil)

	text := NewNarrator(gen, zap.NewNop()).Narrate(context.Background(), []domain.Hotspot{topHotspot}, 0.812)

	assert.Equal(t, "A compelling enclosure.", text)
	gen.AssertExpectations(t)
}

func TestNarrateFallsBackOnError(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	text := NewNarrator(gen, zap.NewNop()).Narrate(context.Background(), []domain.Hotspot{topHotspot}, 0.75)

	assert.Equal(t, Fallback(topHotspot, 0.75, "quota exceeded"), text)
	assert.Contains(t, text, "Model confidence: 83.0%")
	assert.Contains(t, text, "ROC AUC 0.750")
	assert.Contains(t, text, "Note: quota exceeded")
}

func TestNarrateWithoutGenerator(t *testing.T) {
	text := NewNarrator(nil, zap.NewNop()).Narrate(context.Background(), []domain.Hotspot{topHotspot}, 0.7)
	assert.Contains(t, text, "ARCHAEOLOGICAL INTERPRETATION")
	assert.Contains(t, text, "text generation not configured")
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "9.500000°S, 67.250000°W", FormatCoordinate(-9.5, -67.25))
	assert.Equal(t, "1.000000°N, 2.000000°E", FormatCoordinate(1, 2))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.NarrativeConfig{}, "", zap.NewNop())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func geminiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() config.NarrativeConfig {
	return config.NarrativeConfig{APIKey: "test-key", Model: "gemini-test", Timeout: 5 * time.Second}
}

func TestClientGenerate(t *testing.T) {
	srv := geminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"  Site looks promising.  "}]}}]}`)

	gen, err := NewClient(context.Background(), testConfig(), srv.URL, zap.NewNop())
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Site looks promising.", text)
}

func TestClientGenerateEmpty(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"candidates":[]}`)

	gen, err := NewClient(context.Background(), testConfig(), srv.URL, zap.NewNop())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestClientGenerateAPIError(t *testing.T) {
	srv := geminiServer(t, http.StatusInternalServerError,
		`{"error":{"code":500,"message":"backend unavailable","status":"INTERNAL"}}`)

	gen, err := NewClient(context.Background(), testConfig(), srv.URL, zap.NewNop())
	require.NoError(t, err)

	text := NewNarrator(gen, zap.NewNop()).Narrate(context.Background(), []domain.Hotspot{topHotspot}, 0.8)
	assert.Contains(t, text, "ARCHAEOLOGICAL INTERPRETATION")
}
