package analysis_test

import (
	"context"
	"errors"
	"testing"

	"grievance/backend/internal/analysis"
	"grievance/backend/internal/logger"
	"grievance/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExternal struct {
	mock.Mock
}

func (m *MockExternal) Suggest(ctx context.Context, text string) (*analysis.Suggestion, error) {
	args := m.Called(ctx, text)
	if s := args.Get(0); s != nil {
		return s.(*analysis.Suggestion), args.Error(1)
	}
	return nil, args.Error(1)
}

func newAnalyzer(ext analysis.ExternalClassifier) *analysis.Analyzer {
	return analysis.NewAnalyzer(newClassifier(), ext, logger.Discard())
}

func TestAnalyze_DisabledUsesRules(t *testing.T) {
	a := newAnalyzer(nil)

	got := a.Analyze(context.Background(), "Small pothole", "on residential street")

	assert.Equal(t, analysis.SourceRules, got.Source)
	assert.Equal(t, "Roads & Public Works", got.Category)
	assert.Equal(t, models.PriorityLow, got.Priority)
}

func TestAnalyze_ExternalCategoryReconciled(t *testing.T) {
	ext := new(MockExternal)
	ext.On("Suggest", mock.Anything, "Sparks near pole Wires are exposed").
		Return(&analysis.Suggestion{Category: "electricity", Priority: models.PriorityCritical, Reasoning: "exposed wiring"}, nil)
	a := newAnalyzer(ext)

	got := a.Analyze(context.Background(), "Sparks near pole", "Wires are exposed")

	assert.Equal(t, analysis.SourceExternal, got.Source)
	assert.Equal(t, "Electricity & Power Supply", got.Category)
	assert.Equal(t, "Electricity Department", got.DepartmentName)
	assert.Equal(t, models.PriorityCritical, got.Priority)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, "exposed wiring", got.Reasoning)
	ext.AssertExpectations(t)
}

func TestAnalyze_UnknownExternalCategoryKeepsKeywordDepartment(t *testing.T) {
	ext := new(MockExternal)
	ext.On("Suggest", mock.Anything, mock.Anything).
		Return(&analysis.Suggestion{Category: "Astrology", Priority: models.PriorityMedium, Confidence: 0.7}, nil)
	a := newAnalyzer(ext)

	got := a.Analyze(context.Background(), "Garbage", "not collected")

	assert.Equal(t, analysis.SourceExternal, got.Source)
	assert.Equal(t, "Sanitation & Waste Management", got.Category)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestAnalyze_ExternalFailureFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		suggestion *analysis.Suggestion
		err        error
	}{
		{"error", nil, errors.New("timeout")},
		{"bad priority", &analysis.Suggestion{Category: "Water Supply", Priority: "Urgent"}, nil},
		{"no category", &analysis.Suggestion{Priority: models.PriorityHigh}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := new(MockExternal)
			ext.On("Suggest", mock.Anything, mock.Anything).Return(tt.suggestion, tt.err)
			a := newAnalyzer(ext)

			got := a.Analyze(context.Background(), "No water", "supply since Monday")

			assert.Equal(t, analysis.SourceRules, got.Source)
			assert.Equal(t, "Water Supply", got.Category)
		})
	}
}

func TestParseSuggestion(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		raw := "```json\n{\"category\": \"Water Supply\", \"priority\": \"High\", \"confidence\": 0.82}\n```"

		s, err := analysis.ParseSuggestion(raw)

		require.NoError(t, err)
		assert.Equal(t, "Water Supply", s.Category)
		assert.Equal(t, models.PriorityHigh, s.Priority)
		assert.InDelta(t, 0.82, s.Confidence, 1e-9)
	})

	t.Run("bare json", func(t *testing.T) {
		s, err := analysis.ParseSuggestion(`{"category":"General","priority":"Low"}`)

		require.NoError(t, err)
		assert.Equal(t, models.PriorityLow, s.Priority)
	})

	t.Run("rejects", func(t *testing.T) {
		for _, raw := range []string{
			"not json",
			`{"priority":"High"}`,
			`{"category":"Water Supply","priority":"Whenever"}`,
		} {
			_, err := analysis.ParseSuggestion(raw)
			assert.Error(t, err, raw)
		}
	})
}
