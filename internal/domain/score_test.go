package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreWeightsSum(t *testing.T) {
	w := ScoreWeights{Photo: 0.4, Completion: 0.3, Timeliness: 0.3}
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
}

func TestQualityScoreFinalize(t *testing.T) {
	w := ScoreWeights{Photo: 0.4, Completion: 0.3, Timeliness: 0.3}

	tests := []struct {
		name  string
		score QualityScore
		want  float64
	}{
		{
			name:  "perfect",
			score: QualityScore{PhotoScore: 5, CompletionScore: 5, TimelinessScore: 5},
			want:  5.0,
		},
		{
			name:  "zero",
			score: QualityScore{},
			want:  0.0,
		},
		{
			name:  "mixed",
			score: QualityScore{PhotoScore: 5, CompletionScore: 2, TimelinessScore: 4},
			want:  5*0.4 + 2*0.3 + 4*0.3,
		},
		{
			name:  "halved completion after complaint",
			score: QualityScore{PhotoScore: 4, CompletionScore: 2, TimelinessScore: 4},
			want:  4*0.4 + 2*0.3 + 4*0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.score.Finalize(w), 1e-9)
		})
	}
}
