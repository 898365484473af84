package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classrecord/classrecord-api/internal/models"
)

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"ww":               "WW",
		"WW ":              "WW",
		"Written Works":    "WW",
		"pt":               "PT",
		"Performance Task": "PT",
		"qe":               "QE",
		"Quarterly Exam":   "QE",
		"exam":             "QE",
		"Recitation":       "RECITATION",
		"":                 "",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, NormalizeCategory(input), "input %q", input)
	}
}

func TestResolveWeightsDefaults(t *testing.T) {
	assert.Equal(t, WeightTriple{WW: 40, PT: 30, QE: 30}, ResolveWeights(nil))
	assert.Equal(t, WeightTriple{WW: 40, PT: 30, QE: 30}, ResolveWeights(models.RawWeights(`null`)))
	assert.Equal(t, WeightTriple{WW: 40, PT: 30, QE: 30}, ResolveWeights(models.RawWeights(`not json`)))
}

func TestResolveWeightsObjectShape(t *testing.T) {
	w := ResolveWeights(models.RawWeights(`{"ww":50,"pt":25,"qe":25}`))
	assert.Equal(t, WeightTriple{WW: 50, PT: 25, QE: 25}, w)

	// absent object fields keep defaults, non-numeric coerces to 0
	w = ResolveWeights(models.RawWeights(`{"ww":"60","qe":{"bad":true}}`))
	assert.Equal(t, WeightTriple{WW: 60, PT: 30, QE: 0}, w)
}

func TestResolveWeightsNullFieldKeepsDefault(t *testing.T) {
	// An explicit null is absent, not zero.
	w := ResolveWeights(models.RawWeights(`{"ww":null,"pt":35}`))
	assert.Equal(t, WeightTriple{WW: 40, PT: 35, QE: 30}, w)
}

func TestResolveWeightsArrayShape(t *testing.T) {
	raw := models.RawWeights(`[
		{"category":"Written Works","percentage":50},
		{"category":"performance task","percentage":"25"},
		{"category":"Quarterly Exam","percentage":25}
	]`)
	assert.Equal(t, WeightTriple{WW: 50, PT: 25, QE: 25}, ResolveWeights(raw))

	// categories absent from an array-shaped config resolve to 0
	raw = models.RawWeights(`[{"category":"WW","percentage":100}]`)
	assert.Equal(t, WeightTriple{WW: 100, PT: 0, QE: 0}, ResolveWeights(raw))
}

func TestResolveWeightsShapesAgree(t *testing.T) {
	object := ResolveWeights(models.RawWeights(`{"ww":40,"pt":30,"qe":30}`))
	array := ResolveWeights(models.RawWeights(`[
		{"category":"WW","percentage":40},
		{"category":"PT","percentage":30},
		{"category":"QE","percentage":30}
	]`))
	assert.Equal(t, object, array)
}

func TestBucketLessonsExcludesUnknown(t *testing.T) {
	lessons := []models.Lesson{
		{Name: "Quiz 1", Category: "ww", Max: 20, Key: "L1"},
		{Name: "Project", Category: "Performance Tasks", Max: 50, Key: "L2"},
		{Name: "Recitation", Category: "REC", Max: 10, Key: "L3"},
		{Name: "Quiz 2", Category: "Written Works", Max: 30, Key: "L4"},
	}
	b := BucketLessons(lessons)
	require.Len(t, b.WW, 2)
	assert.Equal(t, "L1", b.WW[0].Key)
	assert.Equal(t, "L4", b.WW[1].Key)
	require.Len(t, b.PT, 1)
	assert.Empty(t, b.QE)
}

func TestComputeFinalGradeWorkedExample(t *testing.T) {
	lessons := []models.Lesson{
		{Name: "Quiz", Category: "WW", Max: 20, Key: "L1"},
		{Name: "Project", Category: "PT", Max: 50, Key: "L2"},
		{Name: "Exam", Category: "QE", Max: 100, Key: "L3"},
	}
	scores := models.ScoreMap{"L1": 20, "L2": 25, "L3": 50}

	// WW 100% * 0.40 + PT 50% * 0.30 + QE 50% * 0.30 = 70
	final := ComputeFinalGrade(scores, lessons, WeightTriple{WW: 40, PT: 30, QE: 30})
	assert.Equal(t, 70, final)
}

func TestComputeFinalGradeEmptyBucketNotRedistributed(t *testing.T) {
	lessons := []models.Lesson{
		{Name: "Quiz", Category: "WW", Max: 20, Key: "L1"},
		{Name: "Project", Category: "PT", Max: 50, Key: "L2"},
	}
	scores := models.ScoreMap{"L1": 20, "L2": 50}

	// perfect WW and PT with no QE lessons caps at 70, not 100
	final := ComputeFinalGrade(scores, lessons, WeightTriple{WW: 40, PT: 30, QE: 30})
	assert.Equal(t, 70, final)
}

func TestComputeFinalGradeEdgeCases(t *testing.T) {
	weights := DefaultWeights()

	assert.Equal(t, 0, ComputeFinalGrade(models.ScoreMap{}, nil, weights))

	lessons := []models.Lesson{{Name: "Quiz", Category: "WW", Max: 20, Key: "L1"}}

	// missing score counts as 0
	assert.Equal(t, 0, ComputeFinalGrade(models.ScoreMap{}, lessons, weights))

	// overscoring is not clamped
	assert.Equal(t, 60, ComputeFinalGrade(models.ScoreMap{"L1": 30}, lessons, weights))

	// negatives pass through
	assert.Equal(t, -20, ComputeFinalGrade(models.ScoreMap{"L1": -10}, lessons, weights))

	// zero max contributes 0 instead of dividing by zero
	zeroMax := []models.Lesson{{Name: "Quiz", Category: "WW", Max: 0, Key: "L1"}}
	assert.Equal(t, 0, ComputeFinalGrade(models.ScoreMap{"L1": 5}, zeroMax, weights))
}

func TestComputeFinalGradeIdempotent(t *testing.T) {
	lessons := []models.Lesson{
		{Name: "Quiz", Category: "WW", Max: 20, Key: "L1"},
		{Name: "Exam", Category: "QE", Max: 40, Key: "L2"},
	}
	scores := models.ScoreMap{"L1": 13, "L2": 31}
	weights := WeightTriple{WW: 40, PT: 30, QE: 30}

	first := ComputeFinalGrade(scores, lessons, weights)
	second := ComputeFinalGrade(scores, lessons, weights)
	assert.Equal(t, first, second)
}

func TestComputeFinalGradeRoundsHalfUp(t *testing.T) {
	// 50% of max with full weight on WW: 12.5/25 => 50.0; craft a .5 case
	lessons := []models.Lesson{{Name: "Quiz", Category: "WW", Max: 200, Key: "L1"}}
	scores := models.ScoreMap{"L1": 101}

	// 101/200*100 = 50.5 -> 51
	assert.Equal(t, 51, ComputeFinalGrade(scores, lessons, WeightTriple{WW: 100}))
}
