package grading

import (
	"math"

	"github.com/classrecord/classrecord-api/internal/models"
)

// Buckets holds the class lessons partitioned per canonical category,
// preserving insertion order. Lessons whose normalized category is none of
// the three codes appear in no bucket and do not count toward grading.
type Buckets struct {
	WW []models.Lesson
	PT []models.Lesson
	QE []models.Lesson
}

// ForCategory returns the bucket for a canonical category code.
func (b Buckets) ForCategory(category string) []models.Lesson {
	switch category {
	case CategoryWrittenWork:
		return b.WW
	case CategoryPerformanceTask:
		return b.PT
	case CategoryQuarterlyExam:
		return b.QE
	default:
		return nil
	}
}

// BucketLessons partitions a class's lesson sequence into the three
// category buckets.
func BucketLessons(lessons []models.Lesson) Buckets {
	var b Buckets
	for _, lesson := range lessons {
		switch NormalizeCategory(lesson.Category) {
		case CategoryWrittenWork:
			b.WW = append(b.WW, lesson)
		case CategoryPerformanceTask:
			b.PT = append(b.PT, lesson)
		case CategoryQuarterlyExam:
			b.QE = append(b.QE, lesson)
		}
	}
	return b
}

var categories = []string{CategoryWrittenWork, CategoryPerformanceTask, CategoryQuarterlyExam}

// ComputeFinalGrade combines a student's sparse score map with the class
// lessons and resolved weights into a rounded percentage.
//
// Per category: percent = earned/maxTotal*100, weighted by weight/100. An
// empty bucket contributes 0 and its weight is NOT redistributed, so a class
// without QE lessons caps the achievable final below 100. Missing scores
// count as 0. Scores are not clamped against a lesson's max, and negatives
// pass through; clamping is an input-layer concern. A class with no lessons
// in any bucket yields 0. Pure function: identical inputs always produce the
// identical integer.
func ComputeFinalGrade(scores models.ScoreMap, lessons []models.Lesson, weights WeightTriple) int {
	buckets := BucketLessons(lessons)

	final := 0.0
	for _, category := range categories {
		catLessons := buckets.ForCategory(category)
		if len(catLessons) == 0 {
			continue
		}

		earned := 0.0
		maxTotal := 0.0
		for _, lesson := range catLessons {
			earned += scores[lesson.Key]
			maxTotal += lesson.Max
		}

		percent := 0.0
		if maxTotal > 0 {
			percent = earned / maxTotal * 100
		}

		final += percent * (weights.ForCategory(category) / 100)
	}

	// round half up
	return int(math.Floor(final + 0.5))
}
