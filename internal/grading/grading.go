// Package grading decides equality between a learner's answer and the
// canonical answer, honoring the question's answer kind. All functions
// are pure.
package grading

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/abhisek/gretutor/internal/exam"
)

// DefaultTolerance is the absolute tolerance for numeric comparison.
const DefaultTolerance = 1e-6

// Simple fraction: optionally-negative integer numerator and denominator.
var fractionRe = regexp.MustCompile(`^(-?\d+)/(-?\d+)$`)

// NormalizeNumeric parses an answer string into a float. Supports
// integers, decimals, negative numbers, and simple fractions like "1/2"
// or "-3/4". Mixed numbers, percentages, and algebraic expressions are
// out of scope and report false.
func NormalizeNumeric(answer string) (float64, bool) {
	answer = strings.ReplaceAll(strings.TrimSpace(answer), " ", "")

	if v, err := strconv.ParseFloat(answer, 64); err == nil {
		return v, true
	}

	m := fractionRe.FindStringSubmatch(answer)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	den, err := strconv.ParseFloat(m[2], 64)
	if err != nil || den == 0 {
		return 0, false
	}
	return num / den, true
}

// CompareNumeric reports whether two numeric answers are equal within
// tolerance. A case-insensitive trimmed string match short-circuits to
// true, which also covers non-numeric canonical answers. If either side
// fails to parse numerically, the answers are unequal.
func CompareNumeric(userAnswer, correctAnswer string, tolerance float64) bool {
	if strings.EqualFold(strings.TrimSpace(userAnswer), strings.TrimSpace(correctAnswer)) {
		return true
	}

	u, uok := NormalizeNumeric(userAnswer)
	c, cok := NormalizeNumeric(correctAnswer)
	if !uok || !cok {
		return false
	}
	return math.Abs(u-c) < tolerance
}

// CheckAnswer reports whether the learner's answer is correct for the
// given problem kind. Numeric entry compares parsed values; everything
// else is a trimmed case-insensitive letter comparison. Callers filter
// out empty submissions before reaching here.
func CheckAnswer(userAnswer, correctAnswer string, kind exam.ProblemKind) bool {
	if kind == exam.KindNumericEntry {
		return CompareNumeric(userAnswer, correctAnswer, DefaultTolerance)
	}
	return strings.EqualFold(strings.TrimSpace(userAnswer), strings.TrimSpace(correctAnswer))
}
