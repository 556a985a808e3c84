package chunk

import "regexp"

// complexityKeywordPattern matches branch/loop/error-handling indicators with
// word boundaries so "forEach" doesn't double-count as "for". Grounded on
// the word-boundary regex idiom used throughout the teacher's query
// classification patterns (internal/search/patterns.go).
var complexityKeywordPattern = regexp.MustCompile(`\b(if|else|elif|for|while|switch|match|case|catch|except|rescue|try)\b`)

// complexityOperatorPattern matches short-circuit operators literally.
var complexityOperatorPattern = regexp.MustCompile(`&&|\|\||\?\?|\?\.`)

// ScoreComplexity counts branch/loop/error-handling/short-circuit tokens in
// code and returns the score plus one, per the component spec.
func ScoreComplexity(code string) Complexity {
	score := 1
	score += len(complexityKeywordPattern.FindAllString(code, -1))
	score += len(complexityOperatorPattern.FindAllString(code, -1))
	return Complexity{Score: score, Level: BucketComplexity(score)}
}
