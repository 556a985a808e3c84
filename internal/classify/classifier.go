// Package classify assigns purpose, domain tags, and pattern tags to a
// chunk using a table-driven set of heuristic predicates — no model call,
// no I/O. Grounded on internal/search's PatternClassifier: ordered regex
// predicates over plain strings, evaluated once per classify call, never
// returning an error.
package classify

import (
	"strings"

	"github.com/codewell/codewell/internal/chunk"
)

// Classifier assigns purpose/domain/pattern tags to chunks via the default
// rule table. It holds no state and is safe for concurrent use.
type Classifier struct{}

// New creates a heuristics classifier.
func New() *Classifier {
	return &Classifier{}
}

// evalContext is built once per chunk and shared across every rule, so no
// rule re-derives the same substrings.
type evalContext struct {
	name      string // original case, for the use+Capital hook convention
	nameLower string
	code      string
	isFunc    bool
	async     bool
	lang      string
	path      string
}

func buildContext(c *chunk.Chunk, filePath string) *evalContext {
	return &evalContext{
		name:      c.Name,
		nameLower: strings.ToLower(c.Name),
		code:      c.Code,
		isFunc:    c.SyntaxKind == chunk.SyntaxKindFunction || c.SyntaxKind == chunk.SyntaxKindArrow || c.SyntaxKind == chunk.SyntaxKindMethod,
		async:     c.Async,
		lang:      c.Language,
		path:      filePath,
	}
}

func isReactHookName(ctx *evalContext) bool {
	return hookNamePattern.MatchString(ctx.name)
}

// purposeRule is one (predicate, purpose, confidence) entry. The
// highest-confidence matching rule wins; ties go to the earlier rule in
// the table.
type purposeRule struct {
	purpose    string
	confidence int
	match      func(ctx *evalContext) bool
}

var purposeRules = []purposeRule{
	{purpose: "react-hook", confidence: 90, match: func(ctx *evalContext) bool {
		return ctx.isFunc && isReactHookName(ctx)
	}},
	{purpose: "ui-component", confidence: 85, match: func(ctx *evalContext) bool {
		return ctx.isFunc && jsxConstructPattern.MatchString(ctx.code)
	}},
	{purpose: "data-retrieval", confidence: 70, match: func(ctx *evalContext) bool {
		return containsAny(ctx.nameLower, "get", "fetch")
	}},
	{purpose: "data-creation", confidence: 70, match: func(ctx *evalContext) bool {
		return containsAny(ctx.nameLower, "create", "add")
	}},
	{purpose: "data-modification", confidence: 70, match: func(ctx *evalContext) bool {
		return containsAny(ctx.nameLower, "update", "edit")
	}},
	{purpose: "data-deletion", confidence: 70, match: func(ctx *evalContext) bool {
		return containsAny(ctx.nameLower, "delete", "remove")
	}},
	{purpose: "validation", confidence: 70, match: func(ctx *evalContext) bool {
		return containsAny(ctx.nameLower, "validate", "check")
	}},
	{purpose: "data-processing", confidence: 70, match: func(ctx *evalContext) bool {
		return containsAny(ctx.nameLower, "parse", "format")
	}},
	{purpose: "ui-component", confidence: 60, match: func(ctx *evalContext) bool {
		return componentsPath.MatchString(ctx.path)
	}},
	{purpose: "api-handler", confidence: 60, match: func(ctx *evalContext) bool {
		return apiPathPattern.MatchString(ctx.path)
	}},
}

// tagRule contributes domain and/or pattern tags whenever it matches;
// unlike purposeRule, every matching tagRule contributes — there's no
// single winner.
type tagRule struct {
	domainTags  []string
	patternTags []string
	match       func(ctx *evalContext) bool
}

var tagRules = []tagRule{
	{domainTags: []string{"authentication"}, match: func(ctx *evalContext) bool {
		return authPathPattern.MatchString(ctx.path) || authCodePattern.MatchString(ctx.code)
	}},
	{domainTags: []string{"user_interface"}, match: func(ctx *evalContext) bool {
		return componentsPath.MatchString(ctx.path)
	}},
	{domainTags: []string{"api_networking"}, match: func(ctx *evalContext) bool {
		return apiPathPattern.MatchString(ctx.path)
	}},
	{patternTags: []string{"react-hooks"}, match: isReactHookName},
	{patternTags: []string{"async-operations"}, match: func(ctx *evalContext) bool {
		return ctx.async || asyncCodePattern.MatchString(ctx.code)
	}},
	{patternTags: []string{"error-handling"}, match: func(ctx *evalContext) bool {
		return errorHandlingPattern.MatchString(ctx.code)
	}},
	{patternTags: []string{"http-requests"}, match: func(ctx *evalContext) bool {
		return httpCodePattern.MatchString(ctx.code)
	}},
	{patternTags: []string{"functional-programming"}, match: func(ctx *evalContext) bool {
		return functionalCodePattern.MatchString(ctx.code)
	}},
	{patternTags: []string{"object-oriented"}, match: func(ctx *evalContext) bool {
		return objectOrientedPattern.MatchString(ctx.code)
	}},
	{patternTags: []string{"static-typing"}, match: func(ctx *evalContext) bool {
		return isStaticallyTyped(ctx.lang) && staticTypingPattern.MatchString(ctx.code)
	}},
}

// defaultPurpose is returned when no purpose rule matches.
const defaultPurpose = "utility-function"

// Classify computes the purpose, domain tags, and pattern tags for a
// chunk, given its source file's relative path. Pure: no I/O, no model
// call, never errors.
func (c *Classifier) Classify(ch *chunk.Chunk, filePath string) (purpose string, domainTags, patternTags []string) {
	ctx := buildContext(ch, filePath)

	purpose = defaultPurpose
	bestConfidence := -1
	for _, rule := range purposeRules {
		if rule.confidence <= bestConfidence {
			continue
		}
		if rule.match(ctx) {
			purpose = rule.purpose
			bestConfidence = rule.confidence
		}
	}

	var domains, patterns []string
	for _, rule := range tagRules {
		if !rule.match(ctx) {
			continue
		}
		domains = append(domains, rule.domainTags...)
		patterns = append(patterns, rule.patternTags...)
	}

	return purpose, dedupe(domains), dedupe(patterns)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isStaticallyTyped(lang string) bool {
	switch lang {
	case "go", "typescript", "tsx", "rust":
		return true
	default:
		return false
	}
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
