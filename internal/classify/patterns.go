package classify

import "regexp"

// Compiled regex patterns for chunk classification, grounded on the same
// ordered-regex-predicate idiom as internal/search's query classifier.
var (
	jsxConstructPattern = regexp.MustCompile(`</?[A-Z][\w.]*[\s/>]|className=|React\.`)

	hookNamePattern = regexp.MustCompile(`^use[A-Z]`)

	authPathPattern  = regexp.MustCompile(`(?i)(^|/)auth(/|$|[._-])`)
	authCodePattern  = regexp.MustCompile(`(?i)\b(token|jwt|password|bearer)\b`)
	apiPathPattern   = regexp.MustCompile(`(?i)(^|/)(api|routes)(/|$)`)
	componentsPath   = regexp.MustCompile(`(?i)(^|/)components(/|$)`)

	asyncCodePattern       = regexp.MustCompile(`\b(async|await|Promise|goroutine|go func)\b`)
	errorHandlingPattern   = regexp.MustCompile(`\b(try|catch|except|recover|rescue)\b|err\s*!=\s*nil|\.unwrap\(\)|\?\s*;`)
	httpCodePattern        = regexp.MustCompile(`(?i)\b(http\.|fetch\(|axios|XMLHttpRequest|net/http|reqwest)\b`)
	functionalCodePattern  = regexp.MustCompile(`=>|\.(map|filter|reduce)\(`)
	objectOrientedPattern  = regexp.MustCompile(`\bthis\.|\bself\.|\bclass\s+\w|&mut self|&self`)
	staticTypingPattern    = regexp.MustCompile(`:\s*[A-Za-z_][\w<>\[\], ]*\s*(=|;|\)|\{)|->\s*[A-Za-z_]`)
)
