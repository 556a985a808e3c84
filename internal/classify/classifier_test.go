package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codewell/codewell/internal/chunk"
)

func classifyChunk(name, code string, kind chunk.SyntaxKind, async bool, lang, path string) (string, []string, []string) {
	c := New()
	ch := &chunk.Chunk{Name: name, Code: code, SyntaxKind: kind, Async: async, Language: lang}
	return c.Classify(ch, path)
}

func TestClassify_ReactHookByNamingConvention(t *testing.T) {
	purpose, _, patterns := classifyChunk("useAuth", "return useState(null)", chunk.SyntaxKindArrow, false, "typescript", "src/hooks/useAuth.ts")
	assert.Equal(t, "react-hook", purpose)
	assert.Contains(t, patterns, "react-hooks")
}

func TestClassify_UIComponentByJSXReference(t *testing.T) {
	purpose, domains, _ := classifyChunk("Avatar", `return <div className="avatar"><img src={url} /></div>;`, chunk.SyntaxKindFunction, false, "tsx", "src/components/Avatar.tsx")
	assert.Equal(t, "ui-component", purpose)
	assert.Contains(t, domains, "user_interface")
}

func TestClassify_DataRetrievalByNameSubstring(t *testing.T) {
	purpose, _, _ := classifyChunk("fetchWidgets", "return http.Get(url)", chunk.SyntaxKindFunction, false, "go", "internal/widgets/client.go")
	assert.Equal(t, "data-retrieval", purpose)
}

func TestClassify_NameRuleOutranksPathRule(t *testing.T) {
	// "get" name rule (confidence 70) beats the "api" path rule (confidence 60).
	purpose, domains, _ := classifyChunk("getUser", "return user, nil", chunk.SyntaxKindFunction, false, "go", "internal/api/handlers.go")
	assert.Equal(t, "data-retrieval", purpose)
	assert.Contains(t, domains, "api_networking")
}

func TestClassify_ApiHandlerByPathWhenNameDoesNotMatch(t *testing.T) {
	purpose, domains, _ := classifyChunk("Handler", "w.Write(body)", chunk.SyntaxKindFunction, false, "go", "internal/api/handlers.go")
	assert.Equal(t, "api-handler", purpose)
	assert.Contains(t, domains, "api_networking")
}

func TestClassify_AuthenticationDomainByPathOrCode(t *testing.T) {
	_, domainsByPath, _ := classifyChunk("login", "return nil", chunk.SyntaxKindFunction, false, "go", "internal/auth/login.go")
	assert.Contains(t, domainsByPath, "authentication")

	_, domainsByCode, _ := classifyChunk("doStuff", "validateBearer(token string)", chunk.SyntaxKindFunction, false, "go", "internal/widgets/util.go")
	assert.Contains(t, domainsByCode, "authentication")
}

func TestClassify_AsyncOperationsPatternFromAsyncFlagOrKeyword(t *testing.T) {
	_, _, patterns := classifyChunk("run", "go doWork()", chunk.SyntaxKindFunction, true, "go", "internal/worker/run.go")
	assert.Contains(t, patterns, "async-operations")
}

func TestClassify_ErrorHandlingPattern(t *testing.T) {
	_, _, patterns := classifyChunk("save", "if err != nil { return err }", chunk.SyntaxKindFunction, false, "go", "internal/store/save.go")
	assert.Contains(t, patterns, "error-handling")
}

func TestClassify_StaticTypingOnlyForStaticallyTypedLanguages(t *testing.T) {
	_, _, tsPatterns := classifyChunk("add", "function add(a: number, b: number): number { return a + b; }", chunk.SyntaxKindFunction, false, "typescript", "src/math.ts")
	assert.Contains(t, tsPatterns, "static-typing")

	_, _, pyPatterns := classifyChunk("add", "def add(a, b): return a + b", chunk.SyntaxKindFunction, false, "python", "math.py")
	assert.NotContains(t, pyPatterns, "static-typing")
}

func TestClassify_DefaultsToUtilityFunction(t *testing.T) {
	purpose, domains, patterns := classifyChunk("helper", "return 1", chunk.SyntaxKindFunction, false, "go", "internal/util/helper.go")
	assert.Equal(t, "utility-function", purpose)
	assert.Empty(t, domains)
	assert.Empty(t, patterns)
}

func TestClassify_TagsAreDeduplicated(t *testing.T) {
	_, domains, _ := classifyChunk("ApiAuthHandler", "validateToken()", chunk.SyntaxKindFunction, false, "go", "internal/api/auth/handler.go")
	seen := map[string]int{}
	for _, d := range domains {
		seen[d]++
	}
	for tag, count := range seen {
		assert.Equalf(t, 1, count, "tag %q appeared %d times", tag, count)
	}
}
