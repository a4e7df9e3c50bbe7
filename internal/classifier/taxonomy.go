package classifier

import "github.com/bobmatnyc/ai-power-rankings/internal/domain"

// categoryRule pairs a keyword set with the category it selects. The rule
// list is checked in order and the first match wins, so an item containing
// both "launch" and "benchmark" is a product launch. Reordering changes
// classification output; the order is part of the contract.
type categoryRule struct {
	category domain.Category
	keywords []string
}

var categoryRules = []categoryRule{
	{domain.CategoryProductLaunch, []string{"launch", "release", "announce", "unveil", "introduce", "debut"}},
	{domain.CategoryResearch, []string{"research", "study", "paper", "findings", "breakthrough", "discover"}},
	{domain.CategoryBusiness, []string{"funding", "investment", "raise", "valuation", "acquire", "merger"}},
	{domain.CategoryTutorial, []string{"tutorial", "guide", "how to", "learn", "example", "demo"}},
	{domain.CategoryComparison, []string{"benchmark", "comparison", "versus", "vs", "performance", "speed"}},
	{domain.CategoryUpdate, []string{"update", "upgrade", "version", "patch", "improvement"}},
	{domain.CategorySecurity, []string{"security", "vulnerability", "breach", "hack", "exploit"}},
}

// codingKeywords and aiKeywords drive the relevance score boosts. Matching
// is plain lowercase substring containment.
var (
	codingKeywords = []string{"code", "coding", "programming", "developer", "ide", "editor", "compiler"}
	aiKeywords     = []string{"ai", "llm", "gpt", "artificial intelligence", "machine learning"}
)

// Tool is one canonical tool with its ordered alias list. Aliases are
// matched lowercased against the combined title+body text.
type Tool struct {
	ID      string
	Aliases []string
}

// Registry is the immutable tool taxonomy, loaded once at startup.
type Registry struct {
	tools []Tool
}

// NewRegistry builds a registry from an explicit tool list. Tools with no
// aliases are dropped.
func NewRegistry(tools []Tool) *Registry {
	kept := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if t.ID == "" || len(t.Aliases) == 0 {
			continue
		}
		kept = append(kept, t)
	}
	return &Registry{tools: kept}
}

// Tools returns the registry contents in registration order.
func (r *Registry) Tools() []Tool {
	return r.tools
}

// DefaultRegistry returns the built-in AI coding tool taxonomy.
func DefaultRegistry() *Registry {
	return NewRegistry([]Tool{
		{ID: "claude-code", Aliases: []string{"claude code", "claude", "anthropic claude", "claude ai"}},
		{ID: "chatgpt-canvas", Aliases: []string{"chatgpt", "gpt-4", "gpt-3.5", "openai gpt"}},
		{ID: "github-copilot", Aliases: []string{"github copilot", "copilot", "microsoft copilot"}},
		{ID: "cursor", Aliases: []string{"cursor"}},
		{ID: "gemini-code-assist", Aliases: []string{"gemini", "google gemini", "bard"}},
		{ID: "amazon-q-developer", Aliases: []string{"amazon codewhisperer", "codewhisperer", "amazon q"}},
		{ID: "tabnine", Aliases: []string{"tabnine"}},
		{ID: "sourcegraph-cody", Aliases: []string{"sourcegraph cody", "cody"}},
		{ID: "replit-agent", Aliases: []string{"replit", "ghostwriter"}},
		{ID: "v0-vercel", Aliases: []string{"v0.dev", "vercel v0"}},
		{ID: "windsurf", Aliases: []string{"windsurf"}},
		{ID: "codeium", Aliases: []string{"codeium"}},
		{ID: "phind", Aliases: []string{"phind"}},
		{ID: "aider", Aliases: []string{"aider"}},
		{ID: "continue-dev", Aliases: []string{"continue.dev", "continue"}},
		{ID: "qodo", Aliases: []string{"qodo", "codiumai"}},
		{ID: "devin", Aliases: []string{"devin", "cognition devin"}},
		{ID: "cline", Aliases: []string{"cline"}},
		{ID: "bolt-new", Aliases: []string{"bolt.new"}},
		{ID: "lovable", Aliases: []string{"lovable"}},
	})
}
