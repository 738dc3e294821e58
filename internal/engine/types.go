package engine

// --- Tool input types ---

type ContentFetchInput struct {
	URL     string `json:"url" jsonschema:"Video or article URL"`
	NoCache bool   `json:"no_cache,omitempty" jsonschema:"Bypass the acquisition cache"`
}

type TestGenerateInput struct {
	URL        string   `json:"url" jsonschema:"Video or article URL to build the test from"`
	Questions  int      `json:"questions,omitempty" jsonschema:"Number of questions (default: 10, max: 30)"`
	Difficulty string   `json:"difficulty,omitempty" jsonschema:"easy, medium (default) or hard"`
	Kinds      []string `json:"kinds,omitempty" jsonschema:"Question kinds: multiple-choice, true-false, open-ended (default: all)"`
	Save       bool     `json:"save,omitempty" jsonschema:"Store the generated test in the archive"`
}

type TestParseInput struct {
	Text string `json:"text" jsonschema:"Generated test text with Questions, --- divider and Answers sections"`
}

type TestHistoryInput struct {
	ID    int64 `json:"id,omitempty" jsonschema:"Archive id to fetch; omit to list recent tests"`
	Limit int   `json:"limit,omitempty" jsonschema:"Max tests to list (default: 20)"`
}

// --- Tool output types ---

type ContentFetchOutput struct {
	URL           string `json:"url"`
	Kind          string `json:"kind"`
	Source        string `json:"source"`
	Authoritative bool   `json:"authoritative"`
	Text          string `json:"text"`
	Title         string `json:"title,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
}
