// Package catalog holds the fixed set of model backends the arena supports.
// The catalog is loaded once from configuration at startup and passed
// explicitly to consumers; there is no mutable global.
package catalog

// Entry is one supported model backend.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalog is an immutable lookup of supported models.
type Catalog struct {
	entries []Entry
	byID    map[string]Entry
}

func New(entries []Entry) *Catalog {
	byID := make(map[string]Entry, len(entries))
	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, dup := byID[e.ID]; dup {
			continue
		}
		byID[e.ID] = e
		list = append(list, e)
	}
	return &Catalog{entries: list, byID: byID}
}

// Get returns the entry for a model id.
func (c *Catalog) Get(id string) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// DisplayName returns the human label for a model id, falling back to the id
// itself for unknown models.
func (c *Catalog) DisplayName(id string) string {
	if e, ok := c.byID[id]; ok {
		return e.Name
	}
	return id
}

// List returns the catalog entries in configuration order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Default is the supported model list shipped with the service, used when the
// configuration does not override it.
func Default() []Entry {
	return []Entry{
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini"},
		{ID: "openai/gpt-4-turbo-preview", Name: "GPT-4 Turbo"},
		{ID: "openai/gpt-4", Name: "GPT-4"},
		{ID: "openai/gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
		{ID: "google/gemini-2.0-flash-001", Name: "Gemini 2.0 Flash"},
		{ID: "google/learnlm-1.5-pro-experimental:free", Name: "Gemini 1.5 Pro"},
		{ID: "qwen/qwen2.5-vl-32b-instruct:free", Name: "qwen2.5-vl-32b-instruct"},
		{ID: "qwen/qwen2.5-vl-72b-instruct:free", Name: "qwen2.5-vl-72b-instruct"},
		{ID: "x-ai/grok-2-vision-1212", Name: "x-ai-grok-2-vision-1212"},
		{ID: "x-ai/grok-2-1212", Name: "x-ai-grok-2-1212"},
		{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 sonnet"},
		{ID: "anthropic/claude-3-haiku", Name: "Claude 3 haiku"},
		{ID: "meta-llama/llama-2-70b-chat", Name: "Llama 2 70B"},
		{ID: "meta-llama/llama-2-13b-chat", Name: "Llama 2 13B"},
		{ID: "mistral/mixtral-8x7b", Name: "Mixtral 8x7B"},
		{ID: "mistral/mistral-medium", Name: "Mistral Medium"},
		{ID: "mistral/mistral-small", Name: "Mistral Small"},
		{ID: "deepseek/deepseek-chat-v3-0324:free", Name: "DeepSeek v3 0324"},
		{ID: "deepseek/deepseek-r1:free", Name: "DeepSeek r1"},
		{ID: "deepseek/deepseek-coder", Name: "DeepSeek Coder"},
		{ID: "deepseek/deepseek-chat", Name: "DeepSeek Chat"},
	}
}
