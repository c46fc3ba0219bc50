package llm

// GenerationRequest is the normalized input for every provider adapter.
type GenerationRequest struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// GenerationResult is the normalized output of one LLM call.
// Produced once per call, immutable afterwards.
type GenerationResult struct {
	Text       string `json:"text"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// chatRequest is the OpenAI-style chat-completions request envelope
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// chatResponse is the OpenAI-style chat-completions response envelope
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// hfGenerated is one element of the hosted inference API's response. The API
// returns either a bare object or a list of these, so decoding tries both.
type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

// ollamaRequest is the local daemon's /api/generate request
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// ollamaResponse is the local daemon's /api/generate response
type ollamaResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
}
