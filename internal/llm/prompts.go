package llm

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Task identifies an analysis prompt template
type Task string

const (
	TaskSentimentAnalysis Task = "sentiment_analysis"
	TaskPriceExplanation  Task = "price_explanation"
	TaskRiskAssessment    Task = "risk_assessment"
	TaskRecommendation    Task = "recommendation"
	TaskMarketSummary     Task = "market_summary"
)

// Prompt is a rendered (system, user) message pair
type Prompt struct {
	System  string
	User    string
	Version string
}

// promptTemplate holds one unrendered template
type promptTemplate struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// placeholderPattern matches {variable_name} markers in templates
var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Registry holds versioned prompt templates per analysis task and renders
// them by variable substitution. Templates share a single registry-wide
// version tag: any prompt change bumps the shared version. Read-only after
// construction, safe for concurrent use. No side effects.
type Registry struct {
	version   string
	templates map[Task]promptTemplate
}

// registryVersion is bumped whenever any template changes, for
// reproducibility and A/B tracking of prompt revisions.
const registryVersion = "v1"

// NewRegistry creates the registry with the built-in templates
func NewRegistry() *Registry {
	return &Registry{
		version:   registryVersion,
		templates: builtinTemplates(),
	}
}

// LoadOverrides replaces built-in templates with entries from a YAML file.
// Unknown task names in the file are rejected.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt overrides: %w", err)
	}

	var overrides map[string]promptTemplate
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse prompt overrides: %w", err)
	}

	for name, tmpl := range overrides {
		task := Task(name)
		if _, ok := r.templates[task]; !ok {
			return fmt.Errorf("unknown prompt task in overrides: %q", name)
		}
		if tmpl.System == "" || tmpl.User == "" {
			return fmt.Errorf("prompt override %q must set both system and user", name)
		}
		r.templates[task] = tmpl
	}

	log.Info().Int("count", len(overrides)).Str("path", path).Msg("Loaded prompt template overrides")
	return nil
}

// Tasks returns the available task names, sorted
func (r *Registry) Tasks() []string {
	names := make([]string, 0, len(r.templates))
	for task := range r.templates {
		names = append(names, string(task))
	}
	sort.Strings(names)
	return names
}

// Version returns the registry-wide version tag
func (r *Registry) Version() string { return r.version }

// GetPrompt renders the template for a task. Every placeholder the template
// declares must have a value in vars; partial substitution is not allowed.
func (r *Registry) GetPrompt(task Task, vars map[string]string) (*Prompt, error) {
	tmpl, ok := r.templates[task]
	if !ok {
		return nil, fmt.Errorf("unknown prompt task: %q", task)
	}

	user := tmpl.User
	for name, value := range vars {
		user = strings.ReplaceAll(user, "{"+name+"}", value)
	}

	if m := placeholderPattern.FindStringSubmatch(user); m != nil {
		return nil, &MissingVariableError{Task: string(task), Variable: m[1]}
	}

	return &Prompt{
		System:  tmpl.System,
		User:    user,
		Version: r.version,
	}, nil
}

// builtinTemplates returns the default prompt set. JSON braces are doubled
// nowhere: placeholders use single braces with lowercase names only, so JSON
// examples with quoted keys pass through untouched.
func builtinTemplates() map[Task]promptTemplate {
	return map[Task]promptTemplate{
		TaskSentimentAnalysis: {
			System: "You are an expert financial analyst. Analyze sentiment objectively based on facts.",
			User: `Analyze the sentiment of the following financial news about {ticker}:

News Articles:
{news_text}

Provide:
1. Overall sentiment (bullish/bearish/neutral)
2. Confidence score (0.0 to 1.0)
3. Key themes (3-5 bullet points)
4. Potential market impact

Respond in JSON format:
{
    "sentiment": "bullish/bearish/neutral",
    "confidence": 0.85,
    "themes": ["theme1", "theme2", "theme3"],
    "impact": "short explanation"
}`,
		},

		TaskPriceExplanation: {
			System: "You are a professional market researcher. Explain price movements using factual analysis.",
			User: `Explain why {ticker} price moved as follows:

Price Data:
- Period: {start_date} to {end_date}
- Open: ${open_price}
- Close: ${close_price}
- High: ${high_price}
- Low: ${low_price}
- Change: {price_change}%

Recent News:
{news_summary}

Provide:
1. Primary drivers of price movement
2. Technical factors (if applicable)
3. Macro/market factors
4. Confidence in explanation (0.0 to 1.0)

Respond in JSON format:
{
    "primary_drivers": ["driver1", "driver2"],
    "technical_factors": ["factor1", "factor2"],
    "macro_factors": ["macro1", "macro2"],
    "confidence": 0.80
}`,
		},

		TaskRiskAssessment: {
			System: "You are a risk analyst. Assess risks objectively without speculation.",
			User: `Assess the investment risk for {ticker}:

Recent News:
{news_text}

Price Volatility:
- 7-day volatility: {volatility_7d}%
- 30-day volatility: {volatility_30d}%

Market Context:
{market_context}

Provide:
1. Overall risk level (low/medium/high)
2. Specific risk factors (3-5 items)
3. Risk score (0.0 = no risk, 1.0 = extreme risk)
4. Mitigation suggestions

Respond in JSON format:
{
    "risk_level": "medium",
    "risk_score": 0.65,
    "risk_factors": ["factor1", "factor2", "factor3"],
    "mitigations": ["mitigation1", "mitigation2"]
}`,
		},

		TaskRecommendation: {
			System: "You are a portfolio analyst. Provide balanced guidance based on data, NOT direct financial advice.",
			User: `Based on this analysis of {ticker}, provide guidance:

Analysis Summary:
{analysis_summary}

Current Price: ${current_price}
Sentiment: {sentiment}
Risk Level: {risk_level}

Provide:
1. Suggested action (BUY/HOLD/SELL/WAIT)
2. Rationale (3-5 bullet points)
3. Confidence level (0.0 to 1.0)
4. Key considerations

IMPORTANT: Frame as informational guidance, NOT direct financial advice.

Respond in JSON format:
{
    "action": "HOLD",
    "rationale": ["reason1", "reason2", "reason3"],
    "confidence": 0.75,
    "considerations": ["consider1", "consider2"]
}`,
		},

		TaskMarketSummary: {
			System: "You are a financial journalist. Summarize market events clearly and concisely.",
			User: `Summarize the recent market activity for {ticker}:

News:
{news_text}

Price Movement:
{price_summary}

Provide a concise summary (under 150 words) covering:
1. What happened
2. Why it matters
3. Immediate market reaction
4. Overall sentiment (bullish/bearish/neutral) and a recommendation (BUY/HOLD/SELL/WAIT)

Respond in JSON format:
{
    "summary": "concise summary text here",
    "sentiment": "bullish/bearish/neutral",
    "recommendation": "HOLD",
    "confidence": 0.7,
    "key_points": ["point1", "point2", "point3"]
}`,
		},
	}
}
