package relevance

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules decides whether a question belongs to the assistant's domain and
// whether a reply stayed inside it.
type Rules struct {
	DomainKeywords      []string `yaml:"domain_keywords"`
	ResponseKeywords    []string `yaml:"response_keywords"`
	OffDomainIndicators []string `yaml:"off_domain_indicators"`
	PassthroughPhrases  []string `yaml:"passthrough_phrases"`
	MaxResponseChars    int      `yaml:"max_response_chars"`
	RedirectMessage     string   `yaml:"redirect_message"`
	OffTopicMessage     string   `yaml:"off_topic_message"`
	LongResponseMessage string   `yaml:"long_response_message"`
	PromptTemplate      string   `yaml:"prompt_template"`

	prompt *template.Template
}

const defaultMaxResponseChars = 500

// Default returns the built-in rule set.
func Default() *Rules {
	r, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("relevance: invalid built-in rules: %v", err))
	}
	return r
}

// Load reads a rule set from a YAML file.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return r, nil
}

func Parse(data []byte) (*Rules, error) {
	r := &Rules{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	if r.MaxResponseChars <= 0 {
		r.MaxResponseChars = defaultMaxResponseChars
	}

	if r.PromptTemplate != "" {
		tmpl, err := template.New("prompt").Option("missingkey=error").Parse(r.PromptTemplate)
		if err != nil {
			return nil, fmt.Errorf("parse prompt template: %w", err)
		}
		r.prompt = tmpl
	}

	return r, nil
}

// Related reports whether text mentions any domain keyword.
func (r *Rules) Related(text string) bool {
	return containsAny(text, r.DomainKeywords)
}

// Gate returns the redirect message and false when text is off-domain.
func (r *Rules) Gate(text string) (string, bool) {
	if r.Related(text) {
		return "", true
	}
	return r.RedirectMessage, false
}

// Filter replaces replies that look unrelated to the domain with a canned
// notice. Replies that already redirect the user are returned unchanged.
func (r *Rules) Filter(response string) string {
	if containsAny(response, r.PassthroughPhrases) {
		return response
	}

	onTopic := containsAny(response, r.ResponseKeywords)

	if !onTopic && containsAny(response, r.OffDomainIndicators) {
		return r.OffTopicMessage
	}

	if !onTopic && utf8.RuneCountInString(response) > r.MaxResponseChars {
		return r.LongResponseMessage
	}

	return response
}

// Wrap embeds the question in the prompt template. Without a template the
// question is returned as is.
func (r *Rules) Wrap(question string) (string, error) {
	if r.prompt == nil {
		return question, nil
	}

	var sb strings.Builder
	if err := r.prompt.Execute(&sb, struct{ Question string }{question}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return sb.String(), nil
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
