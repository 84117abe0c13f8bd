package assistant

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"planwise/internal/domain"
)

// Risk grades how likely a text is to be a prompt-injection attempt.
type Risk int

const (
	RiskLow Risk = iota
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskHigh:
		return "high"
	case RiskMedium:
		return "medium"
	default:
		return "low"
	}
}

// Score thresholds
const (
	mediumRiskScore = 3
	highRiskScore   = 6
)

type screeningRule struct {
	name    string
	pattern *regexp.Regexp
	weight  int
}

// Each rule counts once per text regardless of how often it matches.
var screeningRules = []screeningRule{
	{
		name:    "override_instructions",
		pattern: regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\b[^.\n]{0,40}\b(previous|prior|above|earlier|all|your|system)\b[^.\n]{0,20}\b(instructions?|prompts?|rules|directions)\b`),
		weight:  6,
	},
	{
		name:    "reveal_prompt",
		pattern: regexp.MustCompile(`(?i)\b(reveal|show|print|repeat|output|leak)\b[^.\n]{0,30}\b(system|hidden|initial)\s+(prompt|instructions?|message)`),
		weight:  4,
	},
	{
		name:    "chat_markup",
		pattern: regexp.MustCompile(`(?im)(<\|im_(start|end)\|>|\[/?INST\]|<<SYS>>|</?(system|assistant)>|^\s*(system|assistant)\s*:)`),
		weight:  4,
	},
	{
		name:    "jailbreak",
		pattern: regexp.MustCompile(`(?i)\b(jailbreak|jailbroken|DAN mode|developer mode|do anything now)\b`),
		weight:  4,
	},
	{
		name:    "role_override",
		pattern: regexp.MustCompile(`(?i)(\byou are now\b|\bfrom now on,? you (are|will)\b|\bpretend (to be|you are)\b|\bact as (an? )?(unrestricted|unfiltered)\b)`),
		weight:  3,
	},
	{
		name:    "exfiltration",
		pattern: regexp.MustCompile(`(?i)\b(send|post|upload|email|exfiltrate)\b[^.\n]{0,40}\b(api[_ ]?keys?|passwords?|secrets?|credentials?|tokens?)\b`),
		weight:  3,
	},
}

// Screening is the outcome of scoring one text.
type Screening struct {
	Score   int
	Matched []string
	Risk    Risk
}

// Screen scores text against the injection rules.
func Screen(text string) Screening {
	var s Screening
	for _, rule := range screeningRules {
		if rule.pattern.MatchString(text) {
			s.Score += rule.weight
			s.Matched = append(s.Matched, rule.name)
		}
	}
	switch {
	case s.Score >= highRiskScore:
		s.Risk = RiskHigh
	case s.Score >= mediumRiskScore:
		s.Risk = RiskMedium
	}
	return s
}

// StripControl removes control and invisible formatting characters, keeping
// newlines and tabs.
func StripControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r):
			return -1
		case unicode.Is(unicode.Cf, r):
			// zero-width and bidi override characters
			return -1
		}
		return r
	}, text)
}

// checkInput cleans user-supplied text and rejects high-risk input. field
// names the input in the error message.
func (s *service) checkInput(field, text string) (string, error) {
	cleaned := StripControl(text)
	result := Screen(cleaned)

	switch result.Risk {
	case RiskHigh:
		s.logger.Warn("prompt injection rejected",
			"field", field,
			"score", result.Score,
			"rules", result.Matched,
		)
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("%s: content looks like an attempt to override the assistant's instructions", field),
		}
	case RiskMedium:
		s.logger.Info("suspicious assistant input allowed",
			"field", field,
			"score", result.Score,
			"rules", result.Matched,
		)
	}
	return cleaned, nil
}
