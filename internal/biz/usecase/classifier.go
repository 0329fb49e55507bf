package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

// DefaultFeatureSentinel is the image filename that configures the daily post
const DefaultFeatureSentinel = "mittwoch.png"

var laughterPattern = regexp.MustCompile(`(?i)^l+(?:[oeu]+l+)+$`)

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenInt
	tokenRest
)

type patternToken struct {
	kind    tokenKind
	literal string
}

// ruleArgs holds the captured argument tokens of a matched rule, in pattern order
type ruleArgs struct {
	ints []string
	rest string
}

// GrammarRule maps a token pattern to a command.
// Pattern tokens are literal words, <int> (one integer argument) or <rest> (all remaining words).
type GrammarRule struct {
	Pattern string
	tokens  []patternToken
	build   func(args ruleArgs) (domain.Command, error)
}

func newRule(pattern string, build func(args ruleArgs) (domain.Command, error)) GrammarRule {
	var tokens []patternToken
	for _, field := range strings.Fields(pattern) {
		switch field {
		case "<int>":
			tokens = append(tokens, patternToken{kind: tokenInt})
		case "<rest>":
			tokens = append(tokens, patternToken{kind: tokenRest})
		default:
			tokens = append(tokens, patternToken{kind: tokenLiteral, literal: field})
		}
	}
	return GrammarRule{Pattern: pattern, tokens: tokens, build: build}
}

func constRule(pattern string, cmd domain.Command) GrammarRule {
	return newRule(pattern, func(ruleArgs) (domain.Command, error) { return cmd, nil })
}

// match reports whether the rule matches and how many literal tokens it fixed
func (r GrammarRule) match(words, lower []string) (ruleArgs, int, bool) {
	var args ruleArgs
	literals := 0
	i := 0
	for _, tok := range r.tokens {
		switch tok.kind {
		case tokenLiteral:
			if i >= len(lower) || lower[i] != tok.literal {
				return args, 0, false
			}
			literals++
			i++
		case tokenInt:
			if i >= len(words) {
				return args, 0, false
			}
			args.ints = append(args.ints, words[i])
			i++
		case tokenRest:
			args.rest = strings.Join(words[i:], " ")
			i = len(words)
		}
	}
	if i != len(words) {
		return args, 0, false
	}
	return args, literals, true
}

// DefaultGrammar is the bot's command table
func DefaultGrammar() []GrammarRule {
	return []GrammarRule{
		constRule("xkcd ping", domain.Command{Kind: domain.CommandPing}),
		constRule("xkcd latest", domain.Command{Kind: domain.CommandComic}),
		newRule("xkcd <int>", func(args ruleArgs) (domain.Command, error) {
			n, err := parseUint(args.ints[0])
			if err != nil {
				return domain.Command{}, err
			}
			num := int(n)
			return domain.Command{Kind: domain.CommandComic, ComicNum: &num}, nil
		}),
		constRule("inspirobot", domain.Command{Kind: domain.CommandInspiration}),
		constRule("lolcount", domain.Command{Kind: domain.CommandGetCounter}),
		newRule("lolcount set <int>", func(args ruleArgs) (domain.Command, error) {
			n, err := parseUint(args.ints[0])
			if err != nil {
				return domain.Command{}, err
			}
			return domain.Command{Kind: domain.CommandSetCounter, Count: n}, nil
		}),
		constRule("mittwoch", domain.Command{Kind: domain.CommandFeatureStatus}),
		constRule("mittwoch on", domain.Command{Kind: domain.CommandFeatureToggle, Enabled: true}),
		constRule("mittwoch enable", domain.Command{Kind: domain.CommandFeatureToggle, Enabled: true}),
		constRule("mittwoch off", domain.Command{Kind: domain.CommandFeatureToggle, Enabled: false}),
		constRule("mittwoch disable", domain.Command{Kind: domain.CommandFeatureToggle, Enabled: false}),
		newRule("mittwoch text <rest>", func(args ruleArgs) (domain.Command, error) {
			return domain.Command{Kind: domain.CommandFeatureSetText, Text: args.rest}, nil
		}),
	}
}

func parseUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid number", s)
	}
	return n, nil
}

// Classifier turns message text into commands
type Classifier struct {
	rules    []GrammarRule
	sentinel string
}

// NewClassifier creates a classifier with the default grammar.
// sentinel is the image filename that configures the daily post.
func NewClassifier(sentinel string) *Classifier {
	if sentinel == "" {
		sentinel = DefaultFeatureSentinel
	}
	return &Classifier{
		rules:    DefaultGrammar(),
		sentinel: sentinel,
	}
}

// Sentinel returns the configuring image filename
func (c *Classifier) Sentinel() string {
	return c.sentinel
}

// Classify maps text to a command. ok is false for ordinary chat messages.
func (c *Classifier) Classify(text string) (cmd domain.Command, ok bool) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return domain.Command{}, false
	}

	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
		if IsLaughter(w) {
			return domain.Command{Kind: domain.CommandIncrementCounter}, true
		}
	}

	best := -1
	bestLiterals := -1
	var bestArgs ruleArgs
	for i, rule := range c.rules {
		args, literals, matched := rule.match(words, lower)
		if matched && literals > bestLiterals {
			best, bestLiterals, bestArgs = i, literals, args
		}
	}
	if best < 0 {
		return domain.Command{}, false
	}

	cmd, err := c.rules[best].build(bestArgs)
	if err != nil {
		return domain.Command{Kind: domain.CommandParseFailure, Reason: err.Error()}, true
	}
	return cmd, true
}

// IsSentinel reports whether an image filename configures the daily feature
func (c *Classifier) IsSentinel(filename string) bool {
	return strings.EqualFold(strings.TrimSpace(filename), c.sentinel)
}

// ClassifyImage maps an image message to a command. Only the sentinel filename is a command.
func (c *Classifier) ClassifyImage(filename string, img domain.Image) (domain.Command, bool) {
	if !c.IsSentinel(filename) {
		return domain.Command{}, false
	}
	return domain.Command{Kind: domain.CommandFeatureConfigure, Image: &img}, true
}

// IsLaughter reports whether a single word is laughter ("lol", "LOOOL", "lol!")
func IsLaughter(word string) bool {
	word = strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return laughterPattern.MatchString(word)
}
