// Package lexicon implements the obfuscation-tolerant profanity matcher.
// The pattern itself lives in lexicon.yaml, a versioned asset with its own
// regression suite, so lexicon updates never touch control flow.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultAsset []byte

// matchTimeout bounds backtracking on pathological input.
const matchTimeout = time.Second

// Asset is the on-disk schema of a lexicon file.
type Asset struct {
	Version int    `yaml:"version"`
	Strip   string `yaml:"strip"`
	Pattern string `yaml:"pattern"`
}

// Matcher tests normalized text against the compiled profanity pattern.
// It is stateless after construction and safe for concurrent use.
type Matcher struct {
	version int
	strip   string
	re      *regexp2.Regexp
}

// New compiles the embedded default lexicon.
func New() (*Matcher, error) {
	return fromAsset(defaultAsset)
}

// LoadFile compiles a lexicon from a YAML file, for deployments that ship
// their own pattern.
func LoadFile(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	m, err := fromAsset(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return m, nil
}

func fromAsset(data []byte) (*Matcher, error) {
	var a Asset
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if a.Pattern == "" {
		return nil, fmt.Errorf("lexicon has no pattern")
	}

	re, err := regexp2.Compile(a.Pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile lexicon pattern: %w", err)
	}
	re.MatchTimeout = matchTimeout

	return &Matcher{version: a.Version, strip: a.Strip, re: re}, nil
}

// Version reports the asset version, for status output.
func (m *Matcher) Version() int { return m.version }

// Normalize lower-cases text and strips the obfuscation punctuation set.
// Stripped characters merge their neighbours ("б-л-я" becomes "бля"), which
// is what defeats punctuation-based obfuscation.
func (m *Matcher) Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(m.strip, r) {
			return -1
		}
		return r
	}, strings.ToLower(text))
}

// Matches reports whether text contains a banned root after normalization.
// The search is boundary-delimited but positional: a qualifying occurrence
// anywhere in the text matches. Blank input is a definitive no-match, never
// an error.
func (m *Matcher) Matches(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	ok, err := m.re.MatchString(m.Normalize(text))
	if err != nil {
		// Backtracking timeout. Treat as no-match instead of failing the
		// pipeline; the message simply passes unmoderated.
		return false
	}
	return ok
}
