package resource

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

//go:embed words.txt
var embeddedWords []byte

// SpellChecker is the spelling oracle consumed by naming and comment rules.
type SpellChecker interface {
	Spell(word string) bool
}

// DefaultExemptPatterns are words that are never checked: numbers, hex
// literals, URLs and short upper-case acronyms with an optional plural s.
var DefaultExemptPatterns = []string{
	`^[0-9]+([.,][0-9]+)*$`,
	`^0[xX][0-9a-fA-F]+$`,
	`^(https?|ftp)://`,
	`^[A-Z0-9]{2,}s?$`,
}

// Dictionary is a word-list backed SpellChecker. The word list is loaded
// on first use and memoized until Reset.
type Dictionary struct {
	extra    []string
	wordFile string
	exempt   []*regexp.Regexp
	logger   *slog.Logger
	words    *Lazy[map[string]struct{}]
}

// DictionaryOption configures a Dictionary.
type DictionaryOption func(*dictionaryConfig)

type dictionaryConfig struct {
	extra    []string
	wordFile string
	exempt   []string
	logger   *slog.Logger
}

// WithWords adds words to the embedded list.
func WithWords(words ...string) DictionaryOption {
	return func(c *dictionaryConfig) { c.extra = append(c.extra, words...) }
}

// WithWordFile adds the words of a file, one per line.
func WithWordFile(path string) DictionaryOption {
	return func(c *dictionaryConfig) { c.wordFile = path }
}

// WithExemptPatterns adds regular expressions for words that always pass.
func WithExemptPatterns(patterns ...string) DictionaryOption {
	return func(c *dictionaryConfig) { c.exempt = append(c.exempt, patterns...) }
}

// WithDictionaryLogger sets the logger used when the word file fails to load.
func WithDictionaryLogger(l *slog.Logger) DictionaryOption {
	return func(c *dictionaryConfig) { c.logger = l }
}

// NewDictionary compiles the exempt patterns; the word list itself is
// loaded lazily.
func NewDictionary(opts ...DictionaryOption) (*Dictionary, error) {
	cfg := dictionaryConfig{exempt: append([]string(nil), DefaultExemptPatterns...)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	d := &Dictionary{
		extra:    cfg.extra,
		wordFile: cfg.wordFile,
		logger:   cfg.logger,
	}
	for _, p := range cfg.exempt {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exempt pattern %q: %w", p, err)
		}
		d.exempt = append(d.exempt, re)
	}
	d.words = NewLazy(d.load)
	return d, nil
}

// Spell reports whether word is recognized. Exempt words and empty input
// pass. Simple inflections (plural s, -ed, -ing, -ly, -ies) are reduced to
// their stem before giving up.
func (d *Dictionary) Spell(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return true
	}
	for _, re := range d.exempt {
		if re.MatchString(word) {
			return true
		}
	}
	words, err := d.words.Get()
	if err != nil {
		return false
	}
	w := normalize(word)
	if _, ok := words[w]; ok {
		return true
	}
	for _, stem := range stems(w) {
		if _, ok := words[stem]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of known words, loading the list if needed.
func (d *Dictionary) Len() int {
	words, err := d.words.Get()
	if err != nil {
		return 0
	}
	return len(words)
}

// Reset drops the loaded word list.
func (d *Dictionary) Reset() {
	d.words.Reset()
}

func (d *Dictionary) load() (map[string]struct{}, error) {
	words := make(map[string]struct{}, 1024)
	addLines(words, embeddedWords)
	for _, w := range d.extra {
		if w = strings.TrimSpace(w); w != "" {
			words[normalize(w)] = struct{}{}
		}
	}
	if d.wordFile != "" {
		content, err := os.ReadFile(d.wordFile)
		if err != nil {
			d.logger.Warn("failed to read word file",
				slog.String("path", d.wordFile),
				slog.String("error", err.Error()))
		} else {
			addLines(words, content)
		}
	}
	return words, nil
}

func addLines(words map[string]struct{}, content []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[normalize(line)] = struct{}{}
	}
}

func normalize(word string) string {
	return cases.Fold().String(norm.NFC.String(word))
}

func stems(w string) []string {
	var out []string
	add := func(s string) {
		if len(s) >= 3 {
			out = append(out, s)
		}
	}
	switch {
	case strings.HasSuffix(w, "'s"):
		add(strings.TrimSuffix(w, "'s"))
	case strings.HasSuffix(w, "ies"), strings.HasSuffix(w, "ied"):
		add(w[:len(w)-3] + "y")
	case strings.HasSuffix(w, "ing"):
		add(w[:len(w)-3])
		add(w[:len(w)-3] + "e")
	case strings.HasSuffix(w, "ed"):
		add(w[:len(w)-2])
		add(w[:len(w)-1])
	case strings.HasSuffix(w, "es"):
		add(w[:len(w)-2])
		add(w[:len(w)-1])
	case strings.HasSuffix(w, "ly"):
		add(w[:len(w)-2])
	case strings.HasSuffix(w, "s"):
		add(w[:len(w)-1])
	}
	return out
}
