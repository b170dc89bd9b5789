package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dhcgn/vmsg2csv/model"
)

// Options captures the filtering configuration.
type Options struct {
	IncludePhone   []string
	IncludeContent []string
	ExcludePhone   []string
	ExcludeContent []string
}

// Active reports whether any pattern is configured.
func (o Options) Active() bool {
	return len(o.IncludePhone)+len(o.IncludeContent)+len(o.ExcludePhone)+len(o.ExcludeContent) > 0
}

// Filter holds compiled regex patterns for selecting records.
type Filter struct {
	includeMode    bool
	excludeMode    bool
	includePhone   []*regexp.Regexp
	includeContent []*regexp.Regexp
	excludePhone   []*regexp.Regexp
	excludeContent []*regexp.Regexp

	mu   sync.Mutex
	hits map[string]int
}

// Stats holds per-pattern hit counts.
type Stats struct {
	IncludePhonePatterns   []string
	IncludeContentPatterns []string
	ExcludePhonePatterns   []string
	ExcludeContentPatterns []string
	Hits                   map[string]int
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includePhone, err := compilePatterns(opts.IncludePhone)
	if err != nil {
		return nil, fmt.Errorf("compile include-phone pattern: %w", err)
	}
	includeContent, err := compilePatterns(opts.IncludeContent)
	if err != nil {
		return nil, fmt.Errorf("compile include-content pattern: %w", err)
	}
	excludePhone, err := compilePatterns(opts.ExcludePhone)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-phone pattern: %w", err)
	}
	excludeContent, err := compilePatterns(opts.ExcludeContent)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-content pattern: %w", err)
	}

	includeActive := len(includePhone) > 0 || len(includeContent) > 0
	excludeActive := len(excludePhone) > 0 || len(excludeContent) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{
		includeMode:    includeActive,
		excludeMode:    excludeActive,
		includePhone:   includePhone,
		includeContent: includeContent,
		excludePhone:   excludePhone,
		excludeContent: excludeContent,
		hits:           make(map[string]int),
	}, nil
}

// Allows returns true if the record passes the filter criteria.
func (f *Filter) Allows(rec model.Record) bool {
	if f.includeMode {
		return f.matchAny(f.includePhone, rec.Phone) || f.matchAny(f.includeContent, rec.Content)
	}

	if f.excludeMode {
		if f.matchAny(f.excludePhone, rec.Phone) || f.matchAny(f.excludeContent, rec.Content) {
			return false
		}
	}

	return true
}

// Apply returns the records that pass the filter, keeping their order.
func (f *Filter) Apply(records []model.Record) []model.Record {
	if !f.includeMode && !f.excludeMode {
		return records
	}
	kept := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if f.Allows(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// GetStats returns the configured patterns and how often each one matched.
func (f *Filter) GetStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	hits := make(map[string]int, len(f.hits))
	for k, v := range f.hits {
		hits[k] = v
	}
	return Stats{
		IncludePhonePatterns:   patternStrings(f.includePhone),
		IncludeContentPatterns: patternStrings(f.includeContent),
		ExcludePhonePatterns:   patternStrings(f.excludePhone),
		ExcludeContentPatterns: patternStrings(f.excludeContent),
		Hits:                   hits,
	}
}

func (f *Filter) matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			f.mu.Lock()
			f.hits[re.String()]++
			f.mu.Unlock()
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func patternStrings(patterns []*regexp.Regexp) []string {
	out := make([]string, 0, len(patterns))
	for _, re := range patterns {
		out = append(out, re.String())
	}
	return out
}
