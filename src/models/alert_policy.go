package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"screentime-bar/src/lib"
)

// PreLimitRule fires once when remaining time drops to MinutesBeforeLimit.
type PreLimitRule struct {
	MinutesBeforeLimit int    `yaml:"minutes_before_limit" json:"minutes_before_limit"`
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	Message            string `yaml:"message" json:"message"`
	Voice              string `yaml:"voice,omitempty" json:"voice,omitempty"`
}

// PostLimitRule fires once MinutesAfterLimit after the limit was reached.
type PostLimitRule struct {
	MinutesAfterLimit int    `yaml:"minutes_after_limit" json:"minutes_after_limit"`
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	Message           string `yaml:"message" json:"message"`
	Voice             string `yaml:"voice,omitempty" json:"voice,omitempty"`
	Sound             string `yaml:"sound,omitempty" json:"sound,omitempty"`
}

// LimitReachedRule fires at the moment the limit is crossed.
type LimitReachedRule struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Message string `yaml:"message" json:"message"`
	Voice   string `yaml:"voice,omitempty" json:"voice,omitempty"`
}

// AlertPolicy is the ordered rule set consulted on every tick.
// PreLimit is ordered by strictly decreasing MinutesBeforeLimit and PostLimit
// by strictly increasing MinutesAfterLimit.
type AlertPolicy struct {
	PreLimit     []PreLimitRule    `yaml:"pre_limit" json:"pre_limit"`
	PostLimit    []PostLimitRule   `yaml:"post_limit" json:"post_limit"`
	LimitReached *LimitReachedRule `yaml:"limit_reached" json:"limit_reached"`
}

// DefaultAlertPolicy returns the rule set used when none is persisted.
func DefaultAlertPolicy() *AlertPolicy {
	return &AlertPolicy{
		PreLimit: []PreLimitRule{
			{MinutesBeforeLimit: 15, Enabled: true, Message: "{minutes} minutes of screen time left."},
			{MinutesBeforeLimit: 5, Enabled: true, Message: "Only {minutes} minutes left. Time to wrap up.", Voice: "Samantha"},
			{MinutesBeforeLimit: 1, Enabled: true, Message: "One minute left. Save your work now.", Voice: "Samantha"},
		},
		PostLimit: []PostLimitRule{
			{MinutesAfterLimit: 1, Enabled: true, Message: "Screen time is over. Please stop now."},
			{MinutesAfterLimit: 5, Enabled: true, Message: "You are {minutes} minutes over your limit.", Voice: "Samantha"},
			{MinutesAfterLimit: 10, Enabled: true, Message: "Still here? You are {minutes} minutes over.", Voice: "Samantha", Sound: "/System/Library/Sounds/Sosumi.aiff"},
			{MinutesAfterLimit: 20, Enabled: true, Message: "{minutes} minutes over. Turn the computer off.", Voice: "Samantha", Sound: "/System/Library/Sounds/Basso.aiff"},
			{MinutesAfterLimit: 30, Enabled: true, Message: "Half an hour over the limit.", Voice: "Samantha", Sound: "/System/Library/Sounds/Basso.aiff"},
		},
		LimitReached: DefaultLimitReachedRule(),
	}
}

// DefaultLimitReachedRule returns the stock limit-reached alert.
func DefaultLimitReachedRule() *LimitReachedRule {
	return &LimitReachedRule{
		Enabled: true,
		Message: "Screen time is up for today.",
		Voice:   "Samantha",
	}
}

// Clone returns a deep copy safe to hand to renderers.
func (p *AlertPolicy) Clone() *AlertPolicy {
	out := &AlertPolicy{
		PreLimit:  append([]PreLimitRule(nil), p.PreLimit...),
		PostLimit: append([]PostLimitRule(nil), p.PostLimit...),
	}
	if p.LimitReached != nil {
		rule := *p.LimitReached
		out.LimitReached = &rule
	}
	return out
}

// Normalize repairs a persisted policy in place: it drops out-of-range and
// duplicate thresholds, restores the required ordering, and fills a missing
// limit-reached rule. It reports whether anything changed.
func (p *AlertPolicy) Normalize() bool {
	changed := false

	pre := make([]PreLimitRule, 0, len(p.PreLimit))
	seenPre := make(map[int]bool)
	for _, rule := range p.PreLimit {
		if !validMinutes(rule.MinutesBeforeLimit) || seenPre[rule.MinutesBeforeLimit] {
			changed = true
			continue
		}
		seenPre[rule.MinutesBeforeLimit] = true
		pre = append(pre, rule)
	}
	if !sort.SliceIsSorted(pre, func(i, j int) bool { return pre[i].MinutesBeforeLimit > pre[j].MinutesBeforeLimit }) {
		sort.SliceStable(pre, func(i, j int) bool { return pre[i].MinutesBeforeLimit > pre[j].MinutesBeforeLimit })
		changed = true
	}

	post := make([]PostLimitRule, 0, len(p.PostLimit))
	seenPost := make(map[int]bool)
	for _, rule := range p.PostLimit {
		if !validMinutes(rule.MinutesAfterLimit) || seenPost[rule.MinutesAfterLimit] {
			changed = true
			continue
		}
		seenPost[rule.MinutesAfterLimit] = true
		post = append(post, rule)
	}
	if !sort.SliceIsSorted(post, func(i, j int) bool { return post[i].MinutesAfterLimit < post[j].MinutesAfterLimit }) {
		sort.SliceStable(post, func(i, j int) bool { return post[i].MinutesAfterLimit < post[j].MinutesAfterLimit })
		changed = true
	}

	if p.LimitReached == nil {
		p.LimitReached = DefaultLimitReachedRule()
		changed = true
	}

	p.PreLimit = pre
	p.PostLimit = post
	return changed
}

// Validate checks an edited policy without repairing it.
// Returns error describing first validation failure found.
func (p *AlertPolicy) Validate() error {
	for i, rule := range p.PreLimit {
		if !validMinutes(rule.MinutesBeforeLimit) {
			return lib.ValidationError(fmt.Sprintf("pre-limit rule %d: minutes must be between 1 and %d", i+1, MaxMinutesPerDay)).
				WithContext("minutes", rule.MinutesBeforeLimit)
		}
		if i > 0 && rule.MinutesBeforeLimit >= p.PreLimit[i-1].MinutesBeforeLimit {
			return lib.ValidationError(fmt.Sprintf("pre-limit rule %d: minutes must be strictly less than rule %d (%d)", i+1, i, p.PreLimit[i-1].MinutesBeforeLimit)).
				WithContext("minutes", rule.MinutesBeforeLimit)
		}
	}

	for i, rule := range p.PostLimit {
		if !validMinutes(rule.MinutesAfterLimit) {
			return lib.ValidationError(fmt.Sprintf("post-limit rule %d: minutes must be between 1 and %d", i+1, MaxMinutesPerDay)).
				WithContext("minutes", rule.MinutesAfterLimit)
		}
		if i > 0 && rule.MinutesAfterLimit <= p.PostLimit[i-1].MinutesAfterLimit {
			return lib.ValidationError(fmt.Sprintf("post-limit rule %d: minutes must be strictly greater than rule %d (%d)", i+1, i, p.PostLimit[i-1].MinutesAfterLimit)).
				WithContext("minutes", rule.MinutesAfterLimit)
		}
	}

	if p.LimitReached == nil {
		return lib.ValidationError("limit_reached rule is required")
	}

	return nil
}

// Summary renders the thresholds for audit lines, e.g. "pre=15,5,1 post=1,5".
func (p *AlertPolicy) Summary() string {
	pre := make([]string, len(p.PreLimit))
	for i, rule := range p.PreLimit {
		pre[i] = strconv.Itoa(rule.MinutesBeforeLimit)
	}
	post := make([]string, len(p.PostLimit))
	for i, rule := range p.PostLimit {
		post[i] = strconv.Itoa(rule.MinutesAfterLimit)
	}
	return "pre=" + strings.Join(pre, ",") + " post=" + strings.Join(post, ",")
}

// RenderMessage fills the {minutes} placeholder of an alert message.
func RenderMessage(message string, minutes int) string {
	return lib.ExpandPlaceholders(message, map[string]string{"minutes": strconv.Itoa(minutes)})
}

func validMinutes(m int) bool {
	return m >= 1 && m <= MaxMinutesPerDay
}
