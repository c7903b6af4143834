package domain

import (
	"fmt"
	"strings"
)

// MatchRule matches a status when the status equals, or contains, the
// canonical token or one of its aliases. Matching is case-sensitive.
type MatchRule struct {
	Canonical string   `json:"canonical" yaml:"canonical"`
	Aliases   []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Rule builds a MatchRule.
func Rule(canonical string, aliases ...string) MatchRule {
	return MatchRule{Canonical: canonical, Aliases: aliases}
}

// Labels returns the canonical token followed by its aliases.
func (r MatchRule) Labels() []string {
	return append([]string{r.Canonical}, r.Aliases...)
}

// Match reports whether status matches the rule.
func (r MatchRule) Match(status string) bool {
	if status == "" {
		return false
	}
	for _, label := range r.Labels() {
		if label == "" {
			continue
		}
		if status == label || strings.Contains(status, label) {
			return true
		}
	}
	return false
}

// RuleSet is an ordered list of rules; the first matching rule wins.
type RuleSet []MatchRule

// Match returns the first rule matching status.
func (s RuleSet) Match(status string) (MatchRule, bool) {
	for _, r := range s {
		if r.Match(status) {
			return r, true
		}
	}
	return MatchRule{}, false
}

// CategoryRules holds the phase entry rules for one category.
type CategoryRules struct {
	Discovery RuleSet `json:"discovery" yaml:"discovery"`
	Delivery  RuleSet `json:"delivery" yaml:"delivery"`
}

// For returns the rule set for phase p.
func (c CategoryRules) For(p Phase) RuleSet {
	if p == PhaseDelivery {
		return c.Delivery
	}
	return c.Discovery
}

// RuleTable maps every category to its phase entry rules.
type RuleTable map[Category]CategoryRules

// Shared rule rows. "Delivering" is a discovery signal only: it means someone
// is executing, not that the work is done.
var (
	ruleBettingApproved = Rule("Betting-Approved", "Betting 승인", "Betting Approved")
	ruleDelivering      = Rule("Delivering")
	ruleDelivered       = Rule("Delivered")
	ruleDone            = Rule("Done", "완료")
	rulePlanning        = Rule("Planning", "기획 중")
	rulePitch           = Rule("Pitch")
	ruleExperimentReady = Rule("Experiment-Ready", "Experiment Ready")
	ruleInProgress      = Rule("In-Progress", "In Progress", "진행 중")
	ruleExperiment      = Rule("Experiment")
	ruleActive          = Rule("Active")
	ruleFeedbackWaiting = Rule("Feedback-Waiting", "Feedback Waiting", "피드백 대기")
	ruleReview          = Rule("Review", "검토")
	ruleArchive         = Rule("Archive")
	ruleMust            = Rule("Must")
	ruleShould          = Rule("Should")
	ruleCould           = Rule("Could")
)

// DefaultRuleTable returns the production rule table. Every delivery rule is
// repeated in the discovery set so that delivery entry implies discovery entry.
func DefaultRuleTable() RuleTable {
	backlogMarkers := RuleSet{ruleMust, ruleShould, ruleCould}
	finished := RuleSet{ruleArchive, ruleDone}

	internal := CategoryRules{
		Discovery: concat(RuleSet{ruleInProgress, ruleActive, ruleFeedbackWaiting, ruleReview}, backlogMarkers, finished),
		Delivery:  finished,
	}

	return RuleTable{
		CategoryShapeUp: {
			Discovery: RuleSet{ruleBettingApproved, ruleDelivering, ruleDelivered, ruleDone, rulePlanning, rulePitch},
			Delivery:  RuleSet{ruleDelivered, ruleDone},
		},
		CategoryExperiment: {
			Discovery: concat(RuleSet{ruleExperimentReady, ruleInProgress, ruleExperiment, ruleActive}, backlogMarkers, finished),
			Delivery:  finished,
		},
		CategoryRoadmap: internal,
		CategoryOther:   internal,
	}
}

// DoneRules is the status set the "done" tab selects.
func DoneRules() RuleSet {
	return RuleSet{ruleDelivered, ruleDone, ruleArchive}
}

func concat(sets ...RuleSet) RuleSet {
	var out RuleSet
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// Classify decides phase membership for status within category. Unknown
// categories and unmatched statuses classify as neither phase.
func (t RuleTable) Classify(category Category, status string) PhaseFlags {
	rules, ok := t[category]
	if !ok {
		return PhaseFlags{}
	}
	status = NormalizeText(status)
	_, inDiscovery := rules.Discovery.Match(status)
	_, inDelivery := rules.Delivery.Match(status)
	return PhaseFlags{InDiscovery: inDiscovery, InDelivery: inDelivery}
}

// Validate checks that every category has rules and that every delivery
// label also enters discovery.
func (t RuleTable) Validate() error {
	for _, c := range Categories {
		rules, ok := t[c]
		if !ok {
			return fmt.Errorf("rule table: no rules for category %s", c)
		}
		for _, r := range rules.Delivery {
			for _, label := range r.Labels() {
				if _, ok := rules.Discovery.Match(label); !ok {
					return fmt.Errorf("rule table: %s delivery label %q does not enter discovery", c, label)
				}
			}
		}
	}
	return nil
}
