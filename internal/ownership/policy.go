package ownership

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultThreshold is the effective ownership, in percent, at which an
	// individual becomes a UBO.
	DefaultThreshold = 25.0
	// DefaultSumTolerance absorbs rounding in declared shareholdings.
	DefaultSumTolerance = 0.5

	thresholdSlack = 1e-9
)

// Policy is the regulatory rule set applied to one resolution.
type Policy struct {
	Name         string
	Threshold    float64
	SumTolerance float64
	Control      ControlRule
}

// DefaultPolicy returns the 25% / transitive-control rule set.
func DefaultPolicy() Policy {
	return Policy{
		Name:         "default",
		Threshold:    DefaultThreshold,
		SumTolerance: DefaultSumTolerance,
		Control:      TransitiveControl{},
	}
}

func (p Policy) withDefaults() Policy {
	if p.Name == "" {
		p.Name = "default"
	}
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	if p.SumTolerance < 0 {
		p.SumTolerance = DefaultSumTolerance
	}
	if p.Control == nil {
		p.Control = TransitiveControl{}
	}
	return p
}

// meetsThreshold is inclusive: exactly 25.0 qualifies.
func (p Policy) meetsThreshold(pct float64) bool {
	return pct+thresholdSlack >= p.Threshold
}

// PolicySet maps jurisdictions onto policies.
type PolicySet struct {
	fallback      Policy
	jurisdictions map[string]Policy
}

// NewPolicySet creates a set that applies def to every jurisdiction.
func NewPolicySet(def Policy) *PolicySet {
	return &PolicySet{
		fallback:      def.withDefaults(),
		jurisdictions: make(map[string]Policy),
	}
}

// Set registers a jurisdiction-specific policy.
func (s *PolicySet) Set(jurisdiction string, p Policy) {
	if p.Name == "" {
		p.Name = jurisdiction
	}
	s.jurisdictions[normalizeJurisdiction(jurisdiction)] = p.withDefaults()
}

// Default returns the policy used when no jurisdiction matches.
func (s *PolicySet) Default() Policy {
	return s.fallback
}

// For returns the policy of a jurisdiction, or the default.
func (s *PolicySet) For(jurisdiction string) Policy {
	if s == nil {
		return DefaultPolicy()
	}
	if p, ok := s.jurisdictions[normalizeJurisdiction(jurisdiction)]; ok {
		return p
	}
	return s.fallback
}

func normalizeJurisdiction(j string) string {
	return strings.ToUpper(strings.TrimSpace(j))
}

type policyFile struct {
	Default       policyOverride            `yaml:"default"`
	Jurisdictions map[string]policyOverride `yaml:"jurisdictions"`
}

type policyOverride struct {
	Threshold    *float64 `yaml:"ubo_threshold"`
	SumTolerance *float64 `yaml:"sum_tolerance"`
	ControlRule  *string  `yaml:"control_rule"`
}

func (o policyOverride) apply(base Policy, name string) (Policy, error) {
	p := base
	p.Name = name
	if o.Threshold != nil {
		if *o.Threshold <= 0 || *o.Threshold > 100 {
			return Policy{}, fmt.Errorf("policy %s: ubo_threshold %.2f out of range", name, *o.Threshold)
		}
		p.Threshold = *o.Threshold
	}
	if o.SumTolerance != nil {
		if *o.SumTolerance < 0 {
			return Policy{}, fmt.Errorf("policy %s: sum_tolerance must not be negative", name)
		}
		p.SumTolerance = *o.SumTolerance
	}
	if o.ControlRule != nil {
		rule, err := ControlRuleByName(*o.ControlRule)
		if err != nil {
			return Policy{}, fmt.Errorf("policy %s: %w", name, err)
		}
		p.Control = rule
	}
	return p, nil
}

// ParsePolicies reads a YAML policy document layered over base:
//
//	default:
//	  ubo_threshold: 25
//	jurisdictions:
//	  KY:
//	    ubo_threshold: 10
//	    control_rule: direct
func ParsePolicies(r io.Reader, base Policy) (*PolicySet, error) {
	var doc policyFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}

	def, err := doc.Default.apply(base.withDefaults(), base.withDefaults().Name)
	if err != nil {
		return nil, err
	}
	set := NewPolicySet(def)
	for jurisdiction, override := range doc.Jurisdictions {
		p, err := override.apply(def, normalizeJurisdiction(jurisdiction))
		if err != nil {
			return nil, err
		}
		set.Set(jurisdiction, p)
	}
	return set, nil
}

// LoadPolicyFile parses the YAML policy file at path.
func LoadPolicyFile(path string, base Policy) (*PolicySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return ParsePolicies(f, base)
}
