// Package features derives category-specific engineered columns from appliance
// records. The rule table is data: a category maps to an ordered list of rules
// and a single evaluator runs them.
package features

import (
	"math"
	"sort"

	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// Catalog evaluates the rule table for a category.
type Catalog struct {
	rules  map[string][]Rule
	logger *utils.Logger
}

// NewCatalog returns a Catalog loaded with the built-in appliance rules.
func NewCatalog(logger *utils.Logger) *Catalog {
	return NewCatalogWith(defaultRules, universalRules, logger)
}

// NewCatalogWith builds a Catalog from an explicit table. universal rules are
// prepended to every category's list.
func NewCatalogWith(table map[string][]Rule, universal []Rule, logger *utils.Logger) *Catalog {
	if logger == nil {
		logger = utils.Discard()
	}
	rules := make(map[string][]Rule, len(table))
	for category, list := range table {
		merged := make([]Rule, 0, len(universal)+len(list))
		merged = append(merged, universal...)
		merged = append(merged, list...)
		rules[category] = merged
	}
	return &Catalog{rules: rules, logger: logger}
}

// Categories returns the recognised category labels, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.rules))
	for k := range c.rules {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rules returns the ordered rules for a category; nil when unrecognised.
func (c *Catalog) Rules(category string) []Rule {
	return c.rules[category]
}

// DependsOn returns the inputs of a derived feature for a category, or false
// when the name is not a derived feature there.
func (c *Catalog) DependsOn(category, feature string) ([]string, bool) {
	for _, r := range c.rules[category] {
		if r.Name == feature {
			return r.Inputs, true
		}
	}
	return nil, false
}

// Apply augments a single record. Guards see a batch of one.
func (c *Catalog) Apply(rec models.Record, category string) (models.Record, []string) {
	out, created := c.ApplyBatch([]models.Record{rec}, category)
	return out[0], created
}

// ApplyBatch returns copies of recs with every derivable feature added, plus
// the names of columns created in this pass. Inputs are never modified and a
// field that already holds a value is never overwritten.
func (c *Catalog) ApplyBatch(recs []models.Record, category string) ([]models.Record, []string) {
	out := make([]models.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}

	rules, ok := c.rules[category]
	if !ok {
		return out, nil
	}

	var created []string
	for _, rule := range rules {
		if rule.Guard != "" && !positiveMean(out, rule.Guard) {
			c.logger.Debug("[features] %s: skipping %s, mean of %q is not positive",
				category, rule.Name, rule.Guard)
			continue
		}
		added := false
		for _, rec := range out {
			if rec.Has(rule.Name) {
				continue
			}
			vals, ok := inputs(rec, rule.Inputs)
			if !ok {
				continue
			}
			v := rule.Formula(vals)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			rec[rule.Name] = v
			added = true
		}
		if added && !contains(created, rule.Name) {
			created = append(created, rule.Name)
		}
	}

	if len(created) > 0 {
		c.logger.Debug("[features] %s: created new features %v", category, created)
	}
	return out, created
}

func inputs(rec models.Record, names []string) (Values, bool) {
	vals := make(Values, len(names))
	for _, n := range names {
		f, ok := rec.Float(n)
		if !ok {
			return nil, false
		}
		vals[n] = f
	}
	return vals, true
}

// positiveMean reports whether the mean of the non-missing values of field is
// strictly positive. No values at all means the mean is undefined.
func positiveMean(recs []models.Record, field string) bool {
	var sum float64
	n := 0
	for _, r := range recs {
		if f, ok := r.Float(field); ok {
			sum += f
			n++
		}
	}
	return n > 0 && sum/float64(n) > 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
