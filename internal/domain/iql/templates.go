package iql

import "sort"

// Query pairs a clause label with the expression that detects it. The label
// is what a matching detection is reported as; the expression may involve
// other predicates (e.g. "indemnification AND NOT mutual").
type Query struct {
	Label string
	Expr  Expr
}

// Template is a named set of clause queries run together over a chunk set.
type Template struct {
	Name    string
	Queries []Query
}

// Standard clause families scanned by the single-family templates.
var clauseFamilies = []string{
	"indemnification",
	"limitation_of_liability",
	"termination",
	"confidentiality",
	"ip_assignment",
	"force_majeure",
	"dispute_resolution",
	"governing_law",
	"non_compete",
	"auto_renewal",
}

var templates = buildTemplates()

func buildTemplates() map[string]Template {
	m := make(map[string]Template)

	// One template per clause family, detecting just that predicate.
	for _, fam := range clauseFamilies {
		m[fam] = Template{
			Name:    fam,
			Queries: []Query{{Label: fam, Expr: Pred(fam)}},
		}
	}

	all := make([]Query, 0, len(clauseFamilies))
	for _, fam := range clauseFamilies {
		all = append(all, Query{Label: fam, Expr: Pred(fam)})
	}
	m["all_clauses"] = Template{Name: "all_clauses", Queries: all}

	// Clause families that most often carry one-sided or costly terms.
	m["high_risk"] = Template{
		Name: "high_risk",
		Queries: []Query{
			{Label: "indemnification", Expr: And{L: Pred("indemnification"), R: Not{X: Pred("mutual")}}},
			{Label: "limitation_of_liability", Expr: Pred("limitation_of_liability")},
			{Label: "termination", Expr: And{L: Pred("termination"), R: Not{X: Pred("mutual")}}},
			{Label: "non_compete", Expr: Pred("non_compete")},
			{Label: "auto_renewal", Expr: Pred("auto_renewal")},
		},
	}

	// Provisions a due-diligence review flags first.
	m["due_diligence"] = Template{
		Name: "due_diligence",
		Queries: []Query{
			{Label: "indemnification", Expr: Pred("indemnification")},
			{Label: "limitation_of_liability", Expr: Pred("limitation_of_liability")},
			{Label: "ip_assignment", Expr: Pred("ip_assignment")},
			{Label: "termination", Expr: Pred("termination")},
			{Label: "governing_law", Expr: Pred("governing_law")},
			{Label: "dispute_resolution", Expr: Pred("dispute_resolution")},
		},
	}

	return m
}

// LookupTemplate returns the built-in template for a name.
func LookupTemplate(name string) (Template, bool) {
	t, ok := templates[Normalize(name)]
	return t, ok
}

// TemplateNames lists the built-in template names, sorted.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
