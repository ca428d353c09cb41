// Package clause holds the contract-analysis domain: clause types detected by
// the scanner, risk/mutuality enrichment, and the aggregate analysis result.
package clause

import "sort"

// Type identifies a legally meaningful clause family.
type Type string

// Built-in clause types.
const (
	Indemnification       Type = "indemnification"
	LimitationOfLiability Type = "limitation_of_liability"
	Termination           Type = "termination"
	Confidentiality       Type = "confidentiality"
	IPAssignment          Type = "ip_assignment"
	ForceMajeure          Type = "force_majeure"
	DisputeResolution     Type = "dispute_resolution"
	GoverningLaw          Type = "governing_law"
	NonCompete            Type = "non_compete"
	AutoRenewal           Type = "auto_renewal"
)

var labels = map[Type]string{
	Indemnification:       "Indemnification",
	LimitationOfLiability: "Limitation of Liability",
	Termination:           "Termination",
	Confidentiality:       "Confidentiality",
	IPAssignment:          "IP Assignment",
	ForceMajeure:          "Force Majeure",
	DisputeResolution:     "Dispute Resolution",
	GoverningLaw:          "Governing Law",
	NonCompete:            "Non-Compete",
	AutoRenewal:           "Automatic Renewal",
}

// Label returns the display label for a clause type.
func (t Type) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}

// Known reports whether t is a built-in clause type.
func (t Type) Known() bool {
	_, ok := labels[t]
	return ok
}

// Hypothesis returns the zero-shot hypothesis text used to score a chunk
// against this clause type.
func (t Type) Hypothesis() string {
	if h, ok := hypotheses[t]; ok {
		return h
	}
	return "This text contains a " + t.Label() + " clause."
}

var hypotheses = map[Type]string{
	Indemnification:       "This text contains an indemnification or hold harmless obligation.",
	LimitationOfLiability: "This text limits or caps a party's liability for damages.",
	Termination:           "This text describes how or when the agreement may be terminated.",
	Confidentiality:       "This text imposes confidentiality or non-disclosure obligations.",
	IPAssignment:          "This text assigns or licenses intellectual property rights.",
	ForceMajeure:          "This text excuses performance due to events beyond a party's control.",
	DisputeResolution:     "This text governs dispute resolution, arbitration, or jurisdiction.",
	GoverningLaw:          "This text selects the governing law of the agreement.",
	NonCompete:            "This text restricts competition or solicitation after the agreement.",
	AutoRenewal:           "This text renews the agreement automatically unless notice is given.",
}

// RiskLevel grades a detected clause.
type RiskLevel string

// Risk levels, most severe first.
const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// rank orders risk levels for sorting: lower rank sorts first.
func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// Detection is a raw scanner hit: a chunk whose clause-query score cleared
// the threshold, before enrichment.
type Detection struct {
	Type      Type
	Score     float64
	Text      string
	TextIndex int
}

// Analyzed is a detection enriched with risk, mutuality, and an exact quote.
type Analyzed struct {
	Type            Type
	TypeLabel       string
	IQLScore        float64
	RiskLevel       RiskLevel
	RiskConfidence  float64
	IsMutual        bool
	ChunkText       string
	ChunkIndex      int
	ExactQuote      string
	QuoteConfidence float64
	QuoteStart      int
	QuoteEnd        int
}

// AnalysisResult aggregates analyzed clauses for one document or chunk set.
// Clauses are sorted by risk (high, medium, low), then by descending clause
// score; HighRiskClauses is the high-risk subset in the same order.
type AnalysisResult struct {
	Clauses         []Analyzed
	HighRiskClauses []Analyzed
	TotalDetected   int
	HighRiskCount   int
}

// NewAnalysisResult sorts the clauses into the canonical order and derives
// the high-risk subset and summary counts.
func NewAnalysisResult(clauses []Analyzed) AnalysisResult {
	sorted := make([]Analyzed, len(clauses))
	copy(sorted, clauses)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].RiskLevel.rank(), sorted[j].RiskLevel.rank()
		if ri != rj {
			return ri < rj
		}
		return sorted[i].IQLScore > sorted[j].IQLScore
	})

	var high []Analyzed
	for _, c := range sorted {
		if c.RiskLevel == RiskHigh {
			high = append(high, c)
		}
	}

	return AnalysisResult{
		Clauses:         sorted,
		HighRiskClauses: high,
		TotalDetected:   len(sorted),
		HighRiskCount:   len(high),
	}
}
