// Package saw ranks students with Simple Additive Weighting: each criterion is normalised against the
// cohort's best value for that criterion and the weighted normalised values are summed per student.
package saw

import (
	"errors"
	"sort"
	"strings"

	"github.com/mind-engage/prestasi/internal/school"
)

var ErrInsufficientData = errors.New("insufficient data for SAW calculation")

// InsufficientDataError names the input collections that were empty.
type InsufficientDataError struct {
	Empty []string
}

func (e *InsufficientDataError) Error() string {
	return ErrInsufficientData.Error() + ": empty " + strings.Join(e.Empty, ", ")
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// Result is one ranked student. Scores and NormalizedScores are keyed by criterion ID and only hold
// criteria the student was assessed on.
type Result struct {
	Student          school.Student    `json:"student"`
	TotalScore       float64           `json:"total_score"`
	Scores           map[int64]float64 `json:"scores"`
	NormalizedScores map[int64]float64 `json:"normalized_scores"`
}

type pairKey struct{ student, criterion int64 }

// Rank scores every student and returns them ordered by total score, highest first.
// Students with equal totals keep their input order.
func Rank(students []school.Student, criteria []school.Criterion, assessments []school.Assessment) ([]Result, error) {
	var empty []string
	if len(students) == 0 {
		empty = append(empty, "students")
	}
	if len(criteria) == 0 {
		empty = append(empty, "criteria")
	}
	if len(assessments) == 0 {
		empty = append(empty, "assessments")
	}
	if len(empty) > 0 {
		return nil, &InsufficientDataError{Empty: empty}
	}

	// first assessment wins for a duplicated pair
	values := make(map[pairKey]float64, len(assessments))
	for _, a := range assessments {
		k := pairKey{a.StudentID, a.CriterionID}
		if _, dup := values[k]; !dup {
			values[k] = a.Value
		}
	}

	refs := referenceValues(criteria, assessments)

	results := make([]Result, len(students))
	for i, s := range students {
		r := Result{
			Student:          s,
			Scores:           map[int64]float64{},
			NormalizedScores: map[int64]float64{},
		}
		for _, c := range criteria {
			v, ok := values[pairKey{s.ID, c.ID}]
			if !ok {
				continue
			}
			n := Normalize(c.Type, v, refs[c.ID])
			r.Scores[c.ID] = v
			r.NormalizedScores[c.ID] = n
			r.TotalScore += n * c.Weight
		}
		results[i] = r
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	return results, nil
}

// referenceValues returns max (benefit) or min (cost) of every raw value per criterion.
// Criteria without any assessment are absent from the map.
func referenceValues(criteria []school.Criterion, assessments []school.Assessment) map[int64]float64 {
	polarity := make(map[int64]school.Polarity, len(criteria))
	for _, c := range criteria {
		polarity[c.ID] = c.Type
	}
	refs := make(map[int64]float64, len(criteria))
	for _, a := range assessments {
		p, known := polarity[a.CriterionID]
		if !known {
			continue
		}
		cur, seen := refs[a.CriterionID]
		switch {
		case !seen:
			refs[a.CriterionID] = a.Value
		case p == school.Cost && a.Value < cur:
			refs[a.CriterionID] = a.Value
		case p != school.Cost && a.Value > cur:
			refs[a.CriterionID] = a.Value
		}
	}
	return refs
}

// Normalize maps a raw value onto [0,1] against the criterion's reference value.
// Zero denominators yield 0.
func Normalize(p school.Polarity, v, ref float64) float64 {
	if p == school.Cost {
		if v > 0 {
			return ref / v
		}
		return 0
	}
	if ref > 0 {
		return v / ref
	}
	return 0
}
