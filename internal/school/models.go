package school

import "strings"

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleGuru          Role = "guru"
	RoleKepalaSekolah Role = "kepala_sekolah"
)

// Roles lists every role a user may hold.
var Roles = []Role{RoleAdmin, RoleGuru, RoleKepalaSekolah}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// DisplayName is the label shown in the UI for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleGuru:
		return "Guru"
	case RoleKepalaSekolah:
		return "Kepala Sekolah"
	default:
		return string(r)
	}
}

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

type Student struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	NIS          string `json:"nis"` // unique external identifier
	Class        string `json:"class"`
	GuardianName string `json:"guardian_name,omitempty"`
	Address      string `json:"address,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

// Polarity tells whether a higher raw value is better (benefit) or worse (cost).
type Polarity string

const (
	Benefit Polarity = "benefit"
	Cost    Polarity = "cost"
)

func (p Polarity) Valid() bool { return p == Benefit || p == Cost }

type Criterion struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Weight float64  `json:"weight"`
	Type   Polarity `json:"type"`
}

// Assessment is the raw value (0-100 by convention) of one student on one criterion.
type Assessment struct {
	ID          int64   `json:"id"`
	StudentID   int64   `json:"student_id"`
	CriterionID int64   `json:"criterion_id"`
	Value       float64 `json:"value"`

	Student   *Student   `json:"student,omitempty"`
	Criterion *Criterion `json:"criterion,omitempty"`
}

// AssessmentInput is one item of a per-student batch upsert.
type AssessmentInput struct {
	CriterionID int64    `json:"criterion_id"`
	Value       *float64 `json:"value"`
}

// BatchResult reports what a batch upsert did.
type BatchResult struct {
	Results   []Assessment `json:"results"`
	Processed int          `json:"processed"`
	Total     int          `json:"total"`
}

// ImportResult reports a bulk student import.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
