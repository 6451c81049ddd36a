package school

import "context"

type ListOpts struct {
	Q      string // matches name or NIS (students), name or username (users)
	Class  string
	Role   Role
	Limit  int
	Offset int
}

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error) // includes PasswordHash
	ListUsers(ctx context.Context, opts ListOpts) ([]User, error)
	UpdateUser(ctx context.Context, u User) (User, error) // empty PasswordHash keeps the current one
	SetPassword(ctx context.Context, id int64, hash string) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsersByRole(ctx context.Context, role Role) (int, error)
	CountUsers(ctx context.Context) (int, error)

	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id int64) (Student, error)
	ListStudents(ctx context.Context, opts ListOpts) ([]Student, error)
	ListClasses(ctx context.Context) ([]string, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	ImportStudents(ctx context.Context, rows []Student) (ImportResult, error)

	CreateCriterion(ctx context.Context, c Criterion) (Criterion, error)
	GetCriterion(ctx context.Context, id int64) (Criterion, error)
	ListCriteria(ctx context.Context) ([]Criterion, error)
	UpdateCriterion(ctx context.Context, c Criterion) (Criterion, error)
	// DeleteCriterion removes the criterion and its assessments, returning how many assessments went with it.
	DeleteCriterion(ctx context.Context, id int64) (Criterion, int, error)

	CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
	GetAssessment(ctx context.Context, id int64) (Assessment, error)
	ListAssessments(ctx context.Context) ([]Assessment, error)
	ListStudentAssessments(ctx context.Context, studentID int64) ([]Assessment, error)
	UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error)
	DeleteAssessment(ctx context.Context, id int64) error
	UpsertStudentAssessments(ctx context.Context, studentID int64, items []AssessmentInput) (BatchResult, error)

	AllStudents(ctx context.Context) ([]Student, error)
	AllCriteria(ctx context.Context) ([]Criterion, error)
	AllAssessments(ctx context.Context) ([]Assessment, error)
	DataVersion(ctx context.Context) (int64, error)
}
