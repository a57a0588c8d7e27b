package dto

import "time"

// LeaderboardEntry is one ranked student in a class.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	StudentID uint    `json:"student_id"`
	Name      string  `json:"name"`
	Points    float64 `json:"points"`
}

// LeaderboardResponse is a class ranking plus the caller's own position.
type LeaderboardResponse struct {
	ClassID uint               `json:"class_id"`
	Entries []LeaderboardEntry `json:"entries"`
	Me      *LeaderboardEntry  `json:"me,omitempty"`
}

// UpcomingAssessment is a published assessment the student has not handed in.
type UpcomingAssessment struct {
	AssessmentID uint       `json:"assessment_id"`
	ClassID      uint       `json:"class_id"`
	ClassName    string     `json:"class_name"`
	Title        string     `json:"title"`
	Kind         string     `json:"kind"`
	DueDate      *time.Time `json:"due_date"`
	Started      bool       `json:"started"`
}

// RecentResult is a graded submission.
type RecentResult struct {
	SubmissionID uint       `json:"submission_id"`
	AssessmentID uint       `json:"assessment_id"`
	Title        string     `json:"title"`
	Score        float64    `json:"score"`
	MaxScore     float64    `json:"max_score"`
	Percentage   float64    `json:"percentage"`
	GradedAt     *time.Time `json:"graded_at"`
}

// StudentDashboardResponse aggregates a student's classes, work and study state.
type StudentDashboardResponse struct {
	StudentID         uint                 `json:"student_id"`
	Name              string               `json:"name"`
	Classes           []ClassResponse      `json:"classes"`
	Upcoming          []UpcomingAssessment `json:"upcoming"`
	RecentResults     []RecentResult       `json:"recent_results"`
	AveragePercentage float64              `json:"average_percentage"`
	CardsDue          int64                `json:"cards_due"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// SubmissionSummary is a compact submission row for staff dashboards.
type SubmissionSummary struct {
	SubmissionID    uint       `json:"submission_id"`
	AssessmentID    uint       `json:"assessment_id"`
	AssessmentTitle string     `json:"assessment_title"`
	StudentID       uint       `json:"student_id"`
	StudentName     string     `json:"student_name"`
	Status          string     `json:"status"`
	Score           float64    `json:"score"`
	MaxScore        float64    `json:"max_score"`
	SubmittedAt     *time.Time `json:"submitted_at"`
}

// TeacherDashboardResponse summarises a teacher's classes and grading queue.
type TeacherDashboardResponse struct {
	Classes           []ClassResponse     `json:"classes"`
	NeedsGrading      []SubmissionSummary `json:"needs_grading"`
	RecentSubmissions []SubmissionSummary `json:"recent_submissions"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// ClassAverageEntry is the mean graded percentage of one class.
type ClassAverageEntry struct {
	ClassID   uint    `json:"class_id"`
	ClassName string  `json:"class_name"`
	Average   float64 `json:"average"`
	Graded    int64   `json:"graded"`
}

// CoordinatorDashboardResponse gives institution-wide counts.
type CoordinatorDashboardResponse struct {
	UsersByRole   map[string]int64    `json:"users_by_role"`
	Classes       int                 `json:"classes"`
	Assessments   int64               `json:"assessments"`
	ClassAverages []ClassAverageEntry `json:"class_averages"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// ParentDashboardResponse wraps each linked child's student dashboard.
type ParentDashboardResponse struct {
	Children []StudentDashboardResponse `json:"children"`
}
