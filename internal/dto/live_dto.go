package dto

import "time"

// LiveAdvanceRequest moves the session to a question index.
type LiveAdvanceRequest struct {
	Index int `json:"index" validate:"min=0"`
}

// LiveReportRequest is a student heartbeat. TabSwitch counts one focus loss.
type LiveReportRequest struct {
	Status    string `json:"status" validate:"required,oneof=active away"`
	TabSwitch bool   `json:"tab_switch"`
}

// LiveParticipantResponse is one student's presence.
type LiveParticipantResponse struct {
	StudentID   uint      `json:"student_id"`
	Name        string    `json:"name,omitempty"`
	Status      string    `json:"status"`
	TabSwitches int       `json:"tab_switches"`
	AwayCount   int       `json:"away_count"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// LiveStateResponse is the polling payload for a live session.
type LiveStateResponse struct {
	AssessmentID    uint                      `json:"assessment_id"`
	Active          bool                      `json:"active"`
	StartedAt       *time.Time                `json:"started_at,omitempty"`
	EndedAt         *time.Time                `json:"ended_at,omitempty"`
	CurrentQuestion int                       `json:"current_question"`
	QuestionCount   int                       `json:"question_count"`
	Participants    []LiveParticipantResponse `json:"participants"`
}
