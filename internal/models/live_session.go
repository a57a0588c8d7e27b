package models

import (
	"strconv"
	"time"
)

// Live participant states.
const (
	LiveStatusActive    = "active"
	LiveStatusAway      = "away"
	LiveStatusSubmitted = "submitted"
)

// LiveSession is the mutable lobby state stored on an assessment while a
// teacher runs it live.
type LiveSession struct {
	Active          bool                       `json:"active"`
	StartedAt       *time.Time                 `json:"started_at,omitempty"`
	EndedAt         *time.Time                 `json:"ended_at,omitempty"`
	CurrentQuestion int                        `json:"current_question"`
	Joined          []uint                     `json:"joined"`
	Participants    map[string]LiveParticipant `json:"participants"`
}

// LiveParticipant tracks a single student's presence in a live session.
type LiveParticipant struct {
	Status      string    `json:"status"`
	TabSwitches int       `json:"tab_switches"`
	AwayCount   int       `json:"away_count"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// HasJoined reports whether the student is part of the session.
func (s LiveSession) HasJoined(studentID uint) bool {
	for _, id := range s.Joined {
		if id == studentID {
			return true
		}
	}
	return false
}

// Participant returns the state of a joined student.
func (s LiveSession) Participant(studentID uint) (LiveParticipant, bool) {
	p, ok := s.Participants[participantKey(studentID)]
	return p, ok
}

// SetParticipant stores the state of a student, initialising the map if needed.
func (s *LiveSession) SetParticipant(studentID uint, p LiveParticipant) {
	if s.Participants == nil {
		s.Participants = make(map[string]LiveParticipant)
	}
	s.Participants[participantKey(studentID)] = p
}

func participantKey(studentID uint) string {
	return strconv.FormatUint(uint64(studentID), 10)
}
