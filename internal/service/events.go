package service

import (
	"context"
	"fmt"
)

// Relay events published by services.
const (
	EventClassMemberJoined    = "class.member_joined"
	EventClassMemberLeft      = "class.member_left"
	EventAssessmentPublished  = "assessment.published"
	EventSubmissionSubmitted  = "submission.submitted"
	EventSubmissionGraded     = "submission.graded"
	EventLiveStarted          = "live.started"
	EventLiveUpdated          = "live.updated"
	EventLiveQuestionAdvanced = "live.question"
	EventLiveEnded            = "live.ended"
	EventResourceAdded        = "resource.added"
)

// serverEventNamespaces are the prefixes of the events above. Clients may not publish into them.
var serverEventNamespaces = map[string]struct{}{
	"class":      {},
	"assessment": {},
	"submission": {},
	"live":       {},
	"resource":   {},
}

// Publisher pushes server-side events to relay subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data interface{}) error
}

// DashboardInvalidator drops cached dashboards after data they summarise changes.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uint)
}

// LeaderboardRebuilder recomputes a cached class ranking after membership or assessments change.
type LeaderboardRebuilder interface {
	Rebuild(ctx context.Context, classID uint) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...uint) {}

type noopRebuilder struct{}

func (noopRebuilder) Rebuild(context.Context, uint) error { return nil }

// UserChannel is the private relay channel of a user.
func UserChannel(id uint) string { return fmt.Sprintf("user:%d", id) }

// ClassChannel is the relay channel shared by a class.
func ClassChannel(id uint) string { return fmt.Sprintf("class:%d", id) }

// AssessmentChannel is the relay channel of an assessment's live session.
func AssessmentChannel(id uint) string { return fmt.Sprintf("assessment:%d", id) }
