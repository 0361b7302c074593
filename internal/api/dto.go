package api

import (
	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/tracker"
)

// SubjectRequest is the body of POST and PUT /subjects. Topics is the raw
// outline text.
type SubjectRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Topics string `json:"topics"`
}

// ToggleRequest addresses a topic: path[0] is the top-level index, further
// elements index into children.
type ToggleRequest struct {
	Path []int `json:"path" validate:"required,min=1,dive,min=0"`
}

// SubjectDetail is the full subject response (aliased from the domain layer).
type SubjectDetail = tracker.SubjectDetail

// SubjectListResponse is the body of GET /subjects.
type SubjectListResponse struct {
	Subjects []SubjectDetail `json:"subjects"`
	Checked  []models.Ref    `json:"checked"`
}

// OutlineResponse carries the edit text of a subject.
type OutlineResponse struct {
	Text string `json:"text"`
}
