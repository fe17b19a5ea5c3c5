package entity

import (
	"time"
)

// Subject is the scope of an analysis request: a single file, or a whole project when FilePath is empty.
type Subject struct {
	WorkspaceRoot string `json:"workspaceRoot" zap:"workspaceRoot"`
	FilePath      string `json:"filePath,omitempty" zap:"filePath"`
}

// ProjectSubject returns a Subject covering the whole project at workspaceRoot.
func ProjectSubject(workspaceRoot string) Subject {
	return Subject{WorkspaceRoot: workspaceRoot}
}

// FileSubject returns a Subject covering a single file within workspaceRoot.
func FileSubject(workspaceRoot string, filePath string) Subject {
	return Subject{WorkspaceRoot: workspaceRoot, FilePath: filePath}
}

// IsProject reports whether the subject is a whole project.
func (s Subject) IsProject() bool {
	return s.FilePath == ""
}

// Key is used to coalesce requests for the same subject.
func (s Subject) Key() string {
	if s.IsProject() {
		return "project:" + s.WorkspaceRoot
	}
	return "file:" + s.FilePath
}

// AnalysisRequest is a single request for analysis.
// IDs strictly increase and are never reused within a coalescer.
type AnalysisRequest struct {
	ID        uint64    `json:"id" zap:"id"`
	Subject   Subject   `json:"subject" zap:"subject"`
	CreatedAt time.Time `json:"createdAt" zap:"createdAt"`

	// DirtyContent holds unsaved editor content for file subjects, if any.
	DirtyContent *string `json:"-" zap:"-"`
}
