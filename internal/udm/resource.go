// Package udm defines the Unified Data Model: the common tabular schema
// that every LMS connector normalizes vendor records into before they are
// written to CSV and merged into the lms database schema.
//
// Every record is keyed by the natural pair (SourceSystem,
// SourceSystemIdentifier). Surrogate integer keys exist only inside the
// production database and never appear here.
package udm

import "strings"

// Source system constants injected by the per-vendor mappers.
const (
	SourceCanvas    = "Canvas"
	SourceClassroom = "google-classroom"
	SourceSchoology = "Schoology"
)

// StatusActive is the EntityStatus constant for records present in the
// source system's latest pull.
const StatusActive = "active"

// Resource identifies one UDM entity type. The string value doubles as the
// CSV directory name for that entity.
type Resource string

const (
	ResourceUsers               Resource = "users"
	ResourceSections            Resource = "sections"
	ResourceSectionAssociations Resource = "section-associations"
	ResourceAssignments         Resource = "assignments"
	ResourceGrades              Resource = "grades"
	ResourceSubmissions         Resource = "submissions"
	ResourceAttendanceEvents    Resource = "attendance-events"
)

// LoadOrder lists every resource parent-first: child inserts resolve parent
// surrogate keys with joins, so users/sections/assignments must land before
// the relationship entities that reference them.
var LoadOrder = []Resource{
	ResourceUsers,
	ResourceSections,
	ResourceSectionAssociations,
	ResourceAssignments,
	ResourceGrades,
	ResourceSubmissions,
	ResourceAttendanceEvents,
}

// Table returns the production table name for the resource.
func (r Resource) Table() string {
	switch r {
	case ResourceUsers:
		return "LMSUser"
	case ResourceSections:
		return "LMSSection"
	case ResourceSectionAssociations:
		return "LMSUserLMSSectionAssociation"
	case ResourceAssignments:
		return "Assignment"
	case ResourceGrades:
		return "LMSGrade"
	case ResourceSubmissions:
		return "AssignmentSubmission"
	case ResourceAttendanceEvents:
		return "LMSUserAttendanceEvent"
	}
	return string(r)
}

// SyncTable returns the local sync-store table name for the resource.
// SQLite identifiers with dashes would need quoting everywhere, so the
// directory-style names are flattened to underscores.
func (r Resource) SyncTable() string {
	return strings.ReplaceAll(string(r), "-", "_")
}

// SectionScoped reports whether the resource's CSV files live under
// per-section directories rather than at the output root.
func (r Resource) SectionScoped() bool {
	switch r {
	case ResourceUsers, ResourceSections:
		return false
	}
	return true
}
