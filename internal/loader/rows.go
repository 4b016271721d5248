package loader

import (
	"github.com/roach88/slate/internal/csvio"
	"github.com/roach88/slate/internal/udm"
)

// readFile decodes one CSV file into rows ordered to match the resource's
// staging columns.
func (l *Loader) readFile(resource udm.Resource, path string) (fileBatch, error) {
	var (
		rows [][]any
		err  error
	)
	switch resource {
	case udm.ResourceUsers:
		rows, err = readBatch(path, userRow)
	case udm.ResourceSections:
		rows, err = readBatch(path, sectionRow)
	case udm.ResourceSectionAssociations:
		rows, err = readBatch(path, associationRow)
	case udm.ResourceAssignments:
		rows, err = readBatch(path, l.assignmentRow)
	case udm.ResourceGrades:
		rows, err = readBatch(path, gradeRow)
	case udm.ResourceSubmissions:
		rows, err = readBatch(path, submissionRow)
	case udm.ResourceAttendanceEvents:
		rows, err = readBatch(path, attendanceRow)
	}
	return fileBatch{path: path, rows: rows}, err
}

func readBatch[T any](path string, convert func(T) []any) ([][]any, error) {
	records, err := csvio.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, convert(r))
	}
	return rows, nil
}

func userRow(u udm.User) []any {
	return []any{
		u.SourceSystem, u.SourceSystemIdentifier, u.EntityStatus,
		u.UserRole, u.SISUserIdentifier, u.LocalUserIdentifier, u.Name, u.EmailAddress,
		u.CreateDate.String(), u.LastModifiedDate.String(),
	}
}

func sectionRow(s udm.Section) []any {
	return []any{
		s.SourceSystem, s.SourceSystemIdentifier, s.EntityStatus,
		s.SISSectionIdentifier, s.Title, s.SectionDescription, s.Term, s.LMSSectionStatus,
		s.CreateDate.String(), s.LastModifiedDate.String(),
	}
}

func associationRow(a udm.SectionAssociation) []any {
	return []any{
		a.SourceSystem, a.SourceSystemIdentifier, a.EntityStatus,
		a.LMSSectionSourceSystemIdentifier, a.LMSUserSourceSystemIdentifier,
		a.EnrollmentStatus,
		a.CreateDate.String(), a.LastModifiedDate.String(),
	}
}

// assignmentRow truncates oversized descriptions to the production column
// width before staging.
func (l *Loader) assignmentRow(a udm.Assignment) []any {
	description := a.AssignmentDescription
	if runes := []rune(description); len(runes) > maxDescriptionLength {
		description = string(runes[:maxDescriptionLength])
		l.Log.Warn().
			Str("id", a.SourceSystemIdentifier).
			Int("length", len(runes)).
			Msg("assignment description truncated")
	}
	return []any{
		a.SourceSystem, a.SourceSystemIdentifier, a.EntityStatus,
		a.LMSSectionSourceSystemIdentifier,
		a.Title, a.AssignmentCategory, description,
		a.StartDateTime.String(), a.EndDateTime.String(), a.DueDateTime.String(), a.MaxPoints,
		a.CreateDate.String(), a.LastModifiedDate.String(),
	}
}

func gradeRow(g udm.Grade) []any {
	return []any{
		g.SourceSystem, g.SourceSystemIdentifier, g.EntityStatus,
		g.LMSSectionSourceSystemIdentifier, g.LMSUserSourceSystemIdentifier,
		g.Grade, g.GradeType,
		g.CreateDate.String(), g.LastModifiedDate.String(),
	}
}

func submissionRow(s udm.Submission) []any {
	return []any{
		s.SourceSystem, s.SourceSystemIdentifier, s.EntityStatus,
		s.AssignmentSourceSystemIdentifier, s.LMSUserSourceSystemIdentifier,
		s.SubmissionStatus, s.SubmissionDateTime.String(), s.EarnedPoints, s.Grade,
		s.CreateDate.String(), s.LastModifiedDate.String(),
	}
}

func attendanceRow(a udm.AttendanceEvent) []any {
	return []any{
		a.SourceSystem, a.SourceSystemIdentifier, a.EntityStatus,
		a.LMSSectionSourceSystemIdentifier, a.LMSUserSourceSystemIdentifier,
		a.EventDate, a.AttendanceStatus,
		a.CreateDate.String(), a.LastModifiedDate.String(),
	}
}
