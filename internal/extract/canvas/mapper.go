package canvas

import (
	"strconv"
	"time"

	"github.com/roach88/slate/internal/udm"
)

// parseISO converts Canvas's RFC 3339 timestamps to the UDM format. Empty
// or malformed values map to the zero Timestamp (rendered as an empty CSV
// cell).
func parseISO(s string) udm.Timestamp {
	if s == "" {
		return udm.Timestamp{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return udm.Timestamp{}
	}
	return udm.NewTimestamp(t.UTC())
}

// sectionStatus translates Canvas course workflow states.
func sectionStatus(state string) string {
	switch state {
	case "available":
		return "active"
	case "completed":
		return "archived"
	}
	return state
}

func mapSections(courses []Course) ([]udm.Section, error) {
	out := make([]udm.Section, 0, len(courses))
	for _, c := range courses {
		if c.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSections, "_id")
		}
		out = append(out, udm.Section{
			SourceSystem:           udm.SourceCanvas,
			SourceSystemIdentifier: c.ID,
			EntityStatus:           udm.StatusActive,
			SISSectionIdentifier:   c.CourseCode,
			Title:                  c.Name,
			Term:                   c.Term.Name,
			LMSSectionStatus:       sectionStatus(c.State),
		})
	}
	return out, nil
}

// mapUsers collects the distinct users behind a course's enrollments. The
// same user appears once per enrollment, so duplicates are common; the first
// occurrence wins.
func mapUsers(courses []Course) ([]udm.User, error) {
	seen := map[string]bool{}
	var out []udm.User
	for _, c := range courses {
		for _, e := range c.Enrollments.Nodes {
			u := e.User
			if u.ID == "" {
				return nil, udm.NewMissingFieldError(udm.ResourceUsers, "user._id")
			}
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true

			out = append(out, udm.User{
				SourceSystem:           udm.SourceCanvas,
				SourceSystemIdentifier: u.ID,
				EntityStatus:           udm.StatusActive,
				UserRole:               enrollmentRole(e.Type),
				SISUserIdentifier:      u.SISID,
				LocalUserIdentifier:    u.LoginID,
				Name:                   u.Name,
				EmailAddress:           u.Email,
			})
		}
	}
	return out, nil
}

// enrollmentRole translates Canvas enrollment types to UDM roles.
func enrollmentRole(enrollmentType string) string {
	switch enrollmentType {
	case "StudentEnrollment":
		return "Student"
	case "TeacherEnrollment", "TaEnrollment":
		return "Teacher"
	}
	return enrollmentType
}

func mapEnrollments(course Course) ([]udm.SectionAssociation, error) {
	out := make([]udm.SectionAssociation, 0, len(course.Enrollments.Nodes))
	for _, e := range course.Enrollments.Nodes {
		if e.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSectionAssociations, "_id")
		}
		out = append(out, udm.SectionAssociation{
			SourceSystem:                     udm.SourceCanvas,
			SourceSystemIdentifier:           e.ID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: course.ID,
			LMSUserSourceSystemIdentifier:    e.User.ID,
			EnrollmentStatus:                 e.State,
		})
	}
	return out, nil
}

// mapGrades emits one grade per student enrollment that carries a final
// grade or score.
func mapGrades(course Course) ([]udm.Grade, error) {
	var out []udm.Grade
	for _, e := range course.Enrollments.Nodes {
		if e.Type != "StudentEnrollment" {
			continue
		}
		grade := e.Grades.FinalGrade
		if grade == "" && e.Grades.FinalScore == 0 {
			continue
		}
		if grade == "" {
			grade = strconv.FormatFloat(e.Grades.FinalScore, 'f', -1, 64)
		}
		out = append(out, udm.Grade{
			SourceSystem:                     udm.SourceCanvas,
			SourceSystemIdentifier:           "g#" + e.ID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: course.ID,
			LMSUserSourceSystemIdentifier:    e.User.ID,
			Grade:                            grade,
			GradeType:                        "Final",
		})
	}
	return out, nil
}

func mapAssignments(course Course) ([]udm.Assignment, error) {
	out := make([]udm.Assignment, 0, len(course.Assignments.Nodes))
	for _, a := range course.Assignments.Nodes {
		if a.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceAssignments, "_id")
		}
		out = append(out, udm.Assignment{
			SourceSystem:                     udm.SourceCanvas,
			SourceSystemIdentifier:           a.ID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: course.ID,
			Title:                            a.Name,
			AssignmentCategory:               "assignment",
			AssignmentDescription:            a.Description,
			StartDateTime:                    parseISO(a.UnlockAt),
			EndDateTime:                      parseISO(a.LockAt),
			DueDateTime:                      parseISO(a.DueAt),
			MaxPoints:                        strconv.FormatFloat(a.PointsPossible, 'f', -1, 64),
		})
	}
	return out, nil
}

// submissionStatus translates Canvas submission workflow states.
func submissionStatus(state string) string {
	switch state {
	case "submitted", "pending_review":
		return "on-time"
	case "graded":
		return "graded"
	case "unsubmitted":
		return "missing"
	}
	return state
}

func mapSubmissions(assignment Assignment) ([]udm.Submission, error) {
	out := make([]udm.Submission, 0, len(assignment.Submissions.Nodes))
	for _, s := range assignment.Submissions.Nodes {
		if s.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSubmissions, "_id")
		}
		out = append(out, udm.Submission{
			SourceSystem:                     udm.SourceCanvas,
			SourceSystemIdentifier:           s.ID,
			EntityStatus:                     udm.StatusActive,
			AssignmentSourceSystemIdentifier: assignment.ID,
			LMSUserSourceSystemIdentifier:    s.User.ID,
			SubmissionStatus:                 submissionStatus(s.State),
			SubmissionDateTime:               parseISO(s.SubmittedAt),
			EarnedPoints:                     strconv.FormatFloat(s.Score, 'f', -1, 64),
			Grade:                            s.Grade,
		})
	}
	return out, nil
}
