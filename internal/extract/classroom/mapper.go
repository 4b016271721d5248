package classroom

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/slate/internal/udm"
)

// parseISO converts Classroom's RFC 3339 timestamps to the UDM format.
// Empty or malformed values map to the zero Timestamp.
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

// sectionStatus translates Classroom course states.
func sectionStatus(state string) string {
	switch state {
	case "ACTIVE":
		return "active"
	case "ARCHIVED":
		return "archived"
	case "PROVISIONED", "DECLINED":
		return "inactive"
	}
	return state
}

func mapCourses(courses []Course) ([]udm.Section, error) {
	out := make([]udm.Section, 0, len(courses))
	for _, c := range courses {
		if c.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSections, "id")
		}
		title := c.Name
		if c.Section != "" {
			title = c.Name + " - " + c.Section
		}
		out = append(out, udm.Section{
			SourceSystem:           udm.SourceClassroom,
			SourceSystemIdentifier: c.ID,
			EntityStatus:           udm.StatusActive,
			Title:                  title,
			SectionDescription:     c.Description,
			LMSSectionStatus:       sectionStatus(c.CourseState),
		})
	}
	return out, nil
}

// mapRoster collects the distinct users behind per-course roster entries.
// Students take precedence when a user holds both roles somewhere.
func mapRoster(students, teachers []RosterEntry) ([]udm.User, error) {
	seen := map[string]bool{}
	var out []udm.User

	add := func(entries []RosterEntry, role string) error {
		for _, e := range entries {
			if e.UserID == "" {
				return udm.NewMissingFieldError(udm.ResourceUsers, "userId")
			}
			if seen[e.UserID] {
				continue
			}
			seen[e.UserID] = true

			out = append(out, udm.User{
				SourceSystem:           udm.SourceClassroom,
				SourceSystemIdentifier: e.UserID,
				EntityStatus:           udm.StatusActive,
				UserRole:               role,
				Name:                   e.Profile.Name.FullName,
				EmailAddress:           e.Profile.EmailAddress,
			})
		}
		return nil
	}

	if err := add(students, "Student"); err != nil {
		return nil, err
	}
	if err := add(teachers, "Teacher"); err != nil {
		return nil, err
	}
	return out, nil
}

// mapStudents derives section associations from the student roster of one
// course. Classroom has no enrollment object of its own, so the identifier
// is synthesized from the course and user ids.
func mapStudents(students []RosterEntry) ([]udm.SectionAssociation, error) {
	out := make([]udm.SectionAssociation, 0, len(students))
	for _, e := range students {
		if e.UserID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSectionAssociations, "userId")
		}
		out = append(out, udm.SectionAssociation{
			SourceSystem:                     udm.SourceClassroom,
			SourceSystemIdentifier:           e.CourseID + "-" + e.UserID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: e.CourseID,
			LMSUserSourceSystemIdentifier:    e.UserID,
			EnrollmentStatus:                 "Active",
		})
	}
	return out, nil
}

// dueTimestamp combines Classroom's split dueDate/dueTime into one UDM
// timestamp. Coursework with no due date maps to the zero Timestamp.
func dueTimestamp(w CourseWork) udm.Timestamp {
	if w.DueDate.Year == 0 {
		return udm.Timestamp{}
	}
	t := time.Date(w.DueDate.Year, time.Month(w.DueDate.Month), w.DueDate.Day,
		w.DueTime.Hours, w.DueTime.Minutes, 0, 0, time.UTC)
	return udm.NewTimestamp(t)
}

func mapCourseWorks(works []CourseWork) ([]udm.Assignment, error) {
	out := make([]udm.Assignment, 0, len(works))
	for _, w := range works {
		if w.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceAssignments, "id")
		}
		out = append(out, udm.Assignment{
			SourceSystem:                     udm.SourceClassroom,
			SourceSystemIdentifier:           w.ID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: w.CourseID,
			Title:                            w.Title,
			AssignmentCategory:               w.WorkType,
			AssignmentDescription:            w.Description,
			StartDateTime:                    parseISO(w.CreationTime),
			DueDateTime:                      dueTimestamp(w),
			MaxPoints:                        strconv.FormatFloat(w.MaxPoints, 'f', -1, 64),
		})
	}
	return out, nil
}

// submissionStatus translates Classroom submission states, with the late
// flag taking precedence over turned-in states.
func submissionStatus(s StudentSubmission) string {
	if s.Late {
		return "late"
	}
	switch s.State {
	case "TURNED_IN":
		return "on-time"
	case "RETURNED":
		return "returned"
	case "NEW", "CREATED":
		return "missing"
	}
	return s.State
}

func mapSubmissions(submissions []StudentSubmission) ([]udm.Submission, error) {
	out := make([]udm.Submission, 0, len(submissions))
	for _, s := range submissions {
		if s.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSubmissions, "id")
		}
		earned := ""
		if s.AssignedGrade != 0 {
			earned = strconv.FormatFloat(s.AssignedGrade, 'f', -1, 64)
		}
		out = append(out, udm.Submission{
			SourceSystem:                     udm.SourceClassroom,
			SourceSystemIdentifier:           fmt.Sprintf("%s-%s", s.CourseWorkID, s.ID),
			EntityStatus:                     udm.StatusActive,
			AssignmentSourceSystemIdentifier: s.CourseWorkID,
			LMSUserSourceSystemIdentifier:    s.UserID,
			SubmissionStatus:                 submissionStatus(s),
			SubmissionDateTime:               parseISO(s.UpdateTime),
			EarnedPoints:                     earned,
			Grade:                            earned,
		})
	}
	return out, nil
}
