package schoology

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/slate/internal/udm"
)

// Pure vendor-shape to UDM-shape transformations. None of these assign
// CreateDate/LastModifiedDate; that is the reconciler's job. Every mapper
// tolerates an empty input and fails fast when a record lacks the field its
// natural key derives from.

func mapUsers(users []User, roleTitles map[int64]string) ([]udm.User, error) {
	out := make([]udm.User, 0, len(users))
	for _, u := range users {
		if u.UID == 0 {
			return nil, udm.NewMissingFieldError(udm.ResourceUsers, "uid")
		}
		out = append(out, udm.User{
			SourceSystem:           udm.SourceSchoology,
			SourceSystemIdentifier: strconv.FormatInt(u.UID, 10),
			EntityStatus:           udm.StatusActive,
			UserRole:               roleTitles[u.RoleID],
			SISUserIdentifier:      u.SchoolUID,
			LocalUserIdentifier:    u.SchoolUID,
			Name:                   strings.TrimSpace(u.NameFirst + " " + u.NameLast),
			EmailAddress:           u.PrimaryEmail,
		})
	}
	return out, nil
}

func mapSections(sections []Section) ([]udm.Section, error) {
	out := make([]udm.Section, 0, len(sections))
	for _, s := range sections {
		if s.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSections, "id")
		}
		status := "inactive"
		if s.Active == 1 {
			status = "active"
		}
		out = append(out, udm.Section{
			SourceSystem:           udm.SourceSchoology,
			SourceSystemIdentifier: s.ID,
			EntityStatus:           udm.StatusActive,
			SISSectionIdentifier:   s.SectionCode,
			Title:                  s.CourseTitle + " - " + s.SectionTitle,
			SectionDescription:     s.Description,
			LMSSectionStatus:       status,
		})
	}
	return out, nil
}

// enrollmentStatus translates Schoology's numeric enrollment status codes.
func enrollmentStatus(code string) string {
	switch code {
	case "1":
		return "Active"
	case "2":
		return "Expired"
	case "3":
		return "Invite pending"
	case "4":
		return "Request pending"
	case "5":
		return "Archived"
	}
	return "Unknown status: " + code
}

func mapEnrollments(sectionID string, enrollments []Enrollment) ([]udm.SectionAssociation, error) {
	out := make([]udm.SectionAssociation, 0, len(enrollments))
	for _, e := range enrollments {
		if e.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSectionAssociations, "id")
		}
		if e.UID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceSectionAssociations, "uid")
		}
		out = append(out, udm.SectionAssociation{
			SourceSystem:                     udm.SourceSchoology,
			SourceSystemIdentifier:           e.ID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: sectionID,
			LMSUserSourceSystemIdentifier:    e.UID,
			EnrollmentStatus:                 enrollmentStatus(e.Status),
		})
	}
	return out, nil
}

func mapAssignments(sectionID string, assignments []Assignment) ([]udm.Assignment, error) {
	out := make([]udm.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceAssignments, "id")
		}

		// Schoology sends "0000-00-00 00:00:00" for assignments without a
		// due date; treat anything unparseable as absent.
		due, err := udm.ParseTimestamp(a.Due)
		if err != nil {
			due = udm.Timestamp{}
		}

		out = append(out, udm.Assignment{
			SourceSystem:                     udm.SourceSchoology,
			SourceSystemIdentifier:           a.ID,
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: sectionID,
			Title:                            a.Title,
			AssignmentCategory:               a.Type,
			AssignmentDescription:            a.Description,
			DueDateTime:                      due,
			MaxPoints:                        a.MaxPoints,
		})
	}
	return out, nil
}

// submissionStatus derives the status from the late/draft flags.
func submissionStatus(s Submission) string {
	switch {
	case s.Draft == 1:
		return "draft"
	case s.Late == 1:
		return "late"
	}
	return "on-time"
}

func mapSubmissions(assignmentID string, submissions []Submission) ([]udm.Submission, error) {
	out := make([]udm.Submission, 0, len(submissions))
	for _, s := range submissions {
		if s.UID == 0 {
			return nil, udm.NewMissingFieldError(udm.ResourceSubmissions, "uid")
		}
		uid := strconv.FormatInt(s.UID, 10)
		out = append(out, udm.Submission{
			SourceSystem:                     udm.SourceSchoology,
			SourceSystemIdentifier:           assignmentID + "#" + uid,
			EntityStatus:                     udm.StatusActive,
			AssignmentSourceSystemIdentifier: assignmentID,
			LMSUserSourceSystemIdentifier:    uid,
			SubmissionStatus:                 submissionStatus(s),
			SubmissionDateTime:               udm.NewTimestamp(time.Unix(s.Created, 0).UTC()),
		})
	}
	return out, nil
}

// mapGrades joins final grades back to their enrollments: the grade record
// has no identifier of its own, so it borrows the enrollment's, prefixed.
func mapGrades(sectionID string, grades []FinalGrade, userByEnrollment map[int64]string) ([]udm.Grade, error) {
	out := make([]udm.Grade, 0, len(grades))
	for _, g := range grades {
		if g.EnrollmentID == 0 {
			return nil, udm.NewMissingFieldError(udm.ResourceGrades, "enrollment_id")
		}
		uid, ok := userByEnrollment[g.EnrollmentID]
		if !ok || len(g.Periods) == 0 {
			continue
		}
		out = append(out, udm.Grade{
			SourceSystem:                     udm.SourceSchoology,
			SourceSystemIdentifier:           fmt.Sprintf("g#%d", g.EnrollmentID),
			EntityStatus:                     udm.StatusActive,
			LMSSectionSourceSystemIdentifier: sectionID,
			LMSUserSourceSystemIdentifier:    uid,
			Grade:                            strconv.FormatFloat(g.Periods[len(g.Periods)-1].Grade, 'f', -1, 64),
			GradeType:                        "Final",
		})
	}
	return out, nil
}

// attendanceStatus translates Schoology's numeric attendance codes.
func attendanceStatus(code int) string {
	switch code {
	case 1:
		return "present"
	case 2:
		return "absent"
	case 3:
		return "late"
	case 4:
		return "excused"
	}
	return fmt.Sprintf("Unknown status: %d", code)
}

// mapAttendance flattens the nested date -> status -> attendance response
// and joins each event to its enrollment for the user reference. Events for
// enrollments outside the section associations batch are dropped, matching
// the inner join the loader would otherwise reject them with.
func mapAttendance(sectionID string, dates []AttendanceDate, userByEnrollment map[int64]string) ([]udm.AttendanceEvent, error) {
	var out []udm.AttendanceEvent
	for _, d := range dates {
		if d.Date == "" {
			return nil, udm.NewMissingFieldError(udm.ResourceAttendanceEvents, "date")
		}
		for _, status := range d.Statuses.Status {
			for _, a := range status.Attendances.Attendance {
				uid, ok := userByEnrollment[a.EnrollmentID]
				if !ok {
					continue
				}
				out = append(out, udm.AttendanceEvent{
					SourceSystem:                     udm.SourceSchoology,
					SourceSystemIdentifier:           fmt.Sprintf("%d#%s", a.EnrollmentID, d.Date),
					EntityStatus:                     udm.StatusActive,
					LMSSectionSourceSystemIdentifier: sectionID,
					LMSUserSourceSystemIdentifier:    uid,
					EventDate:                        d.Date,
					AttendanceStatus:                 attendanceStatus(a.Status),
				})
			}
		}
	}
	return out, nil
}
