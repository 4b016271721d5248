package schoology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slate/internal/udm"
)

func TestMapUsers(t *testing.T) {
	raw := []User{
		{UID: 100032890, RoleID: 2, SchoolUID: "kb0997", NameFirst: "Kyle", NameLast: "Brown", PrimaryEmail: "kyle.brown@example.edu"},
	}

	users, err := mapUsers(raw, map[int64]string{2: "Student"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	assert.Equal(t, udm.User{
		SourceSystem:           udm.SourceSchoology,
		SourceSystemIdentifier: "100032890",
		EntityStatus:           udm.StatusActive,
		UserRole:               "Student",
		SISUserIdentifier:      "kb0997",
		LocalUserIdentifier:    "kb0997",
		Name:                   "Kyle Brown",
		EmailAddress:           "kyle.brown@example.edu",
	}, users[0])
}

func TestMapUsers_MissingUID(t *testing.T) {
	_, err := mapUsers([]User{{NameFirst: "No", NameLast: "ID"}}, nil)
	require.Error(t, err)

	var missing *udm.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "uid", missing.Field)
}

func TestMapUsers_EmptyInput(t *testing.T) {
	users, err := mapUsers(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestMapSections_StatusFromActiveFlag(t *testing.T) {
	sections, err := mapSections([]Section{
		{ID: "29", SectionTitle: "1st period", CourseTitle: "Algebra I", Active: 1},
		{ID: "30", SectionTitle: "2nd period", CourseTitle: "Algebra I", Active: 0},
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "active", sections[0].LMSSectionStatus)
	assert.Equal(t, "Algebra I - 1st period", sections[0].Title)
	assert.Equal(t, "inactive", sections[1].LMSSectionStatus)
}

func TestMapEnrollments(t *testing.T) {
	associations, err := mapEnrollments("29", []Enrollment{
		{ID: "571", UID: "100032890", Status: "1"},
		{ID: "572", UID: "100032891", Status: "5"},
	})
	require.NoError(t, err)
	require.Len(t, associations, 2)

	assert.Equal(t, "571", associations[0].SourceSystemIdentifier)
	assert.Equal(t, "29", associations[0].LMSSectionSourceSystemIdentifier)
	assert.Equal(t, "Active", associations[0].EnrollmentStatus)
	assert.Equal(t, "Archived", associations[1].EnrollmentStatus)
}

func TestMapSubmissions_StatusDerivation(t *testing.T) {
	submissions, err := mapSubmissions("a77", []Submission{
		{UID: 1, Created: 1693555200},
		{UID: 2, Created: 1693555200, Late: 1},
		{UID: 3, Created: 1693555200, Draft: 1},
		{UID: 4, Created: 1693555200, Late: 1, Draft: 1},
	})
	require.NoError(t, err)
	require.Len(t, submissions, 4)

	assert.Equal(t, "on-time", submissions[0].SubmissionStatus)
	assert.Equal(t, "late", submissions[1].SubmissionStatus)
	assert.Equal(t, "draft", submissions[2].SubmissionStatus)
	assert.Equal(t, "draft", submissions[3].SubmissionStatus, "draft wins over late")

	assert.Equal(t, "a77#1", submissions[0].SourceSystemIdentifier)
	assert.Equal(t, "a77", submissions[0].AssignmentSourceSystemIdentifier)
	assert.Equal(t, "2023-09-01 08:00:00", submissions[0].SubmissionDateTime.String())
}

func TestMapGrades_BorrowsEnrollmentIdentifier(t *testing.T) {
	grades, err := mapGrades("29", []FinalGrade{
		{EnrollmentID: 571, Periods: []PeriodGrade{{PeriodID: "p1", Grade: 91.5}}},
		{EnrollmentID: 999}, // no grading periods: dropped
	}, map[int64]string{571: "100032890"})
	require.NoError(t, err)
	require.Len(t, grades, 1)

	assert.Equal(t, "g#571", grades[0].SourceSystemIdentifier)
	assert.Equal(t, "100032890", grades[0].LMSUserSourceSystemIdentifier)
	assert.Equal(t, "91.5", grades[0].Grade)
	assert.Equal(t, "Final", grades[0].GradeType)
}

func TestMapAttendance_FlattensAndJoins(t *testing.T) {
	var block AttendanceStatusBlock
	block.Attendances.Attendance = []Attendance{
		{EnrollmentID: 571, Status: 2},
		{EnrollmentID: 777, Status: 1}, // unknown enrollment: dropped
	}

	var date AttendanceDate
	date.Date = "2023-09-05"
	date.Statuses.Status = []AttendanceStatusBlock{block}

	events, err := mapAttendance("29", []AttendanceDate{date}, map[int64]string{571: "100032890"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, "571#2023-09-05", events[0].SourceSystemIdentifier)
	assert.Equal(t, "absent", events[0].AttendanceStatus)
	assert.Equal(t, "2023-09-05", events[0].EventDate)
	assert.Equal(t, "100032890", events[0].LMSUserSourceSystemIdentifier)
}

func TestAttendanceStatus_UnknownCode(t *testing.T) {
	assert.Equal(t, "Unknown status: 9", attendanceStatus(9))
}
