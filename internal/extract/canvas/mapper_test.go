package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slate/internal/udm"
)

func sampleCourse() Course {
	course := Course{
		ID:         "101",
		Name:       "Algebra I",
		CourseCode: "ALG-1",
		State:      "available",
	}
	course.Term.Name = "Fall 2023"

	student := Enrollment{ID: "e1", Type: "StudentEnrollment", State: "active"}
	student.User = CourseUser{ID: "u1", SISID: "s-100", LoginID: "kyle", Name: "Kyle Brown", Email: "kyle@example.edu"}
	student.Grades.FinalGrade = "A-"

	teacher := Enrollment{ID: "e2", Type: "TeacherEnrollment", State: "active"}
	teacher.User = CourseUser{ID: "u2", Name: "Pat Doe"}

	assignment := Assignment{
		ID:             "a1",
		Name:           "Homework 1",
		Description:    "Chapter 1 problems",
		PointsPossible: 20,
		DueAt:          "2023-09-15T23:59:00Z",
	}
	assignment.Submissions.Nodes = []Submission{{
		ID:          "s1",
		SubmittedAt: "2023-09-14T18:00:00Z",
		Grade:       "18",
		Score:       18,
		State:       "graded",
	}}
	assignment.Submissions.Nodes[0].User.ID = "u1"

	course.Enrollments.Nodes = []Enrollment{student, teacher}
	course.Assignments.Nodes = []Assignment{assignment}
	return course
}

func TestMapSections(t *testing.T) {
	sections, err := mapSections([]Course{sampleCourse()})
	require.NoError(t, err)
	require.Len(t, sections, 1)

	assert.Equal(t, "101", sections[0].SourceSystemIdentifier)
	assert.Equal(t, udm.SourceCanvas, sections[0].SourceSystem)
	assert.Equal(t, "ALG-1", sections[0].SISSectionIdentifier)
	assert.Equal(t, "Fall 2023", sections[0].Term)
	assert.Equal(t, "active", sections[0].LMSSectionStatus)
}

func TestMapUsers_DeduplicatesAcrossEnrollments(t *testing.T) {
	a := sampleCourse()
	b := sampleCourse()
	b.ID = "102"

	users, err := mapUsers([]Course{a, b})
	require.NoError(t, err)
	require.Len(t, users, 2, "same users enrolled in both courses must appear once")

	assert.Equal(t, "Student", users[0].UserRole)
	assert.Equal(t, "Teacher", users[1].UserRole)
	assert.Equal(t, "kyle", users[0].LocalUserIdentifier)
}

func TestMapGrades_StudentEnrollmentsOnly(t *testing.T) {
	grades, err := mapGrades(sampleCourse())
	require.NoError(t, err)
	require.Len(t, grades, 1, "teacher enrollments carry no grade")

	assert.Equal(t, "g#e1", grades[0].SourceSystemIdentifier)
	assert.Equal(t, "A-", grades[0].Grade)
	assert.Equal(t, "u1", grades[0].LMSUserSourceSystemIdentifier)
}

func TestMapAssignments_ConvertsTimestamps(t *testing.T) {
	assignments, err := mapAssignments(sampleCourse())
	require.NoError(t, err)
	require.Len(t, assignments, 1)

	assert.Equal(t, "2023-09-15 23:59:00", assignments[0].DueDateTime.String())
	assert.Equal(t, "", assignments[0].StartDateTime.String(), "absent dates stay empty")
	assert.Equal(t, "20", assignments[0].MaxPoints)
	assert.Equal(t, "101", assignments[0].LMSSectionSourceSystemIdentifier)
}

func TestMapSubmissions(t *testing.T) {
	submissions, err := mapSubmissions(sampleCourse().Assignments.Nodes[0])
	require.NoError(t, err)
	require.Len(t, submissions, 1)

	assert.Equal(t, "s1", submissions[0].SourceSystemIdentifier)
	assert.Equal(t, "a1", submissions[0].AssignmentSourceSystemIdentifier)
	assert.Equal(t, "graded", submissions[0].SubmissionStatus)
	assert.Equal(t, "18", submissions[0].EarnedPoints)
	assert.Equal(t, "2023-09-14 18:00:00", submissions[0].SubmissionDateTime.String())
}

func TestMapUsers_MissingID(t *testing.T) {
	course := sampleCourse()
	course.Enrollments.Nodes[0].User.ID = ""

	_, err := mapUsers([]Course{course})
	assert.Error(t, err)
}
