package loader

import (
	"fmt"
	"strings"

	"github.com/roach88/slate/internal/udm"
)

// ParentRef names one foreign entity a table references. Staging rows carry
// the parent's natural key; the insert step resolves it to the parent's
// surrogate key with a join.
type ParentRef struct {
	Table           string // parent production table
	SurrogateColumn string // surrogate key column on the parent
	StagingColumn   string // natural key column in the staging table
}

// TableSpec describes how one resource maps onto its production and staging
// tables. Parents appear in the same order as their columns in the CSVs.
type TableSpec struct {
	Resource udm.Resource
	Table    string
	Staging  string
	Parents  []ParentRef
	Payload  []string
}

var (
	userRef = ParentRef{
		Table:           "LMSUser",
		SurrogateColumn: "LMSUserIdentifier",
		StagingColumn:   "LMSUserSourceSystemIdentifier",
	}
	sectionRef = ParentRef{
		Table:           "LMSSection",
		SurrogateColumn: "LMSSectionIdentifier",
		StagingColumn:   "LMSSectionSourceSystemIdentifier",
	}
	assignmentRef = ParentRef{
		Table:           "Assignment",
		SurrogateColumn: "AssignmentIdentifier",
		StagingColumn:   "AssignmentSourceSystemIdentifier",
	}
)

// Specs maps every resource to its table layout.
var Specs = map[udm.Resource]TableSpec{
	udm.ResourceUsers: {
		Resource: udm.ResourceUsers,
		Table:    "LMSUser",
		Staging:  "stg_LMSUser",
		Payload:  []string{"UserRole", "SISUserIdentifier", "LocalUserIdentifier", "Name", "EmailAddress"},
	},
	udm.ResourceSections: {
		Resource: udm.ResourceSections,
		Table:    "LMSSection",
		Staging:  "stg_LMSSection",
		Payload:  []string{"SISSectionIdentifier", "Title", "SectionDescription", "Term", "LMSSectionStatus"},
	},
	udm.ResourceSectionAssociations: {
		Resource: udm.ResourceSectionAssociations,
		Table:    "LMSUserLMSSectionAssociation",
		Staging:  "stg_LMSUserLMSSectionAssociation",
		Parents:  []ParentRef{sectionRef, userRef},
		Payload:  []string{"EnrollmentStatus"},
	},
	udm.ResourceAssignments: {
		Resource: udm.ResourceAssignments,
		Table:    "Assignment",
		Staging:  "stg_Assignment",
		Parents:  []ParentRef{sectionRef},
		Payload: []string{
			"Title", "AssignmentCategory", "AssignmentDescription",
			"StartDateTime", "EndDateTime", "DueDateTime", "MaxPoints",
		},
	},
	udm.ResourceGrades: {
		Resource: udm.ResourceGrades,
		Table:    "LMSGrade",
		Staging:  "stg_LMSGrade",
		Parents:  []ParentRef{sectionRef, userRef},
		Payload:  []string{"Grade", "GradeType"},
	},
	udm.ResourceSubmissions: {
		Resource: udm.ResourceSubmissions,
		Table:    "AssignmentSubmission",
		Staging:  "stg_AssignmentSubmission",
		Parents:  []ParentRef{assignmentRef, userRef},
		Payload:  []string{"SubmissionStatus", "SubmissionDateTime", "EarnedPoints", "Grade"},
	},
	udm.ResourceAttendanceEvents: {
		Resource: udm.ResourceAttendanceEvents,
		Table:    "LMSUserAttendanceEvent",
		Staging:  "stg_LMSUserAttendanceEvent",
		Parents:  []ParentRef{sectionRef, userRef},
		Payload:  []string{"EventDate", "AttendanceStatus"},
	},
}

// StagingColumns lists the staging table's columns in CSV order.
func (s TableSpec) StagingColumns() []string {
	cols := []string{"SourceSystem", "SourceSystemIdentifier", "EntityStatus"}
	for _, p := range s.Parents {
		cols = append(cols, p.StagingColumn)
	}
	cols = append(cols, s.Payload...)
	return append(cols, "CreateDate", "LastModifiedDate")
}

// TruncateStaging empties the staging table before a new batch lands.
func TruncateStaging(d Dialect, s TableSpec) string {
	return "DELETE FROM " + d.Qualify(s.Staging)
}

// InsertStaging is the single-row staging insert; the loader binds one CSV
// row per execution.
func InsertStaging(d Dialect, s TableSpec) string {
	cols := s.StagingColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Qualify(s.Staging), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// naturalKeyMatch correlates a staging row with its production row.
func naturalKeyMatch(left, right string) string {
	return fmt.Sprintf("%s.SourceSystem = %s.SourceSystem AND %s.SourceSystemIdentifier = %s.SourceSystemIdentifier",
		left, right, left, right)
}

// InsertNew copies staging rows with no production counterpart into the
// production table, resolving parent surrogate keys along the way. Staging
// rows whose parents cannot be resolved are dropped by the inner joins.
func InsertNew(d Dialect, s TableSpec) string {
	insertCols := []string{"SourceSystem", "SourceSystemIdentifier", "EntityStatus"}
	selectCols := []string{"stg.SourceSystem", "stg.SourceSystemIdentifier", "stg.EntityStatus"}
	var joins []string

	for i, p := range s.Parents {
		alias := fmt.Sprintf("p%d", i+1)
		insertCols = append(insertCols, p.SurrogateColumn)
		selectCols = append(selectCols, alias+"."+p.SurrogateColumn)
		joins = append(joins, fmt.Sprintf(
			"JOIN %s AS %s ON %s.SourceSystem = stg.SourceSystem AND %s.SourceSystemIdentifier = stg.%s",
			d.Qualify(p.Table), alias, alias, alias, p.StagingColumn))
	}

	for _, col := range s.Payload {
		insertCols = append(insertCols, col)
		selectCols = append(selectCols, "stg."+col)
	}
	insertCols = append(insertCols, "CreateDate", "LastModifiedDate")
	selectCols = append(selectCols, "stg.CreateDate", "stg.LastModifiedDate")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)", d.Qualify(s.Table), strings.Join(insertCols, ", "))
	fmt.Fprintf(&b, " SELECT %s FROM %s AS stg", strings.Join(selectCols, ", "), d.Qualify(s.Staging))
	for _, j := range joins {
		b.WriteString(" " + j)
	}
	fmt.Fprintf(&b, " WHERE NOT EXISTS (SELECT 1 FROM %s AS t WHERE %s)",
		d.Qualify(s.Table), naturalKeyMatch("t", "stg"))
	return b.String()
}

// UpdateChanged refreshes production rows whose staging counterpart carries a
// different LastModifiedDate, and revives soft-deleted rows that reappeared.
// CreateDate is never touched.
func UpdateChanged(d Dialect, s TableSpec) string {
	set := []string{"EntityStatus = src.EntityStatus"}
	for _, col := range s.Payload {
		set = append(set, fmt.Sprintf("%s = src.%s", col, col))
	}
	set = append(set, "LastModifiedDate = src.LastModifiedDate", "DeletedAt = NULL")

	where := naturalKeyMatch("t", "src") +
		" AND (t.LastModifiedDate <> src.LastModifiedDate OR t.DeletedAt IS NOT NULL)"
	return d.UpdateJoin(d.Qualify(s.Table), d.Qualify(s.Staging), set, where)
}

// SoftDelete stamps DeletedAt on production rows that vanished from the
// staged pull. The scope is limited to source systems present in staging, so
// loading one vendor's files never deletes another vendor's rows.
func SoftDelete(d Dialect, s TableSpec) string {
	return fmt.Sprintf(
		"UPDATE %s AS t SET DeletedAt = %s WHERE t.DeletedAt IS NULL"+
			" AND t.SourceSystem IN (SELECT DISTINCT SourceSystem FROM %s)"+
			" AND NOT EXISTS (SELECT 1 FROM %s AS stg WHERE %s)",
		d.Qualify(s.Table), d.NowString(), d.Qualify(s.Staging),
		d.Qualify(s.Staging), naturalKeyMatch("stg", "t"))
}

// CountUnresolved counts staging rows that never reached the production
// table. After a merge these are exactly the rows with unresolvable parents.
func CountUnresolved(d Dialect, s TableSpec) string {
	return fmt.Sprintf(
		"SELECT COUNT(1) FROM %s AS stg WHERE NOT EXISTS (SELECT 1 FROM %s AS t WHERE %s)",
		d.Qualify(s.Staging), d.Qualify(s.Table), naturalKeyMatch("t", "stg"))
}
