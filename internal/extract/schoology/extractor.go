package schoology

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/slate/internal/extract"
	"github.com/roach88/slate/internal/udm"
)

// Extractor runs one full Schoology pull: users, then sections, then the
// section-scoped entities. A failure in one entity is logged and the rest of
// the run continues, except for storage failures, which abort immediately.
type Extractor struct {
	Client *Client
	Run    *extract.Run

	// GradingPeriods restricts the pull to sections assigned to any of the
	// listed grading periods. Empty means no filter.
	GradingPeriods []int
}

// Extract performs the full pull. The returned error is non-nil only for
// fatal conditions; per-entity failures are reflected in the error tracker
// via the run logger.
func (e *Extractor) Extract(ctx context.Context) error {
	if err := e.extractUsers(ctx); err != nil {
		return err
	}

	sections, err := e.extractSections(ctx)
	if err != nil {
		return err
	}

	for _, section := range sections {
		if err := e.extractSectionData(ctx, section.SourceSystemIdentifier); err != nil {
			return err
		}
	}

	return nil
}

// entityFailed logs a non-fatal per-entity failure so the run can continue
// with the remaining entities.
func (e *Extractor) entityFailed(resource udm.Resource, err error) {
	e.Run.Log.Error().Str("resource", string(resource)).Err(err).Msg("entity extraction failed")
}

func (e *Extractor) extractUsers(ctx context.Context) error {
	roles, err := e.Client.Roles(ctx)
	if err != nil {
		e.entityFailed(udm.ResourceUsers, err)
		return nil
	}
	roleTitles := make(map[int64]string, len(roles))
	for _, r := range roles {
		roleTitles[r.ID] = r.Title
	}

	raw, err := e.Client.Users(ctx)
	if err != nil {
		e.entityFailed(udm.ResourceUsers, err)
		return nil
	}

	users, err := mapUsers(raw, roleTitles)
	if err != nil {
		e.entityFailed(udm.ResourceUsers, err)
		return nil
	}

	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceUsers, users, e.Run.Tree.Users()); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceUsers, err)
	}
	return nil
}

func (e *Extractor) extractSections(ctx context.Context) ([]udm.Section, error) {
	courses, err := e.Client.Courses(ctx)
	if err != nil {
		e.entityFailed(udm.ResourceSections, err)
		return nil, nil
	}

	var raw []Section
	for _, course := range courses {
		sections, err := e.Client.Sections(ctx, course.ID)
		if err != nil {
			e.entityFailed(udm.ResourceSections, fmt.Errorf("course %d: %w", course.ID, err))
			return nil, nil
		}
		for _, s := range sections {
			if e.inGradingPeriod(s) {
				raw = append(raw, s)
			}
		}
	}

	sections, err := mapSections(raw)
	if err != nil {
		e.entityFailed(udm.ResourceSections, err)
		return nil, nil
	}

	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSections, sections, e.Run.Tree.Sections()); err != nil {
		if extract.Fatal(err) {
			return nil, err
		}
		e.entityFailed(udm.ResourceSections, err)
		return nil, nil
	}
	return sections, nil
}

func (e *Extractor) inGradingPeriod(s Section) bool {
	if len(e.GradingPeriods) == 0 {
		return true
	}
	for _, period := range s.GradingPeriods {
		if slices.Contains(e.GradingPeriods, period) {
			return true
		}
	}
	return false
}

// extractSectionData pulls enrollments, assignments, submissions, grades and
// attendance for one section.
func (e *Extractor) extractSectionData(ctx context.Context, sectionID string) error {
	userByEnrollment, err := e.extractEnrollments(ctx, sectionID)
	if err != nil {
		return err
	}

	if err := e.extractAssignments(ctx, sectionID); err != nil {
		return err
	}

	if err := e.extractGrades(ctx, sectionID, userByEnrollment); err != nil {
		return err
	}

	return e.extractAttendance(ctx, sectionID, userByEnrollment)
}

func (e *Extractor) extractEnrollments(ctx context.Context, sectionID string) (map[int64]string, error) {
	raw, err := e.Client.Enrollments(ctx, sectionID)
	if err != nil {
		e.entityFailed(udm.ResourceSectionAssociations, err)
		return nil, nil
	}

	associations, err := mapEnrollments(sectionID, raw)
	if err != nil {
		e.entityFailed(udm.ResourceSectionAssociations, err)
		return nil, nil
	}

	dir := e.Run.Tree.SectionResource(sectionID, udm.ResourceSectionAssociations)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSectionAssociations, associations, dir); err != nil {
		if extract.Fatal(err) {
			return nil, err
		}
		e.entityFailed(udm.ResourceSectionAssociations, err)
		return nil, nil
	}

	userByEnrollment := make(map[int64]string, len(associations))
	for _, a := range associations {
		// Attendance and grades reference enrollments by integer id.
		if id, err := strconv.ParseInt(a.SourceSystemIdentifier, 10, 64); err == nil {
			userByEnrollment[id] = a.LMSUserSourceSystemIdentifier
		}
	}
	return userByEnrollment, nil
}

func (e *Extractor) extractAssignments(ctx context.Context, sectionID string) error {
	raw, err := e.Client.Assignments(ctx, sectionID)
	if err != nil {
		e.entityFailed(udm.ResourceAssignments, err)
		return nil
	}

	assignments, err := mapAssignments(sectionID, raw)
	if err != nil {
		e.entityFailed(udm.ResourceAssignments, err)
		return nil
	}

	dir := e.Run.Tree.SectionResource(sectionID, udm.ResourceAssignments)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceAssignments, assignments, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceAssignments, err)
		return nil
	}

	for _, assignment := range assignments {
		if err := e.extractSubmissions(ctx, sectionID, assignment.SourceSystemIdentifier); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extractSubmissions(ctx context.Context, sectionID, assignmentID string) error {
	raw, err := e.Client.Submissions(ctx, sectionID, assignmentID)
	if err != nil {
		e.entityFailed(udm.ResourceSubmissions, err)
		return nil
	}

	submissions, err := mapSubmissions(assignmentID, raw)
	if err != nil {
		e.entityFailed(udm.ResourceSubmissions, err)
		return nil
	}

	dir := e.Run.Tree.Submissions(sectionID, assignmentID)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSubmissions, submissions, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceSubmissions, err)
	}
	return nil
}

func (e *Extractor) extractGrades(ctx context.Context, sectionID string, userByEnrollment map[int64]string) error {
	raw, err := e.Client.Grades(ctx, sectionID)
	if err != nil {
		e.entityFailed(udm.ResourceGrades, err)
		return nil
	}

	grades, err := mapGrades(sectionID, raw, userByEnrollment)
	if err != nil {
		e.entityFailed(udm.ResourceGrades, err)
		return nil
	}

	dir := e.Run.Tree.SectionResource(sectionID, udm.ResourceGrades)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceGrades, grades, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceGrades, err)
	}
	return nil
}

func (e *Extractor) extractAttendance(ctx context.Context, sectionID string, userByEnrollment map[int64]string) error {
	raw, err := e.Client.Attendance(ctx, sectionID)
	if err != nil {
		e.entityFailed(udm.ResourceAttendanceEvents, err)
		return nil
	}

	events, err := mapAttendance(sectionID, raw, userByEnrollment)
	if err != nil {
		e.entityFailed(udm.ResourceAttendanceEvents, err)
		return nil
	}

	dir := e.Run.Tree.SectionResource(sectionID, udm.ResourceAttendanceEvents)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceAttendanceEvents, events, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceAttendanceEvents, err)
	}
	return nil
}
