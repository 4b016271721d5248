package canvas

import (
	"context"
	"time"

	"github.com/roach88/slate/internal/extract"
	"github.com/roach88/slate/internal/udm"
)

// Extractor runs one full Canvas pull. Courses (with their nested
// enrollments, assignments and submissions) arrive in a single paginated
// GraphQL walk; the entities are then mapped and reconciled independently
// so one bad entity does not sink the rest.
type Extractor struct {
	Client *Client
	Run    *extract.Run

	// StartDate/EndDate restrict the pull to courses whose term overlaps
	// the range. Zero values disable the corresponding bound.
	StartDate time.Time
	EndDate   time.Time
}

func (e *Extractor) entityFailed(resource udm.Resource, err error) {
	e.Run.Log.Error().Str("resource", string(resource)).Err(err).Msg("entity extraction failed")
}

// Extract performs the full pull.
func (e *Extractor) Extract(ctx context.Context) error {
	courses, err := e.Client.Courses(ctx)
	if err != nil {
		// Everything hangs off the course walk; nothing to continue with.
		e.Run.Log.Error().Err(err).Msg("course walk failed, nothing extracted")
		return nil
	}
	courses = e.filterByTerm(courses)

	if err := e.writeUsers(ctx, courses); err != nil {
		return err
	}
	if err := e.writeSections(ctx, courses); err != nil {
		return err
	}

	for _, course := range courses {
		if err := e.writeCourseData(ctx, course); err != nil {
			return err
		}
	}
	return nil
}

// filterByTerm drops courses whose term falls entirely outside the
// configured date range.
func (e *Extractor) filterByTerm(courses []Course) []Course {
	if e.StartDate.IsZero() && e.EndDate.IsZero() {
		return courses
	}

	var kept []Course
	for _, c := range courses {
		termStart, _ := time.Parse(time.RFC3339, c.Term.StartAt)
		termEnd, _ := time.Parse(time.RFC3339, c.Term.EndAt)

		if !e.EndDate.IsZero() && !termStart.IsZero() && termStart.After(e.EndDate) {
			continue
		}
		if !e.StartDate.IsZero() && !termEnd.IsZero() && termEnd.Before(e.StartDate) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (e *Extractor) writeUsers(ctx context.Context, courses []Course) error {
	users, err := mapUsers(courses)
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

func (e *Extractor) writeSections(ctx context.Context, courses []Course) error {
	sections, err := mapSections(courses)
	if err != nil {
		e.entityFailed(udm.ResourceSections, err)
		return nil
	}
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSections, sections, e.Run.Tree.Sections()); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceSections, err)
	}
	return nil
}

func (e *Extractor) writeCourseData(ctx context.Context, course Course) error {
	if err := e.writeEnrollments(ctx, course); err != nil {
		return err
	}
	if err := e.writeGrades(ctx, course); err != nil {
		return err
	}
	return e.writeAssignments(ctx, course)
}

func (e *Extractor) writeEnrollments(ctx context.Context, course Course) error {
	associations, err := mapEnrollments(course)
	if err != nil {
		e.entityFailed(udm.ResourceSectionAssociations, err)
		return nil
	}
	dir := e.Run.Tree.SectionResource(course.ID, udm.ResourceSectionAssociations)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSectionAssociations, associations, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceSectionAssociations, err)
	}
	return nil
}

func (e *Extractor) writeGrades(ctx context.Context, course Course) error {
	grades, err := mapGrades(course)
	if err != nil {
		e.entityFailed(udm.ResourceGrades, err)
		return nil
	}
	dir := e.Run.Tree.SectionResource(course.ID, udm.ResourceGrades)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceGrades, grades, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceGrades, err)
	}
	return nil
}

func (e *Extractor) writeAssignments(ctx context.Context, course Course) error {
	assignments, err := mapAssignments(course)
	if err != nil {
		e.entityFailed(udm.ResourceAssignments, err)
		return nil
	}
	dir := e.Run.Tree.SectionResource(course.ID, udm.ResourceAssignments)
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceAssignments, assignments, dir); err != nil {
		if extract.Fatal(err) {
			return err
		}
		e.entityFailed(udm.ResourceAssignments, err)
		return nil
	}

	for _, raw := range course.Assignments.Nodes {
		submissions, err := mapSubmissions(raw)
		if err != nil {
			e.entityFailed(udm.ResourceSubmissions, err)
			continue
		}
		dir := e.Run.Tree.Submissions(course.ID, raw.ID)
		if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSubmissions, submissions, dir); err != nil {
			if extract.Fatal(err) {
				return err
			}
			e.entityFailed(udm.ResourceSubmissions, err)
		}
	}
	return nil
}
