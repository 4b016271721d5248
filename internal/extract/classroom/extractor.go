package classroom

import (
	"context"

	"github.com/roach88/slate/internal/extract"
	"github.com/roach88/slate/internal/udm"
)

// Extractor runs one full Classroom pull: courses first, then per course the
// roster, coursework and submissions. Classroom exposes no grade or
// attendance data, so those resources are never written.
type Extractor struct {
	Client *Client
	Run    *extract.Run
}

func (e *Extractor) entityFailed(resource udm.Resource, err error) {
	e.Run.Log.Error().Str("resource", string(resource)).Err(err).Msg("entity extraction failed")
}

// Extract performs the full pull.
func (e *Extractor) Extract(ctx context.Context) error {
	courses, err := e.Client.Courses(ctx)
	if err != nil {
		// Everything hangs off the course list; nothing to continue with.
		e.Run.Log.Error().Err(err).Msg("course listing failed, nothing extracted")
		return nil
	}

	rosters, err := e.writeSections(ctx, courses)
	if err != nil {
		return err
	}
	if err := e.writeUsers(ctx, rosters); err != nil {
		return err
	}

	for _, course := range courses {
		if err := e.writeCourseData(ctx, course, rosters[course.ID]); err != nil {
			return err
		}
	}
	return nil
}

// roster holds one course's fetched membership.
type roster struct {
	students []RosterEntry
	teachers []RosterEntry
}

// writeSections reconciles the course list and fetches each course's roster
// along the way, so users and associations reuse the same pull.
func (e *Extractor) writeSections(ctx context.Context, courses []Course) (map[string]roster, error) {
	rosters := make(map[string]roster, len(courses))
	for _, course := range courses {
		students, err := e.Client.Students(ctx, course.ID)
		if err != nil {
			e.entityFailed(udm.ResourceUsers, err)
			continue
		}
		teachers, err := e.Client.Teachers(ctx, course.ID)
		if err != nil {
			e.entityFailed(udm.ResourceUsers, err)
			continue
		}
		rosters[course.ID] = roster{students: students, teachers: teachers}
	}

	sections, err := mapCourses(courses)
	if err != nil {
		e.entityFailed(udm.ResourceSections, err)
		return rosters, nil
	}
	if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSections, sections, e.Run.Tree.Sections()); err != nil {
		if extract.Fatal(err) {
			return nil, err
		}
		e.entityFailed(udm.ResourceSections, err)
	}
	return rosters, nil
}

func (e *Extractor) writeUsers(ctx context.Context, rosters map[string]roster) error {
	var students, teachers []RosterEntry
	for _, r := range rosters {
		students = append(students, r.students...)
		teachers = append(teachers, r.teachers...)
	}

	users, err := mapRoster(students, teachers)
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

func (e *Extractor) writeCourseData(ctx context.Context, course Course, r roster) error {
	if err := e.writeAssociations(ctx, course, r); err != nil {
		return err
	}
	return e.writeCourseWork(ctx, course)
}

func (e *Extractor) writeAssociations(ctx context.Context, course Course, r roster) error {
	associations, err := mapStudents(r.students)
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

func (e *Extractor) writeCourseWork(ctx context.Context, course Course) error {
	works, err := e.Client.CourseWorks(ctx, course.ID)
	if err != nil {
		e.entityFailed(udm.ResourceAssignments, err)
		return nil
	}

	assignments, err := mapCourseWorks(works)
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

	for _, work := range works {
		raw, err := e.Client.StudentSubmissions(ctx, course.ID, work.ID)
		if err != nil {
			e.entityFailed(udm.ResourceSubmissions, err)
			continue
		}
		submissions, err := mapSubmissions(raw)
		if err != nil {
			e.entityFailed(udm.ResourceSubmissions, err)
			continue
		}
		dir := e.Run.Tree.Submissions(course.ID, work.ID)
		if err := extract.SyncAndWrite(ctx, e.Run, udm.ResourceSubmissions, submissions, dir); err != nil {
			if extract.Fatal(err) {
				return err
			}
			e.entityFailed(udm.ResourceSubmissions, err)
		}
	}
	return nil
}
