package loader

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slate/internal/csvio"
	"github.com/roach88/slate/internal/udm"
)

const testSchema = `
CREATE TABLE MigrationJournal (Script TEXT PRIMARY KEY, AppliedAt TEXT NOT NULL);
CREATE TABLE ProcessedFiles (FullPath TEXT PRIMARY KEY, ResourceName TEXT NOT NULL, NumberOfRows INTEGER NOT NULL, UploadDateTime TEXT NOT NULL);

CREATE TABLE LMSUser (LMSUserIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, UserRole TEXT NOT NULL, SISUserIdentifier TEXT NOT NULL, LocalUserIdentifier TEXT NOT NULL, Name TEXT NOT NULL, EmailAddress TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_LMSUser (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, UserRole TEXT NOT NULL, SISUserIdentifier TEXT NOT NULL, LocalUserIdentifier TEXT NOT NULL, Name TEXT NOT NULL, EmailAddress TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);

CREATE TABLE LMSSection (LMSSectionIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, SISSectionIdentifier TEXT NOT NULL, Title TEXT NOT NULL, SectionDescription TEXT NOT NULL, Term TEXT NOT NULL, LMSSectionStatus TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_LMSSection (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, SISSectionIdentifier TEXT NOT NULL, Title TEXT NOT NULL, SectionDescription TEXT NOT NULL, Term TEXT NOT NULL, LMSSectionStatus TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);

CREATE TABLE LMSUserLMSSectionAssociation (LMSUserLMSSectionAssociationIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionIdentifier INTEGER NOT NULL, LMSUserIdentifier INTEGER NOT NULL, EnrollmentStatus TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_LMSUserLMSSectionAssociation (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionSourceSystemIdentifier TEXT NOT NULL, LMSUserSourceSystemIdentifier TEXT NOT NULL, EnrollmentStatus TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);

CREATE TABLE Assignment (AssignmentIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionIdentifier INTEGER NOT NULL, Title TEXT NOT NULL, AssignmentCategory TEXT NOT NULL, AssignmentDescription TEXT NOT NULL, StartDateTime TEXT NOT NULL, EndDateTime TEXT NOT NULL, DueDateTime TEXT NOT NULL, MaxPoints TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_Assignment (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionSourceSystemIdentifier TEXT NOT NULL, Title TEXT NOT NULL, AssignmentCategory TEXT NOT NULL, AssignmentDescription TEXT NOT NULL, StartDateTime TEXT NOT NULL, EndDateTime TEXT NOT NULL, DueDateTime TEXT NOT NULL, MaxPoints TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);

CREATE TABLE LMSGrade (LMSGradeIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionIdentifier INTEGER NOT NULL, LMSUserIdentifier INTEGER NOT NULL, Grade TEXT NOT NULL, GradeType TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_LMSGrade (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionSourceSystemIdentifier TEXT NOT NULL, LMSUserSourceSystemIdentifier TEXT NOT NULL, Grade TEXT NOT NULL, GradeType TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);

CREATE TABLE AssignmentSubmission (AssignmentSubmissionIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, AssignmentIdentifier INTEGER NOT NULL, LMSUserIdentifier INTEGER NOT NULL, SubmissionStatus TEXT NOT NULL, SubmissionDateTime TEXT NOT NULL, EarnedPoints TEXT NOT NULL, Grade TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_AssignmentSubmission (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, AssignmentSourceSystemIdentifier TEXT NOT NULL, LMSUserSourceSystemIdentifier TEXT NOT NULL, SubmissionStatus TEXT NOT NULL, SubmissionDateTime TEXT NOT NULL, EarnedPoints TEXT NOT NULL, Grade TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);

CREATE TABLE LMSUserAttendanceEvent (LMSUserAttendanceEventIdentifier INTEGER PRIMARY KEY, SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionIdentifier INTEGER NOT NULL, LMSUserIdentifier INTEGER NOT NULL, EventDate TEXT NOT NULL, AttendanceStatus TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL, DeletedAt TEXT);
CREATE TABLE stg_LMSUserAttendanceEvent (SourceSystem TEXT NOT NULL, SourceSystemIdentifier TEXT NOT NULL, EntityStatus TEXT NOT NULL, LMSSectionSourceSystemIdentifier TEXT NOT NULL, LMSUserSourceSystemIdentifier TEXT NOT NULL, EventDate TEXT NOT NULL, AttendanceStatus TEXT NOT NULL, CreateDate TEXT NOT NULL, LastModifiedDate TEXT NOT NULL);
`

func newTestLoader(t *testing.T) (*Loader, *sql.DB) {
	t.Helper()
	db := openTestDB(t)

	m := &Migrator{DB: db, Dialect: sqliteDialect{}, Log: zerolog.Nop()}
	fsys := fstest.MapFS{"0001_schema.sql": &fstest.MapFile{Data: []byte(testSchema)}}
	require.NoError(t, m.MigrateFS(context.Background(), fsys, "."))

	return &Loader{
		DB:      db,
		Dialect: sqliteDialect{},
		Log:     zerolog.Nop(),
		Tree:    csvio.Tree{Base: t.TempDir()},
	}, db
}

func stamp(s string) udm.Timestamp {
	ts, err := udm.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func testUser(id string) udm.User {
	return udm.User{
		SourceSystem:           udm.SourceCanvas,
		SourceSystemIdentifier: id,
		EntityStatus:           udm.StatusActive,
		UserRole:               "Student",
		Name:                   "User " + id,
		CreateDate:             stamp("2023-09-01 08:00:00"),
		LastModifiedDate:       stamp("2023-09-01 08:00:00"),
	}
}

func testSection(id string) udm.Section {
	return udm.Section{
		SourceSystem:           udm.SourceCanvas,
		SourceSystemIdentifier: id,
		EntityStatus:           udm.StatusActive,
		Title:                  "Section " + id,
		LMSSectionStatus:       "active",
		CreateDate:             stamp("2023-09-01 08:00:00"),
		LastModifiedDate:       stamp("2023-09-01 08:00:00"),
	}
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestLoad_FullTree(t *testing.T) {
	l, db := newTestLoader(t)
	writeTime := time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC)
	dates := stamp("2023-09-01 08:00:00")

	mustWrite(t, l.Tree.Users(), []udm.User{testUser("u1"), testUser("u2")}, writeTime)
	mustWrite(t, l.Tree.Sections(), []udm.Section{testSection("s1")}, writeTime)
	mustWrite(t, l.Tree.SectionResource("s1", udm.ResourceSectionAssociations), []udm.SectionAssociation{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "e1", EntityStatus: udm.StatusActive,
		LMSSectionSourceSystemIdentifier: "s1", LMSUserSourceSystemIdentifier: "u1",
		EnrollmentStatus: "active", CreateDate: dates, LastModifiedDate: dates,
	}}, writeTime)
	mustWrite(t, l.Tree.SectionResource("s1", udm.ResourceAssignments), []udm.Assignment{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "a1", EntityStatus: udm.StatusActive,
		LMSSectionSourceSystemIdentifier: "s1", Title: "HW 1", AssignmentCategory: "assignment",
		MaxPoints: "20", CreateDate: dates, LastModifiedDate: dates,
	}}, writeTime)
	mustWrite(t, l.Tree.SectionResource("s1", udm.ResourceGrades), []udm.Grade{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "g#e1", EntityStatus: udm.StatusActive,
		LMSSectionSourceSystemIdentifier: "s1", LMSUserSourceSystemIdentifier: "u1",
		Grade: "A-", GradeType: "Final", CreateDate: dates, LastModifiedDate: dates,
	}}, writeTime)
	mustWrite(t, l.Tree.SectionResource("s1", udm.ResourceAttendanceEvents), []udm.AttendanceEvent{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "e1#2023-09-01", EntityStatus: udm.StatusActive,
		LMSSectionSourceSystemIdentifier: "s1", LMSUserSourceSystemIdentifier: "u1",
		EventDate: "2023-09-01", AttendanceStatus: "present", CreateDate: dates, LastModifiedDate: dates,
	}}, writeTime)
	mustWrite(t, l.Tree.Submissions("s1", "a1"), []udm.Submission{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "sub1", EntityStatus: udm.StatusActive,
		AssignmentSourceSystemIdentifier: "a1", LMSUserSourceSystemIdentifier: "u1",
		SubmissionStatus: "on-time", EarnedPoints: "18", CreateDate: dates, LastModifiedDate: dates,
	}}, writeTime)

	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, 2, count(t, db, "SELECT COUNT(1) FROM LMSUser"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(1) FROM LMSSection"))
	assert.Equal(t, 1, count(t, db, `
		SELECT COUNT(1) FROM LMSUserLMSSectionAssociation a
		JOIN LMSUser u ON u.LMSUserIdentifier = a.LMSUserIdentifier
		JOIN LMSSection s ON s.LMSSectionIdentifier = a.LMSSectionIdentifier
		WHERE u.SourceSystemIdentifier = 'u1' AND s.SourceSystemIdentifier = 's1'`),
		"association must resolve both parent surrogate keys")
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(1) FROM Assignment"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(1) FROM LMSGrade"))
	assert.Equal(t, 1, count(t, db, `
		SELECT COUNT(1) FROM AssignmentSubmission sub
		JOIN Assignment a ON a.AssignmentIdentifier = sub.AssignmentIdentifier
		WHERE a.SourceSystemIdentifier = 'a1'`))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(1) FROM LMSUserAttendanceEvent"))
	assert.Equal(t, 7, count(t, db, "SELECT COUNT(1) FROM ProcessedFiles"))

	// A second run sees only processed files and changes nothing.
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(1) FROM LMSUser"))
	assert.Equal(t, 7, count(t, db, "SELECT COUNT(1) FROM ProcessedFiles"))
}

func TestLoad_UpdateSoftDeleteRevive(t *testing.T) {
	l, db := newTestLoader(t)

	first := time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC)
	mustWrite(t, l.Tree.Users(), []udm.User{testUser("u1"), testUser("u2")}, first)
	require.NoError(t, l.Load(context.Background()))

	// u1 changed, u2 gone.
	changed := testUser("u1")
	changed.Name = "User u1 Renamed"
	changed.LastModifiedDate = stamp("2023-09-02 08:00:00")
	second := time.Date(2023, 9, 2, 9, 0, 0, 0, time.UTC)
	mustWrite(t, l.Tree.Users(), []udm.User{changed}, second)
	require.NoError(t, l.Load(context.Background()))

	var name, createDate string
	require.NoError(t, db.QueryRow(
		"SELECT Name, CreateDate FROM LMSUser WHERE SourceSystemIdentifier = 'u1'").Scan(&name, &createDate))
	assert.Equal(t, "User u1 Renamed", name)
	assert.Equal(t, "2023-09-01 08:00:00", createDate, "updates never touch CreateDate")

	assert.Equal(t, 1, count(t, db,
		"SELECT COUNT(1) FROM LMSUser WHERE SourceSystemIdentifier = 'u2' AND DeletedAt IS NOT NULL"))

	// u2 reappears unchanged; the merge must revive it.
	third := time.Date(2023, 9, 3, 9, 0, 0, 0, time.UTC)
	mustWrite(t, l.Tree.Users(), []udm.User{changed, testUser("u2")}, third)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, 1, count(t, db,
		"SELECT COUNT(1) FROM LMSUser WHERE SourceSystemIdentifier = 'u2' AND DeletedAt IS NULL"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(1) FROM LMSUser"), "revival must not duplicate the row")
}

func TestLoad_RemergingIdenticalRowsIsNoOp(t *testing.T) {
	l, db := newTestLoader(t)

	users := []udm.User{testUser("u1"), testUser("u2")}
	mustWrite(t, l.Tree.Users(), users, time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, l.Load(context.Background()))

	type userRow struct {
		Surrogate    int
		Name         string
		CreateDate   string
		LastModified string
		DeletedAt    sql.NullString
	}
	snapshot := func() map[string]userRow {
		rows, err := db.Query(
			"SELECT SourceSystemIdentifier, LMSUserIdentifier, Name, CreateDate, LastModifiedDate, DeletedAt FROM LMSUser")
		require.NoError(t, err)
		defer rows.Close()

		out := map[string]userRow{}
		for rows.Next() {
			var id string
			var r userRow
			require.NoError(t, rows.Scan(&id, &r.Surrogate, &r.Name, &r.CreateDate, &r.LastModified, &r.DeletedAt))
			out[id] = r
		}
		require.NoError(t, rows.Err())
		return out
	}
	before := snapshot()
	require.Len(t, before, 2)

	// A newer file with byte-identical rows is unprocessed, so the full
	// merge runs again rather than short-circuiting on the ledger.
	mustWrite(t, l.Tree.Users(), users, time.Date(2023, 9, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, before, snapshot(),
		"an identical re-merge must leave every production row untouched")
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(1) FROM ProcessedFiles"))
}

func TestLoad_SkipsRowsWithUnresolvedParents(t *testing.T) {
	l, db := newTestLoader(t)
	writeTime := time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC)
	dates := stamp("2023-09-01 08:00:00")

	mustWrite(t, l.Tree.Users(), []udm.User{testUser("u1")}, writeTime)
	mustWrite(t, l.Tree.Sections(), []udm.Section{testSection("s1")}, writeTime)
	mustWrite(t, l.Tree.SectionResource("s1", udm.ResourceGrades), []udm.Grade{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "g#ghost", EntityStatus: udm.StatusActive,
		LMSSectionSourceSystemIdentifier: "s1", LMSUserSourceSystemIdentifier: "ghost",
		Grade: "B", GradeType: "Final", CreateDate: dates, LastModifiedDate: dates,
	}}, writeTime)

	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, 0, count(t, db, "SELECT COUNT(1) FROM LMSGrade"),
		"rows with unknown parents are skipped, not inserted")
}

func TestLoad_TruncatesLongAssignmentDescription(t *testing.T) {
	l, db := newTestLoader(t)
	writeTime := time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC)
	dates := stamp("2023-09-01 08:00:00")

	mustWrite(t, l.Tree.Sections(), []udm.Section{testSection("s1")}, writeTime)
	mustWrite(t, l.Tree.SectionResource("s1", udm.ResourceAssignments), []udm.Assignment{{
		SourceSystem: udm.SourceCanvas, SourceSystemIdentifier: "a1", EntityStatus: udm.StatusActive,
		LMSSectionSourceSystemIdentifier: "s1", Title: "HW",
		AssignmentDescription: strings.Repeat("x", 3000),
		CreateDate:            dates, LastModifiedDate: dates,
	}}, writeTime)

	require.NoError(t, l.Load(context.Background()))

	var length int
	require.NoError(t, db.QueryRow(
		"SELECT LENGTH(AssignmentDescription) FROM Assignment WHERE SourceSystemIdentifier = 'a1'").Scan(&length))
	assert.Equal(t, 1024, length)
}

func mustWrite[T any](t *testing.T, dir string, rows []T, ts time.Time) {
	t.Helper()
	_, err := csvio.Write(dir, rows, ts)
	require.NoError(t, err)
}
