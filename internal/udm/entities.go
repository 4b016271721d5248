package udm

// Section is one course section as exposed by the source LMS.
//
// CSV columns follow the field order below; CreateDate and LastModifiedDate
// are assigned by the sync reconciler, never by a mapper.
type Section struct {
	SourceSystem           string    `csv:"SourceSystem"`
	SourceSystemIdentifier string    `csv:"SourceSystemIdentifier"`
	EntityStatus           string    `csv:"EntityStatus"`
	SISSectionIdentifier   string    `csv:"SISSectionIdentifier"`
	Title                  string    `csv:"Title"`
	SectionDescription     string    `csv:"SectionDescription"`
	Term                   string    `csv:"Term"`
	LMSSectionStatus       string    `csv:"LMSSectionStatus"`
	CreateDate             Timestamp `csv:"CreateDate"`
	LastModifiedDate       Timestamp `csv:"LastModifiedDate"`
}

func (s Section) Key() string { return s.SourceSystemIdentifier }

func (s Section) WithDates(create, modified Timestamp) Section {
	s.CreateDate, s.LastModifiedDate = create, modified
	return s
}

// User is a student or teacher account.
type User struct {
	SourceSystem           string    `csv:"SourceSystem"`
	SourceSystemIdentifier string    `csv:"SourceSystemIdentifier"`
	EntityStatus           string    `csv:"EntityStatus"`
	UserRole               string    `csv:"UserRole"`
	SISUserIdentifier      string    `csv:"SISUserIdentifier"`
	LocalUserIdentifier    string    `csv:"LocalUserIdentifier"`
	Name                   string    `csv:"Name"`
	EmailAddress           string    `csv:"EmailAddress"`
	CreateDate             Timestamp `csv:"CreateDate"`
	LastModifiedDate       Timestamp `csv:"LastModifiedDate"`
}

func (u User) Key() string { return u.SourceSystemIdentifier }

func (u User) WithDates(create, modified Timestamp) User {
	u.CreateDate, u.LastModifiedDate = create, modified
	return u
}

// Assignment is graded or ungraded coursework attached to a section.
// AssignmentDescription longer than the production column is truncated by
// the loader, not here.
type Assignment struct {
	SourceSystem                     string    `csv:"SourceSystem"`
	SourceSystemIdentifier           string    `csv:"SourceSystemIdentifier"`
	EntityStatus                     string    `csv:"EntityStatus"`
	LMSSectionSourceSystemIdentifier string    `csv:"LMSSectionSourceSystemIdentifier"`
	Title                            string    `csv:"Title"`
	AssignmentCategory               string    `csv:"AssignmentCategory"`
	AssignmentDescription            string    `csv:"AssignmentDescription"`
	StartDateTime                    Timestamp `csv:"StartDateTime"`
	EndDateTime                      Timestamp `csv:"EndDateTime"`
	DueDateTime                      Timestamp `csv:"DueDateTime"`
	MaxPoints                        string    `csv:"MaxPoints"`
	CreateDate                       Timestamp `csv:"CreateDate"`
	LastModifiedDate                 Timestamp `csv:"LastModifiedDate"`
}

func (a Assignment) Key() string { return a.SourceSystemIdentifier }

func (a Assignment) WithDates(create, modified Timestamp) Assignment {
	a.CreateDate, a.LastModifiedDate = create, modified
	return a
}

// Submission is one user's submission against an assignment. It references
// both parents by natural key only.
type Submission struct {
	SourceSystem                     string    `csv:"SourceSystem"`
	SourceSystemIdentifier           string    `csv:"SourceSystemIdentifier"`
	EntityStatus                     string    `csv:"EntityStatus"`
	AssignmentSourceSystemIdentifier string    `csv:"AssignmentSourceSystemIdentifier"`
	LMSUserSourceSystemIdentifier    string    `csv:"LMSUserSourceSystemIdentifier"`
	SubmissionStatus                 string    `csv:"SubmissionStatus"`
	SubmissionDateTime               Timestamp `csv:"SubmissionDateTime"`
	EarnedPoints                     string    `csv:"EarnedPoints"`
	Grade                            string    `csv:"Grade"`
	CreateDate                       Timestamp `csv:"CreateDate"`
	LastModifiedDate                 Timestamp `csv:"LastModifiedDate"`
}

func (s Submission) Key() string { return s.SourceSystemIdentifier }

func (s Submission) WithDates(create, modified Timestamp) Submission {
	s.CreateDate, s.LastModifiedDate = create, modified
	return s
}

// SectionAssociation is an enrollment: one user's membership in one section.
type SectionAssociation struct {
	SourceSystem                     string    `csv:"SourceSystem"`
	SourceSystemIdentifier           string    `csv:"SourceSystemIdentifier"`
	EntityStatus                     string    `csv:"EntityStatus"`
	LMSSectionSourceSystemIdentifier string    `csv:"LMSSectionSourceSystemIdentifier"`
	LMSUserSourceSystemIdentifier    string    `csv:"LMSUserSourceSystemIdentifier"`
	EnrollmentStatus                 string    `csv:"EnrollmentStatus"`
	CreateDate                       Timestamp `csv:"CreateDate"`
	LastModifiedDate                 Timestamp `csv:"LastModifiedDate"`
}

func (s SectionAssociation) Key() string { return s.SourceSystemIdentifier }

func (s SectionAssociation) WithDates(create, modified Timestamp) SectionAssociation {
	s.CreateDate, s.LastModifiedDate = create, modified
	return s
}

// Grade is a user's current grade within a section. Identifiers are derived
// from the enrollment ("g#" + enrollment id) since vendors do not assign
// grade records their own ids.
type Grade struct {
	SourceSystem                     string    `csv:"SourceSystem"`
	SourceSystemIdentifier           string    `csv:"SourceSystemIdentifier"`
	EntityStatus                     string    `csv:"EntityStatus"`
	LMSSectionSourceSystemIdentifier string    `csv:"LMSSectionSourceSystemIdentifier"`
	LMSUserSourceSystemIdentifier    string    `csv:"LMSUserSourceSystemIdentifier"`
	Grade                            string    `csv:"Grade"`
	GradeType                        string    `csv:"GradeType"`
	CreateDate                       Timestamp `csv:"CreateDate"`
	LastModifiedDate                 Timestamp `csv:"LastModifiedDate"`
}

func (g Grade) Key() string { return g.SourceSystemIdentifier }

func (g Grade) WithDates(create, modified Timestamp) Grade {
	g.CreateDate, g.LastModifiedDate = create, modified
	return g
}

// AttendanceEvent is one user's attendance status in a section on one day.
// The identifier is the composite "<enrollment id>#<event date>".
type AttendanceEvent struct {
	SourceSystem                     string    `csv:"SourceSystem"`
	SourceSystemIdentifier           string    `csv:"SourceSystemIdentifier"`
	EntityStatus                     string    `csv:"EntityStatus"`
	LMSSectionSourceSystemIdentifier string    `csv:"LMSSectionSourceSystemIdentifier"`
	LMSUserSourceSystemIdentifier    string    `csv:"LMSUserSourceSystemIdentifier"`
	EventDate                        string    `csv:"EventDate"`
	AttendanceStatus                 string    `csv:"AttendanceStatus"`
	CreateDate                       Timestamp `csv:"CreateDate"`
	LastModifiedDate                 Timestamp `csv:"LastModifiedDate"`
}

func (a AttendanceEvent) Key() string { return a.SourceSystemIdentifier }

func (a AttendanceEvent) WithDates(create, modified Timestamp) AttendanceEvent {
	a.CreateDate, a.LastModifiedDate = create, modified
	return a
}
