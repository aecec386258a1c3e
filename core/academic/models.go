package academic

import (
	"time"

	"github.com/trezcool/shule/core"
)

const (
	ResultCollection    = "academicResults"
	PromotionCollection = "studentPromotions"
	RemarkCollection    = "endTermRemarks"
)

// Grade is one band of a grading scale: totals >= Min get Letter.
type Grade struct {
	Min    float64 `json:"min"`
	Letter string  `json:"letter"`
	Remark string  `json:"remark"`
}

// DefaultGradeScale is ordered from the highest band down.
var DefaultGradeScale = []Grade{
	{Min: 80, Letter: "A", Remark: "Excellent"},
	{Min: 70, Letter: "B", Remark: "Very good"},
	{Min: 60, Letter: "C", Remark: "Good"},
	{Min: 50, Letter: "D", Remark: "Credit"},
	{Min: 40, Letter: "E", Remark: "Pass"},
	{Min: 0, Letter: "F", Remark: "Fail"},
}

// GradeFor returns the band total falls in.
func GradeFor(total float64, scale []Grade) Grade {
	for _, g := range scale {
		if total >= g.Min {
			return g
		}
	}
	return Grade{}
}

type Result struct {
	ID           string    `json:"id,omitempty"`
	StudentID    string    `json:"studentId"`
	SubjectID    string    `json:"subjectId"`
	ClassID      string    `json:"classId"`
	Term         string    `json:"term"`
	AcademicYear string    `json:"academicYear"`
	ClassScore   float64   `json:"classScore"`
	ExamScore    float64   `json:"examScore"`
	Total        float64   `json:"total"`
	Grade        string    `json:"grade"`
	Remark       string    `json:"remark"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

type NewResult struct {
	StudentID    string  `json:"studentId" validate:"required"`
	SubjectID    string  `json:"subjectId" validate:"required"`
	ClassID      string  `json:"classId"`
	Term         string  `json:"term" validate:"required,notblank"`
	AcademicYear string  `json:"academicYear" validate:"required,notblank"`
	ClassScore   float64 `json:"classScore" validate:"gte=0,lte=50"`
	ExamScore    float64 `json:"examScore" validate:"gte=0,lte=50"`
}

func (nr *NewResult) Clean() {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.SubjectID = core.CleanString(nr.SubjectID)
	nr.ClassID = core.CleanString(nr.ClassID)
	nr.Term = core.CleanString(nr.Term)
	nr.AcademicYear = core.CleanString(nr.AcademicYear)
}

type ResultFilter struct {
	StudentID    string `query:"student_id"`
	ClassID      string `query:"class_id"`
	SubjectID    string `query:"subject_id"`
	Term         string `query:"term"`
	AcademicYear string `query:"academic_year"`
}

func (rf *ResultFilter) Clean() {
	rf.StudentID = core.CleanString(rf.StudentID)
	rf.ClassID = core.CleanString(rf.ClassID)
	rf.SubjectID = core.CleanString(rf.SubjectID)
	rf.Term = core.CleanString(rf.Term)
	rf.AcademicYear = core.CleanString(rf.AcademicYear)
}

func (rf ResultFilter) Match(r Result) bool {
	return (rf.StudentID == "" || r.StudentID == rf.StudentID) &&
		(rf.ClassID == "" || r.ClassID == rf.ClassID) &&
		(rf.SubjectID == "" || r.SubjectID == rf.SubjectID) &&
		(rf.Term == "" || r.Term == rf.Term) &&
		(rf.AcademicYear == "" || r.AcademicYear == rf.AcademicYear)
}

// Remark is the end-of-term comment for a student; one per (student, term, year).
type Remark struct {
	ID            string    `json:"id,omitempty"`
	StudentID     string    `json:"studentId"`
	Term          string    `json:"term"`
	AcademicYear  string    `json:"academicYear"`
	TeacherRemark string    `json:"teacherRemark"`
	HeadRemark    string    `json:"headRemark"`
	Conduct       string    `json:"conduct"`
	Attendance    int       `json:"attendance"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
}

type SaveRemark struct {
	StudentID     string `json:"studentId" validate:"required"`
	Term          string `json:"term" validate:"required,notblank"`
	AcademicYear  string `json:"academicYear" validate:"required,notblank"`
	TeacherRemark string `json:"teacherRemark"`
	HeadRemark    string `json:"headRemark"`
	Conduct       string `json:"conduct"`
	Attendance    int    `json:"attendance" validate:"gte=0"`
}

func (sr *SaveRemark) Clean() {
	sr.StudentID = core.CleanString(sr.StudentID)
	sr.Term = core.CleanString(sr.Term)
	sr.AcademicYear = core.CleanString(sr.AcademicYear)
	sr.TeacherRemark = core.CleanString(sr.TeacherRemark)
	sr.HeadRemark = core.CleanString(sr.HeadRemark)
	sr.Conduct = core.CleanString(sr.Conduct)
}

type Promotion struct {
	ID           string    `json:"id,omitempty"`
	StudentID    string    `json:"studentId"`
	FromClassID  string    `json:"fromClassId"`
	ToClassID    string    `json:"toClassId"`
	AcademicYear string    `json:"academicYear"`
	PromotedAt   time.Time `json:"promotedAt"` // UTC
}

type NewPromotion struct {
	StudentIDs   []string `json:"studentIds" validate:"required,min=1,dive,required"`
	ToClassID    string   `json:"toClassId" validate:"required"`
	AcademicYear string   `json:"academicYear" validate:"required,notblank"`
}

func (np *NewPromotion) Clean() {
	np.ToClassID = core.CleanString(np.ToClassID)
	np.AcademicYear = core.CleanString(np.AcademicYear)
	for i, id := range np.StudentIDs {
		np.StudentIDs[i] = core.CleanString(id)
	}
}
