// Package aggregate holds the in-process attendance and grade
// computations. Everything here is pure: controllers fetch the
// records, these functions derive the numbers.
package aggregate

import (
	"math"

	"github.com/Awais68/school-lms-backend/internal/models"
)

// AttendanceStats summarizes one student's records over a range.
// AttendanceRate is round-half-up(present/total*100); zero records
// yield rate 0, never NaN.
type AttendanceStats struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	Excused        int     `json:"excused"`
	AttendanceRate float64 `json:"attendanceRate"`
}

func TallyAttendance(records []models.AttendanceRecord) AttendanceStats {
	var s AttendanceStats
	for _, r := range records {
		s.Total++
		switch r.Status {
		case models.AttendancePresent:
			s.Present++
		case models.AttendanceAbsent:
			s.Absent++
		case models.AttendanceLate:
			s.Late++
		case models.AttendanceExcused:
			s.Excused++
		}
	}
	if s.Total > 0 {
		s.AttendanceRate = math.Round(float64(s.Present) / float64(s.Total) * 100)
	}
	return s
}

// ClassSummary is the class-wide rollup. Students with no records
// count toward TotalStudents but not toward StudentsWithAttendance or
// the average.
type ClassSummary struct {
	TotalStudents          int     `json:"totalStudents"`
	StudentsWithAttendance int     `json:"studentsWithAttendance"`
	ClassAverage           float64 `json:"classAverage"`
}

func SummarizeClass(perStudent []AttendanceStats) ClassSummary {
	s := ClassSummary{TotalStudents: len(perStudent)}
	var sum float64
	for _, st := range perStudent {
		if st.Total == 0 {
			continue
		}
		s.StudentsWithAttendance++
		sum += st.AttendanceRate
	}
	if s.StudentsWithAttendance > 0 {
		s.ClassAverage = math.Round(sum / float64(s.StudentsWithAttendance))
	}
	return s
}
