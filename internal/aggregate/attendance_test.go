package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Awais68/school-lms-backend/internal/models"
)

func records(statuses ...string) []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, len(statuses))
	for i, s := range statuses {
		out[i] = models.AttendanceRecord{Status: s}
	}
	return out
}

func TestTallyAttendance(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     AttendanceStats
	}{
		{
			name: "no records yields zero rate not NaN",
			want: AttendanceStats{},
		},
		{
			name:     "all present",
			statuses: []string{models.AttendancePresent, models.AttendancePresent},
			want:     AttendanceStats{Total: 2, Present: 2, AttendanceRate: 100},
		},
		{
			name: "mixed statuses",
			statuses: []string{
				models.AttendancePresent,
				models.AttendancePresent,
				models.AttendanceAbsent,
				models.AttendanceLate,
			},
			want: AttendanceStats{Total: 4, Present: 2, Absent: 1, Late: 1, AttendanceRate: 50},
		},
		{
			name: "late and excused do not count as present",
			statuses: []string{
				models.AttendancePresent,
				models.AttendanceLate,
				models.AttendanceExcused,
			},
			want: AttendanceStats{Total: 3, Present: 1, Late: 1, Excused: 1, AttendanceRate: 33},
		},
		{
			name: "rate rounds half away from zero",
			statuses: []string{
				models.AttendancePresent,
				models.AttendancePresent,
				models.AttendanceAbsent,
			},
			want: AttendanceStats{Total: 3, Present: 2, Absent: 1, AttendanceRate: 67},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TallyAttendance(records(tt.statuses...)))
		})
	}
}

func TestSummarizeClass(t *testing.T) {
	// Students without records count toward the roster but stay out of
	// the average: [100, 50, no records] averages 75, not 50.
	got := SummarizeClass([]AttendanceStats{
		{Total: 4, Present: 4, AttendanceRate: 100},
		{Total: 4, Present: 2, AttendanceRate: 50},
		{},
	})
	assert.Equal(t, ClassSummary{
		TotalStudents:          3,
		StudentsWithAttendance: 2,
		ClassAverage:           75,
	}, got)
}

func TestSummarizeClassEmpty(t *testing.T) {
	assert.Equal(t, ClassSummary{}, SummarizeClass(nil))

	// A roster where nobody has records has no average either.
	got := SummarizeClass([]AttendanceStats{{}, {}})
	assert.Equal(t, ClassSummary{TotalStudents: 2}, got)
}
