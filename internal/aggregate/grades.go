package aggregate

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/models"
)

// LetterGrade maps a percentage to its letter using inclusive lower
// bounds. Downstream report cards depend on these exact thresholds;
// do not adjust them.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 85:
		return "A"
	case percentage >= 80:
		return "A-"
	case percentage >= 75:
		return "B+"
	case percentage >= 70:
		return "B"
	case percentage >= 65:
		return "B-"
	case percentage >= 60:
		return "C+"
	case percentage >= 55:
		return "C"
	case percentage >= 50:
		return "C-"
	case percentage >= 45:
		return "D"
	default:
		return "F"
	}
}

// Percentage computes pointsEarned/maxPoints*100 rounded to two
// decimals. A zero max yields 0 rather than NaN.
func Percentage(points, max float64) float64 {
	if max == 0 {
		return 0
	}
	return Round2(points / max * 100)
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// CourseGrades is one course's slice of a student's grade summary.
type CourseGrades struct {
	Course  primitive.ObjectID   `json:"course"`
	Grades  []models.GradeRecord `json:"grades"`
	Average float64              `json:"averagePercentage"`
}

// SummarizeGrades groups records by course in first-seen order and
// averages percentages per course with a simple mean. The overall GPA
// is the mean of the per-course means, not credit-weighted; it is
// computed from the unrounded course means and rounded once at the
// end.
func SummarizeGrades(records []models.GradeRecord) ([]CourseGrades, float64) {
	var order []primitive.ObjectID
	groups := make(map[primitive.ObjectID][]models.GradeRecord)
	for _, r := range records {
		if _, ok := groups[r.Course]; !ok {
			order = append(order, r.Course)
		}
		groups[r.Course] = append(groups[r.Course], r)
	}

	out := make([]CourseGrades, 0, len(order))
	var sumMeans float64
	for _, id := range order {
		grades := groups[id]
		var sum float64
		for _, g := range grades {
			sum += g.Percentage
		}
		mean := sum / float64(len(grades))
		out = append(out, CourseGrades{Course: id, Grades: grades, Average: Round2(mean)})
		sumMeans += mean
	}
	if len(out) == 0 {
		return out, 0
	}
	return out, Round2(sumMeans / float64(len(out)))
}
