package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/Awais68/school-lms-backend/internal/httperr"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportClass downloads the class attendance rollup as an .xlsx
// register, one row per student plus the class average. Teacher or
// admin.
func (ac *AttendanceController) ExportClass(c *gin.Context) {
	classID := c.Param("classId")
	if classID == "" {
		httperr.Respond(c, httperr.Validation("classId is required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, summary, err := ac.classRollup(ctx, c, classID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Attendance"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		httperr.Respond(c, err)
		return
	}

	headers := []string{"Admission No", "Student", "Section", "Present", "Absent", "Late", "Excused", "Total", "Rate %"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for row, e := range entries {
		values := []any{
			e.Student.AdmissionNo,
			e.Student.FullName,
			e.Student.Section,
			e.Statistics.Present,
			e.Statistics.Absent,
			e.Statistics.Late,
			e.Statistics.Excused,
			e.Statistics.Total,
			e.Statistics.AttendanceRate,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	footer, _ := excelize.CoordinatesToCellName(1, len(entries)+3)
	f.SetCellValue(sheet, footer, fmt.Sprintf("Class average: %.0f%% (%d of %d students with records)",
		summary.ClassAverage, summary.StudentsWithAttendance, summary.TotalStudents))

	buf, err := f.WriteToBuffer()
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	filename := fmt.Sprintf("attendance-%s-%s.xlsx", classID, time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
