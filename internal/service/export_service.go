package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hoken-api/internal/models"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/export"
)

type studentSearcher interface {
	Search(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
}

type statisticsComputer interface {
	Compute(ctx context.Context, filter models.StatisticsFilter) (*models.StatisticsReport, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportService assembles export payloads from student and statistics data
// and hands them to the configured renderers.
type ExportService struct {
	students   studentSearcher
	statistics statisticsComputer
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(students studentSearcher, statistics statisticsComputer, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, statistics: statistics, csv: csv, pdf: pdf, logger: logger}
}

var studentCSVHeaders = []string{
	"学籍番号", "氏名", "ふりがな", "出席番号", "性別", "生年月日",
	"クラス", "学年", "状態", "健康記録数", "最新記録年度",
}

// ExportStudents renders the students matching the filter as CSV. Pagination
// is disabled for exports; the filter's page settings are overridden.
func (s *ExportService) ExportStudents(ctx context.Context, filter models.StudentFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PageSize = exportPageSize
	students, _, err := s.students.Search(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		latest := ""
		if st.LatestRecordYear != nil {
			latest = strconv.Itoa(*st.LatestRecordYear)
		}
		rows = append(rows, map[string]string{
			"学籍番号":   st.StudentID,
			"氏名":     st.Name,
			"ふりがな":   st.NameKana,
			"出席番号":   strconv.Itoa(st.StudentNumber),
			"性別":     genderLabel(st.Gender),
			"生年月日":   st.BirthDate.Format("2006-01-02"),
			"クラス":    st.ClassID,
			"学年":     strconv.Itoa(st.GradeID),
			"状態":     statusLabel(st.Status),
			"健康記録数":  strconv.Itoa(st.HealthRecordCount),
			"最新記録年度": latest,
		})
	}

	data, err := s.csv.Render(export.Dataset{Headers: studentCSVHeaders, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render student csv")
	}
	filename := fmt.Sprintf("students_%s.csv", time.Now().Format("20060102"))
	return data, filename, nil
}

// ExportStatistics renders a statistics report as PDF for the given scope.
func (s *ExportService) ExportStatistics(ctx context.Context, filter models.StatisticsFilter) ([]byte, string, error) {
	report, _, err := s.statistics.Compute(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	data, err := s.pdf.Render(buildStatisticsReport(report, filter))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statistics pdf")
	}
	filename := fmt.Sprintf("statistics_%s.pdf", time.Now().Format("20060102"))
	return data, filename, nil
}

// exportPageSize caps export result sets well above any realistic school size.
const exportPageSize = 10000

func buildStatisticsReport(report *models.StatisticsReport, filter models.StatisticsFilter) export.Report {
	title := "健康診断統計レポート"
	if filter.Year != nil {
		title = fmt.Sprintf("健康診断統計レポート %d年度", *filter.Year)
	}

	summary := []export.SummaryItem{
		{Label: "対象件数", Value: strconv.Itoa(report.Count)},
		{Label: "平均身長 (cm)", Value: formatStat(report.AvgHeight)},
		{Label: "平均体重 (kg)", Value: formatStat(report.AvgWeight)},
		{Label: "平均BMI", Value: formatStat(report.AvgBMI)},
	}

	sections := []export.Section{
		{
			Title: "BMI分布",
			Data: export.Dataset{
				Headers: []string{"区分", "件数", "割合 (%)"},
				Rows: []map[string]string{
					{"区分": "低体重", "件数": strconv.Itoa(report.Distribution.Underweight), "割合 (%)": formatStat(report.Distribution.UnderweightPercent)},
					{"区分": "普通", "件数": strconv.Itoa(report.Distribution.Normal), "割合 (%)": formatStat(report.Distribution.NormalPercent)},
					{"区分": "過体重", "件数": strconv.Itoa(report.Distribution.Overweight), "割合 (%)": formatStat(report.Distribution.OverweightPercent)},
					{"区分": "肥満", "件数": strconv.Itoa(report.Distribution.Obese), "割合 (%)": formatStat(report.Distribution.ObesePercent)},
				},
			},
		},
	}

	if len(report.ByGrade) > 0 {
		rows := make([]map[string]string, 0, len(report.ByGrade))
		for _, g := range report.ByGrade {
			rows = append(rows, map[string]string{
				"学年":   strconv.Itoa(g.Grade),
				"件数":   strconv.Itoa(g.Count),
				"平均身長": formatStat(g.AvgHeight),
				"平均体重": formatStat(g.AvgWeight),
				"平均BMI": formatStat(g.AvgBMI),
			})
		}
		sections = append(sections, export.Section{
			Title: "学年別",
			Data:  export.Dataset{Headers: []string{"学年", "件数", "平均身長", "平均体重", "平均BMI"}, Rows: rows},
		})
	}

	if len(report.ByClass) > 0 {
		rows := make([]map[string]string, 0, len(report.ByClass))
		for _, c := range report.ByClass {
			rows = append(rows, map[string]string{
				"クラス":  c.ClassID,
				"件数":   strconv.Itoa(c.Count),
				"平均身長": formatStat(c.AvgHeight),
				"平均体重": formatStat(c.AvgWeight),
				"平均BMI": formatStat(c.AvgBMI),
			})
		}
		sections = append(sections, export.Section{
			Title: "クラス別",
			Data:  export.Dataset{Headers: []string{"クラス", "件数", "平均身長", "平均体重", "平均BMI"}, Rows: rows},
		})
	}

	return export.Report{Title: title, Summary: summary, Sections: sections}
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func genderLabel(g models.Gender) string {
	switch g {
	case models.GenderMale:
		return "男"
	case models.GenderFemale:
		return "女"
	default:
		return string(g)
	}
}

func statusLabel(s models.StudentStatus) string {
	switch s {
	case models.StudentStatusActive:
		return "在籍"
	case models.StudentStatusInactive:
		return "転出・卒業"
	default:
		return string(s)
	}
}
