package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"useradmin/internal/authz"
	"useradmin/internal/models"
	apperrors "useradmin/pkg/errors"
	"useradmin/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// 导入文件列名
const (
	ColumnApplicationDate = "application_date"
	ColumnUserID          = "user_id"
	ColumnTargetProduct   = "target_product"
	ColumnStatus          = "status"
)

// ImportColumns 导入模板列顺序
var ImportColumns = []string{ColumnApplicationDate, ColumnUserID, ColumnTargetProduct, ColumnStatus}

// 支持的文件格式
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// TemplateExampleUserID 模板示例行使用的用户ID
const TemplateExampleUserID = 1

const templateSheet = "Sheet1"

// RowStatus 单行导入结果
type RowStatus string

const (
	RowImported RowStatus = "imported"
	RowSkipped  RowStatus = "skipped"
)

// RowResult 单行结果，Row 为表格中的行号（表头为第 1 行）
type RowResult struct {
	Row           int       `json:"row"`
	Status        RowStatus `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	ApplicationID uint      `json:"application_id,omitempty"`
}

// ImportSummary 批量导入汇总
type ImportSummary struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Rows     []RowResult `json:"rows"`
}

// TemplateFile 导出的模板文件
type TemplateFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type ImportService struct {
	authz authz.Authorizer
	apps  *ApplicationService
	now   func() time.Time
}

func NewImportService(az authz.Authorizer, apps *ApplicationService) *ImportService {
	return &ImportService{
		authz: az,
		apps:  apps,
		now:   time.Now,
	}
}

// FormatFromFilename 按扩展名判断格式，不支持时返回 VALIDATION
func FormatFromFilename(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", apperrors.Validation("Unsupported file type %q, only .xlsx and .csv files are accepted", filepath.Ext(filename))
	}
}

// Import 逐行导入申请记录，单行失败只跳过该行
func (s *ImportService) Import(ctx context.Context, caller authz.Caller, filename string, r io.Reader) (*ImportSummary, error) {
	if err := s.authz.CanAccessApplications(caller); err != nil {
		return nil, err
	}
	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}

	table, err := readTable(format, r)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, apperrors.Validation("File is empty")
	}

	index, err := columnIndex(table[0])
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	summary := &ImportSummary{Rows: make([]RowResult, 0, len(table)-1)}
	for i, cells := range table[1:] {
		if blankRow(cells) {
			continue
		}
		result := s.importRow(ctx, i+2, cells, index)
		if result.Status == RowImported {
			summary.Imported++
		} else {
			summary.Skipped++
			log.WithFields(logrus.Fields{
				"file":   filename,
				"row":    result.Row,
				"reason": result.Reason,
			}).Warn("import row skipped")
		}
		summary.Rows = append(summary.Rows, result)
	}

	log.WithFields(logrus.Fields{
		"file":      filename,
		"imported":  summary.Imported,
		"skipped":   summary.Skipped,
		"caller_id": caller.ID(),
	}).Info("applications imported")
	return summary, nil
}

func (s *ImportService) importRow(ctx context.Context, rowNum int, cells []string, index map[string]int) (result RowResult) {
	result = RowResult{Row: rowNum, Status: RowSkipped}
	defer func() {
		if r := recover(); r != nil {
			result = RowResult{Row: rowNum, Status: RowSkipped, Reason: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	in, err := parseRow(cells, index)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	app, err := s.apps.create(ctx, in)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Kind != apperrors.KindInternal {
			result.Reason = appErr.Message
		} else {
			result.Reason = err.Error()
		}
		return result
	}

	result.Status = RowImported
	result.ApplicationID = app.ID
	return result
}

// Template 生成导入模板，包含表头和一行示例
func (s *ImportService) Template(format string) (*TemplateFile, error) {
	example := []string{
		models.NewDate(s.now()).String(),
		strconv.Itoa(TemplateExampleUserID),
		string(models.TargetProductC),
		string(models.ApplicationStatusPending),
	}

	switch strings.ToLower(format) {
	case "", FormatXLSX:
		content, err := xlsxTemplate(example)
		if err != nil {
			return nil, apperrors.Internal("build template", err)
		}
		return &TemplateFile{
			Filename:    "application_template.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	case FormatCSV:
		content, err := csvTemplate(example)
		if err != nil {
			return nil, apperrors.Internal("build template", err)
		}
		return &TemplateFile{
			Filename:    "application_template.csv",
			ContentType: "text/csv",
			Content:     content,
		}, nil
	default:
		return nil, apperrors.Validation("Unsupported template format %q", format)
	}
}

func csvTemplate(example []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// 写入表头
	if err := w.Write(ImportColumns); err != nil {
		return nil, err
	}
	if err := w.Write(example); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxTemplate(example []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(ImportColumns))
	for i, c := range ImportColumns {
		header[i] = c
	}
	row := make([]interface{}, len(example))
	for i, v := range example {
		row[i] = v
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(templateSheet, "A2", &row); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readTable 读取首个工作表或整个 csv 为二维字符串
func readTable(format string, r io.Reader) ([][]string, error) {
	switch format {
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, apperrors.Validation("Cannot read spreadsheet: %v", err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.Validation("Spreadsheet has no sheets")
		}
		// 原始值：日期单元格返回序列号，由 parseCellDate 处理
		rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.Validation("Cannot read spreadsheet: %v", err)
		}
		return rows, nil
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, apperrors.Validation("Cannot read csv: %v", err)
		}
		return rows, nil
	default:
		return nil, apperrors.Validation("Unsupported file type %q", format)
	}
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(ImportColumns))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}
	for _, col := range ImportColumns {
		if _, ok := index[col]; !ok {
			return nil, apperrors.Validation("Missing required column %q", col)
		}
	}
	return index, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(cells []string, index map[string]int, col string) string {
	i := index[col]
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func parseRow(cells []string, index map[string]int) (ApplicationInput, error) {
	var in ApplicationInput

	userID, err := parseUserID(cell(cells, index, ColumnUserID))
	if err != nil {
		return in, err
	}
	in.UserID = userID

	date, err := parseCellDate(cell(cells, index, ColumnApplicationDate))
	if err != nil {
		return in, err
	}
	in.ApplicationDate = date

	in.TargetProduct = models.TargetProduct(strings.ToUpper(cell(cells, index, ColumnTargetProduct)))

	if raw := cell(cells, index, ColumnStatus); raw != "" {
		status, ok := models.ParseApplicationStatus(strings.ToUpper(raw))
		if !ok {
			return in, fmt.Errorf("invalid status %q", raw)
		}
		in.Status = status
	}
	return in, nil
}

// parseUserID 表格中的数字可能带小数部分，如 "3.0"
func parseUserID(raw string) (uint, error) {
	if raw == "" {
		return 0, fmt.Errorf("user_id is required")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 1 || f != math.Trunc(f) || f > math.MaxUint32 {
		return 0, fmt.Errorf("invalid user_id %q", raw)
	}
	return uint(f), nil
}

var dateLayouts = []string{
	models.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
}

// parseCellDate 支持 ISO 日期字符串和 Excel 日期序列号
func parseCellDate(raw string) (models.Date, error) {
	if raw == "" {
		return models.Date{}, fmt.Errorf("application_date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.NewDate(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return models.NewDate(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("invalid application_date %q", raw)
}
