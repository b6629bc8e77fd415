package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"useradmin/internal/authz"
	"useradmin/internal/models"
	"useradmin/pkg/config"
	apperrors "useradmin/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func countApplications(t *testing.T, f *fixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Application{}).Count(&n).Error)
	return n
}

func TestImportService_CSVSkipsBadRows(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()

	data := strings.Join([]string{
		"application_date,user_id,target_product,status",
		fmt.Sprintf("2025-04-01,%d,C,PENDING", f.regular1.ID),
		fmt.Sprintf("2025-04-02,%d,W,COMPLETED", f.regular2.ID),
		"2025-04-03,999,C,PENDING",
		fmt.Sprintf("2025-04-04,%d,c,已完成", f.regular1.ID),
		fmt.Sprintf("2025/04/05,%d,W,", f.projectAdmin.ID),
		"",
	}, "\n")

	summary, err := f.imports.Import(ctx, authz.Anonymous(), "apps.csv", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Rows, 5)

	bad := summary.Rows[2]
	assert.Equal(t, 4, bad.Row)
	assert.Equal(t, RowSkipped, bad.Status)
	assert.Equal(t, "User not found", bad.Reason)

	assert.EqualValues(t, 4, countApplications(t, f))

	view, err := f.apps.Get(ctx, authz.Anonymous(), summary.Rows[3].ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusCompleted, view.Status)
	assert.Equal(t, models.TargetProductC, view.TargetProduct)

	view, err = f.apps.Get(ctx, authz.Anonymous(), summary.Rows[4].ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-05", view.ApplicationDate.String())
	assert.Equal(t, models.ApplicationStatusPending, view.Status)
}

func TestImportService_RowErrors(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()

	data := strings.Join([]string{
		"user_id,application_date,target_product,status",
		fmt.Sprintf("%d,not-a-date,C,PENDING", f.regular1.ID),
		"abc,2025-04-01,C,PENDING",
		fmt.Sprintf("%d,2025-04-01,X,PENDING", f.regular1.ID),
		fmt.Sprintf("%d,2025-04-01,C,DONE", f.regular1.ID),
		fmt.Sprintf("%d.0,2025-04-01,C,PENDING", f.regular1.ID),
	}, "\n")

	summary, err := f.imports.Import(ctx, authz.Anonymous(), "apps.CSV", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 4, summary.Skipped)
	assert.Contains(t, summary.Rows[0].Reason, "invalid application_date")
	assert.Contains(t, summary.Rows[1].Reason, "invalid user_id")
	assert.Contains(t, summary.Rows[2].Reason, "target_product")
	assert.Contains(t, summary.Rows[3].Reason, "invalid status")
	assert.Equal(t, RowImported, summary.Rows[4].Status)
}

func TestImportService_RejectsFile(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	ctx := context.Background()

	_, err := f.imports.Import(ctx, authz.Anonymous(), "apps.txt", strings.NewReader("x"))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.imports.Import(ctx, authz.Anonymous(), "apps.csv", strings.NewReader(""))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.imports.Import(ctx, authz.Anonymous(), "apps.csv", strings.NewReader("user_id,status\n1,PENDING\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing required column")

	_, err = f.imports.Import(ctx, authz.Anonymous(), "apps.xlsx", strings.NewReader("not a zip"))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	strict := newFixture(t, config.PolicyConfig{ApplicationsRequireAuth: true})
	_, err = strict.imports.Import(ctx, authz.Anonymous(), "apps.csv", strings.NewReader("x"))
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}

func TestImportService_TemplateRoundTrip(t *testing.T) {
	for _, format := range []string{FormatXLSX, FormatCSV} {
		t.Run(format, func(t *testing.T) {
			f := newFixture(t, config.PolicyConfig{})
			f.imports.now = func() time.Time { return time.Date(2025, 4, 15, 10, 0, 0, 0, time.Local) }

			tpl, err := f.imports.Template(format)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(tpl.Filename, "."+format))
			assert.NotEmpty(t, tpl.Content)

			// 示例行引用 ID 为 1 的用户（演示数据中的超级管理员）
			summary, err := f.imports.Import(context.Background(), authz.Anonymous(), tpl.Filename, bytes.NewReader(tpl.Content))
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Imported)
			assert.Equal(t, 0, summary.Skipped)

			view, err := f.apps.Get(context.Background(), authz.Anonymous(), summary.Rows[0].ApplicationID)
			require.NoError(t, err)
			assert.Equal(t, "2025-04-15", view.ApplicationDate.String())
			assert.EqualValues(t, TemplateExampleUserID, view.UserID)
		})
	}
}

func TestImportService_TemplateUnknownFormat(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})
	_, err := f.imports.Template("pdf")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestImportService_XLSXDateSerials(t *testing.T) {
	f := newFixture(t, config.PolicyConfig{})

	x := excelize.NewFile()
	defer x.Close()
	require.NoError(t, x.SetSheetRow("Sheet1", "A1", &[]interface{}{"target_product", "user_id", "application_date", "status"}))
	require.NoError(t, x.SetSheetRow("Sheet1", "A2", &[]interface{}{"W", f.regular2.ID, time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), "申请中"}))
	require.NoError(t, x.SetSheetRow("Sheet1", "A3", &[]interface{}{"C", 999, "2025-04-10", "COMPLETED"}))
	buf, err := x.WriteToBuffer()
	require.NoError(t, err)

	summary, err := f.imports.Import(context.Background(), authz.Anonymous(), "apps.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	view, err := f.apps.Get(context.Background(), authz.Anonymous(), summary.Rows[0].ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-09", view.ApplicationDate.String())
	assert.Equal(t, models.ApplicationStatusPending, view.Status)
}

func TestParseUserID(t *testing.T) {
	id, err := parseUserID("3")
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	id, err = parseUserID("3.0")
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	for _, raw := range []string{"", "0", "-1", "2.5", "abc"} {
		_, err := parseUserID(raw)
		assert.Error(t, err, raw)
	}
}

func TestCSVTemplate(t *testing.T) {
	content, err := csvTemplate([]string{"2025-04-15", "1", "C", "PENDING"})
	require.NoError(t, err)
	assert.Equal(t, "application_date,user_id,target_product,status\n2025-04-15,1,C,PENDING\n", string(content))
}
