package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func uploadBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "leads.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func leadWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Source", "Budget Range"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Imported Lead", "Referral", "5-10L"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"", "Website", ""}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSpreadsheetHandler_Import(t *testing.T) {
	h := setupHandlers(t)

	t.Run("imports valid rows", func(t *testing.T) {
		body, contentType := uploadBody(t, "file", leadWorkbook(t))
		req := newRequest(http.MethodPost, "/leads/import", body, salesUser(asha), "")
		req.Header.Set("Content-Type", contentType)

		rr := serve(h.spreadsheets.Import, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var result domain.ImportResultDTO
		decode(t, rr, &result)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, 1, result.Skipped)
	})

	t.Run("missing file field", func(t *testing.T) {
		body, contentType := uploadBody(t, "upload", leadWorkbook(t))
		req := newRequest(http.MethodPost, "/leads/import", body, salesUser(asha), "")
		req.Header.Set("Content-Type", contentType)

		assert.Equal(t, http.StatusBadRequest, serve(h.spreadsheets.Import, req).Code)
	})

	t.Run("not a workbook", func(t *testing.T) {
		body, contentType := uploadBody(t, "file", []byte("name,source\n"))
		req := newRequest(http.MethodPost, "/leads/import", body, salesUser(asha), "")
		req.Header.Set("Content-Type", contentType)

		assert.Equal(t, http.StatusBadRequest, serve(h.spreadsheets.Import, req).Code)
	})

	t.Run("over the upload limit", func(t *testing.T) {
		body, contentType := uploadBody(t, "file", bytes.Repeat([]byte("x"), 2*1024*1024))
		req := newRequest(http.MethodPost, "/leads/import", body, salesUser(asha), "")
		req.Header.Set("Content-Type", contentType)

		assert.Equal(t, http.StatusRequestEntityTooLarge, serve(h.spreadsheets.Import, req).Code)
	})
}

func TestSpreadsheetHandler_Export(t *testing.T) {
	h := setupHandlers(t)
	testutil.CreateTestLead(t, h.db, asha)

	rr := serve(h.spreadsheets.Export, newRequest(http.MethodGet, "/leads/export", nil, salesUser(asha), ""))
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, service.XLSXContentType, rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment; filename=\"leads-"))

	wb, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Leads")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSpreadsheetHandler_PipelineReport(t *testing.T) {
	h := setupHandlers(t)
	testutil.CreateTestLead(t, h.db, asha)

	rr := serve(h.spreadsheets.PipelineReport, newRequest(http.MethodPost, "/reports/pipeline", nil, adminUser(), ""))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var report domain.ReportDTO
	decode(t, rr, &report)
	assert.True(t, strings.HasPrefix(report.StoragePath, "reports/"))
}
