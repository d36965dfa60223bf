package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/storage"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newSpreadsheetService(t *testing.T, f *fixture) (*service.SpreadsheetService, storage.Storage) {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return service.NewSpreadsheetService(f.leadRepo, f.analytics, store, cache.Noop{}, zap.NewNop()), store
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestSpreadsheetService_Import(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSpreadsheetService(t, f)

	data := workbook(t, [][]interface{}{
		{"NAME", "Company", "Lead Source", "budget_range", "Stage", "Deal Value", "Probability", "Lead Owner", "Unmapped"},
		{"Asha Rao", "Rao Textiles", "referral", ">10L", "proposal", "250000", "", "", "ignored"},
		{"", "No Name Ltd", "Website"},
		{"Ravi Kumar", "Kumar & Sons", "Website", "1-5L", "New", "abc"},
		{},
		{"Meena Iyer", "Iyer Foods", "Cold Call", "<1L", "", "10,000", "25%", ""},
		{"Other Owner", "Elsewhere", "Website", "", "", "", "", ravi},
		{"Drifted", "Future Co", "Podcast", "", "", "", "", ""},
	})

	result, err := svc.Import(salesCtx(asha), data)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "name is required", result.Errors[0].Message)
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Message, "deal value")
	assert.Equal(t, 7, result.Errors[2].Row)

	leads, err := f.leadRepo.ListAll(salesCtx(asha))
	require.NoError(t, err)
	require.Len(t, leads, 3)

	byName := map[string]domain.Lead{}
	for _, lead := range leads {
		byName[lead.Name] = lead
	}

	asharao := byName["Asha Rao"]
	assert.Equal(t, domain.LeadSourceReferral, asharao.Source)
	assert.Equal(t, domain.LeadStageProposal, asharao.Stage)
	assert.Equal(t, domain.LeadStatusOpen, asharao.Status)
	assert.Equal(t, 70, asharao.Probability)
	assert.Equal(t, 175000.0, asharao.ExpectedValue)
	assert.Equal(t, 50, asharao.LeadScore)
	assert.Equal(t, asha, asharao.LeadOwner)

	meena := byName["Meena Iyer"]
	assert.Equal(t, domain.LeadSourceColdCall, meena.Source)
	assert.Equal(t, domain.LeadStageNew, meena.Stage)
	assert.Equal(t, 25, meena.Probability)
	assert.Equal(t, 10000.0, meena.DealValue)
	assert.Equal(t, 2500.0, meena.ExpectedValue)
	assert.Equal(t, 5, meena.LeadScore)

	drifted := byName["Drifted"]
	assert.Equal(t, domain.LeadSource("Podcast"), drifted.Source, "unknown sources survive import")
	assert.Equal(t, 0, drifted.LeadScore)
}

func TestSpreadsheetService_ImportKeepsGivenValues(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSpreadsheetService(t, f)

	data := workbook(t, [][]interface{}{
		{"Name", "Source", "Stage", "Status", "Probability", "Deal Value", "Expected Value", "Lead Owner"},
		{"Legacy", "Website", "Won", "Won", "90", "1000", "123.45", ravi},
		{"Parked", "Website", "Qualified", "OnHold", "", "1000", "", ""},
		{"WonButOpen", "Website", "Won", "Open", "", "1000", "", ""},
		{"NewButWon", "Website", "New", "Won", "", "1000", "", ""},
		{"LostOnHold", "Website", "Lost", "OnHold", "", "1000", "", ""},
	})

	result, err := svc.Import(adminCtx(), data)
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Errors, 3)
	for i, row := range []int{4, 5, 6} {
		assert.Equal(t, row, result.Errors[i].Row)
		assert.Contains(t, result.Errors[i].Message, "does not match stage")
	}

	leads, err := f.leadRepo.ListAll(adminCtx())
	require.NoError(t, err)
	require.Len(t, leads, 2)

	legacy, parked := leads[0], leads[1]
	if legacy.Name != "Legacy" {
		legacy, parked = parked, legacy
	}
	assert.Equal(t, ravi, legacy.LeadOwner)
	assert.Equal(t, 90, legacy.Probability)
	assert.Equal(t, 123.45, legacy.ExpectedValue)
	assert.Equal(t, domain.LeadStatusWon, legacy.Status)

	assert.Equal(t, "admin@example.com", parked.LeadOwner)
	assert.Equal(t, domain.LeadStatusOnHold, parked.Status)
	assert.Equal(t, 40, parked.Probability)
	assert.Equal(t, 400.0, parked.ExpectedValue)
}

func TestSpreadsheetService_ImportRejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSpreadsheetService(t, f)

	_, err := svc.Import(adminCtx(), strings.NewReader("name,source\nx,Website\n"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Import(adminCtx(), workbook(t, [][]interface{}{{"Company", "Source"}, {"Acme", "Website"}}))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Import(context.Background(), workbook(t, [][]interface{}{{"Name"}}))
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestSpreadsheetService_ExportRoundTrip(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSpreadsheetService(t, f)

	testutil.CreateTestLead(t, f.db, asha, func(l *domain.Lead) {
		l.Name = "Exported One"
		l.DealValue = 1500.5
		l.Probability = 40
		l.ExpectedValue = 600.2
	})
	testutil.CreateTestLead(t, f.db, asha, func(l *domain.Lead) { l.Name = "Exported Two" })
	testutil.CreateTestLead(t, f.db, ravi, func(l *domain.Lead) { l.Name = "Not Visible" })

	buf, err := svc.Export(salesCtx(asha))
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Leads"}, wb.GetSheetList())
	rows, err := wb.GetRows("Leads")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "Lead Owner", rows[0][5])
	assert.Equal(t, "Exported One", rows[1][0])
	assert.Equal(t, "1500.5", rows[1][12])

	// the export can be imported again by an admin
	other := newFixture(t)
	importer, _ := newSpreadsheetService(t, other)
	result, err := importer.Import(adminCtx(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Errors)

	leads, err := other.leadRepo.ListAll(adminCtx())
	require.NoError(t, err)
	require.Len(t, leads, 2)
	for _, lead := range leads {
		assert.Equal(t, asha, lead.LeadOwner)
		if lead.Name == "Exported One" {
			assert.Equal(t, 600.2, lead.ExpectedValue)
			assert.Equal(t, 40, lead.Probability)
		}
	}
}

func TestSpreadsheetService_GeneratePipelineReport(t *testing.T) {
	f := newFixture(t)
	seedPipeline(t, f)
	svc, store := newSpreadsheetService(t, f)

	report, err := svc.GeneratePipelineReport(adminCtx())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report.StoragePath, "reports/"))
	assert.True(t, strings.HasSuffix(report.StoragePath, ".xlsx"))
	assert.Positive(t, report.Size)

	rc, err := store.Download(context.Background(), report.StoragePath)
	require.NoError(t, err)
	defer rc.Close()

	wb, err := excelize.OpenReader(rc)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Funnel", "Revenue", "Leaderboard", "Conversion"}, wb.GetSheetList())

	funnel, err := wb.GetRows("Funnel")
	require.NoError(t, err)
	require.Len(t, funnel, 6)
	assert.Equal(t, []string{"Won", "1"}, funnel[5])

	conversion, err := wb.GetRows("Conversion")
	require.NoError(t, err)
	require.Len(t, conversion, 3)
	assert.Equal(t, []string{"Referral", "2", "50"}, conversion[1])
}

func TestSpreadsheetService_ImportRejectsBadNumbers(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSpreadsheetService(t, f)

	data := workbook(t, [][]interface{}{
		{"Name", "Probability", "Deal Value"},
		{"Not A Number", "NaN", "1000"},
		{"Too Likely", "120", "1000"},
		{"Negative Value", "50", "-5"},
		{"Fine", "50", "1000"},
	})

	result, err := svc.Import(adminCtx(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "invalid probability")

	leads, err := f.leadRepo.ListAll(adminCtx())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 50, leads[0].Probability)
	assert.Equal(t, 500.0, leads[0].ExpectedValue)
}

func TestSpreadsheetService_ImportFoldsEnDashBudgets(t *testing.T) {
	f := newFixture(t)
	svc, _ := newSpreadsheetService(t, f)

	data := workbook(t, [][]interface{}{
		{"Name", "Source", "Budget Range"},
		{"Dashed", "Website", "1\u20135L"},
		{"Spaced", "Website", "5 \u2013 10L"},
	})

	result, err := svc.Import(adminCtx(), data)
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)

	leads, err := f.leadRepo.ListAll(adminCtx())
	require.NoError(t, err)
	require.Len(t, leads, 2)
	for _, lead := range leads {
		switch lead.Name {
		case "Dashed":
			assert.Equal(t, domain.Budget1To5L, lead.BudgetRange)
			assert.Equal(t, 20, lead.LeadScore)
		case "Spaced":
			assert.Equal(t, domain.Budget5To10L, lead.BudgetRange)
			assert.Equal(t, 30, lead.LeadScore)
		}
	}
}
