package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/storage"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// XLSXContentType is the MIME type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const leadsSheet = "Leads"

var leadExportHeaders = []string{
	"Name", "Company Name", "Email", "Phone", "Industry", "Lead Owner",
	"Source", "Budget Range", "Stage", "Status", "Lead Score", "Probability",
	"Deal Value", "Expected Value", "Notes", "Created At",
}

// importColumns maps normalised header text to the lead field it fills
var importColumns = map[string]string{
	"name":          "name",
	"leadname":      "name",
	"contactname":   "name",
	"company":       "companyName",
	"companyname":   "companyName",
	"email":         "email",
	"phone":         "phone",
	"industry":      "industry",
	"owner":         "leadOwner",
	"leadowner":     "leadOwner",
	"source":        "source",
	"leadsource":    "source",
	"budget":        "budgetRange",
	"budgetrange":   "budgetRange",
	"stage":         "stage",
	"status":        "status",
	"probability":   "probability",
	"value":         "dealValue",
	"dealvalue":     "dealValue",
	"expectedvalue": "expectedValue",
	"notes":         "notes",
}

var (
	knownSources  = []string{"Website", "Referral", "LinkedIn", "Event", "ColdCall"}
	knownBudgets  = []string{"<1L", "1-5L", "5-10L", ">10L"}
	knownStages   = []string{"New", "Contacted", "Qualified", "Proposal", "Won", "Lost"}
	knownStatuses = []string{"Open", "Won", "Lost", "OnHold"}
)

// SpreadsheetService moves leads in and out of .xlsx workbooks and renders
// the stored pipeline report.
type SpreadsheetService struct {
	leadRepo  *repository.LeadRepository
	analytics *AnalyticsService
	storage   storage.Storage
	cache     cache.Cache
	logger    *zap.Logger
	now       func() time.Time
}

func NewSpreadsheetService(
	leadRepo *repository.LeadRepository,
	analytics *AnalyticsService,
	storage storage.Storage,
	cache cache.Cache,
	logger *zap.Logger,
) *SpreadsheetService {
	return &SpreadsheetService{
		leadRepo:  leadRepo,
		analytics: analytics,
		storage:   storage,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Import reads leads from the first sheet of a workbook. Rows with problems
// are skipped and reported; the remaining rows are scored and stored together.
func (s *SpreadsheetService) Import(ctx context.Context, r io.Reader) (*domain.ImportResultDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid xlsx workbook: %v", ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidInput)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrInvalidInput, sheets[0])
	}

	columns := mapImportColumns(rows[0])
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("%w: header row has no name column", ErrInvalidInput)
	}

	result := &domain.ImportResultDTO{Errors: []domain.ImportRowError{}}
	leads := make([]domain.Lead, 0, len(rows)-1)

	for i, row := range rows[1:] {
		rowNumber := i + 2
		if isBlankRow(row) {
			continue
		}

		lead, err := parseLeadRow(columns, row, userCtx)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, domain.ImportRowError{Row: rowNumber, Message: err.Error()})
			continue
		}
		leads = append(leads, lead)
	}

	if err := s.leadRepo.CreateBatch(ctx, leads); err != nil {
		return nil, fmt.Errorf("failed to store imported leads: %w", err)
	}
	result.Imported = len(leads)

	for range leads {
		metrics.RecordLeadCreated("import")
	}
	if len(leads) > 0 {
		invalidateDashboards(ctx, s.cache, s.logger)
	}

	s.logger.Info("leads imported",
		zap.String("sheet", sheets[0]),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.String("imported_by", userCtx.Email))

	return result, nil
}

// Export writes every lead visible to the caller to a single "Leads" sheet
func (s *SpreadsheetService) Export(ctx context.Context) (*bytes.Buffer, error) {
	leads, err := s.leadRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	rows := make([][]interface{}, len(leads))
	for i := range leads {
		lead := &leads[i]
		rows[i] = []interface{}{
			lead.Name, lead.CompanyName, lead.Email, lead.Phone, lead.Industry, lead.LeadOwner,
			string(lead.Source), string(lead.BudgetRange), string(lead.Stage), string(lead.Status),
			lead.LeadScore, lead.Probability, lead.DealValue, lead.ExpectedValue, lead.Notes,
			lead.CreatedAt.UTC().Format(mapper.TimestampLayout),
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, leadsSheet, leadExportHeaders, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf, nil
}

// GeneratePipelineReport renders the caller's dashboard into a workbook and
// stores it under reports/YYYY/MM.
func (s *SpreadsheetService) GeneratePipelineReport(ctx context.Context) (*domain.ReportDTO, error) {
	dashboard, err := s.analytics.Dashboard(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	funnel := make([][]interface{}, len(dashboard.Funnel))
	for i, row := range dashboard.Funnel {
		funnel[i] = []interface{}{string(row.Stage), row.Count}
	}
	revenue := make([][]interface{}, len(dashboard.RevenueTrend))
	for i, row := range dashboard.RevenueTrend {
		revenue[i] = []interface{}{row.Period, row.ExpectedTotal, row.ClosedTotal}
	}
	leaderboard := make([][]interface{}, len(dashboard.Leaderboard))
	for i, row := range dashboard.Leaderboard {
		leaderboard[i] = []interface{}{row.Owner, row.OwnerName, row.LeadCount, row.PipelineValue, row.WonCount}
	}
	conversion := make([][]interface{}, len(dashboard.SourceConversion))
	for i, row := range dashboard.SourceConversion {
		conversion[i] = []interface{}{string(row.Source), row.TotalCount, row.WinRatePercent}
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{"Funnel", []string{"Stage", "Leads"}, funnel},
		{"Revenue", []string{"Period", "Expected Total", "Closed Total"}, revenue},
		{"Leaderboard", []string{"Owner", "Name", "Leads", "Pipeline Value", "Won"}, leaderboard},
		{"Conversion", []string{"Source", "Leads", "Win Rate %"}, conversion},
	}
	for _, sheet := range sheets {
		if err := writeSheet(f, sheet.name, sheet.headers, sheet.rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	now := s.now().UTC()
	folder := fmt.Sprintf("reports/%04d/%02d", now.Year(), int(now.Month()))
	filename := "pipeline-report-" + now.Format("20060102-150405") + ".xlsx"

	storagePath, size, err := s.storage.Upload(ctx, folder, filename, XLSXContentType, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	s.logger.Info("pipeline report stored",
		zap.String("path", storagePath),
		zap.Int64("size", size),
		zap.Int("leads", dashboard.TotalLeads))

	return &domain.ReportDTO{
		StoragePath: storagePath,
		Size:        size,
		GeneratedAt: now.Format(mapper.TimestampLayout),
	}, nil
}

// writeSheet fills sheet with a styled header row and data rows. The
// workbook's default sheet is renamed for the first call.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	if list := f.GetSheetList(); len(list) == 1 && list[0] == "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
		}
	} else if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func mapImportColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for i, title := range header {
		field, ok := importColumns[normalizeHeader(title)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}
	return columns
}

func normalizeHeader(title string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(title)))
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseLeadRow builds a lead from one data row. Stage defaults to New and
// seeds probability and status when those columns are empty. Expected value
// is taken as given when present.
func parseLeadRow(columns map[string]int, row []string, userCtx *auth.UserContext) (domain.Lead, error) {
	cell := func(field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := cell("name")
	if name == "" {
		return domain.Lead{}, fmt.Errorf("name is required")
	}

	owner, err := resolveOwner(userCtx, cell("leadOwner"))
	if err != nil {
		return domain.Lead{}, fmt.Errorf("lead owner %s is outside your territory", cell("leadOwner"))
	}

	dealValue, err := parseAmount(cell("dealValue"))
	if err != nil {
		return domain.Lead{}, fmt.Errorf("invalid deal value %q", cell("dealValue"))
	}

	stage := domain.LeadStage(canonical(cell("stage"), knownStages))
	if stage == "" {
		stage = domain.LeadStageNew
	}

	lead := domain.Lead{
		Name:        name,
		CompanyName: cell("companyName"),
		Email:       cell("email"),
		Phone:       cell("phone"),
		Industry:    cell("industry"),
		LeadOwner:   owner,
		Source:      domain.LeadSource(canonical(cell("source"), knownSources)),
		BudgetRange: domain.BudgetRange(canonical(cell("budgetRange"), knownBudgets)),
		DealValue:   dealValue,
		Notes:       cell("notes"),
	}

	probabilityGiven := cell("probability") != ""
	if probabilityGiven {
		p, err := parseProbability(cell("probability"))
		if err != nil {
			return domain.Lead{}, err
		}
		lead.Probability = p
	}

	seeded := pipeline.TransitionStage(lead, stage)
	lead.Stage = seeded.Stage
	lead.Status = seeded.Status
	if !probabilityGiven {
		lead.Probability = seeded.Probability
	}
	if raw := cell("status"); raw != "" {
		status := domain.LeadStatus(canonical(raw, knownStatuses))
		switch {
		case status == lead.Status:
		case lead.Stage != domain.LeadStageWon && lead.Stage != domain.LeadStageLost &&
			(status == domain.LeadStatusOpen || status == domain.LeadStatusOnHold):
			lead.Status = status
		default:
			return domain.Lead{}, fmt.Errorf("status %s does not match stage %s", raw, lead.Stage)
		}
	}

	if raw := cell("expectedValue"); raw != "" {
		ev, err := parseAmount(raw)
		if err != nil {
			return domain.Lead{}, fmt.Errorf("invalid expected value %q", raw)
		}
		lead.ExpectedValue = ev
	} else {
		lead.ExpectedValue = pipeline.ExpectedValue(lead.DealValue, lead.Probability)
	}

	lead.LeadScore = pipeline.Score(lead, nil)
	return lead, nil
}

// parseAmount reads a non-negative currency amount. Empty means zero.
func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return math.Round(v*100) / 100, nil
}

func parseProbability(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return 0, fmt.Errorf("invalid probability %q", raw)
	}
	return int(math.Round(v)), nil
}

// canonical returns the known spelling of value, ignoring case, spaces and
// en-dashes written for hyphens. Unknown values are kept as written.
func canonical(value string, known []string) string {
	key := strings.NewReplacer(" ", "", "\u2013", "-").Replace(strings.ToLower(value))
	for _, k := range known {
		if strings.ToLower(k) == key {
			return k
		}
	}
	return value
}
