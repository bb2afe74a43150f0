package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func generateTestTrades() []*models.Trade {
	at := func(d time.Duration) int64 { return day.Add(d).Unix() }
	return []*models.Trade{
		{TradeID: "t4", Mint: "MintAAAAAAAAAAAA", User: "u1", IsBuy: false, SolAmount: 426_690_000, TokenAmount: 14_612_904_000_000, FeeLamports: 4_310_000, UnixTime: at(3 * time.Hour)},
		{TradeID: "t1", Mint: "MintAAAAAAAAAAAA", User: "u1", IsBuy: true, SolAmount: 1_000_000_000, TokenAmount: 34_612_904_000_000, FeeLamports: 990_000_000, UnixTime: at(time.Hour)},
		{TradeID: "t2", Mint: "MintBBBBBBBBBBBB", User: "u2", IsBuy: true, SolAmount: 85_007_359_056, TokenAmount: 793_100_000_000_000, FeeLamports: 850_073_590, UnixTime: at(time.Hour + 30*time.Minute), Graduated: true},
		{TradeID: "t3", Mint: "MintAAAAAAAAAAAA", User: "u3", IsBuy: true, SolAmount: 10_000_000, TokenAmount: 357_548_000_000, FeeLamports: 100_000, UnixTime: at(26 * time.Hour)},
	}
}

func TestTradeExportCSV(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:    FormatCSV,
		OutputDir: tempDir,
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(CSVHeaders(), ",") {
		t.Errorf("unexpected header: %v", rows[0])
	}
	// sorted by time
	if rows[1][0] != "t1" || rows[2][0] != "t2" || rows[3][0] != "t4" || rows[4][0] != "t3" {
		t.Errorf("unexpected order: %v %v %v %v", rows[1][0], rows[2][0], rows[3][0], rows[4][0])
	}
	if rows[2][6] != "793100000000000" || rows[2][8] != "true" {
		t.Errorf("unexpected graduating row: %v", rows[2])
	}
}

func TestTradeExportJSON(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())

	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var decoded struct {
		TradeCount int           `json:"trade_count"`
		Trades     []TradeRecord `json:"trades"`
		Summary    ExportSummary `json:"summary"`
	}
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}
	if decoded.TradeCount != 4 || len(decoded.Trades) != 4 {
		t.Errorf("expected 4 trades, got %d", decoded.TradeCount)
	}
	if decoded.Summary.UniqueTokens != 2 {
		t.Errorf("expected 2 tokens, got %d", decoded.Summary.UniqueTokens)
	}
}

func TestTradeExportFilters(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	trades := generateTestTrades()

	tests := []struct {
		name    string
		options ExportOptions
		want    []string
	}{
		{name: "time", options: ExportOptions{StartTime: day.Add(90 * time.Minute), EndTime: day.Add(4 * time.Hour)}, want: []string{"t4", "t2"}},
		{name: "mint", options: ExportOptions{MintFilter: "MintBBBBBBBBBBBB"}, want: []string{"t2"}},
		{name: "side", options: ExportOptions{SideFilter: "sell"}, want: []string{"t4"}},
		{name: "graduating", options: ExportOptions{OnlyGraduating: true}, want: []string{"t2"}},
		{name: "nothing", options: ExportOptions{SideFilter: "sell", MintFilter: "MintBBBBBBBBBBBB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := exporter.filterTrades(trades, tt.options)
			var got []string
			for _, r := range filtered {
				got = append(got, r.TradeID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	_, err := exporter.ExportTrades(trades, ExportOptions{Format: FormatCSV, SideFilter: "none", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for empty export")
	}
	_, err = exporter.ExportTrades(trades, ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestDailyReportExport(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())

	outputPath, err := exporter.ExportDailyReport(generateTestTrades(), day.Add(12*time.Hour), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to export daily report: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var report DailyReport
	if err := json.Unmarshal(content, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.TradeCount != 3 {
		t.Errorf("expected 3 trades for the day, got %d", report.TradeCount)
	}
	if len(report.HourlyBreakdown) != 2 || report.HourlyBreakdown[0].Hour != 1 || report.HourlyBreakdown[0].TradeCount != 2 {
		t.Errorf("unexpected hourly breakdown: %+v", report.HourlyBreakdown)
	}

	empty, err := exporter.ExportDailyReport(generateTestTrades(), day.Add(-24*time.Hour), t.TempDir())
	if err != nil || empty != "" {
		t.Errorf("expected no report for an empty day, got %q, %v", empty, err)
	}
}

func TestExportSummaryCalculation(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	records := exporter.filterTrades(generateTestTrades(), ExportOptions{})

	summary := CalculateSummary(records)
	if summary.TotalTrades != 4 || summary.BuyCount != 3 || summary.SellCount != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if summary.Graduations != 1 {
		t.Errorf("expected 1 graduation, got %d", summary.Graduations)
	}
	if summary.TotalBuyVolume != 86_017_359_056 {
		t.Errorf("unexpected buy volume: %d", summary.TotalBuyVolume)
	}
	if summary.TotalSellVolume != 426_690_000 {
		t.Errorf("unexpected sell volume: %d", summary.TotalSellVolume)
	}
	if summary.TotalFeesLamports != 1_844_483_590 {
		t.Errorf("unexpected fees: %d", summary.TotalFeesLamports)
	}
	if summary.TotalVolume != summary.TotalBuyVolume+summary.TotalSellVolume {
		t.Errorf("total volume mismatch")
	}

	if empty := CalculateSummary(nil); empty.TotalTrades != 0 {
		t.Errorf("expected empty summary")
	}
}
