// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format         ExportFormat
	StartTime      time.Time
	EndTime        time.Time
	MintFilter     string // Filter by token mint
	SideFilter     string // Filter by side (buy/sell)
	OnlyGraduating bool   // Only export buys that completed a curve
	OutputDir      string
}

// TradeRecord is one exported journal row. Amounts are in base units.
type TradeRecord struct {
	TradeID     string    `json:"trade_id"`
	Timestamp   time.Time `json:"timestamp"`
	Mint        string    `json:"mint"`
	User        string    `json:"user"`
	Side        string    `json:"side"`
	SolAmount   uint64    `json:"sol_amount"`
	TokenAmount uint64    `json:"token_amount"`
	FeeLamports uint64    `json:"fee_lamports"`
	Graduated   bool      `json:"graduated"`

	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	RealSolReserves      uint64 `json:"real_sol_reserves"`
	RealTokenReserves    uint64 `json:"real_token_reserves"`
}

// NewTradeRecord converts a stored trade.
func NewTradeRecord(t *models.Trade) TradeRecord {
	return TradeRecord{
		TradeID:              t.TradeID,
		Timestamp:            time.Unix(t.UnixTime, 0).UTC(),
		Mint:                 t.Mint,
		User:                 t.User,
		Side:                 t.Side(),
		SolAmount:            uint64(t.SolAmount),
		TokenAmount:          uint64(t.TokenAmount),
		FeeLamports:          uint64(t.FeeLamports),
		Graduated:            t.Graduated,
		VirtualSolReserves:   uint64(t.VirtualSolReserves),
		VirtualTokenReserves: uint64(t.VirtualTokenReserves),
		RealSolReserves:      uint64(t.RealSolReserves),
		RealTokenReserves:    uint64(t.RealTokenReserves),
	}
}

// CSVHeaders returns the CSV column names matching ToCSV.
func CSVHeaders() []string {
	return []string{
		"trade_id", "timestamp", "mint", "user", "side",
		"sol_amount", "token_amount", "fee_lamports", "graduated",
		"virtual_sol_reserves", "virtual_token_reserves", "real_sol_reserves", "real_token_reserves",
	}
}

// ToCSV formats the record as a CSV row.
func (r TradeRecord) ToCSV() []string {
	return []string{
		r.TradeID,
		r.Timestamp.Format(time.RFC3339),
		r.Mint,
		r.User,
		r.Side,
		strconv.FormatUint(r.SolAmount, 10),
		strconv.FormatUint(r.TokenAmount, 10),
		strconv.FormatUint(r.FeeLamports, 10),
		strconv.FormatBool(r.Graduated),
		strconv.FormatUint(r.VirtualSolReserves, 10),
		strconv.FormatUint(r.VirtualTokenReserves, 10),
		strconv.FormatUint(r.RealSolReserves, 10),
		strconv.FormatUint(r.RealTokenReserves, 10),
	}
}

// TradeExporter handles trade export functionality
type TradeExporter struct {
	logger *zap.Logger
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger,
	}
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []*models.Trade, options ExportOptions) (string, error) {
	// Filter trades
	filtered := te.filterTrades(trades, options)

	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	// Sort by timestamp
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	// Generate filename
	filename := te.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// Export based on format
	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterTrades applies filters to the trade list
func (te *TradeExporter) filterTrades(trades []*models.Trade, options ExportOptions) []TradeRecord {
	var filtered []TradeRecord

	for _, trade := range trades {
		record := NewTradeRecord(trade)

		// Time filter
		if !options.StartTime.IsZero() && record.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && record.Timestamp.After(options.EndTime) {
			continue
		}

		// Mint filter
		if options.MintFilter != "" && record.Mint != options.MintFilter {
			continue
		}

		// Side filter
		if options.SideFilter != "" && record.Side != options.SideFilter {
			continue
		}

		if options.OnlyGraduating && !record.Graduated {
			continue
		}

		filtered = append(filtered, record)
	}

	return filtered
}

// generateFilename creates a filename based on export options
func (te *TradeExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	var prefix string
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.SideFilter)
	} else {
		prefix = "trades_all"
	}

	if options.MintFilter != "" {
		mint := options.MintFilter
		if len(mint) > 8 {
			mint = mint[:8]
		}
		prefix += "_" + mint
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// exportToCSV exports trades to CSV format
func (te *TradeExporter) exportToCSV(trades []TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Write headers
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	// Write trades
	for _, trade := range trades {
		if err := writer.Write(trade.ToCSV()); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// exportToJSON exports trades to JSON format
func (te *TradeExporter) exportToJSON(trades []TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	// Create export data with metadata
	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		TradeCount int           `json:"trade_count"`
		Trades     []TradeRecord `json:"trades"`
		Summary    ExportSummary `json:"summary"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    CalculateSummary(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// CalculateSummary calculates summary statistics for the export.
// trades must be sorted by timestamp.
func CalculateSummary(trades []TradeRecord) ExportSummary {
	summary := ExportSummary{
		TotalTrades: len(trades),
	}

	if len(trades) == 0 {
		return summary
	}

	// Calculate date range
	summary.StartDate = trades[0].Timestamp
	summary.EndDate = trades[len(trades)-1].Timestamp

	// Calculate statistics
	tokenSet := make(map[string]bool)

	for _, trade := range trades {
		tokenSet[trade.Mint] = true
		summary.TotalFeesLamports += trade.FeeLamports

		if trade.Side == "buy" {
			summary.BuyCount++
			summary.TotalBuyVolume += trade.SolAmount
			if trade.Graduated {
				summary.Graduations++
			}
		} else {
			summary.SellCount++
			summary.TotalSellVolume += trade.SolAmount
		}
	}

	summary.UniqueTokens = len(tokenSet)
	summary.TotalVolume = summary.TotalBuyVolume + summary.TotalSellVolume

	return summary
}

// ExportSummary contains summary statistics for exported trades.
// Volumes and fees are in lamports.
type ExportSummary struct {
	TotalTrades       int       `json:"total_trades"`
	BuyCount          int       `json:"buy_count"`
	SellCount         int       `json:"sell_count"`
	UniqueTokens      int       `json:"unique_tokens"`
	Graduations       int       `json:"graduations"`
	TotalVolume       uint64    `json:"total_volume"`
	TotalBuyVolume    uint64    `json:"total_buy_volume"`
	TotalSellVolume   uint64    `json:"total_sell_volume"`
	TotalFeesLamports uint64    `json:"total_fees_lamports"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
}

// ExportDailyReport exports a daily summary report (UTC day)
func (te *TradeExporter) ExportDailyReport(trades []*models.Trade, date time.Time, outputDir string) (string, error) {
	// Filter trades for the specific day
	date = date.UTC()
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour).Add(-time.Nanosecond)

	options := ExportOptions{
		Format:    FormatJSON,
		StartTime: startOfDay,
		EndTime:   endOfDay,
		OutputDir: outputDir,
	}

	filename := fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102"))
	outputPath := filepath.Join(outputDir, filename)

	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report",
			zap.Time("date", startOfDay))
		return "", nil
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	report := DailyReport{
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Trades:          filtered,
		Summary:         CalculateSummary(filtered),
		HourlyBreakdown: calculateHourlyBreakdown(filtered),
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))

	return outputPath, nil
}

// DailyReport represents a daily trading report
type DailyReport struct {
	Date            time.Time     `json:"date"`
	TradeCount      int           `json:"trade_count"`
	Summary         ExportSummary `json:"summary"`
	HourlyBreakdown []HourlyStats `json:"hourly_breakdown"`
	Trades          []TradeRecord `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour        int    `json:"hour"`
	TradeCount  int    `json:"trade_count"`
	BuyCount    int    `json:"buy_count"`
	SellCount   int    `json:"sell_count"`
	Volume      uint64 `json:"volume"`
	FeeLamports uint64 `json:"fee_lamports"`
}

func calculateHourlyBreakdown(trades []TradeRecord) []HourlyStats {
	hourlyMap := make(map[int]*HourlyStats)

	for _, trade := range trades {
		hour := trade.Timestamp.Hour()

		stats, exists := hourlyMap[hour]
		if !exists {
			stats = &HourlyStats{Hour: hour}
			hourlyMap[hour] = stats
		}

		stats.TradeCount++
		stats.Volume += trade.SolAmount
		stats.FeeLamports += trade.FeeLamports

		if trade.Side == "buy" {
			stats.BuyCount++
		} else {
			stats.SellCount++
		}
	}

	// Convert map to sorted slice
	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, exists := hourlyMap[hour]; exists {
			breakdown = append(breakdown, *stats)
		}
	}

	return breakdown
}
