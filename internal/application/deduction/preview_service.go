package deduction

import (
	"context"
	"fmt"

	deddomain "github.com/stockpool/backend/internal/domain/deduction"
	"go.uber.org/zap"
)

// PreviewService produces a dry-run deduction report for user confirmation.
// It never mutates inventory and never fails outright: per-item problems
// are collected into the report's errors and warnings.
type PreviewService struct {
	calculator *deddomain.Calculator
	logger     *zap.Logger
}

// NewPreviewService creates a new PreviewService
func NewPreviewService(calculator *deddomain.Calculator, logger *zap.Logger) *PreviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewService{calculator: calculator, logger: logger}
}

// Preview runs enrichment, primary and cascade calculation, and
// aggregation over the order items, and reports what a subsequent
// Process call would deduct.
func (s *PreviewService) Preview(ctx context.Context, items []deddomain.OrderItem) *PreviewReport {
	report := &PreviewReport{
		Items:         []deddomain.DeductionLineItem{},
		TotalsByGroup: map[string]deddomain.GroupTotal{},
		Warnings:      []string{},
		Errors:        []string{},
	}
	if len(items) == 0 {
		return report
	}

	enriched, err := s.calculator.Enrich(ctx, items)
	if err != nil {
		s.logger.Error("preview enrichment failed", zap.Error(err))
		report.Errors = append(report.Errors, err.Error())
		return report
	}

	notConfigured := 0
	for _, item := range enriched {
		if !item.DeductionRequired() {
			notConfigured++
		}
	}
	if notConfigured > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d items will not trigger automatic deduction", notConfigured))
	}

	lines, warnings := s.calculator.Lines(ctx, enriched)
	report.Warnings = append(report.Warnings, warnings...)

	cascades := 0
	for _, line := range lines {
		if line.IsCascade {
			cascades++
		}
	}
	if cascades > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d additional cascade deductions will be processed", cascades))
	}

	report.Items = lines
	report.TotalsByGroup = deddomain.AggregateByGroup(lines)

	s.logger.Debug("deduction preview generated",
		zap.Int("order_items", len(items)),
		zap.Int("line_items", len(lines)),
		zap.Int("groups", len(report.TotalsByGroup)),
	)
	return report
}
