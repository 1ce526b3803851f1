package services

import (
	"fmt"

	"tuina_clinic_backend/internal/membership"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"
)

// revenueChartDays is the default span of the revenue chart.
const revenueChartDays = 30

// ReportService builds the dashboard figures.
type ReportService interface {
	GetDashboardSummary() (*models.DashboardSummary, error)
	GetDailyRevenue(fromStr, toStr string) ([]models.DailyRevenue, error)
}

type reportService struct {
	reportRepo  repositories.ReportRepository
	memberships MembershipService
	now         Clock
}

// NewReportService creates a new instance of ReportService.
func NewReportService(reportRepo repositories.ReportRepository, memberships MembershipService, now Clock) ReportService {
	return &reportService{reportRepo: reportRepo, memberships: memberships, now: now}
}

func (s *reportService) GetDashboardSummary() (*models.DashboardSummary, error) {
	now := s.now()
	today := startOfDay(now)
	monthStart := today.AddDate(0, 0, 1-today.Day())

	total, err := s.reportRepo.CountCustomers()
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	cards, err := s.reportRepo.GetCardLifecycles()
	if err != nil {
		return nil, fmt.Errorf("failed to load card lifecycles: %w", err)
	}
	byCustomer := make(map[int64][]models.MembershipCard)
	for _, card := range cards {
		byCustomer[card.CustomerID] = append(byCustomer[card.CustomerID], card)
	}

	summary := &models.DashboardSummary{
		TotalCustomers: total,
		CustomersByStatus: map[models.EffectiveStatus]int{
			models.EffectiveActive:   0,
			models.EffectiveExpiring: 0,
			models.EffectiveExpired:  0,
			models.EffectiveNone:     0,
		},
	}
	for _, customerCards := range byCustomer {
		eval := membership.Evaluate(customerCards, now)
		summary.CustomersByStatus[eval.Aggregate]++
		for _, st := range eval.PerCard {
			if st == models.EffectiveActive || st == models.EffectiveExpiring {
				summary.ActiveCards++
			}
		}
	}
	// Customers without any card.
	summary.CustomersByStatus[models.EffectiveNone] += total - len(byCustomer)

	if summary.ExpiringCards, err = s.memberships.GetExpiringCards(); err != nil {
		return nil, err
	}

	daily, err := s.reportRepo.GetServiceTotals(today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to sum today's services: %w", err)
	}
	summary.ServicesToday = daily.Count
	summary.RevenueToday = daily.Revenue
	summary.MembershipPaidToday = daily.MembershipRevenue

	monthly, err := s.reportRepo.GetServiceTotals(monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to sum this month's services: %w", err)
	}
	summary.ServicesThisMonth = monthly.Count
	summary.RevenueThisMonth = monthly.Revenue

	return summary, nil
}

// GetDailyRevenue returns revenue per day in [from, to]. Both default to the last 30 days.
func (s *reportService) GetDailyRevenue(fromStr, toStr string) ([]models.DailyRevenue, error) {
	now := s.now()
	to := startOfDay(now)
	from := to.AddDate(0, 0, 1-revenueChartDays)
	var err error
	if fromStr != "" {
		if from, err = parseDate(fromStr, now.Location()); err != nil {
			return nil, err
		}
	}
	if toStr != "" {
		if to, err = parseDate(toStr, now.Location()); err != nil {
			return nil, err
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end_date must not be before start_date", ErrValidation)
	}

	days, err := s.reportRepo.GetDailyRevenue(from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily revenue: %w", err)
	}
	return days, nil
}
