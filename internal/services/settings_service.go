package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/ports"
)

// SettingsService manages budget limits, savings goals and the rate
// snapshot used to freeze new transactions.
type SettingsService struct {
	settings ports.SettingsStore
	rates    ports.RateStore
	onChange func()
}

func NewSettingsService(settings ports.SettingsStore, rates ports.RateStore, onChange func()) *SettingsService {
	return &SettingsService{settings: settings, rates: rates, onChange: onChange}
}

func (s *SettingsService) Budgets(ctx context.Context, profileID string) (core.Budgets, error) {
	b, err := s.settings.Budgets(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	return b, nil
}

func (s *SettingsService) SetBudget(ctx context.Context, profileID, category string, limit float64) error {
	category = strings.TrimSpace(category)
	if err := core.ValidateLimit(category, limit); err != nil {
		return fmt.Errorf("validate budget: %w", err)
	}
	if err := s.settings.SetBudget(ctx, profileID, category, limit); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set",
		applog.FieldProfileID, profileID,
		applog.FieldCategory, category,
		"limit", limit)
	s.changed()
	return nil
}

func (s *SettingsService) DeleteBudget(ctx context.Context, profileID, category string) error {
	if err := s.settings.DeleteBudget(ctx, profileID, strings.TrimSpace(category)); err != nil {
		return fmt.Errorf("delete budget %s: %w", category, err)
	}
	s.changed()
	return nil
}

func (s *SettingsService) Goals(ctx context.Context, profileID string) (core.SavingsGoals, error) {
	g, err := s.settings.Goals(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get goals: %w", err)
	}
	return g, nil
}

func (s *SettingsService) SetGoal(ctx context.Context, profileID, category string, target float64) error {
	category = strings.TrimSpace(category)
	if err := core.ValidateLimit(category, target); err != nil {
		return fmt.Errorf("validate goal: %w", err)
	}
	if err := s.settings.SetGoal(ctx, profileID, category, target); err != nil {
		return fmt.Errorf("set goal: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal set",
		applog.FieldProfileID, profileID,
		applog.FieldCategory, category,
		"target", target)
	s.changed()
	return nil
}

func (s *SettingsService) Rates(ctx context.Context) (core.Rates, error) {
	r, err := s.rates.LatestRates(ctx)
	if err != nil {
		return core.Rates{}, fmt.Errorf("get rates: %w", err)
	}
	return r, nil
}

// SetRates records a new snapshot. Zero means "unavailable" and is allowed;
// negative or non-finite values are rejected. A missing EUR cross rate is
// derived from EUR and BCV.
func (s *SettingsService) SetRates(ctx context.Context, r core.Rates) (core.Rates, error) {
	for name, v := range map[string]float64{"bcv": r.BCV, "parallel": r.Parallel, "eur": r.EUR, "eurCross": r.EURCross} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Rates{}, fmt.Errorf("%s rate %v: %w", name, v, core.ErrRateUnavailable)
		}
	}
	if r.EURCross == 0 && core.Usable(r.EUR) && core.Usable(r.BCV) {
		r.EURCross = r.EUR / r.BCV
	}

	if err := s.rates.SaveRates(ctx, r); err != nil {
		return core.Rates{}, fmt.Errorf("save rates: %w", err)
	}
	s.changed()
	return r, nil
}

func (s *SettingsService) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
