package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/logger"
)

const defaultTrendMonths = 6

var ErrInvalidReport = errors.New("invalid report configuration")

var (
	ChartTypes  = []string{"line", "bar", "pie", "area", "table"}
	DataSources = []string{"revenue", "projects", "tasks", "time", "expenses"}
)

type Service struct {
	stores *repository.Stores
	logger *zap.Logger
	now    func() time.Time
}

func NewService(stores *repository.Stores, logger *zap.Logger) *Service {
	return &Service{stores: stores, logger: logger, now: time.Now}
}

type Dashboard struct {
	KPIs           KPIs           `json:"kpis"`
	RevenueTrend   []Point        `json:"revenue_trend"`
	ProjectStatus  []Point        `json:"project_status"`
	TaskStatus     []Point        `json:"task_status"`
	HoursByProject []Point        `json:"hours_by_project"`
	Goals          []GoalProgress `json:"goals"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Load fetches every collection in parallel. Any failure fails the whole load.
func (s *Service) Load(ctx context.Context) (*Dataset, error) {
	var d Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Projects, err = s.stores.Projects.List(gctx, "-created_date", repository.MaxLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Tasks, err = s.stores.Tasks.List(gctx, "-created_date", repository.MaxLimit)
		return err
	})
	g.Go(func() (err error) {
		d.TimeEntries, err = s.stores.TimeEntries.List(gctx, "-created_date", repository.MaxLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Invoices, err = s.stores.Invoices.List(gctx, "-created_date", repository.MaxLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Expenses, err = s.stores.Expenses.List(gctx, "-created_date", repository.MaxLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Goals, err = s.stores.Goals.List(gctx, "-created_date", repository.MaxLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to load report data", zap.Error(err))
		return nil, fmt.Errorf("load report data: %w", err)
	}
	return &d, nil
}

// Dashboard computes KPI cards, chart series and goal progress.
func (s *Service) Dashboard(ctx context.Context, months int) (*Dashboard, error) {
	if months <= 0 {
		months = defaultTrendMonths
	}
	d, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &Dashboard{
		KPIs:           ComputeKPIs(d),
		RevenueTrend:   RevenueTrend(d.Invoices, MonthBuckets(now, months)),
		ProjectStatus:  ProjectStatusDistribution(d.Projects),
		TaskStatus:     TaskStatusDistribution(d.Tasks),
		HoursByProject: HoursPerProject(d.TimeEntries, d.Projects),
		Goals:          GoalsProgress(d.Goals),
		GeneratedAt:    now,
	}, nil
}

// ValidateConfig checks a custom report before it is saved or previewed.
func ValidateConfig(r *model.Report) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidReport)
	}
	if len(r.DataSources) == 0 {
		return fmt.Errorf("%w: at least one data source is required", ErrInvalidReport)
	}
	for _, ds := range r.DataSources {
		if !contains(DataSources, ds) {
			return fmt.Errorf("%w: unknown data source %q", ErrInvalidReport, ds)
		}
	}
	for _, ct := range r.ChartTypes {
		if !contains(ChartTypes, ct) {
			return fmt.Errorf("%w: unknown chart type %q", ErrInvalidReport, ct)
		}
	}
	if _, _, err := parseRange(r.DateRange); err != nil {
		return err
	}
	return nil
}

func (s *Service) SaveReport(ctx context.Context, r *model.Report) (*model.Report, error) {
	if err := ValidateConfig(r); err != nil {
		return nil, err
	}
	r.CreatedBy = auth.ActorFrom(ctx).UserID
	return s.stores.Reports.Create(ctx, r)
}

// Series is one data source rendered as the requested chart.
type Series struct {
	DataSource string  `json:"data_source"`
	ChartType  string  `json:"chart_type"`
	Points     []Point `json:"points"`
}

type Preview struct {
	Name      string          `json:"name"`
	DateRange model.DateRange `json:"date_range"`
	KPIs      KPIs            `json:"kpis"`
	Series    []Series        `json:"series"`
}

// Preview regenerates a report's dataset restricted to its date range.
// Chart types pair with data sources by position; missing ones default to bar.
func (s *Service) Preview(ctx context.Context, r *model.Report) (*Preview, error) {
	if err := ValidateConfig(r); err != nil {
		return nil, err
	}
	start, end, _ := parseRange(r.DateRange)
	now := s.now().UTC()
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		// Whole months, so the first trend bucket is not partial.
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(defaultTrendMonths - 1), 0)
	}

	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	d := all.Between(start, end)

	p := &Preview{
		Name:      r.Name,
		DateRange: model.DateRange{Start: model.FormatDate(start), End: model.FormatDate(end)},
		KPIs:      ComputeKPIs(d),
	}
	for i, ds := range r.DataSources {
		chart := "bar"
		if i < len(r.ChartTypes) {
			chart = r.ChartTypes[i]
		}
		var points []Point
		switch ds {
		case "revenue":
			points = RevenueTrend(d.Invoices, MonthsBetween(start, end))
		case "projects":
			points = ProjectStatusDistribution(d.Projects)
		case "tasks":
			points = TaskStatusDistribution(d.Tasks)
		case "time":
			points = HoursPerProject(d.TimeEntries, all.Projects)
		case "expenses":
			points = ExpensesByCategory(d.Expenses)
		}
		p.Series = append(p.Series, Series{DataSource: ds, ChartType: chart, Points: points})
	}
	return p, nil
}

// Between keeps records dated within [start, end] (inclusive, by day).
// Goals are not dated and are kept as is.
func (d *Dataset) Between(start, end time.Time) *Dataset {
	lo := model.FormatDate(start)
	hi := model.FormatDate(end)
	in := func(t time.Time, ok bool) bool {
		if !ok {
			return false
		}
		day := model.FormatDate(t)
		return day >= lo && day <= hi
	}
	out := &Dataset{Goals: d.Goals}
	for _, p := range d.Projects {
		if in(p.CreatedDate, !p.CreatedDate.IsZero()) {
			out.Projects = append(out.Projects, p)
		}
	}
	for _, t := range d.Tasks {
		if in(t.CreatedDate, !t.CreatedDate.IsZero()) {
			out.Tasks = append(out.Tasks, t)
		}
	}
	for _, e := range d.TimeEntries {
		if in(recordDate(e.Date, e.CreatedDate)) {
			out.TimeEntries = append(out.TimeEntries, e)
		}
	}
	for _, inv := range d.Invoices {
		if in(invoiceDate(inv)) {
			out.Invoices = append(out.Invoices, inv)
		}
	}
	for _, e := range d.Expenses {
		if in(recordDate(e.Date, e.CreatedDate)) {
			out.Expenses = append(out.Expenses, e)
		}
	}
	return out
}

func recordDate(s string, created time.Time) (time.Time, bool) {
	if t, ok := model.ParseDate(s); ok {
		return t, true
	}
	return created, !created.IsZero()
}

func parseRange(r model.DateRange) (start, end time.Time, err error) {
	if r.Start != "" {
		var ok bool
		if start, ok = model.ParseDate(r.Start); !ok {
			return start, end, fmt.Errorf("%w: invalid start date %q", ErrInvalidReport, r.Start)
		}
	}
	if r.End != "" {
		var ok bool
		if end, ok = model.ParseDate(r.End); !ok {
			return start, end, fmt.Errorf("%w: invalid end date %q", ErrInvalidReport, r.End)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("%w: end date before start date", ErrInvalidReport)
	}
	return start, end, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
