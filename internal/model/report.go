package model

import "fmt"

type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Report struct {
	Meta
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ChartTypes  []string          `json:"chart_types,omitempty"`
	DataSources []string          `json:"data_sources,omitempty"`
	DateRange   DateRange         `json:"date_range"`
	Filters     map[string]string `json:"filters,omitempty"`
	Metrics     []string          `json:"metrics,omitempty"`
}

func (Report) EntityType() string { return TypeReport }

type BusinessGoal struct {
	Meta
	Title        string  `json:"title"`
	Category     string  `json:"category,omitempty"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	Unit         string  `json:"unit,omitempty"`
	Deadline     string  `json:"deadline,omitempty"`
	Status       string  `json:"status,omitempty"`
}

func (BusinessGoal) EntityType() string { return TypeBusinessGoal }

func (g *BusinessGoal) Validate() error {
	if g.Title == "" {
		return fmt.Errorf("title is required")
	}
	if g.TargetValue < 0 {
		return fmt.Errorf("target_value must not be negative")
	}
	if _, ok := ParseDate(g.Deadline); g.Deadline != "" && !ok {
		return fmt.Errorf("invalid deadline %q", g.Deadline)
	}
	return nil
}

type KPIMetric struct {
	Meta
	Name        string  `json:"name"`
	DataSource  string  `json:"data_source"`
	Aggregation string  `json:"aggregation"`
	Target      float64 `json:"target,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Period      string  `json:"period,omitempty"`
}

func (KPIMetric) EntityType() string { return TypeKPIMetric }

func (k *KPIMetric) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("name is required")
	}
	if k.DataSource == "" {
		return fmt.Errorf("data_source is required")
	}
	return nil
}
