package check

import (
	"context"
	"fmt"
	"strconv"

	"paydiag/model"
	"paydiag/repository"
)

type SchemaReport struct {
	Name    string              `json:"table"`
	Exists  bool                `json:"exists"`
	Columns []repository.Column `json:"columns"`
}

func (s *SchemaReport) Summary() []string {
	if !s.Exists {
		return []string{fmt.Sprintf("table %s does not exist in the current database", s.Name)}
	}
	return []string{fmt.Sprintf("table %s: %d columns", s.Name, len(s.Columns))}
}

func (s *SchemaReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		def := "-"
		if c.Default != nil {
			def = *c.Default
		}
		rows = append(rows, []string{c.Name, c.Type, c.Nullable, cell(c.Key), def})
	}
	return []string{"COLUMN", "TYPE", "NULL", "KEY", "DEFAULT"}, rows
}

func runSchema(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	table, err := p.Require("table")
	if err != nil {
		return nil, err
	}
	cols, err := repos.Schema.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	return &SchemaReport{Name: table, Exists: len(cols) > 0, Columns: cols}, nil
}

type PackagesReport struct {
	ActiveOnly bool                `json:"activeOnly"`
	Count      int                 `json:"count"`
	Packages   []model.PackageView `json:"packages"`
}

func (r *PackagesReport) Summary() []string {
	scope := "all"
	if r.ActiveOnly {
		scope = "active"
	}
	return []string{fmt.Sprintf("%d %s packages", r.Count, scope)}
}

func (r *PackagesReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Packages))
	for _, p := range r.Packages {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.Name, cell(p.Amount),
			strconv.FormatInt(p.Points, 10), strconv.FormatInt(p.BonusPoints, 10), strconv.FormatInt(p.TotalPoints, 10),
			yesNo(p.IsActive), yesNo(p.IsRecommended), strconv.Itoa(p.SortOrder), p.Label.OrElse("-"),
		})
	}
	return []string{"ID", "NAME", "AMOUNT", "POINTS", "BONUS", "TOTAL", "ACTIVE", "RECOMMENDED", "SORT", "LABEL"}, rows
}

func runPackages(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	activeOnly, err := p.Bool("activeOnly", true)
	if err != nil {
		return nil, err
	}
	pkgs, err := repos.Packages.ListPackages(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	// 最终顺序以 SortPackages 为准
	model.SortPackages(pkgs)

	views := make([]model.PackageView, 0, len(pkgs))
	for _, pkg := range pkgs {
		if activeOnly && !pkg.IsActive {
			continue
		}
		views = append(views, model.ToPackageView(pkg))
	}
	return &PackagesReport{ActiveOnly: activeOnly, Count: len(views), Packages: views}, nil
}

type PricingReport struct {
	ActiveOnly bool                `json:"activeOnly"`
	Entries    []model.PricingView `json:"entries"`
}

func (r *PricingReport) Summary() []string {
	return []string{fmt.Sprintf("%d pricing entries", len(r.Entries))}
}

func (r *PricingReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.ModelName, e.QuestionType, strconv.FormatInt(e.Cost, 10), yesNo(e.IsActive)})
	}
	return []string{"ID", "MODEL", "QUESTION TYPE", "COST", "ACTIVE"}, rows
}

func runModelPricing(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	activeOnly, err := p.Bool("activeOnly", true)
	if err != nil {
		return nil, err
	}
	cfgs, err := repos.Pricing.ListModelPricing(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	entries := make([]model.PricingView, 0, len(cfgs))
	for _, c := range cfgs {
		entries = append(entries, model.ToPricingView(c))
	}
	return &PricingReport{ActiveOnly: activeOnly, Entries: entries}, nil
}
