package service

import (
	"context"
	"sort"

	"github.com/polsterdata/polster/internal/dataset"
	"github.com/polsterdata/polster/internal/storage"
)

// Preview is the JSON-friendly projection of a dataset's latest object.
type Preview struct {
	Dataset    string `json:"dataset"`
	SourcePath string `json:"source_path"`
	RowCount   int    `json:"row_count"`
	Rows       any    `json:"rows"`
}

type loaderFunc func(ctx context.Context, store *storage.Store, limit int) (*Preview, error)

// PreviewService resolves dataset names to their latest stored object and
// returns a bounded row preview. The mapping is static: each known dataset
// is read back with its own row type.
type PreviewService struct {
	store   *storage.Store
	loaders map[string]loaderFunc
}

func NewPreviewService(store *storage.Store) *PreviewService {
	return &PreviewService{
		store: store,
		loaders: map[string]loaderFunc{
			"bronze_agents":            loader[dataset.Agent](storage.LayerBronze, "agents"),
			"bronze_customers":         loader[dataset.Customer](storage.LayerBronze, "customers"),
			"bronze_policies":          loader[dataset.Policy](storage.LayerBronze, "policies"),
			"bronze_claims":            loader[dataset.Claim](storage.LayerBronze, "claims"),
			"bronze_payments":          loader[dataset.Payment](storage.LayerBronze, "payments"),
			"bronze_vehicles":          loader[dataset.Vehicle](storage.LayerBronze, "vehicles"),
			"silver_clean_agents":      loader[dataset.CleanAgent](storage.LayerSilver, "clean_agents"),
			"silver_clean_customers":   loader[dataset.CleanCustomer](storage.LayerSilver, "clean_customers"),
			"silver_clean_policies":    loader[dataset.CleanPolicy](storage.LayerSilver, "clean_policies"),
			"silver_clean_claims":      loader[dataset.CleanClaim](storage.LayerSilver, "clean_claims"),
			"silver_clean_payments":    loader[dataset.CleanPayment](storage.LayerSilver, "clean_payments"),
			"silver_clean_vehicles":    loader[dataset.CleanVehicle](storage.LayerSilver, "clean_vehicles"),
			"silver_customer_policies": loader[dataset.CustomerPolicy](storage.LayerSilver, "customer_policies"),
			"silver_policy_claims":     loader[dataset.PolicyClaim](storage.LayerSilver, "policy_claims"),
			"gold_agent_performance":   loader[dataset.AgentPerformance](storage.LayerGold, "agent_performance"),
			"gold_claims_summary":      loader[dataset.ClaimsSummary](storage.LayerGold, "claims_summary"),
			"gold_customer_risk":       loader[dataset.CustomerRisk](storage.LayerGold, "customer_risk"),
			"gold_premium_revenue":     loader[dataset.PremiumRevenue](storage.LayerGold, "premium_revenue"),
		},
	}
}

func loader[T any](layer storage.Layer, ds string) loaderFunc {
	return func(ctx context.Context, store *storage.Store, limit int) (*Preview, error) {
		res, err := storage.ReadLatest[T](ctx, store, layer, storage.DatasetPrefix(layer, ds))
		if err != nil {
			return nil, err
		}

		rows := res.Rows
		total := len(rows)
		if limit > 0 && limit < len(rows) {
			rows = rows[:limit]
		}

		return &Preview{
			Dataset:    string(layer) + "_" + ds,
			SourcePath: res.SourcePath,
			RowCount:   total,
			Rows:       rows,
		}, nil
	}
}

// Datasets lists every dataset name the service can preview.
func (s *PreviewService) Datasets() []string {
	names := make([]string, 0, len(s.loaders))
	for name := range s.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a previewable dataset.
func (s *PreviewService) Known(name string) bool {
	_, ok := s.loaders[name]
	return ok
}

// Latest loads the most recent object of the named dataset, returning at
// most limit rows (all rows when limit <= 0).
func (s *PreviewService) Latest(ctx context.Context, name string, limit int) (*Preview, error) {
	load, ok := s.loaders[name]
	if !ok {
		return nil, &storage.ValidationError{Reason: "unknown dataset " + name}
	}
	return load(ctx, s.store, limit)
}

// Objects lists the stored object names of a layer, oldest first.
func (s *PreviewService) Objects(ctx context.Context, layer storage.Layer, prefix string) ([]string, error) {
	return s.store.ListObjects(ctx, layer, prefix)
}
