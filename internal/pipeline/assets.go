package pipeline

import (
	"context"

	"github.com/polsterdata/polster/internal/dataset"
	"github.com/polsterdata/polster/internal/storage"
)

// tableSizes are the synthetic row counts for bronze extracts. Remote runs
// use the small profile to keep uploads cheap, mirroring the behavior of
// the original platform.
type tableSizes struct {
	agents    int
	customers int
	policies  int
	claims    int
	payments  int
	vehicles  int
}

var (
	localSizes  = tableSizes{agents: 20, customers: 500, policies: 800, claims: 300, payments: 1000, vehicles: 400}
	remoteSizes = tableSizes{agents: 20, customers: 50, policies: 80, claims: 30, payments: 100, vehicles: 40}
)

func (e *Env) sizes() tableSizes {
	if e.Store.RemoteConfigured() {
		return remoteSizes
	}
	return localSizes
}

func (e *Env) generator() *dataset.Generator {
	return dataset.NewGenerator(e.Seed, e.Now())
}

// publish writes rows as a new timestamp-versioned object for (layer, ds).
func publish[T any](ctx context.Context, env *Env, layer storage.Layer, ds string, rows []T) (storage.WriteResult, error) {
	name := storage.ObjectName(layer, ds, env.Now())
	return storage.Write(ctx, env.Store, layer, name, rows)
}

// latest loads the most recent object of (layer, ds).
func latest[T any](ctx context.Context, env *Env, layer storage.Layer, ds string) ([]T, error) {
	res, err := storage.ReadLatest[T](ctx, env.Store, layer, storage.DatasetPrefix(layer, ds))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// DefaultRegistry wires the full bronze → silver → gold asset graph.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	assets := []Asset{
		{
			Name: "bronze_agents", Layer: storage.LayerBronze, Dataset: "agents",
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				return publish(ctx, env, storage.LayerBronze, "agents", env.generator().Agents(env.sizes().agents))
			},
		},
		{
			Name: "bronze_customers", Layer: storage.LayerBronze, Dataset: "customers",
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				return publish(ctx, env, storage.LayerBronze, "customers", env.generator().Customers(env.sizes().customers))
			},
		},
		{
			Name: "bronze_policies", Layer: storage.LayerBronze, Dataset: "policies",
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				s := env.sizes()
				return publish(ctx, env, storage.LayerBronze, "policies", env.generator().Policies(s.policies, s.customers, s.agents))
			},
		},
		{
			Name: "bronze_claims", Layer: storage.LayerBronze, Dataset: "claims",
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				s := env.sizes()
				return publish(ctx, env, storage.LayerBronze, "claims", env.generator().Claims(s.claims, s.policies))
			},
		},
		{
			Name: "bronze_payments", Layer: storage.LayerBronze, Dataset: "payments",
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				s := env.sizes()
				return publish(ctx, env, storage.LayerBronze, "payments", env.generator().Payments(s.payments, s.policies))
			},
		},
		{
			Name: "bronze_vehicles", Layer: storage.LayerBronze, Dataset: "vehicles",
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				s := env.sizes()
				return publish(ctx, env, storage.LayerBronze, "vehicles", env.generator().Vehicles(s.vehicles, s.policies))
			},
		},

		{
			Name: "silver_clean_agents", Layer: storage.LayerSilver, Dataset: "clean_agents",
			Deps: []string{"bronze_agents"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				rows, err := latest[dataset.Agent](ctx, env, storage.LayerBronze, "agents")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerSilver, "clean_agents", dataset.CleanAgents(rows, env.Now()))
			},
		},
		{
			Name: "silver_clean_customers", Layer: storage.LayerSilver, Dataset: "clean_customers",
			Deps: []string{"bronze_customers"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				rows, err := latest[dataset.Customer](ctx, env, storage.LayerBronze, "customers")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerSilver, "clean_customers", dataset.CleanCustomers(rows, env.Now()))
			},
		},
		{
			Name: "silver_clean_policies", Layer: storage.LayerSilver, Dataset: "clean_policies",
			Deps: []string{"bronze_policies"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				rows, err := latest[dataset.Policy](ctx, env, storage.LayerBronze, "policies")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerSilver, "clean_policies", dataset.CleanPolicies(rows, env.Now()))
			},
		},
		{
			Name: "silver_clean_claims", Layer: storage.LayerSilver, Dataset: "clean_claims",
			Deps: []string{"bronze_claims"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				rows, err := latest[dataset.Claim](ctx, env, storage.LayerBronze, "claims")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerSilver, "clean_claims", dataset.CleanClaims(rows, env.Now()))
			},
		},
		{
			Name: "silver_clean_payments", Layer: storage.LayerSilver, Dataset: "clean_payments",
			Deps: []string{"bronze_payments"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				rows, err := latest[dataset.Payment](ctx, env, storage.LayerBronze, "payments")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerSilver, "clean_payments", dataset.CleanPayments(rows, env.Now()))
			},
		},
		{
			Name: "silver_clean_vehicles", Layer: storage.LayerSilver, Dataset: "clean_vehicles",
			Deps: []string{"bronze_vehicles"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				rows, err := latest[dataset.Vehicle](ctx, env, storage.LayerBronze, "vehicles")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerSilver, "clean_vehicles", dataset.CleanVehicles(rows, env.Now()))
			},
		},
		{
			Name: "silver_customer_policies", Layer: storage.LayerSilver, Dataset: "customer_policies",
			Deps: []string{"silver_clean_customers", "silver_clean_policies"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				customers, err := latest[dataset.CleanCustomer](ctx, env, storage.LayerSilver, "clean_customers")
				if err != nil {
					return storage.WriteResult{}, err
				}
				policies, err := latest[dataset.CleanPolicy](ctx, env, storage.LayerSilver, "clean_policies")
				if err != nil {
					return storage.WriteResult{}, err
				}
				joined := dataset.JoinCustomerPolicies(customers, policies, env.Now())
				return publish(ctx, env, storage.LayerSilver, "customer_policies", joined)
			},
		},
		{
			Name: "silver_policy_claims", Layer: storage.LayerSilver, Dataset: "policy_claims",
			Deps: []string{"silver_clean_policies", "silver_clean_claims"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				policies, err := latest[dataset.CleanPolicy](ctx, env, storage.LayerSilver, "clean_policies")
				if err != nil {
					return storage.WriteResult{}, err
				}
				claims, err := latest[dataset.CleanClaim](ctx, env, storage.LayerSilver, "clean_claims")
				if err != nil {
					return storage.WriteResult{}, err
				}
				joined := dataset.JoinPolicyClaims(policies, claims, env.Now())
				return publish(ctx, env, storage.LayerSilver, "policy_claims", joined)
			},
		},

		{
			Name: "gold_agent_performance", Layer: storage.LayerGold, Dataset: "agent_performance",
			Deps: []string{"silver_clean_agents", "silver_clean_policies", "silver_clean_claims"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				agents, err := latest[dataset.CleanAgent](ctx, env, storage.LayerSilver, "clean_agents")
				if err != nil {
					return storage.WriteResult{}, err
				}
				policies, err := latest[dataset.CleanPolicy](ctx, env, storage.LayerSilver, "clean_policies")
				if err != nil {
					return storage.WriteResult{}, err
				}
				claims, err := latest[dataset.CleanClaim](ctx, env, storage.LayerSilver, "clean_claims")
				if err != nil {
					return storage.WriteResult{}, err
				}
				rows := dataset.AggregateAgentPerformance(agents, policies, claims, env.Now())
				return publish(ctx, env, storage.LayerGold, "agent_performance", rows)
			},
		},
		{
			Name: "gold_claims_summary", Layer: storage.LayerGold, Dataset: "claims_summary",
			Deps: []string{"silver_clean_claims"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				claims, err := latest[dataset.CleanClaim](ctx, env, storage.LayerSilver, "clean_claims")
				if err != nil {
					return storage.WriteResult{}, err
				}
				return publish(ctx, env, storage.LayerGold, "claims_summary", dataset.SummarizeClaims(claims, env.Now()))
			},
		},
		{
			Name: "gold_customer_risk", Layer: storage.LayerGold, Dataset: "customer_risk",
			Deps: []string{"silver_customer_policies", "silver_policy_claims"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				customerPolicies, err := latest[dataset.CustomerPolicy](ctx, env, storage.LayerSilver, "customer_policies")
				if err != nil {
					return storage.WriteResult{}, err
				}
				policyClaims, err := latest[dataset.PolicyClaim](ctx, env, storage.LayerSilver, "policy_claims")
				if err != nil {
					return storage.WriteResult{}, err
				}
				rows := dataset.ScoreCustomerRisk(customerPolicies, policyClaims, env.Now())
				return publish(ctx, env, storage.LayerGold, "customer_risk", rows)
			},
		},
		{
			Name: "gold_premium_revenue", Layer: storage.LayerGold, Dataset: "premium_revenue",
			Deps: []string{"silver_clean_policies", "silver_clean_payments"},
			Run: func(ctx context.Context, env *Env) (storage.WriteResult, error) {
				policies, err := latest[dataset.CleanPolicy](ctx, env, storage.LayerSilver, "clean_policies")
				if err != nil {
					return storage.WriteResult{}, err
				}
				payments, err := latest[dataset.CleanPayment](ctx, env, storage.LayerSilver, "clean_payments")
				if err != nil {
					return storage.WriteResult{}, err
				}
				rows := dataset.AggregatePremiumRevenue(policies, payments, env.Now())
				return publish(ctx, env, storage.LayerGold, "premium_revenue", rows)
			},
		},
	}

	for _, a := range assets {
		if err := reg.Register(a); err != nil {
			panic(err) // duplicate names are a programming error
		}
	}
	return reg
}
