package dataset

import (
	"math"
	"sort"
	"time"
)

// Gold rows are the aggregated, reporting-ready tables.

type AgentPerformance struct {
	AgentID            int64   `parquet:"agent_id" json:"agent_id"`
	FirstName          string  `parquet:"first_name" json:"first_name"`
	LastName           string  `parquet:"last_name" json:"last_name"`
	Region             string  `parquet:"region" json:"region"`
	Specialty          string  `parquet:"specialty" json:"specialty"`
	CommissionRate     float64 `parquet:"commission_rate" json:"commission_rate"`
	Status             string  `parquet:"status" json:"status"`
	TotalPolicies      int64   `parquet:"total_policies" json:"total_policies"`
	PoliciesWithClaims int64   `parquet:"policies_with_claims" json:"policies_with_claims"`
	TotalPremium       float64 `parquet:"total_premium" json:"total_premium"`
	TotalClaimsAmount  float64 `parquet:"total_claims_amount" json:"total_claims_amount"`
	CommissionEarned   float64 `parquet:"commission_earned" json:"commission_earned"`
	ClaimRatePct       float64 `parquet:"claim_rate_pct" json:"claim_rate_pct"`
	AggregatedAt       string  `parquet:"aggregated_at" json:"aggregated_at"`
}

type ClaimsSummary struct {
	ClaimType       string  `parquet:"claim_type" json:"claim_type"`
	Status          string  `parquet:"status" json:"status"`
	TotalClaims     int64   `parquet:"total_claims" json:"total_claims"`
	TotalClaimed    float64 `parquet:"total_claimed" json:"total_claimed"`
	TotalApproved   float64 `parquet:"total_approved" json:"total_approved"`
	AvgClaimed      float64 `parquet:"avg_claimed" json:"avg_claimed"`
	AvgApproved     float64 `parquet:"avg_approved" json:"avg_approved"`
	ApprovalRatePct float64 `parquet:"approval_rate_pct" json:"approval_rate_pct"`
	AggregatedAt    string  `parquet:"aggregated_at" json:"aggregated_at"`
}

type CustomerRisk struct {
	CustomerID         int64   `parquet:"customer_id" json:"customer_id"`
	TotalPolicies      int64   `parquet:"total_policies" json:"total_policies"`
	TotalPremium       float64 `parquet:"total_premium" json:"total_premium"`
	AvgCreditScore     float64 `parquet:"avg_credit_score" json:"avg_credit_score"`
	TotalClaims        int64   `parquet:"total_claims" json:"total_claims"`
	TotalClaimedAmount float64 `parquet:"total_claimed_amount" json:"total_claimed_amount"`
	ClaimFrequencyPct  float64 `parquet:"claim_frequency_pct" json:"claim_frequency_pct"`
	LossRatioPct       float64 `parquet:"loss_ratio_pct" json:"loss_ratio_pct"`
	RiskCategory       string  `parquet:"risk_category" json:"risk_category"`
	AggregatedAt       string  `parquet:"aggregated_at" json:"aggregated_at"`
}

type PremiumRevenue struct {
	PolicyType        string  `parquet:"policy_type" json:"policy_type"`
	TotalPolicies     int64   `parquet:"total_policies" json:"total_policies"`
	TotalPremium      float64 `parquet:"total_premium" json:"total_premium"`
	AvgPremium        float64 `parquet:"avg_premium" json:"avg_premium"`
	TotalCollected    float64 `parquet:"total_collected" json:"total_collected"`
	AvgCollection     float64 `parquet:"avg_collection" json:"avg_collection"`
	CollectionRatePct float64 `parquet:"collection_rate_pct" json:"collection_rate_pct"`
	AggregatedAt      string  `parquet:"aggregated_at" json:"aggregated_at"`
}

// AggregateAgentPerformance computes per-agent book-of-business metrics:
// policy counts, premium volume, claims exposure, and earned commission.
func AggregateAgentPerformance(agents []CleanAgent, policies []CleanPolicy, claims []CleanClaim, at time.Time) []AgentPerformance {
	stamp := Stamp(at)

	claimsByPolicy := make(map[int64][]CleanClaim)
	for _, c := range claims {
		claimsByPolicy[c.PolicyID] = append(claimsByPolicy[c.PolicyID], c)
	}

	type metrics struct {
		policies     int64
		withClaims   int64
		premium      float64
		claimsAmount float64
	}
	byAgent := make(map[int64]*metrics)
	for _, p := range policies {
		m := byAgent[p.AgentID]
		if m == nil {
			m = &metrics{}
			byAgent[p.AgentID] = m
		}
		m.policies++
		m.premium += p.Premium
		if matched := claimsByPolicy[p.PolicyID]; len(matched) > 0 {
			m.withClaims++
			for _, c := range matched {
				m.claimsAmount += c.ApprovedAmount
			}
		}
	}

	out := make([]AgentPerformance, 0, len(agents))
	for _, a := range agents {
		row := AgentPerformance{
			AgentID:        a.AgentID,
			FirstName:      a.FirstName,
			LastName:       a.LastName,
			Region:         a.Region,
			Specialty:      a.Specialty,
			CommissionRate: a.CommissionRate,
			Status:         a.Status,
			AggregatedAt:   stamp,
		}
		if m := byAgent[a.AgentID]; m != nil {
			row.TotalPolicies = m.policies
			row.PoliciesWithClaims = m.withClaims
			row.TotalPremium = round2(m.premium)
			row.TotalClaimsAmount = round2(m.claimsAmount)
			row.CommissionEarned = round2(m.premium * a.CommissionRate)
			row.ClaimRatePct = round2(float64(m.withClaims) / float64(m.policies) * 100)
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalPremium > out[j].TotalPremium
	})
	return out
}

// SummarizeClaims groups claims by type and status.
func SummarizeClaims(claims []CleanClaim, at time.Time) []ClaimsSummary {
	stamp := Stamp(at)

	type key struct{ claimType, status string }
	groups := make(map[key]*ClaimsSummary)
	for _, c := range claims {
		k := key{c.ClaimType, c.Status}
		g := groups[k]
		if g == nil {
			g = &ClaimsSummary{ClaimType: c.ClaimType, Status: c.Status, AggregatedAt: stamp}
			groups[k] = g
		}
		g.TotalClaims++
		g.TotalClaimed += c.ClaimedAmount
		g.TotalApproved += c.ApprovedAmount
	}

	out := make([]ClaimsSummary, 0, len(groups))
	for _, g := range groups {
		g.AvgClaimed = round2(g.TotalClaimed / float64(g.TotalClaims))
		g.AvgApproved = round2(g.TotalApproved / float64(g.TotalClaims))
		if g.TotalClaimed > 0 {
			g.ApprovalRatePct = round2(g.TotalApproved / g.TotalClaimed * 100)
		}
		g.TotalClaimed = round2(g.TotalClaimed)
		g.TotalApproved = round2(g.TotalApproved)
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ClaimType != out[j].ClaimType {
			return out[i].ClaimType < out[j].ClaimType
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// ScoreCustomerRisk rolls policy and claim exposure up to customers and
// bands them by loss ratio: High above 50%, Medium above 20%, Low below.
func ScoreCustomerRisk(customerPolicies []CustomerPolicy, policyClaims []PolicyClaim, at time.Time) []CustomerRisk {
	stamp := Stamp(at)

	type exposure struct {
		claims  int64
		claimed float64
	}
	byPolicy := make(map[int64]*exposure)
	for _, pc := range policyClaims {
		e := byPolicy[pc.PolicyID]
		if e == nil {
			e = &exposure{}
			byPolicy[pc.PolicyID] = e
		}
		if pc.HasClaim {
			e.claims++
			e.claimed += pc.ClaimedAmount
		}
	}

	type rollup struct {
		policies   int64
		premium    float64
		creditSum  float64
		claims     int64
		claimedAmt float64
	}
	byCustomer := make(map[int64]*rollup)
	for _, cp := range customerPolicies {
		r := byCustomer[cp.CustomerID]
		if r == nil {
			r = &rollup{}
			byCustomer[cp.CustomerID] = r
		}
		r.policies++
		r.premium += cp.Premium
		r.creditSum += float64(cp.CreditScore)
		if e := byPolicy[cp.PolicyID]; e != nil {
			r.claims += e.claims
			r.claimedAmt += e.claimed
		}
	}

	out := make([]CustomerRisk, 0, len(byCustomer))
	for id, r := range byCustomer {
		row := CustomerRisk{
			CustomerID:         id,
			TotalPolicies:      r.policies,
			TotalPremium:       round2(r.premium),
			AvgCreditScore:     math.Round(r.creditSum / float64(r.policies)),
			TotalClaims:        r.claims,
			TotalClaimedAmount: round2(r.claimedAmt),
			ClaimFrequencyPct:  round2(float64(r.claims) / float64(r.policies) * 100),
			AggregatedAt:       stamp,
		}
		if r.premium > 0 {
			row.LossRatioPct = round2(r.claimedAmt / r.premium * 100)
		}
		switch {
		case row.LossRatioPct > 50:
			row.RiskCategory = "High"
		case row.LossRatioPct > 20:
			row.RiskCategory = "Medium"
		default:
			row.RiskCategory = "Low"
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LossRatioPct != out[j].LossRatioPct {
			return out[i].LossRatioPct > out[j].LossRatioPct
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// AggregatePremiumRevenue reports collections against written premium per
// policy type, counting completed payments only.
func AggregatePremiumRevenue(policies []CleanPolicy, payments []CleanPayment, at time.Time) []PremiumRevenue {
	stamp := Stamp(at)

	paymentsByPolicy := make(map[int64][]CleanPayment)
	for _, p := range payments {
		if p.Status != "Completed" {
			continue
		}
		paymentsByPolicy[p.PolicyID] = append(paymentsByPolicy[p.PolicyID], p)
	}

	type rollup struct {
		policies   map[int64]struct{}
		premium    float64
		premiumN   int64
		collected  float64
		collectedN int64
	}
	byType := make(map[string]*rollup)
	for _, pol := range policies {
		matched := paymentsByPolicy[pol.PolicyID]
		if len(matched) == 0 {
			continue
		}
		r := byType[pol.PolicyType]
		if r == nil {
			r = &rollup{policies: make(map[int64]struct{})}
			byType[pol.PolicyType] = r
		}
		r.policies[pol.PolicyID] = struct{}{}
		for _, pay := range matched {
			r.premium += pol.Premium
			r.premiumN++
			r.collected += pay.Amount
			r.collectedN++
		}
	}

	out := make([]PremiumRevenue, 0, len(byType))
	for policyType, r := range byType {
		out = append(out, PremiumRevenue{
			PolicyType:        policyType,
			TotalPolicies:     int64(len(r.policies)),
			TotalPremium:      round2(r.premium),
			AvgPremium:        round2(r.premium / float64(r.premiumN)),
			TotalCollected:    round2(r.collected),
			AvgCollection:     round2(r.collected / float64(r.collectedN)),
			CollectionRatePct: round2(r.collected / r.premium * 100),
			AggregatedAt:      stamp,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalPremium > out[j].TotalPremium
	})
	return out
}
