package dataset

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Silver rows are cleaned bronze rows plus the transformation timestamp.
// Embedding keeps the bronze columns intact in the parquet schema.

type CleanAgent struct {
	Agent
	TransformedAt string `parquet:"transformed_at" json:"transformed_at"`
}

type CleanCustomer struct {
	Customer
	TransformedAt string `parquet:"transformed_at" json:"transformed_at"`
}

type CleanPolicy struct {
	Policy
	TransformedAt string `parquet:"transformed_at" json:"transformed_at"`
}

type CleanClaim struct {
	Claim
	TransformedAt string `parquet:"transformed_at" json:"transformed_at"`
}

type CleanPayment struct {
	Payment
	TransformedAt string `parquet:"transformed_at" json:"transformed_at"`
}

type CleanVehicle struct {
	Vehicle
	TransformedAt string `parquet:"transformed_at" json:"transformed_at"`
}

// CustomerPolicy is the inner join of cleaned customers and policies,
// one row per (customer, policy) pair.
type CustomerPolicy struct {
	CustomerID    int64     `parquet:"customer_id" json:"customer_id"`
	FirstName     string    `parquet:"first_name" json:"first_name"`
	LastName      string    `parquet:"last_name" json:"last_name"`
	State         string    `parquet:"state" json:"state"`
	CreditScore   int32     `parquet:"credit_score" json:"credit_score"`
	AnnualIncome  float64   `parquet:"annual_income" json:"annual_income"`
	PolicyID      int64     `parquet:"policy_id" json:"policy_id"`
	PolicyType    string    `parquet:"policy_type" json:"policy_type"`
	Premium       float64   `parquet:"premium" json:"premium"`
	CoverageAmt   float64   `parquet:"coverage_amount" json:"coverage_amount"`
	StartDate     time.Time `parquet:"start_date" json:"start_date"`
	PolicyStatus  string    `parquet:"policy_status" json:"policy_status"`
	TransformedAt string    `parquet:"transformed_at" json:"transformed_at"`
}

// PolicyClaim is the left join of cleaned policies and claims; policies
// without claims keep zero claim columns and has_claim=false.
type PolicyClaim struct {
	PolicyID       int64   `parquet:"policy_id" json:"policy_id"`
	CustomerID     int64   `parquet:"customer_id" json:"customer_id"`
	AgentID        int64   `parquet:"agent_id" json:"agent_id"`
	PolicyType     string  `parquet:"policy_type" json:"policy_type"`
	Premium        float64 `parquet:"premium" json:"premium"`
	ClaimID        int64   `parquet:"claim_id" json:"claim_id"`
	ClaimType      string  `parquet:"claim_type" json:"claim_type"`
	ClaimedAmount  float64 `parquet:"claimed_amount" json:"claimed_amount"`
	ApprovedAmount float64 `parquet:"approved_amount" json:"approved_amount"`
	ClaimStatus    string  `parquet:"claim_status" json:"claim_status"`
	HasClaim       bool    `parquet:"has_claim" json:"has_claim"`
	TransformedAt  string  `parquet:"transformed_at" json:"transformed_at"`
}

// Stamp renders a transformation/aggregation timestamp the way every
// stage of the pipeline records it: UTC, second precision.
func Stamp(at time.Time) string {
	return at.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func CleanAgents(rows []Agent, at time.Time) []CleanAgent {
	stamp := Stamp(at)
	out := make([]CleanAgent, 0, len(rows))
	for _, r := range rows {
		if r.AgentID == 0 {
			continue
		}
		r.FirstName = titleCase(r.FirstName)
		r.LastName = titleCase(r.LastName)
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
		r.Phone = digitsOnly(r.Phone)
		r.Region = titleCase(r.Region)
		r.Specialty = titleCase(r.Specialty)
		r.LicenseNumber = strings.ToUpper(strings.TrimSpace(r.LicenseNumber))
		out = append(out, CleanAgent{Agent: r, TransformedAt: stamp})
	}
	return out
}

func CleanCustomers(rows []Customer, at time.Time) []CleanCustomer {
	stamp := Stamp(at)
	out := make([]CleanCustomer, 0, len(rows))
	for _, r := range rows {
		if !strings.Contains(r.Email, "@") {
			continue
		}
		if r.CreditScore < 300 || r.CreditScore > 850 {
			continue
		}
		r.FirstName = titleCase(r.FirstName)
		r.LastName = titleCase(r.LastName)
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
		r.Phone = digitsOnly(r.Phone)
		r.City = titleCase(r.City)
		r.State = strings.ToUpper(strings.TrimSpace(r.State))
		r.ZipCode = strings.TrimSpace(r.ZipCode)
		r.Occupation = titleCase(r.Occupation)
		out = append(out, CleanCustomer{Customer: r, TransformedAt: stamp})
	}
	return out
}

func CleanPolicies(rows []Policy, at time.Time) []CleanPolicy {
	stamp := Stamp(at)
	out := make([]CleanPolicy, 0, len(rows))
	for _, r := range rows {
		if r.Premium <= 0 || r.CoverageAmount <= 0 {
			continue
		}
		if r.CustomerID == 0 || r.AgentID == 0 {
			continue
		}
		r.PolicyNumber = strings.ToUpper(strings.TrimSpace(r.PolicyNumber))
		r.PolicyType = titleCase(r.PolicyType)
		r.CoverageType = strings.TrimSpace(r.CoverageType)
		r.Premium = round2(r.Premium)
		out = append(out, CleanPolicy{Policy: r, TransformedAt: stamp})
	}
	return out
}

func CleanClaims(rows []Claim, at time.Time) []CleanClaim {
	stamp := Stamp(at)
	out := make([]CleanClaim, 0, len(rows))
	for _, r := range rows {
		if r.ClaimedAmount <= 0 || r.PolicyID == 0 {
			continue
		}
		r.ClaimNumber = strings.ToUpper(strings.TrimSpace(r.ClaimNumber))
		r.ClaimType = titleCase(r.ClaimType)
		r.ClaimedAmount = round2(r.ClaimedAmount)
		out = append(out, CleanClaim{Claim: r, TransformedAt: stamp})
	}
	return out
}

func CleanPayments(rows []Payment, at time.Time) []CleanPayment {
	stamp := Stamp(at)
	out := make([]CleanPayment, 0, len(rows))
	for _, r := range rows {
		if r.PolicyID == 0 || r.Amount == 0 {
			continue
		}
		r.PaymentNumber = strings.ToUpper(strings.TrimSpace(r.PaymentNumber))
		r.PaymentMethod = titleCase(r.PaymentMethod)
		r.TransactionID = strings.ToUpper(strings.TrimSpace(r.TransactionID))
		r.ReferenceNumber = strings.ToUpper(strings.TrimSpace(r.ReferenceNumber))
		r.Amount = round2(r.Amount)
		out = append(out, CleanPayment{Payment: r, TransformedAt: stamp})
	}
	return out
}

func CleanVehicles(rows []Vehicle, at time.Time) []CleanVehicle {
	stamp := Stamp(at)
	out := make([]CleanVehicle, 0, len(rows))
	for _, r := range rows {
		if r.Year < 1990 || r.Year > 2025 {
			continue
		}
		r.VIN = strings.ToUpper(strings.TrimSpace(r.VIN))
		r.Make = titleCase(r.Make)
		r.Model = titleCase(r.Model)
		r.Color = titleCase(r.Color)
		r.VehicleType = titleCase(r.VehicleType)
		r.EngineType = titleCase(r.EngineType)
		r.RegistrationState = strings.ToUpper(strings.TrimSpace(r.RegistrationState))
		out = append(out, CleanVehicle{Vehicle: r, TransformedAt: stamp})
	}
	return out
}

// JoinCustomerPolicies inner-joins customers and policies on customer_id,
// ordered by customer then policy start date.
func JoinCustomerPolicies(customers []CleanCustomer, policies []CleanPolicy, at time.Time) []CustomerPolicy {
	stamp := Stamp(at)

	byCustomer := make(map[int64]CleanCustomer, len(customers))
	for _, c := range customers {
		byCustomer[c.CustomerID] = c
	}

	out := make([]CustomerPolicy, 0, len(policies))
	for _, p := range policies {
		c, ok := byCustomer[p.CustomerID]
		if !ok {
			continue
		}
		out = append(out, CustomerPolicy{
			CustomerID:    c.CustomerID,
			FirstName:     c.FirstName,
			LastName:      c.LastName,
			State:         c.State,
			CreditScore:   c.CreditScore,
			AnnualIncome:  c.AnnualIncome,
			PolicyID:      p.PolicyID,
			PolicyType:    p.PolicyType,
			Premium:       p.Premium,
			CoverageAmt:   p.CoverageAmount,
			StartDate:     p.StartDate,
			PolicyStatus:  p.Status,
			TransformedAt: stamp,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

// JoinPolicyClaims left-joins policies with claims on policy_id; a policy
// with several claims yields several rows, one without claims yields a
// single row with has_claim=false.
func JoinPolicyClaims(policies []CleanPolicy, claims []CleanClaim, at time.Time) []PolicyClaim {
	stamp := Stamp(at)

	claimsByPolicy := make(map[int64][]CleanClaim)
	for _, c := range claims {
		claimsByPolicy[c.PolicyID] = append(claimsByPolicy[c.PolicyID], c)
	}

	out := make([]PolicyClaim, 0, len(policies))
	for _, p := range policies {
		base := PolicyClaim{
			PolicyID:      p.PolicyID,
			CustomerID:    p.CustomerID,
			AgentID:       p.AgentID,
			PolicyType:    p.PolicyType,
			Premium:       p.Premium,
			TransformedAt: stamp,
		}

		matched := claimsByPolicy[p.PolicyID]
		if len(matched) == 0 {
			out = append(out, base)
			continue
		}

		sort.Slice(matched, func(i, j int) bool {
			return matched[i].IncidentDate.Before(matched[j].IncidentDate)
		})
		for _, c := range matched {
			row := base
			row.ClaimID = c.ClaimID
			row.ClaimType = c.ClaimType
			row.ClaimedAmount = c.ClaimedAmount
			row.ApprovedAmount = c.ApprovedAmount
			row.ClaimStatus = c.Status
			row.HasClaim = true
			out = append(out, row)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PolicyID < out[j].PolicyID
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func titleCase(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, f := range fields {
		runes := []rune(f)
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
