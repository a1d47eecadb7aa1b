package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Bronze rows are raw extracts. Every row carries the fetch timestamp so a
// table is self-describing about when it was produced.

type Agent struct {
	AgentID        int64     `parquet:"agent_id" json:"agent_id"`
	FirstName      string    `parquet:"first_name" json:"first_name"`
	LastName       string    `parquet:"last_name" json:"last_name"`
	Email          string    `parquet:"email" json:"email"`
	Phone          string    `parquet:"phone" json:"phone"`
	Region         string    `parquet:"region" json:"region"`
	Specialty      string    `parquet:"specialty" json:"specialty"`
	LicenseNumber  string    `parquet:"license_number" json:"license_number"`
	CommissionRate float64   `parquet:"commission_rate" json:"commission_rate"`
	HireDate       time.Time `parquet:"hire_date" json:"hire_date"`
	Status         string    `parquet:"status" json:"status"`
	FetchedAt      string    `parquet:"fetched_at" json:"fetched_at"`
}

type Customer struct {
	CustomerID   int64     `parquet:"customer_id" json:"customer_id"`
	FirstName    string    `parquet:"first_name" json:"first_name"`
	LastName     string    `parquet:"last_name" json:"last_name"`
	DateOfBirth  time.Time `parquet:"date_of_birth" json:"date_of_birth"`
	Email        string    `parquet:"email" json:"email"`
	Phone        string    `parquet:"phone" json:"phone"`
	Address      string    `parquet:"address" json:"address"`
	City         string    `parquet:"city" json:"city"`
	State        string    `parquet:"state" json:"state"`
	ZipCode      string    `parquet:"zip_code" json:"zip_code"`
	Occupation   string    `parquet:"occupation" json:"occupation"`
	AnnualIncome float64   `parquet:"annual_income" json:"annual_income"`
	CreditScore  int32     `parquet:"credit_score" json:"credit_score"`
	JoinDate     time.Time `parquet:"join_date" json:"join_date"`
	FetchedAt    string    `parquet:"fetched_at" json:"fetched_at"`
}

type Policy struct {
	PolicyID       int64     `parquet:"policy_id" json:"policy_id"`
	PolicyNumber   string    `parquet:"policy_number" json:"policy_number"`
	CustomerID     int64     `parquet:"customer_id" json:"customer_id"`
	AgentID        int64     `parquet:"agent_id" json:"agent_id"`
	PolicyType     string    `parquet:"policy_type" json:"policy_type"`
	CoverageType   string    `parquet:"coverage_type" json:"coverage_type"`
	Premium        float64   `parquet:"premium" json:"premium"`
	CoverageAmount float64   `parquet:"coverage_amount" json:"coverage_amount"`
	Deductible     int32     `parquet:"deductible" json:"deductible"`
	StartDate      time.Time `parquet:"start_date" json:"start_date"`
	EndDate        time.Time `parquet:"end_date" json:"end_date"`
	Status         string    `parquet:"status" json:"status"`
	FetchedAt      string    `parquet:"fetched_at" json:"fetched_at"`
}

type Claim struct {
	ClaimID        int64     `parquet:"claim_id" json:"claim_id"`
	PolicyID       int64     `parquet:"policy_id" json:"policy_id"`
	ClaimNumber    string    `parquet:"claim_number" json:"claim_number"`
	ClaimType      string    `parquet:"claim_type" json:"claim_type"`
	IncidentDate   time.Time `parquet:"incident_date" json:"incident_date"`
	ReportedDate   time.Time `parquet:"reported_date" json:"reported_date"`
	ClaimedAmount  float64   `parquet:"claimed_amount" json:"claimed_amount"`
	ApprovedAmount float64   `parquet:"approved_amount" json:"approved_amount"`
	Status         string    `parquet:"status" json:"status"`
	Description    string    `parquet:"description" json:"description"`
	FetchedAt      string    `parquet:"fetched_at" json:"fetched_at"`
}

type Payment struct {
	PaymentID       int64     `parquet:"payment_id" json:"payment_id"`
	PolicyID        int64     `parquet:"policy_id" json:"policy_id"`
	PaymentNumber   string    `parquet:"payment_number" json:"payment_number"`
	PaymentDate     time.Time `parquet:"payment_date" json:"payment_date"`
	Amount          float64   `parquet:"amount" json:"amount"`
	PaymentMethod   string    `parquet:"payment_method" json:"payment_method"`
	Status          string    `parquet:"status" json:"status"`
	TransactionID   string    `parquet:"transaction_id" json:"transaction_id"`
	ReferenceNumber string    `parquet:"reference_number" json:"reference_number"`
	FetchedAt       string    `parquet:"fetched_at" json:"fetched_at"`
}

type Vehicle struct {
	VehicleID          int64     `parquet:"vehicle_id" json:"vehicle_id"`
	PolicyID           int64     `parquet:"policy_id" json:"policy_id"`
	VIN                string    `parquet:"vin" json:"vin"`
	Make               string    `parquet:"make" json:"make"`
	Model              string    `parquet:"model" json:"model"`
	Year               int32     `parquet:"year" json:"year"`
	VehicleType        string    `parquet:"vehicle_type" json:"vehicle_type"`
	Color              string    `parquet:"color" json:"color"`
	Mileage            int32     `parquet:"mileage" json:"mileage"`
	EngineType         string    `parquet:"engine_type" json:"engine_type"`
	RegistrationState  string    `parquet:"registration_state" json:"registration_state"`
	RegistrationExpiry time.Time `parquet:"registration_expiry" json:"registration_expiry"`
	FetchedAt          string    `parquet:"fetched_at" json:"fetched_at"`
}

// Generator produces synthetic bronze tables. A fixed seed makes a run
// reproducible, which the tests rely on.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewGenerator creates a Generator seeded deterministically. The reference
// time anchors all generated dates and the fetched_at stamps.
func NewGenerator(seed uint64, now time.Time) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		now:   now.UTC(),
	}
}

var (
	regions      = []string{"Northeast", "Southeast", "Midwest", "Southwest", "West"}
	specialties  = []string{"Auto", "Home", "Life", "Commercial", "Multi-line"}
	agentStatus  = []string{"Active", "Active", "Active", "On Leave", "Retired"}
	occupations  = []string{"Engineer", "Teacher", "Nurse", "Accountant", "Retail Manager", "Contractor", "Analyst"}
	states       = []string{"CA", "TX", "NY", "FL", "IL", "PA", "OH", "GA", "NC", "MI"}
	policyTypes  = []string{"Auto", "Home", "Life", "Health", "Business"}
	policyStates = []string{"Active", "Active", "Active", "Pending", "Expired", "Cancelled"}
	claimTypes   = []string{"Accident", "Theft", "Fire", "Natural Disaster", "Liability"}
	claimStates  = []string{"Approved", "Approved", "Pending", "Denied", "Under Review"}
	payMethods   = []string{"Credit Card", "Bank Transfer", "Check", "Direct Debit"}
	payStates    = []string{"Completed", "Completed", "Completed", "Pending", "Failed", "Refunded"}
	vehicleTypes = []string{"Sedan", "SUV", "Truck", "Coupe", "Van"}
	colors       = []string{"Black", "White", "Silver", "Blue", "Red", "Gray"}
	engineTypes  = []string{"Gasoline", "Diesel", "Hybrid", "Electric"}

	coverageByType = map[string][]string{
		"Auto":     {"Liability", "Collision", "Comprehensive", "Full Coverage"},
		"Home":     {"HO-3", "HO-5", "HO-6", "DP-3"},
		"Life":     {"Term 10", "Term 20", "Term 30", "Whole Life", "Universal"},
		"Health":   {"Bronze", "Silver", "Gold", "Platinum"},
		"Business": {"General Liability", "Professional", "Property", "Commercial Auto"},
	}
)

func (g *Generator) stamp() string {
	return g.now.Truncate(time.Second).Format(time.RFC3339)
}

func (g *Generator) between(yearsAgoFrom, yearsAgoTo int) time.Time {
	return g.faker.DateRange(g.now.AddDate(-yearsAgoFrom, 0, 0), g.now.AddDate(-yearsAgoTo, 0, 0))
}

func (g *Generator) Agents(n int) []Agent {
	fetched := g.stamp()
	rows := make([]Agent, n)
	for i := range rows {
		first, last := g.faker.FirstName(), g.faker.LastName()
		rows[i] = Agent{
			AgentID:        int64(i + 1),
			FirstName:      first,
			LastName:       last,
			Email:          fmt.Sprintf("%s.%s@insurance.com", strings.ToLower(first), strings.ToLower(last)),
			Phone:          g.faker.Phone(),
			Region:         g.faker.RandomString(regions),
			Specialty:      g.faker.RandomString(specialties),
			LicenseNumber:  strings.ToUpper(g.faker.LetterN(3)) + "-" + g.faker.DigitN(6),
			CommissionRate: round4(g.faker.Float64Range(0.05, 0.15)),
			HireDate:       g.between(10, 1),
			Status:         g.faker.RandomString(agentStatus),
			FetchedAt:      fetched,
		}
	}
	return rows
}

func (g *Generator) Customers(n int) []Customer {
	fetched := g.stamp()
	rows := make([]Customer, n)
	for i := range rows {
		rows[i] = Customer{
			CustomerID:   int64(10000 + i),
			FirstName:    g.faker.FirstName(),
			LastName:     g.faker.LastName(),
			DateOfBirth:  g.between(80, 18),
			Email:        g.faker.Email(),
			Phone:        g.faker.Phone(),
			Address:      g.faker.Street(),
			City:         g.faker.City(),
			State:        g.faker.RandomString(states),
			ZipCode:      g.faker.Zip(),
			Occupation:   g.faker.RandomString(occupations),
			AnnualIncome: round2(g.faker.Float64Range(30000, 250000)),
			CreditScore:  int32(g.faker.Number(500, 850)),
			JoinDate:     g.between(8, 0),
			FetchedAt:    fetched,
		}
	}
	return rows
}

func (g *Generator) Policies(n, customers, agents int) []Policy {
	fetched := g.stamp()
	rows := make([]Policy, n)
	for i := range rows {
		policyType := g.faker.RandomString(policyTypes)
		rows[i] = Policy{
			PolicyID:       int64(20000 + i),
			PolicyNumber:   "POL-" + strings.ToUpper(g.faker.LetterN(4)) + "-" + g.faker.DigitN(6),
			CustomerID:     int64(10000 + g.faker.Number(0, customers-1)),
			AgentID:        int64(1 + g.faker.Number(0, agents-1)),
			PolicyType:     policyType,
			CoverageType:   g.faker.RandomString(coverageByType[policyType]),
			Premium:        round2(g.faker.Float64Range(300, 5000)),
			CoverageAmount: round2(g.faker.Float64Range(50000, 1000000)),
			Deductible:     int32(g.faker.RandomInt([]int{250, 500, 1000, 2500, 5000})),
			StartDate:      g.between(3, 0),
			EndDate:        g.faker.DateRange(g.now, g.now.AddDate(2, 0, 0)),
			Status:         g.faker.RandomString(policyStates),
			FetchedAt:      fetched,
		}
	}
	return rows
}

func (g *Generator) Claims(n, policies int) []Claim {
	fetched := g.stamp()
	rows := make([]Claim, n)
	for i := range rows {
		claimed := round2(g.faker.Float64Range(500, 75000))
		status := g.faker.RandomString(claimStates)

		var approved float64
		switch status {
		case "Approved":
			approved = round2(claimed * g.faker.Float64Range(0.5, 1.0))
		case "Denied":
			approved = 0
		}

		incident := g.between(2, 0)
		rows[i] = Claim{
			ClaimID:        int64(30000 + i),
			PolicyID:       int64(20000 + g.faker.Number(0, policies-1)),
			ClaimNumber:    "CLM-" + g.faker.DigitN(6),
			ClaimType:      g.faker.RandomString(claimTypes),
			IncidentDate:   incident,
			ReportedDate:   g.faker.DateRange(incident, g.now),
			ClaimedAmount:  claimed,
			ApprovedAmount: approved,
			Status:         status,
			Description:    g.faker.Sentence(10),
			FetchedAt:      fetched,
		}
	}
	return rows
}

func (g *Generator) Payments(n, policies int) []Payment {
	fetched := g.stamp()
	rows := make([]Payment, n)
	for i := range rows {
		status := g.faker.RandomString(payStates)
		amount := round2(g.faker.Float64Range(50, 2500))
		if status == "Refunded" {
			amount = -amount
		}

		rows[i] = Payment{
			PaymentID:       int64(50000 + i),
			PolicyID:        int64(20000 + g.faker.Number(0, policies-1)),
			PaymentNumber:   "PAY-" + g.faker.DigitN(6),
			PaymentDate:     g.between(2, 0),
			Amount:          amount,
			PaymentMethod:   g.faker.RandomString(payMethods),
			Status:          status,
			TransactionID:   "TXN-" + strings.ToUpper(g.faker.LetterN(15)),
			ReferenceNumber: "REF-" + g.faker.DigitN(6),
			FetchedAt:       fetched,
		}
	}
	return rows
}

func (g *Generator) Vehicles(n, policies int) []Vehicle {
	fetched := g.stamp()
	rows := make([]Vehicle, n)
	for i := range rows {
		rows[i] = Vehicle{
			VehicleID:          int64(40000 + i),
			PolicyID:           int64(20000 + g.faker.Number(0, policies-1)),
			VIN:                strings.ToUpper(g.faker.LetterN(17)),
			Make:               g.faker.CarMaker(),
			Model:              g.faker.CarModel(),
			Year:               int32(g.faker.Number(1995, 2024)),
			VehicleType:        g.faker.RandomString(vehicleTypes),
			Color:              g.faker.RandomString(colors),
			Mileage:            int32(g.faker.Number(5000, 150000)),
			EngineType:         g.faker.RandomString(engineTypes),
			RegistrationState:  g.faker.RandomString(states),
			RegistrationExpiry: g.faker.DateRange(g.now, g.now.AddDate(3, 0, 0)),
			FetchedAt:          fetched,
		}
	}
	return rows
}
