// Benchmark tool for testing Kite against labeled FNOL claim data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/claims.csv -url http://localhost:8080
//
// This tool:
//   1. Reads a labeled claims CSV (with fraud labels)
//   2. Sends each claim to Kite for a routing decision
//   3. Compares Kite's SIU/escalation verdict with the actual fraud labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledClaim represents one row from the labeled claims dataset.
type LabeledClaim struct {
	ClaimID         string
	ClaimType       string
	State           string
	Amount          float64
	BaseValue       float64
	DaysSincePolicy int
	ReportLagDays   int
	PoliceReport    bool
	AnyInjuries     bool
	DamageSeverity  string
	VehicleYear     int
	Mileage         int
	IsFraud         bool
}

// ClaimRequest mirrors the Kite POST /claims body.
type ClaimRequest struct {
	PolicyNumber    string       `json:"policyNumber"`
	Type            string       `json:"type"`
	ClaimantID      string       `json:"claimantId"`
	ClaimantName    string       `json:"claimantName"`
	LossDate        time.Time    `json:"lossDate"`
	ReportDate      time.Time    `json:"reportDate"`
	Location        Location     `json:"location"`
	Vehicle         Vehicle      `json:"vehicle"`
	Policy          Policy       `json:"policy"`
	Injuries        Injuries     `json:"injuries"`
	Damage          Damage       `json:"damage"`
	PoliceReport    *Report      `json:"policeReport,omitempty"`
	ShopEstimate    *Estimate    `json:"shopEstimate,omitempty"`
	EstimatedAmount float64      `json:"estimatedAmount"`
}

type Location struct {
	State string `json:"state"`
}

type Vehicle struct {
	VIN       string  `json:"vin"`
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Year      int     `json:"year"`
	Mileage   int     `json:"mileage"`
	Condition string  `json:"condition"`
	BaseValue float64 `json:"baseValue"`
}

type Policy struct {
	Number         string     `json:"number"`
	NamedInsured   string     `json:"namedInsured"`
	EffectiveDate  time.Time  `json:"effectiveDate"`
	ExpirationDate time.Time  `json:"expirationDate"`
	Status         string     `json:"status"`
	VehicleVINs    []string   `json:"vehicleVins"`
	Coverages      []Coverage `json:"coverages"`
	PolicyLimit    float64    `json:"policyLimit"`
}

type Coverage struct {
	Type       string  `json:"type"`
	Limit      float64 `json:"limit"`
	Deductible float64 `json:"deductible"`
	Active     bool    `json:"active"`
}

type Injuries struct {
	AnyInjuries bool   `json:"anyInjuries"`
	Severity    string `json:"severity"`
}

type Damage struct {
	Severity string `json:"severity"`
	Drivable bool   `json:"drivable"`
}

type Report struct {
	Filed        bool   `json:"filed"`
	ReportNumber string `json:"reportNumber,omitempty"`
}

type Estimate struct {
	ShopName string  `json:"shopName"`
	Total    float64 `json:"total"`
}

// ProcessResponse is the Kite API response format.
type ProcessResponse struct {
	ClaimID  string `json:"claimId"`
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
	Status   string `json:"status"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Fraud routed to SIU or escalated
	FalsePositives int64 // Non-fraud routed to SIU or escalated
	TrueNegatives  int64 // Non-fraud routed normally
	FalseNegatives int64 // Fraud routed normally (missed fraud!)

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled claims CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Kite base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum claims to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	fraudOnly := flag.Bool("fraud-only", false, "Only test fraud claims")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for non-fraud (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each claim result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/claims.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("=================================================================")
	fmt.Println("          KITE BENCHMARK - Labeled Claim Fraud Detection")
	fmt.Println("=================================================================")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Kite URL:    %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Fraud Only:  %v\n", *fraudOnly)
	fmt.Printf("Sample Rate: %.2f\n", *sampleRate)
	fmt.Println()

	// Check Kite is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kite not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kite is running:")
		fmt.Println("  go run cmd/kite/main.go")
		os.Exit(1)
	}
	fmt.Println("Kite is healthy")

	// Read labeled claims
	fmt.Printf("\nReading claim data from %s...\n", *csvPath)
	claims, err := readClaimsCSV(*csvPath, *limit, *fraudOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d claims\n", len(claims))

	// Count fraud vs non-fraud
	fraudCount := 0
	for _, c := range claims {
		if c.IsFraud {
			fraudCount++
		}
	}
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(claims)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(claims)-fraudCount, 100*float64(len(claims)-fraudCount)/float64(len(claims)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(claims, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readClaimsCSV(path string, limit int, fraudOnly bool, sampleRate float64) ([]LabeledClaim, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(col)] = i
	}

	var claims []LabeledClaim
	sampleCounter := 0
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		rowNum++

		isFraud := record[colIndex["is_fraud"]] == "1"

		// Apply filters
		if fraudOnly && !isFraud {
			continue
		}

		// Sample non-fraud claims
		if !isFraud && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		amount, _ := strconv.ParseFloat(record[colIndex["amount"]], 64)
		baseValue, _ := strconv.ParseFloat(record[colIndex["base_value"]], 64)
		daysSincePolicy, _ := strconv.Atoi(record[colIndex["days_since_policy"]])
		reportLagDays, _ := strconv.Atoi(record[colIndex["report_lag_days"]])
		vehicleYear, _ := strconv.Atoi(record[colIndex["vehicle_year"]])
		mileage, _ := strconv.Atoi(record[colIndex["mileage"]])

		c := LabeledClaim{
			ClaimID:         fmt.Sprintf("bench-%06d", rowNum),
			ClaimType:       strings.ToUpper(record[colIndex["claim_type"]]),
			State:           strings.ToUpper(record[colIndex["state"]]),
			Amount:          amount,
			BaseValue:       baseValue,
			DaysSincePolicy: daysSincePolicy,
			ReportLagDays:   reportLagDays,
			PoliceReport:    record[colIndex["police_report"]] == "1",
			AnyInjuries:     record[colIndex["any_injuries"]] == "1",
			DamageSeverity:  strings.ToUpper(record[colIndex["damage_severity"]]),
			VehicleYear:     vehicleYear,
			Mileage:         mileage,
			IsFraud:         isFraud,
		}

		claims = append(claims, c)

		if limit > 0 && len(claims) >= limit {
			break
		}
	}

	return claims, nil
}

func runBenchmark(claims []LabeledClaim, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan LabeledClaim, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for c := range work {
				start := time.Now()
				result, err := processClaim(client, baseURL, tenantID, c)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", c.ClaimID, err)
					}
					continue
				}

				// Track actual labels
				if c.IsFraud {
					atomic.AddInt64(&metrics.TotalFraud, 1)
				} else {
					atomic.AddInt64(&metrics.TotalNonFraud, 1)
				}

				// Calculate confusion matrix. SIU referral or fraud
				// escalation counts as a fraud verdict.
				predicted := result.Decision == "siu" || result.Status == "FLAGGED_FRAUD" ||
					(result.Decision == "escalate" && strings.Contains(strings.ToLower(result.Reason), "fraud"))
				actual := c.IsFraud

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "ok  "
					if (predicted && !actual) || (!predicted && actual) {
						status = "miss"
					}
					fmt.Printf("%s %-12s | Type: %-14s | Amount: $%10.2f | Fraud: %-5v | Kite: %-14s (%s)\n",
						status,
						c.ClaimID,
						c.ClaimType,
						c.Amount,
						c.IsFraud,
						result.Decision,
						result.Status,
					)
				}
			}
		}()
	}

	// Send work
	for _, c := range claims {
		work <- c
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func processClaim(client *http.Client, baseURL, tenantID string, c LabeledClaim) (*ProcessResponse, error) {
	now := time.Now().UTC()
	lossDate := now.AddDate(0, 0, -c.ReportLagDays-1)
	reportDate := lossDate.AddDate(0, 0, c.ReportLagDays)
	effectiveDate := lossDate.AddDate(0, 0, -c.DaysSincePolicy)

	damageSeverity := c.DamageSeverity
	if damageSeverity == "" {
		damageSeverity = "MINOR"
	}
	injurySeverity := "NONE"
	if c.AnyInjuries {
		injurySeverity = "MODERATE"
	}

	var policeReport *Report
	if c.PoliceReport {
		policeReport = &Report{Filed: true, ReportNumber: "BENCH-" + c.ClaimID}
	}

	req := ClaimRequest{
		PolicyNumber: "POL-" + c.ClaimID,
		Type:         c.ClaimType,
		ClaimantID:   "clmt-" + c.ClaimID,
		ClaimantName: "Benchmark Claimant " + c.ClaimID,
		LossDate:     lossDate,
		ReportDate:   reportDate,
		Location:     Location{State: c.State},
		Vehicle: Vehicle{
			VIN:       "BENCHVIN" + c.ClaimID,
			Make:      "Toyota",
			Model:     "Camry",
			Year:      c.VehicleYear,
			Mileage:   c.Mileage,
			Condition: "GOOD",
			BaseValue: c.BaseValue,
		},
		Policy: Policy{
			Number:         "POL-" + c.ClaimID,
			NamedInsured:   "Benchmark Claimant " + c.ClaimID,
			EffectiveDate:  effectiveDate,
			ExpirationDate: now.AddDate(1, 0, 0),
			Status:         "ACTIVE",
			VehicleVINs:    []string{"BENCHVIN" + c.ClaimID},
			Coverages: []Coverage{
				{Type: "COLLISION", Limit: 50000, Deductible: 500, Active: true},
				{Type: "COMPREHENSIVE", Limit: 50000, Deductible: 250, Active: true},
				{Type: "MEDICAL_PAYMENTS", Limit: 25000, Active: true},
			},
			PolicyLimit: 100000,
		},
		Injuries: Injuries{AnyInjuries: c.AnyInjuries, Severity: injurySeverity},
		Damage:   Damage{Severity: damageSeverity, Drivable: damageSeverity == "MINOR"},
		PoliceReport: policeReport,
		ShopEstimate: &Estimate{
			ShopName: "Benchmark Auto Body",
			Total:    c.Amount,
		},
		EstimatedAmount: c.Amount,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/claims", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n=================================================================")
	fmt.Println("                      BENCHMARK RESULTS")
	fmt.Println("=================================================================")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Fraud:      %d\n", m.TotalFraud)
	fmt.Printf("   Total Non-Fraud:  %d\n", m.TotalNonFraud)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    SIU         CLEAR")
	fmt.Println("              +----------+----------+")
	fmt.Printf("   Actual  F  | %8d | %8d |  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              +----------+----------+")
	fmt.Printf("          NF  | %8d | %8d |  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              +----------+----------+")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\nDETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of SIU referrals, how many were actual fraud)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of fraud, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Detection rate analysis
	fmt.Printf("\nDETECTION ANALYSIS\n")
	if m.TotalFraud > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalFraud) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalFraud) * 100
		fmt.Printf("   Fraud Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalFraud, detectionRate)
		fmt.Printf("   Fraud Missed:      %d / %d (%.2f%%)\n", m.FalseNegatives, m.TotalFraud, missRate)
	}
	if m.TotalNonFraud > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalNonFraud) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalNonFraud, falseAlarmRate)
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		cps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f claims/sec\n", cps)
	}

	fmt.Println()
}
