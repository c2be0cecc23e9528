package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// A simple mock of the employee/policy directory for local testing.
type PolicyResponse struct {
	MinimumFirstBreakMinutes   int     `json:"minimumFirstBreakMinutes"`
	OvertimeThresholdHours     float64 `json:"overtimeThresholdHours"`
	RequiresManualVerification bool    `json:"requiresManualVerification"`
}

func policyHandler(w http.ResponseWriter, r *http.Request) {
	// Employees whose id contains "audit" get flagged for manual verification,
	// which makes it easy to exercise the review workflow locally.
	requiresVerification := strings.Contains(r.URL.Path, "audit")

	log.Printf("Resolving policy for %s (verification: %v)", r.URL.Path, requiresVerification)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PolicyResponse{
		MinimumFirstBreakMinutes:   30,
		OvertimeThresholdHours:     8.0,
		RequiresManualVerification: requiresVerification,
	})
}

func main() {
	http.HandleFunc("/", policyHandler)
	log.Println("Policy directory mock server starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
