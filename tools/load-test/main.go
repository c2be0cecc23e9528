package main

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	// Configuration
	baseURL := "http://localhost:8080/api/v1/tenants/load-test/employees"
	contentType := "application/json"

	numEmployees := 5000
	concurrency := 50 // Number of concurrent requests to avoid local port exhaustion

	fmt.Printf("Starting load test: %d employees (clock-in, break, clock-out) against %s with concurrency %d\n", numEmployees, baseURL, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var successCount int64
	var failCount int64

	startTime := time.Now()

	post := func(url string) bool {
		resp, err := http.Post(url, contentType, bytes.NewBufferString(`{}`))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode < 300 || resp.StatusCode == 422
	}

	for i := 0; i < numEmployees; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		employeeID := fmt.Sprintf("load-test-emp-%d", i)

		go func(empID string) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			// One full punch cycle per employee. The second break close is
			// expected to succeed immediately (no minimum on break #2+); the
			// first break close is expected to be rejected as too short.
			urls := []string{
				baseURL + "/" + empID + "/clock-in",
				baseURL + "/" + empID + "/breaks/start",
				baseURL + "/" + empID + "/breaks/end",
				baseURL + "/" + empID + "/clock-out",
			}
			for _, u := range urls {
				if post(u) {
					atomic.AddInt64(&successCount, 1)
				} else {
					atomic.AddInt64(&failCount, 1)
				}
			}
		}(employeeID)
	}

	wg.Wait()
	elapsed := time.Since(startTime)

	total := successCount + failCount
	fmt.Printf("Done in %s: %d requests, %d ok, %d failed (%.0f req/s)\n",
		elapsed, total, successCount, failCount, float64(total)/elapsed.Seconds())
}
