package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagenda/scheduling-service/internal/config"
	"github.com/medagenda/scheduling-service/internal/db"
)

// The simulator hammers a running api-server with concurrent bookings,
// transitions and reads, then reports success/conflict/error rates and
// latency percentiles. Its main purpose is demonstrating that racing
// bookings for the same agenda produce exactly one winner.

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	TransitionRatio float64
	ReadRatio       float64
	PatientLimit    int
	DaysAhead       int
	PostgresDSN     string
}

type DataPool struct {
	Professionals []int64
	mu            sync.RWMutex
	appointments  []int64
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment() (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, statusCode int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case statusCode == http.StatusOK || statusCode == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case statusCode == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case statusCode == http.StatusForbidden || statusCode == http.StatusBadRequest:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking    OperationMetrics
	Transition OperationMetrics
	ReadByID   OperationMetrics
	ListByDay  OperationMetrics
	SlotList   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f transition=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.TransitionRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d professionals with availability", len(dataPool.Professionals))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.5),
		TransitionRatio: getFloat("SIM_TRANSITION_RATIO", 0.2),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.3),
		PatientLimit:    getInt("SIM_PATIENT_LIMIT", 4000),
		DaysAhead:       getInt("SIM_DAYS_AHEAD", 5),
		PostgresDSN:     baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.TransitionRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.TransitionRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT DISTINCT professional_id FROM availability_rules WHERE active
	`)
	if err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Professionals = append(dataPool.Professionals, id)
	}

	if len(dataPool.Professionals) == 0 {
		return nil, fmt.Errorf("no availability rules found, run the seed first")
	}
	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			if r < s.config.BookingRatio {
				s.doBooking(ctx, rng)
			} else if r < s.config.BookingRatio+s.config.TransitionRatio {
				s.doTransition(ctx, rng)
			} else {
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListByDay(ctx, rng)
				case 2:
					s.doSlotList(ctx, rng)
				}
			}
		}
	}
}

// randomSlot picks an agenda position at most workers will also aim
// for, so slot_taken conflicts actually happen.
func (s *Simulator) randomSlot(rng *rand.Rand) (professionalID int64, date string, start string) {
	professionalID = s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
	day := time.Now().AddDate(0, 0, 1+rng.Intn(s.config.DaysAhead))
	date = day.Format("2006-01-02")
	minute := 8*60 + 15*rng.Intn(32) // 08:00 .. 15:45 on a 15-minute grid
	start = fmt.Sprintf("%02d:%02d", minute/60, minute%60)
	return
}

func (s *Simulator) newRequest(ctx context.Context, method, url string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, _ := http.NewRequestWithContext(ctx, method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Simulate reception-desk traffic: staff bookings skip the
	// patient-facing lead-time rule, which would otherwise reject
	// every same-week booking.
	req.Header.Set("X-Actor-Id", "1")
	req.Header.Set("X-Actor-Name", "simulator")
	req.Header.Set("X-Actor-Role", "staff")
	return req
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	professionalID, date, start := s.randomSlot(rng)
	patientID := int64(1 + rng.Intn(s.config.PatientLimit))

	body, _ := json.Marshal(map[string]any{
		"professional_id": professionalID,
		"patient_id":      patientID,
		"place_id":        1,
		"date":            date,
		"start":           start,
	})

	begin := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, "POST", s.config.APIBaseURL+"/appointments", body))
	latency := time.Since(begin)

	statusCode := 0
	if err == nil {
		defer resp.Body.Close()
		statusCode = resp.StatusCode

		if statusCode == http.StatusCreated {
			var apptResp struct {
				ID int64 `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &apptResp) == nil && apptResp.ID != 0 {
				s.pool.AddAppointment(apptResp.ID)
			}
		}
	}

	s.metrics.Booking.Record(latency, statusCode, err)
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment()
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]string{"status": "accepted"})

	begin := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, "POST",
		fmt.Sprintf("%s/appointments/%d/status", s.config.APIBaseURL, apptID), body))
	latency := time.Since(begin)

	statusCode := 0
	if err == nil {
		defer resp.Body.Close()
		statusCode = resp.StatusCode
	}

	s.metrics.Transition.Record(latency, statusCode, err)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment()
	if !ok {
		return
	}

	begin := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, "GET",
		fmt.Sprintf("%s/appointments/%d", s.config.APIBaseURL, apptID), nil))
	latency := time.Since(begin)

	statusCode := 0
	if err == nil {
		defer resp.Body.Close()
		statusCode = resp.StatusCode
	}

	s.metrics.ReadByID.Record(latency, statusCode, err)
}

func (s *Simulator) doListByDay(ctx context.Context, rng *rand.Rand) {
	professionalID, date, _ := s.randomSlot(rng)

	begin := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, "GET",
		fmt.Sprintf("%s/appointments?professional_id=%d&date=%s&limit=50", s.config.APIBaseURL, professionalID, date), nil))
	latency := time.Since(begin)

	statusCode := 0
	if err == nil {
		defer resp.Body.Close()
		statusCode = resp.StatusCode
	}

	s.metrics.ListByDay.Record(latency, statusCode, err)
}

func (s *Simulator) doSlotList(ctx context.Context, rng *rand.Rand) {
	professionalID, date, _ := s.randomSlot(rng)

	begin := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, "GET",
		fmt.Sprintf("%s/schedule/slots?professional_id=%d&date=%s", s.config.APIBaseURL, professionalID, date), nil))
	latency := time.Since(begin)

	statusCode := 0
	if err == nil {
		defer resp.Body.Close()
		statusCode = resp.StatusCode
	}

	s.metrics.SlotList.Record(latency, statusCode, err)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Transition", &s.metrics.Transition)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Day", &s.metrics.ListByDay)
	printOperationReport("Slot List", &s.metrics.SlotList)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	rejected := atomic.LoadInt64(&om.Rejected)
	failures := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if failures > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failures, float64(failures)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
