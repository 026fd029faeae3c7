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
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/logging"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
)

type DataPool struct {
	Patients []int64
	Dates    []string
	Slots    []schedule.Slot
	mu       sync.RWMutex
	shifts   []int64
}

func (dp *DataPool) AddShift(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.shifts = append(dp.shifts, id)
}

func (dp *DataPool) GetRandomShift(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.shifts) == 0 {
		return 0, false
	}
	return dp.shifts[rng.Intn(len(dp.shifts))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
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
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[len(latencies)*95/100]
	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking OperationMetrics
	Status  OperationMetrics
	Slots   OperationMetrics
	Day     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  *zap.Logger
	runID   string
}

func main() {
	cfg, err := loadConfig(time.Now())
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(config.EnvDev, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking_ratio", cfg.BookingRatio),
		zap.Float64("status_ratio", cfg.StatusRatio),
		zap.Float64("read_ratio", cfg.ReadRatio),
		zap.Int("dates", cfg.Dates),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		runID:  runID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dataPool, err := sim.prepare(ctx)
	if err != nil {
		logger.Fatal("prepare data pool", zap.Error(err))
	}
	sim.pool = dataPool
	logger.Info("data pool prepared",
		zap.Int("patients", len(dataPool.Patients)),
		zap.Int("dates", len(dataPool.Dates)),
	)

	sim.Run()
	sim.PrintReport()
}

// prepare registers fake patients through the API. Few dates and many
// workers keep contention on each date high.
func (s *Simulator) prepare(ctx context.Context) (*DataPool, error) {
	start, _ := schedule.ParseDate(s.config.StartDate)
	dp := &DataPool{Slots: schedule.GenerateDaySlots(schedule.DefaultGranularity)}
	for i := 0; i < s.config.Dates; i++ {
		dp.Dates = append(dp.Dates, schedule.FormatDate(start.AddDate(0, 0, i)))
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	for i := 0; i < s.config.Patients; i++ {
		var p struct {
			ID int64 `json:"id"`
		}
		status, err := s.postJSON(ctx, "/patients", map[string]string{
			"name":     faker.FirstName(),
			"lastname": faker.LastName(),
			"dni":      faker.DigitN(10),
		}, &p)
		if err != nil {
			return nil, err
		}
		if status == http.StatusCreated {
			dp.Patients = append(dp.Patients, p.ID)
		}
	}

	if len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no patients created")
	}
	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("simulation running", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete",
		zap.Int64("bookings", atomic.LoadInt64(&s.metrics.Booking.Total)),
		zap.Int64("booking_conflicts", atomic.LoadInt64(&s.metrics.Booking.Conflict)),
	)
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.StatusRatio:
				s.doStatus(ctx, rng)
			case rng.Intn(2) == 0:
				s.doRead(ctx, &s.metrics.Slots, "/slots?date="+s.randomDate(rng))
			default:
				s.doRead(ctx, &s.metrics.Day, "/shifts?date="+s.randomDate(rng))
			}
		}
	}
}

func (s *Simulator) randomDate(rng *rand.Rand) string {
	return s.pool.Dates[rng.Intn(len(s.pool.Dates))]
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	start := time.Now()

	var created struct {
		ID int64 `json:"id"`
	}
	status, err := s.postJSON(ctx, "/shifts", map[string]any{
		"patient_id": s.pool.Patients[rng.Intn(len(s.pool.Patients))],
		"date":       s.randomDate(rng),
		"start_time": s.pool.Slots[rng.Intn(len(s.pool.Slots))].Value,
		"duration":   15 * (2 + rng.Intn(3)),
	}, &created)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success && created.ID != 0 {
		s.pool.AddShift(created.ID)
	}
	s.metrics.Booking.Record(latency, success, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doStatus(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomShift(rng)
	if !ok {
		return
	}

	body := map[string]any{"status": "confirmed"}
	if rng.Intn(3) == 0 {
		body = map[string]any{"status": "canceled", "reason_incomplete": "simulated cancellation"}
	}

	start := time.Now()
	status, err := s.postJSON(ctx, fmt.Sprintf("/shifts/%d/status", id), body, nil)
	s.metrics.Status.Record(time.Since(start), err == nil && status == http.StatusOK, err == nil && status == http.StatusConflict)
}

func (s *Simulator) doRead(ctx context.Context, om *OperationMetrics, path string) {
	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	s.tag(req)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	om.Record(latency, success, false)
}

func (s *Simulator) postJSON(ctx context.Context, path string, body any, out any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	s.tag(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// tag gives every request its own id under the run id so server logs can be
// filtered per run.
func (s *Simulator) tag(req *http.Request) {
	req.Header.Set("X-Request-ID", s.runID+"/"+uuid.NewString())
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Shifts booked: %d\n", len(s.pool.shifts))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Status change", &s.metrics.Status)
	printOperationReport("Available slots", &s.metrics.Slots)
	printOperationReport("Day view", &s.metrics.Day)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
