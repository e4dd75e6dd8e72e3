// README: Smoke cases for the parcel API; includes HTTP, DB, Redis, race and throughput checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"masar/internal/infra"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg    Config
	httpc  *http.Client
	db     *pgxpool.Pool
	redis  *redis.Client
	tokens *infra.JWTVerifier
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
	if cfg.JWTSecret != "" {
		r.tokens = infra.NewJWTVerifier([]byte(cfg.JWTSecret))
	}
	return r
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

var (
	muscat = map[string]float64{"lat": 23.5880, "lng": 58.3829}
	seeb   = map[string]float64{"lat": 23.6700, "lng": 58.1900}
)

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	quote := map[string]any{"pickup": muscat, "delivery": seeb, "weight_kg": 2}
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusFail, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: StatusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass}
			},
		},

		httpCase("API: health", http.MethodGet, base+"/health", "", nil, http.StatusOK),
		httpCase("API: metrics exposed", http.MethodGet, base+"/metrics", "", nil, http.StatusOK),

		httpCase("Quote: covered route", http.MethodPost, base+"/api/quote", "", quote, http.StatusOK),
		httpCase("Quote: missing fields -> 400", http.MethodPost, base+"/api/quote", "", map[string]any{}, http.StatusBadRequest),
		httpCase("Quote: uncovered weight -> 422", http.MethodPost, base+"/api/quote", "",
			map[string]any{"pickup": muscat, "delivery": seeb, "weight_kg": 100000}, http.StatusUnprocessableEntity),

		httpCase("Track: unknown number -> 404", http.MethodGet, base+"/api/track/ZZZZZZZZZZ", "", nil, http.StatusNotFound),
		httpCase("Auth: parcels without token -> 401", http.MethodGet, base+"/api/parcels", "", nil, http.StatusUnauthorized),
		httpCase("Auth: admin stats without token -> 401", http.MethodGet, base+"/api/admin/stats", "", nil, http.StatusUnauthorized),

		{
			Name: "Concurrency: many drivers accept the same parcel",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentAccept(ctx, r)
			},
		},
		{
			Name: "Perf: quote throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/quote", quote)
			},
		},
	}
}

func httpCase(name, method, url, token string, body any, want ...int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, _, err := r.call(ctx, method, url, token, body)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			res := Result{Latency: time.Since(start), Note: fmt.Sprintf("status=%d", status)}
			if contains(want, status) {
				res.Status = StatusPass
			} else {
				res.Status = StatusFail
			}
			return res
		},
	}
}

func (r *Runner) call(ctx context.Context, method, url, token string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

// concurrentAccept creates one parcel and lets every worker accept it as a
// different driver. Exactly one may win.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	if r.tokens == nil {
		return Result{Status: StatusSkip, Note: "jwt-secret not set"}
	}
	shipper, err := r.tokens.Issue("bench-shipper", "shipper", time.Hour)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	status, body, err := r.call(ctx, http.MethodPost, r.cfg.BaseURL+"/api/parcels", shipper, map[string]any{
		"description":    "bench parcel",
		"weight_kg":      1,
		"pickup":         map[string]any{"city": "Muscat", "point": muscat},
		"delivery":       map[string]any{"city": "Seeb", "point": seeb},
		"receiver_name":  "Bench",
		"receiver_phone": "+96890000000",
	})
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status != http.StatusCreated {
		return Result{Status: StatusFail, Note: fmt.Sprintf("create status=%d", status)}
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}

	url := r.cfg.BaseURL + "/api/parcels/" + created.ID + "/accept"
	var mu sync.Mutex
	counts := map[int]int{}
	wg := sync.WaitGroup{}
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := r.tokens.Issue(fmt.Sprintf("bench-driver-%d", i), "driver", time.Hour)
			if err != nil {
				return
			}
			status, _, err := r.call(ctx, http.MethodPost, url, token, nil)
			if err != nil {
				return
			}
			mu.Lock()
			counts[status]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if counts[http.StatusPaymentRequired] == r.cfg.Concurrency {
		return Result{Status: StatusSkip, Note: "online payments enabled; parcel is unpaid"}
	}
	if counts[http.StatusOK] == 1 {
		return Result{Status: StatusPass, Note: fmt.Sprintf("statuses=%v", counts)}
	}
	return Result{Status: StatusFail, Note: fmt.Sprintf("statuses=%v", counts)}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.call(ctx, http.MethodPost, url, "", payload)
				mu.Lock()
				if err != nil || status >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := createTable.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
