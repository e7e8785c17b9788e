// README: Bench cases for the quote API; covers environment, quote flow, availability, pricing and load.
package main

import (
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

	"carhire/internal/modules/pricing"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
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
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
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

// calcPayload is a two-day July self-drive rental across two branches.
func calcPayload() map[string]any {
	return map[string]any{
		"start":            "2026-07-10T10:00:00+03:00",
		"end":              "2026-07-12T10:00:00+03:00",
		"variant":          "self_drive",
		"pickup_location":  "JKIA",
		"dropoff_location": "Westlands",
	}
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "FAIL", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: "SKIP", Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS", Note: fmt.Sprintf("%d tables", len(tables))}
			},
		},
		{
			Name: "Data: pricing config seeded",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				var n int
				if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM pricing_config WHERE id = 1").Scan(&n); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if n != 1 {
					return Result{Status: "FAIL", Note: "pricing_config row missing"}
				}
				return Result{Status: "PASS"}
			},
		},
		r.call("API: health", http.MethodGet, base+"/health", nil, false, http.StatusOK),
		r.call("API: calculate without token -> 401", http.MethodPost, base+"/api/quotes/calculate", calcPayload(), false, http.StatusUnauthorized),
		r.call("Quote: calculate (valid)", http.MethodPost, base+"/api/quotes/calculate", calcPayload(), true, http.StatusOK),
		r.call("Quote: calculate end before start -> 400", http.MethodPost, base+"/api/quotes/calculate", withField(calcPayload(), "end", "2026-07-09T10:00:00+03:00"), true, http.StatusBadRequest),
		r.call("Quote: calculate unknown variant -> 400", http.MethodPost, base+"/api/quotes/calculate", withField(calcPayload(), "variant", "boat"), true, http.StatusBadRequest),
		r.call("Quote: calculate unknown category -> 400", http.MethodPost, base+"/api/quotes/calculate", withField(calcPayload(), "category_ids", []string{"limo"}), true, http.StatusBadRequest),
		{
			Name: "Cache: snapshot stored after calculate",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "FAIL", Note: "redis not configured"}
				}
				n, err := r.redis.Exists(ctx, pricing.SnapshotKey).Result()
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if n == 0 {
					return Result{Status: "FAIL", Note: "no " + pricing.SnapshotKey + " key"}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Quote: save, get and move through lifecycle",
			Run:  quoteLifecycle,
		},
		{
			Name: "Concurrency: one winner per status change",
			Run:  concurrentTransition,
		},
		r.call("Availability: suv", http.MethodGet, base+"/api/availability?category_id=suv&start=2026-07-10T10:00:00Z&end=2026-07-12T10:00:00Z", nil, true, http.StatusOK),
		r.call("Pricing: read tables", http.MethodGet, base+"/api/pricing", nil, true, http.StatusOK),
		manualCase("Error: Redis down -> calculate still served", "stop redis and rerun the calculate case"),
		manualCase("Error: DB down -> save returns 503", "stop postgres and rerun the lifecycle case"),
		{
			Name: "Perf: calculate throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/quotes/calculate", calcPayload())
			},
		},
	}
}

func withField(m map[string]any, k string, v any) map[string]any {
	m[k] = v
	return m
}

// do sends one JSON request and decodes a JSON response into out when non-nil.
func (r *Runner) do(ctx context.Context, method, url string, body any, auth bool, out any) (int, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, 0, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth && r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, time.Since(start), err
}

func (r *Runner) call(name, method, url string, body any, auth bool, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			if auth && r.cfg.Token == "" {
				return Result{Status: "SKIP", Note: "no -token"}
			}
			status, latency, err := r.do(ctx, method, url, body, auth, nil)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			if status != want {
				return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d want=%d", status, want)}
			}
			return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

type quoteResp struct {
	Quote struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"quote"`
}

// saveQuote calculates and saves a quote for the first category returned.
func saveQuote(ctx context.Context, r *Runner) (string, error) {
	var calc struct {
		Results []map[string]any `json:"results"`
	}
	status, _, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/quotes/calculate", calcPayload(), true, &calc)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || len(calc.Results) == 0 {
		return "", fmt.Errorf("calculate status=%d results=%d", status, len(calc.Results))
	}
	var saved quoteResp
	status, _, err = r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/quotes", map[string]any{
		"inputs":               calcPayload(),
		"results":              calc.Results,
		"selected_category_id": calc.Results[0]["category_id"],
		"customer_name":        "Bench Customer",
	}, true, &saved)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated || saved.Quote.ID == "" {
		return "", fmt.Errorf("save status=%d", status)
	}
	return saved.Quote.ID, nil
}

func quoteLifecycle(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: "SKIP", Note: "no -token"}
	}
	start := time.Now()
	id, err := saveQuote(ctx, r)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	base := r.cfg.BaseURL + "/api/quotes/" + id
	var got quoteResp
	if status, _, err := r.do(ctx, http.MethodGet, base, nil, true, &got); err != nil || status != http.StatusOK || got.Quote.Status != "draft" {
		return Result{Status: "FAIL", Note: fmt.Sprintf("get status=%d quote=%s err=%v", status, got.Quote.Status, err)}
	}
	steps := []struct {
		to   string
		want int
	}{
		{"accepted", http.StatusConflict},
		{"sent", http.StatusOK},
		{"accepted", http.StatusOK},
		{"converted", http.StatusOK},
		{"rejected", http.StatusConflict},
	}
	for _, s := range steps {
		status, _, err := r.do(ctx, http.MethodPost, base+"/status", map[string]any{"status": s.to}, true, nil)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if status != s.want {
			return Result{Status: "FAIL", Note: fmt.Sprintf("-> %s status=%d want=%d", s.to, status, s.want)}
		}
	}
	return Result{Status: "PASS", Latency: time.Since(start)}
}

func concurrentTransition(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: "SKIP", Note: "no -token"}
	}
	id, err := saveQuote(ctx, r)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	url := r.cfg.BaseURL + "/api/quotes/" + id + "/status"

	var wg sync.WaitGroup
	var mu sync.Mutex
	succ, conflict := 0, 0
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, url, map[string]any{"status": "sent"}, true, nil)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflict++
			}
		}()
	}
	wg.Wait()

	if succ == 1 {
		return Result{Status: "PASS", Note: fmt.Sprintf("success=1 conflict=%d", conflict)}
	}
	return Result{Status: "FAIL", Note: fmt.Sprintf("success=%d conflict=%d", succ, conflict)}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: "SKIP", Note: note}
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	if r.cfg.Token == "" {
		return Result{Status: "SKIP", Note: "no -token"}
	}
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount, non2xx int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.do(ctx, http.MethodPost, url, payload, true, nil)
				mu.Lock()
				switch {
				case err != nil:
					errCount++
				case status != http.StatusOK:
					non2xx++
				default:
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d non200=%d", rps, errCount, non2xx)}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
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
