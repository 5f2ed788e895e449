// Command storegate-loadtest measures edge gate decisions and Redis session
// store round trips in process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/jwt"
	"github.com/MrEthical07/storegate/middleware"
	"github.com/MrEthical07/storegate/permission"
	"github.com/MrEthical07/storegate/session"
)

var paths = []string{
	"/dashboard",
	"/profile",
	"/sales",
	"/sales/new?from=pos",
	"/products/catalog/42",
	"/products/7/edit",
	"/inventory/adjust",
	"/employees",
	"/reports/daily",
	"/settings/tax",
	"/sign-in",
	"/static/app.js",
}

type credential struct {
	role  permission.Role
	token string
}

func main() {
	var (
		tokens      = flag.Int("tokens", 1000, "number of access tokens to issue")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (gate + store)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sg", "session key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg := storegate.DefaultConfig()
	verifier, err := jwt.NewVerifier(jwt.Config{Secret: []byte(cfg.JWT.Secret), TTL: time.Hour})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verifier: %v\n", err)
		os.Exit(1)
	}
	matrix := permission.DefaultMatrix()
	gate, err := middleware.NewGate(cfg, middleware.GateDeps{
		Verifier: verifier,
		Matrix:   matrix,
		Metrics:  storegate.NewMetrics(cfg.Metrics),
		Logger:   zap.NewNop(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "gate: %v\n", err)
		os.Exit(1)
	}
	guard := middleware.Guard(gate)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	creds := make([]credential, *tokens)
	fmt.Printf("issuing %d tokens...\n", *tokens)
	for i := range creds {
		role := permission.Roles[i%len(permission.Roles)]
		tok, err := verifier.Issue(jwt.Claims{UID: fmt.Sprintf("u%d", i), Email: fmt.Sprintf("u%d@store.test", i), Role: string(role)})
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		creds[i] = credential{role: role, token: tok}
	}

	client, cleanup := openRedis(*redisAddr)
	defer cleanup()

	gateStats := runGatePhase(guard, matrix, creds, *ops, *concurrency)
	storeStats := runStorePhase(ctx, client, *prefix, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("gate", gateStats)
	printStats("store", storeStats)
}

func openRedis(addr string) (redis.UniversalClient, func()) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }
}

// runGatePhase sends random role/path pairs through the gate. A response
// that disagrees with the matrix counts as a failure.
func runGatePhase(guard http.Handler, m *permission.Matrix, creds []credential, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) bool {
		c := creds[r.Intn(len(creds))]
		p := paths[r.Intn(len(paths))]

		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: c.token})
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)

		want := permission.Decide(m, permission.Authenticated(string(c.role)), p).Action == permission.ActionAllow
		return (rec.Code == http.StatusOK) == want
	})
}

// runStorePhase saves and loads records, one namespace per worker.
func runStorePhase(ctx context.Context, client redis.UniversalClient, prefix string, ops, concurrency int) phaseStats {
	stores := make([]*session.RedisStore, concurrency)
	for i := range stores {
		stores[i] = session.NewRedisStore(client, prefix, fmt.Sprintf("load-%d", i), time.Hour)
	}
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand, worker int) bool {
		s := stores[worker]
		if r.Intn(4) == 0 {
			rec := session.Record{
				AccessToken:  fmt.Sprintf("A%d", r.Int63()),
				RefreshToken: fmt.Sprintf("R%d", r.Int63()),
				User:         []byte(`{"id":"u1","email":"u1@store.test","role":"CASHIER"}`),
			}
			return s.Save(ctx, rec) == nil
		}
		_, err := s.Load(ctx)
		return err == nil || errors.Is(err, session.ErrNotFound)
	})
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, worker int) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r, worker)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
