package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/mailstore"
)

type account struct {
	id       string
	email    string
	received int64
	sent     int64
}

type delivery struct {
	messageID   string
	recipientID string
}

func main() {
	var (
		users       = flag.Int("users", 50, "number of accounts to seed")
		messages    = flag.Int("messages", 2000, "messages to send")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		duplicates  = flag.Int("duplicates", 3, "concurrent mark-read calls per delivery")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, GOMAIL_REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gmload", "mail store key prefix")
	)
	flag.Parse()

	if *users < 2 || *messages <= 0 || *concurrency <= 0 || *duplicates <= 0 {
		fmt.Fprintln(os.Stderr, "users must be >= 2; messages, concurrency and duplicates must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("GOMAIL_REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goMail.DefaultConfig()
	cfg.Environment = goMail.EnvDevelopment
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.MaxSignupsPerIP = 0
	cfg.Audit.Enabled = false
	cfg.Mail.RedisPrefix = *prefix

	engine, err := goMail.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	run := time.Now().UnixNano()
	accounts := make([]*account, *users)
	fmt.Printf("seeding %d accounts...\n", *users)
	startSeed := time.Now()
	for i := range accounts {
		email := fmt.Sprintf("load-%d-%d@example.com", run, i)
		u, err := engine.Signup(ctx, goMail.SignupInput{
			FirstName: "Load",
			LastName:  fmt.Sprintf("User%d", i),
			Email:     email,
			Password:  "load-test-password",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "signup failed: %v\n", err)
			os.Exit(1)
		}
		accounts[i] = &account{id: u.ID, email: email}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	deliveries, sendStats := runSendPhase(ctx, engine, accounts, *messages, *concurrency)
	markStats := runMarkReadPhase(ctx, engine, deliveries, *duplicates, *concurrency)

	fmt.Println("---- results ----")
	printStats("send", sendStats)
	printStats("mark-read", markStats)

	store := mailstore.New(client, *prefix)
	if problems := verify(ctx, engine, store, accounts); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, p)
		}
		fmt.Fprintf(os.Stderr, "FAIL: %d mailbox inconsistencies\n", len(problems))
		os.Exit(1)
	}
	fmt.Printf("verified %d mailboxes: no relation duplicated or lost\n", len(accounts))
}

func runSendPhase(ctx context.Context, engine *goMail.Engine, accounts []*account, ops, concurrency int) ([]delivery, phaseStats) {
	var (
		wg         sync.WaitGroup
		cursor     int64
		failures   int64
		latencies  = make([]time.Duration, 0, ops)
		deliveries = make([]delivery, 0, ops*2)
		mu         sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}

				sender := accounts[r.Intn(len(accounts))]
				recipients := pickRecipients(r, accounts, sender, 1+r.Intn(3))
				to := make([]string, 0, len(recipients))
				for _, a := range recipients {
					to = append(to, a.email)
				}

				t0 := time.Now()
				res, err := engine.Send(ctx, sender.id, goMail.Compose{
					To:      to,
					Subject: fmt.Sprintf("load %d", i),
					Message: "concurrent delivery check",
				})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					atomic.AddInt64(&sender.sent, 1)
					for _, a := range recipients {
						atomic.AddInt64(&a.received, 1)
					}
				}

				mu.Lock()
				latencies = append(latencies, d)
				if err == nil {
					for _, a := range recipients {
						deliveries = append(deliveries, delivery{messageID: res.Message.ID, recipientID: a.id})
					}
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return deliveries, computeStats(time.Since(start), latencies, failures)
}

// runMarkReadPhase fires dup concurrent MarkRead calls for every delivery.
// Every call must succeed, and only one may change the mailbox.
func runMarkReadPhase(ctx context.Context, engine *goMail.Engine, deliveries []delivery, dup, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		total     = len(deliveries) * dup
		latencies = make([]time.Duration, 0, total)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= total {
					return
				}
				d := deliveries[i/dup]

				t0 := time.Now()
				err := engine.MarkRead(ctx, d.recipientID, d.messageID)
				elapsed := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func verify(ctx context.Context, engine *goMail.Engine, store *mailstore.Store, accounts []*account) []string {
	var problems []string
	for _, a := range accounts {
		view, err := engine.Mailbox(ctx, a.id)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: mailbox: %v", a.email, err))
			continue
		}
		if len(view.Inbox) != 0 {
			problems = append(problems, fmt.Sprintf("%s: %d messages still unread", a.email, len(view.Inbox)))
		}
		if int64(len(view.Opened)) != a.received {
			problems = append(problems, fmt.Sprintf("%s: opened=%d want %d", a.email, len(view.Opened), a.received))
		}
		if int64(len(view.Sent)) != a.sent {
			problems = append(problems, fmt.Sprintf("%s: sent=%d want %d", a.email, len(view.Sent), a.sent))
		}

		relations, indexed, err := store.Counts(ctx, a.id)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: counts: %v", a.email, err))
			continue
		}
		if want := a.received + a.sent; relations != want || indexed != want {
			problems = append(problems, fmt.Sprintf("%s: relations=%d indexed=%d want %d", a.email, relations, indexed, want))
		}
	}
	return problems
}

func pickRecipients(r *rand.Rand, accounts []*account, sender *account, n int) []*account {
	out := make([]*account, 0, n)
	seen := map[*account]bool{sender: true}
	for len(out) < n && len(seen) < len(accounts) {
		a := accounts[r.Intn(len(accounts))]
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
