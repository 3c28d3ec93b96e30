package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/config"
	"github.com/atharv3903/tourgraph/internal/db"
	"github.com/atharv3903/tourgraph/internal/logger"
	"github.com/atharv3903/tourgraph/internal/model"
)

type cacheStats struct {
	Graphs struct {
		Gets      int `json:"gets"`
		Hits      int `json:"hits"`
		Puts      int `json:"puts"`
		Evictions int `json:"evictions"`
	} `json:"graphs"`
	Routes int `json:"routes"`
}

type workload struct {
	server      string
	dataset     string
	pois        []string
	edges       []int64
	updateRatio float64
	client      *http.Client
}

func main() {
	config.LoadDotEnv()

	driver := flag.String("driver", envOr("DB_DRIVER", "mysql"), "database driver used to pick route endpoints")
	dsn := flag.String("dsn", os.Getenv("DB_DSN"), "database DSN")
	server := flag.String("server", "http://127.0.0.1:8080", "tourgraph base URL")
	dataset := flag.String("dataset", "vi", "dataset to query")
	clients := flag.Int("clients", 8, "concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	updateRatio := flag.Float64("updates", 0, "fraction of requests that are edge weight updates")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	store, err := db.Open(*driver, *dsn)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	pois, err := store.POIs(ctx, *dataset)
	if err != nil {
		log.Fatal("load pois", zap.Error(err))
	}
	edges, err := store.Edges(ctx, *dataset)
	if err != nil {
		log.Fatal("load edges", zap.Error(err))
	}
	if len(pois) == 0 {
		log.Fatal("dataset has no pois", zap.String("dataset", *dataset))
	}
	log.Info("loaded dataset", zap.Int("pois", len(pois)), zap.Int("edges", len(edges)))

	w := workload{
		server:      *server,
		dataset:     *dataset,
		updateRatio: *updateRatio,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        500,
				MaxIdleConnsPerHost: 500,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 5 * time.Second,
		},
	}
	for _, p := range pois {
		w.pois = append(w.pois, p.ID)
	}
	for _, e := range edges {
		w.edges = append(w.edges, e.ID)
	}

	// clear cache before the run so the hit rates are not cumulative
	if resp, err := w.client.Get(w.server + "/debug/clear_cache"); err != nil {
		log.Fatal("failed to clear cache", zap.Error(err))
	} else {
		resp.Body.Close()
	}

	log.Info("running loadgen", zap.Int("clients", *clients), zap.Duration("duration", *duration))
	res := w.run(*clients, *duration)

	var cs cacheStats
	if resp, err := w.client.Get(w.server + "/debug/cache_stats"); err == nil {
		_ = json.NewDecoder(resp.Body).Decode(&cs)
		resp.Body.Close()
	}

	fmt.Println("\n========== LOADGEN SUMMARY ==========")
	fmt.Printf("Total Requests: %d (updates %d)\n", res.Total, res.Updates)
	fmt.Printf("Errors: %d\n", res.Errors)
	fmt.Printf("Throughput: %.2f req/s\n", res.Throughput)
	if res.Routes > 0 {
		fmt.Printf("RouteCache Hit Rate: %.1f%%\n", float64(res.Hits)/float64(res.Routes)*100)
	}
	if cs.Graphs.Gets > 0 {
		fmt.Printf("GraphCache Hit Rate: %.1f%% (gets=%d, hits=%d, puts=%d, evictions=%d)\n",
			float64(cs.Graphs.Hits)/float64(cs.Graphs.Gets)*100,
			cs.Graphs.Gets, cs.Graphs.Hits, cs.Graphs.Puts, cs.Graphs.Evictions)
	}
	fmt.Printf("Latency avg %.2fms | p50 %.2fms | p95 %.2fms | p99 %.2fms\n",
		res.AvgLatency, res.P50, res.P95, res.P99)
	fmt.Println("=====================================")
}

func (w workload) run(clients int, dur time.Duration) result {
	ctx, cancel := context.WithTimeout(context.Background(), dur)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		latencies []time.Duration
		res       result
	)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for ctx.Err() == nil {
				update := len(w.edges) > 0 && rng.Float64() < w.updateRatio

				start := time.Now()
				var hit bool
				var err error
				if update {
					err = w.update(rng)
				} else {
					hit, err = w.route(rng)
				}
				lat := time.Since(start)

				mu.Lock()
				res.Total++
				switch {
				case err != nil:
					res.Errors++
				case update:
					res.Updates++
					latencies = append(latencies, lat)
				default:
					res.Routes++
					if hit {
						res.Hits++
					}
					latencies = append(latencies, lat)
				}
				mu.Unlock()
			}
		}(time.Now().UnixNano() + int64(i))
	}

	wg.Wait()

	res.Throughput = float64(res.Total) / dur.Seconds()
	res.AvgLatency = average(latencies)
	res.P50, res.P95, res.P99 = percentiles(latencies)
	return res
}

func (w workload) route(rng *rand.Rand) (bool, error) {
	q := url.Values{}
	q.Set("src", w.pois[rng.Intn(len(w.pois))])
	q.Set("dst", w.pois[rng.Intn(len(w.pois))])

	resp, err := w.client.Get(fmt.Sprintf("%s/api/datasets/%s/route?%s", w.server, url.PathEscape(w.dataset), q.Encode()))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("route: status %d", resp.StatusCode)
	}

	var rr model.RouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return false, err
	}
	return rr.CacheHit, nil
}

func (w workload) update(rng *rand.Rand) error {
	body, _ := json.Marshal(map[string]any{
		"edge_id": w.edges[rng.Intn(len(w.edges))],
		"dataset": w.dataset,
		"weight":  10 + rng.Intn(40),
	})

	resp, err := w.client.Post(w.server+"/api/edges/update", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update: status %d", resp.StatusCode)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
