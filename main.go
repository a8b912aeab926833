package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"phishguard/ai"
	"phishguard/intel"
	"phishguard/metrics"
	"phishguard/resolve"
	"phishguard/scan"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	policy, err := scan.LoadPolicyFromEnv()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	if err := scan.LoadBrandDB(os.Getenv("BRAND_DB")); err != nil {
		log.Fatalf("brand db: %v", err)
	}

	pipeline := scan.NewPipeline(policy)
	pipeline.Resolver = resolve.New(resolve.NewHTTPProbe(), resolve.Config{
		MaxHops:     policy.ResolverMaxHops,
		TotalBudget: policy.ResolverTotalBudget(),
		HopTimeout:  policy.ResolverHopTimeout(),
		Shorteners:  scan.ShortenerHosts(),
	})

	if classifier, err := ai.NewClassifier(); err != nil {
		log.Printf("[Arbiter] not configured, verdicts will be local-only: %v", err)
	} else {
		pipeline.Classifier = classifier
	}

	if os.Getenv("INTEL_ENABLED") == "true" {
		pipeline.Intel = intel.NewCollector(policy.IntelTimeout())
	}

	server := scan.NewServer(pipeline)

	mux := http.NewServeMux()
	mux.HandleFunc("/check/email", server.HandleEmail)
	mux.HandleFunc("/check/url", server.HandleURL)
	mux.HandleFunc("/health", server.HandleHealth)
	mux.Handle("/metrics", metrics.Handler())

	log.Printf("✅ phishguard service listening on :%s\n", port)
	log.Println("📍 Endpoints:")
	log.Println("   POST /check/email  - Email trust evaluation")
	log.Println("   POST /check/url    - URL trust evaluation")
	log.Println("   GET  /health       - Health probe")
	log.Println("   GET  /metrics      - Prometheus metrics")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
