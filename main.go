package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventura/auth"
	"eventura/catalog"
	"eventura/db"
	"eventura/ledger"
	"eventura/mq"
	"eventura/pass"
	"eventura/pay"
	"eventura/profile"
	"eventura/ratelim"
	"eventura/rdx"
	"eventura/routes"
	"eventura/session"
	"eventura/stripe"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	database, err := db.New(ctx, os.Getenv("MONGO_URI"))
	if err != nil {
		log.Fatalf("❌ MongoDB init failed: %v", err)
	}
	redis, err := rdx.New(ctx, os.Getenv("REDIS_ADDR"))
	if err != nil {
		log.Fatalf("❌ Redis init failed: %v", err)
	}

	// Service wiring: one handle per concern, constructed here, passed down.
	sessions := session.NewBroker()
	emitter := mq.NewEmitter(redis)
	liveHub := catalog.NewHub()
	rateLimiter := ratelim.NewRateLimiter()

	ledgerStore := ledger.NewStore(database.Users)
	payments := pay.NewMongoPayments(database.Payments)
	processor := stripe.NewClient(os.Getenv("STRIPE_SECRET_KEY"))
	orchestrator := pay.NewOrchestrator(processor, payments, ledgerStore)

	authHandler := auth.NewHandler(database, redis, sessions, auth.NewSMTPMailerFromEnv())
	catalogHandler := catalog.NewHandler(database, redis, liveHub)
	ledgerHandler := ledger.NewHandler(ledgerStore, database, emitter)
	payHandler := pay.NewHandler(orchestrator, database, redis, emitter)
	idempotency := pay.NewIdempotency(database.Idempotency)
	profileHandler := profile.NewHandler(database)
	passHandler := pass.NewHandler(database, ledgerStore)

	// Background workers: live fanout and the payment reconciliation sweep.
	go emitter.StartWorker(ctx, liveHub.HandleEvent)
	go pay.NewReconciler(payments, ledgerStore).Run(ctx)

	router := httprouter.New()
	router.GET("/health", Index)
	routes.AddAuthRoutes(router, authHandler, rateLimiter)
	routes.AddSessionRoutes(router, sessions)
	routes.AddCatalogRoutes(router, catalogHandler, rateLimiter)
	routes.AddLedgerRoutes(router, ledgerHandler, rateLimiter)
	routes.AddPayRoutes(router, payHandler, idempotency, rateLimiter)
	routes.AddProfileRoutes(router, profileHandler, rateLimiter)
	routes.AddPassRoutes(router, passHandler, rateLimiter)
	router.ServeFiles("/static/userpic/*filepath", http.Dir("static/userpic"))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	if err := database.Close(shutdownCtx); err != nil {
		log.Printf("MongoDB disconnect: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
