package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"labbooking/internal/api"
	"labbooking/internal/approval"
	"labbooking/internal/clock"
	"labbooking/internal/config"
	"labbooking/internal/entities"
	"labbooking/internal/repository"
	"labbooking/internal/service"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	repo := repository.NewBookingRepository(db)
	gate := approval.NewGate(&service.LogEventSink{Log: logger})
	notifier := &service.LogNotifier{Log: logger}
	clk := clock.System{}

	svc := service.NewBookingService(repo, gate, defaultPolicy(), notifier, clk, logger,
		cfg.Horizon(), cfg.MaxAlternatives, cfg.WaitlistTTL)
	jobs := service.NewJobService(repo, gate, clk, logger)

	bookingHandler := api.NewBookingHandler(svc)
	approvalHandler := api.NewApprovalHandler(svc)
	waitlistHandler := api.NewWaitlistHandler(svc)

	r := mux.NewRouter()
	r.HandleFunc("/api/availability", bookingHandler.CheckAvailability).Methods("POST")
	r.HandleFunc("/api/bookings", bookingHandler.CreateBooking).Methods("POST")
	r.HandleFunc("/api/reservations/{id}", bookingHandler.GetReservation).Methods("GET")
	r.HandleFunc("/api/reservations/{id}", bookingHandler.CancelReservation).Methods("DELETE")
	r.HandleFunc("/api/reservations/{id}/approve", approvalHandler.Approve).Methods("POST")
	r.HandleFunc("/api/reservations/{id}/reject", approvalHandler.Reject).Methods("POST")
	r.HandleFunc("/api/waitlist", waitlistHandler.Join).Methods("POST")
	r.HandleFunc("/api/resources", bookingHandler.ListResources).Methods("GET")
	r.HandleFunc("/api/resources/{resource_id}/waitlist", waitlistHandler.List).Methods("GET")

	c := cron.New()
	if _, err := c.AddFunc(cfg.CompletionCron, func() {
		if err := jobs.CompleteFinishedReservations(context.Background()); err != nil {
			logger.Error("completion job failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("Failed to schedule completion job: %v", err)
	}
	if _, err := c.AddFunc(cfg.ExpiryCron, func() {
		if err := jobs.ExpireWaitlistEntries(context.Background()); err != nil {
			logger.Error("expiry job failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatalf("Failed to schedule expiry job: %v", err)
	}
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)

	logger.Info("server running", zap.String("port", cfg.Port))
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handlers.LoggingHandler(os.Stdout, corsHandler)))
}

// defaultPolicy auto-confirms unless REQUIRE_APPROVAL is set, in which case
// bookings go to the approvers listed in APPROVERS. Real deployments plug in
// their own policy.
func defaultPolicy() approval.Policy {
	require := os.Getenv("REQUIRE_APPROVAL") == "true"
	approvers := strings.Split(os.Getenv("APPROVERS"), ",")
	return approval.PolicyFunc(func(request entities.BookingRequest) approval.Decision {
		if !require {
			return approval.Decision{AutoConfirm: true}
		}
		return approval.Decision{Approvers: approvers}
	})
}
