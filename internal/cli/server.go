package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/solutionspma/godrive-academy/internal/app"
	"github.com/solutionspma/godrive-academy/internal/config"
	"github.com/solutionspma/godrive-academy/internal/domain"
	"github.com/solutionspma/godrive-academy/internal/infra/memory"
	openaigen "github.com/solutionspma/godrive-academy/internal/infra/openai"
	pgstore "github.com/solutionspma/godrive-academy/internal/infra/postgres"
	redisinfra "github.com/solutionspma/godrive-academy/internal/infra/redis"
	transport "github.com/solutionspma/godrive-academy/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the practice test server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var bank memory.BankLoader = memory.NewStaticBank(sampleBanks())
	if pool != nil {
		bank = pgstore.NewQuestionBank(pool)
	}

	var generator memory.Generator
	if cfg.OpenAI.APIKey != "" {
		generator = openaigen.New(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.BaseURL,
			config.TTLDuration(cfg.OpenAI.Timeout, 30*time.Second),
		)
	}

	// Generated sets stay cached for the process lifetime; Redis, when
	// present, adds a shared cache layer with its own TTL in front of
	// bank lookups and generation.
	inner := memory.NewQuestionSource(bank, generator, 0)
	var source app.QuestionSource = inner
	if redisClient != nil {
		bankTTL := config.TTLDuration(cfg.Coach.BankTTL, time.Hour)
		source = redisinfra.NewQuestionCache(redisClient, inner, bankTTL)
	}

	var sessions app.SessionRepository = memory.NewSessionStore()
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	}

	var recorder app.SummaryRecorder = memory.NewSessionLog()
	var profiles app.ProfileDirectory = memory.NewProfileDirectory(nil)
	if pool != nil {
		recorder = pgstore.NewSessionRecorder(pool)
		profiles = pgstore.NewProfileStore(pool)
	}

	service := app.NewCoachService(sessions, source, recorder, profiles)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting practice test service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks seeds a minimal California bank for running without Postgres;
// production loads JSONB banks from the question_banks table.
func sampleBanks() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"CA": {
			RegionCode: "CA",
			Source:     domain.SourceStatic,
			Questions: []domain.Question{
				{
					ID:           "ca-1",
					Prompt:       "What does a solid red traffic light mean?",
					Options:      []string{"Stop until the light turns green", "Slow down and proceed", "Stop only if traffic is coming", "Yield to the right"},
					CorrectIndex: 0,
					Explanation:  "A steady red light requires a complete stop until it turns green.",
				},
				{
					ID:           "ca-2",
					Prompt:       "When must you use headlights during the day?",
					Options:      []string{"Never", "When visibility is under 1000 feet", "Only on highways", "Only in construction zones"},
					CorrectIndex: 1,
					Explanation:  "California requires headlights whenever visibility drops below 1000 feet.",
				},
				{
					ID:           "ca-3",
					Prompt:       "What is the speed limit in a residential area unless posted otherwise?",
					Options:      []string{"35 mph", "30 mph", "25 mph", "20 mph"},
					CorrectIndex: 2,
					Explanation:  "The prima facie limit in residential districts is 25 mph.",
				},
			},
		},
	}
}
