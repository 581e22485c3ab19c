package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"taskhub/config"
	"taskhub/handlers"
	"taskhub/logging"
	"taskhub/repositories"
	"taskhub/repositories/inmemory"
	"taskhub/services"
	"taskhub/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type stores struct {
	users    services.UserRepository
	projects services.ProjectRepository
	tasks    services.TaskRepository
	tx       services.TxRunner
	health   func(ctx context.Context) error
	close    func(ctx context.Context)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_INVALID, Description: %v", err)
	}
	logging.InitLogger(cfg.LogFile, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := openStores(ctx, cfg)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Password: cfg.EmailPassword,
	})

	userService := services.NewUserService(st.users, utils.NewPasswordHasher(cfg.BcryptCost), tokens, mailer, cfg.ResetTokenTTL)
	userService.SetAdminSignup(cfg.AllowAdminSignup)
	if cfg.AllowAdminSignup {
		logging.Logger.Warnf("Event ID: ADMIN_SIGNUP_OPEN, Description: Anyone can register an admin account, set ALLOW_ADMIN_SIGNUP=false to restrict it")
	}
	projectService := services.NewProjectService(st.projects)
	taskService := services.NewTaskService(st.tasks, st.projects, st.users, st.tx)

	if t, ok := st.tx.(interface{ Transactional() bool }); ok && !t.Transactional() {
		logging.Logger.Warnf("Event ID: TRANSACTIONS_DISABLED, Description: Task and project writes are not atomic, relying on the reconciler")
	}
	go services.NewReconciler(st.tasks, st.projects).Run(ctx, cfg.ReconcileInterval)

	router, err := handlers.NewRouter(handlers.RouterConfig{
		Users:         userService,
		Projects:      projectService,
		Tasks:         taskService,
		Tokens:        tokens,
		CORSOrigin:    cfg.CORSOrigin,
		GraphiQL:      cfg.GraphiQL,
		RateLimit:     cfg.RateLimit,
		AuthRateLimit: cfg.AuthRateLimit,
		Development:   cfg.Development,
		Health:        st.health,
	})
	if err != nil {
		logging.Logger.Fatalf("Event ID: ROUTER_INIT_FAILED, Description: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START, Description: Server is running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FAILED, Description: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Logger.Infof("Event ID: SERVER_STOP, Description: Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SHUTDOWN_FAILED, Description: %v", err)
	}
	st.close(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config) *stores {
	if cfg.Store == "memory" {
		logging.Logger.Warnf("Event ID: MEMORY_STORE, Description: Using the in-memory store, data is lost on restart")
		storage := inmemory.NewStorage()
		return &stores{
			users:    storage.Users,
			projects: storage.Projects,
			tasks:    storage.Tasks,
			tx:       inmemory.NoTx{},
			close:    func(context.Context) {},
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI()))
	if err != nil {
		logging.Logger.Fatalf("Event ID: MONGO_CONNECT_FAILED, Description: %v", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logging.Logger.Fatalf("Event ID: MONGO_PING_FAILED, Description: %v", err)
	}
	logging.Logger.Infof("Event ID: MONGO_CONNECTED, Description: Connected to MongoDB database %s", cfg.DBName)

	db := client.Database(cfg.DBName)
	if err := repositories.EnsureIndexes(connectCtx, db); err != nil {
		logging.Logger.Fatalf("Event ID: MONGO_INDEX_FAILED, Description: %v", err)
	}

	return &stores{
		users:    repositories.NewUserRepository(db, cfg.DBTimeout),
		projects: repositories.NewProjectRepository(db, cfg.DBTimeout),
		tasks:    repositories.NewTaskRepository(db, cfg.DBTimeout),
		tx:       repositories.NewTxRunner(client, cfg.MongoTransactions),
		health: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				logging.Logger.Errorf("Event ID: MONGO_DISCONNECT_FAILED, Description: %v", err)
			}
		},
	}
}
