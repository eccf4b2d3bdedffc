package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Taka1304/sigza/internal/api"
	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/app/worker"
	"github.com/Taka1304/sigza/internal/common/security"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/config"
	"github.com/Taka1304/sigza/internal/platform/database"
	"github.com/Taka1304/sigza/internal/platform/logger"
	"github.com/Taka1304/sigza/internal/platform/queue"
)

func main() {
	config.Load()
	logger.Init()
	defer logger.Sync()
	log := logger.Named("main")

	security.InitJWT()

	database.Connect()
	defer database.Close()
	log.Info("database connected")

	queue.ConnectRedis()
	defer queue.CloseRedis()
	log.Info("redis connected")

	txm := database.NewTxManager(database.DB)

	userRepo := repository.NewPgUserRepository(database.DB)
	orgRepo := repository.NewPgOrganizationRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	rankingRepo := repository.NewPgRankingRepository(database.DB)
	skillRepo := repository.NewPgSkillRepository(database.DB)
	auxRepo := repository.NewPgAuxiliaryRepository(database.DB)

	authService := service.NewAuthService(userRepo)
	orgService := service.NewOrganizationService(orgRepo, txm)
	problemService := service.NewProblemService(problemRepo, orgRepo, txm)
	dispatcher := service.NewRedisJudgeDispatcher(queue.RDB)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, orgRepo, auxRepo, dispatcher, txm)
	rankingService := service.NewRankingService(rankingRepo, submissionRepo)
	skillService := service.NewSkillService(skillRepo)
	auxService := service.NewAuxiliaryService(auxRepo, problemRepo, txm)

	rankingWorker := worker.NewRankingWorker(queue.RDB, rankingService, submissionRepo)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go rankingWorker.Start(workerCtx)

	router := api.NewRouter(
		authService,
		orgService,
		problemService,
		submissionService,
		rankingService,
		skillService,
		auxService,
	)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infow("server starting", "port", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("could not listen", "port", config.AppConfig.APIPort, "error", err)
		}
	}()

	<-stop

	log.Info("shutting down")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server shutdown failed", "error", err)
	}

	log.Info("server and worker stopped")
}
