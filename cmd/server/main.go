package main

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alvarodelaflor/loan/pkg/configpkg"
	_ "github.com/lib/pq"

	"github.com/alvarodelaflor/loan/internal/loancache"
	"github.com/alvarodelaflor/loan/internal/loandelivery"
	"github.com/alvarodelaflor/loan/internal/loanrepo"
	"github.com/alvarodelaflor/loan/internal/loanservice"
	"github.com/alvarodelaflor/loan/internal/middleware"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.GetLogger(config)

	conn, err := sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to db")
	}

	cache := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
	})

	server, err := createServer(conn, cache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	err = server.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}

func createServer(conn *sql.DB, cache *redis.Client, logger zerolog.Logger) (*gin.Engine, error) {

	loanRepo := loanrepo.NewRepoPGS(conn)
	cachedRepo := loancache.NewRepo(loanRepo, loancache.NewRedisKV(cache))

	loanService := loanservice.New(cachedRepo)
	loanHandler := loandelivery.NewHandler(loanService)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()

	server.Use(middleware.RequestLogger(logger))
	server.Use(gin.Recovery())

	v1 := server.Group("/api/v1")

	v1.POST("/loans", loanHandler.Create)
	v1.GET("/loans", loanHandler.List)
	v1.GET("/loans/:id", loanHandler.Get)
	v1.GET("/loans/:id/history", loanHandler.History)
	v1.PATCH("/loans/:id/status", loanHandler.UpdateStatus)
	v1.GET("/loans/search/identity/:identity", loanHandler.ListByIdentity)
	v1.GET("/loans/search/criteria", loanHandler.Search)
	v1.DELETE("/loans/:id", loanHandler.Delete)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("currency", loandelivery.ValidCurrency); err != nil {
			return nil, errors.New("cannot register currency validator")
		}
		if err := v.RegisterValidation("identity", loandelivery.ValidIdentity); err != nil {
			return nil, errors.New("cannot register identity validator")
		}
	}

	return server, nil
}
