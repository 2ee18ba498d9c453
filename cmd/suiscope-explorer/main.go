package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/ethpandaops/suiscope/handlers"
	"github.com/ethpandaops/suiscope/handlers/api"
	"github.com/ethpandaops/suiscope/handlers/middleware"
	"github.com/ethpandaops/suiscope/metrics"
	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/static"
	"github.com/ethpandaops/suiscope/types"
	"github.com/ethpandaops/suiscope/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logWriter, logger := utils.InitLogger()
	defer logWriter.Dispose()

	logger.WithFields(logrus.Fields{
		"config":  *configPath,
		"version": utils.BuildVersion,
		"release": utils.BuildRelease,
	}).Printf("starting")

	metrics.RegisterBuildInfo(prometheus.DefaultRegisterer, utils.GetExplorerVersion(), cfg.Chain.DisplayName)
	services.InitChainService(ctx, logger)

	err = services.StartQueryCache(logger)
	if err != nil {
		logger.Fatalf("error starting query cache: %v", err)
	}

	if cfg.Frontend.Enabled {
		err = services.StartFrontendCache(logger)
		if err != nil {
			logger.Fatalf("error starting frontend cache service: %v", err)
		}
	}

	if cfg.Metrics.Enabled && !cfg.Metrics.Public {
		err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	err = services.GlobalChainService.StartService()
	if err != nil {
		logger.Fatalf("error starting chain service: %v", err)
	}

	if cfg.RateLimit.Enabled {
		err = services.StartCallRateLimiter(cfg.RateLimit.ProxyCount, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		if err != nil {
			logger.Fatalf("error starting call rate limiter: %v", err)
		}
	}

	var webserver *http.Server
	if cfg.Frontend.Enabled || cfg.Api.Enabled {
		webserver, err = startWebserver(logger, createRouter())
		if err != nil {
			logger.Fatalf("error starting webserver: %v", err)
		}
	}

	utils.WaitForCtrlC(ctx)
	logger.Println("exiting...")

	if webserver != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webserver.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("error shutting down webserver: %v", err)
		}
	}
	services.GlobalChainService.StopService()
	services.StopQueryCache()
}

func createRouter() http.Handler {
	router := mux.NewRouter()

	if utils.Config.Api.Enabled {
		apiRouter := router.PathPrefix("/api/v1").Subrouter()
		apiRouter.Use(middleware.CorsMiddleware)
		apiRouter.Use(middleware.CallCostMiddleware)
		apiRouter.Use(middleware.RateLimitMiddleware)
		apiRouter.HandleFunc("/checkpoints", api.ApiCheckpointsV1).Methods("GET", "OPTIONS")
		apiRouter.HandleFunc("/epochs", api.ApiEpochsV1).Methods("GET", "OPTIONS")

		// the epochs endpoint additionally loads the system state for the epoch count
		middleware.SetEndpointCost("/api/v1/epochs", 2)
	}

	if utils.Config.Frontend.Enabled {
		router.HandleFunc("/", handlers.Index).Methods("GET")
		router.HandleFunc("/index", handlers.Index).Methods("GET")
		router.HandleFunc("/checkpoints", handlers.Checkpoints).Methods("GET")
		router.HandleFunc("/epochs", handlers.Epochs).Methods("GET")
	}

	if utils.Config.Frontend.Pprof {
		// add pprof handler
		router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
		router.HandleFunc("/debug/cache", handlers.DebugCache).Methods("GET")
		router.Handle("/debug/metrics", metrics.GetMetricsHandler())
	}

	if utils.Config.Metrics.Enabled && utils.Config.Metrics.Public {
		router.Handle("/metrics", metrics.GetMetricsHandler())
	}

	if utils.Config.Frontend.Debug {
		// serve files from local directory when debugging, instead of from go embed file
		templatesHandler := http.FileServer(http.Dir("templates"))
		router.PathPrefix("/templates").Handler(http.StripPrefix("/templates/", templatesHandler))

		cssHandler := http.FileServer(http.Dir("static/css"))
		router.PathPrefix("/css").Handler(http.StripPrefix("/css/", cssHandler))

		jsHandler := http.FileServer(http.Dir("static/js"))
		router.PathPrefix("/js").Handler(http.StripPrefix("/js/", jsHandler))
	}

	// serve static files from go embed
	fileSys := http.FS(static.Files)
	router.PathPrefix("/").Handler(handlers.CustomFileServer(http.FileServer(fileSys), fileSys, handlers.NotFound))

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(router)
	return n
}

func startWebserver(logger logrus.FieldLogger, handler http.Handler) (*http.Server, error) {
	if utils.Config.Frontend.HttpWriteTimeout == 0 {
		utils.Config.Frontend.HttpWriteTimeout = time.Second * 60
	}
	if utils.Config.Frontend.HttpReadTimeout == 0 {
		utils.Config.Frontend.HttpReadTimeout = time.Second * 15
	}
	if utils.Config.Frontend.HttpIdleTimeout == 0 {
		utils.Config.Frontend.HttpIdleTimeout = time.Second * 60
	}
	srv := &http.Server{
		Addr:         utils.Config.Server.Host + ":" + utils.Config.Server.Port,
		WriteTimeout: utils.Config.Frontend.HttpWriteTimeout,
		ReadTimeout:  utils.Config.Frontend.HttpReadTimeout,
		IdleTimeout:  utils.Config.Frontend.HttpIdleTimeout,
		Handler:      handler,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	logger.Printf("http server listening on %v", srv.Addr)
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Error serving frontend")
		}
	}()

	return srv, nil
}
