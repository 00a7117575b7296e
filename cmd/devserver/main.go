// Command devserver runs the simulated ticketing backend for local
// storefront development. All state is in memory and gone on restart.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/remsmachous/jo-storefront/internal/devserver"
	"github.com/remsmachous/jo-storefront/pkg/config"
	"github.com/remsmachous/jo-storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "devserver", Env: cfg.AppEnv, Level: cfg.LogLevel})

	srv := devserver.New(devserver.Options{
		JWTSecret: cfg.DevJWTSecret,
		AccessTTL: 15 * time.Minute,
	})

	addr := fmt.Sprintf(":%d", cfg.DevServerPort)
	log.Info("devserver listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		log.Error("devserver stopped", "err", err)
		os.Exit(1)
	}
}
