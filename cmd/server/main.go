package main

import (
	"fmt"
	"log"

	"apr-manager/internal/config"
	"apr-manager/internal/database"
	"apr-manager/internal/server"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	database.SeedSuperadmin(db, cfg.AdminEmail, cfg.AdminPassword)

	r, err := server.NewRouter(cfg, db)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
