package main

import (
	"time"

	"github.com/bazaarche/bazaarche/config"
	"github.com/bazaarche/bazaarche/models"
	"github.com/bazaarche/bazaarche/routes"
	"github.com/bazaarche/bazaarche/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Store{},
		&models.Listing{},
		&models.Message{},
		&models.Rating{},
		&models.Follow{},
		&models.ListingView{},
		&models.OrphanFile{},
	)

	r := routes.SetupRouter(db)

	// Retry deletion of unreferenced upload files in the background (best-effort)
	utils.StartOrphanSweeper(time.Duration(cfg.OrphanSweepMinutes) * time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
