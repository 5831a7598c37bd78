package main

import (
	"log"

	"github.com/GrainArc/ShpToAPI/config"
	"github.com/GrainArc/ShpToAPI/loader"
	"github.com/GrainArc/ShpToAPI/models"
	"github.com/GrainArc/ShpToAPI/routers"
	"github.com/GrainArc/ShpToAPI/services"
	"github.com/GrainArc/ShpToAPI/views"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("config.xml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := models.NewGormResourceStore(db)
	spatial := services.NewSpatialService(db)
	vector := services.NewVectorService(cfg, store, spatial, &loader.OgrLoader{}, &loader.OgrInfoInspector{})
	controller := views.NewVectorController(cfg, store, vector, spatial)

	r := gin.Default()
	routers.VectorRouters(r, controller, cfg.CorsOrigin)

	log.Printf("Vector API listening on %s", cfg.Listen)
	if err := r.Run(cfg.Listen); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
