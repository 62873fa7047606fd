package main

import (
	"context"
	"time"

	"whatsapp-booking-bot/cmd/bootstrap"
	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/infrastructure/database"
	"whatsapp-booking-bot/internal/repository"
	"whatsapp-booking-bot/internal/service"
	"whatsapp-booking-bot/internal/usecase"
)

var sampleDoctors = []struct {
	Name  string
	Phone string
}{
	{Name: "Dr. John Doe", Phone: "+14155551234"},
	{Name: "Dr. Jane Smith", Phone: "+14155556789"},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootstrap.NewLogger("info").Fatalf("Failed to load config: %v", err)
	}
	log := bootstrap.NewLogger(cfg.App.LogLevel)

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	auditService := service.NewAuditService(log, repository.NewAuditLogRepository())
	doctorUsecase := usecase.NewDoctorUsecase(db, log, repository.NewDoctorRepository(), auditService)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, d := range sampleDoctors {
		doctor, created, err := doctorUsecase.EnsureDoctor(ctx, d.Name, d.Phone)
		if err != nil {
			log.Fatalf("Failed to seed doctor %s: %v", d.Name, err)
		}
		if created {
			log.Infof("Seeded doctor %s (%s)", doctor.Name, doctor.ID)
		} else {
			log.Infof("Doctor %s already present", d.Phone)
		}
	}
}
