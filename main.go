package main

import (
	"fmt"
	"log"
	"os"

	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/internal/database"
	"github.com/inboxkit/mailsort/internal/repository"
	"github.com/inboxkit/mailsort/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: mailsort <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate   Run database migrations")
		fmt.Println("  worker    Start the onboarding worker")
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	// Setup the database
	dbConfig := &database.DatabaseConfig{
		DBName:          cfg.MailsortDatabaseConfig.DBName,
		Host:            cfg.MailsortDatabaseConfig.Host,
		Port:            cfg.MailsortDatabaseConfig.Port,
		User:            cfg.MailsortDatabaseConfig.User,
		Password:        cfg.MailsortDatabaseConfig.Password,
		MaxConn:         cfg.MailsortDatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.MailsortDatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.MailsortDatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.MailsortDatabaseConfig.LogLevel,
		SSLMode:         cfg.MailsortDatabaseConfig.SSLMode,
	}

	mailsortDB, err := database.InitDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Mailsort database initialization failed: %v", err)
	}

	switch os.Args[1] {
	case "migrate":

		err := repository.MigrateDB(dbConfig, mailsortDB)
		if err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("Database migration completed successfully")

	case "worker":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Mailsort starting up...")

		server, err := server.NewServer(cfg, mailsortDB)
		if err != nil {
			log.Fatalf("Worker setup failed: %v", err)
		}

		err = server.Run()
		if err != nil {
			log.Fatalf("Worker startup failed: %v", err)
		}

		log.Println("Shutdown complete")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Println("Usage: mailsort <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate   Run database migrations")
		fmt.Println("  worker    Start the onboarding worker")
		os.Exit(1)
	}
}
