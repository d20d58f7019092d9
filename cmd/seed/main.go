package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/internal/users"
	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/logger"
	"github.com/angelmondragon/moviestore/pkg/security"
)

const tempPasswordLength = 16

var catalog = []movies.MovieInput{
	{Title: "Alien", Price: "9.99", Description: "The crew of the Nostromo answers a distress call they should have ignored."},
	{Title: "Brazil", Price: "7.50", Description: "A clerk in a bureaucratic dystopia chases the woman from his dreams."},
	{Title: "Heat", Price: "11.00", Description: "A detective and a professional thief circle each other across Los Angeles."},
	{Title: "Solaris", Price: "8.25", Description: "A psychologist visits a space station orbiting a strange ocean planet."},
	{Title: "Stalker", Price: "8.25", Description: "A guide leads two men through the Zone towards a room that grants wishes."},
	{Title: "The Third Man", Price: "6.00", Description: "A pulp writer arrives in post-war Vienna to find his friend has died."},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	demoUser := flag.String("demo-user", "", "also create a login with this username and print its password")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(logg, "database", err)
	defer dbClient.Close()

	created, err := seedCatalog(ctx, dbClient.DB())
	requireResource(logg, "catalog", err)
	logg.Info(logg.WithField(ctx, "created", created), "catalog seeded")

	if name := strings.TrimSpace(*demoUser); name != "" {
		password, err := seedUser(ctx, dbClient.DB(), cfg.Password, name)
		requireResource(logg, "demo user", err)
		fmt.Printf("demo user %q created with password %s\n", name, password)
	}
}

// seedCatalog inserts the movies whose titles are not in the catalog yet.
func seedCatalog(ctx context.Context, conn *gorm.DB) (int, error) {
	repo := movies.NewRepository(conn)
	svc, err := movies.NewService(repo)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, input := range catalog {
		existing, err := repo.List(ctx, input.Title)
		if err != nil {
			return created, err
		}
		if containsTitle(existing, input.Title) {
			continue
		}
		if _, err := svc.Create(ctx, input); err != nil {
			return created, fmt.Errorf("create %q: %w", input.Title, err)
		}
		created++
	}
	return created, nil
}

func containsTitle(rows []movies.MovieSummary, title string) bool {
	for _, row := range rows {
		if strings.EqualFold(row.Title, title) {
			return true
		}
	}
	return false
}

func seedUser(ctx context.Context, conn *gorm.DB, cfg config.PasswordConfig, username string) (string, error) {
	password, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		return "", err
	}
	_, err = users.NewRepository(conn).Create(ctx, users.CreateUserDTO{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	})
	if err != nil {
		return "", fmt.Errorf("create user %q: %w", username, err)
	}
	return password, nil
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
