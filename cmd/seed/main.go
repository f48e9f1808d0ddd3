// Command main runs the demo data seeder for campusnet.
package main

import (
	"context"
	"flag"
	"log"

	"campusnet/internal/bootstrap"
	"campusnet/internal/config"
	"campusnet/internal/middleware"
	"campusnet/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 40, "Number of student accounts to create")
	numClubs := flag.Int("clubs", 8, "Number of club accounts to create")
	numPosts := flag.Int("posts", 150, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Remove existing data before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d clubs, %d posts, clean=%v\n", *numUsers, *numClubs, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}()

	if *shouldClean {
		if err := rt.Reset(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	s := seed.NewSeeder(rt.Users, rt.Posts, seed.Options{
		Users: *numUsers,
		Clubs: *numClubs,
		Posts: *numPosts,
		Seed:  *randSeed,
	}, middleware.Logger)

	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed after %s: %v", summary, err)
	}

	log.Printf("✨ All done! Created %s", summary)
	log.Printf("📧 All seeded accounts use the password: %s", seed.DefaultPassword)
}
