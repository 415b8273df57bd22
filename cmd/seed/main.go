// Command seed populates the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	preset := flag.String("preset", "small", "Seeder preset name")
	presetFile := flag.String("presets", "", "YAML file with custom presets")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build entities without writing them")
	randomSeed := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	opts, err := seed.Preset(*preset, *presetFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	opts.DryRun = *dryRun
	if *randomSeed != 0 {
		opts.RandomSeed = *randomSeed
	}
	log.Printf("Preset %s: %d users, %d posts each, clean=%v", *preset, opts.Users, opts.PostsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, opts)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}
	if _, err := s.Run(context.Background()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
