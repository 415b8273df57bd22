// Command admin runs operator tasks against the Inkwell database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"gorm.io/gorm"
)

const usage = `Usage:
  admin promote <user_id>     Promote user to admin
  admin demote <user_id>      Demote user from admin
  admin list-admins           List all admins
  admin stats                 Print dashboard counters
  admin recount <post_id>     Rebuild a post's counters from its events`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := run(context.Background(), db, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(ctx context.Context, db *gorm.DB, command string, args []string) error {
	users := repository.NewUserRepository(db)
	userSvc := service.NewUserService(users, "")
	adminSvc := service.NewAdminService(
		users,
		repository.NewPostRepository(db),
		repository.NewViewRepository(db),
		repository.NewSubscriberRepository(db),
		repository.NewBetaRepository(db),
	)

	switch command {
	case "promote", "demote":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		user, err := userSvc.SetAdmin(ctx, id, command == "promote")
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s (ID: %d) is_admin=%t\n", user.Username, user.ID, user.IsAdmin)

	case "list-admins":
		var admins []models.User
		if err := db.WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&admins).Error; err != nil {
			return fmt.Errorf("fetch admins: %w", err)
		}
		if len(admins) == 0 {
			fmt.Println("No admins found in the system")
			return nil
		}
		fmt.Println("\n📋 Current Admins:")
		for _, a := range admins {
			fmt.Printf("ID: %d | Username: %s | Email: %s\n", a.ID, a.Username, a.Email)
		}

	case "stats":
		stats, err := adminSvc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("users=%d posts=%d views=%d active_subscribers=%d pending_beta=%d\n",
			stats.Users, stats.Posts, stats.Views, stats.ActiveSubscribers, stats.PendingBetaApplications)

	case "recount":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		counters, err := adminSvc.RecountPost(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("✅ post %d: %+v\n", id, *counters)

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
	return nil
}

func idArg(args []string) (uint, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing id argument\n%s", usage)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return uint(id), nil
}
