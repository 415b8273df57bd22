package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options sizes one seeding run.
type Options struct {
	Users             int     `yaml:"users"`
	PostsPerUser      int     `yaml:"posts_per_user"`
	CommentsPerPost   int     `yaml:"comments_per_post"`
	LikeRatio         float64 `yaml:"like_ratio"`
	DraftRatio        float64 `yaml:"draft_ratio"`
	BetaApprovedRatio float64 `yaml:"beta_approved_ratio"`
	Subscribers       int     `yaml:"subscribers"`
	CreatorsWithTiers int     `yaml:"creators_with_tiers"`
	BetaApplications  int     `yaml:"beta_applications"`
	Messages          int     `yaml:"messages"`
	MaxDays           int     `yaml:"max_days"`
	SkipBcrypt        bool    `yaml:"skip_bcrypt"`
	DryRun            bool    `yaml:"-"`
	RandomSeed        int64   `yaml:"random_seed"`
}

// Summary counts what a run created.
type Summary struct {
	Users            int
	Posts            int
	Comments         int
	Likes            int
	Subscribers      int
	Tiers            int
	Memberships      int
	BetaApplications int
	Messages         int
}

//go:embed presets.yml
var builtinPresets []byte

// LoadPresets parses a YAML document mapping preset names to Options.
func LoadPresets(r io.Reader) (map[string]Options, error) {
	presets := map[string]Options{}
	if err := yaml.NewDecoder(r).Decode(&presets); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return presets, nil
}

// Preset resolves name from file when given, else from the built-in presets.
func Preset(name, file string) (Options, error) {
	var presets map[string]Options
	if file != "" {
		fh, err := os.Open(file)
		if err != nil {
			return Options{}, err
		}
		defer func() { _ = fh.Close() }()
		if presets, err = LoadPresets(fh); err != nil {
			return Options{}, err
		}
	} else {
		var err error
		if presets, err = BuiltinPresets(); err != nil {
			return Options{}, err
		}
	}
	opts, ok := presets[name]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Options{}, fmt.Errorf("unknown preset %q (have %v)", name, names)
	}
	return opts, nil
}

// BuiltinPresets returns the presets shipped with the binary.
func BuiltinPresets() (map[string]Options, error) {
	return LoadPresets(bytes.NewReader(builtinPresets))
}

// Seeder writes a coherent demo dataset.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// ClearAll removes every application row.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		return nil
	}
	log.Println("🗑️  Clearing existing data...")
	tables := []string{
		"memberships", "membership_tiers", "wallet_challenges", "beta_applications", "messages",
		"email_verification_tokens", "email_subscribers", "image_upload_rate_limits",
		"consumption_records", "view_logs", "bookmarks", "comments", "post_likes", "likes",
		"posts", "users",
	}
	if s.db.Dialector.Name() == "postgres" {
		sql := "TRUNCATE TABLE "
		for i, t := range tables {
			if i > 0 {
				sql += ", "
			}
			sql += t
		}
		return s.db.Exec(sql + " RESTART IDENTITY CASCADE").Error
	}
	for _, t := range tables {
		if err := s.db.Exec("DELETE FROM " + t).Error; err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}

// Run seeds users, posts, engagement, subscribers, tiers, beta applications
// and messages. Post counters are recounted from the inserted events.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	f := s.factory
	sum := &Summary{}

	users := make([]*models.User, 0, s.opts.Users+1)
	admin, err := f.CreateUser(func(u *models.User) {
		u.Username = "admin"
		u.Email = "admin@example.com"
		u.IsAdmin = true
		u.EmailVerified = true
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	users = append(users, admin)
	for i := 0; i < s.opts.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)

	var posts []*models.Post
	for _, author := range users {
		if !author.BetaApproved && !author.IsAdmin {
			continue
		}
		for n := 0; n < s.opts.PostsPerUser; n++ {
			posts = append(posts, f.BuildPost(author, n))
		}
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)
	log.Printf("✓ %d posts created", sum.Posts)

	for _, post := range posts {
		if !post.IsPublished() {
			continue
		}
		for _, reader := range users {
			if reader.ID == post.UserID || f.rng.Float64() >= s.opts.LikeRatio {
				continue
			}
			if err := f.CreateLike(reader, post); err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			sum.Likes++
		}
		for c := 0; c < s.opts.CommentsPerPost; c++ {
			if _, err := f.CreateComment(users[f.rng.Intn(len(users))], post); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			sum.Comments++
		}
	}
	if !s.opts.DryRun {
		postRepo := repository.NewPostRepository(s.db)
		for _, post := range posts {
			if _, err := postRepo.Recount(ctx, post.ID); err != nil {
				return nil, fmt.Errorf("recount post %d: %w", post.ID, err)
			}
		}
	}
	log.Printf("✓ %d likes and %d comments created", sum.Likes, sum.Comments)

	for i := 0; i < s.opts.Subscribers; i++ {
		if _, err := f.CreateSubscriber(); err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
		sum.Subscribers++
	}

	for i := 0; i < s.opts.CreatorsWithTiers && i < len(users); i++ {
		creator := users[i]
		tier, err := f.CreateTier(creator)
		if err != nil {
			return nil, fmt.Errorf("create tier: %w", err)
		}
		sum.Tiers++
		for _, fan := range users {
			if fan.ID == creator.ID || f.rng.Float64() >= 0.1 {
				continue
			}
			if err := f.CreateMembership(fan, tier); err != nil {
				return nil, fmt.Errorf("create membership: %w", err)
			}
			sum.Memberships++
		}
	}

	for _, u := range users {
		if sum.BetaApplications >= s.opts.BetaApplications {
			break
		}
		if u.BetaApproved || u.IsAdmin {
			continue
		}
		if _, err := f.CreateBetaApplication(u); err != nil {
			return nil, fmt.Errorf("create beta application: %w", err)
		}
		sum.BetaApplications++
	}

	for i := 0; i < s.opts.Messages && len(users) > 1; i++ {
		a := users[f.rng.Intn(len(users))]
		b := users[f.rng.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}
		if _, err := f.CreateMessage(a, b); err != nil {
			return nil, fmt.Errorf("create message: %w", err)
		}
		sum.Messages++
	}

	log.Printf("🎉 Seeding completed: %+v", *sum)
	return sum, nil
}
