// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/content"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Inkwell-Password-1"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	f := &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}

	if opts.SkipBcrypt {
		f.hash = DefaultPassword
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		if err != nil {
			log.Printf("seed: bcrypt failed, storing plain password: %v", err)
			f.hash = DefaultPassword
		} else {
			f.hash = string(hashed)
		}
	}
	return f
}

func (f *Factory) create(v interface{}, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		return nil
	}
	return f.db.Create(v).Error
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := strings.ToLower(gofakeit.Username())
	username = strings.Trim(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, username), "_")
	if len(username) > 24 {
		username = username[:24]
	}
	username = fmt.Sprintf("%s%d", username, gofakeit.Number(100, 99999))

	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		Password:      f.hash,
		Bio:           gofakeit.Sentence(10),
		Avatar:        fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		EmailVerified: f.rng.Float64() < 0.8,
	}
	if f.rng.Float64() < f.opts.BetaApprovedRatio {
		user.BetaApproved = true
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.create(user, &user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post without persisting it. Slugs are made unique
// per author by suffixing n.
func (f *Factory) BuildPost(author *models.User, n int, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(gofakeit.Sentence(f.rng.Intn(6)+3), ".")
	body := gofakeit.Paragraph(f.rng.Intn(4)+2, 4, 12, "\n\n")

	post := &models.Post{
		UserID:      author.ID,
		Title:       title,
		Slug:        fmt.Sprintf("%s-%d", content.Slugify(title), n),
		Content:     body,
		Excerpt:     content.Excerpt(body, 200),
		ReadingTime: content.ReadingTime(body),
		Status:      models.PostStatusDraft,
		CreatedAt:   f.createdAt(),
	}
	if f.rng.Float64() < 0.4 {
		post.CoverImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID())
	}
	if f.rng.Float64() >= f.opts.DraftRatio {
		published := post.CreatedAt.Add(time.Duration(f.rng.Intn(120)) * time.Minute)
		post.Status = models.PostStatusPublished
		post.PublishedAt = &published
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.CreateInBatches(&posts, 200).Error
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		Content:   gofakeit.Sentence(f.rng.Intn(14) + 4),
		UserID:    user.ID,
		PostID:    post.ID,
		CreatedAt: f.createdAt(),
	}
	if err := f.create(comment, &comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, PostID: post.ID, CreatedAt: f.createdAt()}
	return f.create(like, &like.ID)
}

// CreateSubscriber persists an active newsletter subscriber.
func (f *Factory) CreateSubscriber() (*models.EmailSubscriber, error) {
	sub := &models.EmailSubscriber{
		Email:        strings.ToLower(fmt.Sprintf("%s.%d@example.net", gofakeit.FirstName(), gofakeit.Number(1, 999999))),
		IsActive:     true,
		SubscribedAt: f.createdAt(),
	}
	if err := f.create(sub, &sub.ID); err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateTier persists a membership tier for creator.
func (f *Factory) CreateTier(creator *models.User) (*models.MembershipTier, error) {
	tier := &models.MembershipTier{
		CreatorID:   creator.ID,
		Name:        gofakeit.RandomString([]string{"Supporter", "Patron", "Insider", "Backstage"}),
		Description: gofakeit.Sentence(8),
		PriceCents:  int64(gofakeit.Number(3, 25) * 100),
		Active:      true,
	}
	if err := f.create(tier, &tier.ID); err != nil {
		return nil, err
	}
	return tier, nil
}

// CreateMembership persists an active membership of user in tier.
func (f *Factory) CreateMembership(user *models.User, tier *models.MembershipTier) error {
	m := &models.Membership{UserID: user.ID, TierID: tier.ID, Status: models.MembershipActive}
	return f.create(m, &m.ID)
}

// CreateBetaApplication persists a pending application for user.
func (f *Factory) CreateBetaApplication(user *models.User) (*models.BetaApplication, error) {
	app := &models.BetaApplication{
		UserID:       user.ID,
		Reason:       gofakeit.Paragraph(1, 3, 10, " "),
		PortfolioURL: gofakeit.URL(),
		Status:       models.BetaApplicationPending,
	}
	if err := f.create(app, &app.ID); err != nil {
		return nil, err
	}
	return app, nil
}

// CreateMessage persists a pending direct message.
func (f *Factory) CreateMessage(sender, recipient *models.User) (*models.Message, error) {
	msg := &models.Message{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Content:     gofakeit.Sentence(12),
		Status:      models.MessageStatusPending,
	}
	if err := f.create(msg, &msg.ID); err != nil {
		return nil, err
	}
	return msg, nil
}
