// Command readsim plays back a reading or viewing session against a running
// API, reporting consumption depth the way the web client does.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"inkwell/internal/consumption"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8375/api", "API base URL")
	postID := flag.Uint("post", 0, "Post ID to read")
	kind := flag.String("kind", string(models.ConsumptionScroll), "scroll or video")
	token := flag.String("token", "", "Bearer token (anonymous when empty)")
	session := flag.String("session", "", "Session id for anonymous readers")
	duration := flag.Duration("duration", 20*time.Second, "Length of the simulated session")
	flag.Parse()

	if *postID == 0 {
		log.Fatal("-post is required")
	}
	if *session == "" {
		*session = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	endpoint := fmt.Sprintf("%s/posts/%d/consumption", *apiURL, *postID)
	report := func(_ context.Context, k models.ConsumptionKind, depth float64) error {
		agent := fiber.Post(endpoint).JSON(fiber.Map{
			"kind":       string(k),
			"depth":      depth,
			"session_id": *session,
		})
		if *token != "" {
			agent.Set(fiber.HeaderAuthorization, "Bearer "+*token)
		}
		code, body, errs := agent.Bytes()
		if len(errs) > 0 {
			return errs[0]
		}
		if code != fiber.StatusOK {
			return fmt.Errorf("consumption report: status %d: %s", code, body)
		}
		log.Printf("reported %s depth %.2f", k, depth)
		return nil
	}

	tracker := consumption.NewTracker(ctx, report, consumption.Options{Kind: models.ConsumptionKind(*kind)})
	play(ctx, tracker, models.ConsumptionKind(*kind), *duration)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracker.Close(flushCtx); err != nil {
		log.Fatalf("final flush failed: %v", err)
	}
	log.Printf("session %s finished at depth %.2f", *session, tracker.Max())
}

// play feeds the tracker samples every 250ms. Scroll sessions occasionally
// scroll back up; video sessions advance steadily.
func play(ctx context.Context, t *consumption.Tracker, kind models.ConsumptionKind, d time.Duration) {
	const (
		viewport = 900.0
		document = 6400.0
		tick     = 250 * time.Millisecond
	)
	// #nosec G404: simulation only
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	start := time.Now()
	var scrollTop float64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed >= d {
				return
			}
			if kind == models.ConsumptionVideo {
				t.Observe(consumption.VideoDepth(elapsed.Seconds(), d.Seconds()))
				continue
			}
			scrollTop += rng.Float64()*120 - 20
			if scrollTop < 0 {
				scrollTop = 0
			}
			t.Observe(consumption.ScrollDepth(scrollTop, viewport, document))
		}
	}
}
