package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_AcceptOpensThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.SeedUser(t, f.db, "sender")
	recipient := testutil.SeedUser(t, f.db, "recipient")
	svc := NewMessageService(repository.NewMessageRepository(f.db), f.users, nil)

	msg, err := svc.Send(ctx, SendMessageInput{SenderID: sender.ID, RecipientID: recipient.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusPending, msg.Status)

	got, err := svc.Respond(ctx, RespondMessageInput{UserID: recipient.ID, MessageID: msg.ID, Action: "ACCEPT"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusAccepted, got.Status)
	require.NotNil(t, got.RespondedAt)
	lo, hi := sender.ID, recipient.ID
	if lo > hi {
		lo, hi = hi, lo
	}
	assert.Equal(t, fmt.Sprintf("thread_%d_%d", lo, hi), got.ThreadID)

	var stored models.Message
	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	assert.Equal(t, models.MessageStatusAccepted, stored.Status)
	assert.Equal(t, got.ThreadID, stored.ThreadID)

	_, err = svc.Respond(ctx, RespondMessageInput{UserID: recipient.ID, MessageID: msg.ID, Action: "decline"})
	assertValidationError(t, err)
}

func TestMessageService_Decline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	svc := NewMessageService(repository.NewMessageRepository(f.db), f.users, nil)

	msg, err := svc.Send(ctx, SendMessageInput{SenderID: alice.ID, RecipientID: bob.ID, Content: "hello bob"})
	require.NoError(t, err)

	got, err := svc.Respond(ctx, RespondMessageInput{UserID: bob.ID, MessageID: msg.ID, Action: MessageActionDecline})
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDeclined, got.Status)
	assert.NotNil(t, got.RespondedAt)
	assert.Empty(t, got.ThreadID)
}

func TestMessageService_RespondGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	eve := testutil.SeedUser(t, f.db, "eve")
	svc := NewMessageService(repository.NewMessageRepository(f.db), f.users, nil)

	msg, err := svc.Send(ctx, SendMessageInput{SenderID: alice.ID, RecipientID: bob.ID, Content: "hello bob"})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, RespondMessageInput{UserID: eve.ID, MessageID: msg.ID, Action: "accept"})
	assertCode(t, err, models.CodeForbidden)

	_, err = svc.Respond(ctx, RespondMessageInput{UserID: alice.ID, MessageID: msg.ID, Action: "accept"})
	assertCode(t, err, models.CodeForbidden)

	_, err = svc.Respond(ctx, RespondMessageInput{UserID: bob.ID, MessageID: msg.ID, Action: "maybe"})
	assertValidationError(t, err)

	_, err = svc.Respond(ctx, RespondMessageInput{UserID: bob.ID, MessageID: 999, Action: "accept"})
	assertCode(t, err, models.CodeNotFound)
}

func TestMessageService_SendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, f.db, "alice")
	svc := NewMessageService(repository.NewMessageRepository(f.db), f.users, nil)

	_, err := svc.Send(ctx, SendMessageInput{SenderID: alice.ID, RecipientID: alice.ID, Content: "me"})
	assertValidationError(t, err)
	_, err = svc.Send(ctx, SendMessageInput{SenderID: alice.ID, RecipientID: 999, Content: "ghost"})
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.Send(ctx, SendMessageInput{SenderID: alice.ID, RecipientID: 999, Content: "  "})
	assertValidationError(t, err)
}

func TestMessageService_ConcurrentRespondSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	svc := NewMessageService(repository.NewMessageRepository(f.db), f.users, nil)

	msg, err := svc.Send(ctx, SendMessageInput{SenderID: alice.ID, RecipientID: bob.ID, Content: "race"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Respond(ctx, RespondMessageInput{UserID: bob.ID, MessageID: msg.ID, Action: "accept"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}
