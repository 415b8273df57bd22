package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

const (
	// WalletChallengeTTL is how long a signing challenge stays redeemable.
	WalletChallengeTTL     = 10 * time.Minute
	FlagWalletVerification = featureflags.WalletVerification
)

var errBadSignature = errors.New("malformed signature")

// RecoverSigner returns the address that produced an EIP-191 personal_sign
// signature over message. Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, errBadSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, errBadSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// WalletService links a wallet to an account through a signed nonce.
type WalletService struct {
	users      repository.UserRepository
	challenges repository.WalletChallengeRepository
	flags      *featureflags.Manager
	now        func() time.Time
}

func NewWalletService(users repository.UserRepository, challenges repository.WalletChallengeRepository, flags *featureflags.Manager) *WalletService {
	return &WalletService{users: users, challenges: challenges, flags: flags, now: time.Now}
}

func (s *WalletService) enabled(userID uint) error {
	if s.flags != nil && !s.flags.Enabled(FlagWalletVerification, userID) {
		return models.NewForbiddenError("Wallet verification is not available")
	}
	return nil
}

// Challenge issues a nonce the user must sign with their wallet.
func (s *WalletService) Challenge(ctx context.Context, userID uint) (*models.WalletChallenge, error) {
	if err := s.enabled(userID); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.challenges.DeleteExpired(ctx, now); err != nil {
		observability.LogBestEffortFailure(ctx, nil, "wallet_challenge_cleanup", err)
	}
	ch := &models.WalletChallenge{
		UserID:    userID,
		Nonce:     uuid.NewString(),
		ExpiresAt: now.Add(WalletChallengeTTL),
	}
	if err := s.challenges.Create(ctx, ch); err != nil {
		return nil, models.NewInternalError(err)
	}
	return ch, nil
}

// Verify consumes the user's latest challenge and, when signature recovers
// to address, links the wallet to the account.
func (s *WalletService) Verify(ctx context.Context, userID uint, address, signature string) (*models.User, error) {
	if err := s.enabled(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateWalletAddress(address); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ch, err := s.challenges.Consume(ctx, userID, s.now())
	if isNotFound(err) {
		return nil, models.NewValidationError("No active wallet challenge. Request a new one")
	}
	if err != nil {
		return nil, err
	}

	signer, err := RecoverSigner(ch.Message(), signature)
	if err != nil {
		return nil, models.NewValidationError("Invalid signature")
	}
	want := strings.ToLower(address)
	if strings.ToLower(signer.Hex()) != want {
		slog.WarnContext(ctx, "wallet signature mismatch",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("claimed", want))
		return nil, models.NewValidationError("Signature does not match wallet address")
	}

	owner, err := s.users.GetByWallet(ctx, want)
	switch {
	case err == nil && owner.ID != userID:
		return nil, models.NewConflictError("Wallet is linked to another account")
	case err != nil && !isNotFound(err):
		return nil, err
	}

	if err := s.users.LinkWallet(ctx, userID, want, s.now()); err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewConflictError("Wallet is linked to another account")
		}
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
