package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/questauth/core"
	"github.com/layer-3/questauth/internal/logger"
	"github.com/layer-3/questauth/internal/metrics"
	"github.com/layer-3/questauth/ports"
	"github.com/rs/zerolog"
)

// VerifierRegistry resolves the signature verifier of a network
type VerifierRegistry interface {
	For(network core.Network) (ports.Verifier, bool)
}

// Config holds the token lifetimes used by AuthService
type Config struct {
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// DefaultConfig returns the standard challenge and session lifetimes
func DefaultConfig() Config {
	return Config{
		ChallengeTTL: 120 * time.Second,
		SessionTTL:   10080 * time.Minute,
	}
}

// AuthService handles the wallet challenge-response flow
type AuthService struct {
	tokenizer ports.Tokenizer
	verifiers VerifierRegistry
	accounts  ports.AccountStore
	sessions  ports.SessionStore
	eventPub  ports.EventPublisher
	logger    zerolog.Logger

	cfg           Config
	now           func() time.Time
	nameGenerator func() string
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	verifiers VerifierRegistry,
	accounts ports.AccountStore,
	sessions ports.SessionStore,
	eventPub ports.EventPublisher,
	cfg Config,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		tokenizer:     tokenizer,
		verifiers:     verifiers,
		accounts:      accounts,
		sessions:      sessions,
		eventPub:      eventPub,
		logger:        log.With().Str("component", "auth_service").Logger(),
		cfg:           cfg,
		now:           time.Now,
		nameGenerator: randomDisplayName,
	}
}

// CreateChallenge issues a challenge token carrying a fresh nonce for address.
// The address shape is checked at verification time, not here.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (string, error) {
	nonce, err := core.GenerateNonce()
	if err != nil {
		return "", err
	}

	challenge := &core.Challenge{
		ID:      uuid.New().String(),
		Address: address,
		Nonce:   nonce,
	}

	token, err := s.tokenizer.ChallengeToToken(challenge, s.cfg.ChallengeTTL)
	if err != nil {
		return "", fmt.Errorf("failed to create challenge token: %w", err)
	}

	network, err := core.DetectNetwork(address)
	if err != nil {
		metrics.RecordChallenge("unknown")
	} else {
		metrics.RecordChallenge(network.String())
	}

	return token, nil
}

// VerifySignature checks the signed challenge and resolves it to an account.
// The sign-in flow mints and persists a new session token; the link flow
// attaches the wallet to the caller's account and returns their token unchanged.
func (s *AuthService) VerifySignature(ctx context.Context, req VerifyRequest) (*core.VerifyResult, error) {
	flow := req.flow()
	result, err := s.verifySignature(ctx, flow, req)
	metrics.RecordVerification(string(flow), err == nil)
	return result, err
}

func (s *AuthService) verifySignature(ctx context.Context, flow Flow, req VerifyRequest) (*core.VerifyResult, error) {
	if _, err := ParseFlow(string(flow)); err != nil {
		return nil, err
	}

	challenge, err := s.tokenizer.TokenToChallenge(req.ChallengeToken)
	if err != nil {
		return nil, err
	}

	if challenge.Address == "" || challenge.Nonce == "" {
		return nil, core.ErrMalformedChallenge
	}

	network, err := core.DetectNetwork(challenge.Address)
	if err != nil {
		return nil, err
	}

	verifier, ok := s.verifiers.For(network)
	if !ok {
		return nil, fmt.Errorf("%w: no verifier for %s", core.ErrUnsupportedNetwork, network)
	}

	if !safeVerify(verifier, challenge.Address, challenge.Nonce, req.Signature) {
		return nil, core.ErrInvalidSignature
	}

	address := challenge.Address
	if normalizer, ok := verifier.(ports.AddressNormalizer); ok {
		address = normalizer.NormalizeAddress(address)
	}

	log := logger.WithAddress(s.logger, address)

	result := &core.VerifyResult{
		Address: address,
		Network: network,
	}

	if flow == FlowLink {
		account, err := s.linkWallet(ctx, req.SessionToken, address, network)
		if err != nil {
			return nil, err
		}
		result.Account = account
		result.Linked = true
		result.SessionToken = req.SessionToken
	} else {
		account, created, err := s.resolveAccount(ctx, address, network)
		if err != nil {
			return nil, err
		}
		result.Account = account
		result.Created = created
	}

	log = logger.WithAccount(log, result.Account.ID)

	if req.ClientIP != "" {
		if err := s.accounts.RecordIP(ctx, result.Account.ID, req.ClientIP); err != nil {
			return nil, fmt.Errorf("failed to record client ip: %w", err)
		}
	}

	if flow == FlowSignIn {
		token, tokenID, err := s.mintSession(ctx, result.Account.ID, address)
		if err != nil {
			return nil, err
		}
		result.SessionToken = token
		s.publish(ctx, core.AuthEvent{
			Type:      core.EventSignedIn,
			AccountID: result.Account.ID,
			Address:   address,
			Network:   network,
			TokenID:   tokenID,
		})
	}

	log.Info().
		Str("flow", string(flow)).
		Str("network", network.String()).
		Bool("created", result.Created).
		Msg("signature verified")

	return result, nil
}

// linkWallet attaches address to the account owning sessionToken
func (s *AuthService) linkWallet(ctx context.Context, sessionToken, address string, network core.Network) (*core.Account, error) {
	if sessionToken == "" {
		return nil, core.ErrInvalidToken
	}

	account, err := s.ValidateSessionToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.LinkAddress(ctx, account.ID, address, network); err != nil {
		return nil, err
	}

	s.publish(ctx, core.AuthEvent{
		Type:      core.EventWalletLinked,
		AccountID: account.ID,
		Address:   address,
		Network:   network,
	})

	return account, nil
}

// resolveAccount returns the account owning address, creating it on first sign-in
func (s *AuthService) resolveAccount(ctx context.Context, address string, network core.Network) (*core.Account, bool, error) {
	account, err := s.accounts.FindAccountByAddress(ctx, address)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, core.ErrAccountNotFound) {
		return nil, false, err
	}

	account, err = s.createAccount(ctx, address, network)
	if errors.Is(err, core.ErrDisplayNameTaken) {
		// Another sign-in claimed the same generated name in between.
		account, err = s.createAccount(ctx, address, network)
	}
	if errors.Is(err, core.ErrAddressAlreadyLinked) {
		// A concurrent sign-in created the account first.
		account, err = s.accounts.FindAccountByAddress(ctx, address)
		if err != nil {
			return nil, false, core.ErrAddressAlreadyLinked
		}
		return account, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	metrics.AccountsCreated.Inc()
	s.publish(ctx, core.AuthEvent{
		Type:      core.EventAccountCreated,
		AccountID: account.ID,
		Address:   address,
		Network:   network,
	})

	return account, true, nil
}

func (s *AuthService) createAccount(ctx context.Context, address string, network core.Network) (*core.Account, error) {
	displayName, err := s.displayNameFor(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.accounts.CreateAccountWithWallet(ctx, displayName, address, network)
}

func (s *AuthService) mintSession(ctx context.Context, accountID, address string) (string, string, error) {
	session := &core.Session{
		ID:      uuid.New().String(),
		Address: address,
	}

	token, err := s.tokenizer.SessionToToken(session, s.cfg.SessionTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.sessions.Create(ctx, accountID, token); err != nil {
		return "", "", fmt.Errorf("failed to persist session: %w", err)
	}

	return token, session.ID, nil
}

// ValidateSessionToken decodes token and checks that it is still persisted
func (s *AuthService) ValidateSessionToken(ctx context.Context, token string) (*core.Account, error) {
	if _, err := s.tokenizer.TokenToSession(token); err != nil {
		return nil, err
	}

	accountID, err := s.sessions.FindValid(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %w", core.ErrAccountNotFound, err)
		}
		return nil, err
	}

	return s.accounts.GetAccount(ctx, accountID)
}

// IsValid reports whether token is a live session. It never fails.
func (s *AuthService) IsValid(ctx context.Context, token string) bool {
	_, err := s.ValidateSessionToken(ctx, token)
	return err == nil
}

// Logout deletes a live session token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return err
	}

	accountID, err := s.sessions.FindValid(ctx, token)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.publish(ctx, core.AuthEvent{
		Type:      core.EventLoggedOut,
		AccountID: accountID,
		Address:   session.Address,
		TokenID:   session.ID,
	})

	return nil
}

// DeleteExpiredTokens removes every persisted session token that no longer
// decodes or whose account is gone. A failed delete is logged and skipped.
func (s *AuthService) DeleteExpiredTokens(ctx context.Context) (int, error) {
	tokens, err := s.sessions.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	deleted := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			break
		}
		if !s.isStale(ctx, token) {
			continue
		}
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.Error().Err(err).Msg("failed to delete expired session")
			continue
		}
		deleted++
	}

	metrics.RecordPruned(deleted)
	s.logger.Info().
		Int("scanned", len(tokens)).
		Int("deleted", deleted).
		Msg("expired sessions pruned")

	return deleted, ctx.Err()
}

func (s *AuthService) isStale(ctx context.Context, token string) bool {
	if _, err := s.tokenizer.TokenToSession(token); err != nil {
		return true
	}

	accountID, err := s.sessions.FindValid(ctx, token)
	if err != nil {
		return false
	}
	_, err = s.accounts.GetAccount(ctx, accountID)
	return errors.Is(err, core.ErrAccountNotFound)
}

// publish emits an event; failures are logged since the state change already happened
func (s *AuthService) publish(ctx context.Context, event core.AuthEvent) {
	if s.eventPub == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("failed to publish auth event")
	}
}

// safeVerify collapses a panicking verifier into a rejection
func safeVerify(verifier ports.Verifier, address, nonce, signature string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return verifier.Verify(address, nonce, signature)
}
