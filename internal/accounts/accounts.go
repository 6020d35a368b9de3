// Package accounts registers library clients and signs clients and librarians in.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/entities"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrValidation         = errors.New("invalid registration")
	ErrClientExists       = errors.New("a client with this email already exists")
	ErrUnknownEmail       = errors.New("no such email found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUserType    = errors.New("unknown user type")
)

// Store persists clients and librarians. Get methods return an error matching
// ErrNotFound when no row exists, and Create methods return ErrClientExists on
// a duplicate email.
type Store interface {
	// CreateClient inserts the client with its address and credit card atomically.
	CreateClient(ctx context.Context, client *entities.Client) error
	GetClient(ctx context.Context, email string) (*entities.Client, error)
	CreateLibrarian(ctx context.Context, librarian *entities.Librarian) error
	GetLibrarian(ctx context.Context, email string) (*entities.Librarian, error)
}

// Registration is the signup form.
type Registration struct {
	Name       string
	Email      string
	Password   string
	Address    string
	CreditCard string
}

// Identity is who signed in.
type Identity struct {
	Email    string
	Name     string
	UserType entities.UserType
}

type Service struct {
	store      Store
	bcryptCost int
}

func NewService(store Store, bcryptCost int) *Service {
	return &Service{store: store, bcryptCost: bcryptCost}
}

// Register validates the form and creates the client, address and credit card
// in one transaction. Only the last four card digits are kept.
func (s *Service) Register(ctx context.Context, reg Registration) (*entities.Client, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = normalizeEmail(reg.Email)
	reg.Address = strings.TrimSpace(reg.Address)

	if reg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !auth.ValidEmail(reg.Email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if reg.Address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrValidation)
	}
	digits, err := cardDigits(reg.CreditCard)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(reg.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	client := &entities.Client{
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: hash,
		Address:      &entities.Address{ClientEmail: reg.Email, Address: reg.Address},
		CreditCard: &entities.CreditCard{
			Email:   reg.Email,
			Last4:   digits[len(digits)-4:],
			Address: reg.Address,
		},
	}

	if err := s.store.CreateClient(ctx, client); err != nil {
		if errors.Is(err, ErrClientExists) {
			return nil, ErrClientExists
		}
		log.Printf("Registration of %s failed: %v", reg.Email, err)
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	log.Printf("Registered client %s", reg.Email)
	return client, nil
}

// RegisterLibrarian creates a librarian account.
func (s *Service) RegisterLibrarian(ctx context.Context, name, email, password string) (*entities.Librarian, error) {
	email = normalizeEmail(email)
	if !auth.ValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	librarian := &entities.Librarian{Email: email, Name: strings.TrimSpace(name), PasswordHash: hash}
	if err := s.store.CreateLibrarian(ctx, librarian); err != nil {
		if errors.Is(err, ErrClientExists) {
			return nil, ErrClientExists
		}
		return nil, fmt.Errorf("failed to create librarian: %w", err)
	}
	return librarian, nil
}

// Login checks the password of a client or librarian.
func (s *Service) Login(ctx context.Context, email, password string, userType entities.UserType) (*Identity, error) {
	email = normalizeEmail(email)

	var name, hash string
	switch userType {
	case entities.UserTypeClient:
		client, err := s.store.GetClient(ctx, email)
		if err != nil {
			return nil, lookupError(err)
		}
		name, hash = client.Name, client.PasswordHash
	case entities.UserTypeLibrarian:
		librarian, err := s.store.GetLibrarian(ctx, email)
		if err != nil {
			return nil, lookupError(err)
		}
		name, hash = librarian.Name, librarian.PasswordHash
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUserType, userType)
	}

	if err := auth.CheckPassword(password, hash); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Email: email, Name: name, UserType: userType}, nil
}

// ClientName returns the display name of a client.
func (s *Service) ClientName(ctx context.Context, email string) (string, error) {
	client, err := s.store.GetClient(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return client.Name, nil
}

func lookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrUnknownEmail
	}
	return fmt.Errorf("failed to look up account: %w", err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// cardDigits strips spaces and dashes and checks the number is 12 to 19 digits.
func cardDigits(number string) (string, error) {
	var b strings.Builder
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return "", fmt.Errorf("%w: credit card number may only contain digits", ErrValidation)
		}
	}
	digits := b.String()
	if len(digits) < 12 || len(digits) > 19 {
		return "", fmt.Errorf("%w: credit card number must have 12 to 19 digits", ErrValidation)
	}
	return digits, nil
}
