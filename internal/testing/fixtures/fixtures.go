package fixtures

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/repository"
	"github.com/epicstrade/rifas/internal/service"
)

// Factory creates test entities in the database
type Factory struct {
	Users   *repository.UserRepository
	Wallets *repository.WalletRepository
	Raffles *repository.RaffleRepository
}

// New creates a fixture factory on db
func New(db database.Database) *Factory {
	return &Factory{
		Users:   repository.NewUserRepository(db),
		Wallets: repository.NewWalletRepository(db),
		Raffles: repository.NewRaffleRepository(db),
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// randomSteamID returns a unique SteamID64 in the individual account range
func randomSteamID() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	return fmt.Sprintf("7656119%010d", n.Int64())
}

// UserOpts customizes user creation
type UserOpts struct {
	PersonaName  string
	Role         model.UserRole
	BalanceCents int64
}

// WithBalance credits the new user's wallet through the ledger
func WithBalance(cents int64) func(*UserOpts) {
	return func(o *UserOpts) { o.BalanceCents = cents }
}

// AsAdmin creates the user with the admin role
func AsAdmin() func(*UserOpts) {
	return func(o *UserOpts) { o.Role = model.UserRoleAdmin }
}

// CreateUser registers a Steam user, optionally funding the wallet
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	o := UserOpts{PersonaName: "player", Role: model.UserRoleUser}
	for _, opt := range opts {
		opt(&o)
	}

	user := &model.User{
		SteamID:     randomSteamID(),
		PersonaName: o.PersonaName,
		Role:        o.Role,
	}
	if err := f.Users.Create(ctx(t), user, 0); err != nil {
		t.Fatalf("fixtures: create user: %v", err)
	}

	if o.BalanceCents > 0 {
		err := f.Wallets.Apply(ctx(t), model.WalletMutation{
			UserID:       user.ID,
			Type:         model.TxAdminCredit,
			BalanceDelta: o.BalanceCents,
			Reference:    user.ID,
			Note:         "fixture",
		})
		if err != nil {
			t.Fatalf("fixtures: fund wallet: %v", err)
		}
	}
	return user
}

// RaffleOpts customizes raffle creation
type RaffleOpts struct {
	Title       string
	Tickets     int
	TicketPrice decimal.Decimal
	Status      model.RaffleStatus
	DrawAt      time.Time
}

// WithTickets sets the raffle size
func WithTickets(n int) func(*RaffleOpts) {
	return func(o *RaffleOpts) { o.Tickets = n }
}

// WithStatus creates the raffle in status
func WithStatus(status model.RaffleStatus) func(*RaffleOpts) {
	return func(o *RaffleOpts) { o.Status = status }
}

// CreateRaffle stores an active CS2 raffle owned by creator with a fresh
// committed seed
func (f *Factory) CreateRaffle(t *testing.T, creator *model.User, opts ...func(*RaffleOpts)) *model.Raffle {
	t.Helper()

	o := RaffleOpts{
		Title:       "AK-47 | Redline",
		Tickets:     10,
		TicketPrice: decimal.RequireFromString("2.50"),
		Status:      model.RaffleStatusActive,
		DrawAt:      time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(&o)
	}

	seed, err := service.NewSeed()
	if err != nil {
		t.Fatalf("fixtures: seed: %v", err)
	}
	game, _ := model.LookupGame("cs2")

	raffle := &model.Raffle{
		Title:        o.Title,
		Game:         game,
		Item:         model.Item{Name: o.Title, MarketHashName: o.Title + " (Field-Tested)", MarketValue: decimal.NewFromInt(120)},
		TicketPrice:  o.TicketPrice,
		TotalTickets: o.Tickets,
		Status:       o.Status,
		DrawAt:       o.DrawAt,
		CreatorID:    creator.ID,
		SeedHash:     service.CommitSeed(seed),
	}
	if err := f.Raffles.Create(ctx(t), raffle, seed); err != nil {
		t.Fatalf("fixtures: create raffle: %v", err)
	}
	return raffle
}
