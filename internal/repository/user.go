package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
)

// userRecord is the stored shape of a user; the wallet lives on the same row
type userRecord struct {
	ID              string     `json:"id"`
	SteamID         string     `json:"steam_id"`
	PersonaName     string     `json:"persona_name"`
	AvatarURL       string     `json:"avatar_url"`
	ProfileURL      string     `json:"profile_url"`
	Role            string     `json:"role"`
	Banned          bool       `json:"banned"`
	BanReason       *string    `json:"ban_reason"`
	BalanceCents    int64      `json:"balance_cents"`
	LockedCents     int64      `json:"locked_cents"`
	Points          int64      `json:"points"`
	WalletUpdatedOn *time.Time `json:"wallet_updated_on"`
	CreatedOn       time.Time  `json:"created_on"`
	UpdatedOn       time.Time  `json:"updated_on"`
	LoginOn         *time.Time `json:"login_on"`
}

func (r *userRecord) toUser() *model.User {
	return &model.User{
		ID:          r.ID,
		SteamID:     r.SteamID,
		PersonaName: r.PersonaName,
		AvatarURL:   r.AvatarURL,
		ProfileURL:  r.ProfileURL,
		Role:        model.UserRole(r.Role),
		Banned:      r.Banned,
		BanReason:   r.BanReason,
		CreatedOn:   r.CreatedOn,
		UpdatedOn:   r.UpdatedOn,
		LoginOn:     r.LoginOn,
	}
}

func (r *userRecord) toWallet() *model.Wallet {
	w := &model.Wallet{
		UserID:    r.ID,
		Balance:   model.FromCents(r.BalanceCents),
		Locked:    model.FromCents(r.LockedCents),
		Points:    r.Points,
		UpdatedOn: r.UpdatedOn,
	}
	if r.WalletUpdatedOn != nil {
		w.UpdatedOn = *r.WalletUpdatedOn
	}
	return w
}

// UserRepository handles user data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new Steam user. A positive startingCents funds the
// wallet, and its starting_balance ledger row commits with the user.
func (r *UserRepository) Create(ctx context.Context, user *model.User, startingCents int64) error {
	role := user.Role
	if role == "" {
		role = model.UserRoleUser
	}

	batch := database.NewAtomicBatch()
	batch.Add(`
		LET $u = (CREATE ONLY user CONTENT {
			steam_id: $steam_id,
			persona_name: $persona_name,
			avatar_url: $avatar_url,
			profile_url: $profile_url,
			role: $role,
			banned: false,
			balance_cents: $starting,
			locked_cents: 0,
			points: 0,
			created_on: time::now(),
			updated_on: time::now(),
			login_on: time::now()
		});
		IF $starting > 0 {
			CREATE wallet_tx CONTENT {
				user: $u.id,
				type: $tx_type,
				balance_delta_cents: $starting,
				locked_delta_cents: 0,
				points_delta: 0,
				balance_after_cents: $starting,
				locked_after_cents: 0,
				reference: <string>$u.id,
				note: "welcome credit",
				created_on: time::now()
			};
		};
	`, map[string]interface{}{
		"steam_id":     user.SteamID,
		"persona_name": user.PersonaName,
		"avatar_url":   user.AvatarURL,
		"profile_url":  user.ProfileURL,
		"role":         string(role),
		"starting":     startingCents,
		"tx_type":      string(model.TxStartingBalance),
	})
	if err := batch.Execute(ctx, r.db); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: steam id already registered", database.ErrDuplicate)
		}
		return err
	}

	created, err := r.GetBySteamID(ctx, user.SteamID)
	if err != nil {
		return err
	}
	if created == nil {
		return fmt.Errorf("user %s missing after create: %w", user.SteamID, database.ErrNotFound)
	}
	*user = *created
	return nil
}

// GetByID retrieves a user by record id, or nil when missing
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	rec, err := r.getRecord(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

// GetBySteamID retrieves a user by SteamID64, or nil when missing
func (r *UserRepository) GetBySteamID(ctx context.Context, steamID string) (*model.User, error) {
	rec, err := r.getRecord(ctx, `SELECT * FROM user WHERE steam_id = $steam_id LIMIT 1`, map[string]interface{}{"steam_id": steamID})
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

// GetWallet returns the wallet held on the user row
func (r *UserRepository) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	rec, err := r.getRecord(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": userID})
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toWallet(), nil
}

func (r *UserRepository) getRecord(ctx context.Context, query string, vars map[string]interface{}) (*userRecord, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return notFoundAsNil(decodeRecord[userRecord](result))
}

// UpdateLogin refreshes the Steam profile copy, role and login time
func (r *UserRepository) UpdateLogin(ctx context.Context, id string, profile model.SteamProfile, role model.UserRole) (*model.User, error) {
	query := `
		UPDATE type::record($id) SET
			persona_name = $persona_name,
			avatar_url = $avatar_url,
			profile_url = $profile_url,
			role = $role,
			login_on = time::now(),
			updated_on = time::now()
		RETURN AFTER
	`
	vars := map[string]interface{}{
		"id":           id,
		"persona_name": profile.PersonaName,
		"avatar_url":   profile.AvatarURL,
		"profile_url":  profile.ProfileURL,
		"role":         string(role),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rec, err := firstRow[userRecord](result)
	if err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

// SetBanned bans or unbans a user
func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool, reason *string) (*model.User, error) {
	query := `
		UPDATE type::record($id) SET
			banned = $banned,
			ban_reason = $reason,
			updated_on = time::now()
		RETURN AFTER
	`
	vars := map[string]interface{}{
		"id":     id,
		"banned": banned,
		"reason": reason,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rec, err := firstRow[userRecord](result)
	if err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

// List returns users for the admin panel, newest first
func (r *UserRepository) List(ctx context.Context, filter model.UserListFilter) ([]*model.User, error) {
	limit, offset := model.ClampPage(filter.Limit, filter.Offset)

	var conditions []string
	vars := map[string]interface{}{"limit": limit, "offset": offset}

	if s := strings.TrimSpace(filter.Search); s != "" {
		conditions = append(conditions, "(string::starts_with(steam_id, $search) OR string::contains(string::lowercase(persona_name), string::lowercase($search)))")
		vars["search"] = s
	}
	if filter.Banned != nil {
		conditions = append(conditions, "banned = $banned")
		vars["banned"] = *filter.Banned
	}

	query := "SELECT * FROM user"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_on DESC LIMIT $limit START $offset"

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRows[userRecord](result)
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.toUser())
	}
	return users, nil
}

// Count returns the number of users, optionally only banned ones
func (r *UserRepository) Count(ctx context.Context, bannedOnly bool) (int, error) {
	query := `SELECT count() FROM user GROUP ALL`
	if bannedOnly {
		query = `SELECT count() FROM user WHERE banned = true GROUP ALL`
	}
	result, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	return countOf(result), nil
}
