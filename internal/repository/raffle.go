package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
)

type itemRecord struct {
	Name             string `json:"name"`
	MarketHashName   string `json:"market_hash_name"`
	ImageURL         string `json:"image_url"`
	Rarity           string `json:"rarity"`
	AssetID          string `json:"asset_id"`
	MarketValueCents int64  `json:"market_value_cents"`
}

func newItemRecord(i model.Item) map[string]interface{} {
	return map[string]interface{}{
		"name":               i.Name,
		"market_hash_name":   i.MarketHashName,
		"image_url":          i.ImageURL,
		"rarity":             i.Rarity,
		"asset_id":           i.AssetID,
		"market_value_cents": model.ToCents(i.MarketValue),
	}
}

func (r itemRecord) toModel() model.Item {
	return model.Item{
		Name:           r.Name,
		MarketHashName: r.MarketHashName,
		ImageURL:       r.ImageURL,
		Rarity:         r.Rarity,
		AssetID:        r.AssetID,
		MarketValue:    model.FromCents(r.MarketValueCents),
	}
}

func gameByAppID(appID int) model.Game {
	for _, g := range model.SupportedGames {
		if g.AppID == appID {
			return g
		}
	}
	return model.Game{AppID: appID, ContextID: 2}
}

type raffleRecord struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	GameAppID        int        `json:"game_app_id"`
	Item             itemRecord `json:"item"`
	TicketPriceCents int64      `json:"ticket_price_cents"`
	TotalTickets     int        `json:"total_tickets"`
	TicketsSold      int        `json:"tickets_sold"`
	Status           string     `json:"status"`
	DrawAt           time.Time  `json:"draw_at"`
	Creator          string     `json:"creator"`
	Winner           *string    `json:"winner"`
	WinningTicket    *int       `json:"winning_ticket"`
	SeedHash         string     `json:"seed_hash"`
	Seed             string     `json:"seed"`
	RejectReason     *string    `json:"reject_reason"`
	CreatedOn        time.Time  `json:"created_on"`
	UpdatedOn        time.Time  `json:"updated_on"`
	DrawnOn          *time.Time `json:"drawn_on"`
}

func (r *raffleRecord) toModel() *model.Raffle {
	out := &model.Raffle{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Game:          gameByAppID(r.GameAppID),
		Item:          r.Item.toModel(),
		TicketPrice:   model.FromCents(r.TicketPriceCents),
		TotalTickets:  r.TotalTickets,
		TicketsSold:   r.TicketsSold,
		Status:        model.RaffleStatus(r.Status),
		DrawAt:        r.DrawAt,
		CreatorID:     r.Creator,
		WinnerID:      r.Winner,
		WinningTicket: r.WinningTicket,
		SeedHash:      r.SeedHash,
		RejectReason:  r.RejectReason,
		CreatedOn:     r.CreatedOn,
		UpdatedOn:     r.UpdatedOn,
		DrawnOn:       r.DrawnOn,
	}
	if r.Seed != "" {
		seed := r.Seed
		out.Seed = &seed
	}
	return out
}

type ticketRecord struct {
	ID        string    `json:"id"`
	Raffle    string    `json:"raffle"`
	Owner     string    `json:"owner"`
	Number    int       `json:"number"`
	CreatedOn time.Time `json:"created_on"`
}

func (r *ticketRecord) toModel() *model.RaffleTicket {
	return &model.RaffleTicket{
		ID:        r.ID,
		RaffleID:  r.Raffle,
		OwnerID:   r.Owner,
		Number:    r.Number,
		CreatedOn: r.CreatedOn,
	}
}

// RaffleRepository handles raffle and ticket data access
type RaffleRepository struct {
	db database.Database
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db database.Database) *RaffleRepository {
	return &RaffleRepository{db: db}
}

// Create stores a pending raffle. The seed is stored but only exposed
// once the raffle is drawn.
func (r *RaffleRepository) Create(ctx context.Context, raffle *model.Raffle, seed string) error {
	query := `
		CREATE raffle CONTENT {
			title: $title,
			description: $description,
			game_app_id: $game_app_id,
			item: $item,
			ticket_price_cents: $ticket_price_cents,
			total_tickets: $total_tickets,
			tickets_sold: 0,
			status: $status,
			draw_at: <datetime>$draw_at,
			creator: type::record($creator),
			seed_hash: $seed_hash,
			seed: $seed,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"title":              raffle.Title,
		"description":        raffle.Description,
		"game_app_id":        raffle.Game.AppID,
		"item":               newItemRecord(raffle.Item),
		"ticket_price_cents": model.ToCents(raffle.TicketPrice),
		"total_tickets":      raffle.TotalTickets,
		"status":             string(raffle.Status),
		"draw_at":            formatTime(raffle.DrawAt),
		"creator":            raffle.CreatorID,
		"seed_hash":          raffle.SeedHash,
		"seed":               seed,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}
	rec, err := firstRow[raffleRecord](result)
	if err != nil {
		return err
	}
	*raffle = *rec.toModel()
	return nil
}

// GetByID retrieves a raffle including its seed, or nil when missing
func (r *RaffleRepository) GetByID(ctx context.Context, id string) (*model.Raffle, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec, err := notFoundAsNil(decodeRecord[raffleRecord](result))
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// List returns raffles matching filter, soonest draw first
func (r *RaffleRepository) List(ctx context.Context, filter model.RaffleFilter) ([]*model.Raffle, error) {
	limit, offset := model.ClampPage(filter.Limit, filter.Offset)

	var conditions []string
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	if filter.Status != nil {
		conditions = append(conditions, "status = $status")
		vars["status"] = string(*filter.Status)
	}
	if filter.Game != "" {
		if g, ok := model.LookupGame(filter.Game); ok {
			conditions = append(conditions, "game_app_id = $game_app_id")
			vars["game_app_id"] = g.AppID
		}
	}
	if filter.CreatorID != "" {
		conditions = append(conditions, "creator = type::record($creator)")
		vars["creator"] = filter.CreatorID
	}

	query := "SELECT * FROM raffle"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY draw_at ASC LIMIT $limit START $offset"

	return r.queryRaffles(ctx, query, vars)
}

// ListDue returns active raffles that are sold out or past their draw time
func (r *RaffleRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Raffle, error) {
	query := `
		SELECT * FROM raffle
		WHERE status = "active" AND (tickets_sold >= total_tickets OR draw_at <= <datetime>$now)
		ORDER BY draw_at ASC LIMIT $limit
	`
	return r.queryRaffles(ctx, query, map[string]interface{}{"now": formatTime(now), "limit": limit})
}

func (r *RaffleRepository) queryRaffles(ctx context.Context, query string, vars map[string]interface{}) ([]*model.Raffle, error) {
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRows[raffleRecord](result)
	if err != nil {
		return nil, err
	}
	raffles := make([]*model.Raffle, 0, len(recs))
	for _, rec := range recs {
		raffles = append(raffles, rec.toModel())
	}
	return raffles, nil
}

// Transition moves a raffle from one of the allowed statuses to next.
// database.ErrConflict means the raffle was no longer in an allowed status.
func (r *RaffleRepository) Transition(ctx context.Context, id string, allowed []model.RaffleStatus, next model.RaffleStatus, reason *string) (*model.Raffle, error) {
	query := `
		UPDATE type::record($id) SET
			status = $next,
			reject_reason = $reason,
			updated_on = time::now()
		WHERE status IN $allowed
		RETURN AFTER
	`
	vars := map[string]interface{}{
		"id":      id,
		"next":    string(next),
		"reason":  reason,
		"allowed": statusStrings(allowed),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rec, err := firstRow[raffleRecord](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, database.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// PurchaseTickets assigns ticket numbers and debits the buyer in one
// transaction. A concurrent purchase that moved tickets_sold first makes
// this one fail with database.ErrConflict.
func (r *RaffleRepository) PurchaseTickets(ctx context.Context, p model.TicketOrder) error {
	batch := database.NewAtomicBatch()
	batch.Add(`
		LET $raf = (SELECT status, tickets_sold, total_tickets FROM ONLY type::record($raffle));
		IF $raf = NONE OR $raf.status != "active" { THROW "conflict: raffle not active" };
		IF $raf.tickets_sold != $expected_sold { THROW "conflict: tickets changed" };
		IF $raf.tickets_sold + $qty > $raf.total_tickets { THROW "conflict: sold out" };
		UPDATE type::record($raffle) SET tickets_sold += $qty, updated_on = time::now();
		FOR $n IN $numbers {
			CREATE raffle_ticket CONTENT {
				raffle: type::record($raffle),
				owner: type::record($owner),
				number: $n,
				created_on: time::now()
			};
		};
	`, map[string]interface{}{
		"raffle":        p.RaffleID,
		"owner":         p.BuyerID,
		"expected_sold": p.ExpectedSold,
		"qty":           len(p.Numbers),
		"numbers":       p.Numbers,
	})
	addWalletMutation(batch, p.Debit)

	return batch.Execute(ctx, r.db)
}

// Draw records the winner, reveals the seed and pays the creator
func (r *RaffleRepository) Draw(ctx context.Context, p model.DrawOutcome) error {
	batch := database.NewAtomicBatch()
	batch.Add(`
		LET $raf = (SELECT status FROM ONLY type::record($raffle));
		IF $raf = NONE OR $raf.status != "active" { THROW "conflict: raffle not active" };
		UPDATE type::record($raffle) SET
			status = "drawn",
			winner = type::record($winner),
			winning_ticket = $ticket,
			drawn_on = time::now(),
			updated_on = time::now();
	`, map[string]interface{}{
		"raffle": p.RaffleID,
		"winner": p.WinnerID,
		"ticket": p.WinningTicket,
	})
	if p.Payout != nil {
		addWalletMutation(batch, *p.Payout)
	}

	return batch.Execute(ctx, r.db)
}

// Cancel marks a raffle cancelled and applies the refunds atomically. The
// refunds are only valid for expectedSold tickets, so a sale that landed
// after they were computed fails the batch with database.ErrConflict.
func (r *RaffleRepository) Cancel(ctx context.Context, raffleID string, allowed []model.RaffleStatus, expectedSold int, reason string, refunds []model.WalletMutation) error {
	batch := database.NewAtomicBatch()
	batch.Add(`
		LET $raf = (SELECT status, tickets_sold FROM ONLY type::record($raffle));
		IF $raf = NONE OR !($raf.status IN $allowed) { THROW "conflict: raffle cannot be cancelled" };
		IF $raf.tickets_sold != $expected_sold { THROW "conflict: tickets changed" };
		UPDATE type::record($raffle) SET
			status = "cancelled",
			reject_reason = $reason,
			updated_on = time::now();
	`, map[string]interface{}{
		"raffle":        raffleID,
		"allowed":       statusStrings(allowed),
		"expected_sold": expectedSold,
		"reason":        reason,
	})
	for _, m := range refunds {
		addWalletMutation(batch, m)
	}

	return batch.Execute(ctx, r.db)
}

// TicketOwner returns the owner of ticket number in a raffle
func (r *RaffleRepository) TicketOwner(ctx context.Context, raffleID string, number int) (string, error) {
	query := `SELECT * FROM raffle_ticket WHERE raffle = type::record($raffle) AND number = $number LIMIT 1`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"raffle": raffleID, "number": number})
	if err != nil {
		return "", err
	}
	rec, err := decodeRecord[ticketRecord](result)
	if err != nil {
		return "", err
	}
	return rec.Owner, nil
}

// ListTickets returns a raffle's tickets, optionally only ownerID's
func (r *RaffleRepository) ListTickets(ctx context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error) {
	query := `SELECT * FROM raffle_ticket WHERE raffle = type::record($raffle)`
	vars := map[string]interface{}{"raffle": raffleID}
	if ownerID != "" {
		query += ` AND owner = type::record($owner)`
		vars["owner"] = ownerID
	}
	query += ` ORDER BY number ASC`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRows[ticketRecord](result)
	if err != nil {
		return nil, err
	}
	tickets := make([]*model.RaffleTicket, 0, len(recs))
	for _, rec := range recs {
		tickets = append(tickets, rec.toModel())
	}
	return tickets, nil
}

type ownerCount struct {
	Owner string `json:"owner"`
	Count int    `json:"count"`
}

// TicketCountsByOwner returns how many tickets each buyer holds
func (r *RaffleRepository) TicketCountsByOwner(ctx context.Context, raffleID string) (map[string]int, error) {
	query := `SELECT owner, count() AS count FROM raffle_ticket WHERE raffle = type::record($raffle) GROUP BY owner`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"raffle": raffleID})
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[ownerCount](result)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Owner] = row.Count
	}
	return counts, nil
}

// CountByStatus returns the number of raffles in status
func (r *RaffleRepository) CountByStatus(ctx context.Context, status model.RaffleStatus) (int, error) {
	result, err := r.db.Query(ctx, `SELECT count() FROM raffle WHERE status = $status GROUP ALL`, map[string]interface{}{"status": string(status)})
	if err != nil {
		return 0, err
	}
	return countOf(result), nil
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
