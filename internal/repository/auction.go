package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
)

type auctionRecord struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	GameAppID          int        `json:"game_app_id"`
	Item               itemRecord `json:"item"`
	Seller             string     `json:"seller"`
	StartingPriceCents int64      `json:"starting_price_cents"`
	MinIncrementCents  int64      `json:"min_increment_cents"`
	CurrentBidCents    int64      `json:"current_bid_cents"`
	Leader             *string    `json:"leader"`
	BidCount           int        `json:"bid_count"`
	Version            int64      `json:"version"`
	Status             string     `json:"status"`
	StartsAt           time.Time  `json:"starts_at"`
	EndsAt             time.Time  `json:"ends_at"`
	Extensions         int        `json:"extensions"`
	CreatedOn          time.Time  `json:"created_on"`
	UpdatedOn          time.Time  `json:"updated_on"`
	SettledOn          *time.Time `json:"settled_on"`
}

func (r *auctionRecord) toModel() *model.Auction {
	return &model.Auction{
		ID:            r.ID,
		Title:         r.Title,
		Game:          gameByAppID(r.GameAppID),
		Item:          r.Item.toModel(),
		SellerID:      r.Seller,
		StartingPrice: model.FromCents(r.StartingPriceCents),
		MinIncrement:  model.FromCents(r.MinIncrementCents),
		CurrentBid:    model.FromCents(r.CurrentBidCents),
		LeaderID:      r.Leader,
		BidCount:      r.BidCount,
		Version:       r.Version,
		Status:        model.AuctionStatus(r.Status),
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		Extensions:    r.Extensions,
		CreatedOn:     r.CreatedOn,
		UpdatedOn:     r.UpdatedOn,
		SettledOn:     r.SettledOn,
	}
}

type bidRecord struct {
	ID          string    `json:"id"`
	Auction     string    `json:"auction"`
	Bidder      string    `json:"bidder"`
	BidderName  string    `json:"bidder_name"`
	AmountCents int64     `json:"amount_cents"`
	Extended    bool      `json:"extended"`
	CreatedOn   time.Time `json:"created_on"`
}

func (r *bidRecord) toModel() *model.Bid {
	return &model.Bid{
		ID:         r.ID,
		AuctionID:  r.Auction,
		BidderID:   r.Bidder,
		BidderName: r.BidderName,
		Amount:     model.FromCents(r.AmountCents),
		Extended:   r.Extended,
		CreatedOn:  r.CreatedOn,
	}
}

// AuctionRepository handles auction and bid data access
type AuctionRepository struct {
	db database.Database
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(db database.Database) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create stores a new active auction
func (r *AuctionRepository) Create(ctx context.Context, a *model.Auction) error {
	query := `
		CREATE auction CONTENT {
			title: $title,
			game_app_id: $game_app_id,
			item: $item,
			seller: type::record($seller),
			starting_price_cents: $starting_price_cents,
			min_increment_cents: $min_increment_cents,
			current_bid_cents: 0,
			leader: NONE,
			bid_count: 0,
			version: 0,
			status: "active",
			starts_at: <datetime>$starts_at,
			ends_at: <datetime>$ends_at,
			extensions: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"title":                a.Title,
		"game_app_id":          a.Game.AppID,
		"item":                 newItemRecord(a.Item),
		"seller":               a.SellerID,
		"starting_price_cents": model.ToCents(a.StartingPrice),
		"min_increment_cents":  model.ToCents(a.MinIncrement),
		"starts_at":            formatTime(a.StartsAt),
		"ends_at":              formatTime(a.EndsAt),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}
	rec, err := firstRow[auctionRecord](result)
	if err != nil {
		return err
	}
	*a = *rec.toModel()
	return nil
}

// GetByID retrieves an auction, or nil when missing
func (r *AuctionRepository) GetByID(ctx context.Context, id string) (*model.Auction, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec, err := notFoundAsNil(decodeRecord[auctionRecord](result))
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// List returns auctions matching filter, ending soonest first
func (r *AuctionRepository) List(ctx context.Context, filter model.AuctionFilter) ([]*model.Auction, error) {
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
	if filter.SellerID != "" {
		conditions = append(conditions, "seller = type::record($seller)")
		vars["seller"] = filter.SellerID
	}

	query := "SELECT * FROM auction"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ends_at ASC LIMIT $limit START $offset"

	return r.queryAuctions(ctx, query, vars)
}

// ListDue returns active auctions whose end time has passed
func (r *AuctionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Auction, error) {
	query := `SELECT * FROM auction WHERE status = "active" AND ends_at <= <datetime>$now ORDER BY ends_at ASC LIMIT $limit`
	return r.queryAuctions(ctx, query, map[string]interface{}{"now": formatTime(now), "limit": limit})
}

func (r *AuctionRepository) queryAuctions(ctx context.Context, query string, vars map[string]interface{}) ([]*model.Auction, error) {
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRows[auctionRecord](result)
	if err != nil {
		return nil, err
	}
	auctions := make([]*model.Auction, 0, len(recs))
	for _, rec := range recs {
		auctions = append(auctions, rec.toModel())
	}
	return auctions, nil
}

// ListBids returns an auction's accepted bids, newest first
func (r *AuctionRepository) ListBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error) {
	limit, _ = model.ClampPage(limit, 0)
	query := `SELECT * FROM bid WHERE auction = type::record($auction) ORDER BY created_on DESC LIMIT $limit`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"auction": auctionID, "limit": limit})
	if err != nil {
		return nil, err
	}
	recs, err := decodeRows[bidRecord](result)
	if err != nil {
		return nil, err
	}
	bids := make([]*model.Bid, 0, len(recs))
	for _, rec := range recs {
		bids = append(bids, rec.toModel())
	}
	return bids, nil
}

// PlaceBid records a bid, moves the lead and applies the fund locks in
// one transaction. A version mismatch fails with database.ErrConflict.
func (r *AuctionRepository) PlaceBid(ctx context.Context, p model.BidPlacement) error {
	extended := 0
	if p.Extended {
		extended = 1
	}

	batch := database.NewAtomicBatch()
	batch.Add(`
		LET $auc = (SELECT status, version FROM ONLY type::record($auction));
		IF $auc = NONE OR $auc.status != "active" { THROW "conflict: auction not active" };
		IF $auc.version != $expected_version { THROW "conflict: auction changed" };
		UPDATE type::record($auction) SET
			current_bid_cents = $amount,
			leader = type::record($bidder),
			bid_count += 1,
			version += 1,
			ends_at = <datetime>$ends_at,
			extensions += $ext,
			updated_on = time::now();
		CREATE bid CONTENT {
			auction: type::record($auction),
			bidder: type::record($bidder),
			bidder_name: $bidder_name,
			amount_cents: $amount,
			extended: $extended,
			created_on: time::now()
		};
	`, map[string]interface{}{
		"auction":          p.AuctionID,
		"bidder":           p.BidderID,
		"bidder_name":      p.BidderName,
		"amount":           p.AmountCents,
		"expected_version": p.ExpectedVersion,
		"ends_at":          formatTime(p.EndsAt),
		"ext":              extended,
		"extended":         p.Extended,
	})
	for _, m := range p.Mutations {
		addWalletMutation(batch, m)
	}

	return batch.Execute(ctx, r.db)
}

// Close moves an active auction to a terminal status and applies the
// settlement or refund mutations atomically
func (r *AuctionRepository) Close(ctx context.Context, auctionID string, status model.AuctionStatus, mutations []model.WalletMutation) error {
	batch := database.NewAtomicBatch()
	batch.Add(`
		LET $auc = (SELECT status FROM ONLY type::record($auction));
		IF $auc = NONE OR $auc.status != "active" { THROW "conflict: auction not active" };
		UPDATE type::record($auction) SET
			status = $status,
			version += 1,
			settled_on = time::now(),
			updated_on = time::now();
	`, map[string]interface{}{
		"auction": auctionID,
		"status":  string(status),
	})
	for _, m := range mutations {
		addWalletMutation(batch, m)
	}

	return batch.Execute(ctx, r.db)
}

// CountByStatus returns the number of auctions in status
func (r *AuctionRepository) CountByStatus(ctx context.Context, status model.AuctionStatus) (int, error) {
	result, err := r.db.Query(ctx, `SELECT count() FROM auction WHERE status = $status GROUP ALL`, map[string]interface{}{"status": string(status)})
	if err != nil {
		return 0, err
	}
	return countOf(result), nil
}
