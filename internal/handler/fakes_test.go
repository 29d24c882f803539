package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

var errUnexpected = errors.New("boom")

// ============================================================================
// Helpers
// ============================================================================

func makeJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUserContext(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleKey, string(model.UserRoleUser))
	return req.WithContext(ctx)
}

func withAdminContext(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleKey, string(model.UserRoleAdmin))
	return req.WithContext(ctx)
}

func parseErrorResponse(t *testing.T, body []byte) *model.ProblemDetails {
	t.Helper()
	var problem model.ProblemDetails
	if err := json.Unmarshal(body, &problem); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	return &problem
}

// decodeData unmarshals the data envelope of a success response into v
func decodeData(t *testing.T, body []byte, v interface{}) map[string]string {
	t.Helper()
	var resp struct {
		Data  json.RawMessage   `json:"data"`
		Links map[string]string `json:"_links"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(resp.Data, v); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return resp.Links
}

// serve routes req through a mux so path values are populated
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ============================================================================
// Fakes
// ============================================================================

type fakeAuth struct {
	loginURLFunc      func(state string) string
	completeLoginFunc func(ctx context.Context, params url.Values) (*model.AuthResponse, error)
	refreshFunc       func(ctx context.Context, refreshToken string) (*model.AuthResponse, error)
	logoutFunc        func(ctx context.Context, userID string) error
	meFunc            func(ctx context.Context, userID string) (*model.Me, error)
}

func (f *fakeAuth) LoginURL(state string) string {
	if f.loginURLFunc != nil {
		return f.loginURLFunc(state)
	}
	return "https://steamcommunity.com/openid/login?state=" + state
}

func (f *fakeAuth) CompleteLogin(ctx context.Context, params url.Values) (*model.AuthResponse, error) {
	if f.completeLoginFunc != nil {
		return f.completeLoginFunc(ctx, params)
	}
	return nil, errUnexpected
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error) {
	if f.refreshFunc != nil {
		return f.refreshFunc(ctx, refreshToken)
	}
	return nil, errUnexpected
}

func (f *fakeAuth) Logout(ctx context.Context, userID string) error {
	if f.logoutFunc != nil {
		return f.logoutFunc(ctx, userID)
	}
	return nil
}

func (f *fakeAuth) Me(ctx context.Context, userID string) (*model.Me, error) {
	if f.meFunc != nil {
		return f.meFunc(ctx, userID)
	}
	return nil, errUnexpected
}

type fakeWallets struct {
	getWalletFunc        func(ctx context.Context, userID string) (*model.Wallet, error)
	listTransactionsFunc func(ctx context.Context, userID string, filter model.TransactionFilter) ([]*model.Transaction, error)
}

func (f *fakeWallets) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return f.getWalletFunc(ctx, userID)
}

func (f *fakeWallets) ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]*model.Transaction, error) {
	return f.listTransactionsFunc(ctx, userID, filter)
}

type fakeRaffles struct {
	createFunc      func(ctx context.Context, creatorID string, req *model.CreateRaffleRequest) (*model.Raffle, error)
	getFunc         func(ctx context.Context, id string) (*model.Raffle, error)
	listFunc        func(ctx context.Context, filter model.RaffleFilter) ([]*model.Raffle, error)
	listTicketsFunc func(ctx context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error)
	buyTicketsFunc  func(ctx context.Context, userID, raffleID string, qty int) (*model.TicketPurchase, error)
	verifyFunc      func(ctx context.Context, raffleID string) (*model.RaffleProof, error)
	cancelFunc      func(ctx context.Context, raffleID, actorID string, isAdmin bool, reason string) (*model.Raffle, error)
}

func (f *fakeRaffles) Create(ctx context.Context, creatorID string, req *model.CreateRaffleRequest) (*model.Raffle, error) {
	return f.createFunc(ctx, creatorID, req)
}

func (f *fakeRaffles) Get(ctx context.Context, id string) (*model.Raffle, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeRaffles) List(ctx context.Context, filter model.RaffleFilter) ([]*model.Raffle, error) {
	return f.listFunc(ctx, filter)
}

func (f *fakeRaffles) ListTickets(ctx context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error) {
	return f.listTicketsFunc(ctx, raffleID, ownerID)
}

func (f *fakeRaffles) BuyTickets(ctx context.Context, userID, raffleID string, qty int) (*model.TicketPurchase, error) {
	return f.buyTicketsFunc(ctx, userID, raffleID, qty)
}

func (f *fakeRaffles) Verify(ctx context.Context, raffleID string) (*model.RaffleProof, error) {
	return f.verifyFunc(ctx, raffleID)
}

func (f *fakeRaffles) Cancel(ctx context.Context, raffleID, actorID string, isAdmin bool, reason string) (*model.Raffle, error) {
	return f.cancelFunc(ctx, raffleID, actorID, isAdmin, reason)
}

type fakeAuctions struct {
	createFunc   func(ctx context.Context, sellerID string, req *model.CreateAuctionRequest) (*model.Auction, error)
	getFunc      func(ctx context.Context, id string) (*model.Auction, error)
	listFunc     func(ctx context.Context, filter model.AuctionFilter) ([]*model.Auction, error)
	listBidsFunc func(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error)
	tickFunc     func(ctx context.Context, auctionID string) (*model.AuctionTick, error)
	placeBidFunc func(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error)
	cancelFunc   func(ctx context.Context, auctionID, actorID string, isAdmin bool) (*model.Auction, error)
}

func (f *fakeAuctions) Create(ctx context.Context, sellerID string, req *model.CreateAuctionRequest) (*model.Auction, error) {
	return f.createFunc(ctx, sellerID, req)
}

func (f *fakeAuctions) Get(ctx context.Context, id string) (*model.Auction, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeAuctions) List(ctx context.Context, filter model.AuctionFilter) ([]*model.Auction, error) {
	return f.listFunc(ctx, filter)
}

func (f *fakeAuctions) ListBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error) {
	return f.listBidsFunc(ctx, auctionID, limit)
}

func (f *fakeAuctions) Tick(ctx context.Context, auctionID string) (*model.AuctionTick, error) {
	return f.tickFunc(ctx, auctionID)
}

func (f *fakeAuctions) PlaceBid(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error) {
	return f.placeBidFunc(ctx, userID, auctionID, amount)
}

func (f *fakeAuctions) Cancel(ctx context.Context, auctionID, actorID string, isAdmin bool) (*model.Auction, error) {
	return f.cancelFunc(ctx, auctionID, actorID, isAdmin)
}

type fakeModeration struct {
	createReportFunc func(ctx context.Context, reporterID string, req *model.CreateReportRequest) (*model.Report, error)
	listReportsFunc  func(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error)
	reviewReportFunc func(ctx context.Context, adminID, reportID string, req *model.ReviewReportRequest) (*model.Report, error)
	openTicketFunc   func(ctx context.Context, userID string, req *model.CreateTicketRequest) (*model.SupportTicket, error)
	listTicketsFunc  func(ctx context.Context, userID string, isAdmin bool, filter model.TicketFilter) ([]*model.SupportTicket, error)
	getTicketFunc    func(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error)
	replyTicketFunc  func(ctx context.Context, userID string, isAdmin bool, ticketID, body string) (*model.SupportTicket, error)
	closeTicketFunc  func(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error)
}

func (f *fakeModeration) CreateReport(ctx context.Context, reporterID string, req *model.CreateReportRequest) (*model.Report, error) {
	return f.createReportFunc(ctx, reporterID, req)
}

func (f *fakeModeration) ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error) {
	return f.listReportsFunc(ctx, filter)
}

func (f *fakeModeration) ReviewReport(ctx context.Context, adminID, reportID string, req *model.ReviewReportRequest) (*model.Report, error) {
	return f.reviewReportFunc(ctx, adminID, reportID, req)
}

func (f *fakeModeration) OpenTicket(ctx context.Context, userID string, req *model.CreateTicketRequest) (*model.SupportTicket, error) {
	return f.openTicketFunc(ctx, userID, req)
}

func (f *fakeModeration) ListTickets(ctx context.Context, userID string, isAdmin bool, filter model.TicketFilter) ([]*model.SupportTicket, error) {
	return f.listTicketsFunc(ctx, userID, isAdmin, filter)
}

func (f *fakeModeration) GetTicket(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error) {
	return f.getTicketFunc(ctx, userID, isAdmin, ticketID)
}

func (f *fakeModeration) ReplyTicket(ctx context.Context, userID string, isAdmin bool, ticketID, body string) (*model.SupportTicket, error) {
	return f.replyTicketFunc(ctx, userID, isAdmin, ticketID, body)
}

func (f *fakeModeration) CloseTicket(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error) {
	return f.closeTicketFunc(ctx, userID, isAdmin, ticketID)
}

type fakeInventory struct {
	getProfileFunc   func(ctx context.Context, steamID string) (*model.PlayerSummary, error)
	getInventoryFunc func(ctx context.Context, steamID, gameKey string, priced bool) (*model.Inventory, error)
	getItemPriceFunc func(ctx context.Context, gameKey, marketHashName string) (*model.MarketPrice, error)
}

func (f *fakeInventory) GetProfile(ctx context.Context, steamID string) (*model.PlayerSummary, error) {
	return f.getProfileFunc(ctx, steamID)
}

func (f *fakeInventory) GetInventory(ctx context.Context, steamID, gameKey string, priced bool) (*model.Inventory, error) {
	return f.getInventoryFunc(ctx, steamID, gameKey, priced)
}

func (f *fakeInventory) GetItemPrice(ctx context.Context, gameKey, marketHashName string) (*model.MarketPrice, error) {
	return f.getItemPriceFunc(ctx, gameKey, marketHashName)
}
