package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/service"
)

func newTestAuction() *model.Auction {
	return &model.Auction{
		ID:            "auction:xyz",
		Title:         "Karambit | Fade",
		SellerID:      "user:seller",
		StartingPrice: dec("100.00"),
		MinIncrement:  dec("5.00"),
		CurrentBid:    dec("120.00"),
		BidCount:      3,
		Status:        model.AuctionStatusActive,
		EndsAt:        time.Date(2026, 10, 20, 22, 0, 0, 0, time.UTC),
	}
}

func TestAuctionPlaceBid_ReturnsResult(t *testing.T) {
	t.Parallel()

	h := NewAuctionHandler(&fakeAuctions{
		placeBidFunc: func(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error) {
			if !amount.Equal(dec("125.00")) {
				t.Errorf("expected amount 125.00, got %s", amount)
			}
			a := newTestAuction()
			a.CurrentBid = amount
			a.LeaderID = &userID
			return &model.BidResult{
				Bid:     &model.Bid{ID: "bid:1", AuctionID: auctionID, BidderID: userID, Amount: amount},
				Auction: a,
			}, nil
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/auctions/auction:xyz/bids", map[string]string{"amount": "125.00"}), "user:bidder")
	rr := serve("POST /v1/auctions/{auctionId}/bids", h.PlaceBid, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var result model.BidResult
	links := decodeData(t, rr.Body.Bytes(), &result)
	if result.Bid == nil || result.Bid.BidderID != "user:bidder" {
		t.Errorf("unexpected bid %+v", result.Bid)
	}
	if links["tick"] != "/v1/auctions/auction:xyz/tick" {
		t.Errorf("unexpected tick link %q", links["tick"])
	}
}

func TestAuctionPlaceBid_NumericAmountAccepted(t *testing.T) {
	t.Parallel()

	called := false
	h := NewAuctionHandler(&fakeAuctions{
		placeBidFunc: func(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error) {
			called = true
			return &model.BidResult{Auction: newTestAuction()}, nil
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/auctions/auction:xyz/bids", map[string]float64{"amount": 130.5}), "user:bidder")
	rr := serve("POST /v1/auctions/{auctionId}/bids", h.PlaceBid, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if !called {
		t.Error("expected service to be called")
	}
}

func TestAuctionPlaceBid_InvalidAmount(t *testing.T) {
	t.Parallel()

	for _, amount := range []string{"0", "-5.00", "10.001"} {
		t.Run(amount, func(t *testing.T) {
			t.Parallel()

			h := NewAuctionHandler(&fakeAuctions{})
			req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/auctions/auction:xyz/bids", map[string]string{"amount": amount}), "user:bidder")
			rr := serve("POST /v1/auctions/{auctionId}/bids", h.PlaceBid, req)

			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
			}
		})
	}
}

func TestAuctionPlaceBid_BidTooLowReportsMinimum(t *testing.T) {
	t.Parallel()

	h := NewAuctionHandler(&fakeAuctions{
		placeBidFunc: func(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error) {
			return nil, fmt.Errorf("place bid: %w", &service.BidTooLowError{Minimum: dec("125")})
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/auctions/auction:xyz/bids", map[string]string{"amount": "121.00"}), "user:bidder")
	rr := serve("POST /v1/auctions/{auctionId}/bids", h.PlaceBid, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
	problem := parseErrorResponse(t, rr.Body.Bytes())
	if problem.Code != model.ErrCodeBidTooLow {
		t.Errorf("expected code %d, got %d", model.ErrCodeBidTooLow, problem.Code)
	}
	if problem.MinBid == nil || *problem.MinBid != "125.00" {
		t.Errorf("expected min_bid 125.00, got %v", problem.MinBid)
	}
}

func TestAuctionPlaceBid_RaceLostReturnsConflict(t *testing.T) {
	t.Parallel()

	h := NewAuctionHandler(&fakeAuctions{
		placeBidFunc: func(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error) {
			return nil, service.ErrBidConflict
		},
	})

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/auctions/auction:xyz/bids", map[string]string{"amount": "125.00"}), "user:bidder")
	rr := serve("POST /v1/auctions/{auctionId}/bids", h.PlaceBid, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	if code := parseErrorResponse(t, rr.Body.Bytes()).Code; code != model.ErrCodeBidConflict {
		t.Errorf("expected code %d, got %d", model.ErrCodeBidConflict, code)
	}
}

func TestAuctionTick_NoStore(t *testing.T) {
	t.Parallel()

	h := NewAuctionHandler(&fakeAuctions{
		tickFunc: func(ctx context.Context, auctionID string) (*model.AuctionTick, error) {
			return &model.AuctionTick{AuctionID: auctionID, Status: model.AuctionStatusActive, RemainingSeconds: 42}, nil
		},
	})
	rr := serve("GET /v1/auctions/{auctionId}/tick", h.Tick, makeJSONRequest(http.MethodGet, "/v1/auctions/auction:xyz/tick", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", cc)
	}
	var tick model.AuctionTick
	decodeData(t, rr.Body.Bytes(), &tick)
	if tick.RemainingSeconds != 42 {
		t.Errorf("expected 42 seconds remaining, got %d", tick.RemainingSeconds)
	}
}

func TestAuctionBids_ClampsLimit(t *testing.T) {
	t.Parallel()

	var gotLimit int
	h := NewAuctionHandler(&fakeAuctions{
		listBidsFunc: func(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error) {
			gotLimit = limit
			return nil, nil
		},
	})
	rr := serve("GET /v1/auctions/{auctionId}/bids", h.Bids, makeJSONRequest(http.MethodGet, "/v1/auctions/auction:xyz/bids?limit=10000", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if gotLimit != model.MaxPageSize {
		t.Errorf("expected limit %d, got %d", model.MaxPageSize, gotLimit)
	}
}

func TestAuctionList_UnknownStatus(t *testing.T) {
	t.Parallel()

	h := NewAuctionHandler(&fakeAuctions{})
	rr := serve("GET /v1/auctions", h.List, makeJSONRequest(http.MethodGet, "/v1/auctions?status=live", nil))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
}

func TestAuctionCancel_WithBidsReturnsConflict(t *testing.T) {
	t.Parallel()

	h := NewAuctionHandler(&fakeAuctions{
		cancelFunc: func(ctx context.Context, auctionID, actorID string, isAdmin bool) (*model.Auction, error) {
			if isAdmin {
				t.Error("seller cancel must not be flagged as admin")
			}
			return nil, service.ErrAuctionHasLeader
		},
	})
	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/auctions/auction:xyz/cancel", nil), "user:seller")
	rr := serve("POST /v1/auctions/{auctionId}/cancel", h.Cancel, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
}
