package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
)

// memStore is an in-memory stand-in for the SurrealDB tables the services
// touch. Wallet mutations are validated as a set before any is applied,
// mirroring the all-or-nothing batch transaction.
type memStore struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*model.User
	wallets map[string]*memWallet
	ledger  []model.WalletMutation
}

type memWallet struct {
	balance int64
	locked  int64
	points  int64
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*model.User),
		wallets: make(map[string]*memWallet),
	}
}

func (s *memStore) nextID(table string) string {
	s.seq++
	return fmt.Sprintf("%s:%d", table, s.seq)
}

// addUser creates a user holding balance centavos
func (s *memStore) addUser(name string, role model.UserRole, balance int64) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{
		ID:          s.nextID("user"),
		SteamID:     fmt.Sprintf("7656119%010d", s.seq),
		PersonaName: name,
		Role:        role,
	}
	s.users[u.ID] = u
	s.wallets[u.ID] = &memWallet{balance: balance}
	return u
}

func (s *memStore) wallet(userID string) memWallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[userID]; ok {
		return *w
	}
	return memWallet{}
}

func (s *memStore) applyLocked(muts []model.WalletMutation) error {
	next := make(map[string]memWallet)
	for _, m := range muts {
		w, ok := next[m.UserID]
		if !ok {
			cur, exists := s.wallets[m.UserID]
			if !exists {
				return database.ErrConflict
			}
			w = *cur
		}
		w.balance += m.BalanceDelta
		w.locked += m.LockedDelta
		w.points += m.PointsDelta
		if w.balance < 0 || w.locked < 0 || w.points < 0 {
			return database.ErrInsufficientFunds
		}
		next[m.UserID] = w
	}
	for id, w := range next {
		cp := w
		s.wallets[id] = &cp
	}
	s.ledger = append(s.ledger, muts...)
	return nil
}

func (s *memStore) ledgerOf(userID string, txType model.TransactionType) []model.WalletMutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WalletMutation
	for _, m := range s.ledger {
		if m.UserID == userID && m.Type == txType {
			out = append(out, m)
		}
	}
	return out
}

// ============================================================================
// Users
// ============================================================================

type memUsers struct {
	st        *memStore
	createErr error
}

func (r *memUsers) Create(_ context.Context, user *model.User, startingCents int64) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if u.SteamID == user.SteamID {
			return database.ErrDuplicate
		}
	}
	user.ID = r.st.nextID("user")
	cp := *user
	r.st.users[user.ID] = &cp
	r.st.wallets[user.ID] = &memWallet{}
	if startingCents > 0 {
		return r.st.applyLocked([]model.WalletMutation{
			creditMutation(user.ID, model.TxStartingBalance, startingCents, user.ID, "welcome credit"),
		})
	}
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if u, ok := r.st.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUsers) GetBySteamID(_ context.Context, steamID string) (*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if u.SteamID == steamID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUsers) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return (&memWallets{st: r.st}).Get(ctx, userID)
}

func (r *memUsers) UpdateLogin(_ context.Context, id string, p model.SteamProfile, role model.UserRole) (*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u.PersonaName, u.AvatarURL, u.ProfileURL, u.Role = p.PersonaName, p.AvatarURL, p.ProfileURL, role
	cp := *u
	return &cp, nil
}

func (r *memUsers) SetBanned(_ context.Context, id string, banned bool, reason *string) (*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u.Banned, u.BanReason = banned, reason
	cp := *u
	return &cp, nil
}

func (r *memUsers) List(_ context.Context, _ model.UserListFilter) ([]*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make([]*model.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUsers) Count(_ context.Context, bannedOnly bool) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, u := range r.st.users {
		if !bannedOnly || u.Banned {
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Wallets
// ============================================================================

type memWallets struct {
	st *memStore
}

func (r *memWallets) Get(_ context.Context, userID string) (*model.Wallet, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	w, ok := r.st.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &model.Wallet{
		UserID:  userID,
		Balance: model.FromCents(w.balance),
		Locked:  model.FromCents(w.locked),
		Points:  w.points,
	}, nil
}

func (r *memWallets) Apply(_ context.Context, muts ...model.WalletMutation) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.applyLocked(muts)
}

func (r *memWallets) ListTransactions(_ context.Context, userID string, _ model.TransactionFilter) ([]*model.Transaction, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*model.Transaction
	for _, m := range r.st.ledger {
		if m.UserID == userID {
			out = append(out, &model.Transaction{UserID: userID, Type: m.Type, Amount: model.FromCents(m.BalanceDelta)})
		}
	}
	return out, nil
}

// ============================================================================
// Raffles
// ============================================================================

type memRaffles struct {
	st      *memStore
	raffles map[string]*model.Raffle
	seeds   map[string]string
	tickets map[string][]*model.RaffleTicket

	// beforeCancel runs ahead of Cancel, outside the store lock
	beforeCancel func(raffleID string)
}

func newMemRaffles(st *memStore) *memRaffles {
	return &memRaffles{
		st:      st,
		raffles: make(map[string]*model.Raffle),
		seeds:   make(map[string]string),
		tickets: make(map[string][]*model.RaffleTicket),
	}
}

func (r *memRaffles) Create(_ context.Context, raffle *model.Raffle, seed string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	raffle.ID = r.st.nextID("raffle")
	raffle.CreatedOn = time.Now()
	cp := *raffle
	r.raffles[raffle.ID] = &cp
	r.seeds[raffle.ID] = seed
	s := seed
	raffle.Seed = &s
	return nil
}

func (r *memRaffles) getLocked(id string) *model.Raffle {
	raffle, ok := r.raffles[id]
	if !ok {
		return nil
	}
	cp := *raffle
	seed := r.seeds[id]
	cp.Seed = &seed
	return &cp
}

func (r *memRaffles) GetByID(_ context.Context, id string) (*model.Raffle, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.getLocked(id), nil
}

func (r *memRaffles) List(_ context.Context, filter model.RaffleFilter) ([]*model.Raffle, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*model.Raffle
	for id, raffle := range r.raffles {
		if filter.Status != nil && raffle.Status != *filter.Status {
			continue
		}
		out = append(out, r.getLocked(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRaffles) ListDue(_ context.Context, now time.Time, _ int) ([]*model.Raffle, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*model.Raffle
	for id, raffle := range r.raffles {
		if raffle.IsDue(now) {
			out = append(out, r.getLocked(id))
		}
	}
	return out, nil
}

func (r *memRaffles) Transition(_ context.Context, id string, allowed []model.RaffleStatus, next model.RaffleStatus, reason *string) (*model.Raffle, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	raffle, ok := r.raffles[id]
	if !ok || !containsStatus(allowed, raffle.Status) {
		return nil, database.ErrConflict
	}
	raffle.Status = next
	raffle.RejectReason = reason
	return r.getLocked(id), nil
}

func (r *memRaffles) PurchaseTickets(_ context.Context, order model.TicketOrder) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	raffle, ok := r.raffles[order.RaffleID]
	if !ok || raffle.Status != model.RaffleStatusActive {
		return fmt.Errorf("%w: raffle not active", database.ErrConflict)
	}
	if raffle.TicketsSold != order.ExpectedSold || raffle.TicketsSold+len(order.Numbers) > raffle.TotalTickets {
		return fmt.Errorf("%w: tickets changed", database.ErrConflict)
	}
	if err := r.st.applyLocked([]model.WalletMutation{order.Debit}); err != nil {
		return err
	}
	raffle.TicketsSold += len(order.Numbers)
	for _, n := range order.Numbers {
		r.tickets[order.RaffleID] = append(r.tickets[order.RaffleID], &model.RaffleTicket{
			ID:       r.st.nextID("raffle_ticket"),
			RaffleID: order.RaffleID,
			OwnerID:  order.BuyerID,
			Number:   n,
		})
	}
	return nil
}

func (r *memRaffles) Draw(_ context.Context, o model.DrawOutcome) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	raffle, ok := r.raffles[o.RaffleID]
	if !ok || raffle.Status != model.RaffleStatusActive {
		return database.ErrConflict
	}
	if o.Payout != nil {
		if err := r.st.applyLocked([]model.WalletMutation{*o.Payout}); err != nil {
			return err
		}
	}
	now := time.Now()
	winner, ticket := o.WinnerID, o.WinningTicket
	raffle.Status = model.RaffleStatusDrawn
	raffle.WinnerID = &winner
	raffle.WinningTicket = &ticket
	raffle.DrawnOn = &now
	return nil
}

func (r *memRaffles) Cancel(_ context.Context, id string, allowed []model.RaffleStatus, expectedSold int, reason string, refunds []model.WalletMutation) error {
	if r.beforeCancel != nil {
		r.beforeCancel(id)
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	raffle, ok := r.raffles[id]
	if !ok || !containsStatus(allowed, raffle.Status) {
		return database.ErrConflict
	}
	if raffle.TicketsSold != expectedSold {
		return fmt.Errorf("%w: tickets changed", database.ErrConflict)
	}
	if err := r.st.applyLocked(refunds); err != nil {
		return err
	}
	raffle.Status = model.RaffleStatusCancelled
	raffle.RejectReason = &reason
	return nil
}

func (r *memRaffles) TicketOwner(_ context.Context, raffleID string, number int) (string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, t := range r.tickets[raffleID] {
		if t.Number == number {
			return t.OwnerID, nil
		}
	}
	return "", database.ErrNotFound
}

func (r *memRaffles) ListTickets(_ context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*model.RaffleTicket
	for _, t := range r.tickets[raffleID] {
		if ownerID == "" || t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRaffles) TicketCountsByOwner(_ context.Context, raffleID string) (map[string]int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	counts := make(map[string]int)
	for _, t := range r.tickets[raffleID] {
		counts[t.OwnerID]++
	}
	return counts, nil
}

func (r *memRaffles) CountByStatus(_ context.Context, status model.RaffleStatus) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, raffle := range r.raffles {
		if raffle.Status == status {
			n++
		}
	}
	return n, nil
}

func containsStatus[S comparable](list []S, s S) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// Auctions
// ============================================================================

type memAuctions struct {
	st       *memStore
	auctions map[string]*model.Auction
	bids     map[string][]*model.Bid

	// beforePlaceBid runs inside PlaceBid before the version check
	beforePlaceBid func(a *model.Auction)
}

func newMemAuctions(st *memStore) *memAuctions {
	return &memAuctions{
		st:       st,
		auctions: make(map[string]*model.Auction),
		bids:     make(map[string][]*model.Bid),
	}
}

func (r *memAuctions) Create(_ context.Context, a *model.Auction) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a.ID = r.st.nextID("auction")
	a.Status = model.AuctionStatusActive
	cp := *a
	r.auctions[a.ID] = &cp
	return nil
}

func (r *memAuctions) GetByID(_ context.Context, id string) (*model.Auction, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if a, ok := r.auctions[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memAuctions) List(_ context.Context, _ model.AuctionFilter) ([]*model.Auction, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*model.Auction
	for _, a := range r.auctions {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memAuctions) ListDue(_ context.Context, now time.Time, _ int) ([]*model.Auction, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*model.Auction
	for _, a := range r.auctions {
		if a.Status == model.AuctionStatusActive && !now.Before(a.EndsAt) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAuctions) ListBids(_ context.Context, auctionID string, limit int) ([]*model.Bid, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	all := r.bids[auctionID]
	var out []*model.Bid
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (r *memAuctions) PlaceBid(_ context.Context, p model.BidPlacement) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a, ok := r.auctions[p.AuctionID]
	if !ok || a.Status != model.AuctionStatusActive {
		return database.ErrConflict
	}
	if r.beforePlaceBid != nil {
		r.beforePlaceBid(a)
	}
	if a.Version != p.ExpectedVersion {
		return fmt.Errorf("%w: auction changed", database.ErrConflict)
	}
	if err := r.st.applyLocked(p.Mutations); err != nil {
		return err
	}
	leader := p.BidderID
	a.CurrentBid = model.FromCents(p.AmountCents)
	a.LeaderID = &leader
	a.BidCount++
	a.Version++
	a.EndsAt = p.EndsAt
	if p.Extended {
		a.Extensions++
	}
	r.bids[a.ID] = append(r.bids[a.ID], &model.Bid{
		ID:         r.st.nextID("bid"),
		AuctionID:  a.ID,
		BidderID:   p.BidderID,
		BidderName: p.BidderName,
		Amount:     model.FromCents(p.AmountCents),
		Extended:   p.Extended,
	})
	return nil
}

func (r *memAuctions) Close(_ context.Context, id string, status model.AuctionStatus, muts []model.WalletMutation) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok || a.Status != model.AuctionStatusActive {
		return database.ErrConflict
	}
	if err := r.st.applyLocked(muts); err != nil {
		return err
	}
	now := time.Now()
	a.Status = status
	a.Version++
	a.SettledOn = &now
	return nil
}

func (r *memAuctions) CountByStatus(_ context.Context, status model.AuctionStatus) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, a := range r.auctions {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Moderation and support
// ============================================================================

type memModeration struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*model.Report
	audit   []*model.AuditLog
}

func newMemModeration() *memModeration {
	return &memModeration{reports: make(map[string]*model.Report)}
}

func (r *memModeration) CreateReport(_ context.Context, report *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	report.ID = fmt.Sprintf("report:%d", r.seq)
	report.Status = model.ReportStatusOpen
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *memModeration) GetReport(_ context.Context, id string) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.reports[id]; ok {
		cp := *rep
		return &cp, nil
	}
	return nil, nil
}

func (r *memModeration) ListReports(_ context.Context, _ model.ReportFilter) ([]*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Report
	for _, rep := range r.reports {
		cp := *rep
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memModeration) HasOpenReport(_ context.Context, reporterID string, targetType model.ReportTargetType, targetID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.ReporterID == reporterID && rep.TargetType == targetType && rep.TargetID == targetID && rep.Status == model.ReportStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (r *memModeration) ReviewReport(_ context.Context, id, reviewerID string, status model.ReportStatus, notes *string) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok || rep.Status != model.ReportStatusOpen {
		return nil, database.ErrConflict
	}
	rep.Status = status
	rep.ReviewedByID = &reviewerID
	rep.ReviewNotes = notes
	cp := *rep
	return &cp, nil
}

func (r *memModeration) CountOpenReports(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rep := range r.reports {
		if rep.Status == model.ReportStatusOpen {
			n++
		}
	}
	return n, nil
}

func (r *memModeration) CreateAuditLog(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.ID = fmt.Sprintf("audit_log:%d", r.seq)
	r.audit = append(r.audit, entry)
	return nil
}

func (r *memModeration) ListAuditLogs(_ context.Context, _, _ int) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.AuditLog(nil), r.audit...), nil
}

func (r *memModeration) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.audit))
	for _, a := range r.audit {
		out = append(out, a.Action)
	}
	return out
}

type memSupport struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*model.SupportTicket
}

func newMemSupport() *memSupport {
	return &memSupport{tickets: make(map[string]*model.SupportTicket)}
}

func (r *memSupport) Create(_ context.Context, ownerID, subject, body string) (*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t := &model.SupportTicket{
		ID:       fmt.Sprintf("support_ticket:%d", r.seq),
		OwnerID:  ownerID,
		Subject:  subject,
		Status:   model.TicketStatusOpen,
		Messages: []model.TicketMessage{{AuthorID: ownerID, Body: body}},
	}
	r.tickets[t.ID] = t
	cp := *t
	return &cp, nil
}

func (r *memSupport) GetByID(_ context.Context, id string) (*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tickets[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r *memSupport) List(_ context.Context, filter model.TicketFilter) ([]*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SupportTicket
	for _, t := range r.tickets {
		if filter.OwnerID != "" && t.OwnerID != filter.OwnerID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memSupport) AddMessage(_ context.Context, id, authorID, body string, fromStaff bool, next model.TicketStatus) (*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.Status == model.TicketStatusClosed {
		return nil, database.ErrConflict
	}
	t.Messages = append(t.Messages, model.TicketMessage{AuthorID: authorID, Body: body, FromStaff: fromStaff})
	t.Status = next
	cp := *t
	return &cp, nil
}

func (r *memSupport) Close(_ context.Context, id string) (*model.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.Status == model.TicketStatusClosed {
		return nil, database.ErrConflict
	}
	t.Status = model.TicketStatusClosed
	cp := *t
	return &cp, nil
}

func (r *memSupport) CountOpen(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tickets {
		if t.Status == model.TicketStatusOpen {
			n++
		}
	}
	return n, nil
}

// recordingNotifier collects alerts
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}
