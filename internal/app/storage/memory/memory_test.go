package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/storage"
)

func TestMarketLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateMarket(ctx, market.Market{Name: "kalyan", OpenTime: "09:30", CloseTime: "21:30"})
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created market has no ID")
	}

	created.Name = "kalyan day"
	updated, err := store.UpdateMarket(ctx, created)
	if err != nil {
		t.Fatalf("UpdateMarket: %v", err)
	}
	if updated.Name != "kalyan day" {
		t.Errorf("name = %q", updated.Name)
	}

	if _, err := store.GetMarket(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetMarket(missing) err = %v, want ErrNotFound", err)
	}
}

func TestListAutoDeclareMarkets(t *testing.T) {
	store := New()
	ctx := context.Background()

	mustCreate := func(m market.Market) market.Market {
		created, err := store.CreateMarket(ctx, m)
		if err != nil {
			t.Fatalf("CreateMarket: %v", err)
		}
		return created
	}
	auto := mustCreate(market.Market{Name: "a", OpenTime: "09:00", CloseTime: "21:00", Active: true, AutoDeclare: true})
	mustCreate(market.Market{Name: "b", OpenTime: "09:00", CloseTime: "21:00", Active: true, AutoDeclare: false})
	mustCreate(market.Market{Name: "c", OpenTime: "09:00", CloseTime: "21:00", Active: false, AutoDeclare: true})

	list, err := store.ListAutoDeclareMarkets(ctx)
	if err != nil {
		t.Fatalf("ListAutoDeclareMarkets: %v", err)
	}
	if len(list) != 1 || list[0].ID != auto.ID {
		t.Errorf("list = %+v", list)
	}
}

func TestEnsureDayResultIsStable(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.EnsureDayResult(ctx, "m1", "2026-08-29")
	if err != nil {
		t.Fatalf("EnsureDayResult: %v", err)
	}
	second, err := store.EnsureDayResult(ctx, "m1", "2026-08-29")
	if err != nil {
		t.Fatalf("repeat EnsureDayResult: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ensure created two rows: %q and %q", first.ID, second.ID)
	}
}

func TestEnsureDayResultConcurrent(t *testing.T) {
	store := New()
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			row, err := store.EnsureDayResult(ctx, "m1", "2026-08-29")
			if err != nil {
				t.Errorf("EnsureDayResult: %v", err)
				return
			}
			ids[i] = row.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent ensures returned different rows: %v", ids)
		}
	}
}

func TestUpdateDayResultDoesNotLeakPointers(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.EnsureDayResult(ctx, "m1", "2026-08-29"); err != nil {
		t.Fatalf("EnsureDayResult: %v", err)
	}
	row, _ := store.GetDayResult(ctx, "m1", "2026-08-29")
	row.Open = "356"
	if _, err := store.UpdateDayResult(ctx, row); err != nil {
		t.Fatalf("UpdateDayResult: %v", err)
	}

	// Mutating a returned row must not affect the stored copy.
	fetched, _ := store.GetDayResult(ctx, "m1", "2026-08-29")
	fetched.Open = "999"
	again, _ := store.GetDayResult(ctx, "m1", "2026-08-29")
	if again.Open != "356" {
		t.Errorf("stored open = %q, want 356", again.Open)
	}
}

func TestUpdateDayResultGuardsDeclaredNumbers(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.EnsureDayResult(ctx, "m1", "2026-08-29"); err != nil {
		t.Fatalf("EnsureDayResult: %v", err)
	}

	row, _ := store.GetDayResult(ctx, "m1", "2026-08-29")
	row.Open = "356"
	row.Main = "04"
	if _, err := store.UpdateDayResult(ctx, row); err != nil {
		t.Fatalf("first open write: %v", err)
	}

	// A racing open write loses the guard and gets the winner's row back.
	racer, _ := store.GetDayResult(ctx, "m1", "2026-08-29")
	racer.Open = "789"
	racer.Main = "06"
	got, err := store.UpdateDayResult(ctx, racer)
	if err != nil {
		t.Fatalf("racing open write: %v", err)
	}
	if got.Open != "356" || got.Main != "04" {
		t.Errorf("racing write overwrote stored open: %+v", got)
	}

	row, _ = store.GetDayResult(ctx, "m1", "2026-08-29")
	row.Close = "128"
	row.Main = "41"
	if _, err := store.UpdateDayResult(ctx, row); err != nil {
		t.Fatalf("close write: %v", err)
	}

	// Same for a racing close write.
	racer, _ = store.GetDayResult(ctx, "m1", "2026-08-29")
	racer.Close = "999"
	racer.Main = "43"
	got, err = store.UpdateDayResult(ctx, racer)
	if err != nil {
		t.Fatalf("racing close write: %v", err)
	}
	if got.Close != "128" || got.Main != "41" {
		t.Errorf("racing write overwrote stored close: %+v", got)
	}
}

func TestUpdateDayResultCloseRequiresOpen(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.EnsureDayResult(ctx, "m1", "2026-08-29"); err != nil {
		t.Fatalf("EnsureDayResult: %v", err)
	}

	row, _ := store.GetDayResult(ctx, "m1", "2026-08-29")
	row.Close = "128"
	got, err := store.UpdateDayResult(ctx, row)
	if err != nil {
		t.Fatalf("close write without open: %v", err)
	}
	if got.Close != "" {
		t.Errorf("close landed without a stored open: %+v", got)
	}
}

func TestListUnsettledBets(t *testing.T) {
	store := New()
	ctx := context.Background()

	mustBet := func(betType bet.Type, outcome bet.Outcome) bet.Bet {
		b, err := store.CreateBet(ctx, bet.Bet{
			PlayerID: "p1", MarketID: "m1", Day: "2026-08-29",
			Type: betType, Outcome: outcome,
		})
		if err != nil {
			t.Fatalf("CreateBet: %v", err)
		}
		return b
	}
	open := mustBet(bet.TypeOpen, bet.OutcomeUnsettled)
	mustBet(bet.TypeClose, bet.OutcomeUnsettled)
	mustBet(bet.TypeOpen, bet.OutcomeWon)

	list, err := store.ListUnsettledBets(ctx, "m1", "2026-08-29", []bet.Type{bet.TypeOpen})
	if err != nil {
		t.Fatalf("ListUnsettledBets: %v", err)
	}
	if len(list) != 1 || list[0].ID != open.ID {
		t.Errorf("list = %+v", list)
	}

	both, err := store.ListUnsettledBets(ctx, "m1", "2026-08-29", []bet.Type{bet.TypeOpen, bet.TypeClose})
	if err != nil {
		t.Fatalf("ListUnsettledBets: %v", err)
	}
	if len(both) != 2 {
		t.Errorf("got %d bets, want 2", len(both))
	}
}

func TestListBetsByPlayer(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.CreateBet(ctx, bet.Bet{PlayerID: "p1", MarketID: "m1", Day: "2026-08-29"}); err != nil {
			t.Fatalf("CreateBet: %v", err)
		}
	}
	if _, err := store.CreateBet(ctx, bet.Bet{PlayerID: "p2", MarketID: "m1", Day: "2026-08-29"}); err != nil {
		t.Fatalf("CreateBet: %v", err)
	}

	list, err := store.ListBetsByPlayer(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("ListBetsByPlayer: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d bets, want 2", len(list))
	}
}
