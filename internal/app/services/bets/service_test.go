package bets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, string) {
	t.Helper()
	store := memory.New()
	m, err := store.CreateMarket(context.Background(), market.Market{
		Name: "kalyan", OpenTime: "09:30", CloseTime: "21:30", Active: true,
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return New(store, store, store, nil), store, m.ID
}

func TestPlace(t *testing.T) {
	svc, _, marketID := newTestService(t)

	placed, err := svc.Place(context.Background(), PlaceRequest{
		PlayerID:   "p1",
		MarketID:   marketID,
		Day:        "2026-08-29",
		Type:       bet.TypeOpen,
		Selections: map[string]float64{"128": 100, "4": 50},
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.ID == "" || placed.Outcome != bet.OutcomeUnsettled {
		t.Errorf("placed = %+v", placed)
	}
	if len(placed.Selections) != 2 {
		t.Errorf("got %d selections, want 2", len(placed.Selections))
	}
	if placed.TotalStake() != 150 {
		t.Errorf("stake = %v, want 150", placed.TotalStake())
	}
}

func TestPlaceValidation(t *testing.T) {
	svc, _, marketID := newTestService(t)
	ctx := context.Background()

	cases := []PlaceRequest{
		{MarketID: marketID, Type: bet.TypeOpen, Selections: map[string]float64{"1": 10}},                              // no player
		{PlayerID: "p1", MarketID: marketID, Type: "sideways", Selections: map[string]float64{"1": 10}},                // bad type
		{PlayerID: "p1", MarketID: marketID, Type: bet.TypeOpen},                                                       // no selections
		{PlayerID: "p1", MarketID: marketID, Type: bet.TypeOpen, Day: "bad", Selections: map[string]float64{"1": 10}},  // bad day
		{PlayerID: "p1", MarketID: marketID, Type: bet.TypeOpen, Selections: map[string]float64{"abcd": 10}},           // bad key
	}
	for i, req := range cases {
		if _, err := svc.Place(ctx, req); err == nil {
			t.Errorf("case %d: Place succeeded, want error", i)
		}
	}

	if _, err := svc.Place(ctx, PlaceRequest{
		PlayerID: "p1", MarketID: "missing", Type: bet.TypeOpen, Selections: map[string]float64{"1": 10},
	}); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("unknown market err = %v", err)
	}
}

func TestPlaceAfterOpenDeclared(t *testing.T) {
	svc, store, marketID := newTestService(t)
	ctx := context.Background()

	declareOpen(t, store, marketID, "2026-08-29")

	_, err := svc.Place(ctx, PlaceRequest{
		PlayerID: "p1", MarketID: marketID, Day: "2026-08-29",
		Type: bet.TypeOpen, Selections: map[string]float64{"1": 10},
	})
	if !errors.Is(err, ErrOpenPhaseClosed) {
		t.Errorf("open bet err = %v, want ErrOpenPhaseClosed", err)
	}

	// Close and both bets are still welcome while only the open is out.
	for _, betType := range []bet.Type{bet.TypeClose, bet.TypeBoth} {
		if _, err := svc.Place(ctx, PlaceRequest{
			PlayerID: "p1", MarketID: marketID, Day: "2026-08-29",
			Type: betType, Selections: map[string]float64{"1": 10},
		}); err != nil {
			t.Errorf("%s bet after open declared: %v", betType, err)
		}
	}
}

func TestPlaceAfterCloseDeclared(t *testing.T) {
	svc, store, marketID := newTestService(t)
	ctx := context.Background()

	declareOpen(t, store, marketID, "2026-08-29")
	row, _ := store.GetDayResult(ctx, marketID, "2026-08-29")
	row.Close = "128"
	row.Main = "41"
	if _, err := store.UpdateDayResult(ctx, row); err != nil {
		t.Fatalf("declare close: %v", err)
	}

	for _, betType := range []bet.Type{bet.TypeOpen, bet.TypeClose, bet.TypeBoth} {
		_, err := svc.Place(ctx, PlaceRequest{
			PlayerID: "p1", MarketID: marketID, Day: "2026-08-29",
			Type: betType, Selections: map[string]float64{"1": 10},
		})
		if !errors.Is(err, ErrBettingClosed) {
			t.Errorf("%s bet err = %v, want ErrBettingClosed", betType, err)
		}
	}
}

func TestPlaceOnInactiveMarket(t *testing.T) {
	svc, store, marketID := newTestService(t)
	ctx := context.Background()

	m, _ := store.GetMarket(ctx, marketID)
	m.Active = false
	if _, err := store.UpdateMarket(ctx, m); err != nil {
		t.Fatalf("deactivate market: %v", err)
	}

	_, err := svc.Place(ctx, PlaceRequest{
		PlayerID: "p1", MarketID: marketID, Day: "2026-08-29",
		Type: bet.TypeOpen, Selections: map[string]float64{"1": 10},
	})
	if !errors.Is(err, ErrMarketInactive) {
		t.Errorf("err = %v, want ErrMarketInactive", err)
	}
}

func declareOpen(t *testing.T, store *memory.Store, marketID, day string) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.EnsureDayResult(ctx, marketID, day); err != nil {
		t.Fatalf("ensure day result: %v", err)
	}
	row, err := store.GetDayResult(ctx, marketID, day)
	if err != nil {
		t.Fatalf("get day result: %v", err)
	}
	now := time.Now().UTC()
	row.Open = "356"
	row.Main = "04"
	row.OpenDeclaredAt = &now
	if _, err := store.UpdateDayResult(ctx, row); err != nil {
		t.Fatalf("update day result: %v", err)
	}
	if row.Status() != result.StatusOpenDeclared {
		t.Fatalf("status = %q", row.Status())
	}
}
