// Package settlement computes bet outcomes against declared results.
package settlement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/numbers"
	"github.com/matka-platform/result-engine/internal/app/events"
	"github.com/matka-platform/result-engine/internal/app/metrics"
	"github.com/matka-platform/result-engine/internal/app/storage"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// Service settles outstanding bets when a result is declared. Settlement is
// a pure recompute over the currently declared numbers, so re-running a pass
// writes the same outcome it wrote before.
type Service struct {
	store  storage.BetStore
	events *events.Publisher
	log    *logger.Logger
}

// New constructs a settlement service.
func New(store storage.BetStore, publisher *events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settlement")
	}
	return &Service{store: store, events: publisher, log: log}
}

// SettleOpen resolves open-type bets against a freshly declared open result.
// Sangam selections never resolve here; they need the close draw.
func (s *Service) SettleOpen(ctx context.Context, marketID, day, openNumber string, openAnk int) (int, error) {
	bets, err := s.store.ListUnsettledBets(ctx, marketID, day, []bet.Type{bet.TypeOpen})
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, b := range bets {
		total := 0.0
		for _, sel := range b.Selections {
			total += openWin(sel, openNumber, openAnk)
		}
		if err := s.writeOutcome(ctx, b, total); err != nil {
			s.log.WithError(err).WithField("bet_id", b.ID).Warn("write open settlement failed")
			continue
		}
		settled++
	}

	s.publishSettled(ctx, marketID, day, "open", settled)
	return settled, nil
}

// SettleClose resolves close- and both-type bets against the full day's
// declared numbers, including sangam patterns.
func (s *Service) SettleClose(ctx context.Context, marketID, day, openNumber string, openAnk int, closeNumber string, closeAnk int) (int, error) {
	bets, err := s.store.ListUnsettledBets(ctx, marketID, day, []bet.Type{bet.TypeClose, bet.TypeBoth})
	if err != nil {
		return 0, err
	}

	combinedAnk := numbers.CombineAnks(openAnk, closeAnk)

	settled := 0
	for _, b := range bets {
		total := 0.0
		for _, sel := range b.Selections {
			total += closeWin(sel, openNumber, openAnk, closeNumber, closeAnk, combinedAnk)
		}
		if err := s.writeOutcome(ctx, b, total); err != nil {
			s.log.WithError(err).WithField("bet_id", b.ID).Warn("write close settlement failed")
			continue
		}
		settled++
	}

	s.publishSettled(ctx, marketID, day, "close", settled)
	return settled, nil
}

// openWin returns the payout a selection earns from the open draw. Exact
// panna matches pay at the panna class rate; ank matches pay only for
// non-double classes. Doubles never match in the open phase.
func openWin(sel bet.Selection, openNumber string, openAnk int) float64 {
	switch sel.Kind {
	case bet.KindPanna:
		if sel.Panna == openNumber {
			return sel.Amount * float64(sel.Rate)
		}
	case bet.KindSingle:
		if sel.Value == openAnk {
			return sel.Amount * float64(sel.Rate)
		}
	}
	return 0
}

// closeWin returns the payout a selection earns once the close is declared.
// Doubles match the combined two-digit main; singles match the close-side
// ank; pannas match the close number exactly; sangams match their own
// patterns.
func closeWin(sel bet.Selection, openNumber string, openAnk int, closeNumber string, closeAnk, combinedAnk int) float64 {
	switch sel.Kind {
	case bet.KindPanna:
		if sel.Panna == closeNumber {
			return sel.Amount * float64(sel.Rate)
		}
	case bet.KindDouble:
		if sel.Value == combinedAnk {
			return sel.Amount * float64(sel.Rate)
		}
	case bet.KindSingle:
		if sel.Value == closeAnk {
			return sel.Amount * float64(sel.Rate)
		}
	case bet.KindHalfSangam:
		if matchHalfSangam(sel.Half, openNumber, openAnk, closeNumber, closeAnk) {
			return sel.Amount * float64(sel.Rate)
		}
	case bet.KindFullSangam:
		if matchFullSangam(sel.Full, openNumber, closeNumber) {
			return sel.Amount * float64(sel.Rate)
		}
	}
	return 0
}

// matchHalfSangam wins when the key reads open-number X close-ank, or
// open-ank X close-number. Either side may carry the panna.
func matchHalfSangam(half *bet.HalfSangam, openNumber string, openAnk int, closeNumber string, closeAnk int) bool {
	if half == nil {
		return false
	}
	if half.Left == openNumber {
		if right, err := strconv.Atoi(half.Right); err == nil && right == closeAnk {
			return true
		}
	}
	if half.Right == closeNumber {
		if left, err := strconv.Atoi(half.Left); err == nil && left == openAnk {
			return true
		}
	}
	return false
}

// matchFullSangam wins only on the exact open number, the concatenated pair
// of draw digit sums, and the exact close number. The middle segment is
// compared as text, so "190X01X128" and "190X1X128" are different patterns
// and only the former matches digit sums 0 and 1.
func matchFullSangam(full *bet.FullSangam, openNumber, closeNumber string) bool {
	if full == nil {
		return false
	}
	combined := fmt.Sprintf("%d%d", numbers.DigitSum(openNumber), numbers.DigitSum(closeNumber))
	return full.Open == openNumber && full.Anks == combined && full.Close == closeNumber
}

// writeOutcome replaces the bet's settlement fields with the recomputed
// totals.
func (s *Service) writeOutcome(ctx context.Context, b bet.Bet, total float64) error {
	now := time.Now().UTC()
	if total > 0 {
		b.Outcome = bet.OutcomeWon
		b.WinAmount = total
	} else {
		b.Outcome = bet.OutcomeLoss
		b.WinAmount = 0
	}
	b.SettledAt = &now

	if _, err := s.store.UpdateBet(ctx, b); err != nil {
		return err
	}
	metrics.RecordSettledBet(string(b.Outcome))
	return nil
}

func (s *Service) publishSettled(ctx context.Context, marketID, day, phase string, count int) {
	if count == 0 {
		return
	}
	s.log.WithField("market_id", marketID).
		WithField("day", day).
		WithField("phase", phase).
		WithField("count", count).
		Info("bets settled")
	s.events.Publish(ctx, events.BetsSettled, map[string]any{
		"market_id": marketID,
		"day":       day,
		"phase":     phase,
		"count":     count,
	})
}
