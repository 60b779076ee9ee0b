// Package scheduler manages the three background goroutines that run the
// oracle fulfillment pipeline:
//  1. fulfillmentLoop – consumes batch-created notifications and fulfills them.
//  2. rescanLoop      – replays batches that still hold pending slots.
//  3. settlementLoop  – settles played slots on a fixed period.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/emlakbet/housegame/internal/ws"
)

// ──────────────────────────────────────────────────────────────────────────────
// WsHub interface — minimally required from the Hub
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operations the Scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not import the
// ws/hub.go implementation and cause a circular dependency.
type WsHub interface {
	BroadcastBatchCreated(msg ws.BatchCreatedMessage)
	BroadcastFulfillment(msg ws.FulfillmentMessage)
	BroadcastSlotSettled(msg ws.SlotSettledMessage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler wires together the services and runs the three pipeline
// goroutines. Call Start(ctx) once from main(); cancel the context to shut
// it down gracefully.
type Scheduler struct {
	ledger      *service.LedgerService
	fulfillment *service.FulfillmentService
	settlement  *service.SettlementService
	hub         WsHub
	cfg         *config.Config
	logger      *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	ledger *service.LedgerService,
	fulfillment *service.FulfillmentService,
	settlement *service.SettlementService,
	hub WsHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		ledger:      ledger,
		fulfillment: fulfillment,
		settlement:  settlement,
		hub:         hub,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start launches the three background goroutines. It returns immediately;
// all loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.fulfillmentLoop(ctx)
	go s.rescanLoop(ctx)
	go s.settlementLoop(ctx)
	s.logger.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// fulfillmentLoop
// ──────────────────────────────────────────────────────────────────────────────

// fulfillmentLoop consumes batch-created notifications and runs one
// fulfillment pass per notification. Batches are handled one at a time; a
// batch's slots are processed strictly sequentially inside FulfillBatch.
func (s *Scheduler) fulfillmentLoop(ctx context.Context) {
	defer s.recoverAndLog("fulfillmentLoop")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("fulfillmentLoop: shutting down")
			return
		case n := <-s.ledger.Notifications():
			s.handleBatch(ctx, n)
		}
	}
}

func (s *Scheduler) handleBatch(ctx context.Context, n domain.BatchGamesCreated) {
	if s.hub != nil {
		s.hub.BroadcastBatchCreated(ws.BatchCreatedMessage{
			Type:        ws.MsgTypeBatchCreated,
			Player:      n.Player,
			StartGameID: n.StartGameID,
			EndGameID:   n.EndGameID,
			Timestamp:   time.Now().UTC(),
		})
	}

	report := s.fulfillment.FulfillBatch(ctx, n)

	if s.hub != nil {
		s.hub.BroadcastFulfillment(ws.FulfillmentMessage{
			Type:      ws.MsgTypeFulfillment,
			Report:    *report,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// rescanLoop
// ──────────────────────────────────────────────────────────────────────────────

// rescanLoop periodically replays batches that still contain pending slots —
// either because their notification was dropped, a previous pass was
// interrupted, or individual items failed. Replay is safe: the ledger's
// check-and-set rejects every already-initialized slot without side effects.
func (s *Scheduler) rescanLoop(ctx context.Context) {
	defer s.recoverAndLog("rescanLoop")

	ticker := time.NewTicker(s.cfg.Fulfillment.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rescanLoop: shutting down")
			return
		case <-ticker.C:
			s.rescanPending(ctx)
		}
	}
}

// rescanPending is the inner body of rescanLoop, extracted so that the
// defer/recover in the loop catches panics correctly.
func (s *Scheduler) rescanPending(ctx context.Context) {
	batches, err := s.ledger.UnfulfilledBatches(ctx, s.cfg.Fulfillment.RescanAge, 10)
	if err != nil {
		s.logger.Error("rescanLoop: list unfulfilled", "err", err)
		return
	}

	for _, b := range batches {
		s.logger.Info("replaying unfulfilled batch",
			"start", b.StartGameID, "end", b.EndGameID, "age", time.Since(b.CreatedAt).Round(time.Second))
		s.handleBatch(ctx, domain.BatchGamesCreated{
			Player:      b.Player,
			StartGameID: b.StartGameID,
			EndGameID:   b.EndGameID,
			Timestamp:   b.CreatedAt,
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// settlementLoop
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop settles played slots on a fixed period.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	defer s.recoverAndLog("settlementLoop")

	ticker := time.NewTicker(s.cfg.Fulfillment.SettleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			s.settleDue(ctx)
		}
	}
}

func (s *Scheduler) settleDue(ctx context.Context) {
	settled, err := s.settlement.SettleDueSlots(ctx)
	if err != nil {
		s.logger.Error("settlementLoop: SettleDueSlots", "err", err)
		return
	}

	if s.hub == nil {
		return
	}
	for _, slot := range settled {
		msg := ws.SlotSettledMessage{
			Type:      ws.MsgTypeSlotSettled,
			GameID:    slot.GameID,
			Player:    slot.Player,
			Timestamp: time.Now().UTC(),
		}
		if slot.Result != nil {
			msg.Result = *slot.Result
		}
		if slot.ActualPrice != nil {
			msg.ActualPrice = *slot.ActualPrice
		}
		if slot.DisplayedPrice != nil {
			msg.DisplayedPrice = *slot.DisplayedPrice
		}
		s.hub.BroadcastSlotSettled(msg)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
