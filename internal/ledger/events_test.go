package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/sledljivost/internal/model"
)

type recordingObserver struct {
	mu        sync.Mutex
	committed []model.Event
	rejected  []string
}

func (o *recordingObserver) TransitionCommitted(ev model.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, ev)
}

func (o *recordingObserver) TransitionRejected(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, op+":"+KindOf(err).String())
}

func TestItemEventsFollowLifecycle(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	harvestUPC(t, l, 1)
	advance(t, l, 1, model.StatePurchased)

	events, err := l.ItemEvents(ctx, 1)
	if err != nil {
		t.Fatalf("ItemEvents: %v", err)
	}

	want := []model.EventName{
		model.EventHarvested, model.EventProcessed, model.EventPacked, model.EventForSale,
		model.EventSold, model.EventShipped, model.EventReceived, model.EventPurchased,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.Name != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.Name)
		}
		if ev.UPC != 1 {
			t.Errorf("event %d: expected upc 1, got %d", i, ev.UPC)
		}
		if ev.Seq != uint64(i+1) {
			t.Errorf("event %d: expected seq %d, got %d", i, i+1, ev.Seq)
		}
	}

	var harvested model.Item
	if err := json.Unmarshal(events[0].Payload, &harvested); err != nil {
		t.Fatalf("decoding harvest payload: %v", err)
	}
	if harvested.OriginFarmName != testHarvest.FarmName || harvested.SKU != 1 {
		t.Errorf("unexpected harvest payload: %+v", harvested)
	}

	var listed struct {
		Price model.Amount `json:"price"`
	}
	if err := json.Unmarshal(events[3].Payload, &listed); err != nil {
		t.Fatalf("decoding for-sale payload: %v", err)
	}
	if listed.Price != oneEther {
		t.Errorf("expected listed price %d, got %d", oneEther, listed.Price)
	}

	if events[4].Actor != distributor || events[7].Actor != consumer {
		t.Errorf("unexpected actors: sold by %q, purchased by %q", events[4].Actor, events[7].Actor)
	}
}

func TestListEventsPages(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for upc := uint64(1); upc <= 5; upc++ {
		harvestUPC(t, l, upc)
	}

	first, err := l.ListEvents(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(first) != 2 || first[0].Seq != 1 || first[1].Seq != 2 {
		t.Fatalf("unexpected first page: %+v", first)
	}

	rest, err := l.ListEvents(ctx, first[1].Seq, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(rest) != 3 || rest[0].Seq != 3 {
		t.Errorf("expected 3 remaining events starting at seq 3, got %d", len(rest))
	}
}

func TestVerifyEvents(t *testing.T) {
	l, database := newTestLedger(t)
	ctx := context.Background()

	report, err := l.VerifyEvents(ctx)
	if err != nil {
		t.Fatalf("VerifyEvents on empty log: %v", err)
	}
	if !report.Valid || report.Events != 0 {
		t.Errorf("expected empty valid chain, got %+v", report)
	}

	harvestUPC(t, l, 1)
	harvestUPC(t, l, 2)
	advance(t, l, 1, model.StateSold)

	report, err = l.VerifyEvents(ctx)
	if err != nil {
		t.Fatalf("VerifyEvents: %v", err)
	}
	if !report.Valid || report.Events != 6 {
		t.Fatalf("expected valid chain of 6 events, got %+v", report)
	}

	// Rewrite the listed price behind the ledger's back.
	if _, err := database.Exec(`UPDATE events SET payload = '{"price":1}' WHERE seq = 5`); err != nil {
		t.Fatalf("tampering: %v", err)
	}

	report, err = l.VerifyEvents(ctx)
	if err != nil {
		t.Fatalf("VerifyEvents: %v", err)
	}
	if report.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if report.BrokenAt != 5 {
		t.Errorf("expected break at seq 5, got %d", report.BrokenAt)
	}
	if report.Events != 6 {
		t.Errorf("expected all 6 events counted, got %d", report.Events)
	}
}

func TestObserversSeeOnlyCommittedTransitions(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	obs := &recordingObserver{}
	l.AddObserver(obs)

	var subscribed []model.EventName
	l.Subscribe(func(ev model.Event) { subscribed = append(subscribed, ev.Name) })

	harvestUPC(t, l, 1)
	advance(t, l, 1, model.StateForSale)

	if _, err := l.BuyItem(ctx, distributor, 1, 1); err == nil {
		t.Fatal("expected underpaid buy to fail")
	}
	if err := l.ShipItem(ctx, outsider, 1); err == nil {
		t.Fatal("expected outsider ship to fail")
	}

	if len(obs.committed) != 4 {
		t.Errorf("expected 4 committed events, got %d", len(obs.committed))
	}
	if len(subscribed) != 4 || subscribed[3] != model.EventForSale {
		t.Errorf("unexpected subscribed events: %v", subscribed)
	}

	want := []string{"buyItem:InsufficientPayment", "shipItem:Unauthorized"}
	if len(obs.rejected) != len(want) {
		t.Fatalf("expected rejections %v, got %v", want, obs.rejected)
	}
	for i := range want {
		if obs.rejected[i] != want[i] {
			t.Errorf("rejection %d: expected %s, got %s", i, want[i], obs.rejected[i])
		}
	}
}

func TestConcurrentBuyersOneWins(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	buyers := []string{"dist-a", "dist-b", "dist-c", "dist-d"}
	for _, b := range buyers {
		if err := l.GrantRole(ctx, admin, model.RoleDistributor, b); err != nil {
			t.Fatalf("GrantRole: %v", err)
		}
	}

	harvestUPC(t, l, 1)
	advance(t, l, 1, model.StateForSale)

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, b := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = l.BuyItem(ctx, b, 1, oneEther)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case KindOf(err) != KindInvalidState:
			t.Errorf("expected losers to see InvalidState, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful buy, got %d", wins)
	}

	payments, _ := l.ItemPayments(ctx, 1)
	if len(payments) != 1 {
		t.Errorf("expected one payment, got %d", len(payments))
	}
	if l.locks.held() != 0 {
		t.Errorf("expected no item locks left, got %d", l.locks.held())
	}
}

func TestItemLocks(t *testing.T) {
	var locks itemLocks

	unlockA := locks.lock(1)
	unlockB := locks.lock(2)
	if locks.held() != 2 {
		t.Fatalf("expected 2 held locks, got %d", locks.held())
	}

	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		unlock := locks.lock(1)
		close(acquired)
		unlock()
		close(released)
	}()

	select {
	case <-acquired:
		t.Fatal("lock on upc 1 acquired while held")
	default:
	}

	unlockB()
	unlockA()
	<-acquired
	<-released

	if locks.held() != 0 {
		t.Errorf("expected no held locks, got %d", locks.held())
	}
}

func TestWithItemBlocksTransitions(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	harvestUPC(t, l, 1)
	advance(t, l, 1, model.StatePacked)

	entered := make(chan struct{})
	release := make(chan struct{})
	held := make(chan error, 1)
	go func() {
		held <- l.WithItem(ctx, 1, func(item *model.Item) error {
			if item.ItemState != model.StatePacked {
				t.Errorf("expected Packed inside WithItem, got %s", item.ItemState)
			}
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	sold := make(chan error, 1)
	go func() { sold <- l.SellItem(ctx, farmer, 1, oneEther) }()

	select {
	case err := <-sold:
		t.Fatalf("sell finished while the item was held: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-held; err != nil {
		t.Fatalf("WithItem: %v", err)
	}
	if err := <-sold; err != nil {
		t.Fatalf("SellItem: %v", err)
	}
	assertState(t, l, 1, model.StateForSale)
}

func TestWithItemUnknownItem(t *testing.T) {
	l, _ := newTestLedger(t)

	called := false
	err := l.WithItem(context.Background(), 42, func(*model.Item) error {
		called = true
		return nil
	})
	assertKind(t, err, KindNotFound)
	if called {
		t.Error("expected fn not to run for an unknown item")
	}
}
