package service

import (
	"context"
	"sync"
	"testing"

	"ticket-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanFixture(t *testing.T) (*ScanService, *fakeStore, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	pg := &fakeGateway{}
	pub := &fakePublisher{}

	ticketSvc := NewTicketService(store, pg, pub, nil)
	completedOrder(t, ticketSvc, store, pg)

	return NewScanService(store, pub, nil), store, pub
}

func TestRedeemAdmits(t *testing.T) {
	svc, store, pub := newScanFixture(t)

	outcome, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE-3", "north gate")
	require.NoError(t, err)

	assert.Equal(t, RedeemAdmitted, outcome.Status)
	assert.Equal(t, "ORDER1", outcome.OrderID)
	assert.Equal(t, "홍길동", outcome.CustomerName)
	require.Len(t, outcome.Tickets, 2)
	require.NotNil(t, outcome.ScannedAt)
	assert.Equal(t, "north gate", outcome.Location)

	tickets, err := store.GetTicketsByOrderID(context.Background(), "ORDER1")
	require.NoError(t, err)
	for _, tk := range tickets {
		assert.Equal(t, models.TicketStatusUsed, tk.Status)
		assert.NotNil(t, tk.UsedAt)
	}

	require.Len(t, pub.redeemed, 1)
	assert.Equal(t, "ORDER1", pub.redeemed[0].OrderID)
	assert.Equal(t, "GATE-3", pub.redeemed[0].ScannerID)
}

func TestRedeemSecondScanReportsFirstUse(t *testing.T) {
	svc, _, pub := newScanFixture(t)

	first, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE-3", "north gate")
	require.NoError(t, err)
	require.Equal(t, RedeemAdmitted, first.Status)

	second, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE-7", "south gate")
	require.NoError(t, err)

	assert.Equal(t, RedeemAlreadyUsed, second.Status)
	require.NotNil(t, second.ScannedAt)
	assert.Equal(t, first.ScannedAt.UTC(), second.ScannedAt.UTC())
	assert.Equal(t, "north gate", second.Location, "duplicate reports where the first scan happened")

	// only the admitting scan published an event
	assert.Len(t, pub.redeemed, 1)
}

func TestRedeemBareOrderIDCode(t *testing.T) {
	svc, _, _ := newScanFixture(t)

	outcome, err := svc.Redeem(context.Background(), "ORDER1", "GATE-3", "north gate")
	require.NoError(t, err)
	assert.Equal(t, RedeemAdmitted, outcome.Status)
}

func TestRedeemMalformedCode(t *testing.T) {
	svc, _, _ := newScanFixture(t)

	for _, code := range []string{"", "TICKET:", "TICKET:ORDER1", "TICKET:ORDER1:", "TICKET::01012345678", "junk:with:colons"} {
		outcome, err := svc.Redeem(context.Background(), code, "GATE-3", "north gate")
		require.NoError(t, err, "code %q", code)
		assert.Equal(t, RedeemInvalid, outcome.Status, "code %q", code)
	}
}

func TestRedeemUnknownOrder(t *testing.T) {
	svc, _, _ := newScanFixture(t)

	outcome, err := svc.Redeem(context.Background(), "TICKET:NOSUCH:01012345678", "GATE-3", "north gate")
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, outcome.Status)
	assert.Equal(t, "unknown order", outcome.Reason)
}

func TestRedeemPhoneMismatch(t *testing.T) {
	svc, store, _ := newScanFixture(t)

	outcome, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01099998888", "GATE-3", "north gate")
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, outcome.Status)

	// the mismatch must not consume the order
	tickets, err := store.GetTicketsByOrderID(context.Background(), "ORDER1")
	require.NoError(t, err)
	for _, tk := range tickets {
		assert.Equal(t, models.TicketStatusActive, tk.Status)
	}
}

func TestRedeemPendingOrder(t *testing.T) {
	store := newFakeStore()
	pg := &fakeGateway{}
	pub := &fakePublisher{}
	ticketSvc := NewTicketService(store, pg, pub, nil)
	preparedOrder(t, ticketSvc, store)

	svc := NewScanService(store, pub, nil)
	outcome, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE-3", "north gate")
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, outcome.Status)
	assert.Equal(t, "not a completed order", outcome.Reason)
}

func TestRedeemConcurrentScansAdmitOnce(t *testing.T) {
	svc, _, pub := newScanFixture(t)

	var wg sync.WaitGroup
	outcomes := make([]*RedeemOutcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE", "gate")
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	statuses := map[string]int{}
	for _, o := range outcomes {
		statuses[o.Status]++
	}
	assert.Equal(t, 1, statuses[RedeemAdmitted])
	assert.Equal(t, 1, statuses[RedeemAlreadyUsed])
	assert.Len(t, pub.redeemed, 1)
}

func TestUnredeemReverts(t *testing.T) {
	svc, store, pub := newScanFixture(t)

	_, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE-3", "north gate")
	require.NoError(t, err)

	require.NoError(t, svc.Unredeem(context.Background(), "ORDER1"))

	tickets, err := store.GetTicketsByOrderID(context.Background(), "ORDER1")
	require.NoError(t, err)
	for _, tk := range tickets {
		assert.Equal(t, models.TicketStatusActive, tk.Status)
		assert.Nil(t, tk.UsedAt)
	}
	require.Len(t, pub.unredeemed, 1)

	// the order is scannable again
	outcome, err := svc.Redeem(context.Background(), "TICKET:ORDER1:01012345678", "GATE-3", "north gate")
	require.NoError(t, err)
	assert.Equal(t, RedeemAdmitted, outcome.Status)
}

func TestUnredeemWithoutScan(t *testing.T) {
	svc, _, pub := newScanFixture(t)

	err := svc.Unredeem(context.Background(), "ORDER1")
	require.Error(t, err)
	assert.Empty(t, pub.unredeemed)
}
