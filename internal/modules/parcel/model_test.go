package parcel

import "testing"

// TestCanTransition verifies the state machine transition table.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNone, StatusPending, true},
		{StatusPending, StatusPickedUp, true},
		{StatusPickedUp, StatusInTransit, true},
		{StatusPickedUp, StatusDelivered, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusPickedUp, StatusCancelled, true},
		// terminal states have no outgoing transitions
		{StatusDelivered, StatusPickedUp, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		// no skipping or going back
		{StatusPending, StatusInTransit, false},
		{StatusPending, StatusDelivered, false},
		{StatusInTransit, StatusPickedUp, false},
		{StatusInTransit, StatusCancelled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCanTransitionPayment(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentFailed, PaymentPending, true},
		{PaymentFailed, PaymentPaid, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentPaid, PaymentFailed, false},
	}
	for _, tc := range cases {
		if got := CanTransitionPayment(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionPayment(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusDelivered, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if len(AllowedTransitions[s]) != 0 {
			t.Errorf("%s has outgoing transitions", s)
		}
	}
	if StatusPending.Terminal() {
		t.Errorf("pending should not be terminal")
	}
}

func TestAvailable(t *testing.T) {
	p := &Parcel{Status: StatusPending, PaymentStatus: PaymentPending}
	if !p.Available(false) {
		t.Errorf("unpaid parcel should be available without payment gating")
	}
	if p.Available(true) {
		t.Errorf("unpaid parcel should be hidden with payment gating")
	}
	p.PaymentStatus = PaymentPaid
	if !p.Available(true) {
		t.Errorf("paid parcel should be available")
	}
	p.Status = StatusPickedUp
	if p.Available(false) {
		t.Errorf("picked up parcel should not be available")
	}
}

func TestTrackingNumberFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tn := NewTrackingNumber()
		if len(tn) != 10 {
			t.Fatalf("tracking number %q has length %d", tn, len(tn))
		}
		for _, c := range tn {
			if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
				t.Fatalf("tracking number %q has non upper-hex char %q", tn, c)
			}
		}
		seen[tn] = true
	}
	if len(seen) < 99 {
		t.Errorf("too many collisions: %d unique of 100", len(seen))
	}
}
