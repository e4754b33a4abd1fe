package order

import "testing"

func TestCanTransition_HappyPath(t *testing.T) {
	path := []Status{StatusPending, StatusAssigned, StatusReached, StatusCollected, StatusHandedOver, StatusCompleted}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", path[i], path[i+1])
		}
	}
}

func TestCanTransition_CancellationWindow(t *testing.T) {
	cancellable := []Status{StatusPending, StatusAssigned, StatusReached}
	for _, from := range cancellable {
		if !CanTransition(from, StatusCancelled) {
			t.Errorf("expected %s -> cancelled to be allowed", from)
		}
	}

	// Samples already taken cannot be silently cancelled.
	notCancellable := []Status{StatusCollected, StatusHandedOver, StatusCompleted, StatusCancelled, StatusVoided}
	for _, from := range notCancellable {
		if CanTransition(from, StatusCancelled) {
			t.Errorf("expected %s -> cancelled to be rejected", from)
		}
	}
}

func TestCanTransition_VoidAfterCollection(t *testing.T) {
	if !CanTransition(StatusCollected, StatusVoided) {
		t.Error("collected -> voided should be allowed")
	}
	if !CanTransition(StatusHandedOver, StatusVoided) {
		t.Error("handed_over -> voided should be allowed")
	}
	if CanTransition(StatusPending, StatusVoided) || CanTransition(StatusAssigned, StatusVoided) {
		t.Error("void must not apply before collection")
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled, StatusVoided} {
		for _, to := range []Status{StatusPending, StatusAssigned, StatusReached, StatusCollected, StatusHandedOver, StatusCompleted, StatusCancelled, StatusVoided} {
			if CanTransition(terminal, to) {
				t.Errorf("terminal state %s must have no outgoing edge, found -> %s", terminal, to)
			}
		}
	}
}

func TestCanTransition_NoSkippingStages(t *testing.T) {
	if CanTransition(StatusAssigned, StatusCollected) {
		t.Error("assigned -> collected skips reached")
	}
	if CanTransition(StatusPending, StatusReached) {
		t.Error("pending -> reached skips assignment")
	}
	if CanTransition(StatusReached, StatusHandedOver) {
		t.Error("reached -> handed_over skips collected")
	}
}

func TestCanTransition_UnassignEdge(t *testing.T) {
	if !CanTransition(StatusAssigned, StatusPending) {
		t.Error("assigned -> pending (unassign) should be allowed")
	}
	if CanTransition(StatusReached, StatusPending) {
		t.Error("reached -> pending must be rejected; visit already started")
	}
}
