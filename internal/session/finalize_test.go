package session

import "testing"

// A cancel arriving between the finalize snapshot and the pipeline install
// clears the finalizing flag and acknowledges the client; the install must
// then refuse so the cancelled pipeline never starts.
func TestInstallTurnRefusesAfterCancelRace(t *testing.T) {
	c := New(nil, Config{}, Collaborators{}, nil)

	c.mu.Lock()
	c.finalizing = true
	c.mu.Unlock()
	if !c.installTurn(newTurnTask(func() {})) {
		t.Fatal("install refused during an active finalize")
	}

	c.mu.Lock()
	c.turn = nil
	c.finalizing = false
	c.mu.Unlock()
	if c.installTurn(newTurnTask(func() {})) {
		t.Fatal("install accepted after a cancel cleared the finalize")
	}
	c.mu.Lock()
	if c.turn != nil {
		t.Error("refused install still published the task")
	}
	c.mu.Unlock()

	c.mu.Lock()
	c.finalizing = true
	c.closed = true
	c.mu.Unlock()
	if c.installTurn(newTurnTask(func() {})) {
		t.Fatal("install accepted on a closed session")
	}
}
