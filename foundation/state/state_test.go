package state_test

import (
	"testing"

	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

func TestState(t *testing.T) {
	s := state.NewState()

	for _, svc := range state.Services {
		if !s.Get(svc) {
			t.Fatalf("%s should start enabled", svc)
		}
	}

	var got []string
	s.Watch(func(svc state.Service, on bool) {
		if !on {
			got = append(got, svc.String())
		}
	})

	s.Set(state.Redis, false)
	s.Set(state.Store, false)

	if s.Get(state.Redis) || s.Get(state.Store) {
		t.Fatal("expected redis and store disabled")
	}
	if !s.Get(state.Monitor) {
		t.Fatal("monitor should be untouched")
	}
	if len(got) != 2 || got[0] != "redis" || got[1] != "store" {
		t.Fatalf("watchers saw %v", got)
	}
}
