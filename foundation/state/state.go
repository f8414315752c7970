package state

import "sync"

type Service int

const (
	Monitor Service = iota
	Recorder
	Store
	Redis
)

// Services lists every toggle in declaration order.
var Services = []Service{Monitor, Recorder, Store, Redis}

func (s Service) String() string {
	switch s {
	case Monitor:
		return "monitor"
	case Recorder:
		return "recorder"
	case Store:
		return "store"
	case Redis:
		return "redis"
	}
	return "unknown"
}

type State struct {
	sync.RWMutex

	Monitor  bool
	Recorder bool
	Store    bool
	Redis    bool

	watchers []func(Service, bool)
}

func NewState() *State {
	return &State{
		Monitor:  true,
		Recorder: true,
		Store:    true,
		Redis:    true,
	}
}

func (s *State) Get(svc Service) bool {
	s.RLock()
	defer s.RUnlock()
	{
		switch svc {
		case Monitor:
			return s.Monitor

		case Recorder:
			return s.Recorder

		case Store:
			return s.Store

		case Redis:
			return s.Redis
		}
	}
	return false
}

func (s *State) Set(svc Service, state bool) {
	s.Lock()
	{
		switch svc {
		case Monitor:
			s.Monitor = state

		case Recorder:
			s.Recorder = state

		case Store:
			s.Store = state

		case Redis:
			s.Redis = state
		}
	}
	watchers := append([]func(Service, bool){}, s.watchers...)
	s.Unlock()

	for _, fn := range watchers {
		fn(svc, state)
	}
}

// Watch registers fn to be called after every Set. fn runs outside the lock.
func (s *State) Watch(fn func(Service, bool)) {
	s.Lock()
	defer s.Unlock()
	s.watchers = append(s.watchers, fn)
}
