package transaction

// store is the transaction table keyed by Key, unique within an
// endpoint for the lifetime of the transaction. Split into
// client/server maps since the same branch+method can in
// principle appear on both sides (we sent an INVITE and separately
// receive a loopback of it in a test harness); Role is part of Key so a
// single map would already disambiguate, but two maps keep the exported
// API strongly typed instead of returning `any`.
type store struct {
	clients map[Key]*ClientTransaction
	servers map[Key]*ServerTransaction
}

func newStore() *store {
	return &store{
		clients: make(map[Key]*ClientTransaction),
		servers: make(map[Key]*ServerTransaction),
	}
}

func (s *store) putClient(ct *ClientTransaction) error {
	if _, exists := s.clients[ct.Key()]; exists {
		return ErrDuplicateKey
	}
	s.clients[ct.Key()] = ct
	return nil
}

func (s *store) putServer(st *ServerTransaction) error {
	if _, exists := s.servers[st.Key()]; exists {
		return ErrDuplicateKey
	}
	s.servers[st.Key()] = st
	return nil
}

func (s *store) client(k Key) (*ClientTransaction, bool) {
	ct, ok := s.clients[k]
	return ct, ok
}

func (s *store) server(k Key) (*ServerTransaction, bool) {
	st, ok := s.servers[k]
	return st, ok
}

func (s *store) removeClient(k Key) { delete(s.clients, k) }
func (s *store) removeServer(k Key) { delete(s.servers, k) }

// sweep drops every transaction that has reached Terminated, called by
// Manager.Poll after firing timers.
func (s *store) sweep() {
	for k, ct := range s.clients {
		if ct.State() == StateTerminated {
			delete(s.clients, k)
		}
	}
	for k, st := range s.servers {
		if st.State() == StateTerminated {
			delete(s.servers, k)
		}
	}
}
