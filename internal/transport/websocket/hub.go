package websocket

import "sync"

// hub tracks which clients watch which game.
type hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*client]struct{}
}

func newHub() *hub {
	return &hub{watchers: make(map[string]map[*client]struct{})}
}

func (that *hub) watch(gameID string, c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	clients, ok := that.watchers[gameID]
	if !ok {
		clients = make(map[*client]struct{})
		that.watchers[gameID] = clients
	}

	clients[c] = struct{}{}
}

func (that *hub) unwatch(gameID string, c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	clients, ok := that.watchers[gameID]
	if !ok {
		return
	}

	delete(clients, c)

	if len(clients) == 0 {
		delete(that.watchers, gameID)
	}
}

// drop forgets the game and returns whoever was still watching it.
func (that *hub) drop(gameID string) []*client {
	that.mu.Lock()
	defer that.mu.Unlock()

	clients := that.watchers[gameID]
	delete(that.watchers, gameID)

	result := make([]*client, 0, len(clients))
	for c := range clients {
		result = append(result, c)
	}

	return result
}

func (that *hub) clients(gameID string) []*client {
	that.mu.RLock()
	defer that.mu.RUnlock()

	clients := that.watchers[gameID]

	result := make([]*client, 0, len(clients))
	for c := range clients {
		result = append(result, c)
	}

	return result
}
