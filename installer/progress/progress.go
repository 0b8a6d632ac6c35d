// Package progress implements the installer's progress cell: the IVSE
// writes a 0-100 fraction to it, and the GUI (or a headless test harness)
// is a thin observer of that cell (spec.md design note "Installer GUI
// decoupling"). Observers attach over a websocket.
package progress

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Publisher holds the current progress fraction and fans it out to every
// attached websocket observer.
type Publisher struct {
	mu        sync.Mutex
	fraction  int
	observers map[*websocket.Conn]struct{}
	upgrader  websocket.Upgrader
}

// NewPublisher returns a Publisher starting at 0%.
func NewPublisher() *Publisher {
	return &Publisher{
		observers: make(map[*websocket.Conn]struct{}),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Publish sets the current fraction and pushes it to every attached
// observer, dropping any connection that errors on write.
func (p *Publisher) Publish(fraction int) {
	p.mu.Lock()
	p.fraction = fraction
	conns := make([]*websocket.Conn, 0, len(p.observers))
	for c := range p.observers {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(map[string]int{"progress": fraction}); err != nil {
			p.remove(c)
			_ = c.Close()
		}
	}
}

// Fraction returns the current progress fraction, for a GUI that polls
// instead of subscribing.
func (p *Publisher) Fraction() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction
}

// ServeWS upgrades r to a websocket connection and registers it as an
// observer until it disconnects.
func (p *Publisher) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p.mu.Lock()
	p.observers[conn] = struct{}{}
	current := p.fraction
	p.mu.Unlock()

	_ = conn.WriteJSON(map[string]int{"progress": current})

	go func() {
		defer func() {
			p.remove(conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

func (p *Publisher) remove(conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.observers, conn)
}
