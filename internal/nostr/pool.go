package nostr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultQueryTimeout = 10 * time.Second

// Pool is a Client over a fixed set of websocket relays. Each query dials
// the relays concurrently, collects events until EOSE and deduplicates by
// event id. A relay that fails or times out never fails the whole query;
// only all relays failing does.
type Pool struct {
	relays []string
	dialer *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(relays []string) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		relays: relays,
		dialer: websocket.DefaultDialer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close tears the pool down; in-flight queries are cancelled.
func (p *Pool) Close() { p.cancel() }

func (p *Pool) FetchEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if len(p.relays) == 0 {
		return nil, errors.New("nostr: no relays configured")
	}
	ctx, cancel := p.queryContext(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		byID    = make(map[string]Event)
		order   []string
		okCount int
		wg      sync.WaitGroup
	)
	for _, url := range p.relays {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			evs, err := p.queryRelay(ctx, url, filter)
			if err != nil {
				log.Printf("nostr: query %s: %v", url, err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			okCount++
			for _, ev := range evs {
				if _, dup := byID[ev.ID]; !dup {
					byID[ev.ID] = ev
					order = append(order, ev.ID)
				}
			}
		}(url)
	}
	wg.Wait()

	if okCount == 0 {
		return nil, errors.New("nostr: all relays failed")
	}
	out := make([]Event, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func (p *Pool) Publish(ctx context.Context, ev Event) error {
	if len(p.relays) == 0 {
		return errors.New("nostr: no relays configured")
	}
	ctx, cancel := p.queryContext(ctx)
	defer cancel()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, url := range p.relays {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := p.publishRelay(ctx, url, ev); err != nil {
				log.Printf("nostr: publish %s: %v", url, err)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(url)
	}
	wg.Wait()
	if ok == 0 {
		return errors.New("nostr: publish failed on all relays")
	}
	return nil
}

// queryContext bounds the call and ties it to the pool lifetime.
func (p *Pool) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	stop := context.AfterFunc(p.ctx, cancel)
	return ctx, func() { stop(); cancel() }
}

func (p *Pool) queryRelay(ctx context.Context, url string, filter Filter) ([]Event, error) {
	conn, _, err := p.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	subID := uuid.NewString()
	req := []any{"REQ", subID, filter}
	if err := conn.WriteJSON(req); err != nil {
		return nil, err
	}
	defer func() { _ = conn.WriteJSON([]any{"CLOSE", subID}) }()

	var events []Event
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var frame []json.RawMessage
		if err := json.Unmarshal(msg, &frame); err != nil || len(frame) == 0 {
			continue
		}
		var typ string
		if err := json.Unmarshal(frame[0], &typ); err != nil {
			continue
		}
		switch typ {
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var ev Event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				continue
			}
			events = append(events, ev)
		case "EOSE":
			return events, nil
		case "NOTICE", "CLOSED":
			// informational; CLOSED without EOSE means the sub was dropped
			if typ == "CLOSED" {
				return events, nil
			}
		}
	}
}

func (p *Pool) publishRelay(ctx context.Context, url string, ev Event) error {
	conn, _, err := p.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := conn.WriteJSON([]any{"EVENT", ev}); err != nil {
		return err
	}
	// wait for the OK frame
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame []json.RawMessage
		if err := json.Unmarshal(msg, &frame); err != nil || len(frame) < 3 {
			continue
		}
		var typ, id string
		if err := json.Unmarshal(frame[0], &typ); err != nil || typ != "OK" {
			continue
		}
		if err := json.Unmarshal(frame[1], &id); err != nil || id != ev.ID {
			continue
		}
		var accepted bool
		if err := json.Unmarshal(frame[2], &accepted); err != nil {
			return err
		}
		if !accepted {
			reason := ""
			if len(frame) > 3 {
				_ = json.Unmarshal(frame[3], &reason)
			}
			return fmt.Errorf("relay rejected event: %s", reason)
		}
		return nil
	}
}
