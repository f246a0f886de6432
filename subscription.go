package logicclient

import (
	"sync"

	"github.com/nitrogenlogic/logicclient/kvp"
)

// SubscriptionHandler receives parameter value changes.
type SubscriptionHandler func(objID, index int, value any)

type subscriptionKey struct {
	objID int
	index int
}

// Subscription tracks the last known value of one parameter.
//
// The server side of subscriptions is not finished: the client only matches
// SUB lines that carry objid and index pairs against locally registered
// subscriptions.
type Subscription struct {
	client  *Client
	key     subscriptionKey
	handler SubscriptionHandler

	mu    sync.Mutex
	value any
}

// Subscribe registers handler for changes to the given parameter, replacing
// any earlier subscription to it. Handlers run on the client's notification
// goroutine, never on the reader.
func (c *Client) Subscribe(objID, index int, handler SubscriptionHandler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	sub := &Subscription{
		client:  c,
		key:     subscriptionKey{objID: objID, index: index},
		handler: handler,
	}

	c.mu.Lock()
	c.subs[sub.key] = sub
	c.mu.Unlock()

	return sub, nil
}

// Unsubscribe removes sub. Notifications already scheduled still run.
func (c *Client) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[sub.key] == sub {
		delete(c.subs, sub.key)
	}
}

// ObjID returns the object ID of the watched parameter.
func (s *Subscription) ObjID() int { return s.key.objID }

// Index returns the parameter index within the object.
func (s *Subscription) Index() int { return s.key.index }

// Value returns the last value received.
func (s *Subscription) Value() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// update stores v and schedules the handler for the next notification turn.
func (s *Subscription) update(v any) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()

	s.client.enqueue(func() {
		s.handler(s.key.objID, s.key.index, v)
	})
}

// handleSubscription routes the message of a SUB line.
func (c *Client) handleSubscription(message string) {
	pairs := kvp.ParseLine(message)
	if !pairs.Has("objid") || !pairs.Has("index") {
		c.logger.Debug().Str("message", message).Msg("unhandled subscription message")
		return
	}

	key := subscriptionKey{
		objID: int(parseIntPrefix(pairs.Value("objid"))),
		index: int(parseIntPrefix(pairs.Value("index"))),
	}

	c.mu.Lock()
	sub := c.subs[key]
	c.mu.Unlock()
	if sub == nil {
		c.logger.Debug().Int("objid", key.objID).Int("index", key.index).Msg("no subscription for update")
		return
	}

	var value any = pairs.Value("value")
	if t, ok := pairs.Get("type"); ok {
		v, err := ConvertValue(pairs.Value("value"), ParamType(t))
		if err != nil {
			c.logger.Warn().Err(err).Int("objid", key.objID).Int("index", key.index).Msg("subscription value dropped")
			return
		}
		value = v
	}

	sub.update(value)
}
