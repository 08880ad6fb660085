package vedika

import "sync"

// Router fans inbound frames out to every registered subscriber. Dispatch is
// broadcast, not routed: subscribers filter by conversation id themselves.
type Router struct {
	mu       sync.Mutex
	nextID   int
	order    []int
	handlers map[int]FrameHandler
	logger   *Logger
}

func NewRouter(logger *Logger) *Router {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return &Router{
		handlers: make(map[int]FrameHandler),
		logger:   logger.WithComponent("router"),
	}
}

// Subscribe registers a handler and returns a function that removes it.
// Handlers are invoked in registration order.
func (r *Router) Subscribe(handler FrameHandler) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.handlers[id] = handler
	r.order = append(r.order, id)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.handlers[id]; !ok {
			return
		}
		delete(r.handlers, id)
		for i, v := range r.order {
			if v == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (r *Router) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// Dispatch parses one raw message and delivers it to every subscriber.
// Malformed frames are dropped and logged; they never reach subscribers.
// A panic in one handler must not starve the others.
func (r *Router) Dispatch(data []byte) {
	frame, err := ParseFrame(data)
	if err != nil {
		r.logger.WithError(err).Warn("Dropping malformed frame")
		return
	}

	if unknown, ok := frame.(*UnknownFrame); ok {
		r.logger.Warnf("Unrecognized frame type %q, delivering anyway", unknown.Type)
	}

	r.DispatchFrame(frame)
}

// DispatchFrame delivers an already-decoded frame to every subscriber,
// synchronously and in registration order.
func (r *Router) DispatchFrame(frame Frame) {
	r.mu.Lock()
	handlers := make([]FrameHandler, 0, len(r.order))
	for _, id := range r.order {
		handlers = append(handlers, r.handlers[id])
	}
	r.mu.Unlock()

	for _, handler := range handlers {
		r.invoke(handler, frame)
	}
}

func (r *Router) invoke(handler FrameHandler, frame Frame) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("Subscriber panicked on %s frame: %v", frame.FrameType(), rec)
		}
	}()
	handler(frame)
}
