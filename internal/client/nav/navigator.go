package nav

import "sync"

// Navigator tracks the current route and the route to resume after login.
// It is safe for concurrent use.
type Navigator struct {
	mu      sync.Mutex
	current string
	pending string
}

func NewNavigator() *Navigator {
	return &Navigator{current: RouteHome}
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate moves to path and returns the path that was left.
func (n *Navigator) Navigate(path string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	prev := n.current
	n.current = path
	return prev
}

// Visit runs the guard for path. An allowed visit moves there; a denied one
// moves to the redirect and remembers path as pending.
func (n *Navigator) Visit(status Status, path string) Decision {
	d := Guard(status, path)

	n.mu.Lock()
	defer n.mu.Unlock()
	if d.Allowed {
		n.current = path
		return d
	}
	n.pending = d.ReturnTo
	n.current = d.Redirect
	return d
}

// RedirectToLogin moves to the login route unless already there, keeping the
// current route as the pending return target.
func (n *Navigator) RedirectToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == RouteLogin {
		return
	}
	if IsProtected(n.current) {
		n.pending = n.current
	}
	n.current = RouteLogin
}

// TakePending returns and forgets the pending route, or fallback when none
// is pending.
func (n *Navigator) TakePending(fallback string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.pending
	n.pending = ""
	if p == "" {
		return fallback
	}
	return p
}
