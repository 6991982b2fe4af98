// Package browsertest provides an in-memory browser.Page for exercising
// waits, locators and steps without Chrome.
//
// The fake does not parse CSS. Tests register, per selector, the nodes a
// query should return, both at document level and under each node.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xkilldash9x/marquee/internal/browser"
)

// Node is a fake DOM element.
type Node struct {
	Label    string
	Content  string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Value    string
	Files    []string
	// Props answers Property calls keyed by expression.
	Props map[string]any

	// OnClick runs for Click, JSClick and ClickNoWait.
	OnClick func(p *Page)

	Clicks       int
	JSClicks     int
	NoWaitClicks int
	Scrolls      int
	Typed        string
	Selected     bool

	children map[string][]*Node
}

// El creates a node with visible text.
func El(text string) *Node {
	return &Node{Content: text, Attrs: map[string]string{}, Props: map[string]any{}, children: map[string][]*Node{}}
}

// Attr sets an attribute and returns the node.
func (n *Node) Attr(name, value string) *Node {
	n.Attrs[name] = value
	return n
}

// Child registers nodes returned when selector is queried within n.
func (n *Node) Child(selector string, nodes ...*Node) *Node {
	n.children[selector] = append(n.children[selector], nodes...)
	return n
}

// Children returns the nodes registered for selector within n.
func (n *Node) Children(selector string) []*Node {
	return n.children[selector]
}

// SetChildren replaces the nodes registered for selector within n. Callable from hooks.
func (n *Node) SetChildren(selector string, nodes ...*Node) {
	n.children[selector] = nodes
}

// Page is a fake browser.Page. All fields are guarded by the page's lock;
// use the accessor methods from tests that run concurrently with a step.
type Page struct {
	mu sync.Mutex

	Base    string
	URL     string
	Storage map[string]string

	Navigations  []string
	Reloads      int
	CookieClears int
	Accepted     int

	// OnNavigate and OnReload let tests evolve the DOM as the app would.
	OnNavigate func(p *Page, url string)
	OnReload   func(p *Page, n int)
	// OnQuery runs before every document query.
	OnQuery func(p *Page, selector string)

	// Err, when set, fails every query.
	Err error

	dialogs   int
	selectors map[string][]*Node
}

var _ browser.Page = (*Page)(nil)

// NewPage creates a page at base with empty storage.
func NewPage(base string) *Page {
	return &Page{
		Base:      strings.TrimRight(base, "/"),
		URL:       base + "/",
		Storage:   map[string]string{},
		selectors: map[string][]*Node{},
	}
}

// Set replaces the nodes returned for selector. Callable from hooks.
func (p *Page) Set(selector string, nodes ...*Node) {
	p.selectors[selector] = nodes
}

// SetLocked is Set for callers outside a hook.
func (p *Page) SetLocked(selector string, nodes ...*Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Set(selector, nodes...)
}

// OpenDialog queues a native dialog, as a confirm() in a click handler would.
func (p *Page) OpenDialog() {
	p.dialogs++
}

// SetURL changes the current URL. Callable from hooks.
func (p *Page) SetURL(u string) {
	if strings.HasPrefix(u, "/") {
		u = p.Base + u
	}
	p.URL = u
}

// Snapshot returns the current URL under lock.
func (p *Page) Snapshot() (url string, navigations []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, append([]string(nil), p.Navigations...)
}

func (p *Page) BaseURL() string { return p.Base }

func (p *Page) Navigate(ctx context.Context, u string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SetURL(u)
	p.Navigations = append(p.Navigations, p.URL)
	if p.OnNavigate != nil {
		p.OnNavigate(p, p.URL)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reloads++
	if p.OnReload != nil {
		p.OnReload(p, p.Reloads)
	}
	return nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if p.OnQuery != nil {
		p.OnQuery(p, selector)
	}
	return p.wrap(p.selectors[selector]), nil
}

var getItemArg = regexp.MustCompile(`\)\(("(?:[^"\\]|\\.)*")\)\s*$`)

// Evaluate understands the storage scripts used by browser.StateBridge.
func (p *Page) Evaluate(ctx context.Context, expression string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case strings.Contains(expression, "localStorage.getItem"):
		m := getItemArg.FindStringSubmatch(expression)
		if m == nil {
			return errors.New("browsertest: unrecognized getItem script")
		}
		var key string
		if err := json.Unmarshal([]byte(m[1]), &key); err != nil {
			return err
		}
		v, ok := p.Storage[key]
		return decodeInto(map[string]any{"present": ok, "value": v}, res)
	case strings.Contains(expression, "localStorage.clear"):
		p.Storage = map[string]string{}
		return decodeInto(true, res)
	}
	return fmt.Errorf("browsertest: unsupported expression %q", expression)
}

func (p *Page) ClearCookies(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CookieClears++
	return nil
}

func (p *Page) AcceptDialog(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dialogs == 0 {
		return errors.New("browsertest: no dialog open")
	}
	p.dialogs--
	p.Accepted++
	return nil
}

func (p *Page) wrap(nodes []*Node) []browser.Element {
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{p: p, n: n})
	}
	return out
}

func decodeInto(v any, res any) error {
	if res == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

// element is the browser.Element view of a Node. Its methods lock the page.
type element struct {
	p *Page
	n *Node
}

func (e *element) lock() func() {
	e.p.mu.Lock()
	return e.p.mu.Unlock
}

func (e *element) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	defer e.lock()()
	return e.p.wrap(e.n.children[selector]), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	defer e.lock()()
	return e.n.Content, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	defer e.lock()()
	v, ok := e.n.Attrs[name]
	return v, ok, nil
}

func (e *element) Clickable(ctx context.Context) (bool, error) {
	defer e.lock()()
	return !e.n.Hidden && !e.n.Disabled, nil
}

func (e *element) click(counter *int) error {
	defer e.lock()()
	*counter++
	if e.n.OnClick != nil {
		e.n.OnClick(e.p)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error       { return e.click(&e.n.Clicks) }
func (e *element) JSClick(ctx context.Context) error     { return e.click(&e.n.JSClicks) }
func (e *element) ClickNoWait(ctx context.Context) error { return e.click(&e.n.NoWaitClicks) }

func (e *element) ScrollIntoView(ctx context.Context) error {
	defer e.lock()()
	e.n.Scrolls++
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer e.lock()()
	e.n.Typed += text
	e.n.Value += text
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	defer e.lock()()
	e.n.Typed = ""
	e.n.Value = ""
	return nil
}

func (e *element) SetValue(ctx context.Context, value string) error {
	defer e.lock()()
	e.n.Value = value
	return nil
}

func (e *element) Select(ctx context.Context) error {
	defer e.lock()()
	e.n.Selected = true
	if e.n.OnClick != nil {
		e.n.OnClick(e.p)
	}
	return nil
}

func (e *element) SetFiles(ctx context.Context, paths []string) error {
	defer e.lock()()
	e.n.Files = append([]string(nil), paths...)
	e.n.Props["this.files ? this.files.length : 0"] = len(paths)
	return nil
}

func (e *element) Property(ctx context.Context, expression string, res any) error {
	defer e.lock()()
	v, ok := e.n.Props[expression]
	if !ok {
		return fmt.Errorf("browsertest: no property %q on %q", expression, e.n.Label)
	}
	return decodeInto(v, res)
}
