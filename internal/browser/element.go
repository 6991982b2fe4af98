// internal/browser/element.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Scripts run with the element bound to `this`. Value setters go through the
// native prototype setter so React's tracked value sees the change.
const (
	jsText      = `function() { return this.innerText || this.textContent || ""; }`
	jsClickable = `function() {
		const r = this.getBoundingClientRect();
		const s = window.getComputedStyle(this);
		return r.width > 0 && r.height > 0 && s.visibility !== "hidden" && s.display !== "none" && !this.disabled;
	}`
	jsClick       = `function() { this.click(); return true; }`
	jsClickNoWait = `function() { const el = this; setTimeout(function() { el.click(); }, 0); return true; }`
	jsScroll      = `function() { this.scrollIntoView({block: "center", inline: "center"}); return true; }`
	jsSetValue    = `function(v) {
		const proto = Object.getPrototypeOf(this);
		const desc = Object.getOwnPropertyDescriptor(proto, "value");
		if (desc && desc.set) { desc.set.call(this, v); } else { this.value = v; }
		this.dispatchEvent(new Event("input", {bubbles: true}));
		this.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	}`
	jsSelect = `function() {
		const sel = this.closest("select");
		if (!sel) { return false; }
		const desc = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, "value");
		desc.set.call(sel, this.value);
		sel.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	}`
	jsAttribute = `function(name) {
		const v = this.getAttribute(name);
		return v === null ? {present: false, value: ""} : {present: true, value: v};
	}`
)

type cdpElement struct {
	s    *Session
	node *cdp.Node
}

var _ Element = (*cdpElement)(nil)

// call invokes fn on the element's remote object and decodes the result into res.
func (e *cdpElement) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("could not resolve node <%s>: %w", e.node.LocalName, err)
		}
		defer func() { _ = cdpruntime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fn, res,
			func(p *cdpruntime.CallFunctionOnParams) *cdpruntime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID).WithAwaitPromise(true)
			},
			args...,
		).Do(ctx)
	}))
}

func (e *cdpElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := e.s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query '%s' within <%s> failed: %w", selector, e.node.LocalName, err)
	}
	return e.s.wrap(nodes), nil
}

func (e *cdpElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, jsText, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (e *cdpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		Present bool   `json:"present"`
		Value   string `json:"value"`
	}
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false, err
	}
	return res.Value, res.Present, nil
}

func (e *cdpElement) Clickable(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, jsClickable, &ok)
	return ok, err
}

func (e *cdpElement) Click(ctx context.Context) error {
	if err := e.s.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click on <%s> failed: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *cdpElement) JSClick(ctx context.Context) error {
	var ok bool
	return e.call(ctx, jsClick, &ok)
}

func (e *cdpElement) ClickNoWait(ctx context.Context) error {
	var ok bool
	return e.call(ctx, jsClickNoWait, &ok)
}

func (e *cdpElement) ScrollIntoView(ctx context.Context) error {
	var ok bool
	return e.call(ctx, jsScroll, &ok)
}

func (e *cdpElement) SendKeys(ctx context.Context, text string) error {
	err := e.s.run(ctx,
		dom.Focus().WithNodeID(e.node.NodeID),
		chromedp.KeyEvent(text),
	)
	if err != nil {
		return fmt.Errorf("typing into <%s> failed: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *cdpElement) Clear(ctx context.Context) error {
	return e.SetValue(ctx, "")
}

func (e *cdpElement) SetValue(ctx context.Context, value string) error {
	var ok bool
	return e.call(ctx, jsSetValue, &ok, value)
}

func (e *cdpElement) Select(ctx context.Context) error {
	var ok bool
	if err := e.call(ctx, jsSelect, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("<%s> is not inside a <select>", e.node.LocalName)
	}
	return nil
}

func (e *cdpElement) SetFiles(ctx context.Context, paths []string) error {
	if err := e.s.run(ctx, dom.SetFileInputFiles(paths).WithNodeID(e.node.NodeID)); err != nil {
		return fmt.Errorf("could not set files on <%s>: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *cdpElement) Property(ctx context.Context, expression string, res any) error {
	var raw []byte
	if err := e.call(ctx, "function() { return "+expression+"; }", &raw); err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	return json.Unmarshal(raw, res)
}
