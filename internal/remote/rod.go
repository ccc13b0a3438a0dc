package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodBrowser drives a stealth-patched Chrome page over CDP with go-rod.
// Queries never block: rod's Elements calls return what is rendered now and
// waiting is left to WaitUntil.
type RodBrowser struct {
	browser *rod.Browser
	page    *rod.Page
	opts    LaunchOptions
	proc    chromeProcess
}

// chromeProcess is the launched Chrome; *launcher.Launcher satisfies it.
type chromeProcess interface {
	Kill()
	Cleanup()
}

// stop closes the CDP connection when there is one, then kills Chrome and
// removes its profile directory.
func stop(browser *rod.Browser, proc chromeProcess) error {
	var err error
	if browser != nil {
		err = browser.Close()
	}
	if proc != nil {
		proc.Kill()
		proc.Cleanup()
	}
	return err
}

func openRod(ctx context.Context, opts LaunchOptions) (*RodBrowser, error) {
	l := launcher.New().Headless(opts.Headless)
	if opts.ProxyURL != "" {
		l = l.Proxy(opts.ProxyURL)
	}
	controlURL, err := l.Launch()
	if err != nil {
		_ = stop(nil, l)
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = stop(nil, l)
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	page, err := stealth.Page(browser)
	if err != nil {
		_ = stop(browser, l)
		return nil, fmt.Errorf("open page: %w", err)
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			_ = stop(browser, l)
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		_ = stop(browser, l)
		return nil, err
	}
	return &RodBrowser{browser: browser, page: page, opts: opts, proc: l}, nil
}

func (b *RodBrowser) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	p := b.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, classifyRod(err))
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, classifyRod(err))
	}
	return nil
}

func (b *RodBrowser) FindOne(ctx context.Context, scope Element, q Query) (Element, error) {
	all, err := b.FindAll(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return all[0], nil
}

func (b *RodBrowser) FindAll(ctx context.Context, scope Element, q Query) ([]Element, error) {
	var (
		found rod.Elements
		err   error
	)
	if scope == nil {
		found, err = b.page.Context(ctx).Elements(q.CSS)
	} else {
		s, herr := b.handle(scope)
		if herr != nil {
			return nil, herr
		}
		found, err = s.Context(ctx).Elements(q.CSS)
	}
	if err != nil {
		return nil, classifyRod(err)
	}
	out, err := filterMatches(ctx, []*rod.Element(found), q,
		func(el *rod.Element) (string, error) { return el.Context(ctx).Text() },
		func(el *rod.Element) (bool, error) { return el.Context(ctx).Visible() },
	)
	return out, classifyRod(err)
}

func (b *RodBrowser) Closest(ctx context.Context, el Element, css string) (Element, error) {
	h, err := b.handle(el)
	if err != nil {
		return nil, err
	}
	parent, err := h.Context(ctx).ElementByJS(rod.Eval(`(sel) => this.parentElement ? this.parentElement.closest(sel) : null`, css))
	if err != nil {
		return nil, classifyRod(err)
	}
	return parent, nil
}

func (b *RodBrowser) Attribute(ctx context.Context, el Element, name string) (string, error) {
	h, err := b.handle(el)
	if err != nil {
		return "", err
	}
	v, err := h.Context(ctx).Attribute(name)
	if err != nil {
		return "", classifyRod(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (b *RodBrowser) Text(ctx context.Context, el Element) (string, error) {
	h, err := b.handle(el)
	if err != nil {
		return "", err
	}
	t, err := h.Context(ctx).Text()
	return NormalizeText(t), classifyRod(err)
}

func (b *RodBrowser) Click(ctx context.Context, el Element) error {
	return b.eval(ctx, el, `() => this.click()`)
}

func (b *RodBrowser) ScrollIntoView(ctx context.Context, el Element) error {
	return b.eval(ctx, el, `() => this.scrollIntoView({block: 'center'})`)
}

func (b *RodBrowser) Fill(ctx context.Context, el Element, value string) error {
	h, err := b.handle(el)
	if err != nil {
		return err
	}
	h = h.Context(ctx)
	if err := h.SelectAllText(); err != nil {
		return classifyRod(err)
	}
	return classifyRod(h.Input(value))
}

func (b *RodBrowser) ReadMarkup(ctx context.Context, el Element) (string, error) {
	if el == nil {
		html, err := b.page.Context(ctx).HTML()
		return html, classifyRod(err)
	}
	h, err := b.handle(el)
	if err != nil {
		return "", err
	}
	html, err := h.Context(ctx).HTML()
	return html, classifyRod(err)
}

func (b *RodBrowser) CurrentLocation(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", classifyRod(err)
	}
	return info.URL, nil
}

func (b *RodBrowser) Close() error {
	browser, proc := b.browser, b.proc
	b.browser, b.proc = nil, nil
	return stop(browser, proc)
}

func (b *RodBrowser) eval(ctx context.Context, el Element, js string) error {
	h, err := b.handle(el)
	if err != nil {
		return err
	}
	_, err = h.Context(ctx).Eval(js)
	return classifyRod(err)
}

func (b *RodBrowser) handle(el Element) (*rod.Element, error) {
	h, ok := el.(*rod.Element)
	if !ok || h == nil {
		return nil, fmt.Errorf("rod: unexpected element %T", el)
	}
	return h, nil
}

func classifyRod(err error) error {
	if err == nil {
		return nil
	}
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var gone *rod.ObjectNotFoundError
	if errors.As(err, &gone) || staleMessage(err) {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
