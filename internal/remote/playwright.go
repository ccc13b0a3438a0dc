package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

type playwrightDriver interface {
	Install() error
	Run() (*playwright.Playwright, error)
}

type playwrightProvider struct{}

func (playwrightProvider) Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func (playwrightProvider) Run() (*playwright.Playwright, error) {
	return playwright.Run()
}

// PlaywrightBrowser drives a single Chromium page through playwright-go.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    LaunchOptions
}

func openPlaywright(ctx context.Context, opts LaunchOptions, driver playwrightDriver) (*PlaywrightBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := driver.Install(); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := driver.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ProxyURL != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyURL}
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{}
	if opts.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &PlaywrightBrowser{pw: pw, browser: browser, page: page, opts: opts}, nil
}

func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, classifyPlaywright(err))
	}
	return nil
}

func (b *PlaywrightBrowser) FindOne(ctx context.Context, scope Element, q Query) (Element, error) {
	if q.Text == "" && !q.Visible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			h   playwright.ElementHandle
			err error
		)
		if scope == nil {
			h, err = b.page.QuerySelector(q.CSS)
		} else {
			s, herr := b.handle(scope)
			if herr != nil {
				return nil, herr
			}
			h, err = s.QuerySelector(q.CSS)
		}
		if err != nil {
			return nil, classifyPlaywright(err)
		}
		if h == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, q)
		}
		return h, nil
	}

	all, err := b.FindAll(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return all[0], nil
}

func (b *PlaywrightBrowser) FindAll(ctx context.Context, scope Element, q Query) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		handles []playwright.ElementHandle
		err     error
	)
	if scope == nil {
		handles, err = b.page.QuerySelectorAll(q.CSS)
	} else {
		s, herr := b.handle(scope)
		if herr != nil {
			return nil, herr
		}
		handles, err = s.QuerySelectorAll(q.CSS)
	}
	if err != nil {
		return nil, classifyPlaywright(err)
	}
	out, err := filterMatches(ctx, handles, q,
		func(h playwright.ElementHandle) (string, error) { return h.TextContent() },
		func(h playwright.ElementHandle) (bool, error) { return h.IsVisible() },
	)
	return out, classifyPlaywright(err)
}

func (b *PlaywrightBrowser) Closest(ctx context.Context, el Element, css string) (Element, error) {
	h, err := b.handle(el)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	js, err := h.EvaluateHandle(`(el, sel) => el.parentElement ? el.parentElement.closest(sel) : null`, css)
	if err != nil {
		return nil, classifyPlaywright(err)
	}
	parent := js.AsElement()
	if parent == nil {
		return nil, fmt.Errorf("%w: ancestor %s", ErrNotFound, css)
	}
	return parent, nil
}

func (b *PlaywrightBrowser) Attribute(ctx context.Context, el Element, name string) (string, error) {
	h, err := b.handle(el)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := h.GetAttribute(name)
	return v, classifyPlaywright(err)
}

func (b *PlaywrightBrowser) Text(ctx context.Context, el Element) (string, error) {
	h, err := b.handle(el)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := h.TextContent()
	return NormalizeText(t), classifyPlaywright(err)
}

func (b *PlaywrightBrowser) Click(ctx context.Context, el Element) error {
	return b.eval(ctx, el, `el => el.click()`)
}

func (b *PlaywrightBrowser) ScrollIntoView(ctx context.Context, el Element) error {
	return b.eval(ctx, el, `el => el.scrollIntoView({block: 'center'})`)
}

func (b *PlaywrightBrowser) Fill(ctx context.Context, el Element, value string) error {
	h, err := b.handle(el)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyPlaywright(h.Fill(value))
}

func (b *PlaywrightBrowser) ReadMarkup(ctx context.Context, el Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if el == nil {
		html, err := b.page.Content()
		return html, classifyPlaywright(err)
	}
	h, err := b.handle(el)
	if err != nil {
		return "", err
	}
	v, err := h.Evaluate(`el => el.outerHTML`)
	if err != nil {
		return "", classifyPlaywright(err)
	}
	html, _ := v.(string)
	return html, nil
}

func (b *PlaywrightBrowser) CurrentLocation(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.page.URL(), nil
}

func (b *PlaywrightBrowser) Close() error {
	var errs []error
	if b.page != nil {
		errs = append(errs, b.page.Close())
	}
	if b.browser != nil {
		errs = append(errs, b.browser.Close())
	}
	if b.pw != nil {
		errs = append(errs, b.pw.Stop())
	}
	return errors.Join(errs...)
}

func (b *PlaywrightBrowser) eval(ctx context.Context, el Element, js string) error {
	h, err := b.handle(el)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = h.Evaluate(js)
	return classifyPlaywright(err)
}

func (b *PlaywrightBrowser) handle(el Element) (playwright.ElementHandle, error) {
	h, ok := el.(playwright.ElementHandle)
	if !ok || h == nil {
		return nil, fmt.Errorf("playwright: unexpected element %T", el)
	}
	return h, nil
}

func classifyPlaywright(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case staleMessage(err):
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	return err
}
