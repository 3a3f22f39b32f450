package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/retry"
)

type fakePage struct {
	navErr   error
	queryErr error
	dead     bool
	closed   int
	navCalls int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navCalls++
	return p.navErr
}

func (p *fakePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return []Element{}, nil
}

func (p *fakePage) Alive() bool { return !p.dead }

func (p *fakePage) Close() error {
	p.closed++
	return errors.New("close failed")
}

type fakeEngine struct {
	launchErr error
	launches  int
	pages     []*fakePage
	next      func() *fakePage
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Launch(ctx context.Context) (Page, error) {
	e.launches++
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	p := &fakePage{}
	if e.next != nil {
		p = e.next()
	}
	e.pages = append(e.pages, p)
	return p, nil
}

func TestSession_StopIsIdempotent(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSession(engine)

	// Stopping a session that never started is a no-op
	s.Stop()
	s.Stop()
	if s.Started() {
		t.Fatal("Expected session to be stopped")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.Started() {
		t.Fatal("Expected session to be started")
	}

	// Close errors are swallowed and state always ends up stopped
	s.Stop()
	s.Stop()
	if s.Started() {
		t.Error("Expected session to be stopped after Stop")
	}
	if engine.pages[0].closed != 1 {
		t.Errorf("Expected page to be closed once, got %d", engine.pages[0].closed)
	}
}

func TestSession_StartIsIdempotent(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSession(engine)

	for i := 0; i < 3; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}
	if engine.launches != 1 {
		t.Errorf("Expected 1 launch, got %d", engine.launches)
	}
}

func TestSession_LazyStartOnNavigate(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSession(engine)

	if err := s.Navigate(context.Background(), "https://linkareer.com/"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if engine.launches != 1 {
		t.Errorf("Expected lazy launch, got %d launches", engine.launches)
	}

	if _, err := s.QueryAll(context.Background(), "a"); err != nil {
		t.Fatalf("QueryAll failed: %v", err)
	}
	if engine.launches != 1 {
		t.Errorf("Expected session reuse, got %d launches", engine.launches)
	}
}

func TestSession_LaunchFailureIsSessionInit(t *testing.T) {
	engine := &fakeEngine{launchErr: errors.New("chrome not installed")}
	s := NewSession(engine)

	err := s.Navigate(context.Background(), "https://linkareer.com/")
	if !IsSessionInit(err) {
		t.Fatalf("Expected SESSION_INIT error, got %v", err)
	}
	if errors.Is(err, ErrNavigation) {
		t.Error("Launch failure must not look like a navigation failure")
	}
	if s.Started() {
		t.Error("Session must not be started after a failed launch")
	}

	if _, err := s.QueryAll(context.Background(), "a"); !IsSessionInit(err) {
		t.Errorf("Expected SESSION_INIT from QueryAll, got %v", err)
	}
}

func TestSession_NavigationErrorIsTyped(t *testing.T) {
	engine := &fakeEngine{next: func() *fakePage {
		return &fakePage{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	}}
	s := NewSession(engine)

	err := s.Navigate(context.Background(), "https://nope.invalid/")
	if !errors.Is(err, ErrNavigation) {
		t.Fatalf("Expected NAVIGATION error, got %v", err)
	}
	if IsSessionInit(err) {
		t.Error("Navigation failure must not be fatal")
	}
	if !s.Started() {
		t.Error("A live session should survive a navigation failure")
	}
}

func TestSession_RelaunchesAfterCrash(t *testing.T) {
	engine := &fakeEngine{}
	first := true
	engine.next = func() *fakePage {
		if first {
			first = false
			return &fakePage{navErr: errors.New("target closed"), dead: true}
		}
		return &fakePage{}
	}
	s := NewSession(engine)

	if err := s.Navigate(context.Background(), "https://linkareer.com/a"); err == nil {
		t.Fatal("Expected navigation error from crashed browser")
	}
	if s.Started() {
		t.Fatal("Crashed session should reset to not started")
	}

	if err := s.Navigate(context.Background(), "https://linkareer.com/b"); err != nil {
		t.Fatalf("Expected relaunch to succeed, got %v", err)
	}
	if engine.launches != 2 {
		t.Errorf("Expected 2 launches, got %d", engine.launches)
	}
	if s.Crashes() != 1 {
		t.Errorf("Expected 1 crash, got %d", s.Crashes())
	}
}

func TestSession_CountsCrashDuringQuery(t *testing.T) {
	page := &fakePage{}
	engine := &fakeEngine{next: func() *fakePage { return page }}
	s := NewSession(engine)

	if err := s.Navigate(context.Background(), "https://linkareer.com/activity/1"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	// a failed query on a live page is not a crash
	page.queryErr = errors.New("node not found")
	if _, err := s.QueryAll(context.Background(), "h1"); err == nil {
		t.Fatal("Expected query error")
	}
	if s.Crashes() != 0 {
		t.Errorf("Expected no crash on a live page, got %d", s.Crashes())
	}

	page.queryErr = errors.New("websocket closed")
	page.dead = true
	if _, err := s.QueryAll(context.Background(), "h1"); err == nil {
		t.Fatal("Expected query error from crashed browser")
	}
	if s.Crashes() != 1 {
		t.Errorf("Expected 1 crash, got %d", s.Crashes())
	}
	if s.Started() {
		t.Error("Crashed session should reset to not started")
	}
}

func TestSession_RetriesNavigation(t *testing.T) {
	page := &fakePage{navErr: NewError(CodeNavigation, "bad gateway", nil).WithStatus(502)}
	engine := &fakeEngine{next: func() *fakePage { return page }}

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.InitialBackoff = 0
	s := NewSession(engine, WithRetry(cfg))

	err := s.Navigate(context.Background(), "https://linkareer.com/")
	if !errors.Is(err, ErrNavigation) {
		t.Fatalf("Expected NAVIGATION error, got %v", err)
	}
	if page.navCalls != 3 {
		t.Errorf("Expected 3 attempts, got %d", page.navCalls)
	}
}

func TestError_Is(t *testing.T) {
	err := NewError(CodeRenderTimeout, "waiting", nil).WithURL("https://linkareer.com/")

	if !errors.Is(err, ErrRenderTimeout) {
		t.Error("Expected error to match its sentinel")
	}
	if errors.Is(err, ErrNavigation) {
		t.Error("Expected error not to match another sentinel")
	}
	if !errors.Is(err, &Error{Code: CodeRenderTimeout}) {
		t.Error("Expected error to match by code")
	}
}
