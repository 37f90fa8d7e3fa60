package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/soyeahso/kirpich/internal/chatcache"
	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/hooks"
	"github.com/soyeahso/kirpich/internal/logging"
	"github.com/soyeahso/kirpich/internal/mocks"
	"github.com/soyeahso/kirpich/internal/session"
	"github.com/soyeahso/kirpich/internal/store"
)

type fixture struct {
	gw        *Gateway
	remote    *mocks.MockRemote
	presenter *mocks.MockPresenter
	session   *session.Store
	cache     *chatcache.Cache
	hooks     *hooks.Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		remote:    mocks.NewMockRemote(ctrl),
		presenter: mocks.NewMockPresenter(ctrl),
		session:   session.New(),
		cache:     chatcache.New(),
		hooks:     hooks.NewManager(logging.New(nil, "silent")),
	}
	opts = append([]Option{WithSession(f.session), WithCache(f.cache), WithHooks(f.hooks)}, opts...)
	f.gw = New(f.remote, f.presenter, opts...)
	t.Cleanup(f.hooks.Wait)
	return f
}

func (f *fixture) signIn(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, f.session.BeginLogin())
	require.NoError(t, f.session.CompleteLogin(token))
}

func chat(id string, unread int, last string) domain.ChatSummary {
	c := domain.ChatSummary{ID: id, Title: strings.ToUpper(id), UnreadCount: unread}
	if last != "" {
		c.LastMessage = lo.ToPtr(last)
	}
	return c
}

// --- login ---

func TestLogin_BlankCredentials(t *testing.T) {
	for _, creds := range []domain.Credentials{
		{},
		{Email: " ", Password: "pw"},
		{Email: "a@b.c", Password: "\t"},
	} {
		f := newFixture(t)
		_, err := f.gw.Login(context.Background(), creds)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, "Email and password are required", err.Error())
		assert.Equal(t, domain.SessionAnonymous, f.session.State())
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	creds := domain.Credentials{Email: "a@b.c", Password: "pw"}
	f.remote.EXPECT().Authenticate(gomock.Any(), creds).Return("tok-1", nil)

	tok, err := f.gw.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Token)
	assert.Equal(t, domain.SessionAuthenticated, f.session.State())

	got, err := f.session.CurrentToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)
}

func TestLogin_ConcurrentCallFailsWithAlreadyInProgress(t *testing.T) {
	f := newFixture(t)
	creds := domain.Credentials{Email: "a@b.c", Password: "pw"}

	entered := make(chan struct{})
	release := make(chan struct{})
	f.remote.EXPECT().Authenticate(gomock.Any(), creds).DoAndReturn(
		func(context.Context, domain.Credentials) (string, error) {
			close(entered)
			<-release
			return "tok", nil
		},
	).Times(1)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.gw.Login(context.Background(), creds)
	}()

	<-entered
	_, err := f.gw.Login(context.Background(), creds)
	assert.ErrorIs(t, err, domain.ErrAlreadyInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, domain.SessionAuthenticated, f.session.State())
}

func TestLogin_WhenAuthenticated(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")

	_, err := f.gw.Login(context.Background(), domain.Credentials{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestLogin_RemoteFailures(t *testing.T) {
	tests := []struct {
		name     string
		remote   error
		wantKind domain.ErrorKind
		wantMsg  string
	}{
		{"rejected", domain.AuthRejected("Invalid credentials", nil), domain.KindAuthRejected, "Invalid credentials"},
		{"untyped", errors.New("bad"), domain.KindAuthRejected, "Invalid credentials"},
		{"unauthenticated", domain.Unauthenticated(nil), domain.KindAuthRejected, "Invalid credentials"},
		{"unavailable", domain.RemoteUnavailable("down", nil), domain.KindRemoteUnavailable, "down"},
		{"canceled", context.Canceled, domain.KindRemoteUnavailable, "Messaging service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var failed int
			f.hooks.On(hooks.EventLoginFailed, "t", func(context.Context, hooks.Payload) error {
				failed++
				return nil
			})
			f.remote.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return("", tt.remote)

			_, err := f.gw.Login(context.Background(), domain.Credentials{Email: "a", Password: "b"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, domain.SessionAnonymous, f.session.State())

			f.hooks.Wait()
			assert.Equal(t, 1, failed)
		})
	}
}

func TestLogin_EmptyTokenIsFailure(t *testing.T) {
	f := newFixture(t)
	f.remote.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return("", nil)

	_, err := f.gw.Login(context.Background(), domain.Credentials{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, domain.SessionAnonymous, f.session.State())
}

// --- sendMessage ---

func TestSendMessage_BlankBodyLeavesCacheUnchanged(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.cache.Refresh([]domain.ChatSummary{chat("c1", 2, "before")})
	before := f.cache.List()

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: body})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, "Message cannot be empty", err.Error())
	}
	assert.Equal(t, before, f.cache.List())
}

func TestSendMessage_Success(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.cache.Refresh([]domain.ChatSummary{chat("c0", 0, ""), chat("c1", 3, "old")})
	f.remote.EXPECT().Send(gomock.Any(), "tok", "c1", "hi").Return("msg-c1-17", nil)

	var sent map[string]any
	f.hooks.On(hooks.EventMessageSent, "t", func(_ context.Context, p hooks.Payload) error {
		sent = p.Data
		return nil
	})

	receipt, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: "hi"})
	require.NoError(t, err)
	assert.Contains(t, receipt.MessageID, "c1")

	got, ok := f.cache.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "hi", got.Preview())
	assert.Equal(t, 3, got.UnreadCount)
	assert.Equal(t, "c1", f.cache.List()[0].ID)

	f.hooks.Wait()
	assert.Equal(t, "msg-c1-17", sent["messageId"])
}

func TestSendMessage_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	_, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Empty(t, f.cache.List())
}

func TestSendMessage_BlankChatID(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	_, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: " ", Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSendMessage_RemoteFailureLeavesCacheUnchanged(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.cache.Refresh([]domain.ChatSummary{chat("c1", 1, "old")})
	f.remote.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("dial tcp: refused"))

	_, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, "Messaging service unavailable", err.Error())

	got, _ := f.cache.Get("c1")
	assert.Equal(t, "old", got.Preview())
	assert.Equal(t, domain.SessionAuthenticated, f.session.State())
}

func TestSendMessage_RevokedTokenResetsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.remote.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", domain.Unauthenticated(nil))

	var reasons []any
	var mu sync.Mutex
	f.hooks.On(hooks.EventSessionReset, "t", func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, p.Data["reason"])
		return nil
	})

	_, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, domain.SessionAnonymous, f.session.State())

	f.hooks.Wait()
	assert.Equal(t, []any{"remote_unauthorized"}, reasons)
}

// --- uploadMedia ---

func TestUploadMedia_EmptyBytes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")

	for _, a := range []domain.MediaAsset{
		{ChatID: "c1", FileName: "a.png"},
		{ChatID: "", FileName: ""},
		{ChatID: "c2", FileName: "b.txt", Bytes: []byte{}},
	} {
		_, err := f.gw.UploadMedia(context.Background(), a)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, "File payload is empty", err.Error())
	}
}

func TestUploadMedia_Success(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	asset := domain.MediaAsset{ChatID: "c1", FileName: "a.png", Bytes: []byte{1, 2}}
	f.remote.EXPECT().Upload(gomock.Any(), "tok", asset).Return("https://media.kirpich.app/c1/a.png", nil)

	ref, err := f.gw.UploadMedia(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, "https://media.kirpich.app/c1/a.png", ref.URL)
}

func TestUploadMedia_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	_, err := f.gw.UploadMedia(context.Background(), domain.MediaAsset{ChatID: "c1", FileName: "a", Bytes: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

// --- getChats ---

func TestGetChats_RefreshesExactly(t *testing.T) {
	f := newFixture(t)
	f.cache.Refresh([]domain.ChatSummary{chat("old", 0, "")})
	remote := []domain.ChatSummary{chat("a", 1, "x"), chat("b", 0, "")}
	f.remote.EXPECT().ListChats(gomock.Any(), "").Return(remote, nil)

	got, err := f.gw.GetChats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote, got)
	assert.Equal(t, remote, f.gw.Chats())
}

func TestGetChats_PassesTokenWhenSignedIn(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.remote.EXPECT().ListChats(gomock.Any(), "tok").Return([]domain.ChatSummary{}, nil)

	got, err := f.gw.GetChats(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetChats_RemoteFailureReturnsPreviousList(t *testing.T) {
	f := newFixture(t)
	first := []domain.ChatSummary{chat("a", 1, "x"), chat("b", 0, "")}
	gomock.InOrder(
		f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).Return(first, nil),
		f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")).Times(2),
	)

	var stale int
	var mu sync.Mutex
	f.hooks.On(hooks.EventChatsStale, "t", func(context.Context, hooks.Payload) error {
		mu.Lock()
		stale++
		mu.Unlock()
		return nil
	})

	_, err := f.gw.GetChats(context.Background())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := f.gw.GetChats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}

	f.hooks.Wait()
	assert.Equal(t, 2, stale)
}

func TestGetChats_RemoteFailureWithNothingKnown(t *testing.T) {
	f := newFixture(t)
	f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	got, err := f.gw.GetChats(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetChats_ObserverSeesRefresh(t *testing.T) {
	var seen [][]domain.ChatSummary
	f := newFixture(t, WithChatsObserver(func(list []domain.ChatSummary) { seen = append(seen, list) }))
	remote := []domain.ChatSummary{chat("a", 0, "")}
	f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).Return(remote, nil)

	_, err := f.gw.GetChats(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, remote, seen[0])
}

func TestGetChats_RejectedTokenWithNothingKnown(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.remote.EXPECT().ListChats(gomock.Any(), "tok").Return(nil, domain.Unauthenticated(nil))

	got, err := f.gw.GetChats(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, domain.KindRemoteUnavailable, domain.KindOf(err))
	assert.Equal(t, "Messaging service unavailable", err.Error())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, domain.SessionAnonymous, f.session.State())
}

// --- deliverNotification ---

func TestDeliverNotification(t *testing.T) {
	f := newFixture(t)

	err := f.gw.DeliverNotification(context.Background(), domain.Notification{Title: "", Body: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "Notification title is required", err.Error())

	n := domain.Notification{Title: "t", Body: "x"}
	f.presenter.EXPECT().Notify(n).Times(1)
	require.NoError(t, f.gw.DeliverNotification(context.Background(), n))
}

// --- logout / markRead / receive ---

func TestLogout(t *testing.T) {
	db, err := store.Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	defer db.Close()
	snaps := store.NewChatSnapshotStore(db)

	f := newFixture(t, WithSnapshots(snaps))
	f.signIn(t, "tok")
	f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).Return([]domain.ChatSummary{chat("a", 0, "")}, nil)
	_, err = f.gw.GetChats(context.Background())
	require.NoError(t, err)

	f.gw.Logout(context.Background())

	assert.Equal(t, domain.SessionAnonymous, f.session.State())
	assert.Empty(t, f.gw.Chats())
	assert.False(t, f.cache.Known())
	_, _, ok, err := snaps.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// logging out twice is fine
	f.gw.Logout(context.Background())
}

func TestLogout_DuringGetChatsDropsTheResult(t *testing.T) {
	db, err := store.Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	defer db.Close()
	snaps := store.NewChatSnapshotStore(db)

	f := newFixture(t, WithSnapshots(snaps))
	f.signIn(t, "tok")

	private := []domain.ChatSummary{chat("secret", 2, "hush")}
	entered := make(chan struct{})
	release := make(chan struct{})
	f.remote.EXPECT().ListChats(gomock.Any(), "tok").DoAndReturn(
		func(context.Context, string) ([]domain.ChatSummary, error) {
			close(entered)
			<-release
			return private, nil
		},
	)

	var got []domain.ChatSummary
	var listErr error
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		got, listErr = f.gw.GetChats(context.Background())
	}()

	<-entered
	f.gw.Logout(context.Background())
	close(release)
	<-finished

	require.NoError(t, listErr)
	assert.Equal(t, private, got)
	assert.Equal(t, SessionInfo{State: "anonymous"}, f.gw.State())
	assert.False(t, f.cache.Known())
	assert.Empty(t, f.gw.Chats())

	_, _, ok, err := snaps.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "signed-out list written back to the snapshot")
}

func TestLogout_DuringSendLeavesNextSessionAlone(t *testing.T) {
	var seen [][]domain.ChatSummary
	var mu sync.Mutex
	f := newFixture(t, WithChatsObserver(func(list []domain.ChatSummary) {
		mu.Lock()
		seen = append(seen, list)
		mu.Unlock()
	}))
	f.signIn(t, "tok-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.remote.EXPECT().Send(gomock.Any(), "tok-1", "c1", "hi").DoAndReturn(
		func(context.Context, string, string, string) (string, error) {
			close(entered)
			<-release
			return "m1", nil
		},
	)

	var receipt domain.MessageReceipt
	var sendErr error
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		receipt, sendErr = f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: "hi"})
	}()

	<-entered
	f.gw.Logout(context.Background())
	f.signIn(t, "tok-2")
	next := []domain.ChatSummary{chat("b", 0, "")}
	f.cache.Refresh(next)
	close(release)
	<-finished

	require.NoError(t, sendErr)
	assert.Equal(t, "m1", receipt.MessageID)
	assert.Equal(t, next, f.gw.Chats())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]domain.ChatSummary{{}}, seen, "only the logout was published")
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.cache.Refresh([]domain.ChatSummary{chat("a", 4, "x")})
	f.remote.EXPECT().MarkRead(gomock.Any(), "tok", "a").Return(nil)

	require.NoError(t, f.gw.MarkRead(context.Background(), "a"))
	got, _ := f.cache.Get("a")
	assert.Equal(t, 0, got.UnreadCount)
}

func TestMarkRead_Failures(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.gw.MarkRead(context.Background(), ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, f.gw.MarkRead(context.Background(), "a"), domain.ErrUnauthenticated)

	f.signIn(t, "tok")
	f.cache.Refresh([]domain.ChatSummary{chat("a", 4, "x")})
	f.remote.EXPECT().MarkRead(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("502"))
	assert.ErrorIs(t, f.gw.MarkRead(context.Background(), "a"), domain.ErrRemoteUnavailable)

	got, _ := f.cache.Get("a")
	assert.Equal(t, 4, got.UnreadCount)
}

func TestReceive(t *testing.T) {
	f := newFixture(t)
	f.cache.Refresh([]domain.ChatSummary{chat("a", 0, ""), chat("b", 1, "")})
	f.presenter.EXPECT().Notify(domain.Notification{Title: "B", Body: "ping"})

	err := f.gw.Receive(context.Background(), domain.InboundMessage{ID: "m1", ChatID: "b", Body: "ping", Timestamp: time.Now()})
	require.NoError(t, err)

	list := f.cache.List()
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.Equal(t, "ping", list[0].Preview())
}

func TestReceive_MissingChatID(t *testing.T) {
	f := newFixture(t)
	err := f.gw.Receive(context.Background(), domain.InboundMessage{ID: "m1", Body: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.cache.List())
}

// --- state / restore ---

func TestState(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, SessionInfo{State: "anonymous"}, f.gw.State())

	f.signIn(t, "tok")
	info := f.gw.State()
	assert.Equal(t, "authenticated", info.State)
	assert.True(t, info.Authenticated)
}

func TestExpiredTokenEmitsSessionReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	var clockMu sync.Mutex
	sess := session.New(session.WithClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}))
	f := newFixture(t, WithSession(sess))

	var reasons []any
	var mu sync.Mutex
	f.hooks.On(hooks.EventSessionReset, "t", func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, p.Data["reason"])
		return nil
	})

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, sess.BeginLogin())
	require.NoError(t, sess.CompleteLogin(tok))

	clockMu.Lock()
	clock = now.Add(time.Hour)
	clockMu.Unlock()

	_, err = f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "c1", Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, SessionInfo{State: "anonymous"}, f.gw.State())

	f.hooks.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []any{"expired"}, reasons)
}

func TestRestoreFromSnapshot(t *testing.T) {
	db, err := store.Open(":memory:", logging.New(nil, "silent"))
	require.NoError(t, err)
	defer db.Close()
	snaps := store.NewChatSnapshotStore(db)
	saved := []domain.ChatSummary{chat("a", 2, "x")}
	require.NoError(t, snaps.Save(context.Background(), saved))

	f := newFixture(t, WithSnapshots(snaps))
	require.NoError(t, f.gw.Restore(context.Background()))
	assert.Equal(t, saved, f.gw.Chats())

	// the restored list serves as the degraded answer
	f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).Return(nil, errors.New("offline"))
	got, err := f.gw.GetChats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestConcurrentCommands(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "tok")
	f.remote.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, chatID, _ string) (string, error) {
			return "msg-" + chatID, nil
		}).AnyTimes()
	f.remote.EXPECT().ListChats(gomock.Any(), gomock.Any()).
		Return([]domain.ChatSummary{chat("a", 0, ""), chat("b", 0, "")}, nil).AnyTimes()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.gw.SendMessage(context.Background(), domain.OutboundMessage{ChatID: "a", Body: "hi"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.gw.GetChats(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, c := range f.gw.Chats() {
		assert.GreaterOrEqual(t, c.UnreadCount, 0)
	}
}
